package auth

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordLength = 8
	passwordSymbols   = "!-,._"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@gmail\.com$`)

// ValidateEmail はメールアドレスが「ローカル部@gmail.com」の形式かを判定します。
// 書式のみの検査で、前後の空白も許容しません。
func ValidateEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidatePassword はパスワードが8文字以上で、小文字・大文字・記号 (! - , . _) を
// それぞれ1文字以上含むかを判定します。
func ValidatePassword(s string) bool {
	if utf8.RuneCountInString(s) < minPasswordLength {
		return false
	}

	var lower, upper, symbol bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	return lower && upper && symbol
}
