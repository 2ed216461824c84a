package auth

import (
	"errors"

	"github.com/yourusername/sap/internal/session"
)

var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("weak password")
	ErrEmailTaken         = errors.New("email taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCSRFRejected       = errors.New("csrf rejected")
	ErrStoreUnavailable   = errors.New("store unavailable")

	// ErrUnauthenticated はセッションが無効な状態で、session.ErrNotFound と同一です。
	ErrUnauthenticated = session.ErrNotFound
)

const (
	msgInvalidEmail       = "Invalid email format. Please use a valid email address."
	msgWeakPassword       = "Password must contain at least one lowercase letter, one uppercase letter, and one special character (! - , . _) and must be at least 8 characters long."
	msgEmailTaken         = "Email already exists. Please use a different email."
	msgInvalidCredentials = "Invalid email or password"
	msgRegistered         = "Registration successful! You can now log in."
)

// Message は利用者に表示する文言を返します。
// 認証失敗はメール未登録かパスワード誤りかを区別しません。
func Message(err error) string {
	switch {
	case errors.Is(err, ErrInvalidEmail):
		return msgInvalidEmail
	case errors.Is(err, ErrWeakPassword):
		return msgWeakPassword
	case errors.Is(err, ErrEmailTaken):
		return msgEmailTaken
	case errors.Is(err, ErrInvalidCredentials):
		return msgInvalidCredentials
	default:
		return ""
	}
}
