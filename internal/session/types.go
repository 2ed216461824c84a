// Package session はログイン状態をサーバー側で管理します。
//
// ブラウザには署名付きクッキーでセッション参照 (ID) だけを渡し、
// どのユーザーに紐づくかは Redis 上のレコードで保持します。
package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// ErrNotFound は参照が無効（存在しない・期限切れ・ユーザー消失）な場合に返されます。
var ErrNotFound = errors.New("session not found")

// Record はサーバー側に保存するセッションの状態です。
type Record struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
}

// GenerateToken は 256 ビットの乱数を16進文字列で返します。
func GenerateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
