// Package users はユーザー資格情報の永続化を提供します。
package users

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound は該当ユーザーが存在しない場合に返されます。
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken はメールアドレスの一意制約に違反した場合に返されます。
	ErrEmailTaken = errors.New("email already registered")
)

// User は保存済みユーザーを表します。PasswordHash に平文が入ることはありません。
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// UserModel は users テーブルの行です。
type UserModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"size:255;not null"`
	Email        string    `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash []byte    `gorm:"not null"`
	CreatedAt    time.Time
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) toUser() *User {
	return &User{
		ID:           m.ID.String(),
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}
