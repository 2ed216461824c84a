// Package auth は登録・ログイン・ログアウトの流れと、それを守る CSRF 検証を提供します。
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/sap/internal/session"
	"github.com/yourusername/sap/internal/users"
)

// UserStore は資格情報の保存先です。
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	Insert(ctx context.Context, name, email string, passwordHash []byte) (string, error)
}

// PasswordHasher はパスワードの一方向ハッシュと検証を行います。
type PasswordHasher interface {
	Hash(plaintext string) ([]byte, error)
	Verify(plaintext string, digest []byte) bool
}

// SessionIssuer はログイン状態の発行と破棄を行います。
type SessionIssuer interface {
	Issue(ctx context.Context, userID string) (string, error)
	Revoke(ctx context.Context, ref string) error
}

// Service は認証フローをまとめたものです。ストア由来のエラーはここで種別に変換されます。
type Service struct {
	users    UserStore
	hasher   PasswordHasher
	sessions SessionIssuer

	// 未登録メールでのログインでも同じコストの照合を行うためのダミー
	dummyHash []byte
}

// NewService は Service を作成します。
func NewService(store UserStore, hasher PasswordHasher, sessions SessionIssuer) (*Service, error) {
	token, err := session.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate dummy password: %w", err)
	}
	dummy, err := hasher.Hash(token[:32])
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}
	return &Service{
		users:     store,
		hasher:    hasher,
		sessions:  sessions,
		dummyHash: dummy,
	}, nil
}

// Register はユーザーを登録し、採番された ID を返します。
// 最初に失敗した検査の種別を返し、それ以降の処理は行いません。
func (s *Service) Register(ctx context.Context, name, email, password string) (string, error) {
	if !ValidateEmail(email) {
		return "", ErrInvalidEmail
	}
	if !ValidatePassword(password) {
		return "", ErrWeakPassword
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return "", ErrEmailTaken
	case !errors.Is(err, users.ErrNotFound):
		return "", storeUnavailable(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrWeakPassword
		}
		return "", fmt.Errorf("hash password: %w", err)
	}

	// 事前チェックと挿入の間に同じメールで登録された場合は一意制約が最終判断になる
	id, err := s.users.Insert(ctx, name, email, hash)
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			return "", ErrEmailTaken
		}
		return "", storeUnavailable(err)
	}
	return id, nil
}

// Login は資格情報を検証し、新しいセッション参照を返します。
// メール未登録とパスワード誤りはどちらも ErrInvalidCredentials です。
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return "", ErrInvalidCredentials
		}
		return "", storeUnavailable(err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	ref, err := s.sessions.Issue(ctx, user.ID)
	if err != nil {
		return "", storeUnavailable(err)
	}
	return ref, nil
}

// Logout はセッションを破棄します。無効な参照に対しても成功します。
func (s *Service) Logout(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, ref); err != nil {
		return storeUnavailable(err)
	}
	return nil
}

func storeUnavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
