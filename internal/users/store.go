package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store は gorm 経由でユーザーを読み書きします。
// 一意制約違反を ErrEmailTaken に変換するため、DB は TranslateError を有効にして開いてください。
type Store struct {
	db *gorm.DB
}

// NewStore は Store を作成します。
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// FindByEmail はメールアドレスでユーザーを検索します。
func (s *Store) FindByEmail(ctx context.Context, email string) (*User, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return model.toUser(), nil
}

// FindByID は主キーでユーザーを検索します。UUID として解釈できない ID は ErrNotFound です。
func (s *Store) FindByID(ctx context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var model UserModel
	if err := s.db.WithContext(ctx).Where("id = ?", uid).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return model.toUser(), nil
}

// Insert は新しいユーザーを作成し、採番した ID を返します。
// 書式の検証は呼び出し側の責務で、ここではメールの一意性だけを保証します。
func (s *Store) Insert(ctx context.Context, name, email string, passwordHash []byte) (string, error) {
	model := UserModel{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", ErrEmailTaken
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return model.ID.String(), nil
}
