// Package records はホーム画面に表示するレシピ一覧を提供します。
package records

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Recipe は読み取り専用のレコードです。
type Recipe struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
}

// Store はレシピを読み出します。
type Store struct {
	db *gorm.DB
}

// NewStore は Store を作成します。
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// List は全レシピを ID 順に返します。
func (s *Store) List(ctx context.Context) ([]Recipe, error) {
	var recipes []Recipe
	if err := s.db.WithContext(ctx).Order("id").Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return recipes, nil
}
