// Package database は gorm 接続の生成とスキーマ移行を行います。
package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/sap/internal/config"
	"github.com/yourusername/sap/internal/records"
	"github.com/yourusername/sap/internal/users"
)

// Open は設定されたドライバーで DB を開きます。
// 一意制約違反を gorm.ErrDuplicatedKey として扱えるよう TranslateError を有効にします。
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.DriverPostgres:
		dialector = postgres.Open(dsn)
	case config.DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return db, nil
}

// Migrate はテーブルとインデックスを作成します。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&users.UserModel{}, &records.Recipe{}); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}
