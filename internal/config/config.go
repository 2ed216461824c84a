// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	minSecretLength = 32
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// セッション設定
	SessionSecret      string        // クッキー署名用の秘密鍵
	SessionMaxLifetime time.Duration // ログインからの絶対有効期限
	SessionIdleTimeout time.Duration // 無操作で失効するまでの時間

	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り、空なら無効）

	// データベース設定
	DatabaseDriver string // postgres または sqlite
	DatabaseDSN    string // 接続文字列

	// セッションストア設定
	RedisURL string // セッションレコード保存用Redis接続URL

	// パスワード設定
	BcryptCost int // bcrypt のコスト値

	// ログ設定
	LogLevel string // debug, info, warn, error
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	config := &Config{
		SessionSecret:      getEnv("SESSION_SECRET", ""),
		SessionMaxLifetime: getEnvAsMinutes("SESSION_MAX_LIFETIME_MINUTES", 12*60),
		SessionIdleTimeout: getEnvAsMinutes("SESSION_IDLE_MINUTES", 30),

		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),

		DatabaseDriver: getEnv("DATABASE_DRIVER", DriverSQLite),
		DatabaseDSN:    getEnv("DATABASE_DSN", "sap.db"),

		RedisURL: getEnv("REDIS_URL", "redis://127.0.0.1:6379/0"),

		BcryptCost: getEnvAsInt("BCRYPT_COST", bcrypt.DefaultCost),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DatabaseDriver)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.SessionMaxLifetime <= 0 || c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("session lifetimes must be positive")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	// ローカル開発では秘密鍵が空でもよいが、本番では厳格にチェックする
	if c.GinMode == "release" {
		if len(c.SessionSecret) < minSecretLength {
			return fmt.Errorf("SESSION_SECRET must be at least %d bytes in release mode", minSecretLength)
		}
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required in release mode")
		}
	}

	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsMinutes は分単位の環境変数を time.Duration として取得します。
func getEnvAsMinutes(key string, defaultMinutes int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultMinutes)) * time.Minute
}
