package main

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yourusername/sap/internal/auth"
	"github.com/yourusername/sap/internal/config"
	"github.com/yourusername/sap/internal/logging"
	"github.com/yourusername/sap/internal/records"
	"github.com/yourusername/sap/internal/session"
	"github.com/yourusername/sap/internal/users"
)

type dependencies struct {
	logger      logging.Logger
	sessions    *session.Manager
	authHandler *auth.Handler
	recipes     records.Lister
}

func setupRedis(cfg *config.Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func newDependencies(cfg *config.Config, db *gorm.DB, rdb *redis.Client, logger logging.Logger) (*dependencies, error) {
	userStore := users.NewStore(db)
	sessionManager := session.NewManager(
		session.NewStore(rdb),
		userStore,
		cfg.SessionMaxLifetime,
		cfg.SessionIdleTimeout,
	)

	svc, err := auth.NewService(userStore, auth.NewHasher(cfg.BcryptCost), sessionManager)
	if err != nil {
		return nil, err
	}

	return &dependencies{
		logger:      logger,
		sessions:    sessionManager,
		authHandler: auth.NewHandler(svc, logger),
		recipes:     records.NewStore(db),
	}, nil
}

// sessionSecret はクッキー署名鍵を返します。
// 開発時に未設定の場合は起動ごとの使い捨て鍵を生成します（再起動でログインは失われます）。
func sessionSecret(cfg *config.Config, logger logging.Logger) ([]byte, error) {
	if cfg.SessionSecret != "" {
		return []byte(cfg.SessionSecret), nil
	}
	token, err := session.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	logger.Warn(context.Background(), "SESSION_SECRET is not set; using an ephemeral key")
	return []byte(token), nil
}
