package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/sap/internal/users"
)

// UserFinder はセッションから現在のユーザーを復元するために使います。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*users.User, error)
}

// Manager はセッションの発行・解決・破棄を担います。
// プロセス内に共有状態を持たないため、並行リクエストからそのまま呼び出せます。
type Manager struct {
	store       *Store
	users       UserFinder
	maxLifetime time.Duration
	idleTimeout time.Duration
	now         func() time.Time
}

// NewManager はセッションマネージャーを作成します。
func NewManager(store *Store, finder UserFinder, maxLifetime, idleTimeout time.Duration) *Manager {
	return &Manager{
		store:       store,
		users:       finder,
		maxLifetime: maxLifetime,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// MaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func (m *Manager) MaxAgeSeconds() int {
	return int(m.maxLifetime.Seconds())
}

// Issue は userID に紐づく新しいセッションを作成し、その参照を返します。
func (m *Manager) Issue(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("userID is required")
	}
	id, err := GenerateToken()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}

	now := m.now().UTC()
	record := &Record{
		ID:         id,
		UserID:     userID,
		CreatedAt:  now,
		LastActive: now,
	}
	if err := m.store.Create(ctx, record, m.idleTimeout); err != nil {
		return "", err
	}
	return id, nil
}

// Resolve は参照に紐づくユーザーを返します。
// 参照が無効な場合や、紐づくユーザーがもう存在しない場合は ErrNotFound です。
func (m *Manager) Resolve(ctx context.Context, ref string) (*users.User, error) {
	if ref == "" {
		return nil, ErrNotFound
	}
	record, err := m.store.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotFound
	}

	now := m.now().UTC()
	if now.Sub(record.CreatedAt) >= m.maxLifetime || now.Sub(record.LastActive) >= m.idleTimeout {
		if err := m.store.Delete(ctx, ref); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	user, err := m.users.FindByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			if err := m.store.Delete(ctx, ref); err != nil {
				return nil, err
			}
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := m.store.Touch(ctx, record, now, m.ttl(record, now)); err != nil {
		return nil, err
	}
	return user, nil
}

// Revoke はセッションを破棄します。既に無効な参照でもエラーにはなりません。
func (m *Manager) Revoke(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	return m.store.Delete(ctx, ref)
}

// ttl はアイドル期限と絶対期限のうち早い方までの残り時間です。
func (m *Manager) ttl(record *Record, now time.Time) time.Duration {
	remaining := m.maxLifetime - now.Sub(record.CreatedAt)
	if remaining < m.idleTimeout {
		return remaining
	}
	return m.idleTimeout
}
