package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
)

// Store はセッションレコードを Redis に保存します。
type Store struct {
	rdb *redis.Client
}

// NewStore は Store を作成します。
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Get はセッションレコードを取得します。存在しない場合は nil, nil を返します。
// 壊れたレコードは削除し、存在しないものとして扱います。
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, fmt.Errorf("session id is required")
	}
	data, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		if err := s.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &record, nil
}

// Create は新しいレコードを保存します。同じ ID が既に存在する場合は失敗します。
func (s *Store) Create(ctx context.Context, record *Record, ttl time.Duration) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, sessionKey(record.ID), payload, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session id collision: %s", record.ID)
	}
	return nil
}

// Touch は最終アクセス時刻と TTL を更新します。
// 削除済みのキーを復活させないよう、存在する場合だけ書き込みます。
func (s *Store) Touch(ctx context.Context, record *Record, at time.Time, ttl time.Duration) error {
	if record == nil {
		return fmt.Errorf("record is nil")
	}
	updated := *record
	updated.LastActive = at
	payload, err := json.Marshal(&updated)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetXX(ctx, sessionKey(record.ID), payload, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Delete はレコードを削除します。存在しなくてもエラーにはなりません。
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, sessionKey(id)).Err()
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}
