// Package rediscache хранит профили сессий консоли в Redis, общем для нескольких реплик.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/crm-console/internal/domain"
)

const (
	dialTimeout = 2 * time.Second
	ioTimeout   = 500 * time.Millisecond
	pingTimeout = 2 * time.Second
)

// SessionStore — кэш сессий поверх go-redis.
type SessionStore struct {
	rdb *redis.Client
}

// Open подключается к Redis и проверяет соединение.
func Open(ctx context.Context, addr string) (*SessionStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})
	store := &SessionStore{rdb: rdb}
	if err := store.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return store, nil
}

// Ping используется health-проверкой.
func (s *SessionStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}

func (s *SessionStore) Close() error {
	return s.rdb.Close()
}

func (s *SessionStore) Get(ctx context.Context, key string) (domain.User, bool, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("get %s: %w", key, err)
	}

	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		// Битая запись: считаем промахом и убираем её.
		_ = s.rdb.Del(ctx, key).Err()
		return domain.User{}, false, nil
	}
	return user, true, nil
}

func (s *SessionStore) Set(ctx context.Context, key string, user domain.User, ttl time.Duration) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// TTL возвращает оставшееся время жизни ключа; отрицательное значение, если ключа нет.
func (s *SessionStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return s.rdb.TTL(ctx, key).Result()
}
