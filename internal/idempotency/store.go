// Package idempotency remembers webhook outcomes that were already applied,
// so replays can be answered without touching the database.
package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"homestay-booking/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "homestay:webhook:"

// Store records processed keys. Mark is called only after the outcome has
// been committed, so a crash before commit never hides a retry.
type Store interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects and pings Redis.
func NewRedisStore(ctx context.Context, cfg utils.RedisConfig) (Store, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}

	ttl := cfg.DedupeTTL()
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisStore{client: client, ttl: ttl}, client, nil
}

func (s *redisStore) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *redisStore) Mark(ctx context.Context, key string) error {
	err := s.client.Set(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), s.ttl).Err()
	if err != nil {
		return fmt.Errorf("mark %s: %w", key, err)
	}
	return nil
}

// Memory is a process-local Store for single-instance deployments without
// Redis. The database row lock still decides correctness.
type Memory struct {
	mu   sync.Mutex
	keys map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{keys: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (m *Memory) Seen(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.keys[key]
	if !ok {
		return false, nil
	}
	if m.ttl > 0 && !m.now().Before(exp) {
		delete(m.keys, key)
		return false, nil
	}
	return true, nil
}

func (m *Memory) Mark(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.keys[key] = m.now().Add(m.ttl)
	return nil
}

// WebhookKey identifies one terminal outcome of one payment.
func WebhookKey(externalID, status string) string {
	return externalID + ":" + status
}
