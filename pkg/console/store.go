package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-spx-templategen/pkg/orchestrator"
)

// ErrNoResult is returned when a session has no stored result.
var ErrNoResult = errors.New("console: no result for session")

// Store keeps the last result of each session. Each Set overwrites the
// session's slot.
type Store interface {
	Get(ctx context.Context, session string) (orchestrator.Result, error)
	Set(ctx context.Context, session string, result orchestrator.Result) error
}

// MemoryStore is an in-process Store bounded by size and entry age.
type MemoryStore struct {
	cache *expirable.LRU[string, orchestrator.Result]
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore keeps up to size sessions for ttl each. Zero ttl disables
// expiry.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = 256
	}
	return &MemoryStore{cache: expirable.NewLRU[string, orchestrator.Result](size, nil, ttl)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, session string) (orchestrator.Result, error) {
	result, ok := m.cache.Get(session)
	if !ok {
		return orchestrator.Result{}, ErrNoResult
	}
	return result, nil
}

// Set implements Store.
func (m *MemoryStore) Set(_ context.Context, session string, result orchestrator.Result) error {
	if session == "" {
		return errors.New("console: session is required")
	}
	m.cache.Add(session, result)
	return nil
}

// Len reports the number of live sessions.
func (m *MemoryStore) Len() int {
	return m.cache.Len()
}

// RedisStore keeps results in redis as JSON so several console processes
// can share sessions.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps client. Keys are prefix + session id.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisClient builds a go-redis client from connection settings.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Ping checks connectivity.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("console: redis ping: %w", err)
	}
	return nil
}

// Key returns the redis key for session.
func (r *RedisStore) Key(session string) string {
	return r.prefix + "result:" + strings.TrimSpace(session)
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, session string) (orchestrator.Result, error) {
	data, err := r.client.Get(ctx, r.Key(session)).Bytes()
	if errors.Is(err, redis.Nil) {
		return orchestrator.Result{}, ErrNoResult
	}
	if err != nil {
		return orchestrator.Result{}, fmt.Errorf("console: redis get: %w", err)
	}
	var result orchestrator.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return orchestrator.Result{}, fmt.Errorf("console: decode stored result: %w", err)
	}
	return result, nil
}

// Set implements Store.
func (r *RedisStore) Set(ctx context.Context, session string, result orchestrator.Result) error {
	if session == "" {
		return errors.New("console: session is required")
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("console: encode result: %w", err)
	}
	if err := r.client.Set(ctx, r.Key(session), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("console: redis set: %w", err)
	}
	return nil
}

// Close releases the redis connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
