package captcha

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a challenge is unknown, expired or already used
var ErrNotFound = errors.New("captcha not found")

// Store keeps issued challenges until they are answered.
// Take is single use: a challenge can be read at most once.
type Store interface {
	Save(ctx context.Context, purpose Purpose, key, text string, ttl time.Duration) error
	Take(ctx context.Context, purpose Purpose, key string) (string, error)
}

func storeKey(purpose Purpose, key string) string {
	return fmt.Sprintf("captcha:%s:%s", purpose, key)
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Store backed by Redis
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Save(ctx context.Context, purpose Purpose, key, text string, ttl time.Duration) error {
	if err := s.client.Set(ctx, storeKey(purpose, key), text, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save captcha: %w", err)
	}
	return nil
}

func (s *redisStore) Take(ctx context.Context, purpose Purpose, key string) (string, error) {
	text, err := s.client.GetDel(ctx, storeKey(purpose, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read captcha: %w", err)
	}
	return text, nil
}

type memoryEntry struct {
	text      string
	expiresAt time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates a process-local Store, used when Redis is not available
func NewMemoryStore() Store {
	return &memoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *memoryStore) Save(_ context.Context, purpose Purpose, key, text string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[storeKey(purpose, key)] = memoryEntry{text: text, expiresAt: now.Add(ttl)}
	return nil
}

func (s *memoryStore) Take(_ context.Context, purpose Purpose, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := storeKey(purpose, key)
	e, ok := s.entries[k]
	delete(s.entries, k)
	if !ok || s.now().After(e.expiresAt) {
		return "", ErrNotFound
	}
	return e.text, nil
}
