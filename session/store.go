package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps client failures from [Store].
var ErrRedisUnavailable = errors.New("redis unavailable")

// DefaultPrefix is the key namespace connect-redis style middleware writes.
const DefaultPrefix = "sess:"

// Backend resolves and destroys session ids. Get returns (nil, nil) when the
// session does not exist or has expired.
type Backend interface {
	Get(ctx context.Context, sessionID string) (*Record, error)
	Destroy(ctx context.Context, sessionID string) error
}

// Store is a Redis-backed [Backend]. Records are JSON under prefix+sid and
// expire through the key TTL.
//
//	Performance: Get and Destroy are one round-trip each.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store]. An empty prefix selects [DefaultPrefix].
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

// Save writes a record with the given TTL. The governor never calls Save;
// it exists for the web tier, tooling, and tests.
func (s *Store) Save(ctx context.Context, sessionID string, r *Record, ttl time.Duration) error {
	data, err := Encode(r)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(sessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return nil
}

// Get loads a record. A missing key is not an error.
func (s *Store) Get(ctx context.Context, sessionID string) (*Record, error) {
	if sessionID == "" {
		return nil, nil
	}
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return Decode(data)
}

// Destroy deletes a session. Destroying a missing session succeeds.
func (s *Store) Destroy(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return nil
}

// Exists reports whether sessionID is currently stored.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}
