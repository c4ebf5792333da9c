package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps every failure reported by the underlying Redis client.
var ErrUnavailable = errors.New("kv store unavailable")

const defaultBatchSize = 100

// Store is the expiring key-value store the governor runs against: scalar
// keys with millisecond TTLs, sorted sets, and hash objects, all addressed
// by string key.
//
// Store does not retry. Every method is a single round-trip (or a single
// pipeline) so callers can reason about partial failure.
type Store struct {
	redis redis.UniversalClient
}

// New wraps a Redis client.
func New(client redis.UniversalClient) *Store {
	return &Store{redis: client}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// Client exposes the wrapped client for packages that share the connection.
func (s *Store) Client() redis.UniversalClient {
	return s.redis
}

// Ping reports store reachability and round-trip latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), unavailable(err)
	}
	return time.Since(start), nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

// IncrementWithTTL increments key and sets its TTL in one MULTI/EXEC, so the
// counter never exists without an expiry.
func (s *Store) IncrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, unavailable(err)
	}
	return incr.Val(), nil
}

// Get returns the scalar value at key and false when the key is absent.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, unavailable(err)
	}
	return v, true, nil
}

// Set stores value at key. A ttl of zero keeps the key forever.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// DeleteAll removes every key in one command. An empty slice is a no-op.
func (s *Store) DeleteAll(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// PTTL returns the remaining lifetime of key, or zero when the key is
// missing or has no expiry.
func (s *Store) PTTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.redis.PTTL(ctx, key).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	if d <= 0 {
		return 0, nil
	}
	return d, nil
}

// GetObject returns all fields of the hash at key. A missing key yields an
// empty map.
func (s *Store) GetObject(ctx context.Context, key string) (map[string]string, error) {
	obj, err := s.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	return obj, nil
}

func (s *Store) GetObjectField(ctx context.Context, key, field string) (string, bool, error) {
	v, err := s.redis.HGet(ctx, key, field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, unavailable(err)
	}
	return v, true, nil
}

func (s *Store) SetObjectField(ctx context.Context, key, field, value string) error {
	if err := s.redis.HSet(ctx, key, field, value).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) DeleteObjectFields(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.redis.HDel(ctx, key, fields...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) SortedSetAdd(ctx context.Context, key string, score float64, member string) error {
	if err := s.redis.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// SortedSetRange returns members by ascending score between ranks start and
// stop inclusive. A stop of -1 means the last element.
func (s *Store) SortedSetRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	members, err := s.redis.ZRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	return members, nil
}

// SortedSetRevRange is SortedSetRange by descending score.
func (s *Store) SortedSetRevRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	members, err := s.redis.ZRevRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	return members, nil
}

// SortedSetsRange runs SortedSetRange for every key in one pipeline. The
// result is index-aligned with keys.
func (s *Store) SortedSetsRange(ctx context.Context, keys []string, start, stop int64) ([][]string, error) {
	if len(keys) == 0 {
		return [][]string{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringSliceCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.ZRange(ctx, key, start, stop)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, unavailable(err)
	}

	out := make([][]string, len(keys))
	for i, cmd := range cmds {
		members, err := cmd.Result()
		if err != nil {
			return nil, unavailable(err)
		}
		out[i] = members
	}
	return out, nil
}

func (s *Store) SortedSetRemove(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	if err := s.redis.ZRem(ctx, key, toInterfaces(members)...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) SortedSetCard(ctx context.Context, key string) (int64, error) {
	n, err := s.redis.ZCard(ctx, key).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// ProcessSortedSet walks the members of the sorted set at key in ascending
// score order, batchSize members at a time, and hands each batch to fn.
// Iteration is by rank, so fn must not add or remove members of key itself.
// The first error from fn stops the walk and is returned unchanged.
func (s *Store) ProcessSortedSet(
	ctx context.Context,
	key string,
	batchSize int,
	fn func(ctx context.Context, members []string) error,
) error {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	var start int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		members, err := s.SortedSetRange(ctx, key, start, start+int64(batchSize)-1)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return nil
		}
		if err := fn(ctx, members); err != nil {
			return err
		}
		if len(members) < batchSize {
			return nil
		}
		start += int64(batchSize)
	}
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
