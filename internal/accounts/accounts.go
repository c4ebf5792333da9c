// Package accounts enumerates every account id in a stable order, in
// batches, for system-wide maintenance.
package accounts

import (
	"context"
	"strconv"

	"github.com/MrEthical07/sessionguard/internal/kv"
)

// DefaultBatchSize is used when a caller passes a non-positive size.
const DefaultBatchSize = 1000

// JoinDateKey is the sorted set of account ids scored by join time.
const JoinDateKey = "users:joindate"

// Batcher walks the account ordering index. fn receives each batch in
// order; a non-nil error from fn stops iteration and is returned.
type Batcher interface {
	EachBatch(ctx context.Context, size int, fn func(ctx context.Context, accounts []int64) error) error
}

// RedisIndex reads the account order from a sorted set.
type RedisIndex struct {
	store *kv.Store
	key   string
}

// NewRedisIndex creates an index over key. An empty key selects
// [JoinDateKey].
func NewRedisIndex(store *kv.Store, key string) *RedisIndex {
	if key == "" {
		key = JoinDateKey
	}
	return &RedisIndex{store: store, key: key}
}

// EachBatch implements [Batcher]. Members that are not positive integers
// are skipped.
func (r *RedisIndex) EachBatch(ctx context.Context, size int, fn func(ctx context.Context, accounts []int64) error) error {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return r.store.ProcessSortedSet(ctx, r.key, size, func(ctx context.Context, members []string) error {
		ids := make([]int64, 0, len(members))
		for _, m := range members {
			id, err := strconv.ParseInt(m, 10, 64)
			if err != nil || id <= 0 {
				continue
			}
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			return nil
		}
		return fn(ctx, ids)
	})
}

// Add inserts account into the index with the given join time score.
// Used by tooling and tests that seed an index.
func (r *RedisIndex) Add(ctx context.Context, account int64, joined float64) error {
	return r.store.SortedSetAdd(ctx, r.key, joined, strconv.FormatInt(account, 10))
}
