package kv

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tx queues writes that Atomic applies in a single MULTI/EXEC. Empty member
// or field lists are skipped rather than sent, since Redis rejects them.
type Tx struct {
	ctx    context.Context
	pipe   redis.Pipeliner
	queued int
}

func (t *Tx) Set(key, value string, ttl time.Duration) {
	t.pipe.Set(t.ctx, key, value, ttl)
	t.queued++
}

func (t *Tx) Delete(keys ...string) {
	if len(keys) == 0 {
		return
	}
	t.pipe.Del(t.ctx, keys...)
	t.queued++
}

func (t *Tx) SortedSetAdd(key string, score float64, member string) {
	t.pipe.ZAdd(t.ctx, key, redis.Z{Score: score, Member: member})
	t.queued++
}

func (t *Tx) SortedSetRemove(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	t.pipe.ZRem(t.ctx, key, toInterfaces(members)...)
	t.queued++
}

func (t *Tx) SetObjectField(key, field, value string) {
	t.pipe.HSet(t.ctx, key, field, value)
	t.queued++
}

func (t *Tx) DeleteObjectFields(key string, fields ...string) {
	if len(fields) == 0 {
		return
	}
	t.pipe.HDel(t.ctx, key, fields...)
	t.queued++
}

// Atomic runs fn to queue writes and applies them all-or-nothing. Nothing is
// sent when fn queues no command.
func (s *Store) Atomic(ctx context.Context, fn func(tx *Tx)) error {
	pipe := s.redis.TxPipeline()
	tx := &Tx{ctx: ctx, pipe: pipe}
	fn(tx)
	if tx.queued == 0 {
		pipe.Discard()
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}
