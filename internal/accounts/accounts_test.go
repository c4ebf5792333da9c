package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/sessionguard/internal/kv"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisIndexTest(t *testing.T) (*RedisIndex, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisIndex(kv.New(rdb), ""), mr, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func TestRedisIndexBatchesInJoinOrder(t *testing.T) {
	idx, _, done := newRedisIndexTest(t)
	defer done()
	ctx := context.Background()

	for i := int64(1); i <= 25; i++ {
		if err := idx.Add(ctx, i, float64(1000+i)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	var sizes []int
	var seen []int64
	err := idx.EachBatch(ctx, 10, func(_ context.Context, ids []int64) error {
		sizes = append(sizes, len(ids))
		seen = append(seen, ids...)
		return nil
	})
	if err != nil {
		t.Fatalf("each batch: %v", err)
	}
	if len(sizes) != 3 || sizes[0] != 10 || sizes[1] != 10 || sizes[2] != 5 {
		t.Fatalf("unexpected batch sizes %v", sizes)
	}
	for i, id := range seen {
		if id != int64(i+1) {
			t.Fatalf("out of order at %d: %d", i, id)
		}
	}
}

func TestRedisIndexSkipsNonNumericMembers(t *testing.T) {
	idx, mr, done := newRedisIndexTest(t)
	defer done()

	if _, err := mr.ZAdd(JoinDateKey, 1, "guest"); err != nil {
		t.Fatalf("zadd: %v", err)
	}
	if _, err := mr.ZAdd(JoinDateKey, 2, "42"); err != nil {
		t.Fatalf("zadd: %v", err)
	}

	var seen []int64
	err := idx.EachBatch(context.Background(), 0, func(_ context.Context, ids []int64) error {
		seen = append(seen, ids...)
		return nil
	})
	if err != nil {
		t.Fatalf("each batch: %v", err)
	}
	if len(seen) != 1 || seen[0] != 42 {
		t.Fatalf("unexpected ids %v", seen)
	}
}

func TestRedisIndexStopsOnCallbackError(t *testing.T) {
	idx, _, done := newRedisIndexTest(t)
	defer done()
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		_ = idx.Add(ctx, i, float64(i))
	}
	boom := errors.New("boom")
	calls := 0
	err := idx.EachBatch(ctx, 2, func(context.Context, []int64) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRedisIndexEmpty(t *testing.T) {
	idx, _, done := newRedisIndexTest(t)
	defer done()

	called := false
	err := idx.EachBatch(context.Background(), 10, func(context.Context, []int64) error {
		called = true
		return nil
	})
	if err != nil || called {
		t.Fatalf("expected no batches, err=%v called=%v", err, called)
	}
}
