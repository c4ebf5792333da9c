//go:build integration
// +build integration

package test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/sessionguard"
	"github.com/MrEthical07/sessionguard/session"
)

// Concurrent logins may briefly overshoot the per-account maximum, but once
// they settle a single further login trims the account back to the limit.
func TestConcurrentAddSessionSettlesAtMaximum(t *testing.T) {
	rdb, _, cleanup := newMiniredisClient(t)
	defer cleanup()

	cfg := sessionguard.DefaultConfig()
	cfg.Session.MaxPerAccount = 3
	engine := newIntegrationEngine(t, rdb, cfg)

	ctx := context.Background()
	store := session.NewStore(rdb, cfg.Session.KeyPrefix)

	const workers = 16
	start := make(chan struct{})
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(sid string) {
			defer wg.Done()
			<-start
			rec := makeRecord(41, "uuid-"+sid)
			if err := store.Save(ctx, sid, rec, time.Hour); err != nil {
				errs <- err
				return
			}
			errs <- engine.AddSession(ctx, 41, sid, rec.Meta.UUID)
		}(fmt.Sprintf("race-%d", i))
	}
	close(start)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent login: %v", err)
		}
	}

	login(t, engine, rdb, 41, "settle")

	n, err := engine.ActiveSessionCount(ctx, 41)
	if err != nil {
		t.Fatalf("ActiveSessionCount: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 sessions after settling, got %d", n)
	}
}

// Revoking the same session from many goroutines is idempotent.
func TestConcurrentRevokeIsIdempotent(t *testing.T) {
	rdb, mr, cleanup := newMiniredisClient(t)
	defer cleanup()
	engine := newIntegrationEngine(t, rdb, sessionguard.DefaultConfig())
	login(t, engine, rdb, 42, "dup")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- engine.RevokeSession(context.Background(), 42, "dup")
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("RevokeSession: %v", err)
		}
	}
	if mr.Exists("sess:dup") || mr.Exists("uid:42:sessions") {
		t.Fatal("expected session and membership to be gone")
	}
}
