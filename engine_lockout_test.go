package sessionguard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/sessionguard/internal/limiters"
)

func lockoutTestConfig() Config {
	cfg := DefaultConfig()
	cfg.Lockout.MaxAttempts = 3
	cfg.Lockout.DurationMinutes = 5
	return cfg
}

func TestLockout_ThresholdTriggersLock(t *testing.T) {
	env, done := newTestEngine(t, lockoutTestConfig())
	defer done()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := env.engine.RecordFailedAttempt(ctx, 7, "198.51.100.1"); err != nil {
			t.Fatalf("attempt %d: expected nil, got %v", i, err)
		}
	}
	if ttl := env.mr.TTL(limiters.AttemptsKey(7)); ttl != time.Hour {
		t.Fatalf("expected counter ttl 1h, got %v", ttl)
	}

	err := env.engine.RecordFailedAttempt(ctx, 7, "198.51.100.1")
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("4th attempt: expected ErrAccountLocked, got %v", err)
	}
	if env.mr.Exists(limiters.AttemptsKey(7)) {
		t.Fatalf("counter must be deleted when the lock triggers")
	}
	if !env.mr.Exists(limiters.LockoutKey(7)) {
		t.Fatalf("lockout flag must be set")
	}
	if ttl := env.mr.TTL(limiters.LockoutKey(7)); ttl != 5*time.Minute {
		t.Fatalf("expected flag ttl 5m, got %v", ttl)
	}
}

func TestLockout_LockedAccountRejectsWithoutCounting(t *testing.T) {
	env, done := newTestEngine(t, lockoutTestConfig())
	defer done()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_ = env.engine.RecordFailedAttempt(ctx, 7, "")
	}
	for i := 0; i < 3; i++ {
		if err := env.engine.RecordFailedAttempt(ctx, 7, ""); !errors.Is(err, ErrAccountLocked) {
			t.Fatalf("expected ErrAccountLocked, got %v", err)
		}
	}
	if env.mr.Exists(limiters.AttemptsKey(7)) {
		t.Fatalf("locked attempts must not be counted")
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricAccountLocked] != 1 {
		t.Fatalf("expected one lockout, got %d", snap.Counters[MetricAccountLocked])
	}
	if snap.Counters[MetricLockedRejected] != 3 {
		t.Fatalf("expected 3 locked rejections, got %d", snap.Counters[MetricLockedRejected])
	}
	if snap.Counters[MetricFailedAttempt] != 4 {
		t.Fatalf("expected 4 failed attempts, got %d", snap.Counters[MetricFailedAttempt])
	}
}

func TestLockout_ExpiresWithoutIntervention(t *testing.T) {
	env, done := newTestEngine(t, lockoutTestConfig())
	defer done()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_ = env.engine.RecordFailedAttempt(ctx, 7, "")
	}
	env.mr.FastForward(5*time.Minute + time.Second)

	if err := env.engine.RecordFailedAttempt(ctx, 7, ""); err != nil {
		t.Fatalf("expected counting to resume after expiry, got %v", err)
	}
}

func TestLockout_ResetThenRecordNeverFailsFromStaleState(t *testing.T) {
	env, done := newTestEngine(t, lockoutTestConfig())
	defer done()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_ = env.engine.RecordFailedAttempt(ctx, 7, "")
	}
	if err := env.engine.ResetLockout(ctx, 7); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := env.engine.RecordFailedAttempt(ctx, 7, ""); err != nil {
		t.Fatalf("expected nil after reset, got %v", err)
	}
	status, err := env.engine.LockoutStatus(ctx, 7)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Locked || status.Attempts != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestLockout_ClearAttemptsKeepsLock(t *testing.T) {
	env, done := newTestEngine(t, lockoutTestConfig())
	defer done()
	ctx := context.Background()

	_ = env.engine.RecordFailedAttempt(ctx, 7, "")
	_ = env.engine.RecordFailedAttempt(ctx, 7, "")
	if err := env.engine.ClearAttempts(ctx, 7); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if env.mr.Exists(limiters.AttemptsKey(7)) {
		t.Fatalf("counter should be gone")
	}

	for i := 0; i < 4; i++ {
		_ = env.engine.RecordFailedAttempt(ctx, 7, "")
	}
	_ = env.engine.ClearAttempts(ctx, 7)
	status, err := env.engine.LockoutStatus(ctx, 7)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Locked || status.Remaining <= 0 {
		t.Fatalf("expected lock to survive ClearAttempts, got %+v", status)
	}
}

func TestLockout_NonPositiveAccountIsNoop(t *testing.T) {
	env, done := newTestEngine(t, lockoutTestConfig())
	defer done()
	ctx := context.Background()

	for _, account := range []int64{0, -4} {
		for i := 0; i < 10; i++ {
			if err := env.engine.RecordFailedAttempt(ctx, account, ""); err != nil {
				t.Fatalf("account %d: expected nil, got %v", account, err)
			}
		}
		if err := env.engine.ResetLockout(ctx, account); err != nil {
			t.Fatalf("reset: %v", err)
		}
	}
	if keys := env.mr.Keys(); len(keys) != 0 {
		t.Fatalf("expected no keys, got %v", keys)
	}
}
