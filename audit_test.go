package sessionguard

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAuditAccountLockedEvent(t *testing.T) {
	cfg := lockoutTestConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 8
	cfg.Audit.DropIfFull = false

	sink := NewChannelSink(8)
	env, done := newTestEngine(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })
	defer done()

	ctx := WithClientIP(context.Background(), "192.0.2.44")
	for i := 0; i < 3; i++ {
		if err := env.engine.RecordFailedAttempt(ctx, 11, ""); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if err := env.engine.RecordFailedAttempt(ctx, 11, ""); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}

	select {
	case ev := <-sink.Events():
		if ev.Type != AuditEventAccountLocked || ev.Account != 11 || ev.IP != "192.0.2.44" {
			t.Fatalf("unexpected event %+v", ev)
		}
		if ev.Timestamp.IsZero() {
			t.Fatalf("expected timestamp")
		}
	case <-time.After(time.Second):
		t.Fatalf("expected an account-locked event")
	}

	// Rejections while locked are not audited.
	_ = env.engine.RecordFailedAttempt(ctx, 11, "")
	select {
	case ev := <-sink.Events():
		t.Fatalf("unexpected extra event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAuditExplicitIPWins(t *testing.T) {
	cfg := lockoutTestConfig()
	cfg.Lockout.MaxAttempts = 1
	cfg.Audit.Enabled = true

	sink := NewChannelSink(4)
	env, done := newTestEngine(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })
	defer done()

	ctx := WithClientIP(context.Background(), "10.0.0.1")
	_ = env.engine.RecordFailedAttempt(ctx, 3, "")
	if err := env.engine.RecordFailedAttempt(ctx, 3, "172.16.0.9"); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}

	select {
	case ev := <-sink.Events():
		if ev.IP != "172.16.0.9" {
			t.Fatalf("expected explicit ip, got %q", ev.IP)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected event")
	}
}

func TestAuditSinkEnablesAudit(t *testing.T) {
	cfg := lockoutTestConfig()
	cfg.Lockout.MaxAttempts = 1
	cfg.Audit.Enabled = false
	cfg.Audit.BufferSize = 0

	sink := NewChannelSink(4)
	env, done := newTestEngine(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })
	defer done()

	ctx := context.Background()
	_ = env.engine.RecordFailedAttempt(ctx, 3, "")
	if err := env.engine.RecordFailedAttempt(ctx, 3, ""); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}

	select {
	case ev := <-sink.Events():
		if ev.Type != AuditEventAccountLocked || ev.Account != 3 {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected an account-locked event without Audit.Enabled")
	}
}

func TestAuditDisabledWithoutSink(t *testing.T) {
	cfg := lockoutTestConfig()
	cfg.Lockout.MaxAttempts = 1
	cfg.Audit.Enabled = false

	env, done := newTestEngine(t, cfg)
	defer done()

	ctx := context.Background()
	_ = env.engine.RecordFailedAttempt(ctx, 3, "")
	if err := env.engine.RecordFailedAttempt(ctx, 3, ""); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
	if env.engine.AuditDropped() != 0 {
		t.Fatalf("expected no drops")
	}
}
