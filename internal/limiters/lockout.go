package limiters

import (
	"context"
	"strconv"
	"time"

	"github.com/MrEthical07/sessionguard/internal/kv"
)

// DefaultAttemptWindow is the sliding lifetime of the failed-attempt counter.
const DefaultAttemptWindow = time.Hour

// LockoutConfig holds configuration for the failed-login lockout tracker.
type LockoutConfig struct {
	MaxAttempts   int
	Duration      time.Duration
	AttemptWindow time.Duration
}

// Outcome is the result of recording one failed attempt.
type Outcome uint8

const (
	// OutcomeCounted means the attempt was counted and the account stays open.
	OutcomeCounted Outcome = iota
	// OutcomeAlreadyLocked means a lockout flag was present; nothing was counted.
	OutcomeAlreadyLocked
	// OutcomeLockTriggered means this attempt crossed the threshold and the
	// account is now locked.
	OutcomeLockTriggered
)

// LockoutStatus is a read-only view of an account's lockout state.
type LockoutStatus struct {
	Locked    bool
	Remaining time.Duration
	Attempts  int
}

// Lockout tracks failed login attempts per account and sets a temporary
// lockout flag once the configured threshold is exceeded. Counter and flag
// carry independent TTLs, so both expire without any sweep.
type Lockout struct {
	store  *kv.Store
	config LockoutConfig
}

// NewLockout creates a lockout tracker.
func NewLockout(store *kv.Store, cfg LockoutConfig) *Lockout {
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = DefaultAttemptWindow
	}
	return &Lockout{store: store, config: cfg}
}

// AttemptsKey is the counter key for account.
func AttemptsKey(account int64) string {
	return "loginAttempts:" + strconv.FormatInt(account, 10)
}

// LockoutKey is the flag key for account.
func LockoutKey(account int64) string {
	return "lockout:" + strconv.FormatInt(account, 10)
}

// RecordFailure counts one failed attempt. The increment and the window TTL
// are written together. When the post-increment count
// exceeds MaxAttempts, the flag is set and the counter deleted in one
// transaction. Non-positive accounts are ignored.
func (l *Lockout) RecordFailure(ctx context.Context, account int64) (Outcome, error) {
	if l == nil || account <= 0 {
		return OutcomeCounted, nil
	}

	locked, err := l.store.Exists(ctx, LockoutKey(account))
	if err != nil {
		return OutcomeCounted, err
	}
	if locked {
		return OutcomeAlreadyLocked, nil
	}

	attempts, err := l.store.IncrementWithTTL(ctx, AttemptsKey(account), l.config.AttemptWindow)
	if err != nil {
		return OutcomeCounted, err
	}
	if attempts <= int64(l.config.MaxAttempts) {
		return OutcomeCounted, nil
	}

	err = l.store.Atomic(ctx, func(tx *kv.Tx) {
		tx.Set(LockoutKey(account), "", l.config.Duration)
		tx.Delete(AttemptsKey(account))
	})
	if err != nil {
		return OutcomeCounted, err
	}
	return OutcomeLockTriggered, nil
}

// Clear deletes the attempt counter only, e.g. after a successful login.
func (l *Lockout) Clear(ctx context.Context, account int64) error {
	if l == nil || account <= 0 {
		return nil
	}
	return l.store.Delete(ctx, AttemptsKey(account))
}

// Reset deletes both the counter and the lockout flag.
func (l *Lockout) Reset(ctx context.Context, account int64) error {
	if l == nil || account <= 0 {
		return nil
	}
	return l.store.DeleteAll(ctx, []string{AttemptsKey(account), LockoutKey(account)})
}

// Status reads the current counter and flag without mutating either.
func (l *Lockout) Status(ctx context.Context, account int64) (LockoutStatus, error) {
	if l == nil || account <= 0 {
		return LockoutStatus{}, nil
	}

	var status LockoutStatus
	locked, err := l.store.Exists(ctx, LockoutKey(account))
	if err != nil {
		return LockoutStatus{}, err
	}
	if locked {
		status.Locked = true
		if status.Remaining, err = l.store.PTTL(ctx, LockoutKey(account)); err != nil {
			return LockoutStatus{}, err
		}
	}

	raw, ok, err := l.store.Get(ctx, AttemptsKey(account))
	if err != nil {
		return LockoutStatus{}, err
	}
	if ok {
		if n, convErr := strconv.Atoi(raw); convErr == nil {
			status.Attempts = n
		}
	}
	return status, nil
}
