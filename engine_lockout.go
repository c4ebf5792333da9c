package sessionguard

import "context"

// RecordFailedAttempt counts one failed login for account.
//
// It returns ErrAccountLocked when the account is already locked, in which
// case nothing is counted, and when this attempt takes the counter above
// Lockout.MaxAttempts. In the latter case the lockout flag is set and the
// counter deleted in one transaction, and an account-locked audit event is
// emitted with clientIP (or the IP from [WithClientIP] when empty).
// Non-positive account ids are ignored.
func (e *Engine) RecordFailedAttempt(ctx context.Context, account int64, clientIP string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return mapStoreError(e.flows.RecordFailedAttempt(ctx, account, clientIP))
}

// ClearAttempts forgets the failed-attempt counter, typically after a
// successful login. An active lockout is left in place.
func (e *Engine) ClearAttempts(ctx context.Context, account int64) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return mapStoreError(e.flows.ClearAttempts(ctx, account))
}

// ResetLockout removes both the counter and the lockout flag.
func (e *Engine) ResetLockout(ctx context.Context, account int64) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return mapStoreError(e.flows.ResetLockout(ctx, account))
}

// LockoutStatus reports whether account is locked, for how long, and the
// current failed-attempt count.
func (e *Engine) LockoutStatus(ctx context.Context, account int64) (LockoutStatus, error) {
	if !e.ready() {
		return LockoutStatus{}, ErrEngineNotReady
	}
	status, err := e.lockout.Status(ctx, account)
	return status, mapStoreError(err)
}
