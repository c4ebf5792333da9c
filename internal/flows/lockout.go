package flows

import (
	"context"

	"github.com/MrEthical07/sessionguard/internal/limiters"
)

// LockoutMetrics carries metric IDs needed by the lockout flows.
type LockoutMetrics struct {
	FailedAttempt  int
	AccountLocked  int
	LockedRejected int
	LockoutReset   int
}

// LockoutEvents carries audit event names used by the lockout flows.
type LockoutEvents struct {
	AccountLocked string
}

// LockoutErrors carries host-level sentinel errors used by the lockout flows.
type LockoutErrors struct {
	EngineNotReady error
	AccountLocked  error
}

// LockoutDeps captures failed-attempt and lockout dependencies.
type LockoutDeps struct {
	ClientIPFromContext func(context.Context) string

	RecordFailure func(context.Context, int64) (limiters.Outcome, error)
	Clear         func(context.Context, int64) error
	Reset         func(context.Context, int64) error

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, account int64, ip string)
	Warn      func(string, ...any)

	Metrics LockoutMetrics
	Events  LockoutEvents
	Errors  LockoutErrors
}

func (d *LockoutDeps) defaults() {
	if d.ClientIPFromContext == nil {
		d.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if d.MetricInc == nil {
		d.MetricInc = func(int) {}
	}
	if d.EmitAudit == nil {
		d.EmitAudit = func(context.Context, string, int64, string) {}
	}
	if d.Warn == nil {
		d.Warn = func(string, ...any) {}
	}
}

// RunRecordFailedAttempt counts one failed login for account. It returns
// Errors.AccountLocked when the account was already locked or when this
// attempt locked it; only the latter emits the audit event.
func RunRecordFailedAttempt(ctx context.Context, account int64, clientIP string, deps LockoutDeps) error {
	deps.defaults()
	if deps.RecordFailure == nil {
		return deps.Errors.EngineNotReady
	}
	if account <= 0 {
		return nil
	}

	outcome, err := deps.RecordFailure(ctx, account)
	if err != nil {
		return err
	}

	switch outcome {
	case limiters.OutcomeAlreadyLocked:
		deps.MetricInc(deps.Metrics.LockedRejected)
		return deps.Errors.AccountLocked
	case limiters.OutcomeLockTriggered:
		if clientIP == "" {
			clientIP = deps.ClientIPFromContext(ctx)
		}
		deps.MetricInc(deps.Metrics.FailedAttempt)
		deps.MetricInc(deps.Metrics.AccountLocked)
		deps.EmitAudit(ctx, deps.Events.AccountLocked, account, clientIP)
		deps.Warn("account locked", "account", account, "ip", clientIP)
		return deps.Errors.AccountLocked
	default:
		deps.MetricInc(deps.Metrics.FailedAttempt)
		return nil
	}
}

// RunClearAttempts forgets the failed-attempt counter of account.
func RunClearAttempts(ctx context.Context, account int64, deps LockoutDeps) error {
	if deps.Clear == nil {
		return deps.Errors.EngineNotReady
	}
	if account <= 0 {
		return nil
	}
	return deps.Clear(ctx, account)
}

// RunResetLockout removes both the counter and the lockout flag.
func RunResetLockout(ctx context.Context, account int64, deps LockoutDeps) error {
	deps.defaults()
	if deps.Reset == nil {
		return deps.Errors.EngineNotReady
	}
	if account <= 0 {
		return nil
	}
	if err := deps.Reset(ctx, account); err != nil {
		return err
	}
	deps.MetricInc(deps.Metrics.LockoutReset)
	return nil
}
