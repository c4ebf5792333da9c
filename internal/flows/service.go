package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	deps.Wipe.Sessions = deps.Sessions
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Lockout.RecordFailure != nil && s.deps.Sessions.ready()
}

func (s Service) RecordFailedAttempt(ctx context.Context, account int64, clientIP string) error {
	return RunRecordFailedAttempt(ctx, account, clientIP, s.deps.Lockout)
}

func (s Service) ClearAttempts(ctx context.Context, account int64) error {
	return RunClearAttempts(ctx, account, s.deps.Lockout)
}

func (s Service) ResetLockout(ctx context.Context, account int64) error {
	return RunResetLockout(ctx, account, s.deps.Lockout)
}

func (s Service) AddSession(ctx context.Context, account int64, sessionID, uuid string) error {
	return RunAddSession(ctx, account, sessionID, uuid, s.deps.Sessions)
}

func (s Service) EnforceThreshold(ctx context.Context, account int64) (int, error) {
	return RunEnforceThreshold(ctx, account, s.deps.Sessions)
}

func (s Service) RevokeSessions(ctx context.Context, account int64, sessionIDs []string) error {
	return RunRevokeSessions(ctx, account, sessionIDs, s.deps.Sessions)
}

func (s Service) RevokeAll(ctx context.Context, accounts []int64, exceptSessionID string) error {
	return RunRevokeAll(ctx, accounts, exceptSessionID, s.deps.Sessions)
}

func (s Service) DeleteAll(ctx context.Context) (WipeResult, error) {
	return RunDeleteAll(ctx, s.deps.Wipe)
}
