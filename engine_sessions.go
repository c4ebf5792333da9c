package sessionguard

import "context"

// AddSession records sessionID as the newest session of account and maps
// uuid to it, then revokes the oldest sessions beyond
// Session.MaxPerAccount. An empty uuid is replaced with a random one.
// Non-positive account ids are ignored.
//
// Concurrent calls for one account may leave it briefly above the maximum;
// the next AddSession corrects it.
func (e *Engine) AddSession(ctx context.Context, account int64, sessionID, uuid string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return mapStoreError(e.flows.AddSession(ctx, account, sessionID, uuid))
}

// ListSessions returns the account's most recent sessions, newest first,
// bounded by Session.ListLimit. The entry whose id equals currentSessionID
// is flagged Current.
func (e *Engine) ListSessions(ctx context.Context, account int64, currentSessionID string) ([]SessionView, error) {
	return e.ListSessionsLimit(ctx, account, currentSessionID, 0)
}

// ListSessionsLimit is ListSessions with an explicit bound. A non-positive
// limit uses Session.ListLimit.
func (e *Engine) ListSessionsLimit(ctx context.Context, account int64, currentSessionID string, limit int) ([]SessionView, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if limit <= 0 {
		limit = e.config.Session.ListLimit
	}
	views, err := e.registry.List(ctx, account, currentSessionID, limit)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return views, nil
}

// ActiveSessionCount returns how many live sessions account has.
func (e *Engine) ActiveSessionCount(ctx context.Context, account int64) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	n, err := e.registry.Count(ctx, account)
	return n, mapStoreError(err)
}

// RevokeSession ends the listed sessions of account. Ids are always removed
// from the account's bookkeeping; sessions that still exist are destroyed
// and their UUID mappings removed.
func (e *Engine) RevokeSession(ctx context.Context, account int64, sessionIDs ...string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return mapStoreError(e.flows.RevokeSessions(ctx, account, sessionIDs))
}

// RevokeAllSessions ends every session of every listed account except
// exceptSessionID, which is typically the caller's own session. Pass "" to
// revoke everything.
func (e *Engine) RevokeAllSessions(ctx context.Context, accounts []int64, exceptSessionID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return mapStoreError(e.flows.RevokeAll(ctx, accounts, exceptSessionID))
}

// DeleteAllSessions destroys every session of every account, walking the
// account index in batches of Maintenance.BatchSize. It is not resumable;
// rerun it after a failure.
func (e *Engine) DeleteAllSessions(ctx context.Context) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	res, err := e.flows.DeleteAll(ctx)
	if err != nil {
		e.logger.Error("session wipe failed", "batches", res.Batches, "sessions", res.Sessions, "err", err)
		return mapStoreError(err)
	}
	e.logger.Info("session wipe complete", "batches", res.Batches, "accounts", res.Accounts, "sessions", res.Sessions)
	return nil
}
