package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/sessionguard/internal/registry"
	"github.com/MrEthical07/sessionguard/session"
	"golang.org/x/sync/errgroup"
)

// SessionRegistry is the membership bookkeeping the session flows mutate.
type SessionRegistry interface {
	Add(ctx context.Context, account int64, sessionID, uuid string) error
	Members(ctx context.Context, account int64) ([]string, error)
	MembersOf(ctx context.Context, accounts []int64) ([][]string, error)
	Remove(ctx context.Context, account int64, sessionIDs, uuids []string) error
	Drop(ctx context.Context, accounts []int64) error
}

// SessionMetrics carries metric IDs needed by the session flows.
type SessionMetrics struct {
	SessionAdded   int
	SessionRevoked int
	SessionEvicted int
	RevokeAll      int
	AddLatency     int
	WipeBatch      int
	WipedSessions  int
}

// SessionErrors carries host-level sentinel errors used by the session flows.
type SessionErrors struct {
	EngineNotReady error
}

// SessionDeps captures session registry and governor dependencies.
type SessionDeps struct {
	MaxPerAccount int

	Registry SessionRegistry
	Backend  session.Backend
	NewUUID  func() string
	Now      func() time.Time

	MetricInc     func(int)
	MetricAdd     func(int, uint64)
	MetricObserve func(int, time.Duration)
	Info          func(string, ...any)

	Metrics SessionMetrics
	Errors  SessionErrors
}

func (d *SessionDeps) defaults() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewUUID == nil {
		d.NewUUID = func() string { return "" }
	}
	if d.MetricInc == nil {
		d.MetricInc = func(int) {}
	}
	if d.MetricAdd == nil {
		d.MetricAdd = func(int, uint64) {}
	}
	if d.MetricObserve == nil {
		d.MetricObserve = func(int, time.Duration) {}
	}
	if d.Info == nil {
		d.Info = func(string, ...any) {}
	}
}

func (d *SessionDeps) ready() bool {
	return d.Registry != nil && d.Backend != nil
}

// RunAddSession records a new login for account and then evicts the oldest
// sessions beyond the configured maximum.
func RunAddSession(ctx context.Context, account int64, sessionID, uuid string, deps SessionDeps) error {
	deps.defaults()
	if !deps.ready() {
		return deps.Errors.EngineNotReady
	}
	if account <= 0 || sessionID == "" {
		return nil
	}

	start := deps.Now()
	if uuid == "" {
		uuid = deps.NewUUID()
	}
	if err := deps.Registry.Add(ctx, account, sessionID, uuid); err != nil {
		return err
	}
	deps.MetricInc(deps.Metrics.SessionAdded)

	if _, err := RunEnforceThreshold(ctx, account, deps); err != nil {
		return err
	}
	deps.MetricObserve(deps.Metrics.AddLatency, deps.Now().Sub(start))
	return nil
}

// RunEnforceThreshold revokes the oldest sessions of account until at most
// MaxPerAccount remain. A non-positive maximum disables enforcement. It
// returns the number of sessions evicted.
func RunEnforceThreshold(ctx context.Context, account int64, deps SessionDeps) (int, error) {
	deps.defaults()
	if !deps.ready() {
		return 0, deps.Errors.EngineNotReady
	}
	if account <= 0 || deps.MaxPerAccount <= 0 {
		return 0, nil
	}

	members, err := deps.Registry.Members(ctx, account)
	if err != nil {
		return 0, err
	}
	excess := len(members) - deps.MaxPerAccount
	if excess <= 0 {
		return 0, nil
	}

	if err := RunRevokeSessions(ctx, account, members[:excess], deps); err != nil {
		return 0, err
	}
	deps.MetricAdd(deps.Metrics.SessionEvicted, uint64(excess))
	return excess, nil
}

// RunRevokeSessions ends every listed session of account. Session ids and
// every UUID mapping pointing at them are removed unconditionally; backend
// records are destroyed for the sessions that still resolve.
func RunRevokeSessions(ctx context.Context, account int64, sessionIDs []string, deps SessionDeps) error {
	deps.defaults()
	if !deps.ready() {
		return deps.Errors.EngineNotReady
	}
	if account <= 0 || len(sessionIDs) == 0 {
		return nil
	}

	records, err := registry.Resolve(ctx, deps.Backend, sessionIDs)
	if err != nil {
		return err
	}

	var uuids, live []string
	for i, rec := range records {
		if rec == nil {
			continue
		}
		live = append(live, sessionIDs[i])
		if uuid := rec.UUID(); uuid != "" {
			uuids = append(uuids, uuid)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(destroyConcurrency)
	g.Go(func() error {
		return deps.Registry.Remove(gctx, account, sessionIDs, uuids)
	})
	for _, sid := range live {
		g.Go(func() error {
			return deps.Backend.Destroy(gctx, sid)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	deps.MetricAdd(deps.Metrics.SessionRevoked, uint64(len(sessionIDs)))
	return nil
}

// RunRevokeAll ends every session of every listed account except
// exceptSessionID. Accounts are revoked concurrently.
func RunRevokeAll(ctx context.Context, accounts []int64, exceptSessionID string, deps SessionDeps) error {
	deps.defaults()
	if !deps.ready() {
		return deps.Errors.EngineNotReady
	}

	valid := make([]int64, 0, len(accounts))
	for _, account := range accounts {
		if account > 0 {
			valid = append(valid, account)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	deps.MetricInc(deps.Metrics.RevokeAll)

	lists, err := deps.Registry.MembersOf(ctx, valid)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, account := range valid {
		sids := withoutSession(lists[i], exceptSessionID)
		if len(sids) == 0 {
			continue
		}
		g.Go(func() error {
			return RunRevokeSessions(gctx, account, sids, deps)
		})
	}
	return g.Wait()
}

func withoutSession(sids []string, except string) []string {
	if except == "" {
		return sids
	}
	out := make([]string, 0, len(sids))
	for _, sid := range sids {
		if sid != except {
			out = append(out, sid)
		}
	}
	return out
}
