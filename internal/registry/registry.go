package registry

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/sessionguard/internal/kv"
	"github.com/MrEthical07/sessionguard/session"
	"golang.org/x/sync/errgroup"
)

// DefaultListLimit bounds List when the caller passes a non-positive limit.
const DefaultListLimit = 20

// SessionsKey is the sorted set of session ids for account, scored by
// insertion time in Unix milliseconds.
func SessionsKey(account int64) string {
	return "uid:" + strconv.FormatInt(account, 10) + ":sessions"
}

// UUIDMapKey is the hash mapping client-stable UUIDs to the session id they
// currently resolve to.
func UUIDMapKey(account int64) string {
	return "uid:" + strconv.FormatInt(account, 10) + ":sessionUUID:sessionId"
}

// View is one entry of an account's session listing.
type View struct {
	SessionID   string `json:"sessionId"`
	Current     bool   `json:"current"`
	Datetime    int64  `json:"datetime"`
	DatetimeISO string `json:"datetimeISO"`
	IP          string `json:"ip"`
	UUID        string `json:"uuid"`
	Browser     string `json:"browser,omitempty"`
	Platform    string `json:"platform,omitempty"`
}

// Registry owns per-account session membership: the recency-ordered session
// set and the UUID secondary index. Every read or mutation first repairs the
// bookkeeping against the session backend, which may expire sessions on its
// own schedule.
type Registry struct {
	store   *kv.Store
	backend session.Backend
	now     func() time.Time
	onPrune func(account int64, pruned int)
}

// Option customizes a Registry.
type Option func(*Registry)

// WithClock overrides the time source used for recency scores.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithPruneHook registers fn to run after Reconcile removes stale entries.
func WithPruneHook(fn func(account int64, pruned int)) Option {
	return func(r *Registry) {
		r.onPrune = fn
	}
}

// New creates a registry.
func New(store *kv.Store, backend session.Backend, opts ...Option) *Registry {
	r := &Registry{store: store, backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveConcurrency bounds backend reads in flight per Resolve call.
const ResolveConcurrency = 64

// Resolve fetches every session id from the backend, at most
// [ResolveConcurrency] at a time. The result is index-aligned with
// sessionIDs; absent and undecodable records are nil. Any other backend
// failure fails the whole call.
func Resolve(ctx context.Context, backend session.Backend, sessionIDs []string) ([]*session.Record, error) {
	records := make([]*session.Record, len(sessionIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ResolveConcurrency)
	for i, sid := range sessionIDs {
		g.Go(func() error {
			rec, err := backend.Get(gctx, sid)
			if err != nil {
				if errors.Is(err, session.ErrRecordCorrupt) {
					return nil
				}
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// Reconcile drops every UUID mapping whose session is gone, lacks an
// authenticated account, or authenticates as a different account. The
// stale UUID fields and their session ids are removed in one transaction.
// It returns the number of mappings pruned.
func (r *Registry) Reconcile(ctx context.Context, account int64) (int, error) {
	if account <= 0 {
		return 0, nil
	}

	mapping, err := r.store.GetObject(ctx, UUIDMapKey(account))
	if err != nil {
		return 0, err
	}
	if len(mapping) == 0 {
		return 0, nil
	}

	uuids := make([]string, 0, len(mapping))
	sids := make([]string, 0, len(mapping))
	for uuid, sid := range mapping {
		uuids = append(uuids, uuid)
		sids = append(sids, sid)
	}

	records, err := Resolve(ctx, r.backend, sids)
	if err != nil {
		return 0, err
	}

	var expiredUUIDs, expiredSIDs []string
	for i, rec := range records {
		if rec.BelongsTo(account) {
			continue
		}
		expiredUUIDs = append(expiredUUIDs, uuids[i])
		expiredSIDs = append(expiredSIDs, sids[i])
	}
	if len(expiredUUIDs) == 0 {
		return 0, nil
	}

	err = r.store.Atomic(ctx, func(tx *kv.Tx) {
		tx.DeleteObjectFields(UUIDMapKey(account), expiredUUIDs...)
		tx.SortedSetRemove(SessionsKey(account), expiredSIDs...)
	})
	if err != nil {
		return 0, err
	}
	if r.onPrune != nil {
		r.onPrune(account, len(expiredUUIDs))
	}
	return len(expiredUUIDs), nil
}

// List returns up to limit of the account's most recent sessions, newest
// first. Sessions that no longer resolve are left out.
func (r *Registry) List(ctx context.Context, account int64, currentSessionID string, limit int) ([]View, error) {
	if account <= 0 {
		return []View{}, nil
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	if _, err := r.Reconcile(ctx, account); err != nil {
		return nil, err
	}

	sids, err := r.store.SortedSetRevRange(ctx, SessionsKey(account), 0, int64(limit)-1)
	if err != nil {
		return nil, err
	}
	records, err := Resolve(ctx, r.backend, sids)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(records))
	for i, rec := range records {
		if rec == nil || rec.Meta == nil {
			continue
		}
		views = append(views, View{
			SessionID:   sids[i],
			Current:     sids[i] == currentSessionID,
			Datetime:    rec.Meta.Datetime,
			DatetimeISO: isoMillis(rec.CreatedAt()),
			IP:          escapeHTML(rec.Meta.IP),
			UUID:        rec.Meta.UUID,
			Browser:     escapeHTML(rec.Meta.Browser),
			Platform:    escapeHTML(rec.Meta.Platform),
		})
	}
	return views, nil
}

// Add records sessionID as the account's newest session and maps uuid to
// it. Both writes land in one transaction.
func (r *Registry) Add(ctx context.Context, account int64, sessionID, uuid string) error {
	if account <= 0 {
		return nil
	}
	if _, err := r.Reconcile(ctx, account); err != nil {
		return err
	}

	score := float64(r.now().UnixMilli())
	return r.store.Atomic(ctx, func(tx *kv.Tx) {
		tx.SortedSetAdd(SessionsKey(account), score, sessionID)
		if uuid != "" {
			tx.SetObjectField(UUIDMapKey(account), uuid, sessionID)
		}
	})
}

// Remove drops sessionIDs from the account's session set and uuids from
// its UUID index in one transaction. Every UUID field that maps to one of
// sessionIDs is dropped as well, so no mapping outlives its session.
// Missing entries are ignored.
func (r *Registry) Remove(ctx context.Context, account int64, sessionIDs, uuids []string) error {
	if account <= 0 || (len(sessionIDs) == 0 && len(uuids) == 0) {
		return nil
	}

	fields := uuids
	if len(sessionIDs) > 0 {
		mapping, err := r.store.GetObject(ctx, UUIDMapKey(account))
		if err != nil {
			return err
		}
		fields = mappedTo(mapping, sessionIDs, uuids)
	}

	return r.store.Atomic(ctx, func(tx *kv.Tx) {
		tx.DeleteObjectFields(UUIDMapKey(account), fields...)
		tx.SortedSetRemove(SessionsKey(account), sessionIDs...)
	})
}

// mappedTo returns extra plus every field of mapping whose value is one of
// sessionIDs, without duplicates.
func mappedTo(mapping map[string]string, sessionIDs, extra []string) []string {
	removed := make(map[string]struct{}, len(sessionIDs))
	for _, sid := range sessionIDs {
		removed[sid] = struct{}{}
	}
	seen := make(map[string]struct{}, len(extra))
	fields := make([]string, 0, len(extra))
	for _, uuid := range extra {
		if _, dup := seen[uuid]; dup || uuid == "" {
			continue
		}
		seen[uuid] = struct{}{}
		fields = append(fields, uuid)
	}
	for uuid, sid := range mapping {
		if _, ok := removed[sid]; !ok {
			continue
		}
		if _, dup := seen[uuid]; dup {
			continue
		}
		seen[uuid] = struct{}{}
		fields = append(fields, uuid)
	}
	return fields
}

// Drop deletes the session set and UUID index of every account.
func (r *Registry) Drop(ctx context.Context, accounts []int64) error {
	keys := make([]string, 0, 2*len(accounts))
	for _, account := range accounts {
		keys = append(keys, SessionsKey(account), UUIDMapKey(account))
	}
	return r.store.DeleteAll(ctx, keys)
}

// Members returns every session id of the account, oldest first.
func (r *Registry) Members(ctx context.Context, account int64) ([]string, error) {
	if account <= 0 {
		return []string{}, nil
	}
	return r.store.SortedSetRange(ctx, SessionsKey(account), 0, -1)
}

// MembersOf returns Members for several accounts in one pipeline,
// index-aligned with accounts.
func (r *Registry) MembersOf(ctx context.Context, accounts []int64) ([][]string, error) {
	keys := make([]string, len(accounts))
	for i, account := range accounts {
		keys[i] = SessionsKey(account)
	}
	return r.store.SortedSetsRange(ctx, keys, 0, -1)
}

// Count returns the reconciled number of sessions of the account.
func (r *Registry) Count(ctx context.Context, account int64) (int, error) {
	if account <= 0 {
		return 0, nil
	}
	if _, err := r.Reconcile(ctx, account); err != nil {
		return 0, err
	}
	n, err := r.store.SortedSetCard(ctx, SessionsKey(account))
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func isoMillis(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
	`\`, "&#x5C;",
	"`", "&#96;",
)

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
