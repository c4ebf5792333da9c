package registry

import (
	"context"
	"sort"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/sessionguard/internal/kv"
	"github.com/MrEthical07/sessionguard/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fixture struct {
	reg      *Registry
	sessions *session.Store
	mr       *miniredis.Miniredis
	clock    time.Time
}

func newRegistryTest(t *testing.T) (*fixture, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	f := &fixture{
		sessions: session.NewStore(rdb, ""),
		mr:       mr,
		clock:    time.UnixMilli(1_700_000_000_000),
	}
	f.reg = New(kv.New(rdb), f.sessions, WithClock(func() time.Time {
		f.clock = f.clock.Add(time.Millisecond)
		return f.clock
	}))
	return f, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func (f *fixture) login(t *testing.T, account int64, sid, uuid, ip string) {
	t.Helper()
	rec := &session.Record{
		Meta: &session.Meta{
			Datetime: f.clock.UnixMilli(),
			IP:       ip,
			UUID:     uuid,
			Browser:  "Firefox",
			Platform: "Linux",
		},
		Passport: &session.Passport{User: session.NewAccountRef(account)},
	}
	if err := f.sessions.Save(context.Background(), sid, rec, time.Hour); err != nil {
		t.Fatalf("save session: %v", err)
	}
	if err := f.reg.Add(context.Background(), account, sid, uuid); err != nil {
		t.Fatalf("add: %v", err)
	}
}

func TestAddRecordsMembershipAndUUID(t *testing.T) {
	f, done := newRegistryTest(t)
	defer done()
	ctx := context.Background()

	f.login(t, 7, "sA", "u1", "10.0.0.1")
	f.login(t, 7, "sB", "u2", "10.0.0.2")

	members, err := f.reg.Members(ctx, 7)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 2 || members[0] != "sA" || members[1] != "sB" {
		t.Fatalf("unexpected members %v", members)
	}
	if got := f.mr.HGet(UUIDMapKey(7), "u2"); got != "sB" {
		t.Fatalf("expected u2 -> sB, got %q", got)
	}
}

func TestAddSameUUIDRepointsMapping(t *testing.T) {
	f, done := newRegistryTest(t)
	defer done()

	f.login(t, 7, "sA", "u1", "10.0.0.1")
	f.login(t, 7, "sB", "u1", "10.0.0.1")

	if got := f.mr.HGet(UUIDMapKey(7), "u1"); got != "sB" {
		t.Fatalf("expected u1 -> sB, got %q", got)
	}
}

func TestReconcileDropsExpiredAndForeignSessions(t *testing.T) {
	f, done := newRegistryTest(t)
	defer done()
	ctx := context.Background()

	f.login(t, 7, "sA", "u1", "10.0.0.1")
	f.login(t, 7, "sB", "u2", "10.0.0.2")
	f.login(t, 7, "sC", "u3", "10.0.0.3")

	f.mr.Del(session.DefaultPrefix + "sA")
	foreign := &session.Record{
		Meta:     &session.Meta{UUID: "u2"},
		Passport: &session.Passport{User: session.NewAccountRef(99)},
	}
	if err := f.sessions.Save(ctx, "sB", foreign, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}

	pruned, err := f.reg.Reconcile(ctx, 7)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if pruned != 2 {
		t.Fatalf("expected 2 pruned, got %d", pruned)
	}
	members, _ := f.reg.Members(ctx, 7)
	if len(members) != 1 || members[0] != "sC" {
		t.Fatalf("unexpected members %v", members)
	}
	if f.mr.HGet(UUIDMapKey(7), "u1") != "" || f.mr.HGet(UUIDMapKey(7), "u2") != "" {
		t.Fatalf("stale uuid mappings remain")
	}
}

func TestReconcileTreatsAnonymousAndCorruptAsExpired(t *testing.T) {
	f, done := newRegistryTest(t)
	defer done()
	ctx := context.Background()

	f.login(t, 7, "sA", "u1", "10.0.0.1")
	f.login(t, 7, "sB", "u2", "10.0.0.2")

	if err := f.sessions.Save(ctx, "sA", &session.Record{Meta: &session.Meta{UUID: "u1"}}, time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := f.mr.Set(session.DefaultPrefix+"sB", "{broken"); err != nil {
		t.Fatalf("set: %v", err)
	}

	pruned, err := f.reg.Reconcile(ctx, 7)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if pruned != 2 {
		t.Fatalf("expected 2 pruned, got %d", pruned)
	}
	n, err := f.reg.Count(ctx, 7)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no sessions, got %d", n)
	}
}

func TestListNewestFirstWithCurrentFlag(t *testing.T) {
	f, done := newRegistryTest(t)
	defer done()
	ctx := context.Background()

	f.login(t, 7, "sA", "u1", "10.0.0.1")
	f.login(t, 7, "sB", "u2", "<b>1.2.3.4</b>")

	views, err := f.reg.List(ctx, 7, "sA", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	if views[0].SessionID != "sB" || views[1].SessionID != "sA" {
		t.Fatalf("unexpected order %s, %s", views[0].SessionID, views[1].SessionID)
	}
	if views[0].Current || !views[1].Current {
		t.Fatalf("current flag misplaced: %+v", views)
	}
	if views[0].IP != "&lt;b&gt;1.2.3.4&lt;&#x2F;b&gt;" {
		t.Fatalf("ip not escaped: %q", views[0].IP)
	}
	want := time.UnixMilli(views[1].Datetime).UTC().Format("2006-01-02T15:04:05.000Z")
	if views[1].DatetimeISO != want {
		t.Fatalf("expected iso %q, got %q", want, views[1].DatetimeISO)
	}
}

func TestListHonorsLimit(t *testing.T) {
	f, done := newRegistryTest(t)
	defer done()
	ctx := context.Background()

	for _, sid := range []string{"s1", "s2", "s3", "s4"} {
		f.login(t, 3, sid, "u-"+sid, "10.0.0.1")
	}
	views, err := f.reg.List(ctx, 3, "", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 2 || views[0].SessionID != "s4" || views[1].SessionID != "s3" {
		t.Fatalf("unexpected views %+v", views)
	}
}

func TestNonPositiveAccountIsEmpty(t *testing.T) {
	f, done := newRegistryTest(t)
	defer done()
	ctx := context.Background()

	if err := f.reg.Add(ctx, 0, "s", "u"); err != nil {
		t.Fatalf("add: %v", err)
	}
	views, err := f.reg.List(ctx, 0, "", 10)
	if err != nil || len(views) != 0 {
		t.Fatalf("expected empty list, got %v, %v", views, err)
	}
	if keys := f.mr.Keys(); len(keys) != 0 {
		t.Fatalf("expected no keys, got %v", keys)
	}
}

func TestMembersOf(t *testing.T) {
	f, done := newRegistryTest(t)
	defer done()
	ctx := context.Background()

	f.login(t, 1, "a1", "u", "ip")
	f.login(t, 2, "b1", "u", "ip")
	f.login(t, 2, "b2", "v", "ip")

	lists, err := f.reg.MembersOf(ctx, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("members of: %v", err)
	}
	if len(lists) != 3 || len(lists[0]) != 1 || len(lists[1]) != 2 || len(lists[2]) != 0 {
		t.Fatalf("unexpected lists %v", lists)
	}
}

func TestRemoveAndDrop(t *testing.T) {
	f, done := newRegistryTest(t)
	defer done()
	ctx := context.Background()

	f.login(t, 7, "sA", "u1", "ip")
	f.login(t, 7, "sB", "u2", "ip")
	f.login(t, 8, "sC", "u3", "ip")

	if err := f.reg.Remove(ctx, 7, []string{"sA", "missing"}, []string{"u1"}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	members, _ := f.reg.Members(ctx, 7)
	if len(members) != 1 || members[0] != "sB" {
		t.Fatalf("unexpected members %v", members)
	}
	if f.mr.HGet(UUIDMapKey(7), "u1") != "" {
		t.Fatalf("u1 mapping should be gone")
	}

	if err := f.reg.Drop(ctx, []int64{7, 8}); err != nil {
		t.Fatalf("drop: %v", err)
	}
	for _, key := range []string{SessionsKey(7), UUIDMapKey(7), SessionsKey(8), UUIDMapKey(8)} {
		if f.mr.Exists(key) {
			t.Fatalf("expected %s deleted", key)
		}
	}
}

func TestRemoveDropsEveryFieldMappedToRemovedSession(t *testing.T) {
	f, done := newRegistryTest(t)
	defer done()
	ctx := context.Background()

	f.login(t, 7, "sA", "u1", "ip")
	f.login(t, 7, "sB", "u2", "ip")
	// A second device id repointed at sA, unknown to the session record.
	if err := f.reg.Add(ctx, 7, "sA", "u9"); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := f.reg.Remove(ctx, 7, []string{"sA"}, nil); err != nil {
		t.Fatalf("remove: %v", err)
	}
	for _, uuid := range []string{"u1", "u9"} {
		if f.mr.HGet(UUIDMapKey(7), uuid) != "" {
			t.Fatalf("%s mapping should be gone", uuid)
		}
	}
	if got := f.mr.HGet(UUIDMapKey(7), "u2"); got != "sB" {
		t.Fatalf("expected u2 -> sB kept, got %q", got)
	}
}

func TestMappedToDeduplicates(t *testing.T) {
	mapping := map[string]string{"u1": "sA", "u2": "sB", "u3": "sA"}
	got := mappedTo(mapping, []string{"sA"}, []string{"u1", "", "u1"})
	sort.Strings(got)
	if len(got) != 2 || got[0] != "u1" || got[1] != "u3" {
		t.Fatalf("unexpected fields %v", got)
	}
}

type gaugedBackend struct {
	inFlight atomic.Int64
	peak     atomic.Int64
}

func (b *gaugedBackend) Get(context.Context, string) (*session.Record, error) {
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		peak := b.peak.Load()
		if n <= peak || b.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	return nil, nil
}

func (b *gaugedBackend) Destroy(context.Context, string) error { return nil }

func TestResolveBoundsConcurrency(t *testing.T) {
	backend := &gaugedBackend{}
	sids := make([]string, 4*ResolveConcurrency)
	for i := range sids {
		sids[i] = "s" + strconv.Itoa(i)
	}

	records, err := Resolve(context.Background(), backend, sids)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(records) != len(sids) {
		t.Fatalf("expected %d records, got %d", len(sids), len(records))
	}
	if peak := backend.peak.Load(); peak > ResolveConcurrency {
		t.Fatalf("peak concurrency %d exceeds %d", peak, ResolveConcurrency)
	}
}
