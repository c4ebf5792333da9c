//go:build integration
// +build integration

package test

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/sessionguard"
	"github.com/MrEthical07/sessionguard/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newIntegrationEngine(t *testing.T, client redis.UniversalClient, cfg sessionguard.Config) *sessionguard.Engine {
	t.Helper()
	engine, err := sessionguard.New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func newMiniredisClient(t *testing.T) (*redis.Client, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return rdb, mr, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func makeRecord(account int64, deviceUUID string) *session.Record {
	return &session.Record{
		Meta: &session.Meta{
			Datetime: time.Now().UnixMilli(),
			IP:       "192.0.2.10",
			UUID:     deviceUUID,
			Browser:  "Chrome",
			Platform: "Linux",
		},
		Passport: &session.Passport{User: session.NewAccountRef(account)},
	}
}

// login saves a session record and registers it, as a web tier would.
func login(t *testing.T, engine *sessionguard.Engine, client redis.UniversalClient, account int64, sid string) {
	t.Helper()
	ctx := context.Background()
	rec := makeRecord(account, "uuid-"+sid)
	store := session.NewStore(client, engine.Config().Session.KeyPrefix)
	if err := store.Save(ctx, sid, rec, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := engine.AddSession(ctx, account, sid, rec.Meta.UUID); err != nil {
		t.Fatalf("AddSession failed: %v", err)
	}
}
