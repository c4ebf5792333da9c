package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/sessionguard"
	"github.com/MrEthical07/sessionguard/internal/accounts"
	"github.com/MrEthical07/sessionguard/internal/kv"
	"github.com/MrEthical07/sessionguard/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		accountCount = flag.Int("accounts", 5000, "number of accounts to spread sessions over")
		concurrency  = flag.Int("concurrency", 256, "number of concurrent workers")
		ops          = flag.Int("ops", 100000, "operations per phase")
		maxSessions  = flag.Int("max-sessions", 10, "per-account session maximum")
		redisAddr    = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix       = flag.String("prefix", "sess:", "session key prefix")
		wipe         = flag.Bool("wipe", true, "time a system-wide wipe after the phases")
	)
	flag.Parse()

	if *accountCount <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := sessionguard.DefaultConfig()
	cfg.Session.MaxPerAccount = *maxSessions
	cfg.Session.KeyPrefix = *prefix
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := sessionguard.New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	store := session.NewStore(client, *prefix)
	index := accounts.NewRedisIndex(kv.New(client), accounts.JoinDateKey)

	fmt.Printf("seeding %d accounts...\n", *accountCount)
	startSeed := time.Now()
	for i := 1; i <= *accountCount; i++ {
		if err := index.Add(ctx, int64(i), float64(i)); err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	pick := func(r *rand.Rand) int64 { return int64(r.Intn(*accountCount) + 1) }

	var sidSeq int64
	addStats := runPhase(ctx, *ops, *concurrency, func(ctx context.Context, r *rand.Rand) error {
		account := pick(r)
		sid := fmt.Sprintf("sid-%d", atomic.AddInt64(&sidSeq, 1))
		rec := buildSession(account, uuid.NewString())
		if err := store.Save(ctx, sid, rec, 24*time.Hour); err != nil {
			return err
		}
		return engine.AddSession(ctx, account, sid, rec.Meta.UUID)
	})
	listStats := runPhase(ctx, *ops, *concurrency, func(ctx context.Context, r *rand.Rand) error {
		_, err := engine.ListSessions(ctx, pick(r), "")
		return err
	})
	lockoutStats := runPhase(ctx, *ops, *concurrency, func(ctx context.Context, r *rand.Rand) error {
		err := engine.RecordFailedAttempt(ctx, pick(r), "203.0.113.7")
		if sessionguard.ErrorCode(err) == "account-locked" {
			return nil
		}
		return err
	})
	revokeStats := runPhase(ctx, *ops/10+1, *concurrency, func(ctx context.Context, r *rand.Rand) error {
		return engine.RevokeAllSessions(ctx, []int64{pick(r)}, "")
	})

	fmt.Println("---- results ----")
	printStats("add", addStats)
	printStats("list", listStats)
	printStats("lockout", lockoutStats)
	printStats("revoke-all", revokeStats)

	if *wipe {
		start := time.Now()
		if err := engine.DeleteAllSessions(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "wipe failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wipe: total=%s\n", time.Since(start).Round(time.Millisecond))
	}

	snap := engine.MetricsSnapshot()
	fmt.Printf("evicted=%d pruned=%d locked=%d wiped=%d\n",
		snap.Counters[sessionguard.MetricSessionEvicted],
		snap.Counters[sessionguard.MetricSessionPruned],
		snap.Counters[sessionguard.MetricAccountLocked],
		snap.Counters[sessionguard.MetricWipedSessions],
	)
}

// runPhase runs op ops times across concurrency workers and records the
// latency of each call.
func runPhase(ctx context.Context, ops, concurrency int, op func(ctx context.Context, r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(ctx, r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func buildSession(account int64, deviceUUID string) *session.Record {
	return &session.Record{
		Meta: &session.Meta{
			Datetime: time.Now().UnixMilli(),
			IP:       "203.0.113.7",
			UUID:     deviceUUID,
			Browser:  "loadtest",
			Platform: "linux",
		},
		Passport: &session.Passport{User: session.NewAccountRef(account)},
	}
}
