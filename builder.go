package sessionguard

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/MrEthical07/sessionguard/internal/accounts"
	internalaudit "github.com/MrEthical07/sessionguard/internal/audit"
	"github.com/MrEthical07/sessionguard/internal/flows"
	"github.com/MrEthical07/sessionguard/internal/kv"
	"github.com/MrEthical07/sessionguard/internal/limiters"
	"github.com/MrEthical07/sessionguard/internal/registry"
	"github.com/MrEthical07/sessionguard/session"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Builder assembles an [Engine]. Builder instances are configured during
// initialization and used once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	backend      session.Backend
	accountIndex AccountIndex
	auditSink    AuditSink
	logger       *slog.Logger

	built bool
}

// New returns a builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. Validation happens in Build.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the client used for lockout and session bookkeeping. It is
// required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSessionBackend overrides the session store. By default sessions are
// read from the same Redis under Session.KeyPrefix.
func (b *Builder) WithSessionBackend(backend session.Backend) *Builder {
	b.backend = backend
	return b
}

// WithAccountIndex overrides the account enumeration used by
// DeleteAllSessions. By default the users:joindate sorted set is walked.
func (b *Builder) WithAccountIndex(index AccountIndex) *Builder {
	b.accountIndex = index
	return b
}

// WithAuditSink sets the destination of audit events. A non-nil sink turns
// auditing on even when Audit.Enabled is false.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the AddSession latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	store := kv.New(b.redis)

	backend := b.backend
	if backend == nil {
		backend = session.NewStore(b.redis, cfg.Session.KeyPrefix)
	}

	var index AccountIndex = b.accountIndex
	if index == nil {
		index = accounts.NewRedisIndex(store, accounts.JoinDateKey)
	}

	e := &Engine{
		config:   cfg,
		store:    store,
		backend:  backend,
		accounts: index,
		metrics:  NewMetrics(cfg.Metrics),
		logger:   logger,
		lockout: limiters.NewLockout(store, limiters.LockoutConfig{
			MaxAttempts: cfg.Lockout.MaxAttempts,
			Duration:    cfg.Lockout.Duration(),
		}),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled || b.auditSink != nil,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}
	e.registry = registry.New(store, backend, registry.WithPruneHook(func(account int64, pruned int) {
		e.metricAdd(MetricSessionPruned, uint64(pruned))
		logger.Debug("pruned stale sessions", "account", account, "pruned", pruned)
	}))

	var limiter *rate.Limiter
	if cfg.Maintenance.BatchesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Maintenance.BatchesPerSecond), 1)
	}

	sessionDeps := flows.SessionDeps{
		MaxPerAccount: cfg.Session.MaxPerAccount,
		Registry:      e.registry,
		Backend:       backend,
		NewUUID:       uuid.NewString,
		MetricInc:     func(id int) { e.metricInc(MetricID(id)) },
		MetricAdd:     func(id int, n uint64) { e.metricAdd(MetricID(id), n) },
		MetricObserve: func(id int, d time.Duration) { e.metricObserve(MetricID(id), d) },
		Info:          logger.Info,
		Metrics: flows.SessionMetrics{
			SessionAdded:   int(MetricSessionAdded),
			SessionRevoked: int(MetricSessionRevoked),
			SessionEvicted: int(MetricSessionEvicted),
			RevokeAll:      int(MetricRevokeAll),
			AddLatency:     int(MetricAddSessionLatency),
			WipeBatch:      int(MetricWipeBatch),
			WipedSessions:  int(MetricWipedSessions),
		},
		Errors: flows.SessionErrors{EngineNotReady: ErrEngineNotReady},
	}

	e.flows = flows.New(flows.Deps{
		Lockout: flows.LockoutDeps{
			ClientIPFromContext: ClientIPFromContext,
			RecordFailure:       e.lockout.RecordFailure,
			Clear:               e.lockout.Clear,
			Reset:               e.lockout.Reset,
			MetricInc:           func(id int) { e.metricInc(MetricID(id)) },
			EmitAudit:           e.emitAudit,
			Warn:                logger.Warn,
			Metrics: flows.LockoutMetrics{
				FailedAttempt:  int(MetricFailedAttempt),
				AccountLocked:  int(MetricAccountLocked),
				LockedRejected: int(MetricLockedRejected),
				LockoutReset:   int(MetricLockoutReset),
			},
			Events: flows.LockoutEvents{AccountLocked: AuditEventAccountLocked},
			Errors: flows.LockoutErrors{
				EngineNotReady: ErrEngineNotReady,
				AccountLocked:  ErrAccountLocked,
			},
		},
		Sessions: sessionDeps,
		Wipe: flows.WipeDeps{
			BatchSize: cfg.Maintenance.BatchSize,
			Limiter:   limiter,
			Accounts:  index,
		},
	})

	b.built = true
	return e, nil
}
