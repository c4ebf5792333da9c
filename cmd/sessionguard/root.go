package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrEthical07/sessionguard"
	"github.com/MrEthical07/sessionguard/internal/accounts"
	auditpg "github.com/MrEthical07/sessionguard/internal/audit/postgres"
	"github.com/MrEthical07/sessionguard/internal/logging"
	"github.com/alicebob/miniredis/v2"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// app carries the global flags and the factories commands open resources with.
type app struct {
	configPath  string
	redisAddr   string
	memory      bool
	accountsDSN string
	auditDSN    string
	logLevel    string
	logFormat   string

	newRedis func(addr string, memory bool) (redis.UniversalClient, func(), error)
	openDB   func(dsn string) (*sql.DB, error)
}

func newApp() *app {
	return &app{
		newRedis: dialRedis,
		openDB: func(dsn string) (*sql.DB, error) {
			return sql.Open("postgres", dsn)
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "sessionguard",
		Short:         "Administer account lockouts and login sessions",
		Long:          `sessionguard inspects and revokes per-account login sessions and failed-login lockouts stored in Redis.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file")
	flags.StringVar(&a.redisAddr, "redis-addr", "localhost:6379", "Redis address")
	flags.BoolVar(&a.memory, "memory", false, "use an in-process Redis (for demos)")
	flags.StringVar(&a.accountsDSN, "accounts-dsn", "", "PostgreSQL DSN of the users table used to enumerate accounts")
	flags.StringVar(&a.auditDSN, "audit-dsn", "", "PostgreSQL DSN for persisted audit events")
	flags.StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "text", "log format (text, json)")

	root.AddCommand(
		newSessionsCmd(a),
		newLockoutCmd(a),
		newAuditCmd(a),
		newServeCmd(a),
	)
	return root
}

func dialRedis(addr string, memory bool) (redis.UniversalClient, func(), error) {
	if memory {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("starting miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}
	if addr == "" {
		return nil, nil, errors.New("redis address required")
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	return client, func() { _ = client.Close() }, nil
}

func (a *app) logger() (*slog.Logger, error) {
	level, err := logging.ParseLevel(a.logLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(level, a.logFormat)
}

// env is an opened engine plus everything that must be released with it.
type env struct {
	engine  *sessionguard.Engine
	redis   redis.UniversalClient
	logger  *slog.Logger
	closers []func()
}

func (e *env) Close() {
	if e.engine != nil {
		e.engine.Close()
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

func (a *app) open(ctx context.Context) (*env, error) {
	logger, err := a.logger()
	if err != nil {
		return nil, err
	}
	cfg, err := sessionguard.LoadConfig(a.configPath)
	if err != nil {
		return nil, err
	}

	client, closeRedis, err := a.newRedis(a.redisAddr, a.memory)
	if err != nil {
		return nil, err
	}
	out := &env{redis: client, logger: logger, closers: []func(){closeRedis}}

	builder := sessionguard.New().
		WithConfig(cfg).
		WithRedis(client).
		WithLogger(logger)

	if a.accountsDSN != "" {
		db, err := a.openDB(a.accountsDSN)
		if err != nil {
			out.Close()
			return nil, fmt.Errorf("opening accounts database: %w", err)
		}
		out.closers = append(out.closers, func() { _ = db.Close() })
		builder.WithAccountIndex(accounts.NewSQLIndex(db, accounts.SQLConfig{}))
	}

	if cfg.Audit.Enabled {
		if a.auditDSN != "" {
			db, err := a.openDB(a.auditDSN)
			if err != nil {
				out.Close()
				return nil, fmt.Errorf("opening audit database: %w", err)
			}
			out.closers = append(out.closers, func() { _ = db.Close() })
			builder.WithAuditSink(auditpg.New(db, auditpg.Config{Logger: logger}))
		} else {
			builder.WithAuditSink(sessionguard.NewSlogSink(logger))
		}
	}

	engine, err := builder.Build()
	if err != nil {
		out.Close()
		return nil, err
	}
	out.engine = engine

	if _, err := engine.Ping(ctx); err != nil {
		out.Close()
		return nil, err
	}
	return out, nil
}
