// Package postgres provides PostgreSQL storage for governor audit events.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/MrEthical07/sessionguard/internal/audit"
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	defaultTable      = "audit_events"
	defaultQueryLimit = 100
)

var eventColumns = []string{"occurred_at", "event_type", "account", "ip", "metadata"}

// Config configures the PostgreSQL audit store.
type Config struct {
	Table  string
	Logger *slog.Logger
}

// Store persists audit events. It implements [audit.Sink]; write failures
// are logged and counted rather than returned, since the dispatcher has no
// caller to report them to.
type Store struct {
	db     *sql.DB
	table  string
	logger *slog.Logger
	failed atomic.Uint64
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB, cfg Config) *Store {
	if cfg.Table == "" {
		cfg.Table = defaultTable
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{db: db, table: cfg.Table, logger: cfg.Logger}
}

// Emit implements audit.Sink.
func (s *Store) Emit(ctx context.Context, event audit.Event) {
	if err := s.Insert(ctx, event); err != nil {
		s.failed.Add(1)
		s.logger.Error("audit insert failed", "type", event.Type, "account", event.Account, "err", err)
	}
}

// Failed returns how many events could not be written.
func (s *Store) Failed() uint64 {
	return s.failed.Load()
}

// Insert writes one event.
func (s *Store) Insert(ctx context.Context, event audit.Event) error {
	meta := []byte("{}")
	if len(event.Metadata) > 0 {
		if data, err := json.Marshal(event.Metadata); err == nil {
			meta = data
		}
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	query, args, err := psq.Insert(s.table).
		Columns(eventColumns...).
		Values(ts, event.Type, event.Account, event.IP, meta).
		ToSql()
	if err != nil {
		return fmt.Errorf("building audit insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}
	return nil
}

// QueryFilter narrows Query results. Zero values match everything.
type QueryFilter struct {
	Account int64
	Type    string
	Since   time.Time
	Limit   int
}

// Query returns matching events, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]audit.Event, error) {
	qb := psq.Select(eventColumns...).From(s.table)
	if filter.Account > 0 {
		qb = qb.Where(sq.Eq{"account": filter.Account})
	}
	if filter.Type != "" {
		qb = qb.Where(sq.Eq{"event_type": filter.Type})
	}
	if !filter.Since.IsZero() {
		qb = qb.Where(sq.GtOrEq{"occurred_at": filter.Since})
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	qb = qb.OrderBy("occurred_at DESC").Limit(uint64(limit))

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building audit query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []audit.Event
	for rows.Next() {
		var ev audit.Event
		var meta []byte
		if err := rows.Scan(&ev.Timestamp, &ev.Type, &ev.Account, &ev.IP, &meta); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &ev.Metadata); err != nil {
				return nil, fmt.Errorf("decoding audit metadata: %w", err)
			}
			if len(ev.Metadata) == 0 {
				ev.Metadata = nil
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit events: %w", err)
	}
	return events, nil
}
