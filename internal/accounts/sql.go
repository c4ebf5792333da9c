package accounts

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// SQLConfig names the accounts table and its columns.
type SQLConfig struct {
	Table          string
	IDColumn       string
	JoinDateColumn string
}

func (c SQLConfig) withDefaults() SQLConfig {
	if c.Table == "" {
		c.Table = "users"
	}
	if c.IDColumn == "" {
		c.IDColumn = "uid"
	}
	if c.JoinDateColumn == "" {
		c.JoinDateColumn = "joindate"
	}
	return c
}

// SQLIndex reads the account order from a SQL table using keyset
// pagination on (joindate, uid).
type SQLIndex struct {
	db  *sql.DB
	cfg SQLConfig
}

// NewSQLIndex creates a SQL-backed index.
func NewSQLIndex(db *sql.DB, cfg SQLConfig) *SQLIndex {
	return &SQLIndex{db: db, cfg: cfg.withDefaults()}
}

type cursor struct {
	joined int64
	id     int64
	set    bool
}

// EachBatch implements [Batcher].
func (s *SQLIndex) EachBatch(ctx context.Context, size int, fn func(ctx context.Context, accounts []int64) error) error {
	if size <= 0 {
		size = DefaultBatchSize
	}

	var after cursor
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ids, last, err := s.page(ctx, after, size)
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			if err := fn(ctx, ids); err != nil {
				return err
			}
		}
		if len(ids) < size {
			return nil
		}
		after = last
	}
}

func (s *SQLIndex) page(ctx context.Context, after cursor, size int) ([]int64, cursor, error) {
	// Accounts without a join date sort first instead of dropping out of
	// the row comparison.
	joined := "COALESCE(" + s.cfg.JoinDateColumn + ", 0)"
	qb := psq.Select(joined, s.cfg.IDColumn).
		From(s.cfg.Table).
		Where(sq.Gt{s.cfg.IDColumn: 0}).
		OrderBy(joined+" ASC", s.cfg.IDColumn+" ASC").
		Limit(uint64(size))
	if after.set {
		qb = qb.Where(sq.Expr("("+joined+", "+s.cfg.IDColumn+") > (?, ?)", after.joined, after.id))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, cursor{}, fmt.Errorf("building accounts query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cursor{}, fmt.Errorf("querying accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make([]int64, 0, size)
	var last cursor
	for rows.Next() {
		if err := rows.Scan(&last.joined, &last.id); err != nil {
			return nil, cursor{}, fmt.Errorf("scanning account: %w", err)
		}
		last.set = true
		ids = append(ids, last.id)
	}
	if err := rows.Err(); err != nil {
		return nil, cursor{}, fmt.Errorf("iterating accounts: %w", err)
	}
	return ids, last, nil
}
