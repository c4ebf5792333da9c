package accounts

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLIndexDefaults(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	idx := NewSQLIndex(db, SQLConfig{})
	assert.Equal(t, "users", idx.cfg.Table)
	assert.Equal(t, "uid", idx.cfg.IDColumn)
	assert.Equal(t, "joindate", idx.cfg.JoinDateColumn)

	custom := NewSQLIndex(db, SQLConfig{Table: "accounts", IDColumn: "id", JoinDateColumn: "created_at"})
	assert.Equal(t, "accounts", custom.cfg.Table)
	assert.Equal(t, "id", custom.cfg.IDColumn)
	assert.Equal(t, "created_at", custom.cfg.JoinDateColumn)
}

func TestSQLIndexKeysetPagination(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	cols := []string{"joindate", "uid"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE uid > $1 ORDER BY COALESCE(joindate, 0) ASC, uid ASC LIMIT 2")).
		WithArgs(0).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(100, 1).AddRow(100, 2))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE uid > $1 AND (COALESCE(joindate, 0), uid) > ($2, $3)")).
		WithArgs(0, int64(100), int64(2)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(200, 3))

	var batches [][]int64
	err = NewSQLIndex(db, SQLConfig{}).EachBatch(context.Background(), 2, func(_ context.Context, ids []int64) error {
		batches = append(batches, ids)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{1, 2}, {3}}, batches)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLIndexEmptyTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"joindate", "uid"}))

	called := false
	err = NewSQLIndex(db, SQLConfig{}).EachBatch(context.Background(), 10, func(context.Context, []int64) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLIndexQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))

	err = NewSQLIndex(db, SQLConfig{}).EachBatch(context.Background(), 10, func(context.Context, []int64) error {
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying accounts")
}

func TestSQLIndexStopsOnCallbackError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"joindate", "uid"}).AddRow(1, 1).AddRow(2, 2))

	boom := errors.New("boom")
	err = NewSQLIndex(db, SQLConfig{}).EachBatch(context.Background(), 2, func(context.Context, []int64) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
