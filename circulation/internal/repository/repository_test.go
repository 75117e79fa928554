package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stub driver that records transaction outcomes, enough to exercise withinTx
// without a live database.

type txRecorder struct {
	committed  bool
	rolledBack bool
}

type stubConnector struct{ rec *txRecorder }

func (c *stubConnector) Connect(context.Context) (driver.Conn, error) {
	return &stubConn{rec: c.rec}, nil
}

func (c *stubConnector) Driver() driver.Driver { return stubDriver{} }

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return nil, errors.New("unused") }

type stubConn struct{ rec *txRecorder }

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("unused") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return &stubTx{rec: c.rec}, nil }

func (c *stubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return &stubTx{rec: c.rec}, nil
}

type stubTx struct{ rec *txRecorder }

func (t *stubTx) Commit() error   { t.rec.committed = true; return nil }
func (t *stubTx) Rollback() error { t.rec.rolledBack = true; return nil }

func newStubRepo(t *testing.T) (*repository, *txRecorder) {
	t.Helper()
	rec := &txRecorder{}
	db := sqlx.NewDb(sql.OpenDB(&stubConnector{rec: rec}), "pgx")
	r, err := NewRepository(db, zap.NewNop())
	require.NoError(t, err)
	return r, rec
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	t.Parallel()
	r, rec := newStubRepo(t)

	boom := errors.New("boom")
	err := r.withinTx(context.Background(), func(*sqlx.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.True(t, rec.rolledBack)
	require.False(t, rec.committed)
}

func TestWithinTx_RollbackOnPanic(t *testing.T) {
	t.Parallel()
	r, rec := newStubRepo(t)

	require.Panics(t, func() {
		_ = r.withinTx(context.Background(), func(*sqlx.Tx) error { panic("driver fault") })
	})
	require.True(t, rec.rolledBack)
	require.False(t, rec.committed)
}

func TestWithinTx_Commit(t *testing.T) {
	t.Parallel()
	r, rec := newStubRepo(t)

	require.NoError(t, r.withinTx(context.Background(), func(*sqlx.Tx) error { return nil }))
	require.True(t, rec.committed)
	require.False(t, rec.rolledBack)
}
