package sqlx_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	libsqlx "github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	storage "progresskit/adapters/sqlx"
	"progresskit/core"
)

func newMockStore(t *testing.T) (*storage.Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	xdb := storage.NewWithDB(libsqlx.NewDb(db, "postgres"), storage.DriverPostgres)
	cleanup := func() {
		_ = db.Close()
	}
	return xdb, mock, cleanup
}

func TestSQLMock_LoadProgress_NoRow(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()
	learner := core.LearnerID("alice")

	mock.ExpectQuery(`SELECT snapshot FROM learner_progress`).
		WithArgs(learner).
		WillReturnError(sql.ErrNoRows)

	p, err := store.LoadProgress(ctx, learner)
	require.NoError(t, err)
	require.Equal(t, learner, p.Learner)
	require.Equal(t, int64(0), p.Ledger.TotalEarned)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_LoadProgress_Existing(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()
	learner := core.LearnerID("alice")

	want := core.NewProgress(learner)
	require.NoError(t, want.Ledger.Credit(120))
	raw, err := json.Marshal(want)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT snapshot FROM learner_progress`).
		WithArgs(learner).
		WillReturnRows(sqlmock.NewRows([]string{"snapshot"}).AddRow(raw))

	p, err := store.LoadProgress(ctx, learner)
	require.NoError(t, err)
	require.Equal(t, int64(120), p.Ledger.TotalEarned)
	require.Equal(t, int64(120), p.Ledger.Available())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_SaveProgress_Insert(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()
	p := core.NewProgress("alice")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(p.Learner).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO learner_progress`).
		WithArgs(p.Learner, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SaveProgress(ctx, p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_SaveProgress_Update(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()
	p := core.NewProgress("alice")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(p.Learner).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`UPDATE learner_progress`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), p.Learner).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SaveProgress(ctx, p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AppendTransaction(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()
	tx := core.NewTransaction("alice", core.TxQuizCompletion, time.Now())
	tx.PointsEarned = core.Int64Ptr(10)

	mock.ExpectExec(`INSERT INTO ledger_transactions`).
		WithArgs(tx.ID, tx.Learner, tx.Type, tx.Status, tx.Amount,
			sqlmock.AnyArg(), tx.PointsEarned, tx.PointsUsed, tx.DiscountAmount, tx.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.AppendTransaction(ctx, tx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_Transactions(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()
	learner := core.LearnerID("alice")
	now := time.Now().UTC().Truncate(time.Second)

	cols := []string{"id", "learner_id", "tx_type", "status", "amount",
		"payment_method", "points_earned", "points_used", "discount_amount", "created_at"}
	rows := sqlmock.NewRows(cols).
		AddRow("t1", learner, core.TxQuizCompletion, core.StatusCompleted, 0.0, nil, int64(10), nil, nil, now).
		AddRow("t2", learner, core.TxCourseDiscount, core.StatusCompleted, 90.0, "points", nil, int64(1000), 10.0, now.Add(time.Minute))

	mock.ExpectQuery(`SELECT id, learner_id, tx_type`).
		WithArgs(learner).
		WillReturnRows(rows)

	txs, err := store.Transactions(ctx, learner)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	require.Equal(t, core.TxQuizCompletion, txs[0].Type)
	require.Equal(t, int64(10), *txs[0].PointsEarned)
	require.Equal(t, core.PayPoints, txs[1].PaymentMethod)
	require.Equal(t, int64(1000), *txs[1].PointsUsed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDefaultConfig(t *testing.T) {
	cfg := storage.DefaultConfig(storage.DriverMySQL)
	require.Equal(t, storage.DriverMySQL, cfg.Driver)
	require.Equal(t, 10, cfg.MaxOpenConns)
	require.NotZero(t, cfg.ConnMaxLifetime)
}
