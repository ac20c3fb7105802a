package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/MorseWayne/shop_ledger/internal/domain"
)

func newTxRunnerMock(t *testing.T) (TxRunner, StockRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewTxRunner(db), NewStockRepository(db), mock
}

// 单据已写入后台账拒绝扣减：整个事务回滚，向上抛出原始的库存不足错误。
func TestTxRunner_RollbackOnLateStockFailure(t *testing.T) {
	runner, stockRepo, mock := newTxRunnerMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sales").
		WithArgs(int64(1), "INV-000001").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec("UPDATE stock_records").
		WithArgs(-5, int64(3), -5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT current_stock FROM stock_records .+ FOR SHARE").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"current_stock"}).AddRow(2))
	mock.ExpectRollback()

	err := runner.WithinTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(context.Background(),
			"INSERT INTO sales (owner_id, invoice_number) VALUES (?, ?)", int64(1), "INV-000001",
		); err != nil {
			return err
		}
		return stockRepo.ApplyMovement(context.Background(), tx, &domain.StockMovement{
			ProductID:    3,
			MovementType: domain.MovementTypeSale,
			Quantity:     5,
			MovedBy:      7,
		})
	})

	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, 2, insufficient.Available)
	require.Equal(t, 5, insufficient.Requested)
}

func TestTxRunner_CommitOnSuccess(t *testing.T) {
	runner, stockRepo, mock := newTxRunnerMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE stock_records").
		WithArgs(-5, int64(3), -5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO stock_movements").
		WithArgs(int64(3), "sale", 5, nil, nil, int64(7), "").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	m := &domain.StockMovement{
		ProductID:    3,
		MovementType: domain.MovementTypeSale,
		Quantity:     5,
		MovedBy:      7,
	}
	err := runner.WithinTx(context.Background(), func(tx *sql.Tx) error {
		return stockRepo.ApplyMovement(context.Background(), tx, m)
	})

	require.NoError(t, err)
	require.Equal(t, int64(42), m.ID)
}

func TestTxRunner_BeginError(t *testing.T) {
	runner, _, mock := newTxRunnerMock(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := runner.WithinTx(context.Background(), func(tx *sql.Tx) error {
		t.Fatal("fn must not run when begin fails")
		return nil
	})
	require.ErrorContains(t, err, "begin transaction")
}
