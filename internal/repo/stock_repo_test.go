package repo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/MorseWayne/shop_ledger/internal/domain"
)

func newStockRepoMock(t *testing.T) (StockRepository, *sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewStockRepository(db), db, mock
}

func TestStockRepo_ApplyMovement_Sale(t *testing.T) {
	repo, db, mock := newStockRepoMock(t)

	docID := int64(11)
	srcModel := domain.SourceModelSale
	m := &domain.StockMovement{
		ProductID:    3,
		MovementType: domain.MovementTypeSale,
		Quantity:     5,
		SourceDocID:  &docID,
		SourceModel:  &srcModel,
		MovedBy:      7,
	}

	// 销售方向为负，条件更新带非负下限
	mock.ExpectExec("UPDATE stock_records").
		WithArgs(-5, int64(3), -5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO stock_movements").
		WithArgs(int64(3), "sale", 5, int64(11), "sales", int64(7), "").
		WillReturnResult(sqlmock.NewResult(42, 1))

	require.NoError(t, repo.ApplyMovement(context.Background(), db, m))
	require.Equal(t, int64(42), m.ID)
}

func TestStockRepo_ApplyMovement_InsufficientStock(t *testing.T) {
	repo, db, mock := newStockRepoMock(t)

	m := &domain.StockMovement{
		ProductID:    3,
		MovementType: domain.MovementTypeSale,
		Quantity:     5,
		MovedBy:      7,
	}

	// 条件更新一行未命中，随后探查现存量以区分失败原因
	mock.ExpectExec("UPDATE stock_records").
		WithArgs(-5, int64(3), -5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT current_stock FROM stock_records .+ FOR SHARE").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"current_stock"}).AddRow(2))

	applyErr := repo.ApplyMovement(context.Background(), db, m)
	require.ErrorIs(t, applyErr, domain.ErrInsufficientStock)

	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, applyErr, &insufficient)
	require.Equal(t, int64(3), insufficient.ProductID)
	require.Equal(t, 2, insufficient.Available)
	require.Equal(t, 5, insufficient.Requested)
}

func TestStockRepo_ApplyMovement_RecordMissing(t *testing.T) {
	repo, db, mock := newStockRepoMock(t)

	m := &domain.StockMovement{
		ProductID:    99,
		MovementType: domain.MovementTypePurchase,
		Quantity:     10,
		MovedBy:      7,
	}

	mock.ExpectExec("UPDATE stock_records").
		WithArgs(10, int64(99), 10).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT current_stock FROM stock_records .+ FOR SHARE").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"current_stock"}))

	require.ErrorIs(t, repo.ApplyMovement(context.Background(), db, m), domain.ErrStockRecordNotFound)
}

func TestStockRepo_ApplyMovement_InvalidMovement(t *testing.T) {
	repo, db, _ := newStockRepoMock(t)

	tests := []struct {
		name string
		m    *domain.StockMovement
	}{
		{"unknown type", &domain.StockMovement{ProductID: 1, MovementType: "theft", Quantity: 1}},
		{"zero adjustment", &domain.StockMovement{ProductID: 1, MovementType: domain.MovementTypeAdjustment, Quantity: 0}},
		{"negative sale quantity", &domain.StockMovement{ProductID: 1, MovementType: domain.MovementTypeSale, Quantity: -3}},
	}

	// 非法变动在发任何 SQL 之前就被拒绝，mock 上没有任何期望
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.ApplyMovement(context.Background(), db, tt.m)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestStockRepo_GetByProductID_NotFound(t *testing.T) {
	repo, _, mock := newStockRepoMock(t)

	mock.ExpectQuery("SELECT (.+) FROM stock_records").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "current_stock", "version", "created_at", "updated_at"}))

	record, err := repo.GetByProductID(context.Background(), 5)
	require.NoError(t, err)
	require.Nil(t, record)
}

func TestStockRepo_ListLowStock(t *testing.T) {
	repo, _, mock := newStockRepoMock(t)

	rows := sqlmock.NewRows([]string{"id", "name", "sku", "current_stock", "min_stock_level"}).
		AddRow(1, "Widget", "W-1", 2, 5).
		AddRow(4, "Gadget", "G-1", 0, 3)
	mock.ExpectQuery("SELECT (.+) FROM stock_records s").
		WithArgs(int64(1)).
		WillReturnRows(rows)

	alerts, err := repo.ListLowStock(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	require.Equal(t, "W-1", alerts[0].ProductSKU)
	require.Equal(t, 0, alerts[1].CurrentStock)
}

func TestStockRepo_ListMovements(t *testing.T) {
	repo, _, mock := newStockRepoMock(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(int64(3), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(25))

	rows := sqlmock.NewRows([]string{
		"id", "product_id", "movement_type", "quantity",
		"source_document_id", "source_model", "moved_by", "note", "created_at",
	}).AddRow(9, 3, "sale", 5, int64(11), "sales", 7, "", time.Now())
	mock.ExpectQuery("SELECT m.id, m.product_id").
		WithArgs(int64(3), int64(1), 20, 20).
		WillReturnRows(rows)

	movements, total, err := repo.ListMovements(context.Background(), 1, &domain.MovementListRequest{
		ProductID: 3,
		Page:      2,
		PageSize:  20,
	})
	require.NoError(t, err)
	require.Equal(t, int64(25), total)
	require.Len(t, movements, 1)
	require.Equal(t, domain.MovementTypeSale, movements[0].MovementType)
	require.NotNil(t, movements[0].SourceDocID)
	require.Equal(t, int64(11), *movements[0].SourceDocID)
}

func TestStockRepo_Create(t *testing.T) {
	repo, db, mock := newStockRepoMock(t)

	mock.ExpectExec("INSERT INTO stock_records").
		WithArgs(int64(3), 0).
		WillReturnResult(sqlmock.NewResult(8, 1))

	record := &domain.StockRecord{ProductID: 3}
	require.NoError(t, repo.Create(context.Background(), db, record))
	require.Equal(t, int64(8), record.ID)
}
