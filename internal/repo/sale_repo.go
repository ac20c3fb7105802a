// Package repo 实现销售单数据访问层。
package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/MorseWayne/shop_ledger/internal/domain"
)

// SaleRepository 定义销售单数据访问接口。
// 单头与明细在同一事务内写入，写入方法统一接收 Querier。
type SaleRepository interface {
	// Create 写入销售单头和全部明细行。
	Create(ctx context.Context, q Querier, sale *domain.Sale) error

	// GetByID 按租户读取销售单（含明细），不存在时返回 (nil, nil)。
	GetByID(ctx context.Context, ownerID, id int64) (*domain.Sale, error)

	// UpdateStatus 条件更新销售单状态，WHERE 限定当前状态，
	// 并发取消时只有一个事务能完成迁移，其余返回 domain.ErrInvalidStateTransition。
	UpdateStatus(ctx context.Context, q Querier, ownerID, id int64, from, to domain.SaleStatus) error

	// List 分页查询销售单（仅单头），支持按状态过滤。
	List(ctx context.Context, ownerID int64, req *domain.SaleListRequest) ([]*domain.Sale, int64, error)
}

type saleRepo struct {
	db *sql.DB
}

// NewSaleRepository 创建销售单仓储实例。
func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepo{db: db}
}

func (r *saleRepo) Create(ctx context.Context, q Querier, sale *domain.Sale) error {
	header := `
		INSERT INTO sales (owner_id, invoice_number, total_amount, payment_method, status, sale_date, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := q.ExecContext(ctx, header,
		sale.OwnerID,
		sale.InvoiceNumber,
		sale.TotalAmount,
		sale.PaymentMethod,
		string(sale.Status),
		sale.SaleDate,
		sale.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("create sale: %w", mapDuplicateKey(err))
	}

	saleID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	sale.ID = saleID

	item := `
		INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, total_price)
		VALUES (?, ?, ?, ?, ?)
	`
	for _, it := range sale.Items {
		it.SaleID = saleID
		res, err := q.ExecContext(ctx, item, saleID, it.ProductID, it.Quantity, it.UnitPrice, it.TotalPrice)
		if err != nil {
			return fmt.Errorf("create sale item: %w", err)
		}
		itemID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("get last insert id: %w", err)
		}
		it.ID = itemID
	}

	return nil
}

func (r *saleRepo) GetByID(ctx context.Context, ownerID, id int64) (*domain.Sale, error) {
	query := `
		SELECT id, owner_id, invoice_number, total_amount, payment_method, status, sale_date, created_by, created_at, updated_at
		FROM sales
		WHERE id = ? AND owner_id = ?
	`

	s := &domain.Sale{}
	err := r.db.QueryRowContext(ctx, query, id, ownerID).Scan(
		&s.ID,
		&s.OwnerID,
		&s.InvoiceNumber,
		&s.TotalAmount,
		&s.PaymentMethod,
		&s.Status,
		&s.SaleDate,
		&s.CreatedBy,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}

	items, err := r.loadItems(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Items = items
	return s, nil
}

func (r *saleRepo) loadItems(ctx context.Context, saleID int64) ([]*domain.SaleItem, error) {
	query := `
		SELECT id, sale_id, product_id, quantity, unit_price, total_price
		FROM sale_items
		WHERE sale_id = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, saleID)
	if err != nil {
		return nil, fmt.Errorf("query sale items: %w", err)
	}
	defer rows.Close()

	var items []*domain.SaleItem
	for rows.Next() {
		it := &domain.SaleItem{}
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sale items: %w", err)
	}
	return items, nil
}

func (r *saleRepo) UpdateStatus(ctx context.Context, q Querier, ownerID, id int64, from, to domain.SaleStatus) error {
	query := `
		UPDATE sales
		SET status = ?
		WHERE id = ? AND owner_id = ? AND status = ?
	`

	result, err := q.ExecContext(ctx, query, string(to), id, ownerID, string(from))
	if err != nil {
		return fmt.Errorf("update sale status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: sale %d is not %s", domain.ErrInvalidStateTransition, id, from)
	}
	return nil
}

func (r *saleRepo) List(ctx context.Context, ownerID int64, req *domain.SaleListRequest) ([]*domain.Sale, int64, error) {
	conditions := []string{"owner_id = ?"}
	args := []any{ownerID}

	if req.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*req.Status))
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM sales WHERE %s`, where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sales: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, owner_id, invoice_number, total_amount, payment_method, status, sale_date, created_by, created_at, updated_at
		FROM sales
		WHERE %s
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`, where)
	args = append(args, req.PageSize, (req.Page-1)*req.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	var sales []*domain.Sale
	for rows.Next() {
		s := &domain.Sale{}
		err := rows.Scan(
			&s.ID,
			&s.OwnerID,
			&s.InvoiceNumber,
			&s.TotalAmount,
			&s.PaymentMethod,
			&s.Status,
			&s.SaleDate,
			&s.CreatedBy,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate sales: %w", err)
	}

	return sales, total, nil
}
