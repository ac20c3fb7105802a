// Package repo 实现采购单数据访问层。
package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/MorseWayne/shop_ledger/internal/domain"
)

// PurchaseRepository 定义采购单数据访问接口。
type PurchaseRepository interface {
	// Create 写入采购单头和全部明细行。
	Create(ctx context.Context, q Querier, purchase *domain.Purchase) error

	// GetByID 按租户读取采购单（含明细），不存在时返回 (nil, nil)。
	GetByID(ctx context.Context, ownerID, id int64) (*domain.Purchase, error)

	// UpdateStatus 条件更新采购单状态，WHERE 限定当前状态。
	// 并发收货/取消时只有一个事务能完成迁移，其余返回 domain.ErrInvalidStateTransition。
	// 迁移到 received 时同时落 received_at。
	UpdateStatus(ctx context.Context, q Querier, ownerID, id int64, from, to domain.PurchaseStatus, receivedAt *time.Time) error

	// List 分页查询采购单（仅单头），支持按状态和供应商过滤。
	List(ctx context.Context, ownerID int64, req *domain.PurchaseListRequest) ([]*domain.Purchase, int64, error)
}

type purchaseRepo struct {
	db *sql.DB
}

// NewPurchaseRepository 创建采购单仓储实例。
func NewPurchaseRepository(db *sql.DB) PurchaseRepository {
	return &purchaseRepo{db: db}
}

func (r *purchaseRepo) Create(ctx context.Context, q Querier, purchase *domain.Purchase) error {
	header := `
		INSERT INTO purchases (owner_id, purchase_number, supplier_id, total_amount, payment_method, status, order_date, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := q.ExecContext(ctx, header,
		purchase.OwnerID,
		purchase.PurchaseNumber,
		purchase.SupplierID,
		purchase.TotalAmount,
		purchase.PaymentMethod,
		string(purchase.Status),
		purchase.OrderDate,
		purchase.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("create purchase: %w", mapDuplicateKey(err))
	}

	purchaseID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	purchase.ID = purchaseID

	item := `
		INSERT INTO purchase_items (purchase_id, product_id, quantity, unit_cost, total_cost)
		VALUES (?, ?, ?, ?, ?)
	`
	for _, it := range purchase.Items {
		it.PurchaseID = purchaseID
		res, err := q.ExecContext(ctx, item, purchaseID, it.ProductID, it.Quantity, it.UnitCost, it.TotalCost)
		if err != nil {
			return fmt.Errorf("create purchase item: %w", err)
		}
		itemID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("get last insert id: %w", err)
		}
		it.ID = itemID
	}

	return nil
}

func (r *purchaseRepo) GetByID(ctx context.Context, ownerID, id int64) (*domain.Purchase, error) {
	query := `
		SELECT id, owner_id, purchase_number, supplier_id, total_amount, payment_method, status, order_date, received_at, created_by, created_at, updated_at
		FROM purchases
		WHERE id = ? AND owner_id = ?
	`

	p := &domain.Purchase{}
	err := r.db.QueryRowContext(ctx, query, id, ownerID).Scan(
		&p.ID,
		&p.OwnerID,
		&p.PurchaseNumber,
		&p.SupplierID,
		&p.TotalAmount,
		&p.PaymentMethod,
		&p.Status,
		&p.OrderDate,
		&p.ReceivedAt,
		&p.CreatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}

	items, err := r.loadItems(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Items = items
	return p, nil
}

func (r *purchaseRepo) loadItems(ctx context.Context, purchaseID int64) ([]*domain.PurchaseItem, error) {
	query := `
		SELECT id, purchase_id, product_id, quantity, unit_cost, total_cost
		FROM purchase_items
		WHERE purchase_id = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("query purchase items: %w", err)
	}
	defer rows.Close()

	var items []*domain.PurchaseItem
	for rows.Next() {
		it := &domain.PurchaseItem{}
		if err := rows.Scan(&it.ID, &it.PurchaseID, &it.ProductID, &it.Quantity, &it.UnitCost, &it.TotalCost); err != nil {
			return nil, fmt.Errorf("scan purchase item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase items: %w", err)
	}
	return items, nil
}

func (r *purchaseRepo) UpdateStatus(ctx context.Context, q Querier, ownerID, id int64, from, to domain.PurchaseStatus, receivedAt *time.Time) error {
	query := `
		UPDATE purchases
		SET status = ?, received_at = ?
		WHERE id = ? AND owner_id = ? AND status = ?
	`

	result, err := q.ExecContext(ctx, query, string(to), receivedAt, id, ownerID, string(from))
	if err != nil {
		return fmt.Errorf("update purchase status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: purchase %d is not %s", domain.ErrInvalidStateTransition, id, from)
	}
	return nil
}

func (r *purchaseRepo) List(ctx context.Context, ownerID int64, req *domain.PurchaseListRequest) ([]*domain.Purchase, int64, error) {
	conditions := []string{"owner_id = ?"}
	args := []any{ownerID}

	if req.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*req.Status))
	}
	if req.SupplierID != nil {
		conditions = append(conditions, "supplier_id = ?")
		args = append(args, *req.SupplierID)
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM purchases WHERE %s`, where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count purchases: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, owner_id, purchase_number, supplier_id, total_amount, payment_method, status, order_date, received_at, created_by, created_at, updated_at
		FROM purchases
		WHERE %s
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`, where)
	args = append(args, req.PageSize, (req.Page-1)*req.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*domain.Purchase
	for rows.Next() {
		p := &domain.Purchase{}
		err := rows.Scan(
			&p.ID,
			&p.OwnerID,
			&p.PurchaseNumber,
			&p.SupplierID,
			&p.TotalAmount,
			&p.PaymentMethod,
			&p.Status,
			&p.OrderDate,
			&p.ReceivedAt,
			&p.CreatedBy,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate purchases: %w", err)
	}

	return purchases, total, nil
}
