// Package repo 实现库存台账数据访问层。
package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MorseWayne/shop_ledger/internal/domain"
)

// StockRepository 定义库存台账数据访问接口。
// 台账行只能通过 ApplyMovement 变更；任何直接 UPDATE current_stock
// 的路径都是违规的。
type StockRepository interface {
	// Create 创建台账行，随商品创建在同一事务内调用。
	Create(ctx context.Context, q Querier, record *domain.StockRecord) error

	// GetByProductID 读取台账行，不存在时返回 (nil, nil)。
	GetByProductID(ctx context.Context, productID int64) (*domain.StockRecord, error)

	// GetByProductIDForOwner 按租户校验后读取台账行（经 products 关联过滤）。
	GetByProductIDForOwner(ctx context.Context, ownerID, productID int64) (*domain.StockRecord, error)

	// ApplyMovement 原子地应用一次库存变动：
	// 条件更新 current_stock（带非负下限）+ 追加变动记录，二者共用 q。
	// 下限触发时返回 *domain.InsufficientStockError，台账行缺失时返回
	// domain.ErrStockRecordNotFound；两种情况都不会留下半程修改。
	ApplyMovement(ctx context.Context, q Querier, m *domain.StockMovement) error

	// ListMovements 按商品分页读取变动历史，插入顺序即审计顺序。
	ListMovements(ctx context.Context, ownerID int64, req *domain.MovementListRequest) ([]*domain.StockMovement, int64, error)

	// ListLowStock 返回现存量不高于最低水位的台账行及其商品信息。
	ListLowStock(ctx context.Context, ownerID int64) ([]*domain.LowStockAlert, error)
}

type stockRepo struct {
	db *sql.DB
}

// NewStockRepository 创建库存台账仓储实例。
func NewStockRepository(db *sql.DB) StockRepository {
	return &stockRepo{db: db}
}

func (r *stockRepo) Create(ctx context.Context, q Querier, record *domain.StockRecord) error {
	query := `
		INSERT INTO stock_records (product_id, current_stock)
		VALUES (?, ?)
	`

	result, err := q.ExecContext(ctx, query, record.ProductID, record.CurrentStock)
	if err != nil {
		return fmt.Errorf("create stock record: %w", mapDuplicateKey(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

func (r *stockRepo) GetByProductID(ctx context.Context, productID int64) (*domain.StockRecord, error) {
	query := `
		SELECT id, product_id, current_stock, version, created_at, updated_at
		FROM stock_records
		WHERE product_id = ?
	`
	return r.scanRecord(r.db.QueryRowContext(ctx, query, productID))
}

func (r *stockRepo) GetByProductIDForOwner(ctx context.Context, ownerID, productID int64) (*domain.StockRecord, error) {
	query := `
		SELECT s.id, s.product_id, s.current_stock, s.version, s.created_at, s.updated_at
		FROM stock_records s
		JOIN products p ON p.id = s.product_id
		WHERE s.product_id = ? AND p.owner_id = ?
	`
	return r.scanRecord(r.db.QueryRowContext(ctx, query, productID, ownerID))
}

func (r *stockRepo) scanRecord(row *sql.Row) (*domain.StockRecord, error) {
	record := &domain.StockRecord{}
	err := row.Scan(
		&record.ID,
		&record.ProductID,
		&record.CurrentStock,
		&record.Version,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stock record: %w", err)
	}
	return record, nil
}

// ApplyMovement 的更新语句把"找到台账行、应用增量、检查下限"合并为
// 单条条件 UPDATE：WHERE 中的 current_stock + delta >= 0 让存储引擎在
// 行锁内完成下限判断，并发扣减不会出现丢失更新或超卖。
// 先读后写的朴素实现在两个并发销售之间存在竞态，这里不允许。
func (r *stockRepo) ApplyMovement(ctx context.Context, q Querier, m *domain.StockMovement) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("%w: movement type %q quantity %d", err, m.MovementType, m.Quantity)
	}

	delta := m.Delta()

	update := `
		UPDATE stock_records
		SET current_stock = current_stock + ?, version = version + 1
		WHERE product_id = ? AND current_stock + ? >= 0
	`

	result, err := q.ExecContext(ctx, update, delta, m.ProductID, delta)
	if err != nil {
		return fmt.Errorf("apply stock movement: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}

	if affected == 0 {
		// 区分"行不存在"（数据完整性问题）和"下限拒绝"（业务拒绝）。
		// FOR SHARE 让读到的 available 是行锁保护下的已提交值，
		// 错误里携带的数字不会被并发写入跑在前面。
		var available int
		err := q.QueryRowContext(ctx,
			`SELECT current_stock FROM stock_records WHERE product_id = ? FOR SHARE`, m.ProductID,
		).Scan(&available)
		if err == sql.ErrNoRows {
			return domain.ErrStockRecordNotFound
		}
		if err != nil {
			return fmt.Errorf("inspect stock record: %w", err)
		}
		return &domain.InsufficientStockError{
			ProductID: m.ProductID,
			Available: available,
			Requested: m.Quantity,
		}
	}

	insert := `
		INSERT INTO stock_movements
			(product_id, movement_type, quantity, source_document_id, source_model, moved_by, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := q.ExecContext(ctx, insert,
		m.ProductID,
		string(m.MovementType),
		m.Quantity,
		m.SourceDocID,
		m.SourceModel,
		m.MovedBy,
		m.Note,
	)
	if err != nil {
		return fmt.Errorf("append stock movement: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	m.ID = id
	return nil
}

func (r *stockRepo) ListMovements(ctx context.Context, ownerID int64, req *domain.MovementListRequest) ([]*domain.StockMovement, int64, error) {
	countQuery := `
		SELECT COUNT(*)
		FROM stock_movements m
		JOIN products p ON p.id = m.product_id
		WHERE m.product_id = ? AND p.owner_id = ?
	`

	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, req.ProductID, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count stock movements: %w", err)
	}

	limit := req.PageSize
	offset := (req.Page - 1) * req.PageSize

	query := `
		SELECT m.id, m.product_id, m.movement_type, m.quantity,
			m.source_document_id, m.source_model, m.moved_by, m.note, m.created_at
		FROM stock_movements m
		JOIN products p ON p.id = m.product_id
		WHERE m.product_id = ? AND p.owner_id = ?
		ORDER BY m.id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, req.ProductID, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query stock movements: %w", err)
	}
	defer rows.Close()

	var movements []*domain.StockMovement
	for rows.Next() {
		m := &domain.StockMovement{}
		err := rows.Scan(
			&m.ID,
			&m.ProductID,
			&m.MovementType,
			&m.Quantity,
			&m.SourceDocID,
			&m.SourceModel,
			&m.MovedBy,
			&m.Note,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan stock movement: %w", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate stock movements: %w", err)
	}

	return movements, total, nil
}

func (r *stockRepo) ListLowStock(ctx context.Context, ownerID int64) ([]*domain.LowStockAlert, error) {
	query := `
		SELECT p.id, p.name, p.sku, s.current_stock, p.min_stock_level
		FROM stock_records s
		JOIN products p ON p.id = s.product_id
		WHERE p.owner_id = ? AND p.is_active = TRUE AND s.current_stock <= p.min_stock_level
		ORDER BY s.current_stock ASC
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query low stock records: %w", err)
	}
	defer rows.Close()

	var alerts []*domain.LowStockAlert
	for rows.Next() {
		a := &domain.LowStockAlert{}
		err := rows.Scan(&a.ProductID, &a.ProductName, &a.ProductSKU, &a.CurrentStock, &a.MinStockLevel)
		if err != nil {
			return nil, fmt.Errorf("scan low stock alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate low stock alerts: %w", err)
	}

	return alerts, nil
}
