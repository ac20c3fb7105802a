// Package repo 实现供应商数据访问层。
package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/MorseWayne/shop_ledger/internal/domain"
)

// SupplierRepository 定义供应商数据访问接口，按租户隔离。
type SupplierRepository interface {
	// Create 创建供应商，邮箱/电话在租户内冲突时返回 domain.ErrDuplicateKey。
	Create(ctx context.Context, supplier *domain.Supplier) error

	// GetByID 按租户读取供应商，不存在时返回 (nil, nil)。
	GetByID(ctx context.Context, ownerID, id int64) (*domain.Supplier, error)

	// Update 更新供应商字段。
	Update(ctx context.Context, supplier *domain.Supplier) error

	// List 分页查询供应商。
	List(ctx context.Context, ownerID int64, req *domain.SupplierListRequest) ([]*domain.Supplier, int64, error)
}

type supplierRepo struct {
	db *sql.DB
}

// NewSupplierRepository 创建供应商仓储实例。
func NewSupplierRepository(db *sql.DB) SupplierRepository {
	return &supplierRepo{db: db}
}

const supplierColumns = `id, owner_id, name, email, phone, address, is_active, created_at, updated_at`

func (r *supplierRepo) Create(ctx context.Context, supplier *domain.Supplier) error {
	query := `
		INSERT INTO suppliers (owner_id, name, email, phone, address, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		supplier.OwnerID,
		supplier.Name,
		supplier.Email,
		supplier.Phone,
		supplier.Address,
		supplier.IsActive,
	)
	if err != nil {
		return fmt.Errorf("create supplier: %w", mapDuplicateKey(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	supplier.ID = id
	return nil
}

func (r *supplierRepo) GetByID(ctx context.Context, ownerID, id int64) (*domain.Supplier, error) {
	query := fmt.Sprintf(`SELECT %s FROM suppliers WHERE id = ? AND owner_id = ?`, supplierColumns)

	s := &domain.Supplier{}
	err := r.db.QueryRowContext(ctx, query, id, ownerID).Scan(
		&s.ID,
		&s.OwnerID,
		&s.Name,
		&s.Email,
		&s.Phone,
		&s.Address,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return s, nil
}

func (r *supplierRepo) Update(ctx context.Context, supplier *domain.Supplier) error {
	query := `
		UPDATE suppliers
		SET name = ?, email = ?, phone = ?, address = ?, is_active = ?
		WHERE id = ? AND owner_id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		supplier.Name,
		supplier.Email,
		supplier.Phone,
		supplier.Address,
		supplier.IsActive,
		supplier.ID,
		supplier.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("update supplier: %w", mapDuplicateKey(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *supplierRepo) List(ctx context.Context, ownerID int64, req *domain.SupplierListRequest) ([]*domain.Supplier, int64, error) {
	conditions := []string{"owner_id = ?"}
	args := []any{ownerID}

	if req.IsActive != nil {
		conditions = append(conditions, "is_active = ?")
		args = append(args, *req.IsActive)
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM suppliers WHERE %s`, where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count suppliers: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM suppliers WHERE %s ORDER BY id DESC LIMIT ? OFFSET ?`, supplierColumns, where)
	args = append(args, req.PageSize, (req.Page-1)*req.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []*domain.Supplier
	for rows.Next() {
		s := &domain.Supplier{}
		err := rows.Scan(
			&s.ID,
			&s.OwnerID,
			&s.Name,
			&s.Email,
			&s.Phone,
			&s.Address,
			&s.IsActive,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan supplier: %w", err)
		}
		suppliers = append(suppliers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate suppliers: %w", err)
	}

	return suppliers, total, nil
}
