// Package repo 实现商品数据访问层。
package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/MorseWayne/shop_ledger/internal/domain"
)

// ProductRepository 定义商品数据访问接口，所有读写都按租户（owner_id）隔离。
type ProductRepository interface {
	// Create 创建商品，SKU 在租户内冲突时返回 domain.ErrDuplicateKey。
	Create(ctx context.Context, q Querier, product *domain.Product) error

	// GetByID 按租户读取商品，不存在时返回 (nil, nil)。
	GetByID(ctx context.Context, ownerID, id int64) (*domain.Product, error)

	// GetBySKU 按租户和 SKU 读取商品，不存在时返回 (nil, nil)。
	GetBySKU(ctx context.Context, ownerID int64, sku string) (*domain.Product, error)

	// Update 更新商品字段（SKU 不可变更）。
	Update(ctx context.Context, product *domain.Product) error

	// List 分页查询商品，支持按启用状态和关键字过滤。
	List(ctx context.Context, ownerID int64, req *domain.ProductListRequest) ([]*domain.Product, int64, error)
}

type productRepo struct {
	db *sql.DB
}

// NewProductRepository 创建商品仓储实例。
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepo{db: db}
}

const productColumns = `id, owner_id, name, sku, unit, purchase_price, selling_price, min_stock_level, is_active, created_at, updated_at`

func (r *productRepo) Create(ctx context.Context, q Querier, product *domain.Product) error {
	query := `
		INSERT INTO products (owner_id, name, sku, unit, purchase_price, selling_price, min_stock_level, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := q.ExecContext(ctx, query,
		product.OwnerID,
		product.Name,
		product.SKU,
		product.Unit,
		product.PurchasePrice,
		product.SellingPrice,
		product.MinStockLevel,
		product.IsActive,
	)
	if err != nil {
		return fmt.Errorf("create product: %w", mapDuplicateKey(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	product.ID = id
	return nil
}

func (r *productRepo) GetByID(ctx context.Context, ownerID, id int64) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = ? AND owner_id = ?`, productColumns)
	return r.scanProduct(r.db.QueryRowContext(ctx, query, id, ownerID))
}

func (r *productRepo) GetBySKU(ctx context.Context, ownerID int64, sku string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE sku = ? AND owner_id = ?`, productColumns)
	return r.scanProduct(r.db.QueryRowContext(ctx, query, sku, ownerID))
}

func (r *productRepo) scanProduct(row *sql.Row) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Name,
		&p.SKU,
		&p.Unit,
		&p.PurchasePrice,
		&p.SellingPrice,
		&p.MinStockLevel,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *productRepo) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = ?, unit = ?, purchase_price = ?, selling_price = ?, min_stock_level = ?, is_active = ?
		WHERE id = ? AND owner_id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		product.Name,
		product.Unit,
		product.PurchasePrice,
		product.SellingPrice,
		product.MinStockLevel,
		product.IsActive,
		product.ID,
		product.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
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

func (r *productRepo) List(ctx context.Context, ownerID int64, req *domain.ProductListRequest) ([]*domain.Product, int64, error) {
	conditions := []string{"owner_id = ?"}
	args := []any{ownerID}

	if req.IsActive != nil {
		conditions = append(conditions, "is_active = ?")
		args = append(args, *req.IsActive)
	}
	if req.Keyword != nil && *req.Keyword != "" {
		conditions = append(conditions, "(name LIKE ? OR sku LIKE ?)")
		pattern := "%" + *req.Keyword + "%"
		args = append(args, pattern, pattern)
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM products WHERE %s`, where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY id DESC LIMIT ? OFFSET ?`, productColumns, where)
	args = append(args, req.PageSize, (req.Page-1)*req.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p := &domain.Product{}
		err := rows.Scan(
			&p.ID,
			&p.OwnerID,
			&p.Name,
			&p.SKU,
			&p.Unit,
			&p.PurchasePrice,
			&p.SellingPrice,
			&p.MinStockLevel,
			&p.IsActive,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}

	return products, total, nil
}
