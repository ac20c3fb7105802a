// Package service 实现商品业务逻辑层。
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MorseWayne/shop_ledger/internal/domain"
	"github.com/MorseWayne/shop_ledger/internal/repo"
)

// 商品业务错误
var (
	ErrProductNotFound = errors.New("product not found")
	ErrSKUExists       = errors.New("sku already exists")
)

// ProductService 定义商品业务逻辑接口
type ProductService interface {
	// CreateProduct 创建商品并初始化台账。
	// InitialStock 大于零时在同一事务内落一条期初 adjustment 变动。
	CreateProduct(ctx context.Context, ownerID, userID int64, req *domain.CreateProductRequest) (*domain.ProductWithStock, error)

	// GetProduct 查询商品及其现存量
	GetProduct(ctx context.Context, ownerID, id int64) (*domain.ProductWithStock, error)

	// UpdateProduct 更新商品字段（SKU 不可变更）
	UpdateProduct(ctx context.Context, ownerID, id int64, req *domain.UpdateProductRequest) (*domain.Product, error)

	// ListProducts 分页查询商品
	ListProducts(ctx context.Context, ownerID int64, req *domain.ProductListRequest) (*domain.ProductListResponse, error)
}

// productService 实现ProductService接口
type productService struct {
	productRepo repo.ProductRepository
	stockRepo   repo.StockRepository
	tx          repo.TxRunner
	logger      *zap.Logger
}

// NewProductService 创建商品服务实例
func NewProductService(
	productRepo repo.ProductRepository,
	stockRepo repo.StockRepository,
	tx repo.TxRunner,
	logger *zap.Logger,
) ProductService {
	return &productService{
		productRepo: productRepo,
		stockRepo:   stockRepo,
		tx:          tx,
		logger:      logger,
	}
}

// CreateProduct 创建商品
// 业务规则：
// 1. SKU 在租户内唯一
// 2. 商品创建即隐式建立台账行，从第一天起现存量就有权威记录
// 3. 期初库存走正常的 adjustment 变动，不直接写 current_stock
func (s *productService) CreateProduct(ctx context.Context, ownerID, userID int64, req *domain.CreateProductRequest) (*domain.ProductWithStock, error) {
	existing, err := s.productRepo.GetBySKU(ctx, ownerID, req.SKU)
	if err != nil {
		return nil, fmt.Errorf("check sku: %w", err)
	}
	if existing != nil {
		return nil, ErrSKUExists
	}

	product := &domain.Product{
		OwnerID:       ownerID,
		Name:          req.Name,
		SKU:           req.SKU,
		Unit:          req.Unit,
		PurchasePrice: req.PurchasePrice,
		SellingPrice:  req.SellingPrice,
		MinStockLevel: req.MinStockLevel,
		IsActive:      true,
	}
	record := &domain.StockRecord{CurrentStock: 0}

	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.productRepo.Create(ctx, tx, product); err != nil {
			return err
		}

		record.ProductID = product.ID
		if err := s.stockRepo.Create(ctx, tx, record); err != nil {
			return err
		}

		if req.InitialStock > 0 {
			sourceModel := domain.SourceModelProduct
			movement := &domain.StockMovement{
				ProductID:    product.ID,
				MovementType: domain.MovementTypeAdjustment,
				Quantity:     req.InitialStock,
				SourceDocID:  &product.ID,
				SourceModel:  &sourceModel,
				MovedBy:      userID,
				Note:         "initial stock",
			}
			if err := s.stockRepo.ApplyMovement(ctx, tx, movement); err != nil {
				return err
			}
			record.CurrentStock = req.InitialStock
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, ErrSKUExists
		}
		s.logger.Error("failed to create product", zap.Error(err))
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.Info("product created",
		zap.Int64("owner_id", ownerID),
		zap.Int64("product_id", product.ID),
		zap.String("sku", product.SKU),
		zap.Int("initial_stock", req.InitialStock),
	)

	return &domain.ProductWithStock{Product: product, Stock: record}, nil
}

// GetProduct 查询商品及其现存量
func (s *productService) GetProduct(ctx context.Context, ownerID, id int64) (*domain.ProductWithStock, error) {
	product, err := s.productRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	record, err := s.stockRepo.GetByProductID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get stock record: %w", err)
	}

	return &domain.ProductWithStock{Product: product, Stock: record}, nil
}

// UpdateProduct 更新商品字段
func (s *productService) UpdateProduct(ctx context.Context, ownerID, id int64, req *domain.UpdateProductRequest) (*domain.Product, error) {
	product, err := s.productRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Unit != nil {
		product.Unit = *req.Unit
	}
	if req.PurchasePrice != nil {
		if *req.PurchasePrice < 0 {
			return nil, domain.ErrInvalidInput
		}
		product.PurchasePrice = *req.PurchasePrice
	}
	if req.SellingPrice != nil {
		if *req.SellingPrice < 0 {
			return nil, domain.ErrInvalidInput
		}
		product.SellingPrice = *req.SellingPrice
	}
	if req.MinStockLevel != nil {
		if *req.MinStockLevel < 0 {
			return nil, domain.ErrInvalidInput
		}
		product.MinStockLevel = *req.MinStockLevel
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		s.logger.Error("failed to update product", zap.Int64("product_id", id), zap.Error(err))
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

// ListProducts 分页查询商品
func (s *productService) ListProducts(ctx context.Context, ownerID int64, req *domain.ProductListRequest) (*domain.ProductListResponse, error) {
	normalizePage(&req.Page, &req.PageSize)

	products, total, err := s.productRepo.List(ctx, ownerID, req)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return &domain.ProductListResponse{
		Products: products,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}
