// Package service 实现销售业务逻辑层。
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MorseWayne/shop_ledger/internal/domain"
	"github.com/MorseWayne/shop_ledger/internal/repo"
)

// 销售业务错误
var (
	ErrSaleNotFound       = errors.New("sale not found")
	ErrSaleNotCancellable = errors.New("sale is not cancellable")
)

// SaleService 定义销售业务逻辑接口
type SaleService interface {
	// CreateSale 创建销售单：单号、单据和每行的 sale 变动在一个事务内完成。
	// 任何一行库存不足都会使整单失败，不产生部分扣减。
	CreateSale(ctx context.Context, ownerID, userID int64, req *domain.CreateSaleRequest) (*domain.Sale, error)

	// GetSale 查询销售单（含明细）
	GetSale(ctx context.Context, ownerID, id int64) (*domain.Sale, error)

	// CancelSale 取消销售单：状态迁移到 cancelled 并按明细落 return 变动回补库存。
	// 单据保留，审计链上可同时看到扣减和回补。
	CancelSale(ctx context.Context, ownerID, userID, id int64) (*domain.Sale, error)

	// ListSales 分页查询销售单
	ListSales(ctx context.Context, ownerID int64, req *domain.SaleListRequest) (*domain.SaleListResponse, error)
}

// saleService 实现SaleService接口
type saleService struct {
	saleRepo    repo.SaleRepository
	productRepo repo.ProductRepository
	stockRepo   repo.StockRepository
	seqRepo     repo.SequenceRepository
	tx          repo.TxRunner
	publisher   EventPublisher
	logger      *zap.Logger
}

// NewSaleService 创建销售服务实例
func NewSaleService(
	saleRepo repo.SaleRepository,
	productRepo repo.ProductRepository,
	stockRepo repo.StockRepository,
	seqRepo repo.SequenceRepository,
	tx repo.TxRunner,
	publisher EventPublisher,
	logger *zap.Logger,
) SaleService {
	return &saleService{
		saleRepo:    saleRepo,
		productRepo: productRepo,
		stockRepo:   stockRepo,
		seqRepo:     seqRepo,
		tx:          tx,
		publisher:   publisher,
		logger:      logger,
	}
}

// CreateSale 创建销售单
// 业务规则：
// 1. 明细中的商品必须存在、启用且归属当前租户
// 2. 总额由服务端按明细计算
// 3. 事务外先做一轮库存预检，尽早拒绝明显不足的请求；
//    预检通过不代表最终成功，事务内的原子扣减才是权威判定
func (s *saleService) CreateSale(ctx context.Context, ownerID, userID int64, req *domain.CreateSaleRequest) (*domain.Sale, error) {
	products, err := s.loadSellableProducts(ctx, ownerID, req.Items)
	if err != nil {
		return nil, err
	}

	// 库存预检
	for _, item := range req.Items {
		record, err := s.stockRepo.GetByProductID(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get stock record: %w", err)
		}
		if record == nil {
			return nil, domain.ErrStockRecordNotFound
		}
		if record.CurrentStock < item.Quantity {
			return nil, &domain.InsufficientStockError{
				ProductID: item.ProductID,
				Available: record.CurrentStock,
				Requested: item.Quantity,
			}
		}
	}

	saleDate := time.Now()
	if req.SaleDate != nil {
		saleDate = *req.SaleDate
	}

	sale := &domain.Sale{
		OwnerID:       ownerID,
		PaymentMethod: req.PaymentMethod,
		Status:        domain.SaleStatusCompleted,
		SaleDate:      saleDate,
		CreatedBy:     userID,
	}
	for _, item := range req.Items {
		line := &domain.SaleItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: float64(item.Quantity) * item.UnitPrice,
		}
		sale.Items = append(sale.Items, line)
		sale.TotalAmount += line.TotalPrice
	}

	var movements []*domain.StockMovement

	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		seq, err := s.seqRepo.Next(ctx, tx, ownerID, repo.DocTypeInvoice)
		if err != nil {
			return err
		}
		invoiceNumber, err := repo.FormatDocNumber(repo.DocTypeInvoice, seq)
		if err != nil {
			return err
		}
		sale.InvoiceNumber = invoiceNumber

		if err := s.saleRepo.Create(ctx, tx, sale); err != nil {
			return err
		}

		sourceModel := domain.SourceModelSale
		for _, line := range sale.Items {
			movement := &domain.StockMovement{
				ProductID:    line.ProductID,
				MovementType: domain.MovementTypeSale,
				Quantity:     line.Quantity,
				SourceDocID:  &sale.ID,
				SourceModel:  &sourceModel,
				MovedBy:      userID,
				Note:         fmt.Sprintf("sale %s", sale.InvoiceNumber),
			}
			if err := s.stockRepo.ApplyMovement(ctx, tx, movement); err != nil {
				return err
			}
			movements = append(movements, movement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sale created",
		zap.Int64("owner_id", ownerID),
		zap.Int64("sale_id", sale.ID),
		zap.String("invoice_number", sale.InvoiceNumber),
		zap.Float64("total_amount", sale.TotalAmount),
		zap.Int("items", len(sale.Items)),
	)

	publishCommitted(ctx, s.publisher, s.stockRepo, s.logger, ownerID, products, movements)

	return sale, nil
}

// GetSale 查询销售单
func (s *saleService) GetSale(ctx context.Context, ownerID, id int64) (*domain.Sale, error) {
	sale, err := s.saleRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, ErrSaleNotFound
	}
	return sale, nil
}

// CancelSale 取消销售单
// 业务规则：
// 1. 只有 completed 状态的单据可取消，迁移在 SQL 层条件更新，
//    并发取消只有一个请求生效
// 2. 每行明细落一条 return 变动回补库存
// 3. 单据保留为 cancelled，不做物理删除
func (s *saleService) CancelSale(ctx context.Context, ownerID, userID, id int64) (*domain.Sale, error) {
	sale, err := s.saleRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if sale == nil {
		return nil, ErrSaleNotFound
	}
	if !sale.IsCancellable() {
		return nil, ErrSaleNotCancellable
	}

	var movements []*domain.StockMovement

	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.saleRepo.UpdateStatus(ctx, tx, ownerID, id, domain.SaleStatusCompleted, domain.SaleStatusCancelled); err != nil {
			return err
		}

		sourceModel := domain.SourceModelSale
		for _, line := range sale.Items {
			movement := &domain.StockMovement{
				ProductID:    line.ProductID,
				MovementType: domain.MovementTypeReturn,
				Quantity:     line.Quantity,
				SourceDocID:  &sale.ID,
				SourceModel:  &sourceModel,
				MovedBy:      userID,
				Note:         fmt.Sprintf("cancel sale %s", sale.InvoiceNumber),
			}
			if err := s.stockRepo.ApplyMovement(ctx, tx, movement); err != nil {
				return err
			}
			movements = append(movements, movement)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidStateTransition) {
			return nil, ErrSaleNotCancellable
		}
		return nil, err
	}

	sale.Status = domain.SaleStatusCancelled

	s.logger.Info("sale cancelled",
		zap.Int64("owner_id", ownerID),
		zap.Int64("sale_id", sale.ID),
		zap.String("invoice_number", sale.InvoiceNumber),
	)

	for _, m := range movements {
		if err := s.publisher.PublishMovement(ctx, ownerID, m); err != nil {
			s.logger.Warn("failed to publish movement event", zap.Int64("movement_id", m.ID), zap.Error(err))
		}
	}

	return sale, nil
}

// ListSales 分页查询销售单
func (s *saleService) ListSales(ctx context.Context, ownerID int64, req *domain.SaleListRequest) (*domain.SaleListResponse, error) {
	normalizePage(&req.Page, &req.PageSize)

	sales, total, err := s.saleRepo.List(ctx, ownerID, req)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}

	return &domain.SaleListResponse{
		Sales:    sales,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}

// loadSellableProducts 加载并校验明细商品，重复的商品行也只加载一次。
func (s *saleService) loadSellableProducts(ctx context.Context, ownerID int64, items []domain.SaleItemInput) (map[int64]*domain.Product, error) {
	products := make(map[int64]*domain.Product, len(items))
	for _, item := range items {
		if _, ok := products[item.ProductID]; ok {
			continue
		}
		product, err := s.productRepo.GetByID(ctx, ownerID, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product == nil || !product.IsSellable() {
			return nil, fmt.Errorf("%w: product %d", domain.ErrInvalidProduct, item.ProductID)
		}
		products[item.ProductID] = product
	}
	return products, nil
}
