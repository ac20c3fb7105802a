// Package service 提供业务逻辑层实现。
// 服务层负责协调领域对象和仓储，实现具体的业务用例。
package service

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/MorseWayne/shop_ledger/internal/domain"
	"github.com/MorseWayne/shop_ledger/internal/repo"
)

// EventPublisher 向消息队列发布台账事件。
// 发布失败不回滚业务事务：台账是权威数据，事件只是通知。
type EventPublisher interface {
	PublishMovement(ctx context.Context, ownerID int64, movement *domain.StockMovement) error
	PublishLowStockAlert(ctx context.Context, ownerID int64, alert *domain.LowStockAlert) error
}

// NopEventPublisher 在MQ禁用时使用。
type NopEventPublisher struct{}

func (NopEventPublisher) PublishMovement(ctx context.Context, ownerID int64, movement *domain.StockMovement) error {
	return nil
}

func (NopEventPublisher) PublishLowStockAlert(ctx context.Context, ownerID int64, alert *domain.LowStockAlert) error {
	return nil
}

// StockService 定义库存台账业务逻辑接口
type StockService interface {
	// GetStock 查询商品现存量
	GetStock(ctx context.Context, ownerID, productID int64) (*domain.StockRecord, error)

	// AdjustStock 人工调整库存，调增落 adjustment 变动，调减落 adjustment_out 变动
	AdjustStock(ctx context.Context, ownerID, userID, productID int64, req *domain.AdjustStockRequest) (*domain.StockRecord, error)

	// ListMovements 分页查询商品的变动历史
	ListMovements(ctx context.Context, ownerID int64, req *domain.MovementListRequest) (*domain.MovementListResponse, error)

	// GetLowStockAlerts 查询低库存告警
	GetLowStockAlerts(ctx context.Context, ownerID int64) ([]*domain.LowStockAlert, error)
}

// stockService 实现StockService接口
type stockService struct {
	stockRepo   repo.StockRepository
	productRepo repo.ProductRepository
	tx          repo.TxRunner
	publisher   EventPublisher
	logger      *zap.Logger
}

// NewStockService 创建库存台账服务实例
func NewStockService(
	stockRepo repo.StockRepository,
	productRepo repo.ProductRepository,
	tx repo.TxRunner,
	publisher EventPublisher,
	logger *zap.Logger,
) StockService {
	return &stockService{
		stockRepo:   stockRepo,
		productRepo: productRepo,
		tx:          tx,
		publisher:   publisher,
		logger:      logger,
	}
}

// GetStock 查询商品现存量
func (s *stockService) GetStock(ctx context.Context, ownerID, productID int64) (*domain.StockRecord, error) {
	record, err := s.stockRepo.GetByProductIDForOwner(ctx, ownerID, productID)
	if err != nil {
		return nil, fmt.Errorf("get stock record: %w", err)
	}
	if record == nil {
		return nil, domain.ErrStockRecordNotFound
	}
	return record, nil
}

// AdjustStock 人工调整库存
// 业务规则：
// 1. 商品必须存在且归属于当前租户
// 2. 减少数量不得使现存量为负，原子性由台账保证
// 3. 调增落 adjustment、调减落 adjustment_out，存储数量恒为正
func (s *stockService) AdjustStock(ctx context.Context, ownerID, userID, productID int64, req *domain.AdjustStockRequest) (*domain.StockRecord, error) {
	product, err := s.productRepo.GetByID(ctx, ownerID, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, domain.ErrInvalidProduct
	}

	movementType := domain.MovementTypeAdjustment
	if !req.Increase {
		movementType = domain.MovementTypeAdjustmentOut
	}

	movement := &domain.StockMovement{
		ProductID:    productID,
		MovementType: movementType,
		Quantity:     req.Quantity,
		MovedBy:      userID,
		Note:         req.Note,
	}

	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		return s.stockRepo.ApplyMovement(ctx, tx, movement)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock adjusted",
		zap.Int64("owner_id", ownerID),
		zap.Int64("product_id", productID),
		zap.String("movement_type", string(movementType)),
		zap.Int("quantity", req.Quantity),
		zap.Int64("movement_id", movement.ID),
	)

	s.publishMovements(ctx, ownerID, product, movement)

	record, err := s.stockRepo.GetByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get stock record: %w", err)
	}
	return record, nil
}

// ListMovements 分页查询商品的变动历史
func (s *stockService) ListMovements(ctx context.Context, ownerID int64, req *domain.MovementListRequest) (*domain.MovementListResponse, error) {
	if req.ProductID <= 0 {
		return nil, domain.ErrInvalidProduct
	}
	normalizePage(&req.Page, &req.PageSize)

	movements, total, err := s.stockRepo.ListMovements(ctx, ownerID, req)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}

	return &domain.MovementListResponse{
		Movements: movements,
		Total:     total,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}, nil
}

// GetLowStockAlerts 查询低库存告警
func (s *stockService) GetLowStockAlerts(ctx context.Context, ownerID int64) ([]*domain.LowStockAlert, error) {
	alerts, err := s.stockRepo.ListLowStock(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	if alerts == nil {
		alerts = []*domain.LowStockAlert{}
	}
	return alerts, nil
}

// publishMovements 在事务提交后发布变动事件和可能触发的低库存告警。
func (s *stockService) publishMovements(ctx context.Context, ownerID int64, product *domain.Product, movements ...*domain.StockMovement) {
	publishCommitted(ctx, s.publisher, s.stockRepo, s.logger, ownerID, map[int64]*domain.Product{product.ID: product}, movements)
}

// publishCommitted 是各服务共用的事件发布逻辑：
// 逐条发布变动事件，并对现存量跌破水位的商品追加低库存告警。
func publishCommitted(
	ctx context.Context,
	publisher EventPublisher,
	stockRepo repo.StockRepository,
	logger *zap.Logger,
	ownerID int64,
	products map[int64]*domain.Product,
	movements []*domain.StockMovement,
) {
	alerted := make(map[int64]bool)

	for _, m := range movements {
		if err := publisher.PublishMovement(ctx, ownerID, m); err != nil {
			logger.Warn("failed to publish movement event",
				zap.Int64("movement_id", m.ID),
				zap.Error(err),
			)
		}

		product := products[m.ProductID]
		if product == nil || m.Delta() >= 0 || alerted[m.ProductID] {
			continue
		}

		record, err := stockRepo.GetByProductID(ctx, m.ProductID)
		if err != nil || record == nil {
			continue
		}
		if record.CurrentStock > product.MinStockLevel {
			continue
		}

		alerted[m.ProductID] = true
		alert := &domain.LowStockAlert{
			ProductID:     product.ID,
			ProductName:   product.Name,
			ProductSKU:    product.SKU,
			CurrentStock:  record.CurrentStock,
			MinStockLevel: product.MinStockLevel,
		}
		if err := publisher.PublishLowStockAlert(ctx, ownerID, alert); err != nil {
			logger.Warn("failed to publish low stock alert",
				zap.Int64("product_id", product.ID),
				zap.Error(err),
			)
		}
	}
}

// normalizePage 统一分页参数默认值和上限。
func normalizePage(page, pageSize *int) {
	if *page <= 0 {
		*page = 1
	}
	if *pageSize <= 0 {
		*pageSize = 20
	}
	if *pageSize > 100 {
		*pageSize = 100
	}
}
