// Package service 实现采购业务逻辑层。
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

// 采购业务错误
var (
	ErrPurchaseNotFound = errors.New("purchase not found")
	ErrSupplierNotFound = errors.New("supplier not found")
)

// PurchaseService 定义采购业务逻辑接口
type PurchaseService interface {
	// CreatePurchase 创建采购单，初始状态 ordered，不影响库存
	CreatePurchase(ctx context.Context, ownerID, userID int64, req *domain.CreatePurchaseRequest) (*domain.Purchase, error)

	// GetPurchase 查询采购单（含明细）
	GetPurchase(ctx context.Context, ownerID, id int64) (*domain.Purchase, error)

	// ReceivePurchase 收货：状态迁移到 received 并按明细落 purchase 变动入库。
	// 迁移和入库在同一事务内，收货不可重复。
	ReceivePurchase(ctx context.Context, ownerID, userID, id int64) (*domain.Purchase, error)

	// CancelPurchase 取消未收货的采购单，已收货的单据不可取消
	CancelPurchase(ctx context.Context, ownerID, userID, id int64) (*domain.Purchase, error)

	// ListPurchases 分页查询采购单
	ListPurchases(ctx context.Context, ownerID int64, req *domain.PurchaseListRequest) (*domain.PurchaseListResponse, error)
}

// purchaseService 实现PurchaseService接口
type purchaseService struct {
	purchaseRepo repo.PurchaseRepository
	supplierRepo repo.SupplierRepository
	productRepo  repo.ProductRepository
	stockRepo    repo.StockRepository
	seqRepo      repo.SequenceRepository
	tx           repo.TxRunner
	publisher    EventPublisher
	logger       *zap.Logger
}

// NewPurchaseService 创建采购服务实例
func NewPurchaseService(
	purchaseRepo repo.PurchaseRepository,
	supplierRepo repo.SupplierRepository,
	productRepo repo.ProductRepository,
	stockRepo repo.StockRepository,
	seqRepo repo.SequenceRepository,
	tx repo.TxRunner,
	publisher EventPublisher,
	logger *zap.Logger,
) PurchaseService {
	return &purchaseService{
		purchaseRepo: purchaseRepo,
		supplierRepo: supplierRepo,
		productRepo:  productRepo,
		stockRepo:    stockRepo,
		seqRepo:      seqRepo,
		tx:           tx,
		publisher:    publisher,
		logger:       logger,
	}
}

// CreatePurchase 创建采购单
// 业务规则：
// 1. 供应商必须存在、启用且归属当前租户
// 2. 明细商品必须存在、启用且归属当前租户
// 3. 创建不触碰库存，入库发生在收货时
func (s *purchaseService) CreatePurchase(ctx context.Context, ownerID, userID int64, req *domain.CreatePurchaseRequest) (*domain.Purchase, error) {
	supplier, err := s.supplierRepo.GetByID(ctx, ownerID, req.SupplierID)
	if err != nil {
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	if supplier == nil || !supplier.IsActive {
		return nil, ErrSupplierNotFound
	}

	for _, item := range req.Items {
		product, err := s.productRepo.GetByID(ctx, ownerID, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product == nil || !product.IsSellable() {
			return nil, fmt.Errorf("%w: product %d", domain.ErrInvalidProduct, item.ProductID)
		}
	}

	purchase := &domain.Purchase{
		OwnerID:       ownerID,
		SupplierID:    req.SupplierID,
		PaymentMethod: req.PaymentMethod,
		Status:        domain.PurchaseStatusOrdered,
		OrderDate:     time.Now(),
		CreatedBy:     userID,
	}
	for _, item := range req.Items {
		line := &domain.PurchaseItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitCost:  item.UnitCost,
			TotalCost: float64(item.Quantity) * item.UnitCost,
		}
		purchase.Items = append(purchase.Items, line)
		purchase.TotalAmount += line.TotalCost
	}

	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		seq, err := s.seqRepo.Next(ctx, tx, ownerID, repo.DocTypePurchase)
		if err != nil {
			return err
		}
		purchaseNumber, err := repo.FormatDocNumber(repo.DocTypePurchase, seq)
		if err != nil {
			return err
		}
		purchase.PurchaseNumber = purchaseNumber

		return s.purchaseRepo.Create(ctx, tx, purchase)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase created",
		zap.Int64("owner_id", ownerID),
		zap.Int64("purchase_id", purchase.ID),
		zap.String("purchase_number", purchase.PurchaseNumber),
		zap.Int64("supplier_id", purchase.SupplierID),
		zap.Float64("total_amount", purchase.TotalAmount),
	)

	return purchase, nil
}

// GetPurchase 查询采购单
func (s *purchaseService) GetPurchase(ctx context.Context, ownerID, id int64) (*domain.Purchase, error) {
	purchase, err := s.purchaseRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	if purchase == nil {
		return nil, ErrPurchaseNotFound
	}
	return purchase, nil
}

// ReceivePurchase 收货
func (s *purchaseService) ReceivePurchase(ctx context.Context, ownerID, userID, id int64) (*domain.Purchase, error) {
	purchase, err := s.purchaseRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	if purchase == nil {
		return nil, ErrPurchaseNotFound
	}
	if !purchase.Status.CanTransitionTo(domain.PurchaseStatusReceived) {
		return nil, &domain.InvalidStateTransitionError{
			PurchaseID: id,
			Current:    purchase.Status,
			Attempted:  domain.PurchaseStatusReceived,
		}
	}

	products := make(map[int64]*domain.Product, len(purchase.Items))
	for _, line := range purchase.Items {
		if _, ok := products[line.ProductID]; ok {
			continue
		}
		product, err := s.productRepo.GetByID(ctx, ownerID, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product != nil {
			products[line.ProductID] = product
		}
	}

	now := time.Now()
	var movements []*domain.StockMovement

	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.purchaseRepo.UpdateStatus(ctx, tx, ownerID, id,
			domain.PurchaseStatusOrdered, domain.PurchaseStatusReceived, &now); err != nil {
			return err
		}

		sourceModel := domain.SourceModelPurchase
		for _, line := range purchase.Items {
			movement := &domain.StockMovement{
				ProductID:    line.ProductID,
				MovementType: domain.MovementTypePurchase,
				Quantity:     line.Quantity,
				SourceDocID:  &purchase.ID,
				SourceModel:  &sourceModel,
				MovedBy:      userID,
				Note:         fmt.Sprintf("receive purchase %s", purchase.PurchaseNumber),
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

	purchase.Status = domain.PurchaseStatusReceived
	purchase.ReceivedAt = &now

	s.logger.Info("purchase received",
		zap.Int64("owner_id", ownerID),
		zap.Int64("purchase_id", purchase.ID),
		zap.String("purchase_number", purchase.PurchaseNumber),
	)

	publishCommitted(ctx, s.publisher, s.stockRepo, s.logger, ownerID, products, movements)

	return purchase, nil
}

// CancelPurchase 取消采购单
func (s *purchaseService) CancelPurchase(ctx context.Context, ownerID, userID, id int64) (*domain.Purchase, error) {
	purchase, err := s.purchaseRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}
	if purchase == nil {
		return nil, ErrPurchaseNotFound
	}
	if !purchase.Status.CanTransitionTo(domain.PurchaseStatusCancelled) {
		return nil, &domain.InvalidStateTransitionError{
			PurchaseID: id,
			Current:    purchase.Status,
			Attempted:  domain.PurchaseStatusCancelled,
		}
	}

	err = s.tx.WithinTx(ctx, func(tx *sql.Tx) error {
		return s.purchaseRepo.UpdateStatus(ctx, tx, ownerID, id,
			domain.PurchaseStatusOrdered, domain.PurchaseStatusCancelled, nil)
	})
	if err != nil {
		return nil, err
	}

	purchase.Status = domain.PurchaseStatusCancelled

	s.logger.Info("purchase cancelled",
		zap.Int64("owner_id", ownerID),
		zap.Int64("purchase_id", purchase.ID),
		zap.String("purchase_number", purchase.PurchaseNumber),
	)

	return purchase, nil
}

// ListPurchases 分页查询采购单
func (s *purchaseService) ListPurchases(ctx context.Context, ownerID int64, req *domain.PurchaseListRequest) (*domain.PurchaseListResponse, error) {
	normalizePage(&req.Page, &req.PageSize)

	purchases, total, err := s.purchaseRepo.List(ctx, ownerID, req)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}

	return &domain.PurchaseListResponse{
		Purchases: purchases,
		Total:     total,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}, nil
}
