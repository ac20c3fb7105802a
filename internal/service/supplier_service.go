// Package service 实现供应商业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MorseWayne/shop_ledger/internal/domain"
	"github.com/MorseWayne/shop_ledger/internal/repo"
)

// ErrSupplierExists 供应商邮箱或电话在租户内已被占用。
var ErrSupplierExists = errors.New("supplier already exists")

// SupplierService 定义供应商业务逻辑接口
type SupplierService interface {
	CreateSupplier(ctx context.Context, ownerID int64, req *domain.CreateSupplierRequest) (*domain.Supplier, error)
	GetSupplier(ctx context.Context, ownerID, id int64) (*domain.Supplier, error)
	UpdateSupplier(ctx context.Context, ownerID, id int64, req *domain.UpdateSupplierRequest) (*domain.Supplier, error)
	ListSuppliers(ctx context.Context, ownerID int64, req *domain.SupplierListRequest) (*domain.SupplierListResponse, error)
}

// supplierService 实现SupplierService接口
type supplierService struct {
	supplierRepo repo.SupplierRepository
	logger       *zap.Logger
}

// NewSupplierService 创建供应商服务实例
func NewSupplierService(supplierRepo repo.SupplierRepository, logger *zap.Logger) SupplierService {
	return &supplierService{
		supplierRepo: supplierRepo,
		logger:       logger,
	}
}

// CreateSupplier 创建供应商
func (s *supplierService) CreateSupplier(ctx context.Context, ownerID int64, req *domain.CreateSupplierRequest) (*domain.Supplier, error) {
	supplier := &domain.Supplier{
		OwnerID:  ownerID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
		IsActive: true,
	}

	if err := s.supplierRepo.Create(ctx, supplier); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, ErrSupplierExists
		}
		s.logger.Error("failed to create supplier", zap.Error(err))
		return nil, fmt.Errorf("create supplier: %w", err)
	}

	s.logger.Info("supplier created",
		zap.Int64("owner_id", ownerID),
		zap.Int64("supplier_id", supplier.ID),
		zap.String("name", supplier.Name),
	)

	return supplier, nil
}

// GetSupplier 查询供应商
func (s *supplierService) GetSupplier(ctx context.Context, ownerID, id int64) (*domain.Supplier, error) {
	supplier, err := s.supplierRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	if supplier == nil {
		return nil, ErrSupplierNotFound
	}
	return supplier, nil
}

// UpdateSupplier 更新供应商
func (s *supplierService) UpdateSupplier(ctx context.Context, ownerID, id int64, req *domain.UpdateSupplierRequest) (*domain.Supplier, error) {
	supplier, err := s.supplierRepo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	if supplier == nil {
		return nil, ErrSupplierNotFound
	}

	if req.Name != nil {
		supplier.Name = *req.Name
	}
	if req.Email != nil {
		supplier.Email = *req.Email
	}
	if req.Phone != nil {
		supplier.Phone = *req.Phone
	}
	if req.Address != nil {
		supplier.Address = *req.Address
	}
	if req.IsActive != nil {
		supplier.IsActive = *req.IsActive
	}

	if err := s.supplierRepo.Update(ctx, supplier); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return nil, ErrSupplierExists
		}
		s.logger.Error("failed to update supplier", zap.Int64("supplier_id", id), zap.Error(err))
		return nil, fmt.Errorf("update supplier: %w", err)
	}

	return supplier, nil
}

// ListSuppliers 分页查询供应商
func (s *supplierService) ListSuppliers(ctx context.Context, ownerID int64, req *domain.SupplierListRequest) (*domain.SupplierListResponse, error) {
	normalizePage(&req.Page, &req.PageSize)

	suppliers, total, err := s.supplierRepo.List(ctx, ownerID, req)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}

	return &domain.SupplierListResponse{
		Suppliers: suppliers,
		Total:     total,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}, nil
}
