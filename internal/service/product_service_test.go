package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/MorseWayne/shop_ledger/internal/domain"
)

func newProductServiceForTest() (ProductService, *fakeProductRepo, *fakeStockRepo) {
	productRepo := newFakeProductRepo()
	stockRepo := newFakeStockRepo()
	svc := NewProductService(productRepo, stockRepo, &fakeTxRunner{}, zap.NewNop())
	return svc, productRepo, stockRepo
}

func TestProductService_CreateProduct_WithInitialStock(t *testing.T) {
	svc, _, stockRepo := newProductServiceForTest()

	result, err := svc.CreateProduct(context.Background(), 1, 7, &domain.CreateProductRequest{
		Name:          "Widget",
		SKU:           "W-1",
		Unit:          "pcs",
		SellingPrice:  9.99,
		MinStockLevel: 5,
		InitialStock:  30,
	})
	if err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}

	if !result.IsActive {
		t.Error("expected new product to be active")
	}
	if result.Stock == nil || result.Stock.CurrentStock != 30 {
		t.Fatalf("unexpected stock: %+v", result.Stock)
	}

	// 期初库存走正常的 adjustment 变动
	adjustments := stockRepo.movementsOfType(domain.MovementTypeAdjustment)
	if len(adjustments) != 1 {
		t.Fatalf("expected 1 adjustment movement, got %d", len(adjustments))
	}
	if adjustments[0].Quantity != 30 || adjustments[0].Note != "initial stock" {
		t.Errorf("unexpected movement: %+v", adjustments[0])
	}
}

func TestProductService_CreateProduct_ZeroInitialStock(t *testing.T) {
	svc, _, stockRepo := newProductServiceForTest()

	result, err := svc.CreateProduct(context.Background(), 1, 7, &domain.CreateProductRequest{
		Name: "Widget", SKU: "W-1", Unit: "pcs",
	})
	if err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}

	// 台账行随商品建立，即使期初为零
	if result.Stock == nil || result.Stock.CurrentStock != 0 {
		t.Fatalf("unexpected stock: %+v", result.Stock)
	}
	if len(stockRepo.movements) != 0 {
		t.Errorf("expected no movements, got %d", len(stockRepo.movements))
	}
}

func TestProductService_CreateProduct_DuplicateSKU(t *testing.T) {
	svc, _, _ := newProductServiceForTest()

	req := &domain.CreateProductRequest{Name: "Widget", SKU: "W-1", Unit: "pcs"}
	if _, err := svc.CreateProduct(context.Background(), 1, 7, req); err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}
	if _, err := svc.CreateProduct(context.Background(), 1, 7, req); !errors.Is(err, ErrSKUExists) {
		t.Errorf("CreateProduct() error = %v, want ErrSKUExists", err)
	}
}

func TestProductService_CreateProduct_SameSKUDifferentOwner(t *testing.T) {
	svc, _, _ := newProductServiceForTest()

	req := &domain.CreateProductRequest{Name: "Widget", SKU: "W-1", Unit: "pcs"}
	if _, err := svc.CreateProduct(context.Background(), 1, 7, req); err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}
	// SKU 唯一性按租户隔离
	if _, err := svc.CreateProduct(context.Background(), 2, 8, req); err != nil {
		t.Errorf("CreateProduct() for second owner error = %v", err)
	}
}

func TestProductService_GetProduct(t *testing.T) {
	svc, productRepo, stockRepo := newProductServiceForTest()

	p := productRepo.seed(&domain.Product{OwnerID: 1, Name: "Widget", SKU: "W-1", IsActive: true})
	stockRepo.seed(1, p.ID, 12)

	result, err := svc.GetProduct(context.Background(), 1, p.ID)
	if err != nil {
		t.Fatalf("GetProduct() error = %v", err)
	}
	if result.Stock == nil || result.Stock.CurrentStock != 12 {
		t.Errorf("unexpected stock: %+v", result.Stock)
	}

	if _, err := svc.GetProduct(context.Background(), 2, p.ID); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("GetProduct() for wrong owner = %v, want ErrProductNotFound", err)
	}
}

func TestProductService_UpdateProduct(t *testing.T) {
	svc, productRepo, _ := newProductServiceForTest()

	p := productRepo.seed(&domain.Product{OwnerID: 1, Name: "Widget", SKU: "W-1", SellingPrice: 10, IsActive: true})

	newName := "Widget v2"
	inactive := false
	updated, err := svc.UpdateProduct(context.Background(), 1, p.ID, &domain.UpdateProductRequest{
		Name:     &newName,
		IsActive: &inactive,
	})
	if err != nil {
		t.Fatalf("UpdateProduct() error = %v", err)
	}
	if updated.Name != "Widget v2" || updated.IsActive {
		t.Errorf("unexpected product: %+v", updated)
	}
	// 未提供的字段保持不变
	if updated.SellingPrice != 10 {
		t.Errorf("SellingPrice = %f, want 10", updated.SellingPrice)
	}
}

func TestProductService_UpdateProduct_NegativePrice(t *testing.T) {
	svc, productRepo, _ := newProductServiceForTest()

	p := productRepo.seed(&domain.Product{OwnerID: 1, Name: "Widget", SKU: "W-1", IsActive: true})

	bad := -1.0
	if _, err := svc.UpdateProduct(context.Background(), 1, p.ID, &domain.UpdateProductRequest{
		SellingPrice: &bad,
	}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("UpdateProduct() error = %v, want ErrInvalidInput", err)
	}
}

func TestProductService_UpdateProduct_NotFound(t *testing.T) {
	svc, _, _ := newProductServiceForTest()

	name := "x"
	if _, err := svc.UpdateProduct(context.Background(), 1, 99, &domain.UpdateProductRequest{Name: &name}); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("UpdateProduct() error = %v, want ErrProductNotFound", err)
	}
}
