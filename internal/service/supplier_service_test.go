package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/MorseWayne/shop_ledger/internal/domain"
)

func TestSupplierService_CreateSupplier(t *testing.T) {
	svc := NewSupplierService(newFakeSupplierRepo(), zap.NewNop())

	supplier, err := svc.CreateSupplier(context.Background(), 1, &domain.CreateSupplierRequest{
		Name:  "Acme",
		Email: "acme@example.com",
		Phone: "12345",
	})
	if err != nil {
		t.Fatalf("CreateSupplier() error = %v", err)
	}
	if !supplier.IsActive {
		t.Error("expected new supplier to be active")
	}
	if supplier.OwnerID != 1 {
		t.Errorf("OwnerID = %d, want 1", supplier.OwnerID)
	}
}

func TestSupplierService_CreateSupplier_DuplicateContact(t *testing.T) {
	svc := NewSupplierService(newFakeSupplierRepo(), zap.NewNop())

	req := &domain.CreateSupplierRequest{Name: "Acme", Email: "acme@example.com", Phone: "12345"}
	if _, err := svc.CreateSupplier(context.Background(), 1, req); err != nil {
		t.Fatalf("CreateSupplier() error = %v", err)
	}
	if _, err := svc.CreateSupplier(context.Background(), 1, req); !errors.Is(err, ErrSupplierExists) {
		t.Errorf("CreateSupplier() error = %v, want ErrSupplierExists", err)
	}
}

func TestSupplierService_GetSupplier_TenantIsolation(t *testing.T) {
	supplierRepo := newFakeSupplierRepo()
	svc := NewSupplierService(supplierRepo, zap.NewNop())

	s := supplierRepo.seed(&domain.Supplier{OwnerID: 1, Name: "Acme", Email: "a@example.com", Phone: "1", IsActive: true})

	if _, err := svc.GetSupplier(context.Background(), 1, s.ID); err != nil {
		t.Errorf("GetSupplier() error = %v", err)
	}
	if _, err := svc.GetSupplier(context.Background(), 2, s.ID); !errors.Is(err, ErrSupplierNotFound) {
		t.Errorf("GetSupplier() for wrong owner = %v, want ErrSupplierNotFound", err)
	}
}

func TestSupplierService_UpdateSupplier(t *testing.T) {
	supplierRepo := newFakeSupplierRepo()
	svc := NewSupplierService(supplierRepo, zap.NewNop())

	s := supplierRepo.seed(&domain.Supplier{OwnerID: 1, Name: "Acme", Email: "a@example.com", Phone: "1", IsActive: true})

	newName := "Acme Ltd"
	inactive := false
	updated, err := svc.UpdateSupplier(context.Background(), 1, s.ID, &domain.UpdateSupplierRequest{
		Name:     &newName,
		IsActive: &inactive,
	})
	if err != nil {
		t.Fatalf("UpdateSupplier() error = %v", err)
	}
	if updated.Name != "Acme Ltd" || updated.IsActive {
		t.Errorf("unexpected supplier: %+v", updated)
	}
}
