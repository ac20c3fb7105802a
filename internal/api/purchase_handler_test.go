package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/MorseWayne/shop_ledger/internal/domain"
	"github.com/MorseWayne/shop_ledger/internal/middleware"
	"github.com/MorseWayne/shop_ledger/internal/resp"
	"github.com/MorseWayne/shop_ledger/internal/service"
)

// mockPurchaseService 以函数字段实现 service.PurchaseService，便于逐用例定制行为。
type mockPurchaseService struct {
	createFunc  func(ctx context.Context, ownerID, userID int64, req *domain.CreatePurchaseRequest) (*domain.Purchase, error)
	getFunc     func(ctx context.Context, ownerID, id int64) (*domain.Purchase, error)
	receiveFunc func(ctx context.Context, ownerID, userID, id int64) (*domain.Purchase, error)
	cancelFunc  func(ctx context.Context, ownerID, userID, id int64) (*domain.Purchase, error)
	listFunc    func(ctx context.Context, ownerID int64, req *domain.PurchaseListRequest) (*domain.PurchaseListResponse, error)
}

func (m *mockPurchaseService) CreatePurchase(ctx context.Context, ownerID, userID int64, req *domain.CreatePurchaseRequest) (*domain.Purchase, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, ownerID, userID, req)
	}
	return nil, nil
}

func (m *mockPurchaseService) GetPurchase(ctx context.Context, ownerID, id int64) (*domain.Purchase, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, ownerID, id)
	}
	return nil, nil
}

func (m *mockPurchaseService) ReceivePurchase(ctx context.Context, ownerID, userID, id int64) (*domain.Purchase, error) {
	if m.receiveFunc != nil {
		return m.receiveFunc(ctx, ownerID, userID, id)
	}
	return nil, nil
}

func (m *mockPurchaseService) CancelPurchase(ctx context.Context, ownerID, userID, id int64) (*domain.Purchase, error) {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, ownerID, userID, id)
	}
	return nil, nil
}

func (m *mockPurchaseService) ListPurchases(ctx context.Context, ownerID int64, req *domain.PurchaseListRequest) (*domain.PurchaseListResponse, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, ownerID, req)
	}
	return &domain.PurchaseListResponse{}, nil
}

// doPurchaseRequest 以已认证用户身份执行一次请求并解析统一响应体。
func doPurchaseRequest(t *testing.T, handler http.HandlerFunc, method, path string) (int, *resp.Body) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	user := &domain.User{ID: 1, Username: "boss", Role: domain.UserRoleOwner, IsActive: true}
	req = req.WithContext(middleware.ContextWithUser(req.Context(), user))

	rec := httptest.NewRecorder()
	handler(rec, req)

	body := &resp.Body{}
	if err := json.NewDecoder(rec.Body).Decode(body); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return rec.Code, body
}

func TestPurchaseHandler_CancelPurchase_StateMessages(t *testing.T) {
	tests := []struct {
		name        string
		serviceErr  error
		wantStatus  int
		wantCode    resp.Code
		wantMessage string
	}{
		{
			name: "received purchase cannot be cancelled",
			serviceErr: &domain.InvalidStateTransitionError{
				PurchaseID: 42,
				Current:    domain.PurchaseStatusReceived,
				Attempted:  domain.PurchaseStatusCancelled,
			},
			wantStatus:  http.StatusUnprocessableEntity,
			wantCode:    resp.CodeInvalidState,
			wantMessage: "cannot cancel a received purchase",
		},
		{
			name: "already cancelled",
			serviceErr: &domain.InvalidStateTransitionError{
				PurchaseID: 42,
				Current:    domain.PurchaseStatusCancelled,
				Attempted:  domain.PurchaseStatusCancelled,
			},
			wantStatus:  http.StatusUnprocessableEntity,
			wantCode:    resp.CodeInvalidState,
			wantMessage: "purchase is already cancelled",
		},
		{
			name:        "not found",
			serviceErr:  service.ErrPurchaseNotFound,
			wantStatus:  http.StatusNotFound,
			wantCode:    resp.CodeNotFound,
			wantMessage: "purchase not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPurchaseService{
				cancelFunc: func(ctx context.Context, ownerID, userID, id int64) (*domain.Purchase, error) {
					return nil, tt.serviceErr
				},
			}
			handler := NewPurchaseHandler(svc, zap.NewNop())

			status, body := doPurchaseRequest(t, handler.CancelPurchase, http.MethodPost, "/api/v1/purchases/42/cancel")
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", body.Code, tt.wantCode)
			}
			if body.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", body.Message, tt.wantMessage)
			}
		})
	}
}

func TestPurchaseHandler_ReceivePurchase_AlreadyReceived(t *testing.T) {
	svc := &mockPurchaseService{
		receiveFunc: func(ctx context.Context, ownerID, userID, id int64) (*domain.Purchase, error) {
			return nil, &domain.InvalidStateTransitionError{
				PurchaseID: 42,
				Current:    domain.PurchaseStatusReceived,
				Attempted:  domain.PurchaseStatusReceived,
			}
		},
	}
	handler := NewPurchaseHandler(svc, zap.NewNop())

	status, body := doPurchaseRequest(t, handler.ReceivePurchase, http.MethodPost, "/api/v1/purchases/42/receive")
	if status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", status, http.StatusUnprocessableEntity)
	}
	if body.Code != resp.CodeInvalidState {
		t.Errorf("code = %d, want %d", body.Code, resp.CodeInvalidState)
	}
	if body.Message != "purchase is already received" {
		t.Errorf("message = %q, want %q", body.Message, "purchase is already received")
	}
}
