package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/MorseWayne/shop_ledger/internal/domain"
	"github.com/MorseWayne/shop_ledger/internal/middleware"
	"github.com/MorseWayne/shop_ledger/internal/resp"
	"github.com/MorseWayne/shop_ledger/internal/service"
)

// PurchaseHandler 采购单相关的HTTP处理器
type PurchaseHandler struct {
	purchaseService service.PurchaseService
	logger          *zap.Logger
}

// NewPurchaseHandler 创建采购处理器实例
func NewPurchaseHandler(purchaseService service.PurchaseService, logger *zap.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseService: purchaseService,
		logger:          logger,
	}
}

// CreatePurchase 创建采购单（状态 ordered，不影响库存）
// POST /api/v1/purchases
func (h *PurchaseHandler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	var req domain.CreatePurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	if err := validateCreatePurchaseRequest(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	purchase, err := h.purchaseService.CreatePurchase(r.Context(), user.ID, user.ID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSupplierNotFound), errors.Is(err, domain.ErrInvalidSupplier):
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "supplier not found or inactive", reqID, "")
		case errors.Is(err, domain.ErrInvalidProduct):
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "product not found or inactive", reqID, "")
		default:
			h.logger.Error("create purchase failed", zap.String("request_id", reqID), zap.Error(err))
			resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "create purchase failed", reqID, "")
		}
		return
	}

	resp.OK(w, purchase, reqID, "")
}

// GetPurchase 查询采购单
// GET /api/v1/purchases/{id}
func (h *PurchaseHandler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid purchase ID", reqID, "")
		return
	}

	purchase, err := h.purchaseService.GetPurchase(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, service.ErrPurchaseNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeNotFound, "purchase not found", reqID, "")
			return
		}

		h.logger.Error("get purchase failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get purchase failed", reqID, "")
		return
	}

	resp.OK(w, purchase, reqID, "")
}

// ReceivePurchase 采购收货并入库
// POST /api/v1/purchases/{id}/receive
func (h *PurchaseHandler) ReceivePurchase(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid purchase ID", reqID, "")
		return
	}

	purchase, err := h.purchaseService.ReceivePurchase(r.Context(), user.ID, user.ID, id)
	if err != nil {
		h.writeTransitionError(w, err, reqID, "receive purchase failed")
		return
	}

	resp.OK(w, purchase, reqID, "")
}

// CancelPurchase 取消未收货的采购单
// POST /api/v1/purchases/{id}/cancel
func (h *PurchaseHandler) CancelPurchase(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid purchase ID", reqID, "")
		return
	}

	purchase, err := h.purchaseService.CancelPurchase(r.Context(), user.ID, user.ID, id)
	if err != nil {
		h.writeTransitionError(w, err, reqID, "cancel purchase failed")
		return
	}

	resp.OK(w, purchase, reqID, "")
}

// ListPurchases 分页查询采购单
// GET /api/v1/purchases?page=1&page_size=20&status=ordered&supplier_id=3
func (h *PurchaseHandler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	req := &domain.PurchaseListRequest{}
	req.Page, req.PageSize = parsePagination(r)

	query := r.URL.Query()
	if s := query.Get("status"); s != "" {
		status := domain.PurchaseStatus(s)
		if !status.Valid() {
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid purchase status", reqID, "")
			return
		}
		req.Status = &status
	}
	if s := query.Get("supplier_id"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil && v > 0 {
			req.SupplierID = &v
		}
	}

	result, err := h.purchaseService.ListPurchases(r.Context(), user.ID, req)
	if err != nil {
		h.logger.Error("list purchases failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list purchases failed", reqID, "")
		return
	}

	resp.OK(w, result, reqID, "")
}

// writeTransitionError 映射收货/取消共有的失败类型。
func (h *PurchaseHandler) writeTransitionError(w http.ResponseWriter, err error, reqID, fallback string) {
	var transitionErr *domain.InvalidStateTransitionError
	switch {
	case errors.Is(err, service.ErrPurchaseNotFound):
		resp.Error(w, http.StatusNotFound, resp.CodeNotFound, "purchase not found", reqID, "")
	case errors.As(err, &transitionErr):
		resp.Error(w, http.StatusUnprocessableEntity, resp.CodeInvalidState, transitionMessage(transitionErr), reqID, "")
	case errors.Is(err, domain.ErrInvalidStateTransition):
		resp.Error(w, http.StatusUnprocessableEntity, resp.CodeInvalidState, "purchase state does not allow this operation", reqID, "")
	default:
		h.logger.Error(fallback, zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, fallback, reqID, "")
	}
}

// transitionMessage 把状态机拒绝翻译成告诉调用方具体原因的文案。
func transitionMessage(e *domain.InvalidStateTransitionError) string {
	switch {
	case e.Attempted == domain.PurchaseStatusCancelled && e.Current == domain.PurchaseStatusReceived:
		return "cannot cancel a received purchase"
	case e.Current == domain.PurchaseStatusCancelled:
		return "purchase is already cancelled"
	case e.Attempted == domain.PurchaseStatusReceived && e.Current == domain.PurchaseStatusReceived:
		return "purchase is already received"
	default:
		return "purchase state does not allow this operation"
	}
}

// validateCreatePurchaseRequest 验证创建采购单请求
func validateCreatePurchaseRequest(req *domain.CreatePurchaseRequest) error {
	if req.SupplierID <= 0 {
		return errors.New("supplier_id is required")
	}
	if len(req.Items) == 0 {
		return errors.New("items must not be empty")
	}
	for _, item := range req.Items {
		if item.ProductID <= 0 {
			return errors.New("item product_id is required")
		}
		if item.Quantity <= 0 {
			return errors.New("item quantity must be greater than 0")
		}
		if item.UnitCost < 0 {
			return errors.New("item unit_cost cannot be negative")
		}
	}
	if req.PaymentMethod == "" {
		return errors.New("payment_method is required")
	}
	return nil
}
