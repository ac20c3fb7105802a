package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/MorseWayne/shop_ledger/internal/domain"
	"github.com/MorseWayne/shop_ledger/internal/middleware"
	"github.com/MorseWayne/shop_ledger/internal/resp"
	"github.com/MorseWayne/shop_ledger/internal/service"
)

// SaleHandler 销售单相关的HTTP处理器
type SaleHandler struct {
	saleService service.SaleService
	logger      *zap.Logger
}

// NewSaleHandler 创建销售处理器实例
func NewSaleHandler(saleService service.SaleService, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{
		saleService: saleService,
		logger:      logger,
	}
}

// CreateSale 创建销售单
// POST /api/v1/sales
func (h *SaleHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	var req domain.CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	if err := validateCreateSaleRequest(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	sale, err := h.saleService.CreateSale(r.Context(), user.ID, user.ID, &req)
	if err != nil {
		var insufficientErr *domain.InsufficientStockError
		switch {
		case errors.As(err, &insufficientErr):
			resp.Error(w, http.StatusUnprocessableEntity, resp.CodeInsufficientStock, insufficientErr.Error(), reqID, "")
		case errors.Is(err, domain.ErrInvalidProduct):
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "product not found or inactive", reqID, "")
		case errors.Is(err, domain.ErrStockRecordNotFound):
			resp.Error(w, http.StatusNotFound, resp.CodeNotFound, "stock record not found", reqID, "")
		default:
			h.logger.Error("create sale failed", zap.String("request_id", reqID), zap.Error(err))
			resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "create sale failed", reqID, "")
		}
		return
	}

	resp.OK(w, sale, reqID, "")
}

// GetSale 查询销售单
// GET /api/v1/sales/{id}
func (h *SaleHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid sale ID", reqID, "")
		return
	}

	sale, err := h.saleService.GetSale(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, service.ErrSaleNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeNotFound, "sale not found", reqID, "")
			return
		}

		h.logger.Error("get sale failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get sale failed", reqID, "")
		return
	}

	resp.OK(w, sale, reqID, "")
}

// CancelSale 取消销售单并回补库存
// POST /api/v1/sales/{id}/cancel
func (h *SaleHandler) CancelSale(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid sale ID", reqID, "")
		return
	}

	sale, err := h.saleService.CancelSale(r.Context(), user.ID, user.ID, id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSaleNotFound):
			resp.Error(w, http.StatusNotFound, resp.CodeNotFound, "sale not found", reqID, "")
		case errors.Is(err, service.ErrSaleNotCancellable):
			resp.Error(w, http.StatusUnprocessableEntity, resp.CodeInvalidState, "sale is not cancellable", reqID, "")
		default:
			h.logger.Error("cancel sale failed", zap.String("request_id", reqID), zap.Error(err))
			resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "cancel sale failed", reqID, "")
		}
		return
	}

	resp.OK(w, sale, reqID, "")
}

// ListSales 分页查询销售单
// GET /api/v1/sales?page=1&page_size=20&status=completed
func (h *SaleHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	req := &domain.SaleListRequest{}
	req.Page, req.PageSize = parsePagination(r)

	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.SaleStatus(s)
		if status != domain.SaleStatusCompleted && status != domain.SaleStatusCancelled {
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid sale status", reqID, "")
			return
		}
		req.Status = &status
	}

	result, err := h.saleService.ListSales(r.Context(), user.ID, req)
	if err != nil {
		h.logger.Error("list sales failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list sales failed", reqID, "")
		return
	}

	resp.OK(w, result, reqID, "")
}

// validateCreateSaleRequest 验证创建销售单请求
func validateCreateSaleRequest(req *domain.CreateSaleRequest) error {
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
		if item.UnitPrice < 0 {
			return errors.New("item unit_price cannot be negative")
		}
	}
	if req.PaymentMethod == "" {
		return errors.New("payment_method is required")
	}
	return nil
}
