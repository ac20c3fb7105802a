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

// StockHandler 库存台账相关的HTTP处理器
type StockHandler struct {
	stockService service.StockService
	logger       *zap.Logger
}

// NewStockHandler 创建库存处理器实例
func NewStockHandler(stockService service.StockService, logger *zap.Logger) *StockHandler {
	return &StockHandler{
		stockService: stockService,
		logger:       logger,
	}
}

// GetStock 查询商品现存量
// GET /api/v1/products/{id}/stock
func (h *StockHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	productID, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid product ID", reqID, "")
		return
	}

	record, err := h.stockService.GetStock(r.Context(), user.ID, productID)
	if err != nil {
		if errors.Is(err, domain.ErrStockRecordNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeNotFound, "stock record not found", reqID, "")
			return
		}

		h.logger.Error("get stock failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get stock failed", reqID, "")
		return
	}

	resp.OK(w, record, reqID, "")
}

// AdjustStock 人工调整库存
// POST /api/v1/products/{id}/stock/adjust
func (h *StockHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	productID, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid product ID", reqID, "")
		return
	}

	var req domain.AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}
	if req.Quantity <= 0 {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "quantity must be greater than 0", reqID, "")
		return
	}

	record, err := h.stockService.AdjustStock(r.Context(), user.ID, user.ID, productID, &req)
	if err != nil {
		h.writeMovementError(w, err, reqID, "adjust stock failed")
		return
	}

	resp.OK(w, record, reqID, "")
}

// ListMovements 分页查询商品的变动历史
// GET /api/v1/products/{id}/movements?page=1&page_size=20
func (h *StockHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	productID, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid product ID", reqID, "")
		return
	}

	req := &domain.MovementListRequest{ProductID: productID}
	req.Page, req.PageSize = parsePagination(r)

	result, err := h.stockService.ListMovements(r.Context(), user.ID, req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidProduct) {
			resp.Error(w, http.StatusNotFound, resp.CodeNotFound, "product not found", reqID, "")
			return
		}

		h.logger.Error("list movements failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list movements failed", reqID, "")
		return
	}

	resp.OK(w, result, reqID, "")
}

// GetLowStockAlerts 查询低库存告警
// GET /api/v1/stock/alerts/low-stock
func (h *StockHandler) GetLowStockAlerts(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	alerts, err := h.stockService.GetLowStockAlerts(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("get low stock alerts failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get low stock alerts failed", reqID, "")
		return
	}

	resp.OK(w, alerts, reqID, "")
}

// writeMovementError 映射台账变动共有的失败类型。
func (h *StockHandler) writeMovementError(w http.ResponseWriter, err error, reqID, fallback string) {
	var insufficientErr *domain.InsufficientStockError
	switch {
	case errors.As(err, &insufficientErr):
		resp.Error(w, http.StatusUnprocessableEntity, resp.CodeInsufficientStock, insufficientErr.Error(), reqID, "")
	case errors.Is(err, domain.ErrInvalidProduct):
		resp.Error(w, http.StatusNotFound, resp.CodeNotFound, "product not found", reqID, "")
	case errors.Is(err, domain.ErrStockRecordNotFound):
		resp.Error(w, http.StatusNotFound, resp.CodeNotFound, "stock record not found", reqID, "")
	case errors.Is(err, domain.ErrInvalidInput):
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid movement", reqID, "")
	default:
		h.logger.Error(fallback, zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, fallback, reqID, "")
	}
}
