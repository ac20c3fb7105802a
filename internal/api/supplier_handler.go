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

// SupplierHandler 供应商相关的HTTP处理器
type SupplierHandler struct {
	supplierService service.SupplierService
	logger          *zap.Logger
}

// NewSupplierHandler 创建供应商处理器实例
func NewSupplierHandler(supplierService service.SupplierService, logger *zap.Logger) *SupplierHandler {
	return &SupplierHandler{
		supplierService: supplierService,
		logger:          logger,
	}
}

// CreateSupplier 创建供应商
// POST /api/v1/suppliers
func (h *SupplierHandler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	var req domain.CreateSupplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	if err := validateCreateSupplierRequest(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	supplier, err := h.supplierService.CreateSupplier(r.Context(), user.ID, &req)
	if err != nil {
		if errors.Is(err, service.ErrSupplierExists) {
			resp.Error(w, http.StatusConflict, resp.CodeConflict, "supplier email or phone already exists", reqID, "")
			return
		}

		h.logger.Error("create supplier failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "create supplier failed", reqID, "")
		return
	}

	resp.OK(w, supplier, reqID, "")
}

// GetSupplier 查询供应商
// GET /api/v1/suppliers/{id}
func (h *SupplierHandler) GetSupplier(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid supplier ID", reqID, "")
		return
	}

	supplier, err := h.supplierService.GetSupplier(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, service.ErrSupplierNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeNotFound, "supplier not found", reqID, "")
			return
		}

		h.logger.Error("get supplier failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get supplier failed", reqID, "")
		return
	}

	resp.OK(w, supplier, reqID, "")
}

// UpdateSupplier 更新供应商
// PUT /api/v1/suppliers/{id}
func (h *SupplierHandler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid supplier ID", reqID, "")
		return
	}

	var req domain.UpdateSupplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	supplier, err := h.supplierService.UpdateSupplier(r.Context(), user.ID, id, &req)
	if err != nil {
		if errors.Is(err, service.ErrSupplierNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeNotFound, "supplier not found", reqID, "")
			return
		}
		if errors.Is(err, service.ErrSupplierExists) {
			resp.Error(w, http.StatusConflict, resp.CodeConflict, "supplier email or phone already exists", reqID, "")
			return
		}

		h.logger.Error("update supplier failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "update supplier failed", reqID, "")
		return
	}

	resp.OK(w, supplier, reqID, "")
}

// ListSuppliers 分页查询供应商
// GET /api/v1/suppliers?page=1&page_size=20&is_active=true
func (h *SupplierHandler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	req := &domain.SupplierListRequest{}
	req.Page, req.PageSize = parsePagination(r)

	if s := r.URL.Query().Get("is_active"); s != "" {
		if v, err := strconv.ParseBool(s); err == nil {
			req.IsActive = &v
		}
	}

	result, err := h.supplierService.ListSuppliers(r.Context(), user.ID, req)
	if err != nil {
		h.logger.Error("list suppliers failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list suppliers failed", reqID, "")
		return
	}

	resp.OK(w, result, reqID, "")
}

// validateCreateSupplierRequest 验证创建供应商请求
func validateCreateSupplierRequest(req *domain.CreateSupplierRequest) error {
	if req.Name == "" || len(req.Name) > 255 {
		return errors.New("name must be between 1 and 255 characters")
	}
	if !isValidEmail(req.Email) {
		return errors.New("invalid email format")
	}
	if len(req.Phone) < 5 || len(req.Phone) > 32 {
		return errors.New("phone must be between 5 and 32 characters")
	}
	return nil
}
