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

// ProductHandler 商品相关的HTTP处理器
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler 创建商品处理器实例
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// CreateProduct 创建商品（含期初库存）
// POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	var req domain.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	if err := validateCreateProductRequest(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	product, err := h.productService.CreateProduct(r.Context(), user.ID, user.ID, &req)
	if err != nil {
		if errors.Is(err, service.ErrSKUExists) {
			resp.Error(w, http.StatusConflict, resp.CodeConflict, "sku already exists", reqID, "")
			return
		}

		h.logger.Error("create product failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "create product failed", reqID, "")
		return
	}

	resp.OK(w, product, reqID, "")
}

// GetProduct 查询商品及其现存量
// GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid product ID", reqID, "")
		return
	}

	product, err := h.productService.GetProduct(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeNotFound, "product not found", reqID, "")
			return
		}

		h.logger.Error("get product failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get product failed", reqID, "")
		return
	}

	resp.OK(w, product, reqID, "")
}

// UpdateProduct 更新商品（SKU不可变更）
// PUT /api/v1/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	id, ok := pathID(r, 4)
	if !ok {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid product ID", reqID, "")
		return
	}

	var req domain.UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	product, err := h.productService.UpdateProduct(r.Context(), user.ID, id, &req)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeNotFound, "product not found", reqID, "")
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid product fields", reqID, "")
			return
		}

		h.logger.Error("update product failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "update product failed", reqID, "")
		return
	}

	resp.OK(w, product, reqID, "")
}

// ListProducts 分页查询商品
// GET /api/v1/products?page=1&page_size=20&is_active=true&keyword=apple
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := currentUser(w, r, reqID)
	if user == nil {
		return
	}

	req := &domain.ProductListRequest{}
	req.Page, req.PageSize = parsePagination(r)

	query := r.URL.Query()
	if s := query.Get("is_active"); s != "" {
		if v, err := strconv.ParseBool(s); err == nil {
			req.IsActive = &v
		}
	}
	if s := query.Get("keyword"); s != "" {
		req.Keyword = &s
	}

	result, err := h.productService.ListProducts(r.Context(), user.ID, req)
	if err != nil {
		h.logger.Error("list products failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list products failed", reqID, "")
		return
	}

	resp.OK(w, result, reqID, "")
}

// validateCreateProductRequest 验证创建商品请求
func validateCreateProductRequest(req *domain.CreateProductRequest) error {
	if req.Name == "" || len(req.Name) > 255 {
		return errors.New("name must be between 1 and 255 characters")
	}
	if req.SKU == "" || len(req.SKU) > 100 {
		return errors.New("sku must be between 1 and 100 characters")
	}
	if req.Unit == "" || len(req.Unit) > 32 {
		return errors.New("unit must be between 1 and 32 characters")
	}
	if req.PurchasePrice < 0 || req.SellingPrice < 0 {
		return errors.New("prices cannot be negative")
	}
	if req.MinStockLevel < 0 {
		return errors.New("min_stock_level cannot be negative")
	}
	if req.InitialStock < 0 {
		return errors.New("initial_stock cannot be negative")
	}
	return nil
}
