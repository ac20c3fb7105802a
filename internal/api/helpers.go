// Package api 提供HTTP API处理器实现。
// API层负责解析请求、做基础校验，并把服务层错误映射为稳定的响应码。
package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MorseWayne/shop_ledger/internal/domain"
	"github.com/MorseWayne/shop_ledger/internal/middleware"
	"github.com/MorseWayne/shop_ledger/internal/resp"
)

// pathID 从URL路径中按段取出数字ID。
// 例如 /api/v1/sales/42/cancel 中 idx=4 对应 "42"。
func pathID(r *http.Request, idx int) (int64, bool) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) <= idx {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[idx], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// currentUser 从请求上下文取出已认证用户。
// 返回 nil 时已写出 401 响应，调用方直接 return 即可。
func currentUser(w http.ResponseWriter, r *http.Request, reqID string) *domain.User {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		resp.Error(w, http.StatusUnauthorized, resp.CodeUnauthorized, "authentication required", reqID, "")
		return nil
	}
	return user
}

// parsePagination 解析分页查询参数，非法值回落到默认值。
func parsePagination(r *http.Request) (page, pageSize int) {
	page, pageSize = 1, 20
	query := r.URL.Query()

	if s := query.Get("page"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			page = v
		}
	}
	if s := query.Get("page_size"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}
	return page, pageSize
}
