// Package middleware 提供幂等性中间件
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MorseWayne/shop_ledger/internal/cache"
	"github.com/MorseWayne/shop_ledger/internal/resp"
)

// IdempotencyKeyHeader 客户端携带的幂等键头。
const IdempotencyKeyHeader = "X-Idempotency-Key"

// IdempotencyConfig 幂等性中间件配置
type IdempotencyConfig struct {
	// Cache 存储已见过的幂等键
	Cache cache.Cache

	// TTL 幂等键的保留时长
	TTL time.Duration

	// SkipMethods 跳过检查的HTTP方法
	SkipMethods []string

	Logger *zap.Logger
}

// Idempotency 幂等性中间件。
// 携带 X-Idempotency-Key 的写请求只被接受一次：
// 首次请求通过 SetNX 占位，相同键在 TTL 内的重放直接拒绝。
// 未携带键的请求不做检查，幂等保障由客户端选择启用。
func Idempotency(cfg *IdempotencyConfig) gin.HandlerFunc {
	skip := cfg.SkipMethods
	if skip == nil {
		skip = []string{http.MethodGet, http.MethodHead, http.MethodOptions}
	}

	return func(c *gin.Context) {
		for _, m := range skip {
			if c.Request.Method == m {
				c.Next()
				return
			}
		}

		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		userID := c.GetInt64("user_id")
		cacheKey := idempotencyCacheKey(userID, key)

		ok, err := cfg.Cache.SetNX(c.Request.Context(), cacheKey, 1, cfg.TTL)
		if err != nil {
			// 缓存故障时放行请求：幂等是尽力而为的保护，不应成为可用性单点
			cfg.Logger.Warn("idempotency check failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			requestID := c.GetString("request_id")
			traceID := c.GetString("trace_id")
			resp.Error(c.Writer, http.StatusConflict, resp.CodeConflict, "duplicate request", requestID, traceID)
			c.Abort()
			return
		}

		c.Set("idempotency_key", key)
		c.Next()
	}
}

func idempotencyCacheKey(userID int64, key string) string {
	return fmt.Sprintf("idempotency:%d:%s", userID, key)
}
