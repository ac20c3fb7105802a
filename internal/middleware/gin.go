// Package middleware 提供标准库中间件到gin处理链的适配。
// 认证、日志等跨切面逻辑用标准库形式实现和测试，
// gin路由通过这里的适配器复用同一份实现。
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MorseWayne/shop_ledger/internal/service"
)

// Adapt 把 func(http.Handler) http.Handler 形式的中间件适配为gin中间件。
// 被适配的中间件拦截请求（未调用内层handler）时，中止gin处理链。
func Adapt(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false
		mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			// 中间件可能派生了新的请求上下文，带给后续的gin处理器
			c.Request = r
		})).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
			return
		}
		c.Next()
	}
}

// AuthGin JWT认证的gin形式。
// 除了注入请求上下文，还把user_id写入gin上下文，
// 供限流和幂等中间件的key生成器使用。
func AuthGin(jwtService service.JWTService, logger *zap.Logger) gin.HandlerFunc {
	authMW := AuthMiddleware(jwtService, logger)
	return func(c *gin.Context) {
		passed := false
		authMW(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
		})).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
			return
		}
		if user := UserFromContext(c.Request.Context()); user != nil {
			c.Set("user_id", user.ID)
		}
		c.Next()
	}
}

// RequireAdminGin 管理员授权的gin形式。
func RequireAdminGin(logger *zap.Logger) gin.HandlerFunc {
	return Adapt(RequireAdmin(logger))
}

// BridgeRequestID 把外层中间件写入请求上下文的request ID同步到gin上下文。
func BridgeRequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		if reqID := RequestIDFromContext(c.Request.Context()); reqID != "" {
			c.Set("request_id", reqID)
		}
		c.Next()
	}
}
