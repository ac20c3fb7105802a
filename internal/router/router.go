// Package router 提供 HTTP 路由设置和中间件配置功能
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MorseWayne/shop_ledger/internal/api"
	"github.com/MorseWayne/shop_ledger/internal/cache"
	"github.com/MorseWayne/shop_ledger/internal/config"
	"github.com/MorseWayne/shop_ledger/internal/limiter"
	"github.com/MorseWayne/shop_ledger/internal/middleware"
	"github.com/MorseWayne/shop_ledger/internal/resp"
	"github.com/MorseWayne/shop_ledger/internal/service"
)

// Dependencies 包含路由设置所需的所有依赖
type Dependencies struct {
	UserHandler     *api.UserHandler
	ProductHandler  *api.ProductHandler
	SupplierHandler *api.SupplierHandler
	StockHandler    *api.StockHandler
	SaleHandler     *api.SaleHandler
	PurchaseHandler *api.PurchaseHandler

	JWTService service.JWTService

	// APILimiter 全局限流（按IP），nil 时不启用
	APILimiter limiter.Limiter
	// WriteLimiter 写接口限流（按用户+路径），nil 时不启用
	WriteLimiter limiter.Limiter
	// IdempotencyCache 幂等键存储，nil 时写接口不做幂等检查
	IdempotencyCache cache.Cache
}

// Setup 设置路由和中间件，返回可挂到 http.Server 的处理器。
// 请求级的跨切面中间件（request ID、恢复、超时、CORS、访问日志）
// 由 cmd 层包在本处理器外面，这里只组织业务路由。
func Setup(cfg *config.Config, deps *Dependencies, lg *zap.Logger) http.Handler {
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(middleware.BridgeRequestID())

	if deps.APILimiter != nil {
		engine.Use(limiter.GlobalRateLimitMiddleware(deps.APILimiter))
	}

	engine.GET("/healthz", func(c *gin.Context) {
		reqID := middleware.RequestIDFromContext(c.Request.Context())
		data := map[string]any{
			"status":  "ok",
			"version": cfg.App.Version,
		}
		resp.OK(c.Writer, &data, reqID, "")
	})

	v1 := engine.Group("/api/v1")

	// 认证路由（无需认证）
	auth := v1.Group("/auth")
	{
		auth.POST("/register", gin.WrapF(deps.UserHandler.Register))
		auth.POST("/login", gin.WrapF(deps.UserHandler.Login))
		auth.POST("/refresh", gin.WrapF(deps.UserHandler.RefreshToken))
	}

	// 业务路由（需要认证，数据按租户隔离）
	authed := v1.Group("")
	authed.Use(middleware.AuthGin(deps.JWTService, lg))

	// 写接口额外套限流和幂等检查
	write := func(h http.HandlerFunc) []gin.HandlerFunc {
		var chain []gin.HandlerFunc
		if deps.WriteLimiter != nil {
			chain = append(chain, limiter.WriteRateLimitMiddleware(deps.WriteLimiter))
		}
		if deps.IdempotencyCache != nil {
			chain = append(chain, middleware.Idempotency(&middleware.IdempotencyConfig{
				Cache:  deps.IdempotencyCache,
				TTL:    24 * time.Hour,
				Logger: lg,
			}))
		}
		return append(chain, gin.WrapF(h))
	}

	authed.GET("/users/profile", gin.WrapF(deps.UserHandler.GetProfile))

	products := authed.Group("/products")
	{
		products.POST("", write(deps.ProductHandler.CreateProduct)...)
		products.GET("", gin.WrapF(deps.ProductHandler.ListProducts))
		products.GET("/:id", gin.WrapF(deps.ProductHandler.GetProduct))
		products.PUT("/:id", write(deps.ProductHandler.UpdateProduct)...)

		products.GET("/:id/stock", gin.WrapF(deps.StockHandler.GetStock))
		products.POST("/:id/stock/adjust", write(deps.StockHandler.AdjustStock)...)
		products.GET("/:id/movements", gin.WrapF(deps.StockHandler.ListMovements))
	}

	authed.GET("/stock/alerts/low-stock", gin.WrapF(deps.StockHandler.GetLowStockAlerts))

	suppliers := authed.Group("/suppliers")
	{
		suppliers.POST("", write(deps.SupplierHandler.CreateSupplier)...)
		suppliers.GET("", gin.WrapF(deps.SupplierHandler.ListSuppliers))
		suppliers.GET("/:id", gin.WrapF(deps.SupplierHandler.GetSupplier))
		suppliers.PUT("/:id", write(deps.SupplierHandler.UpdateSupplier)...)
	}

	sales := authed.Group("/sales")
	{
		sales.POST("", write(deps.SaleHandler.CreateSale)...)
		sales.GET("", gin.WrapF(deps.SaleHandler.ListSales))
		sales.GET("/:id", gin.WrapF(deps.SaleHandler.GetSale))
		sales.POST("/:id/cancel", write(deps.SaleHandler.CancelSale)...)
	}

	purchases := authed.Group("/purchases")
	{
		purchases.POST("", write(deps.PurchaseHandler.CreatePurchase)...)
		purchases.GET("", gin.WrapF(deps.PurchaseHandler.ListPurchases))
		purchases.GET("/:id", gin.WrapF(deps.PurchaseHandler.GetPurchase))
		purchases.POST("/:id/receive", write(deps.PurchaseHandler.ReceivePurchase)...)
		purchases.POST("/:id/cancel", write(deps.PurchaseHandler.CancelPurchase)...)
	}

	// 管理员路由（账号管理，不做租户隔离）
	admin := v1.Group("/admin")
	admin.Use(middleware.AuthGin(deps.JWTService, lg), middleware.RequireAdminGin(lg))

	adminUsers := admin.Group("/users")
	{
		adminUsers.GET("", gin.WrapF(deps.UserHandler.ListUsers))
		adminUsers.PUT("/role", gin.WrapF(deps.UserHandler.UpdateUserRole))
		adminUsers.PUT("/status", gin.WrapF(deps.UserHandler.UpdateUserStatus))
	}

	return engine
}
