package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MorseWayne/shop_ledger/internal/api"
	"github.com/MorseWayne/shop_ledger/internal/cache"
	"github.com/MorseWayne/shop_ledger/internal/config"
	"github.com/MorseWayne/shop_ledger/internal/database"
	"github.com/MorseWayne/shop_ledger/internal/limiter"
	"github.com/MorseWayne/shop_ledger/internal/logger"
	mw "github.com/MorseWayne/shop_ledger/internal/middleware"
	"github.com/MorseWayne/shop_ledger/internal/mq"
	"github.com/MorseWayne/shop_ledger/internal/repo"
	"github.com/MorseWayne/shop_ledger/internal/router"
	"github.com/MorseWayne/shop_ledger/internal/service"
)

// initConfigAndLogger 初始化配置和日志器
func initConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %v", err)
	}

	lg, err := logger.New(cfg.App.Env, cfg.Log.Level, cfg.Log.Encoding, cfg.App.Name, cfg.App.Version)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %v", err)
	}

	return cfg, lg, nil
}

// initDatabase 初始化数据库连接并执行迁移。
// 迁移在HTTP服务器启动前完成，处理请求时表结构已经就绪。
func initDatabase(cfg *config.Config, lg *zap.Logger) (*database.DB, error) {
	db, err := database.New(cfg, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	migrationsDir := cfg.Migrations.Dir
	lg.Sugar().Infow("using migrations directory", "path", migrationsDir)

	if err := db.RunMigrations(migrationsDir); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %v", err)
	}

	return db, nil
}

// initCache 初始化缓存实例。Redis不可用时退化到进程内缓存。
func initCache(cfg *config.Config, lg *zap.Logger) cache.Cache {
	if !cfg.Cache.Enabled {
		lg.Sugar().Infow("cache disabled")
		return cache.NewNullCache()
	}

	switch cfg.Cache.Type {
	case "redis":
		redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		redisCache, err := cache.NewRedisCache(redisAddr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			lg.Sugar().Warnw("failed to connect to Redis, falling back to memory cache", "error", err)
			return cache.NewMemoryCache()
		}
		lg.Sugar().Infow("cache enabled", "type", "redis", "addr", redisAddr, "ttl", cfg.Cache.TTL)
		return redisCache
	case "memory":
		lg.Sugar().Infow("cache enabled", "type", "memory", "ttl", cfg.Cache.TTL)
		return cache.NewMemoryCache()
	default:
		lg.Sugar().Warnw("unknown cache type, using memory cache", "type", cfg.Cache.Type)
		return cache.NewMemoryCache()
	}
}

// initPublisher 初始化台账事件生产者。
// MQ禁用时返回空实现，发布调用都是无害的空操作。
func initPublisher(cfg *config.Config, lg *zap.Logger) (service.EventPublisher, func(), error) {
	if !cfg.MQ.Enabled {
		lg.Sugar().Infow("mq disabled, movement events will not be published")
		return service.NopEventPublisher{}, func() {}, nil
	}

	mqCfg := mq.DefaultConfig(cfg.MQ.URL, cfg.MQ.Exchange)
	conn, err := mq.Dial(mqCfg, lg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	publisher, err := mq.NewPublisher(conn, mqCfg, lg)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("init mq publisher: %w", err)
	}

	cleanup := func() {
		if err := publisher.Close(); err != nil {
			lg.Sugar().Errorw("failed to close mq publisher", "err", err)
		}
		if err := conn.Close(); err != nil {
			lg.Sugar().Errorw("failed to close mq connection", "err", err)
		}
	}

	lg.Sugar().Infow("mq publisher ready", "exchange", cfg.MQ.Exchange)
	return publisher, cleanup, nil
}

// initLimiters 初始化全局限流和写接口限流。
// 限流状态存放在Redis中，Redis不可用时放弃限流而不是拒绝所有请求。
func initLimiters(cfg *config.Config, lg *zap.Logger) (apiLimiter, writeLimiter limiter.Limiter) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		lg.Sugar().Warnw("redis unavailable, rate limiting disabled", "error", err)
		_ = client.Close()
		return nil, nil
	}

	apiLimiter, err := limiter.NewTokenBucketLimiter(client, &limiter.Config{
		Rate:      cfg.RateLimit.Rate,
		Burst:     cfg.RateLimit.Burst,
		Window:    cfg.RateLimit.Window,
		KeyPrefix: "rl:api",
	})
	if err != nil {
		lg.Sugar().Warnw("invalid rate limit config, rate limiting disabled", "error", err)
		return nil, nil
	}

	// 写接口配额收紧到全局的十分之一，按用户而不是按IP计数
	writeRate := cfg.RateLimit.Rate / 10
	if writeRate < 1 {
		writeRate = 1
	}
	writeBurst := cfg.RateLimit.Burst / 10
	if writeBurst < 1 {
		writeBurst = 1
	}
	writeLimiter, err = limiter.NewTokenBucketLimiter(client, &limiter.Config{
		Rate:      writeRate,
		Burst:     writeBurst,
		Window:    cfg.RateLimit.Window,
		KeyPrefix: "rl:write",
	})
	if err != nil {
		lg.Sugar().Warnw("invalid write rate limit config", "error", err)
		return apiLimiter, nil
	}

	lg.Sugar().Infow("rate limiting enabled",
		"rate", cfg.RateLimit.Rate, "burst", cfg.RateLimit.Burst, "window", cfg.RateLimit.Window)
	return apiLimiter, writeLimiter
}

// initDependencies 初始化依赖注入链：仓储 -> 服务 -> API处理器
func initDependencies(
	cfg *config.Config,
	db *database.DB,
	cacheInstance cache.Cache,
	publisher service.EventPublisher,
	lg *zap.Logger,
) *router.Dependencies {
	userRepo := repo.NewUserRepository(db.DB)
	supplierRepo := repo.NewSupplierRepository(db.DB)
	stockRepo := repo.NewStockRepository(db.DB)
	saleRepo := repo.NewSaleRepository(db.DB)
	purchaseRepo := repo.NewPurchaseRepository(db.DB)
	seqRepo := repo.NewSequenceRepository(db.DB)
	tx := repo.NewTxRunner(db.DB)

	// 商品读多写少，缓存启用时套缓存装饰器
	var productRepo repo.ProductRepository = repo.NewProductRepository(db.DB)
	if cfg.Cache.Enabled {
		productRepo = repo.NewCachedProductRepository(productRepo, cacheInstance, cfg.Cache.TTL, lg)
	}

	userService := service.NewUserService(userRepo, lg)
	jwtService := service.NewJWTService(cfg, userRepo, lg)
	productService := service.NewProductService(productRepo, stockRepo, tx, lg)
	supplierService := service.NewSupplierService(supplierRepo, lg)
	stockService := service.NewStockService(stockRepo, productRepo, tx, publisher, lg)
	saleService := service.NewSaleService(saleRepo, productRepo, stockRepo, seqRepo, tx, publisher, lg)
	purchaseService := service.NewPurchaseService(
		purchaseRepo, supplierRepo, productRepo, stockRepo, seqRepo, tx, publisher, lg)

	deps := &router.Dependencies{
		UserHandler:     api.NewUserHandler(userService, jwtService, lg),
		ProductHandler:  api.NewProductHandler(productService, lg),
		SupplierHandler: api.NewSupplierHandler(supplierService, lg),
		StockHandler:    api.NewStockHandler(stockService, lg),
		SaleHandler:     api.NewSaleHandler(saleService, lg),
		PurchaseHandler: api.NewPurchaseHandler(purchaseService, lg),
		JWTService:      jwtService,
	}

	// 幂等键需要真实的共享存储，缓存禁用时跳过幂等检查
	if cfg.Cache.Enabled {
		deps.IdempotencyCache = cacheInstance
	}

	deps.APILimiter, deps.WriteLimiter = initLimiters(cfg, lg)

	return deps
}

// setupHandler 组装业务路由并包上跨切面中间件。
// 请求进入时执行顺序为 access log → CORS → timeout → recovery → request ID
func setupHandler(cfg *config.Config, deps *router.Dependencies, lg *zap.Logger) http.Handler {
	handler := mw.RequestID(router.Setup(cfg, deps, lg))
	handler = mw.Recovery(lg)(handler)
	handler = mw.Timeout(cfg.App.RequestTimeout)(handler)
	handler = mw.CORS(mw.CORSConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: cfg.CORS.AllowedMethods,
		AllowedHeaders: cfg.CORS.AllowedHeaders,
	})(handler)
	handler = mw.AccessLog(lg)(handler)
	return handler
}

// startServer 启动服务器并处理优雅关闭
func startServer(cfg *config.Config, handler http.Handler, lg *zap.Logger) {
	addr := fmt.Sprintf(":%d", cfg.App.Port)
	lg.Sugar().Infow("server starting", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	select {
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			lg.Sugar().Fatalw("server error", "err", err)
		}
	case <-quit:
		lg.Sugar().Infow("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Sugar().Errorw("server shutdown error", "err", err)
	}
	lg.Sugar().Infow("server exited")
}

// main 为应用入口，协调各个组件的初始化和启动
func main() {
	// 1) 加载配置和初始化日志
	cfg, lg, err := initConfigAndLogger()
	if err != nil {
		log.Fatalf("failed to initialize config and logger: %v", err)
	}

	// 2) 初始化数据库连接并执行迁移
	db, err := initDatabase(cfg, lg)
	if err != nil {
		lg.Sugar().Fatalw("failed to initialize database", "err", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			lg.Sugar().Errorw("failed to close database connection", "err", err)
		}
	}()

	// 3) 初始化缓存
	cacheInstance := initCache(cfg, lg)

	// 4) 初始化台账事件生产者
	publisher, mqCleanup, err := initPublisher(cfg, lg)
	if err != nil {
		lg.Sugar().Fatalw("failed to initialize mq publisher", "err", err)
	}
	defer mqCleanup()

	// 5) 初始化应用依赖（仓储、服务、处理器）
	deps := initDependencies(cfg, db, cacheInstance, publisher, lg)

	// 6) 设置路由和中间件
	handler := setupHandler(cfg, deps, lg)

	// 7) 启动 HTTP 服务器
	startServer(cfg, handler, lg)
}
