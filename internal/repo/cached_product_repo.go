// Package repo 实现带缓存的商品仓储装饰器。
package repo

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MorseWayne/shop_ledger/internal/cache"
	"github.com/MorseWayne/shop_ledger/internal/domain"
)

// cachedProductRepo 在 ProductRepository 外包一层读缓存。
// 只缓存按 ID/SKU 的单点读取，列表查询始终落库。
// 缓存失效采用写后删除；缓存故障只记日志不阻断请求。
type cachedProductRepo struct {
	inner  ProductRepository
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProductRepository 创建带缓存的商品仓储。
func NewCachedProductRepository(inner ProductRepository, c cache.Cache, ttl time.Duration, logger *zap.Logger) ProductRepository {
	return &cachedProductRepo{inner: inner, cache: c, ttl: ttl, logger: logger}
}

func productKey(ownerID, id int64) string {
	return fmt.Sprintf("product:%d:%d", ownerID, id)
}

func productSKUKey(ownerID int64, sku string) string {
	return fmt.Sprintf("product:%d:sku:%s", ownerID, sku)
}

func (r *cachedProductRepo) Create(ctx context.Context, q Querier, product *domain.Product) error {
	return r.inner.Create(ctx, q, product)
}

func (r *cachedProductRepo) GetByID(ctx context.Context, ownerID, id int64) (*domain.Product, error) {
	key := productKey(ownerID, id)

	var cached domain.Product
	if err := r.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if err != cache.ErrCacheMiss {
		r.logger.Warn("product cache read failed", zap.String("key", key), zap.Error(err))
	}

	product, err := r.inner.GetByID(ctx, ownerID, id)
	if err != nil || product == nil {
		return product, err
	}

	if err := r.cache.Set(ctx, key, product, r.ttl); err != nil {
		r.logger.Warn("product cache write failed", zap.String("key", key), zap.Error(err))
	}
	return product, nil
}

func (r *cachedProductRepo) GetBySKU(ctx context.Context, ownerID int64, sku string) (*domain.Product, error) {
	key := productSKUKey(ownerID, sku)

	var cached domain.Product
	if err := r.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if err != cache.ErrCacheMiss {
		r.logger.Warn("product cache read failed", zap.String("key", key), zap.Error(err))
	}

	product, err := r.inner.GetBySKU(ctx, ownerID, sku)
	if err != nil || product == nil {
		return product, err
	}

	if err := r.cache.Set(ctx, key, product, r.ttl); err != nil {
		r.logger.Warn("product cache write failed", zap.String("key", key), zap.Error(err))
	}
	return product, nil
}

func (r *cachedProductRepo) Update(ctx context.Context, product *domain.Product) error {
	if err := r.inner.Update(ctx, product); err != nil {
		return err
	}

	keys := []string{
		productKey(product.OwnerID, product.ID),
		productSKUKey(product.OwnerID, product.SKU),
	}
	if err := r.cache.Del(ctx, keys...); err != nil {
		r.logger.Warn("product cache invalidation failed", zap.Int64("product_id", product.ID), zap.Error(err))
	}
	return nil
}

func (r *cachedProductRepo) List(ctx context.Context, ownerID int64, req *domain.ProductListRequest) ([]*domain.Product, int64, error) {
	return r.inner.List(ctx, ownerID, req)
}
