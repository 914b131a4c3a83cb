package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	listCacheKey       = "catalog:products:list"
	productCachePrefix = "catalog:product:"
)

// cachedProductUseCase keeps the product list and single products in Redis.
// Redis is best effort: any cache failure falls through to the wrapped usecase.
type cachedProductUseCase struct {
	next   product.UseCase
	redis  *redis.Client
	ttl    time.Duration
	logger logger.ZapLogger
}

func NewCachedProductUseCase(next product.UseCase, rdb *redis.Client, ttl time.Duration, log logger.ZapLogger) product.UseCase {
	return &cachedProductUseCase{
		next:   next,
		redis:  rdb,
		ttl:    ttl,
		logger: log,
	}
}

func (c *cachedProductUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	p, err := c.next.CreateProduct(ctx, input)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx)
	return p, nil
}

func (c *cachedProductUseCase) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	key := productCachePrefix + id

	var cached model.Product
	if c.load(ctx, key, &cached) {
		return &cached, nil
	}

	p, err := c.next.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, p)
	return p, nil
}

func (c *cachedProductUseCase) ListProducts(ctx context.Context) ([]model.Product, error) {
	var cached []model.Product
	if c.load(ctx, listCacheKey, &cached) {
		return cached, nil
	}

	products, err := c.next.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	c.save(ctx, listCacheKey, products)
	return products, nil
}

// UpdateProduct invalidates on persistence errors too, since the write may have
// reached the database before the error surfaced.
func (c *cachedProductUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	p, err := c.next.UpdateProduct(ctx, input)
	if err == nil || (!errors.Is(err, product.ErrValidation) && !errors.Is(err, product.ErrNotFound)) {
		c.invalidate(ctx, input.ID)
	}
	return p, err
}

func (c *cachedProductUseCase) DeleteProduct(ctx context.Context, id string) error {
	err := c.next.DeleteProduct(ctx, id)
	if err == nil || !errors.Is(err, product.ErrNotFound) {
		c.invalidate(ctx, id)
	}
	return err
}

func (c *cachedProductUseCase) load(ctx context.Context, key string, dst any) bool {
	raw, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *cachedProductUseCase) save(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *cachedProductUseCase) invalidate(ctx context.Context, ids ...string) {
	keys := []string{listCacheKey}
	for _, id := range ids {
		keys = append(keys, productCachePrefix+id)
	}
	if err := c.redis.Del(context.WithoutCancel(ctx), keys...).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
