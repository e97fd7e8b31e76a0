// Package catalog is the read-through product cache used when pricing new
// order items and populating the storefront product selector.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/foodboard/api/internal/database"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

const (
	productKeyPrefix = "catalog:product:"
	productsKey      = "catalog:products"
)

// Source is the authoritative product store. Satisfied by *database.Queries.
type Source interface {
	GetProduct(ctx context.Context, id int64) (database.Product, error)
	ListActiveProducts(ctx context.Context) ([]database.Product, error)
}

// Cache reads through redis to Source. With a nil redis client every call
// goes straight to Source. Redis failures are logged and never surface.
type Cache struct {
	src    Source
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(src Source, rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{src: src, rdb: rdb, ttl: ttl, logger: logger.With("component", "catalog")}
}

type cachedProduct struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Active    bool            `json:"active"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toCached(p database.Product) cachedProduct {
	return cachedProduct{ID: p.ID, Name: p.Name, Price: p.Price, Active: p.Active, UpdatedAt: p.UpdatedAt}
}

func (c cachedProduct) product() database.Product {
	return database.Product{ID: c.ID, Name: c.Name, Price: c.Price, Active: c.Active, UpdatedAt: c.UpdatedAt}
}

func productKey(id int64) string {
	return fmt.Sprintf("%s%d", productKeyPrefix, id)
}

func (c *Cache) GetProduct(ctx context.Context, id int64) (database.Product, error) {
	var cached cachedProduct
	if c.load(ctx, productKey(id), &cached) {
		return cached.product(), nil
	}

	p, err := c.src.GetProduct(ctx, id)
	if err != nil {
		return database.Product{}, err
	}
	c.store(ctx, productKey(id), toCached(p))
	return p, nil
}

func (c *Cache) ListActiveProducts(ctx context.Context) ([]database.Product, error) {
	var cached []cachedProduct
	if c.load(ctx, productsKey, &cached) {
		out := make([]database.Product, len(cached))
		for i, cp := range cached {
			out[i] = cp.product()
		}
		return out, nil
	}

	products, err := c.src.ListActiveProducts(ctx)
	if err != nil {
		return nil, err
	}
	toStore := make([]cachedProduct, len(products))
	for i, p := range products {
		toStore[i] = toCached(p)
	}
	c.store(ctx, productsKey, toStore)
	return products, nil
}

// Invalidate drops every cached catalog entry.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	keys := []string{productsKey}
	iter := c.rdb.Scan(ctx, 0, productKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan catalog keys: %w", err)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete catalog keys: %w", err)
	}
	c.logger.Info("catalog cache invalidated", "keys", len(keys))
	return nil
}

func (c *Cache) load(ctx context.Context, key string, dst any) bool {
	if c.rdb == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("catalog cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn("catalog cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Cache) store(ctx context.Context, key string, v any) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", "key", key, "error", err)
	}
}
