package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"sparkpro/desk/internal/domain"
)

type RedisCatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(addr string, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisCatalogCache(client *redis.Client, ttl time.Duration) *RedisCatalogCache {
	return &RedisCatalogCache{client: client, ttl: ttl}
}

func (c *RedisCatalogCache) GetProducts(ctx context.Context, tenantID string) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.get(ctx, productsKey(tenantID), &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *RedisCatalogCache) SetProducts(ctx context.Context, tenantID string, products []domain.Product) error {
	return c.set(ctx, productsKey(tenantID), products)
}

func (c *RedisCatalogCache) GetGiftBoxes(ctx context.Context, tenantID string) ([]domain.GiftBox, error) {
	var boxes []domain.GiftBox
	if err := c.get(ctx, giftBoxesKey(tenantID), &boxes); err != nil {
		return nil, err
	}
	return boxes, nil
}

func (c *RedisCatalogCache) SetGiftBoxes(ctx context.Context, tenantID string, boxes []domain.GiftBox) error {
	return c.set(ctx, giftBoxesKey(tenantID), boxes)
}

func (c *RedisCatalogCache) Invalidate(ctx context.Context, tenantID string) error {
	if err := c.client.Del(ctx, productsKey(tenantID), giftBoxesKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *RedisCatalogCache) get(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func (c *RedisCatalogCache) set(ctx context.Context, key string, value any) error {
	if c.ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

type RedisRevocationList struct {
	client *redis.Client
}

func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{client: client}
}

func (l *RedisRevocationList) Revoke(ctx context.Context, token string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := l.client.Set(ctx, revokedKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (l *RedisRevocationList) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := l.client.Exists(ctx, revokedKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	return n > 0, nil
}

func productsKey(tenantID string) string {
	return fmt.Sprintf("catalog:%s:products", tenantID)
}

func giftBoxesKey(tenantID string) string {
	return fmt.Sprintf("catalog:%s:giftboxes", tenantID)
}

func revokedKey(token string) string {
	return "revoked:" + tokenDigest(token)
}
