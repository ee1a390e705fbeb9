package cache

import (
	"context"
	"encoding/json"

	"github.com/dyoon/shopcart-backend/config"
	"github.com/dyoon/shopcart-backend/internal/app/model"
	"github.com/dyoon/shopcart-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	cartKeyPrefix         = "cart:"
	userOwnerKeyPrefix    = "cart:owner:user:"
	sessionOwnerKeyPrefix = "cart:owner:session:"
)

// CartCache accelerates cart reads. It is never a source of truth: every
// miss or backend failure surfaces as a plain miss and the caller falls
// back to the store. Failures are logged and swallowed here.
type CartCache interface {
	GetCart(ctx context.Context, cartID string) (*model.Cart, bool)
	GetOwnerCartID(ctx context.Context, ownerKey string) (string, bool)
	// SetCart rewrites the serialized payload and the owner mapping
	// together, so the two can drift for at most one TTL window.
	SetCart(ctx context.Context, cart *model.Cart)
	DeleteCart(ctx context.Context, cart *model.Cart)
	InvalidateOwner(ctx context.Context, ownerKey string)
	InvalidatePattern(ctx context.Context, glob string)
}

// UserOwnerKey maps a user id to its cached cart id.
func UserOwnerKey(userID string) string {
	return userOwnerKeyPrefix + userID
}

// SessionOwnerKey maps an anonymous session id to its cached cart id.
func SessionOwnerKey(sessionID string) string {
	return sessionOwnerKeyPrefix + sessionID
}

func cartKey(cartID string) string {
	return cartKeyPrefix + cartID
}

type redisCartCache struct {
	client *redis.Client
	ttl    config.CacheConfig
}

func NewRedisCartCache(client *redis.Client, ttl config.CacheConfig) CartCache {
	return &redisCartCache{client: client, ttl: ttl}
}

func (c *redisCartCache) GetCart(ctx context.Context, cartID string) (*model.Cart, bool) {
	payload, err := c.client.Get(ctx, cartKey(cartID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Warn("Cart cache read failed, falling back to store", map[string]interface{}{
			"cart_id": cartID,
			"error":   err.Error(),
		})
		return nil, false
	}

	var cart model.Cart
	if err := json.Unmarshal(payload, &cart); err != nil {
		logger.Warn("Cart cache payload corrupt, dropping entry", map[string]interface{}{
			"cart_id": cartID,
			"error":   err.Error(),
		})
		c.client.Del(ctx, cartKey(cartID))
		return nil, false
	}

	// A cached cart was loaded from the store at some point; its methods
	// must behave identically to a store-loaded instance.
	cart.Persisted = true
	return &cart, true
}

func (c *redisCartCache) GetOwnerCartID(ctx context.Context, ownerKey string) (string, bool) {
	cartID, err := c.client.Get(ctx, ownerKey).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		logger.Warn("Owner mapping cache read failed, falling back to store", map[string]interface{}{
			"owner_key": ownerKey,
			"error":     err.Error(),
		})
		return "", false
	}
	return cartID, true
}

func (c *redisCartCache) SetCart(ctx context.Context, cart *model.Cart) {
	payload, err := json.Marshal(cart)
	if err != nil {
		logger.Warn("Failed to serialize cart for cache", map[string]interface{}{
			"cart_id": cart.ID,
			"error":   err.Error(),
		})
		return
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, cartKey(cart.ID), payload, c.ttl.CartTTL)
	if cart.UserID != nil {
		pipe.Set(ctx, UserOwnerKey(*cart.UserID), cart.ID, c.ttl.UserOwnerTTL)
	}
	if cart.SessionID != nil {
		pipe.Set(ctx, SessionOwnerKey(*cart.SessionID), cart.ID, c.ttl.SessionOwnerTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn("Cart cache write failed, store remains authoritative", map[string]interface{}{
			"cart_id": cart.ID,
			"error":   err.Error(),
		})
	}
}

func (c *redisCartCache) DeleteCart(ctx context.Context, cart *model.Cart) {
	keys := []string{cartKey(cart.ID)}
	if cart.UserID != nil {
		keys = append(keys, UserOwnerKey(*cart.UserID))
	}
	if cart.SessionID != nil {
		keys = append(keys, SessionOwnerKey(*cart.SessionID))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("Cart cache delete failed", map[string]interface{}{
			"cart_id": cart.ID,
			"error":   err.Error(),
		})
	}
}

func (c *redisCartCache) InvalidateOwner(ctx context.Context, ownerKey string) {
	if err := c.client.Del(ctx, ownerKey).Err(); err != nil {
		logger.Warn("Owner mapping cache delete failed", map[string]interface{}{
			"owner_key": ownerKey,
			"error":     err.Error(),
		})
	}
}

// InvalidatePattern removes every key matching the glob via SCAN so large
// keyspaces are walked incrementally instead of blocking the server.
func (c *redisCartCache) InvalidatePattern(ctx context.Context, glob string) {
	iter := c.client.Scan(ctx, 0, glob, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			c.client.Del(ctx, keys...)
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		logger.Warn("Cache pattern scan failed", map[string]interface{}{
			"pattern": glob,
			"error":   err.Error(),
		})
		return
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			logger.Warn("Cache pattern delete failed", map[string]interface{}{
				"pattern": glob,
				"error":   err.Error(),
			})
		}
	}
}

// Noop satisfies CartCache when Redis is disabled; every read is a miss and
// every write a no-op, leaving the store as the only path.
type Noop struct{}

func NewNoop() CartCache {
	return Noop{}
}

func (Noop) GetCart(context.Context, string) (*model.Cart, bool)    { return nil, false }
func (Noop) GetOwnerCartID(context.Context, string) (string, bool)  { return "", false }
func (Noop) SetCart(context.Context, *model.Cart)                   {}
func (Noop) DeleteCart(context.Context, *model.Cart)                {}
func (Noop) InvalidateOwner(context.Context, string)                {}
func (Noop) InvalidatePattern(context.Context, string)              {}
