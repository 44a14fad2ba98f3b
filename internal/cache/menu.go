// Package cache fronts slow reads with redis. Redis is never authoritative:
// any cache failure falls through to the backing store.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/Vivek-k24/foodbiz/internal/logger"
	"github.com/Vivek-k24/foodbiz/internal/models"
)

const DefaultTTL = 300 * time.Second

type menuBackend interface {
	GetMenu(ctx context.Context, restaurantID string) (models.Menu, error)
}

// MenuCache keeps the current menu version per restaurant and one payload per
// version, so a menu update only needs to bump the version key.
type MenuCache struct {
	base   menuBackend
	redis  *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewMenuCache wraps base. A nil client disables caching.
func NewMenuCache(base menuBackend, client *redis.Client, ttl time.Duration, log *logger.Logger) *MenuCache {
	if base == nil {
		panic("cache.NewMenuCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &MenuCache{base: base, redis: client, ttl: ttl, logger: log}
}

func (c *MenuCache) GetMenu(ctx context.Context, restaurantID string) (models.Menu, error) {
	if menu, ok := c.load(ctx, restaurantID); ok {
		return menu, nil
	}

	menu, err := c.base.GetMenu(ctx, restaurantID)
	if err != nil {
		return models.Menu{}, err
	}

	c.store(ctx, menu)
	return menu, nil
}

func (c *MenuCache) load(ctx context.Context, restaurantID string) (models.Menu, bool) {
	if c.redis == nil {
		return models.Menu{}, false
	}
	raw, err := c.redis.Get(ctx, VersionKey(restaurantID)).Result()
	if err != nil {
		c.warn(err, restaurantID)
		return models.Menu{}, false
	}
	version, err := strconv.Atoi(raw)
	if err != nil {
		return models.Menu{}, false
	}

	data, err := c.redis.Get(ctx, PayloadKey(restaurantID, version)).Bytes()
	if err != nil {
		c.warn(err, restaurantID)
		return models.Menu{}, false
	}
	var menu models.Menu
	if err := sonic.Unmarshal(data, &menu); err != nil {
		_ = c.redis.Del(ctx, PayloadKey(restaurantID, version)).Err()
		return models.Menu{}, false
	}
	return menu, true
}

func (c *MenuCache) store(ctx context.Context, menu models.Menu) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(menu)
	if err != nil {
		return
	}
	_, err = c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, VersionKey(menu.RestaurantID), strconv.Itoa(menu.Version), c.ttl)
		pipe.Set(ctx, PayloadKey(menu.RestaurantID, menu.Version), data, c.ttl)
		return nil
	})
	if err != nil {
		c.warn(err, menu.RestaurantID)
	}
}

func (c *MenuCache) warn(err error, restaurantID string) {
	if errors.Is(err, redis.Nil) {
		return
	}
	c.logger.Warn("menu_cache_unavailable", "Menu cache failed, using store", "", map[string]interface{}{
		"restaurant_id": restaurantID,
		"error":         err.Error(),
	})
}

func VersionKey(restaurantID string) string {
	return "menu:" + restaurantID + ":version"
}

func PayloadKey(restaurantID string, version int) string {
	return "menu:" + restaurantID + ":v" + strconv.Itoa(version)
}
