package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/inventory-api/internal/core/domain"
)

const itemKeyPrefix = "inventory_item_"

// setItemScript writes the snapshot unless the stored one carries a higher version.
var setItemScript = redis.NewScript(`
local key = KEYS[1]
local version = tonumber(ARGV[2])

local current = redis.call('GET', key)
if current then
	local ok, decoded = pcall(cjson.decode, current)
	if ok and type(decoded) == 'table' and tonumber(decoded['version']) and tonumber(decoded['version']) > version then
		return 0
	end
end

redis.call('SET', key, ARGV[1], 'PX', ARGV[3])
return 1
`)

type cachedItem struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Version     int64   `json:"version"`
}

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func ItemKey(id int64) string {
	return itemKeyPrefix + strconv.FormatInt(id, 10)
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisAdapter) GetItem(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	raw, err := r.client.Get(ctx, ItemKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var c cachedItem
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode cached item: %w", err)
	}

	return &domain.InventoryItem{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Quantity:    c.Quantity,
		Price:       c.Price,
		Version:     c.Version,
	}, nil
}

func (r *RedisAdapter) SetItem(ctx context.Context, item domain.InventoryItem, ttl time.Duration) (bool, error) {
	payload, err := json.Marshal(cachedItem{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Quantity:    item.Quantity,
		Price:       item.Price,
		Version:     item.Version,
	})
	if err != nil {
		return false, fmt.Errorf("encode item: %w", err)
	}

	result, err := setItemScript.Run(ctx, r.client, []string{ItemKey(item.ID)}, payload, item.Version, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}

	return result == 1, nil
}

func (r *RedisAdapter) InvalidateItem(ctx context.Context, id int64) error {
	return r.client.Del(ctx, ItemKey(id)).Err()
}
