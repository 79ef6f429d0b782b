package stock

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/storefront-kit/checkout/internal/checkout"
)

var _ checkout.StockService = (*RedisService)(nil)

// reduceScript atomically checks the level and decrements it, so two
// concurrent checkouts cannot both take the last unit.
//
// KEYS[1]: the stock key, e.g. "stock:prod_1"
// ARGV[1]: the quantity to remove
//
// Returns the remaining level, or -1 when the level is missing or too low.
var reduceScript = redis.NewScript(`
local level = tonumber(redis.call('get', KEYS[1]))
local qty = tonumber(ARGV[1])
if level == nil or level < qty then
    return -1
end
return redis.call('decrby', KEYS[1], qty)
`)

// RedisService keeps stock levels as plain integer keys in Redis.
type RedisService struct {
	client *redis.Client
}

// NewRedisService returns a stock service backed by the given Redis client.
func NewRedisService(client *redis.Client) *RedisService {
	return &RedisService{client: client}
}

func (s *RedisService) key(itemID string) string {
	return "stock:" + itemID
}

// CheckStock reports whether quantity units of itemID are available.
// A missing key means the product is unknown and therefore unavailable.
func (s *RedisService) CheckStock(ctx context.Context, itemID string, quantity int) (bool, error) {
	level, err := s.client.Get(ctx, s.key(itemID)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stock: check %q: %w", itemID, err)
	}

	return level >= quantity, nil
}

// ReduceStock atomically decrements the level of itemID by quantity.
func (s *RedisService) ReduceStock(ctx context.Context, itemID string, quantity int) error {
	remaining, err := reduceScript.Run(ctx, s.client, []string{s.key(itemID)}, quantity).Int()
	if err != nil {
		return fmt.Errorf("stock: reduce %q: %w", itemID, err)
	}
	if remaining < 0 {
		return fmt.Errorf("stock: reduce %q by %d: insufficient level", itemID, quantity)
	}

	return nil
}

// Seed sets the stock level for itemID. Intended for bootstrap and tests.
func (s *RedisService) Seed(ctx context.Context, itemID string, quantity int) error {
	if err := s.client.Set(ctx, s.key(itemID), quantity, 0).Err(); err != nil {
		return fmt.Errorf("stock: seed %q: %w", itemID, err)
	}
	return nil
}
