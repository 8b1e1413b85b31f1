package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// idem:order:create:{user_id}:{key} -> order_id
	keyIdemOrderCreate = "idem:order:create:%d:%s"

	TTLIdempotency = 24 * time.Hour
)

func NewClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

// 注文の冪等キー → 注文ID。正はDBのunique index、ここは近道
type OrderIdempotencyCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewOrderIdempotencyCache(rdb redis.Cmdable) *OrderIdempotencyCache {
	return &OrderIdempotencyCache{rdb: rdb, ttl: TTLIdempotency}
}

func idemKey(userID int64, key string) string {
	return fmt.Sprintf(keyIdemOrderCreate, userID, key)
}

func (c *OrderIdempotencyCache) Get(ctx context.Context, userID int64, key string) (int64, bool, error) {
	v, err := c.rdb.Get(ctx, idemKey(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("idempotency cache: bad value %q", v)
	}
	return id, true, nil
}

func (c *OrderIdempotencyCache) Set(ctx context.Context, userID int64, key string, orderID int64) error {
	return c.rdb.Set(ctx, idemKey(userID, key), orderID, c.ttl).Err()
}
