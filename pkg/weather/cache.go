package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cached serves lookups from redis for ttl. Coordinates are rounded to about
// a kilometre so neighbouring devices share an entry.
type Cached struct {
	next   Provider
	rdb    *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

func NewCached(next Provider, rdb *redis.Client, ttl time.Duration, logger *log.Logger) *Cached {
	if logger == nil {
		logger = log.Default()
	}
	return &Cached{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("weather:%.2f:%.2f", lat, lon)
}

func (c *Cached) Lookup(ctx context.Context, lat, lon float64) (Conditions, error) {
	key := cacheKey(lat, lon)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var cond Conditions
		if err := json.Unmarshal(raw, &cond); err == nil {
			return cond, nil
		}
	} else if err != redis.Nil {
		c.logger.Printf("⚠️  weather cache read failed: %v", err)
	}

	cond, err := c.next.Lookup(ctx, lat, lon)
	if err != nil {
		return Conditions{}, err
	}

	if data, err := json.Marshal(cond); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Printf("⚠️  weather cache write failed: %v", err)
		}
	}
	return cond, nil
}
