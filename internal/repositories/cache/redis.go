package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const rateSnapshotKey = "fxmatch:rates:snapshot"

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func NewRedisClient(cfg *RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RateCache stores the last-known exchange-rate table so a restarted
// engine resumes pricing without waiting for a feed refresh.
type RateCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRateCache(client *redis.Client, ttl time.Duration) *RateCache {
	return &RateCache{client: client, ttl: ttl}
}

// SaveRates snapshots the quote table.
func (c *RateCache) SaveRates(ctx context.Context, quotes map[string]decimal.Decimal) error {
	payload := make(map[string]string, len(quotes))
	for pair, rate := range quotes {
		payload[pair] = rate.String()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, rateSnapshotKey, data, c.ttl).Err()
}

// LoadRates returns the saved quote table, or an empty map when no
// snapshot exists.
func (c *RateCache) LoadRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	data, err := c.client.Get(ctx, rateSnapshotKey).Bytes()
	if err == redis.Nil {
		return map[string]decimal.Decimal{}, nil
	}
	if err != nil {
		return nil, err
	}

	var payload map[string]string
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	quotes := make(map[string]decimal.Decimal, len(payload))
	for pair, raw := range payload {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt rate snapshot for %s: %w", pair, err)
		}
		quotes[pair] = rate
	}
	return quotes, nil
}

// Close releases the Redis connection.
func (c *RateCache) Close() error {
	return c.client.Close()
}
