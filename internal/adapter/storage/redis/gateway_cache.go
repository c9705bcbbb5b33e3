package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// GatewayCache implements ports.GatewayCache. Only responses for transactions
// in a final state are written, so entries never go stale before their TTL.
type GatewayCache struct {
	client *goredis.Client
	prefix string
}

func NewGatewayCache(client *goredis.Client) *GatewayCache {
	return &GatewayCache{
		client: client,
		prefix: "wompi:tx:",
	}
}

// Get returns nil, nil on a miss.
func (c *GatewayCache) Get(ctx context.Context, transactionID string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+transactionID).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis gateway cache get: %w", err)
	}
	return val, nil
}

func (c *GatewayCache) Set(ctx context.Context, transactionID string, payload []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+transactionID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis gateway cache set: %w", err)
	}
	return nil
}
