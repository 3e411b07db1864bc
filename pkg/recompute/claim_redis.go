package recompute

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClaimer coordinates recompute throttling across instances with
// SET NX PX: the first instance to claim a case within the TTL wins.
// On redis errors it fails open so a coordinator outage cannot stop
// intelligence from being recomputed.
type RedisClaimer struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisClaimer connects a claimer to the given redis address.
func NewRedisClaimer(addr string) *RedisClaimer {
	return &RedisClaimer{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		logger: slog.Default().With("component", "recompute_claimer"),
	}
}

// NewRedisClaimerFromClient wraps an existing client (tests).
func NewRedisClaimerFromClient(client *redis.Client) *RedisClaimer {
	return &RedisClaimer{
		client: client,
		logger: slog.Default().With("component", "recompute_claimer"),
	}
}

// TryClaim implements Claimer. A zero ttl always claims.
func (c *RedisClaimer) TryClaim(ctx context.Context, caseID string, ttl time.Duration) bool {
	if ttl <= 0 {
		return true
	}
	ok, err := c.client.SetNX(ctx, "recompute:claim:"+caseID, "1", ttl).Result()
	if err != nil {
		c.logger.Warn("claim check failed, failing open", "case_id", caseID, "error", err)
		return true
	}
	return ok
}

// Close releases the redis connection.
func (c *RedisClaimer) Close() error { return c.client.Close() }
