// Package dedup guards against concurrent pipeline runs for the same
// requester using a Redis SETNX lease. The guard is optional: when Redis is
// not configured the pipeline runs unguarded.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/postloop/content-pipeline/internal/domain"
)

const keyPrefix = "pipeline:inflight:"

// Guard holds an in-flight lease per requester.
type Guard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// NewGuard creates a run guard. The TTL caps how long a crashed run can
// block its requester.
func NewGuard(client *redis.Client, ttl time.Duration) *Guard {
	return &Guard{client: client, ttl: ttl}
}

// Acquire takes the in-flight lease for a requester. Returns
// domain.ErrRunInProgress when another run already holds it.
func (g *Guard) Acquire(ctx context.Context, requesterID string) error {
	ok, err := g.client.SetNX(ctx, keyPrefix+requesterID, "1", g.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire run lease: %w", err)
	}
	if !ok {
		return domain.ErrRunInProgress
	}
	return nil
}

// Release frees the lease after a run finishes, successfully or not.
func (g *Guard) Release(ctx context.Context, requesterID string) {
	// Best effort. The TTL reclaims the lease if the delete fails.
	g.client.Del(ctx, keyPrefix+requesterID)
}
