package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/auth-service/internal/core/ports"
)

const denylistPrefix = "denylist:"

// Denylist records revoked token ids until the token would have expired
// anyway.
// Key format: denylist:<jti>
type Denylist struct {
	client *redis.Client
}

var _ ports.TokenDenylist = (*Denylist)(nil)

// NewDenylist creates a Denylist wrapping the given Redis client.
func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client}
}

// Revoke marks the token id as revoked for ttl.
func (d *Denylist) Revoke(ctx context.Context, id string, ttl time.Duration) error {
	if id == "" {
		return errors.New("denylist revoke: empty token id")
	}
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, d.key(id), "1", ttl).Err(); err != nil {
		return fmt.Errorf("denylist revoke: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token id has been revoked.
func (d *Denylist) IsRevoked(ctx context.Context, id string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("denylist check: %w", err)
	}
	return n > 0, nil
}

func (d *Denylist) key(id string) string {
	return denylistPrefix + id
}
