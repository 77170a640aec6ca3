package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistPrefix = "auth:denylist:"

// Denylist remembers revoked access token ids until the tokens would have
// expired anyway. A nil Denylist, or one without redis, revokes nothing.
type Denylist struct {
	redis *redis.Client
}

func NewDenylist(rdb *redis.Client) *Denylist {
	return &Denylist{redis: rdb}
}

func (d *Denylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if d == nil || d.redis == nil || tokenID == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return d.redis.Set(ctx, denylistPrefix+tokenID, "1", ttl).Err()
}

func (d *Denylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if d == nil || d.redis == nil || tokenID == "" {
		return false, nil
	}
	n, err := d.redis.Exists(ctx, denylistPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
