package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist records access-token jtis revoked before their natural expiry.
// Logout is the only writer.
type Denylist interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) (bool, error)
}

// RedisDenylist implements Denylist on Redis. Entries carry a TTL equal to
// the token's remaining lifetime, so the set stays small without any
// cleanup job.
type RedisDenylist struct {
	client *redis.Client
}

// NewRedisDenylist constructs a RedisDenylist.
func NewRedisDenylist(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: client}
}

var _ Denylist = (*RedisDenylist)(nil)

func denylistKey(jti string) string {
	return "auth:denylist:" + jti
}

func (d *RedisDenylist) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		// Token already expired; nothing to deny.
		return nil
	}
	return d.client.Set(ctx, denylistKey(jti), "1", ttl).Err()
}

func (d *RedisDenylist) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := d.client.Exists(ctx, denylistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
