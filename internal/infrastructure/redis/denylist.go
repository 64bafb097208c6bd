package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist stores revoked jti values as keys that expire with the token
type Denylist struct {
	rdb    *redis.Client
	prefix string
}

// NewDenylist creates a deny-list whose keys start with prefix
func NewDenylist(rdb *redis.Client, prefix string) *Denylist {
	return &Denylist{rdb: rdb, prefix: prefix}
}

func (d *Denylist) key(jti string) string { return d.prefix + "denylist:" + jti }

// Revoke is a no-op for tokens that already expired
func (d *Denylist) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return d.rdb.Set(ctx, d.key(jti), "1", ttl).Err()
}

func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := d.rdb.Exists(ctx, d.key(jti)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
