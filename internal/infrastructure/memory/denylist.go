// Package memory provides in-process implementations for single-instance deployments.
package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// Denylist keeps revoked jti values in process memory until their tokens expire
type Denylist struct {
	cache *cache.Cache
	now   func() time.Time
}

// NewDenylist creates a deny-list that purges expired entries every cleanupInterval
func NewDenylist(cleanupInterval time.Duration) *Denylist {
	return &Denylist{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
		now:   time.Now,
	}
}

// Revoke is a no-op for tokens that already expired
func (d *Denylist) Revoke(_ context.Context, jti string, until time.Time) error {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	d.cache.Set(jti, struct{}{}, ttl)
	return nil
}

func (d *Denylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, found := d.cache.Get(jti)
	return found, nil
}

// Len returns the number of entries, including expired ones not yet purged
func (d *Denylist) Len() int {
	return d.cache.ItemCount()
}
