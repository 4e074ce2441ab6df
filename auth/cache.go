package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"dokq/core"
)

// CachingVerifier wraps another verifier with a bounded TTL cache of
// successful verifications, keyed by token digest. The TTL stays well
// below token lifetime so revocation upstream is only briefly masked.
// Failures are never cached.
type CachingVerifier struct {
	inner Verifier
	cache *expirable.LRU[string, *Identity]
}

func NewCachingVerifier(inner Verifier, size int, ttl time.Duration) *CachingVerifier {
	if size <= 0 {
		size = core.AuthCacheSize
	}
	if ttl <= 0 {
		ttl = core.AuthCacheTTL
	}
	return &CachingVerifier{
		inner: inner,
		cache: expirable.NewLRU[string, *Identity](size, nil, ttl),
	}
}

func (c *CachingVerifier) Name() string { return c.inner.Name() }

func (c *CachingVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	key := digest(token)
	if identity, ok := c.cache.Get(key); ok {
		return identity, nil
	}

	identity, err := c.inner.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, identity)
	return identity, nil
}

// digest keys the cache without retaining raw bearer tokens in memory.
func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
