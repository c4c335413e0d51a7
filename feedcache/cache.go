package feedcache

import (
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"

	"gitlab.com/socialfeed/worker/store"
)

const keyPrefix = "socialfeed:cache:"

// Key identifies one provider's cache entry.
type Key struct {
	ProviderType store.ProviderType
	ProviderID   uint
}

func (k Key) String() string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, k.ProviderType, k.ProviderID)
}

// Cache stores the last successfully fetched raw feed per provider with
// TTL semantics. Expiry is owned by the underlying store.
type Cache struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// New creates a Cache. defaultTTL is used when a Set caller passes no
// explicit lifetime.
func New(redisClient *redis.Client, defaultTTL time.Duration) *Cache {
	return &Cache{
		redis:      redisClient,
		defaultTTL: defaultTTL,
	}
}

// DefaultTTL returns the configured default entry lifetime.
func (c *Cache) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Get returns the cached payload for the key, reporting whether an
// unexpired entry was present.
func (c *Cache) Get(key Key) ([]byte, bool, error) {
	payload, err := c.redis.Get(key.String()).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "failure reading feed cache entry")
	}

	return payload, true, nil
}

// Set overwrites the entry unconditionally. A non-positive ttl uses the
// configured default.
func (c *Cache) Set(key Key, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	err := c.redis.Set(key.String(), payload, ttl).Err()
	if err != nil {
		return errors.Wrap(err, "failure writing feed cache entry")
	}
	return nil
}

// Delete removes the entry for the key. Deleting an absent key is not an
// error.
func (c *Cache) Delete(key Key) error {
	err := c.redis.Del(key.String()).Err()
	if err != nil {
		return errors.Wrap(err, "failure deleting feed cache entry")
	}
	return nil
}
