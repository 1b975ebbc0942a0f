package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glowdesk/backend-salon/internal/cache"
)

// Cache wraps Redis helpers for JSON payloads.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client or non-positive TTL
// disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || c.ttl <= 0 || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || c.ttl <= 0 || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// CachedLookup fronts item snapshot reads with the Redis cache. Customer and
// appointment reads are never cached: offers and bookings must be fresh at
// session start.
type CachedLookup struct {
	Next  Lookup
	Cache *Cache
}

func itemKey(tenantID, branchID string, itemType ItemType, referenceID string) string {
	return cache.KeyCatalogItem(tenantID, branchID, string(itemType), referenceID)
}

// Item returns a cached snapshot when present, falling through to the
// underlying lookup otherwise. Cache write failures are ignored so a degraded
// Redis never blocks pricing.
func (l CachedLookup) Item(ctx context.Context, tenantID, branchID string, itemType ItemType, referenceID string) (ItemSnapshot, error) {
	key := itemKey(tenantID, branchID, itemType, referenceID)
	var snap ItemSnapshot
	if ok, err := l.Cache.GetJSON(ctx, key, &snap); err == nil && ok {
		return snap, nil
	}
	snap, err := l.Next.Item(ctx, tenantID, branchID, itemType, referenceID)
	if err != nil {
		return ItemSnapshot{}, err
	}
	_ = l.Cache.SetJSON(ctx, key, snap)
	return snap, nil
}

// Customer delegates to the underlying lookup.
func (l CachedLookup) Customer(ctx context.Context, tenantID, customerID string) (CustomerProfile, error) {
	return l.Next.Customer(ctx, tenantID, customerID)
}

// Appointment delegates to the underlying lookup.
func (l CachedLookup) Appointment(ctx context.Context, tenantID, appointmentID string) (Appointment, error) {
	return l.Next.Appointment(ctx, tenantID, appointmentID)
}
