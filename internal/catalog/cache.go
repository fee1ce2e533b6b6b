package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const warmKey = "catalog:snapshot"

// Cache persists the latest catalog snapshot to Redis so a restarted process
// can serve quotes before its first CRM fetch completes.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

type warmPayload struct {
	Products  []Product `json:"products"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Load restores the warm snapshot. It reports whether one was present.
func (c *Cache) Load(ctx context.Context) (Snapshot, bool, error) {
	if c == nil || c.client == nil {
		return Snapshot{}, false, nil
	}
	data, err := c.client.Get(ctx, warmKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}
	var payload warmPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Snapshot{}, false, err
	}
	return NewSnapshot(payload.Products, payload.FetchedAt), true, nil
}

// Save persists the snapshot with the configured TTL.
func (c *Cache) Save(ctx context.Context, snap Snapshot) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(warmPayload{Products: snap.Products(), FetchedAt: snap.FetchedAt()})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, warmKey, data, c.ttl).Err()
}
