package certificate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/abhisek/coursekit/internal/progress"
)

// CacheKey is the local KV key holding issued records by course id.
const CacheKey = "certificates"

// Cache keeps issued records locally so they can be shown offline.
type Cache struct {
	mu sync.Mutex
	kv progress.KVStore
}

// NewCache returns a cache backed by kv.
func NewCache(kv progress.KVStore) *Cache {
	return &Cache{kv: kv}
}

func (c *Cache) load(ctx context.Context) (map[string]Record, error) {
	raw, ok, err := c.kv.GetString(ctx, CacheKey)
	if err != nil {
		return nil, err
	}
	records := map[string]Record{}
	if !ok || raw == "" {
		return records, nil
	}
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		// A corrupt cache is rebuilt from the remote store on demand.
		return map[string]Record{}, nil
	}
	return records, nil
}

// Get returns the cached record for courseID.
func (c *Cache) Get(ctx context.Context, courseID string) (Record, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	records, err := c.load(ctx)
	if err != nil {
		return Record{}, false, fmt.Errorf("read certificate cache: %w", err)
	}
	rec, ok := records[courseID]
	return rec, ok, nil
}

// Put stores rec under its course id.
func (c *Cache) Put(ctx context.Context, rec Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	records, err := c.load(ctx)
	if err != nil {
		return fmt.Errorf("read certificate cache: %w", err)
	}
	records[rec.CourseID] = rec
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode certificate cache: %w", err)
	}
	if err := c.kv.SetString(ctx, CacheKey, string(data)); err != nil {
		return fmt.Errorf("write certificate cache: %w", err)
	}
	return nil
}

// Clear drops every cached record.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Remove(ctx, CacheKey)
}
