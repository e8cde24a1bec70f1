package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles entity caching and per-hub driver availability sets
// in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Cache TTL constants
const (
	TrackingCacheTTL = 30 * time.Second // tracking reads are hot but can go briefly stale
)

// Key prefixes
const (
	trackingCachePrefix = "cache:tracking:"
	hubDriversPrefix    = "hub:available:"
)

// CachedTimelineEntry is one audit entry in the cached tracking view.
type CachedTimelineEntry struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Location  string `json:"location,omitempty"`
	Notes     string `json:"notes,omitempty"`
	Actor     string `json:"actor"`
}

// CachedTracking is the public tracking view cached by tracking number.
type CachedTracking struct {
	DeliveryID     string                `json:"delivery_id"`
	TrackingNumber string                `json:"tracking_number"`
	Status         string                `json:"status"`
	Timeline       []CachedTimelineEntry `json:"timeline"`
	UpdatedAt      string                `json:"updated_at"`
}

// GetTracking retrieves a cached tracking view. A cache miss returns nil, nil.
func (s *CacheStore) GetTracking(ctx context.Context, trackingNumber string) (*CachedTracking, error) {
	key := trackingCachePrefix + trackingNumber
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var tracking CachedTracking
	if err := json.Unmarshal(data, &tracking); err != nil {
		return nil, err
	}
	return &tracking, nil
}

// SetTracking stores a tracking view in cache.
func (s *CacheStore) SetTracking(ctx context.Context, tracking *CachedTracking) error {
	key := trackingCachePrefix + tracking.TrackingNumber
	data, err := json.Marshal(tracking)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, TrackingCacheTTL).Err()
}

// InvalidateTracking removes a tracking view from cache.
func (s *CacheStore) InvalidateTracking(ctx context.Context, trackingNumber string) error {
	key := trackingCachePrefix + trackingNumber
	return s.client.Del(ctx, key).Err()
}

// AddAvailableDriver adds a driver to the hub's availability set.
func (s *CacheStore) AddAvailableDriver(ctx context.Context, hubID, driverID string) error {
	return s.client.SAdd(ctx, hubDriversPrefix+hubID, driverID).Err()
}

// RemoveAvailableDriver removes a driver from the hub's availability set.
func (s *CacheStore) RemoveAvailableDriver(ctx context.Context, hubID, driverID string) error {
	return s.client.SRem(ctx, hubDriversPrefix+hubID, driverID).Err()
}

// CountAvailableDrivers returns the size of the hub's availability set.
// The set is advisory; the database remains the source of truth for
// reservations.
func (s *CacheStore) CountAvailableDrivers(ctx context.Context, hubID string) (int64, error) {
	return s.client.SCard(ctx, hubDriversPrefix+hubID).Result()
}
