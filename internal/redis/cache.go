package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// CarCacheTTL is short because inventory moves with every rental.
const CarCacheTTL = 10 * time.Second

const carCachePrefix = "cache:car:"

// CachedCar represents a cached car entity.
type CachedCar struct {
	ID        string `json:"id"`
	Brand     string `json:"brand"`
	Model     string `json:"model"`
	Type      string `json:"type"`
	Inventory int    `json:"inventory"`
	DailyFee  string `json:"daily_fee"`
}

// GetCar retrieves a car from cache. A nil result means a cache miss.
func (s *CacheStore) GetCar(ctx context.Context, carID string) (*CachedCar, error) {
	key := carCachePrefix + carID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var car CachedCar
	if err := json.Unmarshal(data, &car); err != nil {
		return nil, err
	}
	return &car, nil
}

// SetCar stores a car in cache.
func (s *CacheStore) SetCar(ctx context.Context, car *CachedCar) error {
	key := carCachePrefix + car.ID
	data, err := json.Marshal(car)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, CarCacheTTL).Err()
}

// InvalidateCar removes a car from cache after its inventory changes.
func (s *CacheStore) InvalidateCar(ctx context.Context, carID string) error {
	key := carCachePrefix + carID
	return s.client.Del(ctx, key).Err()
}
