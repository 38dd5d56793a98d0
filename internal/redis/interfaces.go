package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireSweepLock(ctx context.Context, passKey string, ttl time.Duration) (bool, error)
	ReleaseSweepLock(ctx context.Context, passKey string) error
}

// CacheStoreInterface defines the interface for entity caching.
type CacheStoreInterface interface {
	GetCar(ctx context.Context, carID string) (*CachedCar, error)
	SetCar(ctx context.Context, car *CachedCar) error
	InvalidateCar(ctx context.Context, carID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface  = (*LockStore)(nil)
	_ CacheStoreInterface = (*CacheStore)(nil)
)
