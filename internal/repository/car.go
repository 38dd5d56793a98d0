package repository

import (
	"context"

	"carshare/internal/domain"
)

// CarRepository defines the persistence operations for cars.
// The catalog itself (creating and pricing cars) is managed externally;
// this repository only reads cars and moves their inventory.
type CarRepository interface {
	// GetByID retrieves a car by ID.
	GetByID(ctx context.Context, id string) (*domain.Car, error)

	// GetAll retrieves all cars in the catalog.
	GetAll(ctx context.Context) ([]*domain.Car, error)

	// Reserve atomically takes one unit of the car's inventory.
	// Returns ErrInsufficientInventory if no units are available and
	// ErrNotFound if the car does not exist.
	Reserve(ctx context.Context, id string) error

	// Release atomically returns one unit of the car's inventory.
	Release(ctx context.Context, id string) error
}
