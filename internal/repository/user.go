package repository

import (
	"context"

	"carshare/internal/domain"
)

// UserRepository defines the read operations on the user directory.
// Registration and authentication live outside this service.
type UserRepository interface {
	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetAll retrieves all users.
	GetAll(ctx context.Context) ([]*domain.User, error)

	// GetManagers retrieves all users with the manager role.
	GetManagers(ctx context.Context) ([]*domain.User, error)
}
