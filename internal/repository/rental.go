package repository

import (
	"context"
	"time"

	"carshare/internal/domain"
)

// Page bounds a list query.
type Page struct {
	Number int
	Size   int
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// RentalRepository defines the persistence operations for rentals.
type RentalRepository interface {
	// Create persists a new rental. Returns ErrActiveRentalExists if the
	// user already holds an active rental.
	Create(ctx context.Context, rental *domain.Rental) error

	// GetByID retrieves a rental by ID.
	GetByID(ctx context.Context, id string) (*domain.Rental, error)

	// ExistsActiveByUser reports whether the user has an active rental.
	ExistsActiveByUser(ctx context.Context, userID string) (bool, error)

	// Close marks an active rental returned at the given time.
	// Returns ErrNotFound if the rental does not exist or is already closed.
	Close(ctx context.Context, id string, returnedAt time.Time) error

	// ListActive retrieves active rentals, optionally restricted to one user.
	ListActive(ctx context.Context, userID string, page Page) ([]*domain.Rental, error)

	// ListActiveDueBefore retrieves active rentals whose promised return
	// date is before the given day.
	ListActiveDueBefore(ctx context.Context, day time.Time) ([]*domain.Rental, error)

	// ListActiveDueOnOrAfter retrieves active rentals whose promised return
	// date is on or after the given day.
	ListActiveDueOnOrAfter(ctx context.Context, day time.Time) ([]*domain.Rental, error)
}
