package repository

import (
	"context"

	"carshare/internal/domain"
)

// PaymentFilter narrows a payment listing. Zero values match everything.
type PaymentFilter struct {
	RentalID string
	Status   domain.PaymentStatus
}

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetBySessionID retrieves a payment by its checkout session ID.
	GetBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error)

	// UpdateStatusFrom transitions a payment from one status to another.
	// The update is conditional: it reports false when the payment is no
	// longer in the expected status, leaving the row untouched.
	UpdateStatusFrom(ctx context.Context, sessionID string, from, to domain.PaymentStatus) (bool, error)

	// ListAll retrieves payments matching the filter.
	ListAll(ctx context.Context, filter PaymentFilter, page Page) ([]*domain.Payment, error)

	// ListByUser retrieves payments on the given user's rentals.
	ListByUser(ctx context.Context, userID string, page Page) ([]*domain.Payment, error)
}
