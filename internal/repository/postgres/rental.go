package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"carshare/internal/domain"
	"carshare/internal/repository"
)

// uniqueViolation is the pq error code raised by the partial unique index
// on rentals(user_id) WHERE is_active.
const uniqueViolation = "23505"

// RentalRepository is a PostgreSQL implementation of repository.RentalRepository.
type RentalRepository struct {
	q Querier
}

// NewRentalRepository creates a new PostgreSQL rental repository.
func NewRentalRepository(db *sql.DB) *RentalRepository {
	return &RentalRepository{q: db}
}

// NewRentalRepositoryWithTx creates a rental repository using a transaction.
func NewRentalRepositoryWithTx(tx *sql.Tx) *RentalRepository {
	return &RentalRepository{q: tx}
}

// Create persists a new rental. The one-active-rental-per-user rule is
// enforced by the database index, not just the caller's prior read.
func (r *RentalRepository) Create(ctx context.Context, rental *domain.Rental) error {
	query := `
		INSERT INTO rentals (id, car_id, user_id, rental_date, return_date, actual_return_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var actualReturn sql.NullTime
	if !rental.ActualReturnDate.IsZero() {
		actualReturn = sql.NullTime{Time: rental.ActualReturnDate, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		rental.ID,
		rental.CarID,
		rental.UserID,
		rental.RentalDate,
		rental.ReturnDate,
		actualReturn,
		rental.IsActive,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return repository.ErrActiveRentalExists
		}
		return err
	}

	return nil
}

// GetByID retrieves a rental by ID.
func (r *RentalRepository) GetByID(ctx context.Context, id string) (*domain.Rental, error) {
	query := `
		SELECT id, car_id, user_id, rental_date, return_date, actual_return_date, is_active
		FROM rentals WHERE id = $1
	`

	rental, err := scanRental(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return rental, nil
}

// ExistsActiveByUser reports whether the user has an active rental.
func (r *RentalRepository) ExistsActiveByUser(ctx context.Context, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM rentals WHERE user_id = $1 AND is_active)`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Close marks an active rental returned at the given time. The update is
// conditional on is_active so a double close affects zero rows.
func (r *RentalRepository) Close(ctx context.Context, id string, returnedAt time.Time) error {
	query := `
		UPDATE rentals SET is_active = FALSE, actual_return_date = $1
		WHERE id = $2 AND is_active
	`

	result, err := r.q.ExecContext(ctx, query, returnedAt, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListActive retrieves active rentals, newest first. An empty userID lists
// every user's rentals.
func (r *RentalRepository) ListActive(ctx context.Context, userID string, page repository.Page) ([]*domain.Rental, error) {
	query := `
		SELECT id, car_id, user_id, rental_date, return_date, actual_return_date, is_active
		FROM rentals
		WHERE is_active AND ($1 = '' OR user_id = $1)
		ORDER BY rental_date DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.q.QueryContext(ctx, query, userID, page.Size, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRentals(rows)
}

// ListActiveDueBefore retrieves active rentals with a promised return date
// before the given day.
func (r *RentalRepository) ListActiveDueBefore(ctx context.Context, day time.Time) ([]*domain.Rental, error) {
	query := `
		SELECT id, car_id, user_id, rental_date, return_date, actual_return_date, is_active
		FROM rentals
		WHERE is_active AND return_date < $1
		ORDER BY return_date
	`

	rows, err := r.q.QueryContext(ctx, query, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRentals(rows)
}

// ListActiveDueOnOrAfter retrieves active rentals with a promised return date
// on or after the given day.
func (r *RentalRepository) ListActiveDueOnOrAfter(ctx context.Context, day time.Time) ([]*domain.Rental, error) {
	query := `
		SELECT id, car_id, user_id, rental_date, return_date, actual_return_date, is_active
		FROM rentals
		WHERE is_active AND return_date >= $1
		ORDER BY return_date
	`

	rows, err := r.q.QueryContext(ctx, query, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRentals(rows)
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRental(row rowScanner) (*domain.Rental, error) {
	var rental domain.Rental
	var actualReturn sql.NullTime

	err := row.Scan(
		&rental.ID,
		&rental.CarID,
		&rental.UserID,
		&rental.RentalDate,
		&rental.ReturnDate,
		&actualReturn,
		&rental.IsActive,
	)
	if err != nil {
		return nil, err
	}

	if actualReturn.Valid {
		rental.ActualReturnDate = actualReturn.Time
	}

	return &rental, nil
}

func collectRentals(rows *sql.Rows) ([]*domain.Rental, error) {
	var rentals []*domain.Rental
	for rows.Next() {
		rental, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, rental)
	}
	return rentals, rows.Err()
}
