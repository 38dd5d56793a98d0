package postgres

import (
	"context"
	"database/sql"
	"errors"

	"carshare/internal/domain"
	"carshare/internal/repository"
)

// CarRepository is a PostgreSQL implementation of repository.CarRepository.
type CarRepository struct {
	q Querier
}

// NewCarRepository creates a new PostgreSQL car repository.
func NewCarRepository(db *sql.DB) *CarRepository {
	return &CarRepository{q: db}
}

// NewCarRepositoryWithTx creates a car repository using a transaction.
func NewCarRepositoryWithTx(tx *sql.Tx) *CarRepository {
	return &CarRepository{q: tx}
}

// GetByID retrieves a car by ID.
func (r *CarRepository) GetByID(ctx context.Context, id string) (*domain.Car, error) {
	query := `
		SELECT id, brand, model, type, inventory, daily_fee
		FROM cars WHERE id = $1
	`

	var car domain.Car
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&car.ID,
		&car.Brand,
		&car.Model,
		&car.Type,
		&car.Inventory,
		&car.DailyFee,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &car, nil
}

// GetAll retrieves all cars in the catalog.
func (r *CarRepository) GetAll(ctx context.Context) ([]*domain.Car, error) {
	query := `
		SELECT id, brand, model, type, inventory, daily_fee
		FROM cars ORDER BY brand, model
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cars []*domain.Car
	for rows.Next() {
		var car domain.Car
		if err := rows.Scan(
			&car.ID,
			&car.Brand,
			&car.Model,
			&car.Type,
			&car.Inventory,
			&car.DailyFee,
		); err != nil {
			return nil, err
		}
		cars = append(cars, &car)
	}
	return cars, rows.Err()
}

// Reserve atomically takes one unit of the car's inventory. The decrement is
// conditional on inventory being available, so two concurrent reservations of
// the last unit cannot both succeed.
func (r *CarRepository) Reserve(ctx context.Context, id string) error {
	query := `UPDATE cars SET inventory = inventory - 1 WHERE id = $1 AND inventory > 0`

	result, err := r.q.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		// Distinguish a missing car from an out-of-stock one.
		var exists bool
		if err := r.q.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM cars WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrInsufficientInventory
	}

	return nil
}

// Release atomically returns one unit of the car's inventory. There is no
// upper bound check: catalog capacity lives outside this service, and an
// inventory above capacity is a data-integrity bug to surface, not clamp.
func (r *CarRepository) Release(ctx context.Context, id string) error {
	query := `UPDATE cars SET inventory = inventory + 1 WHERE id = $1`

	result, err := r.q.ExecContext(ctx, query, id)
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
