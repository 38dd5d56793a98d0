package postgres

import (
	"context"
	"database/sql"
	"errors"

	"carshare/internal/domain"
	"carshare/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, rental_id, status, type, session_id, session_url, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.RentalID,
		payment.Status,
		payment.Type,
		payment.SessionID,
		payment.SessionURL,
		payment.Amount,
	)

	return err
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `
		SELECT id, rental_id, status, type, session_id, session_url, amount
		FROM payments WHERE id = $1
	`

	return scanPayment(r.q.QueryRowContext(ctx, query, id))
}

// GetBySessionID retrieves a payment by its checkout session ID.
func (r *PaymentRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error) {
	query := `
		SELECT id, rental_id, status, type, session_id, session_url, amount
		FROM payments WHERE session_id = $1
	`

	return scanPayment(r.q.QueryRowContext(ctx, query, sessionID))
}

// UpdateStatusFrom transitions a payment between statuses. The WHERE clause
// pins the expected current status, so a lost race leaves the row untouched
// and reports false.
func (r *PaymentRepository) UpdateStatusFrom(ctx context.Context, sessionID string, from, to domain.PaymentStatus) (bool, error) {
	query := `UPDATE payments SET status = $1 WHERE session_id = $2 AND status = $3`

	result, err := r.q.ExecContext(ctx, query, to, sessionID, from)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// ListAll retrieves payments matching the filter, newest first.
func (r *PaymentRepository) ListAll(ctx context.Context, filter repository.PaymentFilter, page repository.Page) ([]*domain.Payment, error) {
	query := `
		SELECT id, rental_id, status, type, session_id, session_url, amount
		FROM payments
		WHERE ($1 = '' OR rental_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY id DESC LIMIT $3 OFFSET $4
	`

	rows, err := r.q.QueryContext(ctx, query, filter.RentalID, string(filter.Status), page.Size, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPayments(rows)
}

// ListByUser retrieves payments on the given user's rentals.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID string, page repository.Page) ([]*domain.Payment, error) {
	query := `
		SELECT p.id, p.rental_id, p.status, p.type, p.session_id, p.session_url, p.amount
		FROM payments p
		JOIN rentals r ON r.id = p.rental_id
		WHERE r.user_id = $1
		ORDER BY p.id DESC LIMIT $2 OFFSET $3
	`

	rows, err := r.q.QueryContext(ctx, query, userID, page.Size, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectPayments(rows)
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var payment domain.Payment
	err := row.Scan(
		&payment.ID,
		&payment.RentalID,
		&payment.Status,
		&payment.Type,
		&payment.SessionID,
		&payment.SessionURL,
		&payment.Amount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &payment, nil
}

func collectPayments(rows *sql.Rows) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}
