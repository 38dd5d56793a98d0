package postgres

import (
	"context"
	"database/sql"
	"errors"

	"carshare/internal/domain"
	"carshare/internal/repository"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, email, first_name, last_name, role, telegram_chat_id, created_at
		FROM users WHERE id = $1
	`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetAll retrieves all users.
func (r *UserRepository) GetAll(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT id, email, first_name, last_name, role, telegram_chat_id, created_at
		FROM users ORDER BY created_at DESC
	`
	return r.queryUsers(ctx, query)
}

// GetManagers retrieves all users with the manager role.
func (r *UserRepository) GetManagers(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT id, email, first_name, last_name, role, telegram_chat_id, created_at
		FROM users WHERE role = 'MANAGER' ORDER BY created_at
	`
	return r.queryUsers(ctx, query)
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	var chatID sql.NullString

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&chatID,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if chatID.Valid {
		user.TelegramChatID = chatID.String
	}

	return &user, nil
}
