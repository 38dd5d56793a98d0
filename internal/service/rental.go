package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carshare/internal/domain"
	"carshare/internal/redis"
	"carshare/internal/repository"
	"carshare/internal/repository/postgres"
)

// RentalNotifier defines the notifications the rental lifecycle emits.
// This interface allows for testing with mock implementations.
type RentalNotifier interface {
	NotifyRentalCreated(ctx context.Context, rental *domain.Rental, car *domain.Car) error
	NotifyRentalClosed(ctx context.Context, rental *domain.Rental, car *domain.Car) error
}

// Ensure NotificationDispatcher implements RentalNotifier.
var _ RentalNotifier = (*NotificationDispatcher)(nil)

// RentalService owns the rental lifecycle: it reserves inventory when a
// rental opens and releases it exactly once when the rental closes.
type RentalService struct {
	db         *sql.DB
	carRepo    repository.CarRepository
	rentalRepo repository.RentalRepository
	cache      redis.CacheStoreInterface
	notifier   RentalNotifier
	logger     *zap.Logger
}

// NewRentalService creates a new RentalService. db may be nil in tests, in
// which case operations run directly against the injected repositories
// instead of a transaction.
func NewRentalService(
	db *sql.DB,
	carRepo repository.CarRepository,
	rentalRepo repository.RentalRepository,
	cache redis.CacheStoreInterface,
	notifier RentalNotifier,
	logger *zap.Logger,
) *RentalService {
	return &RentalService{
		db:         db,
		carRepo:    carRepo,
		rentalRepo: rentalRepo,
		cache:      cache,
		notifier:   notifier,
		logger:     logger,
	}
}

// CreateRentalRequest contains the parameters for opening a rental.
type CreateRentalRequest struct {
	CarID      string
	ReturnDate time.Time
}

// CreateRental reserves one unit of the car and opens a rental for the
// caller. The inventory decrement and the rental insert commit atomically;
// the second active rental per user is rejected by the database even when
// two requests race past the existence check.
func (s *RentalService) CreateRental(ctx context.Context, caller *domain.User, req CreateRentalRequest) (*domain.Rental, error) {
	if caller == nil || caller.ID == "" {
		return nil, ErrInvalidUserID
	}
	if req.CarID == "" {
		return nil, ErrInvalidCarID
	}

	now := time.Now()
	if !req.ReturnDate.After(now) {
		return nil, ErrInvalidReturnDate
	}

	// Cheap pre-check; the unique index is the real guarantee.
	hasActive, err := s.rentalRepo.ExistsActiveByUser(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if hasActive {
		return nil, ErrActiveRentalExists
	}

	car, err := s.carRepo.GetByID(ctx, req.CarID)
	if err != nil {
		return nil, err
	}

	rental := &domain.Rental{
		ID:         uuid.New().String(),
		CarID:      car.ID,
		UserID:     caller.ID,
		RentalDate: now,
		ReturnDate: req.ReturnDate,
		IsActive:   true,
	}

	if err := s.reserveAndCreate(ctx, rental); err != nil {
		if errors.Is(err, repository.ErrActiveRentalExists) {
			return nil, ErrActiveRentalExists
		}
		return nil, err
	}

	s.invalidateCar(ctx, car.ID)

	// Best-effort: the rental is committed regardless of delivery.
	if s.notifier != nil {
		if err := s.notifier.NotifyRentalCreated(ctx, rental, car); err != nil {
			s.logger.Warn("rental created notification failed",
				zap.String("rental_id", rental.ID),
				zap.String("user_id", caller.ID),
				zap.Error(err))
		}
	}

	return rental, nil
}

// reserveAndCreate decrements the car's inventory and inserts the rental as
// one atomic unit.
func (s *RentalService) reserveAndCreate(ctx context.Context, rental *domain.Rental) error {
	if s.db == nil {
		if err := s.carRepo.Reserve(ctx, rental.CarID); err != nil {
			return err
		}
		return s.rentalRepo.Create(ctx, rental)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txCarRepo := postgres.NewCarRepositoryWithTx(tx)
	txRentalRepo := postgres.NewRentalRepositoryWithTx(tx)

	if err = txCarRepo.Reserve(ctx, rental.CarID); err != nil {
		return err
	}

	if err = txRentalRepo.Create(ctx, rental); err != nil {
		return err
	}

	return tx.Commit()
}

// CloseRental records the car's return and releases its inventory unit.
// Customers may close only their own rentals; managers may close any.
func (s *RentalService) CloseRental(ctx context.Context, caller *domain.User, rentalID string) (*domain.Rental, error) {
	if caller == nil || caller.ID == "" {
		return nil, ErrInvalidUserID
	}
	if rentalID == "" {
		return nil, ErrInvalidRentalID
	}

	rental, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}

	if rental.UserID != caller.ID && !caller.IsManager() {
		return nil, ErrAccessDenied
	}

	if !rental.IsActive {
		return nil, ErrRentalAlreadyClosed
	}

	returnedAt := time.Now()
	if err := s.closeAndRelease(ctx, rental, returnedAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Lost a race with another close; inventory was released once.
			return nil, ErrRentalAlreadyClosed
		}
		return nil, err
	}

	rental.IsActive = false
	rental.ActualReturnDate = returnedAt

	s.invalidateCar(ctx, rental.CarID)

	if s.notifier != nil {
		car, carErr := s.carRepo.GetByID(ctx, rental.CarID)
		if carErr != nil {
			s.logger.Warn("rental closed notification skipped, car lookup failed",
				zap.String("rental_id", rental.ID),
				zap.String("car_id", rental.CarID),
				zap.Error(carErr))
		} else if err := s.notifier.NotifyRentalClosed(ctx, rental, car); err != nil {
			s.logger.Warn("rental closed notification failed",
				zap.String("rental_id", rental.ID),
				zap.String("user_id", rental.UserID),
				zap.Error(err))
		}
	}

	return rental, nil
}

// closeAndRelease flips the rental inactive and increments the car's
// inventory as one atomic unit. The conditional close guarantees the
// release happens exactly once per rental.
func (s *RentalService) closeAndRelease(ctx context.Context, rental *domain.Rental, returnedAt time.Time) error {
	if s.db == nil {
		if err := s.rentalRepo.Close(ctx, rental.ID, returnedAt); err != nil {
			return err
		}
		return s.carRepo.Release(ctx, rental.CarID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txCarRepo := postgres.NewCarRepositoryWithTx(tx)
	txRentalRepo := postgres.NewRentalRepositoryWithTx(tx)

	if err = txRentalRepo.Close(ctx, rental.ID, returnedAt); err != nil {
		return err
	}

	if err = txCarRepo.Release(ctx, rental.CarID); err != nil {
		return err
	}

	return tx.Commit()
}

// GetRental retrieves a rental. Customers see only their own; managers any.
func (s *RentalService) GetRental(ctx context.Context, caller *domain.User, rentalID string) (*domain.Rental, error) {
	if rentalID == "" {
		return nil, ErrInvalidRentalID
	}

	rental, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}

	if rental.UserID != caller.ID && !caller.IsManager() {
		return nil, ErrAccessDenied
	}

	return rental, nil
}

// ListActiveRentals lists active rentals: all of them for managers, the
// caller's own for customers.
func (s *RentalService) ListActiveRentals(ctx context.Context, caller *domain.User, page repository.Page) ([]*domain.Rental, error) {
	if caller.IsManager() {
		return s.rentalRepo.ListActive(ctx, "", page)
	}
	return s.rentalRepo.ListActive(ctx, caller.ID, page)
}

func (s *RentalService) invalidateCar(ctx context.Context, carID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCar(ctx, carID); err != nil {
		s.logger.Warn("car cache invalidation failed", zap.String("car_id", carID), zap.Error(err))
	}
}
