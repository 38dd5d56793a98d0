package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"carshare/internal/domain"
	"carshare/internal/redis"
	"carshare/internal/repository"
)

// SweepNotifier defines the notifications the overdue sweep emits.
type SweepNotifier interface {
	NotifyRentalOverdue(ctx context.Context, rental *domain.Rental, car *domain.Car) error
	NotifyReturnDateReminder(ctx context.Context, rental *domain.Rental) error
	NotifyManagerOverdue(ctx context.Context, managerID string, rental *domain.Rental, car *domain.Car, renter *domain.User, overdueDays int64) error
	NotifyManagerAllClear(ctx context.Context, managerID string) error
}

// Ensure NotificationDispatcher implements SweepNotifier.
var _ SweepNotifier = (*NotificationDispatcher)(nil)

// SweeperConfig holds scheduling configuration for the overdue sweeper.
type SweeperConfig struct {
	// RunHour is the local hour of day the sweep fires (0-23).
	RunHour int

	// CheckInterval is how often the loop checks whether it is time to run.
	CheckInterval time.Duration

	// LockTTL is how long the per-day sweep lock is held. It should exceed
	// 24h so a second instance cannot re-run the same day's sweep.
	LockTTL time.Duration

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// OverdueSweeper periodically scans active rentals and notifies managers
// and renters about due and overdue returns. It never mutates rental or
// payment state, so a re-run is harmless apart from repeated messages,
// which the per-day lock prevents.
type OverdueSweeper struct {
	cfg        SweeperConfig
	rentalRepo repository.RentalRepository
	carRepo    repository.CarRepository
	userRepo   repository.UserRepository
	locks      redis.LockStoreInterface
	notifier   SweepNotifier
	logger     *zap.Logger

	mu          sync.Mutex
	lastRunDate string
}

// NewOverdueSweeper creates a new OverdueSweeper.
func NewOverdueSweeper(
	cfg SweeperConfig,
	rentalRepo repository.RentalRepository,
	carRepo repository.CarRepository,
	userRepo repository.UserRepository,
	locks redis.LockStoreInterface,
	notifier SweepNotifier,
	logger *zap.Logger,
) *OverdueSweeper {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 26 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &OverdueSweeper{
		cfg:        cfg,
		rentalRepo: rentalRepo,
		carRepo:    carRepo,
		userRepo:   userRepo,
		locks:      locks,
		notifier:   notifier,
		logger:     logger,
	}
}

// Start runs the scheduling loop until the context is cancelled.
func (s *OverdueSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := s.cfg.Now()
			if now.Hour() != s.cfg.RunHour {
				continue
			}

			day := now.Format("2006-01-02")
			s.mu.Lock()
			alreadyRan := s.lastRunDate == day
			s.mu.Unlock()
			if alreadyRan {
				continue
			}

			if err := s.RunSweep(ctx); err != nil {
				s.logger.Error("overdue sweep failed", zap.Error(err))
				continue
			}

			s.mu.Lock()
			s.lastRunDate = day
			s.mu.Unlock()
		}
	}
}

// RunSweep performs one sweep: overdue rentals first, then due-date
// reminders. Each pass holds its own per-day distributed lock, so
// overlapping invocations (second instance, manual trigger) cannot
// duplicate notifications, and a failed reminder pass can be retried
// without re-sending the day's overdue notices.
func (s *OverdueSweeper) RunSweep(ctx context.Context) error {
	now := s.cfg.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := today.Format("2006-01-02")

	if err := s.runPass(ctx, day+":overdue", func() error {
		return s.sweepOverdue(ctx, today, day)
	}); err != nil {
		return err
	}

	return s.runPass(ctx, day+":reminders", func() error {
		return s.sweepDueReminders(ctx, today)
	})
}

// runPass executes one sweep pass under its lock. The lock is released on
// failure so a later invocation can retry the pass.
func (s *OverdueSweeper) runPass(ctx context.Context, key string, pass func() error) error {
	if s.locks != nil {
		acquired, err := s.locks.AcquireSweepLock(ctx, key, s.cfg.LockTTL)
		if err != nil {
			return err
		}
		if !acquired {
			s.logger.Info("sweep pass skipped, already ran", zap.String("pass", key))
			return nil
		}
	}

	if err := pass(); err != nil {
		if s.locks != nil {
			_ = s.locks.ReleaseSweepLock(ctx, key)
		}
		return err
	}

	return nil
}

func (s *OverdueSweeper) sweepOverdue(ctx context.Context, today time.Time, day string) error {
	overdue, err := s.rentalRepo.ListActiveDueBefore(ctx, today)
	if err != nil {
		return err
	}

	managers, err := s.userRepo.GetManagers(ctx)
	if err != nil {
		return err
	}

	if len(overdue) == 0 {
		for _, manager := range managers {
			if err := s.notifier.NotifyManagerAllClear(ctx, manager.ID); err != nil {
				s.logger.Warn("manager all-clear notification failed",
					zap.String("manager_id", manager.ID), zap.Error(err))
			}
		}
		s.logger.Info("overdue sweep complete, nothing overdue", zap.String("day", day))
		return nil
	}

	for _, rental := range overdue {
		// The query already filters, but the row may have been closed
		// between the read and this pass.
		if !rental.Overdue(today) {
			continue
		}

		car, err := s.carRepo.GetByID(ctx, rental.CarID)
		if err != nil {
			s.logger.Warn("overdue sweep skipping rental, car lookup failed",
				zap.String("rental_id", rental.ID), zap.Error(err))
			continue
		}
		renter, err := s.userRepo.GetByID(ctx, rental.UserID)
		if err != nil {
			s.logger.Warn("overdue sweep skipping rental, renter lookup failed",
				zap.String("rental_id", rental.ID), zap.Error(err))
			continue
		}

		overdueDays := daysBetween(rental.ReturnDate, today)

		for _, manager := range managers {
			if err := s.notifier.NotifyManagerOverdue(ctx, manager.ID, rental, car, renter, overdueDays); err != nil {
				s.logger.Warn("manager overdue notification failed",
					zap.String("manager_id", manager.ID),
					zap.String("rental_id", rental.ID),
					zap.Error(err))
			}
		}

		if err := s.notifier.NotifyRentalOverdue(ctx, rental, car); err != nil {
			s.logger.Warn("renter overdue notification failed",
				zap.String("rental_id", rental.ID), zap.Error(err))
		}
	}

	s.logger.Info("overdue sweep complete",
		zap.String("day", day), zap.Int("overdue", len(overdue)))
	return nil
}

func (s *OverdueSweeper) sweepDueReminders(ctx context.Context, today time.Time) error {
	due, err := s.rentalRepo.ListActiveDueOnOrAfter(ctx, today)
	if err != nil {
		return err
	}

	for _, rental := range due {
		if err := s.notifier.NotifyReturnDateReminder(ctx, rental); err != nil {
			s.logger.Warn("due reminder notification failed",
				zap.String("rental_id", rental.ID), zap.Error(err))
		}
	}

	return nil
}
