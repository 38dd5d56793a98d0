package tests

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"go.uber.org/zap"

	"carshare/internal/domain"
	"carshare/internal/service"
)

// ──────────────────────────────────────────────
// OVERDUE SWEEP
// ──────────────────────────────────────────────

// sweepNow pins the sweeper's clock to a fixed morning.
var sweepNow = time.Date(2026, time.June, 15, 9, 0, 0, 0, time.UTC)

func newSweeperFixture() (*service.OverdueSweeper, *MockRentalRepository, *MockCarRepository, *MockUserRepository, *MockLockStore, *RecordingNotifier) {
	rentalRepo := NewMockRentalRepository()
	carRepo := NewMockCarRepository()
	userRepo := NewMockUserRepository()
	locks := NewMockLockStore()
	notifier := NewRecordingNotifier()
	sweeper := service.NewOverdueSweeper(
		service.SweeperConfig{
			RunHour: 9,
			Now:     func() time.Time { return sweepNow },
		},
		rentalRepo, carRepo, userRepo, locks, notifier, zap.NewNop(),
	)
	return sweeper, rentalRepo, carRepo, userRepo, locks, notifier
}

func TestRunSweep_NotifiesManagersAndRenter(t *testing.T) {
	t.Parallel()

	sweeper, rentalRepo, carRepo, userRepo, _, notifier := newSweeperFixture()

	userRepo.AddUser(manager("boss-1"))
	userRepo.AddUser(manager("boss-2"))
	userRepo.AddUser(customer("user-1"))
	carRepo.AddCar(testCar("car-1", 0))

	// Due three days ago.
	rentalRepo.AddRental(activeRental("rental-1", "car-1", "user-1", sweepNow.Add(-72*time.Hour)))

	if err := sweeper.RunSweep(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := append([]string{}, notifier.ManagerOverdue...)
	sort.Strings(got)
	if len(got) != 2 || got[0] != "boss-1" || got[1] != "boss-2" {
		t.Errorf("expected both managers notified, got %v", got)
	}
	if len(notifier.RenterOverdue) != 1 || notifier.RenterOverdue[0] != "rental-1" {
		t.Errorf("expected renter overdue notification for rental-1, got %v", notifier.RenterOverdue)
	}
	if len(notifier.ManagerAllClear) != 0 {
		t.Errorf("expected no all-clear, got %v", notifier.ManagerAllClear)
	}
}

func TestRunSweep_AllClearWhenNothingOverdue(t *testing.T) {
	t.Parallel()

	sweeper, rentalRepo, carRepo, userRepo, _, notifier := newSweeperFixture()

	userRepo.AddUser(manager("boss-1"))
	userRepo.AddUser(customer("user-1"))
	carRepo.AddCar(testCar("car-1", 1))

	// Due tomorrow: not overdue, but gets a reminder.
	rentalRepo.AddRental(activeRental("rental-1", "car-1", "user-1", sweepNow.Add(24*time.Hour)))

	if err := sweeper.RunSweep(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(notifier.ManagerAllClear) != 1 || notifier.ManagerAllClear[0] != "boss-1" {
		t.Errorf("expected all-clear for boss-1, got %v", notifier.ManagerAllClear)
	}
	if len(notifier.DueReminders) != 1 || notifier.DueReminders[0] != "rental-1" {
		t.Errorf("expected due reminder for rental-1, got %v", notifier.DueReminders)
	}
	if len(notifier.ManagerOverdue) != 0 || len(notifier.RenterOverdue) != 0 {
		t.Error("expected no overdue notifications")
	}
}

func TestRunSweep_IgnoresClosedRentals(t *testing.T) {
	t.Parallel()

	sweeper, rentalRepo, carRepo, userRepo, _, notifier := newSweeperFixture()

	userRepo.AddUser(manager("boss-1"))
	carRepo.AddCar(testCar("car-1", 1))

	closed := activeRental("rental-1", "car-1", "user-1", sweepNow.Add(-72*time.Hour))
	closed.IsActive = false
	closed.ActualReturnDate = sweepNow.Add(-48 * time.Hour)
	rentalRepo.AddRental(closed)

	if err := sweeper.RunSweep(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(notifier.ManagerOverdue) != 0 {
		t.Errorf("expected no overdue notifications for closed rental, got %v", notifier.ManagerOverdue)
	}
	if len(notifier.ManagerAllClear) != 1 {
		t.Errorf("expected all-clear, got %v", notifier.ManagerAllClear)
	}
}

func TestRunSweep_SkipsWhenLockHeld(t *testing.T) {
	t.Parallel()

	sweeper, rentalRepo, carRepo, userRepo, locks, notifier := newSweeperFixture()

	userRepo.AddUser(manager("boss-1"))
	carRepo.AddCar(testCar("car-1", 0))
	rentalRepo.AddRental(activeRental("rental-1", "car-1", "user-1", sweepNow.Add(-72*time.Hour)))
	locks.ForceAcquireFailure = true

	if err := sweeper.RunSweep(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if notifier.CountAll() != 0 {
		t.Errorf("expected no notifications when lock is held, got %d", notifier.CountAll())
	}
}

func TestRunSweep_SecondRunSameDayDoesNotDuplicate(t *testing.T) {
	t.Parallel()

	sweeper, rentalRepo, carRepo, userRepo, _, notifier := newSweeperFixture()

	userRepo.AddUser(manager("boss-1"))
	userRepo.AddUser(customer("user-1"))
	carRepo.AddCar(testCar("car-1", 0))
	rentalRepo.AddRental(activeRental("rental-1", "car-1", "user-1", sweepNow.Add(-72*time.Hour)))

	if err := sweeper.RunSweep(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := notifier.CountAll()

	if err := sweeper.RunSweep(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if notifier.CountAll() != first {
		t.Errorf("expected no additional notifications, got %d then %d", first, notifier.CountAll())
	}
}

func TestRunSweep_ReleasesLockOnFailure(t *testing.T) {
	t.Parallel()

	sweeper, rentalRepo, _, userRepo, locks, _ := newSweeperFixture()

	userRepo.AddUser(manager("boss-1"))
	rentalRepo.OverdueListError = errors.New("db down")

	if err := sweeper.RunSweep(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	// The pass lock must be released so a retry can run.
	if locks.IsLocked(sweepNow.Format("2006-01-02") + ":overdue") {
		t.Error("expected overdue pass lock to be released after failure")
	}

	// Retry succeeds once the store recovers.
	rentalRepo.OverdueListError = nil
	if err := sweeper.RunSweep(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
}

func TestRunSweep_ReminderFailureRetriesWithoutDuplicates(t *testing.T) {
	t.Parallel()

	sweeper, rentalRepo, carRepo, userRepo, locks, notifier := newSweeperFixture()

	userRepo.AddUser(manager("boss-1"))
	userRepo.AddUser(customer("user-1"))
	userRepo.AddUser(customer("user-2"))
	carRepo.AddCar(testCar("car-1", 0))
	carRepo.AddCar(testCar("car-2", 1))

	rentalRepo.AddRental(activeRental("rental-1", "car-1", "user-1", sweepNow.Add(-72*time.Hour)))
	rentalRepo.AddRental(activeRental("rental-2", "car-2", "user-2", sweepNow.Add(24*time.Hour)))
	rentalRepo.ReminderListError = errors.New("db down")

	if err := sweeper.RunSweep(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	// The overdue pass completed and keeps its lock; the reminder pass
	// releases its own so a retry can pick it up.
	if len(notifier.ManagerOverdue) != 1 {
		t.Fatalf("expected overdue pass to run, got %v", notifier.ManagerOverdue)
	}
	day := sweepNow.Format("2006-01-02")
	if !locks.IsLocked(day + ":overdue") {
		t.Error("expected overdue pass lock to stay held")
	}
	if locks.IsLocked(day + ":reminders") {
		t.Error("expected reminder pass lock to be released after failure")
	}

	rentalRepo.ReminderListError = nil
	if err := sweeper.RunSweep(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}

	if len(notifier.DueReminders) != 1 || notifier.DueReminders[0] != "rental-2" {
		t.Errorf("expected due reminder for rental-2 on retry, got %v", notifier.DueReminders)
	}
	if len(notifier.ManagerOverdue) != 1 || len(notifier.RenterOverdue) != 1 {
		t.Errorf("expected overdue notifications not to repeat, got managers %v renters %v",
			notifier.ManagerOverdue, notifier.RenterOverdue)
	}
}

func TestRunSweep_OverdueDaysPassedToManagers(t *testing.T) {
	t.Parallel()

	rentalRepo := NewMockRentalRepository()
	carRepo := NewMockCarRepository()
	userRepo := NewMockUserRepository()
	locks := NewMockLockStore()

	var gotDays int64
	notifier := &overdueDaysCapture{RecordingNotifier: NewRecordingNotifier(), days: &gotDays}

	sweeper := service.NewOverdueSweeper(
		service.SweeperConfig{
			RunHour: 9,
			Now:     func() time.Time { return sweepNow },
		},
		rentalRepo, carRepo, userRepo, locks, notifier, zap.NewNop(),
	)

	userRepo.AddUser(manager("boss-1"))
	userRepo.AddUser(customer("user-1"))
	carRepo.AddCar(testCar("car-1", 0))
	rentalRepo.AddRental(activeRental("rental-1", "car-1", "user-1", sweepNow.Add(-72*time.Hour)))

	if err := sweeper.RunSweep(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotDays != 3 {
		t.Errorf("expected 3 overdue days, got %d", gotDays)
	}
}

// overdueDaysCapture records the overdue day count handed to managers.
type overdueDaysCapture struct {
	*RecordingNotifier
	days *int64
}

func (c *overdueDaysCapture) NotifyManagerOverdue(ctx context.Context, managerID string, rental *domain.Rental, car *domain.Car, renter *domain.User, overdueDays int64) error {
	*c.days = overdueDays
	return c.RecordingNotifier.NotifyManagerOverdue(ctx, managerID, rental, car, renter, overdueDays)
}
