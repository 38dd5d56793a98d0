package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"carshare/internal/domain"
	"carshare/internal/redis"
	"carshare/internal/repository"
	"carshare/internal/service"
)

// ──────────────────────────────────────────────
// RENTAL LIFECYCLE
// ──────────────────────────────────────────────

func newRentalFixture() (*service.RentalService, *MockCarRepository, *MockRentalRepository, *MockCacheStore, *RecordingNotifier) {
	carRepo := NewMockCarRepository()
	rentalRepo := NewMockRentalRepository()
	cache := NewMockCacheStore()
	notifier := NewRecordingNotifier()
	svc := service.NewRentalService(nil, carRepo, rentalRepo, cache, notifier, zap.NewNop())
	return svc, carRepo, rentalRepo, cache, notifier
}

func customer(id string) *domain.User {
	return &domain.User{ID: id, Email: id + "@example.com", Role: domain.RoleCustomer, TelegramChatID: "chat-" + id}
}

func manager(id string) *domain.User {
	return &domain.User{ID: id, Email: id + "@example.com", Role: domain.RoleManager, TelegramChatID: "chat-" + id}
}

func testCar(id string, inventory int) *domain.Car {
	return &domain.Car{
		ID:        id,
		Brand:     "Toyota",
		Model:     "Corolla",
		Type:      domain.CarTypeSedan,
		Inventory: inventory,
		DailyFee:  decimal.NewFromInt(100),
	}
}

func activeRental(id, carID, userID string, returnDate time.Time) *domain.Rental {
	return &domain.Rental{
		ID:         id,
		CarID:      carID,
		UserID:     userID,
		RentalDate: returnDate.Add(-96 * time.Hour),
		ReturnDate: returnDate,
		IsActive:   true,
	}
}

func TestCreateRental_DecrementsInventory(t *testing.T) {
	t.Parallel()

	svc, carRepo, rentalRepo, _, notifier := newRentalFixture()
	carRepo.AddCar(testCar("car-1", 3))

	rental, err := svc.CreateRental(context.Background(), customer("user-1"), service.CreateRentalRequest{
		CarID:      "car-1",
		ReturnDate: time.Now().Add(72 * time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !rental.IsActive {
		t.Error("expected rental to be active")
	}
	if carRepo.Inventory("car-1") != 2 {
		t.Errorf("expected inventory 2, got %d", carRepo.Inventory("car-1"))
	}
	if rentalRepo.CountRentals() != 1 {
		t.Errorf("expected 1 rental, got %d", rentalRepo.CountRentals())
	}
	if len(notifier.RentalCreated) != 1 {
		t.Errorf("expected 1 creation notification, got %d", len(notifier.RentalCreated))
	}
}

func TestCreateRental_InvalidatesCarCache(t *testing.T) {
	t.Parallel()

	svc, carRepo, _, cache, _ := newRentalFixture()
	carRepo.AddCar(testCar("car-1", 3))
	cache.SetCar(context.Background(), &redis.CachedCar{ID: "car-1", Inventory: 3})

	_, err := svc.CreateRental(context.Background(), customer("user-1"), service.CreateRentalRequest{
		CarID:      "car-1",
		ReturnDate: time.Now().Add(72 * time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cache.HasCar("car-1") {
		t.Error("expected car cache entry to be invalidated")
	}
}

func TestCreateRental_InsufficientInventory(t *testing.T) {
	t.Parallel()

	svc, carRepo, rentalRepo, _, notifier := newRentalFixture()
	carRepo.AddCar(testCar("car-1", 0))

	_, err := svc.CreateRental(context.Background(), customer("user-1"), service.CreateRentalRequest{
		CarID:      "car-1",
		ReturnDate: time.Now().Add(72 * time.Hour),
	})
	if !errors.Is(err, repository.ErrInsufficientInventory) {
		t.Fatalf("expected ErrInsufficientInventory, got %v", err)
	}

	if rentalRepo.CountRentals() != 0 {
		t.Errorf("expected no rental rows, got %d", rentalRepo.CountRentals())
	}
	if carRepo.Inventory("car-1") != 0 {
		t.Errorf("expected inventory to stay 0, got %d", carRepo.Inventory("car-1"))
	}
	if notifier.CountAll() != 0 {
		t.Errorf("expected no notifications, got %d", notifier.CountAll())
	}
}

func TestCreateRental_UnknownCar(t *testing.T) {
	t.Parallel()

	svc, _, _, _, _ := newRentalFixture()

	_, err := svc.CreateRental(context.Background(), customer("user-1"), service.CreateRentalRequest{
		CarID:      "ghost",
		ReturnDate: time.Now().Add(72 * time.Hour),
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateRental_ReturnDateNotInFuture(t *testing.T) {
	t.Parallel()

	svc, carRepo, _, _, _ := newRentalFixture()
	carRepo.AddCar(testCar("car-1", 3))

	_, err := svc.CreateRental(context.Background(), customer("user-1"), service.CreateRentalRequest{
		CarID:      "car-1",
		ReturnDate: time.Now().Add(-time.Hour),
	})
	if !errors.Is(err, service.ErrInvalidReturnDate) {
		t.Errorf("expected ErrInvalidReturnDate, got %v", err)
	}
}

func TestCreateRental_SecondActiveRentalRejected(t *testing.T) {
	t.Parallel()

	svc, carRepo, rentalRepo, _, _ := newRentalFixture()
	carRepo.AddCar(testCar("car-1", 3))
	carRepo.AddCar(testCar("car-2", 3))

	_, err := svc.CreateRental(context.Background(), customer("user-1"), service.CreateRentalRequest{
		CarID:      "car-1",
		ReturnDate: time.Now().Add(72 * time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.CreateRental(context.Background(), customer("user-1"), service.CreateRentalRequest{
		CarID:      "car-2",
		ReturnDate: time.Now().Add(72 * time.Hour),
	})
	if !errors.Is(err, service.ErrActiveRentalExists) {
		t.Fatalf("expected ErrActiveRentalExists, got %v", err)
	}

	// Only the first rental exists and only car-1 lost a unit.
	if rentalRepo.CountRentals() != 1 {
		t.Errorf("expected 1 rental, got %d", rentalRepo.CountRentals())
	}
	if carRepo.Inventory("car-2") != 3 {
		t.Errorf("expected car-2 inventory 3, got %d", carRepo.Inventory("car-2"))
	}
}

func TestCreateRental_DuplicateRaceMapsToConflict(t *testing.T) {
	t.Parallel()

	// The existence pre-check passes but the insert hits the uniqueness
	// guarantee, as it would when two requests race.
	svc, carRepo, rentalRepo, _, _ := newRentalFixture()
	carRepo.AddCar(testCar("car-1", 3))
	rentalRepo.CreateError = repository.ErrActiveRentalExists

	_, err := svc.CreateRental(context.Background(), customer("user-1"), service.CreateRentalRequest{
		CarID:      "car-1",
		ReturnDate: time.Now().Add(72 * time.Hour),
	})
	if !errors.Is(err, service.ErrActiveRentalExists) {
		t.Errorf("expected ErrActiveRentalExists, got %v", err)
	}
}

func TestCreateRental_NotificationFailureDoesNotFailRental(t *testing.T) {
	t.Parallel()

	svc, carRepo, rentalRepo, _, notifier := newRentalFixture()
	carRepo.AddCar(testCar("car-1", 3))
	notifier.SendError = errors.New("telegram down")

	rental, err := svc.CreateRental(context.Background(), customer("user-1"), service.CreateRentalRequest{
		CarID:      "car-1",
		ReturnDate: time.Now().Add(72 * time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rentalRepo.GetRental(rental.ID) == nil {
		t.Error("expected rental to be persisted despite notification failure")
	}
	if carRepo.Inventory("car-1") != 2 {
		t.Errorf("expected inventory 2, got %d", carRepo.Inventory("car-1"))
	}
}

func TestCloseRental_ReleasesInventoryExactlyOnce(t *testing.T) {
	t.Parallel()

	svc, carRepo, rentalRepo, _, notifier := newRentalFixture()
	carRepo.AddCar(testCar("car-1", 2))
	rentalRepo.AddRental(activeRental("rental-1", "car-1", "user-1", time.Now().Add(24*time.Hour)))

	closed, err := svc.CloseRental(context.Background(), customer("user-1"), "rental-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if closed.IsActive {
		t.Error("expected rental to be inactive")
	}
	if closed.ActualReturnDate.IsZero() {
		t.Error("expected actual return date to be set")
	}
	if carRepo.Inventory("car-1") != 3 {
		t.Errorf("expected inventory 3, got %d", carRepo.Inventory("car-1"))
	}
	if len(notifier.RentalClosed) != 1 {
		t.Errorf("expected 1 close notification, got %d", len(notifier.RentalClosed))
	}

	// Second close is a conflict and must not release again.
	_, err = svc.CloseRental(context.Background(), customer("user-1"), "rental-1")
	if !errors.Is(err, service.ErrRentalAlreadyClosed) {
		t.Fatalf("expected ErrRentalAlreadyClosed, got %v", err)
	}
	if carRepo.Inventory("car-1") != 3 {
		t.Errorf("expected inventory to stay 3, got %d", carRepo.Inventory("car-1"))
	}
	if carRepo.ReleaseCallCount != 1 {
		t.Errorf("expected exactly 1 release, got %d", carRepo.ReleaseCallCount)
	}
}

func TestCloseRental_CarLookupFailureStillCloses(t *testing.T) {
	t.Parallel()

	svc, carRepo, rentalRepo, _, notifier := newRentalFixture()
	carRepo.AddCar(testCar("car-1", 2))
	rentalRepo.AddRental(activeRental("rental-1", "car-1", "user-1", time.Now().Add(24*time.Hour)))
	carRepo.GetError = errors.New("db down")

	closed, err := svc.CloseRental(context.Background(), customer("user-1"), "rental-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if closed.IsActive {
		t.Error("expected rental to be inactive")
	}
	// The notification needs the car and is skipped, never fatal.
	if len(notifier.RentalClosed) != 0 {
		t.Errorf("expected no close notification, got %d", len(notifier.RentalClosed))
	}
}

func TestCloseRental_LostRaceMapsToConflict(t *testing.T) {
	t.Parallel()

	// The rental looks active when loaded but another close wins the
	// conditional update underneath.
	svc, carRepo, rentalRepo, _, _ := newRentalFixture()
	carRepo.AddCar(testCar("car-1", 2))
	rentalRepo.AddRental(activeRental("rental-1", "car-1", "user-1", time.Now().Add(24*time.Hour)))
	rentalRepo.CloseError = repository.ErrNotFound

	_, err := svc.CloseRental(context.Background(), customer("user-1"), "rental-1")
	if !errors.Is(err, service.ErrRentalAlreadyClosed) {
		t.Fatalf("expected ErrRentalAlreadyClosed, got %v", err)
	}
	if carRepo.ReleaseCallCount != 0 {
		t.Errorf("expected no release on lost race, got %d", carRepo.ReleaseCallCount)
	}
}

func TestCloseRental_CustomerCannotCloseOthers(t *testing.T) {
	t.Parallel()

	svc, carRepo, rentalRepo, _, _ := newRentalFixture()
	carRepo.AddCar(testCar("car-1", 2))
	rentalRepo.AddRental(activeRental("rental-1", "car-1", "user-1", time.Now().Add(24*time.Hour)))

	_, err := svc.CloseRental(context.Background(), customer("intruder"), "rental-1")
	if !errors.Is(err, service.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}

	stored := rentalRepo.GetRental("rental-1")
	if stored == nil || !stored.IsActive {
		t.Error("expected rental to stay active")
	}
}

func TestCloseRental_ManagerCanCloseAnyRental(t *testing.T) {
	t.Parallel()

	svc, carRepo, rentalRepo, _, _ := newRentalFixture()
	carRepo.AddCar(testCar("car-1", 2))
	rentalRepo.AddRental(activeRental("rental-1", "car-1", "user-1", time.Now().Add(24*time.Hour)))

	closed, err := svc.CloseRental(context.Background(), manager("boss"), "rental-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closed.IsActive {
		t.Error("expected rental to be inactive")
	}
}

func TestGetRental_CustomerSeesOnlyOwn(t *testing.T) {
	t.Parallel()

	svc, _, rentalRepo, _, _ := newRentalFixture()
	rentalRepo.AddRental(activeRental("rental-1", "car-1", "user-1", time.Now().Add(24*time.Hour)))

	if _, err := svc.GetRental(context.Background(), customer("user-1"), "rental-1"); err != nil {
		t.Errorf("owner lookup failed: %v", err)
	}
	if _, err := svc.GetRental(context.Background(), customer("intruder"), "rental-1"); !errors.Is(err, service.ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}
	if _, err := svc.GetRental(context.Background(), manager("boss"), "rental-1"); err != nil {
		t.Errorf("manager lookup failed: %v", err)
	}
}

func TestListActiveRentals_RoleScoped(t *testing.T) {
	t.Parallel()

	svc, _, rentalRepo, _, _ := newRentalFixture()
	rentalRepo.AddRental(activeRental("rental-1", "car-1", "user-1", time.Now().Add(24*time.Hour)))
	rentalRepo.AddRental(activeRental("rental-2", "car-2", "user-2", time.Now().Add(24*time.Hour)))
	closed := activeRental("rental-3", "car-3", "user-3", time.Now().Add(24*time.Hour))
	closed.IsActive = false
	rentalRepo.AddRental(closed)

	page := repository.Page{Number: 1, Size: 20}

	own, err := svc.ListActiveRentals(context.Background(), customer("user-1"), page)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(own) != 1 || own[0].ID != "rental-1" {
		t.Errorf("expected only rental-1 for customer, got %d rentals", len(own))
	}

	all, err := svc.ListActiveRentals(context.Background(), manager("boss"), page)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 active rentals for manager, got %d", len(all))
	}
}
