package tests

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"carshare/internal/domain"
	"carshare/internal/redis"
	"carshare/internal/repository"
	"carshare/internal/service"
)

// ──────────────────────────────────────────────
// MOCK CAR REPOSITORY
// ──────────────────────────────────────────────

// MockCarRepository is a mock implementation of CarRepository.
type MockCarRepository struct {
	mu   sync.RWMutex
	cars map[string]*domain.Car

	// Counters for verification
	ReserveCallCount int32
	ReleaseCallCount int32

	// Error injection
	GetError     error
	ReserveError error
	ReleaseError error
}

// NewMockCarRepository creates a new mock car repository.
func NewMockCarRepository() *MockCarRepository {
	return &MockCarRepository{
		cars: make(map[string]*domain.Car),
	}
}

// AddCar adds a car to the mock repository.
func (m *MockCarRepository) AddCar(car *domain.Car) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cars[car.ID] = car
}

func (m *MockCarRepository) GetByID(ctx context.Context, id string) (*domain.Car, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	car, ok := m.cars[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *car
	return &copy, nil
}

func (m *MockCarRepository) GetAll(ctx context.Context) ([]*domain.Car, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Car, 0, len(m.cars))
	for _, c := range m.cars {
		copy := *c
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockCarRepository) Reserve(ctx context.Context, id string) error {
	atomic.AddInt32(&m.ReserveCallCount, 1)
	if m.ReserveError != nil {
		return m.ReserveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	car, ok := m.cars[id]
	if !ok {
		return repository.ErrNotFound
	}
	if car.Inventory <= 0 {
		return repository.ErrInsufficientInventory
	}
	car.Inventory--
	return nil
}

func (m *MockCarRepository) Release(ctx context.Context, id string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	if m.ReleaseError != nil {
		return m.ReleaseError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	car, ok := m.cars[id]
	if !ok {
		return repository.ErrNotFound
	}
	car.Inventory++
	return nil
}

// Inventory returns the current inventory for assertions.
func (m *MockCarRepository) Inventory(id string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	car, ok := m.cars[id]
	if !ok {
		return -1
	}
	return car.Inventory
}

// ──────────────────────────────────────────────
// MOCK RENTAL REPOSITORY
// ──────────────────────────────────────────────

// MockRentalRepository is a mock implementation of RentalRepository.
// Create enforces the one-active-rental-per-user rule the way the partial
// unique index does in Postgres.
type MockRentalRepository struct {
	mu      sync.RWMutex
	rentals map[string]*domain.Rental

	// Counters for verification
	CreateCallCount int32
	CloseCallCount  int32

	// Error injection
	CreateError       error
	CloseError        error
	OverdueListError  error
	ReminderListError error
}

// NewMockRentalRepository creates a new mock rental repository.
func NewMockRentalRepository() *MockRentalRepository {
	return &MockRentalRepository{
		rentals: make(map[string]*domain.Rental),
	}
}

// AddRental adds a rental to the mock repository.
func (m *MockRentalRepository) AddRental(rental *domain.Rental) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rentals[rental.ID] = rental
}

func (m *MockRentalRepository) Create(ctx context.Context, rental *domain.Rental) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rentals {
		if r.UserID == rental.UserID && r.IsActive {
			return repository.ErrActiveRentalExists
		}
	}
	copy := *rental
	m.rentals[rental.ID] = &copy
	return nil
}

func (m *MockRentalRepository) GetByID(ctx context.Context, id string) (*domain.Rental, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rental, ok := m.rentals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *rental
	return &copy, nil
}

func (m *MockRentalRepository) ExistsActiveByUser(ctx context.Context, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rentals {
		if r.UserID == userID && r.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRentalRepository) Close(ctx context.Context, id string, returnedAt time.Time) error {
	atomic.AddInt32(&m.CloseCallCount, 1)
	if m.CloseError != nil {
		return m.CloseError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rental, ok := m.rentals[id]
	if !ok || !rental.IsActive {
		return repository.ErrNotFound
	}
	rental.IsActive = false
	rental.ActualReturnDate = returnedAt
	return nil
}

func (m *MockRentalRepository) ListActive(ctx context.Context, userID string, page repository.Page) ([]*domain.Rental, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Rental, 0)
	for _, r := range m.rentals {
		if !r.IsActive {
			continue
		}
		if userID != "" && r.UserID != userID {
			continue
		}
		copy := *r
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockRentalRepository) ListActiveDueBefore(ctx context.Context, day time.Time) ([]*domain.Rental, error) {
	if m.OverdueListError != nil {
		return nil, m.OverdueListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Rental, 0)
	for _, r := range m.rentals {
		if r.IsActive && r.ReturnDate.Before(day) {
			copy := *r
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockRentalRepository) ListActiveDueOnOrAfter(ctx context.Context, day time.Time) ([]*domain.Rental, error) {
	if m.ReminderListError != nil {
		return nil, m.ReminderListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Rental, 0)
	for _, r := range m.rentals {
		if r.IsActive && !r.ReturnDate.Before(day) {
			copy := *r
			result = append(result, &copy)
		}
	}
	return result, nil
}

// GetRental returns the rental by ID (for test assertions).
func (m *MockRentalRepository) GetRental(id string) *domain.Rental {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rentals[id]
}

// CountRentals returns the number of rentals.
func (m *MockRentalRepository) CountRentals() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rentals)
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment

	// Counters
	CreateCallCount int32

	// Error injection
	CreateError error
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
	}
}

// AddPayment adds a payment to the mock repository.
func (m *MockPaymentRepository) AddPayment(payment *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[payment.ID] = payment
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *payment
	m.payments[payment.ID] = &copy
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payment, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *payment
	return &copy, nil
}

func (m *MockPaymentRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.SessionID == sessionID {
			copy := *p
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockPaymentRepository) UpdateStatusFrom(ctx context.Context, sessionID string, from, to domain.PaymentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.SessionID == sessionID {
			if p.Status != from {
				return false, nil
			}
			p.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (m *MockPaymentRepository) ListAll(ctx context.Context, filter repository.PaymentFilter, page repository.Page) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		if filter.RentalID != "" && p.RentalID != filter.RentalID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		copy := *p
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockPaymentRepository) ListByUser(ctx context.Context, userID string, page repository.Page) ([]*domain.Payment, error) {
	// The mock has no rental join; tests that need per-user filtering
	// assert through ListAll instead.
	return m.ListAll(ctx, repository.PaymentFilter{}, page)
}

// CountPayments returns the number of payments.
func (m *MockPaymentRepository) CountPayments() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payments)
}

// GetPayment returns the payment by session ID (for test assertions).
func (m *MockPaymentRepository) GetPayment(sessionID string) *domain.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.payments {
		if p.SessionID == sessionID {
			return p
		}
	}
	return nil
}

// ──────────────────────────────────────────────
// MOCK USER REPOSITORY
// ──────────────────────────────────────────────

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

// NewMockUserRepository creates a new mock user repository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]*domain.User),
	}
}

// AddUser adds a user to the mock repository.
func (m *MockUserRepository) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *user
	return &copy, nil
}

func (m *MockUserRepository) GetAll(ctx context.Context) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		copy := *u
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockUserRepository) GetManagers(ctx context.Context) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.User, 0)
	for _, u := range m.users {
		if u.Role == domain.RoleManager {
			copy := *u
			result = append(result, &copy)
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of the sweep lock store.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireSweepLock(ctx context.Context, passKey string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:sweep:" + passKey
	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseSweepLock(ctx context.Context, passKey string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, "lock:sweep:"+passKey)
	return nil
}

// IsLocked checks whether a sweep pass lock is held (for assertions).
func (m *MockLockStore) IsLocked(passKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks["lock:sweep:"+passKey]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is a mock implementation of the car cache.
type MockCacheStore struct {
	mu   sync.RWMutex
	cars map[string]*redis.CachedCar

	// Counters
	InvalidateCallCount int32
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		cars: make(map[string]*redis.CachedCar),
	}
}

func (m *MockCacheStore) GetCar(ctx context.Context, carID string) (*redis.CachedCar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	car, ok := m.cars[carID]
	if !ok {
		return nil, nil // Cache miss
	}
	copy := *car
	return &copy, nil
}

func (m *MockCacheStore) SetCar(ctx context.Context, car *redis.CachedCar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *car
	m.cars[car.ID] = &copy
	return nil
}

func (m *MockCacheStore) InvalidateCar(ctx context.Context, carID string) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cars, carID)
	return nil
}

// HasCar checks whether a car is cached (for assertions).
func (m *MockCacheStore) HasCar(carID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.cars[carID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK PAYMENT GATEWAY
// ──────────────────────────────────────────────

// MockGateway is a mock payment gateway.
type MockGateway struct {
	mu sync.Mutex

	// Control behavior
	CreateError  error
	PaidSessions map[string]bool
	StatusError  error

	// Counters
	CreateSessionCallCount int32

	nextSession int
}

// NewMockGateway creates a new mock payment gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		PaidSessions: make(map[string]bool),
	}
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, amount decimal.Decimal, description string) (*service.CheckoutSession, error) {
	atomic.AddInt32(&m.CreateSessionCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	m.nextSession++
	id := fmt.Sprintf("cs_test_%d", m.nextSession)
	return &service.CheckoutSession{
		ID:  id,
		URL: "https://checkout.example.com/" + id,
	}, nil
}

func (m *MockGateway) IsSessionPaid(ctx context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StatusError != nil {
		return false, m.StatusError
	}
	return m.PaidSessions[sessionID], nil
}

// MarkPaid flags a session as paid on the gateway side.
func (m *MockGateway) MarkPaid(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PaidSessions[sessionID] = true
}

// ──────────────────────────────────────────────
// RECORDING NOTIFIER
// ──────────────────────────────────────────────

// RecordingNotifier captures every notification instead of sending it. It
// satisfies the rental, payment and sweep notifier interfaces.
type RecordingNotifier struct {
	mu sync.Mutex

	// Error injection
	SendError error

	RentalCreated    []string // rental IDs
	RentalClosed     []string // rental IDs
	PaymentSuccess   []string // user IDs
	PaymentCancelled []string // user IDs
	RenterOverdue    []string // rental IDs
	DueReminders     []string // rental IDs
	ManagerOverdue   []string // manager IDs
	ManagerAllClear  []string // manager IDs
}

// NewRecordingNotifier creates a new recording notifier.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) record(dst *[]string, v string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.SendError != nil {
		return n.SendError
	}
	*dst = append(*dst, v)
	return nil
}

func (n *RecordingNotifier) NotifyRentalCreated(ctx context.Context, rental *domain.Rental, car *domain.Car) error {
	return n.record(&n.RentalCreated, rental.ID)
}

func (n *RecordingNotifier) NotifyRentalClosed(ctx context.Context, rental *domain.Rental, car *domain.Car) error {
	return n.record(&n.RentalClosed, rental.ID)
}

func (n *RecordingNotifier) NotifyPaymentSuccess(ctx context.Context, userID string, amount decimal.Decimal) error {
	return n.record(&n.PaymentSuccess, userID)
}

func (n *RecordingNotifier) NotifyPaymentCancelled(ctx context.Context, userID string, amount decimal.Decimal) error {
	return n.record(&n.PaymentCancelled, userID)
}

func (n *RecordingNotifier) NotifyRentalOverdue(ctx context.Context, rental *domain.Rental, car *domain.Car) error {
	return n.record(&n.RenterOverdue, rental.ID)
}

func (n *RecordingNotifier) NotifyReturnDateReminder(ctx context.Context, rental *domain.Rental) error {
	return n.record(&n.DueReminders, rental.ID)
}

func (n *RecordingNotifier) NotifyManagerOverdue(ctx context.Context, managerID string, rental *domain.Rental, car *domain.Car, renter *domain.User, overdueDays int64) error {
	return n.record(&n.ManagerOverdue, managerID)
}

func (n *RecordingNotifier) NotifyManagerAllClear(ctx context.Context, managerID string) error {
	return n.record(&n.ManagerAllClear, managerID)
}

// CountAll returns the total number of captured notifications.
func (n *RecordingNotifier) CountAll() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.RentalCreated) + len(n.RentalClosed) +
		len(n.PaymentSuccess) + len(n.PaymentCancelled) +
		len(n.RenterOverdue) + len(n.DueReminders) +
		len(n.ManagerOverdue) + len(n.ManagerAllClear)
}

// ──────────────────────────────────────────────
// RECORDING CHANNEL
// ──────────────────────────────────────────────

// RecordingChannel captures raw channel sends for dispatcher tests.
type RecordingChannel struct {
	mu sync.Mutex

	// Error injection
	SendError error

	Messages []SentMessage
}

// SentMessage is one captured channel send.
type SentMessage struct {
	Address string
	Text    string
}

// NewRecordingChannel creates a new recording channel.
func NewRecordingChannel() *RecordingChannel {
	return &RecordingChannel{}
}

func (c *RecordingChannel) Send(ctx context.Context, address, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendError != nil {
		return c.SendError
	}
	c.Messages = append(c.Messages, SentMessage{Address: address, Text: message})
	return nil
}

// Interface checks.
var (
	_ repository.CarRepository     = (*MockCarRepository)(nil)
	_ repository.RentalRepository  = (*MockRentalRepository)(nil)
	_ repository.PaymentRepository = (*MockPaymentRepository)(nil)
	_ repository.UserRepository    = (*MockUserRepository)(nil)
	_ redis.LockStoreInterface     = (*MockLockStore)(nil)
	_ redis.CacheStoreInterface    = (*MockCacheStore)(nil)
	_ service.PaymentGateway       = (*MockGateway)(nil)
	_ service.RentalNotifier       = (*RecordingNotifier)(nil)
	_ service.PaymentNotifier      = (*RecordingNotifier)(nil)
	_ service.SweepNotifier        = (*RecordingNotifier)(nil)
	_ service.NotificationChannel  = (*RecordingChannel)(nil)
)
