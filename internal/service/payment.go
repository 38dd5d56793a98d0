package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"carshare/internal/domain"
	"carshare/internal/repository"
)

// CheckoutSession is the gateway's handle on a pending payment.
type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentGateway is the interface to the external payment provider.
type PaymentGateway interface {
	// CreateCheckoutSession opens a checkout session for the given amount.
	CreateCheckoutSession(ctx context.Context, amount decimal.Decimal, description string) (*CheckoutSession, error)

	// IsSessionPaid reports whether the gateway marked the session paid.
	IsSessionPaid(ctx context.Context, sessionID string) (bool, error)
}

// PaymentNotifier defines the notifications payment transitions emit.
type PaymentNotifier interface {
	NotifyPaymentSuccess(ctx context.Context, userID string, amount decimal.Decimal) error
	NotifyPaymentCancelled(ctx context.Context, userID string, amount decimal.Decimal) error
}

// Ensure NotificationDispatcher implements PaymentNotifier.
var _ PaymentNotifier = (*NotificationDispatcher)(nil)

// PaymentService drives checkout sessions against the gateway and
// reconciles their outcome.
type PaymentService struct {
	rentalRepo  repository.RentalRepository
	carRepo     repository.CarRepository
	paymentRepo repository.PaymentRepository
	gateway     PaymentGateway
	notifier    PaymentNotifier
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	rentalRepo repository.RentalRepository,
	carRepo repository.CarRepository,
	paymentRepo repository.PaymentRepository,
	gateway PaymentGateway,
	notifier PaymentNotifier,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		rentalRepo:  rentalRepo,
		carRepo:     carRepo,
		paymentRepo: paymentRepo,
		gateway:     gateway,
		notifier:    notifier,
		logger:      logger,
	}
}

// CreateSession computes the amount owed on a rental and opens a checkout
// session for it. The gateway call happens before anything is persisted, so
// a gateway failure leaves no orphaned payment row.
func (s *PaymentService) CreateSession(ctx context.Context, caller *domain.User, rentalID string, paymentType domain.PaymentType) (*domain.Payment, error) {
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

	// A rental that is not the caller's does not exist from their point
	// of view.
	if rental.UserID != caller.ID {
		return nil, repository.ErrNotFound
	}

	car, err := s.carRepo.GetByID(ctx, rental.CarID)
	if err != nil {
		return nil, err
	}

	amount, err := ComputeFee(FeeInput{
		RentalDate:       rental.RentalDate,
		ReturnDate:       rental.ReturnDate,
		ActualReturnDate: rental.ActualReturnDate,
		DailyFee:         car.DailyFee,
		Type:             paymentType,
	})
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Car rental %s: %s %s", paymentType, car.Brand, car.Model)
	session, err := s.gateway.CreateCheckoutSession(ctx, amount, description)
	if err != nil {
		s.logger.Error("checkout session creation failed",
			zap.String("rental_id", rental.ID),
			zap.String("amount", amount.StringFixed(2)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	payment := &domain.Payment{
		ID:         uuid.New().String(),
		RentalID:   rental.ID,
		Status:     domain.PaymentStatusPending,
		Type:       paymentType,
		SessionID:  session.ID,
		SessionURL: session.URL,
		Amount:     amount,
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	return payment, nil
}

// Confirm reconciles a checkout session the gateway reports paid. Calling
// it on an already-paid payment is a no-op and sends no second notification.
func (s *PaymentService) Confirm(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidSessionID
	}

	payment, err := s.paymentRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}

	if payment.Status == domain.PaymentStatusPaid {
		return nil
	}

	paid, err := s.gateway.IsSessionPaid(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if !paid {
		return ErrPaymentNotConfirmed
	}

	ok, err := s.paymentRepo.UpdateStatusFrom(ctx, sessionID, domain.PaymentStatusPending, domain.PaymentStatusPaid)
	if err != nil {
		return err
	}
	if !ok {
		// A concurrent confirm got there first, or the payment was
		// cancelled in the meantime.
		current, err := s.paymentRepo.GetBySessionID(ctx, sessionID)
		if err != nil {
			return err
		}
		if current.Status == domain.PaymentStatusPaid {
			return nil
		}
		return ErrPaymentNotPending
	}

	s.notifyRenter(ctx, payment, func(userID string) error {
		return s.notifier.NotifyPaymentSuccess(ctx, userID, payment.Amount)
	})

	return nil
}

// Cancel transitions a pending payment to CANCELLED. Payments already in a
// terminal status conflict rather than silently passing.
func (s *PaymentService) Cancel(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidSessionID
	}

	payment, err := s.paymentRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}

	if payment.Status != domain.PaymentStatusPending {
		return ErrPaymentNotPending
	}

	ok, err := s.paymentRepo.UpdateStatusFrom(ctx, sessionID, domain.PaymentStatusPending, domain.PaymentStatusCancelled)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPaymentNotPending
	}

	s.notifyRenter(ctx, payment, func(userID string) error {
		return s.notifier.NotifyPaymentCancelled(ctx, userID, payment.Amount)
	})

	return nil
}

// GetPayment retrieves a single payment. Customers see only payments on
// their own rentals; managers any.
func (s *PaymentService) GetPayment(ctx context.Context, caller *domain.User, paymentID string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if !caller.IsManager() {
		rental, err := s.rentalRepo.GetByID(ctx, payment.RentalID)
		if err != nil {
			return nil, err
		}
		if rental.UserID != caller.ID {
			return nil, ErrAccessDenied
		}
	}

	return payment, nil
}

// ListPayments lists payments: all of them for managers, only the caller's
// own for customers. The rental and status filters are a manager tool and
// are ignored for customers.
func (s *PaymentService) ListPayments(ctx context.Context, caller *domain.User, filter repository.PaymentFilter, page repository.Page) ([]*domain.Payment, error) {
	if caller.IsManager() {
		return s.paymentRepo.ListAll(ctx, filter, page)
	}
	return s.paymentRepo.ListByUser(ctx, caller.ID, page)
}

// notifyRenter resolves the renter behind a payment and sends best-effort.
func (s *PaymentService) notifyRenter(ctx context.Context, payment *domain.Payment, send func(userID string) error) {
	if s.notifier == nil {
		return
	}

	rental, err := s.rentalRepo.GetByID(ctx, payment.RentalID)
	if err != nil {
		s.logger.Warn("payment notification skipped, rental lookup failed",
			zap.String("payment_id", payment.ID),
			zap.Error(err))
		return
	}

	if err := send(rental.UserID); err != nil {
		s.logger.Warn("payment notification failed",
			zap.String("payment_id", payment.ID),
			zap.String("user_id", rental.UserID),
			zap.Error(err))
	}
}
