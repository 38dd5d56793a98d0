package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"carshare/internal/domain"
	"carshare/internal/repository"
)

// NotificationChannel is the transport a message is delivered over.
// The address is channel-specific; for the Telegram channel it is the
// user's chat id.
type NotificationChannel interface {
	Send(ctx context.Context, address, message string) error
}

// NotificationDispatcher composes outbound messages and delivers them over
// the channel. Every failure surfaces as ErrDispatchFailed; callers treat
// delivery as best-effort and never let it unwind committed state.
type NotificationDispatcher struct {
	userRepo repository.UserRepository
	channel  NotificationChannel
}

// NewNotificationDispatcher creates a new NotificationDispatcher.
func NewNotificationDispatcher(userRepo repository.UserRepository, channel NotificationChannel) *NotificationDispatcher {
	return &NotificationDispatcher{
		userRepo: userRepo,
		channel:  channel,
	}
}

// Send resolves the user's notification address and delivers the message.
func (d *NotificationDispatcher) Send(ctx context.Context, userID, message string) error {
	user, err := d.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: resolving user %s: %v", ErrDispatchFailed, userID, err)
	}

	if user.TelegramChatID == "" {
		return fmt.Errorf("%w: user %s has no notification address", ErrDispatchFailed, userID)
	}

	if err := d.channel.Send(ctx, user.TelegramChatID, message); err != nil {
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	return nil
}

// NotifyRentalCreated tells the renter a car is reserved for them.
func (d *NotificationDispatcher) NotifyRentalCreated(ctx context.Context, rental *domain.Rental, car *domain.Car) error {
	message := fmt.Sprintf(
		"Congratulations! You have rented a %s %s. Return date: %s.",
		car.Brand, car.Model, rental.ReturnDate.Format("2006-01-02"),
	)
	return d.Send(ctx, rental.UserID, message)
}

// NotifyRentalClosed tells the renter the return was recorded.
func (d *NotificationDispatcher) NotifyRentalClosed(ctx context.Context, rental *domain.Rental, car *domain.Car) error {
	message := fmt.Sprintf(
		"You have returned the %s %s. We will be glad to see you again!",
		car.Brand, car.Model,
	)
	return d.Send(ctx, rental.UserID, message)
}

// NotifyPaymentSuccess tells the renter their payment went through.
func (d *NotificationDispatcher) NotifyPaymentSuccess(ctx context.Context, userID string, amount decimal.Decimal) error {
	message := fmt.Sprintf("Your rental payment of $%s was successful.", amount.StringFixed(2))
	return d.Send(ctx, userID, message)
}

// NotifyPaymentCancelled tells the renter their payment was cancelled.
func (d *NotificationDispatcher) NotifyPaymentCancelled(ctx context.Context, userID string, amount decimal.Decimal) error {
	message := fmt.Sprintf("Your rental payment of $%s was cancelled. The session can be reopened within 24 hours.", amount.StringFixed(2))
	return d.Send(ctx, userID, message)
}

// NotifyRentalOverdue tells the renter a fine is due.
func (d *NotificationDispatcher) NotifyRentalOverdue(ctx context.Context, rental *domain.Rental, car *domain.Car) error {
	message := fmt.Sprintf(
		"You failed to return the %s %s by %s. A fine is due on top of the rental payment.",
		car.Brand, car.Model, rental.ReturnDate.Format("2006-01-02"),
	)
	return d.Send(ctx, rental.UserID, message)
}

// NotifyReturnDateReminder reminds the renter of an upcoming return date.
func (d *NotificationDispatcher) NotifyReturnDateReminder(ctx context.Context, rental *domain.Rental) error {
	message := fmt.Sprintf(
		"We appreciate you using our cars! A reminder that your rental is due back on %s.",
		rental.ReturnDate.Format("2006-01-02"),
	)
	return d.Send(ctx, rental.UserID, message)
}

// NotifyManagerOverdue sends a manager the details of one overdue rental.
func (d *NotificationDispatcher) NotifyManagerOverdue(ctx context.Context, managerID string, rental *domain.Rental, car *domain.Car, renter *domain.User, overdueDays int64) error {
	message := fmt.Sprintf(
		"Rental %s is overdue by %d day(s). Car: %s %s. Customer: %s %s (%s).",
		rental.ID, overdueDays, car.Brand, car.Model,
		renter.FirstName, renter.LastName, renter.Email,
	)
	return d.Send(ctx, managerID, message)
}

// NotifyManagerAllClear tells a manager nothing is overdue today.
func (d *NotificationDispatcher) NotifyManagerAllClear(ctx context.Context, managerID string) error {
	return d.Send(ctx, managerID, "No rentals overdue today!")
}
