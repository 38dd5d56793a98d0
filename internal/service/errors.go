package service

import "errors"

var (
	// ErrInvalidUserID is returned when a user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidCarID is returned when a car ID is empty.
	ErrInvalidCarID = errors.New("invalid car id")

	// ErrInvalidRentalID is returned when a rental ID is empty.
	ErrInvalidRentalID = errors.New("invalid rental id")

	// ErrInvalidPaymentID is returned when a payment ID is empty.
	ErrInvalidPaymentID = errors.New("invalid payment id")

	// ErrInvalidSessionID is returned when a checkout session ID is empty.
	ErrInvalidSessionID = errors.New("invalid session id")

	// ErrInvalidReturnDate is returned when a requested return date is not
	// after the rental date.
	ErrInvalidReturnDate = errors.New("return date must be after rental date")

	// ErrActiveRentalExists is returned when a user who already holds an
	// active rental tries to open a second one.
	ErrActiveRentalExists = errors.New("user already has an active rental")

	// ErrRentalAlreadyClosed is returned when closing a rental twice.
	ErrRentalAlreadyClosed = errors.New("rental already closed")

	// ErrAccessDenied is returned when a customer touches a resource
	// that belongs to someone else.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidFeeInput is returned when fee calculation is asked for
	// missing or inconsistent dates.
	ErrInvalidFeeInput = errors.New("invalid fee input")

	// ErrInvalidPaymentType is returned when a payment type is unknown.
	ErrInvalidPaymentType = errors.New("invalid payment type")

	// ErrGatewayUnavailable is returned when the payment gateway cannot be
	// reached. The caller may retry; nothing was persisted.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrPaymentNotConfirmed is returned when the gateway has not marked
	// the session paid yet.
	ErrPaymentNotConfirmed = errors.New("payment not confirmed by gateway")

	// ErrPaymentNotPending is returned when cancelling a payment that has
	// already reached a terminal status.
	ErrPaymentNotPending = errors.New("payment is not pending")

	// ErrDispatchFailed is returned by the notification dispatcher when a
	// message cannot be delivered. It is always caught and logged at call
	// sites, never propagated to the API boundary.
	ErrDispatchFailed = errors.New("notification dispatch failed")
)
