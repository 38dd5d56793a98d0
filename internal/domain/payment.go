package domain

import "github.com/shopspring/decimal"

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// PaymentType distinguishes a regular rental payment from an overdue fine.
type PaymentType string

const (
	PaymentTypePayment PaymentType = "PAYMENT"
	PaymentTypeFine    PaymentType = "FINE"
)

// Payment represents a checkout session opened against the payment gateway
// for a rental. The amount is computed once at session creation and never
// recomputed; PAID and CANCELLED are terminal states.
type Payment struct {
	ID         string
	RentalID   string
	Status     PaymentStatus
	Type       PaymentType
	SessionID  string
	SessionURL string
	Amount     decimal.Decimal
}
