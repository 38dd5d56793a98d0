package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"carshare/internal/domain"
)

// fineCoefficient multiplies the daily fee for every day past the promised
// return date.
var fineCoefficient = decimal.NewFromInt(2)

// FeeInput carries the dates and price a fee is computed from.
// ActualReturnDate is the zero time while the rental is still open.
type FeeInput struct {
	RentalDate       time.Time
	ReturnDate       time.Time
	ActualReturnDate time.Time
	DailyFee         decimal.Decimal
	Type             domain.PaymentType
}

// ComputeFee calculates the amount owed for a rental payment or fine.
// It is pure: same input, same output, no side effects.
//
// PAYMENT charges the daily fee for each whole day between the rental date
// and the promised return date, with a minimum of one day.
//
// FINE charges the daily fee for each day the car was actually held, plus
// twice the daily fee for each day past the promised return date. It
// requires an actual return date later than the promised one.
func ComputeFee(in FeeInput) (decimal.Decimal, error) {
	if in.RentalDate.IsZero() || in.ReturnDate.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: rental and return dates are required", ErrInvalidFeeInput)
	}

	switch in.Type {
	case domain.PaymentTypePayment:
		days := daysBetween(in.RentalDate, in.ReturnDate)
		if days < 0 {
			return decimal.Zero, fmt.Errorf("%w: return date precedes rental date", ErrInvalidFeeInput)
		}
		if days < 1 {
			days = 1
		}
		return in.DailyFee.Mul(decimal.NewFromInt(days)), nil

	case domain.PaymentTypeFine:
		if in.ActualReturnDate.IsZero() {
			return decimal.Zero, fmt.Errorf("%w: fine requires an actual return date", ErrInvalidFeeInput)
		}
		if !in.ActualReturnDate.After(in.ReturnDate) {
			return decimal.Zero, fmt.Errorf("%w: fine requires a late return", ErrInvalidFeeInput)
		}
		heldDays := daysBetween(in.RentalDate, in.ActualReturnDate)
		if heldDays < 0 {
			return decimal.Zero, fmt.Errorf("%w: actual return date precedes rental date", ErrInvalidFeeInput)
		}
		overdueDays := daysBetween(in.ReturnDate, in.ActualReturnDate)

		base := in.DailyFee.Mul(decimal.NewFromInt(heldDays))
		fine := fineCoefficient.Mul(in.DailyFee).Mul(decimal.NewFromInt(overdueDays))
		return base.Add(fine), nil

	default:
		return decimal.Zero, ErrInvalidPaymentType
	}
}

// daysBetween counts whole days between two instants. Partial days are not
// prorated.
func daysBetween(from, to time.Time) int64 {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int64(toDay.Sub(fromDay) / (24 * time.Hour))
}
