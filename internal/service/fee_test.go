package service

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"carshare/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeFee_Payment_FullDays(t *testing.T) {
	t.Parallel()

	amount, err := ComputeFee(FeeInput{
		RentalDate: day(2026, time.January, 1),
		ReturnDate: day(2026, time.January, 6),
		DailyFee:   decimal.NewFromInt(100),
		Type:       domain.PaymentTypePayment,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := decimal.NewFromInt(500)
	if !amount.Equal(want) {
		t.Errorf("expected %s, got %s", want, amount)
	}
}

func TestComputeFee_Payment_SameDayChargesOneDay(t *testing.T) {
	t.Parallel()

	amount, err := ComputeFee(FeeInput{
		RentalDate: day(2026, time.March, 10),
		ReturnDate: day(2026, time.March, 10),
		DailyFee:   decimal.NewFromInt(100),
		Type:       domain.PaymentTypePayment,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected 100, got %s", amount)
	}
}

func TestComputeFee_Payment_FractionalDailyFee(t *testing.T) {
	t.Parallel()

	amount, err := ComputeFee(FeeInput{
		RentalDate: day(2026, time.May, 1),
		ReturnDate: day(2026, time.May, 4),
		DailyFee:   decimal.RequireFromString("49.99"),
		Type:       domain.PaymentTypePayment,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := decimal.RequireFromString("149.97")
	if !amount.Equal(want) {
		t.Errorf("expected %s, got %s", want, amount)
	}
}

func TestComputeFee_Payment_ReturnBeforeRentalRejected(t *testing.T) {
	t.Parallel()

	_, err := ComputeFee(FeeInput{
		RentalDate: day(2026, time.January, 6),
		ReturnDate: day(2026, time.January, 1),
		DailyFee:   decimal.NewFromInt(100),
		Type:       domain.PaymentTypePayment,
	})
	if !errors.Is(err, ErrInvalidFeeInput) {
		t.Errorf("expected ErrInvalidFeeInput, got %v", err)
	}
}

func TestComputeFee_Payment_MissingDatesRejected(t *testing.T) {
	t.Parallel()

	_, err := ComputeFee(FeeInput{
		DailyFee: decimal.NewFromInt(100),
		Type:     domain.PaymentTypePayment,
	})
	if !errors.Is(err, ErrInvalidFeeInput) {
		t.Errorf("expected ErrInvalidFeeInput, got %v", err)
	}
}

func TestComputeFee_Fine_BaseAndDoubledOverdue(t *testing.T) {
	t.Parallel()

	// Held 7 days, 2 of them past the promised return date:
	// 100*7 + 2*100*2 = 1100.
	amount, err := ComputeFee(FeeInput{
		RentalDate:       day(2026, time.January, 1),
		ReturnDate:       day(2026, time.January, 6),
		ActualReturnDate: day(2026, time.January, 8),
		DailyFee:         decimal.NewFromInt(100),
		Type:             domain.PaymentTypeFine,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := decimal.NewFromInt(1100)
	if !amount.Equal(want) {
		t.Errorf("expected %s, got %s", want, amount)
	}
}

func TestComputeFee_Fine_OnTimeReturnRejected(t *testing.T) {
	t.Parallel()

	_, err := ComputeFee(FeeInput{
		RentalDate:       day(2026, time.January, 1),
		ReturnDate:       day(2026, time.January, 6),
		ActualReturnDate: day(2026, time.January, 6),
		DailyFee:         decimal.NewFromInt(100),
		Type:             domain.PaymentTypeFine,
	})
	if !errors.Is(err, ErrInvalidFeeInput) {
		t.Errorf("expected ErrInvalidFeeInput, got %v", err)
	}
}

func TestComputeFee_Fine_MissingActualReturnRejected(t *testing.T) {
	t.Parallel()

	_, err := ComputeFee(FeeInput{
		RentalDate: day(2026, time.January, 1),
		ReturnDate: day(2026, time.January, 6),
		DailyFee:   decimal.NewFromInt(100),
		Type:       domain.PaymentTypeFine,
	})
	if !errors.Is(err, ErrInvalidFeeInput) {
		t.Errorf("expected ErrInvalidFeeInput, got %v", err)
	}
}

func TestComputeFee_UnknownTypeRejected(t *testing.T) {
	t.Parallel()

	_, err := ComputeFee(FeeInput{
		RentalDate: day(2026, time.January, 1),
		ReturnDate: day(2026, time.January, 6),
		DailyFee:   decimal.NewFromInt(100),
		Type:       domain.PaymentType("REFUND"),
	})
	if !errors.Is(err, ErrInvalidPaymentType) {
		t.Errorf("expected ErrInvalidPaymentType, got %v", err)
	}
}

func TestComputeFee_IgnoresTimeOfDay(t *testing.T) {
	t.Parallel()

	// A late-evening pickup and an early-morning return still count as
	// whole calendar days.
	amount, err := ComputeFee(FeeInput{
		RentalDate: time.Date(2026, time.January, 1, 23, 30, 0, 0, time.UTC),
		ReturnDate: time.Date(2026, time.January, 6, 0, 15, 0, 0, time.UTC),
		DailyFee:   decimal.NewFromInt(100),
		Type:       domain.PaymentTypePayment,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected 500, got %s", amount)
	}
}
