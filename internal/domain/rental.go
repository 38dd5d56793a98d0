package domain

import "time"

// Rental represents a rental of one car unit by one user.
// A rental is Active until the car is returned; ActualReturnDate is the
// zero time while the rental is active and set exactly once on close.
type Rental struct {
	ID               string
	CarID            string
	UserID           string
	RentalDate       time.Time
	ReturnDate       time.Time
	ActualReturnDate time.Time
	IsActive         bool
}

// Overdue reports whether the rental is past its promised return date
// as of the given day.
func (r *Rental) Overdue(today time.Time) bool {
	return r.IsActive && r.ReturnDate.Before(today)
}
