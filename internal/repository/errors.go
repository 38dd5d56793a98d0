package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrInsufficientInventory is returned when a reservation is attempted
	// against a car with no available units.
	ErrInsufficientInventory = errors.New("insufficient car inventory")

	// ErrActiveRentalExists is returned when an insert would give a user a
	// second active rental.
	ErrActiveRentalExists = errors.New("user already has an active rental")
)
