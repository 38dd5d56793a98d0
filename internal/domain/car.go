package domain

import "github.com/shopspring/decimal"

// CarType represents the body type of a car.
type CarType string

const (
	CarTypeSedan     CarType = "SEDAN"
	CarTypeSUV       CarType = "SUV"
	CarTypeHatchback CarType = "HATCHBACK"
	CarTypeUniversal CarType = "UNIVERSAL"
)

// Car represents a car model in the shared fleet.
// Inventory is the number of units currently available for rental;
// it is mutated only through CarRepository.Reserve and Release.
type Car struct {
	ID        string
	Brand     string
	Model     string
	Type      CarType
	Inventory int
	DailyFee  decimal.Decimal
}
