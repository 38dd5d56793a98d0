package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carshare/internal/domain"
	"carshare/internal/middleware"
	"carshare/internal/service"
)

// RentalHandler handles HTTP requests for rentals.
type RentalHandler struct {
	rentalService *service.RentalService
}

// NewRentalHandler creates a new RentalHandler.
func NewRentalHandler(rentalService *service.RentalService) *RentalHandler {
	return &RentalHandler{rentalService: rentalService}
}

// CreateRentalRequest is the HTTP request body for opening a rental.
type CreateRentalRequest struct {
	CarID      string `json:"car_id"`
	ReturnDate string `json:"return_date"` // YYYY-MM-DD
}

// RentalResponse is the HTTP response for rental data.
type RentalResponse struct {
	ID               string `json:"id"`
	CarID            string `json:"car_id"`
	UserID           string `json:"user_id"`
	RentalDate       string `json:"rental_date"`
	ReturnDate       string `json:"return_date"`
	ActualReturnDate string `json:"actual_return_date,omitempty"`
	IsActive         bool   `json:"is_active"`
}

func toRentalResponse(rental *domain.Rental) RentalResponse {
	resp := RentalResponse{
		ID:         rental.ID,
		CarID:      rental.CarID,
		UserID:     rental.UserID,
		RentalDate: rental.RentalDate.Format("2006-01-02"),
		ReturnDate: rental.ReturnDate.Format("2006-01-02"),
		IsActive:   rental.IsActive,
	}
	if !rental.ActualReturnDate.IsZero() {
		resp.ActualReturnDate = rental.ActualReturnDate.Format("2006-01-02")
	}
	return resp
}

// CreateRental handles POST /v1/rentals
func (h *RentalHandler) CreateRental(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unknown caller"})
		return
	}

	var req CreateRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.CarID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "car_id is required"})
		return
	}

	returnDate, err := time.Parse("2006-01-02", req.ReturnDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "return_date must be YYYY-MM-DD"})
		return
	}

	rental, err := h.rentalService.CreateRental(c.Request.Context(), caller, service.CreateRentalRequest{
		CarID:      req.CarID,
		ReturnDate: returnDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRentalResponse(rental))
}

// CloseRental handles POST /v1/rentals/:id/return
func (h *RentalHandler) CloseRental(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unknown caller"})
		return
	}

	rental, err := h.rentalService.CloseRental(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRentalResponse(rental))
}

// GetRental handles GET /v1/rentals/:id
func (h *RentalHandler) GetRental(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unknown caller"})
		return
	}

	rental, err := h.rentalService.GetRental(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRentalResponse(rental))
}

// ListActive handles GET /v1/rentals
func (h *RentalHandler) ListActive(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unknown caller"})
		return
	}

	rentals, err := h.rentalService.ListActiveRentals(c.Request.Context(), caller, pageFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]RentalResponse, 0, len(rentals))
	for _, rental := range rentals {
		responses = append(responses, toRentalResponse(rental))
	}

	respondJSON(c, http.StatusOK, gin.H{"rentals": responses})
}
