package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"carshare/internal/repository"
	"carshare/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// pageFromQuery reads page/size query parameters with sane bounds.
func pageFromQuery(c *gin.Context) repository.Page {
	page := repository.Page{Number: 1, Size: 20}

	if raw := c.Query("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page.Number = n
		}
	}
	if raw := c.Query("size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			page.Size = n
		}
	}

	return page
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidCarID),
		errors.Is(err, service.ErrInvalidRentalID),
		errors.Is(err, service.ErrInvalidPaymentID),
		errors.Is(err, service.ErrInvalidSessionID),
		errors.Is(err, service.ErrInvalidReturnDate),
		errors.Is(err, service.ErrInvalidPaymentType),
		errors.Is(err, service.ErrInvalidFeeInput):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrActiveRentalExists),
		errors.Is(err, repository.ErrActiveRentalExists),
		errors.Is(err, service.ErrRentalAlreadyClosed),
		errors.Is(err, service.ErrPaymentNotPending),
		errors.Is(err, repository.ErrInsufficientInventory):
		return http.StatusConflict

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrAccessDenied):
		return http.StatusForbidden

	// Gateway has not confirmed the session yet
	case errors.Is(err, service.ErrPaymentNotConfirmed):
		return http.StatusPaymentRequired

	// Gateway unreachable; caller may retry
	case errors.Is(err, service.ErrGatewayUnavailable):
		return http.StatusBadGateway

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
