package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carshare/internal/domain"
	"carshare/internal/middleware"
	"carshare/internal/repository"
	"carshare/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreateSessionRequest is the HTTP request body for opening a checkout session.
type CreateSessionRequest struct {
	RentalID string `json:"rental_id"`
	Type     string `json:"type"` // PAYMENT or FINE
}

// PaymentResponse is the HTTP response for payment operations.
type PaymentResponse struct {
	ID         string `json:"id"`
	RentalID   string `json:"rental_id"`
	Status     string `json:"status"`
	Type       string `json:"type"`
	SessionID  string `json:"session_id"`
	SessionURL string `json:"session_url"`
	Amount     string `json:"amount"`
}

func toPaymentResponse(payment *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:         payment.ID,
		RentalID:   payment.RentalID,
		Status:     string(payment.Status),
		Type:       string(payment.Type),
		SessionID:  payment.SessionID,
		SessionURL: payment.SessionURL,
		Amount:     payment.Amount.StringFixed(2),
	}
}

// CreateSession handles POST /v1/payments
func (h *PaymentHandler) CreateSession(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unknown caller"})
		return
	}

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	paymentType := domain.PaymentType(req.Type)
	if paymentType != domain.PaymentTypePayment && paymentType != domain.PaymentTypeFine {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "type must be PAYMENT or FINE"})
		return
	}

	payment, err := h.paymentService.CreateSession(c.Request.Context(), caller, req.RentalID, paymentType)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toPaymentResponse(payment))
}

// Confirm handles GET /v1/payments/success
// Stripe redirects the customer here after a successful checkout.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	sessionID := c.Query("session_id")

	if err := h.paymentService.Confirm(c.Request.Context(), sessionID); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"message": "payment successful"})
}

// Cancel handles GET /v1/payments/cancel
// Stripe redirects the customer here when they abandon the checkout.
func (h *PaymentHandler) Cancel(c *gin.Context) {
	sessionID := c.Query("session_id")

	if err := h.paymentService.Cancel(c.Request.Context(), sessionID); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"message": "payment cancelled, the session can be reopened within 24 hours"})
}

// Get handles GET /v1/payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unknown caller"})
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// List handles GET /v1/payments
// Managers may narrow the listing with rental_id and status query params.
func (h *PaymentHandler) List(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unknown caller"})
		return
	}

	filter := repository.PaymentFilter{RentalID: c.Query("rental_id")}
	if raw := c.Query("status"); raw != "" {
		status := domain.PaymentStatus(raw)
		switch status {
		case domain.PaymentStatusPending, domain.PaymentStatusPaid, domain.PaymentStatusCancelled:
			filter.Status = status
		default:
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "status must be PENDING, PAID or CANCELLED"})
			return
		}
	}

	payments, err := h.paymentService.ListPayments(c.Request.Context(), caller, filter, pageFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]PaymentResponse, 0, len(payments))
	for _, payment := range payments {
		responses = append(responses, toPaymentResponse(payment))
	}

	respondJSON(c, http.StatusOK, gin.H{"payments": responses})
}
