package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carshare/internal/domain"
	"carshare/internal/middleware"
	"carshare/internal/repository"
	"carshare/internal/service"
)

// UserHandler handles read-only HTTP requests for the user directory.
type UserHandler struct {
	userRepo repository.UserRepository
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userRepo repository.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// UserResponse is the HTTP response for user data.
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

func toUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      string(user.Role),
	}
}

// GetUser handles GET /v1/users/:id
// Customers may read only themselves; managers may read anyone.
func (h *UserHandler) GetUser(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unknown caller"})
		return
	}

	userID := c.Param("id")
	if userID != caller.ID && !caller.IsManager() {
		respondError(c, service.ErrAccessDenied)
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toUserResponse(user))
}

// GetAll handles GET /v1/users (managers only)
func (h *UserHandler) GetAll(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unknown caller"})
		return
	}

	if !caller.IsManager() {
		respondError(c, service.ErrAccessDenied)
		return
	}

	users, err := h.userRepo.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, toUserResponse(user))
	}

	respondJSON(c, http.StatusOK, gin.H{"users": responses})
}
