package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carshare/internal/domain"
	"carshare/internal/redis"
	"carshare/internal/repository"
)

// CarHandler handles read-only HTTP requests for the car catalog.
// Catalog management itself lives outside this service.
type CarHandler struct {
	carRepo repository.CarRepository
	cache   redis.CacheStoreInterface
	logger  *zap.Logger
}

// NewCarHandler creates a new CarHandler.
func NewCarHandler(carRepo repository.CarRepository, cache redis.CacheStoreInterface, logger *zap.Logger) *CarHandler {
	return &CarHandler{
		carRepo: carRepo,
		cache:   cache,
		logger:  logger,
	}
}

// CarResponse is the HTTP response for car data.
type CarResponse struct {
	ID        string `json:"id"`
	Brand     string `json:"brand"`
	Model     string `json:"model"`
	Type      string `json:"type"`
	Inventory int    `json:"inventory"`
	DailyFee  string `json:"daily_fee"`
}

func toCarResponse(car *domain.Car) CarResponse {
	return CarResponse{
		ID:        car.ID,
		Brand:     car.Brand,
		Model:     car.Model,
		Type:      string(car.Type),
		Inventory: car.Inventory,
		DailyFee:  car.DailyFee.StringFixed(2),
	}
}

// GetCar handles GET /v1/cars/:id
func (h *CarHandler) GetCar(c *gin.Context) {
	carID := c.Param("id")
	ctx := c.Request.Context()

	if h.cache != nil {
		cached, err := h.cache.GetCar(ctx, carID)
		if err != nil {
			h.logger.Warn("car cache read failed", zap.String("car_id", carID), zap.Error(err))
		}
		if cached != nil {
			respondJSON(c, http.StatusOK, CarResponse{
				ID:        cached.ID,
				Brand:     cached.Brand,
				Model:     cached.Model,
				Type:      cached.Type,
				Inventory: cached.Inventory,
				DailyFee:  cached.DailyFee,
			})
			return
		}
	}

	car, err := h.carRepo.GetByID(ctx, carID)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.cache != nil {
		_ = h.cache.SetCar(ctx, &redis.CachedCar{
			ID:        car.ID,
			Brand:     car.Brand,
			Model:     car.Model,
			Type:      string(car.Type),
			Inventory: car.Inventory,
			DailyFee:  car.DailyFee.StringFixed(2),
		})
	}

	respondJSON(c, http.StatusOK, toCarResponse(car))
}

// GetAll handles GET /v1/cars
func (h *CarHandler) GetAll(c *gin.Context) {
	cars, err := h.carRepo.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]CarResponse, 0, len(cars))
	for _, car := range cars {
		responses = append(responses, toCarResponse(car))
	}

	respondJSON(c, http.StatusOK, gin.H{"cars": responses})
}
