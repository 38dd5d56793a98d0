package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"carshare/internal/handler"
	"carshare/internal/middleware"
	"carshare/internal/repository"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RentalHandler  *handler.RentalHandler
	PaymentHandler *handler.PaymentHandler
	CarHandler     *handler.CarHandler
	UserHandler    *handler.UserHandler
	UserRepo       repository.UserRepository
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	identity := middleware.IdentityMiddleware(deps.UserRepo)

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Car catalog routes. Browsing is open; no identity required.
		cars := v1.Group("/cars")
		{
			cars.GET("", deps.CarHandler.GetAll)
			cars.GET("/:id", deps.CarHandler.GetCar)
		}

		// Rental routes.
		rentals := v1.Group("/rentals", identity)
		{
			rentals.POST("", deps.RentalHandler.CreateRental)
			rentals.GET("", deps.RentalHandler.ListActive)
			rentals.GET("/:id", deps.RentalHandler.GetRental)
			rentals.POST("/:id/return", deps.RentalHandler.CloseRental)
		}

		// Payment routes. The success and cancel endpoints are the
		// gateway's redirect targets, so the renter's browser hits them
		// without our identity header.
		payments := v1.Group("/payments")
		{
			payments.POST("", identity, deps.PaymentHandler.CreateSession)
			payments.GET("", identity, deps.PaymentHandler.List)
			payments.GET("/success", deps.PaymentHandler.Confirm)
			payments.GET("/cancel", deps.PaymentHandler.Cancel)
			payments.GET("/:id", identity, deps.PaymentHandler.Get)
		}

		// User routes.
		users := v1.Group("/users", identity)
		{
			users.GET("", deps.UserHandler.GetAll)
			users.GET("/:id", deps.UserHandler.GetUser)
		}
	}

	return router
}
