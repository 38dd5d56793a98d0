package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"carshare/internal/app"
	"carshare/internal/config"
	"carshare/internal/gateway"
	"carshare/internal/handler"
	"carshare/internal/notification"
	internalRedis "carshare/internal/redis"
	"carshare/internal/repository/postgres"
	"carshare/internal/service"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", zap.Error(err))
			nrApp = nil
		} else {
			logger.Info("New Relic enabled", zap.String("app", cfg.NewRelic.AppName))
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	// Wire dependencies.
	server, sweeper := wireServer(db, redisClient, nrApp, cfg, logger)

	// Run the overdue sweep loop until shutdown.
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	go sweeper.Start(sweepCtx)

	// Start server in goroutine.
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")
	stopSweeper()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server and the
// background sweeper.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config, logger *zap.Logger) (*http.Server, *service.OverdueSweeper) {
	// Initialize Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize repositories.
	userRepo := postgres.NewUserRepository(db)
	carRepo := postgres.NewCarRepository(db)
	rentalRepo := postgres.NewRentalRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)

	// Initialize notifications.
	telegram := notification.NewTelegramChannel(cfg.Telegram.BotToken, cfg.Telegram.BaseURL, logger)
	dispatcher := service.NewNotificationDispatcher(userRepo, telegram)

	// Initialize services.
	stripeGateway := gateway.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL, logger)
	rentalService := service.NewRentalService(db, carRepo, rentalRepo, cacheStore, dispatcher, logger)
	paymentService := service.NewPaymentService(rentalRepo, carRepo, paymentRepo, stripeGateway, dispatcher, logger)
	sweeper := service.NewOverdueSweeper(
		service.SweeperConfig{
			RunHour:       cfg.Sweeper.RunHour,
			CheckInterval: cfg.Sweeper.CheckInterval,
		},
		rentalRepo, carRepo, userRepo, lockStore, dispatcher, logger,
	)

	// Initialize handlers.
	rentalHandler := handler.NewRentalHandler(rentalService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	carHandler := handler.NewCarHandler(carRepo, cacheStore, logger)
	userHandler := handler.NewUserHandler(userRepo)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		RentalHandler:  rentalHandler,
		PaymentHandler: paymentHandler,
		CarHandler:     carHandler,
		UserHandler:    userHandler,
		UserRepo:       userRepo,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, sweeper
}
