// main.go
package main

import (
	"context"
	"log"
	"time"

	"homestay-booking/cmd"
	"homestay-booking/internal/data/repository"
	"homestay-booking/internal/gateway"
	"homestay-booking/internal/idempotency"
	"homestay-booking/internal/notification"
	"homestay-booking/internal/usecase"
	"homestay-booking/internal/wire"
	"homestay-booking/pkg/clock"
	"homestay-booking/pkg/database"
	"homestay-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Name, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("env", config.App.Env),
		zap.String("port", config.App.Port),
		zap.String("timezone", config.App.Timezone),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Reference timezone for every calendar day
	clk, err := clock.New(config.App.Timezone)
	if err != nil {
		logger.Fatal("Invalid timezone", zap.Error(err), zap.String("timezone", config.App.Timezone))
	}

	// Connect to database
	db, err := database.InitDB(ctx, config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	if config.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatal("Failed to apply schema", zap.Error(err))
		}
		logger.Info("Database schema applied")
	}

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Webhook replay guard, in-process when Redis is not configured
	var dedupe idempotency.Store
	if config.Redis.Addr != "" {
		store, client, err := idempotency.NewRedisStore(ctx, config.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer client.Close()
		dedupe = store
		logger.Info("Redis connected", zap.String("addr", config.Redis.Addr))
	} else {
		dedupe = idempotency.NewMemory(config.Redis.DedupeTTL())
		logger.Warn("REDIS_ADDR not set, webhook dedupe is per process")
	}

	// Notifications go out on their own workers
	sender, err := notification.NewSender(config.Notification, config.Email, logger)
	if err != nil {
		logger.Fatal("Failed to init notification sender", zap.Error(err))
	}
	dispatcher := notification.NewDispatcher(sender, notification.Options{
		Workers:    config.Notification.Workers,
		QueueSize:  config.Notification.QueueSize,
		MaxRetries: config.Notification.MaxRetries,
	}, logger)
	dispatcher.Start()

	// Wire all dependencies
	service := usecase.NewService(usecase.Dependencies{
		Repo:     repos,
		Tx:       repos,
		Clock:    clk,
		Provider: gateway.NewClient(config.Payment, logger),
		Dedupe:   dedupe,
		Notifier: dispatcher,
		Config:   config,
		Log:      logger,
	})
	app := wire.Wiring(service, repos, repos, clk, config, logger)

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	if err := cmd.APIServer(app.Router, config.App.Port, logger, dispatcher); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}
}
