package main

import (
	"os"
	"time"

	"storefront_service/config"
	"storefront_service/internal/delivery"
	"storefront_service/internal/notification"
	"storefront_service/internal/repository"
	"storefront_service/internal/usecase"
	"storefront_service/pkg/cache"
	"storefront_service/pkg/db"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.LoadConfig(logger)
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
		logger.Warnf("Invalid LOG_LEVEL '%s', using default: %s", cfg.LogLevel, logLevel.String())
	}
	logger.SetLevel(logLevel)
	logger.Info("Starting Storefront Service...")

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("FATAL: Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connection established.")

	redisClient, err := cache.Connect(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("FATAL: Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	logger.Info("Redis connection established.")

	// Kafka is optional: without brokers the service runs with notifications
	// disabled.
	var producer notification.Producer
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaBrokers[0] != "" {
		producer, err = notification.NewKafkaProducer(cfg.KafkaBrokers, logger)
		if err != nil {
			logger.Fatalf("FATAL: Failed to create kafka producer: %v", err)
		}
		defer producer.Close()
		logger.Infof("Kafka producer initialized for brokers: %v", cfg.KafkaBrokers)
	} else {
		logger.Warn("KAFKA_BROKERS not set, order notifications disabled.")
	}

	// --- Dependency Injection ---
	productRepo := repository.NewPostgresProductRepository(database, logger)
	orderRepo := repository.NewPostgresOrderRepository(database, logger)
	cartRepo := repository.NewRedisCartRepository(redisClient, time.Duration(cfg.CartTTLHours)*time.Hour, logger)
	logger.Info("Repositories initialized.")

	productUseCase := usecase.NewProductUseCase(productRepo, productRepo, logger)
	cartUseCase := usecase.NewCartUseCase(cartRepo, productRepo, logger)
	checkoutUseCase := usecase.NewCheckoutUseCase(cartRepo, productRepo, orderRepo, producer, logger)
	orderUseCase := usecase.NewOrderUseCase(orderRepo, cartRepo, producer, logger)
	logger.Info("Use cases initialized.")

	productHandler := delivery.NewProductHandler(productUseCase, logger)
	cartHandler := delivery.NewCartHandler(cartUseCase, logger)
	orderHandler := delivery.NewOrderHandler(checkoutUseCase, orderUseCase, logger)
	logger.Info("Handlers initialized.")

	router := gin.Default()
	router.RedirectTrailingSlash = false

	productHandler.RegisterRoutes(router)
	cartHandler.RegisterRoutes(router)
	orderHandler.RegisterRoutes(router)
	logger.Info("Routes registered.")

	logger.Infof("Starting server on port %s", cfg.HTTPPort)
	if err := router.Run(cfg.HTTPPort); err != nil {
		logger.Errorf("Failed to start server on port %s: %v", cfg.HTTPPort, err)
		os.Exit(1)
	}
}
