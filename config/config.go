package config

import (
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

type Config struct {
	DatabaseURL  string   `envconfig:"DATABASE_URL"   required:"true"`
	RedisAddr    string   `envconfig:"REDIS_ADDR"     default:"localhost:6379"`
	RedisDB      int      `envconfig:"REDIS_DB"       default:"0"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"  default:""`
	HTTPPort     string   `envconfig:"HTTP_PORT"      default:":8080"`
	LogLevel     string   `envconfig:"LOG_LEVEL"      default:"info"`
	CartTTLHours int      `envconfig:"CART_TTL_HOURS" default:"72"`
}

var (
	config Config
	once   sync.Once
)

func LoadConfig(logger *logrus.Logger) *Config {
	once.Do(func() {
		err := godotenv.Load()
		if err != nil && !os.IsNotExist(err) {
			logger.Warnf("Error loading .env file (but continuing): %v", err)
		} else if err == nil {
			logger.Info("Loaded configuration from .env file")
		}

		err = envconfig.Process("", &config)
		if err != nil {
			logger.Fatalf("Failed to process configuration from environment variables: %v", err)
		}

		logger.Infof("Configuration loaded: HTTP Port=%s, LogLevel=%s", config.HTTPPort, config.LogLevel)
		if config.DatabaseURL != "" {
			logger.Info("Configuration loaded: DatabaseURL is set")
		} else {
			logger.Fatal("Configuration error: DATABASE_URL is not set")
		}
	})
	return &config
}
