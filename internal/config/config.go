/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the generation-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort            string `mapstructure:"SERVER_PORT"`
	DatabaseURL           string `mapstructure:"DATABASE_URL"`
	RedisURL              string `mapstructure:"REDIS_URL"`
	RedisGuestLimitPrefix string `mapstructure:"REDIS_GUEST_LIMIT_PREFIX"`
	RabbitMQURL           string `mapstructure:"RABBITMQ_URL"`
	QueueAPIBaseURL       string `mapstructure:"QUEUE_API_BASE_URL"`
	QueueAPIKey           string `mapstructure:"QUEUE_API_KEY"`
	QueueSubmitTimeoutSec int    `mapstructure:"QUEUE_SUBMIT_TIMEOUT_SECONDS"`
	BillingAPIBaseURL     string `mapstructure:"BILLING_API_BASE_URL"`
	BillingAPIKey         string `mapstructure:"BILLING_API_KEY"`
	VerifyURL             string `mapstructure:"VERIFY_URL"`
	VerifySecretKey       string `mapstructure:"VERIFY_SECRET_KEY"`
	SessionJWKSURL        string `mapstructure:"SESSION_JWKS_URL"`
	CORSAllowedOrigins    string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	CatalogPath           string `mapstructure:"CATALOG_PATH"`
	GuestDailyLimit       int    `mapstructure:"GUEST_DAILY_LIMIT"`
	GuestWindowHours      int    `mapstructure:"GUEST_WINDOW_HOURS"`
	ImagePixelBudget      int    `mapstructure:"IMAGE_PIXEL_BUDGET"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_GUEST_LIMIT_PREFIX", "kinetix:guest_limit")
	viper.SetDefault("QUEUE_SUBMIT_TIMEOUT_SECONDS", 30)
	viper.SetDefault("GUEST_DAILY_LIMIT", 3)
	viper.SetDefault("GUEST_WINDOW_HOURS", 24)
	viper.SetDefault("IMAGE_PIXEL_BUDGET", 1048576)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_GUEST_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("QUEUE_API_BASE_URL")
	_ = viper.BindEnv("QUEUE_API_KEY")
	_ = viper.BindEnv("QUEUE_SUBMIT_TIMEOUT_SECONDS")
	_ = viper.BindEnv("BILLING_API_BASE_URL")
	_ = viper.BindEnv("BILLING_API_KEY")
	_ = viper.BindEnv("VERIFY_URL")
	_ = viper.BindEnv("VERIFY_SECRET_KEY")
	_ = viper.BindEnv("SESSION_JWKS_URL")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")
	_ = viper.BindEnv("CATALOG_PATH")
	_ = viper.BindEnv("GUEST_DAILY_LIMIT")
	_ = viper.BindEnv("GUEST_WINDOW_HOURS")
	_ = viper.BindEnv("IMAGE_PIXEL_BUDGET")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	// Hosting platforms commonly inject PORT; let it win over SERVER_PORT.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisGuestLimitPrefix = strings.TrimSpace(config.RedisGuestLimitPrefix)
	if config.RedisGuestLimitPrefix == "" {
		config.RedisGuestLimitPrefix = "kinetix:guest_limit"
	}
	config.QueueAPIBaseURL = strings.TrimRight(strings.TrimSpace(config.QueueAPIBaseURL), "/")
	config.BillingAPIBaseURL = strings.TrimRight(strings.TrimSpace(config.BillingAPIBaseURL), "/")

	if config.QueueSubmitTimeoutSec <= 0 {
		config.QueueSubmitTimeoutSec = 30
	}
	if config.GuestDailyLimit <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive guest daily limit configured; using default\" limit=%d", config.GuestDailyLimit)
		config.GuestDailyLimit = 3
	}
	if config.GuestWindowHours <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive guest window configured; using default\" hours=%d", config.GuestWindowHours)
		config.GuestWindowHours = 24
	}
	if config.ImagePixelBudget <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive image pixel budget configured; using default\" budget=%d", config.ImagePixelBudget)
		config.ImagePixelBudget = 1048576
	}

	return
}
