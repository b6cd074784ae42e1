package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	Port            string `validate:"required,numeric"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	DatabaseURL     string
	RedisURL        string
	RabbitMQURL     string
	ConnectorID     string `validate:"required"`
	ConnectorSecret string

	Customerio Customerio
	Sync       Sync

	InboundRateLimit int           `validate:"gte=1"`
	WebhookDedupTTL  time.Duration `validate:"gt=0"`
}

// Customerio holds the service credentials and transport tuning. Missing
// credentials are allowed: the connector stays up and reports its status.
type Customerio struct {
	SiteID     string
	APIKey     string
	TrackURL   string        `validate:"required,url"`
	Timeout    time.Duration `validate:"gt=0"`
	RateLimit  int           `validate:"gte=1"`
	RateWindow time.Duration `validate:"gt=0"`
	ChunkSize  int           `validate:"gte=1"`
}

// Sync holds the connector settings that drive the pipeline.
type Sync struct {
	Segments                []string
	Attributes              []string
	Events                  []string
	UserIDMapping           string
	DeletionEnabled         bool
	AnonymousEvents         bool
	IgnoreUsersWithoutEmail bool
	Namespace               string `validate:"required"`
	Concurrency             int    `validate:"gte=1"`
}

var validate = validator.New()

// Load loads the configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		RabbitMQURL:     getEnv("RABBITMQ_URL", ""),
		ConnectorID:     getEnv("CONNECTOR_ID", "customerio"),
		ConnectorSecret: getEnv("CONNECTOR_SECRET", ""),
		Customerio: Customerio{
			SiteID:     getEnv("CUSTOMERIO_SITE_ID", ""),
			APIKey:     getEnv("CUSTOMERIO_API_KEY", ""),
			TrackURL:   getEnv("CUSTOMERIO_TRACK_URL", "https://track.customer.io"),
			Timeout:    getEnvAsDuration("CUSTOMERIO_TIMEOUT", 10*time.Second),
			RateLimit:  getEnvAsInt("CUSTOMERIO_RATE_LIMIT", 30),
			RateWindow: getEnvAsDuration("CUSTOMERIO_RATE_WINDOW", 34*time.Second),
			ChunkSize:  getEnvAsInt("CUSTOMERIO_CHUNK_SIZE", 30),
		},
		Sync: Sync{
			Segments:                getEnvAsList("SYNCHRONIZED_SEGMENTS"),
			Attributes:              getEnvAsList("SYNCHRONIZED_ATTRIBUTES"),
			Events:                  getEnvAsList("SYNCHRONIZED_EVENTS"),
			UserIDMapping:           getEnv("USER_ID_MAPPING", "external_id"),
			DeletionEnabled:         getEnvAsBool("ENABLE_USER_DELETION", false),
			AnonymousEvents:         getEnvAsBool("ANONYMOUS_EVENTS", false),
			IgnoreUsersWithoutEmail: getEnvAsBool("IGNORE_USERS_WITHOUT_EMAIL", false),
			Namespace:               getEnv("TRAIT_NAMESPACE", "customerio"),
			Concurrency:             getEnvAsInt("SYNC_CONCURRENCY", 10),
		},
		InboundRateLimit: getEnvAsInt("INBOUND_RATE_LIMIT", 100),
		WebhookDedupTTL:  getEnvAsDuration("WEBHOOK_DEDUP_TTL", 24*time.Hour),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("invalid duration for %s; using default %s", key, defaultValue)
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
		log.Printf("invalid integer for %s; using default %d", key, defaultValue)
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
		log.Printf("invalid boolean for %s; using default %t", key, defaultValue)
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blank entries.
func getEnvAsList(key string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
