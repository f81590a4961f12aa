package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds every externally tunable setting for the worker process.
// It is built once at startup and passed into component constructors;
// nothing reads the environment after Load returns.
type Config struct {
	// RabbitMQ
	RabbitHost    string
	RabbitPort    int
	RabbitUser    string
	RabbitPass    string
	RequestQueue  string
	ResponseQueue string

	// SeaweedFS
	SeaweedMaster string
	// Optional volume server override (e.g. http://localhost:8080).
	// When set, downloads skip the master lookup entirely.
	SeaweedVolume string

	// MongoDB
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// Gemini
	GeminiAPIKey string
	GeminiModel  string

	// HTTP API mode
	HTTPPort string
}

// AMQPURL builds the broker dial string.
func (c *Config) AMQPURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", c.RabbitUser, c.RabbitPass, c.RabbitHost, c.RabbitPort)
}

// Load reads configuration from the environment with the same defaults the
// deployment manifests assume.
func Load() *Config {
	return &Config{
		RabbitHost:    getEnv("RABBITMQ_HOST", "localhost"),
		RabbitPort:    getEnvInt("RABBITMQ_PORT", 5672),
		RabbitUser:    getEnv("RABBITMQ_USER", "guest"),
		RabbitPass:    getEnv("RABBITMQ_PASS", "guest"),
		RequestQueue:  getEnv("FILE_IMPORT_REQUEST_QUEUE", "file_import_requests"),
		ResponseQueue: getEnv("FILE_IMPORT_RESPONSE_QUEUE", "file_import_responses"),

		SeaweedMaster: getEnv("SEAWEED_MASTER", "http://localhost:9333"),
		SeaweedVolume: getEnv("SEAWEED_VOLUME_URL", ""),

		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGO_DATABASE", "telecom_db"),
		MongoCollection: getEnv("MONGO_COLLECTION", "packages"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash-exp"),

		HTTPPort: getEnv("PORT", "8002"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
