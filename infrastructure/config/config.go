package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Postgres configuration
	DatabaseURL       string
	DBMaxConns        int
	DBMinConns        int
	DBHealthCheckSecs int
	EmbeddingDims     int
	AutoMigrate       bool

	// Retrieval tuning
	TopKDefault        int
	FanOutFactor       int
	MaxFanOut          int
	RetrieverTimeoutMS int
	GraphMaxDepth      int

	// Embedding provider
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	EmbeddingModel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Logging and features
	LogLevel      string
	EnableMetrics bool
	EnableCORS    bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		DatabaseURL:       getEnv("DATABASE_URL", "postgres://localhost:5432/recall?sslmode=disable"),
		DBMaxConns:        getEnvInt("DB_MAX_CONNS", 16),
		DBMinConns:        getEnvInt("DB_MIN_CONNS", 2),
		DBHealthCheckSecs: getEnvInt("DB_HEALTH_CHECK_SECONDS", 60),
		EmbeddingDims:     getEnvInt("EMBEDDING_DIMS", 1536),
		AutoMigrate:       getEnvBool("AUTO_MIGRATE", true),

		TopKDefault:        getEnvInt("TOP_K_DEFAULT", 5),
		FanOutFactor:       getEnvInt("FAN_OUT_FACTOR", 3),
		MaxFanOut:          getEnvInt("MAX_FAN_OUT", 200),
		RetrieverTimeoutMS: getEnvInt("RETRIEVER_TIMEOUT_MS", 3000),
		GraphMaxDepth:      getEnvInt("GRAPH_MAX_DEPTH", 2),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "recall-backend"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required configuration
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.FanOutFactor < 1 {
		return fmt.Errorf("FAN_OUT_FACTOR must be at least 1")
	}
	if c.MaxFanOut < c.TopKDefault {
		return fmt.Errorf("MAX_FAN_OUT must cover TOP_K_DEFAULT")
	}
	if c.RetrieverTimeoutMS < 100 {
		return fmt.Errorf("RETRIEVER_TIMEOUT_MS must be at least 100")
	}
	if c.Environment == "production" && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}

// IsProduction checks if running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// RetrieverTimeout returns the per-source deadline
func (c *Config) RetrieverTimeout() time.Duration {
	return time.Duration(c.RetrieverTimeoutMS) * time.Millisecond
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
