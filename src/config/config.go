package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// GlobalConfig holds the full service configuration, loaded from the
// environment at startup.
type GlobalConfig struct {
	Environment string
	Host        string
	Port        string
	LogLevel    string

	// Persistence. Empty DatabaseURL selects the in-memory repository.
	DatabaseURL string

	// Auth
	JWTSecret string

	// OmniDimension vendor API
	OmnidimAPIKey  string
	OmnidimAgentID string
	OmnidimBaseURL string
	OmnidimTimeout time.Duration

	// Ops fanout. Empty AMQPURL disables the publisher.
	AMQPURL string

	CORSOrigin string
}

// requiredVars are the variables /setup reports on when absent.
var requiredVars = []string{
	"PORT",
	"JWT_SECRET",
	"OMNIDIM_API_KEY",
	"OMNIDIM_AGENT_ID",
}

// NewConfig loads configuration from the environment. A .env file in the
// working directory is loaded first if present.
func NewConfig() (*GlobalConfig, error) {
	// Ignore error: absence of .env is the normal deployed case.
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		return nil, fmt.Errorf("PORT environment variable is required")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	cfg := &GlobalConfig{
		Environment:    envOrDefault("APP_ENV", "development"),
		Host:           envOrDefault("HOST", "0.0.0.0"),
		Port:           port,
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      jwtSecret,
		OmnidimAPIKey:  os.Getenv("OMNIDIM_API_KEY"),
		OmnidimAgentID: envOrDefault("OMNIDIM_AGENT_ID", "2465"),
		OmnidimBaseURL: envOrDefault("OMNIDIM_BASE_URL", "https://api.omnidim.io"),
		OmnidimTimeout: 8 * time.Second,
		AMQPURL:        os.Getenv("AMQP_URL"),
		CORSOrigin:     envOrDefault("CORS_ORIGIN", "http://localhost:3000"),
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MissingRequired returns the names of required environment variables that
// are currently unset. Values are never included.
func MissingRequired() []string {
	missing := []string{}
	for _, name := range requiredVars {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// GetHost returns the bind host.
func (c *GlobalConfig) GetHost() string { return c.Host }

// GetPort returns the bind port.
func (c *GlobalConfig) GetPort() string { return c.Port }
