// Package config provides configuration loading and management for the application.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// HTTP server port
	Port string

	// GraphQL indexer base URL
	IndexerBaseURL string

	// Ethereum JSON-RPC endpoint
	RPCEndpoint string

	// Block explorer base URL. Empty disables explorer hyperlinks in
	// API payloads instead of erroring.
	ExplorerBaseURL string

	// Path to the token/duration registry file
	RegistryPath string

	// Hex-encoded private key for the wallet session. Empty starts the
	// service disconnected; write actions then fail their precondition.
	WalletKey string

	// OpenTelemetry endpoint for observability
	OtelEndpoint string

	// Outbound request timeout for indexer and chain calls
	RequestTimeout time.Duration

	// How long to wait after a confirmed approval before re-invoking the
	// gated action, giving the read path time to observe the new allowance
	PostApproveDelay time.Duration

	// Deadline for polling the indexer after a confirmed transaction
	IndexerSettleTimeout time.Duration

	// How long a just-created stake keeps its highlight flag
	HighlightDuration time.Duration

	// Rate limiting for the public API
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load creates a new Config from environment variables.
func Load() Config {
	return Config{
		Port:                 GetEnvOrDefault("PORT", "8080"),
		IndexerBaseURL:       GetEnvOrDefault("INDEXER_BASE_URL", "http://localhost:8081/v1/graphql"),
		RPCEndpoint:          GetEnvOrDefault("RPC_ENDPOINT", "https://rpc.test.mezo.org"),
		ExplorerBaseURL:      GetEnvOrDefault("EXPLORER_BASE_URL", ""),
		RegistryPath:         GetEnvOrDefault("REGISTRY_PATH", "registry.yaml"),
		WalletKey:            GetEnvOrDefault("WALLET_PRIVATE_KEY", ""),
		OtelEndpoint:         GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		RequestTimeout:       GetEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),
		PostApproveDelay:     GetEnvAsDuration("POST_APPROVE_DELAY", time.Second),
		IndexerSettleTimeout: GetEnvAsDuration("INDEXER_SETTLE_TIMEOUT", 15*time.Second),
		HighlightDuration:    GetEnvAsDuration("HIGHLIGHT_DURATION", 3*time.Second),
		RateLimitRPS:         GetEnvAsFloat("RATE_LIMIT_RPS", 10.0),
		RateLimitBurst:       GetEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// GetEnv retrieves an environment variable and whether it exists.
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set.
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value.
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value.
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value.
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
