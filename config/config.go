package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerHost string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	ServerPort string `envconfig:"SERVER_PORT" default:"3000"`
	// Empty allows every origin
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`

	// Language model (Azure OpenAI chat completions)
	AzureOpenAIKey        string `envconfig:"AZURE_OPENAI_KEY"`
	AzureOpenAIEndpoint   string `envconfig:"AZURE_OPENAI_ENDPOINT"`
	AzureOpenAIDeployment string `envconfig:"AZURE_OPENAI_DEPLOYMENT" default:"gpt-4"`
	AzureOpenAIAPIVersion string `envconfig:"AZURE_OPENAI_API_VERSION" default:"2025-01-01-preview"`

	// Bing web and image search
	BingSearchAPIKey string `envconfig:"BING_SEARCH_API_KEY"`
	BingSearchURL    string `envconfig:"BING_SEARCH_URL" default:"https://api.bing.microsoft.com/v7.0/search"`
	BingImagesURL    string `envconfig:"BING_IMAGES_URL" default:"https://api.bing.microsoft.com/v7.0/images/search"`
	SearchMarket     string `envconfig:"SEARCH_MARKET" default:"en-US"`

	// Pipeline tuning
	DefaultCity          string        `envconfig:"DEFAULT_CITY" default:"NYC"`
	RequestTimeout       time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	GroundingConcurrency int           `envconfig:"GROUNDING_CONCURRENCY" default:"5"`
	SearchCacheTTL       time.Duration `envconfig:"SEARCH_CACHE_TTL" default:"1h"`
	SnapshotTTL          time.Duration `envconfig:"SNAPSHOT_TTL" default:"24h"`

	// Rate limiting
	RateLimitMaxRequests int           `envconfig:"RATE_LIMIT_MAX_REQUESTS" default:"60"`
	RateLimitWindow      time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// Database configuration (optional, enables recommendation history)
	DBHost     string `envconfig:"DB_HOST"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"datemeal"`
	DBSSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`

	// Redis configuration (optional, enables rate limiting and a shared snapshot)
	RedisHost     string `envconfig:"REDIS_HOST"`
	RedisPort     string `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisURL      string `envconfig:"REDIS_URL"`

	// S3 image mirroring (optional)
	S3BucketName string `envconfig:"S3_BUCKET_NAME"`
	AWSRegion    string `envconfig:"AWS_REGION"`
}

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	// Sensitive values may be mounted as files instead of plain variables
	cfg.AzureOpenAIKey = secretOr(cfg.AzureOpenAIKey, "AZURE_OPENAI_KEY", "azure_openai_key")
	cfg.BingSearchAPIKey = secretOr(cfg.BingSearchAPIKey, "BING_SEARCH_API_KEY", "bing_search_api_key")
	cfg.DBPassword = secretOr(cfg.DBPassword, "DB_PASSWORD", "db_password")
	cfg.RedisPassword = secretOr(cfg.RedisPassword, "REDIS_PASSWORD", "redis_password")

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// ModelConfigured reports whether the language model can be called at all
func (c *Config) ModelConfigured() bool {
	return c.AzureOpenAIKey != "" && c.AzureOpenAIEndpoint != ""
}

// SearchConfigured reports whether Bing search can be called at all
func (c *Config) SearchConfigured() bool {
	return c.BingSearchAPIKey != ""
}

// DatabaseConfigured reports whether recommendation history should be persisted
func (c *Config) DatabaseConfigured() bool {
	return c.DBHost != ""
}

// RedisConfigured reports whether a Redis server was configured
func (c *Config) RedisConfigured() bool {
	return c.RedisHost != "" || c.RedisURL != ""
}

// MissingProviders lists the external providers that are not configured.
// None of them is fatal: the pipeline degrades to offline data instead.
func (c *Config) MissingProviders() []string {
	var missing []string
	if c.AzureOpenAIKey == "" {
		missing = append(missing, "AZURE_OPENAI_KEY")
	}
	if c.AzureOpenAIEndpoint == "" {
		missing = append(missing, "AZURE_OPENAI_ENDPOINT")
	}
	if c.BingSearchAPIKey == "" {
		missing = append(missing, "BING_SEARCH_API_KEY")
	}
	return missing
}

// secretOr returns value when set, otherwise the content of the file named by
// <envName>_FILE, otherwise the Docker secret called name.
func secretOr(value, envName, name string) string {
	if value != "" {
		return value
	}
	if path := os.Getenv(envName + "_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return readSecret(name)
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
