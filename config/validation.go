package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks that configured values are usable. Missing provider
// keys are not validation errors; see MissingProviders.
func ValidateConfig(cfg *Config) error {
	var errs []string

	if port, err := strconv.Atoi(cfg.ServerPort); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, ValidationError{Field: "SERVER_PORT", Message: fmt.Sprintf("invalid port %q", cfg.ServerPort)}.Error())
	}
	if cfg.RequestTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "REQUEST_TIMEOUT", Message: "must be positive"}.Error())
	}
	if cfg.GroundingConcurrency <= 0 {
		errs = append(errs, ValidationError{Field: "GROUNDING_CONCURRENCY", Message: "must be positive"}.Error())
	}
	if cfg.RateLimitMaxRequests <= 0 {
		errs = append(errs, ValidationError{Field: "RATE_LIMIT_MAX_REQUESTS", Message: "must be positive"}.Error())
	}
	if cfg.RateLimitWindow <= 0 {
		errs = append(errs, ValidationError{Field: "RATE_LIMIT_WINDOW", Message: "must be positive"}.Error())
	}
	if cfg.AzureOpenAIEndpoint != "" && !strings.HasPrefix(cfg.AzureOpenAIEndpoint, "http") {
		errs = append(errs, ValidationError{Field: "AZURE_OPENAI_ENDPOINT", Message: "must be an http(s) URL"}.Error())
	}

	// Production deployments must keep history durable when a database is configured
	if GetEnvironment() == Production && cfg.DatabaseConfigured() && cfg.DBPassword == "" {
		errs = append(errs, ValidationError{Field: "DB_PASSWORD", Message: "db_password secret is required in production"}.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}

	return nil
}
