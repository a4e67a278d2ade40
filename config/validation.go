package config

import (
	"fmt"
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

// ValidateConfig checks that the configuration is usable in the current
// environment. Development and test tolerate the insecure defaults;
// production does not.
func ValidateConfig(cfg *Config) error {
	var errors []string

	if cfg.ServerPort == "" {
		errors = append(errors, "server port must not be empty")
	}
	if cfg.ResponsesPerPage <= 0 {
		errors = append(errors, "responses per page must be positive")
	}

	if IsProduction() {
		if cfg.SecretKey == "" || cfg.SecretKey == "dev-secret-key-change-in-production" {
			errors = append(errors, "SECRET_KEY must be set to a non-default value in production")
		}
		if cfg.JWTSecret == "" || cfg.JWTSecret == "dev-jwt-secret" {
			errors = append(errors, "JWT_SECRET must be set to a non-default value in production")
		}
		if cfg.AdminPassword == "admin" {
			errors = append(errors, "ADMIN_PASSWORD must be changed from the default in production")
		}
		if cfg.DBPassword == "" {
			errors = append(errors, "DB_PASSWORD is required in production")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}
