package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "assistant.provider")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the list of valid log formats
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateDatabase()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.Assistant.Validate()...)

	return errors
}

func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Server.Addr) == "" {
		errors = append(errors, ValidationError{
			Field:   "server.addr",
			Value:   c.Server.Addr,
			Message: "must not be empty",
		})
	}
	if c.Server.AssistantRate < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.assistant_rate",
			Value:   c.Server.AssistantRate,
			Message: "must be non-negative",
		})
	}
	if c.Server.AssistantBurst < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.assistant_burst",
			Value:   c.Server.AssistantBurst,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateDatabase() []ValidationError {
	if strings.TrimSpace(c.Database.Path) == "" {
		return []ValidationError{{
			Field:   "database.path",
			Value:   c.Database.Path,
			Message: "must not be empty",
		}}
	}
	return nil
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.Format != "" && !slices.Contains(ValidLogFormats(), strings.ToLower(c.Logging.Format)) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}

	return errors
}

// Validate checks the assistant settings. A missing API key is not a
// configuration error here: the cloud provider reports it when asked.
func (a AssistantConfig) Validate() []ValidationError {
	var errors []ValidationError

	if !IsValidProvider(a.Provider) {
		errors = append(errors, ValidationError{
			Field:   "assistant.provider",
			Value:   a.Provider,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidProviders(), ", ")),
		})
	}
	for field, raw := range map[string]string{"assistant.local_url": a.LocalURL, "assistant.cloud_url": a.CloudURL} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   raw,
				Message: "must be an absolute URL",
			})
		}
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "assistant.temperature",
			Value:   a.Temperature,
			Message: "must be between 0 and 2",
		})
	}
	if a.MaxTokens < 0 {
		errors = append(errors, ValidationError{
			Field:   "assistant.max_tokens",
			Value:   a.MaxTokens,
			Message: "must be non-negative",
		})
	}
	if a.TimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "assistant.timeout_seconds",
			Value:   a.TimeoutSeconds,
			Message: "must be non-negative",
		})
	}
	if a.HistoryLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "assistant.history_limit",
			Value:   a.HistoryLimit,
			Message: "must be non-negative",
		})
	}

	return errors
}
