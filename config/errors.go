package config

import (
	"fmt"
	"strings"
)

// ErrorCategory classifies configuration errors.
type ErrorCategory string

const (
	CategoryMissing ErrorCategory = "missing"
	CategoryInvalid ErrorCategory = "invalid"
)

// ConfigError reports a configuration problem together with the fix.
// Messages are lowercase.
//
//nolint:revive // ConfigError is intentionally named for clarity in external API usage
type ConfigError struct {
	Category ErrorCategory
	Field    string   // koanf path, e.g. "cache.redis.host"
	Message  string   // what is wrong
	Action   string   // how to fix it
	Options  []string // accepted values, when the set is closed
}

// Error renders "config_<category>: <field> <message>; <action>".
func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("config_")
	b.WriteString(string(e.Category))
	b.WriteString(": ")
	b.WriteString(e.Field)
	if e.Message != "" {
		b.WriteString(" ")
		b.WriteString(e.Message)
	}
	if e.Action != "" {
		b.WriteString("; ")
		b.WriteString(e.Action)
	}
	if len(e.Options) > 0 {
		b.WriteString("; must be one of: ")
		b.WriteString(strings.Join(e.Options, ", "))
	}
	return b.String()
}

// NewMissingFieldError reports a required field left empty, naming the
// environment variable and the YAML key that set it.
func NewMissingFieldError(field, envVar, yamlPath string) *ConfigError {
	return &ConfigError{
		Category: CategoryMissing,
		Field:    field,
		Message:  "is required",
		Action:   fmt.Sprintf("set %s or %s in config.yaml", envVar, yamlPath),
	}
}

// NewInvalidFieldError reports a rejected value. options may be nil.
func NewInvalidFieldError(field, message string, options []string) *ConfigError {
	return &ConfigError{
		Category: CategoryInvalid,
		Field:    field,
		Message:  message,
		Options:  options,
	}
}

// NewValidationError wraps a section validator's message.
func NewValidationError(field, message string) *ConfigError {
	return &ConfigError{Category: CategoryInvalid, Field: field, Message: message}
}
