package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints declared in struct tags, then the
// cross-field rules of each section.
func Validate(cfg *Config) error {
	if err := validateTags(cfg); err != nil {
		return err
	}

	if err := validateStorage(&cfg.Storage); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := validateCache(&cfg.Cache); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	return nil
}

// validateTags runs the validate tags and reports the first failing field
// by its koanf path.
func validateTags(cfg *Config) error {
	err := structValidator.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	return NewInvalidFieldError(fieldPath(fe.Namespace()), describe(fe), nil)
}

// fieldPath turns "Config.Cache.MemoryLimit" into "cache.memorylimit".
func fieldPath(namespace string) string {
	_, path, found := strings.Cut(namespace, ".")
	if !found {
		path = namespace
	}
	return strings.ToLower(path)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("got %q, must be one of: %s", fmt.Sprint(fe.Value()), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "gte":
		return fmt.Sprintf("got %v, must be at least %s", fe.Value(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("got %v, must be at most %s", fe.Value(), fe.Param())
	case "gt":
		return fmt.Sprintf("got %v, must be greater than %s", fe.Value(), fe.Param())
	case "startswith":
		return fmt.Sprintf("got %q, must start with %q", fmt.Sprint(fe.Value()), fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func validateStorage(cfg *StorageConfig) error {
	if cfg.Type == StorageFile && cfg.Root == "" {
		return NewMissingFieldError("storage.root", EnvPrefix+"STORAGE_ROOT", "storage.root")
	}
	return nil
}

// validateCache checks the redis connection options when the redis provider
// is selected. The map section is not checked here: a rejected map only
// disables the distributed cache.
func validateCache(cfg *CacheConfig) error {
	if cfg.Provider != ProviderRedis {
		return nil
	}

	if err := cfg.Redis.Validate(); err != nil {
		return NewValidationError("cache.redis", err.Error())
	}
	return nil
}
