// Package config handles application configuration via environment variables.
package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all configurable values for the app.
//
// Credential fields are tagged required but Load never panics on their
// absence: a webhook with missing credentials must still answer 200, so the
// affected component reports a clean error on its own path instead.
type Config struct {
	Env  string
	Addr string

	CRMBaseURL string `validate:"required,url"`
	CRMToken   string `validate:"required"`

	AWSAccessKeyID     string `validate:"required"`
	AWSSecretAccessKey string `validate:"required"`
	AWSRegion          string `validate:"required"`
	SearchFunctionURL  string `validate:"required,url"`

	AssistantID string `validate:"required"`

	SearchTimeout time.Duration
	OverridesPath string
	Debug         bool
}

// Load reads environment variables and populates a Config struct.
func Load() *Config {
	searchTimeout, err := time.ParseDuration(getEnv("SEARCH_TIMEOUT", "8s"))
	if err != nil {
		log.Panicf("Invalid SEARCH_TIMEOUT: %v", err)
	}

	debug, err := strconv.ParseBool(getEnv("DEBUG_MODE", "false"))
	if err != nil {
		log.Panicf("Invalid DEBUG_MODE: %v", err)
	}

	return &Config{
		Env:                getEnv("ENV", "development"),
		Addr:               getEnv("ADDR", ":8080"),
		CRMBaseURL:         getEnv("CRM_BASE_URL", "https://app.onepagecrm.com/api/v3"),
		CRMToken:           os.Getenv("CRM_API_TOKEN"),
		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		SearchFunctionURL:  os.Getenv("SEARCH_FUNCTION_URL"),
		AssistantID:        os.Getenv("VAPI_ASSISTANT_ID"),
		SearchTimeout:      searchTimeout,
		OverridesPath:      os.Getenv("OVERRIDES_PATH"),
		Debug:              debug,
	}
}

// Missing returns the names of required fields that are absent or malformed.
// An empty slice means the config is complete.
func (c *Config) Missing() []string {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var validationErr validator.ValidationErrors
	if !errors.As(err, &validationErr) {
		return []string{err.Error()}
	}

	fields := make([]string, 0, len(validationErr))
	for _, e := range validationErr {
		fields = append(fields, e.Field())
	}
	return fields
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
