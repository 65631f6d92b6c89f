package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg := Load()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "https://app.onepagecrm.com/api/v3", cfg.CRMBaseURL)
	assert.Equal(t, "us-east-1", cfg.AWSRegion)
	assert.Equal(t, 8*time.Second, cfg.SearchTimeout)
	assert.False(t, cfg.Debug)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("ADDR", ":9090")
	t.Setenv("CRM_BASE_URL", "https://crm.example.com/api")
	t.Setenv("CRM_API_TOKEN", "token-123")
	t.Setenv("SEARCH_TIMEOUT", "5s")
	t.Setenv("DEBUG_MODE", "true")

	cfg := Load()

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "https://crm.example.com/api", cfg.CRMBaseURL)
	assert.Equal(t, "token-123", cfg.CRMToken)
	assert.Equal(t, 5*time.Second, cfg.SearchTimeout)
	assert.True(t, cfg.Debug)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	t.Setenv("SEARCH_TIMEOUT", "not-a-duration")
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic due to invalid SEARCH_TIMEOUT")
		}
	}()
	Load()
}

func TestLoad_InvalidDebugMode(t *testing.T) {
	t.Setenv("DEBUG_MODE", "maybe")
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic due to invalid DEBUG_MODE")
		}
	}()
	Load()
}

func TestMissing_ReportsAbsentCredentials(t *testing.T) {
	os.Clearenv()

	cfg := Load()
	missing := cfg.Missing()

	assert.Contains(t, missing, "CRMToken")
	assert.Contains(t, missing, "AWSAccessKeyID")
	assert.Contains(t, missing, "AWSSecretAccessKey")
	assert.Contains(t, missing, "SearchFunctionURL")
	assert.Contains(t, missing, "AssistantID")
}

func TestMissing_EmptyWhenComplete(t *testing.T) {
	t.Setenv("CRM_API_TOKEN", "tok")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIAEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("SEARCH_FUNCTION_URL", "https://abc123.lambda-url.us-east-1.on.aws/")
	t.Setenv("VAPI_ASSISTANT_ID", "asst-1")

	cfg := Load()

	assert.Empty(t, cfg.Missing())
}
