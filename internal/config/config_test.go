package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "logbook.db", cfg.DatabaseURL)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, "gemini-1.5-flash-latest", cfg.ModelName)
	assert.Equal(t, 30*time.Second, cfg.ModelTimeout)
	assert.Equal(t, 1, cfg.ModelMaxRetries)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "custom.db")
	t.Setenv("MODEL_TIMEOUT_SECONDS", "5")
	t.Setenv("MODEL_MAX_RETRIES", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "custom.db", cfg.DatabaseURL)
	assert.Equal(t, 5*time.Second, cfg.ModelTimeout)
	assert.Equal(t, 2, cfg.ModelMaxRetries)
}

func TestLoad_RequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("JWT_SECRET", "test-secret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}
