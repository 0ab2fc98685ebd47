package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, ProviderGemini, cfg.ModelProvider)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	assert.Equal(t, 30*time.Second, cfg.ModelTimeout)
	assert.Equal(t, 1, cfg.ModelMaxAttempts)
	assert.Equal(t, StoreMongo, cfg.StoreDriver)
	assert.Equal(t, int64(10), cfg.SaveListLimit)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "test-key", cfg.ModelAPIKey())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MODEL_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost/db")
	t.Setenv("MODEL_TIMEOUT", "5s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.ModelProvider)
	assert.Equal(t, "sk-test", cfg.ModelAPIKey())
	assert.Equal(t, "postgres://u:p@localhost/db", cfg.StoreURI())
	assert.Equal(t, 5*time.Second, cfg.ModelTimeout)
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	cfg := &Config{ModelProvider: "llama", StoreDriver: StoreMongo}
	assert.Error(t, cfg.Validate())

	cfg = &Config{ModelProvider: ProviderGemini, StoreDriver: "redis"}
	assert.Error(t, cfg.Validate())

	cfg = &Config{ModelProvider: ProviderGemini, StoreDriver: StoreNone, ModelMaxAttempts: 0}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.ModelMaxAttempts)
	assert.Empty(t, cfg.StoreURI())
}
