package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Model providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Store drivers.
const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
	StoreNone     = "none"
)

// Config holds the application configuration.
type Config struct {
	HTTPAddr    string   `envconfig:"HTTP_ADDR" default:":8000"`
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string   `envconfig:"LOG_ENCODING" default:"json"`
	LogOutput   string   `envconfig:"LOG_OUTPUT" default:"stdout"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`

	ModelProvider    string        `envconfig:"MODEL_PROVIDER" default:"gemini"`
	GeminiAPIKey     string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel      string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	OpenAIAPIKey     string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL    string        `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel      string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	ModelTimeout     time.Duration `envconfig:"MODEL_TIMEOUT" default:"30s"`
	ModelMaxAttempts int           `envconfig:"MODEL_MAX_ATTEMPTS" default:"1"`
	FallbackSeed     uint64        `envconfig:"FALLBACK_SEED" default:"0"`

	StoreDriver   string        `envconfig:"STORE_DRIVER" default:"mongo"`
	MongoURI      string        `envconfig:"MONGO_URI"`
	MongoDatabase string        `envconfig:"MONGO_DATABASE" default:"dungeon"`
	PostgresDSN   string        `envconfig:"POSTGRES_DSN"`
	SaveListLimit int64         `envconfig:"SAVE_LIST_LIMIT" default:"10"`
	StoreTimeout  time.Duration `envconfig:"STORE_TIMEOUT" default:"10s"`
}

// LoadConfig loads the configuration from a .env file (if any) and environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate normalizes enum fields and rejects unknown values.
func (c *Config) Validate() error {
	c.ModelProvider = strings.ToLower(strings.TrimSpace(c.ModelProvider))
	switch c.ModelProvider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown MODEL_PROVIDER %q", c.ModelProvider)
	}

	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case StoreMongo, StorePostgres, StoreMemory, StoreNone:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.ModelMaxAttempts < 1 {
		c.ModelMaxAttempts = 1
	}
	return nil
}

// ModelAPIKey returns the credential for the selected provider.
func (c *Config) ModelAPIKey() string {
	if c.ModelProvider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// StoreURI returns the connection string for the selected store driver.
func (c *Config) StoreURI() string {
	switch c.StoreDriver {
	case StoreMongo:
		return c.MongoURI
	case StorePostgres:
		return c.PostgresDSN
	}
	return ""
}
