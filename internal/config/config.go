// File path: internal/config/config.go

// Package config loads service configuration from the environment. The
// connection and model settings are required and carry no defaults; tunables
// default to the values the service ships with.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every environment-backed setting.
type Config struct {
	MongoURI      string `env:"MONGO_URI"`
	DBName        string `env:"DB_NAME"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_MODEL"`

	ServerAddr  string `env:"SERVER_ADDR" envDefault:":5000"`
	SchemaPath  string `env:"SCHEMA_PATH" envDefault:"data/schemas.json"`
	HistoryPath string `env:"HISTORY_PATH" envDefault:"data/history.db"`

	SampleSize        int           `env:"SAMPLE_SIZE" envDefault:"100"`
	ResultLimit       int           `env:"RESULT_LIMIT" envDefault:"100"`
	MaxPipelineStages int           `env:"MAX_PIPELINE_STAGES" envDefault:"8"`
	MaxQueryDepth     int           `env:"MAX_QUERY_DEPTH" envDefault:"10"`
	MongoTimeout      time.Duration `env:"MONGO_TIMEOUT" envDefault:"10s"`
	OpenAIHTTPTimeout time.Duration `env:"OPENAI_HTTP_TIMEOUT" envDefault:"60s"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Default returns a Config carrying only the shipped defaults.
func Default() Config {
	return Config{
		ServerAddr:        ":5000",
		SchemaPath:        "data/schemas.json",
		HistoryPath:       "data/history.db",
		SampleSize:        100,
		ResultLimit:       100,
		MaxPipelineStages: 8,
		MaxQueryDepth:     10,
		MongoTimeout:      10 * time.Second,
		OpenAIHTTPTimeout: 60 * time.Second,
		LogLevel:          "info",
	}
}

// Load parses the environment. Call Validate before using the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the required settings and reports every missing one at
// once rather than stopping at the first.
func (c Config) Validate() error {
	var missing []string
	for _, item := range []struct {
		name, value string
	}{
		{"MONGO_URI", c.MongoURI},
		{"DB_NAME", c.DBName},
		{"OPENAI_API_KEY", c.OpenAIAPIKey},
		{"OPENAI_BASE_URL", c.OpenAIBaseURL},
		{"OPENAI_MODEL", c.OpenAIModel},
	} {
		if strings.TrimSpace(item.value) == "" {
			missing = append(missing, item.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.SampleSize <= 0 {
		return fmt.Errorf("config: SAMPLE_SIZE must be positive")
	}
	if c.ResultLimit <= 0 {
		return fmt.Errorf("config: RESULT_LIMIT must be positive")
	}
	return nil
}

// LogSummary logs the effective configuration with the API key masked.
func (c Config) LogSummary(logger *slog.Logger) {
	logger.Info("config: loaded",
		"mongo_uri", c.MongoURI,
		"db_name", c.DBName,
		"openai_base_url", c.OpenAIBaseURL,
		"openai_model", c.OpenAIModel,
		"openai_api_key", maskSecret(c.OpenAIAPIKey),
		"server_addr", c.ServerAddr,
		"schema_path", c.SchemaPath,
		"history_path", c.HistoryPath,
		"sample_size", c.SampleSize,
		"result_limit", c.ResultLimit)
}

func maskSecret(secret string) string {
	if secret == "" {
		return "NOT SET"
	}
	if len(secret) <= 8 {
		return "********"
	}
	return "********" + secret[len(secret)-4:]
}
