// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`

	// Classification endpoint (OpenAI-compatible chat completions API).
	LLMAPIURL  string        `env:"LLM_API_URL,required"`
	LLMAPIKey  string        `env:"LLM_API_KEY" envDefault:"local"`
	LLMModel   string        `env:"LLM_MODEL,required"`
	LLMTimeout time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`
	LLMRetries int           `env:"LLM_RETRIES" envDefault:"3"`

	// Feed fetching.
	FetchDelay       time.Duration `env:"FETCH_DELAY" envDefault:"500ms"`
	FetchTimeout     time.Duration `env:"FETCH_TIMEOUT" envDefault:"15s"`
	PageFetchTimeout time.Duration `env:"PAGE_FETCH_TIMEOUT" envDefault:"10s"`
	FetchUserAgent   string        `env:"FETCH_USER_AGENT" envDefault:"TechNewsAggregator/1.0 (RSS Fetcher)"`

	// Per-article pacing between classification calls.
	ClassifyDelay time.Duration `env:"CLASSIFY_DELAY" envDefault:"500ms"`

	SourcesFile string `env:"SOURCES_FILE" envDefault:"sources.yml"`
	MaxArticles int    `env:"MAX_ARTICLES_PER_FETCH" envDefault:"10"`

	HealthPort int    `env:"HEALTH_PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the environment, consulting .env when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}
