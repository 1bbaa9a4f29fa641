package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type LLMConfig struct {
	BaseURL   string        `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	APIKey    string        `env:"LLM_API_KEY"`
	Model     string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	Timeout   time.Duration `env:"LLM_TIMEOUT" envDefault:"8s"`
	MaxTokens int           `env:"LLM_MAX_TOKENS" envDefault:"60"`
}

func LoadLLM() (LLMConfig, error) {
	var cfg LLMConfig
	err := env.Parse(&cfg)
	return cfg, err
}

func (c LLMConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}
