// Package config loads the application configuration from a YAML file
// with environment-variable fallbacks for secrets.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// API Keys
	OpenAIKey string `yaml:"openai_key"`

	// Model Configuration
	ChatModel      string  `yaml:"chat_model"`
	EmbeddingModel string  `yaml:"embedding_model"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float64 `yaml:"temperature"`

	// Intent Classification
	// Classifier selects the strategy: "keyword" or "llm".
	Classifier string `yaml:"classifier"`

	// Data paths
	CatalogPath string `yaml:"catalog_path"`
	FAQPath     string `yaml:"faq_path"`
	IndexDir    string `yaml:"index_dir"`
	OrderLog    string `yaml:"order_log"`

	// Transcript store: "file" or "redis".
	TranscriptBackend string `yaml:"transcript_backend"`
	TranscriptDir     string `yaml:"transcript_dir"`

	// Redis holds connection settings for the redis-backed stores.
	Redis RedisConfig `yaml:"redis"`

	// Server holds HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// ReindexSchedule is a cron expression for scheduled index rebuilds
	// (empty disables them).
	ReindexSchedule string `yaml:"reindex_schedule"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr        string  `yaml:"addr"`
	MetricsAddr string  `yaml:"metrics_addr"`
	RateLimit   float64 `yaml:"rate_limit"`
	RateBurst   int     `yaml:"rate_burst"`
}

// LoadConfig loads configuration from a YAML file. A missing file
// yields the default configuration so the binary runs without one.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.Classifier == "" {
		cfg.Classifier = "keyword"
	}
	if cfg.CatalogPath == "" {
		cfg.CatalogPath = "data/products.json"
	}
	if cfg.FAQPath == "" {
		cfg.FAQPath = "data/faqs.json"
	}
	if cfg.IndexDir == "" {
		cfg.IndexDir = "data/index"
	}
	if cfg.OrderLog == "" {
		cfg.OrderLog = "data/orders.jsonl"
	}
	if cfg.TranscriptBackend == "" {
		cfg.TranscriptBackend = "file"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MetricsAddr == "" {
		cfg.Server.MetricsAddr = ":9090"
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 10
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 20
	}

	// Load secrets from environment if not in config
	if cfg.OpenAIKey == "" {
		cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	}

	return &cfg, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Classifier {
	case "keyword", "llm":
	default:
		return fmt.Errorf("classifier must be \"keyword\" or \"llm\", got %q", c.Classifier)
	}

	switch c.TranscriptBackend {
	case "file", "redis":
	default:
		return fmt.Errorf("transcript_backend must be \"file\" or \"redis\", got %q", c.TranscriptBackend)
	}

	if c.TranscriptBackend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required for the redis transcript backend")
	}

	if c.Classifier == "llm" && c.OpenAIKey == "" {
		return fmt.Errorf("openai_key is required for the llm classifier")
	}

	return nil
}
