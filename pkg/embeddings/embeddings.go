// Package embeddings generates fixed-dimension text embeddings for the
// retrieval indexes. Providers register themselves; the index builder
// and retriever only see the EmbeddingService interface.
package embeddings

import (
	"context"
	"fmt"
	"sync"
)

// EmbeddingService generates text embeddings.
type EmbeddingService interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates one vector per input, order preserved.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the embedding model name.
	ModelName() string

	// Close releases any resources held by the service.
	Close() error
}

// Config selects and configures an embedding provider.
type Config struct {
	// Provider names the registered provider, e.g. "openai".
	Provider string `yaml:"provider" json:"provider"`

	OpenAI *OpenAIConfig `yaml:"openai,omitempty" json:"openai,omitempty"`
}

// OpenAIConfig holds settings for OpenAI-compatible embedding APIs.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key" json:"api_key"`

	// Model is the embedding model, "text-embedding-3-small" (1536
	// dims) or "text-embedding-3-large" (3072 dims).
	Model string `yaml:"model" json:"model"`

	// BaseURL overrides the API endpoint (default https://api.openai.com/v1).
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	// Dimensions reduces the embedding dimension (text-embedding-3 only).
	Dimensions int `yaml:"dimensions,omitempty" json:"dimensions,omitempty"`
}

// Validate checks the configuration and fills provider defaults.
func (c *Config) Validate() error {
	switch c.Provider {
	case "":
		return fmt.Errorf("provider must be specified")
	case "openai":
		if c.OpenAI == nil {
			return fmt.Errorf("openai configuration is required when provider is 'openai'")
		}
		return c.OpenAI.Validate()
	default:
		return fmt.Errorf("unsupported provider: %s", c.Provider)
	}
}

// Validate checks the OpenAI configuration and fills defaults.
func (oc *OpenAIConfig) Validate() error {
	if oc.APIKey == "" {
		return fmt.Errorf("openai api_key is required")
	}
	if oc.Model == "" {
		oc.Model = "text-embedding-3-small"
	}
	if oc.BaseURL == "" {
		oc.BaseURL = "https://api.openai.com/v1"
	}
	return nil
}

// ProviderFactory constructs an EmbeddingService from a Config.
type ProviderFactory func(config Config) (EmbeddingService, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]ProviderFactory)
)

// Register adds an embedding provider. It panics on a nil factory or a
// duplicate name.
func Register(name string, factory ProviderFactory) {
	mu.Lock()
	defer mu.Unlock()

	if factory == nil {
		panic("embeddings: Register factory is nil")
	}
	if _, dup := factories[name]; dup {
		panic("embeddings: Register called twice for provider " + name)
	}
	factories[name] = factory
}

// New creates the EmbeddingService named by config.Provider.
func New(config Config) (EmbeddingService, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	mu.RLock()
	factory, ok := factories[config.Provider]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown embedding provider: %s (available: %v)", config.Provider, ListProviders())
	}
	return factory(config)
}

// ListProviders returns the names of all registered providers.
func ListProviders() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}
