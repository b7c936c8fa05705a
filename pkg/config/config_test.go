package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ChatModel != "gpt-4o-mini" {
		t.Errorf("expected default chat model, got %s", cfg.ChatModel)
	}
	if cfg.Classifier != "keyword" {
		t.Errorf("expected keyword classifier default, got %s", cfg.Classifier)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default server addr, got %s", cfg.Server.Addr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
chat_model: gpt-4o
classifier: llm
openai_key: test-key
order_log: /tmp/orders.jsonl
server:
  addr: ":9999"
  rate_limit: 5
reindex_schedule: "0 3 * * *"
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ChatModel != "gpt-4o" {
		t.Errorf("expected gpt-4o, got %s", cfg.ChatModel)
	}
	if cfg.Classifier != "llm" {
		t.Errorf("expected llm classifier, got %s", cfg.Classifier)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("expected :9999, got %s", cfg.Server.Addr)
	}
	if cfg.Server.RateLimit != 5 {
		t.Errorf("expected rate limit 5, got %f", cfg.Server.RateLimit)
	}
	if cfg.ReindexSchedule != "0 3 * * *" {
		t.Errorf("unexpected schedule: %s", cfg.ReindexSchedule)
	}
	// Unset fields still get defaults.
	if cfg.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("expected default embedding model, got %s", cfg.EmbeddingModel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("config should validate: %v", err)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("chat_model: [broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"bad classifier", func(c *Config) { c.Classifier = "magic" }, true},
		{"llm without key", func(c *Config) { c.Classifier = "llm"; c.OpenAIKey = "" }, true},
		{"bad transcript backend", func(c *Config) { c.TranscriptBackend = "s3" }, true},
		{"redis backend without addr", func(c *Config) { c.TranscriptBackend = "redis"; c.Redis.Addr = "" }, true},
		{"redis backend with addr", func(c *Config) { c.TranscriptBackend = "redis"; c.Redis.Addr = "localhost:6379" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.ChatModel = "gpt-4o"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ChatModel != "gpt-4o" {
		t.Errorf("expected gpt-4o after round trip, got %s", loaded.ChatModel)
	}
}
