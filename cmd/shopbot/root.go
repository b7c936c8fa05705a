package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shopbot-dev/shopbot/internal/dialog"
	"github.com/shopbot-dev/shopbot/internal/intent"
	"github.com/shopbot-dev/shopbot/internal/llm"
	"github.com/shopbot-dev/shopbot/pkg/config"
	"github.com/shopbot-dev/shopbot/pkg/embeddings"
	"github.com/shopbot-dev/shopbot/pkg/order"
	"github.com/shopbot-dev/shopbot/pkg/session"
)

// Version information (set via ldflags)
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "shopbot",
	Short:   "Conversational shopping assistant",
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env file is fine; real deployments set the
		// environment directly.
		_ = godotenv.Load()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config/shopbot.yaml", "configuration file")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newEmbedder(cfg *config.Config) (embeddings.EmbeddingService, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("openai_key is required (set OPENAI_API_KEY or openai_key in %s)", cfgFile)
	}
	return embeddings.New(embeddings.Config{
		Provider: "openai",
		OpenAI: &embeddings.OpenAIConfig{
			APIKey: cfg.OpenAIKey,
			Model:  cfg.EmbeddingModel,
		},
	})
}

func newChatProvider(cfg *config.Config) (llm.Provider, error) {
	return llm.NewOpenAIProvider(llm.OpenAIConfig{
		APIKey: cfg.OpenAIKey,
		Model:  cfg.ChatModel,
	})
}

func newClassifier(cfg *config.Config, provider llm.Provider) intent.Classifier {
	if cfg.Classifier == "llm" {
		return intent.NewLLMClassifier(provider, cfg.ChatModel)
	}
	return intent.NewKeywordClassifier()
}

// newOrderLog opens the configured order log. The literal value "redis"
// selects the redis-backed log; anything else is a JSONL file path.
func newOrderLog(cfg *config.Config) (order.Log, error) {
	if cfg.OrderLog == "redis" {
		return order.NewRedisLog(order.RedisLogConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	return order.NewFileLog(cfg.OrderLog)
}

func newTranscripts(cfg *config.Config) (*session.Manager, error) {
	var (
		backend session.StorageBackend
		err     error
	)
	switch cfg.TranscriptBackend {
	case "redis":
		backend, err = session.NewRedisBackend(session.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	default:
		backend, err = session.NewFileBackend(cfg.TranscriptDir)
	}
	if err != nil {
		return nil, err
	}
	return session.NewManager(backend), nil
}

func buildEngine(cfg *config.Config, retriever dialog.Retriever, orders order.Log) (*dialog.Engine, error) {
	chat, err := newChatProvider(cfg)
	if err != nil {
		return nil, err
	}
	return dialog.NewEngine(newClassifier(cfg, chat), retriever, chat, orders), nil
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}
