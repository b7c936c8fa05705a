package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/shopbot-dev/shopbot/internal/handler"
	"github.com/shopbot-dev/shopbot/pkg/catalog"
	"github.com/shopbot-dev/shopbot/pkg/config"
	"github.com/shopbot-dev/shopbot/pkg/embeddings"
	"github.com/shopbot-dev/shopbot/pkg/observability"
	"github.com/shopbot-dev/shopbot/pkg/retrieval"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP chat server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runServe(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// swappableRetriever lets a scheduled reindex replace the loaded
// indexes without restarting the dialogue engine.
type swappableRetriever struct {
	current atomic.Pointer[retrieval.Retriever]
}

func (s *swappableRetriever) SearchProducts(ctx context.Context, query string, k int) ([]retrieval.ProductHit, error) {
	return s.current.Load().SearchProducts(ctx, query, k)
}

func (s *swappableRetriever) SearchFAQ(ctx context.Context, query string, k int) ([]retrieval.FAQHit, error) {
	return s.current.Load().SearchFAQ(ctx, query, k)
}

func runServe(cfg *config.Config) error {
	log.Printf("Starting ShopBot v%s", Version)
	log.Printf("Config: %s, Addr: %s", cfgFile, cfg.Server.Addr)

	observability.InitMetrics()
	if err := observability.InitTracingFromEnv(); err != nil {
		log.Printf("Tracing disabled: %v", err)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	retriever, err := retrieval.NewRetriever(embedder, cfg.IndexDir)
	if err != nil {
		return fmt.Errorf("failed to load retrieval indexes: %w", err)
	}
	swappable := &swappableRetriever{}
	swappable.current.Store(retriever)
	observability.SetIndexDocuments("products", retriever.ProductCount())
	observability.SetIndexDocuments("faqs", retriever.FAQCount())

	orders, err := newOrderLog(cfg)
	if err != nil {
		return fmt.Errorf("failed to open order log: %w", err)
	}
	defer func() { _ = orders.Close() }()

	transcripts, err := newTranscripts(cfg)
	if err != nil {
		return fmt.Errorf("failed to open transcript store: %w", err)
	}
	defer func() { _ = transcripts.Close() }()

	engine, err := buildEngine(cfg, swappable, orders)
	if err != nil {
		return err
	}

	healthChecker := observability.InitHealthChecker()
	healthChecker.RegisterCheck(observability.OrderLogCheck(func(ctx context.Context) error {
		_, err := orders.List(ctx)
		return err
	}))
	healthChecker.RegisterCheck(observability.IndexCheck(func(context.Context) error {
		if swappable.current.Load().ProductCount() == 0 {
			return fmt.Errorf("product index is empty")
		}
		return nil
	}))

	h := handler.New(engine, orders, transcripts)
	router := handler.NewRouter(h, handler.RouterConfig{
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	})

	errChan := make(chan error, 2)

	obsServer := observability.NewServer(cfg.Server.MetricsAddr)
	go func() {
		log.Printf("Starting metrics server on %s", cfg.Server.MetricsAddr)
		if err := obsServer.Start(); err != nil {
			errChan <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	apiServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Starting API server on %s", cfg.Server.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	var scheduler *cron.Cron
	if cfg.ReindexSchedule != "" {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(cfg.ReindexSchedule, func() {
			if err := reindex(context.Background(), cfg, embedder, swappable); err != nil {
				log.Printf("Scheduled reindex failed: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid reindex_schedule %q: %w", cfg.ReindexSchedule, err)
		}
		scheduler.Start()
		log.Printf("Scheduled index rebuild: %s", cfg.ReindexSchedule)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Printf("Error: %v", err)
	case <-quit:
		log.Println("Shutting down...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if scheduler != nil {
		scheduler.Stop()
	}
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("API server shutdown error: %v", err)
	}
	if err := obsServer.Shutdown(ctx); err != nil {
		log.Printf("Metrics server shutdown error: %v", err)
	}
	if err := observability.ShutdownTracing(ctx); err != nil {
		log.Printf("Tracing shutdown error: %v", err)
	}

	log.Println("ShopBot stopped")
	return nil
}

// reindex rebuilds the on-disk indexes from the catalog files and
// swaps the freshly loaded indexes into the running engine.
func reindex(ctx context.Context, cfg *config.Config, embedder embeddings.EmbeddingService, swappable *swappableRetriever) error {
	products, err := catalog.LoadProducts(cfg.CatalogPath)
	if err != nil {
		return err
	}
	faqs, err := catalog.LoadFAQs(cfg.FAQPath)
	if err != nil {
		return err
	}

	stats, err := retrieval.NewBuilder(embedder).Build(ctx, products, faqs, cfg.IndexDir)
	if err != nil {
		return err
	}

	fresh, err := retrieval.NewRetriever(embedder, cfg.IndexDir)
	if err != nil {
		return err
	}
	swappable.current.Store(fresh)
	observability.SetIndexDocuments("products", stats.Products)
	observability.SetIndexDocuments("faqs", stats.FAQs)
	log.Printf("Reindexed %d products and %d FAQs", stats.Products, stats.FAQs)
	return nil
}
