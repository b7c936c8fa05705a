package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopbot-dev/shopbot/pkg/catalog"
	"github.com/shopbot-dev/shopbot/pkg/retrieval"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the product and FAQ retrieval indexes",
	Long: `Embeds every product and FAQ in the catalog files and writes the
resulting indexes to the configured index directory, replacing any
previous indexes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		products, err := catalog.LoadProducts(cfg.CatalogPath)
		if err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
		faqs, err := catalog.LoadFAQs(cfg.FAQPath)
		if err != nil {
			return fmt.Errorf("failed to load FAQs: %w", err)
		}
		if len(products) == 0 && len(faqs) == 0 {
			return fmt.Errorf("nothing to index: %s and %s are empty or missing", cfg.CatalogPath, cfg.FAQPath)
		}

		embedder, err := newEmbedder(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = embedder.Close() }()

		stats, err := retrieval.NewBuilder(embedder).Build(cmd.Context(), products, faqs, cfg.IndexDir)
		if err != nil {
			return fmt.Errorf("index build failed: %w", err)
		}

		fmt.Printf("Indexed %d products and %d FAQs into %s\n", stats.Products, stats.FAQs, cfg.IndexDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
