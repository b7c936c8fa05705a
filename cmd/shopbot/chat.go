package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/shopbot-dev/shopbot/internal/dialog"
	"github.com/shopbot-dev/shopbot/pkg/retrieval"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant from the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
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
		if retriever.ProductCount() == 0 {
			fmt.Println("Warning: product index is empty, run `shopbot index` first.")
		}

		orders, err := newOrderLog(cfg)
		if err != nil {
			return fmt.Errorf("failed to open order log: %w", err)
		}
		defer func() { _ = orders.Close() }()

		engine, err := buildEngine(cfg, retriever, orders)
		if err != nil {
			return err
		}

		line := liner.NewLiner()
		defer func() { _ = line.Close() }()
		line.SetCtrlCAborts(true)

		session := dialog.NewSession()
		fmt.Println("ShopBot ready. Ctrl+C or \"bye\" to leave.")

		for {
			input, err := line.Prompt("you> ")
			if err != nil {
				if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
					fmt.Println()
					return nil
				}
				return err
			}
			if strings.TrimSpace(input) == "" {
				continue
			}
			line.AppendHistory(input)

			turn, err := engine.HandleMessage(cmd.Context(), session, input)
			if err != nil {
				return fmt.Errorf("failed to record order: %w", err)
			}
			fmt.Printf("bot> %s\n", turn.Reply)

			if turn.State == dialog.StateEnd {
				return nil
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
