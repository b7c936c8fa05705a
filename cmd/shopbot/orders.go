package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopbot-dev/shopbot/pkg/order"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Inspect and update the order log",
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all recorded orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		orders, err := newOrderLog(cfg)
		if err != nil {
			return fmt.Errorf("failed to open order log: %w", err)
		}
		defer func() { _ = orders.Close() }()

		records, err := orders.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list orders: %w", err)
		}
		if len(records) == 0 {
			fmt.Println("No orders recorded.")
			return nil
		}
		for _, o := range records {
			fmt.Printf("%s  %-10s  %8.2f  %s  %s\n",
				o.ID, o.Status, o.Total, o.CreatedAt.Format("2006-01-02 15:04"), o.Customer.Name)
		}
		return nil
	},
}

var ordersSetStatusCmd = &cobra.Command{
	Use:   "set-status <order-id> <status>",
	Short: "Update the status of an order",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		orders, err := newOrderLog(cfg)
		if err != nil {
			return fmt.Errorf("failed to open order log: %w", err)
		}
		defer func() { _ = orders.Close() }()

		orderID, status := args[0], args[1]
		switch status {
		case order.StatusCreated, order.StatusShipped, order.StatusDelivered, order.StatusCancelled:
		default:
			return fmt.Errorf("invalid status %q", status)
		}

		if err := orders.UpdateStatus(cmd.Context(), orderID, status); err != nil {
			return fmt.Errorf("failed to update %s: %w", orderID, err)
		}
		fmt.Printf("%s -> %s\n", orderID, status)
		return nil
	},
}

func init() {
	ordersCmd.AddCommand(ordersListCmd, ordersSetStatusCmd)
	rootCmd.AddCommand(ordersCmd)
}
