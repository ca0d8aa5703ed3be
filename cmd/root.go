package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baza-crm/widget-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "widget-cli",
	Short: "Client map widgets from the Notion CRM",
	Long:  "Pulls the client base from Notion, geocodes Ukrainian addresses through a cached provider chain, and renders embeddable map widgets.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
