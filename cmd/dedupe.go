package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baza-crm/widget-cli/internal/dedupe"
	"github.com/baza-crm/widget-cli/pkg/notion"
)

var dedupeDryRun bool

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Archive duplicate pages in the Notion client base",
	Long:  "Hashes every page's properties, groups identical pages, keeps the oldest page of each group and archives the rest. Archived pages are recorded in a local ledger.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("dedupe"); err != nil {
			return err
		}

		var ledger *dedupe.Ledger
		if !dedupeDryRun {
			l, err := dedupe.OpenLedger(cfg.Dedupe.ArchiveDB)
			if err != nil {
				return err
			}
			defer l.Close() //nolint:errcheck
			ledger = l
		}

		client := notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(cfg.Notion.RPS))
		runner := dedupe.NewRunner(client, ledger, cfg.Notion.ClientDB)

		result, err := runner.Run(cmd.Context(), dedupeDryRun)
		if err != nil {
			return err
		}

		if result.DryRun {
			fmt.Printf("dry run: %d pages scanned, %d duplicate groups found\n",
				result.TotalPages, result.Groups)
			return nil
		}
		fmt.Printf("%d pages scanned, %d duplicate groups, %d archived\n",
			result.TotalPages, result.Groups, result.Archived)
		zap.L().Info("dedupe finished",
			zap.Int("pages", result.TotalPages),
			zap.Int("groups", result.Groups),
			zap.Int("archived", result.Archived),
		)
		return nil
	},
}

func init() {
	dedupeCmd.Flags().BoolVar(&dedupeDryRun, "dry-run", false, "report duplicate groups without archiving")
	rootCmd.AddCommand(dedupeCmd)
}
