package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baza-crm/widget-cli/internal/importer"
	"github.com/baza-crm/widget-cli/internal/model"
	"github.com/baza-crm/widget-cli/internal/notify"
	"github.com/baza-crm/widget-cli/pkg/notion"
)

var (
	importDryRun bool
	importNotify bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import clients from a CSV or XLSX file into the Notion base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}

		clients, err := parseImportFile(args[0])
		if err != nil {
			return err
		}
		if len(clients) == 0 {
			fmt.Println("no importable rows found")
			return nil
		}
		zap.L().Info("parsed import file",
			zap.String("file", args[0]),
			zap.Int("rows", len(clients)),
		)

		if importDryRun {
			for _, c := range clients {
				fmt.Printf("%s\t%s\n", c.Name, c.Address)
			}
			fmt.Printf("dry run: %d rows would be imported\n", len(clients))
			return nil
		}

		client := notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(cfg.Notion.RPS))
		im := importer.NewImporter(client, cfg.Notion.ClientDB, cfg.Import.Source)
		created, err := im.Sync(cmd.Context(), clients)
		if err != nil {
			return err
		}

		fmt.Printf("imported %d of %d rows (%d already present)\n",
			created, len(clients), len(clients)-created)

		if importNotify && cfg.Notify.WebhookURL != "" {
			notifier := notify.NewNotifier(cfg.Notify.WebhookURL)
			if err := notifier.Send(cmd.Context(), notify.Message{
				Text:    fmt.Sprintf("Imported %d new clients from %s", created, filepath.Base(args[0])),
				Details: map[string]any{"rows": len(clients), "created": created},
			}); err != nil {
				zap.L().Warn("import notification failed", zap.Error(err))
			}
		}
		return nil
	},
}

func parseImportFile(path string) ([]model.Client, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return importer.ParseXLSX(path)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "open import file %s", path)
		}
		defer f.Close() //nolint:errcheck
		return importer.ParseCSV(f)
	default:
		return nil, eris.Errorf("unsupported import format %q, want .csv or .xlsx", filepath.Ext(path))
	}
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "parse and print rows without writing to Notion")
	importCmd.Flags().BoolVar(&importNotify, "notify", false, "send a webhook notification when the import finishes")
	rootCmd.AddCommand(importCmd)
}
