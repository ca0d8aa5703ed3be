package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baza-crm/widget-cli/internal/model"
	"github.com/baza-crm/widget-cli/internal/widget"
)

var widgetCmd = &cobra.Command{
	Use:   "widget",
	Short: "Map widget generation",
}

var (
	widgetOutput    string
	widgetNoGeocode bool
	widgetSaveStore bool
)

var widgetGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a standalone map widget from the client base",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("widget"); err != nil {
			return err
		}

		fetcher, err := buildFetcher(false)
		if err != nil {
			return err
		}

		clients, err := fetcher.FetchClients(cmd.Context(), !widgetNoGeocode)
		if err != nil {
			return err
		}
		clients = model.Merge(nil, clients)
		placed := model.WithCoords(clients)
		if dropped := len(clients) - len(placed); dropped > 0 {
			zap.L().Warn("clients without coordinates dropped from widget",
				zap.Int("dropped", dropped))
		}

		if widgetSaveStore {
			if err := widget.SaveClients(cfg.Widget.StorePath, clients); err != nil {
				return err
			}
		}

		html, err := widget.Render(placed, renderOptions())
		if err != nil {
			return err
		}

		out := widgetOutput
		if out == "" {
			if err := os.MkdirAll(cfg.Widget.OutputDir, 0o755); err != nil {
				return eris.Wrap(err, "create widget output dir")
			}
			out = filepath.Join(cfg.Widget.OutputDir, uuid.NewString()[:12]+".html")
		}
		if err := os.WriteFile(out, []byte(html), 0o644); err != nil {
			return eris.Wrap(err, "write widget file")
		}

		fmt.Printf("widget written to %s (%d clients)\n", out, len(placed))
		return nil
	},
}

func renderOptions() widget.RenderOptions {
	opts := widget.DefaultRenderOptions()
	if cfg.Widget.CenterLat != 0 || cfg.Widget.CenterLng != 0 {
		opts.CenterLat = cfg.Widget.CenterLat
		opts.CenterLng = cfg.Widget.CenterLng
	}
	if cfg.Widget.Zoom != 0 {
		opts.Zoom = cfg.Widget.Zoom
	}
	if cfg.Widget.TileURL != "" {
		opts.TileURL = cfg.Widget.TileURL
	}
	if cfg.Widget.Attribution != "" {
		opts.Attribution = cfg.Widget.Attribution
	}
	return opts
}

func init() {
	widgetGenerateCmd.Flags().StringVarP(&widgetOutput, "output", "o", "", "output file (default widgets/<id>.html)")
	widgetGenerateCmd.Flags().BoolVar(&widgetNoGeocode, "no-geocode", false, "skip geocoding, place only records with stored coordinates")
	widgetGenerateCmd.Flags().BoolVar(&widgetSaveStore, "save-store", false, "also write the client list to the clients store")
	widgetCmd.AddCommand(widgetGenerateCmd)
	rootCmd.AddCommand(widgetCmd)
}
