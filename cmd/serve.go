package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/baza-crm/widget-cli/internal/crm"
	"github.com/baza-crm/widget-cli/internal/model"
	"github.com/baza-crm/widget-cli/internal/server"
	"github.com/baza-crm/widget-cli/internal/widget"
	"github.com/baza-crm/widget-cli/pkg/geocode"
	"github.com/baza-crm/widget-cli/pkg/notion"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the widget generator HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// One shared geocode stack; Notion credentials arrive per request.
		cache, batcher, err := buildBatcher(false, 0)
		if err != nil {
			return err
		}
		resolver := geocode.NewRecordResolver(cache, batcher)

		source := func(ctx context.Context, apiKey, dbID string, doGeocode bool) ([]model.Client, error) {
			client := notion.NewClient(apiKey, notion.WithRateLimit(cfg.Notion.RPS))
			return crm.NewFetcher(client, resolver, dbID).FetchClients(ctx, doGeocode)
		}

		srv := server.New(source, widget.NewStore(widget.DefaultTTL),
			server.WithFallbackCredentials(cfg.Notion.Token, cfg.Notion.ClientDB),
			server.WithRenderOptions(renderOptions()),
		)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Handler(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			httpSrv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
