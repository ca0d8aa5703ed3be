package main

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/baza-crm/widget-cli/internal/crm"
	"github.com/baza-crm/widget-cli/pkg/geocode"
	"github.com/baza-crm/widget-cli/pkg/notion"
)

// buildProviderChain assembles the geocoding sources in priority order:
// the offline settlements table, Google (when a key is configured), then
// Nominatim as the unauthenticated fallback.
func buildProviderChain() (*geocode.Chain, error) {
	offline, err := geocode.NewOfflineProvider(cfg.Geocode.OfflineTable)
	if err != nil {
		return nil, err
	}
	return geocode.NewChain(
		offline,
		geocode.NewGoogleProvider(cfg.Geocode.GoogleKey, http.DefaultClient),
		geocode.NewNominatimProvider("ua", http.DefaultClient),
	)
}

// buildBatcher loads the persistent cache and wires the rate-limited batch
// geocoder around it.
func buildBatcher(force bool, maxRequests int) (*geocode.Cache, *geocode.Batcher, error) {
	chain, err := buildProviderChain()
	if err != nil {
		return nil, nil, err
	}

	cache := geocode.NewCache(cfg.Geocode.CachePath)
	cache.Load()
	zap.L().Info("geocode cache loaded",
		zap.String("path", cfg.Geocode.CachePath),
		zap.Int("entries", cache.Len()),
	)

	limiter := geocode.NewRateLimiter(cfg.Geocode.RPS, cfg.Geocode.Burst)
	opts := []geocode.BatcherOption{
		geocode.WithMaxWorkers(cfg.Geocode.MaxWorkers),
		geocode.WithAutosaveEvery(cfg.Geocode.AutosaveEvery),
		geocode.WithForceRefresh(force),
	}
	if maxRequests > 0 {
		opts = append(opts, geocode.WithMaxRequests(maxRequests))
	} else if cfg.Geocode.MaxRequests > 0 {
		opts = append(opts, geocode.WithMaxRequests(cfg.Geocode.MaxRequests))
	}

	return cache, geocode.NewBatcher(cache, chain, limiter, opts...), nil
}

// buildFetcher wires the full Notion-to-clients pipeline.
func buildFetcher(force bool) (*crm.Fetcher, error) {
	cache, batcher, err := buildBatcher(force, 0)
	if err != nil {
		return nil, err
	}
	resolver := geocode.NewRecordResolver(cache, batcher)
	client := notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(cfg.Notion.RPS))
	return crm.NewFetcher(client, resolver, cfg.Notion.ClientDB), nil
}
