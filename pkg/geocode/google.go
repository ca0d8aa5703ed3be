package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// googleGeocodeResponse is the JSON response from the Google Geocoding API.
type googleGeocodeResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	Status string `json:"status"`
}

// GoogleProvider geocodes via the Google Geocoding API. It is the
// higher-accuracy paid source and sits between the offline table and the
// public fallback.
type GoogleProvider struct {
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
}

// NewGoogleProvider creates a GoogleProvider. The provider reports itself
// unavailable when no API key is configured. The client should be pooled and
// shared across workers; requests are bounded by a per-call timeout.
func NewGoogleProvider(apiKey string, hc *http.Client) *GoogleProvider {
	if hc == nil {
		hc = &http.Client{}
	}
	return &GoogleProvider{apiKey: apiKey, httpClient: hc, timeout: 5 * time.Second}
}

// Name implements Provider.
func (p *GoogleProvider) Name() string { return "google" }

// Available implements Provider.
func (p *GoogleProvider) Available() bool { return p.apiKey != "" }

// Geocode implements Provider. The address is simplified before querying and
// a country hint is appended when absent; responses come back in Ukrainian.
func (p *GoogleProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	if p.apiKey == "" {
		return nil, eris.New("geocode: google api key not configured")
	}

	query := SimplifyQuery(address)
	if !strings.Contains(strings.ToLower(query), "україна") {
		query += ", Україна"
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := url.Values{
		"address":  {query},
		"key":      {p.apiKey},
		"language": {"uk"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleGeocodeURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google build request")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: google returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: google read body")
	}

	var googleResp googleGeocodeResponse
	if err := json.Unmarshal(body, &googleResp); err != nil {
		return nil, eris.Wrap(err, "geocode: google parse response")
	}

	if googleResp.Status != "OK" || len(googleResp.Results) == 0 {
		return &Result{Source: p.Name()}, nil
	}

	loc := googleResp.Results[0].Geometry.Location
	return &Result{
		Coords:  Coordinates{Lat: loc.Lat, Lng: loc.Lng},
		Source:  p.Name(),
		Matched: true,
	}, nil
}
