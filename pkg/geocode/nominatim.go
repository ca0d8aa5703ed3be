package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const nominatimSearchURL = "https://nominatim.openstreetmap.org/search"

const nominatimUserAgent = "baza-widget-cli/1.0"

// nominatimResult is one candidate from the Nominatim search API. Latitude
// and longitude arrive as strings.
type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// NominatimProvider is the public fallback source, backed by OpenStreetMap
// Nominatim. It needs no credentials and is always available.
type NominatimProvider struct {
	httpClient  *http.Client
	timeout     time.Duration
	countryCode string
}

// NewNominatimProvider creates a NominatimProvider restricted to the given
// ISO country code ("ua" for the source addressing scheme); an empty code
// searches worldwide.
func NewNominatimProvider(countryCode string, hc *http.Client) *NominatimProvider {
	if hc == nil {
		hc = &http.Client{}
	}
	return &NominatimProvider{httpClient: hc, timeout: 8 * time.Second, countryCode: countryCode}
}

// Name implements Provider.
func (p *NominatimProvider) Name() string { return "nominatim" }

// Available implements Provider.
func (p *NominatimProvider) Available() bool { return true }

// Geocode implements Provider. Query variants are attempted from most
// specific to broadest; the first variant with a candidate wins.
func (p *NominatimProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	var lastErr error
	for _, query := range QueryVariants(address) {
		coords, err := p.search(ctx, query)
		if err != nil {
			lastErr = err
			continue
		}
		if coords != nil {
			return &Result{Coords: *coords, Source: p.Name(), Matched: true}, nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return &Result{Source: p.Name()}, nil
}

// search runs one Nominatim query and returns the top candidate, or nil when
// the response holds no results.
func (p *NominatimProvider) search(ctx context.Context, query string) (*Coordinates, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := url.Values{
		"q":              {query},
		"format":         {"json"},
		"limit":          {"1"},
		"addressdetails": {"1"},
	}
	if p.countryCode != "" {
		params.Set("countrycodes", p.countryCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, nominatimSearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim build request")
	}
	req.Header.Set("User-Agent", nominatimUserAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim read body")
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse response")
	}
	if len(results) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse lat")
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse lon")
	}
	return &Coordinates{Lat: lat, Lng: lng}, nil
}
