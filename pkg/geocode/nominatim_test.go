package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatimProvider_Match(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ua", r.URL.Query().Get("countrycodes"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"lat": "49.8397", "lon": "24.0297"}]`)
	}))
	defer srv.Close()

	p := NewNominatimProvider("ua", newRewriteClient(srv.URL, nominatimSearchURL))
	result, err := p.Geocode(context.Background(), "Львів")
	require.NoError(t, err)
	require.True(t, result.Matched)
	assert.InDelta(t, 49.8397, result.Coords.Lat, 1e-6)
	assert.InDelta(t, 24.0297, result.Coords.Lng, 1e-6)
	assert.Equal(t, "nominatim", result.Source)
}

func TestNominatimProvider_BroadensQuery(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		queries = append(queries, q)
		w.Header().Set("Content-Type", "application/json")
		if len(queries) < 2 {
			_, _ = io.WriteString(w, `[]`)
			return
		}
		_, _ = io.WriteString(w, `[{"lat": "49.5883", "lon": "34.5514"}]`)
	}))
	defer srv.Close()

	p := NewNominatimProvider("ua", newRewriteClient(srv.URL, nominatimSearchURL))
	result, err := p.Geocode(context.Background(), "Полтавська обл., Полтавський р-н, м. Полтава")
	require.NoError(t, err)
	require.True(t, result.Matched)

	require.Len(t, queries, 2)
	assert.Equal(t, "Полтавська, Полтавський, Полтава", queries[0])
	assert.Equal(t, "Полтавська", queries[1])
}

func TestNominatimProvider_NoResultAcrossVariants(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	p := NewNominatimProvider("ua", newRewriteClient(srv.URL, nominatimSearchURL))
	result, err := p.Geocode(context.Background(), "Вигадана обл., с. Нереальне")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Greater(t, calls, 1, "all variants should be attempted")
}

func TestNominatimProvider_TransportErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewNominatimProvider("ua", newRewriteClient(srv.URL, nominatimSearchURL))
	_, err := p.Geocode(context.Background(), "Київ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestNominatimProvider_AlwaysAvailable(t *testing.T) {
	assert.True(t, NewNominatimProvider("ua", nil).Available())
}
