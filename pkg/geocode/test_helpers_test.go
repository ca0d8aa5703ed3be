package geocode

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

// stubProvider is a scriptable in-memory provider for chain and batch tests.
// It counts lookups so tests can assert how many network attempts happened.
type stubProvider struct {
	name      string
	available bool
	coords    map[string]Coordinates // keyed by NormalizeKey(address)
	err       error
	calls     atomic.Int64

	mu   sync.Mutex
	seen []string
}

func newStubProvider(coords map[string]Coordinates) *stubProvider {
	normalized := make(map[string]Coordinates, len(coords))
	for addr, c := range coords {
		normalized[NormalizeKey(addr)] = c
	}
	return &stubProvider{name: "stub", available: true, coords: normalized}
}

func (p *stubProvider) Name() string    { return p.name }
func (p *stubProvider) Available() bool { return p.available }

func (p *stubProvider) Geocode(_ context.Context, address string) (*Result, error) {
	p.calls.Add(1)
	p.mu.Lock()
	p.seen = append(p.seen, address)
	p.mu.Unlock()

	if p.err != nil {
		return nil, p.err
	}
	if c, ok := p.coords[NormalizeKey(address)]; ok {
		return &Result{Coords: c, Source: p.name, Matched: true}, nil
	}
	return &Result{Source: p.name}, nil
}

// newRewriteClient creates an HTTP client that redirects requests matching
// the target prefix to a test server.
func newRewriteClient(testServerURL, targetPrefix string) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{
			base:         http.DefaultTransport,
			testServer:   testServerURL,
			targetPrefix: targetPrefix,
		},
	}
}

type rewriteTransport struct {
	base         http.RoundTripper
	testServer   string
	targetPrefix string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	origURL := req.URL.String()
	if strings.HasPrefix(origURL, t.targetPrefix) {
		newReq := req.Clone(req.Context())
		parsed, err := req.URL.Parse(t.testServer + origURL[len(t.targetPrefix):])
		if err != nil {
			return nil, err
		}
		newReq.URL = parsed
		newReq.Host = parsed.Host
		return t.base.RoundTrip(newReq)
	}
	return t.base.RoundTrip(req)
}

// unlimited returns a limiter that never blocks in practice.
func unlimited() *RateLimiter {
	return NewRateLimiter(1e6, 1000)
}

// mustChain builds a chain from stub providers, failing the test on error.
func mustChain(providers ...Provider) *Chain {
	chain, err := NewChain(providers...)
	if err != nil {
		panic(err)
	}
	return chain
}
