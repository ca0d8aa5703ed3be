package geocode

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Result holds one provider's answer for an address.
type Result struct {
	Coords  Coordinates
	Source  string
	Matched bool
}

// Provider represents a single geocoding backend.
type Provider interface {
	Name() string
	// Available reports whether the provider is configured and usable.
	Available() bool
	// Geocode resolves a free-text address. A provider returns an error only
	// for transport-level failures; "no match" is a nil-error unmatched Result.
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Chain tries providers in fixed priority order. Every provider failure,
// whether transport error, non-success status or empty result, falls through to the
// next source; the only terminal outcome is "all sources exhausted", which
// resolves to an unmatched result rather than an error.
type Chain struct {
	providers []Provider
}

// NewChain builds a soft-fail provider chain. It fails only when no provider
// is available at all, which is a configuration error detected before any
// batch work starts.
func NewChain(providers ...Provider) (*Chain, error) {
	usable := false
	for _, p := range providers {
		if p.Available() {
			usable = true
			break
		}
	}
	if !usable {
		return nil, eris.New("geocode: no provider configured")
	}
	return &Chain{providers: providers}, nil
}

// Resolve runs the chain for one address. The returned pointer is nil when
// every source missed; Resolve never returns an error to its caller.
func (c *Chain) Resolve(ctx context.Context, address string) *Coordinates {
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		result, err := p.Geocode(ctx, address)
		if err != nil {
			zap.L().Debug("geocode: provider error, trying next",
				zap.String("provider", p.Name()),
				zap.String("address", address),
				zap.Error(err),
			)
			continue
		}
		if result != nil && result.Matched && result.Coords.Valid() {
			zap.L().Debug("geocode: resolved",
				zap.String("provider", p.Name()),
				zap.Float64("lat", result.Coords.Lat),
				zap.Float64("lng", result.Coords.Lng),
			)
			coords := result.Coords
			return &coords
		}
	}
	zap.L().Debug("geocode: all sources exhausted", zap.String("address", address))
	return nil
}
