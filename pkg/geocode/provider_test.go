package geocode

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChain_NoUsableProvider(t *testing.T) {
	empty := newStubProvider(nil)
	empty.available = false

	_, err := NewChain(empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no provider configured")
}

func TestChain_FirstMatchWins(t *testing.T) {
	first := newStubProvider(map[string]Coordinates{"Київ": {Lat: 50.45, Lng: 30.52}})
	second := newStubProvider(map[string]Coordinates{"Київ": {Lat: 0, Lng: 0}})

	chain := mustChain(first, second)
	coords := chain.Resolve(context.Background(), "Київ")
	require.NotNil(t, coords)
	assert.InDelta(t, 50.45, coords.Lat, 1e-9)
	assert.EqualValues(t, 0, second.calls.Load(), "chain must stop at the first match")
}

func TestChain_ErrorFallsThrough(t *testing.T) {
	failing := newStubProvider(nil)
	failing.err = eris.New("connection refused")
	fallback := newStubProvider(map[string]Coordinates{"Львів": {Lat: 49.84, Lng: 24.03}})

	chain := mustChain(failing, fallback)
	coords := chain.Resolve(context.Background(), "Львів")
	require.NotNil(t, coords)
	assert.InDelta(t, 24.03, coords.Lng, 1e-9)
	assert.EqualValues(t, 1, failing.calls.Load())
}

func TestChain_NoMatchFallsThrough(t *testing.T) {
	miss := newStubProvider(nil)
	fallback := newStubProvider(map[string]Coordinates{"Одеса": {Lat: 46.48, Lng: 30.72}})

	chain := mustChain(miss, fallback)
	coords := chain.Resolve(context.Background(), "Одеса")
	require.NotNil(t, coords)
	assert.EqualValues(t, 1, miss.calls.Load())
}

func TestChain_UnavailableProviderSkipped(t *testing.T) {
	offline := newStubProvider(map[string]Coordinates{"Київ": {Lat: 1, Lng: 1}})
	offline.available = false
	fallback := newStubProvider(map[string]Coordinates{"Київ": {Lat: 50.45, Lng: 30.52}})

	chain := mustChain(offline, fallback)
	coords := chain.Resolve(context.Background(), "Київ")
	require.NotNil(t, coords)
	assert.InDelta(t, 50.45, coords.Lat, 1e-9)
	assert.EqualValues(t, 0, offline.calls.Load())
}

func TestChain_ExhaustedResolvesToNil(t *testing.T) {
	chain := mustChain(newStubProvider(nil), newStubProvider(nil))
	assert.Nil(t, chain.Resolve(context.Background(), "хутір без назви"))
}

func TestChain_RejectsInvalidCoordinates(t *testing.T) {
	bogus := newStubProvider(map[string]Coordinates{"Київ": {Lat: 95, Lng: 30}})
	fallback := newStubProvider(map[string]Coordinates{"Київ": {Lat: 50.45, Lng: 30.52}})

	chain := mustChain(bogus, fallback)
	coords := chain.Resolve(context.Background(), "Київ")
	require.NotNil(t, coords)
	assert.InDelta(t, 50.45, coords.Lat, 1e-9)
}
