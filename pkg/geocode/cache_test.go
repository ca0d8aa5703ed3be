package geocode

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempCachePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "geocode_cache.json")
}

func TestCache_MissingFileIsEmpty(t *testing.T) {
	c := NewCache(tempCachePath(t))
	c.Load()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, Miss, c.Get("nope").Kind)
}

func TestCache_CorruptFileIsEmpty(t *testing.T) {
	path := tempCachePath(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"truncated": `), 0o644))

	c := NewCache(path)
	c.Load()
	assert.Equal(t, 0, c.Len())
}

func TestCache_RoundTrip(t *testing.T) {
	path := tempCachePath(t)

	c := NewCache(path)
	c.Load()
	c.SetHit("k1", Coordinates{Lat: 50.45, Lng: 30.52})
	c.SetHit("k2", Coordinates{Lat: 49.84, Lng: 24.03})
	c.SetNegative("k3")
	c.SetRecord("page::abc", RecordEntry{
		Coords:         &Coordinates{Lat: 50.0, Lng: 30.0},
		LastEditedTime: "2026-01-02T10:00:00.000Z",
		Address:        "Київ",
	})
	c.Save()

	fresh := NewCache(path)
	fresh.Load()
	require.Equal(t, 4, fresh.Len())

	e1 := fresh.Get("k1")
	assert.Equal(t, Hit, e1.Kind)
	assert.InDelta(t, 50.45, e1.Coords.Lat, 1e-9)
	assert.InDelta(t, 30.52, e1.Coords.Lng, 1e-9)

	assert.Equal(t, Hit, fresh.Get("k2").Kind)
	assert.Equal(t, Negative, fresh.Get("k3").Kind)

	rec, ok := fresh.GetRecord("page::abc")
	require.True(t, ok)
	require.NotNil(t, rec.Coords)
	assert.Equal(t, "2026-01-02T10:00:00.000Z", rec.LastEditedTime)
	assert.Equal(t, "Київ", rec.Address)
}

func TestCache_DiskFormat(t *testing.T) {
	path := tempCachePath(t)

	c := NewCache(path)
	c.SetHit("hit", Coordinates{Lat: 1, Lng: 2})
	c.SetNegative("neg")
	c.Save()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `{"lat":1,"lng":2}`, string(raw["hit"]))
	assert.Equal(t, "null", string(raw["neg"]))
}

func TestCache_NegativeNeverDowngradesHit(t *testing.T) {
	c := NewCache(tempCachePath(t))
	c.SetHit("k", Coordinates{Lat: 50, Lng: 30})

	c.SetNegative("k")

	e := c.Get("k")
	require.Equal(t, Hit, e.Kind)
	assert.InDelta(t, 50.0, e.Coords.Lat, 1e-9)
}

func TestCache_HitReplacesNegative(t *testing.T) {
	c := NewCache(tempCachePath(t))
	c.SetNegative("k")
	c.SetHit("k", Coordinates{Lat: 50, Lng: 30})
	assert.Equal(t, Hit, c.Get("k").Kind)
}

func TestCache_RecordNegativeOutcome(t *testing.T) {
	path := tempCachePath(t)
	c := NewCache(path)
	c.SetRecord("page::gone", RecordEntry{
		Coords:         nil,
		LastEditedTime: "T1",
		Address:        "невідоме село",
	})
	c.Save()

	fresh := NewCache(path)
	fresh.Load()
	rec, ok := fresh.GetRecord("page::gone")
	require.True(t, ok)
	assert.Nil(t, rec.Coords)
	assert.Equal(t, "T1", rec.LastEditedTime)
	// The address tier sees a record without coordinates as negative.
	assert.Equal(t, Negative, fresh.Get("page::gone").Kind)
}

func TestCache_UnwritablePathIsNonFatal(t *testing.T) {
	c := NewCache(filepath.Join(string([]byte{0}), "impossible", "cache.json"))
	c.SetHit("k", Coordinates{Lat: 1, Lng: 2})
	c.Save() // logs a warning, keeps running in memory
	assert.Equal(t, Hit, c.Get("k").Kind)
}
