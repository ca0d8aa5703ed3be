package geocode

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the pair is inside the WGS84 envelope.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// EntryKind discriminates cache lookup outcomes.
type EntryKind int

const (
	// Miss means the key has never been attempted.
	Miss EntryKind = iota
	// Hit means a previous lookup resolved coordinates.
	Hit
	// Negative means a previous lookup was attempted and found nothing.
	Negative
)

// Entry is a tagged cache value: Miss, Hit(Coordinates) or Negative.
type Entry struct {
	Kind   EntryKind
	Coords Coordinates // valid only when Kind == Hit
}

// RecordEntry associates resolved coordinates with the owning record's
// identity. Coords == nil marks a negative outcome. The entry is fresh only
// while LastEditedTime matches the record's current edit timestamp.
type RecordEntry struct {
	Coords         *Coordinates `json:"coords"`
	LastEditedTime string       `json:"last_edited_time"`
	Address        string       `json:"address"`
}

// cacheValue is the on-disk shape of one cache slot. Address-level entries
// serialize as {lat, lng} or null; record-level entries keep the richer
// {coords, last_edited_time, address} object.
type cacheValue struct {
	coords *Coordinates
	record *RecordEntry
}

func (v cacheValue) MarshalJSON() ([]byte, error) {
	if v.record != nil {
		return json.Marshal(v.record)
	}
	if v.coords == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v.coords)
}

func (v *cacheValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var rec RecordEntry
	if err := json.Unmarshal(data, &rec); err == nil && (rec.LastEditedTime != "" || rec.Address != "" || rec.Coords != nil) {
		v.record = &rec
		return nil
	}
	var c Coordinates
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	v.coords = &c
	return nil
}

// Cache is a file-backed address-hash → coordinates store shared by every
// geocoding path in the process. All mutation and every flush is serialized
// behind one mutex; the mutex is never held across a network call.
type Cache struct {
	mu      sync.Mutex
	path    string
	entries map[string]*cacheValue
}

// NewCache creates a cache persisted at path. The file is not read until
// Load is called.
func NewCache(path string) *Cache {
	return &Cache{
		path:    path,
		entries: make(map[string]*cacheValue),
	}
}

// Load reads the cache file into memory. A missing file yields an empty
// cache; an unreadable or corrupt file is logged as a warning and likewise
// treated as empty. Load never fails the run.
func (c *Cache) Load() {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("geocode: cache unreadable, starting empty",
				zap.String("path", c.path), zap.Error(err))
		}
		c.entries = make(map[string]*cacheValue)
		return
	}

	entries := make(map[string]*cacheValue)
	if err := json.Unmarshal(data, &entries); err != nil {
		zap.L().Warn("geocode: cache corrupt, starting empty",
			zap.String("path", c.path), zap.Error(err))
		c.entries = make(map[string]*cacheValue)
		return
	}
	c.entries = entries
}

// Save writes the whole in-memory map as one pretty-printed JSON document.
// A write failure is logged and swallowed; the run continues with an
// in-memory-only cache.
func (c *Cache) Save() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saveLocked()
}

func (c *Cache) saveLocked() {
	if dir := filepath.Dir(c.path); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		zap.L().Warn("geocode: cache marshal failed", zap.Error(err))
		return
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		zap.L().Warn("geocode: cache not saved, continuing in memory",
			zap.String("path", c.path), zap.Error(err))
	}
}

// Get returns the entry stored under key, or a Miss entry.
func (c *Cache) Get(key string) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries[key]
	if !ok {
		return Entry{Kind: Miss}
	}
	coords := v.coords
	if v.record != nil {
		coords = v.record.Coords
	}
	if coords == nil {
		return Entry{Kind: Negative}
	}
	return Entry{Kind: Hit, Coords: *coords}
}

// SetHit stores resolved coordinates under key, replacing any earlier
// negative entry.
func (c *Cache) SetHit(key string, coords Coordinates) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheValue{coords: &coords}
}

// SetNegative records a failed lookup under key. An existing Hit is never
// downgraded: a key that already holds coordinates keeps them.
func (c *Cache) SetNegative(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.entries[key]; ok {
		if v.coords != nil || (v.record != nil && v.record.Coords != nil) {
			return
		}
	}
	c.entries[key] = &cacheValue{}
}

// GetRecord returns the record-level entry stored under key, if any.
func (c *Cache) GetRecord(key string) (RecordEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries[key]
	if !ok || v.record == nil {
		return RecordEntry{}, false
	}
	return *v.record, true
}

// SetRecord stores a record-level entry under key.
func (c *Cache) SetRecord(key string, rec RecordEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheValue{record: &rec}
}

// Len reports the number of stored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
