package geocode

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Batcher is the batch geocoding entry point. It deduplicates input
// addresses, consults the shared cache, fans cache-misses out across a
// bounded worker pool gated by the rate limiter, and checkpoints the cache
// periodically so a mid-run crash loses at most one autosave window.
type Batcher struct {
	cache   *Cache
	chain   *Chain
	limiter *RateLimiter

	maxWorkers    int
	maxRequests   int // 0 means no cap
	autosaveEvery int
	force         bool

	mu        sync.Mutex
	successes int
}

// BatcherOption configures a Batcher.
type BatcherOption func(*Batcher)

// WithMaxWorkers bounds the worker pool size.
func WithMaxWorkers(n int) BatcherOption {
	return func(b *Batcher) {
		if n > 0 {
			b.maxWorkers = n
		}
	}
}

// WithMaxRequests soft-caps the number of network lookups per batch for cost
// control. Addresses beyond the cap come back unresolved but are not cached
// as negative.
func WithMaxRequests(n int) BatcherOption {
	return func(b *Batcher) {
		if n > 0 {
			b.maxRequests = n
		}
	}
}

// WithAutosaveEvery flushes the cache to disk after every n successful
// resolutions. Zero disables checkpointing; the final flush still happens.
func WithAutosaveEvery(n int) BatcherOption {
	return func(b *Batcher) { b.autosaveEvery = n }
}

// WithForceRefresh makes the batch re-attempt every address, existing cache
// entries included. Fresh results overwrite what was cached.
func WithForceRefresh(force bool) BatcherOption {
	return func(b *Batcher) { b.force = force }
}

// NewBatcher creates a Batcher over the given cache, provider chain and
// rate limiter.
func NewBatcher(cache *Cache, chain *Chain, limiter *RateLimiter, opts ...BatcherOption) *Batcher {
	b := &Batcher{
		cache:         cache,
		chain:         chain,
		limiter:       limiter,
		maxWorkers:    4,
		autosaveEvery: 20,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Geocode resolves every address in the input. The returned map covers each
// original input string, duplicates included; nil values mean the address
// could not be resolved. An empty input returns an empty map without
// touching the cache or the network.
func (b *Batcher) Geocode(ctx context.Context, addresses []string) map[string]*Coordinates {
	results := make(map[string]*Coordinates, len(addresses))
	if len(addresses) == 0 {
		return results
	}

	// Deduplicate by normalized key, remembering every original spelling so
	// near-duplicate inputs share one lookup.
	originals := make(map[string][]string)
	var keys []string
	for _, addr := range addresses {
		results[addr] = nil
		norm := NormalizeKey(addr)
		if norm == "" {
			continue // malformed input, excluded from the work queue
		}
		key := CacheKey(addr)
		if _, ok := originals[key]; !ok {
			keys = append(keys, key)
		}
		originals[key] = append(originals[key], addr)
	}

	// Cache pass: hits land in the result map, misses queue for workers.
	// Negative entries stay nil without re-attempting the lookup.
	var pending []lookupTask
	for _, key := range keys {
		if b.force {
			pending = append(pending, lookupTask{key: key, address: originals[key][0]})
			continue
		}
		switch entry := b.cache.Get(key); entry.Kind {
		case Hit:
			coords := entry.Coords
			for _, addr := range originals[key] {
				results[addr] = &coords
			}
		case Miss:
			pending = append(pending, lookupTask{key: key, address: originals[key][0]})
		case Negative:
		}
	}

	if b.maxRequests > 0 && len(pending) > b.maxRequests {
		zap.L().Info("geocode: request cap reached, truncating batch",
			zap.Int("pending", len(pending)),
			zap.Int("max_requests", b.maxRequests),
		)
		pending = pending[:b.maxRequests]
	}
	if len(pending) == 0 {
		return results
	}

	resolved := b.resolvePending(ctx, pending)

	for key, coords := range resolved {
		for _, addr := range originals[key] {
			results[addr] = coords
		}
	}
	return results
}

// lookupTask pairs a cache key with a representative original address.
type lookupTask struct {
	key     string
	address string
}

// resolvePending fans the work queue out over the worker pool and returns
// coordinates (or nil) per cache key. The cache is flushed once more
// unconditionally after all workers complete.
func (b *Batcher) resolvePending(ctx context.Context, pending []lookupTask) map[string]*Coordinates {
	var mu sync.Mutex
	resolved := make(map[string]*Coordinates, len(pending))

	workers := b.maxWorkers
	if workers > len(pending) {
		workers = len(pending)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, task := range pending {
		task := task
		g.Go(func() error {
			coords := b.resolveOne(ctx, task)
			mu.Lock()
			resolved[task.key] = coords
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	b.cache.Save()
	return resolved
}

// resolveOne resolves a single address: re-check the cache in case a
// sibling worker already answered the same key, take a rate-limiter token,
// run the provider chain, and record the outcome (positive or negative)
// in the cache. No failure here escapes to abort sibling workers.
func (b *Batcher) resolveOne(ctx context.Context, task lookupTask) *Coordinates {
	key, addr := task.key, task.address

	if !b.force {
		if entry := b.cache.Get(key); entry.Kind == Hit {
			coords := entry.Coords
			return &coords
		}
	}

	if err := b.limiter.Acquire(ctx); err != nil {
		zap.L().Warn("geocode: batch interrupted", zap.Error(err))
		return nil
	}

	coords := b.chain.Resolve(ctx, addr)
	if coords == nil {
		b.cache.SetNegative(key)
		return nil
	}

	b.cache.SetHit(key, *coords)
	b.mu.Lock()
	b.successes++
	flush := b.autosaveEvery > 0 && b.successes%b.autosaveEvery == 0
	b.mu.Unlock()
	if flush {
		b.cache.Save()
	}
	return coords
}
