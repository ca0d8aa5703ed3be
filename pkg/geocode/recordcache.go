package geocode

import (
	"context"

	"go.uber.org/zap"
)

// recordKeyPrefix namespaces record-level entries inside the shared cache
// file, next to the address-hash entries.
const recordKeyPrefix = "page::"

// RecordRef identifies an address-bearing record in the upstream store.
// EditedAt is an opaque token compared only for equality; a change means the
// record was edited and its cached coordinates can no longer be trusted.
type RecordRef struct {
	ID       string
	EditedAt string
	Address  string
}

// RecordResolver layers record-identity caching on top of the address cache.
// A record whose edit timestamp is unchanged resolves with zero lookups even
// when many distinct records share the same address text; a brand-new record
// still reuses any previously resolved address through the address tier.
type RecordResolver struct {
	cache   *Cache
	batcher *Batcher
}

// NewRecordResolver creates a RecordResolver over the shared cache and the
// batch executor used for actual network work.
func NewRecordResolver(cache *Cache, batcher *Batcher) *RecordResolver {
	return &RecordResolver{cache: cache, batcher: batcher}
}

// ResolveRecords resolves coordinates for every record, returning a map of
// record ID to coordinates (nil when unresolved). Records that miss both
// cache tiers are collected into one batch so each unique address costs at
// most one lookup. Both tiers are updated afterwards, negative outcomes
// included, so a future pass with unchanged timestamps skips work entirely.
func (r *RecordResolver) ResolveRecords(ctx context.Context, refs []RecordRef) map[string]*Coordinates {
	results := make(map[string]*Coordinates, len(refs))
	if len(refs) == 0 {
		return results
	}

	var pending []RecordRef
	for _, ref := range refs {
		results[ref.ID] = nil
		if ref.Address == "" {
			continue
		}

		// Record tier: trusted only while the stored edit timestamp matches.
		if rec, ok := r.cache.GetRecord(recordKeyPrefix + ref.ID); ok && rec.LastEditedTime == ref.EditedAt {
			results[ref.ID] = rec.Coords
			continue
		}

		// Address tier: a hit refreshes the record entry so the next pass
		// takes the fast path.
		if entry := r.cache.Get(CacheKey(ref.Address)); entry.Kind == Hit {
			coords := entry.Coords
			results[ref.ID] = &coords
			r.cache.SetRecord(recordKeyPrefix+ref.ID, RecordEntry{
				Coords:         &coords,
				LastEditedTime: ref.EditedAt,
				Address:        ref.Address,
			})
			continue
		}

		pending = append(pending, ref)
	}

	if len(pending) == 0 {
		return results
	}

	addresses := make([]string, 0, len(pending))
	for _, ref := range pending {
		addresses = append(addresses, ref.Address)
	}
	zap.L().Info("geocode: resolving changed records",
		zap.Int("records", len(pending)),
		zap.Int("total", len(refs)),
	)
	coordsByAddr := r.batcher.Geocode(ctx, addresses)

	for _, ref := range pending {
		coords := coordsByAddr[ref.Address]
		results[ref.ID] = coords
		r.cache.SetRecord(recordKeyPrefix+ref.ID, RecordEntry{
			Coords:         coords,
			LastEditedTime: ref.EditedAt,
			Address:        ref.Address,
		})
		if coords == nil {
			zap.L().Warn("geocode: record address unresolved",
				zap.String("record_id", ref.ID),
				zap.String("address", ref.Address),
			)
		}
	}

	// Record entries were written after the batcher's final flush.
	r.cache.Save()
	return results
}
