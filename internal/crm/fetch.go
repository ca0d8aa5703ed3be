// Package crm assembles the client-base pipeline: fetch records from
// Notion, geocode their addresses, and produce map-ready clients.
package crm

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/baza-crm/widget-cli/internal/model"
	"github.com/baza-crm/widget-cli/pkg/geocode"
	"github.com/baza-crm/widget-cli/pkg/notion"
)

// Fetcher pulls client records and resolves their coordinates.
type Fetcher struct {
	client   notion.Client
	resolver *geocode.RecordResolver
	dbID     string
}

// NewFetcher wires a Notion client to a record resolver. A nil resolver
// disables geocoding; only records carrying inline coordinates get placed.
func NewFetcher(client notion.Client, resolver *geocode.RecordResolver, dbID string) *Fetcher {
	return &Fetcher{client: client, resolver: resolver, dbID: dbID}
}

// FetchClients returns every client-base record as a map client. Records
// with inline coordinates use them directly; the rest are resolved through
// the geocode cache when doGeocode is set.
func (f *Fetcher) FetchClients(ctx context.Context, doGeocode bool) ([]model.Client, error) {
	pages, err := notion.QueryClientBase(ctx, f.client, f.dbID)
	if err != nil {
		return nil, eris.Wrap(err, "crm: fetch client base")
	}
	records := notion.ExtractRecords(pages)

	clients := make([]model.Client, len(records))
	var refs []geocode.RecordRef
	refIdx := make(map[string]int)

	for i, rec := range records {
		clients[i] = recordToClient(rec)
		if clients[i].HasCoords() {
			continue
		}
		if rec.Address == "" || !doGeocode || f.resolver == nil {
			continue
		}
		refs = append(refs, geocode.RecordRef{
			ID:       rec.ID,
			EditedAt: rec.EditedAt,
			Address:  rec.Address,
		})
		refIdx[rec.ID] = i
	}

	if len(refs) > 0 {
		resolved := f.resolver.ResolveRecords(ctx, refs)
		placed := 0
		for id, coords := range resolved {
			if coords == nil {
				continue
			}
			i := refIdx[id]
			lat, lng := coords.Lat, coords.Lng
			clients[i].Lat, clients[i].Lng = &lat, &lng
			placed++
		}
		zap.L().Info("geocoded client records",
			zap.Int("requested", len(refs)),
			zap.Int("placed", placed),
		)
	}

	return clients, nil
}

func recordToClient(rec notion.Record) model.Client {
	return model.Client{
		Name:     rec.Name,
		Color:    rec.Color,
		Phone:    rec.Phone,
		Email:    rec.Email,
		Contact:  rec.Contact,
		Address:  rec.Address,
		Notes:    rec.Notes,
		Label:    rec.Label,
		OrgTitle: rec.OrgTitle,
		Lat:      rec.Lat,
		Lng:      rec.Lng,
	}
}
