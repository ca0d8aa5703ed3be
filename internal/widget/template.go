// Package widget renders the embeddable client map and stores generated
// widgets for serving.
package widget

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"text/template"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/baza-crm/widget-cli/internal/model"
)

//go:embed map.html.tmpl
var mapTemplateText string

var mapTemplate = template.Must(template.New("map").Parse(mapTemplateText))

// RenderOptions control the initial viewport and the base tile layer.
type RenderOptions struct {
	CenterLat   float64
	CenterLng   float64
	Zoom        float64
	TileURL     string
	Attribution string
}

// DefaultRenderOptions centers the map on Ukraine with an OSM base layer.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		CenterLat:   49.0,
		CenterLng:   31.0,
		Zoom:        5.5,
		TileURL:     "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors",
	}
}

type mapData struct {
	ClientsJSON string
	CenterLat   float64
	CenterLng   float64
	Zoom        float64
	TileURL     string
	Attribution string
}

// Render produces a standalone HTML page with one marker per placed client.
// Clients without coordinates are dropped. When at least one marker exists
// the initial center is the centroid of the marker bounds rather than the
// configured default, so a regional client base opens zoomed to its region.
func Render(clients []model.Client, opts RenderOptions) (string, error) {
	placed := model.WithCoords(clients)

	if b := markerBounds(placed); b != nil {
		opts.CenterLat = (b.Min(1) + b.Max(1)) / 2
		opts.CenterLng = (b.Min(0) + b.Max(0)) / 2
	}

	// encoding/json escapes < and > so the payload cannot terminate the
	// script element early.
	payload, err := json.Marshal(placed)
	if err != nil {
		return "", eris.Wrap(err, "widget: marshal clients")
	}

	var buf bytes.Buffer
	err = mapTemplate.Execute(&buf, mapData{
		ClientsJSON: string(payload),
		CenterLat:   opts.CenterLat,
		CenterLng:   opts.CenterLng,
		Zoom:        opts.Zoom,
		TileURL:     opts.TileURL,
		Attribution: opts.Attribution,
	})
	if err != nil {
		return "", eris.Wrap(err, "widget: execute template")
	}
	return buf.String(), nil
}

// markerBounds returns the lng/lat bounding box of the placed clients, or
// nil when there are none.
func markerBounds(placed []model.Client) *geom.Bounds {
	if len(placed) == 0 {
		return nil
	}
	bounds := geom.NewBounds(geom.XY)
	for _, c := range placed {
		bounds.Extend(geom.NewPointFlat(geom.XY, []float64{*c.Lng, *c.Lat}))
	}
	return bounds
}
