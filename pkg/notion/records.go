package notion

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// sourceFilterValue selects the client-base subset of the CRM database.
const sourceFilterValue = "БАЗА"

// Record is one client row pulled from the CRM database. Lat/Lng are set
// only when the page itself carries coordinates (an inline "lat,lng" place
// value); otherwise Address is what downstream geocoding works from.
type Record struct {
	ID       string
	EditedAt string // opaque last-edited token, compared for equality only

	Name     string
	Phone    string
	Email    string
	Contact  string
	Notes    string
	Address  string
	Label    string
	Color    string
	OrgTitle string

	Lat *float64
	Lng *float64
}

// notionColorHex maps Notion label colors to marker hex colors.
var notionColorHex = map[string]string{
	"gray":    "#6b7280",
	"brown":   "#92400e",
	"orange":  "#ea580c",
	"yellow":  "#eab308",
	"green":   "#16a34a",
	"blue":    "#2563eb",
	"purple":  "#9333ea",
	"pink":    "#db2777",
	"red":     "#ef4444",
	"default": "#6b7280",
}

const defaultMarkerColor = "#ef4444"

// QueryClientBase fetches every page whose Source select equals "БАЗА",
// filtered server-side so the full database is never pulled.
func QueryClientBase(ctx context.Context, c Client, dbID string) ([]notionapi.Page, error) {
	filter := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: "Source",
			Select: &notionapi.SelectFilterCondition{
				Equals: sourceFilterValue,
			},
		},
	}
	pages, err := QueryAll(ctx, c, dbID, filter)
	if err != nil {
		return nil, eris.Wrap(err, "notion: query client base")
	}
	return pages, nil
}

// ExtractRecord maps a CRM page to a Record. Extraction is tolerant: a page
// with unexpected property shapes yields a Record with empty fields rather
// than an error. Ukrainian property names take priority since the client
// base uses them; English fallbacks cover rows imported from other sources.
func ExtractRecord(page notionapi.Page) Record {
	props := page.Properties

	rec := Record{
		ID:       string(page.ID),
		EditedAt: page.LastEditedTime.UTC().Format(time.RFC3339Nano),
		Name:     titleText(props, "Name", "name"),
		Phone:    richText(props, "ТЕЛЕФОН", "Phone"),
		Email:    emailText(props, "ЕЛ.АДРЕСА", "Email", "E-mail 1 - Value"),
		Contact:  richText(props, "КОНТАКТ"),
		Notes:    richText(props, "ПРИМІТКА", "Notes"),
		OrgTitle: selectName(props, "Organization Title"),
		Color:    defaultMarkerColor,
	}
	if rec.Name == "" {
		rec.Name = "Unnamed"
	}
	if len(rec.Notes) > 100 {
		rec.Notes = rec.Notes[:100] + "..."
	}

	if label, color, ok := labelOption(props, "Labels", "Label"); ok {
		rec.Label = label
		rec.Color = color
	}

	rec.Address = extractAddress(props)

	// A place already stored as "lat,lng" short-circuits geocoding.
	if lat, lng, ok := parseInlineCoords(rec.Address); ok {
		rec.Lat, rec.Lng = &lat, &lng
	}
	return rec
}

// ExtractRecords maps every page, skipping none; callers filter on Address
// or coordinates as needed.
func ExtractRecords(pages []notionapi.Page) []Record {
	records := make([]Record, 0, len(pages))
	for _, page := range pages {
		records = append(records, ExtractRecord(page))
	}
	return records
}

// extractAddress tries the address sources in the priority order the client
// base actually uses: the Ukrainian АДРЕСА field, the formatted address from
// contact imports, then individual address components.
func extractAddress(props notionapi.Properties) string {
	if addr := richText(props, "АДРЕСА", "Адреса"); addr != "" {
		return addr
	}
	if addr := richText(props, "Address 1 - Formatted"); addr != "" {
		return addr
	}

	var parts []string
	for _, key := range []string{"Address 1 - Street", "Address 1 - City", "Address 1 - Region", "Address 1 - Country"} {
		if v := richText(props, key); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

// parseInlineCoords detects a place stored directly as "lat,lng".
func parseInlineCoords(place string) (lat, lng float64, ok bool) {
	if strings.Count(place, ",") != 1 {
		return 0, 0, false
	}
	first, second, _ := strings.Cut(place, ",")
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(first), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(second), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, false
	}
	return lat, lng, true
}

// titleText returns the plain text of the first title property found.
func titleText(props notionapi.Properties, keys ...string) string {
	for _, key := range keys {
		if p, ok := props[key].(*notionapi.TitleProperty); ok && len(p.Title) > 0 {
			return p.Title[0].PlainText
		}
	}
	return ""
}

// richText returns the plain text of the first rich_text property found.
func richText(props notionapi.Properties, keys ...string) string {
	for _, key := range keys {
		if p, ok := props[key].(*notionapi.RichTextProperty); ok && len(p.RichText) > 0 {
			return p.RichText[0].PlainText
		}
	}
	return ""
}

// emailText accepts either a native email property or rich text.
func emailText(props notionapi.Properties, keys ...string) string {
	for _, key := range keys {
		switch p := props[key].(type) {
		case *notionapi.EmailProperty:
			if p.Email != "" {
				return p.Email
			}
		case *notionapi.RichTextProperty:
			if len(p.RichText) > 0 && p.RichText[0].PlainText != "" {
				return p.RichText[0].PlainText
			}
		}
	}
	return ""
}

// selectName returns the selected option's name, if any.
func selectName(props notionapi.Properties, keys ...string) string {
	for _, key := range keys {
		if p, ok := props[key].(*notionapi.SelectProperty); ok {
			return p.Select.Name
		}
	}
	return ""
}

// labelOption reads the first label from a multi_select or select property
// and maps its Notion color to a marker hex color.
func labelOption(props notionapi.Properties, keys ...string) (name, color string, ok bool) {
	for _, key := range keys {
		switch p := props[key].(type) {
		case *notionapi.MultiSelectProperty:
			if len(p.MultiSelect) > 0 {
				opt := p.MultiSelect[0]
				return opt.Name, hexForColor(string(opt.Color)), true
			}
		case *notionapi.SelectProperty:
			if p.Select.Name != "" {
				return p.Select.Name, hexForColor(string(p.Select.Color)), true
			}
		}
	}
	return "", "", false
}

func hexForColor(notionColor string) string {
	if hex, ok := notionColorHex[notionColor]; ok {
		return hex
	}
	return defaultMarkerColor
}
