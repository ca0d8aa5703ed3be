// Package importer parses client spreadsheets (CSV and XLSX exports from the
// old accounting system) and loads new rows into the Notion CRM.
package importer

import (
	"context"
	"strconv"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/baza-crm/widget-cli/internal/model"
	"github.com/baza-crm/widget-cli/pkg/notion"
)

// Column aliases seen across exports. Keys are lowercased header names.
var (
	nameKeys  = []string{"name", "покупець", "піб", "client", "клієнт"}
	addrKeys  = []string{"address", "адреса", "адреса_1", "place", "адреса1"}
	latKeys   = []string{"lat", "latitude", "широта"}
	lngKeys   = []string{"lng", "lon", "longitude", "довгота"}
	phoneKeys = []string{"phone", "телефон", "тел"}
	emailKeys = []string{"email", "ел.адреса", "e-mail", "e-mail 1 - value"}
	notesKeys = []string{"notes", "примітка", "примітки"}
	labelKeys = []string{"label", "labels", "мітка"}
	orgKeys   = []string{"org", "organization", "orgtitle", "organization title"}
)

const defaultColor = "#ef4444"

// rowToClient maps one spreadsheet row (header -> value, headers lowercased)
// to a client. Rows with neither a name nor an address are not importable.
func rowToClient(row map[string]string) (model.Client, bool) {
	pick := func(keys []string) string {
		for _, k := range keys {
			if v := row[k]; v != "" {
				return v
			}
		}
		return ""
	}

	c := model.Client{
		Name:     pick(nameKeys),
		Address:  pick(addrKeys),
		Phone:    pick(phoneKeys),
		Email:    pick(emailKeys),
		Notes:    pick(notesKeys),
		Label:    pick(labelKeys),
		OrgTitle: pick(orgKeys),
		Color:    defaultColor,
	}
	if c.Name == "" && c.Address == "" {
		return model.Client{}, false
	}
	if c.Name == "" {
		c.Name = "Unnamed"
	}

	// Exports from the old system use a decimal comma.
	if lat, err := parseCoord(pick(latKeys)); err == nil {
		if lng, err := parseCoord(pick(lngKeys)); err == nil {
			c.Lat, c.Lng = &lat, &lng
		}
	}
	return c, true
}

func parseCoord(raw string) (float64, error) {
	if raw == "" {
		return 0, eris.New("importer: empty coordinate")
	}
	return strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// Importer loads parsed clients into the Notion CRM database.
type Importer struct {
	client notion.Client
	dbID   string
	source string
}

// NewImporter creates an importer writing into the given database. Created
// pages get their Source select set to source so they show up in the client
// base queries.
func NewImporter(client notion.Client, dbID, source string) *Importer {
	return &Importer{client: client, dbID: dbID, source: source}
}

// Exists reports whether a page with the given title is already present.
func (im *Importer) Exists(ctx context.Context, name string) (bool, error) {
	resp, err := im.client.QueryDatabase(ctx, im.dbID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: "Name",
			RichText: &notionapi.TextFilterCondition{Equals: name},
		},
		PageSize: 1,
	})
	if err != nil {
		return false, eris.Wrap(err, "importer: query by name")
	}
	return len(resp.Results) > 0, nil
}

// Sync creates a CRM page for every client not already in the database,
// matching by exact title. Returns the number of pages created.
func (im *Importer) Sync(ctx context.Context, clients []model.Client) (int, error) {
	created := 0
	for _, c := range clients {
		if ctx.Err() != nil {
			return created, eris.Wrap(ctx.Err(), "importer: cancelled")
		}

		exists, err := im.Exists(ctx, c.Name)
		if err != nil {
			return created, err
		}
		if exists {
			zap.L().Debug("client already in database", zap.String("name", c.Name))
			continue
		}

		if _, err := im.client.CreatePage(ctx, im.pageRequest(c)); err != nil {
			return created, eris.Wrap(err, "importer: create page")
		}
		created++
	}
	return created, nil
}

func (im *Importer) pageRequest(c model.Client) *notionapi.PageCreateRequest {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Type: notionapi.PropertyTypeTitle,
			Title: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: c.Name}},
			},
		},
		"Source": notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: im.source},
		},
	}
	setRichText := func(key, value string) {
		if value == "" {
			return
		}
		props[key] = notionapi.RichTextProperty{
			Type: notionapi.PropertyTypeRichText,
			RichText: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: value}},
			},
		}
	}
	setRichText("АДРЕСА", c.Address)
	setRichText("ТЕЛЕФОН", c.Phone)
	setRichText("ЕЛ.АДРЕСА", c.Email)
	setRichText("ПРИМІТКА", c.Notes)

	return &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(im.dbID),
		},
		Properties: props,
	}
}
