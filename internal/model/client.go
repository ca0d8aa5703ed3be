// Package model holds the client records that flow between the Notion CRM,
// the geocoder and the map widget.
package model

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Client is one map marker. The JSON field names are part of the widget
// contract; the embedded map script reads them directly.
type Client struct {
	Name     string   `json:"name"`
	Color    string   `json:"color"`
	Phone    string   `json:"phone"`
	Email    string   `json:"email"`
	Contact  string   `json:"contact"`
	Address  string   `json:"address"`
	Notes    string   `json:"notes"`
	Label    string   `json:"label"`
	OrgTitle string   `json:"orgTitle"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
}

// HasCoords reports whether the client can be placed on the map.
func (c Client) HasCoords() bool {
	return c.Lat != nil && c.Lng != nil
}

var nonPhoneRe = regexp.MustCompile(`[^+\d]`)

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func normalizePhone(phone string) string {
	cleaned := nonPhoneRe.ReplaceAllString(phone, "")
	if strings.HasPrefix(cleaned, "+") {
		return "+" + strings.ReplaceAll(cleaned[1:], "+", "")
	}
	return strings.ReplaceAll(cleaned, "+", "")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func roundCoord(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

// identityKeys returns every key under which this client counts as "seen".
// A later client sharing any one key with an earlier one is a duplicate.
func identityKeys(c Client) []string {
	var keys []string

	name := normalizeName(c.Name)
	if c.HasCoords() {
		lat, lng := roundCoord(*c.Lat), roundCoord(*c.Lng)
		if name != "" {
			keys = append(keys, fmt.Sprintf("name_coord:%s:%g:%g", name, lat, lng))
		}
	} else if name != "" {
		keys = append(keys, "name:"+name)
	}

	if phone := normalizePhone(c.Phone); phone != "" {
		keys = append(keys, "phone:"+phone)
	}
	if email := normalizeEmail(c.Email); email != "" {
		keys = append(keys, "email:"+email)
	}
	if c.HasCoords() {
		keys = append(keys, fmt.Sprintf("coord:%g:%g", roundCoord(*c.Lat), roundCoord(*c.Lng)))
	}
	return keys
}

// Merge concatenates two client lists, dropping later entries that share an
// identity key (name+coords, phone, email, or bare coords) with an earlier
// one. Order is preserved, earlier entries win.
func Merge(existing, incoming []Client) []Client {
	seen := make(map[string]struct{})
	merged := make([]Client, 0, len(existing)+len(incoming))

	for _, c := range append(append([]Client(nil), existing...), incoming...) {
		keys := identityKeys(c)
		dup := false
		for _, k := range keys {
			if _, ok := seen[k]; ok {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		for _, k := range keys {
			seen[k] = struct{}{}
		}
		merged = append(merged, c)
	}
	return merged
}

// WithCoords filters out clients that could not be geocoded.
func WithCoords(clients []Client) []Client {
	placed := make([]Client, 0, len(clients))
	for _, c := range clients {
		if c.HasCoords() {
			placed = append(placed, c)
		}
	}
	return placed
}
