// Package dedupe finds and archives duplicate pages in the CRM database.
// Two pages are duplicates when every property value matches, compared via a
// content hash over the sorted property set.
package dedupe

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/jomei/notionapi"
)

// ContentHash hashes every property of a page into a stable digest. Property
// order does not affect the result.
func ContentHash(page notionapi.Page) string {
	var parts []string
	for name, prop := range page.Properties {
		value, ok := propertyValue(prop)
		if !ok {
			continue
		}
		parts = append(parts, name+":"+value)
	}
	sort.Strings(parts)

	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// propertyValue flattens a property to a comparable string. List-valued
// properties are sorted so ordering differences do not break equality.
func propertyValue(prop notionapi.Property) (string, bool) {
	switch p := prop.(type) {
	case *notionapi.TitleProperty:
		return joinRichText(p.Title), true
	case *notionapi.RichTextProperty:
		return joinRichText(p.RichText), true
	case *notionapi.SelectProperty:
		if p.Select.Name == "" {
			return "", false
		}
		return p.Select.Name, true
	case *notionapi.MultiSelectProperty:
		names := make([]string, 0, len(p.MultiSelect))
		for _, opt := range p.MultiSelect {
			names = append(names, opt.Name)
		}
		sort.Strings(names)
		return strings.Join(names, ","), true
	case *notionapi.NumberProperty:
		return fmt.Sprintf("%g", p.Number), true
	case *notionapi.URLProperty:
		return p.URL, true
	case *notionapi.EmailProperty:
		return p.Email, true
	case *notionapi.PhoneNumberProperty:
		return p.PhoneNumber, true
	case *notionapi.CheckboxProperty:
		return fmt.Sprintf("%t", p.Checkbox), true
	case *notionapi.DateProperty:
		if p.Date == nil {
			return "", false
		}
		if p.Date.End != nil {
			return fmt.Sprintf("%v-%v", p.Date.Start, p.Date.End), true
		}
		return fmt.Sprintf("%v", p.Date.Start), true
	case *notionapi.RelationProperty:
		ids := make([]string, 0, len(p.Relation))
		for _, rel := range p.Relation {
			ids = append(ids, string(rel.ID))
		}
		sort.Strings(ids)
		return strings.Join(ids, ","), true
	case *notionapi.StatusProperty:
		if p.Status.Name == "" {
			return "", false
		}
		return p.Status.Name, true
	case nil:
		return "", false
	default:
		// Unknown types still participate so that pages differing only in
		// an exotic property are not collapsed.
		return fmt.Sprintf("unsupported_%T", prop), true
	}
}

func joinRichText(parts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range parts {
		b.WriteString(rt.PlainText)
	}
	return b.String()
}
