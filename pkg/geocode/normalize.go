package geocode

import (
	"crypto/sha1"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeKey canonicalizes an address for cache-key derivation: NFC
// normalization, lowercasing and whitespace collapsing. It is total and
// idempotent; the worst case is the trimmed input unchanged.
func NormalizeKey(address string) string {
	s := norm.NFC.String(address)
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}

// CacheKey returns the SHA-1 hex of the normalized address. Two inputs that
// differ only in case or spacing map to the same key.
func CacheKey(address string) string {
	h := sha1.Sum([]byte(NormalizeKey(address)))
	return fmt.Sprintf("%x", h)
}

// Pre-compiled patterns for Ukrainian administrative-unit markers.
var (
	oblastSuffixRe     = regexp.MustCompile(`(?i)\s*обл\.?\s*$`)
	districtSuffixRe   = regexp.MustCompile(`(?i)\s*р-?н\.?\s*$`)
	settlementPrefixRe = regexp.MustCompile(`(?i)^(?:с\.|село|смт\.?|м\.|місто)\s+`)
	settlementMarkerRe = regexp.MustCompile(`(?i)(?:с\.|село|смт\.?|м\.|місто)\s+`)
	buildingPartRe     = regexp.MustCompile(`(?i)^(?:вул\.|просп\.|пров\.|буд\.|кв\.|оф\.)`)
)

// SimplifyQuery rewrites a free-text Ukrainian address into a cleaner
// geocoding query: administrative abbreviations are stripped and
// street/building/apartment sub-fields, which degrade settlement-level
// geocoding precision, are dropped.
func SimplifyQuery(address string) string {
	parts := strings.Split(address, ",")
	terms := make([]string, 0, len(parts))
	for _, part := range parts {
		cleaned := strings.TrimSpace(part)
		if cleaned == "" {
			continue
		}
		if buildingPartRe.MatchString(cleaned) {
			continue
		}
		cleaned = oblastSuffixRe.ReplaceAllString(cleaned, "")
		cleaned = districtSuffixRe.ReplaceAllString(cleaned, "")
		cleaned = settlementPrefixRe.ReplaceAllString(cleaned, "")
		cleaned = strings.TrimSpace(cleaned)
		if cleaned != "" {
			terms = append(terms, cleaned)
		}
	}
	if len(terms) == 0 {
		return strings.TrimSpace(address)
	}
	return strings.Join(terms, ", ")
}

// QueryVariants returns geocoding queries to attempt in order, from most
// specific to broadest: the simplified address, its first component (usually
// the settlement or city) and finally the original string untouched.
func QueryVariants(address string) []string {
	var variants []string
	seen := make(map[string]struct{})
	add := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" {
			return
		}
		if _, ok := seen[NormalizeKey(q)]; ok {
			return
		}
		seen[NormalizeKey(q)] = struct{}{}
		variants = append(variants, q)
	}

	simplified := SimplifyQuery(address)
	add(simplified)
	if first, _, found := strings.Cut(simplified, ","); found {
		add(first)
	}
	add(address)
	return variants
}

// ParseAddress extracts the oblast, district and settlement from a Ukrainian
// address of the form "Область обл., Район р-н, с. Settlement". For bare city
// addresses ("м. Київ, вул. ...") the city doubles as both oblast and
// settlement. Any component may come back empty.
func ParseAddress(address string) (oblast, district, settlement string) {
	parts := strings.Split(strings.TrimSpace(address), ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if len(parts) > 0 {
		oblast = oblastSuffixRe.ReplaceAllString(parts[0], "")
		oblast = strings.TrimSpace(settlementPrefixRe.ReplaceAllString(oblast, ""))
	}

	if len(parts) > 1 {
		second := parts[1]
		switch {
		case settlementMarkerRe.MatchString(second):
			settlement = strings.TrimSpace(settlementPrefixRe.ReplaceAllString(second, ""))
			if fields := strings.Fields(settlement); len(fields) > 0 {
				settlement = fields[0]
			}
		case buildingPartRe.MatchString(second):
			// Street-level detail, not a district.
		default:
			district = strings.TrimSpace(districtSuffixRe.ReplaceAllString(second, ""))
		}
	}

	if settlement == "" && len(parts) > 2 && !buildingPartRe.MatchString(parts[2]) {
		settlement = strings.TrimSpace(settlementPrefixRe.ReplaceAllString(parts[2], ""))
	}

	// City-only addresses: the city is its own settlement.
	if settlement == "" {
		settlement = oblast
	}
	return oblast, district, settlement
}
