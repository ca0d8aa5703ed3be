package geocode

import (
	"context"
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed settlements.yaml
var defaultSettlements []byte

// settlementsFile is the YAML shape of the offline table: settlements keyed
// by "oblast|settlement" (lowercased), plus bare settlement names for
// unambiguous entries.
type settlementsFile struct {
	Settlements map[string]Coordinates `yaml:"settlements"`
}

// OfflineProvider answers lookups from a static settlement → coordinates
// table without touching the network. It sits first in the chain.
type OfflineProvider struct {
	table map[string]Coordinates
}

// NewOfflineProvider loads the settlement table from path, falling back to
// the embedded default table when path is empty. A missing or malformed file
// is an error: the table is static deployment data, not runtime state.
func NewOfflineProvider(path string) (*OfflineProvider, error) {
	data := defaultSettlements
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrap(err, "geocode: read settlements table")
		}
		data = b
	}

	var file settlementsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrap(err, "geocode: parse settlements table")
	}

	table := make(map[string]Coordinates, len(file.Settlements))
	for name, coords := range file.Settlements {
		table[NormalizeKey(name)] = coords
	}
	zap.L().Debug("geocode: offline table loaded", zap.Int("settlements", len(table)))
	return &OfflineProvider{table: table}, nil
}

// Name implements Provider.
func (p *OfflineProvider) Name() string { return "offline" }

// Available implements Provider.
func (p *OfflineProvider) Available() bool { return len(p.table) > 0 }

// Geocode implements Provider. The address is parsed into oblast and
// settlement; the oblast-qualified key is preferred so duplicate settlement
// names across oblasts stay disambiguated.
func (p *OfflineProvider) Geocode(_ context.Context, address string) (*Result, error) {
	oblast, _, settlement := ParseAddress(address)
	if settlement == "" {
		return &Result{Source: p.Name()}, nil
	}

	keys := []string{
		NormalizeKey(oblast + "|" + settlement),
		NormalizeKey(settlement),
	}
	for _, key := range keys {
		if strings.HasPrefix(key, "|") {
			continue
		}
		if coords, ok := p.table[key]; ok {
			return &Result{Coords: coords, Source: p.Name(), Matched: true}, nil
		}
	}
	return &Result{Source: p.Name()}, nil
}
