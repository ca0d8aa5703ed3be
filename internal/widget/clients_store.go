package widget

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/baza-crm/widget-cli/internal/model"
)

// LoadClients reads the persistent client list. A missing file is an empty
// list, not an error.
func LoadClients(path string) ([]model.Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "widget: read clients store")
	}
	var clients []model.Client
	if err := json.Unmarshal(data, &clients); err != nil {
		return nil, eris.Wrap(err, "widget: parse clients store")
	}
	return clients, nil
}

// SaveClients writes the client list as indented JSON.
func SaveClients(path string, clients []model.Client) error {
	data, err := json.MarshalIndent(clients, "", "  ")
	if err != nil {
		return eris.Wrap(err, "widget: marshal clients store")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "widget: write clients store")
	}
	return nil
}
