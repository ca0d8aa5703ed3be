package importer

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/baza-crm/widget-cli/internal/model"
)

// ParseXLSX reads clients from the first sheet of an Excel workbook. The
// first row is the header and uses the same column aliases as CSV imports.
func ParseXLSX(path string) ([]model.Client, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("importer: workbook has no sheets")
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) < 2 {
		return nil, nil
	}

	headers := make([]string, len(sheet.Rows[0].Cells))
	for i, cell := range sheet.Rows[0].Cells {
		headers[i] = normalizeHeader(cell.String())
	}

	var clients []model.Client
	for _, row := range sheet.Rows[1:] {
		mapped := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row.Cells) {
				mapped[h] = strings.TrimSpace(row.Cells[i].String())
			}
		}
		if c, ok := rowToClient(mapped); ok {
			clients = append(clients, c)
		}
	}
	return clients, nil
}
