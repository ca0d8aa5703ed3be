package importer

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"

	"github.com/baza-crm/widget-cli/internal/model"
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// ParseCSV reads a client spreadsheet exported as CSV. The parser tolerates
// the formats the org's exports actually come in: UTF-8 with or without BOM,
// Windows-1251, and either semicolon or comma delimiters.
func ParseCSV(r io.Reader) ([]model.Client, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "importer: read csv")
	}
	text := decodeText(raw)

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = detectDelimiter(text)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "importer: parse csv")
	}
	if len(records) < 2 {
		return nil, nil
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = normalizeHeader(h)
	}

	var clients []model.Client
	for _, record := range records[1:] {
		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			}
		}
		if c, ok := rowToClient(row); ok {
			clients = append(clients, c)
		}
	}
	return clients, nil
}

func decodeText(raw []byte) string {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := charmap.Windows1251.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

// detectDelimiter prefers semicolon when the sample carries at least as many
// semicolons as commas. Addresses contain commas, so semicolon exports would
// otherwise mis-split.
func detectDelimiter(text string) rune {
	sample := text
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	if n := strings.Count(sample, ";"); n > 0 && n >= strings.Count(sample, ",") {
		return ';'
	}
	return ','
}
