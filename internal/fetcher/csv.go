package fetcher

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/atelier-ops/orderdesk/internal/model"
)

// legacyCharset is the fallback decoding for exports that predate the
// UTF-8 publishing setting. The sheet's Turkish column names make
// windows-1254 the right guess.
const legacyCharset = "windows-1254"

// ParseCSVRows parses a CSV export into header-keyed rows, preserving
// source order. The first record is the header; rows shorter than the
// header are padded with empty strings.
func ParseCSVRows(data []byte) ([]model.Order, error) {
	data = decodeCharset(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []model.Order
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}

		row := make(model.Order, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(record) {
				row[name] = record[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// decodeCharset returns data as UTF-8, converting from the legacy
// charset when the payload is not valid UTF-8. Decode failures fall
// back to the raw bytes; a garbled optional column beats a failed sync.
func decodeCharset(data []byte) []byte {
	if utf8.Valid(data) {
		// Strip a UTF-8 BOM if the export carries one.
		return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	}
	enc, err := htmlindex.Get(legacyCharset)
	if err != nil {
		return data
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return data
	}
	return decoded
}
