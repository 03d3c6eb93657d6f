package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/atelier-ops/orderdesk/internal/model"
)

// ParseXLSXRows parses the first sheet of an XLSX export into
// header-keyed rows, preserving source order. The first row is the
// header.
func ParseXLSXRows(data []byte) ([]model.Order, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: no sheets")
	}
	sheet := f.Sheets[0]

	var header []string
	var rows []model.Order
	for i, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}

		if i == 0 {
			header = cells
			for k := range header {
				header[k] = strings.TrimSpace(header[k])
			}
			continue
		}

		out := make(model.Order, len(header))
		for k, name := range header {
			if name == "" {
				continue
			}
			if k < len(cells) {
				out[name] = cells[k]
			} else {
				out[name] = ""
			}
		}
		rows = append(rows, out)
	}

	return rows, nil
}
