package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/bioforge/organclock/pkg/errors"
)

// missingTokens are cell values treated as missing in delimited files.
var missingTokens = map[string]bool{
	"": true, "NA": true, "N/A": true, "NAN": true, "NULL": true, ".": true,
}

// ReadCSV parses a delimited-text stream into a Frame. The first record is
// the header; column names are canonicalized to upper case. Columns where
// every present value parses as a number become numeric; anything else
// becomes a categorical column with a level table.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parsing CSV stream")
	}
	if len(records) == 0 {
		return nil, errors.NewValueError("ReadCSV", "empty file")
	}

	header := records[0]
	rows := records[1:]

	f := New()
	for j, rawName := range header {
		name := CanonicalName(strings.TrimSpace(rawName))

		values := make([]float64, len(rows))
		raw := make([]string, len(rows))
		numeric := true
		for i, row := range rows {
			cell := ""
			if j < len(row) {
				cell = strings.TrimSpace(row[j])
			}
			raw[i] = cell
			if missingTokens[strings.ToUpper(cell)] {
				values[i] = math.NaN()
				raw[i] = ""
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				numeric = false
				continue
			}
			values[i] = v
		}

		if numeric {
			err = f.AddColumn(name, values)
		} else {
			codes, categories := encodeLevels(raw)
			err = f.AddCategoricalColumn(name, codes, categories)
		}
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}
