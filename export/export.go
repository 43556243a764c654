// Package export writes the pipeline's downstream JSON documents (per-
// organ metrics, individual age-gap records, gap correlations) and
// re-verifies written documents against the source table.
package export

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/bioforge/organclock/analysis"
	"github.com/bioforge/organclock/dataset"
	"github.com/bioforge/organclock/evaluation"
	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
)

// SexColumn is the raw sex column of the survey table.
const SexColumn = "RIAGENDR"

// sexLabels maps the survey's sex level codes to display labels.
var sexLabels = map[string]string{"1": "M", "2": "F"}

// Record is one individual's exported row: identity, demographics and
// every organ gap. Missing gaps are omitted from the JSON.
type Record struct {
	SEQN float64            `json:"seqn"`
	Age  float64            `json:"age"`
	Sex  string             `json:"sex,omitempty"`
	Gaps map[string]float64 `json:"gaps"`
}

// RecordsDocument is the on-disk individual records file.
type RecordsDocument struct {
	Data []Record `json:"data"`
}

// WriteMetricsSummary writes per-organ, per-model evaluation metrics.
func WriteMetricsSummary(path string, byOrgan map[string]map[string]evaluation.Metrics) error {
	return writeJSON(path, byOrgan)
}

// BuildIndividualRecords assembles one record per row of the gap table.
// Sex display labels come from the stored category mapping of the raw
// sex column; a table without that column exports records without sex.
func BuildIndividualRecords(f *dataset.Frame, ageCol string, gapCols []string) (*RecordsDocument, error) {
	if len(gapCols) == 0 {
		gapCols = analysis.GapColumns(f)
	}
	age, err := f.Column(ageCol)
	if err != nil {
		return nil, err
	}
	seqn, err := f.Column(dataset.KeyColumn)
	if err != nil {
		return nil, err
	}

	var sex *dataset.Column
	if f.HasColumn(SexColumn) {
		sex, _ = f.Column(SexColumn)
	}

	cols := make(map[string]*dataset.Column, len(gapCols))
	for _, gc := range gapCols {
		c, err := f.Column(gc)
		if err != nil {
			return nil, err
		}
		cols[gc] = c
	}

	doc := &RecordsDocument{Data: make([]Record, 0, f.NumRows())}
	for i := 0; i < f.NumRows(); i++ {
		rec := Record{SEQN: seqn.Values[i], Age: age.Values[i], Gaps: map[string]float64{}}
		if sex != nil {
			if label, ok := sexLabels[sexLevel(sex, i)]; ok {
				rec.Sex = label
			}
		}
		for _, gc := range gapCols {
			if v := cols[gc].Values[i]; !math.IsNaN(v) {
				rec.Gaps[analysis.OrganName(gc)] = v
			}
		}
		doc.Data = append(doc.Data, rec)
	}
	return doc, nil
}

// sexLevel returns the category label for a categorical sex column, or
// the numeric code formatted as an integer for a raw numeric one.
func sexLevel(c *dataset.Column, i int) string {
	if c.IsCategorical() {
		return c.Level(i)
	}
	v := c.Values[i]
	if math.IsNaN(v) {
		return ""
	}
	return formatCode(v)
}

func formatCode(v float64) string {
	switch v {
	case 1:
		return "1"
	case 2:
		return "2"
	default:
		return ""
	}
}

// WriteIndividualRecords builds and writes the individual records file.
func WriteIndividualRecords(path string, f *dataset.Frame, ageCol string, gapCols []string) error {
	doc, err := BuildIndividualRecords(f, ageCol, gapCols)
	if err != nil {
		return err
	}
	return writeJSON(path, doc)
}

// WriteCorrelationMatrix writes the gap correlation matrix document.
func WriteCorrelationMatrix(path string, m *analysis.CorrMatrix) error {
	return writeJSON(path, m)
}

func writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating export directory for %s", path)
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating export file %s", path)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return errors.Wrapf(err, "encoding %s", path)
	}

	log.With("export").Info().Str("path", path).Msg("document written")
	return nil
}

// ReadRecords loads a previously written records document.
func ReadRecords(path string) (*RecordsDocument, error) {
	var doc RecordsDocument
	if err := readJSON(path, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ReadCorrelationMatrix loads a previously written correlation document.
func ReadCorrelationMatrix(path string) (*analysis.CorrMatrix, error) {
	var m analysis.CorrMatrix
	if err := readJSON(path, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading export file %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "decoding %s", path)
	}
	return nil
}
