package export

import (
	"fmt"
	"math"

	"github.com/bioforge/organclock/analysis"
	"github.com/bioforge/organclock/dataset"
	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
)

// Verification tolerances. Individual gaps are exported rounded for
// display; correlations are exported at full precision.
const (
	RecordTolerance      = 0.01
	CorrelationTolerance = 0.001
)

// Mismatch is one field-level disagreement found during verification.
type Mismatch struct {
	Where    string  `json:"where"`
	Field    string  `json:"field"`
	Expected float64 `json:"expected"`
	Got      float64 `json:"got"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s %s: expected %.4f, got %.4f", m.Where, m.Field, m.Expected, m.Got)
}

// VerifyIndividualRecords recomputes every record from the source table
// and compares within RecordTolerance. Returns the list of mismatches;
// an empty list means the document is faithful.
func VerifyIndividualRecords(doc *RecordsDocument, f *dataset.Frame, ageCol string, gapCols []string) ([]Mismatch, error) {
	expected, err := BuildIndividualRecords(f, ageCol, gapCols)
	if err != nil {
		return nil, err
	}
	if len(doc.Data) != len(expected.Data) {
		return nil, errors.NewDimensionError("VerifyIndividualRecords", len(expected.Data), len(doc.Data), 0)
	}

	var mismatches []Mismatch
	for i, want := range expected.Data {
		got := doc.Data[i]
		where := fmt.Sprintf("record %d (seqn %.0f)", i, want.SEQN)

		if got.SEQN != want.SEQN {
			mismatches = append(mismatches, Mismatch{Where: where, Field: "seqn", Expected: want.SEQN, Got: got.SEQN})
		}
		if math.Abs(got.Age-want.Age) > RecordTolerance {
			mismatches = append(mismatches, Mismatch{Where: where, Field: "age", Expected: want.Age, Got: got.Age})
		}
		if got.Sex != want.Sex {
			mismatches = append(mismatches, Mismatch{Where: where, Field: "sex"})
		}
		for organ, wantGap := range want.Gaps {
			gotGap, ok := got.Gaps[organ]
			if !ok || math.Abs(gotGap-wantGap) > RecordTolerance {
				mismatches = append(mismatches, Mismatch{Where: where, Field: organ + "_age_gap", Expected: wantGap, Got: gotGap})
			}
		}
	}

	log.With("export").Info().
		Int("records", len(doc.Data)).
		Int("mismatches", len(mismatches)).
		Msg("individual records verified")
	return mismatches, nil
}

// VerifyCorrelationMatrix recomputes the gap correlation matrix from the
// source table and compares within CorrelationTolerance.
func VerifyCorrelationMatrix(doc *analysis.CorrMatrix, f *dataset.Frame, gapCols []string) ([]Mismatch, error) {
	expected, err := analysis.GapCorrelations(f, gapCols)
	if err != nil {
		return nil, err
	}
	if len(doc.Organs) != len(expected.Organs) {
		return nil, errors.NewDimensionError("VerifyCorrelationMatrix", len(expected.Organs), len(doc.Organs), 0)
	}

	var mismatches []Mismatch
	for i := range expected.Organs {
		for j := range expected.Organs {
			want := expected.Values[i][j]
			got := doc.Values[i][j]
			if math.IsNaN(want) && math.IsNaN(got) {
				continue
			}
			if math.Abs(got-want) > CorrelationTolerance {
				mismatches = append(mismatches, Mismatch{
					Where:    fmt.Sprintf("corr[%s][%s]", expected.Organs[i], expected.Organs[j]),
					Field:    "correlation",
					Expected: want,
					Got:      got,
				})
			}
		}
	}

	log.With("export").Info().
		Int("organs", len(expected.Organs)).
		Int("mismatches", len(mismatches)).
		Msg("correlation matrix verified")
	return mismatches, nil
}
