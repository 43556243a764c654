// Package features builds per-organ datasets from the cleaned survey
// table, partitions them into train/validation/test splits, and scales
// features with statistics fitted on the training partition only.
package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/bioforge/organclock/dataset"
	"github.com/bioforge/organclock/internal/config"
	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
)

// OrganDataset is the feature matrix and age target for one organ panel.
type OrganDataset struct {
	Organ string

	// FeatureNames lists the columns of X in order: available biomarkers
	// in declared order, then available global covariates, deduplicated.
	FeatureNames []string

	// X is n_samples × n_features with no missing values.
	X *mat.Dense

	// Y holds chronological age, aligned with the rows of X.
	Y *mat.VecDense

	// SEQN holds the subject identifiers aligned with the rows of X, when
	// the source table carries the key column.
	SEQN []float64
}

// BuildOrganDatasets assembles one dataset per organ panel. Declared
// biomarkers absent from the table are dropped with a warning; an organ
// with no available biomarkers is skipped entirely, never zero-filled.
// Rows with a missing value in any selected column or the target are
// dropped. Organs come back in panel document order.
func BuildOrganDatasets(f *dataset.Frame, panels *config.OrganPanels, targetCol string) ([]*OrganDataset, error) {
	if !f.HasColumn(targetCol) {
		return nil, errors.NewValueError("BuildOrganDatasets", fmt.Sprintf("target column %q not found", targetCol))
	}

	logger := log.With("features")

	var covars []string
	for _, c := range panels.GlobalCovariates {
		if f.HasColumn(c) {
			covars = append(covars, c)
		}
	}

	var out []*OrganDataset
	for _, organ := range panels.OrganOrder {
		var available, missing []string
		for _, b := range panels.Biomarkers[organ] {
			if f.HasColumn(b) {
				available = append(available, b)
			} else {
				missing = append(missing, b)
			}
		}
		if len(missing) > 0 {
			errors.Warn(errors.NewValueError("BuildOrganDatasets",
				fmt.Sprintf("%s: missing biomarkers %v", organ, missing)))
		}
		if len(available) == 0 {
			errors.Warn(errors.NewValueError("BuildOrganDatasets",
				fmt.Sprintf("%s: no biomarkers available, skipping organ", organ)))
			continue
		}

		featureCols := dedup(append(append([]string{}, available...), covars...))

		keep, err := f.CompleteRows(append(append([]string{}, featureCols...), targetCol)...)
		if err != nil {
			return nil, err
		}
		rows, err := f.Filter(keep)
		if err != nil {
			return nil, err
		}
		if rows.NumRows() == 0 {
			errors.Warn(errors.NewValueError("BuildOrganDatasets",
				fmt.Sprintf("%s: no complete rows, skipping organ", organ)))
			continue
		}

		X, err := rows.Matrix(featureCols...)
		if err != nil {
			return nil, err
		}
		y, err := rows.Vector(targetCol)
		if err != nil {
			return nil, err
		}

		ds := &OrganDataset{Organ: organ, FeatureNames: featureCols, X: X, Y: y}
		if rows.HasColumn(dataset.KeyColumn) {
			key, _ := rows.Column(dataset.KeyColumn)
			ds.SEQN = append([]float64(nil), key.Values...)
		}
		out = append(out, ds)

		logger.Info().
			Str("organ", organ).
			Int("samples", rows.NumRows()).
			Int("features", len(featureCols)).
			Int("biomarkers", len(available)).
			Int("covariates", len(featureCols)-len(available)).
			Msg("built organ dataset")
	}
	return out, nil
}

func dedup(names []string) []string {
	seen := map[string]bool{}
	out := names[:0:0]
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// NaNFree reports whether a matrix contains no NaN entries. Used by
// callers asserting the all-or-nothing row filter.
func NaNFree(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if math.IsNaN(m.At(i, j)) {
				return false
			}
		}
	}
	return true
}
