// Package explain attributes organ clock predictions to their input
// biomarkers: global importances from the model family, permutation
// importances against held-out data, and per-sample SHAP values.
package explain

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/bioforge/organclock/core/model"
	"github.com/bioforge/organclock/metrics"
	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
)

// Importance is one feature's attribution score.
type Importance struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// coefficientModel is satisfied by the linear-family regressors.
type coefficientModel interface {
	Coefficients() []float64
}

// gainModel is satisfied by tree ensembles exposing native importances.
type gainModel interface {
	FeatureImportances() []float64
}

// FeatureImportance derives global importances from the model's own
// parameters, dispatching on the tagged model kind: absolute coefficients
// for linear models, normalized split gain for tree ensembles. Any other
// kind is rejected rather than guessed at.
func FeatureImportance(m model.Regressor, names []string) ([]Importance, error) {
	var raw []float64
	switch m.Kind() {
	case model.KindLinear:
		cm, ok := m.(coefficientModel)
		if !ok {
			return nil, errors.NewValidationError("model", "linear model exposes no coefficients", m.Kind())
		}
		coefs := cm.Coefficients()
		raw = make([]float64, len(coefs))
		for i, c := range coefs {
			raw[i] = math.Abs(c)
		}
	case model.KindTreeEnsemble:
		gm, ok := m.(gainModel)
		if !ok {
			return nil, errors.NewValidationError("model", "tree ensemble exposes no importances", m.Kind())
		}
		raw = gm.FeatureImportances()
	default:
		return nil, errors.NewValidationError("model", "unsupported model kind for importance", string(m.Kind()))
	}

	if len(raw) != len(names) {
		return nil, errors.NewDimensionError("FeatureImportance", len(names), len(raw), 1)
	}

	out := make([]Importance, len(raw))
	for i, v := range raw {
		out[i] = Importance{Feature: names[i], Value: v}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out, nil
}

// PermutationResult holds per-feature permutation importance statistics.
type PermutationResult struct {
	Feature string  `json:"feature"`
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`
}

// PermutationImportance measures each feature's contribution as the mean
// R² degradation over nRepeats seeded shuffles of that column, leaving the
// model and all other columns untouched.
func PermutationImportance(m model.Regressor, X *mat.Dense, y *mat.VecDense, names []string, nRepeats int, seed int64) ([]PermutationResult, error) {
	n, c := X.Dims()
	if n == 0 {
		return nil, errors.NewModelError("PermutationImportance", "empty data", errors.ErrEmptyData)
	}
	if len(names) != c {
		return nil, errors.NewDimensionError("PermutationImportance", c, len(names), 1)
	}
	if nRepeats <= 0 {
		return nil, errors.NewValidationError("n_repeats", "must be positive", nRepeats)
	}

	baseline, err := scoreR2(m, X, y)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed))
	work := mat.DenseCopyOf(X)
	column := make([]float64, n)
	perm := make([]int, n)

	out := make([]PermutationResult, c)
	for j := 0; j < c; j++ {
		drops := make([]float64, nRepeats)
		for i := 0; i < n; i++ {
			column[i] = X.At(i, j)
		}

		for rep := 0; rep < nRepeats; rep++ {
			for i := range perm {
				perm[i] = i
			}
			rng.Shuffle(n, func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })
			for i := 0; i < n; i++ {
				work.Set(i, j, column[perm[i]])
			}

			score, err := scoreR2(m, work, y)
			if err != nil {
				return nil, err
			}
			drops[rep] = baseline - score
		}

		// Restore the column before moving on.
		for i := 0; i < n; i++ {
			work.Set(i, j, column[i])
		}

		mean, std := meanStd(drops)
		out[j] = PermutationResult{Feature: names[j], Mean: mean, Std: std}
	}

	log.With("explain").Info().
		Int("features", c).
		Int("repeats", nRepeats).
		Float64("baseline_r2", baseline).
		Msg("permutation importance computed")
	return out, nil
}

func scoreR2(m model.Regressor, X mat.Matrix, y *mat.VecDense) (float64, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return 0, err
	}
	r, _ := pred.Dims()
	vec := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		vec.SetVec(i, pred.At(i, 0))
	}
	return metrics.R2Score(y, vec)
}

func meanStd(values []float64) (float64, float64) {
	n := float64(len(values))
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= n

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(variance / n)
}
