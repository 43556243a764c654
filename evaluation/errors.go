package evaluation

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
)

// ErrorAnalysis summarizes a model's prediction errors on one partition.
// Errors are predicted minus true; LargeError flags samples whose absolute
// error exceeds the percentile threshold.
type ErrorAnalysis struct {
	MeanError    float64   `json:"mean_error"`
	MeanAbsError float64   `json:"mean_abs_error"`
	Threshold    float64   `json:"threshold"`
	NLarge       int       `json:"n_large_errors"`
	Errors       []float64 `json:"errors"`
	LargeError   []bool    `json:"large_error"`
}

// AnalyzePredictionErrors computes signed errors (predicted minus true) and
// flags samples whose absolute error is strictly above the given percentile
// of absolute errors. A percentile of 90 marks roughly the worst decile.
func AnalyzePredictionErrors(yTrue, yPred *mat.VecDense, thresholdPercentile float64) (*ErrorAnalysis, error) {
	if yTrue.Len() == 0 {
		return nil, errors.NewModelError("AnalyzePredictionErrors", "empty data", errors.ErrEmptyData)
	}
	if yTrue.Len() != yPred.Len() {
		return nil, errors.NewDimensionError("AnalyzePredictionErrors", yTrue.Len(), yPred.Len(), 0)
	}
	if thresholdPercentile <= 0 || thresholdPercentile > 100 {
		return nil, errors.NewValidationError("threshold_percentile", "must be in (0, 100]", thresholdPercentile)
	}

	n := yTrue.Len()
	errs := make([]float64, n)
	absErrs := make([]float64, n)
	meanErr, meanAbs := 0.0, 0.0
	for i := 0; i < n; i++ {
		e := yPred.AtVec(i) - yTrue.AtVec(i)
		errs[i] = e
		absErrs[i] = math.Abs(e)
		meanErr += e
		meanAbs += absErrs[i]
	}
	meanErr /= float64(n)
	meanAbs /= float64(n)

	sorted := append([]float64(nil), absErrs...)
	sort.Float64s(sorted)
	threshold := percentileSorted(sorted, thresholdPercentile)

	large := make([]bool, n)
	nLarge := 0
	for i, a := range absErrs {
		if a > threshold {
			large[i] = true
			nLarge++
		}
	}

	log.With("evaluation").Info().
		Float64("mean_error", meanErr).
		Float64("mean_abs_error", meanAbs).
		Float64("threshold", threshold).
		Int("n_large_errors", nLarge).
		Msg("prediction errors analyzed")

	return &ErrorAnalysis{
		MeanError:    meanErr,
		MeanAbsError: meanAbs,
		Threshold:    threshold,
		NLarge:       nLarge,
		Errors:       errs,
		LargeError:   large,
	}, nil
}

// percentileSorted returns the linearly interpolated p-th percentile of
// sorted values.
func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
