package evaluation

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/bioforge/organclock/pkg/errors"
)

func TestAnalyzePredictionErrors(t *testing.T) {
	yTrue := mat.NewVecDense(5, []float64{30, 40, 50, 60, 70})
	yPred := mat.NewVecDense(5, []float64{31, 39, 50, 64, 68})

	// Errors: {1, -1, 0, 4, -2}; abs sorted: {0, 1, 1, 2, 4}.
	a, err := AnalyzePredictionErrors(yTrue, yPred, 90)
	if err != nil {
		t.Fatalf("AnalyzePredictionErrors() error = %v", err)
	}

	if math.Abs(a.MeanError-0.4) > 1e-12 {
		t.Errorf("MeanError = %v, want 0.4", a.MeanError)
	}
	if math.Abs(a.MeanAbsError-1.6) > 1e-12 {
		t.Errorf("MeanAbsError = %v, want 1.6", a.MeanAbsError)
	}
	// 90th percentile of {0, 1, 1, 2, 4}: pos 3.6 -> 2 + 0.6*(4-2).
	if math.Abs(a.Threshold-3.2) > 1e-12 {
		t.Errorf("Threshold = %v, want 3.2", a.Threshold)
	}
	if a.NLarge != 1 {
		t.Errorf("NLarge = %d, want 1", a.NLarge)
	}
	wantLarge := []bool{false, false, false, true, false}
	for i, want := range wantLarge {
		if a.LargeError[i] != want {
			t.Errorf("LargeError[%d] = %v, want %v", i, a.LargeError[i], want)
		}
	}
	wantErrs := []float64{1, -1, 0, 4, -2}
	for i, want := range wantErrs {
		if a.Errors[i] != want {
			t.Errorf("Errors[%d] = %v, want %v", i, a.Errors[i], want)
		}
	}
}

func TestAnalyzePredictionErrorsValidation(t *testing.T) {
	yTrue := mat.NewVecDense(3, []float64{1, 2, 3})

	_, err := AnalyzePredictionErrors(yTrue, mat.NewVecDense(2, []float64{1, 2}), 90)
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("length mismatch: error = %v, want DimensionError", err)
	}

	_, err = AnalyzePredictionErrors(yTrue, mat.NewVecDense(3, []float64{1, 2, 3}), 0)
	var valErr *errors.ValidationError
	if !errors.As(err, &valErr) {
		t.Errorf("percentile 0: error = %v, want ValidationError", err)
	}

	_, err = AnalyzePredictionErrors(yTrue, mat.NewVecDense(3, []float64{1, 2, 3}), 101)
	if !errors.As(err, &valErr) {
		t.Errorf("percentile 101: error = %v, want ValidationError", err)
	}
}
