package regression

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// ageLikeData builds a noisy linear relation with enough rows for the
// default leaf-size constraints to allow splits.
func ageLikeData(n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x1 := float64(i % 50)
		x2 := float64((i * 7) % 13)
		X.Set(i, 0, x1)
		X.Set(i, 1, x2)
		y.Set(i, 0, 20+x1+0.5*x2)
	}
	return X, y
}

func TestGradientBoostingBeatsMeanPredictor(t *testing.T) {
	X, y := ageLikeData(300)

	gb := NewGradientBoosting(GBParams{NumIterations: 50, Seed: 42})
	if err := gb.Fit(X, y); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	pred, err := gb.Predict(X)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	n, _ := y.Dims()
	meanY := 0.0
	for i := 0; i < n; i++ {
		meanY += y.At(i, 0)
	}
	meanY /= float64(n)

	var modelSS, meanSS float64
	for i := 0; i < n; i++ {
		d := pred.At(i, 0) - y.At(i, 0)
		modelSS += d * d
		m := meanY - y.At(i, 0)
		meanSS += m * m
	}
	if modelSS >= meanSS/2 {
		t.Errorf("boosting SSE %v should be well below mean-predictor SSE %v", modelSS, meanSS)
	}
}

func TestGradientBoostingDeterministicWithSeed(t *testing.T) {
	X, y := ageLikeData(200)

	params := GBParams{NumIterations: 20, Subsample: 0.8, Seed: 7}
	a := NewGradientBoosting(params)
	b := NewGradientBoosting(params)
	if err := a.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	predA, _ := a.Predict(X)
	predB, _ := b.Predict(X)
	n, _ := predA.Dims()
	for i := 0; i < n; i++ {
		if predA.At(i, 0) != predB.At(i, 0) {
			t.Fatalf("same seed produced different predictions at row %d", i)
		}
	}
}

func TestGradientBoostingFeatureImportances(t *testing.T) {
	X, y := ageLikeData(300)

	gb := NewGradientBoosting(GBParams{NumIterations: 30, Seed: 1})
	if err := gb.Fit(X, y); err != nil {
		t.Fatal(err)
	}

	imp := gb.FeatureImportances()
	if len(imp) != 2 {
		t.Fatalf("importances length = %d, want 2", len(imp))
	}
	sum := 0.0
	for _, v := range imp {
		if v < 0 {
			t.Errorf("negative importance %v", v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("importances sum to %v, want 1", sum)
	}
	// x1 dominates the target and should carry more gain than x2.
	if imp[0] <= imp[1] {
		t.Errorf("importances = %v, want feature 0 to dominate", imp)
	}
}

func TestGradientBoostingErrors(t *testing.T) {
	gb := NewGradientBoosting(GBParams{})
	if _, err := gb.Predict(mat.NewDense(1, 1, []float64{1})); err == nil {
		t.Error("Predict() before Fit should fail")
	}

	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	if err := gb.Fit(X, mat.NewDense(2, 1, []float64{1, 2})); err == nil {
		t.Error("Fit() with mismatched rows should fail")
	}
}

func TestGradientBoostingKind(t *testing.T) {
	gb := NewGradientBoosting(GBParams{})
	if gb.Kind() != "tree_ensemble" {
		t.Errorf("Kind() = %s, want tree_ensemble", gb.Kind())
	}
}
