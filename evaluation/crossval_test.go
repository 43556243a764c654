package evaluation

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/bioforge/organclock/core/model"
	"github.com/bioforge/organclock/regression"
)

func linearData(n int) (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y.SetVec(i, 2+3*float64(i))
	}
	return X, y
}

func TestCrossValidateLinear(t *testing.T) {
	X, y := linearData(30)

	result, err := CrossValidate(X, y, 5, 42, func() model.Regressor {
		return regression.NewLinearRegression()
	})
	if err != nil {
		t.Fatalf("CrossValidate() error = %v", err)
	}

	if len(result.Folds) != 5 {
		t.Fatalf("folds = %d, want 5", len(result.Folds))
	}
	// The relationship is exactly linear, so every fold fits it perfectly.
	if math.Abs(result.Mean.R2-1) > 1e-8 {
		t.Errorf("mean R2 = %v, want 1", result.Mean.R2)
	}
	if result.Mean.MAE > 1e-8 {
		t.Errorf("mean MAE = %v, want ~0", result.Mean.MAE)
	}
}

func TestCrossValidateDeterministic(t *testing.T) {
	X, y := linearData(20)
	build := func() model.Regressor { return regression.NewLinearRegression() }

	a, err := CrossValidate(X, y, 4, 7, build)
	if err != nil {
		t.Fatal(err)
	}
	b, err := CrossValidate(X, y, 4, 7, build)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Folds {
		if a.Folds[i].MAE != b.Folds[i].MAE {
			t.Fatalf("same seed produced different folds at %d", i)
		}
	}
}

func TestCrossValidateBadFoldCount(t *testing.T) {
	X, y := linearData(10)
	build := func() model.Regressor { return regression.NewLinearRegression() }

	if _, err := CrossValidate(X, y, 1, 0, build); err == nil {
		t.Error("k=1 should fail")
	}
	if _, err := CrossValidate(X, y, 11, 0, build); err == nil {
		t.Error("k greater than n should fail")
	}
}
