// Package regression implements the age-prediction estimators: ordinary
// least squares, elastic net, and histogram gradient boosting, plus the
// per-organ training entry points that persist fitted models.
package regression

import (
	"gonum.org/v1/gonum/mat"

	"github.com/bioforge/organclock/core/model"
	"github.com/bioforge/organclock/pkg/errors"
)

func init() {
	model.RegisterModel(&LinearRegression{})
	model.RegisterModel(&ElasticNet{})
	model.RegisterModel(&GradientBoosting{})
}

// LinearRegression is an ordinary least squares regressor.
type LinearRegression struct {
	model.BaseEstimator

	// Weights holds the learned coefficients.
	Weights []float64

	// Intercept is the learned bias term.
	Intercept float64

	// NFeatures is the number of features seen at fit time.
	NFeatures int
}

// NewLinearRegression creates an unfitted LinearRegression.
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

// Kind reports the tagged model family.
func (lr *LinearRegression) Kind() model.Kind {
	return model.KindLinear
}

// Fit solves the least squares problem with an intercept column via QR.
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("LinearRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}

	lr.NFeatures = c

	// Design matrix with a leading column of ones for the intercept.
	design := mat.NewDense(r, c+1, nil)
	for i := 0; i < r; i++ {
		design.Set(i, 0, 1.0)
		for j := 0; j < c; j++ {
			design.Set(i, j+1, X.At(i, j))
		}
	}

	yDense := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		yDense.Set(i, 0, y.At(i, 0))
	}

	var solution mat.Dense
	if err := solution.Solve(design, yDense); err != nil {
		return errors.NewModelError("LinearRegression.Fit", "singular design matrix", errors.ErrSingularMatrix)
	}

	lr.Intercept = solution.At(0, 0)
	lr.Weights = make([]float64, c)
	for j := 0; j < c; j++ {
		lr.Weights[j] = solution.At(j+1, 0)
	}

	lr.SetFitted()
	return nil
}

// Predict returns fitted values for X.
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !lr.IsFitted() {
		return nil, errors.NewNotFittedError("LinearRegression", "Predict")
	}

	r, c := X.Dims()
	if c != lr.NFeatures {
		return nil, errors.NewDimensionError("LinearRegression.Predict", lr.NFeatures, c, 1)
	}

	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred := lr.Intercept
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * lr.Weights[j]
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

// Coefficients returns a copy of the learned weights.
func (lr *LinearRegression) Coefficients() []float64 {
	return append([]float64(nil), lr.Weights...)
}

// GetIntercept returns the learned intercept, or 0 before fitting.
func (lr *LinearRegression) GetIntercept() float64 {
	if !lr.IsFitted() {
		return 0
	}
	return lr.Intercept
}
