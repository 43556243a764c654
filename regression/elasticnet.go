package regression

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/bioforge/organclock/core/model"
	"github.com/bioforge/organclock/pkg/errors"
)

// ElasticNet is a linear regressor with combined L1/L2 regularization,
// minimizing
//
//	1/(2n) ||y - Xw - b||² + alpha*l1Ratio*||w||₁ + alpha*(1-l1Ratio)/2*||w||²
//
// by cyclic coordinate descent. The updates are deterministic; no seed is
// involved.
type ElasticNet struct {
	model.BaseEstimator

	// Alpha is the overall regularization strength.
	Alpha float64

	// L1Ratio mixes the penalties: 1 is pure lasso, 0 pure ridge.
	L1Ratio float64

	// MaxIter bounds the number of full coordinate sweeps.
	MaxIter int

	// Tol stops iteration when the largest coefficient update falls
	// below it.
	Tol float64

	// Weights holds the learned coefficients.
	Weights []float64

	// Intercept is the learned bias term.
	Intercept float64

	// NFeatures is the number of features seen at fit time.
	NFeatures int

	// NIter is the number of sweeps actually run.
	NIter int
}

// NewElasticNet creates an ElasticNet with the given regularization.
// Non-positive maxIter and tol fall back to 1000 and 1e-4.
func NewElasticNet(alpha, l1Ratio float64, maxIter int, tol float64) *ElasticNet {
	if maxIter <= 0 {
		maxIter = 1000
	}
	if tol <= 0 {
		tol = 1e-4
	}
	return &ElasticNet{Alpha: alpha, L1Ratio: l1Ratio, MaxIter: maxIter, Tol: tol}
}

// Kind reports the tagged model family.
func (en *ElasticNet) Kind() model.Kind {
	return model.KindLinear
}

// Fit runs coordinate descent on centered data; the intercept absorbs the
// means afterwards.
func (en *ElasticNet) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("ElasticNet.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("ElasticNet.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("ElasticNet.Fit", "y must be a column vector")
	}
	if en.L1Ratio < 0 || en.L1Ratio > 1 {
		return errors.NewValidationError("l1_ratio", "must be in [0, 1]", en.L1Ratio)
	}

	en.NFeatures = c
	n := float64(r)

	// Center X and y so the intercept drops out of the penalty.
	colMean := make([]float64, c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			colMean[j] += X.At(i, j)
		}
		colMean[j] /= n
	}
	yMean := 0.0
	for i := 0; i < r; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= n

	xc := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			xc.Set(i, j, X.At(i, j)-colMean[j])
		}
	}

	// Residuals start at centered y for w = 0.
	residual := make([]float64, r)
	for i := 0; i < r; i++ {
		residual[i] = y.At(i, 0) - yMean
	}

	// Per-feature second moments, fixed across sweeps.
	colSq := make([]float64, c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			v := xc.At(i, j)
			colSq[j] += v * v
		}
		colSq[j] /= n
	}

	w := make([]float64, c)
	l1 := en.Alpha * en.L1Ratio
	l2 := en.Alpha * (1 - en.L1Ratio)

	for iter := 0; iter < en.MaxIter; iter++ {
		maxDelta := 0.0
		for j := 0; j < c; j++ {
			if colSq[j] == 0 {
				continue
			}
			// rho = (1/n) x_j · (residual + x_j w_j)
			rho := 0.0
			for i := 0; i < r; i++ {
				rho += xc.At(i, j) * residual[i]
			}
			rho = rho/n + colSq[j]*w[j]

			updated := softThreshold(rho, l1) / (colSq[j] + l2)
			delta := updated - w[j]
			if delta != 0 {
				for i := 0; i < r; i++ {
					residual[i] -= xc.At(i, j) * delta
				}
				w[j] = updated
			}
			if math.Abs(delta) > maxDelta {
				maxDelta = math.Abs(delta)
			}
		}
		en.NIter = iter + 1
		if maxDelta < en.Tol {
			break
		}
	}

	en.Weights = w
	en.Intercept = yMean
	for j := 0; j < c; j++ {
		en.Intercept -= w[j] * colMean[j]
	}

	en.SetFitted()
	return nil
}

// Predict returns fitted values for X.
func (en *ElasticNet) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !en.IsFitted() {
		return nil, errors.NewNotFittedError("ElasticNet", "Predict")
	}

	r, c := X.Dims()
	if c != en.NFeatures {
		return nil, errors.NewDimensionError("ElasticNet.Predict", en.NFeatures, c, 1)
	}

	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred := en.Intercept
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * en.Weights[j]
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

// Coefficients returns a copy of the learned weights.
func (en *ElasticNet) Coefficients() []float64 {
	return append([]float64(nil), en.Weights...)
}

func softThreshold(z, gamma float64) float64 {
	switch {
	case z > gamma:
		return z - gamma
	case z < -gamma:
		return z + gamma
	default:
		return 0
	}
}
