package evaluation

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/bioforge/organclock/core/model"
	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
)

// CVResult summarizes k-fold cross-validation: per-fold metrics plus
// their mean and standard deviation.
type CVResult struct {
	Folds []Metrics
	Mean  Metrics
	Std   Metrics
}

// CrossValidate runs k-fold cross-validation with a shuffled, seeded fold
// assignment. The builder must return a fresh unfitted estimator per fold.
func CrossValidate(X *mat.Dense, y *mat.VecDense, k int, seed int64, builder func() model.Regressor) (*CVResult, error) {
	n, c := X.Dims()
	if n == 0 {
		return nil, errors.NewModelError("CrossValidate", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != n {
		return nil, errors.NewDimensionError("CrossValidate", n, y.Len(), 0)
	}
	if k < 2 || k > n {
		return nil, errors.NewValidationError("k", "fold count must be in [2, n_samples]", k)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })

	result := &CVResult{}
	for fold := 0; fold < k; fold++ {
		lo := fold * n / k
		hi := (fold + 1) * n / k
		testIdx := indices[lo:hi]
		trainIdx := append(append([]int(nil), indices[:lo]...), indices[hi:]...)

		trainX, trainY := copyRows(X, y, trainIdx, c)
		testX, testY := copyRows(X, y, testIdx, c)

		m := builder()
		if err := m.Fit(trainX, trainY); err != nil {
			return nil, errors.Wrapf(err, "cross-validation fold %d", fold)
		}
		foldMetrics, err := EvaluateModel(m, testX, testY, "cv")
		if err != nil {
			return nil, errors.Wrapf(err, "cross-validation fold %d", fold)
		}
		result.Folds = append(result.Folds, foldMetrics)
	}

	result.Mean, result.Std = summarize(result.Folds)
	log.With("evaluation").Info().
		Int("folds", k).
		Float64("mae_mean", result.Mean.MAE).
		Float64("r2_mean", result.Mean.R2).
		Msg("cross-validation complete")
	return result, nil
}

func copyRows(X *mat.Dense, y *mat.VecDense, idx []int, c int) (*mat.Dense, *mat.VecDense) {
	outX := mat.NewDense(len(idx), c, nil)
	outY := mat.NewVecDense(len(idx), nil)
	for k, i := range idx {
		for j := 0; j < c; j++ {
			outX.Set(k, j, X.At(i, j))
		}
		outY.SetVec(k, y.AtVec(i))
	}
	return outX, outY
}

func summarize(folds []Metrics) (mean, std Metrics) {
	n := float64(len(folds))
	for _, f := range folds {
		mean.MAE += f.MAE
		mean.RMSE += f.RMSE
		mean.R2 += f.R2
	}
	mean.MAE /= n
	mean.RMSE /= n
	mean.R2 /= n

	for _, f := range folds {
		std.MAE += (f.MAE - mean.MAE) * (f.MAE - mean.MAE)
		std.RMSE += (f.RMSE - mean.RMSE) * (f.RMSE - mean.RMSE)
		std.R2 += (f.R2 - mean.R2) * (f.R2 - mean.R2)
	}
	std.MAE = math.Sqrt(std.MAE / n)
	std.RMSE = math.Sqrt(std.RMSE / n)
	std.R2 = math.Sqrt(std.R2 / n)
	return mean, std
}
