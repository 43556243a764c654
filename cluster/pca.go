// Package cluster groups individuals by their organ age-gap profiles:
// PCA (and optional UMAP) embeddings for visualization, k-means and
// DBSCAN clustering, and the merge of cluster labels back into the
// survey table.
package cluster

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
	"github.com/bioforge/organclock/preprocessing"
)

// PCAResult holds a fitted principal component projection.
type PCAResult struct {
	// Scores is n_samples × nComponents.
	Scores *mat.Dense

	// ExplainedVarianceRatio is the per-component share of total variance.
	ExplainedVarianceRatio []float64

	// CumulativeVariance is the running sum of the ratios.
	CumulativeVariance []float64
}

// ApplyPCA projects X onto its first nComponents principal components.
// When scale is true the input is standardized first, so components are
// driven by correlation rather than raw gap magnitude.
func ApplyPCA(X *mat.Dense, nComponents int, scale bool) (*PCAResult, error) {
	n, c := X.Dims()
	if n == 0 || c == 0 {
		return nil, errors.NewModelError("ApplyPCA", "empty data", errors.ErrEmptyData)
	}
	if nComponents <= 0 || nComponents > c {
		return nil, errors.NewValidationError("n_components", "must be in [1, n_features]", nComponents)
	}
	if n < 2 {
		return nil, errors.NewValueError("ApplyPCA", "need at least two samples")
	}

	input := X
	if scale {
		scaler := preprocessing.NewStandardScaler()
		scaled, err := scaler.FitTransform(X)
		if err != nil {
			return nil, err
		}
		input = scaled.(*mat.Dense)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(input, nil); !ok {
		return nil, errors.NewModelError("ApplyPCA", "principal component decomposition failed", errors.ErrSingularMatrix)
	}

	var vectors mat.Dense
	pc.VectorsTo(&vectors)
	variances := pc.VarsTo(nil)

	total := 0.0
	for _, v := range variances {
		total += v
	}
	ratios := make([]float64, nComponents)
	cumulative := make([]float64, nComponents)
	running := 0.0
	for i := 0; i < nComponents; i++ {
		if total > 0 {
			ratios[i] = variances[i] / total
		}
		running += ratios[i]
		cumulative[i] = running
	}

	// Center, then project onto the leading components.
	colMean := make([]float64, c)
	for j := 0; j < c; j++ {
		for i := 0; i < n; i++ {
			colMean[j] += input.At(i, j)
		}
		colMean[j] /= float64(n)
	}
	centered := mat.NewDense(n, c, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			centered.Set(i, j, input.At(i, j)-colMean[j])
		}
	}

	scores := mat.NewDense(n, nComponents, nil)
	scores.Mul(centered, vectors.Slice(0, c, 0, nComponents))

	log.With("cluster").Info().
		Int("components", nComponents).
		Float64("explained_variance", cumulative[nComponents-1]).
		Msg("pca projection computed")
	return &PCAResult{
		Scores:                 scores,
		ExplainedVarianceRatio: ratios,
		CumulativeVariance:     cumulative,
	}, nil
}
