package explain

import (
	"gonum.org/v1/gonum/mat"

	"github.com/bioforge/organclock/core/model"
	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/regression"
)

// SHAPResult holds per-sample additive attributions. For row i,
// BaseValue + sum over Values row i reconstructs the model prediction
// (exactly for linear models, approximately for tree ensembles).
type SHAPResult struct {
	// BaseValue is the expected prediction over the background set.
	BaseValue float64

	// Values is n_samples × n_features.
	Values *mat.Dense
}

// SHAPValues computes additive feature attributions, dispatching on the
// tagged model kind. Linear models get the exact linear explainer; tree
// ensembles get path-dependent attribution with node expectations
// estimated from the background set. The background is the first
// backgroundCap rows of X (all rows when the cap is zero or larger
// than n).
func SHAPValues(m model.Regressor, X *mat.Dense, backgroundCap int) (*SHAPResult, error) {
	n, _ := X.Dims()
	if n == 0 {
		return nil, errors.NewModelError("SHAPValues", "empty data", errors.ErrEmptyData)
	}

	nBg := n
	if backgroundCap > 0 && backgroundCap < n {
		nBg = backgroundCap
	}
	background := X.Slice(0, nBg, 0, X.RawMatrix().Cols).(*mat.Dense)

	switch m.Kind() {
	case model.KindLinear:
		return linearSHAP(m, X, background)
	case model.KindTreeEnsemble:
		gb, ok := m.(*regression.GradientBoosting)
		if !ok {
			return nil, errors.NewValidationError("model", "tree explainer requires the built-in boosting model", string(m.Kind()))
		}
		return treeSHAP(gb, X, background), nil
	default:
		return nil, errors.NewValidationError("model", "unsupported model kind for SHAP", string(m.Kind()))
	}
}

// linearSHAP attributes w_j * (x_ij - E[x_j]) to each feature, which is
// exact for a linear model.
func linearSHAP(m model.Regressor, X, background *mat.Dense) (*SHAPResult, error) {
	cm, ok := m.(coefficientModel)
	if !ok {
		return nil, errors.NewValidationError("model", "linear model exposes no coefficients", m.Kind())
	}
	coefs := cm.Coefficients()

	n, c := X.Dims()
	nBg, _ := background.Dims()
	if len(coefs) != c {
		return nil, errors.NewDimensionError("SHAPValues", c, len(coefs), 1)
	}

	bgMean := make([]float64, c)
	for j := 0; j < c; j++ {
		for i := 0; i < nBg; i++ {
			bgMean[j] += background.At(i, j)
		}
		bgMean[j] /= float64(nBg)
	}

	pred, err := m.Predict(background)
	if err != nil {
		return nil, err
	}
	base := 0.0
	for i := 0; i < nBg; i++ {
		base += pred.At(i, 0)
	}
	base /= float64(nBg)

	values := mat.NewDense(n, c, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			values.Set(i, j, coefs[j]*(X.At(i, j)-bgMean[j]))
		}
	}
	return &SHAPResult{BaseValue: base, Values: values}, nil
}

// treeSHAP walks each sample down every tree and credits the change in
// the node's background-estimated expectation to the split feature.
func treeSHAP(gb *regression.GradientBoosting, X, background *mat.Dense) *SHAPResult {
	n, c := X.Dims()
	values := mat.NewDense(n, c, nil)
	base := gb.InitScore
	lr := gb.Params.LearningRate

	for t := range gb.Trees {
		tree := &gb.Trees[t]
		expect := nodeExpectations(tree, background)
		base += lr * expect[0]

		for i := 0; i < n; i++ {
			idx := 0
			for {
				node := tree.Nodes[idx]
				if node.Leaf {
					break
				}
				next := node.Right
				if X.At(i, node.Feature) <= node.Threshold {
					next = node.Left
				}
				delta := lr * (expect[next] - expect[idx])
				values.Set(i, node.Feature, values.At(i, node.Feature)+delta)
				idx = next
			}
		}
	}
	return &SHAPResult{BaseValue: base, Values: values}
}

// nodeExpectations estimates E[tree output | reaching node] per node from
// the background rows. Nodes no background row reaches fall back to the
// unweighted mean of their children.
func nodeExpectations(tree *regression.GBTree, background *mat.Dense) []float64 {
	nBg, _ := background.Dims()
	sums := make([]float64, len(tree.Nodes))
	counts := make([]int, len(tree.Nodes))

	for i := 0; i < nBg; i++ {
		path := pathTo(tree, background, i)
		leaf := tree.Nodes[path[len(path)-1]].Value
		for _, p := range path {
			sums[p] += leaf
			counts[p]++
		}
	}

	expect := make([]float64, len(tree.Nodes))
	fillExpectation(tree, 0, sums, counts, expect)
	return expect
}

// pathTo returns the node indices visited by background row i, root to leaf.
func pathTo(tree *regression.GBTree, background *mat.Dense, i int) []int {
	var path []int
	idx := 0
	for {
		path = append(path, idx)
		node := tree.Nodes[idx]
		if node.Leaf {
			return path
		}
		if background.At(i, node.Feature) <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

func fillExpectation(tree *regression.GBTree, idx int, sums []float64, counts []int, expect []float64) float64 {
	node := tree.Nodes[idx]
	if counts[idx] > 0 {
		expect[idx] = sums[idx] / float64(counts[idx])
		if !node.Leaf {
			fillExpectation(tree, node.Left, sums, counts, expect)
			fillExpectation(tree, node.Right, sums, counts, expect)
		}
		return expect[idx]
	}
	if node.Leaf {
		expect[idx] = node.Value
		return expect[idx]
	}
	left := fillExpectation(tree, node.Left, sums, counts, expect)
	right := fillExpectation(tree, node.Right, sums, counts, expect)
	expect[idx] = (left + right) / 2
	return expect[idx]
}
