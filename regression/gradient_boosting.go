package regression

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/bioforge/organclock/core/model"
	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
)

// GBParams holds the gradient boosting hyperparameters.
type GBParams struct {
	// NumIterations is the number of boosting rounds.
	NumIterations int
	// LearningRate shrinks each tree's contribution.
	LearningRate float64
	// MaxDepth bounds tree depth; 0 means unbounded.
	MaxDepth int
	// MinSamplesLeaf is the minimum sample count per leaf.
	MinSamplesLeaf int
	// Lambda is the L2 regularization on leaf values.
	Lambda float64
	// MaxBins caps the number of histogram bins per feature.
	MaxBins int
	// Subsample is the row sampling fraction per round.
	Subsample float64
	// Seed drives row subsampling.
	Seed int64
}

// DefaultGBParams mirrors the defaults used for organ clocks.
func DefaultGBParams() GBParams {
	return GBParams{
		NumIterations:  100,
		LearningRate:   0.1,
		MaxDepth:       10,
		MinSamplesLeaf: 20,
		Lambda:         1.0,
		MaxBins:        255,
		Subsample:      1.0,
		Seed:           42,
	}
}

// GBNode is one node of a regression tree. Leaves carry Value; internal
// nodes route on Feature <= Threshold.
type GBNode struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Leaf      bool
	Value     float64
	Gain      float64
}

// GBTree is a single regression tree stored as a node array.
type GBTree struct {
	Nodes []GBNode
}

// GradientBoosting is a histogram gradient boosting regressor with
// squared loss. Features are discretized into at most MaxBins bins;
// split search scans gradient/hessian histograms per node.
type GradientBoosting struct {
	model.BaseEstimator

	Params    GBParams
	InitScore float64
	Trees     []GBTree
	NFeatures int

	// GainImportance accumulates split gain per feature across all trees.
	GainImportance []float64
}

// NewGradientBoosting creates a regressor with the given parameters;
// zero-valued fields fall back to the defaults.
func NewGradientBoosting(params GBParams) *GradientBoosting {
	def := DefaultGBParams()
	if params.NumIterations <= 0 {
		params.NumIterations = def.NumIterations
	}
	if params.LearningRate <= 0 {
		params.LearningRate = def.LearningRate
	}
	if params.MinSamplesLeaf <= 0 {
		params.MinSamplesLeaf = def.MinSamplesLeaf
	}
	if params.MaxBins <= 0 {
		params.MaxBins = def.MaxBins
	}
	if params.Subsample <= 0 || params.Subsample > 1 {
		params.Subsample = def.Subsample
	}
	if params.Lambda < 0 {
		params.Lambda = def.Lambda
	}
	return &GradientBoosting{Params: params}
}

// Kind reports the tagged model family.
func (gb *GradientBoosting) Kind() model.Kind {
	return model.KindTreeEnsemble
}

// trainState holds the transient structures used while fitting.
type trainState struct {
	binned    [][]int     // [row][feature] bin index
	binUpper  [][]float64 // [feature][bin] upper bound value
	gradients []float64
	hessians  []float64
}

// Fit trains the ensemble.
func (gb *GradientBoosting) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("GradientBoosting.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("GradientBoosting.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("GradientBoosting.Fit", "y must be a column vector")
	}

	gb.NFeatures = c
	gb.Trees = nil
	gb.GainImportance = make([]float64, c)

	st := &trainState{
		gradients: make([]float64, r),
		hessians:  make([]float64, r),
	}
	gb.binFeatures(X, st)

	targets := make([]float64, r)
	for i := 0; i < r; i++ {
		targets[i] = y.At(i, 0)
	}

	// Squared loss: the optimal constant is the mean.
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	gb.InitScore = sum / float64(r)

	predictions := make([]float64, r)
	for i := range predictions {
		predictions[i] = gb.InitScore
	}

	rng := rand.New(rand.NewSource(gb.Params.Seed))
	logger := log.With("trainer")

	for iter := 0; iter < gb.Params.NumIterations; iter++ {
		for i := 0; i < r; i++ {
			st.gradients[i] = predictions[i] - targets[i]
			st.hessians[i] = 1.0
		}

		indices := allRows(r)
		if gb.Params.Subsample < 1 {
			rng.Shuffle(len(indices), func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
			keep := int(math.Round(gb.Params.Subsample * float64(r)))
			if keep < 1 {
				keep = 1
			}
			indices = indices[:keep]
		}

		tree := GBTree{}
		gb.buildNode(&tree, st, indices, 0)
		gb.Trees = append(gb.Trees, tree)

		// Update cached predictions with the shrunken tree output.
		for i := 0; i < r; i++ {
			predictions[i] += gb.Params.LearningRate * gb.evalTreeBinned(&tree, st, i)
		}

		if iter%25 == 0 {
			loss := 0.0
			for i := 0; i < r; i++ {
				d := predictions[i] - targets[i]
				loss += d * d
			}
			logger.Debug().Int("iteration", iter).Float64("loss", loss/float64(r)).Msg("boosting progress")
		}
	}

	gb.SetFitted()
	return nil
}

// binFeatures discretizes each feature into equal-frequency bins over its
// unique values, capped at MaxBins.
func (gb *GradientBoosting) binFeatures(X mat.Matrix, st *trainState) {
	r, c := X.Dims()
	st.binUpper = make([][]float64, c)
	st.binned = make([][]int, r)
	for i := 0; i < r; i++ {
		st.binned[i] = make([]int, c)
	}

	for j := 0; j < c; j++ {
		values := make([]float64, r)
		for i := 0; i < r; i++ {
			values[i] = X.At(i, j)
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)

		unique := sorted[:0:0]
		for i, v := range sorted {
			if i == 0 || v != sorted[i-1] {
				unique = append(unique, v)
			}
		}

		var upper []float64
		if len(unique) <= gb.Params.MaxBins {
			upper = unique
		} else {
			step := len(unique) / gb.Params.MaxBins
			for i := step - 1; i < len(unique); i += step {
				upper = append(upper, unique[i])
			}
			if upper[len(upper)-1] != unique[len(unique)-1] {
				upper = append(upper, unique[len(unique)-1])
			}
		}
		st.binUpper[j] = upper

		for i := 0; i < r; i++ {
			st.binned[i][j] = sort.SearchFloat64s(upper, values[i])
			if st.binned[i][j] >= len(upper) {
				st.binned[i][j] = len(upper) - 1
			}
		}
	}
}

// buildNode grows the tree from a node's sample set and returns the node
// index.
func (gb *GradientBoosting) buildNode(tree *GBTree, st *trainState, indices []int, depth int) int {
	nodeIdx := len(tree.Nodes)

	sumGrad, sumHess := 0.0, 0.0
	for _, i := range indices {
		sumGrad += st.gradients[i]
		sumHess += st.hessians[i]
	}

	makeLeaf := func() int {
		tree.Nodes = append(tree.Nodes, GBNode{
			Leaf:  true,
			Value: -sumGrad / (sumHess + gb.Params.Lambda + 1e-10),
			Left:  -1, Right: -1,
		})
		return nodeIdx
	}

	if (gb.Params.MaxDepth > 0 && depth >= gb.Params.MaxDepth) ||
		len(indices) < 2*gb.Params.MinSamplesLeaf {
		return makeLeaf()
	}

	feature, bin, gain := gb.findBestSplit(st, indices, sumGrad, sumHess)
	if gain <= 0 {
		return makeLeaf()
	}

	var left, right []int
	for _, i := range indices {
		if st.binned[i][feature] <= bin {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	tree.Nodes = append(tree.Nodes, GBNode{
		Feature:   feature,
		Threshold: st.binUpper[feature][bin],
		Gain:      gain,
		Left:      -1, Right: -1,
	})
	gb.GainImportance[feature] += gain

	leftIdx := gb.buildNode(tree, st, left, depth+1)
	rightIdx := gb.buildNode(tree, st, right, depth+1)
	tree.Nodes[nodeIdx].Left = leftIdx
	tree.Nodes[nodeIdx].Right = rightIdx
	return nodeIdx
}

// findBestSplit scans gradient/hessian histograms for the highest-gain
// split. Gain follows the regularized boosting formula
// ½(G_L²/(H_L+λ) + G_R²/(H_R+λ) − G²/(H+λ)).
func (gb *GradientBoosting) findBestSplit(st *trainState, indices []int, totalGrad, totalHess float64) (int, int, float64) {
	bestFeature, bestBin := -1, -1
	bestGain := 0.0
	lambda := gb.Params.Lambda

	for j := 0; j < gb.NFeatures; j++ {
		nBins := len(st.binUpper[j])
		if nBins < 2 {
			continue
		}

		histGrad := make([]float64, nBins)
		histHess := make([]float64, nBins)
		histCount := make([]int, nBins)
		for _, i := range indices {
			b := st.binned[i][j]
			histGrad[b] += st.gradients[i]
			histHess[b] += st.hessians[i]
			histCount[b]++
		}

		leftGrad, leftHess, leftCount := 0.0, 0.0, 0
		parentScore := totalGrad * totalGrad / (totalHess + lambda)
		for b := 0; b < nBins-1; b++ {
			leftGrad += histGrad[b]
			leftHess += histHess[b]
			leftCount += histCount[b]

			rightCount := len(indices) - leftCount
			if leftCount < gb.Params.MinSamplesLeaf || rightCount < gb.Params.MinSamplesLeaf {
				continue
			}

			rightGrad := totalGrad - leftGrad
			rightHess := totalHess - leftHess
			gain := 0.5 * (leftGrad*leftGrad/(leftHess+lambda) +
				rightGrad*rightGrad/(rightHess+lambda) - parentScore)

			if gain > bestGain {
				bestGain = gain
				bestFeature = j
				bestBin = b
			}
		}
	}
	return bestFeature, bestBin, bestGain
}

// evalTreeBinned routes a training row through a tree using bin indices.
func (gb *GradientBoosting) evalTreeBinned(tree *GBTree, st *trainState, row int) float64 {
	idx := 0
	for {
		node := tree.Nodes[idx]
		if node.Leaf {
			return node.Value
		}
		b := st.binned[row][node.Feature]
		if st.binUpper[node.Feature][b] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

// Predict returns ensemble predictions for X.
func (gb *GradientBoosting) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !gb.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoosting", "Predict")
	}

	r, c := X.Dims()
	if c != gb.NFeatures {
		return nil, errors.NewDimensionError("GradientBoosting.Predict", gb.NFeatures, c, 1)
	}

	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred := gb.InitScore
		for t := range gb.Trees {
			pred += gb.Params.LearningRate * evalTree(&gb.Trees[t], X, i)
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

func evalTree(tree *GBTree, X mat.Matrix, row int) float64 {
	idx := 0
	for {
		node := tree.Nodes[idx]
		if node.Leaf {
			return node.Value
		}
		if X.At(row, node.Feature) <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

// FeatureImportances returns the per-feature split gains normalized to
// sum to one, or all zeros for a stump-free ensemble.
func (gb *GradientBoosting) FeatureImportances() []float64 {
	out := make([]float64, len(gb.GainImportance))
	total := 0.0
	for _, g := range gb.GainImportance {
		total += g
	}
	if total == 0 {
		return out
	}
	for i, g := range gb.GainImportance {
		out[i] = g / total
	}
	return out
}

func allRows(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
