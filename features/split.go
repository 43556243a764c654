package features

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/bioforge/organclock/core/model"
	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
	"github.com/bioforge/organclock/preprocessing"
)

// Scaler kinds accepted by ScaleSplit.
const (
	ScalerStandard = "standard"
	ScalerRobust   = "robust"
)

// Split is a row-disjoint train/validation/test partition of one organ
// dataset.
type Split struct {
	XTrain, XVal, XTest *mat.Dense
	YTrain, YVal, YTest *mat.VecDense

	// TrainIdx, ValIdx and TestIdx are row indices into the source
	// dataset; they are pairwise disjoint and union to the full set.
	TrainIdx, ValIdx, TestIdx []int
}

// SplitTrainValTest partitions X and y by two sequential random splits:
// the test fraction is carved out first, then the remainder is split with
// an adjusted validation fraction valFrac/(trainFrac+valFrac) so the
// final proportions match the requested ones. A positive stratifyBins
// discretizes age into that many equal-width bins and preserves the split
// proportions within each bin. The seed makes the partition reproducible.
func SplitTrainValTest(X *mat.Dense, y *mat.VecDense, trainFrac, valFrac float64, seed int64, stratifyBins int) (*Split, error) {
	n, _ := X.Dims()
	if n == 0 {
		return nil, errors.NewModelError("SplitTrainValTest", "empty data", errors.ErrEmptyData)
	}
	if y.Len() != n {
		return nil, errors.NewDimensionError("SplitTrainValTest", n, y.Len(), 0)
	}
	testFrac := 1 - trainFrac - valFrac
	if testFrac < 0 {
		return nil, errors.NewValidationError("train_size", "train_size + val_size must be <= 1", trainFrac+valFrac)
	}

	rng := rand.New(rand.NewSource(seed))

	groups := [][]int{allIndices(n)}
	if stratifyBins > 0 {
		groups = binIndices(y, stratifyBins)
	}

	s := &Split{}
	for _, group := range groups {
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })

		nTest := int(math.Round(testFrac * float64(len(group))))
		remainder := group[nTest:]
		valAdjusted := 0.0
		if trainFrac+valFrac > 0 {
			valAdjusted = valFrac / (trainFrac + valFrac)
		}
		nVal := int(math.Round(valAdjusted * float64(len(remainder))))

		s.TestIdx = append(s.TestIdx, group[:nTest]...)
		s.ValIdx = append(s.ValIdx, remainder[:nVal]...)
		s.TrainIdx = append(s.TrainIdx, remainder[nVal:]...)
	}

	s.XTrain, s.YTrain = takeRows(X, y, s.TrainIdx)
	s.XVal, s.YVal = takeRows(X, y, s.ValIdx)
	s.XTest, s.YTest = takeRows(X, y, s.TestIdx)

	log.With("features").Info().
		Int("train", len(s.TrainIdx)).
		Int("val", len(s.ValIdx)).
		Int("test", len(s.TestIdx)).
		Msg("split sizes")
	return s, nil
}

// ScaleSplit fits a scaler of the requested kind on the training partition
// and applies the frozen fit to validation and test. Returns a new Split;
// the input is not modified.
func ScaleSplit(s *Split, kind string) (*Split, model.Transformer, error) {
	var scaler model.Transformer
	switch kind {
	case ScalerStandard:
		scaler = preprocessing.NewStandardScaler()
	case ScalerRobust:
		scaler = preprocessing.NewRobustScaler()
	default:
		return nil, nil, errors.NewValidationError("method", "unknown scaling method, use standard or robust", kind)
	}

	scaled := &Split{
		YTrain: s.YTrain, YVal: s.YVal, YTest: s.YTest,
		TrainIdx: s.TrainIdx, ValIdx: s.ValIdx, TestIdx: s.TestIdx,
	}

	train, err := scaler.FitTransform(s.XTrain)
	if err != nil {
		return nil, nil, err
	}
	scaled.XTrain = train.(*mat.Dense)

	for _, part := range []struct {
		in  *mat.Dense
		out **mat.Dense
	}{{s.XVal, &scaled.XVal}, {s.XTest, &scaled.XTest}} {
		if part.in == nil {
			continue
		}
		if r, _ := part.in.Dims(); r == 0 {
			*part.out = part.in
			continue
		}
		m, err := scaler.Transform(part.in)
		if err != nil {
			return nil, nil, err
		}
		*part.out = m.(*mat.Dense)
	}

	log.With("features").Info().Str("scaler", kind).Msg("features scaled")
	return scaled, scaler, nil
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// binIndices buckets rows by equal-width age bins over [min, max].
func binIndices(y *mat.VecDense, bins int) [][]int {
	n := y.Len()
	minAge, maxAge := y.AtVec(0), y.AtVec(0)
	for i := 1; i < n; i++ {
		v := y.AtVec(i)
		if v < minAge {
			minAge = v
		}
		if v > maxAge {
			maxAge = v
		}
	}

	groups := make([][]int, bins)
	width := (maxAge - minAge) / float64(bins)
	for i := 0; i < n; i++ {
		b := 0
		if width > 0 {
			b = int((y.AtVec(i) - minAge) / width)
			if b >= bins {
				b = bins - 1
			}
		}
		groups[b] = append(groups[b], i)
	}

	out := groups[:0:0]
	for _, g := range groups {
		if len(g) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// takeRows copies the indexed rows into new matrices. An empty index set
// yields nil matrices; downstream stages treat a nil partition as absent.
func takeRows(X *mat.Dense, y *mat.VecDense, idx []int) (*mat.Dense, *mat.VecDense) {
	if len(idx) == 0 {
		return nil, nil
	}
	_, c := X.Dims()
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
