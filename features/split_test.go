package features

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func syntheticData(n int) (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%7))
		y.SetVec(i, 20+float64(i%60))
	}
	return X, y
}

func TestSplitTrainValTestSizes(t *testing.T) {
	X, y := syntheticData(100)

	s, err := SplitTrainValTest(X, y, 0.6, 0.2, 42, 0)
	if err != nil {
		t.Fatalf("SplitTrainValTest() error = %v", err)
	}

	if got := len(s.TrainIdx) + len(s.ValIdx) + len(s.TestIdx); got != 100 {
		t.Fatalf("partition sizes sum to %d, want 100", got)
	}
	if len(s.TrainIdx) != 60 || len(s.ValIdx) != 20 || len(s.TestIdx) != 20 {
		t.Errorf("split sizes = %d/%d/%d, want 60/20/20",
			len(s.TrainIdx), len(s.ValIdx), len(s.TestIdx))
	}

	rTrain, _ := s.XTrain.Dims()
	if rTrain != s.YTrain.Len() {
		t.Errorf("XTrain rows %d != YTrain length %d", rTrain, s.YTrain.Len())
	}
}

func TestSplitDisjoint(t *testing.T) {
	X, y := syntheticData(50)
	s, err := SplitTrainValTest(X, y, 0.6, 0.2, 7, 0)
	if err != nil {
		t.Fatal(err)
	}

	seen := map[int]int{}
	for _, idx := range [][]int{s.TrainIdx, s.ValIdx, s.TestIdx} {
		for _, i := range idx {
			seen[i]++
		}
	}
	for i, n := range seen {
		if n != 1 {
			t.Errorf("row %d appears in %d partitions", i, n)
		}
	}
	if len(seen) != 50 {
		t.Errorf("partitions cover %d rows, want 50", len(seen))
	}
}

func TestSplitDeterministic(t *testing.T) {
	X, y := syntheticData(40)
	a, err := SplitTrainValTest(X, y, 0.6, 0.2, 123, 4)
	if err != nil {
		t.Fatal(err)
	}
	b, err := SplitTrainValTest(X, y, 0.6, 0.2, 123, 4)
	if err != nil {
		t.Fatal(err)
	}

	if len(a.TrainIdx) != len(b.TrainIdx) {
		t.Fatalf("train sizes differ: %d vs %d", len(a.TrainIdx), len(b.TrainIdx))
	}
	for i := range a.TrainIdx {
		if a.TrainIdx[i] != b.TrainIdx[i] {
			t.Fatalf("same seed produced different partitions at %d", i)
		}
	}
}

func TestSplitStratifiedDisjoint(t *testing.T) {
	X, y := syntheticData(90)
	s, err := SplitTrainValTest(X, y, 0.6, 0.2, 5, 5)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(s.TrainIdx) + len(s.ValIdx) + len(s.TestIdx); got != 90 {
		t.Errorf("stratified partitions cover %d rows, want 90", got)
	}
}

func TestSplitFractionsOverOne(t *testing.T) {
	X, y := syntheticData(10)
	if _, err := SplitTrainValTest(X, y, 0.8, 0.3, 1, 0); err == nil {
		t.Fatal("fractions summing over 1 should fail")
	}
}

func TestSplitNoValidation(t *testing.T) {
	X, y := syntheticData(20)
	s, err := SplitTrainValTest(X, y, 0.8, 0, 9, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.ValIdx) != 0 {
		t.Errorf("val size = %d, want 0", len(s.ValIdx))
	}
	if s.XVal != nil {
		t.Error("empty validation partition should be nil")
	}
}

func TestScaleSplitTrainOnlyFit(t *testing.T) {
	X, y := syntheticData(50)
	s, err := SplitTrainValTest(X, y, 0.6, 0.2, 11, 0)
	if err != nil {
		t.Fatal(err)
	}

	scaled, scaler, err := ScaleSplit(s, ScalerStandard)
	if err != nil {
		t.Fatalf("ScaleSplit() error = %v", err)
	}
	if scaler == nil || !scaler.(interface{ IsFitted() bool }).IsFitted() {
		t.Fatal("scaler should come back fitted")
	}

	// The training partition is standardized against itself.
	r, c := scaled.XTrain.Dims()
	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += scaled.XTrain.At(i, j)
		}
		if mean := sum / float64(r); math.Abs(mean) > 1e-9 {
			t.Errorf("scaled train column %d mean = %v, want 0", j, mean)
		}
	}

	// Test columns need not center at zero; they reuse train statistics.
	if scaled.XTest == nil {
		t.Fatal("test partition missing after scaling")
	}

	// The input split is untouched.
	if s.XTrain.At(0, 0) == scaled.XTrain.At(0, 0) && s.XTrain.At(1, 0) == scaled.XTrain.At(1, 0) {
		t.Error("ScaleSplit appears to have returned unscaled data")
	}
}

func TestScaleSplitUnknownKind(t *testing.T) {
	X, y := syntheticData(10)
	s, err := SplitTrainValTest(X, y, 0.8, 0.1, 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := ScaleSplit(s, "minmax"); err == nil {
		t.Fatal("unknown scaler kind should fail")
	}
}
