package preprocessing

import (
	"math"
	"testing"

	"github.com/bioforge/organclock/dataset"
)

func frameWith(t *testing.T, cols map[string][]float64, order []string) *dataset.Frame {
	t.Helper()
	f := dataset.New()
	for _, name := range order {
		if err := f.AddColumn(name, cols[name]); err != nil {
			t.Fatalf("AddColumn(%s) error = %v", name, err)
		}
	}
	return f
}

func TestFilterByAge(t *testing.T) {
	f := frameWith(t, map[string][]float64{
		"RIDAGEYR": {17, 18, 45, 80, 81},
		"LBXSAL":   {4, 4.1, 4.2, 4.3, 4.4},
	}, []string{"RIDAGEYR", "LBXSAL"})

	got, err := FilterByAge(f, "RIDAGEYR", 18, 80)
	if err != nil {
		t.Fatalf("FilterByAge() error = %v", err)
	}
	// Bounds are inclusive on both ends.
	if got.NumRows() != 3 {
		t.Fatalf("rows = %d, want 3", got.NumRows())
	}
	age, _ := got.Column("RIDAGEYR")
	if age.Values[0] != 18 || age.Values[2] != 80 {
		t.Errorf("kept ages = %v, want [18 45 80]", age.Values)
	}

	// The input frame is untouched.
	if f.NumRows() != 5 {
		t.Errorf("input frame mutated: rows = %d", f.NumRows())
	}
}

func TestFilterByAgeMissingColumn(t *testing.T) {
	f := frameWith(t, map[string][]float64{"A": {1}}, []string{"A"})
	if _, err := FilterByAge(f, "RIDAGEYR", 18, 80); err == nil {
		t.Fatal("FilterByAge() without age column should fail")
	}
}

func TestHandleMissing(t *testing.T) {
	nan := math.NaN()
	f := frameWith(t, map[string][]float64{
		"MOSTLY_MISSING": {nan, nan, nan, 1},
		"SPARSE":         {1, nan, 3, nan},
		"FULL":           {1, 2, 3, 4},
	}, []string{"MOSTLY_MISSING", "SPARSE", "FULL"})

	got, err := HandleMissing(f, 0.5, StrategyMedian)
	if err != nil {
		t.Fatalf("HandleMissing() error = %v", err)
	}

	// 3/4 missing exceeds the 0.5 threshold.
	if got.HasColumn("MOSTLY_MISSING") {
		t.Error("column over missing threshold should be dropped")
	}

	sparse, _ := got.Column("SPARSE")
	// Median of {1, 3} is 2.
	if sparse.Values[1] != 2 || sparse.Values[3] != 2 {
		t.Errorf("imputed SPARSE = %v, want missing entries filled with 2", sparse.Values)
	}
	if sparse.Values[0] != 1 || sparse.Values[2] != 3 {
		t.Errorf("present values changed: %v", sparse.Values)
	}
}

func TestHandleMissingUnknownStrategy(t *testing.T) {
	f := frameWith(t, map[string][]float64{"A": {1}}, []string{"A"})
	if _, err := HandleMissing(f, 0.5, "mode"); err == nil {
		t.Fatal("HandleMissing() with unknown strategy should fail")
	}
}

func TestEncodeCategorical(t *testing.T) {
	f := dataset.New()
	if err := f.AddColumn("SEQN", []float64{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	codes := []float64{0, 1, 0, math.NaN()}
	if err := f.AddCategoricalColumn("SMOKER", codes, []string{"no", "yes"}); err != nil {
		t.Fatal(err)
	}

	got, err := EncodeCategorical(f, nil, true)
	if err != nil {
		t.Fatalf("EncodeCategorical() error = %v", err)
	}

	if got.HasColumn("SMOKER") {
		t.Error("source column should be dropped after encoding")
	}
	if got.HasColumn("SMOKER_no") {
		t.Error("first level should be omitted with dropFirst")
	}
	dummy, err := got.Column("SMOKER_yes")
	if err != nil {
		t.Fatalf("Column(SMOKER_yes) error = %v", err)
	}
	want := []float64{0, 1, 0, 0}
	for i, v := range want {
		if dummy.Values[i] != v {
			t.Errorf("SMOKER_yes[%d] = %v, want %v", i, dummy.Values[i], v)
		}
	}
}

func TestRemoveOutliersIQR(t *testing.T) {
	f := frameWith(t, map[string][]float64{
		"X": {10, 11, 12, 13, 14, 1000},
	}, []string{"X"})

	got, err := RemoveOutliers(f, []string{"X"}, MethodIQR, 1.5)
	if err != nil {
		t.Fatalf("RemoveOutliers() error = %v", err)
	}
	if got.NumRows() != 5 {
		t.Errorf("rows = %d, want 5 (extreme value removed)", got.NumRows())
	}
}

func TestRemoveOutliersUnknownMethod(t *testing.T) {
	f := frameWith(t, map[string][]float64{"X": {1}}, []string{"X"})
	if _, err := RemoveOutliers(f, []string{"X"}, "mad", 3); err == nil {
		t.Fatal("RemoveOutliers() with unknown method should fail")
	}
}

func TestRemoveOutliersKeepsMissing(t *testing.T) {
	nan := math.NaN()
	f := frameWith(t, map[string][]float64{
		"X": {10, 11, nan, 12, 500},
	}, []string{"X"})

	got, err := RemoveOutliers(f, []string{"X"}, MethodZScore, 1.2)
	if err != nil {
		t.Fatalf("RemoveOutliers() error = %v", err)
	}
	x, _ := got.Column("X")
	hasNaN := false
	for _, v := range x.Values {
		if math.IsNaN(v) {
			hasNaN = true
		}
	}
	if !hasNaN {
		t.Error("rows with missing values should survive outlier removal")
	}
}
