package dataset

import (
	"math"
	"testing"
)

func makeTable(t *testing.T, seqn []float64, cols map[string][]float64) *Frame {
	t.Helper()
	f := New()
	if err := f.AddColumn(KeyColumn, seqn); err != nil {
		t.Fatalf("AddColumn(%s) error = %v", KeyColumn, err)
	}
	for name, values := range cols {
		if err := f.AddColumn(name, values); err != nil {
			t.Fatalf("AddColumn(%s) error = %v", name, err)
		}
	}
	return f
}

func TestMergeInnerJoin(t *testing.T) {
	demo := makeTable(t, []float64{1, 2, 3, 4}, map[string][]float64{
		"RIDAGEYR": {40, 50, 60, 70},
	})
	labs := makeTable(t, []float64{2, 3, 5}, map[string][]float64{
		"LBXSAL": {4.1, 4.3, 3.9},
	})

	merged, err := Merge(map[string]*Frame{"demo": demo, "labs": labs}, []string{"demo", "labs"})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	// Only subjects present in every table survive.
	if got := merged.NumRows(); got != 2 {
		t.Fatalf("merged rows = %d, want 2", got)
	}
	key, _ := merged.Column(KeyColumn)
	if key.Values[0] != 2 || key.Values[1] != 3 {
		t.Errorf("merged SEQN = %v, want [2 3]", key.Values)
	}

	// Columns from both sides stay aligned with their subject.
	age, _ := merged.Column("RIDAGEYR")
	alb, _ := merged.Column("LBXSAL")
	if age.Values[0] != 50 || alb.Values[0] != 4.1 {
		t.Errorf("row for SEQN 2 = age %v, albumin %v, want 50, 4.1", age.Values[0], alb.Values[0])
	}
	if age.Values[1] != 60 || alb.Values[1] != 4.3 {
		t.Errorf("row for SEQN 3 = age %v, albumin %v, want 60, 4.3", age.Values[1], alb.Values[1])
	}
}

func TestMergeRowCountNeverGrows(t *testing.T) {
	left := makeTable(t, []float64{1, 2, 3}, map[string][]float64{"A": {1, 2, 3}})
	right := makeTable(t, []float64{1, 2, 3}, map[string][]float64{"B": {4, 5, 6}})

	merged, err := Merge(map[string]*Frame{"l": left, "r": right}, []string{"l", "r"})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if merged.NumRows() > left.NumRows() {
		t.Errorf("merged rows = %d, exceeds left table rows %d", merged.NumRows(), left.NumRows())
	}
}

func TestMergeOverlappingColumnSuffixed(t *testing.T) {
	left := makeTable(t, []float64{1, 2}, map[string][]float64{"BMXBMI": {22, 28}})
	right := makeTable(t, []float64{1, 2}, map[string][]float64{"BMXBMI": {23, 29}})

	merged, err := Merge(map[string]*Frame{"body": left, "body2": right}, []string{"body", "body2"})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if !merged.HasColumn("BMXBMI") || !merged.HasColumn("BMXBMI_body2") {
		t.Errorf("columns = %v, want BMXBMI and BMXBMI_body2", merged.Names())
	}
}

func TestMergeDuplicateKeyRejected(t *testing.T) {
	left := makeTable(t, []float64{1, 2}, map[string][]float64{"A": {1, 2}})
	right := makeTable(t, []float64{1, 1}, map[string][]float64{"B": {3, 4}})

	if _, err := Merge(map[string]*Frame{"l": left, "r": right}, []string{"l", "r"}); err == nil {
		t.Fatal("Merge() with duplicate SEQN should fail")
	}
}

func TestMergeMissingKeyColumn(t *testing.T) {
	left := makeTable(t, []float64{1}, nil)
	right := New()
	if err := right.AddColumn("B", []float64{1}); err != nil {
		t.Fatal(err)
	}

	if _, err := Merge(map[string]*Frame{"l": left, "r": right}, []string{"l", "r"}); err == nil {
		t.Fatal("Merge() without SEQN column should fail")
	}
}

func TestMergeSkipsMissingKeys(t *testing.T) {
	left := makeTable(t, []float64{1, math.NaN(), 3}, map[string][]float64{"A": {1, 2, 3}})
	right := makeTable(t, []float64{1, 3}, map[string][]float64{"B": {10, 30}})

	merged, err := Merge(map[string]*Frame{"l": left, "r": right}, []string{"l", "r"})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if merged.NumRows() != 2 {
		t.Errorf("merged rows = %d, want 2 (NaN key dropped)", merged.NumRows())
	}
}
