package features

import (
	"math"
	"testing"

	"github.com/bioforge/organclock/dataset"
	"github.com/bioforge/organclock/internal/config"
)

func buildFrame(t *testing.T, order []string, cols map[string][]float64) *dataset.Frame {
	t.Helper()
	f := dataset.New()
	for _, name := range order {
		if err := f.AddColumn(name, cols[name]); err != nil {
			t.Fatalf("AddColumn(%s) error = %v", name, err)
		}
	}
	return f
}

func TestBuildOrganDatasets(t *testing.T) {
	nan := math.NaN()
	f := buildFrame(t,
		[]string{"SEQN", "RIDAGEYR", "LBXSAL", "LBXSATSI", "LBXSCR", "BMXBMI"},
		map[string][]float64{
			"SEQN":     {1, 2, 3, 4, 5},
			"RIDAGEYR": {40, 50, 60, 70, 45},
			"LBXSAL":   {4.1, nan, 4.3, 4.4, 4.0}, // liver albumin, one missing
			"LBXSATSI": {25, 30, 35, 40, 28},      // liver ALT
			"LBXSCR":   {0.9, 1.0, 1.1, nan, 0.8}, // kidney creatinine
			"BMXBMI":   {22, 25, 28, 31, 24},      // global covariate
		})

	panels := &config.OrganPanels{
		OrganOrder: []string{"liver", "kidney", "immune"},
		Biomarkers: map[string][]string{
			"liver":  {"LBXSAL", "LBXSATSI"},
			"kidney": {"LBXSCR"},
			"immune": {"LBXWBCSI"}, // absent from the table
		},
		GlobalCovariates: []string{"BMXBMI"},
	}

	datasets, err := BuildOrganDatasets(f, panels, "RIDAGEYR")
	if err != nil {
		t.Fatalf("BuildOrganDatasets() error = %v", err)
	}

	// The immune organ has no available biomarkers and is skipped, not
	// zero-filled.
	if len(datasets) != 2 {
		t.Fatalf("datasets = %d, want 2", len(datasets))
	}
	if datasets[0].Organ != "liver" || datasets[1].Organ != "kidney" {
		t.Errorf("organ order = %s, %s; want liver, kidney", datasets[0].Organ, datasets[1].Organ)
	}

	liver := datasets[0]
	// Row 2 (SEQN 2) has a missing albumin and is dropped.
	if r, _ := liver.X.Dims(); r != 4 {
		t.Errorf("liver rows = %d, want 4", r)
	}
	if liver.Y.Len() != 4 {
		t.Errorf("liver target length = %d, want 4 (aligned with X)", liver.Y.Len())
	}
	if !NaNFree(liver.X) {
		t.Error("liver feature matrix contains NaN")
	}
	wantFeatures := []string{"LBXSAL", "LBXSATSI", "BMXBMI"}
	for i, name := range wantFeatures {
		if liver.FeatureNames[i] != name {
			t.Errorf("liver feature %d = %s, want %s", i, liver.FeatureNames[i], name)
		}
	}
	// SEQN 2 is absent from the kept subjects.
	for _, s := range liver.SEQN {
		if s == 2 {
			t.Error("row with missing biomarker kept in liver dataset")
		}
	}

	kidney := datasets[1]
	if r, _ := kidney.X.Dims(); r != 4 {
		t.Errorf("kidney rows = %d, want 4 (SEQN 4 dropped)", r)
	}
}

func TestBuildOrganDatasetsMissingTarget(t *testing.T) {
	f := buildFrame(t, []string{"SEQN", "LBXSAL"}, map[string][]float64{
		"SEQN": {1}, "LBXSAL": {4},
	})
	panels := &config.OrganPanels{
		OrganOrder: []string{"liver"},
		Biomarkers: map[string][]string{"liver": {"LBXSAL"}},
	}
	if _, err := BuildOrganDatasets(f, panels, "RIDAGEYR"); err == nil {
		t.Fatal("BuildOrganDatasets() without target column should fail")
	}
}

// Exercises the merge-then-build flow end to end on a tiny two-table
// survey: only complete subjects present in both tables reach a dataset.
func TestTwoTableScenario(t *testing.T) {
	nan := math.NaN()
	demo := buildFrame(t, []string{"SEQN", "RIDAGEYR"}, map[string][]float64{
		"SEQN":     {1, 2, 3},
		"RIDAGEYR": {40, 55, 70},
	})
	labs := buildFrame(t, []string{"SEQN", "LBXSCR"}, map[string][]float64{
		"SEQN":   {1, 2, 3},
		"LBXSCR": {0.9, nan, 1.2},
	})

	merged, err := dataset.Merge(map[string]*dataset.Frame{"demo": demo, "labs": labs}, []string{"demo", "labs"})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if merged.NumRows() != 3 {
		t.Fatalf("merged rows = %d, want 3", merged.NumRows())
	}

	panels := &config.OrganPanels{
		OrganOrder: []string{"kidney"},
		Biomarkers: map[string][]string{"kidney": {"LBXSCR"}},
	}
	datasets, err := BuildOrganDatasets(merged, panels, "RIDAGEYR")
	if err != nil {
		t.Fatalf("BuildOrganDatasets() error = %v", err)
	}
	if len(datasets) != 1 {
		t.Fatalf("datasets = %d, want 1", len(datasets))
	}

	kidney := datasets[0]
	r, _ := kidney.X.Dims()
	if r != 2 {
		t.Fatalf("kidney rows = %d, want 2 (incomplete subject dropped)", r)
	}
	wantAges := []float64{40, 70}
	for i, want := range wantAges {
		if kidney.Y.AtVec(i) != want {
			t.Errorf("target[%d] = %v, want %v", i, kidney.Y.AtVec(i), want)
		}
	}
}
