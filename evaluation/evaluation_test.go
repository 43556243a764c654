package evaluation

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/bioforge/organclock/dataset"
	"github.com/bioforge/organclock/pkg/errors"
)

func TestCalculateMetrics(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{1, 2, 3, 4})
	yPred := mat.NewVecDense(4, []float64{2, 2, 3, 4})

	m, err := CalculateMetrics(yTrue, yPred)
	if err != nil {
		t.Fatalf("CalculateMetrics() error = %v", err)
	}
	if math.Abs(m.MAE-0.25) > 1e-12 {
		t.Errorf("MAE = %v, want 0.25", m.MAE)
	}
	if math.Abs(m.RMSE-0.5) > 1e-12 {
		t.Errorf("RMSE = %v, want 0.5", m.RMSE)
	}
	// SS_res = 1, SS_tot = 5.
	if math.Abs(m.R2-0.8) > 1e-12 {
		t.Errorf("R2 = %v, want 0.8", m.R2)
	}
}

func TestComputeAgeBioAndGaps(t *testing.T) {
	f := dataset.New()
	if err := f.AddColumn("SEQN", []float64{1, 2, 3, 4, 5}); err != nil {
		t.Fatal(err)
	}
	if err := f.AddColumn("RIDAGEYR", []float64{30, 40, 50, 60, 70}); err != nil {
		t.Fatal(err)
	}

	preds := map[string][]float64{
		"liver": {32, 41, 53, 58, 72},
	}
	if err := ComputeAgeBioAndGaps(f, preds, "RIDAGEYR"); err != nil {
		t.Fatalf("ComputeAgeBioAndGaps() error = %v", err)
	}

	bio, err := f.Column("liver_age_bio")
	if err != nil {
		t.Fatalf("biological-age column missing: %v", err)
	}
	gap, err := f.Column("liver_age_gap")
	if err != nil {
		t.Fatalf("age-gap column missing: %v", err)
	}

	wantGap := []float64{2, 1, 3, -2, 2}
	for i, want := range wantGap {
		if bio.Values[i] != preds["liver"][i] {
			t.Errorf("age_bio[%d] = %v, want %v", i, bio.Values[i], preds["liver"][i])
		}
		if gap.Values[i] != want {
			t.Errorf("age_gap[%d] = %v, want %v", i, gap.Values[i], want)
		}
	}
}

func TestComputeAgeBioAndGapsLengthMismatch(t *testing.T) {
	f := dataset.New()
	if err := f.AddColumn("RIDAGEYR", []float64{30, 40, 50}); err != nil {
		t.Fatal(err)
	}

	err := ComputeAgeBioAndGaps(f, map[string][]float64{"liver": {32, 41}}, "RIDAGEYR")
	if err == nil {
		t.Fatal("short prediction vector should fail, not truncate")
	}
	var de *errors.DimensionError
	if !errors.As(err, &de) {
		t.Errorf("error = %v, want DimensionError", err)
	}
}

func TestCompareModels(t *testing.T) {
	byModel := map[string]Metrics{
		"linear":  {MAE: 5.0, RMSE: 6.5, R2: 0.70},
		"hist_gb": {MAE: 4.2, RMSE: 5.8, R2: 0.81},
		"ridge":   {MAE: 5.0, RMSE: 6.4, R2: 0.71},
	}

	tests := []struct {
		metric string
		want   []string
	}{
		{MetricMAE, []string{"hist_gb", "linear", "ridge"}}, // tie broken by name
		{MetricRMSE, []string{"hist_gb", "ridge", "linear"}},
		{MetricR2, []string{"hist_gb", "ridge", "linear"}}, // descending
	}
	for _, tt := range tests {
		ranked, err := CompareModels(byModel, tt.metric)
		if err != nil {
			t.Fatalf("CompareModels(%s) error = %v", tt.metric, err)
		}
		for i, want := range tt.want {
			if ranked[i].Name != want {
				t.Errorf("CompareModels(%s)[%d] = %s, want %s", tt.metric, i, ranked[i].Name, want)
			}
		}
	}
}

func TestCompareModelsUnknownMetric(t *testing.T) {
	if _, err := CompareModels(map[string]Metrics{}, "accuracy"); err == nil {
		t.Fatal("unknown sort metric should fail")
	}
}
