package analysis

import (
	"math"
	"testing"

	"github.com/bioforge/organclock/dataset"
)

func TestIdentifyFastestAging(t *testing.T) {
	nan := math.NaN()
	f := dataset.New()
	if err := f.AddColumn("liver_age_gap", []float64{5, 1, nan, nan}); err != nil {
		t.Fatal(err)
	}
	if err := f.AddColumn("kidney_age_gap", []float64{2, 8, 3, nan}); err != nil {
		t.Fatal(err)
	}

	if err := IdentifyFastestAging(f, nil); err != nil {
		t.Fatalf("IdentifyFastestAging() error = %v", err)
	}

	fastest, err := f.Column(FastestOrganColumn)
	if err != nil {
		t.Fatal(err)
	}
	maxGap, err := f.Column(MaxGapColumn)
	if err != nil {
		t.Fatal(err)
	}

	wantOrgan := []string{"liver", "kidney", "kidney"}
	for i, want := range wantOrgan {
		if got := fastest.Categories[int(fastest.Values[i])]; got != want {
			t.Errorf("fastest[%d] = %s, want %s", i, got, want)
		}
	}
	wantGap := []float64{5, 8, 3}
	for i, want := range wantGap {
		if maxGap.Values[i] != want {
			t.Errorf("max gap[%d] = %v, want %v", i, maxGap.Values[i], want)
		}
	}

	// Every gap missing keeps both columns missing.
	if !math.IsNaN(fastest.Values[3]) || !math.IsNaN(maxGap.Values[3]) {
		t.Errorf("all-missing row got fastest=%v max=%v, want NaN/NaN",
			fastest.Values[3], maxGap.Values[3])
	}
}

func TestIdentifyFastestAgingRejectsAggregate(t *testing.T) {
	f := dataset.New()
	if err := f.AddColumn("liver_age_gap", []float64{1}); err != nil {
		t.Fatal(err)
	}
	if err := f.AddColumn(MaxGapColumn, []float64{1}); err != nil {
		t.Fatal(err)
	}

	if err := IdentifyFastestAging(f, []string{"liver_age_gap", MaxGapColumn}); err == nil {
		t.Fatal("aggregate max column among candidates should fail")
	}
}

func TestRankOrgansByMeanGap(t *testing.T) {
	nan := math.NaN()
	f := dataset.New()
	if err := f.AddColumn("liver_age_gap", []float64{1, 2, 3}); err != nil { // mean 2
		t.Fatal(err)
	}
	if err := f.AddColumn("kidney_age_gap", []float64{6, nan, 4}); err != nil { // mean 5
		t.Fatal(err)
	}

	ranks, err := RankOrgansByMeanGap(f, nil)
	if err != nil {
		t.Fatalf("RankOrgansByMeanGap() error = %v", err)
	}
	if ranks[0].Organ != "kidney" || ranks[1].Organ != "liver" {
		t.Errorf("ranking = %v, want kidney then liver", ranks)
	}
	if ranks[0].MeanAgeGap != 5 {
		t.Errorf("kidney mean = %v, want 5 (missing gaps skipped)", ranks[0].MeanAgeGap)
	}
}

func TestGapVariability(t *testing.T) {
	f := dataset.New()
	if err := f.AddColumn("steady_age_gap", []float64{1, 1.1, 0.9, 1, 1}); err != nil {
		t.Fatal(err)
	}
	if err := f.AddColumn("volatile_age_gap", []float64{-10, 0, 10, -5, 5}); err != nil {
		t.Fatal(err)
	}

	out, err := GapVariability(f, nil)
	if err != nil {
		t.Fatalf("GapVariability() error = %v", err)
	}
	if out[0].Organ != "volatile" {
		t.Errorf("most variable organ = %s, want volatile", out[0].Organ)
	}
	if out[0].Min != -10 || out[0].Max != 10 {
		t.Errorf("volatile min/max = %v/%v, want -10/10", out[0].Min, out[0].Max)
	}
	// Mean zero makes the coefficient of variation undefined.
	if !math.IsNaN(out[0].CV) {
		t.Errorf("CV with zero mean = %v, want NaN", out[0].CV)
	}
	// Sorted volatile gaps are {-10,-5,0,5,10}: quartiles at -5 and 5.
	if out[0].IQR != 10 {
		t.Errorf("volatile IQR = %v, want 10", out[0].IQR)
	}
}

func TestPseudoLongitudinal(t *testing.T) {
	f := dataset.New()
	if err := f.AddColumn("RIDAGEYR", []float64{22, 26, 45, 47, 49}); err != nil {
		t.Fatal(err)
	}
	if err := f.AddColumn("liver_age_gap", []float64{1, 3, 4, 5, 6}); err != nil {
		t.Fatal(err)
	}

	trajectories, err := PseudoLongitudinal(f, nil, "RIDAGEYR", nil)
	if err != nil {
		t.Fatalf("PseudoLongitudinal() error = %v", err)
	}

	points, ok := trajectories["liver"]
	if !ok {
		t.Fatal("liver trajectory missing")
	}
	// Two populated decades; empty bins are omitted.
	if len(points) != 2 {
		t.Fatalf("points = %d, want 2", len(points))
	}

	twenties := points[0]
	if twenties.Bin != "[20, 30)" || twenties.N != 2 {
		t.Errorf("first point = %+v", twenties)
	}
	if twenties.GapMean != 2 {
		t.Errorf("twenties gap mean = %v, want 2", twenties.GapMean)
	}
	if twenties.AgeMean != 24 {
		t.Errorf("twenties age mean = %v, want 24", twenties.AgeMean)
	}

	forties := points[1]
	if forties.Bin != "[40, 50)" || forties.N != 3 || forties.GapMean != 5 {
		t.Errorf("second point = %+v", forties)
	}
}
