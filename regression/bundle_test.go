package regression

import (
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/bioforge/organclock/core/model"
)

func TestBundleRoundTrip(t *testing.T) {
	X := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewDense(6, 1, []float64{3, 5, 7, 9, 11, 13})

	tests := []struct {
		name  string
		build func() (model.Regressor, error)
	}{
		{
			name: "linear",
			build: func() (model.Regressor, error) {
				lr := NewLinearRegression()
				return lr, lr.Fit(X, y)
			},
		},
		{
			name: "elastic_net",
			build: func() (model.Regressor, error) {
				en := NewElasticNet(0.01, 0.5, 1000, 1e-6)
				return en, en.Fit(X, y)
			},
		},
		{
			name: "hist_gb",
			build: func() (model.Regressor, error) {
				gb := NewGradientBoosting(GBParams{NumIterations: 10, MinSamplesLeaf: 1, Seed: 3})
				return gb, gb.Fit(X, y)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := tt.build()
			if err != nil {
				t.Fatalf("Fit() error = %v", err)
			}

			path := filepath.Join(t.TempDir(), "liver", tt.name+".gob")
			meta := model.Metadata{Organ: "liver", ModelType: tt.name}
			if err := model.SaveBundle(path, m, meta); err != nil {
				t.Fatalf("SaveBundle() error = %v", err)
			}

			bundle, err := model.LoadBundle(path)
			if err != nil {
				t.Fatalf("LoadBundle() error = %v", err)
			}
			if bundle.Metadata.Organ != "liver" || bundle.Metadata.ModelType != tt.name {
				t.Errorf("metadata = %+v, want organ=liver type=%s", bundle.Metadata, tt.name)
			}
			if bundle.Metadata.Kind != m.Kind() {
				t.Errorf("metadata kind = %s, want %s", bundle.Metadata.Kind, m.Kind())
			}
			if bundle.Metadata.ID == "" {
				t.Error("metadata ID not assigned on save")
			}

			want, err := m.Predict(X)
			if err != nil {
				t.Fatal(err)
			}
			got, err := bundle.Model.Predict(X)
			if err != nil {
				t.Fatalf("loaded model Predict() error = %v", err)
			}
			for i := 0; i < 6; i++ {
				if got.At(i, 0) != want.At(i, 0) {
					t.Errorf("loaded prediction[%d] = %v, want %v", i, got.At(i, 0), want.At(i, 0))
				}
			}
		})
	}
}

func TestLoadBundleMissingFile(t *testing.T) {
	if _, err := model.LoadBundle(filepath.Join(t.TempDir(), "absent.gob")); err == nil {
		t.Fatal("loading a missing bundle should fail")
	}
}
