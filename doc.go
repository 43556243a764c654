// Package organclock estimates organ-specific biological age from NHANES
// laboratory data and quantifies how far each organ system has drifted
// from its owner's chronological age.
//
// The pipeline loads raw survey tables (SAS XPORT or CSV), joins them on
// the respondent sequence number, cleans the merged table, and builds one
// feature matrix per organ system from configured biomarker panels. Each
// organ gets its own age models; the difference between a model's
// prediction and chronological age is that organ's age gap, the quantity
// every downstream analysis works with.
//
// # Quick Start
//
// Train a model on a prepared feature matrix:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "gonum.org/v1/gonum/mat"
//
//	    "github.com/bioforge/organclock/regression"
//	)
//
//	func main() {
//	    X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
//	    y := mat.NewDense(4, 1, []float64{2, 4, 6, 8})
//
//	    model := regression.NewLinearRegression()
//	    if err := model.Fit(X, y); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    pred, err := model.Predict(mat.NewDense(2, 1, []float64{5, 6}))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(mat.Formatted(pred))
//	}
//
// The cmd/organclock binary drives the full pipeline from YAML
// configuration: train, evaluate, cluster, export, verify, and run.
//
// # Packages
//
//   - dataset: XPT/CSV readers, the column table, and the SEQN join
//   - preprocessing: cleaning, imputation, encoding, scalers
//   - features: per-organ dataset assembly and stratified splitting
//   - regression: linear, elastic net, and gradient boosting models
//   - evaluation: metrics, cross-validation, and age-gap derivation
//   - explain: feature importances, permutation importance, SHAP
//   - cluster: PCA, k-means, DBSCAN over gap profiles
//   - analysis: correlations, advanced-organ flags, age-binned trends
//   - export: JSON documents and their verification
//   - plot: embedding, importance, and trajectory figures
package organclock
