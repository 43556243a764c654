package model

import "gonum.org/v1/gonum/mat"

// Kind is the tagged model family, fixed at training time and carried in
// persisted metadata. Explanation code dispatches on it instead of probing
// the estimator's shape.
type Kind string

const (
	// KindLinear covers coefficient-based models (OLS, elastic net).
	KindLinear Kind = "linear"
	// KindTreeEnsemble covers boosted tree ensembles.
	KindTreeEnsemble Kind = "tree_ensemble"
)

// Regressor is a supervised estimator predicting a continuous target.
type Regressor interface {
	// Fit learns parameters from X (n_samples × n_features) and y
	// (n_samples × 1).
	Fit(X, y mat.Matrix) error

	// Predict returns an n_samples × 1 matrix of predictions.
	Predict(X mat.Matrix) (mat.Matrix, error)

	// Kind reports the tagged model family.
	Kind() Kind
}

// Transformer is a fitted feature transformation such as a scaler.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}
