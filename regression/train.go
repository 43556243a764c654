package regression

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/bioforge/organclock/core/model"
	"github.com/bioforge/organclock/features"
	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
)

// Linear model families accepted by TrainLinearModel.
const (
	ModelLinear     = "linear"
	ModelElasticNet = "elastic_net"
)

// TrainOptions configures per-organ training.
type TrainOptions struct {
	// LinearType selects the linear family: "linear" or "elastic_net".
	LinearType string
	// Alpha and L1Ratio parameterize the elastic net.
	Alpha   float64
	L1Ratio float64
	// NonlinearBackend names the boosting backend, normally "hist_gb".
	NonlinearBackend string
	// GB holds the boosting hyperparameters.
	GB GBParams
}

// DefaultTrainOptions mirrors the defaults used across organ clocks.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		LinearType:       ModelLinear,
		Alpha:            0.1,
		L1Ratio:          0.5,
		NonlinearBackend: "hist_gb",
		GB:               DefaultGBParams(),
	}
}

// TrainLinearModel fits a linear-family regressor on the given data.
// Elastic net parameters at zero fall back to alpha=0.1, l1Ratio=0.5.
func TrainLinearModel(X, y mat.Matrix, modelType string, alpha, l1Ratio float64) (model.Regressor, error) {
	var reg model.Regressor
	switch modelType {
	case ModelLinear:
		reg = NewLinearRegression()
	case ModelElasticNet:
		if alpha <= 0 {
			alpha = 0.1
		}
		if l1Ratio <= 0 {
			l1Ratio = 0.5
		}
		reg = NewElasticNet(alpha, l1Ratio, 0, 0)
	default:
		return nil, errors.NewValidationError("model_type", "unknown linear model type, use linear or elastic_net", modelType)
	}

	if err := reg.Fit(X, y); err != nil {
		return nil, err
	}
	return reg, nil
}

// TrainNonlinearModel builds and fits the named nonlinear backend.
func TrainNonlinearModel(X, y mat.Matrix, backend string, params GBParams) (model.Regressor, error) {
	reg, err := NewNonlinear(backend, params)
	if err != nil {
		return nil, err
	}
	if err := reg.Fit(X, y); err != nil {
		return nil, err
	}
	return reg, nil
}

// TrainOrganModels fits the linear and nonlinear families on a scaled
// split and persists one bundle per family under <dir>/<organ>/. A
// failure in either family aborts the organ; callers looping over organs
// decide whether to continue with the rest.
func TrainOrganModels(organ string, split *features.Split, dir string, opts TrainOptions) (map[string]model.Regressor, error) {
	if split == nil || split.XTrain == nil {
		return nil, errors.NewModelError("TrainOrganModels", "empty training partition", errors.ErrEmptyData)
	}

	logger := log.With("trainer")
	models := make(map[string]model.Regressor, 2)

	linear, err := TrainLinearModel(split.XTrain, split.YTrain, opts.LinearType, opts.Alpha, opts.L1Ratio)
	if err != nil {
		return nil, errors.Wrapf(err, "training %s model for organ %s", opts.LinearType, organ)
	}
	models[opts.LinearType] = linear

	nonlinear, err := TrainNonlinearModel(split.XTrain, split.YTrain, opts.NonlinearBackend, opts.GB)
	if err != nil {
		return nil, errors.Wrapf(err, "training %s model for organ %s", opts.NonlinearBackend, organ)
	}
	models[opts.NonlinearBackend] = nonlinear

	for modelType, m := range models {
		path := filepath.Join(dir, organ, fmt.Sprintf("%s.gob", modelType))
		meta := model.Metadata{Organ: organ, ModelType: modelType, Kind: m.Kind()}
		if err := model.SaveBundle(path, m, meta); err != nil {
			return nil, errors.Wrapf(err, "saving %s bundle for organ %s", modelType, organ)
		}
		logger.Info().
			Str("organ", organ).
			Str("model_type", modelType).
			Str("path", path).
			Msg("model bundle saved")
	}

	return models, nil
}
