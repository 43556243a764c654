// Package evaluation scores fitted organ clocks and derives the
// biological-age and age-gap columns from their predictions.
package evaluation

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/bioforge/organclock/core/model"
	"github.com/bioforge/organclock/dataset"
	"github.com/bioforge/organclock/features"
	"github.com/bioforge/organclock/metrics"
	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
)

// Metric names accepted by CompareModels.
const (
	MetricMAE  = "mae"
	MetricRMSE = "rmse"
	MetricR2   = "r2"
)

// Metrics is the evaluation summary for one model on one partition.
type Metrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
}

// CalculateMetrics computes MAE, RMSE and R² for one prediction vector.
func CalculateMetrics(yTrue, yPred *mat.VecDense) (Metrics, error) {
	mae, err := metrics.MAE(yTrue, yPred)
	if err != nil {
		return Metrics{}, err
	}
	rmse, err := metrics.RMSE(yTrue, yPred)
	if err != nil {
		return Metrics{}, err
	}
	r2, err := metrics.R2Score(yTrue, yPred)
	if err != nil {
		return Metrics{}, err
	}
	return Metrics{MAE: mae, RMSE: rmse, R2: r2}, nil
}

// EvaluateModel predicts on X and scores the result against y.
func EvaluateModel(m model.Regressor, X mat.Matrix, y *mat.VecDense, name string) (Metrics, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return Metrics{}, err
	}
	r, _ := pred.Dims()
	predVec := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		predVec.SetVec(i, pred.At(i, 0))
	}

	result, err := CalculateMetrics(y, predVec)
	if err != nil {
		return Metrics{}, err
	}

	log.With("evaluation").Info().
		Str("model", name).
		Float64("mae", result.MAE).
		Float64("rmse", result.RMSE).
		Float64("r2", result.R2).
		Msg("model evaluated")
	return result, nil
}

// ComputeAgeBioAndGaps appends <organ>_age_bio and <organ>_age_gap columns
// for each organ's predictions. The gap is predicted minus chronological
// age; a prediction vector whose length differs from the table's row count
// is a dimension error, never silently truncated.
func ComputeAgeBioAndGaps(f *dataset.Frame, predictions map[string][]float64, ageCol string) error {
	age, err := f.Column(ageCol)
	if err != nil {
		return err
	}

	organs := make([]string, 0, len(predictions))
	for organ := range predictions {
		organs = append(organs, organ)
	}
	sort.Strings(organs)

	for _, organ := range organs {
		pred := predictions[organ]
		if len(pred) != f.NumRows() {
			return errors.NewDimensionError("ComputeAgeBioAndGaps", f.NumRows(), len(pred), 0)
		}

		bio := append([]float64(nil), pred...)
		gap := make([]float64, len(pred))
		for i, p := range pred {
			gap[i] = p - age.Values[i]
		}

		if err := f.SetColumn(fmt.Sprintf("%s_age_bio", organ), bio); err != nil {
			return err
		}
		if err := f.SetColumn(fmt.Sprintf("%s_age_gap", organ), gap); err != nil {
			return err
		}
	}
	return nil
}

// Ranked pairs a model name with its metrics, in comparison order.
type Ranked struct {
	Name    string
	Metrics Metrics
}

// CompareModels ranks models by one metric: ascending for error metrics,
// descending for R².
func CompareModels(byModel map[string]Metrics, sortMetric string) ([]Ranked, error) {
	value := func(m Metrics) float64 {
		switch sortMetric {
		case MetricMAE:
			return m.MAE
		case MetricRMSE:
			return m.RMSE
		default:
			return m.R2
		}
	}
	switch sortMetric {
	case MetricMAE, MetricRMSE, MetricR2:
	default:
		return nil, errors.NewValidationError("sort_metric", "unknown metric, use mae, rmse or r2", sortMetric)
	}

	ranked := make([]Ranked, 0, len(byModel))
	for name, m := range byModel {
		ranked = append(ranked, Ranked{Name: name, Metrics: m})
	}
	sort.Slice(ranked, func(i, j int) bool {
		vi, vj := value(ranked[i].Metrics), value(ranked[j].Metrics)
		if vi == vj {
			return ranked[i].Name < ranked[j].Name
		}
		if sortMetric == MetricR2 {
			return vi > vj
		}
		return vi < vj
	})
	return ranked, nil
}

// EvaluateAllOrgans scores every organ's models on the test partition of
// its split. Organs whose split lacks a test partition are skipped with a
// warning.
func EvaluateAllOrgans(models map[string]map[string]model.Regressor, splits map[string]*features.Split) (map[string]map[string]Metrics, error) {
	out := make(map[string]map[string]Metrics, len(models))
	for organ, byType := range models {
		split, ok := splits[organ]
		if !ok || split.XTest == nil {
			errors.Warn(errors.NewValueError("EvaluateAllOrgans",
				fmt.Sprintf("%s: no test partition, skipping evaluation", organ)))
			continue
		}
		out[organ] = make(map[string]Metrics, len(byType))
		for modelType, m := range byType {
			result, err := EvaluateModel(m, split.XTest, split.YTest, fmt.Sprintf("%s/%s", organ, modelType))
			if err != nil {
				return nil, errors.Wrapf(err, "evaluating %s model for organ %s", modelType, organ)
			}
			out[organ][modelType] = result
		}
	}
	return out, nil
}
