package main

import (
	"math"

	"github.com/bioforge/organclock/analysis"
	"github.com/bioforge/organclock/core/model"
	"github.com/bioforge/organclock/dataset"
	"github.com/bioforge/organclock/evaluation"
	"github.com/bioforge/organclock/features"
	"github.com/bioforge/organclock/internal/config"
	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
	"github.com/bioforge/organclock/preprocessing"
	"github.com/bioforge/organclock/regression"
)

// pipeline runs the data flow stage by stage, memoizing results so each
// subcommand computes exactly the prefix it needs.
type pipeline struct {
	settings *config.Settings

	panels   *config.OrganPanels
	table    *dataset.Frame
	datasets []*features.OrganDataset
	splits   map[string]*features.Split
	scalers  map[string]model.Transformer
	models   map[string]map[string]model.Regressor
	metrics  map[string]map[string]evaluation.Metrics
	gapsDone bool
}

func newPipeline(s *config.Settings) *pipeline {
	return &pipeline{settings: s}
}

// loadTable loads, merges and cleans the raw survey tables.
func (p *pipeline) loadTable() error {
	if p.table != nil {
		return nil
	}

	paths, err := config.LoadPaths(p.settings.PathsFile)
	if err != nil {
		return err
	}
	p.panels, err = config.LoadOrganPanels(p.settings.PanelsFile)
	if err != nil {
		return err
	}

	merged, err := dataset.LoadAndMerge(paths)
	if err != nil {
		return err
	}

	cleaned, err := preprocessing.FilterByAge(merged, p.settings.AgeColumn, p.settings.MinAge, p.settings.MaxAge)
	if err != nil {
		return err
	}
	cleaned, err = preprocessing.HandleMissing(cleaned, p.settings.MissingThreshold, p.settings.ImputeStrategy)
	if err != nil {
		return err
	}
	cleaned, err = preprocessing.EncodeCategorical(cleaned, nil, true)
	if err != nil {
		return err
	}
	if p.settings.OutlierMethod != "" {
		cleaned, err = preprocessing.RemoveOutliers(cleaned, nil, p.settings.OutlierMethod, p.settings.OutlierThreshold)
		if err != nil {
			return err
		}
	}

	p.table = cleaned
	return nil
}

// buildDatasets assembles the per-organ feature matrices.
func (p *pipeline) buildDatasets() error {
	if p.datasets != nil {
		return nil
	}
	if err := p.loadTable(); err != nil {
		return err
	}
	datasets, err := features.BuildOrganDatasets(p.table, p.panels, p.settings.AgeColumn)
	if err != nil {
		return err
	}
	if len(datasets) == 0 {
		return errors.NewValueError("pipeline", "no organ produced a usable dataset")
	}
	p.datasets = datasets
	return nil
}

// splitAndScale partitions each organ dataset and fits its scaler on the
// training rows.
func (p *pipeline) splitAndScale() error {
	if p.splits != nil {
		return nil
	}
	if err := p.buildDatasets(); err != nil {
		return err
	}

	p.splits = map[string]*features.Split{}
	p.scalers = map[string]model.Transformer{}
	for _, ds := range p.datasets {
		split, err := features.SplitTrainValTest(ds.X, ds.Y,
			p.settings.TrainFrac, p.settings.ValFrac, p.settings.Seed, p.settings.StratifyBins)
		if err != nil {
			return errors.Wrapf(err, "splitting organ %s", ds.Organ)
		}
		scaled, scaler, err := features.ScaleSplit(split, p.settings.Scaler)
		if err != nil {
			return errors.Wrapf(err, "scaling organ %s", ds.Organ)
		}
		p.splits[ds.Organ] = scaled
		p.scalers[ds.Organ] = scaler
	}
	return nil
}

// train fits and persists both model families per organ. A failing organ
// is logged and skipped; the loop continues with the rest.
func (p *pipeline) train() error {
	if p.models != nil {
		return nil
	}
	if err := p.splitAndScale(); err != nil {
		return err
	}

	opts := regression.TrainOptions{
		LinearType:       p.settings.LinearType,
		Alpha:            p.settings.Alpha,
		L1Ratio:          p.settings.L1Ratio,
		NonlinearBackend: p.settings.NonlinearBackend,
		GB:               regression.DefaultGBParams(),
	}
	opts.GB.Seed = p.settings.Seed

	logger := log.With("pipeline")
	p.models = map[string]map[string]model.Regressor{}
	for _, ds := range p.datasets {
		trained, err := regression.TrainOrganModels(ds.Organ, p.splits[ds.Organ], p.settings.ModelsDir, opts)
		if err != nil {
			logger.Error().Err(err).Str("organ", ds.Organ).Msg("organ training failed, skipping")
			continue
		}
		p.models[ds.Organ] = trained
	}
	if len(p.models) == 0 {
		return errors.NewValueError("pipeline", "training failed for every organ")
	}
	return nil
}

// evaluate scores every trained model on its test partition.
func (p *pipeline) evaluate() error {
	if p.metrics != nil {
		return nil
	}
	if err := p.train(); err != nil {
		return err
	}
	metrics, err := evaluation.EvaluateAllOrgans(p.models, p.splits)
	if err != nil {
		return err
	}
	p.metrics = metrics
	return nil
}

// computeGaps predicts biological age for every organ over the full
// cleaned table and appends the age-bio and age-gap columns. Rows not in
// an organ's complete-case dataset stay missing for that organ.
func (p *pipeline) computeGaps() error {
	if p.gapsDone {
		return nil
	}
	if err := p.train(); err != nil {
		return err
	}

	rowOf := map[float64]int{}
	seqn, err := p.table.Column(dataset.KeyColumn)
	if err != nil {
		return err
	}
	for i, v := range seqn.Values {
		rowOf[v] = i
	}

	predictions := map[string][]float64{}
	for _, ds := range p.datasets {
		trained, ok := p.models[ds.Organ]
		if !ok {
			continue
		}
		m, ok := trained[p.settings.NonlinearBackend]
		if !ok {
			continue
		}
		if ds.SEQN == nil {
			errors.Warn(errors.NewValueError("pipeline",
				"no subject key for organ "+ds.Organ+", gaps skipped"))
			continue
		}

		scaled, err := p.scalers[ds.Organ].Transform(ds.X)
		if err != nil {
			return errors.Wrapf(err, "scaling full dataset for organ %s", ds.Organ)
		}
		pred, err := m.Predict(scaled)
		if err != nil {
			return errors.Wrapf(err, "predicting full dataset for organ %s", ds.Organ)
		}

		full := make([]float64, p.table.NumRows())
		for i := range full {
			full[i] = math.NaN()
		}
		for i := range ds.SEQN {
			if row, ok := rowOf[ds.SEQN[i]]; ok {
				full[row] = pred.At(i, 0)
			}
		}
		predictions[ds.Organ] = full
	}

	if err := evaluation.ComputeAgeBioAndGaps(p.table, predictions, p.settings.AgeColumn); err != nil {
		return err
	}
	if err := analysis.IdentifyFastestAging(p.table, nil); err != nil {
		return err
	}
	p.gapsDone = true
	return nil
}
