package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bioforge/organclock/analysis"
	"github.com/bioforge/organclock/cluster"
	"github.com/bioforge/organclock/explain"
	"github.com/bioforge/organclock/export"
	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
	"github.com/bioforge/organclock/plot"
)

func init() {
	rootCmd.AddCommand(trainCmd, evaluateCmd, clusterCmd, exportCmd, verifyCmd, runCmd)
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train and persist per-organ age models",
	RunE: func(cmd *cobra.Command, args []string) error {
		return newPipeline(settings).train()
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate models on held-out data and write the metrics summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPipeline(settings)
		if err := p.evaluate(); err != nil {
			return err
		}
		return export.WriteMetricsSummary(
			filepath.Join(settings.OutputDir, "metrics_summary.json"), p.metrics)
	},
}

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Cluster individuals by their organ age-gap profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPipeline(settings)
		if err := p.computeGaps(); err != nil {
			return err
		}
		_, err := clusterGaps(p)
		return err
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the metrics, age-gap and correlation JSON documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPipeline(settings)
		if err := p.evaluate(); err != nil {
			return err
		}
		if err := p.computeGaps(); err != nil {
			return err
		}
		return exportDocuments(p)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Recompute exported documents from source data and compare",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPipeline(settings)
		if err := p.computeGaps(); err != nil {
			return err
		}

		gapCols := analysis.GapColumns(p.table)
		var total int

		records, err := export.ReadRecords(filepath.Join(settings.OutputDir, "age_gaps.json"))
		if err != nil {
			return err
		}
		mismatches, err := export.VerifyIndividualRecords(records, p.table, settings.AgeColumn, gapCols)
		if err != nil {
			return err
		}
		total += report(mismatches)

		corr, err := export.ReadCorrelationMatrix(filepath.Join(settings.OutputDir, "correlations.json"))
		if err != nil {
			return err
		}
		mismatches, err = export.VerifyCorrelationMatrix(corr, p.table, gapCols)
		if err != nil {
			return err
		}
		total += report(mismatches)

		if total > 0 {
			return errors.Newf("verification failed with %d mismatches", total)
		}
		fmt.Println("all exported documents verified")
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: train, evaluate, analyze, cluster, export",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPipeline(settings)
		if err := p.evaluate(); err != nil {
			return err
		}
		if err := p.computeGaps(); err != nil {
			return err
		}
		if _, err := clusterGaps(p); err != nil {
			return err
		}
		if err := exportDocuments(p); err != nil {
			return err
		}
		return writeFigures(p)
	},
}

func report(mismatches []export.Mismatch) int {
	for _, m := range mismatches {
		fmt.Println(m)
	}
	return len(mismatches)
}

// clusterGaps assigns gap clusters, logs their characteristics and saves
// the embedding figure.
func clusterGaps(p *pipeline) (*cluster.Result, error) {
	gapCols := analysis.GapColumns(p.table)
	opts := cluster.Options{
		K:          settings.ClusterK,
		Eps:        settings.DBSCANEps,
		MinSamples: settings.DBSCANMinSamples,
		Seed:       settings.Seed,
	}
	result, err := cluster.AssignGapClusters(p.table, gapCols, settings.ClusterMethod, opts)
	if err != nil {
		return nil, err
	}

	profiles, err := cluster.ClusterCharacteristics(p.table, cluster.GapClusterColumn, settings.AgeColumn, gapCols)
	if err != nil {
		return nil, err
	}
	logger := log.With("pipeline")
	for _, profile := range profiles {
		logger.Info().
			Int("cluster", profile.Cluster).
			Int("size", profile.Size).
			Float64("mean_age", profile.MeanAge).
			Msg("cluster profile")
	}

	keep, err := p.table.CompleteRows(gapCols...)
	if err != nil {
		return nil, err
	}
	complete, err := p.table.Filter(keep)
	if err != nil {
		return nil, err
	}
	X, err := complete.Matrix(gapCols...)
	if err != nil {
		return nil, err
	}
	pca, err := cluster.ApplyPCA(X, settings.PCAComponents, true)
	if err != nil {
		return nil, err
	}
	emb, err := cluster.BuildEmbeddingFrame(pca.Scores, result.Labels)
	if err != nil {
		return nil, err
	}
	if err := plot.EmbeddingScatter(
		filepath.Join(settings.OutputDir, "figures", "gap_clusters.png"),
		emb, "Organ age-gap clusters"); err != nil {
		return nil, err
	}
	return result, nil
}

// exportDocuments writes the three JSON documents consumed downstream.
func exportDocuments(p *pipeline) error {
	gapCols := analysis.GapColumns(p.table)

	if err := export.WriteMetricsSummary(
		filepath.Join(settings.OutputDir, "metrics_summary.json"), p.metrics); err != nil {
		return err
	}
	if err := export.WriteIndividualRecords(
		filepath.Join(settings.OutputDir, "age_gaps.json"),
		p.table, settings.AgeColumn, gapCols); err != nil {
		return err
	}

	corr, err := analysis.GapCorrelations(p.table, gapCols)
	if err != nil {
		return err
	}
	if err := export.WriteCorrelationMatrix(
		filepath.Join(settings.OutputDir, "correlations.json"), corr); err != nil {
		return err
	}

	if _, err := analysis.FlagAdvancedOrgans(p.table, settings.AdvancedThreshold, gapCols); err != nil {
		return err
	}
	return nil
}

// writeFigures renders the importance and trajectory figures.
func writeFigures(p *pipeline) error {
	figDir := filepath.Join(settings.OutputDir, "figures")

	for _, ds := range p.datasets {
		trained, ok := p.models[ds.Organ]
		if !ok {
			continue
		}
		m, ok := trained[settings.NonlinearBackend]
		if !ok {
			continue
		}
		importances, err := explain.FeatureImportance(m, ds.FeatureNames)
		if err != nil {
			return errors.Wrapf(err, "importance for organ %s", ds.Organ)
		}
		if err := plot.ImportanceBars(
			filepath.Join(figDir, fmt.Sprintf("importance_%s.png", ds.Organ)),
			importances, ds.Organ+" feature importance"); err != nil {
			return err
		}
	}

	trajectories, err := analysis.PseudoLongitudinal(p.table, nil, settings.AgeColumn, nil)
	if err != nil {
		return err
	}
	return plot.TrajectoryLines(
		filepath.Join(figDir, "gap_trajectories.png"),
		trajectories, "Mean organ age gap by age group")
}
