package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/bioforge/organclock/dataset"
	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
)

// IdentifyFastestAging adds two columns: fastest_aging_organ, the organ
// with the largest gap per individual, and max_age_gap, that gap's value.
// The aggregate max column is never a candidate; the gapCols slice must
// hold only per-organ columns. Rows with every gap missing stay missing
// in both columns.
func IdentifyFastestAging(f *dataset.Frame, gapCols []string) error {
	if len(gapCols) == 0 {
		gapCols = GapColumns(f)
	}
	if len(gapCols) == 0 {
		return errors.NewValueError("IdentifyFastestAging", "no age gap columns found")
	}

	cols := make([]*dataset.Column, len(gapCols))
	organs := make([]string, len(gapCols))
	for i, name := range gapCols {
		if name == MaxGapColumn {
			return errors.NewValidationError("gap_columns", "aggregate max column is not an organ", name)
		}
		c, err := f.Column(name)
		if err != nil {
			return err
		}
		cols[i] = c
		organs[i] = OrganName(name)
	}

	n := f.NumRows()
	codes := make([]float64, n)
	maxGap := make([]float64, n)
	for r := 0; r < n; r++ {
		best, bestGap := -1, math.Inf(-1)
		for i, c := range cols {
			v := c.Values[r]
			if !math.IsNaN(v) && v > bestGap {
				best, bestGap = i, v
			}
		}
		if best < 0 {
			codes[r] = math.NaN()
			maxGap[r] = math.NaN()
			continue
		}
		codes[r] = float64(best)
		maxGap[r] = bestGap
	}

	f.DropColumns(FastestOrganColumn)
	if err := f.AddCategoricalColumn(FastestOrganColumn, codes, organs); err != nil {
		return err
	}
	if err := f.SetColumn(MaxGapColumn, maxGap); err != nil {
		return err
	}

	log.With("analysis").Info().Int("organs", len(gapCols)).Msg("fastest aging organ assigned")
	return nil
}

// OrganRank is one organ's population mean gap.
type OrganRank struct {
	Organ      string  `json:"organ"`
	MeanAgeGap float64 `json:"mean_age_gap"`
}

// RankOrgansByMeanGap ranks organs by population mean gap, largest first.
// Missing gaps are skipped per organ.
func RankOrgansByMeanGap(f *dataset.Frame, gapCols []string) ([]OrganRank, error) {
	if len(gapCols) == 0 {
		gapCols = GapColumns(f)
	}
	if len(gapCols) == 0 {
		return nil, errors.NewValueError("RankOrgansByMeanGap", "no age gap columns found")
	}

	out := make([]OrganRank, 0, len(gapCols))
	for _, gapCol := range gapCols {
		c, err := f.Column(gapCol)
		if err != nil {
			return nil, err
		}
		out = append(out, OrganRank{Organ: OrganName(gapCol), MeanAgeGap: nanMean(c.Values)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].MeanAgeGap > out[j].MeanAgeGap })
	return out, nil
}

// Variability summarizes the spread of one organ's gap distribution.
type Variability struct {
	Organ string  `json:"organ"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	IQR   float64 `json:"iqr"`
	CV    float64 `json:"cv"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// GapVariability computes spread metrics per organ, sorted by standard
// deviation descending. CV is NaN when the mean is zero.
func GapVariability(f *dataset.Frame, gapCols []string) ([]Variability, error) {
	if len(gapCols) == 0 {
		gapCols = GapColumns(f)
	}
	if len(gapCols) == 0 {
		return nil, errors.NewValueError("GapVariability", "no age gap columns found")
	}

	out := make([]Variability, 0, len(gapCols))
	for _, gapCol := range gapCols {
		c, err := f.Column(gapCol)
		if err != nil {
			return nil, err
		}
		values := present(c.Values)
		if len(values) == 0 {
			continue
		}
		sort.Float64s(values)

		mean, std := stat.MeanStdDev(values, nil)
		v := Variability{
			Organ: OrganName(gapCol),
			Mean:  mean,
			Std:   std,
			IQR:   quantile(values, 0.75) - quantile(values, 0.25),
			CV:    math.NaN(),
			Min:   values[0],
			Max:   values[len(values)-1],
		}
		if mean != 0 {
			v.CV = std / math.Abs(mean)
		}
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Std > out[j].Std })
	return out, nil
}

// TrajectoryPoint is one age bin of a pseudo-longitudinal trajectory.
type TrajectoryPoint struct {
	Bin     string  `json:"bin"`
	GapMean float64 `json:"gap_mean"`
	GapStd  float64 `json:"gap_std"`
	N       int     `json:"n_samples"`
	AgeMean float64 `json:"age_mean"`
}

// PseudoLongitudinal approximates longitudinal aging trends from
// cross-sectional data: per organ, the mean gap trajectory across age
// bins. Empty bins are omitted.
func PseudoLongitudinal(f *dataset.Frame, gapCols []string, ageCol string, edges []float64) (map[string][]TrajectoryPoint, error) {
	if len(gapCols) == 0 {
		gapCols = GapColumns(f)
	}
	if len(edges) == 0 {
		edges = DefaultAgeBins()
	}

	work := f.Copy()
	if err := BinByAge(work, edges, ageCol); err != nil {
		return nil, err
	}
	bins, err := work.Column(AgeBinColumn)
	if err != nil {
		return nil, err
	}
	age, err := work.Column(ageCol)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]TrajectoryPoint, len(gapCols))
	for _, gapCol := range gapCols {
		c, err := work.Column(gapCol)
		if err != nil {
			return nil, err
		}

		var points []TrajectoryPoint
		for b := 0; b < len(bins.Categories); b++ {
			var gaps, ages []float64
			for i, code := range bins.Values {
				if math.IsNaN(code) || int(code) != b || math.IsNaN(c.Values[i]) {
					continue
				}
				gaps = append(gaps, c.Values[i])
				ages = append(ages, age.Values[i])
			}
			if len(gaps) == 0 {
				continue
			}
			mean, std := stat.MeanStdDev(gaps, nil)
			if len(gaps) == 1 {
				std = math.NaN()
			}
			points = append(points, TrajectoryPoint{
				Bin:     bins.Categories[b],
				GapMean: mean,
				GapStd:  std,
				N:       len(gaps),
				AgeMean: nanMean(ages),
			})
		}
		out[OrganName(gapCol)] = points
	}
	return out, nil
}

func present(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func nanMean(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// quantile interpolates linearly between order statistics on sorted data.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
