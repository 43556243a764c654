// Package analysis computes population-level statistics over the organ
// age-gap table: gap correlations, advanced-organ flags and their
// co-occurrence, and age-stratified trends. Every function is a pure
// read-only transform; results come back as new values, never by
// mutating shared state.
package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/bioforge/organclock/dataset"
	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
)

// Derived column names.
const (
	AgeBinColumn       = "age_bin"
	MaxGapColumn       = "max_age_gap"
	FastestOrganColumn = "fastest_aging_organ"

	gapSuffix      = "_age_gap"
	advancedSuffix = "_advanced"
)

// GapColumns lists the per-organ gap columns of a table, excluding the
// aggregate max column, which is not an organ.
func GapColumns(f *dataset.Frame) []string {
	var out []string
	for _, name := range f.Names() {
		if strings.HasSuffix(name, gapSuffix) && name != MaxGapColumn {
			out = append(out, name)
		}
	}
	return out
}

// OrganName strips the gap suffix from a gap column name.
func OrganName(gapCol string) string {
	return strings.TrimSuffix(gapCol, gapSuffix)
}

// CorrMatrix is a symmetric correlation matrix over organ gaps.
type CorrMatrix struct {
	Organs []string    `json:"organs"`
	Values [][]float64 `json:"values"`
}

// corrMatrixJSON is the wire form: NaN entries become null, since JSON
// has no NaN literal.
type corrMatrixJSON struct {
	Organs []string     `json:"organs"`
	Values [][]*float64 `json:"values"`
}

// MarshalJSON encodes missing correlations as null.
func (m *CorrMatrix) MarshalJSON() ([]byte, error) {
	wire := corrMatrixJSON{Organs: m.Organs, Values: make([][]*float64, len(m.Values))}
	for i, row := range m.Values {
		wire.Values[i] = make([]*float64, len(row))
		for j := range row {
			if !math.IsNaN(row[j]) {
				v := row[j]
				wire.Values[i][j] = &v
			}
		}
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes null entries back to NaN.
func (m *CorrMatrix) UnmarshalJSON(data []byte) error {
	var wire corrMatrixJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	m.Organs = wire.Organs
	m.Values = make([][]float64, len(wire.Values))
	for i, row := range wire.Values {
		m.Values[i] = make([]float64, len(row))
		for j, v := range row {
			if v == nil {
				m.Values[i][j] = math.NaN()
			} else {
				m.Values[i][j] = *v
			}
		}
	}
	return nil
}

// GapCorrelations computes the Pearson correlation between every pair of
// gap columns over pairwise-complete rows. Pairs with fewer than two
// complete rows get NaN.
func GapCorrelations(f *dataset.Frame, gapCols []string) (*CorrMatrix, error) {
	if len(gapCols) == 0 {
		gapCols = GapColumns(f)
	}
	if len(gapCols) == 0 {
		return nil, errors.NewValueError("GapCorrelations", "no age gap columns found")
	}

	cols := make([]*dataset.Column, len(gapCols))
	for i, name := range gapCols {
		c, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}

	k := len(gapCols)
	out := &CorrMatrix{Organs: make([]string, k), Values: make([][]float64, k)}
	for i := range gapCols {
		out.Organs[i] = OrganName(gapCols[i])
		out.Values[i] = make([]float64, k)
	}

	for i := 0; i < k; i++ {
		out.Values[i][i] = 1
		for j := i + 1; j < k; j++ {
			var xs, ys []float64
			for r := 0; r < f.NumRows(); r++ {
				xv, yv := cols[i].Values[r], cols[j].Values[r]
				if !math.IsNaN(xv) && !math.IsNaN(yv) {
					xs = append(xs, xv)
					ys = append(ys, yv)
				}
			}
			corr := math.NaN()
			if len(xs) >= 2 {
				corr = stat.Correlation(xs, ys, nil)
			}
			out.Values[i][j] = corr
			out.Values[j][i] = corr
		}
	}

	log.With("analysis").Info().Int("organs", k).Msg("gap correlation matrix computed")
	return out, nil
}

// FlagAdvancedOrgans adds one <organ>_advanced indicator column per gap
// column: 1 where the gap exceeds the threshold in years, 0 otherwise,
// NaN where the gap itself is missing. Returns advanced counts per organ.
func FlagAdvancedOrgans(f *dataset.Frame, threshold float64, gapCols []string) (map[string]int, error) {
	if len(gapCols) == 0 {
		gapCols = GapColumns(f)
	}
	if len(gapCols) == 0 {
		return nil, errors.NewValueError("FlagAdvancedOrgans", "no age gap columns found")
	}

	logger := log.With("analysis")
	counts := make(map[string]int, len(gapCols))
	for _, gapCol := range gapCols {
		c, err := f.Column(gapCol)
		if err != nil {
			return nil, err
		}

		organ := OrganName(gapCol)
		flags := make([]float64, len(c.Values))
		n := 0
		for i, v := range c.Values {
			switch {
			case math.IsNaN(v):
				flags[i] = math.NaN()
			case v > threshold:
				flags[i] = 1
				n++
			default:
				flags[i] = 0
			}
		}
		if err := f.SetColumn(organ+advancedSuffix, flags); err != nil {
			return nil, err
		}
		counts[organ] = n
		logger.Info().
			Str("organ", organ).
			Int("advanced", n).
			Float64("threshold_years", threshold).
			Msg("advanced organ flagged")
	}
	return counts, nil
}

// Combination is one observed pattern of jointly advanced organs.
type Combination struct {
	// Organs lists the advanced organs in the pattern, sorted; empty for
	// the no-organ-advanced pattern.
	Organs []string `json:"organs"`
	Count  int      `json:"count"`
}

// CooccurrenceStats summarizes joint advancement across organs.
type CooccurrenceStats struct {
	// Combinations holds patterns with at least minCount individuals,
	// most frequent first.
	Combinations []Combination `json:"combinations"`
	NAnyAdvanced int           `json:"n_any_advanced"`
	NMultiple    int           `json:"n_multiple_advanced"`
	PctMultiple  float64       `json:"pct_multiple"`
}

// AnalyzeCooccurrence counts the patterns of jointly advanced organs over
// the given indicator columns. Rows with a missing indicator are skipped.
func AnalyzeCooccurrence(f *dataset.Frame, advancedCols []string, minCount int) (*CooccurrenceStats, error) {
	if len(advancedCols) == 0 {
		return nil, errors.NewValueError("AnalyzeCooccurrence", "no advanced indicator columns given")
	}

	cols := make([]*dataset.Column, len(advancedCols))
	for i, name := range advancedCols {
		c, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}

	counts := map[string]int{}
	stats := &CooccurrenceStats{}
	total := 0
rows:
	for r := 0; r < f.NumRows(); r++ {
		var organs []string
		for i, c := range cols {
			v := c.Values[r]
			if math.IsNaN(v) {
				continue rows
			}
			if v != 0 {
				organs = append(organs, strings.TrimSuffix(advancedCols[i], advancedSuffix))
			}
		}
		total++
		sort.Strings(organs)
		counts[strings.Join(organs, "+")]++
		if len(organs) > 0 {
			stats.NAnyAdvanced++
		}
		if len(organs) > 1 {
			stats.NMultiple++
		}
	}

	for key, n := range counts {
		if n < minCount {
			continue
		}
		var organs []string
		if key != "" {
			organs = strings.Split(key, "+")
		}
		stats.Combinations = append(stats.Combinations, Combination{Organs: organs, Count: n})
	}
	sort.Slice(stats.Combinations, func(i, j int) bool {
		if stats.Combinations[i].Count != stats.Combinations[j].Count {
			return stats.Combinations[i].Count > stats.Combinations[j].Count
		}
		return fmt.Sprint(stats.Combinations[i].Organs) < fmt.Sprint(stats.Combinations[j].Organs)
	})

	if total > 0 {
		stats.PctMultiple = 100 * float64(stats.NMultiple) / float64(total)
	}
	return stats, nil
}

// DefaultAgeBins are decade edges covering the adult survey range.
func DefaultAgeBins() []float64 {
	edges := make([]float64, 0, 10)
	for a := 10.0; a <= 100; a += 10 {
		edges = append(edges, a)
	}
	return edges
}

// BinByAge adds a categorical age_bin column with right-open intervals
// over the given edges. Ages outside the edges are left missing.
func BinByAge(f *dataset.Frame, edges []float64, ageCol string) error {
	if len(edges) < 2 {
		return errors.NewValidationError("bins", "need at least two bin edges", len(edges))
	}
	age, err := f.Column(ageCol)
	if err != nil {
		return err
	}

	labels := make([]string, len(edges)-1)
	for i := range labels {
		labels[i] = fmt.Sprintf("[%g, %g)", edges[i], edges[i+1])
	}

	codes := make([]float64, len(age.Values))
	for i, v := range age.Values {
		codes[i] = math.NaN()
		if math.IsNaN(v) {
			continue
		}
		for b := 0; b < len(edges)-1; b++ {
			if v >= edges[b] && (v < edges[b+1] || (b == len(edges)-2 && v == edges[b+1])) {
				codes[i] = float64(b)
				break
			}
		}
	}

	f.DropColumns(AgeBinColumn)
	return f.AddCategoricalColumn(AgeBinColumn, codes, labels)
}

// AgeGroupStat is one gap column's summary within one age bin.
type AgeGroupStat struct {
	Bin     string  `json:"bin"`
	Organ   string  `json:"organ"`
	GapMean float64 `json:"gap_mean"`
	GapStd  float64 `json:"gap_std"`
	Count   int     `json:"count"`
}

// GapsByAgeGroup bins the table by age and summarizes every gap column
// per bin. Bins appear in edge order, organs in the given column order.
func GapsByAgeGroup(f *dataset.Frame, gapCols []string, ageCol string, edges []float64) ([]AgeGroupStat, error) {
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

	var out []AgeGroupStat
	for b := 0; b < len(bins.Categories); b++ {
		for _, gapCol := range gapCols {
			c, err := work.Column(gapCol)
			if err != nil {
				return nil, err
			}
			var values []float64
			for i, code := range bins.Values {
				if !math.IsNaN(code) && int(code) == b && !math.IsNaN(c.Values[i]) {
					values = append(values, c.Values[i])
				}
			}
			if len(values) == 0 {
				continue
			}
			mean, std := stat.MeanStdDev(values, nil)
			if len(values) == 1 {
				std = math.NaN()
			}
			out = append(out, AgeGroupStat{
				Bin:     bins.Categories[b],
				Organ:   OrganName(gapCol),
				GapMean: mean,
				GapStd:  std,
				Count:   len(values),
			})
		}
	}
	return out, nil
}
