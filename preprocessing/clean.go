package preprocessing

import (
	"fmt"
	"math"
	"sort"

	"github.com/bioforge/organclock/dataset"
	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
)

// Imputation strategies for HandleMissing.
const (
	StrategyMean         = "mean"
	StrategyMedian       = "median"
	StrategyMostFrequent = "most_frequent"
)

// Outlier detection methods for RemoveOutliers.
const (
	MethodIQR    = "iqr"
	MethodZScore = "zscore"
)

// FilterByAge keeps rows where minAge <= age <= maxAge, inclusive on both
// ends. The input frame is not modified.
func FilterByAge(f *dataset.Frame, ageCol string, minAge, maxAge float64) (*dataset.Frame, error) {
	age, err := f.Column(ageCol)
	if err != nil {
		return nil, errors.NewValueError("FilterByAge", fmt.Sprintf("age column %q not found", ageCol))
	}

	keep := make([]bool, f.NumRows())
	for i, v := range age.Values {
		keep[i] = v >= minAge && v <= maxAge
	}
	filtered, err := f.Filter(keep)
	if err != nil {
		return nil, err
	}

	log.With("preprocessing").Info().
		Int("before", f.NumRows()).
		Int("after", filtered.NumRows()).
		Int("removed", f.NumRows()-filtered.NumRows()).
		Msg("age filtering")
	return filtered, nil
}

// HandleMissing drops columns whose missing fraction exceeds threshold,
// then imputes remaining missing values in numeric columns with a single
// whole-column scalar: mean, median, or most_frequent. Categorical columns
// are left untouched. The input frame is not modified.
func HandleMissing(f *dataset.Frame, threshold float64, strategy string) (*dataset.Frame, error) {
	switch strategy {
	case StrategyMean, StrategyMedian, StrategyMostFrequent:
	default:
		return nil, errors.NewValidationError("strategy",
			"unknown imputation strategy, use mean, median or most_frequent", strategy)
	}

	out := f.Copy()
	logger := log.With("preprocessing")

	var dropped []string
	for _, name := range out.Names() {
		c, _ := out.Column(name)
		missing := 0
		for _, v := range c.Values {
			if math.IsNaN(v) {
				missing++
			}
		}
		if len(c.Values) > 0 && float64(missing)/float64(len(c.Values)) > threshold {
			dropped = append(dropped, name)
		}
	}
	if len(dropped) > 0 {
		out.DropColumns(dropped...)
		logger.Info().
			Int("columns", len(dropped)).
			Float64("threshold", threshold).
			Msg("dropped columns over missing threshold")
	}

	imputed := 0
	for _, name := range out.Names() {
		c, _ := out.Column(name)
		if c.IsCategorical() {
			continue
		}
		fill, ok := imputeValue(c.Values, strategy)
		if !ok {
			continue
		}
		changed := false
		values := append([]float64(nil), c.Values...)
		for i, v := range values {
			if math.IsNaN(v) {
				values[i] = fill
				changed = true
			}
		}
		if changed {
			if err := out.SetColumn(name, values); err != nil {
				return nil, err
			}
			imputed++
		}
	}
	logger.Info().Int("columns", imputed).Str("strategy", strategy).Msg("imputed missing values")

	return out, nil
}

// imputeValue computes the whole-column fill scalar, ignoring missing
// entries. Returns false if the column has no present values.
func imputeValue(values []float64, strategy string) (float64, bool) {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return 0, false
	}

	switch strategy {
	case StrategyMean:
		sum := 0.0
		for _, v := range present {
			sum += v
		}
		return sum / float64(len(present)), true
	case StrategyMedian:
		sort.Float64s(present)
		return quantileSorted(present, 0.5), true
	case StrategyMostFrequent:
		counts := map[float64]int{}
		best, bestCount := present[0], 0
		for _, v := range present {
			counts[v]++
			if counts[v] > bestCount || (counts[v] == bestCount && v < best) {
				best, bestCount = v, counts[v]
			}
		}
		return best, true
	}
	return 0, false
}

// EncodeCategorical one-hot encodes the named columns, or every
// categorical column when cols is nil. Each level becomes a 0/1 column
// named <col>_<level>; with dropFirst the first level is omitted to avoid
// collinearity. The source column is removed. The input frame is not
// modified.
func EncodeCategorical(f *dataset.Frame, cols []string, dropFirst bool) (*dataset.Frame, error) {
	out := f.Copy()

	if cols == nil {
		for _, name := range out.Names() {
			c, _ := out.Column(name)
			if c.IsCategorical() {
				cols = append(cols, name)
			}
		}
	}
	if len(cols) == 0 {
		log.With("preprocessing").Info().Msg("no categorical columns to encode")
		return out, nil
	}

	for _, name := range cols {
		c, err := out.Column(name)
		if err != nil {
			return nil, err
		}
		if !c.IsCategorical() {
			return nil, errors.NewValueError("EncodeCategorical", fmt.Sprintf("column %q is not categorical", name))
		}

		start := 0
		if dropFirst {
			start = 1
		}
		for code := start; code < len(c.Categories); code++ {
			dummy := make([]float64, len(c.Values))
			for i, v := range c.Values {
				if !math.IsNaN(v) && int(v) == code {
					dummy[i] = 1
				}
			}
			dummyName := fmt.Sprintf("%s_%s", name, c.Categories[code])
			if err := out.AddColumn(dummyName, dummy); err != nil {
				return nil, err
			}
		}
		out.DropColumns(name)
	}

	log.With("preprocessing").Info().
		Int("columns", len(cols)).
		Bool("drop_first", dropFirst).
		Msg("encoded categorical variables")
	return out, nil
}

// RemoveOutliers drops rows outside an IQR-multiple band or a z-score
// threshold, column by column, over the named columns or every numeric
// column except the subject key when cols is nil. Removal is cumulative,
// so column order affects which rows survive later columns. Missing
// columns are skipped with a warning. The input frame is not modified.
func RemoveOutliers(f *dataset.Frame, cols []string, method string, threshold float64) (*dataset.Frame, error) {
	if method != MethodIQR && method != MethodZScore {
		return nil, errors.NewValidationError("method", "unknown outlier method, use iqr or zscore", method)
	}

	out := f.Copy()
	if cols == nil {
		for _, name := range out.Names() {
			c, _ := out.Column(name)
			if !c.IsCategorical() && name != dataset.KeyColumn {
				cols = append(cols, name)
			}
		}
	}
	logger := log.With("preprocessing")
	initial := out.NumRows()

	for _, name := range cols {
		c, err := out.Column(name)
		if err != nil {
			errors.Warn(errors.NewValueError("RemoveOutliers", fmt.Sprintf("column %q not found, skipping", name)))
			continue
		}

		keep := make([]bool, len(c.Values))
		switch method {
		case MethodIQR:
			present := presentSorted(c.Values)
			q1 := quantileSorted(present, 0.25)
			q3 := quantileSorted(present, 0.75)
			iqr := q3 - q1
			lower, upper := q1-threshold*iqr, q3+threshold*iqr
			for i, v := range c.Values {
				keep[i] = math.IsNaN(v) || (v >= lower && v <= upper)
			}
		case MethodZScore:
			mean, std := meanStd(c.Values)
			for i, v := range c.Values {
				keep[i] = math.IsNaN(v) || std == 0 || math.Abs((v-mean)/std) <= threshold
			}
		}

		removed := 0
		for _, k := range keep {
			if !k {
				removed++
			}
		}
		if removed > 0 {
			out, err = out.Filter(keep)
			if err != nil {
				return nil, err
			}
			logger.Info().Str("column", name).Int("removed", removed).Msg("removed outliers")
		}
	}

	logger.Info().Int("removed_total", initial-out.NumRows()).Msg("outlier removal finished")
	return out, nil
}

func presentSorted(values []float64) []float64 {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	sort.Float64s(present)
	return present
}

// meanStd returns the mean and sample standard deviation of the present
// values.
func meanStd(values []float64) (float64, float64) {
	n := 0
	sum := 0.0
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN(), 0
	}
	mean := sum / float64(n)
	ss := 0.0
	for _, v := range values {
		if !math.IsNaN(v) {
			ss += (v - mean) * (v - mean)
		}
	}
	if n < 2 {
		return mean, 0
	}
	return mean, math.Sqrt(ss / float64(n-1))
}
