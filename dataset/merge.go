package dataset

import (
	"fmt"
	"math"

	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
)

// Merge inner-joins the tables on SEQN, left to right in the given order.
// Only subjects present in every table survive. Non-key columns that
// collide with an already-merged column are suffixed with the source table
// name and a warning is raised; the collision is deliberately tolerated
// rather than rejected.
func Merge(tables map[string]*Frame, order []string) (*Frame, error) {
	if len(order) == 0 {
		return nil, errors.NewValueError("Merge", "no tables provided for merging")
	}
	for _, name := range order {
		t, ok := tables[name]
		if !ok {
			return nil, errors.NewValueError("Merge", "table not loaded: "+name)
		}
		if !t.HasColumn(KeyColumn) {
			return nil, errors.NewValueError("Merge", fmt.Sprintf("table %q does not contain %s column", name, KeyColumn))
		}
	}

	logger := log.With("dataset")

	merged := tables[order[0]].Copy()
	logger.Info().Str("table", order[0]).Int("rows", merged.NumRows()).Msg("starting merge")

	for _, name := range order[1:] {
		right := tables[name]

		rightIdx, err := keyIndex(right)
		if err != nil {
			return nil, errors.Wrapf(err, "table %q", name)
		}

		// Keep left rows whose key exists in the right table.
		leftKey, _ := merged.Column(KeyColumn)
		keep := make([]bool, merged.NumRows())
		rightRows := make([]int, 0, merged.NumRows())
		for i, v := range leftKey.Values {
			j, ok := rightIdx[int64(v)]
			if !ok || math.IsNaN(v) {
				continue
			}
			keep[i] = true
			rightRows = append(rightRows, j)
		}
		merged, err = merged.Filter(keep)
		if err != nil {
			return nil, err
		}

		for _, c := range right.cols {
			if c.Name == KeyColumn {
				continue
			}
			outName := c.Name
			if merged.HasColumn(outName) {
				suffixed := fmt.Sprintf("%s_%s", c.Name, name)
				errors.Warn(errors.NewValueError("Merge",
					fmt.Sprintf("overlapping column %q from table %q renamed to %q", c.Name, name, suffixed)))
				outName = suffixed
			}
			values := make([]float64, len(rightRows))
			for k, j := range rightRows {
				values[k] = c.Values[j]
			}
			if c.IsCategorical() {
				err = merged.AddCategoricalColumn(outName, values, append([]string(nil), c.Categories...))
			} else {
				err = merged.AddColumn(outName, values)
			}
			if err != nil {
				return nil, err
			}
		}

		logger.Info().Str("table", name).Int("rows", merged.NumRows()).Int("columns", merged.NumCols()).Msg("merged table")
	}

	logger.Info().Int("rows", merged.NumRows()).Int("columns", merged.NumCols()).Msg("final merged dataset")
	return merged, nil
}

// keyIndex maps SEQN values to row indices, rejecting duplicates so a join
// can never fabricate rows.
func keyIndex(f *Frame) (map[int64]int, error) {
	key, err := f.Column(KeyColumn)
	if err != nil {
		return nil, err
	}
	idx := make(map[int64]int, len(key.Values))
	for i, v := range key.Values {
		if math.IsNaN(v) {
			continue
		}
		k := int64(v)
		if _, dup := idx[k]; dup {
			return nil, errors.NewValueError("Merge", fmt.Sprintf("duplicate %s value %d", KeyColumn, k))
		}
		idx[k] = i
	}
	return idx, nil
}
