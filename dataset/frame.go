// Package dataset provides the column-oriented table used throughout the
// pipeline, plus loaders for the two raw survey formats (SAS XPORT and CSV)
// and the inner-join merge on the subject key.
//
// A Frame is a set of ordered, named float64 columns sharing one row count.
// NaN marks a missing value. Categorical raw columns are stored as numeric
// level codes with a per-column category table, so one-hot encoding and
// display-label export both read from the same source of truth.
package dataset

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/bioforge/organclock/pkg/errors"
)

// KeyColumn is the subject identifier column joining all survey tables.
const KeyColumn = "SEQN"

// Column is one named column of a Frame.
type Column struct {
	Name   string
	Values []float64

	// Categories is non-nil for categorical columns; Values then hold
	// level codes indexing into it (NaN still means missing).
	Categories []string
}

// IsCategorical reports whether the column stores category level codes.
func (c *Column) IsCategorical() bool {
	return c.Categories != nil
}

// Level returns the category label for row i, or "" for missing values.
func (c *Column) Level(i int) string {
	if !c.IsCategorical() || math.IsNaN(c.Values[i]) {
		return ""
	}
	code := int(c.Values[i])
	if code < 0 || code >= len(c.Categories) {
		return ""
	}
	return c.Categories[code]
}

// Frame is an ordered collection of equal-length columns.
type Frame struct {
	cols  []*Column
	index map[string]int
}

// New creates an empty Frame.
func New() *Frame {
	return &Frame{index: map[string]int{}}
}

// CanonicalName upper-cases a column name and replaces spaces with
// underscores, matching how raw survey files are normalized on load.
func CanonicalName(name string) string {
	return strings.ReplaceAll(strings.ToUpper(name), " ", "_")
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int {
	if len(f.cols) == 0 {
		return 0
	}
	return len(f.cols[0].Values)
}

// NumCols returns the number of columns.
func (f *Frame) NumCols() int {
	return len(f.cols)
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether a column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column or an error.
func (f *Frame) Column(name string) (*Column, error) {
	i, ok := f.index[name]
	if !ok {
		return nil, errors.NewValueError("Frame.Column", "column not found: "+name)
	}
	return f.cols[i], nil
}

// AddColumn appends a numeric column. The length must match the existing
// row count unless the Frame is empty.
func (f *Frame) AddColumn(name string, values []float64) error {
	return f.add(&Column{Name: name, Values: values})
}

// AddCategoricalColumn appends a categorical column with its level table.
func (f *Frame) AddCategoricalColumn(name string, codes []float64, categories []string) error {
	return f.add(&Column{Name: name, Values: codes, Categories: categories})
}

func (f *Frame) add(c *Column) error {
	if f.HasColumn(c.Name) {
		return errors.NewValueError("Frame.AddColumn", "duplicate column: "+c.Name)
	}
	if len(f.cols) > 0 && len(c.Values) != f.NumRows() {
		return errors.NewDimensionError("Frame.AddColumn", f.NumRows(), len(c.Values), 0)
	}
	f.index[c.Name] = len(f.cols)
	f.cols = append(f.cols, c)
	return nil
}

// SetColumn replaces the values of an existing column, or appends a new
// numeric column if the name is unknown.
func (f *Frame) SetColumn(name string, values []float64) error {
	i, ok := f.index[name]
	if !ok {
		return f.AddColumn(name, values)
	}
	if len(values) != f.NumRows() {
		return errors.NewDimensionError("Frame.SetColumn", f.NumRows(), len(values), 0)
	}
	f.cols[i] = &Column{Name: name, Values: values}
	return nil
}

// DropColumns removes the named columns; unknown names are ignored.
func (f *Frame) DropColumns(names ...string) {
	drop := map[string]bool{}
	for _, n := range names {
		drop[n] = true
	}
	kept := f.cols[:0:0]
	for _, c := range f.cols {
		if !drop[c.Name] {
			kept = append(kept, c)
		}
	}
	f.cols = kept
	f.index = map[string]int{}
	for i, c := range f.cols {
		f.index[c.Name] = i
	}
}

// Select returns a new Frame holding copies of the named columns in the
// given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	out := New()
	for _, name := range names {
		c, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		values := make([]float64, len(c.Values))
		copy(values, c.Values)
		var cats []string
		if c.IsCategorical() {
			cats = append([]string(nil), c.Categories...)
		}
		if err := out.add(&Column{Name: name, Values: values, Categories: cats}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Copy returns a deep copy of the Frame.
func (f *Frame) Copy() *Frame {
	out, _ := f.Select(f.Names()...)
	return out
}

// Filter returns a new Frame keeping only rows where keep[i] is true.
func (f *Frame) Filter(keep []bool) (*Frame, error) {
	if len(keep) != f.NumRows() {
		return nil, errors.NewDimensionError("Frame.Filter", f.NumRows(), len(keep), 0)
	}
	out := New()
	for _, c := range f.cols {
		values := make([]float64, 0, len(c.Values))
		for i, v := range c.Values {
			if keep[i] {
				values = append(values, v)
			}
		}
		var cats []string
		if c.IsCategorical() {
			cats = append([]string(nil), c.Categories...)
		}
		if err := out.add(&Column{Name: c.Name, Values: values, Categories: cats}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// TakeRows returns a new Frame with the rows at the given indices, in order.
func (f *Frame) TakeRows(indices []int) (*Frame, error) {
	out := New()
	for _, c := range f.cols {
		values := make([]float64, len(indices))
		for j, i := range indices {
			if i < 0 || i >= len(c.Values) {
				return nil, errors.NewValueError("Frame.TakeRows", "row index out of range")
			}
			values[j] = c.Values[i]
		}
		var cats []string
		if c.IsCategorical() {
			cats = append([]string(nil), c.Categories...)
		}
		if err := out.add(&Column{Name: c.Name, Values: values, Categories: cats}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Matrix assembles the named columns into a row-major gonum matrix.
func (f *Frame) Matrix(names ...string) (*mat.Dense, error) {
	if len(names) == 0 {
		names = f.Names()
	}
	rows := f.NumRows()
	m := mat.NewDense(rows, len(names), nil)
	for j, name := range names {
		c, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		for i := 0; i < rows; i++ {
			m.Set(i, j, c.Values[i])
		}
	}
	return m, nil
}

// Vector returns a copy of one column as a gonum vector.
func (f *Frame) Vector(name string) (*mat.VecDense, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	return mat.NewVecDense(len(c.Values), append([]float64(nil), c.Values...)), nil
}

// CompleteRows returns a mask that is true for rows with no missing value
// in any of the named columns.
func (f *Frame) CompleteRows(names ...string) ([]bool, error) {
	keep := make([]bool, f.NumRows())
	for i := range keep {
		keep[i] = true
	}
	for _, name := range names {
		c, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		for i, v := range c.Values {
			if math.IsNaN(v) {
				keep[i] = false
			}
		}
	}
	return keep, nil
}
