package confound

import (
	"fmt"
	"math"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Column is a named series of values, NaN marks missing values.
type Column struct {
	Name   string
	Values []float64
}

// Frame is an immutable ordered set of named columns of equal length.
// A frame may carry an error; operations on such frame return it unchanged.
type Frame struct {
	columns []Column
	index   map[string]int
	rows    int
	err     error
}

// NewFrame creates a frame holding given columns.
// Returns failed frame if column lengths differ or names are not unique.
func NewFrame(cols ...Column) *Frame {
	f := &Frame{columns: make([]Column, 0, len(cols)), index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if i == 0 {
			f.rows = len(c.Values)
		} else if len(c.Values) != f.rows {
			return Failed(fmt.Errorf("column %s has %d rows, expecting %d", c.Name, len(c.Values), f.rows))
		}

		if _, has := f.index[c.Name]; has {
			return Failed(fmt.Errorf("duplicate column %s", c.Name))
		}

		f.index[c.Name] = len(f.columns)
		f.columns = append(f.columns, c)
	}
	return f
}

// Failed creates a frame carrying error e.
func Failed(e error) *Frame {
	return &Frame{err: e}
}

// Err returns the error carried by a failed frame or nil.
func (f *Frame) Err() error {
	return f.err
}

// Rows returns column length.
func (f *Frame) Rows() int {
	return f.rows
}

// Width returns the number of columns.
func (f *Frame) Width() int {
	return len(f.columns)
}

// Names returns column names in frame order.
func (f *Frame) Names() []string {
	res := make([]string, len(f.columns))
	for i, c := range f.columns {
		res[i] = c.Name
	}
	return res
}

// Has tells whether the frame has named column.
func (f *Frame) Has(name string) bool {
	_, has := f.index[name]
	return has
}

// Column returns named column. Column values must not be modified.
func (f *Frame) Column(name string) (Column, bool) {
	i, has := f.index[name]
	if !has {
		return Column{}, false
	}
	return f.columns[i], true
}

// Columns returns all columns in frame order.
func (f *Frame) Columns() []Column {
	return append([]Column(nil), f.columns...)
}

// Select returns a frame holding named columns in given order.
func (f *Frame) Select(names ...string) *Frame {
	if f.err != nil {
		return f
	}

	cols := make([]Column, len(names))
	for i, name := range names {
		c, has := f.Column(name)
		if !has {
			return Failed(f.unknownColumnError(name))
		}
		cols[i] = c
	}
	return NewFrame(cols...)
}

func (f *Frame) unknownColumnError(name string) error {
	ranks := fuzzy.RankFindFold(name, f.Names())
	if len(ranks) == 0 {
		return fmt.Errorf("unknown column %s", name)
	}

	sort.Sort(ranks)
	return fmt.Errorf("unknown column %s, did you mean %s?", name, ranks[0].Target)
}

// Map replaces each column with columns returned by m.
func (f *Frame) Map(m func(c Column) ([]Column, error)) *Frame {
	if f.err != nil {
		return f
	}

	cols := make([]Column, 0, len(f.columns))
	for _, c := range f.columns {
		mapped, e := m(c)
		if e != nil {
			return Failed(e)
		}
		cols = append(cols, mapped...)
	}
	return NewFrame(cols...)
}

// Merge returns a frame holding columns of all frames, in first-seen order.
// A column name appearing in several frames is taken once.
func Merge(frames ...*Frame) *Frame {
	cols := make([]Column, 0)
	seen := make(map[string]bool)
	rows := -1
	for _, f := range frames {
		if f.err != nil {
			return f
		}
		if f.Width() == 0 {
			continue
		}

		if rows < 0 {
			rows = f.rows
		} else if f.rows != rows {
			return Failed(fmt.Errorf("cannot merge frames of %d and %d rows", rows, f.rows))
		}

		for _, c := range f.columns {
			if !seen[c.Name] {
				seen[c.Name] = true
				cols = append(cols, c)
			}
		}
	}
	return NewFrame(cols...)
}

// Sum returns the sum of column values, NaN values are skipped.
func (c Column) Sum() float64 {
	res := 0.0
	for _, v := range c.Values {
		if !math.IsNaN(v) {
			res += v
		}
	}
	return res
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
