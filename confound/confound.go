// Package confound defines confound model formula language over frames of named columns.
//
// A leaf is a column name or one of aliases:
//
//	gs, gsr  global_signal
//	wm       white_matter
//	csf      csf
//	rps      trans_x, trans_y, trans_z, rot_x, rot_y, rot_z
//	fd       framewise_displacement
//	dv       std_dvars
//
// Operators (tightest first):
//
//	x^^N         power expansion: x, x_power2, ..., x_powerN
//	dN(x)        N-th temporal derivative: x_derivativeN
//	dN-M(x)      derivatives of orders N to M, order 0 is x itself
//	ddN(x)       same as d0-N(x)
//	1_[<v](x)    threshold mask, comparison is one of < <= > >= == !=
//	[AND](x)     single mask column: all columns of x are non-zero
//	[OR](x)      single mask column: any column of x is non-zero
//	[NOT](x)     negated masks
//	[SCATTER](x) one spike regressor per non-zero mask value
//	x + y        union of columns
//
// {{glob; key=value; ...}} selects columns with names matching the glob and metadata
// attributes matching all filters. The glob may be a component family keyword (acc, tcc, aroma).
// A filter value may list comma-separated alternatives, booleans match regardless of case.
//
// n_{{N; glob; filters}} selects the first N matching components of each Mask group,
// v_{{P; glob; filters}} selects leading components of each Mask group explaining
// at least P percent of variance.
package confound

import (
	"errors"
	"fmt"
	"math"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/ava12/gramform/grammar"
)

// Meta holds column attributes: column name -> attribute name -> value.
// It is passed through compiled formulas unchanged.
type Meta map[string]map[string]any

// Node is a compiled formula node.
type Node = grammar.Closure[*Frame, *Frame, Meta]

// Model is a compiled confound model.
type Model func(data *Frame, meta Meta) (*Frame, Meta, error)

// Operator precedences.
const (
	PowerPrecedence      = 1
	DerivativePrecedence = 2
	MaskPrecedence       = 3
	UnionPrecedence      = 4
)

// Aliases maps short leaf names to column lists.
var Aliases = map[string][]string{
	"gs":  {"global_signal"},
	"gsr": {"global_signal"},
	"wm":  {"white_matter"},
	"csf": {"csf"},
	"rps": {"trans_x", "trans_y", "trans_z", "rot_x", "rot_y", "rot_z"},
	"fd":  {"framewise_displacement"},
	"dv":  {"std_dvars"},
}

var columnRe = regexp.MustCompile(`^\w+$`)

// SelectColumns is the leaf interpreter: a leaf selects aliased or named columns.
func SelectColumns(leaf string) (Node, error) {
	names, f := Aliases[leaf]
	if !f {
		if !columnRe.MatchString(leaf) {
			return nil, fmt.Errorf("invalid column name %q", leaf)
		}
		names = []string{leaf}
	}

	return func(data *Frame, meta Meta) (*Frame, Meta) {
		return data.Select(names...), meta
	}, nil
}

func unary(children []Node, f func(*Frame) *Frame) Node {
	return func(data *Frame, meta Meta) (*Frame, Meta) {
		res, _ := children[0](data, meta)
		if res.Err() != nil {
			return res, meta
		}
		return f(res), meta
	}
}

func union(children []Node, _ grammar.Params) (Node, error) {
	return func(data *Frame, meta Meta) (*Frame, Meta) {
		frames := make([]*Frame, len(children))
		for i, c := range children {
			frames[i], _ = c(data, meta)
		}
		return Merge(frames...), meta
	}, nil
}

func power(children []Node, params grammar.Params) (Node, error) {
	order, e := grammar.Param(params, "order", 1)
	if e != nil {
		return nil, e
	}
	if order < 1 {
		return nil, fmt.Errorf("power order must be positive, got %d", order)
	}

	return unary(children, func(f *Frame) *Frame {
		return f.Map(func(c Column) ([]Column, error) {
			res := []Column{c}
			for k := 2; k <= order; k++ {
				values := make([]float64, len(c.Values))
				for i, v := range c.Values {
					values[i] = math.Pow(v, float64(k))
				}
				res = append(res, Column{fmt.Sprintf("%s_power%d", c.Name, k), values})
			}
			return res, nil
		})
	}), nil
}

func diff(values []float64) []float64 {
	res := make([]float64, len(values))
	for i := range values {
		if i == 0 {
			res[i] = math.NaN()
		} else {
			res[i] = values[i] - values[i-1]
		}
	}
	return res
}

func derivative(children []Node, params grammar.Params) (Node, error) {
	lo, e := grammar.Param(params, "lo", 0)
	if e != nil {
		return nil, e
	}
	hi, e := grammar.Param(params, "hi", lo)
	if e != nil {
		return nil, e
	}
	if lo > hi {
		return nil, fmt.Errorf("wrong derivative order range %d-%d", lo, hi)
	}

	return unary(children, func(f *Frame) *Frame {
		return f.Map(func(c Column) ([]Column, error) {
			res := make([]Column, 0, hi-lo+1)
			values := c.Values
			for k := 0; k <= hi; k++ {
				if k > 0 {
					values = diff(values)
				}
				if k == 0 && lo == 0 {
					res = append(res, c)
				} else if k >= lo {
					res = append(res, Column{fmt.Sprintf("%s_derivative%d", c.Name, k), values})
				}
			}
			return res, nil
		})
	}), nil
}

func derivativeRange(raw map[string]string) (grammar.Params, error) {
	params, e := grammar.ParseInts("lo", "hi")(raw)
	if e != nil {
		return nil, e
	}
	if _, f := params["lo"]; !f {
		params["lo"] = 0
	}
	return params, nil
}

var comparisons = map[string]struct {
	name string
	cmp  func(a, b float64) bool
}{
	"<":  {"lt", func(a, b float64) bool { return a < b }},
	"<=": {"le", func(a, b float64) bool { return a <= b }},
	">":  {"gt", func(a, b float64) bool { return a > b }},
	">=": {"ge", func(a, b float64) bool { return a >= b }},
	"==": {"eq", func(a, b float64) bool { return a == b }},
	"!=": {"ne", func(a, b float64) bool { return a != b }},
}

func thresholdParams(raw map[string]string) (grammar.Params, error) {
	value, e := strconv.ParseFloat(raw["value"], 64)
	if e != nil {
		return nil, fmt.Errorf("threshold value: %w", e)
	}
	return grammar.Params{"op": raw["op"], "value": value}, nil
}

func threshold(children []Node, params grammar.Params) (Node, error) {
	op, e := grammar.Param(params, "op", "")
	if e != nil {
		return nil, e
	}
	value, e := grammar.Param(params, "value", 0.0)
	if e != nil {
		return nil, e
	}
	cmp, f := comparisons[op]
	if !f {
		return nil, fmt.Errorf("unknown comparison %q", op)
	}

	suffix := "_" + cmp.name + strconv.FormatFloat(value, 'g', -1, 64)
	return unary(children, func(f *Frame) *Frame {
		return f.Map(func(c Column) ([]Column, error) {
			values := make([]float64, len(c.Values))
			for i, v := range c.Values {
				values[i] = boolValue(!math.IsNaN(v) && cmp.cmp(v, value))
			}
			return []Column{{c.Name + suffix, values}}, nil
		})
	}), nil
}

func isSet(v float64) bool {
	return v != 0 && !math.IsNaN(v)
}

func reduceMask(f *Frame, name string, all bool) *Frame {
	if f.Width() == 0 {
		return Failed(errors.New(name + ": no columns"))
	}

	cols := f.Columns()
	values := make([]float64, f.Rows())
	for i := range values {
		set := all
		for _, c := range cols {
			if isSet(c.Values[i]) != all {
				set = !all
				break
			}
		}
		values[i] = boolValue(set)
	}
	return NewFrame(Column{name, values})
}

func logic(children []Node, params grammar.Params) (Node, error) {
	op, e := grammar.Param(params, "op", "")
	if e != nil {
		return nil, e
	}

	switch op {
	case "AND":
		return unary(children, func(f *Frame) *Frame {
			return reduceMask(f, "mask_and", true)
		}), nil
	case "OR":
		return unary(children, func(f *Frame) *Frame {
			return reduceMask(f, "mask_or", false)
		}), nil
	case "NOT":
		return unary(children, func(f *Frame) *Frame {
			return f.Map(func(c Column) ([]Column, error) {
				values := make([]float64, len(c.Values))
				for i, v := range c.Values {
					values[i] = boolValue(!isSet(v))
				}
				return []Column{{c.Name + "_not", values}}, nil
			})
		}), nil
	}
	return nil, fmt.Errorf("unknown mask operation %q", op)
}

func scatter(children []Node, _ grammar.Params) (Node, error) {
	return unary(children, func(f *Frame) *Frame {
		return f.Map(func(c Column) ([]Column, error) {
			res := make([]Column, 0)
			for i, v := range c.Values {
				if !isSet(v) {
					continue
				}

				values := make([]float64, len(c.Values))
				values[i] = 1
				res = append(res, Column{fmt.Sprintf("%s_spike%d", c.Name, i), values})
			}
			return res, nil
		})
	}), nil
}

// Families maps component family keywords to column name globs.
var Families = map[string]string{
	"acc":   "a_comp_cor_*",
	"tcc":   "t_comp_cor_*",
	"aroma": "aroma_motion_*",
}

// query selects columns by name glob and metadata filters.
// A filter holds alternative values of one attribute.
type query struct {
	glob    string
	filters map[string][]string
}

func parseQuery(parts []string) (query, error) {
	q := query{glob: strings.TrimSpace(parts[0]), filters: make(map[string][]string)}
	if g, f := Families[q.glob]; f {
		q.glob = g
	}
	if _, e := path.Match(q.glob, ""); e != nil {
		return q, fmt.Errorf("glob %q: %w", q.glob, e)
	}

	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		k, v, f := strings.Cut(part, "=")
		if !f {
			return q, fmt.Errorf("wrong filter %q, expecting key=value", part)
		}

		values := strings.Split(v, ",")
		for i, value := range values {
			values[i] = strings.TrimSpace(value)
		}
		k = strings.TrimSpace(k)
		q.filters[k] = append(q.filters[k], values...)
	}
	return q, nil
}

func attrMatches(attr any, value string) bool {
	switch a := attr.(type) {
	case bool:
		return strings.EqualFold(strconv.FormatBool(a), value)
	case float64:
		x, e := strconv.ParseFloat(value, 64)
		return e == nil && x == a
	case int:
		x, e := strconv.ParseFloat(value, 64)
		return e == nil && x == float64(a)
	default:
		return fmt.Sprint(attr) == value
	}
}

func (q query) matches(name string, meta Meta) bool {
	if f, _ := path.Match(q.glob, name); !f {
		return false
	}

	attrs := meta[name]
	for k, values := range q.filters {
		attr, f := attrs[k]
		if !f {
			return false
		}

		found := false
		for _, v := range values {
			if attrMatches(attr, v) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// names returns matching column names in frame order.
func (q query) names(data *Frame, meta Meta) []string {
	res := make([]string, 0)
	for _, name := range data.Names() {
		if q.matches(name, meta) {
			res = append(res, name)
		}
	}
	return res
}

func globParams(raw map[string]string) (grammar.Params, error) {
	q, e := parseQuery(strings.Split(raw["query"], ";"))
	if e != nil {
		return nil, e
	}
	return grammar.Params{"query": q}, nil
}

func glob(_ []Node, params grammar.Params) (Node, error) {
	q, e := grammar.Param(params, "query", query{glob: "*"})
	if e != nil {
		return nil, e
	}

	return func(data *Frame, meta Meta) (*Frame, Meta) {
		if data.Err() != nil {
			return data, meta
		}
		return data.Select(q.names(data, meta)...), meta
	}, nil
}

func componentParams(raw map[string]string) (grammar.Params, error) {
	parts := strings.Split(raw["query"], ";")
	if len(parts) < 2 {
		return nil, fmt.Errorf("wrong component query %q, expecting {{limit; family; filters}}", raw["query"])
	}

	q, e := parseQuery(parts[1:])
	if e != nil {
		return nil, e
	}

	limit := strings.TrimSpace(parts[0])
	if raw["mode"] == "n" {
		n, e := strconv.Atoi(limit)
		if e != nil || n < 1 {
			return nil, fmt.Errorf("wrong component count %q", limit)
		}
		return grammar.Params{"query": q, "count": n}, nil
	}

	v, e := strconv.ParseFloat(limit, 64)
	if e != nil || v <= 0 || v > 100 {
		return nil, fmt.Errorf("wrong explained variance percentage %q", limit)
	}
	return grammar.Params{"query": q, "variance": v / 100}, nil
}

// ComponentGroup is the attribute splitting component families into groups counted separately.
const ComponentGroup = "Mask"

func number(attr any) (float64, bool) {
	switch a := attr.(type) {
	case float64:
		return a, true
	case int:
		return float64(a), true
	}
	return 0, false
}

// varianceSelected returns names of group members needed to explain given share of variance.
// Cumulative share is read from CumulativeVarianceExplained or summed from VarianceExplained.
func varianceSelected(names []string, meta Meta, share float64) []string {
	res := make([]string, 0)
	total := 0.0
	for _, name := range names {
		if total >= share {
			break
		}

		res = append(res, name)
		attrs := meta[name]
		if cum, f := number(attrs["CumulativeVarianceExplained"]); f {
			total = cum
		} else if v, f := number(attrs["VarianceExplained"]); f {
			total += v
		}
	}
	return res
}

func components(_ []Node, params grammar.Params) (Node, error) {
	q, e := grammar.Param(params, "query", query{glob: "*"})
	if e != nil {
		return nil, e
	}
	count, e := grammar.Param(params, "count", 0)
	if e != nil {
		return nil, e
	}
	share, e := grammar.Param(params, "variance", 0.0)
	if e != nil {
		return nil, e
	}

	return func(data *Frame, meta Meta) (*Frame, Meta) {
		if data.Err() != nil {
			return data, meta
		}

		groups := make(map[string][]string)
		order := make([]string, 0)
		for _, name := range q.names(data, meta) {
			key := fmt.Sprint(meta[name][ComponentGroup])
			if _, f := groups[key]; !f {
				order = append(order, key)
			}
			groups[key] = append(groups[key], name)
		}

		selected := make(map[string]bool)
		for _, key := range order {
			names := groups[key]
			if count > 0 {
				if len(names) > count {
					names = names[:count]
				}
			} else {
				names = varianceSelected(names, meta, share)
			}
			for _, name := range names {
				selected[name] = true
			}
		}

		res := make([]string, 0, len(selected))
		for _, name := range data.Names() {
			if selected[name] {
				res = append(res, name)
			}
		}
		return data.Select(res...), meta
	}, nil
}

// Primitives returns confound formula operators.
func Primitives() grammar.TransformPool[*Frame, *Frame, Meta] {
	return grammar.NewTransformPool(
		grammar.Primitive[*Frame, *Frame, Meta]{
			Name:        "union",
			MinArity:    2,
			MaxArity:    grammar.Unbounded,
			Precedence:  UnionPrecedence,
			Associative: true,
			Commutative: true,
			Literals:    []grammar.Literalisation{grammar.Symbol(grammar.Infix, "+")},
			Combine:     union,
		},
		grammar.Primitive[*Frame, *Frame, Meta]{
			Name:       "power",
			MinArity:   1,
			MaxArity:   1,
			Precedence: PowerPrecedence,
			Literals: []grammar.Literalisation{{
				Affix:       grammar.Suffix,
				Pattern:     `\^\^(?P<order>\d+)`,
				ParseParams: grammar.ParseInts("order"),
			}},
			Combine: power,
		},
		grammar.Primitive[*Frame, *Frame, Meta]{
			Name:       "derivative",
			MinArity:   1,
			MaxArity:   1,
			Precedence: DerivativePrecedence,
			Literals: []grammar.Literalisation{
				{Affix: grammar.Prefix, Pattern: `d(?P<lo>\d+)(?:-(?P<hi>\d+))?`, ParseParams: derivativeRange},
				{Affix: grammar.Prefix, Pattern: `dd(?P<hi>\d+)`, ParseParams: derivativeRange},
			},
			Combine: derivative,
		},
		grammar.Primitive[*Frame, *Frame, Meta]{
			Name:       "threshold",
			MinArity:   1,
			MaxArity:   1,
			Precedence: MaskPrecedence,
			Literals: []grammar.Literalisation{{
				Affix:       grammar.Prefix,
				Pattern:     `1_\[(?P<op><=|>=|==|!=|<|>)(?P<value>[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?)\]`,
				ParseParams: thresholdParams,
			}},
			Combine: threshold,
		},
		grammar.Primitive[*Frame, *Frame, Meta]{
			Name:       "mask",
			MinArity:   1,
			MaxArity:   1,
			Precedence: MaskPrecedence,
			Literals:   []grammar.Literalisation{{Affix: grammar.Prefix, Pattern: `\[(?P<op>AND|OR|NOT)\]`}},
			Combine:    logic,
		},
		grammar.Primitive[*Frame, *Frame, Meta]{
			Name:       "scatter",
			MinArity:   1,
			MaxArity:   1,
			Precedence: MaskPrecedence,
			Literals:   []grammar.Literalisation{grammar.Symbol(grammar.Prefix, "[SCATTER]")},
			Combine:    scatter,
		},
		grammar.Primitive[*Frame, *Frame, Meta]{
			Name:     "components",
			MinArity: 0,
			MaxArity: 0,
			Literals: []grammar.Literalisation{{
				Affix:       grammar.Leaf,
				Pattern:     `(?P<mode>[nv])_\{\{(?P<query>[^{}]*)\}\}`,
				ParseParams: componentParams,
			}},
			Combine: components,
		},
		grammar.Primitive[*Frame, *Frame, Meta]{
			Name:     "glob",
			MinArity: 0,
			MaxArity: 0,
			Literals: []grammar.Literalisation{{
				Affix:       grammar.Leaf,
				Pattern:     `\{\{(?P<query>[^{}]*)\}\}`,
				ParseParams: globParams,
			}},
			Combine: glob,
		},
	)
}

// ReturnModel is the root transform turning frame errors into returned errors.
var ReturnModel = &grammar.RootTransform[*Frame, *Frame, Meta, Model]{
	Name: "model",
	Wrap: func(n Node) (Model, error) {
		return func(data *Frame, meta Meta) (*Frame, Meta, error) {
			res, meta := n(data, meta)
			if e := res.Err(); e != nil {
				return nil, meta, e
			}
			return res, meta, nil
		}, nil
	},
}

// Config returns confound formula grammar configuration.
func Config() grammar.Config[*Frame, *Frame, Meta, Model] {
	return grammar.Config[*Frame, *Frame, Meta, Model]{
		Groupings:  grammar.NewGroupingPool(grammar.Grouping{Open: "(", Close: ")"}),
		Transforms: Primitives(),
		Leaf:       SelectColumns,
		Root:       ReturnModel,
	}
}

// New creates confound formula grammar.
func New() *grammar.Grammar[*Frame, *Frame, Meta, Model] {
	return grammar.MustNew(Config())
}
