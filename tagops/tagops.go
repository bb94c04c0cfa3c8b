// Package tagops defines boolean tag algebra: formulas select named values by tag membership.
//
// Tags map tag names to value keys. A formula combines tags with operators
// (tightest first): "!" or "~" (complement), "&" (intersection), "^" (symmetric difference),
// "|" (union). Complement is taken relative to the keys of values passed to compiled formula.
// A tag missing from the tag map selects nothing.
//
//	f, _ := tagops.New[int]().Compile("~a&bcd")
//	selected := f(tags, values)
package tagops

import (
	"sort"

	"github.com/ava12/gramform/grammar"
)

// Tags maps tag names to lists of value keys.
type Tags map[string][]string

// Set is a set of value keys.
type Set map[string]struct{}

// NewSet creates a set of given keys.
func NewSet(keys ...string) Set {
	res := make(Set, len(keys))
	for _, k := range keys {
		res[k] = struct{}{}
	}
	return res
}

// Has tells whether key is in the set.
func (s Set) Has(key string) bool {
	_, f := s[key]
	return f
}

// Sorted returns set keys in ascending order.
func (s Set) Sorted() []string {
	res := make([]string, 0, len(s))
	for k := range s {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

// Selector is a compiled formula node: takes tags and universe, returns selected keys and the universe.
type Selector = grammar.Closure[Tags, Set, Set]

// Func selects values by tags, the result is a new map.
type Func[V any] func(tags Tags, values map[string]V) map[string]V

// Operator precedences.
const (
	ComplementPrecedence   = 1
	IntersectionPrecedence = 2
	XorPrecedence          = 3
	UnionPrecedence        = 4
)

func evalAll(children []Selector, tags Tags, universe Set) []Set {
	res := make([]Set, len(children))
	for i, c := range children {
		res[i], _ = c(tags, universe)
	}
	return res
}

func union(children []Selector, _ grammar.Params) (Selector, error) {
	return func(tags Tags, universe Set) (Set, Set) {
		res := make(Set)
		for _, s := range evalAll(children, tags, universe) {
			for k := range s {
				res[k] = struct{}{}
			}
		}
		return res, universe
	}, nil
}

func intersection(children []Selector, _ grammar.Params) (Selector, error) {
	return func(tags Tags, universe Set) (Set, Set) {
		sets := evalAll(children, tags, universe)
		res := make(Set)
		for k := range sets[0] {
			found := true
			for _, s := range sets[1:] {
				if !s.Has(k) {
					found = false
					break
				}
			}
			if found {
				res[k] = struct{}{}
			}
		}
		return res, universe
	}, nil
}

func xor(children []Selector, _ grammar.Params) (Selector, error) {
	return func(tags Tags, universe Set) (Set, Set) {
		res := make(Set)
		for _, s := range evalAll(children, tags, universe) {
			for k := range s {
				if res.Has(k) {
					delete(res, k)
				} else {
					res[k] = struct{}{}
				}
			}
		}
		return res, universe
	}, nil
}

func complement(children []Selector, _ grammar.Params) (Selector, error) {
	return func(tags Tags, universe Set) (Set, Set) {
		s, _ := children[0](tags, universe)
		res := make(Set)
		for k := range universe {
			if !s.Has(k) {
				res[k] = struct{}{}
			}
		}
		return res, universe
	}, nil
}

// Primitives returns tag algebra operators.
func Primitives() grammar.TransformPool[Tags, Set, Set] {
	return grammar.NewTransformPool(
		grammar.Primitive[Tags, Set, Set]{
			Name:        "union",
			MinArity:    2,
			MaxArity:    grammar.Unbounded,
			Precedence:  UnionPrecedence,
			Associative: true,
			Commutative: true,
			Literals:    []grammar.Literalisation{grammar.Symbol(grammar.Infix, "|")},
			Combine:     union,
		},
		grammar.Primitive[Tags, Set, Set]{
			Name:        "intersection",
			MinArity:    2,
			MaxArity:    grammar.Unbounded,
			Precedence:  IntersectionPrecedence,
			Associative: true,
			Commutative: true,
			Literals:    []grammar.Literalisation{grammar.Symbol(grammar.Infix, "&")},
			Combine:     intersection,
		},
		grammar.Primitive[Tags, Set, Set]{
			Name:       "complement",
			MinArity:   1,
			MaxArity:   1,
			Precedence: ComplementPrecedence,
			Literals: []grammar.Literalisation{
				grammar.Symbol(grammar.Prefix, "!"),
				grammar.Symbol(grammar.Prefix, "~"),
			},
			Combine: complement,
		},
		grammar.Primitive[Tags, Set, Set]{
			Name:        "xor",
			MinArity:    2,
			MaxArity:    grammar.Unbounded,
			Precedence:  XorPrecedence,
			Associative: true,
			Commutative: true,
			Literals:    []grammar.Literalisation{grammar.Symbol(grammar.Infix, "^")},
			Combine:     xor,
		},
	)
}

// SelectTag is the leaf interpreter: a leaf selects keys listed for the tag.
func SelectTag(leaf string) (Selector, error) {
	return func(tags Tags, universe Set) (Set, Set) {
		return NewSet(tags[leaf]...), universe
	}, nil
}

// Universe returns the set of keys of values.
func Universe[V any](values map[string]V) Set {
	res := make(Set, len(values))
	for k := range values {
		res[k] = struct{}{}
	}
	return res
}

// Select evaluates selector against tags and universe.
// Keys not in universe are dropped from the result.
func Select(s Selector, tags Tags, universe Set) Set {
	selected, _ := s(tags, universe)
	res := make(Set, len(selected))
	for k := range selected {
		if universe.Has(k) {
			res[k] = struct{}{}
		}
	}
	return res
}

// ReturnSelected is the root transform: compiled formula returns values having selected keys.
func ReturnSelected[V any]() *grammar.RootTransform[Tags, Set, Set, Func[V]] {
	return &grammar.RootTransform[Tags, Set, Set, Func[V]]{
		Name: "return selected",
		Wrap: func(s Selector) (Func[V], error) {
			return func(tags Tags, values map[string]V) map[string]V {
				res := make(map[string]V)
				for k := range Select(s, tags, Universe(values)) {
					res[k] = values[k]
				}
				return res
			}, nil
		},
	}
}

// Config returns tag algebra grammar configuration, it may be extended with more primitives.
func Config[V any]() grammar.Config[Tags, Set, Set, Func[V]] {
	return grammar.Config[Tags, Set, Set, Func[V]]{
		Groupings:  grammar.NewGroupingPool(grammar.Grouping{Open: "(", Close: ")"}),
		Transforms: Primitives(),
		Leaf:       SelectTag,
		Root:       ReturnSelected[V](),
	}
}

// New creates tag algebra grammar for values of type V.
func New[V any]() *grammar.Grammar[Tags, Set, Set, Func[V]] {
	return grammar.MustNew(Config[V]())
}
