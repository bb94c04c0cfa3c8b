package grammar

import "github.com/ava12/gramform/parser"

// Unbounded is the MaxArity value meaning "any number of operands".
const Unbounded = parser.Unbounded

// Closure is a compiled formula node.
// arg is the primary runtime argument, ctx is passed to every node unchanged and returned
// along with the result.
type Closure[A, R, C any] func(arg A, ctx C) (R, C)

// Combinator builds a closure for operator application from compiled operands (in source order)
// and converted literal parameters.
type Combinator[A, R, C any] func(children []Closure[A, R, C], params Params) (Closure[A, R, C], error)

// LeafInterpreter builds a closure for a bare leaf (a run of characters not matched by any literal).
type LeafInterpreter[A, R, C any] func(leaf string) (Closure[A, R, C], error)

// Grouping is a pair of delimiters enclosing a subexpression.
type Grouping struct {
	Open, Close string
}

// Primitive defines an operator: its arity, binding properties, notations and semantics.
type Primitive[A, R, C any] struct {
	Name               string
	MinArity, MaxArity int

	// Precedence: the smaller the value, the tighter the binding.
	Precedence  int
	Associative bool
	Commutative bool
	Literals    []Literalisation
	Combine     Combinator[A, R, C]
}

func (p Primitive[A, R, C]) operator() parser.Operator {
	return parser.Operator{
		Name:        p.Name,
		MinArity:    p.MinArity,
		MaxArity:    p.MaxArity,
		Precedence:  p.Precedence,
		Associative: p.Associative,
		Commutative: p.Commutative,
	}
}

// GroupingPool is an immutable ordered collection of groupings.
// The first grouping is used when formatting formulas.
type GroupingPool struct {
	groupings []Grouping
}

// NewGroupingPool creates a pool holding a copy of gs.
func NewGroupingPool(gs ...Grouping) GroupingPool {
	return GroupingPool{append([]Grouping(nil), gs...)}
}

// Len returns the number of groupings.
func (gp GroupingPool) Len() int {
	return len(gp.groupings)
}

// Grouping returns grouping by index.
func (gp GroupingPool) Grouping(index int) Grouping {
	return gp.groupings[index]
}

// All returns a copy of pool contents.
func (gp GroupingPool) All() []Grouping {
	return append([]Grouping(nil), gp.groupings...)
}

// TransformPool is an immutable ordered collection of primitives.
// Primitive order defines literal registration order.
type TransformPool[A, R, C any] struct {
	prims []Primitive[A, R, C]
}

// NewTransformPool creates a pool holding a copy of ps.
func NewTransformPool[A, R, C any](ps ...Primitive[A, R, C]) TransformPool[A, R, C] {
	prims := make([]Primitive[A, R, C], len(ps))
	for i, p := range ps {
		p.Literals = append([]Literalisation(nil), p.Literals...)
		prims[i] = p
	}
	return TransformPool[A, R, C]{prims}
}

// Len returns the number of primitives.
func (tp TransformPool[A, R, C]) Len() int {
	return len(tp.prims)
}

// Primitive returns a copy of primitive by index.
func (tp TransformPool[A, R, C]) Primitive(index int) Primitive[A, R, C] {
	p := tp.prims[index]
	p.Literals = append([]Literalisation(nil), p.Literals...)
	return p
}

// ByName returns a copy of named primitive.
func (tp TransformPool[A, R, C]) ByName(name string) (Primitive[A, R, C], bool) {
	for i, p := range tp.prims {
		if p.Name == name {
			return tp.Primitive(i), true
		}
	}
	return Primitive[A, R, C]{}, false
}

// With returns a new pool with ps appended.
func (tp TransformPool[A, R, C]) With(ps ...Primitive[A, R, C]) TransformPool[A, R, C] {
	all := make([]Primitive[A, R, C], 0, len(tp.prims)+len(ps))
	all = append(all, tp.prims...)
	all = append(all, ps...)
	return NewTransformPool(all...)
}

// RootTransform converts compiled formula closure to the final value of type F.
// It is applied once, after the whole tree is compiled.
type RootTransform[A, R, C, F any] struct {
	Name string
	Wrap func(c Closure[A, R, C]) (F, error)
}
