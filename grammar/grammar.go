// Package grammar defines formula grammar configuration and the compiler turning formula text
// into closures.
//
// A grammar is built from groupings, a pool of primitives (operators with their notations and
// semantics), an optional leaf interpreter and an optional root transform.
// Type parameters: A is the runtime argument type, R is the node result type, C is the context
// type passed through all nodes unchanged, F is the type of compiled formula.
package grammar

import (
	"regexp"

	"github.com/ava12/gramform/lexer"
	"github.com/ava12/gramform/parser"
	"github.com/ava12/gramform/source"
	"github.com/ava12/gramform/tree"
)

// Config holds grammar definition.
type Config[A, R, C, F any] struct {
	Groupings  GroupingPool
	Transforms TransformPool[A, R, C]

	// Whitespace is significant: literals may match whitespace, unmatched whitespace is an error.
	Whitespace bool

	// Leaf interprets bare leaves, may be nil if the language has none.
	Leaf LeafInterpreter[A, R, C]

	// Root may be nil only if F is Closure[A, R, C].
	Root *RootTransform[A, R, C, F]
}

// Grammar is a validated formula grammar.
// Grammar is immutable and safe for concurrent use, as are the closures it compiles
// if combinators and leaf interpreter produce pure closures.
type Grammar[A, R, C, F any] struct {
	groupings  GroupingPool
	transforms TransformPool[A, R, C]
	leaf       LeafInterpreter[A, R, C]
	root       *RootTransform[A, R, C, F]
	whitespace bool
	lexer      *lexer.Lexer
	parser     *parser.Parser
}

// New validates configuration and creates grammar.
// Returns *gramform.Error with one of config error codes on failure.
func New[A, R, C, F any](c Config[A, R, C, F]) (*Grammar[A, R, C, F], error) {
	delims, e := buildDelimiters(c.Groupings)
	if e != nil {
		return nil, e
	}

	literals, ops, e := buildOperators(c.Transforms)
	if e != nil {
		return nil, e
	}

	var root *RootTransform[A, R, C, F]
	if c.Root == nil {
		if _, f := any((*F)(nil)).(*Closure[A, R, C]); !f {
			return nil, rootTypeError("output type differs from closure type, root transform required")
		}
	} else {
		if c.Root.Wrap == nil {
			return nil, rootTypeError("missing Wrap function")
		}
		rt := *c.Root
		root = &rt
	}

	return &Grammar[A, R, C, F]{
		groupings:  c.Groupings,
		transforms: c.Transforms,
		leaf:       c.Leaf,
		root:       root,
		whitespace: c.Whitespace,
		lexer:      lexer.New(literals, delims, c.Whitespace),
		parser:     parser.New(ops),
	}, nil
}

// MustNew is like New, but panics on error.
func MustNew[A, R, C, F any](c Config[A, R, C, F]) *Grammar[A, R, C, F] {
	g, e := New(c)
	if e != nil {
		panic(e)
	}
	return g
}

func buildDelimiters(gp GroupingPool) ([]lexer.Delimiters, error) {
	delims := make([]lexer.Delimiters, gp.Len())
	used := make(map[string]bool)
	for i, g := range gp.groupings {
		if g.Open == "" || g.Close == "" {
			return nil, badGroupingError(i, "empty delimiter")
		}
		if g.Open == g.Close {
			return nil, badGroupingError(i, "opening and closing delimiters coincide")
		}
		if used[g.Open] || used[g.Close] {
			return nil, badGroupingError(i, "delimiter already used")
		}

		used[g.Open] = true
		used[g.Close] = true
		delims[i] = lexer.Delimiters{Open: g.Open, Close: g.Close}
	}
	return delims, nil
}

func buildOperators[A, R, C any](tp TransformPool[A, R, C]) ([]lexer.Literal, []parser.Operator, error) {
	literals := make([]lexer.Literal, 0)
	ops := make([]parser.Operator, tp.Len())
	names := make(map[string]bool)
	for i, p := range tp.prims {
		if p.Name == "" {
			return nil, nil, badPrimitiveError(i, p.Name, "empty name")
		}
		if names[p.Name] {
			return nil, nil, duplicateNameError(p.Name)
		}
		names[p.Name] = true

		if p.Combine == nil {
			return nil, nil, badPrimitiveError(i, p.Name, "missing combinator")
		}
		if p.MinArity < 0 || (p.MaxArity != Unbounded && p.MaxArity < p.MinArity) {
			return nil, nil, badArityError(p.Name, p.MinArity, p.MaxArity)
		}
		if len(p.Literals) == 0 {
			return nil, nil, noLiteralError(p.Name)
		}

		for j, lit := range p.Literals {
			if lit.Affix < Prefix || lit.Affix > Leaf {
				return nil, nil, badLiteralError(p.Name, j, "unknown affix")
			}
			if lit.Pattern == "" {
				return nil, nil, badLiteralError(p.Name, j, "empty pattern")
			}

			re, e := regexp.Compile("^(?:" + lit.Pattern + ")")
			if e != nil {
				return nil, nil, badPatternError(p.Name, lit.Pattern, e)
			}
			literals = append(literals, lexer.Literal{Op: i, Literal: j, Affix: lit.Affix, Re: re})
		}

		ops[i] = p.operator()
	}
	return literals, ops, nil
}

// Groupings returns grouping pool of the grammar.
func (g *Grammar[A, R, C, F]) Groupings() GroupingPool {
	return g.groupings
}

// Transforms returns primitive pool of the grammar.
func (g *Grammar[A, R, C, F]) Transforms() TransformPool[A, R, C] {
	return g.transforms
}

// ParseSource tokenizes and parses source text.
// Returns *gramform.Error with lexer or parser error code on failure.
func (g *Grammar[A, R, C, F]) ParseSource(src *source.Source) (*tree.Node, error) {
	tokens, e := g.lexer.Tokenize(src)
	if e != nil {
		return nil, e
	}

	return g.parser.Parse(src, tokens)
}

// Parse is a shortcut for ParseSource with unnamed source.
func (g *Grammar[A, R, C, F]) Parse(text string) (*tree.Node, error) {
	return g.ParseSource(source.New("", text))
}

// Format returns canonical form of a formula: every compound operand is enclosed
// in the first grouping delimiters, and an operand that would merge with adjacent operator text
// is separated from it with a space (or enclosed in delimiters if whitespace is significant).
// Returns *gramform.Error with NoCanonicalFormError code if the canonical text does not parse
// back into an equal tree, e.g. when the grammar has no groupings but the formula needs them.
func (g *Grammar[A, R, C, F]) Format(text string) (string, error) {
	root, e := g.Parse(text)
	if e != nil {
		return "", e
	}

	f := tree.Formatter{Space: " "}
	if g.groupings.Len() > 0 {
		f.Open, f.Close = g.groupings.groupings[0].Open, g.groupings.groupings[0].Close
	}
	if g.whitespace {
		f.Space = ""
	}

	res := f.Format(root)
	reparsed, e := g.Parse(res)
	if e != nil || !tree.Equal(root, reparsed) {
		return "", noCanonicalFormError(text, res)
	}
	return res, nil
}

// CompileTree compiles parsed tree into closure, without root transform.
func (g *Grammar[A, R, C, F]) CompileTree(root *tree.Node) (Closure[A, R, C], error) {
	return g.compileNode(root)
}

// CompileSource parses and compiles source text, then applies root transform.
func (g *Grammar[A, R, C, F]) CompileSource(src *source.Source) (F, error) {
	var res F
	root, e := g.ParseSource(src)
	if e != nil {
		return res, e
	}

	c, e := g.compileNode(root)
	if e != nil {
		return res, e
	}

	if g.root == nil {
		return any(c).(F), nil
	}

	res, e = g.root.Wrap(c)
	if e != nil {
		return res, rootError(g.root.Name, e)
	}
	return res, nil
}

// Compile is a shortcut for CompileSource with unnamed source.
func (g *Grammar[A, R, C, F]) Compile(text string) (F, error) {
	return g.CompileSource(source.New("", text))
}
