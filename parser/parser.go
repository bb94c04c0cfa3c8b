// Package parser defines precedence-climbing parser turning token lists into operator trees.
package parser

import (
	"github.com/ava12/gramform/lexer"
	"github.com/ava12/gramform/source"
	"github.com/ava12/gramform/tree"
)

// Unbounded is the MaxArity value meaning "no limit".
const Unbounded = -1

// Operator describes binding properties of an operator.
type Operator struct {
	// Name is used in tree nodes and error messages.
	Name string

	// MinArity and MaxArity limit the number of operands, MaxArity may be Unbounded.
	MinArity, MaxArity int

	// Precedence: the smaller the value, the tighter the operator binds.
	Precedence int

	// Associative operators may be mixed with other operators of equal precedence.
	// Chains of the same associative and commutative infix operator are flattened into one node.
	Associative bool

	// Commutative: see Associative.
	Commutative bool
}

// Parser builds operator trees.
// Parser itself is immutable and safe for concurrent use.
//
// Binding rules:
//   - operator with smaller precedence binds tighter, equal precedence is resolved left to right;
//   - two different non-associative operators of equal precedence adjacent to the same operand
//     cause AmbiguousPrecedenceError;
//   - prefix and suffix operators bind to the adjacent operand; a suffix following a prefixed operand
//     applies to the operand only if it binds tighter than the prefix;
//   - a grouped subexpression is an opaque operand;
//   - a chain of the same associative and commutative infix operator with equal parameters becomes a single node
//     with operands in source order.
//
// A missing operand (e.g. "a|" or "~") is reported as ArityError, as is an operator node
// whose operand count is out of its arity range.
type Parser struct {
	ops []Operator
}

// New creates new Parser. Operator tokens refer to operators by index in ops.
func New(ops []Operator) *Parser {
	return &Parser{append([]Operator(nil), ops...)}
}

// Operators returns a copy of operator table.
func (p *Parser) Operators() []Operator {
	return append([]Operator(nil), p.ops...)
}

type parseContext struct {
	parser *Parser
	tokens []*lexer.Token
	index  int
}

// Parse builds operator tree from tokens produced by lexer for src.
// Returns nil and *gramform.Error on failure.
func (p *Parser) Parse(src *source.Source, tokens []*lexer.Token) (*tree.Node, error) {
	if e := checkGroupings(tokens); e != nil {
		return nil, e
	}

	pc := &parseContext{parser: p, tokens: tokens}
	root, e := pc.expr(0, false)
	if e != nil {
		return nil, e
	}

	if t := pc.peek(); t != nil {
		return nil, unexpectedTokenError(t)
	}
	if root == nil {
		return nil, emptyFormulaError(source.NewPos(src, 0))
	}

	e = tree.Walk(root, p.checkArity)
	if e != nil {
		return nil, e
	}

	return root, nil
}

func checkGroupings(tokens []*lexer.Token) error {
	stack := make([]*lexer.Token, 0)
	for _, t := range tokens {
		switch t.Kind() {
		case lexer.OpenToken:
			stack = append(stack, t)
		case lexer.CloseToken:
			if len(stack) == 0 {
				return unmatchedCloseError(t)
			}

			open := stack[len(stack)-1]
			if open.Group() != t.Group() {
				return mismatchedCloseError(open, t)
			}
			stack = stack[:len(stack)-1]
		}
	}

	if len(stack) > 0 {
		return unclosedError(stack[len(stack)-1])
	}
	return nil
}

func (p *Parser) checkArity(n *tree.Node) error {
	if n.IsLeaf() {
		return nil
	}

	op := p.ops[n.Op]
	cnt := len(n.Children)
	if cnt < op.MinArity || (op.MaxArity >= 0 && cnt > op.MaxArity) {
		return arityError(n.Token, op, cnt)
	}
	return nil
}

func (pc *parseContext) peek() *lexer.Token {
	if pc.index < len(pc.tokens) {
		return pc.tokens[pc.index]
	}
	return nil
}

func (pc *parseContext) next() *lexer.Token {
	t := pc.peek()
	if t != nil {
		pc.index++
	}
	return t
}

func isOperator(t *lexer.Token, affix lexer.Affix) bool {
	return t != nil && t.Kind() == lexer.OperatorToken && t.Affix() == affix
}

func (pc *parseContext) ambiguous(first, second *lexer.Token) bool {
	fop := pc.parser.ops[first.Op()]
	sop := pc.parser.ops[second.Op()]
	return first.Op() != second.Op() && fop.Precedence == sop.Precedence && !fop.Associative && !sop.Associative
}

// expr parses a sequence of operands joined with infix operators.
// If bounded is true, stops at infix operators with precedence >= limit.
func (pc *parseContext) expr(limit int, bounded bool) (*tree.Node, error) {
	left, e := pc.unary(0, false)
	if e != nil {
		return nil, e
	}

	var chain *tree.Node
	var last *lexer.Token
	for {
		t := pc.peek()
		if t == nil || t.Kind() == lexer.CloseToken {
			break
		}

		if !isOperator(t, lexer.Infix) {
			return nil, unexpectedTokenError(t)
		}

		op := pc.parser.ops[t.Op()]
		if bounded && op.Precedence >= limit {
			break
		}

		if last != nil && pc.ambiguous(last, t) {
			return nil, ambiguousError(last, t, pc.parser.ops)
		}

		pc.next()
		right, e := pc.expr(op.Precedence, true)
		if e != nil {
			return nil, e
		}
		if left == nil || right == nil {
			return nil, missingOperandError(t, op, countOperands(left, right))
		}

		if chain != nil && chain.Op == t.Op() && op.Associative && op.Commutative && sameParams(chain.Params, t.Params()) {
			chain.Append(right)
		} else {
			chain = tree.NewApplication(op.Name, t, left, right)
			left = chain
		}
		last = t
	}

	return left, nil
}

func countOperands(nodes ...*tree.Node) int {
	res := 0
	for _, n := range nodes {
		if n != nil {
			res++
		}
	}
	return res
}

func sameParams(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, f := b[k]; !f || bv != v {
			return false
		}
	}
	return true
}

// unary parses an operand with its prefix and suffix operators.
// If bounded is true, only suffixes with precedence < bound are consumed.
func (pc *parseContext) unary(bound int, bounded bool) (node *tree.Node, e error) {
	var prefix *lexer.Token
	if t := pc.peek(); isOperator(t, lexer.Prefix) {
		pc.next()
		op := pc.parser.ops[t.Op()]
		operand, e := pc.unary(op.Precedence, true)
		if e != nil {
			return nil, e
		}
		if operand == nil {
			return nil, missingOperandError(t, op, 0)
		}

		node = tree.NewApplication(op.Name, t, operand)
		prefix = t
	} else {
		node, e = pc.primary()
		if e != nil {
			return nil, e
		}
	}

	for t := pc.peek(); isOperator(t, lexer.Suffix); t = pc.peek() {
		op := pc.parser.ops[t.Op()]
		if bounded && op.Precedence >= bound {
			break
		}

		if prefix != nil && pc.ambiguous(prefix, t) {
			return nil, ambiguousError(prefix, t, pc.parser.ops)
		}

		if node == nil {
			return nil, missingOperandError(t, op, 0)
		}

		pc.next()
		node = tree.NewApplication(op.Name, t, node)
	}

	return node, nil
}

// primary parses a leaf, a leaf operator, or a group.
// Returns nil node if there is no operand at current position.
func (pc *parseContext) primary() (*tree.Node, error) {
	t := pc.peek()
	if t == nil {
		return nil, nil
	}

	switch t.Kind() {
	case lexer.LeafToken:
		pc.next()
		return tree.NewLeaf(t), nil

	case lexer.OpenToken:
		pc.next()
		inner, e := pc.expr(0, false)
		if e != nil {
			return nil, e
		}

		pc.next()
		if inner == nil {
			return nil, emptyGroupError(t)
		}
		return inner, nil

	case lexer.OperatorToken:
		if t.Affix() == lexer.Leaf {
			pc.next()
			return tree.NewApplication(pc.parser.ops[t.Op()].Name, t), nil
		}
	}

	return nil, nil
}
