// Package tree defines parse tree nodes and functions to traverse and format them.
package tree

import (
	"strings"
	"unicode/utf8"

	"github.com/ava12/gramform/lexer"
)

// LeafOp is the operator index of bare leaf nodes.
const LeafOp = -1

// Node is a parse tree node: either a bare leaf or an application of an operator.
// Trees are built by parser and must not be modified afterwards.
type Node struct {
	// Op contains operator index or LeafOp.
	Op int

	// Literal contains notation index within operator or -1.
	Literal int

	// Name contains operator name, empty for leaves.
	Name string

	// Affix contains notation affix, 0 for leaves.
	Affix lexer.Affix

	// Text contains leaf text or operator token text.
	Text string

	// Params contains raw strings captured by operator notation pattern.
	Params map[string]string

	// Children contains operands in source order.
	Children []*Node

	// Token contains the token this node was created for, used for error positions.
	Token *lexer.Token
}

// NewLeaf creates a bare leaf node for leaf token.
func NewLeaf(t *lexer.Token) *Node {
	return &Node{Op: LeafOp, Literal: -1, Text: t.Text(), Token: t}
}

// NewApplication creates an operator node for operator token.
// nil children are skipped.
func NewApplication(name string, t *lexer.Token, children ...*Node) *Node {
	n := &Node{
		Op:       t.Op(),
		Literal:  t.Literal(),
		Name:     name,
		Affix:    t.Affix(),
		Text:     t.Text(),
		Params:   t.Params(),
		Children: make([]*Node, 0, len(children)),
		Token:    t,
	}
	for _, c := range children {
		n.Append(c)
	}
	return n
}

// IsLeaf tells whether n is a bare leaf.
func (n *Node) IsLeaf() bool {
	return n.Op == LeafOp
}

// IsAtom tells whether n can be formatted without grouping when used as an operand.
func (n *Node) IsAtom() bool {
	return n.Op == LeafOp || n.Affix == lexer.Leaf
}

// Append adds non-nil child to the end of children list.
func (n *Node) Append(child *Node) {
	if child != nil {
		n.Children = append(n.Children, child)
	}
}

// Walk visits all nodes of the tree in post-order (children left to right, then parent).
// Traversal stops at the first error returned by visit.
func Walk(n *Node, visit func(*Node) error) error {
	if n == nil {
		return nil
	}

	for _, c := range n.Children {
		if e := Walk(c, visit); e != nil {
			return e
		}
	}
	return visit(n)
}

// Leaves returns texts of all bare leaves in source order.
func Leaves(n *Node) []string {
	res := make([]string, 0)
	Walk(n, func(n *Node) error {
		if n.IsLeaf() {
			res = append(res, n.Text)
		}
		return nil
	})
	return res
}

// Equal tells whether two trees have the same structure, operators, notations, texts, and parameters.
// Token positions are ignored.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}

	if a.Op != b.Op || a.Literal != b.Literal || a.Text != b.Text ||
		len(a.Params) != len(b.Params) || len(a.Children) != len(b.Children) {
		return false
	}

	for k, v := range a.Params {
		bv, f := b.Params[k]
		if !f || bv != v {
			return false
		}
	}

	for i, c := range a.Children {
		if !Equal(c, b.Children[i]) {
			return false
		}
	}
	return true
}

// Formatter converts trees back to formula text using original operator notations.
type Formatter struct {
	// Open and Close enclose every compound operand.
	Open, Close string

	// Space separates operator text and operands that would otherwise merge into one token,
	// e.g. a word operator and a leaf. If Space is empty, such operands are enclosed
	// in Open and Close instead.
	Space string
}

// Format returns formula text equivalent to the tree. Every compound operand is enclosed
// in open and close delimiters and word operators are separated from their operands with spaces,
// so the result parses back into an equal tree with the same whitespace-insensitive grammar.
func Format(n *Node, open, close string) string {
	return Formatter{Open: open, Close: close, Space: " "}.Format(n)
}

// Format returns formula text equivalent to the tree.
func (f Formatter) Format(n *Node) string {
	return f.format(n, false)
}

type piece struct {
	text    string
	operand bool
	atom    bool
}

func (f Formatter) format(n *Node, operand bool) string {
	if n.IsAtom() {
		return n.Text
	}

	pieces := make([]piece, 0, len(n.Children)*2+1)
	op := piece{text: n.Text}
	switch n.Affix {
	case lexer.Prefix:
		pieces = append(pieces, op)
		for _, c := range n.Children {
			pieces = append(pieces, f.operand(c))
		}
	case lexer.Suffix:
		for _, c := range n.Children {
			pieces = append(pieces, f.operand(c))
		}
		pieces = append(pieces, op)
	default:
		for i, c := range n.Children {
			if i > 0 {
				pieces = append(pieces, op)
			}
			pieces = append(pieces, f.operand(c))
		}
	}

	if f.Space == "" {
		for i := 1; i < len(pieces); i++ {
			if !merges(pieces[i-1], pieces[i]) {
				continue
			}
			if pieces[i].operand && pieces[i].atom {
				pieces[i] = piece{text: f.Open + pieces[i].text + f.Close, operand: true}
			} else if pieces[i-1].operand && pieces[i-1].atom {
				pieces[i-1] = piece{text: f.Open + pieces[i-1].text + f.Close, operand: true}
			}
		}
	}

	var sb strings.Builder
	if operand {
		sb.WriteString(f.Open)
	}
	for i, p := range pieces {
		if i > 0 && f.Space != "" && merges(pieces[i-1], p) {
			sb.WriteString(f.Space)
		}
		sb.WriteString(p.text)
	}
	if operand {
		sb.WriteString(f.Close)
	}
	return sb.String()
}

func (f Formatter) operand(n *Node) piece {
	return piece{text: f.format(n, true), operand: true, atom: n.IsAtom()}
}

// merges tells whether two adjacent pieces would be read back as a different token sequence.
func merges(a, b piece) bool {
	if a.operand && b.operand && a.atom && b.atom {
		return true
	}

	last, _ := utf8.DecodeLastRuneInString(a.text)
	first, _ := utf8.DecodeRuneInString(b.text)
	return lexer.IsWordRune(last) && lexer.IsWordRune(first)
}

// Dump returns functional notation of the tree, e.g. "union(complement(a), b)". Used for debugging.
func Dump(n *Node) string {
	var sb strings.Builder
	dump(&sb, n)
	return sb.String()
}

func dump(sb *strings.Builder, n *Node) {
	if n.IsLeaf() {
		sb.WriteString(n.Text)
		return
	}

	sb.WriteString(n.Name)
	if n.Affix == lexer.Leaf {
		sb.WriteString("{" + n.Text + "}")
		return
	}

	sb.WriteByte('(')
	for i, c := range n.Children {
		if i > 0 {
			sb.WriteString(", ")
		}
		dump(sb, c)
	}
	sb.WriteByte(')')
}
