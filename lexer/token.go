package lexer

import (
	"github.com/ava12/gramform/source"
)

// Kind is the token kind.
type Kind int

const (
	// LeafToken is a bare identifier matching no operator literal.
	LeafToken Kind = iota
	// OperatorToken is a match of an operator literal.
	OperatorToken
	// OpenToken is an opening grouping delimiter.
	OpenToken
	// CloseToken is a closing grouping delimiter.
	CloseToken
)

var kindNames = [...]string{"leaf", "operator", "opening delimiter", "closing delimiter"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Affix is the position of an operator literal relative to its operands.
type Affix int

const (
	// Prefix literal precedes its single operand.
	Prefix Affix = iota + 1
	// Suffix literal follows its single operand.
	Suffix
	// Infix literal separates operands.
	Infix
	// Leaf literal is an operand by itself, possibly carrying parameters.
	Leaf
)

var affixNames = [...]string{"", "prefix", "suffix", "infix", "leaf"}

func (a Affix) String() string {
	if a <= 0 || int(a) >= len(affixNames) {
		return "unknown"
	}
	return affixNames[a]
}

// Token is a lexeme of formula text. Tokens are not modified after creation.
type Token struct {
	kind    Kind
	affix   Affix
	op      int
	literal int
	group   int
	text    string
	params  map[string]string
	pos     source.Pos
}

// Kind returns token kind.
func (t *Token) Kind() Kind {
	return t.kind
}

// Affix returns literal affix for operator tokens or 0.
func (t *Token) Affix() Affix {
	return t.affix
}

// Op returns operator index for operator tokens or -1.
func (t *Token) Op() int {
	return t.op
}

// Literal returns literal index (within operator) for operator tokens or -1.
func (t *Token) Literal() int {
	return t.literal
}

// Group returns grouping index for delimiter tokens or -1.
func (t *Token) Group() int {
	return t.group
}

// Text returns matched text.
func (t *Token) Text() string {
	return t.text
}

// Params returns strings captured by named groups of operator literal pattern.
// Groups that did not participate in the match are absent. Returned map must not be modified.
func (t *Token) Params() map[string]string {
	return t.params
}

// Pos returns token position.
func (t *Token) Pos() source.Pos {
	return t.pos
}

// Offset returns byte offset of token in source.
func (t *Token) Offset() int {
	return t.pos.Offset()
}

// SourceName returns source name or empty string.
func (t *Token) SourceName() string {
	return t.pos.SourceName()
}

// Line returns line number or 0.
func (t *Token) Line() int {
	return t.pos.Line()
}

// Col returns column number or 0.
func (t *Token) Col() int {
	return t.pos.Col()
}

// NewLeafToken creates a leaf token.
func NewLeafToken(text string, pos source.Pos) *Token {
	return &Token{kind: LeafToken, op: -1, literal: -1, group: -1, text: text, pos: pos}
}

// NewOperatorToken creates an operator token.
func NewOperatorToken(op, literal int, affix Affix, text string, params map[string]string, pos source.Pos) *Token {
	return &Token{kind: OperatorToken, affix: affix, op: op, literal: literal, group: -1, text: text, params: params, pos: pos}
}

// NewDelimiterToken creates an opening (if open is true) or closing grouping delimiter token.
func NewDelimiterToken(group int, open bool, text string, pos source.Pos) *Token {
	kind := CloseToken
	if open {
		kind = OpenToken
	}
	return &Token{kind: kind, op: -1, literal: -1, group: group, text: text, pos: pos}
}
