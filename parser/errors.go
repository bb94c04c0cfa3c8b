package parser

import (
	"errors"
	"fmt"

	"github.com/ava12/gramform"
	"github.com/ava12/gramform/lexer"
)

// Error codes used by parser:
const (
	// GroupingError indicates unmatched opening or closing grouping delimiter.
	GroupingError = gramform.SyntaxErrors + iota
	// UnexpectedTokenError indicates an operand or prefix operator where an infix operator is expected.
	UnexpectedTokenError
	// EmptyExpressionError indicates empty formula or empty group.
	EmptyExpressionError
	// AmbiguousPrecedenceError indicates two different non-associative operators of equal precedence
	// applied without explicit grouping.
	AmbiguousPrecedenceError
)

// ErrUnclosed is wrapped by GroupingError caused by unclosed delimiter, i.e. by incomplete formula.
var ErrUnclosed = errors.New("unclosed group")

// ArityError indicates an operator applied to too few or too many operands.
const ArityError = gramform.CompileErrors

func unmatchedCloseError(t *lexer.Token) *gramform.Error {
	return gramform.FormatErrorPos(t, GroupingError, "unmatched closing delimiter %q", t.Text())
}

func unclosedError(t *lexer.Token) *gramform.Error {
	return gramform.FormatErrorPos(t, GroupingError, "unclosed delimiter %q", t.Text()).Wrap(ErrUnclosed)
}

func mismatchedCloseError(open, close *lexer.Token) *gramform.Error {
	return gramform.FormatErrorPos(close, GroupingError, "delimiter %q at line %d col %d closed by %q",
		open.Text(), open.Line(), open.Col(), close.Text())
}

func unexpectedTokenError(t *lexer.Token) *gramform.Error {
	return gramform.FormatErrorPos(t, UnexpectedTokenError, "unexpected %s %q, expecting infix operator", t.Kind(), t.Text())
}

func emptyGroupError(t *lexer.Token) *gramform.Error {
	return gramform.FormatErrorPos(t, EmptyExpressionError, "empty group %q", t.Text())
}

func emptyFormulaError(pos gramform.SourcePos) *gramform.Error {
	return gramform.FormatErrorPos(pos, EmptyExpressionError, "empty formula")
}

func ambiguousError(first, second *lexer.Token, ops []Operator) *gramform.Error {
	return gramform.FormatErrorPos(second, AmbiguousPrecedenceError,
		"ambiguous precedence: %s %q and %s %q are non-associative operators of equal precedence, use grouping",
		ops[first.Op()].Name, first.Text(), ops[second.Op()].Name, second.Text())
}

func arityRange(op Operator) string {
	switch {
	case op.MaxArity == op.MinArity:
		return fmt.Sprintf("%d", op.MinArity)
	case op.MaxArity < 0:
		return fmt.Sprintf("at least %d", op.MinArity)
	default:
		return fmt.Sprintf("%d to %d", op.MinArity, op.MaxArity)
	}
}

func arityError(t *lexer.Token, op Operator, got int) *gramform.Error {
	return gramform.FormatErrorPos(t, ArityError, "wrong number of operands for %s %q: expecting %s, got %d",
		op.Name, t.Text(), arityRange(op), got)
}

func missingOperandError(t *lexer.Token, op Operator, got int) *gramform.Error {
	return arityError(t, op, got)
}
