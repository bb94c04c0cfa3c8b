/*
Package gramform is an engine compiling small expression languages into executable closures.

A language is described by a grammar configuration: bracket pairs (groupings), operators
(transform primitives) with precedence, arity, associativity and commutativity, one or more
surface notations (literalisations) for every operator, a leaf interpreter for bare identifiers,
and an optional root transform wrapping the whole expression.

Consists of subpackages:
  - grammar: configuration value objects, Grammar and the bottom-up compiler;
  - source: formula source text and positions;
  - lexer: tokenizer driven by operator literals and grouping delimiters;
  - parser: precedence-climbing parser producing operator trees;
  - tree: parse tree nodes, traversal and canonical formatting;
  - tagops: boolean tag-algebra grammar;
  - confound: confound-formula grammar over in-memory column frames;
  - cmd/gramform: console utility evaluating tag-algebra formulas.

Typical usage is:

1. Define operators and their notations in a grammar.Config, together with groupings
and a leaf interpreter.

2. Create grammar.Grammar once using grammar.New.

3. Compile formulas with Grammar.Compile and invoke resulting closures as many times as needed.
*/
package gramform

import (
	"errors"
	"fmt"
)

// Error classes used by subpackages, each class contains up to 99 error codes:
const (
	ConfigErrors  = 1   // used by grammar when validating configuration
	LexicalErrors = 101 // used by lexer
	SyntaxErrors  = 201 // used by parser
	CompileErrors = 301 // used by parser and grammar during tree construction and compilation
)

// Error is the error type used by gramform subpackages.
type Error struct {
	// Code contains non-zero error code.
	Code int

	// Message contains non-empty error message including source name and position information if provided.
	Message string

	// SourceName contains source name that caused this error or empty string.
	SourceName string

	// Line contains line number in source or 0.
	Line int

	// Col contains column number in source or 0.
	Col int

	cause error
}

// SourcePos is used to retrieve source name and position information when constructing an error;
// source.Pos and lexer.Token implement this interface.
type SourcePos interface {
	// SourceName returns source name or empty string.
	SourceName() string
	// Line returns line number or 0.
	Line() int
	// Col returns column number or 0.
	Col() int
}

// NewError creates new Error structure.
// line and col will be added to error message if provided (non-zero), name is added if not empty.
func NewError(code int, msg, name string, line, col int) *Error {
	if line != 0 && col != 0 {
		msg += fmt.Sprintf(" at line %d col %d", line, col)
		if name != "" {
			msg += " in " + name
		}
	}
	return &Error{Code: code, Message: msg, SourceName: name, Line: line, Col: col}
}

// Error simply returns Error.Message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the error that caused this one or nil.
func (e *Error) Unwrap() error {
	return e.cause
}

// Wrap sets the cause of e and returns e.
func (e *Error) Wrap(cause error) *Error {
	e.cause = cause
	return e
}

// FormatError creates Error structure with no source and position information.
// params will be added to error message using fmt.Sprintf function.
func FormatError(code int, msg string, params ...any) *Error {
	if len(params) > 0 {
		msg = fmt.Sprintf(msg, params...)
	}
	return NewError(code, msg, "", 0, 0)
}

// FormatErrorPos creates Error structure with source and position information.
// pos must not be nil.
// params will be added to error message using fmt.Sprintf function.
func FormatErrorPos(pos SourcePos, code int, msg string, params ...any) *Error {
	if len(params) > 0 {
		msg = fmt.Sprintf(msg, params...)
	}
	return NewError(code, msg, pos.SourceName(), pos.Line(), pos.Col())
}

// Code returns the code of the first *Error found in e's chain or 0.
func Code(e error) int {
	var ee *Error
	if errors.As(e, &ee) {
		return ee.Code
	}
	return 0
}

// HasCode reports whether e or any error wrapped by it is an *Error with given code.
func HasCode(e error, code int) bool {
	for e != nil {
		var ee *Error
		if !errors.As(e, &ee) {
			return false
		}
		if ee.Code == code {
			return true
		}
		e = ee.cause
	}
	return false
}
