package grammar

import (
	"github.com/ava12/gramform"
	"github.com/ava12/gramform/parser"
	"github.com/ava12/gramform/tree"
)

// Error codes used by New:
const (
	// BadGroupingError indicates empty, coinciding, or duplicate grouping delimiters.
	BadGroupingError = gramform.ConfigErrors + iota
	// BadPrimitiveError indicates a primitive with no name or no combinator.
	BadPrimitiveError
	// DuplicateNameError indicates two primitives with the same name.
	DuplicateNameError
	// BadArityError indicates negative minimum arity or maximum arity less than minimum.
	BadArityError
	// NoLiteralError indicates a primitive having no literalisations.
	NoLiteralError
	// BadLiteralError indicates a literalisation with unknown affix or empty pattern.
	BadLiteralError
	// BadPatternError indicates a literalisation pattern that is not a valid regular expression.
	BadPatternError
	// RootTypeError indicates a missing root transform when the output type is not the closure type,
	// or a root transform without Wrap function.
	RootTypeError
)

// Error codes used by Grammar.Compile and Grammar.Format in addition to lexer and parser codes:
const (
	// UnresolvedLeafError indicates a bare leaf in a grammar without leaf interpreter.
	UnresolvedLeafError = parser.ArityError + 1 + iota
	// LeafError indicates leaf interpreter failure, the cause is wrapped.
	LeafError
	// ParamError indicates literal parameters conversion failure, the cause is wrapped.
	ParamError
	// CombinatorError indicates combinator or root transform failure, the cause is wrapped.
	CombinatorError
	// NoCanonicalFormError is returned by Grammar.Format if formatted text does not parse back
	// into the same tree.
	NoCanonicalFormError
)

func badGroupingError(index int, msg string) *gramform.Error {
	return gramform.FormatError(BadGroupingError, "grouping #%d: %s", index, msg)
}

func badPrimitiveError(index int, name, msg string) *gramform.Error {
	return gramform.FormatError(BadPrimitiveError, "primitive #%d %q: %s", index, name, msg)
}

func duplicateNameError(name string) *gramform.Error {
	return gramform.FormatError(DuplicateNameError, "primitive %q already defined", name)
}

func badArityError(name string, min, max int) *gramform.Error {
	return gramform.FormatError(BadArityError, "primitive %q: wrong arity range %d..%d", name, min, max)
}

func noLiteralError(name string) *gramform.Error {
	return gramform.FormatError(NoLiteralError, "primitive %q has no literalisations", name)
}

func badLiteralError(name string, index int, msg string) *gramform.Error {
	return gramform.FormatError(BadLiteralError, "primitive %q literal #%d: %s", name, index, msg)
}

func badPatternError(name string, pattern string, e error) *gramform.Error {
	return gramform.FormatError(BadPatternError, "primitive %q: incorrect pattern %s (%s)", name, pattern, e.Error()).Wrap(e)
}

func rootTypeError(msg string) *gramform.Error {
	return gramform.FormatError(RootTypeError, "root transform: %s", msg)
}

func unresolvedLeafError(n *tree.Node) *gramform.Error {
	return gramform.FormatErrorPos(n.Token, UnresolvedLeafError, "cannot resolve leaf %q: no leaf interpreter", n.Text)
}

func leafError(n *tree.Node, e error) *gramform.Error {
	return gramform.FormatErrorPos(n.Token, LeafError, "leaf %q: %s", n.Text, e.Error()).Wrap(e)
}

func paramError(n *tree.Node, e error) *gramform.Error {
	return gramform.FormatErrorPos(n.Token, ParamError, "%s %q: %s", n.Name, n.Text, e.Error()).Wrap(e)
}

func combinatorError(n *tree.Node, e error) *gramform.Error {
	return gramform.FormatErrorPos(n.Token, CombinatorError, "%s %q: %s", n.Name, n.Text, e.Error()).Wrap(e)
}

func rootError(name string, e error) *gramform.Error {
	return gramform.FormatError(CombinatorError, "root transform %s: %s", name, e.Error()).Wrap(e)
}

func noCanonicalFormError(text, formatted string) *gramform.Error {
	return gramform.FormatError(NoCanonicalFormError, "formula %q has no canonical form (got %q)", text, formatted)
}
