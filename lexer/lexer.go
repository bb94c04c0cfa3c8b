// Package lexer defines tokenizer splitting formula text into operators, grouping delimiters, and leaves.
package lexer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ava12/gramform"
	"github.com/ava12/gramform/source"
)

// Error codes used by lexer:
const (
	// TokenizationError indicates that lexer cannot classify a character at current position.
	// Error message contains the offending rune.
	TokenizationError = gramform.LexicalErrors + iota
)

// Literal describes one operator notation recognised by lexer.
type Literal struct {
	// Op contains operator index, copied to tokens.
	Op int

	// Literal contains notation index within operator, copied to tokens.
	Literal int

	// Affix contains notation affix, copied to tokens.
	Affix Affix

	// Re must match at the start of input only (i.e. begin with ^).
	// Named capturing groups become token parameters.
	Re *regexp.Regexp
}

// Delimiters describes a grouping delimiter pair.
type Delimiters struct {
	Open, Close string
}

// Lexer performs lexical analysis of formula text.
// Lexer itself is immutable, stateless, and safe for concurrent use.
//
// At each position lexer tries all grouping delimiters and operator literals.
// The longest non-empty match wins. Equally long matches are resolved in favour of delimiters,
// then in favour of literals defined earlier. A match starting with a word rune (letter, digit,
// or underscore) is rejected if it would split a leaf after a word rune, and a match ending with
// a word rune is rejected if a word rune follows it, so that identifiers containing operator-like
// fragments stay intact ("notx" is a leaf even if "not" is an operator).
//
// Characters not matched by any literal or delimiter form leaf tokens; leaves are terminated
// by matches, by grouping delimiters, and by whitespace. Whitespace is skipped unless
// significant; significant whitespace must be matched by some literal.
type Lexer struct {
	literals   []Literal
	delims     []Delimiters
	whitespace bool
}

// New creates new Lexer. whitespace tells whether whitespace is significant.
func New(literals []Literal, delims []Delimiters, whitespace bool) *Lexer {
	return &Lexer{
		literals:   append([]Literal(nil), literals...),
		delims:     append([]Delimiters(nil), delims...),
		whitespace: whitespace,
	}
}

func wrongCharError(src *source.Source, pos int, r rune) *gramform.Error {
	p := source.NewPos(src, pos)
	if unicode.IsSpace(r) {
		return gramform.FormatErrorPos(p, TokenizationError, "unexpected whitespace (u+%x)", r)
	}
	if r == utf8.RuneError {
		return gramform.FormatErrorPos(p, TokenizationError, "invalid UTF-8 sequence")
	}
	return gramform.FormatErrorPos(p, TokenizationError, "unexpected char %q (u+%x)", r, r)
}

// IsWordRune tells whether r is a letter, a digit, or an underscore.
func IsWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// splitsWord tells whether a match of given size ends between two word runes.
func splitsWord(rest string, size int) bool {
	if size <= 0 || size >= len(rest) {
		return false
	}

	last, _ := utf8.DecodeLastRuneInString(rest[:size])
	next, _ := utf8.DecodeRuneInString(rest[size:])
	return IsWordRune(last) && IsWordRune(next)
}

type match struct {
	size    int
	literal int
	delim   int
	open    bool
	loc     []int
}

func (l *Lexer) match(rest string, midWord bool) (m match) {
	m.literal = -1
	m.delim = -1
	if midWord {
		r, _ := utf8.DecodeRuneInString(rest)
		if IsWordRune(r) {
			return
		}
	}

	for i, d := range l.delims {
		if d.Open != "" && len(d.Open) > m.size && strings.HasPrefix(rest, d.Open) && !splitsWord(rest, len(d.Open)) {
			m = match{size: len(d.Open), literal: -1, delim: i, open: true}
		}
		if d.Close != "" && len(d.Close) > m.size && strings.HasPrefix(rest, d.Close) && !splitsWord(rest, len(d.Close)) {
			m = match{size: len(d.Close), literal: -1, delim: i}
		}
	}

	for i, lit := range l.literals {
		loc := lit.Re.FindStringSubmatchIndex(rest)
		if loc == nil || loc[0] != 0 || loc[1] <= m.size || splitsWord(rest, loc[1]) {
			continue
		}

		m = match{size: loc[1], literal: i, delim: -1, loc: loc}
	}
	return
}

func (l *Lexer) operatorToken(src *source.Source, pos int, rest string, m match) *Token {
	lit := l.literals[m.literal]
	var params map[string]string
	for i, name := range lit.Re.SubexpNames() {
		if name == "" || m.loc[i*2] < 0 {
			continue
		}

		if params == nil {
			params = make(map[string]string)
		}
		params[name] = rest[m.loc[i*2]:m.loc[i*2+1]]
	}
	return NewOperatorToken(lit.Op, lit.Literal, lit.Affix, rest[:m.size], params, source.NewPos(src, pos))
}

// Tokenize splits src content into tokens.
// Returns nil and *gramform.Error with TokenizationError code if some character cannot be classified.
func (l *Lexer) Tokenize(src *source.Source) ([]*Token, error) {
	content := src.Content()
	res := make([]*Token, 0)
	leafStart := -1
	prevWord := false

	flushLeaf := func(end int) {
		if leafStart >= 0 {
			res = append(res, NewLeafToken(content[leafStart:end], source.NewPos(src, leafStart)))
			leafStart = -1
		}
		prevWord = false
	}

	pos := 0
	for pos < len(content) {
		r, size := utf8.DecodeRuneInString(content[pos:])
		if !l.whitespace && unicode.IsSpace(r) {
			flushLeaf(pos)
			pos += size
			continue
		}

		m := l.match(content[pos:], leafStart >= 0 && prevWord)
		if m.size > 0 {
			flushLeaf(pos)
			if m.delim >= 0 {
				res = append(res, NewDelimiterToken(m.delim, m.open, content[pos:pos+m.size], source.NewPos(src, pos)))
			} else {
				res = append(res, l.operatorToken(src, pos, content[pos:], m))
			}
			pos += m.size
			continue
		}

		if unicode.IsSpace(r) || unicode.IsControl(r) || (r == utf8.RuneError && size <= 1) {
			return nil, wrongCharError(src, pos, r)
		}

		if leafStart < 0 {
			leafStart = pos
		}
		prevWord = IsWordRune(r)
		pos += size
	}
	flushLeaf(pos)

	return res, nil
}

// String returns a debug representation of token list.
func String(tokens []*Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		switch t.Kind() {
		case OperatorToken:
			parts[i] = fmt.Sprintf("%s:%d.%d(%q)", t.Affix(), t.Op(), t.Literal(), t.Text())
		case LeafToken:
			parts[i] = fmt.Sprintf("leaf(%q)", t.Text())
		default:
			parts[i] = fmt.Sprintf("%s:%d(%q)", t.Kind(), t.Group(), t.Text())
		}
	}
	return strings.Join(parts, " ")
}
