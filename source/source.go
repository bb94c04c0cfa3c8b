// Package source defines formula source text and positions within it.
package source

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Source holds formula text. Source is immutable and safe for concurrent use.
type Source struct {
	name       string
	content    string
	lineStarts []int
}

// New creates new Source. name is used in error messages only and may be empty.
func New(name, content string) *Source {
	lineCnt := strings.Count(content, "\n") + 1
	lineStarts := make([]int, 1, lineCnt)
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}
	return &Source{name: name, content: content, lineStarts: lineStarts}
}

// Name returns source name.
func (s *Source) Name() string {
	return s.name
}

// Content returns source text.
func (s *Source) Content() string {
	return s.content
}

// Len returns source length in bytes.
func (s *Source) Len() int {
	return len(s.content)
}

// LineCol converts byte offset to 1-based line and column numbers.
// Columns are counted in runes. Offsets outside the source are clamped.
func (s *Source) LineCol(pos int) (line, col int) {
	if pos < 0 {
		pos = 0
	} else if pos > len(s.content) {
		pos = len(s.content)
	}

	lineIndex := sort.Search(len(s.lineStarts), func(i int) bool {
		return s.lineStarts[i] > pos
	}) - 1
	lineStart := s.lineStarts[lineIndex]
	return lineIndex + 1, utf8.RuneCountInString(s.content[lineStart:pos]) + 1
}

// Pos converts 1-based line and column numbers to byte offset.
// Returns 0 for non-positive values and source length for positions beyond the end.
func (s *Source) Pos(line, col int) int {
	if line <= 0 || col <= 0 {
		return 0
	}

	l := len(s.content)
	if line > len(s.lineStarts) {
		return l
	}

	res := s.lineStarts[line-1]
	for col > 1 && res < l {
		_, size := utf8.DecodeRuneInString(s.content[res:])
		res += size
		col--
	}
	return res
}

// Pos is a position in Source. Pos implements gramform.SourcePos.
type Pos struct {
	src       *Source
	pos       int
	line, col int
}

// NewPos creates position for byte offset pos in s.
func NewPos(s *Source, pos int) Pos {
	res := Pos{src: s, pos: pos}
	if s != nil {
		res.line, res.col = s.LineCol(pos)
	}
	return res
}

// Source returns the source or nil.
func (p Pos) Source() *Source {
	return p.src
}

// SourceName returns source name or empty string.
func (p Pos) SourceName() string {
	if p.src == nil {
		return ""
	}
	return p.src.name
}

// Offset returns byte offset.
func (p Pos) Offset() int {
	return p.pos
}

// Line returns 1-based line number or 0.
func (p Pos) Line() int {
	return p.line
}

// Col returns 1-based column number or 0.
func (p Pos) Col() int {
	return p.col
}
