package grammar

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/ava12/gramform/lexer"
)

// Affix is the position of a literal relative to operands.
type Affix = lexer.Affix

const (
	Prefix = lexer.Prefix
	Suffix = lexer.Suffix
	Infix  = lexer.Infix
	Leaf   = lexer.Leaf
)

// Params holds typed parameters of an operator application, keyed by capturing group name.
type Params map[string]any

// Literalisation is a surface notation of a primitive.
//
// Pattern is a regular expression (RE2 syntax) matched at the current tokenizer position.
// Named capturing groups, e.g. (?P<order>\d+), become parameters of the application.
// ParseParams converts raw captured strings to typed values; if nil, raw strings are used as is.
// Groups not participating in a match are absent from raw map.
type Literalisation struct {
	Affix       Affix
	Pattern     string
	ParseParams func(raw map[string]string) (Params, error)
}

// Symbol creates literalisation matching exactly given text.
func Symbol(affix Affix, text string) Literalisation {
	return Literalisation{Affix: affix, Pattern: regexp.QuoteMeta(text)}
}

func (l Literalisation) params(raw map[string]string) (Params, error) {
	if l.ParseParams != nil {
		return l.ParseParams(raw)
	}

	res := make(Params, len(raw))
	for k, v := range raw {
		res[k] = v
	}
	return res, nil
}

// Param returns named parameter converted to type T or def if the parameter is absent.
// Returns an error if the parameter has a different type.
func Param[T any](p Params, name string, def T) (T, error) {
	v, f := p[name]
	if !f {
		return def, nil
	}

	res, valid := v.(T)
	if !valid {
		return def, fmt.Errorf("parameter %s: unexpected type %T", name, v)
	}
	return res, nil
}

// ParseInts converts listed raw parameters to int values, other parameters are kept as strings.
// Absent parameters stay absent. Suitable as Literalisation.ParseParams.
func ParseInts(names ...string) func(map[string]string) (Params, error) {
	return func(raw map[string]string) (Params, error) {
		res := make(Params, len(raw))
		for k, v := range raw {
			res[k] = v
		}

		for _, name := range names {
			v, f := raw[name]
			if !f {
				continue
			}

			n, e := strconv.Atoi(v)
			if e != nil {
				return nil, fmt.Errorf("parameter %s: %w", name, e)
			}
			res[name] = n
		}
		return res, nil
	}
}
