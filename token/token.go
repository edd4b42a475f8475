// Package token contains the tokens that the lexer will produce when
// tokenizing a source program.
package token

import "fmt"

// Kind is a string naming a token's category.
type Kind string

// pre-defined Kind values, per spec.md section 3.
const (
	KEYWORD              Kind = "KEYWORD"
	TYPE                 Kind = "TYPE"
	BOOLEAN              Kind = "BOOLEAN"
	IDENTIFIER           Kind = "IDENTIFIER"
	NUMBER               Kind = "NUMBER"
	SIGNED_NUMBER        Kind = "SIGNED_NUMBER"
	SYMBOL               Kind = "SYMBOL"
	OPERATOR             Kind = "OPERATOR"
	CONDITIONAL_OPERATOR Kind = "CONDITIONAL_OPERATOR"
	LOGICAL_OPERATOR     Kind = "LOGICAL_OPERATOR"

	// EOF is not produced by the lexer: Tokenize returns only matched
	// tokens, and the parser treats running past the last one as end
	// of input.
	EOF Kind = "EOF"
)

// Token is the tuple (kind, lexeme, row, column) described in spec.md
// section 3.
type Token struct {
	Kind   Kind
	Lexeme string
	Row    int
	Column int
}

// String renders a token for diagnostic dumps (--print-tokens).
func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at %d:%d", t.Kind, t.Lexeme, t.Row, t.Column)
}

// Reserved lexemes, keyed by Kind, so call sites can ask "is this
// lexeme the reserved word 'if'" without re-deriving it from the
// pattern table.
var (
	Keywords = map[string]bool{
		"while": true, "print": true, "var": true,
		"if": true, "do": true, "return": true,
	}
	Types = map[string]bool{
		"int": true, "bool": true,
	}
	Booleans = map[string]bool{
		"true": true, "false": true,
	}
)
