// Package lexer implements the prioritized longest-match tokenizer of
// spec.md section 4.2. A Lexer is configured with an ordered list of
// skip patterns (matched but never emitted) and an ordered list of
// token patterns, each carrying a Kind and a Priority; patterns are
// kept sorted by descending priority so ties resolve deterministically.
package lexer

import (
	"github.com/dholloway/tacc/internal/cerrors"
	"github.com/dholloway/tacc/regex"
	"github.com/dholloway/tacc/token"
)

// TokenPattern is one entry of the token-pattern table: a Kind, its
// declared Priority, and the compiled regex.Pattern matching it.
type TokenPattern struct {
	Kind     token.Kind
	Priority int
	Pattern  *regex.Pattern
}

// Lexer holds the compiled pattern tables and the scanning cursor.
type Lexer struct {
	skip     []*regex.Pattern
	patterns []TokenPattern

	input []rune
	pos   int
	row   int
	col   int
}

// New builds a Lexer over input configured with the default skip and
// token patterns for this language (spec.md section 4.2).
func New(input string) (*Lexer, error) {
	skip, patterns, err := DefaultConfig()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(input, skip, patterns), nil
}

// NewWithConfig builds a Lexer with an explicit pattern configuration;
// patterns need not already be sorted, NewWithConfig sorts a copy by
// descending Priority.
func NewWithConfig(input string, skip []*regex.Pattern, patterns []TokenPattern) *Lexer {
	sorted := append([]TokenPattern{}, patterns...)
	// Insertion sort: these tables have a handful of entries, and a
	// stable descending sort by Priority is all that's needed.
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Priority > sorted[j-1].Priority; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return &Lexer{
		skip:     skip,
		patterns: sorted,
		input:    []rune(input),
		row:      1,
		col:      1,
	}
}

// advance consumes n runes starting at l.pos, updating row/col per the
// rule in spec.md section 4.2: '\n' resets column and increments row,
// '\t' advances column by 4, any other rune advances column by 1.
func (l *Lexer) advance(n int) {
	for i := 0; i < n; i++ {
		switch l.input[l.pos] {
		case '\n':
			l.row++
			l.col = 1
		case '\t':
			l.col += 4
		default:
			l.col++
		}
		l.pos++
	}
}

// Tokenize runs the lexer to completion, returning every emitted token
// (skip patterns are matched but never emitted) or the first
// *cerrors.InvalidCharacter encountered.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	var tokens []token.Token
	for l.pos < len(l.input) {
		if n := l.matchSkip(); n > 0 {
			l.advance(n)
			continue
		}

		kind, lexeme, length, ok := l.matchToken()
		if !ok {
			return nil, &cerrors.InvalidCharacter{
				Pos:  cerrors.Pos{Row: l.row, Column: l.col},
				Char: l.input[l.pos],
			}
		}

		tokens = append(tokens, token.Token{
			Kind:   kind,
			Lexeme: lexeme,
			Row:    l.row,
			Column: l.col,
		})
		l.advance(length)
	}
	return tokens, nil
}

// matchSkip returns the length of the longest skip-pattern match at
// the current position, or 0 if none matches (or all matches are
// empty).
func (l *Lexer) matchSkip() int {
	best := 0
	for _, p := range l.skip {
		_, length, matched := p.FindLongestMatch(l.input[l.pos:])
		if matched && length > best {
			best = length
		}
	}
	return best
}

// matchToken finds the globally longest match across every token
// pattern at the current position, breaking ties by higher declared
// priority (patterns are kept sorted descending, so the first pattern
// encountered at the winning length is the winner).
func (l *Lexer) matchToken() (kind token.Kind, lexeme string, length int, ok bool) {
	bestLength := 0
	for _, p := range l.patterns {
		lex, n, matched := p.Pattern.FindLongestMatch(l.input[l.pos:])
		if !matched || n == 0 {
			continue
		}
		if n > bestLength {
			bestLength = n
			lexeme = lex
			kind = p.Kind
			ok = true
		}
	}
	return kind, lexeme, bestLength, ok
}
