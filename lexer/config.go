package lexer

import (
	"github.com/dholloway/tacc/regex"
	"github.com/dholloway/tacc/token"
)

// DefaultConfig compiles the skip pattern and token-pattern table for
// this language, per the table in spec.md section 4.2. Priorities are
// given in parentheses there; ties among patterns matching the same
// length are broken in favor of the higher priority.
func DefaultConfig() ([]*regex.Pattern, []TokenPattern, error) {
	skipSrc := []string{`[ \t\n]+`}

	type spec struct {
		kind     token.Kind
		priority int
		pattern  string
	}
	specs := []spec{
		{token.KEYWORD, 5, `while|print|var|if|do|return`},
		{token.TYPE, 5, `int|bool`},
		{token.BOOLEAN, 6, `true|false`},
		{token.IDENTIFIER, 4, `[A-Za-z][A-Za-z0-9_]*`},
		{token.SIGNED_NUMBER, 6, `-[0-9]+`},
		{token.NUMBER, 3, `[0-9]+`},
		{token.SYMBOL, 2, `;|\(|\)|=|\{|\}|,`},
		{token.OPERATOR, 1, `\+|-|\*|/`},
		{token.CONDITIONAL_OPERATOR, 1, `<|>|==|<=|>=|!=`},
		{token.LOGICAL_OPERATOR, 1, `&|\|`},
	}

	var skip []*regex.Pattern
	for _, src := range skipSrc {
		p, err := regex.New(src)
		if err != nil {
			return nil, nil, err
		}
		skip = append(skip, p)
	}

	var patterns []TokenPattern
	for _, s := range specs {
		p, err := regex.New(s.pattern)
		if err != nil {
			return nil, nil, err
		}
		patterns = append(patterns, TokenPattern{Kind: s.kind, Priority: s.priority, Pattern: p})
	}

	return skip, patterns, nil
}
