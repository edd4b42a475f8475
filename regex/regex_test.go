package regex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, pattern string) *Pattern {
	t.Helper()
	p, err := New(pattern)
	require.NoError(t, err)
	return p
}

func TestLiteralAndConcat(t *testing.T) {
	p := compile(t, "if")
	lex, length, matched := p.FindLongestMatch([]rune("if (x)"))
	assert.True(t, matched)
	assert.Equal(t, "if", lex)
	assert.Equal(t, 2, length)
}

func TestAlternation(t *testing.T) {
	p := compile(t, "while|print|var|if|do|return")
	for _, word := range []string{"while", "print", "var", "if", "do", "return"} {
		_, length, matched := p.FindLongestMatch([]rune(word + ";"))
		assert.True(t, matched, word)
		assert.Equal(t, len(word), length, word)
	}
}

func TestStarAndPlus(t *testing.T) {
	digits := compile(t, "[0-9]+")
	_, length, matched := digits.FindLongestMatch([]rune("12345abc"))
	assert.True(t, matched)
	assert.Equal(t, 5, length)

	ws := compile(t, "[ \t\n]+")
	_, length, matched = ws.FindLongestMatch([]rune("   x"))
	assert.True(t, matched)
	assert.Equal(t, 3, length)

	star := compile(t, "a*")
	_, length, matched = star.FindLongestMatch([]rune("aaab"))
	assert.True(t, matched)
	assert.Equal(t, 3, length)

	// a* matches the empty prefix of a string not starting with 'a'.
	_, length, matched = star.FindLongestMatch([]rune("bbb"))
	assert.True(t, matched)
	assert.Equal(t, 0, length)
}

func TestQuestion(t *testing.T) {
	p := compile(t, "-?[0-9]+")
	_, length, matched := p.FindLongestMatch([]rune("-17 "))
	assert.True(t, matched)
	assert.Equal(t, 3, length)

	_, length, matched = p.FindLongestMatch([]rune("17 "))
	assert.True(t, matched)
	assert.Equal(t, 2, length)
}

func TestIdentifierPattern(t *testing.T) {
	p := compile(t, "[A-Za-z][A-Za-z0-9_]*")
	_, length, matched := p.FindLongestMatch([]rune("foo_Bar2 = 1"))
	assert.True(t, matched)
	assert.Equal(t, 8, length)
}

func TestGroupingAndEscapes(t *testing.T) {
	p := compile(t, `\(|\)`)
	_, length, matched := p.FindLongestMatch([]rune("(x)"))
	assert.True(t, matched)
	assert.Equal(t, 1, length)

	p2 := compile(t, `<|>|==|<=|>=|!=`)
	for _, op := range []string{"<", ">", "==", "<=", ">=", "!="} {
		_, length, matched := p2.FindLongestMatch([]rune(op + " x"))
		assert.True(t, matched, op)
		assert.Equal(t, len(op), length, op)
	}
}

func TestLongestMatchWinsOverShorterAlternative(t *testing.T) {
	p := compile(t, "<|<=")
	_, length, matched := p.FindLongestMatch([]rune("<= y"))
	assert.True(t, matched)
	assert.Equal(t, 2, length)
}

func TestNoMatch(t *testing.T) {
	p := compile(t, "[0-9]+")
	_, _, matched := p.FindLongestMatch([]rune("abc"))
	assert.False(t, matched)
}

func TestMalformedRegex(t *testing.T) {
	cases := []string{
		`\z`,     // unknown escape
		`[a-z`,   // unmatched bracket
		`[]`,     // empty range/class
		`(a|b`,   // unmatched paren
		`a)`,     // unmatched closing paren
		`[z-a]`,  // empty/inverted range
	}
	for _, pattern := range cases {
		_, err := New(pattern)
		assert.Error(t, err, pattern)
	}
}
