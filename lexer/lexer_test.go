package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dholloway/tacc/internal/cerrors"
	"github.com/dholloway/tacc/token"
)

func tokenize(t *testing.T, src string) []token.Token {
	t.Helper()
	l, err := New(src)
	require.NoError(t, err)
	toks, err := l.Tokenize()
	require.NoError(t, err)
	return toks
}

func TestSimpleDeclaration(t *testing.T) {
	toks := tokenize(t, "var int x = 3;")
	kinds := []token.Kind{
		token.KEYWORD, token.TYPE, token.IDENTIFIER,
		token.SYMBOL, token.NUMBER, token.SYMBOL,
	}
	require.Len(t, toks, len(kinds))
	for i, k := range kinds {
		assert.Equal(t, k, toks[i].Kind, "token %d", i)
	}
	assert.Equal(t, "x", toks[2].Lexeme)
	assert.Equal(t, "3", toks[4].Lexeme)
}

func TestKeywordBeatsIdentifierOnTie(t *testing.T) {
	toks := tokenize(t, "if")
	require.Len(t, toks, 1)
	assert.Equal(t, token.KEYWORD, toks[0].Kind)
}

func TestBooleanBeatsIdentifierOnTie(t *testing.T) {
	toks := tokenize(t, "true false")
	require.Len(t, toks, 2)
	assert.Equal(t, token.BOOLEAN, toks[0].Kind)
	assert.Equal(t, token.BOOLEAN, toks[1].Kind)
}

func TestSignedNumberVsOperatorMinus(t *testing.T) {
	// "-3" is a single SIGNED_NUMBER; "3 - 4" has a standalone MINUS.
	toks := tokenize(t, "-3")
	require.Len(t, toks, 1)
	assert.Equal(t, token.SIGNED_NUMBER, toks[0].Kind)
	assert.Equal(t, "-3", toks[0].Lexeme)

	toks = tokenize(t, "3 - 4")
	require.Len(t, toks, 3)
	assert.Equal(t, token.NUMBER, toks[0].Kind)
	assert.Equal(t, token.OPERATOR, toks[1].Kind)
	assert.Equal(t, "-", toks[1].Lexeme)
	assert.Equal(t, token.NUMBER, toks[2].Kind)
}

func TestConditionalOperators(t *testing.T) {
	toks := tokenize(t, "< > == <= >= !=")
	want := []string{"<", ">", "==", "<=", ">=", "!="}
	require.Len(t, toks, len(want))
	for i, w := range want {
		assert.Equal(t, token.CONDITIONAL_OPERATOR, toks[i].Kind, "token %d", i)
		assert.Equal(t, w, toks[i].Lexeme, "token %d", i)
	}
}

func TestLogicalOperators(t *testing.T) {
	toks := tokenize(t, "a & b | c")
	assert.Equal(t, token.LOGICAL_OPERATOR, toks[1].Kind)
	assert.Equal(t, "&", toks[1].Lexeme)
	assert.Equal(t, token.LOGICAL_OPERATOR, toks[3].Kind)
	assert.Equal(t, "|", toks[3].Lexeme)
}

func TestPositionTracking(t *testing.T) {
	toks := tokenize(t, "var\nint x;")
	// "var" at 1:1, "int" at 2:1, "x" at 2:5, ";" at 2:6.
	require.Len(t, toks, 4)
	assert.Equal(t, 1, toks[0].Row)
	assert.Equal(t, 1, toks[0].Column)
	assert.Equal(t, 2, toks[1].Row)
	assert.Equal(t, 1, toks[1].Column)
	assert.Equal(t, 2, toks[2].Row)
	assert.Equal(t, 5, toks[2].Column)
}

func TestTabAdvancesColumnByFour(t *testing.T) {
	toks := tokenize(t, "\tx")
	require.Len(t, toks, 1)
	assert.Equal(t, 5, toks[0].Column)
}

func TestInvalidCharacter(t *testing.T) {
	l, err := New("var int x = 3 $ 4;")
	require.NoError(t, err)
	_, err = l.Tokenize()
	require.Error(t, err)
	var invalid *cerrors.InvalidCharacter
	assert.ErrorAs(t, err, &invalid)
	assert.Equal(t, '$', invalid.Char)
}
