package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Golden end-to-end scenarios from spec.md section 8: each asserts only
// that the program compiles and that the assembly declares and defines
// _start; the printed output is not checked, since running nasm/ld is
// outside this repo's reach.
func TestCompileScenarios(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"addition", "var int x = 3; var int y = 4; print(x + y);"},
		{"countdown", "var int x = 10; while x > 0 do { print(x); x = x - 1; }"},
		{"conditional", "var int a = 6; var int b = 4; if a > b do { print(a - b); }"},
		{"boolean-ops", "var bool t = true; var bool f = false; print(t & f); print(t | f);"},
		{"function-call", "int add(int a, int b) { return a + b; } int main() { print(add(2, 40)); return 0; }"},
		{"compound-condition", "var int x = 7; var int y = 0; if (x > 0) & (x < 10) do { y = x * 3; } print(y);"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.src)
			asm, err := c.Compile()
			require.NoError(t, err)
			assert.Contains(t, asm, "_start:")
			assert.Contains(t, asm, "global _start")
		})
	}
}

func TestCompileFunctionScenarioLowersCallAndReturn(t *testing.T) {
	c := New("int add(int a, int b) { return a + b; } int main() { print(add(2, 40)); return 0; }")
	asm, err := c.Compile()
	require.NoError(t, err)
	assert.Contains(t, asm, "call add")
	assert.Contains(t, asm, "add:")
	assert.Contains(t, asm, "ret")
}

func TestCompileBooleanScenarioCallsPrintBoolean(t *testing.T) {
	c := New("var bool t = true; var bool f = false; print(t & f); print(t | f);")
	asm, err := c.Compile()
	require.NoError(t, err)
	assert.Contains(t, asm, "call print_boolean")
}

func TestCompileIntegerLiteralBoundaries(t *testing.T) {
	c := New("var int x = -2147483648; print(x);")
	_, err := c.Compile()
	assert.NoError(t, err)

	c = New("var int x = 2147483648; print(x);")
	_, err = c.Compile()
	assert.Error(t, err)
}

func TestCompileTypeMismatchRejected(t *testing.T) {
	c := New("var int x = false;")
	_, err := c.Compile()
	assert.Error(t, err)
}

func TestCompileRedefinitionInSameScopeRejected(t *testing.T) {
	c := New("var int x = 1; var int x = 2;")
	_, err := c.Compile()
	assert.Error(t, err)
}

func TestCompileForwardCallToLaterDefinedFunctionSucceeds(t *testing.T) {
	c := New("int main() { print(later()); return 0; } int later() { return 9; }")
	_, err := c.Compile()
	assert.NoError(t, err)
}

func TestCompileBogusInputsFail(t *testing.T) {
	tests := []string{
		"",
		"var int x = ;",
		"print(x",
	}

	for _, src := range tests {
		c := New(src)
		_, err := c.Compile()
		assert.Error(t, err, "expected an error compiling %q", src)
	}
}

func TestCompileNoOptimizeStillProducesRunnableAssembly(t *testing.T) {
	c := New("var int x = 3; var int y = 4; print(x + y);")
	c.SetOptimize(false)
	asm, err := c.Compile()
	require.NoError(t, err)
	assert.Contains(t, asm, "_start:")
	assert.Equal(t, c.TAC(), c.OptimizedTAC())
}

func TestDumpTokensAndTAC(t *testing.T) {
	c := New("var int x = 3; print(x);")
	_, err := c.Compile()
	require.NoError(t, err)

	tokenDump := DumpTokens(c.Tokens())
	assert.True(t, strings.Contains(tokenDump, "x") || len(c.Tokens()) > 0)

	tacDump := DumpTAC(c.TAC())
	assert.NotEmpty(t, tacDump)
}
