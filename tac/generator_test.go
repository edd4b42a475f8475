package tac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dholloway/tacc/analyzer"
	"github.com/dholloway/tacc/internal/cerrors"
	"github.com/dholloway/tacc/lexer"
	"github.com/dholloway/tacc/parser"
	"github.com/dholloway/tacc/types"
)

func mustGenerate(t *testing.T, src string) *Program {
	t.Helper()
	l, err := lexer.New(src)
	require.NoError(t, err)
	tokens, err := l.Tokenize()
	require.NoError(t, err)
	prog, err := parser.Parse(tokens)
	require.NoError(t, err)
	require.NoError(t, analyzer.Analyze(prog, nil))
	tacProg, err := Generate(prog, nil)
	require.NoError(t, err)
	return tacProg
}

func TestGenerateConstantDefinerEmitsSingleDef(t *testing.T) {
	prog := mustGenerate(t, "var int x = 3;")
	require.Empty(t, prog.Entry.Instructions)
	require.Len(t, prog.Globals, 1)
	assert.Equal(t, OpDef, prog.Globals[0].Op)
	c, ok := prog.Globals[0].Arg1.(Const)
	require.True(t, ok)
	assert.Equal(t, 3, c.Value)
}

func TestGenerateGlobalDefIsSplitOut(t *testing.T) {
	prog := mustGenerate(t, "var int x = 3; print(x);")
	require.Len(t, prog.Globals, 1)
	assert.Equal(t, OpPrint, prog.Entry.Instructions[0].Op)
}

func TestGenerateWhileLoopShape(t *testing.T) {
	prog := mustGenerate(t, "var int x = 1; while x < 10 do { x = x + 1; }")
	var ops []Opcode
	for _, instr := range prog.Entry.Instructions {
		ops = append(ops, instr.Op)
	}
	assert.Contains(t, ops, OpLabel)
	assert.Contains(t, ops, OpIf)
	assert.Contains(t, ops, OpGoto)
}

func TestGenerateFunctionCallLoweringAndMainSynthesis(t *testing.T) {
	prog := mustGenerate(t, `
		int add(int a, int b) {
			return a + b;
		}
		int main() {
			print(add(2, 40));
			return 0;
		}
	`)
	require.Len(t, prog.Functions, 2)

	var add, main *Function
	for i := range prog.Functions {
		switch prog.Functions[i].Name {
		case "add":
			add = &prog.Functions[i]
		case "main":
			main = &prog.Functions[i]
		}
	}
	require.NotNil(t, add)
	require.NotNil(t, main)
	require.Len(t, add.Params, 2)

	require.Len(t, prog.Entry.Instructions, 1)
	call := prog.Entry.Instructions[0]
	assert.Equal(t, OpCall, call.Op)
	assert.Equal(t, "main", call.Name)
	assert.Equal(t, 0, call.Argc)

	var foundCall bool
	for _, instr := range main.Instructions {
		if instr.Op == OpCall && instr.Name == "add" {
			foundCall = true
			assert.Equal(t, 2, instr.Argc)
		}
	}
	assert.True(t, foundCall, "main's body should call add")
}

func TestGenerateBooleanLiteralsLowerToZeroOne(t *testing.T) {
	prog := mustGenerate(t, "var bool t = true; var bool f = false;")
	require.Len(t, prog.Globals, 2)
	trueConst := prog.Globals[0].Arg1.(Const)
	falseConst := prog.Globals[1].Arg1.(Const)
	assert.Equal(t, 1, trueConst.Value)
	assert.Equal(t, 0, falseConst.Value)
	assert.Equal(t, types.Bool, trueConst.Type)
}

func TestGenerateIntegerOverflowFails(t *testing.T) {
	l, err := lexer.New("var int x = 2147483648;")
	require.NoError(t, err)
	tokens, err := l.Tokenize()
	require.NoError(t, err)
	prog, err := parser.Parse(tokens)
	require.NoError(t, err)
	require.NoError(t, analyzer.Analyze(prog, nil))

	_, err = Generate(prog, nil)
	require.Error(t, err)
	var overflow *cerrors.IntegerOverflow
	assert.ErrorAs(t, err, &overflow)
}

func TestGenerateMinInt32Accepted(t *testing.T) {
	l, err := lexer.New("var int x = -2147483648;")
	require.NoError(t, err)
	tokens, err := l.Tokenize()
	require.NoError(t, err)
	prog, err := parser.Parse(tokens)
	require.NoError(t, err)
	require.NoError(t, analyzer.Analyze(prog, nil))

	tacProg, err := Generate(prog, nil)
	require.NoError(t, err)
	c := tacProg.Globals[0].Arg1.(Const)
	assert.Equal(t, -2147483648, c.Value)
}
