package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dholloway/tacc/ast"
	"github.com/dholloway/tacc/internal/cerrors"
	"github.com/dholloway/tacc/lexer"
)

func parseSource(t *testing.T, src string) (*ast.Program, error) {
	t.Helper()
	l, err := lexer.New(src)
	require.NoError(t, err)
	tokens, err := l.Tokenize()
	require.NoError(t, err)
	return Parse(tokens)
}

func TestParseSimpleDefiner(t *testing.T) {
	prog, err := parseSource(t, "var int x = 3;")
	require.NoError(t, err)
	require.Len(t, prog.Items, 1)

	def, ok := prog.Items[0].(*ast.Definer)
	require.True(t, ok)
	assert.Equal(t, "x", def.Name)
	factor, ok := def.Value.(*ast.Factor)
	require.True(t, ok)
	assert.Equal(t, "3", factor.Value)
}

func TestParseFunctionDefWithParamsAndReturn(t *testing.T) {
	prog, err := parseSource(t, `
		int add(int a, int b) {
			return a + b;
		}
	`)
	require.NoError(t, err)
	require.Len(t, prog.Items, 1)

	fn, ok := prog.Items[0].(*ast.FunctionDef)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, "b", fn.Params[1].Name)
	require.Len(t, fn.Body.Statements, 1)

	ret, ok := fn.Body.Statements[0].(*ast.Return)
	require.True(t, ok)
	_, isExpression := ret.Expr.(*ast.Expression)
	assert.True(t, isExpression)
}

func TestParseIfWithGroupedCondition(t *testing.T) {
	prog, err := parseSource(t, `
		int main() {
			if (x < 1) & (y > 2) do {
				print(x);
			}
		}
	`)
	require.NoError(t, err)
	fn := prog.Items[0].(*ast.FunctionDef)
	ifStmt, ok := fn.Body.Statements[0].(*ast.If)
	require.True(t, ok)

	cond, ok := ifStmt.Condition.(*ast.Condition)
	require.True(t, ok)
	assert.Equal(t, ast.And, cond.Op)

	left, ok := cond.Left.(*ast.Condition)
	require.True(t, ok)
	assert.Equal(t, ast.Lt, left.Op)
}

func TestParseBareConditionIsNotWrapped(t *testing.T) {
	prog, err := parseSource(t, `
		int main() {
			while done do {
				print(done);
			}
		}
	`)
	require.NoError(t, err)
	fn := prog.Items[0].(*ast.FunctionDef)
	whileStmt, ok := fn.Body.Statements[0].(*ast.While)
	require.True(t, ok)

	_, isCondition := whileStmt.Condition.(*ast.Condition)
	assert.False(t, isCondition, "a bare expression condition must not be wrapped in a Condition node")

	factor, ok := whileStmt.Condition.(*ast.Factor)
	require.True(t, ok)
	assert.Equal(t, "done", factor.Value)
}

func TestParseCallStatementVersusAssignment(t *testing.T) {
	prog, err := parseSource(t, `
		int main() {
			foo(1, 2);
			x = 3;
		}
	`)
	require.NoError(t, err)
	fn := prog.Items[0].(*ast.FunctionDef)
	require.Len(t, fn.Body.Statements, 2)

	call, ok := fn.Body.Statements[0].(*ast.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "foo", call.Name)
	assert.Len(t, call.Args, 2)

	eq, ok := fn.Body.Statements[1].(*ast.Equalize)
	require.True(t, ok)
	assert.Equal(t, "x", eq.Name)
}

func TestParseMissingSemicolonIsSyntaxError(t *testing.T) {
	_, err := parseSource(t, "var int x = 3")
	require.Error(t, err)
	var syntaxErr *cerrors.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestParseEmptyProgramIsSyntaxError(t *testing.T) {
	_, err := parseSource(t, "")
	require.Error(t, err)
	var syntaxErr *cerrors.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestParseFunctionCallAsFactor(t *testing.T) {
	prog, err := parseSource(t, `
		int square(int n) {
			return n * n;
		}
		int main() {
			var int y = square(4) + 1;
		}
	`)
	require.NoError(t, err)
	require.Len(t, prog.Items, 2)

	main := prog.Items[1].(*ast.FunctionDef)
	def := main.Body.Statements[0].(*ast.Definer)
	expr, ok := def.Value.(*ast.Expression)
	require.True(t, ok)
	assert.Equal(t, ast.Add, expr.Op)

	call, ok := expr.Left.(*ast.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "square", call.Name)
}
