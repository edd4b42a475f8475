package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dholloway/tacc/ast"
	"github.com/dholloway/tacc/internal/cerrors"
	"github.com/dholloway/tacc/lexer"
	"github.com/dholloway/tacc/parser"
	"github.com/dholloway/tacc/symbols"
	"github.com/dholloway/tacc/types"
)

func mustAnalyze(t *testing.T, src string) (*ast.Program, error) {
	t.Helper()
	l, err := lexer.New(src)
	require.NoError(t, err)
	tokens, err := l.Tokenize()
	require.NoError(t, err)
	prog, err := parser.Parse(tokens)
	require.NoError(t, err)
	return prog, Analyze(prog, nil)
}

func TestAnalyzeAnnotatesStorageAndType(t *testing.T) {
	prog, err := mustAnalyze(t, "var int x = 1 + 2;")
	require.NoError(t, err)

	def := prog.Items[0].(*ast.Definer)
	assert.Equal(t, symbols.Global, def.Storage)
	expr := def.Value.(*ast.Expression)
	assert.Equal(t, types.Int, expr.ExprType())
}

func TestAnalyzeFunctionCallTypeChecksArgs(t *testing.T) {
	_, err := mustAnalyze(t, `
		int add(int a, int b) {
			return a + b;
		}
		int main() {
			var int x = add(1, 2);
			return x;
		}
	`)
	require.NoError(t, err)
}

func TestAnalyzeArityMismatch(t *testing.T) {
	_, err := mustAnalyze(t, `
		int add(int a, int b) {
			return a + b;
		}
		int main() {
			var int x = add(1);
			return x;
		}
	`)
	require.Error(t, err)
	var arityErr *cerrors.ArityMismatch
	assert.ErrorAs(t, err, &arityErr)
}

func TestAnalyzeUndefinedVariable(t *testing.T) {
	_, err := mustAnalyze(t, `
		int main() {
			var int x = y;
			return x;
		}
	`)
	require.Error(t, err)
	var undefErr *cerrors.Undefined
	assert.ErrorAs(t, err, &undefErr)
}

func TestAnalyzeRedefinitionInSameScope(t *testing.T) {
	_, err := mustAnalyze(t, `
		int main() {
			var int x = 1;
			var int x = 2;
			return x;
		}
	`)
	require.Error(t, err)
	var redefErr *cerrors.Redefined
	assert.ErrorAs(t, err, &redefErr)
}

func TestAnalyzeTypeMismatchOnAssignment(t *testing.T) {
	_, err := mustAnalyze(t, `
		int main() {
			var bool b = 1;
			return 0;
		}
	`)
	require.Error(t, err)
	var mismatch *cerrors.TypeMismatch
	assert.ErrorAs(t, err, &mismatch)
}

func TestAnalyzeReturnTypeMismatch(t *testing.T) {
	_, err := mustAnalyze(t, `
		bool isPositive(int n) {
			return n;
		}
	`)
	require.Error(t, err)
	var mismatch *cerrors.TypeMismatch
	assert.ErrorAs(t, err, &mismatch)
}

func TestAnalyzeConditionRejectsBoolComparisonWithRelationalOperator(t *testing.T) {
	_, err := mustAnalyze(t, `
		int main() {
			var bool a = true;
			var bool b = false;
			if a < b do {
				return 1;
			}
			return 0;
		}
	`)
	require.Error(t, err)
	var mismatch *cerrors.TypeMismatch
	assert.ErrorAs(t, err, &mismatch)
}

func TestAnalyzeLogicalOperatorsRequireBool(t *testing.T) {
	prog, err := mustAnalyze(t, `
		int main() {
			var int x = 1;
			var int y = 2;
			if (x < 1) & (y < 2) do {
				return 1;
			}
			return 0;
		}
	`)
	require.NoError(t, err)
	fn := prog.Items[0].(*ast.FunctionDef)
	ifStmt := fn.Body.Statements[2].(*ast.If)
	assert.Equal(t, types.Bool, ifStmt.Condition.ExprType())
}

func TestAnalyzeNestedScopeGetsItsOwnScopeID(t *testing.T) {
	prog, err := mustAnalyze(t, `
		int main() {
			var int x = 1;
			while x < 10 do {
				var int y = x;
				x = y + 1;
			}
			return x;
		}
	`)
	require.NoError(t, err)
	fn := prog.Items[0].(*ast.FunctionDef)
	whileStmt := fn.Body.Statements[1].(*ast.While)
	assert.NotEqual(t, fn.Body.ScopeID, whileStmt.Body.ScopeID)
}
