// Package analyzer implements the semantic analysis pass of spec.md
// section 4.4: function hoisting, nested-scope symbol resolution, type
// checking, and the one-time storage-class/scope-id annotation of
// every identifier-bearing node. Dispatch is a type switch over the
// ast package's tagged variants rather than the original's
// reflection-based "visit_<NodeName>" lookup — see spec.md section 9.
package analyzer

import (
	"github.com/sirupsen/logrus"

	"github.com/dholloway/tacc/ast"
	"github.com/dholloway/tacc/internal/cerrors"
	"github.com/dholloway/tacc/symbols"
	"github.com/dholloway/tacc/types"
)

// Analyzer walks a *ast.Program, resolving names and types in place.
// It stops at the first error, matching spec.md's error-handling
// design.
type Analyzer struct {
	table           *symbols.Table
	scope           int
	currentFunction *ast.FunctionDef
	log             *logrus.Logger
}

// New creates an Analyzer. log may be nil, in which case a disabled
// logger is used.
func New(log *logrus.Logger) *Analyzer {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &Analyzer{table: symbols.NewTable(), scope: symbols.GlobalScopeID, log: log}
}

// Analyze type-checks and annotates prog, returning the first error
// encountered, if any.
func Analyze(prog *ast.Program, log *logrus.Logger) error {
	return New(log).Analyze(prog)
}

// Analyze runs the full pass described at the package level. Program
// items run in source order; a *ast.FunctionDef is analyzed as a
// function body, everything else (including *ast.Definer, which is
// both a Decl and a Stmt) as a top-level statement of the implicit
// entry sequence the tac package synthesizes — see DESIGN.md.
func (a *Analyzer) Analyze(prog *ast.Program) error {
	a.log.Debugln("analyzer: hoisting top-level function signatures")
	for _, item := range prog.Items {
		fn, ok := item.(*ast.FunctionDef)
		if !ok {
			continue
		}
		paramTypes := make([]types.Type, len(fn.Params))
		for i, p := range fn.Params {
			paramTypes[i] = p.Type
		}
		if !a.table.Define(symbols.GlobalScopeID, fn.Name, symbols.Function{ReturnType: fn.ReturnType, Params: paramTypes}) {
			return &cerrors.Redefined{Pos: cerrors.Pos{Row: fn.Row, Column: fn.Col}, Name: fn.Name}
		}
	}

	for _, item := range prog.Items {
		if err := a.analyzeItem(item); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeItem(item ast.Node) error {
	if fn, ok := item.(*ast.FunctionDef); ok {
		return a.analyzeFunctionDef(fn)
	}
	stmt, ok := item.(ast.Stmt)
	if !ok {
		a.log.Panicln("analyzer: unreachable top-level item type")
		return nil
	}
	return a.analyzeStmt(stmt)
}

func (a *Analyzer) analyzeFunctionDef(fn *ast.FunctionDef) error {
	a.log.Debugf("analyzer: entering function %q", fn.Name)
	outerScope := a.scope
	outerFunction := a.currentFunction
	a.scope = a.table.NewScope(outerScope)
	a.currentFunction = fn

	for _, param := range fn.Params {
		sym := symbols.Variable{Type: param.Type, Storage: symbols.Param, ScopeID: a.scope}
		if !a.table.Define(a.scope, param.Name, sym) {
			return &cerrors.Redefined{Pos: cerrors.Pos{Row: fn.Row, Column: fn.Col}, Name: param.Name}
		}
	}

	if err := a.analyzeStatements(fn.Body.Statements); err != nil {
		return err
	}
	fn.Body.ScopeID = a.scope

	a.scope = outerScope
	a.currentFunction = outerFunction
	return nil
}

func (a *Analyzer) analyzeStatements(stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		if err := a.analyzeStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.Definer:
		return a.analyzeDefiner(s)
	case *ast.Equalize:
		return a.analyzeEqualize(s)
	case *ast.If:
		return a.analyzeIf(s)
	case *ast.While:
		return a.analyzeWhile(s)
	case *ast.Print:
		return a.analyzePrint(s)
	case *ast.Scope:
		return a.analyzeScope(s)
	case *ast.Return:
		return a.analyzeReturn(s)
	case *ast.FunctionCall:
		_, err := a.analyzeCall(s)
		return err
	default:
		a.log.Panicln("analyzer: unreachable statement type")
		return nil
	}
}

func (a *Analyzer) analyzeScope(sc *ast.Scope) error {
	outer := a.scope
	a.scope = a.table.NewScope(outer)
	sc.ScopeID = a.scope
	if err := a.analyzeStatements(sc.Statements); err != nil {
		return err
	}
	a.scope = outer
	return nil
}

func (a *Analyzer) analyzeDefiner(d *ast.Definer) error {
	d.Storage = a.storageForScope(a.scope)
	d.ScopeID = a.scope
	if !a.table.Define(a.scope, d.Name, symbols.Variable{Type: d.Type, Storage: d.Storage, ScopeID: a.scope}) {
		return &cerrors.Redefined{Pos: cerrors.Pos{Row: d.Row, Column: d.Col}, Name: d.Name}
	}
	if d.Value == nil {
		return nil
	}
	valueType, err := a.analyzeExpr(d.Value)
	if err != nil {
		return err
	}
	if valueType != d.Type {
		return &cerrors.TypeMismatch{Pos: cerrors.Pos{Row: d.Row, Column: d.Col}, Expected: d.Type.String(), Found: valueType.String()}
	}
	return nil
}

// storageForScope mirrors the original's rule: the scope directly
// attached to the global scope's declarations is "global"; every other
// scope is "local" (parameters are refined further to Param by
// analyzeFunctionDef, which runs before any statement in the body is
// visited).
func (a *Analyzer) storageForScope(scopeID int) symbols.StorageClass {
	if scopeID == symbols.GlobalScopeID {
		return symbols.Global
	}
	return symbols.Local
}

func (a *Analyzer) analyzeEqualize(e *ast.Equalize) error {
	sym, found := a.table.Resolve(a.scope, e.Name)
	if !found {
		return &cerrors.Undefined{Pos: cerrors.Pos{Row: e.Row, Column: e.Col}, Name: e.Name}
	}
	v, ok := sym.(symbols.Variable)
	if !ok {
		return &cerrors.TypeMismatch{Pos: cerrors.Pos{Row: e.Row, Column: e.Col}, Expected: "a variable", Found: "a function"}
	}
	e.Storage = v.Storage
	e.ScopeID = v.ScopeID

	valueType, err := a.analyzeExpr(e.Value)
	if err != nil {
		return err
	}
	if valueType != v.Type {
		return &cerrors.TypeMismatch{Pos: cerrors.Pos{Row: e.Row, Column: e.Col}, Expected: v.Type.String(), Found: valueType.String()}
	}
	return nil
}

func (a *Analyzer) analyzeIf(s *ast.If) error {
	condType, err := a.analyzeExpr(s.Condition)
	if err != nil {
		return err
	}
	if condType != types.Bool {
		return &cerrors.TypeMismatch{Expected: types.Bool.String(), Found: condType.String()}
	}
	return a.analyzeScope(s.Body)
}

func (a *Analyzer) analyzeWhile(s *ast.While) error {
	condType, err := a.analyzeExpr(s.Condition)
	if err != nil {
		return err
	}
	if condType != types.Bool {
		return &cerrors.TypeMismatch{Expected: types.Bool.String(), Found: condType.String()}
	}
	return a.analyzeScope(s.Body)
}

func (a *Analyzer) analyzePrint(s *ast.Print) error {
	_, err := a.analyzeExpr(s.Expr)
	return err
}

func (a *Analyzer) analyzeReturn(s *ast.Return) error {
	if a.currentFunction == nil {
		return &cerrors.ReturnOutsideFunction{Pos: cerrors.Pos{Row: s.Row, Column: s.Col}}
	}
	actual, err := a.analyzeExpr(s.Expr)
	if err != nil {
		return err
	}
	if actual != a.currentFunction.ReturnType {
		return &cerrors.TypeMismatch{
			Pos:      cerrors.Pos{Row: s.Row, Column: s.Col},
			Expected: a.currentFunction.ReturnType.String(),
			Found:    actual.String(),
		}
	}
	return nil
}

// analyzeExpr dispatches by type switch, annotating and returning the
// node's type. A Condition, Expression, or Term node's type is always
// determined here (never trusted from construction); a Factor's
// literal type is already set by the parser and is only looked up
// here when it names a variable.
func (a *Analyzer) analyzeExpr(expr ast.Expr) (types.Type, error) {
	switch e := expr.(type) {
	case *ast.Condition:
		return a.analyzeCondition(e)
	case *ast.Expression:
		return a.analyzeArith(e.Left, e.Right, string(e.Op))
	case *ast.Term:
		return a.analyzeArith(e.Left, e.Right, string(e.Op))
	case *ast.Factor:
		return a.analyzeFactor(e)
	case *ast.FunctionCall:
		return a.analyzeCall(e)
	default:
		a.log.Panicln("analyzer: unreachable expression type")
		return types.Unknown, nil
	}
}

func (a *Analyzer) analyzeCondition(c *ast.Condition) (types.Type, error) {
	leftType, err := a.analyzeExpr(c.Left)
	if err != nil {
		return types.Unknown, err
	}
	rightType, err := a.analyzeExpr(c.Right)
	if err != nil {
		return types.Unknown, err
	}

	pos := cerrors.Pos{Row: c.Row, Column: c.Col}
	switch c.Op {
	case ast.Ne, ast.Lt, ast.Gt, ast.Le, ast.Ge:
		if leftType != rightType || leftType == types.Bool || rightType == types.Bool {
			return types.Unknown, &cerrors.TypeMismatch{Pos: pos, Expected: "matching non-bool types", Found: leftType.String() + " and " + rightType.String()}
		}
	case ast.Eq:
		if leftType != rightType {
			return types.Unknown, &cerrors.TypeMismatch{Pos: pos, Expected: leftType.String(), Found: rightType.String()}
		}
	case ast.And, ast.Or:
		if leftType != types.Bool || rightType != types.Bool {
			return types.Unknown, &cerrors.TypeMismatch{Pos: pos, Expected: "bool and bool", Found: leftType.String() + " and " + rightType.String()}
		}
	default:
		a.log.Panicln("analyzer: unreachable condition operator")
	}
	return types.Bool, nil
}

func (a *Analyzer) analyzeArith(left, right ast.Expr, op string) (types.Type, error) {
	leftType, err := a.analyzeExpr(left)
	if err != nil {
		return types.Unknown, err
	}
	rightType, err := a.analyzeExpr(right)
	if err != nil {
		return types.Unknown, err
	}
	if leftType != types.Int || rightType != types.Int {
		return types.Unknown, &cerrors.TypeMismatch{Expected: "int and int", Found: leftType.String() + " and " + rightType.String()}
	}
	return types.Int, nil
}

func (a *Analyzer) analyzeFactor(f *ast.Factor) (types.Type, error) {
	if !f.IsVariable {
		return f.Type, nil
	}
	sym, found := a.table.Resolve(a.scope, f.Value)
	if !found {
		return types.Unknown, &cerrors.Undefined{Pos: cerrors.Pos{Row: f.Row, Column: f.Col}, Name: f.Value}
	}
	v, ok := sym.(symbols.Variable)
	if !ok {
		return types.Unknown, &cerrors.TypeMismatch{Pos: cerrors.Pos{Row: f.Row, Column: f.Col}, Expected: "a variable", Found: "a function"}
	}
	f.Type = v.Type
	f.Storage = v.Storage
	f.ScopeID = v.ScopeID
	return v.Type, nil
}

func (a *Analyzer) analyzeCall(c *ast.FunctionCall) (types.Type, error) {
	pos := cerrors.Pos{Row: c.Row, Column: c.Col}
	sym, found := a.table.Resolve(symbols.GlobalScopeID, c.Name)
	if !found {
		return types.Unknown, &cerrors.Undefined{Pos: pos, Name: c.Name}
	}
	fn, ok := sym.(symbols.Function)
	if !ok {
		return types.Unknown, &cerrors.TypeMismatch{Pos: pos, Expected: "a function", Found: "a variable"}
	}
	if len(c.Args) != len(fn.Params) {
		return types.Unknown, &cerrors.ArityMismatch{Pos: pos, Name: c.Name, Expected: len(fn.Params), Found: len(c.Args)}
	}
	for i, arg := range c.Args {
		argType, err := a.analyzeExpr(arg)
		if err != nil {
			return types.Unknown, err
		}
		if argType != fn.Params[i] {
			return types.Unknown, &cerrors.TypeMismatch{Pos: pos, Expected: fn.Params[i].String(), Found: argType.String()}
		}
	}
	c.Type = fn.ReturnType
	return fn.ReturnType, nil
}
