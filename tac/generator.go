package tac

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dholloway/tacc/ast"
	"github.com/dholloway/tacc/internal/cerrors"
	"github.com/dholloway/tacc/symbols"
	"github.com/dholloway/tacc/types"
)

const (
	int32Min = -2147483648
	int32Max = 2147483647
)

// Generator performs the single downward walk of spec.md section 4.5,
// minting fresh temporaries and labels as it goes and appending to one
// flat instruction stream, later partitioned into functions. Dispatch
// is a Go type switch rather than the original's
// `visit_<NodeName>`-by-reflection lookup, per spec.md section 9.
type Generator struct {
	instructions []Instruction
	tempCount    int
	labelCount   int
	log          *logrus.Logger
}

// New creates a Generator. log may be nil, in which case a disabled
// logger is used.
func New(log *logrus.Logger) *Generator {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &Generator{log: log}
}

// Generate runs the full pass described at the package level,
// producing a *Program, or fails with *cerrors.IntegerOverflow on an
// out-of-range integer literal.
func Generate(prog *ast.Program, log *logrus.Logger) (*Program, error) {
	return New(log).Generate(prog)
}

func (g *Generator) newTemp(t types.Type) Temp {
	temp := Temp{ID: g.tempCount, Type: t}
	g.tempCount++
	return temp
}

func (g *Generator) newLabel() string {
	label := "L" + strconv.Itoa(g.labelCount)
	g.labelCount++
	return label
}

func (g *Generator) emit(instr Instruction) Instruction {
	g.instructions = append(g.instructions, instr)
	return instr
}

// Generate walks prog.Items in source order, emitting the implicit
// entry function's body inline with every declared function's
// func_start/param/…/func_end block, then partitions the flat stream
// into a Program — see DESIGN.md's "implicit entry function" note.
// This is a convenience wrapper around GenerateFlat + Split for
// callers (chiefly tests) that don't run the optimizer between the
// two; the compiler pipeline calls GenerateFlat and Split directly so
// the optimizer can run on the same flat, unsplit stream the original
// TACGenerator.generate_tac hands to Optimizer.optimize, rather than
// on already-split per-function slices.
func (g *Generator) Generate(prog *ast.Program) (*Program, error) {
	instructions, err := g.generateFlat(prog)
	if err != nil {
		return nil, err
	}
	return Split(instructions), nil
}

// GenerateFlat runs the AST-to-TAC walk and returns the single flat
// instruction stream, main-call synthesis included, before any
// function/global split.
func GenerateFlat(prog *ast.Program, log *logrus.Logger) ([]Instruction, error) {
	return New(log).generateFlat(prog)
}

func (g *Generator) generateFlat(prog *ast.Program) ([]Instruction, error) {
	var mainName string
	var mainReturnType types.Type
	hasMain := false

	for _, item := range prog.Items {
		if fn, ok := item.(*ast.FunctionDef); ok {
			if err := g.genFunctionDef(fn); err != nil {
				return nil, err
			}
			if fn.Name == "main" {
				hasMain = true
				mainName = fn.Name
				mainReturnType = fn.ReturnType
			}
			continue
		}
		stmt, ok := item.(ast.Stmt)
		if !ok {
			g.log.Panicln("tac: unreachable top-level item type")
			continue
		}
		if err := g.genStmt(stmt); err != nil {
			return nil, err
		}
	}

	if hasMain {
		temp := g.newTemp(mainReturnType)
		g.emit(Instruction{Op: OpCall, Name: mainName, Argc: 0, Result: temp})
	}

	return g.instructions, nil
}

// Split partitions a flat instruction stream into the implicit entry
// function, every declared function's own body, and the list of
// global variable definitions — generalizing
// TACGenerator.split_tac_into_functions, which (because the original
// grammar forbids top-level statements) simply discards anything
// outside a func_start/func_end pair instead of collecting it into an
// entry function. Called after optimization, matching the pipeline
// order of the original (generate → optimize the flat stream →
// backend), so constant propagation can see across what becomes the
// entry/global split.
func Split(instructions []Instruction) *Program {
	prog := &Program{}
	var currentFunc *Function
	var entry []Instruction

	for _, instr := range instructions {
		switch {
		case instr.Op == OpFuncStart:
			prog.Functions = append(prog.Functions, Function{Name: instr.Name})
			currentFunc = &prog.Functions[len(prog.Functions)-1]
		case instr.Op == OpFuncEnd:
			currentFunc = nil
		case instr.Op == OpParam && currentFunc != nil:
			currentFunc.Params = append(currentFunc.Params, instr.Result.(Var))
			currentFunc.Instructions = append(currentFunc.Instructions, instr)
		case instr.Op == OpDef && isGlobalDef(instr):
			prog.Globals = append(prog.Globals, instr)
		case currentFunc != nil:
			currentFunc.Instructions = append(currentFunc.Instructions, instr)
		default:
			entry = append(entry, instr)
		}
	}

	prog.Entry = Function{Name: "_entry", Instructions: entry}
	return prog
}

func isGlobalDef(instr Instruction) bool {
	v, ok := instr.Result.(Var)
	return ok && v.Storage == symbols.Global
}

func (g *Generator) genFunctionDef(fn *ast.FunctionDef) error {
	g.log.Debugf("tac: generating function %q", fn.Name)
	g.emit(Instruction{Op: OpFuncStart, Name: fn.Name})
	for _, param := range fn.Params {
		g.emit(Instruction{Op: OpParam, Result: paramSymbol(fn, param)})
	}
	if err := g.genStatements(fn.Body.Statements); err != nil {
		return err
	}
	g.emit(Instruction{Op: OpFuncEnd, Name: fn.Name})
	return nil
}

// paramSymbol rebuilds a parameter's Var operand from the function's
// own scope id, which the analyzer stamped onto fn.Body.ScopeID (every
// parameter lives in the function's own top scope).
func paramSymbol(fn *ast.FunctionDef, param ast.Param) Var {
	return Var{Name: param.Name, Type: param.Type, Storage: symbols.Param, ScopeID: fn.Body.ScopeID}
}

func (g *Generator) genStatements(stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		if err := g.genStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) genStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.Definer:
		return g.genDefiner(s)
	case *ast.Equalize:
		return g.genEqualize(s)
	case *ast.If:
		return g.genIf(s)
	case *ast.While:
		return g.genWhile(s)
	case *ast.Print:
		return g.genPrint(s)
	case *ast.Return:
		return g.genReturn(s)
	case *ast.Scope:
		return g.genStatements(s.Statements)
	case *ast.FunctionCall:
		_, err := g.genCall(s)
		return err
	default:
		g.log.Panicln("tac: unreachable statement type")
		return nil
	}
}

func varOf(name string, t types.Type, storage symbols.StorageClass, scopeID int) Var {
	return Var{Name: name, Type: t, Storage: storage, ScopeID: scopeID}
}

func (g *Generator) genDefiner(d *ast.Definer) error {
	target := varOf(d.Name, d.Type, d.Storage, d.ScopeID)
	if d.Value == nil {
		g.emit(Instruction{Op: OpDef, Result: target})
		return nil
	}
	value, err := g.genExpr(d.Value)
	if err != nil {
		return err
	}
	if c, ok := value.(Const); ok {
		g.emit(Instruction{Op: OpDef, Arg1: c, Result: target})
		return nil
	}
	g.emit(Instruction{Op: OpDef, Result: target})
	g.emit(Instruction{Op: OpEq, Arg1: value, Result: target})
	return nil
}

func (g *Generator) genEqualize(e *ast.Equalize) error {
	value, err := g.genExpr(e.Value)
	if err != nil {
		return err
	}
	target := varOf(e.Name, value.OperandType(), e.Storage, e.ScopeID)
	g.emit(Instruction{Op: OpEq, Arg1: value, Result: target})
	return nil
}

func (g *Generator) genIf(s *ast.If) error {
	cond, err := g.genExpr(s.Condition)
	if err != nil {
		return err
	}
	startLabel := g.newLabel()
	g.emit(Instruction{Op: OpIf, Arg1: cond, Label: startLabel})
	endLabel := g.newLabel()
	g.emit(Instruction{Op: OpGoto, Label: endLabel})
	g.emit(Instruction{Op: OpLabel, Label: startLabel})
	if err := g.genStatements(s.Body.Statements); err != nil {
		return err
	}
	g.emit(Instruction{Op: OpLabel, Label: endLabel})
	return nil
}

func (g *Generator) genWhile(s *ast.While) error {
	startLabel := g.newLabel()
	g.emit(Instruction{Op: OpLabel, Label: startLabel})
	cond, err := g.genExpr(s.Condition)
	if err != nil {
		return err
	}
	midLabel := g.newLabel()
	endLabel := g.newLabel()
	g.emit(Instruction{Op: OpIf, Arg1: cond, Label: midLabel})
	g.emit(Instruction{Op: OpGoto, Label: endLabel})
	g.emit(Instruction{Op: OpLabel, Label: midLabel})
	if err := g.genStatements(s.Body.Statements); err != nil {
		return err
	}
	g.emit(Instruction{Op: OpGoto, Label: startLabel})
	g.emit(Instruction{Op: OpLabel, Label: endLabel})
	return nil
}

func (g *Generator) genPrint(s *ast.Print) error {
	value, err := g.genExpr(s.Expr)
	if err != nil {
		return err
	}
	g.emit(Instruction{Op: OpPrint, Arg1: value})
	return nil
}

func (g *Generator) genReturn(s *ast.Return) error {
	value, err := g.genExpr(s.Expr)
	if err != nil {
		return err
	}
	g.emit(Instruction{Op: OpRet, Arg1: value})
	return nil
}

func (g *Generator) genCall(c *ast.FunctionCall) (Operand, error) {
	for i := len(c.Args) - 1; i >= 0; i-- {
		arg, err := g.genExpr(c.Args[i])
		if err != nil {
			return nil, err
		}
		g.emit(Instruction{Op: OpArg, Result: arg})
	}
	temp := g.newTemp(c.Type)
	g.emit(Instruction{Op: OpCall, Name: c.Name, Argc: len(c.Args), Result: temp})
	return temp, nil
}

func (g *Generator) genExpr(expr ast.Expr) (Operand, error) {
	switch e := expr.(type) {
	case *ast.Condition:
		return g.genBinary(e.Left, e.Right, Opcode(e.Op), types.Bool)
	case *ast.Expression:
		return g.genBinary(e.Left, e.Right, Opcode(e.Op), types.Int)
	case *ast.Term:
		return g.genBinary(e.Left, e.Right, Opcode(e.Op), types.Int)
	case *ast.Factor:
		return g.genFactor(e)
	case *ast.FunctionCall:
		return g.genCall(e)
	default:
		g.log.Panicln("tac: unreachable expression type")
		return nil, nil
	}
}

func (g *Generator) genBinary(leftExpr, rightExpr ast.Expr, op Opcode, resultType types.Type) (Operand, error) {
	left, err := g.genExpr(leftExpr)
	if err != nil {
		return nil, err
	}
	right, err := g.genExpr(rightExpr)
	if err != nil {
		return nil, err
	}
	temp := g.newTemp(resultType)
	g.emit(Instruction{Op: op, Arg1: left, Arg2: right, Result: temp})
	return temp, nil
}

func (g *Generator) genFactor(f *ast.Factor) (Operand, error) {
	if f.IsVariable {
		return varOf(f.Value, f.Type, f.Storage, f.ScopeID), nil
	}
	if f.Type == types.Bool {
		v := strings.EqualFold(f.Value, "true")
		value := 0
		if v {
			value = 1
		}
		return Const{Value: value, Type: types.Bool}, nil
	}
	n, err := strconv.ParseInt(f.Value, 10, 64)
	if err != nil || n < int32Min || n > int32Max {
		return nil, &cerrors.IntegerOverflow{Pos: cerrors.Pos{Row: f.Row, Column: f.Col}, Digits: f.Value}
	}
	return Const{Value: int(n), Type: types.Int}, nil
}
