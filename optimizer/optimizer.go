// Package optimizer implements the per-basic-block TAC optimization
// pass of spec.md section 4.6: leader-based block partitioning,
// constant folding, and constant propagation, alternated per block
// until a fixed point. It runs over the generator's single flat
// instruction stream, before the function/global split (tac.Split),
// matching the point in the pipeline where the original runs
// Optimizer.optimize.
package optimizer

import (
	"github.com/sirupsen/logrus"

	"github.com/dholloway/tacc/internal/cerrors"
	"github.com/dholloway/tacc/tac"
	"github.com/dholloway/tacc/types"
)

// Optimizer holds no state between runs; every Optimize call is
// independent, matching Optimizer.optimize in the original.
type Optimizer struct {
	log *logrus.Logger
}

// New creates an Optimizer. log may be nil, in which case a disabled
// logger is used.
func New(log *logrus.Logger) *Optimizer {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &Optimizer{log: log}
}

// Optimize runs the fixed-point folding/propagation pass over the
// single flat instruction stream spanning every function and global
// def, exactly as Optimizer.optimize does in the original: leaders are
// computed once over the whole stream, before the function/global
// split (tac.Split), so a global def's known value can still
// propagate into the entry function's later uses.
func Optimize(instructions []tac.Instruction, log *logrus.Logger) ([]tac.Instruction, error) {
	return New(log).Optimize(instructions)
}

func (o *Optimizer) Optimize(instructions []tac.Instruction) ([]tac.Instruction, error) {
	o.log.Debugf("optimizer: optimizing %d instructions", len(instructions))
	blocks := getBlocks(instructions)
	for i := range blocks {
		for {
			f, err := constantFolding(blocks[i])
			if err != nil {
				return nil, err
			}
			blocks[i] = f.instrs
			p := constantPropagation(blocks[i])
			if !f.changed && !p {
				break
			}
		}
	}
	var flat []tac.Instruction
	for _, block := range blocks {
		flat = append(flat, block...)
	}
	return flat, nil
}

// getBlocks partitions instructions into basic blocks by computing
// leaders: the first instruction, every label target of a goto/if,
// and every instruction immediately following a goto/if — spec.md
// section 4.6, grounded on Optimizer.get_blocks.
func getBlocks(instructions []tac.Instruction) [][]tac.Instruction {
	if len(instructions) == 0 {
		return nil
	}

	labelIndex := make(map[string]int)
	for i, instr := range instructions {
		if instr.Op == tac.OpLabel {
			labelIndex[instr.Label] = i
		}
	}

	leaders := map[int]bool{0: true}
	for i, instr := range instructions {
		if instr.Op == tac.OpGoto || instr.Op == tac.OpIf {
			if idx, ok := labelIndex[instr.Label]; ok {
				leaders[idx] = true
			}
			if i+1 < len(instructions) {
				leaders[i+1] = true
			}
		}
	}

	sorted := make([]int, 0, len(leaders))
	for idx := range leaders {
		sorted = append(sorted, idx)
	}
	sortInts(sorted)

	blocks := make([][]tac.Instruction, 0, len(sorted))
	for i, start := range sorted {
		end := len(instructions)
		if i+1 < len(sorted) {
			end = sorted[i+1]
		}
		blocks = append(blocks, instructions[start:end])
	}
	return blocks
}

func sortInts(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

var foldableOps = map[tac.Opcode]bool{
	tac.OpAdd: true, tac.OpSub: true, tac.OpMul: true, tac.OpDiv: true,
	tac.OpAnd: true, tac.OpOr: true,
	tac.OpLt: true, tac.OpLe: true, tac.OpGt: true, tac.OpGe: true,
	tac.OpEqEq: true, tac.OpNe: true,
}

type foldResult struct {
	instrs  []tac.Instruction
	changed bool
}

// constantFolding computes every binary op whose arguments are both
// Const into a single Const, folded with truncated signed 32-bit
// (idiv-semantics) division rather than the original's true division
// bug (see DESIGN.md), rejecting a folded zero divisor with
// *cerrors.DivByZero. Folded instructions are dropped from the block
// and the resulting constant is spread to any later use of the same
// Temp, mirroring Optimizer.constant_folding's two passes.
func constantFolding(block []tac.Instruction) (foldResult, error) {
	constMap := make(map[tac.Temp]tac.Const)
	changed := false

	kept := block[:0:0]
	for _, instr := range block {
		if foldableOps[instr.Op] {
			arg1, ok1 := instr.Arg1.(tac.Const)
			arg2, ok2 := instr.Arg2.(tac.Const)
			result, ok3 := instr.Result.(tac.Temp)
			if ok1 && ok2 && ok3 {
				value, resultType, err := foldConst(instr.Op, arg1, arg2)
				if err != nil {
					return foldResult{}, err
				}
				constMap[result] = tac.Const{Value: value, Type: resultType}
				changed = true
				continue
			}
		}
		kept = append(kept, instr)
	}

	spread := false
	for i, instr := range kept {
		if arg1, ok := instr.Arg1.(tac.Temp); ok {
			if c, found := constMap[arg1]; found {
				kept[i].Arg1 = c
				spread = true
			}
		}
		if arg2, ok := instr.Arg2.(tac.Temp); ok {
			if c, found := constMap[arg2]; found {
				kept[i].Arg2 = c
				spread = true
			}
		}
	}

	return foldResult{instrs: kept, changed: changed || spread}, nil
}

// foldConst computes a single folded constant for a binary op over two
// known operands. Arithmetic is truncated 32-bit signed division per
// idiv semantics (Go's integer division already truncates toward
// zero, matching idiv, unlike the original's floating-point "/"); a
// zero divisor fails the compile rather than silently producing a
// float or panicking.
func foldConst(op tac.Opcode, a, b tac.Const) (int, types.Type, error) {
	switch op {
	case tac.OpAdd:
		return a.Value + b.Value, types.Int, nil
	case tac.OpSub:
		return a.Value - b.Value, types.Int, nil
	case tac.OpMul:
		return a.Value * b.Value, types.Int, nil
	case tac.OpDiv:
		if b.Value == 0 {
			return 0, types.Unknown, &cerrors.DivByZero{}
		}
		return a.Value / b.Value, types.Int, nil
	case tac.OpAnd:
		return boolInt(a.Value != 0 && b.Value != 0), types.Bool, nil
	case tac.OpOr:
		return boolInt(a.Value != 0 || b.Value != 0), types.Bool, nil
	case tac.OpLt:
		return boolInt(a.Value < b.Value), types.Bool, nil
	case tac.OpLe:
		return boolInt(a.Value <= b.Value), types.Bool, nil
	case tac.OpGt:
		return boolInt(a.Value > b.Value), types.Bool, nil
	case tac.OpGe:
		return boolInt(a.Value >= b.Value), types.Bool, nil
	case tac.OpEqEq:
		return boolInt(a.Value == b.Value), types.Bool, nil
	case tac.OpNe:
		return boolInt(a.Value != b.Value), types.Bool, nil
	default:
		panic("optimizer: unreachable foldable opcode " + string(op))
	}
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// constantPropagation scans a block forward, recording Var → constant
// value on "eq Const → Var" / "def Const → Var" and on "eq Var′ →
// Var" where Var′ already holds a known constant, then rewrites any
// later use of that Var as arg1/arg2 (except as print's operand,
// which is always read live) to the recorded Const — unless the Var
// was redefined by something other than a known constant in between,
// which invalidates the binding from that redefining instruction
// onward. Mirrors Optimizer.constant_propagation.
func constantPropagation(block []tac.Instruction) bool {
	varMap := make(map[tac.Var]int)
	whenToDel := make(map[tac.Var]int)

	for i, instr := range block {
		if instr.Op != tac.OpEq && instr.Op != tac.OpDef {
			continue
		}
		result, ok := instr.Result.(tac.Var)
		if !ok {
			continue
		}
		if c, ok := instr.Arg1.(tac.Const); ok {
			varMap[result] = c.Value
			continue
		}
		if v, ok := instr.Arg1.(tac.Var); ok {
			if value, found := varMap[v]; found {
				varMap[result] = value
				continue
			}
		}
		if _, found := varMap[result]; found {
			whenToDel[result] = i
		}
	}

	changed := false
	for i := range block {
		instr := &block[i]
		if instr.Op == tac.OpPrint {
			continue
		}
		if v, ok := instr.Arg1.(tac.Var); ok {
			if value, found := varMap[v]; found && stillValid(whenToDel, v, i) {
				instr.Arg1 = tac.Const{Value: value, Type: v.Type}
				changed = true
			}
		}
		if v, ok := instr.Arg2.(tac.Var); ok {
			if value, found := varMap[v]; found && stillValid(whenToDel, v, i) {
				instr.Arg2 = tac.Const{Value: value, Type: v.Type}
				changed = true
			}
		}
	}
	return changed
}

func stillValid(whenToDel map[tac.Var]int, v tac.Var, i int) bool {
	limit, ok := whenToDel[v]
	if !ok {
		return true
	}
	return i <= limit
}
