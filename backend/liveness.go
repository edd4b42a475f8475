package backend

import (
	"github.com/dholloway/tacc/tac"
)

// operandSet is a set of Var/Temp operands, keyed by their comparable
// Go value so a Var in one scope never collides with a same-named Var
// in another.
type operandSet map[tac.Operand]bool

func (s operandSet) clone() operandSet {
	out := make(operandSet, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func (s operandSet) equal(other operandSet) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if !other[k] {
			return false
		}
	}
	return true
}

func union(a, b operandSet) operandSet {
	out := a.clone()
	for k := range b {
		out[k] = true
	}
	return out
}

// liveness holds, for the whole program's flattened instruction
// stream (globals, entry code and every function together), the set of
// operands live at entry to each instruction (liveIn) and live at
// exit (liveOut = union of successors' liveIn).
type liveness struct {
	liveIn  []operandSet
	liveOut []operandSet
}

// at returns the live set at entry to instruction i. Index
// len(instructions) (one past the end) is a valid query, returning
// the empty set, used by callers walking "current line" counters that
// may run one past the last instruction.
func (lv *liveness) at(i int) operandSet {
	if i < 0 || i >= len(lv.liveIn) {
		return operandSet{}
	}
	return lv.liveIn[i]
}

// defsUses returns the operand defined (if any) and the operands used
// by instr, following spec.md section 4.7's liveness equations:
// goto/label/if/print never define their result operand, and
// goto/label never contribute uses even when arg1/arg2 are populated.
// call/param/arg participate in the real def/use sets this backend's
// call/ret lowering needs (the original backend never reached this
// code, since it has no call/ret handling at all).
func defsUses(instr tac.Instruction) (def tac.Operand, uses []tac.Operand) {
	switch instr.Op {
	case tac.OpGoto, tac.OpLabel:
		return nil, nil
	case tac.OpIf:
		return nil, operandsOf(instr.Arg1)
	case tac.OpPrint:
		return nil, operandsOf(instr.Arg1)
	case tac.OpFuncStart, tac.OpFuncEnd:
		return nil, nil
	case tac.OpParam:
		return instr.Result, nil
	case tac.OpArg:
		return nil, operandsOf(instr.Result)
	case tac.OpCall:
		return instr.Result, nil
	case tac.OpRet:
		return nil, operandsOf(instr.Arg1)
	case tac.OpEq:
		return instr.Result, operandsOf(instr.Arg1)
	default:
		if !instr.Op.IsBinary() {
			return nil, nil
		}
		uses = append(uses, operandsOf(instr.Arg1)...)
		uses = append(uses, operandsOf(instr.Arg2)...)
		return instr.Result, uses
	}
}

func operandsOf(op tac.Operand) []tac.Operand {
	if isVarOrTemp(op) {
		return []tac.Operand{op}
	}
	return nil
}

func isVarOrTemp(op tac.Operand) bool {
	switch op.(type) {
	case tac.Var, tac.Temp:
		return true
	default:
		return false
	}
}

func isDefinable(op tac.Operand) bool {
	return isVarOrTemp(op)
}

// analyzeLiveness computes live-in/live-out sets for instructions to a
// fixed point over the instruction stream's control-flow graph (linked by
// fall-through, goto, and if edges) — closing spec.md section 9's
// first open question, which flags the original's purely linear,
// non-jump-following liveness scan as an approximation that
// under-counts live-in across loop back-edges.
func analyzeLiveness(instructions []tac.Instruction) *liveness {
	n := len(instructions)
	lv := &liveness{
		liveIn:  make([]operandSet, n),
		liveOut: make([]operandSet, n),
	}
	for i := range instructions {
		lv.liveIn[i] = operandSet{}
		lv.liveOut[i] = operandSet{}
	}
	if n == 0 {
		return lv
	}

	labelIndex := make(map[string]int)
	for i, instr := range instructions {
		if instr.Op == tac.OpLabel {
			labelIndex[instr.Label] = i
		}
	}

	successors := func(i int) []int {
		instr := instructions[i]
		switch instr.Op {
		case tac.OpGoto:
			if target, ok := labelIndex[instr.Label]; ok {
				return []int{target}
			}
			return nil
		case tac.OpIf:
			var succ []int
			if target, ok := labelIndex[instr.Label]; ok {
				succ = append(succ, target)
			}
			if i+1 < n {
				succ = append(succ, i+1)
			}
			return succ
		default:
			if i+1 < n {
				return []int{i + 1}
			}
			return nil
		}
	}

	defs := make([]tac.Operand, n)
	uses := make([][]tac.Operand, n)
	for i, instr := range instructions {
		d, u := defsUses(instr)
		defs[i] = d
		uses[i] = u
	}

	changed := true
	for changed {
		changed = false
		for i := n - 1; i >= 0; i-- {
			out := operandSet{}
			for _, s := range successors(i) {
				out = union(out, lv.liveIn[s])
			}

			in := out.clone()
			if isDefinable(defs[i]) {
				delete(in, defs[i])
			}
			for _, u := range uses[i] {
				in[u] = true
			}

			if !in.equal(lv.liveIn[i]) || !out.equal(lv.liveOut[i]) {
				changed = true
			}
			lv.liveIn[i] = in
			lv.liveOut[i] = out
		}
	}

	trimToFirstUse(instructions, lv)
	return lv
}

// trimToFirstUse discards a Temp's liveness before its single
// defining use, matching the original's first-use trim (Temps are
// single-assignment by construction, so any live-in entry before the
// def site is a dataflow-join artifact of the CFG walk, not a real
// use).
func trimToFirstUse(instructions []tac.Instruction, lv *liveness) {
	firstDef := make(map[tac.Temp]int)
	for i, instr := range instructions {
		if t, ok := instr.Result.(tac.Temp); ok {
			if _, seen := firstDef[t]; !seen {
				firstDef[t] = i
			}
		}
	}
	for t, defIdx := range firstDef {
		for i := 0; i < defIdx; i++ {
			delete(lv.liveIn[i], t)
			delete(lv.liveOut[i], t)
		}
	}
}
