package backend

import (
	"fmt"
	"sort"

	"github.com/dholloway/tacc/symbols"
	"github.com/dholloway/tacc/tac"
	"github.com/dholloway/tacc/types"
)

// homesLocal returns true for operands that live in the shared stack
// frame rather than a .data symbol: every Temp (single-assignment
// intermediates) and every Var whose storage class is local or param.
// Params are included here, beyond the original's stack_map (which
// only ever held locals and temps, since it never lowered calls at
// all): a parameter's value has to live somewhere the caller can write
// it before a real `call`, and the shared frame is that place.
func homesLocal(op tac.Operand) bool {
	switch v := op.(type) {
	case tac.Temp:
		return true
	case tac.Var:
		return v.Storage != symbols.Global
	default:
		return false
	}
}

// stackFrame assigns every stack-resident operand a fixed `[ebp -
// N]` slot, sized once for the whole program (spec.md section 4.7's
// single "push ebp / mov ebp, esp / sub esp, max_count*max_var_size"
// prologue) rather than per function — functions never execute
// concurrently (no recursion, strictly sequential call/return), so one
// shared slot pool sized to the program-wide peak of concurrently live
// locals/temps is sufficient and matches the spec's literal framing of
// one prologue per program.
type stackFrame struct {
	slot     map[tac.Operand]string
	slotSize int
	maxCount int
}

// buildStackFrame computes, from a single combined liveness analysis
// over the whole program's flattened instruction stream, the maximum
// number of stack-resident operands simultaneously live at any point,
// then assigns slots via a free list driven by each operand's
// lifetime — grounded on
// X86Backend.get_max_alive_temp_and_local_vars / set_local_and_tempvar_addresses.
func buildStackFrame(flat []tac.Instruction, lv *liveness) *stackFrame {
	maxCount := 0
	slotSize := 0
	for i := range flat {
		count := 0
		for op := range lv.at(i) {
			if homesLocal(op) {
				count++
				if sz := operandSlotSize(op); sz > slotSize {
					slotSize = sz
				}
			}
		}
		if count > maxCount {
			maxCount = count
		}
	}
	if slotSize == 0 {
		slotSize = 4
	}

	var freeSlots []string
	for i := 0; i < maxCount; i++ {
		freeSlots = append(freeSlots, fmt.Sprintf("[ebp - %d]", i*slotSize))
	}

	frame := &stackFrame{slot: make(map[tac.Operand]string), slotSize: slotSize, maxCount: maxCount}
	n := len(flat)
	for i := 0; i < n; i++ {
		var prev operandSet
		if i > 0 {
			prev = lv.at(i - 1)
		} else {
			prev = operandSet{}
		}
		for _, op := range sortedHomedOperands(prev) {
			if _, stillLive := lv.at(i)[op]; !stillLive {
				if addr, ok := frame.slot[op]; ok {
					freeSlots = append(freeSlots, addr)
				}
			}
		}
		for _, op := range sortedHomedOperands(lv.at(i)) {
			if _, assigned := frame.slot[op]; !assigned && len(freeSlots) > 0 {
				frame.slot[op] = freeSlots[0]
				freeSlots = freeSlots[1:]
			}
		}
	}

	// Every declared parameter needs a slot even if the analysis never
	// finds it live (an unused parameter), since the caller still has
	// to write its argument value somewhere before `call`.
	for i := range flat {
		if flat[i].Op == tac.OpParam {
			if _, ok := frame.slot[flat[i].Result]; !ok {
				if len(freeSlots) > 0 {
					frame.slot[flat[i].Result] = freeSlots[0]
					freeSlots = freeSlots[1:]
				} else {
					frame.slot[flat[i].Result] = fmt.Sprintf("[ebp - %d]", frame.maxCount*frame.slotSize)
					frame.maxCount++
				}
			}
		}
	}

	return frame
}

// sortedHomedOperands returns the stack-resident members of set in a
// deterministic order (by their String() form), so that two operands
// becoming live at the same instruction always race for freeSlots in
// the same order across runs. Without this, ranging over the map
// directly assigns `[ebp - N]` slots in whatever order Go's map
// iteration happens to pick, and any program with two such operands
// (for example two locals whose definitions reach the same first
// instruction) would emit a different frame layout from run to run,
// violating spec.md section 5's reproducibility requirement.
func sortedHomedOperands(set operandSet) []tac.Operand {
	var ops []tac.Operand
	for op := range set {
		if homesLocal(op) {
			ops = append(ops, op)
		}
	}
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].String() < ops[j].String()
	})
	return ops
}

func operandSlotSize(op tac.Operand) int {
	switch op.OperandType() {
	case types.Int:
		return 4
	case types.Bool:
		return 4
	default:
		return 4
	}
}

func (f *stackFrame) location(op tac.Operand) (string, bool) {
	addr, ok := f.slot[op]
	return addr, ok
}

// bytes returns the total size of the reserved stack frame in bytes,
// for the `sub esp, N` prologue.
func (f *stackFrame) bytes() int {
	return f.maxCount * f.slotSize
}
