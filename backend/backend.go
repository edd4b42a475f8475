// Package backend lowers optimized three-address code into 32-bit x86
// NASM assembly, per spec.md section 4.7: a register/address
// descriptor allocator, a shared program-wide stack frame for locals
// and temporaries, and per-opcode emission rules, terminated by the
// exit syscall and the linked runtime's text. Grounded on
// original_source/src/backend/X86Backend.py, generalized to close
// spec.md section 9's three open questions: liveness is computed to a
// fixed point over a control-flow graph rather than linearly
// (liveness.go), print's register save/restore is made symmetric, and
// call/ret TAC is actually lowered to x86 call/ret instead of being
// silently skipped.
package backend

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dholloway/tacc/symbols"
	"github.com/dholloway/tacc/tac"
	"github.com/dholloway/tacc/types"
)

// Backend holds all allocator state for one Generate call. A fresh
// Backend is created per compile; nothing is reused across programs.
type Backend struct {
	log *logrus.Logger

	data strings.Builder
	bss  strings.Builder
	text strings.Builder

	desc     *descriptors
	frame    *stackFrame
	liveness *liveness

	flat    []tac.Instruction
	counter int

	functions   map[string]*tac.Function
	pendingArgs []tac.Operand
}

// New creates a Backend. log may be nil, in which case a disabled
// logger is used.
func New(log *logrus.Logger) *Backend {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &Backend{log: log, desc: newDescriptors()}
}

// Generate lowers prog into a complete NASM source listing, with
// runtimeAsm's `.data`/`.bss`/`.text` sections folded into the
// corresponding output sections, per spec.md section 4.7's
// termination rule.
func Generate(prog *tac.Program, runtimeAsm string, log *logrus.Logger) (string, error) {
	return New(log).Generate(prog, runtimeAsm)
}

func (b *Backend) Generate(prog *tac.Program, runtimeAsm string) (string, error) {
	b.flat = flattenProgram(prog)
	b.functions = make(map[string]*tac.Function, len(prog.Functions))
	for i := range prog.Functions {
		b.functions[prog.Functions[i].Name] = &prog.Functions[i]
	}

	b.liveness = analyzeLiveness(b.flat)
	b.frame = buildStackFrame(b.flat, b.liveness)

	b.log.Debugf("backend: %d instructions, frame size %d bytes", len(b.flat), b.frame.bytes())

	b.text.WriteString("section .text\nglobal _start\n_start:\n")
	fmt.Fprintf(&b.text, "push ebp\nmov ebp, esp\nsub esp, %d\n", b.frame.bytes())

	epilogueEmitted := false
	for i, instr := range b.flat {
		b.counter = i
		if instr.Op == tac.OpFuncStart && !epilogueEmitted {
			b.emitExitEpilogue()
			epilogueEmitted = true
		}
		b.dispatch(instr)
	}
	if !epilogueEmitted {
		b.emitExitEpilogue()
	}

	dataText, bssText, textText := splitRuntimeSections(runtimeAsm)

	b.data.WriteString(dataText)
	b.bss.WriteString(bssText)
	b.text.WriteString(textText)

	var out strings.Builder
	out.WriteString("section .data\n")
	out.WriteString(b.data.String())
	out.WriteString("section .bss\n")
	out.WriteString(b.bss.String())
	out.WriteString(b.text.String())
	return out.String(), nil
}

func onlyGlobalsAndEntry(flat []tac.Instruction) bool {
	for _, instr := range flat {
		if instr.Op == tac.OpFuncStart {
			return false
		}
	}
	return true
}

func (b *Backend) emitExitEpilogue() {
	b.text.WriteString("mov eax, 1\nxor ebx, ebx\nint 0x80\n")
}

// flattenProgram reassembles the generator's split Program back into
// the single flat stream the original's liveness analysis and stack
// frame sizing run over (self.TAC.instructions, spanning the whole
// program): global defs, the implicit entry function's body, then
// every declared function wrapped back in its func_start/func_end
// markers (tac.Split strips those markers out of Function.Instructions,
// so they're reattached here to keep the combined stream faithful to
// what Split consumed).
func flattenProgram(prog *tac.Program) []tac.Instruction {
	var flat []tac.Instruction
	flat = append(flat, prog.Globals...)
	flat = append(flat, prog.Entry.Instructions...)
	for _, fn := range prog.Functions {
		flat = append(flat, tac.Instruction{Op: tac.OpFuncStart, Name: fn.Name})
		flat = append(flat, fn.Instructions...)
		flat = append(flat, tac.Instruction{Op: tac.OpFuncEnd, Name: fn.Name})
	}
	return flat
}

func (b *Backend) dispatch(instr tac.Instruction) {
	switch {
	case instr.Op == tac.OpDef:
		b.handleDef(instr)
	case instr.Op == tac.OpEq:
		b.handleEq(instr)
	case instr.Op == tac.OpAdd, instr.Op == tac.OpSub, instr.Op == tac.OpMul,
		instr.Op == tac.OpDiv, instr.Op == tac.OpAnd, instr.Op == tac.OpOr:
		b.handleBinaryOp(instr)
	case instr.Op == tac.OpLt, instr.Op == tac.OpGt, instr.Op == tac.OpLe,
		instr.Op == tac.OpGe, instr.Op == tac.OpEqEq, instr.Op == tac.OpNe:
		b.handleComparison(instr)
	case instr.Op == tac.OpGoto:
		b.handleGoto(instr)
	case instr.Op == tac.OpIf:
		b.handleIf(instr)
	case instr.Op == tac.OpLabel:
		b.handleLabel(instr)
	case instr.Op == tac.OpPrint:
		b.handlePrint(instr)
	case instr.Op == tac.OpFuncStart:
		b.handleFuncStart(instr)
	case instr.Op == tac.OpFuncEnd:
		// no epilogue: every path out of a function body ends in an
		// explicit ret (handleRet), and the shared frame has no
		// per-function prologue to unwind.
	case instr.Op == tac.OpParam:
		b.handleParam(instr)
	case instr.Op == tac.OpArg:
		b.handleArg(instr)
	case instr.Op == tac.OpCall:
		b.handleCall(instr)
	case instr.Op == tac.OpRet:
		b.handleRet(instr)
	default:
		b.log.Panicf("backend: unreachable opcode %q", instr.Op)
	}
}

// homeAddress returns op's fixed, program-lifetime memory location: a
// `.data` symbol reference for a global Var, or its assigned stack
// slot for a local Var/Temp.
func (b *Backend) homeAddress(op tac.Operand) string {
	switch v := op.(type) {
	case tac.Var:
		if v.Storage == symbols.Global {
			return fmt.Sprintf("[%s]", v.Name)
		}
		addr, ok := b.frame.location(v)
		if !ok {
			b.log.Panicf("backend: local var %s was never assigned a stack slot", v)
		}
		return addr
	case tac.Temp:
		addr, ok := b.frame.location(v)
		if !ok {
			b.log.Panicf("backend: temp %s was never assigned a stack slot", v)
		}
		return addr
	default:
		b.log.Panicf("backend: operand %v has no home address", op)
		return ""
	}
}

func (b *Backend) handleDef(instr tac.Instruction) {
	result := instr.Result.(tac.Var)
	decl, size := typeSpecifiers(result.Type)

	if result.Storage == symbols.Global {
		if instr.Arg1 != nil {
			fmt.Fprintf(&b.data, "%s %s %d\n", result.Name, decl, instr.Arg1.(tac.Const).Value)
		} else {
			fmt.Fprintf(&b.data, "%s %s 0\n", result.Name, decl)
		}
		return
	}

	if instr.Arg1 == nil {
		return
	}
	home, ok := b.frame.location(result)
	if !ok {
		// Never live anywhere the analysis saw: no slot, nothing to
		// initialize.
		return
	}
	fmt.Fprintf(&b.text, "mov %s %s, %d\n", size, home, instr.Arg1.(tac.Const).Value)
	b.desc.setHome(result, home)
}

func (b *Backend) handleEq(instr tac.Instruction) {
	result := instr.Result.(tac.Var)
	_, size := typeSpecifiers(result.Type)
	location := b.homeAddress(result)

	switch arg := instr.Arg1.(type) {
	case tac.Const:
		fmt.Fprintf(&b.text, "mov %s %s, %d\n", size, location, arg.Value)
	default:
		reg := b.getRegister(instr.Arg1)
		regPart := registerPart(reg, size)
		fmt.Fprintf(&b.text, "mov %s %s, %s\n", size, location, regPart)
	}
	b.desc.setHome(result, location)
}

func (b *Backend) handleBinaryOp(instr tac.Instruction) {
	firstRegister := b.getRegister(instr.Arg1)
	if _, isConst := instr.Arg1.(tac.Const); !isConst {
		life := b.whenWillItDie(instr.Arg1) - b.counter
		if life != 0 {
			home := b.homeAddress(instr.Arg1)
			fmt.Fprintf(&b.text, "mov %s, %s\n", home, firstRegister)
			b.desc.setHome(instr.Arg1, home)
		}
	}

	var secondOperand string
	if c, ok := instr.Arg2.(tac.Const); ok {
		secondOperand = fmt.Sprintf("%d", c.Value)
	} else if addr, ok := b.desc.locationOf(instr.Arg2); ok {
		secondOperand = addr
	} else {
		secondOperand = b.getRegister(instr.Arg2)
	}

	switch instr.Op {
	case tac.OpAdd:
		fmt.Fprintf(&b.text, "add %s, %s\n", firstRegister, secondOperand)
	case tac.OpSub:
		fmt.Fprintf(&b.text, "sub %s, %s\n", firstRegister, secondOperand)
	case tac.OpMul:
		fmt.Fprintf(&b.text, "imul %s, %s\n", firstRegister, secondOperand)
	case tac.OpDiv:
		b.lowerDivision(firstRegister, secondOperand, func(reg string) bool {
			holder := b.desc.holderOf(reg)
			return holder != nil && b.liveness.at(b.counter + 1)[holder]
		})
	case tac.OpAnd:
		fmt.Fprintf(&b.text, "and %s, %s\n", firstRegister, secondOperand)
	case tac.OpOr:
		fmt.Fprintf(&b.text, "or %s, %s\n", firstRegister, secondOperand)
	default:
		b.log.Panicf("backend: unreachable binary opcode %q", instr.Op)
	}

	b.desc.bind(firstRegister, instr.Result)
}

func (b *Backend) handleComparison(instr tac.Instruction) {
	firstRegister := b.getRegister(instr.Arg1)

	var secondOperand string
	if c, ok := instr.Arg2.(tac.Const); ok {
		secondOperand = fmt.Sprintf("%d", c.Value)
	} else {
		secondOperand = b.getRegister(instr.Arg2)
	}

	resultRegister := b.getRegister(instr.Result)
	resultPart := registerPart(resultRegister, "byte")
	fmt.Fprintf(&b.text, "xor %s, %s\n", resultRegister, resultRegister)
	fmt.Fprintf(&b.text, "cmp %s, %s\n", firstRegister, secondOperand)

	switch instr.Op {
	case tac.OpLt:
		fmt.Fprintf(&b.text, "setl %s\n", resultPart)
	case tac.OpLe:
		fmt.Fprintf(&b.text, "setle %s\n", resultPart)
	case tac.OpGt:
		fmt.Fprintf(&b.text, "setg %s\n", resultPart)
	case tac.OpGe:
		fmt.Fprintf(&b.text, "setge %s\n", resultPart)
	case tac.OpEqEq:
		fmt.Fprintf(&b.text, "sete %s\n", resultPart)
	case tac.OpNe:
		fmt.Fprintf(&b.text, "setne %s\n", resultPart)
	default:
		b.log.Panicf("backend: unreachable comparison opcode %q", instr.Op)
	}

	b.desc.bind(resultRegister, instr.Result)
}

func (b *Backend) handleGoto(instr tac.Instruction) {
	fmt.Fprintf(&b.text, "jmp %s\n", instr.Label)
}

func (b *Backend) handleIf(instr tac.Instruction) {
	var reg string
	if c, ok := instr.Arg1.(tac.Const); ok {
		fmt.Fprintf(&b.text, "mov edi, %d\n", c.Value)
		reg = "edi"
	} else {
		reg = b.getRegister(instr.Arg1)
	}
	fmt.Fprintf(&b.text, "cmp %s, 0\n", reg)
	fmt.Fprintf(&b.text, "jne %s\n", instr.Label)
}

func (b *Backend) handleLabel(instr tac.Instruction) {
	fmt.Fprintf(&b.text, "%s:\n", instr.Label)
}

// handlePrint saves and restores every caller-save register holding a
// live operand around both the print call and the newline syscall,
// symmetrically — spec.md section 9's second open question flags the
// original's bookkeeping here as inconsistent (some paths push a
// register without ever marking it for a matching pop).
func (b *Backend) handlePrint(instr tac.Instruction) {
	live := b.liveness.at(b.counter)

	saveLive := func() []string {
		var saved []string
		for _, r := range registers {
			if holder := b.desc.holderOf(r); holder != nil && live[holder] {
				fmt.Fprintf(&b.text, "push %s\n", r)
				saved = append(saved, r)
			}
		}
		return saved
	}
	restoreLive := func(saved []string) {
		for i := len(saved) - 1; i >= 0; i-- {
			fmt.Fprintf(&b.text, "pop %s\n", saved[i])
		}
	}

	saved := saveLive()

	var argType types.Type
	if c, ok := instr.Arg1.(tac.Const); ok {
		fmt.Fprintf(&b.text, "mov eax, %d\n", c.Value)
		argType = c.Type
	} else {
		reg := b.getRegister(instr.Arg1)
		if reg != "eax" {
			fmt.Fprintf(&b.text, "mov eax, %s\n", reg)
		}
		argType = instr.Arg1.OperandType()
	}

	if argType == types.Bool {
		b.text.WriteString("call print_boolean\n")
	} else {
		b.text.WriteString("call print_integer\n")
	}

	restoreLive(saved)

	newlineSaved := saveLive()
	b.text.WriteString("mov eax, 4\nmov ebx, 1\nmov ecx, newline\nmov edx, 1\nint 0x80\n")
	restoreLive(newlineSaved)

	for _, r := range registers {
		if holder := b.desc.holderOf(r); holder != nil && !live[holder] {
			b.desc.free(r)
		}
	}
}

func (b *Backend) handleFuncStart(instr tac.Instruction) {
	fmt.Fprintf(&b.text, "%s:\n", instr.Name)
}

func (b *Backend) handleParam(instr tac.Instruction) {
	home := b.homeAddress(instr.Result)
	b.desc.setHome(instr.Result, home)
}

func (b *Backend) handleArg(instr tac.Instruction) {
	b.pendingArgs = append(b.pendingArgs, instr.Result)
}

// handleCall lowers a call/argc TAC instruction to a real x86 `call`,
// closing spec.md section 9's third open question (the original emits
// call/arg/param/ret TAC but its backend has no dispatch case for any
// of them, so calls silently became no-ops). Arguments are written
// directly into the callee's parameter slots in the shared frame
// before the call; every register holding a value still needed after
// the call is spilled first, since the callee is free to clobber all
// four general-purpose registers.
func (b *Backend) handleCall(instr tac.Instruction) {
	callee, ok := b.functions[instr.Name]
	if !ok {
		b.log.Panicf("backend: call to undefined function %q", instr.Name)
	}

	args := make([]tac.Operand, len(b.pendingArgs))
	for i, a := range b.pendingArgs {
		args[len(b.pendingArgs)-1-i] = a
	}
	b.pendingArgs = nil

	for i, arg := range args {
		if i >= len(callee.Params) {
			b.log.Panicf("backend: call to %q passes more arguments than it declares", instr.Name)
		}
		param := callee.Params[i]
		home := b.homeAddress(param)
		_, size := typeSpecifiers(param.Type)
		if c, ok := arg.(tac.Const); ok {
			fmt.Fprintf(&b.text, "mov %s %s, %d\n", size, home, c.Value)
			continue
		}
		reg := b.getRegister(arg)
		regPart := registerPart(reg, size)
		fmt.Fprintf(&b.text, "mov %s %s, %s\n", size, home, regPart)
	}

	afterCall := b.liveness.at(b.counter + 1)
	for _, r := range registers {
		holder := b.desc.holderOf(r)
		if holder == nil {
			continue
		}
		if afterCall[holder] {
			home := b.homeAddress(holder)
			fmt.Fprintf(&b.text, "mov %s, %s\n", home, r)
			b.desc.setHome(holder, home)
		}
		b.desc.free(r)
	}

	fmt.Fprintf(&b.text, "call %s\n", instr.Name)

	// A result that is never used (the entry's `call main`, a call made
	// only for its effect) is never live and so has no stack slot; it
	// stays in eax only.
	result := instr.Result.(tac.Temp)
	if home, ok := b.frame.location(result); ok {
		_, size := typeSpecifiers(result.Type)
		fmt.Fprintf(&b.text, "mov %s %s, %s\n", size, home, registerPart("eax", size))
	}
	b.desc.bind("eax", result)
}

func (b *Backend) handleRet(instr tac.Instruction) {
	if c, ok := instr.Arg1.(tac.Const); ok {
		fmt.Fprintf(&b.text, "mov eax, %d\n", c.Value)
	} else {
		reg := b.getRegister(instr.Arg1)
		if reg != "eax" {
			fmt.Fprintf(&b.text, "mov eax, %s\n", reg)
		}
	}
	b.text.WriteString("ret\n")
}

// getRegister is the allocator's core policy, spec.md section 4.7: if
// op is already resident in a register, return it; else prefer a free
// register; else reuse a register whose holder is not live at the
// current instruction without spilling; else spill a register holding
// a global Var; else spill the first register.
func (b *Backend) getRegister(op tac.Operand) string {
	if addr, ok := b.desc.locationOf(op); ok && isRegisterName(addr) {
		return addr
	}

	for _, r := range registers {
		if b.desc.holderOf(r) == nil {
			b.loadOperandIntoRegister(op, r)
			return r
		}
	}

	reg, shouldSpill := b.findRegToFree()
	if shouldSpill {
		b.spillRegister(reg)
	}
	b.loadOperandIntoRegister(op, reg)
	return reg
}

func (b *Backend) findRegToFree() (string, bool) {
	live := b.liveness.at(b.counter)
	for _, r := range registers {
		holder := b.desc.holderOf(r)
		if holder == nil || !live[holder] {
			return r, false
		}
	}
	for _, r := range registers {
		if v, ok := b.desc.holderOf(r).(tac.Var); ok && v.Storage == symbols.Global {
			return r, true
		}
	}
	return registers[0], true
}

func (b *Backend) spillRegister(reg string) {
	operand := b.desc.holderOf(reg)
	_, size := typeSpecifiers(operand.OperandType())
	regPart := registerPart(reg, size)
	home := b.homeAddress(operand)
	fmt.Fprintf(&b.text, "mov %s %s, %s\n", size, home, regPart)
	b.desc.setHome(operand, home)
}

func (b *Backend) loadOperandIntoRegister(op tac.Operand, reg string) {
	if c, ok := op.(tac.Const); ok {
		fmt.Fprintf(&b.text, "mov %s, %d\n", reg, c.Value)
		b.desc.bind(reg, op)
		return
	}
	_, size := typeSpecifiers(op.OperandType())
	home := b.homeAddress(op)
	mnemonic := "mov"
	if op.OperandType() == types.Bool {
		mnemonic = "movzx"
	}
	fmt.Fprintf(&b.text, "%s %s, %s %s\n", mnemonic, reg, size, home)
	b.desc.bind(reg, op)
}

// whenWillItDie returns the last instruction index at which op is
// still live, scanning forward from the current instruction.
func (b *Backend) whenWillItDie(op tac.Operand) int {
	for i := b.counter; i < len(b.flat); i++ {
		if !b.liveness.at(i)[op] {
			return i - 1
		}
	}
	return len(b.flat)
}

// splitRuntimeSections partitions a NASM source listing into its
// `.data`/`.bss`/`.text` bodies by section directive, so the runtime's
// code can be folded into the backend's own output sections — spec.md
// section 4.7's termination rule.
func splitRuntimeSections(asm string) (data, bss, text string) {
	var dataLines, bssLines, textLines []string
	current := &textLines

	for _, line := range strings.Split(asm, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "section .data"):
			current = &dataLines
			continue
		case strings.HasPrefix(trimmed, "section .bss"):
			current = &bssLines
			continue
		case strings.HasPrefix(trimmed, "section .text"):
			current = &textLines
			continue
		}
		*current = append(*current, trimmed)
	}

	join := func(lines []string) string {
		if len(lines) == 0 {
			return ""
		}
		return strings.Join(lines, "\n") + "\n"
	}
	return join(dataLines), join(bssLines), join(textLines)
}
