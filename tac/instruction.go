package tac

import (
	"fmt"
	"strings"
)

// Opcode names an instruction's operation. Binary arithmetic,
// relational, and logical opcodes reuse the source operator's own
// spelling (e.g. "+", "<", "&"), matching the original generator.
type Opcode string

const (
	OpDef       Opcode = "def"
	OpEq        Opcode = "eq"
	OpIf        Opcode = "if"
	OpGoto      Opcode = "goto"
	OpLabel     Opcode = "label"
	OpPrint     Opcode = "print"
	OpFuncStart Opcode = "func_start"
	OpFuncEnd   Opcode = "func_end"
	OpParam     Opcode = "param"
	OpArg       Opcode = "arg"
	OpCall      Opcode = "call"
	OpRet       Opcode = "ret"

	OpAdd Opcode = "+"
	OpSub Opcode = "-"
	OpMul Opcode = "*"
	OpDiv Opcode = "/"

	OpLt Opcode = "<"
	OpGt Opcode = ">"
	OpEqEq Opcode = "=="
	OpLe Opcode = "<="
	OpGe Opcode = ">="
	OpNe Opcode = "!="
	OpAnd Opcode = "&"
	OpOr  Opcode = "|"
)

// IsBinary reports whether op takes two operand arguments and
// produces a fresh Temp result, per spec.md section 4.5's "binary ops
// produce (op, arg1, arg2, result=Temp)" rule.
func (op Opcode) IsBinary() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpLt, OpGt, OpEqEq, OpLe, OpGe, OpNe, OpAnd, OpOr:
		return true
	default:
		return false
	}
}

// Instruction is one three-address-code instruction: an opcode and up
// to two argument operands plus a result. Which fields are populated
// depends on the opcode; label/goto targets and function names are
// carried as plain strings in Label/Name rather than forced
// into the Operand variant, since they never participate in the
// descriptor maps the backend builds over Var/Temp/Const.
type Instruction struct {
	Op     Opcode
	Arg1   Operand
	Arg2   Operand
	Result Operand

	// Label names a jump target for OpLabel/OpGoto/OpIf.
	Label string
	// Name carries a function name for OpFuncStart/OpFuncEnd/OpCall.
	Name string
	// Argc carries a call's argument count for OpCall.
	Argc int
}

func (i Instruction) String() string {
	var parts []string
	parts = append(parts, string(i.Op))
	if i.Name != "" {
		parts = append(parts, i.Name)
	}
	if i.Label != "" {
		parts = append(parts, i.Label)
	}
	if i.Arg1 != nil {
		parts = append(parts, i.Arg1.String())
	}
	if i.Arg2 != nil {
		parts = append(parts, i.Arg2.String())
	}
	if i.Op == OpCall {
		parts = append(parts, fmt.Sprintf("argc=%d", i.Argc))
	}
	if i.Result != nil {
		parts = append(parts, i.Result.String())
	}
	return strings.Join(parts, " ")
}

// Function is one function's TAC body: its name, its parameters (in
// declaration order, already annotated with storage/scope by the
// analyzer), and its instructions.
type Function struct {
	Name         string
	Params       []Var
	Instructions []Instruction
}

// Program is the generator's output: the implicit entry function's
// body, every explicitly declared function, and the global variable
// definitions collected out of the instruction stream — see spec.md
// section 4.5's "partitions the instruction list into per-function
// subsequences and a list of global defs" and DESIGN.md's note on the
// implicit entry function this repo adds.
type Program struct {
	Entry     Function
	Functions []Function
	Globals   []Instruction
}
