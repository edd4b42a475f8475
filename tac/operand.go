// Package tac implements the three-address-code intermediate
// representation of spec.md section 3/4.5: typed operands, opcodes,
// and the AST-to-TAC generator.
package tac

import (
	"fmt"

	"github.com/dholloway/tacc/symbols"
	"github.com/dholloway/tacc/types"
)

// Operand is the variant Const | Var | Temp.
type Operand interface {
	operand()
	fmt.Stringer
	OperandType() types.Type
}

// Const is a compile-time-known integer or boolean value (booleans
// already lowered to 0/1 per spec.md section 4.5).
type Const struct {
	Value int
	Type  types.Type
}

func (Const) operand()                {}
func (c Const) OperandType() types.Type { return c.Type }
func (c Const) String() string        { return fmt.Sprintf("%d (%s)", c.Value, c.Type) }

// Var is a named variable, keyed by (name, scope) so that two
// same-named locals in different scopes never collide.
type Var struct {
	Name    string
	Type    types.Type
	Storage symbols.StorageClass
	ScopeID int
}

func (Var) operand()                {}
func (v Var) OperandType() types.Type { return v.Type }
func (v Var) String() string {
	if v.Storage == symbols.Global {
		return fmt.Sprintf("%s (%s, %s)", v.Name, v.Type, v.Storage)
	}
	return fmt.Sprintf("%s_s%d (%s, %s)", v.Name, v.ScopeID, v.Type, v.Storage)
}

// Temp is a generator-minted temporary; by construction it has
// exactly one defining instruction (single static assignment).
type Temp struct {
	ID   int
	Type types.Type
}

func (Temp) operand()                {}
func (t Temp) OperandType() types.Type { return t.Type }
func (t Temp) String() string        { return fmt.Sprintf("t%d (%s)", t.ID, t.Type) }
