package backend

import (
	"fmt"

	"github.com/dholloway/tacc/tac"
	"github.com/dholloway/tacc/types"
)

// registers lists the general-purpose registers the allocator rotates
// through; edi is reserved as a scratch register for division staging
// and constant if/goto conditions, never entered into the descriptor
// maps.
var registers = []string{"eax", "ebx", "ecx", "edx"}

// descriptors tracks the register/address descriptor model of
// spec.md section 4.7: register_descriptor[r] names the operand
// currently held in r (or nil), and address_descriptor[op] names
// op's current home, either a register name or a memory address
// string. The invariant address_descriptor[op] == r iff
// register_descriptor[r] == op is maintained by every mutating method
// below rather than left to callers.
type descriptors struct {
	registerOf map[string]tac.Operand
	addressOf  map[tac.Operand]string
}

func newDescriptors() *descriptors {
	d := &descriptors{
		registerOf: make(map[string]tac.Operand),
		addressOf:  make(map[tac.Operand]string),
	}
	return d
}

func isRegisterName(s string) bool {
	for _, r := range registers {
		if r == s {
			return true
		}
	}
	return false
}

// bind records that op now lives in register reg, evicting whatever
// addressOf entry previously pointed at reg.
func (d *descriptors) bind(reg string, op tac.Operand) {
	if prev, ok := d.registerOf[reg]; ok && prev != nil {
		if d.addressOf[prev] == reg {
			delete(d.addressOf, prev)
		}
	}
	d.registerOf[reg] = op
	d.addressOf[op] = reg
}

// free clears reg's holder without writing anything back (used after
// a spill already wrote the value home, and when a register's holder
// dies and needs no write-back at all).
func (d *descriptors) free(reg string) {
	if op, ok := d.registerOf[reg]; ok && op != nil {
		if d.addressOf[op] == reg {
			delete(d.addressOf, op)
		}
	}
	delete(d.registerOf, reg)
}

// setHome records op's home memory address directly, used by def/eq
// handlers that write straight to memory without going through a
// register.
func (d *descriptors) setHome(op tac.Operand, address string) {
	d.addressOf[op] = address
}

func (d *descriptors) locationOf(op tac.Operand) (string, bool) {
	addr, ok := d.addressOf[op]
	return addr, ok
}

func (d *descriptors) holderOf(reg string) tac.Operand {
	return d.registerOf[reg]
}

// typeSpecifiers returns the NASM data-declaration keyword and size
// specifier for a type, per spec.md section 4.7: "dd"/"dword" for
// int, "db"/"byte" for bool.
func typeSpecifiers(t types.Type) (declare, size string) {
	switch t {
	case types.Int:
		return "dd", "dword"
	case types.Bool:
		return "db", "byte"
	default:
		panic(fmt.Sprintf("backend: unknown type %q", t))
	}
}

// registerPart returns the register name sized to fit size, e.g. the
// byte-wide alias of a dword register for boolean operands.
func registerPart(reg, size string) string {
	if size == "dword" {
		return reg
	}
	switch reg {
	case "eax":
		return "al"
	case "ebx":
		return "bl"
	case "ecx":
		return "cl"
	case "edx":
		return "dl"
	}
	panic(fmt.Sprintf("backend: cannot take byte part of register %q", reg))
}
