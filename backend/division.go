package backend

import "fmt"

// lowerDivision emits the idiv sequence for first / second, selecting
// from a decision table keyed by which of eax/edx (if any) each
// operand already occupies, staging through edi as scratch and
// save/restoring eax/edx with push/pop only when a register holds a
// value that must survive the division — grounded 1:1 on
// X86Backend.handle_division's seven branches. holds(reg) reports
// whether reg currently holds some live operand (so its prior value
// must be preserved across the sequence).
func (b *Backend) lowerDivision(first, second string, holds func(reg string) bool) {
	text := &b.text
	switch {
	case first == "eax" && second == "edx":
		fmt.Fprint(text, "mov edi, edx\n")
		fmt.Fprint(text, "cdq\n")
		fmt.Fprint(text, "idiv edi\n")
		fmt.Fprint(text, "mov edx, edi\n")

	case first == "edx" && second == "eax":
		fmt.Fprint(text, "mov edi, eax\n")
		fmt.Fprint(text, "mov eax, edx\n")
		fmt.Fprint(text, "cdq\n")
		fmt.Fprint(text, "idiv edi\n")
		fmt.Fprint(text, "mov edx, eax\n")
		fmt.Fprint(text, "mov eax, edi\n")

	case first == "eax":
		edxPushed := holds("edx")
		if edxPushed {
			fmt.Fprint(text, "push edx\n")
		}
		fmt.Fprint(text, "cdq\n")
		fmt.Fprintf(text, "idiv %s\n", second)
		if edxPushed {
			fmt.Fprint(text, "pop edx\n")
		}

	case second == "eax":
		edxPushed := holds("edx")
		if edxPushed {
			fmt.Fprint(text, "push edx\n")
		}
		fmt.Fprint(text, "mov edi, eax\n")
		fmt.Fprintf(text, "mov eax, %s\n", first)
		fmt.Fprint(text, "cdq\n")
		fmt.Fprint(text, "idiv edi\n")
		fmt.Fprintf(text, "mov %s, eax\n", first)
		fmt.Fprint(text, "mov eax, edi\n")
		if edxPushed {
			fmt.Fprint(text, "pop edx\n")
		}

	case first == "edx":
		eaxPushed := holds("eax")
		if eaxPushed {
			fmt.Fprint(text, "push eax\n")
		}
		fmt.Fprint(text, "mov eax, edx\n")
		fmt.Fprint(text, "cdq\n")
		fmt.Fprintf(text, "idiv %s\n", second)
		fmt.Fprint(text, "mov edx, eax\n")
		if eaxPushed {
			fmt.Fprint(text, "pop eax\n")
		}

	case second == "edx":
		eaxPushed := holds("eax")
		if eaxPushed {
			fmt.Fprint(text, "push eax\n")
		}
		fmt.Fprintf(text, "mov eax, %s\n", first)
		fmt.Fprint(text, "mov edi, edx\n")
		fmt.Fprint(text, "cdq\n")
		fmt.Fprint(text, "idiv edi\n")
		fmt.Fprintf(text, "mov %s, eax\n", first)
		fmt.Fprint(text, "mov edx, edi\n")
		if eaxPushed {
			fmt.Fprint(text, "pop eax\n")
		}

	default:
		eaxPushed := holds("eax")
		edxPushed := holds("edx")
		if eaxPushed {
			fmt.Fprint(text, "push eax\n")
		}
		if edxPushed {
			fmt.Fprint(text, "push edx\n")
		}
		fmt.Fprintf(text, "mov eax, %s\n", first)
		fmt.Fprint(text, "cdq\n")
		fmt.Fprintf(text, "idiv %s\n", second)
		fmt.Fprintf(text, "mov %s, eax\n", first)
		if edxPushed {
			fmt.Fprint(text, "pop edx\n")
		}
		if eaxPushed {
			fmt.Fprint(text, "pop eax\n")
		}
	}
}
