// Package runtime embeds the NASM runtime support object source linked
// against every compiled program. Per spec.md sections 1 and 6, the
// runtime itself (print_integer, print_boolean, newline) is an
// external collaborator: this package only carries its source text so
// the backend can fold its `.data`/`.bss`/`.text` bodies into the
// program's own output sections, and the driver can assemble it
// alongside the generated code.
package runtime

import _ "embed"

//go:embed runtime.asm
var source string

// Source returns the runtime's NASM source text.
func Source() string {
	return source
}
