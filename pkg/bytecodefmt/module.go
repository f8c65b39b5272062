// Package bytecodefmt defines the compiled Module container — the four
// aligned tables of spec.md §3 — and its exact binary serialization
// format (§6).
package bytecodefmt

import "github.com/agenthands/bilex/pkg/value"

// Module is the compiler's output and the VM's input: constants, globals,
// functions, and the top-level instruction sequence.
type Module struct {
	Constants []value.Value
	Globals   []string
	Functions []*value.Function
	// MainLocalCount is the frame size the VM must allocate to run MainCode
	// as the implicit top-level function (temporaries and block-scoped
	// bindings the compiler could not promote to globals).
	MainLocalCount int
	MainCode       []value.Instruction
}

// NewModule returns an empty Module ready for the compiler to populate.
func NewModule() *Module {
	return &Module{}
}
