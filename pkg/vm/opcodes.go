package vm

// Opcodes, per spec.md §4.4. Every instruction is a fixed (op, arg) pair;
// unused operands are always zero.
const (
	OP_LOAD_CONST uint8 = iota
	OP_LOAD_VAR
	OP_STORE_VAR
	OP_LOAD_GLOBAL
	OP_STORE_GLOBAL
	OP_POP
	OP_DUP

	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV
	OP_MOD
	OP_POW
	OP_NEG

	OP_EQ
	OP_NE
	OP_LT
	OP_GT
	OP_LE
	OP_GE

	OP_AND
	OP_OR
	OP_NOT

	OP_JUMP
	OP_JUMP_IF_FALSE
	OP_JUMP_IF_TRUE

	OP_CALL
	OP_RETURN
	OP_MAKE_CLOSURE
	OP_LOAD_UPVALUE
	OP_STORE_UPVALUE

	OP_MAKE_LIST
	OP_MAKE_MAP
	OP_GET_INDEX
	OP_SET_INDEX
	OP_GET_ATTR
	OP_SET_ATTR
	OP_NEW_INSTANCE
	OP_IS_INSTANCE

	OP_PRINT

	OP_NOP
	OP_HALT

	// OP_TRAP aborts with a RuntimeError when a reserved-but-unimplemented
	// construct (break/continue/for-in/await/spawn) is reached at runtime,
	// or a match has no matching arm; see DESIGN.md's Open Question
	// decision. Arg selects the reason (see TrapReason); the message gives
	// the reason's text, not the name of the construct.
	OP_TRAP
)

// TrapReason names the Arg values OP_TRAP carries.
const (
	TrapUnimplemented uint32 = 0
	TrapNoMatchArm    uint32 = 1
)

var trapReasons = map[uint32]string{
	TrapUnimplemented: "construct is reserved but not implemented",
	TrapNoMatchArm:    "no match arm matched the subject",
}

// TrapReasonString returns the diagnostic text for a TRAP's Arg.
func TrapReasonString(reason uint32) string {
	if s, ok := trapReasons[reason]; ok {
		return s
	}
	return "trap"
}

var mnemonics = map[uint8]string{
	OP_LOAD_CONST: "LOAD_CONST", OP_LOAD_VAR: "LOAD_VAR", OP_STORE_VAR: "STORE_VAR",
	OP_LOAD_GLOBAL: "LOAD_GLOBAL", OP_STORE_GLOBAL: "STORE_GLOBAL", OP_POP: "POP", OP_DUP: "DUP",
	OP_ADD: "ADD", OP_SUB: "SUB", OP_MUL: "MUL", OP_DIV: "DIV", OP_MOD: "MOD", OP_POW: "POW", OP_NEG: "NEG",
	OP_EQ: "EQ", OP_NE: "NE", OP_LT: "LT", OP_GT: "GT", OP_LE: "LE", OP_GE: "GE",
	OP_AND: "AND", OP_OR: "OR", OP_NOT: "NOT",
	OP_JUMP: "JUMP", OP_JUMP_IF_FALSE: "JUMP_IF_FALSE", OP_JUMP_IF_TRUE: "JUMP_IF_TRUE",
	OP_CALL: "CALL", OP_RETURN: "RETURN", OP_MAKE_CLOSURE: "MAKE_CLOSURE",
	OP_LOAD_UPVALUE: "LOAD_UPVALUE", OP_STORE_UPVALUE: "STORE_UPVALUE",
	OP_MAKE_LIST: "MAKE_LIST", OP_MAKE_MAP: "MAKE_MAP", OP_GET_INDEX: "GET_INDEX", OP_SET_INDEX: "SET_INDEX",
	OP_GET_ATTR: "GET_ATTR", OP_SET_ATTR: "SET_ATTR", OP_NEW_INSTANCE: "NEW_INSTANCE",
	OP_IS_INSTANCE: "IS_INSTANCE",
	OP_PRINT: "PRINT", OP_NOP: "NOP", OP_HALT: "HALT", OP_TRAP: "TRAP",
}

// Mnemonic returns the disassembly name of an opcode, or "UNKNOWN".
func Mnemonic(op uint8) string {
	if m, ok := mnemonics[op]; ok {
		return m
	}
	return "UNKNOWN"
}
