package instruction

// Expression-level nodes invented by the reconstruction battery.

// Assignment is `dest = value` or, after compound-assignment folding,
// `dest OP= value`. Dest is reused in place of the load the original
// store duplicated.
type Assignment struct {
	Base
	Operator string // "=", "+=", ...
	Dest     Instruction
	Value    Instruction
}

// Ternary is `test ? a : b`, folded from two converging jumps.
type Ternary struct {
	Base
	Test  Instruction
	True  Instruction
	False Instruction
}

// DupStore captures a stack value duplicated by a dup-family opcode.
type DupStore struct {
	Base
	Value Instruction
}

// DupLoad re-reads the value captured by its DupStore.
type DupLoad struct {
	Base
	Store *DupStore
}

// InitArray is an array creation folded together with its element
// stores into a single literal.
type InitArray struct {
	Base
	New    Instruction
	Values []Instruction
}

// ClassLiteral is a `.class` constant, recognized either directly from
// an ldc of a class constant (1.5+) or from the synthetic class$ helper
// idiom older compilers emit.
type ClassLiteral struct {
	Base
	SignatureIndex int
}

// Assert is an `assert test : msg` statement, folded from the
// $assertionsDisabled guard. Msg may be nil.
type Assert struct {
	Base
	Test Instruction
	Msg  Instruction
}

// ExceptionLoad is the pseudo-instruction that begins every catch body,
// loading the caught exception. Index is the local slot the handler
// stored it into, or -1 when the handler popped it.
type ExceptionLoad struct {
	Base
	ExceptionNameIndex int
	Index              int
}

// RetAddrLoad is the astore of a jsr return address at the head of a
// finally subroutine.
type RetAddrLoad struct {
	Base
}

// Inc is a pre- or post-increment expression normalized from iinc or
// from an add/sub assignment with constant operand.
type Inc struct {
	Base
	Value Instruction
	Count int
}
