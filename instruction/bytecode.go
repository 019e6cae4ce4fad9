package instruction

import "github.com/dekaf-io/dekaf/op"

// Nodes for the real bytecode opcodes that survive expression building.
// Operand sub-expressions were attached by the upstream builder; a node
// like Store owns the full tree of the value it writes.

// ConstNull is aconst_null.
type ConstNull struct {
	Base
}

// IntConst is iconst_<n>, bipush or sipush, normalized.
type IntConst struct {
	Base
	Value int32
}

// LongConst is lconst_<n>.
type LongConst struct {
	Base
	Value int64
}

// FloatConst is fconst_<n>.
type FloatConst struct {
	Base
	Value float32
}

// DoubleConst is dconst_<n>.
type DoubleConst struct {
	Base
	Value float64
}

// Ldc is ldc, ldc_w or ldc2_w; Index points into the constant pool.
type Ldc struct {
	Base
	Index int
}

// Load reads a local-variable slot. Used for the typed iload/lload/
// fload/dload/aload opcodes and for the unified synthetic load.
type Load struct {
	Base
	Index          int
	SignatureIndex int
}

// Store writes a local-variable slot; Value is the stored expression.
type Store struct {
	Base
	Index          int
	SignatureIndex int
	Value          Instruction
}

// ArrayLoad is one of the typed array load opcodes.
type ArrayLoad struct {
	Base
	Ref   Instruction
	Index Instruction
}

// ArrayStore is one of the typed array store opcodes.
type ArrayStore struct {
	Base
	Ref   Instruction
	Index Instruction
	Value Instruction
}

// Pop discards the value of an expression evaluated for effect.
type Pop struct {
	Base
	Value Instruction
}

// IInc is the iinc opcode as a statement.
type IInc struct {
	Base
	Index int
	Count int
}

// Binary is an arithmetic or logical operation on two operands.
type Binary struct {
	Base
	Operator string
	Priority int
	Left     Instruction
	Right    Instruction
}

// Unary is a single-operand operation such as ineg.
type Unary struct {
	Base
	Operator string
	Value    Instruction
}

// Cmp is lcmp, fcmpl, fcmpg, dcmpl or dcmpg: the three-way comparison
// whose int result feeds an integer branch until comparison aggregation
// folds the pair.
type Cmp struct {
	Base
	Left  Instruction
	Right Instruction
}

// If is the unified one-operand conditional branch.
type If struct {
	Jump
	Cond  op.Cond
	Value Instruction
}

// IfCmp is the unified two-operand conditional branch, covering both
// the if_icmp<cond>/if_acmp<cond> family and the compare-and-branch
// nodes produced by comparison aggregation.
type IfCmp struct {
	Jump
	Cond  op.Cond
	Left  Instruction
	Right Instruction
}

// IfXNull is ifnull/ifnonnull with its operand attached. Cond is Eq for
// `== null` and Ne for `!= null`.
type IfXNull struct {
	Jump
	Cond  op.Cond
	Value Instruction
}

// ComplexIf aggregates short-circuit conditionals; Branches holds the
// component conditional nodes in source order.
type ComplexIf struct {
	Jump
	Operator string // "&&" or "||"
	Branches []Instruction
}

// Goto is an unconditional jump.
type Goto struct {
	Jump
}

// Jsr is the subroutine call of the old finally lowering.
type Jsr struct {
	Jump
}

// Ret returns from a jsr subroutine through a return-address slot.
type Ret struct {
	Base
	Index int
}

// Switch is tableswitch or lookupswitch. Keys and Deltas run parallel;
// DefaultDelta is the default branch.
type Switch struct {
	Base
	Key          Instruction
	DefaultDelta int
	Keys         []int
	Deltas       []int
}

// DefaultTarget returns the default jump target.
func (s *Switch) DefaultTarget() int { return s.Off + s.DefaultDelta }

// CaseTarget returns the jump target of case i.
func (s *Switch) CaseTarget(i int) int { return s.Off + s.Deltas[i] }

// Invoke is any of the invoke opcodes; Ref is nil for invokestatic and
// invokedynamic.
type Invoke struct {
	Base
	Index int // Methodref / InterfaceMethodref index
	Ref   Instruction
	Args  []Instruction
}

// GetField reads an instance field.
type GetField struct {
	Base
	Index int
	Ref   Instruction
}

// PutField writes an instance field.
type PutField struct {
	Base
	Index int
	Ref   Instruction
	Value Instruction
}

// GetStatic reads a static field.
type GetStatic struct {
	Base
	Index int
}

// PutStatic writes a static field.
type PutStatic struct {
	Base
	Index int
	Value Instruction
}

// New allocates an instance; the matching constructor call follows as
// an Invoke.
type New struct {
	Base
	Index int
}

// NewArray is newarray with a primitive type code.
type NewArray struct {
	Base
	Type  int
	Count Instruction
}

// ANewArray is anewarray.
type ANewArray struct {
	Base
	Index int
	Count Instruction
}

// MultiANewArray is multianewarray.
type MultiANewArray struct {
	Base
	Index      int
	Dimensions []Instruction
}

// ArrayLength is arraylength.
type ArrayLength struct {
	Base
	Ref Instruction
}

// AThrow throws its operand.
type AThrow struct {
	Base
	Value Instruction
}

// Return is the void return.
type Return struct {
	Base
}

// XReturn is the unified return-with-value.
type XReturn struct {
	Base
	Value Instruction
}

// CheckCast is checkcast with its operand attached.
type CheckCast struct {
	Base
	Index int
	Value Instruction
}

// InstanceOf is instanceof with its operand attached.
type InstanceOf struct {
	Base
	Index int
	Value Instruction
}

// MonitorEnter opens a synchronized region on its operand.
type MonitorEnter struct {
	Base
	Value Instruction
}

// MonitorExit closes a synchronized region on its operand.
type MonitorExit struct {
	Base
	Value Instruction
}

// Convert is a primitive conversion applied to its operand.
type Convert struct {
	Base
	Value     Instruction
	Signature string
}
