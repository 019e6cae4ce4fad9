// Package instruction defines the instruction node model shared by the
// upstream decoder and the reconstruction passes. Every node carries an
// opcode, the bytecode offset it originated at and a source line number;
// statement-level nodes own their operand expressions as sub-nodes, so a
// decoded method is a flat list of trees that the fast builder reshapes
// into nested control-flow structures.
package instruction

import (
	"github.com/dekaf-io/dekaf/classfile"
	"github.com/dekaf-io/dekaf/op"
)

// Instruction is implemented by every node.
type Instruction interface {
	Opcode() op.Code
	Offset() int
	LineNumber() int
	SetOffset(int)
	SetLineNumber(int)
}

// Branch is implemented by nodes that carry a jump: the raw branch
// opcodes, the unified conditionals, and the compound try/synchronized
// nodes which keep the escape jump of their original region.
type Branch interface {
	Instruction
	Delta() int
	Target() int
	SetDelta(int)
	SetTarget(int)
}

// Base carries the header common to all nodes.
type Base struct {
	Op   op.Code
	Off  int
	Line int
}

// At builds a Base, for use in composite literals.
func At(code op.Code, offset, line int) Base {
	return Base{Op: code, Off: offset, Line: line}
}

func (b *Base) Opcode() op.Code   { return b.Op }
func (b *Base) Offset() int       { return b.Off }
func (b *Base) LineNumber() int   { return b.Line }
func (b *Base) SetOffset(o int)   { b.Off = o }
func (b *Base) SetLineNumber(n int) { b.Line = n }

// Jump is the header of nodes that branch. The target offset is always
// derived from the node's own offset plus the signed delta.
type Jump struct {
	Base
	JumpDelta int
}

func (j *Jump) Delta() int     { return j.JumpDelta }
func (j *Jump) Target() int    { return j.Off + j.JumpDelta }
func (j *Jump) SetDelta(d int) { j.JumpDelta = d }
func (j *Jump) SetTarget(t int) { j.JumpDelta = t - j.Off }

// TargetOf returns the jump target of a node, when it has one. Compound
// try/synchronized nodes expose the escape jump of their region, which
// the loop driver treats like any other branch.
func TargetOf(in Instruction) (int, bool) {
	if br, ok := in.(Branch); ok {
		return br.Target(), true
	}
	return 0, false
}

// UnknownLine aliases the classfile constant for convenience.
const UnknownLine = classfile.UnknownLineNumber
