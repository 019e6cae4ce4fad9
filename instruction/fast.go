package instruction

import "github.com/dekaf-io/dekaf/classfile"

// Structure-level nodes produced by the fast builder. Each compound
// node owns its body lists; no parent pointers exist anywhere, so the
// tree can be rewritten freely during recursion.

// FastDeclaration declares a local variable; Instruction is the
// initializing store, or nil for a bare declaration.
type FastDeclaration struct {
	Base
	Variable    *classfile.LocalVariable
	Instruction Instruction
}

// FastLabel wraps a node that must be preceded by a label in the
// output.
type FastLabel struct {
	Base
	Instruction Instruction
}

// FastGoto is a rewritten unconditional jump: break, continue, or
// labeled break.
type FastGoto struct {
	Jump
}

// FastCondBranch is a rewritten conditional jump: if-break,
// if-continue, or if-labeled-break. Test keeps the original condition
// node.
type FastCondBranch struct {
	Jump
	Test Instruction
}

// FastIf is a plain `if` with no else branch.
type FastIf struct {
	Base
	Test         Instruction
	Instructions []Instruction
}

// FastIfElse is `if ... else ...`.
type FastIfElse struct {
	Base
	Test             Instruction
	Instructions     []Instruction
	ElseInstructions []Instruction
}

// FastLoop is a while, do-while or infinite loop; Test is nil for the
// infinite form.
type FastLoop struct {
	Base
	Test         Instruction
	Instructions []Instruction
}

// FastFor is `for (init; test; inc)`; any header slot may be nil.
type FastFor struct {
	Base
	Init         Instruction
	Test         Instruction
	Inc          Instruction
	Instructions []Instruction
}

// FastForEach is `for (variable : values)`.
type FastForEach struct {
	Base
	Variable     Instruction
	Values       Instruction
	Instructions []Instruction
}

// FastSwitchCase is one `case` (or `default`) of a switch.
type FastSwitchCase struct {
	IsDefault    bool
	Key          int
	Offset       int
	Instructions []Instruction
}

// FastSwitch is a switch over an int, an enum, or a string; the opcode
// distinguishes the three.
type FastSwitch struct {
	Base
	Test  Instruction
	Cases []*FastSwitchCase
}

// FastCatch is one catch clause of a try.
type FastCatch struct {
	ExceptionTypeIndex int
	OtherTypeIndexes   []int
	LocalVarIndex      int
	Instructions       []Instruction
}

// FastTry is try/catch/finally. FinallyInstructions is nil when the
// region has no finally. The node keeps the escape jump of its region
// so the loop driver can treat it like a branch.
type FastTry struct {
	Jump
	Instructions        []Instruction
	Catches             []*FastCatch
	FinallyInstructions []Instruction
}

// FastSynchronized is a `synchronized (monitor) { ... }` block. Like
// FastTry it keeps the escape jump of its region.
type FastSynchronized struct {
	Jump
	Monitor      Instruction
	Instructions []Instruction
}

// Blocks returns the nested instruction lists of a compound node, or
// nil for leaf nodes. Callers that rewrite bodies in place index into
// the returned slices' backing arrays through the node itself.
func Blocks(in Instruction) [][]Instruction {
	switch n := in.(type) {
	case *FastIf:
		return [][]Instruction{n.Instructions}
	case *FastIfElse:
		return [][]Instruction{n.Instructions, n.ElseInstructions}
	case *FastLoop:
		return [][]Instruction{n.Instructions}
	case *FastFor:
		return [][]Instruction{n.Instructions}
	case *FastForEach:
		return [][]Instruction{n.Instructions}
	case *FastSwitch:
		blocks := make([][]Instruction, 0, len(n.Cases))
		for _, c := range n.Cases {
			blocks = append(blocks, c.Instructions)
		}
		return blocks
	case *FastTry:
		blocks := [][]Instruction{n.Instructions}
		for _, c := range n.Catches {
			blocks = append(blocks, c.Instructions)
		}
		if n.FinallyInstructions != nil {
			blocks = append(blocks, n.FinallyInstructions)
		}
		return blocks
	case *FastSynchronized:
		return [][]Instruction{n.Instructions}
	case *FastLabel:
		if n.Instruction != nil {
			return [][]Instruction{{n.Instruction}}
		}
	}
	return nil
}
