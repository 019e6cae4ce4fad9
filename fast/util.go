package fast

import (
	"github.com/dekaf-io/dekaf/instruction"
	"github.com/dekaf-io/dekaf/op"
)

// invertTest flips a conditional node in place so that its body and
// else branch can be swapped. Short-circuit aggregates invert by De
// Morgan: the operator flips and every component inverts.
func invertTest(test instruction.Instruction) {
	switch n := test.(type) {
	case *instruction.If:
		n.Cond = n.Cond.Invert()
	case *instruction.IfCmp:
		n.Cond = n.Cond.Invert()
	case *instruction.IfXNull:
		n.Cond = n.Cond.Invert()
	case *instruction.ComplexIf:
		if n.Operator == "&&" {
			n.Operator = "||"
		} else {
			n.Operator = "&&"
		}
		for _, branch := range n.Branches {
			invertTest(branch)
		}
	}
}

// minForwardEscape returns the smallest jump target past to, scanning
// the whole nested body. Returns -1 when no jump escapes forward.
func minForwardEscape(list []instruction.Instruction, to int) int {
	min := -1
	instruction.WalkList(list, func(in instruction.Instruction) bool {
		if target, ok := instruction.TargetOf(in); ok {
			if target > to && (min == -1 || target < min) {
				min = target
			}
		}
		return true
	})
	return min
}

// minBackwardEscape returns the smallest jump target below from,
// scanning the whole nested body. Returns -1 when no jump escapes
// backward.
func minBackwardEscape(list []instruction.Instruction, from int) int {
	min := -1
	instruction.WalkList(list, func(in instruction.Instruction) bool {
		if target, ok := instruction.TargetOf(in); ok {
			if target < from && (min == -1 || target < min) {
				min = target
			}
		}
		return true
	})
	return min
}

// extract removes list[from:to] and returns the removed run together
// with the shortened list. Bounds failures surface as a BoundsError on
// the builder.
func (b *Builder) extract(list []instruction.Instruction, from, to int) ([]instruction.Instruction, []instruction.Instruction) {
	if from < 0 || to > len(list) || from > to {
		b.fail(&BoundsError{Index: from, Length: len(list)})
		return nil, list
	}
	sub := make([]instruction.Instruction, to-from)
	copy(sub, list[from:to])
	list = append(list[:from], list[to:]...)
	return sub, list
}

// storeOfSlot reports whether the node stores into the given slot.
func storeOfSlot(in instruction.Instruction, index int) bool {
	s, ok := in.(*instruction.Store)
	return ok && s.Index == index
}

// loadOfSlot reports whether the node loads the given slot.
func loadOfSlot(in instruction.Instruction, index int) bool {
	l, ok := in.(*instruction.Load)
	return ok && l.Index == index
}

// slotOf returns the local slot an instruction reads or writes, or -1.
func slotOf(in instruction.Instruction) int {
	switch n := in.(type) {
	case *instruction.Load:
		return n.Index
	case *instruction.Store:
		return n.Index
	case *instruction.IInc:
		return n.Index
	case *instruction.Inc:
		return slotOf(n.Value)
	case *instruction.Assignment:
		return slotOf(n.Dest)
	}
	return -1
}

// isAssignLike reports whether the node is a store, load, iinc or field
// access, the shapes a for-loop header may be built from.
func isAssignLike(in instruction.Instruction) bool {
	switch in.Opcode() {
	case op.ILoad, op.LLoad, op.FLoad, op.DLoad, op.ALoad, op.Load,
		op.IStore, op.LStore, op.FStore, op.DStore, op.AStore, op.Store,
		op.GetStatic, op.PutStatic, op.GetField, op.PutField:
		return true
	}
	return false
}

// fieldIndexOf returns the field constant-pool index of a field access
// node, or -1.
func fieldIndexOf(in instruction.Instruction) int {
	switch n := in.(type) {
	case *instruction.GetStatic:
		return n.Index
	case *instruction.PutStatic:
		return n.Index
	case *instruction.GetField:
		return n.Index
	case *instruction.PutField:
		return n.Index
	}
	return -1
}

// sameHeaderVariable reports whether a loop's init and increment touch
// the same storage, the tie-break used when line numbers are missing.
func sameHeaderVariable(beforeLoop, lastBodyLoop instruction.Instruction) bool {
	if isAssignLike(beforeLoop) && isAssignLike(lastBodyLoop) {
		bi := fieldIndexOf(beforeLoop)
		if bi == -1 {
			bi = slotOf(beforeLoop)
		}
		li := fieldIndexOf(lastBodyLoop)
		if li == -1 {
			li = slotOf(lastBodyLoop)
		}
		return bi != -1 && bi == li
	}
	if s, ok := beforeLoop.(*instruction.Store); ok {
		switch n := lastBodyLoop.(type) {
		case *instruction.IInc:
			return s.Index == n.Index
		case *instruction.Inc:
			return s.Index == slotOf(n.Value)
		}
	}
	return false
}

// unwrapAssignment returns the left-most target of an assignment chain;
// other nodes pass through.
func unwrapAssignment(in instruction.Instruction) instruction.Instruction {
	if a, ok := in.(*instruction.Assignment); ok {
		return a.Dest
	}
	return in
}
