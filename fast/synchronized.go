package fast

import (
	"github.com/dekaf-io/dekaf/instruction"
	"github.com/dekaf-io/dekaf/op"
)

// createSynchronizedBlock folds an aggregated synchronized region into
// a single FastSynchronized node: the monitorenter and its capturing
// store vanish, every monitorexit on the same slot is purged (nested
// blocks included), and for the jsr form the subroutine is cut out.
func (b *Builder) createSynchronizedBlock(list []instruction.Instruction, r *ExceptionRange) []instruction.Instruction {
	bodyStart := instruction.IndexForOffset(list, r.TryFromOffset)
	if bodyStart == 0 || bodyStart >= len(list) {
		b.fail(&BoundsError{Index: bodyStart, Length: len(list)})
		return list
	}

	enter, ok := list[bodyStart-1].(*instruction.MonitorEnter)
	if !ok {
		b.fail(&UnexpectedInstructionError{Code: list[bodyStart-1].Opcode(), Offset: list[bodyStart-1].Offset()})
		return list
	}
	monitorSlot := monitorLocalIndex(list, bodyStart-1, enter)

	// The body runs to the subroutine entry for the jsr form, to the
	// region exit otherwise.
	endOffset := r.AfterOffset
	if r.Type == Type118SynchronizedDouble && r.FinallyFromOffset != -1 {
		endOffset = r.FinallyFromOffset
	}
	bodyEnd := instruction.IndexForOffset(list, endOffset)

	body, list := b.extract(list, bodyStart, bodyEnd)
	if b.failure != nil {
		return list
	}

	// For the jsr form, drop the subroutine calls first, then the
	// subroutine body itself.
	if r.FinallyFromOffset != -1 {
		for i := len(body) - 1; i >= 0; i-- {
			if j, ok := body[i].(*instruction.Jsr); ok && j.Target() == r.FinallyFromOffset {
				body = instruction.Remove(body, i)
			}
		}
		for i := len(body) - 1; i >= 0; i-- {
			if off := body[i].Offset(); off >= r.FinallyFromOffset && off < r.AfterOffset {
				body = instruction.Remove(body, i)
			}
		}
	}

	// Drop the catch-all handler that performed the exceptional
	// monitorexit: everything from the exception store onward.
	for i, in := range body {
		if s, ok := in.(*instruction.Store); ok {
			if _, ok := s.Value.(*instruction.ExceptionLoad); ok {
				body = body[:i]
				break
			}
		}
		if _, ok := in.(*instruction.ExceptionLoad); ok {
			body = body[:i]
			break
		}
	}

	// Drop the bridge goto that jumped the normal path over the handler.
	if n := len(body); n > 0 {
		if g, ok := body[n-1].(*instruction.Goto); ok && g.Target() >= r.AfterOffset {
			body = body[:n-1]
		}
	}

	body = removeMonitorExits(body, monitorSlot)

	// The store that captured the monitor provides the expression.
	anchor := bodyStart - 1
	monitor, removeStore := b.extractMonitor(list, anchor)
	lastOffset := enter.Offset()
	if len(body) > 0 {
		lastOffset = instruction.LastOffset(body)
	}

	if monitorSlot != -1 {
		b.locals.RemoveWithIndexAndOffset(monitorSlot, enter.Offset())
	}

	sync := &instruction.FastSynchronized{
		Jump: instruction.Jump{
			Base:      instruction.At(op.Synchronized, lastOffset, enter.LineNumber()),
			JumpDelta: 1,
		},
		Monitor:      monitor,
		Instructions: b.reconstruct(body),
	}
	if escape := minBackwardEscape(sync.Instructions, r.TryFromOffset); escape != -1 {
		sync.SetDelta(escape - lastOffset)
	}

	// Replace the monitorenter with the block; the capturing store
	// before it goes too when it exists.
	list[anchor] = sync
	if removeStore && anchor > 0 {
		list = instruction.Remove(list, anchor-1)
	}
	b.log.Debug().Int("offset", r.TryFromOffset).Msg("synchronized block built")
	return list
}

// monitorLocalIndex returns the slot the monitor reference was stashed
// into: the monitorenter operand's slot, or the slot of the capturing
// store just before it for the dup form.
func monitorLocalIndex(list []instruction.Instruction, enterIndex int, enter *instruction.MonitorEnter) int {
	if load, ok := enter.Value.(*instruction.Load); ok {
		return load.Index
	}
	if enterIndex > 0 {
		if s, ok := list[enterIndex-1].(*instruction.Store); ok {
			return s.Index
		}
	}
	return -1
}

// extractMonitor recovers the monitor expression from the instruction
// preceding the monitorenter. The second result reports whether that
// instruction must be removed from the list.
func (b *Builder) extractMonitor(list []instruction.Instruction, enterIndex int) (instruction.Instruction, bool) {
	enter := list[enterIndex].(*instruction.MonitorEnter)
	if enterIndex > 0 {
		switch prev := list[enterIndex-1].(type) {
		case *instruction.Store:
			if dl, ok := prev.Value.(*instruction.DupLoad); ok {
				return dl.Store.Value, true
			}
			return prev.Value, true
		case *instruction.DupStore:
			return prev.Value, true
		case *instruction.Assignment:
			return prev, true
		}
	}
	switch v := enter.Value.(type) {
	case *instruction.Load:
		return v, false
	case *instruction.DupLoad:
		return v.Store.Value, false
	}
	b.fail(&UnexpectedInstructionError{Code: enter.Opcode(), Offset: enter.Offset()})
	return enter.Value, false
}

// removeMonitorExits strips every monitorexit on the given slot from a
// body, descending into nested try and synchronized nodes already
// built.
func removeMonitorExits(list []instruction.Instruction, slot int) []instruction.Instruction {
	for i := len(list) - 1; i >= 0; i-- {
		switch n := list[i].(type) {
		case *instruction.MonitorExit:
			if exitsSlot(n, slot) {
				list = instruction.Remove(list, i)
			}
		case *instruction.FastTry:
			n.Instructions = removeMonitorExits(n.Instructions, slot)
			for _, c := range n.Catches {
				c.Instructions = removeMonitorExits(c.Instructions, slot)
			}
			if n.FinallyInstructions != nil {
				n.FinallyInstructions = removeMonitorExits(n.FinallyInstructions, slot)
			}
		case *instruction.FastSynchronized:
			n.Instructions = removeMonitorExits(n.Instructions, slot)
		}
	}
	return list
}

func exitsSlot(exit *instruction.MonitorExit, slot int) bool {
	if slot == -1 {
		return true
	}
	switch v := exit.Value.(type) {
	case *instruction.Load:
		return v.Index == slot
	case *instruction.DupLoad:
		return true
	}
	return true
}
