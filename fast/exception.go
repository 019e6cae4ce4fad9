package fast

import (
	"sort"

	"github.com/dekaf-io/dekaf/classfile"
	"github.com/dekaf-io/dekaf/instruction"
)

// RangeType classifies how a compiler lowered a protected region. The
// numbered variants track the vendor idioms: 118 is the jsr/ret
// subroutine family of JDK 1.1.8 and Jikes, 131 the catch+finally
// sharing of JDK 1.3.1, 142 the inline-copy form of JDK 1.4.2 and
// later.
type RangeType int

const (
	TypeCatch RangeType = iota
	TypeFinally
	Type118Finally
	Type118Finally2
	Type118FinallyThrow
	Type118SynchronizedDouble
	Type131CatchFinally
	Type142
	Type142FinallyThrow
)

// CatchEntry is one catch clause of an aggregated region.
type CatchEntry struct {
	TypeIndex        int // constant pool class index, 0 for catch-all
	OtherTypeIndexes []int
	FromOffset       int // handler offset
}

// ExceptionRange is an aggregated protected region: all raw entries
// sharing a (startPC, endPC) span, classified.
type ExceptionRange struct {
	Type         RangeType
	Synchronized bool

	TryFromOffset     int
	TryToOffset       int
	FinallyFromOffset int // subroutine entry (jsr forms) or handler, -1 when none
	HandlerFromOffset int // catch-all handler offset, -1 when none
	AfterOffset       int

	Catches []*CatchEntry
}

// AggregateExceptions merges the raw exception table into logical
// regions ordered outermost-first. The builder walks the result
// backwards, so the innermost regions are built first and every outer
// build sees the inner blocks already folded into single nodes.
func AggregateExceptions(method *classfile.Method, list []instruction.Instruction) []*ExceptionRange {
	if len(method.ExceptionTable) == 0 {
		return nil
	}

	type spanKey struct{ from, to int }
	grouped := map[spanKey]*ExceptionRange{}
	var order []spanKey

	for _, raw := range method.ExceptionTable {
		key := spanKey{raw.StartPC, raw.EndPC}
		r := grouped[key]
		if r == nil {
			r = &ExceptionRange{
				Type:              TypeCatch,
				TryFromOffset:     raw.StartPC,
				TryToOffset:       raw.EndPC,
				FinallyFromOffset: -1,
				HandlerFromOffset: -1,
				AfterOffset:       -1,
			}
			grouped[key] = r
			order = append(order, key)
		}
		if raw.CatchType == 0 {
			classifyCatchAll(r, raw.HandlerPC, list)
		} else {
			addCatch(r, raw.CatchType, raw.HandlerPC)
		}
	}

	ranges := make([]*ExceptionRange, 0, len(order))
	for _, key := range order {
		r := grouped[key]
		computeAfterOffset(r, list)
		ranges = append(ranges, r)
	}

	// Outermost first: larger spans before smaller; earlier regions
	// first among equal spans.
	sort.SliceStable(ranges, func(i, j int) bool {
		si := ranges[i].TryToOffset - ranges[i].TryFromOffset
		sj := ranges[j].TryToOffset - ranges[j].TryFromOffset
		if si != sj {
			return si > sj
		}
		return ranges[i].TryFromOffset < ranges[j].TryFromOffset
	})
	return ranges
}

// addCatch appends a typed catch, merging entries that share a handler.
func addCatch(r *ExceptionRange, typeIndex, handlerPC int) {
	for _, c := range r.Catches {
		if c.FromOffset == handlerPC {
			c.OtherTypeIndexes = append(c.OtherTypeIndexes, typeIndex)
			return
		}
	}
	r.Catches = append(r.Catches, &CatchEntry{TypeIndex: typeIndex, FromOffset: handlerPC})
}

// classifyCatchAll decides what a catch-all handler encodes: a finally
// in one of its vendor shapes, a synchronized cleanup, or (when nothing
// is recognized) a plain catch clause.
func classifyCatchAll(r *ExceptionRange, handlerPC int, list []instruction.Instruction) {
	handlerIndex := instruction.IndexForOffset(list, handlerPC)
	if handlerIndex >= len(list) {
		addCatch(r, 0, handlerPC)
		return
	}

	slot := exceptionSlotAt(list, handlerIndex)
	sawMonitorExit := false
	sawJsr := false
	jsrTarget := -1
	rethrow := false

	// A try block that exits through a throw needs no goto over the
	// handler; that absence separates the *_FINALLY_THROW shapes from
	// their plain counterparts.
	precededByThrow := false
	if handlerIndex > 0 {
		_, precededByThrow = list[handlerIndex-1].(*instruction.AThrow)
	}

	for i := handlerIndex; i < len(list); i++ {
		switch n := list[i].(type) {
		case *instruction.MonitorExit:
			sawMonitorExit = true
		case *instruction.Jsr:
			sawJsr = true
			jsrTarget = n.Target()
		case *instruction.AThrow:
			if load, ok := n.Value.(*instruction.Load); ok && (slot == -1 || load.Index == slot) {
				rethrow = true
			} else if _, ok := n.Value.(*instruction.ExceptionLoad); ok {
				rethrow = true
			}
		case *instruction.Ret:
			rethrow = true
		}
		if rethrow {
			break
		}
		// Handler cleanup is short: scan at most the first 18
		// instructions of the handler.
		if i > handlerIndex+16 {
			break
		}
	}

	switch {
	case sawMonitorExit && rethrow:
		r.Synchronized = true
		r.HandlerFromOffset = handlerPC
		if sawJsr {
			r.Type = Type118SynchronizedDouble
			r.FinallyFromOffset = jsrTarget
		} else {
			r.Type = TypeFinally
			r.FinallyFromOffset = handlerPC
		}
	case sawJsr && rethrow:
		switch {
		case isJikesHandlerShape(list, handlerIndex):
			r.Type = Type118Finally2
		case precededByThrow:
			r.Type = Type118FinallyThrow
		default:
			r.Type = Type118Finally
		}
		r.FinallyFromOffset = jsrTarget
		r.HandlerFromOffset = handlerPC
	case rethrow:
		switch {
		case len(r.Catches) > 0:
			r.Type = Type131CatchFinally
		case precededByThrow:
			r.Type = Type142FinallyThrow
		default:
			r.Type = Type142
		}
		r.FinallyFromOffset = handlerPC
		r.HandlerFromOffset = handlerPC
	default:
		// Unknown shape: degrade to a plain catch-all clause.
		addCatch(r, 0, handlerPC)
	}
}

// exceptionSlotAt returns the local slot the handler stores the caught
// exception into, or -1.
func exceptionSlotAt(list []instruction.Instruction, handlerIndex int) int {
	switch n := list[handlerIndex].(type) {
	case *instruction.Store:
		if _, ok := n.Value.(*instruction.ExceptionLoad); ok {
			return n.Index
		}
	case *instruction.ExceptionLoad:
		return n.Index
	}
	return -1
}

// isJikesHandlerShape recognizes the Jikes 1.2.2 handler prologue: the
// return address is stacked before the exception store rather than
// after the jsr. The empty-synchronized-block branch of this shape is
// arguably unreachable in modern class files but kept for fidelity.
func isJikesHandlerShape(list []instruction.Instruction, handlerIndex int) bool {
	if handlerIndex+1 >= len(list) {
		return false
	}
	if _, ok := list[handlerIndex].(*instruction.RetAddrLoad); ok {
		return true
	}
	if s, ok := list[handlerIndex].(*instruction.Store); ok {
		if _, ok := s.Value.(*instruction.RetAddrLoad); ok {
			return true
		}
	}
	return false
}

// computeAfterOffset determines where control resumes after the whole
// region: the target of the goto that jumps the normal path over the
// handlers, or past the last handler body when no such goto exists.
func computeAfterOffset(r *ExceptionRange, list []instruction.Instruction) {
	firstHandler := -1
	for _, c := range r.Catches {
		if firstHandler == -1 || c.FromOffset < firstHandler {
			firstHandler = c.FromOffset
		}
	}
	catchAll := r.HandlerFromOffset
	if catchAll == -1 {
		catchAll = r.FinallyFromOffset
	}
	if catchAll != -1 && (firstHandler == -1 || catchAll < firstHandler) {
		firstHandler = catchAll
	}
	if firstHandler == -1 {
		r.AfterOffset = r.TryToOffset
		return
	}

	handlerIndex := instruction.IndexForOffset(list, firstHandler)
	if handlerIndex > 0 {
		if g, ok := list[handlerIndex-1].(*instruction.Goto); ok && g.Delta() > 0 {
			r.AfterOffset = g.Target()
			return
		}
	}

	// No bridge goto: the region runs to the end of the last handler
	// body, found by scanning for its closing throw or return.
	lastHandler := firstHandler
	for _, c := range r.Catches {
		if c.FromOffset > lastHandler {
			lastHandler = c.FromOffset
		}
	}
	if r.FinallyFromOffset > lastHandler {
		lastHandler = r.FinallyFromOffset
	}
	for i := instruction.IndexForOffset(list, lastHandler); i < len(list); i++ {
		switch list[i].(type) {
		case *instruction.AThrow, *instruction.Return, *instruction.XReturn, *instruction.Ret:
			if i+1 < len(list) {
				r.AfterOffset = list[i+1].Offset()
			} else {
				r.AfterOffset = list[i].Offset() + 1
			}
			return
		}
	}
	r.AfterOffset = instruction.LastOffset(list) + 1
}
