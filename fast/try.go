package fast

import (
	"sort"

	"github.com/dekaf-io/dekaf/instruction"
	"github.com/dekaf-io/dekaf/op"
)

// createFastTry folds an aggregated try/catch/finally region into one
// FastTry node. The finally body is materialized exactly once; every
// jsr/ret of the subroutine form disappears; each catch records the
// slot its ExceptionLoad initialized.
func (b *Builder) createFastTry(list []instruction.Instruction, r *ExceptionRange, returnOffset int) []instruction.Instruction {
	afterListOffset := r.AfterOffset
	if last := instruction.LastOffset(list); afterListOffset == -1 || afterListOffset > last+1 {
		afterListOffset = last + 1
	}

	regionStart := instruction.IndexForOffset(list, r.TryFromOffset)
	regionEnd := instruction.IndexForOffset(list, afterListOffset)
	region, list := b.extract(list, regionStart, regionEnd)
	if b.failure != nil {
		return list
	}
	lastOffset := instruction.LastOffset(region)

	// Collect the handler boundaries in ascending order; each body runs
	// to the next boundary.
	type segment struct {
		catch *CatchEntry // nil for the finally segment
		from  int
	}
	segments := make([]segment, 0, len(r.Catches)+1)
	for _, c := range r.Catches {
		segments = append(segments, segment{catch: c, from: c.FromOffset})
	}
	if r.FinallyFromOffset != -1 {
		// The segment starts at the catch-all handler; for the jsr form
		// the subroutine follows it and formatFinally cuts the handler
		// trampoline away.
		from := r.HandlerFromOffset
		if from == -1 || from > r.FinallyFromOffset {
			from = r.FinallyFromOffset
		}
		segments = append(segments, segment{from: from})
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].from < segments[j].from })

	tryEnd := afterListOffset
	if len(segments) > 0 {
		tryEnd = segments[0].from
	}

	cut := func(from, to int) []instruction.Instruction {
		lo := instruction.IndexForOffset(region, from)
		hi := instruction.IndexForOffset(region, to)
		if lo > hi {
			b.fail(&BoundsError{Index: lo, Length: len(region)})
			return nil
		}
		return region[lo:hi]
	}

	node := &instruction.FastTry{
		Jump: instruction.Jump{
			Base:      instruction.At(op.Try, lastOffset, instruction.UnknownLine),
			JumpDelta: 1,
		},
	}

	// Finally first: its statement count tells how much duplicated
	// inline copy to splice out of the try and catch bodies.
	var finallyBody []instruction.Instruction
	finallyCount := 0
	inlineCopies := r.Type == TypeFinally || r.Type == Type131CatchFinally ||
		r.Type == Type142 || r.Type == Type142FinallyThrow
	for i, seg := range segments {
		if seg.catch != nil {
			continue
		}
		to := afterListOffset
		if i+1 < len(segments) {
			to = segments[i+1].from
		}
		finallyBody = b.formatFinally(cut(seg.from, to), r)
		finallyCount = len(finallyBody)
	}

	for i, seg := range segments {
		if seg.catch == nil {
			continue
		}
		to := afterListOffset
		if i+1 < len(segments) {
			to = segments[i+1].from
		}
		body := cut(seg.from, to)
		if b.failure != nil {
			return list
		}
		body, slot := b.stripExceptionLoad(body)
		if len(body) == 0 && slot == -1 {
			b.fail(&EmptyCatchBlockError{Offset: seg.from})
			return list
		}
		body = trimBridgeGoto(body, afterListOffset)
		if inlineCopies {
			body = spliceInlineFinally(body, finallyCount, r.Type == Type142FinallyThrow)
		}
		node.Catches = append(node.Catches, &instruction.FastCatch{
			ExceptionTypeIndex: seg.catch.TypeIndex,
			OtherTypeIndexes:   seg.catch.OtherTypeIndexes,
			LocalVarIndex:      slot,
			Instructions:       b.reconstruct(body),
		})
	}

	tryBody := trimBridgeGoto(cut(r.TryFromOffset, tryEnd), afterListOffset)
	if inlineCopies {
		tryBody = spliceInlineFinally(tryBody, finallyCount, r.Type == Type142FinallyThrow)
	}
	node.SetLineNumber(firstLine(tryBody))

	// The subroutine form scatters jsr calls through try and catch
	// bodies; all of them collapse into the single finally copy.
	if r.Type == Type118Finally || r.Type == Type118Finally2 || r.Type == Type118FinallyThrow {
		tryBody = removeSubroutineCalls(tryBody, r.FinallyFromOffset)
		for _, c := range node.Catches {
			c.Instructions = removeSubroutineCalls(c.Instructions, r.FinallyFromOffset)
		}
	}

	node.Instructions = b.reconstruct(tryBody)
	node.FinallyInstructions = finallyBody

	escape := minForwardEscape(node.Instructions, lastOffset)
	for _, c := range node.Catches {
		if e := minForwardEscape(c.Instructions, lastOffset); e != -1 && (escape == -1 || e < escape) {
			escape = e
		}
	}
	if escape != -1 {
		node.SetTarget(escape)
	} else {
		node.SetDelta(1)
	}
	if returnOffset != -1 && node.Target() > returnOffset {
		node.SetTarget(returnOffset)
	}

	list = instruction.Insert(list, regionStart, node)
	b.log.Debug().Int("offset", r.TryFromOffset).Int("catches", len(node.Catches)).
		Bool("finally", finallyBody != nil).Msg("try block built")
	return list
}

// stripExceptionLoad removes the store that captures the caught
// exception at the head of a catch body and returns the slot it used,
// or -1 when the handler popped the exception instead.
func (b *Builder) stripExceptionLoad(body []instruction.Instruction) ([]instruction.Instruction, int) {
	if len(body) == 0 {
		return body, -1
	}
	switch n := body[0].(type) {
	case *instruction.Store:
		if el, ok := n.Value.(*instruction.ExceptionLoad); ok {
			el.Index = n.Index
			return body[1:], n.Index
		}
	case *instruction.ExceptionLoad:
		return body[1:], n.Index
	case *instruction.Pop:
		if _, ok := n.Value.(*instruction.ExceptionLoad); ok {
			return body[1:], -1
		}
	}
	return body, -1
}

// formatFinally reduces a finally handler to the statements the source
// block contained: the exception store and rethrow go for the modern
// form, the return-address bookkeeping goes for the subroutine form.
func (b *Builder) formatFinally(body []instruction.Instruction, r *ExceptionRange) []instruction.Instruction {
	switch r.Type {
	case Type118Finally, Type118Finally2, Type118FinallyThrow, Type118SynchronizedDouble:
		// Drop the handler trampoline (store exc; jsr; rethrow) that
		// precedes the subroutine body.
		for len(body) > 0 && body[0].Offset() < r.FinallyFromOffset {
			body = body[1:]
		}
		// Subroutine: astore returnAddress ... ret
		if len(body) > 0 {
			if s, ok := body[0].(*instruction.Store); ok {
				if _, isRet := s.Value.(*instruction.RetAddrLoad); isRet {
					body = body[1:]
				}
			} else if _, ok := body[0].(*instruction.RetAddrLoad); ok {
				body = body[1:]
			}
		}
		for i := len(body) - 1; i >= 0; i-- {
			if _, ok := body[i].(*instruction.Ret); ok {
				body = instruction.Remove(body, i)
			}
		}
	default:
		// Handler: astore exc ... athrow exc. The statements between
		// them are the finally block.
		slot := -1
		if len(body) > 0 {
			if s, ok := body[0].(*instruction.Store); ok {
				if _, isExc := s.Value.(*instruction.ExceptionLoad); isExc {
					slot = s.Index
					body = body[1:]
				}
			}
		}
		if n := len(body); n > 0 {
			if t, ok := body[n-1].(*instruction.AThrow); ok {
				if load, isLoad := t.Value.(*instruction.Load); isLoad && (slot == -1 || load.Index == slot) {
					body = body[:n-1]
				}
			}
		}
	}
	return b.reconstruct(body)
}

// spliceInlineFinally removes the duplicated finally statements at the
// tail of a body. In the throw-ending form the copy sits just before
// the final throw, which stays.
func spliceInlineFinally(body []instruction.Instruction, count int, beforeThrow bool) []instruction.Instruction {
	if count == 0 || len(body) < count {
		return body
	}
	if beforeThrow {
		n := len(body)
		if n > count {
			if _, ok := body[n-1].(*instruction.AThrow); ok {
				return append(body[:n-1-count], body[n-1])
			}
		}
		return body
	}
	return body[:len(body)-count]
}

// removeSubroutineCalls strips jsr instructions targeting the finally
// subroutine, and any ret that leaked into a body.
func removeSubroutineCalls(body []instruction.Instruction, subroutineOffset int) []instruction.Instruction {
	for i := len(body) - 1; i >= 0; i-- {
		switch n := body[i].(type) {
		case *instruction.Jsr:
			if subroutineOffset == -1 || n.Target() == subroutineOffset {
				body = instruction.Remove(body, i)
			}
		case *instruction.Ret:
			body = instruction.Remove(body, i)
		}
	}
	return body
}

// trimBridgeGoto drops a trailing goto that only jumps past the region.
func trimBridgeGoto(body []instruction.Instruction, afterOffset int) []instruction.Instruction {
	if n := len(body); n > 0 {
		if g, ok := body[n-1].(*instruction.Goto); ok && g.Target() >= afterOffset {
			return body[:n-1]
		}
	}
	return body
}

func firstLine(list []instruction.Instruction) int {
	if len(list) == 0 {
		return instruction.UnknownLine
	}
	return list[0].LineNumber()
}
