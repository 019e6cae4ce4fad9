package fast

import (
	"github.com/dekaf-io/dekaf/instruction"
	"github.com/dekaf-io/dekaf/op"
)

// createIfElse turns forward conditional jumps into if / if-else /
// if-break / if-continue nodes. Chained `else if` falls out of the
// recursion: the else body starts with another conditional and is
// analyzed under its own scope.
func (b *Builder) createIfElse(list []instruction.Instruction, sc scope) []instruction.Instruction {
	for index := 0; index < len(list); index++ {
		if b.failure != nil {
			return list
		}
		in := list[index]
		if !in.Opcode().IsConditionalBranch() {
			continue
		}
		br, ok := in.(instruction.Branch)
		if !ok {
			continue
		}
		elseOffset := br.Target()
		if elseOffset <= in.Offset() {
			continue // back edges belong to the loop recognizer
		}

		// A jump to the enclosing loop entry is a continue, taken when
		// the encoded condition holds.
		if sc.loopEntry != -1 && sc.beforeLoopEntry < elseOffset && elseOffset <= sc.loopEntry {
			list[index] = &instruction.FastCondBranch{
				Jump: instruction.Jump{Base: instruction.At(op.IfContinue, in.Offset(), in.LineNumber()), JumpDelta: br.Delta()},
				Test: in,
			}
			continue
		}

		// A jump to the enclosing break target is a break.
		if elseOffset == sc.breakOffset {
			list[index] = &instruction.FastCondBranch{
				Jump: instruction.Jump{Base: instruction.At(op.IfBreak, in.Offset(), in.LineNumber()), JumpDelta: br.Delta()},
				Test: in,
			}
			continue
		}

		endIndex := instruction.IndexForOffset(list, elseOffset)
		inList := elseOffset <= instruction.LastOffset(list)+1 &&
			(sc.afterList == -1 || elseOffset <= sc.afterList)

		if !inList {
			// Method-ending return duplication beats a labeled break.
			if dup := b.duplicateReturnAt(elseOffset, sc); dup != nil {
				list[index] = &instruction.FastIf{
					Base:         instruction.At(op.IfSimple, in.Offset(), in.LineNumber()),
					Test:         in,
					Instructions: []instruction.Instruction{dup},
				}
				continue
			}
			b.labels[elseOffset] = struct{}{}
			list[index] = &instruction.FastCondBranch{
				Jump: instruction.Jump{Base: instruction.At(op.IfLabeledBreak, in.Offset(), in.LineNumber()), JumpDelta: br.Delta()},
				Test: in,
			}
			continue
		}

		body, shrunk := b.extract(list, index+1, endIndex)
		if b.failure != nil {
			return list
		}
		list = shrunk

		// A trailing forward goto marks the else branch.
		var elseBody []instruction.Instruction
		if n := len(body); n > 0 {
			if g, ok := body[n-1].(*instruction.Goto); ok {
				jumpOffset := g.Target()
				if jumpOffset > elseOffset && jumpOffset <= instruction.LastOffset(list)+1 &&
					(sc.afterList == -1 || jumpOffset <= sc.afterList) {
					body = body[:n-1]
					elseEnd := instruction.IndexForOffset(list, jumpOffset)
					elseBody, list = b.extract(list, index+1, elseEnd)
					if b.failure != nil {
						return list
					}
				}
			}
		}

		inner := sc
		inner.beforeList = in.Offset()
		inner.afterList = elseOffset
		body = b.analyzeList(body, inner)

		if elseBody != nil {
			invertTest(in)
			elseScope := sc
			elseScope.beforeList = elseOffset
			elseScope.afterList = instruction.LastOffset(elseBody) + 1
			elseBody = b.analyzeList(elseBody, elseScope)
			list[index] = &instruction.FastIfElse{
				Base:             instruction.At(op.IfElse, in.Offset(), in.LineNumber()),
				Test:             in,
				Instructions:     body,
				ElseInstructions: elseBody,
			}
			continue
		}

		invertTest(in)
		list[index] = &instruction.FastIf{
			Base:         instruction.At(op.IfSimple, in.Offset(), in.LineNumber()),
			Test:         in,
			Instructions: body,
		}
	}
	return list
}

// duplicateReturnAt returns a copy of the method-ending return sequence
// the offset points at, or nil when the target is not such a sequence.
// Duplicating the return instead of labeling it keeps single-exit
// methods readable.
func (b *Builder) duplicateReturnAt(offset int, sc scope) instruction.Instruction {
	if offset != sc.returnOffset || sc.returnOffset == -1 {
		return nil
	}
	return &instruction.Return{Base: instruction.At(op.Return, offset, instruction.UnknownLine)}
}
