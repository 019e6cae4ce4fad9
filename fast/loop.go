package fast

import (
	"github.com/dekaf-io/dekaf/instruction"
	"github.com/dekaf-io/dekaf/op"
)

// Loop shapes, encoded as a bitset: bit 0 init present, bit 1 test
// present, bit 2 increment present.
const (
	loopInfinite    = 0
	loopInitOnly    = 1
	loopWhile       = 2
	loopForInitTest = 3
	loopForInc      = 4
	loopForInitInc  = 5
	loopForTestInc  = 6
	loopFor         = 7
)

// createLoops walks the list back to front, folding every backward
// branch whose target lies in the current list into a loop node.
// Try/synchronized nodes take part through their region escape jumps.
func (b *Builder) createLoops(list []instruction.Instruction, sc scope) []instruction.Instruction {
	for index := len(list) - 1; index >= 0; index-- {
		if b.failure != nil {
			return list
		}
		if index >= len(list) {
			index = len(list) - 1
			continue
		}
		in := list[index]
		br, ok := in.(instruction.Branch)
		if !ok {
			continue
		}
		target := br.Target()
		if target >= in.Offset() {
			continue
		}
		if target <= sc.beforeList {
			continue // escapes the current list; labeled later
		}
		if sc.loopEntry != -1 && target > sc.beforeLoopEntry && target <= sc.loopEntry {
			continue // continue of the enclosing loop
		}

		list = retargetJumpsToGoto(list, in)

		code := in.Opcode()
		switch {
		case code.IsConditionalBranch():
			list, index = b.analyzeBackIf(list, sc, index, target)
		case code == op.Goto || code == op.Try || code == op.Synchronized:
			list, index = b.analyzeBackGoto(list, sc, index, target)
		}
	}
	return list
}

// retargetJumpsToGoto un-optimizes shared back edges: when an inner
// branch jumps onto this goto instead of carrying its own jump, it gets
// the goto's target directly, so each loop owns a distinct back edge.
func retargetJumpsToGoto(list []instruction.Instruction, jump instruction.Instruction) []instruction.Instruction {
	g, ok := jump.(*instruction.Goto)
	if !ok {
		return list
	}
	for _, in := range list {
		if in == jump {
			continue
		}
		if br, ok := in.(instruction.Branch); ok && br.Target() == g.Offset() {
			br.SetTarget(g.Target())
		}
	}
	return list
}

// analyzeBackIf handles a backward conditional: the do-while family and
// the bottom-test while/for family when a forward jump enters the loop
// over the body.
func (b *Builder) analyzeBackIf(list []instruction.Instruction, sc scope, testIndex, firstOffset int) ([]instruction.Instruction, int) {
	test := list[testIndex]
	firstIndex := instruction.IndexForOffset(list, firstOffset)
	if firstIndex > testIndex {
		b.fail(&BoundsError{Index: firstIndex, Length: len(list)})
		return list, 0
	}

	beforeLoopEntry := sc.beforeList
	if firstIndex > 0 {
		beforeLoopEntry = list[firstIndex-1].Offset()
	}

	body, list := b.extract(list, firstIndex, testIndex)
	if b.failure != nil {
		return list, 0
	}
	testIndex = firstIndex // the test now sits where the body began

	beforeListOffset := sc.beforeList
	if testIndex > 0 {
		beforeListOffset = list[testIndex-1].Offset()
	}
	breakOffset := minForwardEscape(append(body[:len(body):len(body)], test), test.Offset())

	// A branch before the loop that jumps into (lastBody, test] is the
	// compiler's entry jump for a bottom-test while/for.
	var entryJump instruction.Branch
	entryJumpIsGoto := false
	lastBodyOffset := test.Offset()
	if len(body) > 0 {
		lastBodyOffset = instruction.LastOffset(body)
	}
	for i := testIndex - 1; i >= 0; i-- {
		br, ok := list[i].(instruction.Branch)
		if !ok {
			continue
		}
		if t := br.Target(); lastBodyOffset < t && t <= test.Offset() {
			entryJump = br
			_, entryJumpIsGoto = list[i].(*instruction.Goto)
			break
		}
	}

	if entryJump == nil {
		// Bottom test with no entry jump: do-while, degraded to while
		// when the body is empty.
		if len(body) == 0 {
			loop := &instruction.FastLoop{
				Base:         instruction.At(op.While, test.Offset(), test.LineNumber()),
				Test:         test,
				Instructions: nil,
			}
			list[testIndex] = loop
			return list, testIndex
		}
		inner := sc
		inner.beforeLoopEntry = beforeLoopEntry
		inner.loopEntry = test.Offset()
		inner.afterBodyLoop = test.Offset()
		inner.beforeList = beforeListOffset
		inner.afterList = test.Offset()
		inner.breakOffset = breakOffset
		body = b.analyzeList(body, inner)

		loop := &instruction.FastLoop{
			Base:         instruction.At(op.DoWhile, test.Offset(), instruction.UnknownLine),
			Test:         test,
			Instructions: body,
		}
		list[testIndex] = loop
		return list, testIndex
	}

	// Entry jump found: the test really sits at the bottom of a
	// while/for. Drop the goto that carried the entry jump.
	if entryJumpIsGoto {
		for i := testIndex - 1; i >= 0; i-- {
			if list[i] == entryJump {
				list = instruction.Remove(list, i)
				testIndex--
				break
			}
		}
	}

	var beforeLoop instruction.Instruction
	if testIndex > 0 {
		beforeLoop = list[testIndex-1]
	}

	lastBody, beforeLastBody := loopTail(body, nil)
	if lastBody != nil && hasJumpInto(body, lastBody.Offset(), test.Offset()) {
		lastBody, beforeLastBody = nil, nil
	}

	entryOffset := entryJump.Offset()
	switch getLoopKind(beforeLoop, test, beforeLastBody, lastBody) {
	case loopWhile:
		inner := sc
		inner.beforeLoopEntry = beforeLoopEntry
		inner.loopEntry = test.Offset()
		inner.afterBodyLoop = test.Offset()
		inner.beforeList = entryOffset
		inner.afterList = test.Offset()
		inner.breakOffset = breakOffset
		body = b.analyzeList(body, inner)
		list[testIndex] = &instruction.FastLoop{
			Base:         instruction.At(op.While, test.Offset(), test.LineNumber()),
			Test:         test,
			Instructions: body,
		}
		return list, testIndex

	case loopForInitTest:
		init := beforeLoop
		list = instruction.Remove(list, testIndex-1)
		testIndex--
		list = instruction.Remove(list, testIndex) // test joins the header
		inner := sc
		inner.beforeLoopEntry = beforeLoopEntry
		inner.loopEntry = test.Offset()
		inner.afterBodyLoop = test.Offset()
		inner.beforeList = entryOffset
		inner.afterList = test.Offset()
		inner.breakOffset = breakOffset
		body = b.analyzeList(body, inner)
		return b.createForOrForEachIterator(list, testIndex, init, test, nil, body), testIndex

	case loopForTestInc:
		if len(body) == 0 {
			break
		}
		inc := body[len(body)-1]
		body = body[:len(body)-1]
		inner := sc
		inner.beforeLoopEntry = beforeLoopEntry
		inner.loopEntry = inc.Offset()
		inner.afterBodyLoop = inc.Offset()
		inner.beforeList = entryOffset
		inner.afterList = inc.Offset()
		inner.breakOffset = breakOffset
		body = b.analyzeList(body, inner)
		list[testIndex] = &instruction.FastFor{
			Base:         instruction.At(op.For, test.Offset(), test.LineNumber()),
			Test:         test,
			Inc:          inc,
			Instructions: body,
		}
		return list, testIndex

	case loopFor:
		if len(body) == 0 {
			break
		}
		init := beforeLoop
		list = instruction.Remove(list, testIndex-1)
		testIndex--
		list = instruction.Remove(list, testIndex) // test joins the header
		inc := body[len(body)-1]
		body = body[:len(body)-1]
		inner := sc
		inner.beforeLoopEntry = beforeLoopEntry
		inner.loopEntry = inc.Offset()
		inner.afterBodyLoop = inc.Offset()
		inner.beforeList = entryOffset
		inner.afterList = inc.Offset()
		inner.breakOffset = breakOffset
		body = b.analyzeList(body, inner)
		return b.createForOrForEachArray(list, testIndex, init, test, inc, body), testIndex
	}

	// Shapes without a test slot cannot come from a back-if.
	b.fail(&UnexpectedInstructionError{Code: test.Opcode(), Offset: test.Offset()})
	return list, testIndex
}

// analyzeBackGoto handles a backward goto (or the escape jump of a
// try/synchronized node): the infinite loop and top-test loop family.
func (b *Builder) analyzeBackGoto(list []instruction.Instruction, sc scope, jumpIndex, firstOffset int) ([]instruction.Instruction, int) {
	jump := list[jumpIndex]
	firstIndex := instruction.IndexForOffset(list, firstOffset)
	if firstIndex > jumpIndex {
		b.fail(&BoundsError{Index: firstIndex, Length: len(list)})
		return list, 0
	}

	// A try/synchronized node carrying the back edge belongs to the
	// loop body itself.
	bodyEnd := jumpIndex
	switch jump.(type) {
	case *instruction.FastTry, *instruction.FastSynchronized:
		bodyEnd = jumpIndex + 1
	}

	body, list := b.extract(list, firstIndex, bodyEnd)
	if b.failure != nil {
		return list, 0
	}
	nodeIndex := firstIndex
	if bodyEnd == jumpIndex {
		// Drop the goto itself; it is consumed by the loop node.
		list = instruction.Remove(list, nodeIndex)
	}
	if len(body) == 0 {
		list = instruction.Insert(list, nodeIndex, &instruction.FastLoop{
			Base: instruction.At(op.InfiniteLoop, jump.Offset(), instruction.UnknownLine),
		})
		return list, nodeIndex
	}

	var beforeLoop instruction.Instruction
	beforeListOffset := sc.beforeList
	if nodeIndex > 0 {
		beforeLoop = list[nodeIndex-1]
		beforeListOffset = beforeLoop.Offset()
	}

	breakOffset := minForwardEscape(body, jump.Offset())

	// A leading conditional that exits the loop is the top test.
	var test instruction.Instruction
	if body[0].Opcode().IsConditionalBranch() {
		if br, ok := body[0].(instruction.Branch); ok && br.Target() == breakOffset && breakOffset != -1 {
			test = body[0]
		}
	}

	lastBody, beforeLastBody := loopTail(body, test)
	if lastBody != nil && (hasJumpInto(body, lastBody.Offset(), jump.Offset()) ||
		hasJumpInto(body, beforeListOffset, firstOffset)) {
		lastBody, beforeLastBody = nil, nil
	}

	entry := body[0].Offset()
	kind := getLoopKind(beforeLoop, test, beforeLastBody, lastBody)

	switch kind {
	case loopInfinite, loopInitOnly:
		inner := sc
		inner.beforeLoopEntry = beforeListOffset
		inner.loopEntry = entry
		inner.afterBodyLoop = sc.afterList
		inner.beforeList = beforeListOffset
		inner.afterList = sc.afterList
		inner.breakOffset = breakOffset
		body = b.analyzeList(body, inner)
		list = instruction.Insert(list, nodeIndex, &instruction.FastLoop{
			Base:         instruction.At(op.InfiniteLoop, jump.Offset(), instruction.UnknownLine),
			Instructions: body,
		})
		return list, nodeIndex

	case loopWhile, loopForInitTest:
		body = body[1:] // drop the top test
		invertTest(test)
		inner := sc
		inner.beforeLoopEntry = beforeListOffset
		inner.loopEntry = test.Offset()
		inner.afterBodyLoop = sc.afterList
		inner.beforeList = test.Offset()
		inner.afterList = sc.afterList
		inner.breakOffset = breakOffset
		body = b.analyzeList(body, inner)
		if kind == loopForInitTest {
			init := beforeLoop
			list = instruction.Remove(list, nodeIndex-1)
			nodeIndex--
			return b.createForOrForEachIterator(list, nodeIndex, init, test, nil, body), nodeIndex
		}
		list = instruction.Insert(list, nodeIndex, &instruction.FastLoop{
			Base:         instruction.At(op.While, jump.Offset(), test.LineNumber()),
			Test:         test,
			Instructions: body,
		})
		return list, nodeIndex

	case loopForInc, loopForInitInc, loopForTestInc, loopFor:
		var init, inc instruction.Instruction
		if kind == loopForInitInc || kind == loopFor {
			init = beforeLoop
		}
		if kind&2 != 0 && test != nil {
			body = body[1:]
			invertTest(test)
		} else {
			test = nil
		}
		if kind&4 != 0 && len(body) > 0 {
			inc = body[len(body)-1]
			body = body[:len(body)-1]
		}
		if init != nil {
			list = instruction.Remove(list, nodeIndex-1)
			nodeIndex--
		}
		entryOffset := jump.Offset()
		if inc != nil {
			entryOffset = inc.Offset()
		}
		inner := sc
		inner.beforeLoopEntry = beforeListOffset
		inner.loopEntry = entryOffset
		inner.afterBodyLoop = entryOffset
		inner.beforeList = beforeListOffset
		inner.afterList = entryOffset
		inner.breakOffset = breakOffset
		body = b.analyzeList(body, inner)
		if init != nil || test != nil || inc != nil {
			return b.createForOrForEachArray(list, nodeIndex, init, test, inc, body), nodeIndex
		}
		list = instruction.Insert(list, nodeIndex, &instruction.FastLoop{
			Base:         instruction.At(op.InfiniteLoop, jump.Offset(), instruction.UnknownLine),
			Instructions: body,
		})
		return list, nodeIndex
	}
	return list, nodeIndex
}

// loopTail returns the candidate increment (last body statement) and
// its predecessor, skipping the test node when it leads the body.
func loopTail(body []instruction.Instruction, test instruction.Instruction) (lastBody, beforeLastBody instruction.Instruction) {
	n := len(body)
	if n == 0 {
		return nil, nil
	}
	lastBody = body[n-1]
	if lastBody == test {
		return nil, nil
	}
	if n > 1 && body[n-2] != test {
		beforeLastBody = body[n-2]
	}
	return lastBody, beforeLastBody
}

// hasJumpInto reports whether any jump in the body targets (from, to).
// A target strictly inside that window disqualifies the final statement
// from serving as a for-loop increment.
func hasJumpInto(body []instruction.Instruction, from, to int) bool {
	found := false
	instruction.WalkList(body, func(in instruction.Instruction) bool {
		if t, ok := instruction.TargetOf(in); ok && from < t && t < to {
			found = true
		}
		return !found
	})
	return found
}

// getLoopKind classifies a loop from its candidate header parts. Byte
// offsets alone underdetermine the shape, so line numbers break the
// ties; bytecode with a stripped line table keeps the conservative
// answer.
func getLoopKind(beforeLoop, test, beforeLastBody, lastBody instruction.Instruction) int {
	if beforeLoop == nil {
		if test == nil {
			if lastBody == nil {
				return loopInfinite
			}
			if beforeLastBody != nil && beforeLastBody.LineNumber() > lastBody.LineNumber() {
				return loopForInc
			}
			return loopInfinite
		}
		if lastBody != nil && test.LineNumber() != instruction.UnknownLine {
			if test.LineNumber() == lastBody.LineNumber() {
				return loopForTestInc
			}
			return loopWhile
		}
		return loopWhile
	}

	beforeLoop = unwrapAssignment(beforeLoop)

	if test == nil {
		if lastBody == nil {
			return loopInfinite
		}
		lastBody = unwrapAssignment(lastBody)
		if beforeLoop.LineNumber() == instruction.UnknownLine {
			if sameHeaderVariable(beforeLoop, lastBody) {
				return loopForInitInc
			}
			return loopInfinite
		}
		if beforeLoop.LineNumber() == lastBody.LineNumber() {
			return loopForInitInc
		}
		if beforeLastBody != nil && beforeLastBody.LineNumber() > lastBody.LineNumber() {
			return loopForInc
		}
		return loopInfinite
	}

	if lastBody == nil {
		if beforeLoop.LineNumber() == instruction.UnknownLine {
			return loopWhile
		}
		if beforeLoop.LineNumber() == test.LineNumber() {
			return loopForInitTest
		}
		return loopWhile
	}

	lastBody = unwrapAssignment(lastBody)

	if beforeLoop.LineNumber() == instruction.UnknownLine {
		if sameHeaderVariable(beforeLoop, lastBody) {
			return loopFor
		}
		return loopWhile
	}

	if beforeLastBody == nil {
		if beforeLoop.LineNumber() == test.LineNumber() {
			if beforeLoop.LineNumber() == lastBody.LineNumber() {
				return loopFor
			}
			return loopForInitTest
		}
		if test.LineNumber() == lastBody.LineNumber() {
			return loopForTestInc
		}
		return loopWhile
	}

	if beforeLastBody.LineNumber() < lastBody.LineNumber() {
		if beforeLoop.LineNumber() == test.LineNumber() {
			return loopForInitTest
		}
		return loopWhile
	}

	if beforeLoop.LineNumber() == test.LineNumber() {
		return loopFor
	}
	if sameHeaderVariable(beforeLoop, lastBody) {
		return loopFor
	}
	return loopForTestInc
}
