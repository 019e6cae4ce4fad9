package fast

import (
	"github.com/dekaf-io/dekaf/classfile"
	"github.com/dekaf-io/dekaf/instruction"
	"github.com/dekaf-io/dekaf/op"
)

// createForOrForEachIterator builds a for node for the
// `for (init; test;)` shape, specializing into a for-each when the
// iterator pattern of Java 5+ compilers matches. The node is inserted
// at index; init and test were already unlinked from the list.
func (b *Builder) createForOrForEachIterator(list []instruction.Instruction, index int, init, test instruction.Instruction, inc instruction.Instruction, body []instruction.Instruction) []instruction.Instruction {
	offset := maxOffset(init, test)

	if values, ok := b.matchIteratorPattern(init, test, body); ok {
		variable := forEachVariable(body[0])
		body = body[1:]
		node := &instruction.FastForEach{
			Base:         instruction.At(op.ForEach, offset, init.LineNumber()),
			Variable:     variable,
			Values:       values,
			Instructions: body,
		}
		return instruction.Insert(list, index, node)
	}

	node := &instruction.FastFor{
		Base:         instruction.At(op.For, offset, init.LineNumber()),
		Init:         init,
		Test:         test,
		Inc:          inc,
		Instructions: body,
	}
	return instruction.Insert(list, index, node)
}

// createForOrForEachArray builds a for node for the full
// `for (init; test; inc)` shape, specializing into a for-each when one
// of the three array lowerings matches. The node is inserted at index.
func (b *Builder) createForOrForEachArray(list []instruction.Instruction, index int, init, test, inc instruction.Instruction, body []instruction.Instruction) []instruction.Instruction {
	offset := maxOffset(init, test, inc)
	line := instruction.UnknownLine
	if init != nil {
		line = init.LineNumber()
	}

	if init != nil && test != nil && inc != nil {
		if node, shrunk, ok := b.matchArrayPatterns(list, index, init, test, inc, body, offset); ok {
			return instruction.Insert(shrunk, node.index, node.foreach)
		}
	}

	node := &instruction.FastFor{
		Base:         instruction.At(op.For, offset, line),
		Init:         init,
		Test:         test,
		Inc:          inc,
		Instructions: body,
	}
	return instruction.Insert(list, index, node)
}

type forEachMatch struct {
	index   int
	foreach *instruction.FastForEach
}

// matchIteratorPattern recognizes
//
//	for (Iterator it = x.iterator(); it.hasNext(); ) {
//	    T v = (T) it.next();
//
// for class files of major version 49 and later, returning the iterated
// expression. The synthetic iterator slot is purged.
func (b *Builder) matchIteratorPattern(init, test instruction.Instruction, body []instruction.Instruction) (instruction.Instruction, bool) {
	if b.classFile.MajorVersion < classfile.MajorVersion15 || len(body) == 0 {
		return nil, false
	}
	if test.LineNumber() != body[0].LineNumber() {
		return nil, false
	}
	pool := b.classFile.Pool

	storeIt, ok := init.(*instruction.Store)
	if !ok {
		return nil, false
	}
	iter, ok := storeIt.Value.(*instruction.Invoke)
	if !ok || iter.Ref == nil {
		return nil, false
	}
	if pool.MethodName(iter.Index) != "iterator" || pool.MethodDescriptor(iter.Index) != "()Ljava/util/Iterator;" {
		return nil, false
	}

	ifInsn, ok := test.(*instruction.If)
	if !ok {
		return nil, false
	}
	hasNext, ok := ifInsn.Value.(*instruction.Invoke)
	if !ok || !loadOfSlot(hasNext.Ref, storeIt.Index) {
		return nil, false
	}
	if pool.MethodName(hasNext.Index) != "hasNext" || pool.MethodDescriptor(hasNext.Index) != "()Z" {
		return nil, false
	}

	decl, ok := body[0].(*instruction.FastDeclaration)
	if !ok || decl.Instruction == nil {
		return nil, false
	}
	storeVar, ok := decl.Instruction.(*instruction.Store)
	if !ok {
		return nil, false
	}
	value := storeVar.Value
	if cc, isCast := value.(*instruction.CheckCast); isCast {
		value = cc.Value
	}
	next, ok := value.(*instruction.Invoke)
	if !ok || !loadOfSlot(next.Ref, storeIt.Index) {
		return nil, false
	}
	if pool.MethodName(next.Index) != "next" || pool.MethodDescriptor(next.Index) != "()Ljava/lang/Object;" {
		return nil, false
	}

	b.locals.RemoveWithIndexAndOffset(storeIt.Index, storeIt.Offset())
	return iter.Ref, true
}

// matchArrayPatterns recognizes the three vendor lowerings of a
// for-each over an array. Matched synthetic locals are purged; the
// preceding setup stores are unlinked from the list.
func (b *Builder) matchArrayPatterns(list []instruction.Instruction, index int, init, test, inc instruction.Instruction, body []instruction.Instruction, offset int) (forEachMatch, []instruction.Instruction, bool) {
	decl, ok := firstBodyDeclaration(body)
	if !ok {
		return forEachMatch{}, list, false
	}
	storeInit, ok := init.(*instruction.Store)
	if !ok {
		return forEachMatch{}, list, false
	}

	// Sun 1.5: int j = (tmp = arr).length; int i = 0; ... body: v = tmp[i]
	if index >= 1 {
		if prev, ok := list[index-1].(*instruction.Store); ok {
			if al, ok := prev.Value.(*instruction.ArrayLength); ok {
				if assign, ok := al.Ref.(*instruction.Assignment); ok {
					tmpSlot := slotOf(assign.Dest)
					if tmpSlot != -1 && declReadsArray(decl, tmpSlot) && isZeroStore(storeInit) {
						variable := forEachVariable(body[0])
						body = body[1:]
						b.locals.RemoveWithIndexAndOffset(prev.Index, prev.Offset())
						b.locals.RemoveWithIndexAndOffset(storeInit.Index, storeInit.Offset())
						b.locals.RemoveWithIndexAndOffset(tmpSlot, assign.Offset())
						list = instruction.Remove(list, index-1)
						return forEachMatch{
							index: index - 1,
							foreach: &instruction.FastForEach{
								Base:         instruction.At(op.ForEach, offset, variable.LineNumber()),
								Variable:     variable,
								Values:       assign.Value,
								Instructions: body,
							},
						}, list, true
					}
				}
			}
		}
	}

	// Sun 1.6: Object[] arr$ = arr; int len$ = arr$.length; int i$ = 0;
	if index >= 2 {
		lenStore, okLen := list[index-1].(*instruction.Store)
		arrStore, okArr := list[index-2].(*instruction.Store)
		if okLen && okArr && isZeroStore(storeInit) {
			if al, ok := lenStore.Value.(*instruction.ArrayLength); ok && loadOfSlot(al.Ref, arrStore.Index) &&
				declReadsArray(decl, arrStore.Index) && testComparesSlots(test, storeInit.Index, lenStore.Index) {
				variable := forEachVariable(body[0])
				body = body[1:]
				b.locals.RemoveWithIndexAndOffset(lenStore.Index, lenStore.Offset())
				b.locals.RemoveWithIndexAndOffset(storeInit.Index, storeInit.Offset())
				b.locals.RemoveWithIndexAndOffset(arrStore.Index, arrStore.Offset())
				values := arrStore.Value
				list = instruction.Remove(list, index-1)
				list = instruction.Remove(list, index-2)
				return forEachMatch{
					index: index - 2,
					foreach: &instruction.FastForEach{
						Base:         instruction.At(op.ForEach, offset, variable.LineNumber()),
						Variable:     variable,
						Values:       values,
						Instructions: body,
					},
				}, list, true
			}
		}
	}

	// IBM: Object[] tmp = arr; int idx = 0; for (int len = tmp.length; idx < len; idx++)
	if index >= 2 {
		idxStore, okIdx := list[index-1].(*instruction.Store)
		tmpStore, okTmp := list[index-2].(*instruction.Store)
		if okIdx && okTmp && isZeroStore(idxStore) {
			if al, ok := storeInit.Value.(*instruction.ArrayLength); ok && loadOfSlot(al.Ref, tmpStore.Index) &&
				declReadsArray(decl, tmpStore.Index) && testComparesSlots(test, idxStore.Index, storeInit.Index) {
				variable := forEachVariable(body[0])
				body = body[1:]
				b.locals.RemoveWithIndexAndOffset(storeInit.Index, storeInit.Offset())
				b.locals.RemoveWithIndexAndOffset(idxStore.Index, idxStore.Offset())
				b.locals.RemoveWithIndexAndOffset(tmpStore.Index, tmpStore.Offset())
				values := tmpStore.Value
				list = instruction.Remove(list, index-1)
				list = instruction.Remove(list, index-2)
				return forEachMatch{
					index: index - 2,
					foreach: &instruction.FastForEach{
						Base:         instruction.At(op.ForEach, offset, variable.LineNumber()),
						Variable:     variable,
						Values:       values,
						Instructions: body,
					},
				}, list, true
			}
		}
	}

	return forEachMatch{}, list, false
}

// firstBodyDeclaration returns the leading declaration of a loop body.
func firstBodyDeclaration(body []instruction.Instruction) (*instruction.FastDeclaration, bool) {
	if len(body) == 0 {
		return nil, false
	}
	decl, ok := body[0].(*instruction.FastDeclaration)
	return decl, ok
}

// declReadsArray reports whether the declaration's initializer reads
// `array[index]` off the given array slot.
func declReadsArray(decl *instruction.FastDeclaration, arraySlot int) bool {
	if decl.Instruction == nil {
		return false
	}
	s, ok := decl.Instruction.(*instruction.Store)
	if !ok {
		return false
	}
	al, ok := s.Value.(*instruction.ArrayLoad)
	return ok && loadOfSlot(al.Ref, arraySlot)
}

// isZeroStore reports whether the store initializes its slot to 0.
func isZeroStore(s *instruction.Store) bool {
	c, ok := s.Value.(*instruction.IntConst)
	return ok && c.Value == 0
}

// testComparesSlots reports whether the loop test is `left < right`
// over the two given slots.
func testComparesSlots(test instruction.Instruction, left, right int) bool {
	cmp, ok := test.(*instruction.IfCmp)
	if !ok {
		return false
	}
	return cmp.Cond == op.CondLt && loadOfSlot(cmp.Left, left) && loadOfSlot(cmp.Right, right)
}

// forEachVariable turns the leading body declaration into the loop
// variable node: the declaration stays, its initializing store goes.
func forEachVariable(in instruction.Instruction) instruction.Instruction {
	switch n := in.(type) {
	case *instruction.FastDeclaration:
		n.Instruction = nil
		return n
	case *instruction.Store:
		return &instruction.Load{
			Base:  instruction.At(op.Load, n.Offset(), n.LineNumber()),
			Index: n.Index,
		}
	}
	return in
}

func maxOffset(nodes ...instruction.Instruction) int {
	max := -1
	for _, n := range nodes {
		if n != nil && n.Offset() > max {
			max = n.Offset()
		}
	}
	return max
}
