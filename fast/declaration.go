package fast

import (
	"github.com/dekaf-io/dekaf/classfile"
	"github.com/dekaf-io/dekaf/instruction"
	"github.com/dekaf-io/dekaf/op"
)

// addDeclarations inserts local-variable declarations at the narrowest
// enclosing block. Inner lists run first during recursion, so a
// variable whose live range fits a nested block is claimed there before
// an outer list ever sees it.
func (b *Builder) addDeclarations(list []instruction.Instruction, sc scope) []instruction.Instruction {
	if len(list) == 0 {
		return list
	}
	lastOffset := instruction.LastOffset(list)

	// Stores first: a store of an undeclared variable whose range fits
	// the list becomes the declaration point.
	for i := 0; i < len(list); i++ {
		switch n := list[i].(type) {
		case *instruction.Store:
			lv := b.declarableVariable(n.Index, n.Offset(), sc, lastOffset)
			if lv == nil {
				continue
			}
			// store; return-of-same-slot on the same line folds into a
			// single `return expr` and the variable vanishes.
			if i+1 < len(list) {
				if ret, ok := list[i+1].(*instruction.XReturn); ok && ret.LineNumber() == n.LineNumber() {
					if loadOfSlot(ret.Value, n.Index) {
						ret.Value = n.Value
						lv.ToBeRemoved = true
						lv.Declared = true
						list = instruction.Remove(list, i)
						i--
						continue
					}
				}
			}
			lv.Declared = true
			list[i] = &instruction.FastDeclaration{
				Base:        instruction.At(op.Declare, n.Offset(), n.LineNumber()),
				Variable:    lv,
				Instruction: n,
			}
		case *instruction.FastFor:
			if s, ok := n.Init.(*instruction.Store); ok {
				lv := b.declarableVariable(s.Index, s.Offset(), sc, lastOffset)
				if lv != nil {
					lv.Declared = true
					n.Init = &instruction.FastDeclaration{
						Base:        instruction.At(op.Declare, s.Offset(), s.LineNumber()),
						Variable:    lv,
						Instruction: s,
					}
				}
			}
		}
	}

	// Orphans second: variables never stored in this list but scoped to
	// it get a bare declaration at their start offset.
	for i := 0; i < b.locals.Len(); i++ {
		lv := b.locals.At(i)
		if lv.Declared || lv.ToBeRemoved || lv.ExceptionOrReturnAddress {
			continue
		}
		if lv.StartPC <= sc.beforeList || lv.StartPC+lv.Length > lastOffset+1 {
			continue
		}
		lv.Declared = true
		decl := &instruction.FastDeclaration{
			Base:     instruction.At(op.Declare, lv.StartPC, instruction.UnknownLine),
			Variable: lv,
		}
		list = instruction.Insert(list, instruction.IndexForOffset(list, lv.StartPC), decl)
	}
	return list
}

// declarableVariable returns the still-undeclared variable stored at
// the given slot and offset when its whole live range fits the current
// list.
func (b *Builder) declarableVariable(slot, offset int, sc scope, lastOffset int) *classfile.LocalVariable {
	lv := b.locals.Find(slot, offset)
	if lv == nil || lv.Declared || lv.ToBeRemoved || lv.ExceptionOrReturnAddress {
		return nil
	}
	if lv.StartPC <= sc.beforeList || lv.StartPC+lv.Length > lastOffset+1 {
		return nil
	}
	return lv
}

// createBreakAndContinue rewrites every jump the structure passes left
// behind: continues to the loop entry, breaks to the break target,
// inlined returns, and labeled breaks for everything else.
func (b *Builder) createBreakAndContinue(list []instruction.Instruction, sc scope) []instruction.Instruction {
	for index := 0; index < len(list); index++ {
		in := list[index]
		switch {
		case in.Opcode().IsConditionalBranch():
			br, ok := in.(instruction.Branch)
			if !ok {
				continue
			}
			target := br.Target()
			switch {
			case sc.loopEntry != -1 && sc.beforeLoopEntry < target && target <= sc.loopEntry:
				list[index] = &instruction.FastCondBranch{
					Jump: instruction.Jump{Base: instruction.At(op.IfContinue, in.Offset(), in.LineNumber()), JumpDelta: br.Delta()},
					Test: in,
				}
			case target == sc.breakOffset:
				list[index] = &instruction.FastCondBranch{
					Jump: instruction.Jump{Base: instruction.At(op.IfBreak, in.Offset(), in.LineNumber()), JumpDelta: br.Delta()},
					Test: in,
				}
			default:
				b.labels[target] = struct{}{}
				list[index] = &instruction.FastCondBranch{
					Jump: instruction.Jump{Base: instruction.At(op.IfLabeledBreak, in.Offset(), in.LineNumber()), JumpDelta: br.Delta()},
					Test: in,
				}
			}

		case in.Opcode() == op.Goto:
			g := in.(*instruction.Goto)
			target := g.Target()
			switch {
			case sc.loopEntry != -1 && sc.beforeLoopEntry < target && target <= sc.loopEntry:
				if index == len(list)-1 {
					// A trailing continue is implicit.
					list = instruction.Remove(list, index)
					index--
					continue
				}
				list[index] = &instruction.FastGoto{
					Jump: instruction.Jump{Base: instruction.At(op.GotoContinue, g.Offset(), g.LineNumber()), JumpDelta: g.Delta()},
				}
			case target == sc.breakOffset:
				list[index] = &instruction.FastGoto{
					Jump: instruction.Jump{Base: instruction.At(op.GotoBreak, g.Offset(), g.LineNumber()), JumpDelta: g.Delta()},
				}
			case target == sc.returnOffset && sc.returnOffset != -1:
				list[index] = &instruction.Return{Base: instruction.At(op.Return, g.Offset(), g.LineNumber())}
			default:
				b.labels[target] = struct{}{}
				list[index] = &instruction.FastGoto{
					Jump: instruction.Jump{Base: instruction.At(op.GotoLabeledBreak, g.Offset(), g.LineNumber()), JumpDelta: g.Delta()},
				}
			}
		}
	}
	return list
}

// addLabels wraps, for every registered target offset, the deepest node
// found at that offset in a FastLabel.
func (b *Builder) addLabels(list []instruction.Instruction) []instruction.Instruction {
	for offset := range b.labels {
		wrapLabelAt(list, offset)
	}
	return list
}

// wrapLabelAt descends the tree to the deepest block containing a node
// at the offset and wraps it. Reports whether a node was wrapped.
func wrapLabelAt(list []instruction.Instruction, offset int) bool {
	for i, in := range list {
		// Prefer the deepest match: try nested blocks first.
		for _, block := range instruction.Blocks(in) {
			if wrapLabelAt(block, offset) {
				return true
			}
		}
		if in.Offset() == offset {
			if _, already := in.(*instruction.FastLabel); already {
				return true
			}
			list[i] = &instruction.FastLabel{
				Base:        instruction.At(op.Label, offset, in.LineNumber()),
				Instruction: in,
			}
			return true
		}
	}
	return false
}

// manageRedeclaredVariables strips declarations of a slot already
// declared in an enclosing scope, leaving the initializing store as a
// plain assignment. Declaration sets pass down as value snapshots, so
// sibling blocks never see each other's declarations.
func manageRedeclaredVariables(list []instruction.Instruction) {
	redeclared(map[int]struct{}{}, list)
}

func redeclared(outside map[int]struct{}, list []instruction.Instruction) {
	inside := map[int]struct{}{}
	for i := 0; i < len(list); i++ {
		switch n := list[i].(type) {
		case *instruction.FastDeclaration:
			slot := n.Variable.Index
			if _, dup := outside[slot]; dup {
				if n.Instruction != nil {
					list[i] = n.Instruction
				}
				continue
			}
			inside[slot] = struct{}{}
		default:
			merged := mergeSlotSets(outside, inside)
			for _, block := range instruction.Blocks(list[i]) {
				redeclared(merged, block)
			}
		}
	}
}

func mergeSlotSets(a, b map[int]struct{}) map[int]struct{} {
	merged := make(map[int]struct{}, len(a)+len(b))
	for k := range a {
		merged[k] = struct{}{}
	}
	for k := range b {
		merged[k] = struct{}{}
	}
	return merged
}
