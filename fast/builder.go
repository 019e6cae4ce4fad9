// Package fast rebuilds high-level control flow from a decoded method
// body. The input is a flat, offset-ordered list of instruction trees;
// the output is a nested tree in which every loop, conditional, switch,
// try and synchronized block of the original source is materialized and
// no raw jump instruction survives.
//
// # Pass ordering
//
// The pipeline is ordering-sensitive. Per method it runs:
//
//  1. Exception-range aggregation over the raw exception table.
//  2. Synchronized and try/catch/finally block construction, innermost
//     regions first.
//  3. The ordered expression-reconstruction battery.
//  4. Recursive list analysis: loops, switches, nested try bodies,
//     conditionals, declarations, break/continue rewriting, cleanup.
//  5. Useless-variable removal, redeclaration management and label
//     insertion over the finished tree.
//
// Every pass inside the battery assumes the normal forms produced by
// its predecessors; reordering them is not supported.
package fast

import (
	"github.com/rs/zerolog"

	"github.com/dekaf-io/dekaf/classfile"
	"github.com/dekaf-io/dekaf/instruction"
	"github.com/dekaf-io/dekaf/op"
)

// Config carries the optional collaborators of a build. Pass nil to use
// defaults.
type Config struct {
	// Logger receives per-pass debug output. Defaults to a no-op logger.
	Logger *zerolog.Logger

	// ReferenceMap is the sink for types referenced by reconstructed
	// code. Defaults to a private sink.
	ReferenceMap *classfile.ReferenceMap
}

// Builder reconstructs one method at a time. A Builder must not be
// shared across goroutines; different methods may be analyzed in
// parallel by independent Builders as long as they do not share a
// constant pool.
type Builder struct {
	classFile *classfile.ClassFile
	method    *classfile.Method
	refMap    *classfile.ReferenceMap
	locals    *classfile.LocalVariables
	labels    map[int]struct{}
	log       zerolog.Logger

	// Switch lowering bookkeeping: kinds resolved ahead of case
	// extraction, and the active enum ordinal map.
	switchKinds   map[*instruction.Switch]op.Code
	enumSwitchMap map[int]int

	// Set on the first unrecoverable failure; later passes bail out.
	failure error
}

// scope is the analysis window passed top-down during recursion. All
// offsets default to -1, meaning "not inside such a construct".
type scope struct {
	beforeLoopEntry int // offset just before the enclosing loop entry
	loopEntry       int // first offset of the enclosing loop
	afterBodyLoop   int // offset after the enclosing loop body
	beforeList      int // offset just before the current list
	afterList       int // offset after the current list
	breakOffset     int // target a 'break' would jump to
	returnOffset    int // offset of the method's trailing return
}

func rootScope(returnOffset int) scope {
	return scope{
		beforeLoopEntry: -1,
		loopEntry:       -1,
		afterBodyLoop:   -1,
		beforeList:      -1,
		afterList:       -1,
		breakOffset:     -1,
		returnOffset:    returnOffset,
	}
}

// Build runs the full reconstruction pipeline over a decoded method
// body and returns the analyzed tree. On failure the method is marked
// and the partially analyzed list is returned alongside the error.
func Build(classFile *classfile.ClassFile, method *classfile.Method, list []instruction.Instruction, cfg *Config) ([]instruction.Instruction, error) {
	if len(list) == 0 {
		return list, nil
	}
	b := &Builder{
		classFile: classFile,
		method:    method,
		locals:    method.LocalVariables,
		labels:    map[int]struct{}{},
		log:       zerolog.Nop(),
	}
	if cfg != nil {
		if cfg.Logger != nil {
			b.log = *cfg.Logger
		}
		b.refMap = cfg.ReferenceMap
	}
	if b.refMap == nil {
		b.refMap = classfile.NewReferenceMap()
	}
	if b.locals == nil {
		b.locals = classfile.NewLocalVariables()
	}

	ranges := AggregateExceptions(method, list)
	b.initDeclarationFlags()

	returnOffset := -1
	if last := list[len(list)-1]; last.Opcode() == op.Return {
		returnOffset = last.Offset()
	}

	// Regions are sorted outermost-first; walking the slice backwards
	// builds the innermost regions first, so each outer build sees the
	// inner blocks already folded into single nodes.
	for i := len(ranges) - 1; i >= 0; i-- {
		if b.failure != nil {
			break
		}
		if ranges[i].Synchronized {
			list = b.createSynchronizedBlock(list, ranges[i])
		} else {
			list = b.createFastTry(list, ranges[i], returnOffset)
		}
	}

	if b.failure == nil {
		list = b.reconstruct(list)
		list = b.analyzeList(list, rootScope(returnOffset))
	}

	b.removeUselessLocalVariables()
	manageRedeclaredVariables(list)

	if len(b.labels) > 0 {
		list = b.addLabels(list)
	}

	if b.failure != nil {
		method.ContainsError = true
		b.log.Warn().Err(b.failure).Msg("method reconstruction failed")
		return list, b.failure
	}
	return list, nil
}

// fail records the first unrecoverable failure.
func (b *Builder) fail(err error) {
	if b.failure == nil {
		b.failure = err
	}
}

// analyzeList is the recursive heart of the pipeline: it recognizes
// every construct in one list, recursing into each body it produces.
func (b *Builder) analyzeList(list []instruction.Instruction, sc scope) []instruction.Instruction {
	if b.failure != nil {
		return list
	}

	list = b.createLoops(list, sc)
	list = b.createSwitches(list, sc)
	list = b.analyzeTryAndSynchronized(list, sc)
	list = b.createIfElse(list, sc)
	list = removeNopGoto(list)
	list = b.addDeclarations(list, sc)
	list = removeNoJumpGoto(list, sc.afterList)
	list = b.createBreakAndContinue(list, sc)
	list = cleanUpSingleDupLoads(list)
	list = b.removeSyntheticReturn(list, sc)
	b.addCastInstructionOnReturn(list)

	return list
}

// analyzeTryAndSynchronized recurses into the bodies of try and
// synchronized blocks built before list analysis started. Any raw
// monitor instruction still visible here had no matching aggregated
// region.
func (b *Builder) analyzeTryAndSynchronized(list []instruction.Instruction, sc scope) []instruction.Instruction {
	for index := len(list) - 1; index >= 0; index-- {
		if b.failure != nil {
			return list
		}
		switch n := list[index].(type) {
		case *instruction.FastTry:
			inner := sc
			inner.beforeList = beforeOffset(list, index)
			inner.afterList = afterOffset(list, index, sc.afterList)
			n.Instructions = b.analyzeList(n.Instructions, inner)
			for _, c := range n.Catches {
				c.Instructions = b.analyzeList(c.Instructions, inner)
			}
			if n.FinallyInstructions != nil {
				n.FinallyInstructions = b.analyzeList(n.FinallyInstructions, inner)
			}
		case *instruction.FastSynchronized:
			inner := sc
			inner.beforeList = beforeOffset(list, index)
			inner.afterList = afterOffset(list, index, sc.afterList)
			n.Instructions = b.analyzeList(n.Instructions, inner)
		case *instruction.MonitorEnter, *instruction.MonitorExit:
			b.fail(&UnexpectedInstructionError{Code: list[index].Opcode(), Offset: list[index].Offset()})
			return list
		}
	}
	return list
}

func beforeOffset(list []instruction.Instruction, index int) int {
	if index == 0 {
		return -1
	}
	return list[index-1].Offset()
}

func afterOffset(list []instruction.Instruction, index, fallback int) int {
	if index+1 < len(list) {
		return list[index+1].Offset()
	}
	return fallback
}

// initDeclarationFlags marks method parameters and `this` as already
// declared; every other variable starts undeclared.
func (b *Builder) initDeclarationFlags() {
	for i := 0; i < b.locals.Len(); i++ {
		lv := b.locals.At(i)
		lv.Declared = lv.StartPC == 0 && !lv.ExceptionOrReturnAddress
	}
}

// removeUselessLocalVariables clears the Declared flag of records flagged
// ToBeRemoved during store+return fusion; the records stay in the table.
func (b *Builder) removeUselessLocalVariables() {
	for i := b.locals.Len() - 1; i >= 0; i-- {
		lv := b.locals.At(i)
		if lv.ToBeRemoved && lv.Declared {
			lv.Declared = false
		}
	}
}

// removeNopGoto drops any goto that jumps forward no further than the
// instruction following it.
func removeNopGoto(list []instruction.Instruction) []instruction.Instruction {
	if len(list) < 2 {
		return list
	}
	nextOffset := list[len(list)-1].Offset()
	for index := len(list) - 2; index >= 0; index-- {
		in := list[index]
		if g, ok := in.(*instruction.Goto); ok && g.Delta() >= 0 && g.Target() <= nextOffset {
			list = instruction.Remove(list, index)
		}
		nextOffset = in.Offset()
	}
	return list
}

// removeNoJumpGoto additionally drops a trailing goto that escapes no
// further than the offset right after the list. The JDK 1.1.8 try/catch
// lowering leaves these behind.
func removeNoJumpGoto(list []instruction.Instruction, afterListOffset int) []instruction.Instruction {
	if len(list) == 0 {
		return list
	}
	last := len(list) - 1
	if g, ok := list[last].(*instruction.Goto); ok {
		if g.Delta() >= 0 && g.Target() <= afterListOffset {
			list = instruction.Remove(list, last)
		}
	}
	return removeNopGoto(list)
}

// removeSyntheticReturn drops the compiler-generated trailing return: a
// void return at the very end of the method whose line number is below
// its predecessor's.
func (b *Builder) removeSyntheticReturn(list []instruction.Instruction, sc scope) []instruction.Instruction {
	if len(list) == 0 || (sc.afterList != -1 && sc.afterList != sc.returnOffset) {
		return list
	}
	last := len(list) - 1
	if last > 0 && !lineBelowPredecessor(list, last) {
		return list
	}
	switch n := list[last].(type) {
	case *instruction.Return:
		list = instruction.Remove(list, last)
	case *instruction.FastLabel:
		if _, ok := n.Instruction.(*instruction.Return); ok {
			n.Instruction = nil
		}
	}
	return list
}

func lineBelowPredecessor(list []instruction.Instruction, index int) bool {
	// UnknownLine is -1, so a return with no line entry always counts as
	// below its predecessor.
	return list[index].LineNumber() < list[index-1].LineNumber()
}

// addCastInstructionOnReturn widens `return obj` into `return (T) obj`
// when the value's reconstructed type is Object but the method returns
// something more specific. New pool entries are appended; existing
// indices stay stable.
func (b *Builder) addCastInstructionOnReturn(list []instruction.Instruction) {
	pool := b.classFile.Pool
	descriptor := pool.Utf8(b.method.DescriptorIndex)
	returnSig := methodReturnSignature(descriptor)
	if returnSig == "" || returnSig == "Ljava/lang/Object;" || returnSig[0] != 'L' {
		return
	}
	for i, in := range list {
		ret, ok := in.(*instruction.XReturn)
		if !ok {
			continue
		}
		if load, ok := ret.Value.(*instruction.Load); ok {
			lv := b.locals.Find(load.Index, load.Offset())
			if lv == nil || pool.Utf8(lv.SignatureIndex) != "Ljava/lang/Object;" {
				continue
			}
			classIndex := pool.AddClass(returnSig[1 : len(returnSig)-1])
			b.refMap.Add(returnSig[1 : len(returnSig)-1])
			ret.Value = &instruction.CheckCast{
				Base:  instruction.At(op.CheckCast, load.Offset(), load.LineNumber()),
				Index: classIndex,
				Value: load,
			}
			list[i] = ret
		}
	}
}

// methodReturnSignature extracts the return portion of a method
// descriptor.
func methodReturnSignature(descriptor string) string {
	for i := 0; i < len(descriptor); i++ {
		if descriptor[i] == ')' {
			return descriptor[i+1:]
		}
	}
	return ""
}
