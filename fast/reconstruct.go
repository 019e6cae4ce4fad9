package fast

import (
	"strings"

	"github.com/dekaf-io/dekaf/instruction"
	"github.com/dekaf-io/dekaf/op"
)

// reconstruct runs the ordered expression battery over one list. The
// order is load-bearing: comparison aggregation expects the normal form
// produced by the if+goto collapse, ternary folding feeds the dup
// cleanup, and so on. Do not reorder.
func (b *Builder) reconstruct(list []instruction.Instruction) []instruction.Instruction {
	list = removeEmptySynchronized(list)
	list = b.reconstructClassLiterals(list)
	list = collapseIfGoto(list)
	list = aggregateComparisons(list)
	list = b.reconstructAsserts(list)
	list = reconstructTernaries(list)
	list = foldArrayInitializers(list)
	list = foldCompoundAssignments(list)
	list = cleanUpDups(list)
	return list
}

// removeEmptySynchronized drops monitorenter/monitorexit pairs that
// bracket no instructions, a shape Jikes emits for empty synchronized
// blocks.
func removeEmptySynchronized(list []instruction.Instruction) []instruction.Instruction {
	for i := len(list) - 2; i >= 0; i-- {
		if i+1 >= len(list) {
			continue
		}
		if _, ok := list[i].(*instruction.MonitorEnter); !ok {
			continue
		}
		if _, ok := list[i+1].(*instruction.MonitorExit); !ok {
			continue
		}
		list = instruction.Remove(list, i+1)
		list = instruction.Remove(list, i)
	}
	return list
}

// reconstructClassLiterals recognizes the synthetic class$ helper
// idiom pre-1.5 compilers (and Eclipse) emit for `.class` literals and
// replaces the whole cached-field dance with a literal node.
func (b *Builder) reconstructClassLiterals(list []instruction.Instruction) []instruction.Instruction {
	pool := b.classFile.Pool
	mapList(list, func(in instruction.Instruction) instruction.Instruction {
		switch n := in.(type) {
		case *instruction.Invoke:
			name := pool.MethodName(n.Index)
			if (name == "class$" || name == "class$$") && len(n.Args) == 1 {
				if ldc, ok := n.Args[0].(*instruction.Ldc); ok {
					dotted := pool.StringValue(ldc.Index)
					if dotted != "" {
						internal := strings.ReplaceAll(dotted, ".", "/")
						b.refMap.Add(internal)
						return &instruction.ClassLiteral{
							Base:           instruction.At(op.ClassLiteral, n.Offset(), n.LineNumber()),
							SignatureIndex: pool.AddUtf8("L" + internal + ";"),
						}
					}
				}
			}
		case *instruction.Ternary:
			// After the invoke collapsed, the caching ternary reads
			// `class$X == null ? (class$X = <literal>) : class$X`.
			lit := findClassLiteral(n.True)
			if lit == nil {
				lit = findClassLiteral(n.False)
			}
			if lit != nil && referencesClassCacheField(n, pool.FieldName) {
				lit.SetOffset(n.Offset())
				lit.SetLineNumber(n.LineNumber())
				return lit
			}
		}
		return in
	})
	return list
}

func findClassLiteral(in instruction.Instruction) *instruction.ClassLiteral {
	var lit *instruction.ClassLiteral
	instruction.Walk(in, func(n instruction.Instruction) bool {
		if cl, ok := n.(*instruction.ClassLiteral); ok {
			lit = cl
			return false
		}
		return true
	})
	return lit
}

func referencesClassCacheField(in instruction.Instruction, fieldName func(int) string) bool {
	return containsNode(in, func(n instruction.Instruction) bool {
		if fi := fieldIndexOf(n); fi != -1 {
			return strings.HasPrefix(fieldName(fi), "class$")
		}
		return false
	})
}

// collapseIfGoto rewrites `if COND goto L1; goto L2; L1:` into a
// single inverted conditional jumping to L2.
func collapseIfGoto(list []instruction.Instruction) []instruction.Instruction {
	for i := 0; i+2 < len(list); i++ {
		test, ok := list[i].(instruction.Branch)
		if !ok || !list[i].Opcode().IsConditionalBranch() {
			continue
		}
		g, ok := list[i+1].(*instruction.Goto)
		if !ok || g.Delta() <= 0 {
			continue // backward gotos are loop edges, not else jumps
		}
		if test.Target() != list[i+2].Offset() {
			continue
		}
		invertTest(list[i])
		test.SetTarget(g.Target())
		list = instruction.Remove(list, i+1)
	}
	return list
}

// aggregateComparisons merges a three-way comparison feeding an integer
// branch into a single compare-and-branch node. The branch condition
// applies to the comparison result against zero, so it transfers to the
// operands unchanged.
func aggregateComparisons(list []instruction.Instruction) []instruction.Instruction {
	for i, in := range list {
		ifInsn, ok := in.(*instruction.If)
		if !ok {
			continue
		}
		cmp, ok := ifInsn.Value.(*instruction.Cmp)
		if !ok {
			continue
		}
		list[i] = &instruction.IfCmp{
			Jump: instruction.Jump{
				Base:      instruction.At(op.IfCmp, ifInsn.Offset(), ifInsn.LineNumber()),
				JumpDelta: ifInsn.Delta(),
			},
			Cond:  ifInsn.Cond,
			Left:  cmp.Left,
			Right: cmp.Right,
		}
	}
	return list
}

// reconstructAsserts folds the $assertionsDisabled guard followed by a
// conditional AssertionError throw into an assert node.
func (b *Builder) reconstructAsserts(list []instruction.Instruction) []instruction.Instruction {
	pool := b.classFile.Pool
	for i := 0; i+1 < len(list); i++ {
		branch, ok := list[i].(instruction.Branch)
		if !ok || !list[i].Opcode().IsConditionalBranch() {
			continue
		}
		throw, ok := list[i+1].(*instruction.AThrow)
		if !ok || branch.Target() <= throw.Offset() {
			continue
		}
		if !referencesAssertionGuard(list[i], pool.FieldName) {
			continue
		}
		ctor, ok := throw.Value.(*instruction.Invoke)
		if !ok {
			continue
		}
		if _, isNew := ctor.Ref.(*instruction.New); !isNew {
			continue
		}
		if pool.MethodClassName(ctor.Index) != "java/lang/AssertionError" {
			continue
		}

		test := stripAssertionGuard(list[i])
		if test != nil {
			invertTest(test)
		}
		var msg instruction.Instruction
		if len(ctor.Args) > 0 {
			msg = ctor.Args[0]
		}
		list[i] = &instruction.Assert{
			Base: instruction.At(op.Assert, list[i].Offset(), list[i].LineNumber()),
			Test: test,
			Msg:  msg,
		}
		list = instruction.Remove(list, i+1)
	}
	return list
}

func referencesAssertionGuard(in instruction.Instruction, fieldName func(int) string) bool {
	return containsNode(in, func(n instruction.Instruction) bool {
		if gs, ok := n.(*instruction.GetStatic); ok {
			return strings.HasPrefix(fieldName(gs.Index), "$assertionsDisabled")
		}
		return false
	})
}

// stripAssertionGuard removes the $assertionsDisabled test from a
// conditional, returning the remaining condition or nil when the guard
// was the whole test (a bare `assert false`).
func stripAssertionGuard(in instruction.Instruction) instruction.Instruction {
	ci, ok := in.(*instruction.ComplexIf)
	if !ok {
		return nil
	}
	rest := make([]instruction.Instruction, 0, len(ci.Branches))
	for _, branch := range ci.Branches {
		if isAssertionGuardBranch(branch) {
			continue
		}
		rest = append(rest, branch)
	}
	switch len(rest) {
	case 0:
		return nil
	case 1:
		return rest[0]
	default:
		ci.Branches = rest
		return ci
	}
}

func isAssertionGuardBranch(in instruction.Instruction) bool {
	ifInsn, ok := in.(*instruction.If)
	if !ok {
		return false
	}
	_, ok = ifInsn.Value.(*instruction.GetStatic)
	return ok
}

// reconstructTernaries recognizes the two converging dup-captured
// branches of `cond ? a : b` and folds them into a single expression
// at the consumer.
func reconstructTernaries(list []instruction.Instruction) []instruction.Instruction {
	for i := 0; i+3 < len(list); i++ {
		branch, ok := list[i].(instruction.Branch)
		if !ok || !list[i].Opcode().IsConditionalBranch() {
			continue
		}
		d1, ok := list[i+1].(*instruction.DupStore)
		if !ok {
			continue
		}
		g, ok := list[i+2].(*instruction.Goto)
		if !ok {
			continue
		}
		d2, ok := list[i+3].(*instruction.DupStore)
		if !ok || branch.Target() != d2.Offset() {
			continue
		}
		if i+4 < len(list) && g.Target() != list[i+4].Offset() {
			continue
		}

		invertTest(list[i])
		ternary := &instruction.Ternary{
			Base:  instruction.At(op.TernaryOp, list[i].Offset(), list[i].LineNumber()),
			Test:  list[i],
			True:  d1.Value,
			False: d2.Value,
		}
		rest := list[i+4:]
		mapList(rest, func(in instruction.Instruction) instruction.Instruction {
			if dl, ok := in.(*instruction.DupLoad); ok && (dl.Store == d1 || dl.Store == d2) {
				return ternary
			}
			return in
		})
		list = append(list[:i], list[i+4:]...)
	}
	return list
}

// foldArrayInitializers collapses a stored array allocation followed by
// per-index element stores into a single array literal.
func foldArrayInitializers(list []instruction.Instruction) []instruction.Instruction {
	for i := 0; i < len(list); i++ {
		var alloc instruction.Instruction
		var matches func(ref instruction.Instruction) bool

		switch n := list[i].(type) {
		case *instruction.Store:
			if isArrayAlloc(n.Value) {
				alloc = n.Value
				slot := n.Index
				matches = func(ref instruction.Instruction) bool { return loadOfSlot(ref, slot) }
			}
		case *instruction.DupStore:
			if isArrayAlloc(n.Value) {
				alloc = n.Value
				ds := n
				matches = func(ref instruction.Instruction) bool {
					dl, ok := ref.(*instruction.DupLoad)
					return ok && dl.Store == ds
				}
			}
		}
		if alloc == nil {
			continue
		}

		var values []instruction.Instruction
		j := i + 1
		for ; j < len(list); j++ {
			as, ok := list[j].(*instruction.ArrayStore)
			if !ok || !matches(as.Ref) {
				break
			}
			idx, ok := as.Index.(*instruction.IntConst)
			if !ok || int(idx.Value) != len(values) {
				break
			}
			values = append(values, as.Value)
		}
		if len(values) == 0 {
			continue
		}

		init := &instruction.InitArray{
			Base:   instruction.At(op.InitArray, alloc.Offset(), alloc.LineNumber()),
			New:    alloc,
			Values: values,
		}
		switch n := list[i].(type) {
		case *instruction.Store:
			n.Value = init
		case *instruction.DupStore:
			n.Value = init
		}
		list = append(list[:i+1], list[j:]...)
	}
	return list
}

func isArrayAlloc(in instruction.Instruction) bool {
	switch in.(type) {
	case *instruction.NewArray, *instruction.ANewArray:
		return true
	}
	return false
}

// foldCompoundAssignments rewrites `x = x OP expr` into `x OP= expr`,
// and normalizes constant add/sub into increment nodes.
func foldCompoundAssignments(list []instruction.Instruction) []instruction.Instruction {
	for i, in := range list {
		s, ok := in.(*instruction.Store)
		if !ok {
			continue
		}
		bin, ok := s.Value.(*instruction.Binary)
		if !ok || !loadOfSlot(bin.Left, s.Index) {
			continue
		}
		if c, isConst := bin.Right.(*instruction.IntConst); isConst && (bin.Operator == "+" || bin.Operator == "-") {
			count := int(c.Value)
			if bin.Operator == "-" {
				count = -count
			}
			list[i] = &instruction.Inc{
				Base:  instruction.At(op.PreInc, s.Offset(), s.LineNumber()),
				Value: bin.Left,
				Count: count,
			}
			continue
		}
		list[i] = &instruction.Assignment{
			Base:     instruction.At(op.Assignment, s.Offset(), s.LineNumber()),
			Operator: bin.Operator + "=",
			Dest:     bin.Left,
			Value:    bin.Right,
		}
	}
	return list
}

// cleanUpDups resolves leftover dup captures: a DupStore with a single
// remaining DupLoad is inlined at the load; one with none degrades to a
// bare expression statement.
func cleanUpDups(list []instruction.Instruction) []instruction.Instruction {
	for i := len(list) - 1; i >= 0; i-- {
		ds, ok := list[i].(*instruction.DupStore)
		if !ok {
			continue
		}
		var uses []*instruction.DupLoad
		for j, other := range list {
			if j == i {
				continue
			}
			instruction.Walk(other, func(n instruction.Instruction) bool {
				if dl, ok := n.(*instruction.DupLoad); ok && dl.Store == ds {
					uses = append(uses, dl)
				}
				return true
			})
		}
		switch len(uses) {
		case 0:
			list[i] = ds.Value
		case 1:
			mapList(list, func(in instruction.Instruction) instruction.Instruction {
				if dl, ok := in.(*instruction.DupLoad); ok && dl.Store == ds {
					return ds.Value
				}
				return in
			})
			list = instruction.Remove(list, i)
		}
	}
	return list
}

// cleanUpSingleDupLoads is the post-analysis alias of the dup cleanup,
// run once per analyzed list.
func cleanUpSingleDupLoads(list []instruction.Instruction) []instruction.Instruction {
	return cleanUpDups(list)
}
