package instruction

// Operands returns the direct operand expressions of a node, without
// descending into nested statement lists (see Blocks for those).
func Operands(in Instruction) []Instruction {
	switch n := in.(type) {
	case *Store:
		return []Instruction{n.Value}
	case *ArrayLoad:
		return []Instruction{n.Ref, n.Index}
	case *ArrayStore:
		return []Instruction{n.Ref, n.Index, n.Value}
	case *Pop:
		return []Instruction{n.Value}
	case *Binary:
		return []Instruction{n.Left, n.Right}
	case *Unary:
		return []Instruction{n.Value}
	case *Cmp:
		return []Instruction{n.Left, n.Right}
	case *If:
		return []Instruction{n.Value}
	case *IfCmp:
		return []Instruction{n.Left, n.Right}
	case *IfXNull:
		return []Instruction{n.Value}
	case *ComplexIf:
		return n.Branches
	case *Switch:
		return []Instruction{n.Key}
	case *Invoke:
		if n.Ref != nil {
			return append([]Instruction{n.Ref}, n.Args...)
		}
		return n.Args
	case *GetField:
		return []Instruction{n.Ref}
	case *PutField:
		return []Instruction{n.Ref, n.Value}
	case *PutStatic:
		return []Instruction{n.Value}
	case *NewArray:
		return []Instruction{n.Count}
	case *ANewArray:
		return []Instruction{n.Count}
	case *MultiANewArray:
		return n.Dimensions
	case *ArrayLength:
		return []Instruction{n.Ref}
	case *AThrow:
		return []Instruction{n.Value}
	case *XReturn:
		return []Instruction{n.Value}
	case *CheckCast:
		return []Instruction{n.Value}
	case *InstanceOf:
		return []Instruction{n.Value}
	case *MonitorEnter:
		return []Instruction{n.Value}
	case *MonitorExit:
		return []Instruction{n.Value}
	case *Convert:
		return []Instruction{n.Value}
	case *Assignment:
		return []Instruction{n.Dest, n.Value}
	case *Ternary:
		return []Instruction{n.Test, n.True, n.False}
	case *DupStore:
		return []Instruction{n.Value}
	case *InitArray:
		return append([]Instruction{n.New}, n.Values...)
	case *Assert:
		if n.Msg != nil {
			return []Instruction{n.Test, n.Msg}
		}
		return []Instruction{n.Test}
	case *Inc:
		return []Instruction{n.Value}
	case *FastDeclaration:
		if n.Instruction != nil {
			return []Instruction{n.Instruction}
		}
	case *FastCondBranch:
		return []Instruction{n.Test}
	case *FastIf:
		return []Instruction{n.Test}
	case *FastIfElse:
		return []Instruction{n.Test}
	case *FastLoop:
		if n.Test != nil {
			return []Instruction{n.Test}
		}
	case *FastFor:
		var ops []Instruction
		for _, h := range []Instruction{n.Init, n.Test, n.Inc} {
			if h != nil {
				ops = append(ops, h)
			}
		}
		return ops
	case *FastForEach:
		return []Instruction{n.Variable, n.Values}
	case *FastSwitch:
		return []Instruction{n.Test}
	case *FastSynchronized:
		return []Instruction{n.Monitor}
	}
	return nil
}

// Walk visits in and every node reachable from it, operands and nested
// blocks included, in pre-order. The visit function returning false
// prunes the subtree.
func Walk(in Instruction, visit func(Instruction) bool) {
	if in == nil || !visit(in) {
		return
	}
	for _, operand := range Operands(in) {
		if operand != nil {
			Walk(operand, visit)
		}
	}
	for _, block := range Blocks(in) {
		for _, nested := range block {
			Walk(nested, visit)
		}
	}
}

// WalkList visits every node of a list as Walk does.
func WalkList(list []Instruction, visit func(Instruction) bool) {
	for _, in := range list {
		Walk(in, visit)
	}
}
