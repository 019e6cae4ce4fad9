package fast

import "github.com/dekaf-io/dekaf/instruction"

// mapTree rewrites an operand tree bottom-up: children are mapped
// first, then fn decides whether to replace the node itself. Nested
// statement blocks are not entered; passes that need those recurse per
// list.
func mapTree(in instruction.Instruction, fn func(instruction.Instruction) instruction.Instruction) instruction.Instruction {
	if in == nil {
		return nil
	}
	switch n := in.(type) {
	case *instruction.Store:
		n.Value = mapTree(n.Value, fn)
	case *instruction.ArrayLoad:
		n.Ref = mapTree(n.Ref, fn)
		n.Index = mapTree(n.Index, fn)
	case *instruction.ArrayStore:
		n.Ref = mapTree(n.Ref, fn)
		n.Index = mapTree(n.Index, fn)
		n.Value = mapTree(n.Value, fn)
	case *instruction.Pop:
		n.Value = mapTree(n.Value, fn)
	case *instruction.Binary:
		n.Left = mapTree(n.Left, fn)
		n.Right = mapTree(n.Right, fn)
	case *instruction.Unary:
		n.Value = mapTree(n.Value, fn)
	case *instruction.Cmp:
		n.Left = mapTree(n.Left, fn)
		n.Right = mapTree(n.Right, fn)
	case *instruction.If:
		n.Value = mapTree(n.Value, fn)
	case *instruction.IfCmp:
		n.Left = mapTree(n.Left, fn)
		n.Right = mapTree(n.Right, fn)
	case *instruction.IfXNull:
		n.Value = mapTree(n.Value, fn)
	case *instruction.ComplexIf:
		for i, branch := range n.Branches {
			n.Branches[i] = mapTree(branch, fn)
		}
	case *instruction.Switch:
		n.Key = mapTree(n.Key, fn)
	case *instruction.Invoke:
		n.Ref = mapTree(n.Ref, fn)
		for i, arg := range n.Args {
			n.Args[i] = mapTree(arg, fn)
		}
	case *instruction.GetField:
		n.Ref = mapTree(n.Ref, fn)
	case *instruction.PutField:
		n.Ref = mapTree(n.Ref, fn)
		n.Value = mapTree(n.Value, fn)
	case *instruction.PutStatic:
		n.Value = mapTree(n.Value, fn)
	case *instruction.NewArray:
		n.Count = mapTree(n.Count, fn)
	case *instruction.ANewArray:
		n.Count = mapTree(n.Count, fn)
	case *instruction.MultiANewArray:
		for i, d := range n.Dimensions {
			n.Dimensions[i] = mapTree(d, fn)
		}
	case *instruction.ArrayLength:
		n.Ref = mapTree(n.Ref, fn)
	case *instruction.AThrow:
		n.Value = mapTree(n.Value, fn)
	case *instruction.XReturn:
		n.Value = mapTree(n.Value, fn)
	case *instruction.CheckCast:
		n.Value = mapTree(n.Value, fn)
	case *instruction.InstanceOf:
		n.Value = mapTree(n.Value, fn)
	case *instruction.MonitorEnter:
		n.Value = mapTree(n.Value, fn)
	case *instruction.MonitorExit:
		n.Value = mapTree(n.Value, fn)
	case *instruction.Convert:
		n.Value = mapTree(n.Value, fn)
	case *instruction.Assignment:
		n.Dest = mapTree(n.Dest, fn)
		n.Value = mapTree(n.Value, fn)
	case *instruction.Ternary:
		n.Test = mapTree(n.Test, fn)
		n.True = mapTree(n.True, fn)
		n.False = mapTree(n.False, fn)
	case *instruction.DupStore:
		n.Value = mapTree(n.Value, fn)
	case *instruction.InitArray:
		n.New = mapTree(n.New, fn)
		for i, v := range n.Values {
			n.Values[i] = mapTree(v, fn)
		}
	case *instruction.Assert:
		n.Test = mapTree(n.Test, fn)
		n.Msg = mapTree(n.Msg, fn)
	case *instruction.Inc:
		n.Value = mapTree(n.Value, fn)
	}
	return fn(in)
}

// mapList applies mapTree to every statement of a list.
func mapList(list []instruction.Instruction, fn func(instruction.Instruction) instruction.Instruction) {
	for i, in := range list {
		list[i] = mapTree(in, fn)
	}
}

// containsNode reports whether the operand tree of in contains a node
// for which pred holds.
func containsNode(in instruction.Instruction, pred func(instruction.Instruction) bool) bool {
	found := false
	instruction.Walk(in, func(n instruction.Instruction) bool {
		if pred(n) {
			found = true
		}
		return !found
	})
	return found
}
