package fast

import (
	"github.com/dekaf-io/dekaf/classfile"
	"github.com/dekaf-io/dekaf/instruction"
	"github.com/dekaf-io/dekaf/op"
)

// Test fixtures build decoded statement lists by hand. Statement nodes
// carry the offset of their final bytecode, the way the upstream
// decoder emits them.

func newClassFile(major int) *classfile.ClassFile {
	return &classfile.ClassFile{
		MajorVersion: major,
		Pool:         classfile.NewConstantPool(),
	}
}

func newMethod(vars ...*classfile.LocalVariable) *classfile.Method {
	lvs := classfile.NewLocalVariables()
	for _, lv := range vars {
		lvs.Add(lv)
	}
	return &classfile.Method{LocalVariables: lvs}
}

func iconst(off, line int, v int32) *instruction.IntConst {
	return &instruction.IntConst{Base: instruction.At(op.IConst, off, line), Value: v}
}

func iload(off, line, index int) *instruction.Load {
	return &instruction.Load{Base: instruction.At(op.ILoad, off, line), Index: index}
}

func aload(off, line, index int) *instruction.Load {
	return &instruction.Load{Base: instruction.At(op.ALoad, off, line), Index: index}
}

func istore(off, line, index int, value instruction.Instruction) *instruction.Store {
	return &instruction.Store{Base: instruction.At(op.IStore, off, line), Index: index, Value: value}
}

func astore(off, line, index int, value instruction.Instruction) *instruction.Store {
	return &instruction.Store{Base: instruction.At(op.AStore, off, line), Index: index, Value: value}
}

func iincOf(off, line, index, count int) *instruction.IInc {
	return &instruction.IInc{Base: instruction.At(op.IInc, off, line), Index: index, Count: count}
}

func ifcmp(off, line int, cond op.Cond, left, right instruction.Instruction, target int) *instruction.IfCmp {
	return &instruction.IfCmp{
		Jump: instruction.Jump{Base: instruction.At(op.IfCmp, off, line), JumpDelta: target - off},
		Cond: cond, Left: left, Right: right,
	}
}

func ifOf(off, line int, cond op.Cond, value instruction.Instruction, target int) *instruction.If {
	return &instruction.If{
		Jump: instruction.Jump{Base: instruction.At(op.If, off, line), JumpDelta: target - off},
		Cond: cond, Value: value,
	}
}

func gotoOf(off, line, target int) *instruction.Goto {
	return &instruction.Goto{Jump: instruction.Jump{Base: instruction.At(op.Goto, off, line), JumpDelta: target - off}}
}

func retOf(off, line int) *instruction.Return {
	return &instruction.Return{Base: instruction.At(op.Return, off, line)}
}

func invokeOf(off, line, index int, ref instruction.Instruction, args ...instruction.Instruction) *instruction.Invoke {
	return &instruction.Invoke{Base: instruction.At(op.InvokeVirtual, off, line), Index: index, Ref: ref, Args: args}
}

func arrayLengthOf(off, line int, ref instruction.Instruction) *instruction.ArrayLength {
	return &instruction.ArrayLength{Base: instruction.At(op.ArrayLength, off, line), Ref: ref}
}

func arrayLoadOf(off, line int, ref, index instruction.Instruction) *instruction.ArrayLoad {
	return &instruction.ArrayLoad{Base: instruction.At(op.AALoad, off, line), Ref: ref, Index: index}
}

// methodref registers class.name(descriptor) and returns its pool
// index.
func methodref(pool *classfile.ConstantPool, class, name, descriptor string) int {
	return pool.Add(&classfile.ConstantMethodref{
		ClassIndex:       pool.AddClass(class),
		NameAndTypeIndex: pool.AddNameAndType(name, descriptor),
	})
}

// fieldref registers class.name and returns its pool index.
func fieldref(pool *classfile.ConstantPool, class, name, descriptor string) int {
	return pool.AddFieldref(class, name, descriptor)
}

// countOpcodes tallies every opcode reachable in a tree.
func countOpcodes(list []instruction.Instruction) map[op.Code]int {
	counts := map[op.Code]int{}
	instruction.WalkList(list, func(in instruction.Instruction) bool {
		counts[in.Opcode()]++
		return true
	})
	return counts
}

// rawJumpCount supports the universal invariant: no goto, jsr, ret or
// monitor instruction survives reconstruction.
func rawJumpCount(list []instruction.Instruction) int {
	counts := countOpcodes(list)
	return counts[op.Goto] + counts[op.Jsr] + counts[op.Ret] +
		counts[op.MonitorEnter] + counts[op.MonitorExit]
}

// offsetsSorted reports whether every list in the tree stays strictly
// offset-ordered.
func offsetsSorted(list []instruction.Instruction) bool {
	for i := 1; i < len(list); i++ {
		if list[i-1].Offset() >= list[i].Offset() {
			return false
		}
	}
	for _, in := range list {
		for _, block := range instruction.Blocks(in) {
			if !offsetsSorted(block) {
				return false
			}
		}
	}
	return true
}
