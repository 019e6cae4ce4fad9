package dekaf

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dekaf-io/dekaf/classfile"
	"github.com/dekaf-io/dekaf/instruction"
	"github.com/dekaf-io/dekaf/op"
)

func whileMethod() (*classfile.ClassFile, *classfile.Method, []instruction.Instruction) {
	cf := &classfile.ClassFile{MajorVersion: 50, Pool: classfile.NewConstantPool()}
	lvs := classfile.NewLocalVariables()
	lvs.Add(&classfile.LocalVariable{Index: 1, StartPC: 1, Length: 14})
	m := &classfile.Method{LocalVariables: lvs}
	list := []instruction.Instruction{
		&instruction.Store{
			Base: instruction.At(op.IStore, 1, 1), Index: 1,
			Value: &instruction.IntConst{Base: instruction.At(op.IConst, 0, 1)},
		},
		&instruction.IfCmp{
			Jump: instruction.Jump{Base: instruction.At(op.IfCmp, 5, 2), JumpDelta: 10},
			Cond: op.CondGe,
			Left: &instruction.Load{Base: instruction.At(op.ILoad, 2, 2), Index: 1},
			Right: &instruction.IntConst{
				Base: instruction.At(op.IConst, 3, 2), Value: 10,
			},
		},
		&instruction.IInc{Base: instruction.At(op.IInc, 8, 3), Index: 1, Count: 1},
		&instruction.Goto{Jump: instruction.Jump{Base: instruction.At(op.Goto, 11, 3), JumpDelta: -9}},
		&instruction.Return{Base: instruction.At(op.Return, 15, instruction.UnknownLine)},
	}
	return cf, m, list
}

func TestReconstruct(t *testing.T) {
	cf, m, list := whileMethod()
	rm := classfile.NewReferenceMap()

	tree, err := Reconstruct(cf, m, list, WithReferenceMap(rm))
	require.NoError(t, err)
	require.False(t, m.ContainsError)
	require.Len(t, tree, 2)
	require.Equal(t, op.Declare, tree[0].Opcode())
	require.Equal(t, op.While, tree[1].Opcode())
}

func TestReconstructClassCollectsErrors(t *testing.T) {
	cf, good, list := whileMethod()

	bad := &classfile.Method{LocalVariables: classfile.NewLocalVariables()}
	badList := []instruction.Instruction{
		&instruction.MonitorExit{
			Base:  instruction.At(op.MonitorExit, 1, 1),
			Value: &instruction.Load{Base: instruction.At(op.ALoad, 0, 1), Index: 1},
		},
		&instruction.Return{Base: instruction.At(op.Return, 2, 1)},
	}

	trees, err := ReconstructClass(cf, []MethodBody{
		{Method: good, Instructions: list},
		{Method: bad, Instructions: badList},
	})
	require.Error(t, err)
	require.Len(t, trees, 2)
	require.False(t, good.ContainsError)
	require.True(t, bad.ContainsError)
	require.NotEmpty(t, trees[0])
}

func TestReconstructClassAllGood(t *testing.T) {
	cf, m, list := whileMethod()
	trees, err := ReconstructClass(cf, []MethodBody{{Method: m, Instructions: list}})
	require.NoError(t, err)
	require.Len(t, trees, 1)
}
