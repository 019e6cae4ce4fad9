package dis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dekaf-io/dekaf/classfile"
	"github.com/dekaf-io/dekaf/instruction"
	"github.com/dekaf-io/dekaf/op"
)

func TestStringRendersNesting(t *testing.T) {
	loop := &instruction.FastLoop{
		Base: instruction.At(op.While, 11, 2),
		Test: &instruction.IfCmp{
			Jump: instruction.Jump{Base: instruction.At(op.IfCmp, 5, 2), JumpDelta: 10},
			Cond: op.CondLt,
			Left: &instruction.Load{Base: instruction.At(op.ILoad, 2, 2), Index: 1},
			Right: &instruction.IntConst{
				Base: instruction.At(op.IConst, 3, 2), Value: 10,
			},
		},
		Instructions: []instruction.Instruction{
			&instruction.IInc{Base: instruction.At(op.IInc, 8, 3), Index: 1, Count: 1},
		},
	}
	decl := &instruction.FastDeclaration{
		Base:     instruction.At(op.Declare, 1, 1),
		Variable: &classfile.LocalVariable{Index: 1},
	}

	out := String([]instruction.Instruction{decl, loop})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "declare")
	require.Contains(t, lines[0], "slot=1")
	require.Contains(t, lines[1], "while")
	require.True(t, strings.HasPrefix(lines[2], "    "), "body is indented")
	require.Contains(t, lines[2], "iinc")
}

func TestStringSwitchAndTry(t *testing.T) {
	sw := &instruction.FastSwitch{
		Base: instruction.At(op.Switch, 4, 2),
		Test: &instruction.Load{Base: instruction.At(op.ILoad, 3, 2), Index: 1},
		Cases: []*instruction.FastSwitchCase{
			{Key: 0, Offset: 24},
			{IsDefault: true, Offset: 40},
		},
	}
	try := &instruction.FastTry{
		Jump:                instruction.Jump{Base: instruction.At(op.Try, 50, 5), JumpDelta: 1},
		FinallyInstructions: []instruction.Instruction{},
	}

	out := String([]instruction.Instruction{sw, try})
	require.Contains(t, out, "[0 default]")
	require.Contains(t, out, "catches=0 finally=true")
}
