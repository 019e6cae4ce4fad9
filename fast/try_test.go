package fast

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dekaf-io/dekaf/classfile"
	"github.com/dekaf-io/dekaf/instruction"
	"github.com/dekaf-io/dekaf/op"
)

func excLoad(off, line, nameIndex, slot int) *instruction.ExceptionLoad {
	return &instruction.ExceptionLoad{
		Base:               instruction.At(op.ExceptionLoad, off, line),
		ExceptionNameIndex: nameIndex,
		Index:              slot,
	}
}

func athrow(off, line int, value instruction.Instruction) *instruction.AThrow {
	return &instruction.AThrow{Base: instruction.At(op.AThrow, off, line), Value: value}
}

// try { work(); } catch (IOException e) { handle(); }
func TestBuildTryCatch(t *testing.T) {
	cf := newClassFile(50)
	pool := cf.Pool
	workRef := methodref(pool, "com/example/Worker", "work", "()V")
	handleRef := methodref(pool, "com/example/Worker", "handle", "()V")
	ioException := pool.AddClass("java/io/IOException")

	m := newMethod(&classfile.LocalVariable{Index: 1, StartPC: 8, Length: 6, ExceptionOrReturnAddress: true})
	m.ExceptionTable = []classfile.CodeException{
		{StartPC: 0, EndPC: 4, HandlerPC: 8, CatchType: ioException},
	}
	list := []instruction.Instruction{
		invokeOf(4, 2, workRef, aload(0, 2, 0)),
		gotoOf(7, 2, 16),
		astore(8, 3, 1, excLoad(8, 3, ioException, -1)),
		invokeOf(12, 4, handleRef, aload(11, 4, 0)),
		retOf(16, instruction.UnknownLine),
	}

	tree, err := Build(cf, m, list, nil)
	require.NoError(t, err)
	require.Len(t, tree, 1)

	try, ok := tree[0].(*instruction.FastTry)
	require.True(t, ok)
	require.Len(t, try.Instructions, 1)
	require.Nil(t, try.FinallyInstructions)
	require.Len(t, try.Catches, 1)
	require.Equal(t, ioException, try.Catches[0].ExceptionTypeIndex)
	require.Equal(t, 1, try.Catches[0].LocalVarIndex)
	require.Len(t, try.Catches[0].Instructions, 1)
	require.Zero(t, rawJumpCount(tree))
}

// Modern (JDK 1.4.2+) finally: the inline copy before the exit is
// spliced out and the handler copy survives once.
func TestBuildTryFinallyInline(t *testing.T) {
	cf := newClassFile(50)
	pool := cf.Pool
	workRef := methodref(pool, "com/example/Worker", "work", "()V")
	cleanupRef := methodref(pool, "com/example/Worker", "cleanup", "()V")

	m := newMethod(&classfile.LocalVariable{Index: 1, StartPC: 12, Length: 8, ExceptionOrReturnAddress: true})
	m.ExceptionTable = []classfile.CodeException{
		{StartPC: 0, EndPC: 8, HandlerPC: 12, CatchType: 0},
	}
	list := []instruction.Instruction{
		invokeOf(4, 2, workRef, aload(0, 2, 0)),
		invokeOf(8, 4, cleanupRef, aload(7, 4, 0)),
		gotoOf(11, 4, 20),
		astore(12, 4, 1, excLoad(12, 4, 0, -1)),
		invokeOf(16, 4, cleanupRef, aload(15, 4, 0)),
		athrow(19, 4, iloadAs(18, 4, 1)),
		retOf(20, instruction.UnknownLine),
	}

	tree, err := Build(cf, m, list, nil)
	require.NoError(t, err)
	require.Len(t, tree, 1)

	try, ok := tree[0].(*instruction.FastTry)
	require.True(t, ok)
	require.Len(t, try.Instructions, 1)
	require.Empty(t, try.Catches)
	require.Len(t, try.FinallyInstructions, 1)
	require.Equal(t, op.InvokeVirtual, try.FinallyInstructions[0].Opcode())
}

// Subroutine (jsr/ret) finally: the shared body materializes once and
// every jsr/ret disappears.
func TestBuildTryFinallyJsr(t *testing.T) {
	cf := newClassFile(48)
	pool := cf.Pool
	workRef := methodref(pool, "com/example/Worker", "work", "()V")
	cleanupRef := methodref(pool, "com/example/Worker", "cleanup", "()V")

	m := newMethod(
		&classfile.LocalVariable{Index: 1, StartPC: 11, Length: 8, ExceptionOrReturnAddress: true},
		&classfile.LocalVariable{Index: 2, StartPC: 25, Length: 8, ExceptionOrReturnAddress: true},
	)
	m.ExceptionTable = []classfile.CodeException{
		{StartPC: 0, EndPC: 7, HandlerPC: 11, CatchType: 0},
	}
	list := []instruction.Instruction{
		invokeOf(4, 2, workRef, aload(0, 2, 0)),
		jsrOf(7, 2, 25),
		gotoOf(10, 2, 33),
		astore(11, 4, 1, excLoad(11, 4, 0, -1)),
		jsrOf(14, 4, 25),
		athrow(18, 4, iloadAs(17, 4, 1)),
		astore(25, 4, 2, &instruction.RetAddrLoad{Base: instruction.At(op.RetAddrLoad, 24, 4)}),
		invokeOf(29, 4, cleanupRef, aload(28, 4, 0)),
		retSubOf(32, 4, 2),
		retOf(33, instruction.UnknownLine),
	}

	tree, err := Build(cf, m, list, nil)
	require.NoError(t, err)
	require.Len(t, tree, 1)

	try, ok := tree[0].(*instruction.FastTry)
	require.True(t, ok)
	require.Len(t, try.Instructions, 1)
	require.Len(t, try.FinallyInstructions, 1)
	require.Zero(t, rawJumpCount(tree))
	counts := countOpcodes(tree)
	require.Zero(t, counts[op.RetAddrLoad])
}

// synchronized (lock) { work(); }
func TestBuildSynchronized(t *testing.T) {
	cf := newClassFile(50)
	pool := cf.Pool
	workRef := methodref(pool, "com/example/Worker", "work", "()V")

	m := newMethod(
		&classfile.LocalVariable{Index: 2, StartPC: 2, Length: 12},
		&classfile.LocalVariable{Index: 3, StartPC: 10, Length: 6, ExceptionOrReturnAddress: true},
	)
	m.ExceptionTable = []classfile.CodeException{
		{StartPC: 3, EndPC: 8, HandlerPC: 10, CatchType: 0},
	}
	list := []instruction.Instruction{
		astore(1, 2, 2, aload(0, 2, 1)),
		monitorEnter(2, 2, iloadAs(2, 2, 2)),
		invokeOf(6, 3, workRef, aload(5, 3, 0)),
		monitorExit(8, 3, iloadAs(8, 3, 2)),
		gotoOf(9, 3, 16),
		astore(10, 3, 3, excLoad(10, 3, 0, -1)),
		monitorExit(11, 3, iloadAs(11, 3, 2)),
		athrow(15, 3, iloadAs(14, 3, 3)),
		retOf(16, instruction.UnknownLine),
	}

	tree, err := Build(cf, m, list, nil)
	require.NoError(t, err)
	require.Len(t, tree, 1)

	sync, ok := tree[0].(*instruction.FastSynchronized)
	require.True(t, ok)
	monitor, ok := sync.Monitor.(*instruction.Load)
	require.True(t, ok)
	require.Equal(t, 1, monitor.Index)
	require.Len(t, sync.Instructions, 1)

	// The monitor slot is gone, along with every monitor instruction.
	require.Nil(t, m.LocalVariables.FindWithIndexAndOffset(2, 2))
	require.Zero(t, rawJumpCount(tree))
}

// An empty catch body is fatal for the method.
func TestBuildEmptyCatchFails(t *testing.T) {
	cf := newClassFile(50)
	pool := cf.Pool
	workRef := methodref(pool, "com/example/Worker", "work", "()V")
	ioException := pool.AddClass("java/io/IOException")

	m := newMethod()
	m.ExceptionTable = []classfile.CodeException{
		{StartPC: 0, EndPC: 4, HandlerPC: 8, CatchType: ioException},
	}
	list := []instruction.Instruction{
		invokeOf(4, 2, workRef, aload(0, 2, 0)),
		gotoOf(7, 2, 8),
		retOf(8, instruction.UnknownLine),
	}

	_, err := Build(cf, m, list, nil)
	require.Error(t, err)
	var empty *EmptyCatchBlockError
	require.ErrorAs(t, err, &empty)
	require.True(t, m.ContainsError)
}

func iloadAs(off, line, index int) *instruction.Load {
	return &instruction.Load{Base: instruction.At(op.ALoad, off, line), Index: index}
}

func jsrOf(off, line, target int) *instruction.Jsr {
	return &instruction.Jsr{Jump: instruction.Jump{Base: instruction.At(op.Jsr, off, line), JumpDelta: target - off}}
}

func retSubOf(off, line, index int) *instruction.Ret {
	return &instruction.Ret{Base: instruction.At(op.Ret, off, line), Index: index}
}

func monitorEnter(off, line int, value instruction.Instruction) *instruction.MonitorEnter {
	return &instruction.MonitorEnter{Base: instruction.At(op.MonitorEnter, off, line), Value: value}
}

func monitorExit(off, line int, value instruction.Instruction) *instruction.MonitorExit {
	return &instruction.MonitorExit{Base: instruction.At(op.MonitorExit, off, line), Value: value}
}
