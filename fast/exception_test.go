package fast

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dekaf-io/dekaf/classfile"
	"github.com/dekaf-io/dekaf/instruction"
	"github.com/dekaf-io/dekaf/op"
)

func TestAggregateGroupsSharedSpans(t *testing.T) {
	m := newMethod()
	m.ExceptionTable = []classfile.CodeException{
		{StartPC: 0, EndPC: 8, HandlerPC: 12, CatchType: 3},
		{StartPC: 0, EndPC: 8, HandlerPC: 20, CatchType: 4},
		{StartPC: 0, EndPC: 8, HandlerPC: 20, CatchType: 5},
	}
	list := []instruction.Instruction{
		retOf(30, 1),
	}

	ranges := AggregateExceptions(m, list)
	require.Len(t, ranges, 1)
	r := ranges[0]
	require.Equal(t, TypeCatch, r.Type)
	require.Len(t, r.Catches, 2)
	require.Equal(t, 3, r.Catches[0].TypeIndex)
	require.Equal(t, 4, r.Catches[1].TypeIndex)
	require.Equal(t, []int{5}, r.Catches[1].OtherTypeIndexes)
}

func TestAggregateOrdersOutermostFirst(t *testing.T) {
	m := newMethod()
	m.ExceptionTable = []classfile.CodeException{
		{StartPC: 4, EndPC: 10, HandlerPC: 14, CatchType: 4},
		{StartPC: 0, EndPC: 30, HandlerPC: 40, CatchType: 3},
	}
	list := []instruction.Instruction{retOf(60, 1)}

	ranges := AggregateExceptions(m, list)
	require.Len(t, ranges, 2)
	require.Equal(t, 0, ranges[0].TryFromOffset)
	require.Equal(t, 4, ranges[1].TryFromOffset)
}

func TestAggregateClassifiesFinally(t *testing.T) {
	m := newMethod()
	m.ExceptionTable = []classfile.CodeException{
		{StartPC: 0, EndPC: 8, HandlerPC: 12, CatchType: 0},
	}
	list := []instruction.Instruction{
		invokeOf(4, 2, 1, aload(0, 2, 0)),
		gotoOf(11, 2, 20),
		astore(12, 2, 1, excLoad(12, 2, 0, -1)),
		invokeOf(16, 2, 1, aload(15, 2, 0)),
		athrow(19, 2, iloadAs(18, 2, 1)),
		retOf(20, 3),
	}

	ranges := AggregateExceptions(m, list)
	require.Len(t, ranges, 1)
	require.Equal(t, Type142, ranges[0].Type)
	require.Equal(t, 12, ranges[0].FinallyFromOffset)
	require.Equal(t, 20, ranges[0].AfterOffset)
	require.False(t, ranges[0].Synchronized)
}

func TestAggregateClassifiesJsrFinally(t *testing.T) {
	m := newMethod()
	m.ExceptionTable = []classfile.CodeException{
		{StartPC: 0, EndPC: 7, HandlerPC: 11, CatchType: 0},
	}
	list := []instruction.Instruction{
		invokeOf(4, 2, 1, aload(0, 2, 0)),
		jsrOf(7, 2, 25),
		gotoOf(10, 2, 33),
		astore(11, 2, 1, excLoad(11, 2, 0, -1)),
		jsrOf(14, 2, 25),
		athrow(18, 2, iloadAs(17, 2, 1)),
		astore(25, 2, 2, &instruction.RetAddrLoad{Base: instruction.At(op.RetAddrLoad, 24, 2)}),
		invokeOf(29, 2, 1, aload(28, 2, 0)),
		retSubOf(32, 2, 2),
		retOf(33, 3),
	}

	ranges := AggregateExceptions(m, list)
	require.Len(t, ranges, 1)
	require.Equal(t, Type118Finally, ranges[0].Type)
	require.Equal(t, 25, ranges[0].FinallyFromOffset)
	require.Equal(t, 11, ranges[0].HandlerFromOffset)
}

func TestAggregateClassifiesSynchronized(t *testing.T) {
	m := newMethod()
	m.ExceptionTable = []classfile.CodeException{
		{StartPC: 3, EndPC: 8, HandlerPC: 10, CatchType: 0},
	}
	list := []instruction.Instruction{
		astore(1, 2, 2, aload(0, 2, 1)),
		monitorEnter(2, 2, iloadAs(2, 2, 2)),
		invokeOf(6, 3, 1, aload(5, 3, 0)),
		monitorExit(8, 3, iloadAs(8, 3, 2)),
		gotoOf(9, 3, 16),
		astore(10, 3, 3, excLoad(10, 3, 0, -1)),
		monitorExit(11, 3, iloadAs(11, 3, 2)),
		athrow(15, 3, iloadAs(14, 3, 3)),
		retOf(16, 4),
	}

	ranges := AggregateExceptions(m, list)
	require.Len(t, ranges, 1)
	require.True(t, ranges[0].Synchronized)
	require.Equal(t, 16, ranges[0].AfterOffset)
}

// Typed catches sharing the span with a catch-all rethrow handler are
// the JDK 1.3.1 catch+finally lowering.
func TestAggregateClassifiesCatchFinally(t *testing.T) {
	m := newMethod()
	m.ExceptionTable = []classfile.CodeException{
		{StartPC: 0, EndPC: 4, HandlerPC: 8, CatchType: 3},
		{StartPC: 0, EndPC: 4, HandlerPC: 16, CatchType: 0},
	}
	list := []instruction.Instruction{
		invokeOf(4, 2, 1, aload(0, 2, 0)),
		gotoOf(7, 2, 28),
		astore(8, 3, 1, excLoad(8, 3, 3, -1)),
		invokeOf(12, 4, 1, aload(11, 4, 0)),
		astore(16, 5, 2, excLoad(16, 5, 0, -1)),
		invokeOf(20, 5, 1, aload(19, 5, 0)),
		athrow(24, 5, iloadAs(23, 5, 2)),
		retOf(28, 6),
	}

	ranges := AggregateExceptions(m, list)
	require.Len(t, ranges, 1)
	require.Equal(t, Type131CatchFinally, ranges[0].Type)
	require.Equal(t, 16, ranges[0].FinallyFromOffset)
	require.Len(t, ranges[0].Catches, 1)
}

// A try block ending in a throw carries no goto over its finally
// handler; that absence marks the throw variant of the modern form.
func TestAggregateClassifiesFinallyThrow(t *testing.T) {
	m := newMethod()
	m.ExceptionTable = []classfile.CodeException{
		{StartPC: 0, EndPC: 8, HandlerPC: 12, CatchType: 0},
	}
	list := []instruction.Instruction{
		invokeOf(4, 2, 1, aload(0, 2, 0)),
		invokeOf(8, 4, 1, aload(7, 4, 0)),
		athrow(11, 3, iloadAs(10, 3, 4)),
		astore(12, 4, 1, excLoad(12, 4, 0, -1)),
		invokeOf(16, 4, 1, aload(15, 4, 0)),
		athrow(19, 4, iloadAs(18, 4, 1)),
	}

	ranges := AggregateExceptions(m, list)
	require.Len(t, ranges, 1)
	require.Equal(t, Type142FinallyThrow, ranges[0].Type)
	require.Equal(t, 12, ranges[0].FinallyFromOffset)
}

// The same throw-exit distinction applies to the subroutine family.
func TestAggregateClassifiesJsrFinallyThrow(t *testing.T) {
	m := newMethod()
	m.ExceptionTable = []classfile.CodeException{
		{StartPC: 0, EndPC: 7, HandlerPC: 11, CatchType: 0},
	}
	list := []instruction.Instruction{
		invokeOf(4, 2, 1, aload(0, 2, 0)),
		jsrOf(7, 2, 25),
		athrow(10, 3, iloadAs(9, 3, 4)),
		astore(11, 4, 1, excLoad(11, 4, 0, -1)),
		jsrOf(14, 4, 25),
		athrow(18, 4, iloadAs(17, 4, 1)),
		astore(25, 4, 2, &instruction.RetAddrLoad{Base: instruction.At(op.RetAddrLoad, 24, 4)}),
		invokeOf(29, 4, 1, aload(28, 4, 0)),
		retSubOf(32, 4, 2),
	}

	ranges := AggregateExceptions(m, list)
	require.Len(t, ranges, 1)
	require.Equal(t, Type118FinallyThrow, ranges[0].Type)
	require.Equal(t, 25, ranges[0].FinallyFromOffset)
}

// Jikes 1.2.2 stacks the return address ahead of the exception; the
// handler prologue gives the variant away.
func TestAggregateClassifiesJikesFinally(t *testing.T) {
	m := newMethod()
	m.ExceptionTable = []classfile.CodeException{
		{StartPC: 0, EndPC: 7, HandlerPC: 11, CatchType: 0},
	}
	list := []instruction.Instruction{
		invokeOf(4, 2, 1, aload(0, 2, 0)),
		jsrOf(7, 2, 20),
		gotoOf(10, 2, 33),
		astore(11, 4, 2, &instruction.RetAddrLoad{Base: instruction.At(op.RetAddrLoad, 11, 4)}),
		jsrOf(14, 4, 20),
		athrow(18, 4, iloadAs(17, 4, 1)),
		astore(20, 4, 3, &instruction.RetAddrLoad{Base: instruction.At(op.RetAddrLoad, 19, 4)}),
		invokeOf(24, 4, 1, aload(23, 4, 0)),
		retSubOf(27, 4, 3),
		retOf(33, 5),
	}

	ranges := AggregateExceptions(m, list)
	require.Len(t, ranges, 1)
	require.Equal(t, Type118Finally2, ranges[0].Type)
	require.Equal(t, 20, ranges[0].FinallyFromOffset)
}

// Two nested monitor regions sharing a cleanup subroutine are the
// double-synchronized shape.
func TestAggregateClassifiesSynchronizedDouble(t *testing.T) {
	m := newMethod()
	m.ExceptionTable = []classfile.CodeException{
		{StartPC: 3, EndPC: 8, HandlerPC: 13, CatchType: 0},
	}
	list := []instruction.Instruction{
		astore(1, 2, 2, aload(0, 2, 1)),
		monitorEnter(2, 2, iloadAs(2, 2, 2)),
		invokeOf(6, 3, 1, aload(5, 3, 0)),
		monitorExit(8, 3, iloadAs(8, 3, 2)),
		jsrOf(11, 3, 25),
		gotoOf(12, 3, 33),
		astore(13, 3, 3, excLoad(13, 3, 0, -1)),
		monitorExit(14, 3, iloadAs(14, 3, 2)),
		jsrOf(17, 3, 25),
		athrow(21, 3, iloadAs(20, 3, 3)),
		astore(25, 3, 4, &instruction.RetAddrLoad{Base: instruction.At(op.RetAddrLoad, 24, 3)}),
		invokeOf(29, 3, 1, aload(28, 3, 0)),
		retSubOf(32, 3, 4),
		retOf(33, 4),
	}

	ranges := AggregateExceptions(m, list)
	require.Len(t, ranges, 1)
	require.True(t, ranges[0].Synchronized)
	require.Equal(t, Type118SynchronizedDouble, ranges[0].Type)
	require.Equal(t, 25, ranges[0].FinallyFromOffset)
}

// An unrecognized catch-all handler degrades to a plain catch clause.
func TestAggregateUnknownShapeFallsBack(t *testing.T) {
	m := newMethod()
	m.ExceptionTable = []classfile.CodeException{
		{StartPC: 0, EndPC: 4, HandlerPC: 8, CatchType: 0},
	}
	list := []instruction.Instruction{
		invokeOf(4, 2, 1, aload(0, 2, 0)),
		gotoOf(7, 2, 12),
		invokeOf(11, 3, 1, aload(10, 3, 0)),
		retOf(12, 4),
	}

	ranges := AggregateExceptions(m, list)
	require.Len(t, ranges, 1)
	require.Equal(t, TypeCatch, ranges[0].Type)
	require.Len(t, ranges[0].Catches, 1)
	require.Equal(t, 0, ranges[0].Catches[0].TypeIndex)
}

func TestAggregateEmptyTable(t *testing.T) {
	m := newMethod()
	require.Nil(t, AggregateExceptions(m, []instruction.Instruction{retOf(0, 1)}))
}
