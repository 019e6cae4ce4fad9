package classfile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstantPoolAppendOnly(t *testing.T) {
	cp := NewConstantPool()
	require.Equal(t, 1, cp.Len())

	a := cp.AddUtf8("java/lang/String")
	b := cp.AddUtf8("java/lang/String")
	require.Equal(t, a, b)
	require.Equal(t, "java/lang/String", cp.Utf8(a))

	c := cp.AddClass("java/lang/String")
	require.Equal(t, c, cp.AddClass("java/lang/String"))
	require.Equal(t, "java/lang/String", cp.ClassName(c))

	before := cp.Len()
	f := cp.AddFieldref("com/example/Outer", "val$x", "I")
	require.Greater(t, cp.Len(), before)
	require.Equal(t, f, cp.AddFieldref("com/example/Outer", "val$x", "I"))
	require.Equal(t, "val$x", cp.FieldName(f))
}

func TestConstantPoolMethodAccessors(t *testing.T) {
	cp := NewConstantPool()
	classIdx := cp.AddClass("java/util/Iterator")
	natIdx := cp.AddNameAndType("hasNext", "()Z")
	mref := cp.Add(&ConstantMethodref{ClassIndex: classIdx, NameAndTypeIndex: natIdx})

	require.Equal(t, "hasNext", cp.MethodName(mref))
	require.Equal(t, "()Z", cp.MethodDescriptor(mref))
	require.Equal(t, "java/util/Iterator", cp.MethodClassName(mref))

	require.Equal(t, "", cp.MethodName(0))
	require.Equal(t, "", cp.Utf8(9999))
}

func TestStringValue(t *testing.T) {
	cp := NewConstantPool()
	u := cp.AddUtf8("hello")
	s := cp.Add(&ConstantString{StringIndex: u})
	require.Equal(t, "hello", cp.StringValue(s))
}

func TestLocalVariableRanges(t *testing.T) {
	lv := &LocalVariable{StartPC: 4, Length: 10, Index: 1}
	require.True(t, lv.InRange(4))
	require.True(t, lv.InRange(13))
	require.False(t, lv.InRange(14))
	require.True(t, lv.RangeContainedIn(0, 13))
	require.False(t, lv.RangeContainedIn(5, 20))
}

func TestLocalVariablesFind(t *testing.T) {
	lvs := NewLocalVariables()
	first := &LocalVariable{StartPC: 0, Length: 30, Index: 1}
	second := &LocalVariable{StartPC: 10, Length: 10, Index: 1}
	lvs.Add(first)
	lvs.Add(second)

	require.Equal(t, first, lvs.Find(1, 5))
	require.Equal(t, second, lvs.Find(1, 12))
	require.Nil(t, lvs.Find(2, 5))

	require.Equal(t, second, lvs.FindWithIndexAndOffset(1, 10))
	require.Nil(t, lvs.FindWithIndexAndOffset(1, 11))

	require.True(t, lvs.RemoveWithIndexAndOffset(1, 10))
	require.False(t, lvs.RemoveWithIndexAndOffset(1, 10))
	require.Equal(t, 1, lvs.Len())
}

func TestMethodLineNumbers(t *testing.T) {
	m := &Method{
		LineNumbers: []LineNumber{{StartPC: 0, Line: 10}, {StartPC: 8, Line: 11}, {StartPC: 20, Line: 14}},
	}
	require.Equal(t, 10, m.LineAt(0))
	require.Equal(t, 10, m.LineAt(7))
	require.Equal(t, 11, m.LineAt(19))
	require.Equal(t, 14, m.LineAt(50))
	require.Equal(t, 14, m.MaxLineNumber())

	empty := &Method{}
	require.Equal(t, UnknownLineNumber, empty.LineAt(3))
	require.Equal(t, UnknownLineNumber, empty.MaxLineNumber())
}

func TestReferenceMap(t *testing.T) {
	rm := NewReferenceMap()
	rm.Add("java/util/List")
	rm.Add("")
	require.True(t, rm.Contains("java/util/List"))
	require.False(t, rm.Contains("java/util/Map"))
	require.Len(t, rm.Names(), 1)
}

func TestSwitchMapLookup(t *testing.T) {
	cf := &ClassFile{
		Pool:       NewConstantPool(),
		SwitchMaps: map[int]map[int]int{7: {1: 0, 2: 1}},
	}
	require.NotNil(t, cf.SwitchMap(7))
	require.Nil(t, cf.SwitchMap(8))
	require.Nil(t, (&ClassFile{}).SwitchMap(7))
}
