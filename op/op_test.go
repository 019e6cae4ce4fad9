package op

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCondInvert(t *testing.T) {
	tests := []struct {
		cond Cond
		want Cond
	}{
		{CondEq, CondNe},
		{CondNe, CondEq},
		{CondLt, CondGe},
		{CondGe, CondLt},
		{CondGt, CondLe},
		{CondLe, CondGt},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.cond.Invert())
		require.Equal(t, tt.cond, tt.cond.Invert().Invert())
	}
}

func TestIsConditionalBranch(t *testing.T) {
	for _, c := range []Code{IfEq, IfLe, IfICmpEq, IfACmpNe, IfNull, IfNonNull, If, IfCmp, IfXNull, ComplexIf} {
		require.True(t, c.IsConditionalBranch(), c.String())
	}
	for _, c := range []Code{Goto, Jsr, Nop, TableSwitch, Return, While} {
		require.False(t, c.IsConditionalBranch(), c.String())
	}
}

func TestIsBranch(t *testing.T) {
	require.True(t, Goto.IsBranch())
	require.True(t, Jsr.IsBranch())
	require.True(t, IfCmp.IsBranch())
	require.False(t, Ret.IsBranch())
	require.False(t, TableSwitch.IsBranch())
}

func TestPredicates(t *testing.T) {
	require.True(t, ILoad.IsLoad())
	require.True(t, Load.IsLoad())
	require.False(t, IStore.IsLoad())
	require.True(t, AStore.IsStore())
	require.True(t, Store.IsStore())
	require.True(t, Return.IsReturn())
	require.True(t, XReturn.IsReturn())
	require.True(t, InvokeInterface.IsInvoke())
	require.False(t, New.IsInvoke())
	require.True(t, LCmp.IsCmp())
	require.True(t, DCmpG.IsCmp())
	require.False(t, IfEq.IsCmp())
}

func TestString(t *testing.T) {
	require.Equal(t, "tableswitch", TableSwitch.String())
	require.Equal(t, "foreach", ForEach.String())
	require.Equal(t, "unknown", Code(9999).String())
	require.Equal(t, "<=", CondLe.String())
}
