package fast

import (
	"sort"
	"strings"

	"github.com/dekaf-io/dekaf/classfile"
	"github.com/dekaf-io/dekaf/instruction"
	"github.com/dekaf-io/dekaf/op"
)

// createSwitches converts every tableswitch/lookupswitch in the list
// into a FastSwitch, detecting the enum-ordinal and string-hash
// lowerings on the way.
func (b *Builder) createSwitches(list []instruction.Instruction, sc scope) []instruction.Instruction {
	for index := 0; index < len(list); index++ {
		if b.failure != nil {
			return list
		}
		sw, ok := list[index].(*instruction.Switch)
		if !ok {
			continue
		}
		if rewritten, ok := b.analyzeSwitchString(list, index, sw); ok {
			list = rewritten
			// The real switch, now string-keyed, moved toward the list
			// head; restart the scan to process it.
			index = -1
			continue
		}
		list = b.analyzeSwitch(list, sc, index, sw)
	}
	return list
}

// switchCaseRef is one (isDefault, key, target) triple before body
// extraction.
type switchCaseRef struct {
	isDefault bool
	key       int
	target    int
}

// analyzeSwitch folds one switch instruction and its case bodies into
// a FastSwitch node.
func (b *Builder) analyzeSwitch(list []instruction.Instruction, sc scope, index int, sw *instruction.Switch) []instruction.Instruction {
	kind, test := b.classifySwitch(sw)

	refs := make([]switchCaseRef, 0, len(sw.Keys)+1)
	for i, key := range sw.Keys {
		if kind == op.SwitchEnum {
			key = b.enumOrdinalKey(sw, key)
		}
		refs = append(refs, switchCaseRef{key: key, target: sw.CaseTarget(i)})
	}
	refs = append(refs, switchCaseRef{isDefault: true, target: sw.DefaultTarget()})
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].target < refs[j].target })

	lastTarget := refs[len(refs)-1].target

	// The switch ends at the break target: the smallest goto escape
	// beyond the last case entry, or the end of the known scope.
	switchEnd := -1
	startIndex := instruction.IndexForOffset(list, refs[0].target)
	for i := startIndex; i < len(list); i++ {
		if g, ok := list[i].(*instruction.Goto); ok {
			if t := g.Target(); t > lastTarget && (switchEnd == -1 || t < switchEnd) {
				switchEnd = t
			}
		}
	}
	if switchEnd == -1 {
		switchEnd = sc.afterList
	}
	if switchEnd == -1 || switchEnd > instruction.LastOffset(list)+1 {
		switchEnd = instruction.LastOffset(list) + 1
	}

	region, list := b.extract(list, startIndex, instruction.IndexForOffset(list, switchEnd))
	if b.failure != nil {
		return list
	}

	node := &instruction.FastSwitch{
		Base: instruction.At(kind, sw.Offset(), sw.LineNumber()),
		Test: test,
	}

	for i, ref := range refs {
		to := switchEnd
		if i+1 < len(refs) {
			to = refs[i+1].target
		}
		lo := instruction.IndexForOffset(region, ref.target)
		hi := instruction.IndexForOffset(region, to)
		body := region[lo:hi]

		// A trailing goto out of the switch is the break.
		if n := len(body); n > 0 {
			if g, ok := body[n-1].(*instruction.Goto); ok && g.Target() >= switchEnd {
				body[n-1] = &instruction.FastGoto{
					Jump: instruction.Jump{Base: instruction.At(op.GotoBreak, g.Offset(), g.LineNumber()), JumpDelta: g.Delta()},
				}
			}
		}

		inner := sc
		inner.beforeList = sw.Offset()
		inner.afterList = to
		inner.breakOffset = switchEnd
		body = b.analyzeList(body, inner)

		node.Cases = append(node.Cases, &instruction.FastSwitchCase{
			IsDefault:    ref.isDefault,
			Key:          ref.key,
			Offset:       ref.target,
			Instructions: body,
		})
	}

	list[index] = node
	b.log.Debug().Int("offset", sw.Offset()).Str("kind", kind.String()).Msg("switch built")
	return list
}

// classifySwitch detects the enum-ordinal lowering: an iaload indexed
// by ordinal() through a synthetic $SwitchMap$ array. The scrutinee
// reverts to the original enum expression.
func (b *Builder) classifySwitch(sw *instruction.Switch) (op.Code, instruction.Instruction) {
	if kind, ok := b.switchKinds[sw]; ok {
		return kind, sw.Key
	}
	al, ok := sw.Key.(*instruction.ArrayLoad)
	if !ok {
		return op.Switch, sw.Key
	}
	gs, ok := al.Ref.(*instruction.GetStatic)
	if !ok || !strings.HasPrefix(b.classFile.Pool.FieldName(gs.Index), "$SwitchMap$") {
		return op.Switch, sw.Key
	}
	ordinal, ok := al.Index.(*instruction.Invoke)
	if !ok || b.classFile.Pool.MethodName(ordinal.Index) != "ordinal" {
		return op.Switch, sw.Key
	}
	b.enumSwitchMap = b.classFile.SwitchMap(b.classFile.Pool.FieldNameIndex(gs.Index))
	return op.SwitchEnum, ordinal.Ref
}

// enumOrdinalKey maps a switch-map array slot back to the enum
// ordinal it stands for.
func (b *Builder) enumOrdinalKey(sw *instruction.Switch, key int) int {
	if b.enumSwitchMap != nil {
		if ordinal, ok := b.enumSwitchMap[key]; ok {
			return ordinal
		}
	}
	// The compiler fills switch-map slots with ordinal + 1.
	return key - 1
}

// analyzeSwitchString recognizes the javac 7+ string-switch lowering:
//
//	String tmp = <expr>; int idx = -1;
//	switch (tmp.hashCode()) { case H: if (tmp.equals("lit")) idx = N; ... }
//	switch (idx) { case N: ... }
//
// Both synthetic locals disappear; the second switch gets the string
// constants as keys and the original expression as scrutinee. Only the
// javac shape is recognized; other compilers' lowerings pass through as
// integer switches.
func (b *Builder) analyzeSwitchString(list []instruction.Instruction, index int, sw *instruction.Switch) ([]instruction.Instruction, bool) {
	if b.classFile.MajorVersion < classfile.MajorVersion17 || index < 1 {
		return list, false
	}
	pool := b.classFile.Pool

	hash, ok := sw.Key.(*instruction.Invoke)
	if !ok || pool.MethodName(hash.Index) != "hashCode" {
		return list, false
	}
	tmpStr, ok := hash.Ref.(*instruction.Load)
	if !ok {
		return list, false
	}

	storeIndex := index - 1
	var idxSlot = -1
	if s, ok := list[storeIndex].(*instruction.Store); ok {
		if c, isConst := s.Value.(*instruction.IntConst); isConst && c.Value == -1 {
			idxSlot = s.Index
			storeIndex--
		}
	}
	if storeIndex < 0 {
		return list, false
	}
	strStore, ok := list[storeIndex].(*instruction.Store)
	if !ok || strStore.Index != tmpStr.Index {
		return list, false
	}

	// Map the synthetic index values to string constants by scanning
	// the equals guards of the hash cases.
	keys := map[int]int{}
	var realSwitch *instruction.Switch
	scanEnd := len(list)
	for i := index + 1; i < len(list); i++ {
		if rs, ok := list[i].(*instruction.Switch); ok {
			realSwitch = rs
			scanEnd = i
			break
		}
	}
	if realSwitch == nil {
		return list, false
	}
	if load, ok := realSwitch.Key.(*instruction.Load); !ok || (idxSlot != -1 && load.Index != idxSlot) {
		if !ok {
			return list, false
		}
		idxSlot = load.Index
	}

	for i := index + 1; i < scanEnd; i++ {
		ifInsn, ok := list[i].(*instruction.FastIf)
		var test instruction.Instruction
		var body []instruction.Instruction
		if ok {
			test = ifInsn.Test
			body = ifInsn.Instructions
		} else if raw, isIf := list[i].(*instruction.If); isIf {
			// Guards not yet folded: the store follows the branch.
			test = raw
			if i+1 < scanEnd {
				body = list[i+1 : i+2]
			}
		} else {
			continue
		}
		equals, ok := conditionValue(test).(*instruction.Invoke)
		if !ok || pool.MethodName(equals.Index) != "equals" || len(equals.Args) != 1 {
			continue
		}
		lit, ok := equals.Args[0].(*instruction.Ldc)
		if !ok {
			continue
		}
		for _, stmt := range body {
			if s, ok := stmt.(*instruction.Store); ok && s.Index == idxSlot {
				if c, isConst := s.Value.(*instruction.IntConst); isConst {
					keys[int(c.Value)] = lit.Index
				}
			}
		}
	}
	if len(keys) == 0 {
		return list, false
	}

	// Rewrite the real switch and drop the synthetic machinery: both
	// stores, the hash switch and everything up to the real switch.
	for i, key := range realSwitch.Keys {
		if cpIndex, ok := keys[key]; ok {
			realSwitch.Keys[i] = cpIndex
		}
	}
	realSwitch.Key = strStore.Value
	if b.switchKinds == nil {
		b.switchKinds = map[*instruction.Switch]op.Code{}
	}
	b.switchKinds[realSwitch] = op.SwitchString

	b.locals.RemoveWithIndexAndOffset(tmpStr.Index, strStore.Offset())
	if idxSlot != -1 {
		for i := b.locals.Len() - 1; i >= 0; i-- {
			if b.locals.At(i).Index == idxSlot && !b.locals.At(i).Declared {
				b.locals.RemoveWithIndexAndOffset(idxSlot, b.locals.At(i).StartPC)
				break
			}
		}
	}

	_, list = b.extract(list, storeIndex, scanEnd)
	return list, true
}

// conditionValue unwraps the operand of a one-operand conditional.
func conditionValue(test instruction.Instruction) instruction.Instruction {
	if ifInsn, ok := test.(*instruction.If); ok {
		return ifInsn.Value
	}
	return test
}
