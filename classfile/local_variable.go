package classfile

// UnknownLineNumber marks an instruction with no line table entry.
const UnknownLineNumber = -1

// LocalVariable is one slot of a method's local variable table. The
// Declared flag starts false for every variable except parameters and
// `this`, and flips exactly once, when declaration placement emits the
// declaration node. ToBeRemoved is set when a store+return fusion makes
// the variable vanish from the output entirely.
type LocalVariable struct {
	StartPC        int
	Length         int
	NameIndex      int
	SignatureIndex int
	Index          int // slot

	Declared                 bool
	ToBeRemoved              bool
	ExceptionOrReturnAddress bool
}

// InRange reports whether the offset falls inside the live range.
func (lv *LocalVariable) InRange(offset int) bool {
	return lv.StartPC <= offset && offset < lv.StartPC+lv.Length
}

// RangeContainedIn reports whether the whole live range lies inside
// [from, to].
func (lv *LocalVariable) RangeContainedIn(from, to int) bool {
	return from <= lv.StartPC && lv.StartPC+lv.Length <= to+1
}

// LocalVariables is the mutable local variable table of a single method.
type LocalVariables struct {
	vars []*LocalVariable
}

// NewLocalVariables returns an empty table.
func NewLocalVariables() *LocalVariables {
	return &LocalVariables{}
}

// Add appends a variable record.
func (lvs *LocalVariables) Add(lv *LocalVariable) {
	lvs.vars = append(lvs.vars, lv)
}

// Len returns the number of records.
func (lvs *LocalVariables) Len() int {
	return len(lvs.vars)
}

// At returns the i-th record.
func (lvs *LocalVariables) At(i int) *LocalVariable {
	return lvs.vars[i]
}

// Find returns the record for the given slot that is live at the given
// offset, or nil. When several records share the slot the one with the
// largest StartPC not above the offset wins.
func (lvs *LocalVariables) Find(index, offset int) *LocalVariable {
	var best *LocalVariable
	for _, lv := range lvs.vars {
		if lv.Index != index || lv.StartPC > offset {
			continue
		}
		if best == nil || lv.StartPC > best.StartPC {
			best = lv
		}
	}
	return best
}

// FindWithIndexAndOffset returns the record for the slot whose live
// range starts exactly at the given offset, or nil.
func (lvs *LocalVariables) FindWithIndexAndOffset(index, offset int) *LocalVariable {
	for _, lv := range lvs.vars {
		if lv.Index == index && lv.StartPC == offset {
			return lv
		}
	}
	return nil
}

// RemoveWithIndexAndOffset deletes the record for the slot whose live
// range starts exactly at the given offset. Used to purge the synthetic
// slots of for-each lowerings and monitor captures.
func (lvs *LocalVariables) RemoveWithIndexAndOffset(index, offset int) bool {
	for i, lv := range lvs.vars {
		if lv.Index == index && lv.StartPC == offset {
			lvs.vars = append(lvs.vars[:i], lvs.vars[i+1:]...)
			return true
		}
	}
	return false
}
