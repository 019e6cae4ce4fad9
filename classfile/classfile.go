// Package classfile holds the decoded class file structures consumed by
// the reconstruction passes: the constant pool, methods with their code
// and tables, local variables and the reference sink. Parsing the binary
// class file format is the job of an upstream decoder; nothing in this
// package reads bytes.
package classfile

// Class file major versions with behavior changes relevant to
// reconstruction.
const (
	// MajorVersion15 is the first version whose compilers emit the
	// iterator-based for-each shape (Java 5, major 49).
	MajorVersion15 = 49

	// MajorVersion17 is the first version that lowers switch-on-string
	// (Java 7, major 51).
	MajorVersion17 = 51
)

// ClassFile is the per-class context shared by all of its methods.
type ClassFile struct {
	MajorVersion int
	MinorVersion int
	AccessFlags  int
	ThisClass    int
	SuperClass   int
	Pool         *ConstantPool

	// SwitchMaps registers the synthetic $SwitchMap$Enum arrays keyed by
	// the field name index; each maps an array slot (ordinal + 1, as the
	// compiler fills them) to the matching enum ordinal case key.
	SwitchMaps map[int]map[int]int

	Methods []*Method
}

// ThisClassName returns the internal name of the class.
func (cf *ClassFile) ThisClassName() string {
	return cf.Pool.ClassName(cf.ThisClass)
}

// SwitchMap returns the ordinal mapping for a $SwitchMap$ field name
// index, or nil when the field is not a registered switch map.
func (cf *ClassFile) SwitchMap(fieldNameIndex int) map[int]int {
	if cf.SwitchMaps == nil {
		return nil
	}
	return cf.SwitchMaps[fieldNameIndex]
}

// ReferenceMap collects the internal names of types referenced by
// reconstructed code, for the import manager downstream.
type ReferenceMap struct {
	refs map[string]struct{}
}

// NewReferenceMap returns an empty reference sink.
func NewReferenceMap() *ReferenceMap {
	return &ReferenceMap{refs: map[string]struct{}{}}
}

// Add records a referenced type by internal name. Empty names are
// ignored.
func (rm *ReferenceMap) Add(internalName string) {
	if rm == nil || internalName == "" {
		return
	}
	rm.refs[internalName] = struct{}{}
}

// Contains reports whether the type was referenced.
func (rm *ReferenceMap) Contains(internalName string) bool {
	if rm == nil {
		return false
	}
	_, ok := rm.refs[internalName]
	return ok
}

// Names returns the referenced type names in unspecified order.
func (rm *ReferenceMap) Names() []string {
	if rm == nil {
		return nil
	}
	names := make([]string, 0, len(rm.refs))
	for name := range rm.refs {
		names = append(names, name)
	}
	return names
}
