package classfile

// Constant pool tags, as defined by the class file format.
const (
	TagUtf8               = 1
	TagInteger            = 3
	TagFloat              = 4
	TagLong               = 5
	TagDouble             = 6
	TagClass              = 7
	TagString             = 8
	TagFieldref           = 9
	TagMethodref          = 10
	TagInterfaceMethodref = 11
	TagNameAndType        = 12
)

// ConstantPoolEntry is implemented by all constant pool entry types.
type ConstantPoolEntry interface {
	Tag() uint8
}

type ConstantUtf8 struct {
	Value string
}

func (c *ConstantUtf8) Tag() uint8 { return TagUtf8 }

type ConstantInteger struct {
	Value int32
}

func (c *ConstantInteger) Tag() uint8 { return TagInteger }

type ConstantFloat struct {
	Value float32
}

func (c *ConstantFloat) Tag() uint8 { return TagFloat }

type ConstantLong struct {
	Value int64
}

func (c *ConstantLong) Tag() uint8 { return TagLong }

type ConstantDouble struct {
	Value float64
}

func (c *ConstantDouble) Tag() uint8 { return TagDouble }

type ConstantClass struct {
	NameIndex int
}

func (c *ConstantClass) Tag() uint8 { return TagClass }

type ConstantString struct {
	StringIndex int
}

func (c *ConstantString) Tag() uint8 { return TagString }

type ConstantFieldref struct {
	ClassIndex       int
	NameAndTypeIndex int
}

func (c *ConstantFieldref) Tag() uint8 { return TagFieldref }

type ConstantMethodref struct {
	ClassIndex       int
	NameAndTypeIndex int
}

func (c *ConstantMethodref) Tag() uint8 { return TagMethodref }

type ConstantInterfaceMethodref struct {
	ClassIndex       int
	NameAndTypeIndex int
}

func (c *ConstantInterfaceMethodref) Tag() uint8 { return TagInterfaceMethodref }

type ConstantNameAndType struct {
	NameIndex       int
	DescriptorIndex int
}

func (c *ConstantNameAndType) Tag() uint8 { return TagNameAndType }

// ConstantPool is an append-only view of a class file's constant pool.
// Index 0 is unused, matching the class file format. The reconstruction
// passes append new entries (UTF-8s for inserted casts, field refs for
// outer-accessor rewrites); existing indices are never invalidated.
type ConstantPool struct {
	entries []ConstantPoolEntry
	utf8s   map[string]int
}

// NewConstantPool returns an empty pool with the reserved zero entry in
// place.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{
		entries: []ConstantPoolEntry{nil},
		utf8s:   map[string]int{},
	}
}

// Len returns the number of entries, counting the reserved zero entry.
func (cp *ConstantPool) Len() int {
	return len(cp.entries)
}

// Entry returns the entry at the given index, or nil if the index is out
// of range.
func (cp *ConstantPool) Entry(index int) ConstantPoolEntry {
	if index <= 0 || index >= len(cp.entries) {
		return nil
	}
	return cp.entries[index]
}

// Add appends an entry and returns its index.
func (cp *ConstantPool) Add(entry ConstantPoolEntry) int {
	cp.entries = append(cp.entries, entry)
	index := len(cp.entries) - 1
	if u, ok := entry.(*ConstantUtf8); ok {
		if _, seen := cp.utf8s[u.Value]; !seen {
			cp.utf8s[u.Value] = index
		}
	}
	return index
}

// AddUtf8 returns the index of the UTF-8 entry for s, appending one if
// the pool does not already hold it.
func (cp *ConstantPool) AddUtf8(s string) int {
	if index, ok := cp.utf8s[s]; ok {
		return index
	}
	return cp.Add(&ConstantUtf8{Value: s})
}

// AddClass returns the index of a class entry naming the given internal
// class name.
func (cp *ConstantPool) AddClass(name string) int {
	nameIndex := cp.AddUtf8(name)
	for i, e := range cp.entries {
		if c, ok := e.(*ConstantClass); ok && c.NameIndex == nameIndex {
			return i
		}
	}
	return cp.Add(&ConstantClass{NameIndex: nameIndex})
}

// AddNameAndType returns the index of a NameAndType entry for the given
// name and descriptor.
func (cp *ConstantPool) AddNameAndType(name, descriptor string) int {
	nameIndex := cp.AddUtf8(name)
	descIndex := cp.AddUtf8(descriptor)
	for i, e := range cp.entries {
		if nt, ok := e.(*ConstantNameAndType); ok && nt.NameIndex == nameIndex && nt.DescriptorIndex == descIndex {
			return i
		}
	}
	return cp.Add(&ConstantNameAndType{NameIndex: nameIndex, DescriptorIndex: descIndex})
}

// AddFieldref returns the index of a field reference on the named class.
func (cp *ConstantPool) AddFieldref(className, fieldName, descriptor string) int {
	classIndex := cp.AddClass(className)
	natIndex := cp.AddNameAndType(fieldName, descriptor)
	for i, e := range cp.entries {
		if f, ok := e.(*ConstantFieldref); ok && f.ClassIndex == classIndex && f.NameAndTypeIndex == natIndex {
			return i
		}
	}
	return cp.Add(&ConstantFieldref{ClassIndex: classIndex, NameAndTypeIndex: natIndex})
}

// Utf8 returns the UTF-8 string at the given index, or "" if the index
// does not name a UTF-8 entry.
func (cp *ConstantPool) Utf8(index int) string {
	if u, ok := cp.Entry(index).(*ConstantUtf8); ok {
		return u.Value
	}
	return ""
}

// StringValue returns the string constant at the given index.
func (cp *ConstantPool) StringValue(index int) string {
	if s, ok := cp.Entry(index).(*ConstantString); ok {
		return cp.Utf8(s.StringIndex)
	}
	return ""
}

// ClassName returns the internal name of the class entry at the given
// index.
func (cp *ConstantPool) ClassName(index int) string {
	if c, ok := cp.Entry(index).(*ConstantClass); ok {
		return cp.Utf8(c.NameIndex)
	}
	return ""
}

func (cp *ConstantPool) nameAndType(index int) *ConstantNameAndType {
	switch e := cp.Entry(index).(type) {
	case *ConstantMethodref:
		nt, _ := cp.Entry(e.NameAndTypeIndex).(*ConstantNameAndType)
		return nt
	case *ConstantInterfaceMethodref:
		nt, _ := cp.Entry(e.NameAndTypeIndex).(*ConstantNameAndType)
		return nt
	case *ConstantFieldref:
		nt, _ := cp.Entry(e.NameAndTypeIndex).(*ConstantNameAndType)
		return nt
	}
	return nil
}

// MethodName returns the simple name of the method referenced at the
// given index, accepting both Methodref and InterfaceMethodref entries.
func (cp *ConstantPool) MethodName(index int) string {
	if nt := cp.nameAndType(index); nt != nil {
		return cp.Utf8(nt.NameIndex)
	}
	return ""
}

// MethodDescriptor returns the descriptor of the method referenced at
// the given index.
func (cp *ConstantPool) MethodDescriptor(index int) string {
	if nt := cp.nameAndType(index); nt != nil {
		return cp.Utf8(nt.DescriptorIndex)
	}
	return ""
}

// FieldName returns the simple name of the field referenced at the given
// index.
func (cp *ConstantPool) FieldName(index int) string {
	if nt := cp.nameAndType(index); nt != nil {
		return cp.Utf8(nt.NameIndex)
	}
	return ""
}

// FieldNameIndex returns the UTF-8 index of the name of the field
// referenced at the given index, or 0.
func (cp *ConstantPool) FieldNameIndex(index int) int {
	if nt := cp.nameAndType(index); nt != nil {
		return nt.NameIndex
	}
	return 0
}

// MethodClassName returns the internal name of the class owning the
// method referenced at the given index.
func (cp *ConstantPool) MethodClassName(index int) string {
	switch e := cp.Entry(index).(type) {
	case *ConstantMethodref:
		return cp.ClassName(e.ClassIndex)
	case *ConstantInterfaceMethodref:
		return cp.ClassName(e.ClassIndex)
	}
	return ""
}
