// Package op defines the JVM opcodes consumed by the reconstruction passes
// and the synthetic high-level codes produced by them.
package op

// Code identifies an instruction kind. Values below 256 are real JVM
// opcodes; values at or above SyntheticBase only ever appear in decoded
// instruction lists, never in a class file.
type Code uint16

const (
	// Real JVM opcodes. The upstream decoder normalizes the short forms
	// (iload_0, iconst_2, ...) into their long counterparts, so only the
	// long forms appear here.
	Nop        Code = 0
	AConstNull Code = 1
	IConst     Code = 2 // iconst_<n>, bipush and sipush, normalized
	LConst     Code = 9
	FConst     Code = 11
	DConst     Code = 14
	BiPush     Code = 16
	SiPush     Code = 17
	Ldc        Code = 18
	LdcW       Code = 19
	Ldc2W      Code = 20
	ILoad      Code = 21
	LLoad      Code = 22
	FLoad      Code = 23
	DLoad      Code = 24
	ALoad      Code = 25
	IALoad     Code = 46
	LALoad     Code = 47
	FALoad     Code = 48
	DALoad     Code = 49
	AALoad     Code = 50
	BALoad     Code = 51
	CALoad     Code = 52
	SALoad     Code = 53
	IStore     Code = 54
	LStore     Code = 55
	FStore     Code = 56
	DStore     Code = 57
	AStore     Code = 58
	IAStore    Code = 79
	LAStore    Code = 80
	FAStore    Code = 81
	DAStore    Code = 82
	AAStore    Code = 83
	BAStore    Code = 84
	CAStore    Code = 85
	SAStore    Code = 86
	Pop        Code = 87
	Pop2       Code = 88
	Dup        Code = 89
	DupX1      Code = 90
	DupX2      Code = 91
	Dup2       Code = 92
	Dup2X1     Code = 93
	Dup2X2     Code = 94
	Swap       Code = 95

	IAdd Code = 96
	ISub Code = 100
	IMul Code = 104
	IDiv Code = 108
	IRem Code = 112
	INeg Code = 116
	IShl Code = 120
	IShr Code = 122
	IAnd Code = 126
	IOr  Code = 128
	IXor Code = 130
	IInc Code = 132

	LCmp  Code = 148
	FCmpL Code = 149
	FCmpG Code = 150
	DCmpL Code = 151
	DCmpG Code = 152

	IfEq     Code = 153
	IfNe     Code = 154
	IfLt     Code = 155
	IfGe     Code = 156
	IfGt     Code = 157
	IfLe     Code = 158
	IfICmpEq Code = 159
	IfICmpNe Code = 160
	IfICmpLt Code = 161
	IfICmpGe Code = 162
	IfICmpGt Code = 163
	IfICmpLe Code = 164
	IfACmpEq Code = 165
	IfACmpNe Code = 166

	Goto         Code = 167
	Jsr          Code = 168
	Ret          Code = 169
	TableSwitch  Code = 170
	LookupSwitch Code = 171

	IReturn Code = 172
	LReturn Code = 173
	FReturn Code = 174
	DReturn Code = 175
	AReturn Code = 176
	Return  Code = 177

	GetStatic       Code = 178
	PutStatic       Code = 179
	GetField        Code = 180
	PutField        Code = 181
	InvokeVirtual   Code = 182
	InvokeSpecial   Code = 183
	InvokeStatic    Code = 184
	InvokeInterface Code = 185
	InvokeDynamic   Code = 186

	New            Code = 187
	NewArray       Code = 188
	ANewArray      Code = 189
	ArrayLength    Code = 190
	AThrow         Code = 191
	CheckCast      Code = 192
	InstanceOf     Code = 193
	MonitorEnter   Code = 194
	MonitorExit    Code = 195
	MultiANewArray Code = 197
	IfNull         Code = 198
	IfNonNull      Code = 199
	GotoW          Code = 200
	JsrW           Code = 201

	// SyntheticBase separates real opcodes from codes invented by the
	// expression builder and the reconstruction passes.
	SyntheticBase Code = 256

	// Expression-level synthetics produced upstream or by the ordered
	// reconstruction battery.
	If              Code = 256 // unified one-operand conditional branch
	IfCmp           Code = 257 // unified two-operand conditional branch
	IfXNull         Code = 258 // ifnull / ifnonnull with operand attached
	ComplexIf       Code = 259 // short-circuit aggregation of branches
	Load            Code = 260 // typed load with resolved signature
	Store           Code = 261 // typed store with resolved signature
	ExceptionLoad   Code = 262 // first instruction of a catch body
	RetAddrLoad     Code = 263 // astore of a jsr return address
	XReturn         Code = 264 // unified return-with-value
	Assignment      Code = 265
	TernaryOp       Code = 266
	BinaryOp        Code = 267
	UnaryOp         Code = 268
	DupStore        Code = 269
	DupLoad         Code = 270
	InitArray       Code = 271
	NewAndInitArray Code = 272
	ClassLiteral    Code = 273
	Assert          Code = 274
	PreInc          Code = 275
	PostInc         Code = 276
	Convert         Code = 277

	// Structure-level synthetics. These are the node kinds handed to the
	// source renderer; none of the raw jump opcodes survive next to them.
	Declare          Code = 300
	Label            Code = 301
	IfSimple         Code = 302
	IfElse           Code = 303
	IfBreak          Code = 304
	IfContinue       Code = 305
	IfLabeledBreak   Code = 306
	GotoBreak        Code = 307
	GotoContinue     Code = 308
	GotoLabeledBreak Code = 309
	While            Code = 310
	DoWhile          Code = 311
	For              Code = 312
	ForEach          Code = 313
	InfiniteLoop     Code = 314
	Switch           Code = 315
	SwitchEnum       Code = 316
	SwitchString     Code = 317
	Try              Code = 318
	Synchronized     Code = 319
)

// Cond is the comparison baked into a conditional branch.
type Cond uint8

const (
	CondEq Cond = iota
	CondNe
	CondLt
	CondGe
	CondGt
	CondLe
)

// Invert returns the comparison that accepts exactly the values this one
// rejects. Used when an if body is swapped with its else body.
func (c Cond) Invert() Cond {
	switch c {
	case CondEq:
		return CondNe
	case CondNe:
		return CondEq
	case CondLt:
		return CondGe
	case CondGe:
		return CondLt
	case CondGt:
		return CondLe
	default:
		return CondGt
	}
}

// String returns the Java operator for the comparison.
func (c Cond) String() string {
	switch c {
	case CondEq:
		return "=="
	case CondNe:
		return "!="
	case CondLt:
		return "<"
	case CondGe:
		return ">="
	case CondGt:
		return ">"
	default:
		return "<="
	}
}

// IsConditionalBranch reports whether the code is a branch whose jump is
// taken only when its test passes. This covers both the raw if<cond>
// opcodes and the unified synthetic forms.
func (c Code) IsConditionalBranch() bool {
	switch {
	case c >= IfEq && c <= IfACmpNe:
		return true
	case c == IfNull || c == IfNonNull:
		return true
	case c == If || c == IfCmp || c == IfXNull || c == ComplexIf:
		return true
	}
	return false
}

// IsBranch reports whether the code carries a jump target, conditional
// or not.
func (c Code) IsBranch() bool {
	return c.IsConditionalBranch() || c == Goto || c == GotoW || c == Jsr || c == JsrW
}

// IsLoad reports whether the code reads a local-variable slot.
func (c Code) IsLoad() bool {
	switch c {
	case ILoad, LLoad, FLoad, DLoad, ALoad, Load:
		return true
	}
	return false
}

// IsStore reports whether the code writes a local-variable slot.
func (c Code) IsStore() bool {
	switch c {
	case IStore, LStore, FStore, DStore, AStore, Store:
		return true
	}
	return false
}

// IsReturn reports whether the code ends the method, with or without a
// value.
func (c Code) IsReturn() bool {
	switch c {
	case IReturn, LReturn, FReturn, DReturn, AReturn, Return, XReturn:
		return true
	}
	return false
}

// IsInvoke reports whether the code calls a method.
func (c Code) IsInvoke() bool {
	return c >= InvokeVirtual && c <= InvokeDynamic
}

// IsCmp reports whether the code is one of the long/float/double
// three-way comparison opcodes.
func (c Code) IsCmp() bool {
	return c >= LCmp && c <= DCmpG
}

var names = map[Code]string{
	Nop:              "nop",
	AConstNull:       "aconst_null",
	IConst:           "iconst",
	LConst:           "lconst",
	FConst:           "fconst",
	DConst:           "dconst",
	BiPush:           "bipush",
	SiPush:           "sipush",
	Ldc:              "ldc",
	LdcW:             "ldc_w",
	Ldc2W:            "ldc2_w",
	ILoad:            "iload",
	LLoad:            "lload",
	FLoad:            "fload",
	DLoad:            "dload",
	ALoad:            "aload",
	IALoad:           "iaload",
	LALoad:           "laload",
	FALoad:           "faload",
	DALoad:           "daload",
	AALoad:           "aaload",
	BALoad:           "baload",
	CALoad:           "caload",
	SALoad:           "saload",
	IStore:           "istore",
	LStore:           "lstore",
	FStore:           "fstore",
	DStore:           "dstore",
	AStore:           "astore",
	IAStore:          "iastore",
	LAStore:          "lastore",
	FAStore:          "fastore",
	DAStore:          "dastore",
	AAStore:          "aastore",
	BAStore:          "bastore",
	CAStore:          "castore",
	SAStore:          "sastore",
	Pop:              "pop",
	Pop2:             "pop2",
	Dup:              "dup",
	DupX1:            "dup_x1",
	DupX2:            "dup_x2",
	Dup2:             "dup2",
	Dup2X1:           "dup2_x1",
	Dup2X2:           "dup2_x2",
	Swap:             "swap",
	IAdd:             "iadd",
	ISub:             "isub",
	IMul:             "imul",
	IDiv:             "idiv",
	IRem:             "irem",
	INeg:             "ineg",
	IShl:             "ishl",
	IShr:             "ishr",
	IAnd:             "iand",
	IOr:              "ior",
	IXor:             "ixor",
	IInc:             "iinc",
	LCmp:             "lcmp",
	FCmpL:            "fcmpl",
	FCmpG:            "fcmpg",
	DCmpL:            "dcmpl",
	DCmpG:            "dcmpg",
	IfEq:             "ifeq",
	IfNe:             "ifne",
	IfLt:             "iflt",
	IfGe:             "ifge",
	IfGt:             "ifgt",
	IfLe:             "ifle",
	IfICmpEq:         "if_icmpeq",
	IfICmpNe:         "if_icmpne",
	IfICmpLt:         "if_icmplt",
	IfICmpGe:         "if_icmpge",
	IfICmpGt:         "if_icmpgt",
	IfICmpLe:         "if_icmple",
	IfACmpEq:         "if_acmpeq",
	IfACmpNe:         "if_acmpne",
	Goto:             "goto",
	Jsr:              "jsr",
	Ret:              "ret",
	TableSwitch:      "tableswitch",
	LookupSwitch:     "lookupswitch",
	IReturn:          "ireturn",
	LReturn:          "lreturn",
	FReturn:          "freturn",
	DReturn:          "dreturn",
	AReturn:          "areturn",
	Return:           "return",
	GetStatic:        "getstatic",
	PutStatic:        "putstatic",
	GetField:         "getfield",
	PutField:         "putfield",
	InvokeVirtual:    "invokevirtual",
	InvokeSpecial:    "invokespecial",
	InvokeStatic:     "invokestatic",
	InvokeInterface:  "invokeinterface",
	InvokeDynamic:    "invokedynamic",
	New:              "new",
	NewArray:         "newarray",
	ANewArray:        "anewarray",
	ArrayLength:      "arraylength",
	AThrow:           "athrow",
	CheckCast:        "checkcast",
	InstanceOf:       "instanceof",
	MonitorEnter:     "monitorenter",
	MonitorExit:      "monitorexit",
	MultiANewArray:   "multianewarray",
	IfNull:           "ifnull",
	IfNonNull:        "ifnonnull",
	GotoW:            "goto_w",
	JsrW:             "jsr_w",
	If:               "if",
	IfCmp:            "ifcmp",
	IfXNull:          "ifxnull",
	ComplexIf:        "complexif",
	Load:             "load",
	Store:            "store",
	ExceptionLoad:    "exceptionload",
	RetAddrLoad:      "returnaddressload",
	XReturn:          "xreturn",
	Assignment:       "assignment",
	TernaryOp:        "ternaryop",
	BinaryOp:         "binaryop",
	UnaryOp:          "unaryop",
	DupStore:         "dupstore",
	DupLoad:          "dupload",
	InitArray:        "initarray",
	NewAndInitArray:  "newandinitarray",
	ClassLiteral:     "classliteral",
	Assert:           "assert",
	PreInc:           "preinc",
	PostInc:          "postinc",
	Convert:          "convert",
	Declare:          "declare",
	Label:            "label",
	IfSimple:         "if_simple",
	IfElse:           "if_else",
	IfBreak:          "if_break",
	IfContinue:       "if_continue",
	IfLabeledBreak:   "if_labeled_break",
	GotoBreak:        "goto_break",
	GotoContinue:     "goto_continue",
	GotoLabeledBreak: "goto_labeled_break",
	While:            "while",
	DoWhile:          "do_while",
	For:              "for",
	ForEach:          "foreach",
	InfiniteLoop:     "infinite_loop",
	Switch:           "switch",
	SwitchEnum:       "switch_enum",
	SwitchString:     "switch_string",
	Try:              "try",
	Synchronized:     "synchronized",
}

// String returns the mnemonic for the code.
func (c Code) String() string {
	if name, ok := names[c]; ok {
		return name
	}
	return "unknown"
}
