package main

import (
	"encoding/json"
	"fmt"

	"github.com/dekaf-io/dekaf/classfile"
	"github.com/dekaf-io/dekaf/instruction"
	"github.com/dekaf-io/dekaf/op"
)

// The tree command consumes a JSON description of a decoded method:
// the class context, the tables, and the instruction statements with
// their operand trees. It is a debugging surface, not a class-file
// parser; an upstream decoder normally supplies these structures
// directly.

type methodInput struct {
	classFile    *classfile.ClassFile
	method       *classfile.Method
	instructions []instruction.Instruction
}

type inputDoc struct {
	MajorVersion   int           `json:"majorVersion"`
	Pool           []poolEntry   `json:"pool"`
	LocalVariables []localVarDoc `json:"localVariables"`
	ExceptionTable []excDoc      `json:"exceptionTable"`
	Instructions   []insnDoc     `json:"instructions"`
}

type poolEntry struct {
	Type       string `json:"type"`
	Value      string `json:"value,omitempty"`
	Class      string `json:"class,omitempty"`
	Name       string `json:"name,omitempty"`
	Descriptor string `json:"descriptor,omitempty"`
}

type localVarDoc struct {
	Index   int `json:"index"`
	StartPC int `json:"startPc"`
	Length  int `json:"length"`
}

type excDoc struct {
	StartPC   int `json:"startPc"`
	EndPC     int `json:"endPc"`
	HandlerPC int `json:"handlerPc"`
	CatchType int `json:"catchType"`
}

type insnDoc struct {
	Op     string    `json:"op"`
	Offset int       `json:"offset"`
	Line   int       `json:"line"`
	Index  int       `json:"index,omitempty"`
	Count  int       `json:"count,omitempty"`
	Value  *insnDoc  `json:"value,omitempty"`
	Left   *insnDoc  `json:"left,omitempty"`
	Right  *insnDoc  `json:"right,omitempty"`
	Ref    *insnDoc  `json:"ref,omitempty"`
	Args   []insnDoc `json:"args,omitempty"`
	Cond   string    `json:"cond,omitempty"`
	Target int       `json:"target,omitempty"`
	IntVal int       `json:"intValue,omitempty"`

	DefaultTarget int   `json:"defaultTarget,omitempty"`
	Keys          []int `json:"keys,omitempty"`
	Targets       []int `json:"targets,omitempty"`
}

func decodeInput(data []byte) (*methodInput, error) {
	var doc inputDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	pool := classfile.NewConstantPool()
	for _, e := range doc.Pool {
		switch e.Type {
		case "utf8":
			pool.AddUtf8(e.Value)
		case "string":
			pool.Add(&classfile.ConstantString{StringIndex: pool.AddUtf8(e.Value)})
		case "class":
			pool.AddClass(e.Name)
		case "methodref":
			pool.Add(&classfile.ConstantMethodref{
				ClassIndex:       pool.AddClass(e.Class),
				NameAndTypeIndex: pool.AddNameAndType(e.Name, e.Descriptor),
			})
		case "fieldref":
			pool.AddFieldref(e.Class, e.Name, e.Descriptor)
		default:
			return nil, fmt.Errorf("unknown pool entry type %q", e.Type)
		}
	}

	locals := classfile.NewLocalVariables()
	for _, lv := range doc.LocalVariables {
		locals.Add(&classfile.LocalVariable{
			Index:   lv.Index,
			StartPC: lv.StartPC,
			Length:  lv.Length,
		})
	}

	method := &classfile.Method{LocalVariables: locals}
	for _, e := range doc.ExceptionTable {
		method.ExceptionTable = append(method.ExceptionTable, classfile.CodeException{
			StartPC:   e.StartPC,
			EndPC:     e.EndPC,
			HandlerPC: e.HandlerPC,
			CatchType: e.CatchType,
		})
	}

	list := make([]instruction.Instruction, 0, len(doc.Instructions))
	for i := range doc.Instructions {
		in, err := decodeInsn(&doc.Instructions[i])
		if err != nil {
			return nil, err
		}
		list = append(list, in)
	}

	return &methodInput{
		classFile: &classfile.ClassFile{
			MajorVersion: doc.MajorVersion,
			Pool:         pool,
		},
		method:       method,
		instructions: list,
	}, nil
}

func decodeCond(s string) (op.Cond, error) {
	switch s {
	case "eq", "":
		return op.CondEq, nil
	case "ne":
		return op.CondNe, nil
	case "lt":
		return op.CondLt, nil
	case "ge":
		return op.CondGe, nil
	case "gt":
		return op.CondGt, nil
	case "le":
		return op.CondLe, nil
	}
	return op.CondEq, fmt.Errorf("unknown condition %q", s)
}

func decodeInsn(doc *insnDoc) (instruction.Instruction, error) {
	if doc == nil {
		return nil, nil
	}
	child := func(d *insnDoc) (instruction.Instruction, error) {
		if d == nil {
			return nil, nil
		}
		return decodeInsn(d)
	}

	base := instruction.At(0, doc.Offset, doc.Line)
	switch doc.Op {
	case "iconst":
		base.Op = op.IConst
		return &instruction.IntConst{Base: base, Value: int32(doc.IntVal)}, nil
	case "ldc":
		base.Op = op.Ldc
		return &instruction.Ldc{Base: base, Index: doc.Index}, nil
	case "aconst_null":
		base.Op = op.AConstNull
		return &instruction.ConstNull{Base: base}, nil
	case "iload", "aload", "load":
		base.Op = map[string]op.Code{"iload": op.ILoad, "aload": op.ALoad, "load": op.Load}[doc.Op]
		return &instruction.Load{Base: base, Index: doc.Index}, nil
	case "istore", "astore", "store":
		base.Op = map[string]op.Code{"istore": op.IStore, "astore": op.AStore, "store": op.Store}[doc.Op]
		value, err := child(doc.Value)
		if err != nil {
			return nil, err
		}
		return &instruction.Store{Base: base, Index: doc.Index, Value: value}, nil
	case "iinc":
		base.Op = op.IInc
		return &instruction.IInc{Base: base, Index: doc.Index, Count: doc.Count}, nil
	case "if":
		base.Op = op.If
		cond, err := decodeCond(doc.Cond)
		if err != nil {
			return nil, err
		}
		value, err := child(doc.Value)
		if err != nil {
			return nil, err
		}
		return &instruction.If{
			Jump: instruction.Jump{Base: base, JumpDelta: doc.Target - doc.Offset},
			Cond: cond, Value: value,
		}, nil
	case "ifcmp":
		base.Op = op.IfCmp
		cond, err := decodeCond(doc.Cond)
		if err != nil {
			return nil, err
		}
		left, err := child(doc.Left)
		if err != nil {
			return nil, err
		}
		right, err := child(doc.Right)
		if err != nil {
			return nil, err
		}
		return &instruction.IfCmp{
			Jump: instruction.Jump{Base: base, JumpDelta: doc.Target - doc.Offset},
			Cond: cond, Left: left, Right: right,
		}, nil
	case "goto":
		base.Op = op.Goto
		return &instruction.Goto{Jump: instruction.Jump{Base: base, JumpDelta: doc.Target - doc.Offset}}, nil
	case "tableswitch", "lookupswitch":
		base.Op = op.TableSwitch
		if doc.Op == "lookupswitch" {
			base.Op = op.LookupSwitch
		}
		key, err := child(doc.Value)
		if err != nil {
			return nil, err
		}
		deltas := make([]int, len(doc.Targets))
		for i, t := range doc.Targets {
			deltas[i] = t - doc.Offset
		}
		return &instruction.Switch{
			Base: base, Key: key,
			DefaultDelta: doc.DefaultTarget - doc.Offset,
			Keys:         doc.Keys, Deltas: deltas,
		}, nil
	case "invoke":
		base.Op = op.InvokeVirtual
		ref, err := child(doc.Ref)
		if err != nil {
			return nil, err
		}
		args := make([]instruction.Instruction, 0, len(doc.Args))
		for i := range doc.Args {
			arg, err := decodeInsn(&doc.Args[i])
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return &instruction.Invoke{Base: base, Index: doc.Index, Ref: ref, Args: args}, nil
	case "checkcast":
		base.Op = op.CheckCast
		value, err := child(doc.Value)
		if err != nil {
			return nil, err
		}
		return &instruction.CheckCast{Base: base, Index: doc.Index, Value: value}, nil
	case "arraylength":
		base.Op = op.ArrayLength
		ref, err := child(doc.Ref)
		if err != nil {
			return nil, err
		}
		return &instruction.ArrayLength{Base: base, Ref: ref}, nil
	case "arrayload":
		base.Op = op.AALoad
		ref, err := child(doc.Ref)
		if err != nil {
			return nil, err
		}
		index, err := child(doc.Value)
		if err != nil {
			return nil, err
		}
		return &instruction.ArrayLoad{Base: base, Ref: ref, Index: index}, nil
	case "athrow":
		base.Op = op.AThrow
		value, err := child(doc.Value)
		if err != nil {
			return nil, err
		}
		return &instruction.AThrow{Base: base, Value: value}, nil
	case "monitorenter":
		base.Op = op.MonitorEnter
		value, err := child(doc.Value)
		if err != nil {
			return nil, err
		}
		return &instruction.MonitorEnter{Base: base, Value: value}, nil
	case "monitorexit":
		base.Op = op.MonitorExit
		value, err := child(doc.Value)
		if err != nil {
			return nil, err
		}
		return &instruction.MonitorExit{Base: base, Value: value}, nil
	case "return":
		base.Op = op.Return
		return &instruction.Return{Base: base}, nil
	case "xreturn":
		base.Op = op.XReturn
		value, err := child(doc.Value)
		if err != nil {
			return nil, err
		}
		return &instruction.XReturn{Base: base, Value: value}, nil
	}
	return nil, fmt.Errorf("unknown instruction %q at offset %d", doc.Op, doc.Offset)
}

// treeToJSON renders a reconstructed tree as plain JSON maps for the
// -o json mode.
func treeToJSON(list []instruction.Instruction) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, in := range list {
		if in == nil {
			continue
		}
		node := map[string]any{
			"op":     in.Opcode().String(),
			"offset": in.Offset(),
		}
		if in.LineNumber() != instruction.UnknownLine {
			node["line"] = in.LineNumber()
		}
		blocks := instruction.Blocks(in)
		if len(blocks) > 0 {
			nested := make([][]map[string]any, 0, len(blocks))
			for _, block := range blocks {
				nested = append(nested, treeToJSON(block))
			}
			node["blocks"] = nested
		}
		out = append(out, node)
	}
	return out
}
