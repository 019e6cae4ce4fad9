// Package dis renders a reconstructed instruction tree as an indented
// structural listing, for debugging and for the command-line tool.
package dis

import (
	"fmt"
	"io"
	"strings"

	"github.com/dekaf-io/dekaf/instruction"
	"github.com/dekaf-io/dekaf/op"
)

// Dump writes the tree to w, one node per line, nested blocks
// indented.
func Dump(w io.Writer, list []instruction.Instruction) error {
	return dump(w, list, 0)
}

// String renders the tree to a string.
func String(list []instruction.Instruction) string {
	var sb strings.Builder
	_ = dump(&sb, list, 0)
	return sb.String()
}

func dump(w io.Writer, list []instruction.Instruction, depth int) error {
	indent := strings.Repeat("    ", depth)
	for _, in := range list {
		if in == nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s%4d %s%s\n", indent, in.Offset(), in.Opcode(), describe(in)); err != nil {
			return err
		}
		for _, block := range instruction.Blocks(in) {
			if err := dump(w, block, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// describe appends the details worth seeing in a listing: slots, jump
// targets, case keys, operators.
func describe(in instruction.Instruction) string {
	switch n := in.(type) {
	case *instruction.Load:
		return fmt.Sprintf(" %d", n.Index)
	case *instruction.Store:
		return fmt.Sprintf(" %d", n.Index)
	case *instruction.IInc:
		return fmt.Sprintf(" %d %+d", n.Index, n.Count)
	case *instruction.IntConst:
		return fmt.Sprintf(" %d", n.Value)
	case *instruction.FastDeclaration:
		return fmt.Sprintf(" slot=%d", n.Variable.Index)
	case *instruction.FastSwitch:
		keys := make([]string, 0, len(n.Cases))
		for _, c := range n.Cases {
			if c.IsDefault {
				keys = append(keys, "default")
			} else {
				keys = append(keys, fmt.Sprintf("%d", c.Key))
			}
		}
		return " [" + strings.Join(keys, " ") + "]"
	case *instruction.FastTry:
		return fmt.Sprintf(" catches=%d finally=%t", len(n.Catches), n.FinallyInstructions != nil)
	}
	if br, ok := in.(instruction.Branch); ok && in.Opcode().IsBranch() {
		return fmt.Sprintf(" -> %d", br.Target())
	}
	if in.Opcode() == op.GotoLabeledBreak || in.Opcode() == op.IfLabeledBreak {
		if br, ok := in.(instruction.Branch); ok {
			return fmt.Sprintf(" -> %d", br.Target())
		}
	}
	return ""
}
