package fast

import (
	"fmt"

	"github.com/dekaf-io/dekaf/op"
)

// UnexpectedInstructionError reports a node whose shape none of the
// recognizers accept, such as a monitorenter with an unrecognized
// objectref.
type UnexpectedInstructionError struct {
	Code   op.Code
	Offset int
}

func (e *UnexpectedInstructionError) Error() string {
	return fmt.Sprintf("unexpected instruction %s at offset %d", e.Code, e.Offset)
}

// BoundsError reports an instruction-list extraction that fell outside
// the list. Fatal for the method; the caller falls back to raw bytecode
// printing.
type BoundsError struct {
	Index  int
	Length int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("instruction index %d out of bounds (list length %d)", e.Index, e.Length)
}

// EmptyCatchBlockError reports a catch clause whose body vanished.
type EmptyCatchBlockError struct {
	Offset int
}

func (e *EmptyCatchBlockError) Error() string {
	return fmt.Sprintf("empty catch block at offset %d", e.Offset)
}
