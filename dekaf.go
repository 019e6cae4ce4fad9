// Package dekaf reconstructs high-level Java control flow from decoded
// bytecode. It consumes the instruction lists, exception tables and
// local-variable tables an upstream class-file decoder produces, and
// emits a nested tree of statements in which every loop, conditional,
// switch, try and synchronized block of the original source is
// rebuilt. Rendering that tree as Java source is the job of a
// downstream printer.
package dekaf

import (
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/dekaf-io/dekaf/classfile"
	"github.com/dekaf-io/dekaf/fast"
	"github.com/dekaf-io/dekaf/instruction"
)

// Option configures a reconstruction run.
type Option func(*options)

type options struct {
	logger *zerolog.Logger
	refMap *classfile.ReferenceMap
}

// WithLogger directs per-pass debug output to the given logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// WithReferenceMap collects the types referenced by reconstructed code
// into the given sink.
func WithReferenceMap(rm *classfile.ReferenceMap) Option {
	return func(o *options) {
		o.refMap = rm
	}
}

func collectOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Reconstruct runs the pipeline over one decoded method body and
// returns the analyzed tree. On failure the method is marked via
// Method.ContainsError and the partial tree is returned with the error.
func Reconstruct(cf *classfile.ClassFile, method *classfile.Method, list []instruction.Instruction, opts ...Option) ([]instruction.Instruction, error) {
	o := collectOptions(opts...)
	return fast.Build(cf, method, list, &fast.Config{
		Logger:       o.logger,
		ReferenceMap: o.refMap,
	})
}

// MethodBody pairs a method with its decoded instruction list.
type MethodBody struct {
	Method       *classfile.Method
	Instructions []instruction.Instruction
}

// ReconstructClass runs the pipeline over every supplied method body.
// Methods own independent lists and tables, but they share the class's
// constant pool, so bodies of one class are processed sequentially.
// Per-method failures are collected rather than aborting the class;
// failed methods keep their partial trees and their ContainsError mark.
func ReconstructClass(cf *classfile.ClassFile, bodies []MethodBody, opts ...Option) ([][]instruction.Instruction, error) {
	o := collectOptions(opts...)
	var errs *multierror.Error
	trees := make([][]instruction.Instruction, len(bodies))
	for i, body := range bodies {
		tree, err := fast.Build(cf, body.Method, body.Instructions, &fast.Config{
			Logger:       o.logger,
			ReferenceMap: o.refMap,
		})
		trees[i] = tree
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return trees, errs.ErrorOrNil()
}
