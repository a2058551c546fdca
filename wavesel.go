// Package wavesel selects GPU machine instructions for shader functions.
//
// wavesel lowers a shader entry point in structured SSA form (package ir)
// into a program for a wave-based GPU (package isa). Uniform values live in
// scalar registers, divergent ones in vector registers, and structured
// control flow becomes a dual logical/linear CFG whose exec mask handling
// is made explicit for later passes.
//
// Example usage:
//
//	b := ir.NewBuilder("main", ir.StageCompute)
//	// ... build the function ...
//	prog, err := wavesel.Compile(b.Func, wavesel.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	isa.Print(os.Stdout, prog)
//
// For finer control use ir.Validate and isel.Select directly.
package wavesel

import (
	"fmt"

	"github.com/gogpu/wavesel/ir"
	"github.com/gogpu/wavesel/isa"
	"github.com/gogpu/wavesel/isel"
)

// CompileOptions configures compilation.
type CompileOptions struct {
	// Select configures instruction selection.
	Select isel.Options

	// Validate enables IR validation before selection.
	Validate bool
}

// DefaultOptions returns sensible default options.
func DefaultOptions() CompileOptions {
	return CompileOptions{
		Select:   isel.DefaultOptions(),
		Validate: true,
	}
}

// Compile validates fn (if enabled) and selects instructions for it.
//
// The pipeline is:
//  1. Validate IR (if enabled)
//  2. Select instructions, building the logical and linear CFG
//  3. Compute block successor lists
func Compile(fn *ir.Function, opts CompileOptions) (*isa.Program, error) {
	if opts.Validate {
		if err := Validate(fn); err != nil {
			return nil, err
		}
	}
	prog, err := isel.Select(fn, &opts.Select)
	if err != nil {
		return nil, fmt.Errorf("selection error: %w", err)
	}
	return prog, nil
}

// Validate checks fn for the structural rules selection relies on and
// returns the first violation.
func Validate(fn *ir.Function) error {
	errs, err := ir.Validate(fn)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %w", &errs[0])
	}
	return nil
}
