// Package isa defines the machine-level representation produced by instruction
// selection for wide-SIMD GPU targets.
//
// The representation is organised around a Program that owns:
//   - Blocks: basic blocks with two edge sets (logical and linear)
//   - Temps: SSA values identified by an arena id with a register class
//   - Summary flags consumed by the later register allocation and encoding passes
//
// # Register classes
//
// Every value lives in one of three lane kinds:
//
//	Uniform   one value for the whole wave (scalar registers)
//	Divergent one value per lane (vector registers)
//	Mask      one bit per lane (scalar registers holding an exec-style mask)
//
// Moving a value between kinds always needs an explicit instruction:
// a broadcast copy for Uniform to Divergent, a readfirstlane or p_as_uniform
// for Divergent to Uniform.
//
// # Control flow
//
// The logical CFG models data flow for SSA phis, while the linear CFG models
// the real machine branches, including helper blocks that exist only to avoid
// critical edges. Every block reachable in the logical CFG is also reachable in
// the linear CFG.
package isa
