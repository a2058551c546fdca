package isel

import (
	"io"

	"github.com/gogpu/wavesel/ir"
	"github.com/gogpu/wavesel/isa"
)

// Target describes the hardware a program is selected for. Use TargetFor to
// derive the feature flags from a chip class.
type Target struct {
	Chip     isa.ChipClass
	WaveSize uint32

	// HasSMulHi reports s_mul_hi_u32 and s_mul_hi_i32 (GFX9+).
	HasSMulHi bool
	// HasNoCarryAdd reports v_add_u32/v_sub_u32 without a carry-out (GFX9+).
	HasNoCarryAdd bool
	// HasDPP reports data parallel primitives on VOP1/VOP2 (GFX8+).
	HasDPP        bool
	HasDSBpermute bool
	// HasFlat reports flat addressing (GFX7+); HasGlobal reports the global_*
	// instructions with an immediate offset (GFX9+).
	HasFlat   bool
	HasGlobal bool
	// HasDwordx3 reports 96-bit vector memory transfers and 96/128-bit LDS
	// transfers (GFX7+).
	HasDwordx3 bool
	// HasS64Compare reports s_cmp_eq_u64/s_cmp_lg_u64 (GFX8+).
	HasS64Compare bool
	// HasF64Rounding reports v_trunc_f64, v_ceil_f64 and v_rndne_f64 (GFX7+).
	HasF64Rounding bool
	// HasShiftRev64 reports v_lshlrev_b64 and friends; older chips use the
	// non-reversed v_lshl_b64 operand order (GFX8+).
	HasShiftRev64 bool
	// VOP3Literal reports literal constants in the VOP3 encoding (GFX10+).
	VOP3Literal bool
	// LDSNeedsM0 reports that LDS instructions read their limit from m0
	// (before GFX9).
	LDSNeedsM0 bool
	// FullSinCosDomain reports that v_sin_f32/v_cos_f32 accept any input;
	// older chips are limited to [-256, 256] (GFX9+).
	FullSinCosDomain bool
	// SMEMGLCOK reports that scalar loads honour glc (GFX8+). Coherent uniform
	// loads on older chips go through a vector load.
	SMEMGLCOK bool
}

// TargetFor returns the target description of a chip class and wave size.
func TargetFor(chip isa.ChipClass, waveSize uint32) Target {
	return Target{
		Chip:             chip,
		WaveSize:         waveSize,
		HasSMulHi:        chip >= isa.GFX9,
		HasNoCarryAdd:    chip >= isa.GFX9,
		HasDPP:           chip >= isa.GFX8,
		HasDSBpermute:    chip >= isa.GFX8,
		HasFlat:          chip >= isa.GFX7,
		HasGlobal:        chip >= isa.GFX9,
		HasDwordx3:       chip >= isa.GFX7,
		HasS64Compare:    chip >= isa.GFX8,
		HasF64Rounding:   chip >= isa.GFX7,
		HasShiftRev64:    chip >= isa.GFX8,
		VOP3Literal:      chip >= isa.GFX10,
		LDSNeedsM0:       chip < isa.GFX9,
		FullSinCosDomain: chip >= isa.GFX9,
		SMEMGLCOK:        chip >= isa.GFX8,
	}
}

// BindingLayout places one descriptor binding inside its set.
type BindingLayout struct {
	// Offset is the byte offset of element 0 of the binding.
	Offset uint32
	// Stride is the byte distance between array elements.
	Stride uint32
	// SamplerOffset is added to Offset to reach the sampler of a combined
	// image sampler.
	SamplerOffset uint32
	// FmaskOffset is added to Offset to reach the FMASK descriptor of a
	// multisampled image.
	FmaskOffset uint32
}

// SetLayout is the layout of one descriptor set.
type SetLayout struct {
	Bindings map[uint32]BindingLayout
}

// Layout is the descriptor set layout of the pipeline.
type Layout struct {
	Sets []SetLayout
}

// DefaultBindingSize is the slot size used for bindings missing from the
// layout: binding n starts at n*DefaultBindingSize.
const DefaultBindingSize = 64

// Binding returns the placement of res. Bindings not described by the
// layout get a slot of DefaultBindingSize bytes.
func (l *Layout) Binding(res ir.Resource) BindingLayout {
	if int(res.Set) < len(l.Sets) {
		if b, ok := l.Sets[res.Set].Bindings[res.Binding]; ok {
			return b
		}
	}
	return BindingLayout{
		Offset:        res.Binding * DefaultBindingSize,
		Stride:        DefaultBindingSize,
		SamplerOffset: 32,
		FmaskOffset:   32,
	}
}

// InlinePushConstants describes push constant dwords passed directly in
// scalar registers.
type InlinePushConstants struct {
	// Base is the first inlined dword.
	Base uint32
	// Count is the number of inlined dwords.
	Count uint32
}

// Contains reports whether bytes [offset, offset+size) are fully inlined.
func (p InlinePushConstants) Contains(offset, size uint32) bool {
	if p.Count == 0 || offset%4 != 0 || size%4 != 0 {
		return false
	}
	start := offset / 4
	return start >= p.Base && start+size/4 <= p.Base+p.Count
}

// PromotionPolicy controls the broadcast of cached uniform vector elements
// when a divergent element is requested.
type PromotionPolicy uint8

const (
	// PromoteUniformToDivergent allows a uniform element to be copied into a
	// divergent register. Lane masks are never promoted.
	PromoteUniformToDivergent PromotionPolicy = iota
	// PromoteNever always extracts from the full vector instead.
	PromoteNever
)

// Options configures instruction selection.
type Options struct {
	Target Target
	Layout Layout

	InlinePushConstants InlinePushConstants

	// AddressHigh is the high dword of 32-bit descriptor and push constant
	// pointers.
	AddressHigh uint32

	Promotion PromotionPolicy

	// Diagnostics receives a line for every fatal selection error.
	// nil discards them.
	Diagnostics io.Writer
}

// DefaultOptions returns options for a wave64 GFX9 target.
func DefaultOptions() Options {
	return Options{
		Target:      TargetFor(isa.GFX9, 64),
		AddressHigh: 0xffff8000,
		Promotion:   PromoteUniformToDivergent,
		Diagnostics: io.Discard,
	}
}
