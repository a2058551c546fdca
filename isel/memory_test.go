package isel

import (
	"errors"
	"testing"

	"golang.org/x/exp/slices"

	"github.com/gogpu/wavesel/ir"
	"github.com/gogpu/wavesel/isa"
)

func TestWriteRuns(t *testing.T) {
	tests := []struct {
		mask  uint8
		comps int
		want  []writeRun
	}{
		{0b1111, 4, []writeRun{{0, 4}}},
		{0b1011, 4, []writeRun{{0, 2}, {3, 1}}},
		{0b0101, 4, []writeRun{{0, 1}, {2, 1}}},
		{0b1110, 4, []writeRun{{1, 3}}},
		{0b1111, 2, []writeRun{{0, 2}}},
		{0, 4, nil},
	}
	for _, tt := range tests {
		if got := writeRuns(tt.mask, tt.comps); !slices.Equal(got, tt.want) {
			t.Errorf("writeRuns(%04b, %d) = %v, want %v", tt.mask, tt.comps, got, tt.want)
		}
	}
}

func opcodesOf(p *isa.Program, keep func(isa.Opcode) bool) []*isa.Instruction {
	var out []*isa.Instruction
	for _, b := range p.Blocks {
		for _, in := range b.Instructions {
			if keep(in.Opcode) {
				out = append(out, in)
			}
		}
	}
	return out
}

func TestSelect_StoreWriteMask(t *testing.T) {
	b := ir.NewBuilder("f", ir.StageCompute)
	data := b.ConstOf(32, false, 1, 2, 3, 4)
	desc := b.Intrinsic(&ir.Intrinsic{Op: ir.VulkanResourceIndex}, u32)
	b.Intrinsic(&ir.Intrinsic{
		Op:        ir.StoreSSBO,
		Srcs:      []ir.ValueHandle{data, desc, b.Const(16)},
		Align:     16,
		WriteMask: 0b1011,
	}, nil)
	p := selectFn(t, b.Finish())

	stores := opcodesOf(p, func(opc isa.Opcode) bool {
		return opc == isa.OpBufferStoreDwordx2 || opc == isa.OpBufferStoreDword
	})
	if len(stores) != 2 {
		t.Fatalf("got %d stores, want 2", len(stores))
	}
	want := []struct {
		opc    isa.Opcode
		offset uint16
	}{
		{isa.OpBufferStoreDwordx2, 16},
		{isa.OpBufferStoreDword, 28},
	}
	for i, w := range want {
		info := stores[i].Payload.(isa.MUBUFInfo)
		if stores[i].Opcode != w.opc || info.Offset != w.offset {
			t.Errorf("store %d = %v offset %d, want %v offset %d", i, stores[i].Opcode, info.Offset, w.opc, w.offset)
		}
	}
}

func TestSelect_PushConstants(t *testing.T) {
	tests := []struct {
		name   string
		inline InlinePushConstants
		offset uint32
		loads  int
	}{
		{"memory", InlinePushConstants{}, 4, 1},
		{"inline", InlinePushConstants{Count: 2}, 4, 0},
		{"past inline", InlinePushConstants{Count: 1}, 4, 1},
		{"inline base", InlinePushConstants{Base: 1, Count: 1}, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ir.NewBuilder("f", ir.StageCompute)
			v := b.Intrinsic(&ir.Intrinsic{
				Op:    ir.LoadPushConstant,
				Srcs:  []ir.ValueHandle{b.Const(tt.offset)},
				Range: 16,
				Align: 4,
			}, u32)
			store(b, v, localID(b))

			opts := DefaultOptions()
			opts.InlinePushConstants = tt.inline
			p, err := Select(b.Finish(), &opts)
			if err != nil {
				t.Fatalf("Select failed: %v", err)
			}
			loads := opcodesOf(p, func(opc isa.Opcode) bool { return opc == isa.OpSLoadDword })
			if len(loads) != tt.loads {
				t.Errorf("got %d scalar loads, want %d", len(loads), tt.loads)
			}
		})
	}
}

func TestSelect_PushConstantOutOfRange(t *testing.T) {
	b := ir.NewBuilder("f", ir.StageCompute)
	b.Intrinsic(&ir.Intrinsic{Op: ir.LoadPushConstant, Srcs: []ir.ValueHandle{b.Const(8)}, Range: 4, Align: 4}, u32)
	opts := DefaultOptions()
	_, err := Select(b.Finish(), &opts)
	var ce *CompileError
	if !errors.As(err, &ce) || ce.Kind != ErrMalformed {
		t.Fatalf("Select error = %v, want a malformed error", err)
	}
}

func TestSelect_UnknownAtomic(t *testing.T) {
	b := ir.NewBuilder("f", ir.StageCompute)
	lid := localID(b)
	b.Intrinsic(&ir.Intrinsic{
		Op:     ir.SharedAtomic,
		Atomic: ir.AtomicCompSwap + 1,
		Srcs:   []ir.ValueHandle{b.Const(0), lid},
	}, v32)
	opts := DefaultOptions()
	p, err := Select(b.Finish(), &opts)
	var ce *CompileError
	if !errors.As(err, &ce) || ce.Kind != ErrMalformed || ce.Op != "atomic" {
		t.Fatalf("Select error = %v, want a malformed atomic", err)
	}
	if p != nil {
		t.Error("partial program returned")
	}
}
