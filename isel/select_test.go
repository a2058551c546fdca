package isel

import (
	"bytes"
	"errors"
	"testing"

	"golang.org/x/exp/slices"

	"github.com/gogpu/wavesel/ir"
	"github.com/gogpu/wavesel/isa"
)

func TestSelect_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func() *ir.Function
		opts  func(*Options)
		kind  ErrorKind
		diag  string
	}{
		{
			name: "discard in compute",
			build: func() *ir.Function {
				b := ir.NewBuilder("f", ir.StageCompute)
				b.Intrinsic(&ir.Intrinsic{Op: ir.Discard}, nil)
				return b.Finish()
			},
			kind: ErrUnsupported,
			diag: "wavesel: f: unsupported discard: discard in a compute shader\n",
		},
		{
			name: "wave size",
			build: func() *ir.Function {
				return ir.NewBuilder("g", ir.StageCompute).Finish()
			},
			opts: func(o *Options) { o.Target.WaveSize = 48 },
			kind: ErrUnsupported,
			diag: "wavesel: g: unsupported wave: wave size 48\n",
		},
		{
			name: "break outside loop",
			build: func() *ir.Function {
				b := ir.NewBuilder("f", ir.StageCompute)
				b.Jump(ir.JumpBreak)
				return b.Finish()
			},
			kind: ErrMalformed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var diag bytes.Buffer
			opts := DefaultOptions()
			opts.Diagnostics = &diag
			if tt.opts != nil {
				tt.opts(&opts)
			}
			p, err := Select(tt.build(), &opts)
			if p != nil {
				t.Error("partial program returned")
			}
			var ce *CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("Select error = %v, want a *CompileError", err)
			}
			if ce.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", ce.Kind, tt.kind)
			}
			if tt.diag != "" && diag.String() != tt.diag {
				t.Errorf("diagnostic = %q, want %q", diag.String(), tt.diag)
			}
		})
	}
}

func TestSelect_NilOptions(t *testing.T) {
	p, err := Select(ir.NewBuilder("f", ir.StageFragment).Finish(), nil)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if p.WaveSize != 64 || p.Chip != isa.GFX9 {
		t.Errorf("program targets %v wave%d, want gfx9 wave64", p.Chip, p.WaveSize)
	}
	if len(p.Blocks) != 1 || p.Blocks[0].Last().Opcode != isa.OpSEndpgm {
		t.Errorf("empty function selected to %v", p.Blocks)
	}
}

func TestSelect_StartProgram(t *testing.T) {
	tests := []struct {
		name   string
		stage  ir.ShaderStage
		inline uint32
		build  func(b *ir.Builder)
		want   []isa.RegClass
	}{
		{"compute", ir.StageCompute, 2, func(*ir.Builder) {},
			[]isa.RegClass{isa.S1, isa.S1, isa.S1, isa.S1, isa.S1, isa.V1, isa.V1, isa.V1}},
		{"fragment", ir.StageFragment, 0, func(*ir.Builder) {}, nil},
		{"sets and push constants", ir.StageFragment, 1, func(b *ir.Builder) {
			b.Intrinsic(&ir.Intrinsic{Op: ir.VulkanResourceIndex, Resource: ir.Resource{Set: 1}}, u32)
			b.Intrinsic(&ir.Intrinsic{Op: ir.LoadPushConstant, Srcs: []ir.ValueHandle{b.Const(0)}, Align: 4}, u32)
		}, []isa.RegClass{isa.S1, isa.S1, isa.S1, isa.S1}},
		{"scratch", ir.StageFragment, 0, func(b *ir.Builder) {
			b.Intrinsic(&ir.Intrinsic{Op: ir.StoreScratch, Srcs: []ir.ValueHandle{b.Const(7), b.Const(0)}, Align: 4}, nil)
		}, []isa.RegClass{isa.S4, isa.S1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ir.NewBuilder("f", tt.stage)
			tt.build(b)
			opts := DefaultOptions()
			opts.InlinePushConstants = InlinePushConstants{Count: tt.inline}
			p, err := Select(b.Finish(), &opts)
			if err != nil {
				t.Fatalf("Select failed: %v", err)
			}
			start := p.Blocks[0].Instructions[0]
			if start.Opcode != isa.OpPStartPgm {
				t.Fatalf("first instruction is %v", start.Opcode)
			}
			var got []isa.RegClass
			for _, d := range start.Definitions {
				got = append(got, d.RegClass())
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("arguments = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelect_ControlBarrier(t *testing.T) {
	tests := []struct {
		name      string
		stage     ir.ShaderStage
		workgroup [3]uint32
		wave      uint32
		want      bool
	}{
		{"one wave", ir.StageCompute, [3]uint32{8, 8, 1}, 64, false},
		{"two waves", ir.StageCompute, [3]uint32{8, 8, 1}, 32, true},
		{"unknown size", ir.StageCompute, [3]uint32{}, 64, true},
		{"fragment", ir.StageFragment, [3]uint32{}, 64, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ir.NewBuilder("f", tt.stage)
			b.Func.Workgroup = tt.workgroup
			b.Intrinsic(&ir.Intrinsic{Op: ir.ControlBarrier}, nil)
			p := selectWave(t, b.Finish(), isa.GFX10, tt.wave)
			if got := findOpcode(p, isa.OpSBarrier) != nil; got != tt.want {
				t.Errorf("s_barrier emitted = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelect_ProgramMetadata(t *testing.T) {
	b := ir.NewBuilder("f", ir.StageCompute)
	b.Func.ConstantData = []byte{1, 2, 3, 4}
	lid := localID(b)
	store(b, lid, lid)
	p := selectFn(t, b.Finish())

	if !bytes.Equal(p.ConstantData, b.Func.ConstantData) {
		t.Errorf("constant data = %v", p.ConstantData)
	}
	if p.Stats.Instructions == 0 {
		t.Error("no instructions counted")
	}
	entry := p.Blocks[0]
	if !entry.Kind.Has(isa.BlockTopLevel | isa.BlockUniform) {
		t.Errorf("entry kind = %v", entry.Kind)
	}
	n := len(entry.Instructions)
	if entry.Instructions[n-2].Opcode != isa.OpPLogicalEnd || entry.Instructions[n-1].Opcode != isa.OpSEndpgm {
		t.Errorf("program does not end with p_logical_end, s_endpgm")
	}
}
