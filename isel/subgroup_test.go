package isel

import (
	"errors"
	"testing"

	"github.com/gogpu/wavesel/ir"
	"github.com/gogpu/wavesel/isa"
)

func TestQuadPerm(t *testing.T) {
	tests := []struct {
		op   ir.IntrinsicOp
		base uint32
		want [4]uint8
	}{
		{ir.QuadBroadcast, 2, [4]uint8{2, 2, 2, 2}},
		{ir.QuadBroadcast, 7, [4]uint8{3, 3, 3, 3}},
		{ir.QuadSwapHorizontal, 0, [4]uint8{1, 0, 3, 2}},
		{ir.QuadSwapVertical, 0, [4]uint8{2, 3, 0, 1}},
		{ir.QuadSwapDiagonal, 0, [4]uint8{3, 2, 1, 0}},
	}
	for _, tt := range tests {
		if got := quadPerm(&ir.Intrinsic{Op: tt.op, Base: tt.base}); got != tt.want {
			t.Errorf("quadPerm(%v, %d) = %v, want %v", tt.op, tt.base, got, tt.want)
		}
	}
}

func selectWave(t *testing.T, fn *ir.Function, chip isa.ChipClass, wave uint32) *isa.Program {
	t.Helper()
	opts := DefaultOptions()
	opts.Target = TargetFor(chip, wave)
	p, err := Select(fn, &opts)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	return p
}

func reduceFunction(in *ir.Intrinsic, divergentSrc bool) *ir.Function {
	b := ir.NewBuilder("f", ir.StageCompute)
	src := localID(b)
	if !divergentSrc {
		src = pushConst(b)
	}
	in.Srcs = []ir.ValueHandle{src}
	r := b.Intrinsic(in, v32)
	store(b, r, localID(b))
	return b.Finish()
}

func TestSelect_Reduce(t *testing.T) {
	tests := []struct {
		name      string
		in        *ir.Intrinsic
		divergent bool
		wave      uint32
		want      isa.Opcode
		cluster   uint32
	}{
		{"wave", &ir.Intrinsic{Op: ir.Reduce, Reduce: ir.ReduceIAdd}, true, 64, isa.OpPReduce, 64},
		{"wave32", &ir.Intrinsic{Op: ir.Reduce, Reduce: ir.ReduceIAdd}, true, 32, isa.OpPReduce, 32},
		{"clustered", &ir.Intrinsic{Op: ir.Reduce, Reduce: ir.ReduceUMax, ClusterSize: 4}, true, 64, isa.OpPReduce, 4},
		{"oversized cluster", &ir.Intrinsic{Op: ir.Reduce, Reduce: ir.ReduceUMax, ClusterSize: 128}, true, 64, isa.OpPReduce, 64},
		{"inclusive scan", &ir.Intrinsic{Op: ir.InclusiveScan, Reduce: ir.ReduceIAdd, ClusterSize: 4}, true, 64, isa.OpPInclusiveScan, 64},
		{"exclusive scan", &ir.Intrinsic{Op: ir.ExclusiveScan, Reduce: ir.ReduceIXor}, false, 64, isa.OpPExclusiveScan, 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := selectWave(t, reduceFunction(tt.in, tt.divergent), isa.GFX10, tt.wave)
			in := findOpcode(p, tt.want)
			if in == nil {
				t.Fatalf("no %v emitted", tt.want)
			}
			info := in.Payload.(isa.ReductionInfo)
			if info.ClusterSize != tt.cluster || info.BitSize != 32 {
				t.Errorf("reduction = %+v, want cluster %d of 32 bits", info, tt.cluster)
			}
			if len(in.Definitions) != 4 || in.Definitions[3].Fixed != isa.RegSCC {
				t.Errorf("definitions = %v, want result, scratch, mask and scc", in.Definitions)
			}
		})
	}
}

func TestSelect_ReduceUniform(t *testing.T) {
	tests := []struct {
		name    string
		reduce  ir.ReduceOp
		wave    uint32
		want    []isa.Opcode
		missing []isa.Opcode
	}{
		{"iadd", ir.ReduceIAdd, 64, []isa.Opcode{isa.OpSBcnt1I32B64, isa.OpSMulI32}, nil},
		{"iadd wave32", ir.ReduceIAdd, 32, []isa.Opcode{isa.OpSBcnt1I32B32, isa.OpSMulI32}, nil},
		{"ixor", ir.ReduceIXor, 64, []isa.Opcode{isa.OpSBcnt1I32B64, isa.OpSAndB32}, nil},
		{"umax", ir.ReduceUMax, 64, nil, []isa.Opcode{isa.OpSBcnt1I32B64}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &ir.Intrinsic{Op: ir.Reduce, Reduce: tt.reduce}
			p := selectWave(t, reduceFunction(in, false), isa.GFX10, tt.wave)
			if findOpcode(p, isa.OpPReduce) != nil {
				t.Error("uniform reduction went through p_reduce")
			}
			for _, opc := range tt.want {
				if findOpcode(p, opc) == nil {
					t.Errorf("no %v emitted", opc)
				}
			}
			for _, opc := range tt.missing {
				if findOpcode(p, opc) != nil {
					t.Errorf("unexpected %v", opc)
				}
			}
		})
	}
}

func TestSelect_ReduceBadCluster(t *testing.T) {
	in := &ir.Intrinsic{Op: ir.Reduce, Reduce: ir.ReduceIAdd, ClusterSize: 3}
	opts := DefaultOptions()
	_, err := Select(reduceFunction(in, true), &opts)
	var ce *CompileError
	if !errors.As(err, &ce) || ce.Kind != ErrMalformed {
		t.Fatalf("Select error = %v, want a malformed error", err)
	}
}
