package main

import "github.com/gogpu/wavesel/ir"

type sample struct {
	name  string
	desc  string
	build func() *ir.Function
}

var samples = []sample{
	{"divergent_if", "per-lane conditional merged by a phi", buildDivergentIf},
	{"loop", "uniform counted loop with a divergent accumulator", buildLoop},
	{"discard", "fragment discard under a divergent condition", buildDiscard},
	{"reduce", "subgroup reduction and ballot", buildReduce},
	{"texture", "sampled texture with explicit level", buildTexture},
}

var (
	u32 = &ir.Value{BitSize: 32, Components: 1}
	v32 = &ir.Value{BitSize: 32, Components: 1, Divergent: true}
)

// storeLane writes v to binding 0 of set 0 at lane*stride.
func storeLane(b *ir.Builder, v, lane ir.ValueHandle, stride uint32) {
	desc := b.Intrinsic(&ir.Intrinsic{Op: ir.VulkanResourceIndex}, u32)
	off := b.ALU(ir.OpIMul, 32, true, lane, b.Const(stride))
	b.Intrinsic(&ir.Intrinsic{Op: ir.StoreSSBO, Srcs: []ir.ValueHandle{v, desc, off}, Align: 4}, nil)
}

func buildDivergentIf() *ir.Function {
	b := ir.NewBuilder("divergent_if", ir.StageCompute)
	b.Func.Workgroup = [3]uint32{64, 1, 1}
	lid := b.Intrinsic(&ir.Intrinsic{Op: ir.LoadLocalInvocationID}, v32)
	cond := b.ALU(ir.OpULt, 1, true, lid, b.Const(16))

	var x, y ir.ValueHandle
	thenEnd, elseEnd := b.If(cond, func() {
		x = b.ALU(ir.OpIMul, 32, true, lid, b.Const(3))
	}, func() {
		y = b.ALU(ir.OpIAdd, 32, true, lid, b.Const(1))
	})
	r := b.Phi(32, 1, true,
		ir.PhiSrc{Pred: thenEnd.Index, Value: x},
		ir.PhiSrc{Pred: elseEnd.Index, Value: y})
	storeLane(b, r, lid, 4)
	return b.Finish()
}

func buildLoop() *ir.Function {
	b := ir.NewBuilder("loop", ir.StageCompute)
	b.Func.Workgroup = [3]uint32{64, 1, 1}
	b.Func.PushConstantSize = 4
	lid := b.Intrinsic(&ir.Intrinsic{Op: ir.LoadLocalInvocationID}, v32)
	n := b.Intrinsic(&ir.Intrinsic{Op: ir.LoadPushConstant, Srcs: []ir.ValueHandle{b.Const(0)}, Range: 4, Align: 4}, u32)
	zero := b.Const(0)
	entry := b.Current()

	var sum ir.ValueHandle
	b.Loop(func(header *ir.Block) {
		i := b.Phi(32, 1, false, ir.PhiSrc{Pred: entry.Index, Value: zero})
		sum = b.Phi(32, 1, true, ir.PhiSrc{Pred: entry.Index, Value: zero})
		done := b.ALU(ir.OpUGe, 1, false, i, n)
		b.If(done, func() { b.Jump(ir.JumpBreak) }, nil)
		next := b.ALU(ir.OpIAdd, 32, false, i, b.Const(1))
		acc := b.ALU(ir.OpIAdd, 32, true, sum, lid)
		latch := b.Current().Index
		iPhi := header.Instrs[0].(*ir.Phi)
		iPhi.Srcs = append(iPhi.Srcs, ir.PhiSrc{Pred: latch, Value: next})
		sumPhi := header.Instrs[1].(*ir.Phi)
		sumPhi.Srcs = append(sumPhi.Srcs, ir.PhiSrc{Pred: latch, Value: acc})
	})
	storeLane(b, sum, lid, 4)
	return b.Finish()
}

func buildDiscard() *ir.Function {
	b := ir.NewBuilder("discard", ir.StageFragment)
	lane := b.Intrinsic(&ir.Intrinsic{Op: ir.LoadSubgroupInvocation}, v32)
	odd := b.ALU(ir.OpIAnd, 32, true, lane, b.Const(1))
	cond := b.ALU(ir.OpINe, 1, true, odd, b.Const(0))
	b.If(cond, func() {
		b.Intrinsic(&ir.Intrinsic{Op: ir.Discard}, nil)
	}, nil)
	high := b.ALU(ir.OpUGe, 1, true, lane, b.Const(48))
	b.Intrinsic(&ir.Intrinsic{Op: ir.DemoteIf, Srcs: []ir.ValueHandle{high}}, nil)
	storeLane(b, lane, lane, 4)
	return b.Finish()
}

func buildReduce() *ir.Function {
	b := ir.NewBuilder("reduce", ir.StageCompute)
	b.Func.Workgroup = [3]uint32{64, 1, 1}
	lid := b.Intrinsic(&ir.Intrinsic{Op: ir.LoadLocalInvocationID}, v32)
	total := b.Intrinsic(&ir.Intrinsic{Op: ir.Reduce, Srcs: []ir.ValueHandle{lid}, Reduce: ir.ReduceIAdd}, u32)
	prefix := b.Intrinsic(&ir.Intrinsic{Op: ir.ExclusiveScan, Srcs: []ir.ValueHandle{lid}, Reduce: ir.ReduceIAdd}, v32)
	even := b.ALU(ir.OpIEq, 1, true, b.ALU(ir.OpIAnd, 32, true, lid, b.Const(1)), b.Const(0))
	ballot := b.Intrinsic(&ir.Intrinsic{Op: ir.Ballot, Srcs: []ir.ValueHandle{even}},
		&ir.Value{BitSize: 32, Components: 4})
	first := b.ALU(ir.OpMov, 32, false, ballot)
	sum := b.ALU(ir.OpIAdd, 32, true, prefix, total)
	storeLane(b, b.ALU(ir.OpIAdd, 32, true, sum, first), lid, 4)
	return b.Finish()
}

func buildTexture() *ir.Function {
	b := ir.NewBuilder("texture", ir.StageFragment)
	lane := b.Intrinsic(&ir.Intrinsic{Op: ir.LoadSubgroupInvocation}, v32)
	s := b.ALU(ir.OpU2F32, 32, true, lane)
	t := b.ALU(ir.OpFMul, 32, true, s, b.Const(0x3c800000))
	coord := b.Value(32, 2, true)
	b.Emit(&ir.ALU{Op: ir.OpVec2, Dest: coord, Srcs: []ir.ALUSrc{ir.Src(s), ir.Src(t)}})
	color := b.Value(32, 4, true)
	b.Emit(&ir.Tex{
		Op:      ir.TexSampleLod,
		Dest:    color,
		Coord:   coord,
		Lod:     b.Const(0),
		Texture: ir.ImageRef{Resource: ir.Resource{Binding: 1}, Dim: ir.Dim2D},
		Sampler: ir.Resource{Binding: 2},
	})
	storeLane(b, color, lane, 16)
	return b.Finish()
}
