package isel

import (
	"testing"

	"golang.org/x/exp/slices"

	"github.com/gogpu/wavesel/ir"
	"github.com/gogpu/wavesel/isa"
)

var (
	u32 = &ir.Value{BitSize: 32, Components: 1}
	v32 = &ir.Value{BitSize: 32, Components: 1, Divergent: true}
)

func selectFn(t *testing.T, fn *ir.Function) *isa.Program {
	t.Helper()
	errs, err := ir.Validate(fn)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(errs) > 0 {
		t.Fatalf("Validate: %v", &errs[0])
	}
	opts := DefaultOptions()
	p, err := Select(fn, &opts)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	return p
}

func hasOpcode(b *isa.Block, opc isa.Opcode) bool {
	return slices.ContainsFunc(b.Instructions, func(in *isa.Instruction) bool { return in.Opcode == opc })
}

func checkPreds(t *testing.T, p *isa.Program, idx int, logical, linear []uint32) {
	t.Helper()
	b := p.Blocks[idx]
	if !slices.Equal(b.LogicalPreds, logical) {
		t.Errorf("BB%d logical preds = %v, want %v", idx, b.LogicalPreds, logical)
	}
	if !slices.Equal(b.LinearPreds, linear) {
		t.Errorf("BB%d linear preds = %v, want %v", idx, b.LinearPreds, linear)
	}
}

func checkBranch(t *testing.T, p *isa.Program, idx int, opc isa.Opcode, taken, fall uint32) {
	t.Helper()
	last := p.Blocks[idx].Last()
	if last == nil || last.Opcode != opc {
		t.Fatalf("BB%d does not end in %v: %v", idx, opc, last)
	}
	info, ok := last.Payload.(isa.BranchInfo)
	if !ok {
		t.Fatalf("BB%d branch has payload %T", idx, last.Payload)
	}
	if info.Target[0] != taken || (fall != 0 && info.Target[1] != fall) {
		t.Errorf("BB%d %v targets = %v, want [%d %d]", idx, opc, info.Target, taken, fall)
	}
}

func localID(b *ir.Builder) ir.ValueHandle {
	return b.Intrinsic(&ir.Intrinsic{Op: ir.LoadLocalInvocationID}, v32)
}

func laneID(b *ir.Builder) ir.ValueHandle {
	return b.Intrinsic(&ir.Intrinsic{Op: ir.LoadSubgroupInvocation}, v32)
}

func pushConst(b *ir.Builder) ir.ValueHandle {
	return b.Intrinsic(&ir.Intrinsic{Op: ir.LoadPushConstant, Srcs: []ir.ValueHandle{b.Const(0)}, Range: 4, Align: 4}, u32)
}

func store(b *ir.Builder, v, lane ir.ValueHandle) {
	desc := b.Intrinsic(&ir.Intrinsic{Op: ir.VulkanResourceIndex}, u32)
	off := b.ALU(ir.OpIShl, 32, true, lane, b.Const(2))
	b.Intrinsic(&ir.Intrinsic{Op: ir.StoreSSBO, Srcs: []ir.ValueHandle{v, desc, off}, Align: 4}, nil)
}

func TestSelect_DivergentIf(t *testing.T) {
	b := ir.NewBuilder("f", ir.StageCompute)
	lid := localID(b)
	cond := b.ALU(ir.OpULt, 1, true, lid, b.Const(16))
	var x, y ir.ValueHandle
	thenEnd, elseEnd := b.If(cond,
		func() { x = b.ALU(ir.OpIMul, 32, true, lid, b.Const(3)) },
		func() { y = b.ALU(ir.OpIAdd, 32, true, lid, b.Const(1)) })
	r := b.Phi(32, 1, true, ir.PhiSrc{Pred: thenEnd.Index, Value: x}, ir.PhiSrc{Pred: elseEnd.Index, Value: y})
	store(b, r, lid)

	p := selectFn(t, b.Finish())
	if len(p.Blocks) != 7 {
		t.Fatalf("got %d blocks, want 7", len(p.Blocks))
	}
	kinds := []isa.BlockKind{
		isa.BlockTopLevel | isa.BlockBranch,
		0,
		isa.BlockUniform,
		isa.BlockInvert,
		0,
		isa.BlockUniform,
		isa.BlockMerge | isa.BlockTopLevel,
	}
	for i, k := range kinds {
		if !p.Blocks[i].Kind.Has(k) {
			t.Errorf("BB%d kind = %v, want %v", i, p.Blocks[i].Kind, k)
		}
	}
	checkPreds(t, p, 1, []uint32{0}, []uint32{0})
	checkPreds(t, p, 2, nil, []uint32{0})
	checkPreds(t, p, 3, nil, []uint32{1, 2})
	checkPreds(t, p, 4, []uint32{0}, []uint32{3})
	checkPreds(t, p, 5, nil, []uint32{3})
	checkPreds(t, p, 6, []uint32{1, 4}, []uint32{4, 5})
	checkBranch(t, p, 0, isa.OpPCbranchZ, 2, 1)
	checkBranch(t, p, 3, isa.OpPCbranchNz, 5, 4)
	checkBranch(t, p, 1, isa.OpPBranch, 3, 0)

	phis := p.Blocks[6].Phis()
	if len(phis) != 1 || phis[0].Opcode != isa.OpPPhi {
		t.Fatalf("merge phis = %v, want one p_phi", phis)
	}
	for i, o := range phis[0].Operands {
		if !o.IsTemp() {
			t.Errorf("phi operand %d = %v, want a temp", i, o)
		}
	}
	if !slices.Equal(p.Blocks[0].LogicalSuccs, []uint32{1, 4}) {
		t.Errorf("BB0 logical succs = %v, want [1 4]", p.Blocks[0].LogicalSuccs)
	}
}

func TestSelect_UniformIf(t *testing.T) {
	b := ir.NewBuilder("f", ir.StageCompute)
	n := pushConst(b)
	cond := b.ALU(ir.OpULt, 1, false, n, b.Const(4))
	var x, y ir.ValueHandle
	thenEnd, elseEnd := b.If(cond,
		func() { x = b.ALU(ir.OpIAdd, 32, false, n, b.Const(1)) },
		func() { y = b.ALU(ir.OpISub, 32, false, n, b.Const(1)) })
	r := b.Phi(32, 1, false, ir.PhiSrc{Pred: thenEnd.Index, Value: x}, ir.PhiSrc{Pred: elseEnd.Index, Value: y})
	store(b, r, localID(b))

	p := selectFn(t, b.Finish())
	if len(p.Blocks) != 4 {
		t.Fatalf("got %d blocks, want 4", len(p.Blocks))
	}
	checkPreds(t, p, 1, []uint32{0}, []uint32{0})
	checkPreds(t, p, 2, []uint32{0}, []uint32{0})
	checkPreds(t, p, 3, []uint32{1, 2}, []uint32{1, 2})
	checkBranch(t, p, 0, isa.OpPCbranchZ, 2, 1)
	if got := p.Blocks[0].Last().Operands[0].Fixed(); got != isa.RegSCC {
		t.Errorf("uniform branch condition is in %v, want scc", got)
	}
	if !hasOpcode(p.Blocks[3], isa.OpPLogicalStart) {
		t.Error("merge block has no logical start")
	}
	phis := p.Blocks[3].Phis()
	if len(phis) != 1 || phis[0].Opcode != isa.OpPLinearPhi {
		t.Fatalf("merge phis = %v, want one p_linear_phi", phis)
	}
}

func TestSelect_UniformBreak(t *testing.T) {
	b := ir.NewBuilder("f", ir.StageCompute)
	lid := localID(b)
	n := pushConst(b)
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
		header.Instrs[0].(*ir.Phi).Srcs = append(header.Instrs[0].(*ir.Phi).Srcs, ir.PhiSrc{Pred: latch, Value: next})
		header.Instrs[1].(*ir.Phi).Srcs = append(header.Instrs[1].(*ir.Phi).Srcs, ir.PhiSrc{Pred: latch, Value: acc})
	})
	store(b, sum, lid)

	p := selectFn(t, b.Finish())
	// preheader, header, then (break), else, endif (latch), exit
	if len(p.Blocks) != 6 {
		t.Fatalf("got %d blocks, want 6", len(p.Blocks))
	}
	if !p.Blocks[0].Kind.Has(isa.BlockLoopPreheader) || !p.Blocks[1].Kind.Has(isa.BlockLoopHeader) {
		t.Errorf("preheader/header kinds = %v / %v", p.Blocks[0].Kind, p.Blocks[1].Kind)
	}
	if !p.Blocks[2].Kind.Has(isa.BlockBreak | isa.BlockUniform) {
		t.Errorf("break block kind = %v", p.Blocks[2].Kind)
	}
	if !p.Blocks[4].Kind.Has(isa.BlockContinue | isa.BlockUniform) {
		t.Errorf("latch kind = %v", p.Blocks[4].Kind)
	}
	if !p.Blocks[5].Kind.Has(isa.BlockLoopExit | isa.BlockTopLevel) {
		t.Errorf("exit kind = %v", p.Blocks[5].Kind)
	}
	checkPreds(t, p, 1, []uint32{0, 4}, []uint32{0, 4})
	checkPreds(t, p, 4, []uint32{3}, []uint32{3})
	checkPreds(t, p, 5, []uint32{2}, []uint32{2})
	checkBranch(t, p, 2, isa.OpPBranch, 5, 0)
	checkBranch(t, p, 4, isa.OpPBranch, 1, 0)
	if d := p.Blocks[1].LoopNestDepth; d != 1 {
		t.Errorf("header depth = %d, want 1", d)
	}
	if d := p.Blocks[5].LoopNestDepth; d != 0 {
		t.Errorf("exit depth = %d, want 0", d)
	}

	phis := p.Blocks[1].Phis()
	if len(phis) != 2 {
		t.Fatalf("header has %d phis, want 2", len(phis))
	}
	if phis[0].Opcode != isa.OpPLinearPhi || phis[1].Opcode != isa.OpPPhi {
		t.Errorf("header phis = %v, %v", phis[0].Opcode, phis[1].Opcode)
	}
	for _, phi := range phis {
		if len(phi.Operands) != 2 || !phi.Operands[1].IsTemp() {
			t.Errorf("phi %v: back edge operand not resolved", phi)
		}
	}
}

func TestSelect_DivergentBreakNeedsHelpers(t *testing.T) {
	b := ir.NewBuilder("f", ir.StageCompute)
	lid := localID(b)
	b.Loop(func(*ir.Block) {
		cond := b.ALU(ir.OpIEq, 1, true, lid, b.Const(5))
		b.If(cond, func() { b.Jump(ir.JumpBreak) }, nil)
	})

	p := selectFn(t, b.Finish())
	if len(p.Blocks) != 13 {
		t.Fatalf("got %d blocks, want 13", len(p.Blocks))
	}
	if !p.Blocks[2].Kind.Has(isa.BlockBreak) || p.Blocks[2].Kind.Has(isa.BlockUniform) {
		t.Errorf("divergent break kind = %v", p.Blocks[2].Kind)
	}
	checkBranch(t, p, 2, isa.OpPCbranchZ, 3, 4)
	checkPreds(t, p, 3, nil, []uint32{2})
	checkPreds(t, p, 4, nil, []uint32{2})

	if !p.Blocks[9].Kind.Has(isa.BlockContinueOrBreak) {
		t.Errorf("loop end kind = %v, want continue_or_break", p.Blocks[9].Kind)
	}
	checkBranch(t, p, 9, isa.OpPCbranchZ, 10, 11)
	checkPreds(t, p, 10, nil, []uint32{9})
	checkPreds(t, p, 11, nil, []uint32{9})
	checkPreds(t, p, 1, []uint32{0, 9}, []uint32{0, 11})
	checkPreds(t, p, 12, []uint32{2}, []uint32{3, 10})

	reach := p.Reachable(true)
	for i, ok := range reach {
		if !ok {
			t.Errorf("BB%d is not linearly reachable", i)
		}
	}
}

func TestSelect_DivergentContinue(t *testing.T) {
	b := ir.NewBuilder("f", ir.StageCompute)
	lid := localID(b)
	n := pushConst(b)
	b.Loop(func(*ir.Block) {
		cond := b.ALU(ir.OpIEq, 1, true, lid, b.Const(5))
		b.If(cond, func() { b.Jump(ir.JumpContinue) }, nil)
		done := b.ALU(ir.OpIEq, 1, false, n, b.Const(0))
		b.If(done, func() { b.Jump(ir.JumpBreak) }, nil)
	})

	p := selectFn(t, b.Finish())
	var cont, brk *isa.Block
	for _, blk := range p.Blocks {
		switch {
		case blk.Kind.Has(isa.BlockContinue) && !blk.Kind.Has(isa.BlockUniform):
			cont = blk
		case blk.Kind.Has(isa.BlockBreak):
			brk = blk
		}
	}
	if cont == nil || brk == nil {
		t.Fatalf("missing divergent continue or break block")
	}
	// A break after a divergent continue is no longer uniform.
	if brk.Kind.Has(isa.BlockUniform) {
		t.Errorf("break after divergent continue is uniform: %v", brk.Kind)
	}
	if last := brk.Last(); last.Opcode != isa.OpPCbranchZ {
		t.Errorf("break block ends in %v, want p_cbranch_z to helpers", last.Opcode)
	}
}

func TestSelect_DiscardInDivergentLoop(t *testing.T) {
	b := ir.NewBuilder("f", ir.StageFragment)
	lane := laneID(b)
	b.Loop(func(*ir.Block) {
		cond := b.ALU(ir.OpIEq, 1, true, lane, b.Const(3))
		b.If(cond, func() {
			b.Intrinsic(&ir.Intrinsic{Op: ir.Discard}, nil)
		}, nil)
		b.Jump(ir.JumpBreak)
	})

	p := selectFn(t, b.Finish())
	if !p.UsesDiscard {
		t.Error("UsesDiscard not set")
	}
	d := p.Blocks[2]
	if !d.Kind.Has(isa.BlockDiscard | isa.BlockBreak) {
		t.Errorf("discard block kind = %v, want discard,break", d.Kind)
	}
	if hasOpcode(d, isa.OpExp) || hasOpcode(d, isa.OpSEndpgm) {
		t.Error("discard in a loop ended the program")
	}
	exit := p.Blocks[len(p.Blocks)-1]
	if !exit.Kind.Has(isa.BlockLoopExit) {
		t.Fatalf("last block kind = %v, want loop_exit", exit.Kind)
	}
	if !exit.HasLinearPred(3) {
		t.Errorf("exit linear preds = %v, want the discard helper BB3", exit.LinearPreds)
	}
	if exit.HasLogicalPred(2) {
		t.Error("discarded lanes reach the exit logically")
	}
}

func TestSelect_DiscardForms(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *ir.Builder)
		check func(t *testing.T, p *isa.Program)
	}{
		{
			name: "uniform top level",
			build: func(b *ir.Builder) {
				b.Intrinsic(&ir.Intrinsic{Op: ir.Discard}, nil)
			},
			check: func(t *testing.T, p *isa.Program) {
				blk := p.Blocks[0]
				if !blk.Kind.Has(isa.BlockExportEnd) {
					t.Errorf("kind = %v, want export_end", blk.Kind)
				}
				i := slices.IndexFunc(blk.Instructions, func(in *isa.Instruction) bool { return in.Opcode == isa.OpExp })
				if i < 0 {
					t.Fatal("no null export")
				}
				exp := blk.Instructions[i].Payload.(isa.ExportInfo)
				if exp.Target != isa.ExportNull || !exp.Done || !exp.ValidMask || exp.Enabled != 0 {
					t.Errorf("export = %+v", exp)
				}
				if blk.Instructions[i+1].Opcode != isa.OpSEndpgm {
					t.Errorf("export followed by %v, want s_endpgm", blk.Instructions[i+1].Opcode)
				}
			},
		},
		{
			name: "not last",
			build: func(b *ir.Builder) {
				b.Intrinsic(&ir.Intrinsic{Op: ir.Discard}, nil)
				b.Intrinsic(&ir.Intrinsic{Op: ir.MemoryBarrier}, nil)
			},
			check: func(t *testing.T, p *isa.Program) {
				if !hasOpcode(p.Blocks[0], isa.OpPDiscardIf) || !p.Blocks[0].Kind.Has(isa.BlockUsesDiscardIf) {
					t.Error("expected p_discard_if")
				}
				if !p.NeedsExact {
					t.Error("NeedsExact not set")
				}
			},
		},
		{
			name: "divergent if",
			build: func(b *ir.Builder) {
				cond := b.ALU(ir.OpIEq, 1, true, laneID(b), b.Const(0))
				b.If(cond, func() { b.Intrinsic(&ir.Intrinsic{Op: ir.Discard}, nil) }, nil)
			},
			check: func(t *testing.T, p *isa.Program) {
				if !p.Blocks[1].Kind.Has(isa.BlockDiscard) {
					t.Errorf("then block kind = %v, want discard", p.Blocks[1].Kind)
				}
				if hasOpcode(p.Blocks[1], isa.OpExp) {
					t.Error("divergent discard exported")
				}
				if len(p.Blocks) != 7 {
					t.Errorf("got %d blocks, want the 7 block diamond", len(p.Blocks))
				}
			},
		},
		{
			name: "divergent not last in a loop",
			build: func(b *ir.Builder) {
				lane := laneID(b)
				b.Loop(func(*ir.Block) {
					cond := b.ALU(ir.OpIEq, 1, true, lane, b.Const(3))
					b.If(cond, func() {
						b.Intrinsic(&ir.Intrinsic{Op: ir.Discard}, nil)
						b.Intrinsic(&ir.Intrinsic{Op: ir.MemoryBarrier}, nil)
					}, nil)
					b.Jump(ir.JumpBreak)
				})
			},
			check: func(t *testing.T, p *isa.Program) {
				if findOpcode(p, isa.OpPDiscardIf) != nil {
					t.Error("discard in a loop lowered as p_discard_if")
				}
				if !p.Blocks[2].Kind.Has(isa.BlockDiscard | isa.BlockBreak) {
					t.Errorf("discard block kind = %v, want discard,break", p.Blocks[2].Kind)
				}
				if findOpcode(p, isa.OpPMemoryBarrierAll) == nil {
					t.Error("instruction after the discard was dropped")
				}
			},
		},
		{
			name: "demote if",
			build: func(b *ir.Builder) {
				cond := b.ALU(ir.OpIEq, 1, true, laneID(b), b.Const(0))
				b.Intrinsic(&ir.Intrinsic{Op: ir.DemoteIf, Srcs: []ir.ValueHandle{cond}}, nil)
			},
			check: func(t *testing.T, p *isa.Program) {
				if len(p.Blocks) != 1 {
					t.Errorf("demote_if created blocks: %d", len(p.Blocks))
				}
				if !hasOpcode(p.Blocks[0], isa.OpPDemoteToHelper) || !p.UsesDemote {
					t.Error("expected p_demote_to_helper and UsesDemote")
				}
				if p.UsesDiscard {
					t.Error("demote set UsesDiscard")
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ir.NewBuilder("f", ir.StageFragment)
			tt.build(b)
			p := selectFn(t, b.Finish())
			tt.check(t, p)
		})
	}
}

func TestSelect_DiscardExecEmptyHelpers(t *testing.T) {
	tests := []struct {
		name  string
		inner bool
	}{
		{"discard under divergent if", false},
		{"discard in inner loop", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ir.NewBuilder("f", ir.StageFragment)
			lane := laneID(b)
			n := pushConst(b)
			b.Loop(func(*ir.Block) {
				cond := b.ALU(ir.OpIEq, 1, true, lane, b.Const(3))
				b.If(cond, func() {
					if tt.inner {
						b.Loop(func(*ir.Block) {
							b.Intrinsic(&ir.Intrinsic{Op: ir.Discard}, nil)
						})
					} else {
						b.Intrinsic(&ir.Intrinsic{Op: ir.Discard}, nil)
					}
				}, nil)
				done := b.ALU(ir.OpIEq, 1, false, n, b.Const(0))
				b.If(done, func() { b.Jump(ir.JumpBreak) }, nil)
			})
			p := selectFn(t, b.Finish())

			i := slices.IndexFunc(p.Blocks, func(blk *isa.Block) bool {
				return blk.Kind.Has(isa.BlockContinueOrBreak)
			})
			if i < 0 {
				t.Fatal("outer loop has no continue_or_break block for an empty exec mask")
			}
			last := p.Blocks[i].Last()
			if last.Opcode != isa.OpPCbranchZ || !last.Operands[0].IsFixed() || last.Operands[0].Fixed() != isa.RegExec {
				t.Errorf("continue_or_break ends with %v, want p_cbranch_z exec", last)
			}
		})
	}
}

func TestSelect_PhiAllUndefIsZero(t *testing.T) {
	b := ir.NewBuilder("f", ir.StageCompute)
	lid := localID(b)
	cond := b.ALU(ir.OpULt, 1, true, lid, b.Const(16))
	var x, y ir.ValueHandle
	thenEnd, elseEnd := b.If(cond,
		func() { x = b.Value(32, 1, true); b.Emit(&ir.Undef{Dest: x}) },
		func() { y = b.Value(32, 1, true); b.Emit(&ir.Undef{Dest: y}) })
	r := b.Phi(32, 1, true, ir.PhiSrc{Pred: thenEnd.Index, Value: x}, ir.PhiSrc{Pred: elseEnd.Index, Value: y})
	store(b, r, lid)

	p := selectFn(t, b.Finish())
	merge := p.Blocks[6]
	if len(merge.Phis()) != 0 {
		t.Errorf("undefined phi kept: %v", merge.Phis())
	}
	if !hasOpcode(merge, isa.OpVMovB32) {
		t.Error("expected v_mov_b32 0 for the undefined phi")
	}
}

func TestSelect_VectorPhiIsScalarized(t *testing.T) {
	b := ir.NewBuilder("f", ir.StageCompute)
	lid := localID(b)
	cond := b.ALU(ir.OpULt, 1, true, lid, b.Const(16))
	vec := func(a, c ir.ValueHandle) ir.ValueHandle {
		d := b.Value(32, 2, true)
		b.Emit(&ir.ALU{Op: ir.OpVec2, Dest: d, Srcs: []ir.ALUSrc{ir.Src(a), ir.Src(c)}})
		return d
	}
	var x, y ir.ValueHandle
	thenEnd, elseEnd := b.If(cond,
		func() { x = vec(lid, lid) },
		func() { y = vec(b.ALU(ir.OpIAdd, 32, true, lid, b.Const(1)), lid) })
	r := b.Phi(32, 2, true, ir.PhiSrc{Pred: thenEnd.Index, Value: x}, ir.PhiSrc{Pred: elseEnd.Index, Value: y})
	store(b, r, lid)

	p := selectFn(t, b.Finish())
	merge := p.Blocks[6]
	phis := merge.Phis()
	if len(phis) != 2 {
		t.Fatalf("got %d phis, want one per component", len(phis))
	}
	for _, phi := range phis {
		if rc := phi.Definitions[0].RegClass(); rc != isa.V1 {
			t.Errorf("phi class = %v, want v1", rc)
		}
	}
	if !hasOpcode(merge, isa.OpPCreateVector) {
		t.Error("components are not reassembled")
	}
}
