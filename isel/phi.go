package isel

import (
	"cmp"

	"golang.org/x/exp/slices"

	"github.com/gogpu/wavesel/ir"
	"github.com/gogpu/wavesel/isa"
)

// pendingPhi is a phi whose operands are filled in once every predecessor
// edge is known. Loop headers only learn their back edges at the end of the
// loop, and jumps add helper blocks between a source and the phi.
type pendingPhi struct {
	block   *isa.Block
	in      *isa.Instruction
	rc      isa.RegClass
	logical bool
	srcs    []phiSource
}

// phiSource is the operand flowing in from IR block pred.
type phiSource struct {
	pred uint32
	op   isa.Operand
}

func (ctx *selCtx) isUndef(h ir.ValueHandle) bool {
	_, ok := ctx.info.Defs[h].(*ir.Undef)
	return ok
}

// visitPhi selects a phi. Values in vector registers, lane masks and
// divergent values merge over the logical CFG, uniform scalars over the
// linear one.
func (ctx *selCtx) visitPhi(p *ir.Phi) {
	dst := ctx.get(p.Dest)
	dv := ctx.fn.Value(p.Dest)
	logical := dst.RC.IsDivergent() || dst.RC.IsMask() || dv.Divergent

	srcs := slices.Clone(p.Srcs)
	slices.SortFunc(srcs, func(a, b ir.PhiSrc) int { return cmp.Compare(a.Pred, b.Pred) })

	defined := slices.ContainsFunc(srcs, func(s ir.PhiSrc) bool { return !ctx.isUndef(s.Value) })
	if !defined {
		ctx.zeroFill(dst)
		return
	}

	if elems, ok := ctx.phiElements(srcs, dst, dv); ok {
		n := len(elems[0])
		rc := dst.RC.Element(n)
		parts := make([]isa.Temp, n)
		for k := range parts {
			parts[k] = ctx.bld.Tmp(rc)
			ps := make([]phiSource, len(srcs))
			for i, s := range srcs {
				ps[i] = phiSource{pred: s.Pred, op: isa.OperandUndef(rc)}
				if elems[i] != nil {
					ps[i].op = op(elems[i][k])
				}
			}
			ctx.addPhi(parts[k], ps, logical)
		}
		ctx.createVector(dst, parts...)
		return
	}

	ps := make([]phiSource, len(srcs))
	for i, s := range srcs {
		ps[i] = phiSource{pred: s.Pred, op: ctx.phiOperand(s.Value, dst.RC)}
	}
	ctx.addPhi(dst, ps, logical)
}

// phiElements returns the cached elements of every defined source of a
// vector phi, or false when some source is not split into components. nil
// entries are undefined sources.
func (ctx *selCtx) phiElements(srcs []ir.PhiSrc, dst isa.Temp, dv ir.Value) ([][]isa.Temp, bool) {
	n := int(dv.Components)
	if dv.BitSize == 1 || n < 2 || int(dst.RC.Size)%n != 0 {
		return nil, false
	}
	size := dst.RC.Size / uint8(n)
	elems := make([][]isa.Temp, len(srcs))
	for i, s := range srcs {
		if ctx.isUndef(s.Value) {
			continue
		}
		cached, ok := ctx.allocatedVec[ctx.get(s.Value).ID]
		if !ok || len(cached) != n || cached[0].RC.Size != size {
			return nil, false
		}
		if dst.RC.IsUniform() && slices.ContainsFunc(cached, func(t isa.Temp) bool { return t.RC.IsDivergent() }) {
			return nil, false
		}
		elems[i] = cached
	}
	return elems, true
}

// phiOperand returns the operand for source h of a phi of class rc.
func (ctx *selCtx) phiOperand(h ir.ValueHandle, rc isa.RegClass) isa.Operand {
	if ctx.isUndef(h) {
		return isa.OperandUndef(rc)
	}
	if rc.IsMask() && ctx.fn.Value(h).BitSize == 1 {
		if v, ok := ctx.constValue(h, 0); ok {
			return ctx.laneMaskConst(v != 0)
		}
	}
	return op(ctx.get(h))
}

func (ctx *selCtx) addPhi(dst isa.Temp, srcs []phiSource, logical bool) {
	opc := isa.OpPLinearPhi
	if logical {
		opc = isa.OpPPhi
	}
	in := isa.NewInstruction(opc, []isa.Definition{isa.Def(dst)}, nil, nil)
	ctx.block.InsertPhi(in)
	ctx.program.Stats.Instructions++
	ctx.phis = append(ctx.phis, &pendingPhi{block: ctx.block, in: in, rc: dst.RC, logical: logical, srcs: srcs})
}

// zeroFill defines a phi whose sources are all undefined as zero.
func (ctx *selCtx) zeroFill(dst isa.Temp) {
	switch {
	case dst.RC.IsMask():
		ctx.bld.Sop1(ctx.lm(isa.OpSMovB32, isa.OpSMovB64), isa.Def(dst), ctx.laneMaskConst(false))
	case dst.RC == isa.S1:
		ctx.bld.Sop1(isa.OpSMovB32, isa.Def(dst), cnst(0))
	case dst.RC == isa.V1:
		ctx.bld.Vop1(isa.OpVMovB32, isa.Def(dst), cnst(0))
	default:
		ops := make([]isa.Operand, dst.RC.Size)
		for i := range ops {
			ops[i] = cnst(0)
		}
		ctx.bld.CreateVector(isa.Def(dst), ops...)
	}
}

// resolvePhis fills in the operands of every phi, one per predecessor in
// the phi's CFG. A predecessor matches the source whose IR block ended in
// it. Helper blocks with a single linear predecessor are looked through.
// Predecessors without a source get undefined operands.
func (ctx *selCtx) resolvePhis() {
	for _, p := range ctx.phis {
		preds := p.block.LinearPreds
		if p.logical {
			preds = p.block.LogicalPreds
		}
		ops := make([]isa.Operand, len(preds))
		for i, pred := range preds {
			ops[i] = ctx.resolvePhiOperand(p, pred)
		}
		p.in.Operands = ops
	}
}

func (ctx *selCtx) resolvePhiOperand(p *pendingPhi, pred uint32) isa.Operand {
	for range ctx.program.Blocks {
		for _, s := range p.srcs {
			if ctx.irToISA[s.pred] != pred {
				continue
			}
			if p.rc.IsMask() && s.op.IsTemp() && !s.op.RegClass().IsMask() {
				return ctx.maskInBlock(ctx.program.Blocks[pred], s.op.Temp())
			}
			return s.op
		}
		b := ctx.program.Blocks[pred]
		if len(b.LogicalPreds) != 0 || len(b.LinearPreds) != 1 {
			break
		}
		pred = b.LinearPreds[0]
	}
	return isa.OperandUndef(p.rc)
}

// maskInBlock converts a uniform boolean into a lane mask at the end of the
// logical region of b.
func (ctx *selCtx) maskInBlock(b *isa.Block, t isa.Temp) isa.Operand {
	dst := ctx.program.AllocateTemp(ctx.program.LaneMask)
	in := isa.NewInstruction(ctx.lm(isa.OpSCselectB32, isa.OpSCselectB64), []isa.Definition{isa.Def(dst)},
		[]isa.Operand{ctx.laneMaskConst(true), ctx.laneMaskConst(false), scc(t)}, nil)
	pos := len(b.Instructions)
	for i := len(b.Instructions) - 1; i >= 0; i-- {
		if b.Instructions[i].Opcode == isa.OpPLogicalEnd {
			pos = i
			break
		}
	}
	b.Instructions = slices.Insert(b.Instructions, pos, in)
	ctx.program.Stats.Instructions++
	return op(dst)
}
