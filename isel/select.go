package isel

import (
	"github.com/gogpu/wavesel/ir"
	"github.com/gogpu/wavesel/isa"
)

// Select lowers fn into a program for opts.Target. fn must have passed
// ir.Validate. A nil opts selects DefaultOptions.
//
// Operations without a lowering rule, broken selector invariants and input
// the selector cannot handle abort selection with a *CompileError, after a
// one-line diagnostic is written to opts.Diagnostics. No partial program is
// returned.
func Select(fn *ir.Function, opts *Options) (p *isa.Program, err error) {
	if opts == nil {
		o := DefaultOptions()
		opts = &o
	}
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		ce, ok := r.(*CompileError)
		if !ok {
			panic(r)
		}
		ce.Function = fn.Name
		diagnose(opts.Diagnostics, ce)
		p, err = nil, ce
	}()

	if ws := opts.Target.WaveSize; ws != 32 && ws != 64 {
		unsupported(opName("wave"), "wave size %d", ws)
	}
	ctx := newSelCtx(fn, opts)
	ctx.selectFunction()
	return ctx.program, nil
}

func (ctx *selCtx) selectFunction() {
	entry := ctx.newBlock()
	entry.Kind |= isa.BlockTopLevel
	ctx.setBlock(entry)
	ctx.startProgram()
	ctx.logicalStart()

	ctx.visitNodes(ctx.fn.Body)

	ctx.logicalEnd()
	ctx.block.Kind |= isa.BlockUniform
	ctx.bld.Sopp(isa.OpSEndpgm, 0)

	ctx.resolvePhis()
	ctx.fixBranches()
	ctx.program.ComputeSuccessors()
	ctx.program.ConstantData = ctx.fn.ConstantData
}

// argUsage is what the function reads from its startup arguments.
type argUsage struct {
	sets          uint32
	pushConstants bool
	scratch       bool
}

func (ctx *selCtx) scanArgs() argUsage {
	u := argUsage{sets: uint32(len(ctx.opts.Layout.Sets))}
	useSet := func(set uint32) {
		u.sets = max(u.sets, set+1)
	}
	ctx.fn.Walk(func(b *ir.Block) {
		for _, in := range b.Instrs {
			switch in := in.(type) {
			case *ir.Intrinsic:
				switch in.Op {
				case ir.VulkanResourceIndex:
					useSet(in.Resource.Set)
				case ir.ImageLoad, ir.ImageStore, ir.ImageAtomic, ir.ImageSize, ir.ImageSamples:
					useSet(in.Image.Set)
				case ir.LoadPushConstant:
					u.pushConstants = true
				case ir.LoadScratch, ir.StoreScratch:
					u.scratch = true
				}
			case *ir.Tex:
				useSet(in.Texture.Set)
				useSet(in.Sampler.Set)
			}
		}
	})
	return u
}

// startProgram emits p_startpgm defining the arguments the function reads.
func (ctx *selCtx) startProgram() {
	var defs []isa.Definition
	arg := func(rc isa.RegClass) isa.Temp {
		t := ctx.bld.Tmp(rc)
		defs = append(defs, isa.Def(t))
		return t
	}

	u := ctx.scanArgs()
	ctx.args.descSets = make([]isa.Temp, u.sets)
	for i := range ctx.args.descSets {
		ctx.args.descSets[i] = arg(isa.S1)
	}
	if u.pushConstants {
		ctx.args.pushConsts = arg(isa.S1)
	}
	ctx.args.inlinePush = make([]isa.Temp, ctx.opts.InlinePushConstants.Count)
	for i := range ctx.args.inlinePush {
		ctx.args.inlinePush[i] = arg(isa.S1)
	}
	if ctx.fn.Stage == ir.StageCompute {
		for i := range ctx.args.workgroupID {
			ctx.args.workgroupID[i] = arg(isa.S1)
		}
		for i := range ctx.args.localID {
			ctx.args.localID[i] = arg(isa.V1)
		}
	}
	if u.scratch {
		ctx.args.privateBuffer = arg(isa.S4)
		ctx.args.scratchOffset = arg(isa.S1)
	}
	ctx.bld.Pseudo(isa.OpPStartPgm, defs)
}

func (ctx *selCtx) visitInstr(in ir.Instr) {
	switch in := in.(type) {
	case *ir.ALU:
		ctx.visitALU(in)
	case *ir.LoadConst:
		ctx.visitLoadConst(in)
	case *ir.Undef:
		ctx.visitUndef(in)
	case *ir.Phi:
		ctx.visitPhi(in)
	case *ir.Tex:
		ctx.visitTex(in)
	default:
		malformed(opName("instr"), "unknown instruction %T", in)
	}
}

// visitIntrinsic dispatches an intrinsic. last reports whether it ends its
// block, which changes how discard is lowered.
func (ctx *selCtx) visitIntrinsic(in *ir.Intrinsic, last bool) {
	switch {
	case ctx.visitMemoryIntrinsic(in),
		ctx.visitImageIntrinsic(in),
		ctx.visitSubgroupIntrinsic(in),
		ctx.visitControlIntrinsic(in, last):
		return
	}
	unsupported(in.Op, "no lowering")
}
