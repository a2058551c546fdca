package isel

import (
	"github.com/gogpu/wavesel/ir"
	"github.com/gogpu/wavesel/isa"
)

// loopState is the bookkeeping of the innermost loop being selected.
type loopState struct {
	headerIdx uint32
	// exit is inserted into the program once the body has been selected.
	exit *isa.Block

	hasDivergentContinue bool
	hasDivergentBranch   bool
}

// cfState is the control flow state saved and restored around every
// structured construct.
type cfState struct {
	parentLoop        loopState
	parentIfDivergent bool
	loopNestDepth     uint32

	// hasBranch is set when the current block already ends in a uniform jump.
	hasBranch bool

	// The exec mask may be empty because of a discard or demote, or because
	// all lanes left through a divergent break at depth execEmptyBreakDepth.
	execEmptyDiscard    bool
	execEmptyBreak      bool
	execEmptyBreakDepth uint32
}

const noBreakDepth = ^uint32(0)

// noBlock marks IR blocks that were never selected.
const noBlock = ^uint32(0)

// branchFixup records a branch whose targets are known only once every
// block has been inserted.
type branchFixup struct {
	in          *isa.Instruction
	taken, fall *isa.Block
}

// programArgs are the values defined by p_startpgm.
type programArgs struct {
	descSets      []isa.Temp
	pushConsts    isa.Temp
	inlinePush    []isa.Temp
	workgroupID   [3]isa.Temp
	localID       [3]isa.Temp
	privateBuffer isa.Temp
	scratchOffset isa.Temp
}

// selCtx is the state of one function selection. It is never shared.
type selCtx struct {
	opts    *Options
	target  Target
	fn      *ir.Function
	info    *ir.Info
	program *isa.Program
	bld     *isa.Builder
	block   *isa.Block

	// temps maps each IR value to the temp holding it.
	temps []isa.Temp
	// readMask is the set of components of each value read by some use.
	readMask []uint32
	// allocatedVec caches the elements of split or assembled vectors by
	// temp id.
	allocatedVec map[uint32][]isa.Temp
	// irToISA maps an IR block index to the block its code ended in.
	irToISA []uint32
	// irBlock is the IR block being selected. irMapped is set once its
	// entry in irToISA is final.
	irBlock  uint32
	irMapped bool

	phis     []*pendingPhi
	cf       cfState
	args     programArgs
	branches []branchFixup
}

func newSelCtx(fn *ir.Function, opts *Options) *selCtx {
	p := isa.NewProgram(opts.Target.Chip, opts.Target.WaveSize)
	ctx := &selCtx{
		opts:         opts,
		target:       opts.Target,
		fn:           fn,
		info:         ir.Resolve(fn),
		program:      p,
		bld:          isa.NewBuilder(p, nil),
		allocatedVec: make(map[uint32][]isa.Temp),
	}
	ctx.irToISA = make([]uint32, len(ctx.info.Blocks))
	for i := range ctx.irToISA {
		ctx.irToISA[i] = noBlock
	}
	ctx.cf.execEmptyBreakDepth = noBreakDepth
	ctx.initTemps()
	return ctx
}

// setBlock makes b the block instructions are emitted into.
func (ctx *selCtx) setBlock(b *isa.Block) {
	ctx.block = b
	ctx.bld.Reset(b)
}

func (ctx *selCtx) newBlock() *isa.Block {
	b := ctx.program.CreateAndInsertBlock()
	b.LoopNestDepth = ctx.cf.loopNestDepth
	return b
}

// pendingBlock returns a block that is inserted into the program later.
func (ctx *selCtx) pendingBlock(kind isa.BlockKind) *isa.Block {
	return &isa.Block{Kind: kind, LoopNestDepth: ctx.cf.loopNestDepth}
}

// valueClass returns the register class of an IR value when placed in the
// given register file.
func (ctx *selCtx) valueClass(v ir.Value, divergent bool) isa.RegClass {
	if v.BitSize == 1 {
		if divergent {
			return ctx.program.LaneMask
		}
		return isa.S1
	}
	dwords := uint8(1)
	if v.BitSize == 64 {
		dwords = 2
	}
	kind := isa.Uniform
	if divergent {
		kind = isa.Divergent
	}
	return isa.NewRegClass(kind, dwords*v.Components)
}

// valuOnly reports whether an ALU operation only exists in vector form, so
// its result lives in vector registers even when uniform.
func (ctx *selCtx) valuOnly(op ir.ALUOp) bool {
	switch op {
	case ir.OpFNeg, ir.OpFAbs, ir.OpFSign, ir.OpFSat,
		ir.OpFMin, ir.OpFMax, ir.OpFMin3, ir.OpFMax3, ir.OpFMed3,
		ir.OpFAdd, ir.OpFSub, ir.OpFMul, ir.OpFFma,
		ir.OpFRcp, ir.OpFRsq, ir.OpFSqrt, ir.OpFLog2, ir.OpFExp2, ir.OpFSin, ir.OpFCos,
		ir.OpFFract, ir.OpFFloor, ir.OpFCeil, ir.OpFTrunc, ir.OpFRoundEven,
		ir.OpFLdexp, ir.OpFrexpExp, ir.OpFrexpSig,
		ir.OpF2F16, ir.OpF2F32, ir.OpF2F64, ir.OpI2F32, ir.OpU2F32, ir.OpI2F64, ir.OpU2F64,
		ir.OpF2I32, ir.OpF2U32, ir.OpF2I64, ir.OpF2U64,
		ir.OpFDdx, ir.OpFDdy, ir.OpFDdxFine, ir.OpFDdyFine, ir.OpFDdxCoarse, ir.OpFDdyCoarse:
		return true
	case ir.OpUMulHigh, ir.OpIMulHigh:
		return !ctx.target.HasSMulHi
	}
	return false
}

// vgprResult reports whether an intrinsic always writes vector registers.
func vgprResult(op ir.IntrinsicOp) bool {
	switch op {
	case ir.LoadShared, ir.SharedAtomic, ir.LoadScratch, ir.ImageLoad, ir.ImageAtomic,
		ir.ImageSize, ir.LoadLocalInvocationID, ir.SSBOAtomic, ir.GlobalAtomic:
		return true
	}
	return false
}

// initTemps allocates one temp per IR value. Uniform values computed by
// vector-only instructions, or from vector sources, are placed in vector
// registers. Sources may be defined later through loop phis, so placement
// is iterated until nothing changes.
func (ctx *selCtx) initTemps() {
	n := len(ctx.fn.Values)
	inVGPR := make([]bool, n)
	ctx.readMask = make([]uint32, n)

	// follow lists the instructions whose placement depends on their sources.
	type follower struct {
		dest ir.ValueHandle
		srcs []ir.ValueHandle
	}
	var follow []follower

	ctx.fn.Walk(func(b *ir.Block) {
		for _, in := range b.Instrs {
			if alu, ok := in.(*ir.ALU); ok {
				ctx.noteALUReads(alu)
			} else {
				for _, s := range ir.InstrSrcs(in) {
					ctx.readMask[s] = ^uint32(0)
				}
			}
			dest := ir.InstrDest(in)
			if dest == ir.NoValue {
				continue
			}
			v := ctx.fn.Value(dest)
			if v.BitSize == 1 {
				continue
			}
			vgpr := v.Divergent
			switch in := in.(type) {
			case *ir.ALU:
				vgpr = vgpr || ctx.valuOnly(in.Op)
				follow = append(follow, follower{dest, ir.InstrSrcs(in)})
			case *ir.Phi:
				follow = append(follow, follower{dest, ir.InstrSrcs(in)})
			case *ir.Intrinsic:
				vgpr = vgpr || vgprResult(in.Op)
			case *ir.Tex:
				vgpr = true
			}
			inVGPR[dest] = vgpr
		}
	})

	for changed := true; changed; {
		changed = false
		for _, f := range follow {
			if inVGPR[f.dest] {
				continue
			}
			for _, s := range f.srcs {
				if inVGPR[s] && ctx.fn.Value(s).BitSize != 1 {
					inVGPR[f.dest] = true
					changed = true
					break
				}
			}
		}
	}

	ctx.temps = make([]isa.Temp, n)
	for h := 1; h < n; h++ {
		v := ctx.fn.Values[h]
		divergent := inVGPR[h]
		if v.BitSize == 1 {
			divergent = v.Divergent
		}
		ctx.temps[h] = ctx.program.AllocateTemp(ctx.valueClass(v, divergent))
	}
}

// noteALUReads records the components ALU sources select through their
// swizzles.
func (ctx *selCtx) noteALUReads(alu *ir.ALU) {
	comps := 1
	if alu.Op == ir.OpMov {
		comps = int(ctx.fn.Value(alu.Dest).Components)
	}
	for _, s := range alu.Srcs {
		for c := 0; c < comps && c < len(s.Swizzle); c++ {
			ctx.readMask[s.Value] |= 1 << s.Swizzle[c]
		}
	}
}

// componentsRead returns the mask of components of h read by its uses.
func (ctx *selCtx) componentsRead(h ir.ValueHandle) uint32 {
	full := uint32(1)<<ctx.fn.Value(h).Components - 1
	m := ctx.readMask[h] & full
	if m == 0 {
		return full
	}
	return m
}

// get returns the temp of an IR value.
func (ctx *selCtx) get(h ir.ValueHandle) isa.Temp {
	if h == ir.NoValue || int(h) >= len(ctx.temps) {
		invariant(opName("value"), "no temp for value %d", h)
	}
	return ctx.temps[h]
}

// lm returns the 32- or 64-bit form of a lane mask opcode for the wave size.
func (ctx *selCtx) lm(op32, op64 isa.Opcode) isa.Opcode {
	if ctx.program.WaveSize == 64 {
		return op64
	}
	return op32
}

// exec returns an operand reading the exec mask.
func (ctx *selCtx) exec() isa.Operand { return ctx.bld.Exec() }

// scc returns an operand reading t from the scalar condition code.
func scc(t isa.Temp) isa.Operand { return isa.OperandFixedTemp(t, isa.RegSCC) }

func op(t isa.Temp) isa.Operand { return isa.OperandTemp(t) }

func cnst(v uint32) isa.Operand { return isa.OperandConst(v) }

// laneMaskConst returns an all-ones or zero lane mask constant.
func (ctx *selCtx) laneMaskConst(set bool) isa.Operand {
	if ctx.program.WaveSize == 64 {
		if set {
			return isa.OperandConst64(^uint64(0))
		}
		return isa.OperandConst64(0)
	}
	if set {
		return cnst(^uint32(0))
	}
	return cnst(0)
}

// asVGPR copies a scalar temp into a vector register.
func (ctx *selCtx) asVGPR(t isa.Temp) isa.Temp {
	if t.RC.IsDivergent() {
		return t
	}
	if t.RC.IsMask() {
		invariant(opName("as_vgpr"), "lane mask %v used as a vector value", t)
	}
	dst := ctx.bld.Tmp(t.RC.AsKind(isa.Divergent))
	ctx.bld.Copy(isa.Def(dst), op(t))
	return dst
}

// asUniform asserts that a vector temp holds the same value in all lanes
// and moves it to scalar registers.
func (ctx *selCtx) asUniform(t isa.Temp) isa.Temp {
	if !t.RC.IsDivergent() {
		return t
	}
	dst := ctx.bld.Tmp(t.RC.AsKind(isa.Uniform))
	ctx.bld.AsUniform(isa.Def(dst), op(t))
	return dst
}

// boolToVector turns a uniform 0/1 boolean into a lane mask.
func (ctx *selCtx) boolToVector(t isa.Temp) isa.Temp {
	if t.RC.IsMask() {
		return t
	}
	dst := ctx.bld.Tmp(ctx.program.LaneMask)
	ctx.bld.Sop2(ctx.lm(isa.OpSCselectB32, isa.OpSCselectB64), isa.Def(dst),
		ctx.laneMaskConst(true), ctx.laneMaskConst(false), scc(t))
	return dst
}

// boolToScalar reduces a lane mask to a uniform boolean that is set when
// any active lane is set. The result is defined in scc.
func (ctx *selCtx) boolToScalar(t isa.Temp) isa.Temp {
	if !t.RC.IsMask() {
		return t
	}
	in := ctx.bld.Sop2(ctx.lm(isa.OpSAndB32, isa.OpSAndB64), ctx.bld.Def(ctx.program.LaneMask), op(t), ctx.exec())
	return in.Def(1)
}

// boolToScalarInto is boolToScalar defining dst.
func (ctx *selCtx) boolToScalarInto(t, dst isa.Temp) {
	if !t.RC.IsMask() {
		ctx.bld.Copy(isa.Def(dst), op(t))
		return
	}
	ctx.bld.Build(ctx.lm(isa.OpSAndB32, isa.OpSAndB64),
		[]isa.Definition{ctx.bld.Def(ctx.program.LaneMask), {Temp: dst, Fixed: isa.RegSCC}},
		op(t), ctx.exec())
}

// vop3Const returns a constant usable as a VOP3 operand. Literals are only
// encodable in VOP3 on GFX10, so older chips get them through an sgpr.
func (ctx *selCtx) vop3Const(v uint32) isa.Operand {
	o := cnst(v)
	if !o.IsLiteral() || ctx.target.VOP3Literal {
		return o
	}
	t := ctx.bld.Tmp(isa.S1)
	ctx.bld.Sop1(isa.OpSMovB32, isa.Def(t), o)
	return op(t)
}

// constValue returns component c of h if it is a compile-time constant.
func (ctx *selCtx) constValue(h ir.ValueHandle, c int) (uint64, bool) {
	return ctx.info.ConstScalar(h, c)
}

// constComponent is constValue looking through vector construction, so
// that single components of partially constant vectors resolve.
func (ctx *selCtx) constComponent(h ir.ValueHandle, c int) (uint64, bool) {
	if v, ok := ctx.constValue(h, c); ok {
		return v, true
	}
	if h == ir.NoValue || int(h) >= len(ctx.info.Defs) {
		return 0, false
	}
	alu, ok := ctx.info.Defs[h].(*ir.ALU)
	if !ok {
		return 0, false
	}
	switch alu.Op {
	case ir.OpVec2, ir.OpVec3, ir.OpVec4:
		if c < len(alu.Srcs) {
			return ctx.constValue(alu.Srcs[c].Value, int(alu.Srcs[c].Swizzle[0]))
		}
	case ir.OpMov:
		if c < len(alu.Srcs[0].Swizzle) {
			return ctx.constValue(alu.Srcs[0].Value, int(alu.Srcs[0].Swizzle[c]))
		}
	}
	return 0, false
}

// hasUses reports whether the value defined by h is read anywhere.
func (ctx *selCtx) hasUses(h ir.ValueHandle) bool {
	return h != ir.NoValue && ctx.info.Uses[h] > 0
}

// emitWQM marks a fragment value as computed in whole quad mode.
func (ctx *selCtx) emitWQM(src, dst isa.Temp) {
	if ctx.fn.Stage != ir.StageFragment {
		ctx.bld.Copy(isa.Def(dst), op(src))
		return
	}
	ctx.bld.Pseudo(isa.OpPWQM, []isa.Definition{isa.Def(dst)}, op(src))
	ctx.program.MarkWQM()
}
