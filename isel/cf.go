package isel

import (
	"github.com/gogpu/wavesel/ir"
	"github.com/gogpu/wavesel/isa"
)

func (ctx *selCtx) logicalStart() { ctx.bld.Pseudo(isa.OpPLogicalStart, nil) }

func (ctx *selCtx) logicalEnd() { ctx.bld.Pseudo(isa.OpPLogicalEnd, nil) }

// branch emits a pseudo branch whose block indices are filled in once every
// block has been inserted. fall is nil for unconditional branches. It
// returns the fixup index so that targets created later can be patched.
func (ctx *selCtx) branch(opc isa.Opcode, taken, fall *isa.Block, cond ...isa.Operand) int {
	in := ctx.bld.Branch(opc, 0, cond...)
	ctx.branches = append(ctx.branches, branchFixup{in: in, taken: taken, fall: fall})
	return len(ctx.branches) - 1
}

// fixBranches writes the final block indices into every branch.
func (ctx *selCtx) fixBranches() {
	for _, f := range ctx.branches {
		if f.taken == nil {
			invariant(f.in.Opcode, "branch without a target")
		}
		info := isa.BranchInfo{Target: [2]uint32{f.taken.Index}}
		if f.fall != nil {
			info.Target[1] = f.fall.Index
		}
		f.in.Payload = info
	}
}

// visitNodes selects a control-flow list. It returns false once the rest
// of the list is unreachable.
func (ctx *selCtx) visitNodes(nodes []ir.Node) bool {
	for _, n := range nodes {
		switch n := n.(type) {
		case *ir.Block:
			ctx.visitBlock(n)
		case *ir.If:
			if !ctx.visitIf(n) {
				return false
			}
		case *ir.Loop:
			ctx.visitLoop(n)
		default:
			malformed(opName("cf"), "unknown node %T", n)
		}
	}
	return true
}

func (ctx *selCtx) visitBlock(b *ir.Block) {
	ctx.irBlock = b.Index
	ctx.irMapped = false
	for i, in := range b.Instrs {
		last := i == len(b.Instrs)-1
		switch in := in.(type) {
		case *ir.Jump:
			if !last {
				malformed(opName(in.Kind.String()), "jump is not the last instruction of block %d", b.Index)
			}
			ctx.emitLoopJump(in.Kind == ir.JumpBreak)
		case *ir.Intrinsic:
			ctx.visitIntrinsic(in, last)
		default:
			ctx.visitInstr(in)
		}
	}
	if !ctx.irMapped {
		ctx.irToISA[b.Index] = ctx.block.Index
	}
}

// mapIRBlock records the block holding the logical edge out of the current
// IR block, before helper blocks move the cursor.
func (ctx *selCtx) mapIRBlock() {
	ctx.irToISA[ctx.irBlock] = ctx.block.Index
	ctx.irMapped = true
}

// ifScope is the state of one conditional being selected.
type ifScope struct {
	cond isa.Temp

	ifIdx     uint32
	invertIdx uint32
	entry     int
	elseEntry int

	thenBranch          bool
	thenBranchDivergent bool
	invert, endif       *isa.Block

	divergentOld           bool
	execEmptyDiscardOld    bool
	execEmptyBreakOld      bool
	execEmptyBreakDepthOld uint32
}

// visitIf selects a conditional. A lane mask condition gives the divergent
// six block diamond, anything else a scalar branch. It reports whether the
// code after the conditional is reachable.
func (ctx *selCtx) visitIf(n *ir.If) bool {
	cond := ctx.get(n.Condition)
	if cond.RC.IsMask() {
		ctx.divergentIf(n, cond)
	} else {
		ctx.uniformIf(n, cond)
	}
	return !ctx.cf.hasBranch && len(ctx.block.LogicalPreds) > 0
}

func (ctx *selCtx) divergentIf(n *ir.If, cond isa.Temp) {
	ic := &ifScope{cond: cond}
	defer ctx.restoreIf(ic)
	ctx.beginDivergentThen(ic)
	ctx.visitNodes(n.Then)
	ctx.beginDivergentElse(ic)
	ctx.visitNodes(n.Else)
	ctx.endDivergentIf(ic)
}

// restoreIf leaves a divergent conditional, merging the exec-empty state of
// both sides with the state before it.
func (ctx *selCtx) restoreIf(ic *ifScope) {
	ctx.cf.parentIfDivergent = ic.divergentOld
	ctx.cf.execEmptyDiscard = ctx.cf.execEmptyDiscard || ic.execEmptyDiscardOld
	if ic.execEmptyBreakOld || ctx.cf.execEmptyBreak {
		ctx.cf.execEmptyBreak = true
		ctx.cf.execEmptyBreakDepth = min(ctx.cf.execEmptyBreakDepth, ic.execEmptyBreakDepthOld)
	}
	if ctx.cf.loopNestDepth == 0 && !ctx.cf.parentIfDivergent {
		ctx.cf.execEmptyDiscard = false
	}
}

func (ctx *selCtx) beginDivergentThen(ic *ifScope) {
	ctx.logicalEnd()
	ctx.block.Kind |= isa.BlockBranch
	ic.ifIdx = ctx.block.Index
	// Skip the then side when no lane takes it.
	ic.entry = ctx.branch(isa.OpPCbranchZ, nil, nil, op(ic.cond))

	ic.divergentOld = ctx.cf.parentIfDivergent
	ic.execEmptyDiscardOld = ctx.cf.execEmptyDiscard
	ic.execEmptyBreakOld = ctx.cf.execEmptyBreak
	ic.execEmptyBreakDepthOld = ctx.cf.execEmptyBreakDepth
	ic.invert = ctx.pendingBlock(isa.BlockInvert)
	ic.endif = ctx.pendingBlock(isa.BlockMerge | ctx.block.Kind&isa.BlockTopLevel)
	ctx.cf.parentIfDivergent = true
	ctx.cf.execEmptyDiscard = false
	ctx.cf.execEmptyBreak = false
	ctx.cf.execEmptyBreakDepth = noBreakDepth

	then := ctx.newBlock()
	then.AddEdge(ic.ifIdx)
	ctx.branches[ic.entry].fall = then
	ctx.setBlock(then)
	ctx.logicalStart()
}

func (ctx *selCtx) beginDivergentElse(ic *ifScope) {
	ctx.logicalEnd()
	thenLogical := ctx.block.Index
	ctx.block.Kind |= isa.BlockUniform
	ctx.branch(isa.OpPBranch, ic.invert, nil)
	ic.invert.AddLinearPred(thenLogical)
	// Lanes that jumped out of the then side never reach the merge.
	ic.thenBranchDivergent = ctx.cf.parentLoop.hasDivergentBranch
	if !ic.thenBranchDivergent {
		ic.endif.AddLogicalPred(thenLogical)
	}
	ctx.cf.parentLoop.hasDivergentBranch = false

	thenLinear := ctx.newBlock()
	thenLinear.Kind |= isa.BlockUniform
	thenLinear.AddLinearPred(ic.ifIdx)
	ctx.branches[ic.entry].taken = thenLinear
	ctx.setBlock(thenLinear)
	ctx.branch(isa.OpPBranch, ic.invert, nil)
	ic.invert.AddLinearPred(thenLinear.Index)

	ctx.program.InsertBlock(ic.invert)
	ic.invertIdx = ic.invert.Index
	ctx.setBlock(ic.invert)
	// Skip the else side when every lane took the then side.
	ic.elseEntry = ctx.branch(isa.OpPCbranchNz, nil, nil, op(ic.cond))

	els := ctx.newBlock()
	els.AddLogicalPred(ic.ifIdx)
	els.AddLinearPred(ic.invertIdx)
	ctx.branches[ic.elseEntry].fall = els
	ctx.setBlock(els)
	ctx.logicalStart()

	ic.execEmptyDiscardOld = ic.execEmptyDiscardOld || ctx.cf.execEmptyDiscard
	if ctx.cf.execEmptyBreak {
		ic.execEmptyBreakOld = true
		ic.execEmptyBreakDepthOld = min(ic.execEmptyBreakDepthOld, ctx.cf.execEmptyBreakDepth)
	}
	ctx.cf.execEmptyDiscard = false
	ctx.cf.execEmptyBreak = false
	ctx.cf.execEmptyBreakDepth = noBreakDepth
}

func (ctx *selCtx) endDivergentIf(ic *ifScope) {
	ctx.logicalEnd()
	elseLogical := ctx.block.Index
	ctx.block.Kind |= isa.BlockUniform
	ctx.branch(isa.OpPBranch, ic.endif, nil)
	ic.endif.AddLinearPred(elseLogical)
	if !ctx.cf.parentLoop.hasDivergentBranch {
		ic.endif.AddLogicalPred(elseLogical)
	}
	ctx.cf.parentLoop.hasDivergentBranch = ctx.cf.parentLoop.hasDivergentBranch && ic.thenBranchDivergent

	elseLinear := ctx.newBlock()
	elseLinear.Kind |= isa.BlockUniform
	elseLinear.AddLinearPred(ic.invertIdx)
	ctx.branches[ic.elseEntry].taken = elseLinear
	ctx.setBlock(elseLinear)
	ctx.branch(isa.OpPBranch, ic.endif, nil)
	ic.endif.AddLinearPred(elseLinear.Index)

	ctx.program.InsertBlock(ic.endif)
	ctx.setBlock(ic.endif)
	ctx.logicalStart()
}

func (ctx *selCtx) uniformIf(n *ir.If, cond isa.Temp) {
	ic := &ifScope{cond: ctx.boolToScalar(cond)}
	ctx.beginUniformThen(ic)
	ctx.visitNodes(n.Then)
	ctx.beginUniformElse(ic)
	ctx.visitNodes(n.Else)
	ctx.endUniformIf(ic)
}

func (ctx *selCtx) beginUniformThen(ic *ifScope) {
	ctx.logicalEnd()
	ctx.block.Kind |= isa.BlockUniform
	ic.ifIdx = ctx.block.Index
	ic.entry = ctx.branch(isa.OpPCbranchZ, nil, nil, scc(ic.cond))
	ic.endif = ctx.pendingBlock(ctx.block.Kind & isa.BlockTopLevel)

	ctx.cf.hasBranch = false
	ctx.cf.parentLoop.hasDivergentBranch = false

	then := ctx.newBlock()
	then.Kind |= isa.BlockUniform
	then.AddEdge(ic.ifIdx)
	ctx.branches[ic.entry].fall = then
	ctx.setBlock(then)
	ctx.logicalStart()
}

func (ctx *selCtx) beginUniformElse(ic *ifScope) {
	thenIdx := ctx.block.Index
	ic.thenBranch = ctx.cf.hasBranch
	ic.thenBranchDivergent = ctx.cf.parentLoop.hasDivergentBranch
	if !ic.thenBranch {
		ctx.logicalEnd()
		ctx.block.Kind |= isa.BlockUniform
		ctx.branch(isa.OpPBranch, ic.endif, nil)
		ic.endif.AddLinearPred(thenIdx)
		if !ic.thenBranchDivergent {
			ic.endif.AddLogicalPred(thenIdx)
		}
	}

	ctx.cf.hasBranch = false
	ctx.cf.parentLoop.hasDivergentBranch = false

	els := ctx.newBlock()
	els.Kind |= isa.BlockUniform
	els.AddEdge(ic.ifIdx)
	ctx.branches[ic.entry].taken = els
	ctx.setBlock(els)
	ctx.logicalStart()
}

func (ctx *selCtx) endUniformIf(ic *ifScope) {
	elseIdx := ctx.block.Index
	if !ctx.cf.hasBranch {
		ctx.logicalEnd()
		ctx.block.Kind |= isa.BlockUniform
		ctx.branch(isa.OpPBranch, ic.endif, nil)
		ic.endif.AddLinearPred(elseIdx)
		if !ctx.cf.parentLoop.hasDivergentBranch {
			ic.endif.AddLogicalPred(elseIdx)
		}
	}

	ctx.cf.hasBranch = ctx.cf.hasBranch && ic.thenBranch
	ctx.cf.parentLoop.hasDivergentBranch = ctx.cf.parentLoop.hasDivergentBranch && ic.thenBranchDivergent

	// Both sides left through jumps.
	if ctx.cf.hasBranch {
		return
	}
	ctx.program.InsertBlock(ic.endif)
	ctx.setBlock(ic.endif)
	ctx.logicalStart()
}

// loopScope is the state saved around one loop.
type loopScope struct {
	saved        loopState
	divergentOld bool
	exit         *isa.Block
}

func (ctx *selCtx) visitLoop(n *ir.Loop) {
	lc := &loopScope{}
	defer ctx.restoreLoop(lc)
	ctx.beginLoop(lc)
	ctx.visitNodes(n.Body)
	ctx.endLoop(lc)
}

func (ctx *selCtx) beginLoop(lc *loopScope) {
	ctx.logicalEnd()
	ctx.block.Kind |= isa.BlockLoopPreheader | isa.BlockUniform
	preheader := ctx.block.Index
	kind := isa.BlockLoopExit | ctx.block.Kind&isa.BlockTopLevel
	lc.exit = ctx.pendingBlock(kind)

	entry := ctx.branch(isa.OpPBranch, nil, nil)

	ctx.cf.loopNestDepth++
	header := ctx.newBlock()
	header.Kind |= isa.BlockLoopHeader
	header.AddEdge(preheader)
	ctx.branches[entry].taken = header

	lc.saved = ctx.cf.parentLoop
	lc.divergentOld = ctx.cf.parentIfDivergent
	ctx.cf.parentLoop = loopState{headerIdx: header.Index, exit: lc.exit}
	ctx.cf.parentIfDivergent = false

	ctx.setBlock(header)
	ctx.logicalStart()
}

func (ctx *selCtx) endLoop(lc *loopScope) {
	if !ctx.cf.hasBranch {
		header := ctx.program.Blocks[ctx.cf.parentLoop.headerIdx]
		ctx.logicalEnd()
		idx := ctx.block.Index
		if ctx.cf.execEmptyDiscard || ctx.cf.execEmptyBreak {
			// Leave through a helper pair when no lane is left, so that an
			// empty mask never loops forever.
			ctx.block.Kind |= isa.BlockContinueOrBreak | isa.BlockUniform
			if !ctx.cf.parentLoop.hasDivergentBranch {
				header.AddLogicalPred(idx)
			}
			fixup := ctx.branch(isa.OpPCbranchZ, nil, nil, ctx.exec())

			brk := ctx.newBlock()
			brk.Kind |= isa.BlockUniform
			brk.AddLinearPred(idx)
			ctx.setBlock(brk)
			ctx.branch(isa.OpPBranch, lc.exit, nil)
			lc.exit.AddLinearPred(brk.Index)

			cont := ctx.newBlock()
			cont.Kind |= isa.BlockUniform
			cont.AddLinearPred(idx)
			ctx.setBlock(cont)
			ctx.branch(isa.OpPBranch, header, nil)
			header.AddLinearPred(cont.Index)

			ctx.branches[fixup].taken = brk
			ctx.branches[fixup].fall = cont
		} else {
			ctx.block.Kind |= isa.BlockContinue | isa.BlockUniform
			if ctx.cf.parentLoop.hasDivergentBranch {
				header.AddLinearPred(idx)
			} else {
				header.AddEdge(idx)
			}
			ctx.branch(isa.OpPBranch, header, nil)
		}
	}
	ctx.cf.hasBranch = false

	ctx.program.InsertBlock(lc.exit)
	ctx.setBlock(lc.exit)
	ctx.logicalStart()
}

// restoreLoop leaves a loop. Lanes removed by breaks inside it are active
// again at the exit.
func (ctx *selCtx) restoreLoop(lc *loopScope) {
	ctx.cf.parentLoop = lc.saved
	ctx.cf.parentIfDivergent = lc.divergentOld
	ctx.cf.loopNestDepth--
	if ctx.cf.execEmptyBreak && ctx.cf.execEmptyBreakDepth > ctx.cf.loopNestDepth {
		ctx.cf.execEmptyBreak = false
		ctx.cf.execEmptyBreakDepth = noBreakDepth
	}
	if ctx.cf.loopNestDepth == 0 && !ctx.cf.parentIfDivergent {
		ctx.cf.execEmptyDiscard = false
	}
}

// uniformJump reports whether every active lane takes a jump from here.
func (ctx *selCtx) uniformJump() bool {
	return !ctx.cf.parentIfDivergent && !ctx.cf.parentLoop.hasDivergentContinue
}

// emitLoopJump selects a break or continue.
func (ctx *selCtx) emitLoopJump(isBreak bool) {
	if ctx.cf.loopNestDepth == 0 {
		malformed(opName("jump"), "break or continue outside a loop")
	}
	ctx.logicalEnd()
	ctx.mapIRBlock()
	idx := ctx.block.Index

	var target *isa.Block
	if isBreak {
		target = ctx.cf.parentLoop.exit
		ctx.block.Kind |= isa.BlockBreak
	} else {
		target = ctx.program.Blocks[ctx.cf.parentLoop.headerIdx]
		ctx.block.Kind |= isa.BlockContinue
	}
	target.AddLogicalPred(idx)

	if ctx.uniformJump() {
		ctx.block.Kind |= isa.BlockUniform
		ctx.cf.hasBranch = true
		ctx.branch(isa.OpPBranch, target, nil)
		target.AddLinearPred(idx)
		return
	}

	ctx.cf.parentLoop.hasDivergentBranch = true
	if isBreak {
		if !ctx.cf.execEmptyBreak {
			ctx.cf.execEmptyBreak = true
			ctx.cf.execEmptyBreakDepth = ctx.cf.loopNestDepth
		}
	} else {
		ctx.cf.parentLoop.hasDivergentContinue = true
	}
	ctx.splitJump(idx, target)
}

// splitJump ends block idx with a branch to two helper blocks: one that
// jumps to target once no lane is left, and one that falls through into
// the rest of the region. The cursor moves to the latter.
func (ctx *selCtx) splitJump(idx uint32, target *isa.Block) {
	fixup := ctx.branch(isa.OpPCbranchZ, nil, nil, ctx.exec())

	jump := ctx.newBlock()
	jump.Kind |= isa.BlockUniform
	jump.AddLinearPred(idx)
	ctx.setBlock(jump)
	ctx.branch(isa.OpPBranch, target, nil)
	target.AddLinearPred(jump.Index)

	cont := ctx.newBlock()
	cont.AddLinearPred(idx)
	ctx.branches[fixup].taken = jump
	ctx.branches[fixup].fall = cont
	ctx.setBlock(cont)
	ctx.logicalStart()
}

// visitDiscard selects an unconditional discard.
func (ctx *selCtx) visitDiscard(last bool) {
	if ctx.fn.Stage != ir.StageFragment {
		unsupported(ir.Discard, "discard in a %v shader", ctx.fn.Stage)
	}
	ctx.program.UsesDiscard = true
	ctx.noteExecEmpty()
	divergent := !ctx.uniformJump()

	// Inside a loop every lane of the block leaves, so the discard is a
	// break. Whatever follows it in the block is logically unreachable.
	if ctx.cf.loopNestDepth > 0 && (last || divergent) {
		ctx.logicalEnd()
		ctx.mapIRBlock()
		idx := ctx.block.Index
		exit := ctx.cf.parentLoop.exit
		ctx.block.Kind |= isa.BlockDiscard
		if !divergent {
			ctx.block.Kind |= isa.BlockUniform
			ctx.cf.hasBranch = true
			ctx.branch(isa.OpPBranch, exit, nil)
			exit.AddLinearPred(idx)
			return
		}
		ctx.block.Kind |= isa.BlockBreak
		ctx.cf.parentLoop.hasDivergentBranch = true
		ctx.splitJump(idx, exit)
		return
	}

	if !last {
		ctx.program.MarkExact()
		all := ctx.bld.Sop2(ctx.lm(isa.OpSAndB32, isa.OpSAndB64), ctx.bld.Def(ctx.program.LaneMask),
			ctx.laneMaskConst(true), ctx.exec())
		ctx.bld.Pseudo(isa.OpPDiscardIf, nil, op(all.Def(0)))
		ctx.block.Kind |= isa.BlockUsesDiscardIf
		return
	}

	if !ctx.cf.parentIfDivergent {
		// The program ends here.
		ctx.block.Kind |= isa.BlockUniform | isa.BlockExportEnd
		undef := isa.OperandUndef(isa.V1)
		ctx.bld.Exp(isa.ExportInfo{Target: isa.ExportNull, Done: true, ValidMask: true},
			[4]isa.Operand{undef, undef, undef, undef})
		ctx.bld.Sopp(isa.OpSEndpgm, 0)
		return
	}
	// The edges are added when the conditional ends.
	ctx.block.Kind |= isa.BlockDiscard
}

// noteExecEmpty records that lanes may have been removed inside a loop or a
// divergent conditional.
func (ctx *selCtx) noteExecEmpty() {
	if ctx.cf.loopNestDepth > 0 || ctx.cf.parentIfDivergent {
		ctx.cf.execEmptyDiscard = true
	}
}

// visitKillIf selects discard_if, demote and demote_if. They narrow the
// exec mask later and never create blocks.
func (ctx *selCtx) visitKillIf(in *ir.Intrinsic) {
	if ctx.fn.Stage != ir.StageFragment {
		unsupported(in.Op, "%v in a %v shader", in.Op, ctx.fn.Stage)
	}
	var cond isa.Operand
	if in.Op == ir.DiscardIf || in.Op == ir.DemoteIf {
		c := ctx.boolToVector(ctx.get(in.Srcs[0]))
		masked := ctx.bld.Sop2(ctx.lm(isa.OpSAndB32, isa.OpSAndB64), ctx.bld.Def(ctx.program.LaneMask),
			op(c), ctx.exec())
		cond = op(masked.Def(0))
	} else {
		all := ctx.bld.Sop2(ctx.lm(isa.OpSAndB32, isa.OpSAndB64), ctx.bld.Def(ctx.program.LaneMask),
			ctx.laneMaskConst(true), ctx.exec())
		cond = op(all.Def(0))
	}
	ctx.program.MarkExact()
	if in.Op == ir.DiscardIf {
		ctx.bld.Pseudo(isa.OpPDiscardIf, nil, cond)
		ctx.block.Kind |= isa.BlockUsesDiscardIf
		ctx.program.UsesDiscard = true
	} else {
		ctx.bld.Pseudo(isa.OpPDemoteToHelper, nil, cond)
		ctx.block.Kind |= isa.BlockUsesDemote
		ctx.program.UsesDemote = true
	}
	ctx.noteExecEmpty()
}

// visitControlIntrinsic selects lane kills, helper queries and barriers.
func (ctx *selCtx) visitControlIntrinsic(in *ir.Intrinsic, last bool) bool {
	switch in.Op {
	case ir.Discard:
		ctx.visitDiscard(last)
	case ir.DiscardIf, ir.Demote, ir.DemoteIf:
		ctx.visitKillIf(in)
	case ir.IsHelperInvocation:
		dst := ctx.get(in.Dest)
		if !dst.RC.IsMask() {
			malformed(in.Op, "result %v is not a lane mask", dst)
		}
		ctx.bld.Pseudo(isa.OpPIsHelper, []isa.Definition{isa.Def(dst)})
		ctx.program.MarkExact()
	case ir.ControlBarrier:
		if ctx.fn.Stage == ir.StageCompute && ctx.workgroupFitsWave() {
			// One wave per workgroup needs no barrier.
			return true
		}
		ctx.bld.Sopp(isa.OpSBarrier, 0)
	case ir.MemoryBarrier:
		ctx.bld.Pseudo(isa.OpPMemoryBarrierAll, nil)
	case ir.MemoryBarrierShared:
		ctx.bld.Pseudo(isa.OpPMemoryBarrierShared, nil)
	case ir.MemoryBarrierBuffer:
		ctx.bld.Pseudo(isa.OpPMemoryBarrierBuffer, nil)
	case ir.MemoryBarrierImage:
		ctx.bld.Pseudo(isa.OpPMemoryBarrierImage, nil)
	default:
		return false
	}
	return true
}

// workgroupFitsWave reports whether a compute workgroup is a single wave.
func (ctx *selCtx) workgroupFitsWave() bool {
	w := ctx.fn.Workgroup
	if w[0] == 0 {
		return false
	}
	return w[0]*max(w[1], 1)*max(w[2], 1) <= uint32(ctx.program.WaveSize)
}
