package isel

import (
	"github.com/gogpu/wavesel/ir"
	"github.com/gogpu/wavesel/isa"
)

// sharedVGPRsBpermute is the shared VGPR count reserved by emulated wave64
// bpermute on GFX10, which swaps the two wave halves through them.
const sharedVGPRsBpermute = 8

func (ctx *selCtx) visitSubgroupIntrinsic(in *ir.Intrinsic) bool {
	switch in.Op {
	case ir.Ballot:
		ctx.visitBallot(in)
	case ir.ReadInvocation:
		ctx.visitReadInvocation(in)
	case ir.ReadFirstInvocation:
		ctx.moveResult(ctx.readFirst(ctx.get(in.Srcs[0])), ctx.get(in.Dest))
	case ir.Shuffle:
		ctx.visitShuffle(in)
	case ir.VoteAll, ir.VoteAny:
		ctx.visitVote(in)
	case ir.VoteIEq, ir.VoteFEq:
		ctx.visitVoteEq(in)
	case ir.Elect:
		ctx.visitElect(in)
	case ir.FirstInvocation:
		first := ctx.bld.Sop1(ctx.lm(isa.OpSFf1I32B32, isa.OpSFf1I32B64), ctx.bld.Def(isa.S1), ctx.exec()).Def(0)
		ctx.move(first, ctx.get(in.Dest))
	case ir.LoadSubgroupInvocation:
		ctx.move(ctx.laneIndex(), ctx.get(in.Dest))
	case ir.Reduce, ir.InclusiveScan, ir.ExclusiveScan:
		ctx.visitReduce(in)
	case ir.QuadBroadcast, ir.QuadSwapHorizontal, ir.QuadSwapVertical, ir.QuadSwapDiagonal:
		ctx.visitQuad(in)
	case ir.LoadLocalInvocationID:
		ctx.visitLocalID(in)
	case ir.LoadWorkgroupID:
		ctx.visitWorkgroupID(in)
	default:
		return false
	}
	return true
}

// perDword applies f to every dword of src and assembles the results into
// a temp of kind.
func (ctx *selCtx) perDword(src isa.Temp, kind isa.LaneKind, f func(isa.Temp) isa.Temp) isa.Temp {
	n := int(src.RC.Size)
	if n == 1 {
		return f(src)
	}
	parts := make([]isa.Temp, n)
	for i, e := range ctx.elements(src, n) {
		parts[i] = f(e)
	}
	dst := ctx.bld.Tmp(isa.NewRegClass(kind, src.RC.Size))
	ctx.createVector(dst, parts...)
	return dst
}

// maskToVGPR turns a lane mask into 0 or 1 per lane.
func (ctx *selCtx) maskToVGPR(mask isa.Temp) isa.Temp {
	return ctx.cndmask(ctx.bld.Def(isa.V1), cnst(0), cnst(1), mask).Def(0)
}

// vgprToMask is the inverse of maskToVGPR.
func (ctx *selCtx) vgprToMask(v isa.Temp) isa.Temp {
	return ctx.vopc(isa.OpVCmpNeU32, ctx.bld.Def(ctx.program.LaneMask), cnst(0), op(v)).Def(0)
}

// laneIndex returns the index of each lane within the wave.
func (ctx *selCtx) laneIndex() isa.Temp {
	lo := ctx.bld.Vop3(isa.OpVMbcntLoU32B32, ctx.bld.Def(isa.V1), cnst(^uint32(0)), cnst(0)).Def(0)
	if ctx.program.WaveSize == 32 {
		return lo
	}
	return ctx.bld.Vop3(isa.OpVMbcntHiU32B32, ctx.bld.Def(isa.V1), cnst(^uint32(0)), op(lo)).Def(0)
}

func (ctx *selCtx) visitBallot(in *ir.Intrinsic) {
	dst := ctx.get(in.Dest)
	cond := ctx.boolToVector(ctx.get(in.Srcs[0]))
	lm := ctx.program.LaneMask
	active := ctx.bld.Sop2(ctx.lm(isa.OpSAndB32, isa.OpSAndB64), ctx.bld.Def(lm), op(cond), ctx.exec()).Def(0)
	switch {
	case dst.RC.Size == lm.Size:
		ctx.move(active, dst)
	case dst.RC.Size > lm.Size:
		// Lanes beyond the wave read as zero.
		elems := []isa.Operand{}
		if lm.Size == 1 {
			elems = append(elems, op(active))
		} else {
			lo, hi := ctx.halves(active)
			elems = append(elems, op(lo), op(hi))
		}
		for len(elems) < int(dst.RC.Size) {
			elems = append(elems, cnst(0))
		}
		t := ctx.bld.Tmp(dst.RC.AsKind(isa.Uniform))
		ctx.bld.CreateVector(isa.Def(t), elems...)
		ctx.move(t, dst)
	default:
		unsupported(in.Op, "%d-bit ballot on a wave of %d lanes", 32*int(dst.RC.Size), ctx.program.WaveSize)
	}
}

// readFirst returns the value of the first active lane as a uniform temp.
func (ctx *selCtx) readFirst(src isa.Temp) isa.Temp {
	if src.RC.IsMask() {
		first := ctx.bld.Sop1(ctx.lm(isa.OpSFf1I32B32, isa.OpSFf1I32B64), ctx.bld.Def(isa.S1), ctx.exec()).Def(0)
		return ctx.bld.Sopc(ctx.lm(isa.OpSBitcmp1B32, isa.OpSBitcmp1B64), op(src), op(first)).Def(0)
	}
	if src.RC.IsUniform() {
		return src
	}
	return ctx.perDword(src, isa.Uniform, func(e isa.Temp) isa.Temp {
		return ctx.bld.Vop1(isa.OpVReadfirstlaneB32, ctx.bld.Def(isa.S1), op(e)).Def(0)
	})
}

// readLane returns the value of src in the lane selected by the uniform
// lane.
func (ctx *selCtx) readLane(src isa.Temp, lane isa.Operand) isa.Temp {
	if src.RC.IsMask() {
		return ctx.bld.Sopc(ctx.lm(isa.OpSBitcmp1B32, isa.OpSBitcmp1B64), op(src), lane).Def(0)
	}
	if src.RC.IsUniform() {
		return src
	}
	return ctx.perDword(src, isa.Uniform, func(e isa.Temp) isa.Temp {
		return ctx.bld.Vop3(isa.OpVReadlaneB32, ctx.bld.Def(isa.S1), op(e), lane).Def(0)
	})
}

// uniformLane returns h as an operand when every lane selects the same
// lane.
func (ctx *selCtx) uniformLane(h ir.ValueHandle) (isa.Operand, bool) {
	if c, ok := ctx.constValue(h, 0); ok {
		return cnst(uint32(c)), true
	}
	if t := ctx.get(h); t.RC.IsUniform() {
		return op(t), true
	}
	return isa.Operand{}, false
}

func (ctx *selCtx) visitReadInvocation(in *ir.Intrinsic) {
	lane, ok := ctx.uniformLane(in.Srcs[1])
	if !ok {
		lane = op(ctx.asUniform(ctx.get(in.Srcs[1])))
	}
	ctx.moveResult(ctx.readLane(ctx.get(in.Srcs[0]), lane), ctx.get(in.Dest))
}

// moveResult copies a subgroup result into dst. Booleans are either a
// lane mask or a uniform 0/1 and are converted between the two.
func (ctx *selCtx) moveResult(src, dst isa.Temp) {
	if src.RC.IsMask() || dst.RC.IsMask() {
		ctx.moveBool(src, dst)
		return
	}
	ctx.move(src, dst)
}

func (ctx *selCtx) visitShuffle(in *ir.Intrinsic) {
	src := ctx.get(in.Srcs[0])
	dst := ctx.get(in.Dest)
	if src.RC.IsUniform() {
		ctx.moveResult(src, dst)
		return
	}
	if lane, ok := ctx.uniformLane(in.Srcs[1]); ok {
		ctx.moveResult(ctx.readLane(src, lane), dst)
		return
	}
	boolean := src.RC.IsMask()
	data := src
	if boolean {
		data = ctx.maskToVGPR(src)
	}
	index := ctx.asVGPR(ctx.get(in.Srcs[1]))
	addr := ctx.vop2(isa.OpVLshlrevB32, isa.OpInvalid, ctx.bld.Def(isa.V1), cnst(2), op(index)).Def(0)
	res := ctx.perDword(data, isa.Divergent, func(e isa.Temp) isa.Temp {
		return ctx.bpermute(in, addr, e)
	})
	if boolean {
		res = ctx.vgprToMask(res)
	}
	ctx.moveResult(res, dst)
}

// bpermute reads e from the lane addr/4 of every lane. GFX10 wave64 can
// only permute within each half, so it is emulated with shared VGPRs.
func (ctx *selCtx) bpermute(in *ir.Intrinsic, addr, e isa.Temp) isa.Temp {
	if ctx.target.Chip >= isa.GFX10 && ctx.program.WaveSize == 64 {
		ctx.program.NoteSharedVGPRs(sharedVGPRsBpermute)
		dst := ctx.bld.Tmp(isa.V1)
		lm := ctx.program.LaneMask
		ctx.bld.Pseudo(isa.OpPBpermute, []isa.Definition{isa.Def(dst), ctx.bld.Def(lm), ctx.bld.Def(lm), ctx.bld.SCC()},
			op(addr), op(ctx.asVGPR(e)))
		return dst
	}
	if !ctx.target.HasDSBpermute {
		unsupported(in.Op, "shuffle with a divergent lane index on %v", ctx.target.Chip)
	}
	return ctx.bld.DS(isa.OpDSBpermuteB32, isa.DSInfo{}, ctx.bld.Def(isa.V1), op(addr), op(ctx.asVGPR(e))).Def(0)
}

// voteAll sets the uniform boolean dst when cond holds in every active
// lane, voteAny when it holds in some active lane.
func (ctx *selCtx) voteAll(cond, dst isa.Temp) {
	lm := ctx.program.LaneMask
	missing := ctx.bld.Sop2(ctx.lm(isa.OpSAndn2B32, isa.OpSAndn2B64), ctx.bld.Def(lm), ctx.exec(), op(cond)).Def(1)
	ctx.bld.Build(isa.OpSCmpEqU32, []isa.Definition{{Temp: dst, Fixed: isa.RegSCC}}, op(missing), cnst(0))
}

func (ctx *selCtx) voteAny(cond, dst isa.Temp) {
	ctx.boolToScalarInto(cond, dst)
}

func (ctx *selCtx) visitVote(in *ir.Intrinsic) {
	src := ctx.get(in.Srcs[0])
	dst := ctx.get(in.Dest)
	res := dst
	if dst.RC.IsMask() {
		res = ctx.bld.Tmp(isa.S1)
	}
	switch {
	case !src.RC.IsMask():
		ctx.bld.Copy(isa.Def(res), op(src))
	case in.Op == ir.VoteAll:
		ctx.voteAll(src, res)
	default:
		ctx.voteAny(src, res)
	}
	if res != dst {
		ctx.moveBool(res, dst)
	}
}

// visitVoteEq compares every lane with the first active one.
func (ctx *selCtx) visitVoteEq(in *ir.Intrinsic) {
	src := ctx.get(in.Srcs[0])
	dst := ctx.get(in.Dest)
	v := ctx.fn.Value(in.Srcs[0])
	res := dst
	if dst.RC.IsMask() {
		res = ctx.bld.Tmp(isa.S1)
	}
	if src.RC.IsUniform() {
		ctx.bld.Sop1(isa.OpSMovB32, isa.Def(res), cnst(1))
		if res != dst {
			ctx.moveBool(res, dst)
		}
		return
	}
	if v.BitSize == 1 {
		// Equal when the lanes are all set or all clear.
		lm := ctx.program.LaneMask
		all := ctx.bld.Tmp(isa.S1)
		ctx.voteAll(src, all)
		anySet := ctx.bld.Sop2(ctx.lm(isa.OpSAndB32, isa.OpSAndB64), ctx.bld.Def(lm), op(src), ctx.exec()).Def(1)
		none := ctx.bld.Sopc(isa.OpSCmpEqU32, op(anySet), cnst(0)).Def(0)
		ctx.bld.Build(isa.OpSOrB32, []isa.Definition{ctx.bld.Def(isa.S1), {Temp: res, Fixed: isa.RegSCC}}, op(all), op(none))
	} else {
		first := ctx.readFirst(src)
		opc, step := voteEqCompare(in.Op, v.BitSize)
		lm := ctx.program.LaneMask
		var eq isa.Temp
		n := int(src.RC.Size) / step
		srcElems, firstElems := []isa.Temp{src}, []isa.Temp{first}
		if n > 1 {
			rc := isa.NewRegClass(isa.Divergent, uint8(step))
			srcElems = make([]isa.Temp, n)
			firstElems = make([]isa.Temp, n)
			for i := 0; i < n; i++ {
				srcElems[i] = ctx.extract(src, i, rc)
				firstElems[i] = ctx.extract(first, i, rc.AsKind(isa.Uniform))
			}
		}
		for i := 0; i < n; i++ {
			c := ctx.vopc(opc, ctx.bld.Def(lm), op(firstElems[i]), op(srcElems[i])).Def(0)
			if eq.Valid() {
				c = ctx.bld.Sop2(ctx.lm(isa.OpSAndB32, isa.OpSAndB64), ctx.bld.Def(lm), op(eq), op(c)).Def(0)
			}
			eq = c
		}
		ctx.voteAll(eq, res)
	}
	if res != dst {
		ctx.moveBool(res, dst)
	}
}

// voteEqCompare returns the equality comparison of a vote and the number
// of dwords it compares at once.
func voteEqCompare(op ir.IntrinsicOp, bits uint8) (isa.Opcode, int) {
	switch {
	case op == ir.VoteFEq && bits == 64:
		return isa.OpVCmpEqF64, 2
	case op == ir.VoteFEq:
		return isa.OpVCmpEqF32, 1
	case bits == 64:
		return isa.OpVCmpEqU64, 2
	}
	return isa.OpVCmpEqU32, 1
}

// visitElect sets the first active lane.
func (ctx *selCtx) visitElect(in *ir.Intrinsic) {
	dst := ctx.get(in.Dest)
	if !dst.RC.IsMask() {
		malformed(in.Op, "elect result must be divergent")
	}
	first := ctx.bld.Sop1(ctx.lm(isa.OpSFf1I32B32, isa.OpSFf1I32B64), ctx.bld.Def(isa.S1), ctx.exec()).Def(0)
	bit := ctx.bld.Sop2(ctx.lm(isa.OpSLshlB32, isa.OpSLshlB64), ctx.bld.Def(ctx.program.LaneMask), cnst(1), op(first)).Def(0)
	ctx.emitWQM(bit, dst)
}

var reduceOps = [...]isa.ReduceOp{
	ir.ReduceIAdd: isa.ReduceIAdd,
	ir.ReduceIMul: isa.ReduceIMul,
	ir.ReduceFAdd: isa.ReduceFAdd,
	ir.ReduceFMul: isa.ReduceFMul,
	ir.ReduceIMin: isa.ReduceIMin,
	ir.ReduceUMin: isa.ReduceUMin,
	ir.ReduceFMin: isa.ReduceFMin,
	ir.ReduceIMax: isa.ReduceIMax,
	ir.ReduceUMax: isa.ReduceUMax,
	ir.ReduceFMax: isa.ReduceFMax,
	ir.ReduceIAnd: isa.ReduceAnd,
	ir.ReduceIOr:  isa.ReduceOr,
	ir.ReduceIXor: isa.ReduceXor,
}

func (ctx *selCtx) visitReduce(in *ir.Intrinsic) {
	src := ctx.get(in.Srcs[0])
	dst := ctx.get(in.Dest)
	v := ctx.fn.Value(in.Srcs[0])
	cluster := in.ClusterSize
	if cluster == 0 || cluster > ctx.program.WaveSize {
		cluster = ctx.program.WaveSize
	}
	if cluster&(cluster-1) != 0 {
		malformed(in.Op, "cluster size %d is not a power of two", cluster)
	}
	if in.Op != ir.Reduce {
		cluster = ctx.program.WaveSize
	}
	if cluster == 1 {
		ctx.moveResult(src, dst)
		return
	}
	if v.BitSize == 1 {
		ctx.reduceBool(in, src, dst, cluster)
		return
	}
	if v.Components != 1 || (v.BitSize != 32 && v.BitSize != 64) {
		unsupported(in.Op, "%d-bit reduction of %d components", v.BitSize, v.Components)
	}
	if in.Op == ir.Reduce && cluster == ctx.program.WaveSize && src.RC.IsUniform() && ctx.reduceUniform(in, src, dst) {
		return
	}
	opc := isa.OpPReduce
	switch in.Op {
	case ir.InclusiveScan:
		opc = isa.OpPInclusiveScan
	case ir.ExclusiveScan:
		opc = isa.OpPExclusiveScan
	}
	res := ctx.bld.Tmp(src.RC.AsKind(isa.Divergent))
	info := isa.ReductionInfo{Op: reduceOps[in.Reduce], BitSize: v.BitSize, ClusterSize: cluster}
	ctx.bld.BuildPayload(opc, info,
		[]isa.Definition{isa.Def(res), ctx.bld.Def(isa.S2), ctx.bld.Def(ctx.program.LaneMask), ctx.bld.SCC()},
		op(ctx.asVGPR(src)))
	ctx.move(res, dst)
}

// reduceUniform reduces a value equal in all lanes without cross-lane
// traffic. It reports false when the operation needs the general path.
func (ctx *selCtx) reduceUniform(in *ir.Intrinsic, src, dst isa.Temp) bool {
	switch in.Reduce {
	case ir.ReduceIMin, ir.ReduceUMin, ir.ReduceFMin, ir.ReduceIMax, ir.ReduceUMax, ir.ReduceFMax,
		ir.ReduceIAnd, ir.ReduceIOr:
		ctx.move(src, dst)
		return true
	case ir.ReduceIAdd, ir.ReduceIXor:
		if src.RC.Size != 1 {
			return false
		}
		count := ctx.bld.Sop1(ctx.lm(isa.OpSBcnt1I32B32, isa.OpSBcnt1I32B64), ctx.bld.Def(isa.S1), ctx.exec()).Def(0)
		if in.Reduce == ir.ReduceIXor {
			// An odd number of equal values xors to the value.
			odd := ctx.bld.Sop2(isa.OpSAndB32, ctx.bld.Def(isa.S1), op(count), cnst(1)).Def(0)
			res := ctx.bld.Sop2(isa.OpSMulI32, ctx.bld.Def(isa.S1), op(src), op(odd)).Def(0)
			ctx.move(res, dst)
			return true
		}
		res := ctx.bld.Sop2(isa.OpSMulI32, ctx.bld.Def(isa.S1), op(src), op(count)).Def(0)
		ctx.move(res, dst)
		return true
	}
	return false
}

// reduceBool reduces booleans as votes over the wave. Other clusters and
// scans go through a 0/1 integer reduction.
func (ctx *selCtx) reduceBool(in *ir.Intrinsic, src, dst isa.Temp, cluster uint32) {
	if in.Op == ir.Reduce && cluster == ctx.program.WaveSize {
		res := dst
		if dst.RC.IsMask() {
			res = ctx.bld.Tmp(isa.S1)
		}
		mask := ctx.boolToVector(src)
		switch in.Reduce {
		case ir.ReduceIAnd, ir.ReduceUMin, ir.ReduceIMin:
			ctx.voteAll(mask, res)
		case ir.ReduceIOr, ir.ReduceUMax, ir.ReduceIMax:
			ctx.voteAny(mask, res)
		case ir.ReduceIXor:
			active := ctx.bld.Sop2(ctx.lm(isa.OpSAndB32, isa.OpSAndB64), ctx.bld.Def(ctx.program.LaneMask), op(mask), ctx.exec()).Def(0)
			count := ctx.bld.Sop1(ctx.lm(isa.OpSBcnt1I32B32, isa.OpSBcnt1I32B64), ctx.bld.Def(isa.S1), op(active)).Def(0)
			ctx.bld.Build(isa.OpSAndB32, []isa.Definition{ctx.bld.Def(isa.S1), {Temp: res, Fixed: isa.RegSCC}}, op(count), cnst(1))
		default:
			unsupported(in.Op, "boolean %v reduction", reduceOps[in.Reduce])
		}
		if res != dst {
			ctx.moveBool(res, dst)
		}
		return
	}
	switch in.Reduce {
	case ir.ReduceIAnd, ir.ReduceIOr, ir.ReduceIXor:
	default:
		unsupported(in.Op, "boolean %v reduction", reduceOps[in.Reduce])
	}
	opc := isa.OpPReduce
	switch in.Op {
	case ir.InclusiveScan:
		opc = isa.OpPInclusiveScan
	case ir.ExclusiveScan:
		opc = isa.OpPExclusiveScan
	}
	wide := ctx.maskToVGPR(ctx.boolToVector(src))
	res := ctx.bld.Tmp(isa.V1)
	info := isa.ReductionInfo{Op: reduceOps[in.Reduce], BitSize: 32, ClusterSize: cluster}
	ctx.bld.BuildPayload(opc, info,
		[]isa.Definition{isa.Def(res), ctx.bld.Def(isa.S2), ctx.bld.Def(ctx.program.LaneMask), ctx.bld.SCC()},
		op(wide))
	ctx.moveBool(ctx.vgprToMask(res), dst)
}

// quadPerm returns the lane each quad lane reads.
func quadPerm(in *ir.Intrinsic) [4]uint8 {
	switch in.Op {
	case ir.QuadBroadcast:
		l := uint8(in.Base & 3)
		return [4]uint8{l, l, l, l}
	case ir.QuadSwapHorizontal:
		return [4]uint8{1, 0, 3, 2}
	case ir.QuadSwapVertical:
		return [4]uint8{2, 3, 0, 1}
	}
	return [4]uint8{3, 2, 1, 0}
}

// visitQuad permutes lanes within every quad, with DPP where available.
func (ctx *selCtx) visitQuad(in *ir.Intrinsic) {
	src := ctx.get(in.Srcs[0])
	dst := ctx.get(in.Dest)
	if src.RC.IsUniform() {
		ctx.moveResult(src, dst)
		return
	}
	boolean := src.RC.IsMask()
	data := src
	if boolean {
		data = ctx.maskToVGPR(src)
	}
	p := quadPerm(in)
	perm := isa.DPPQuadPerm(p[0], p[1], p[2], p[3])
	res := ctx.perDword(data, isa.Divergent, func(e isa.Temp) isa.Temp {
		e = ctx.asVGPR(e)
		if ctx.target.HasDPP {
			dpp := isa.DPPInfo{Ctrl: perm, RowMask: 0xf, BankMask: 0xf}
			return ctx.bld.VopDPP(isa.OpVMovB32, dpp, ctx.bld.Def(isa.V1), op(e)).Def(0)
		}
		return ctx.bld.DS(isa.OpDSSwizzleB32, isa.DSInfo{Offset0: dsSwizzleQuad | perm}, ctx.bld.Def(isa.V1), op(e)).Def(0)
	})
	out := ctx.bld.Tmp(res.RC)
	ctx.emitWQM(res, out)
	if boolean {
		out = ctx.vgprToMask(out)
	}
	ctx.moveResult(out, dst)
}

func (ctx *selCtx) visitLocalID(in *ir.Intrinsic) {
	dst := ctx.get(in.Dest)
	ids := ctx.args.localID[:dst.RC.Size]
	for i, id := range ids {
		if !id.Valid() {
			malformed(in.Op, "local invocation id %d is not available in this stage", i)
		}
	}
	ctx.createVector(dst, ids...)
}

func (ctx *selCtx) visitWorkgroupID(in *ir.Intrinsic) {
	dst := ctx.get(in.Dest)
	ids := ctx.args.workgroupID[:dst.RC.Size]
	for i, id := range ids {
		if !id.Valid() {
			malformed(in.Op, "workgroup id %d is not available in this stage", i)
		}
	}
	if dst.RC.IsUniform() {
		ctx.createVector(dst, ids...)
		return
	}
	t := ctx.bld.Tmp(dst.RC.AsKind(isa.Uniform))
	ctx.createVector(t, ids...)
	ctx.move(t, dst)
}
