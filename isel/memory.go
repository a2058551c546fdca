package isel

import (
	"fmt"

	"github.com/gogpu/wavesel/ir"
	"github.com/gogpu/wavesel/isa"
)

// constantRsrcWord3 is the last dword of the buffer descriptor built for
// constant data: identity swizzle, 32-bit float format.
const constantRsrcWord3 = 0x27fac

// addrReg is the address register of a split access. reg may be invalid
// for a purely constant address, in which case folded constants are
// materialized in registers of kind.
type addrReg struct {
	reg  isa.Temp
	kind isa.LaneKind

	base uint32
	cur  isa.Temp
}

// at returns the address register with base folded in. The add is emitted
// once per distinct base.
func (ctx *selCtx) at(a *addrReg, base uint32) isa.Temp {
	if base == 0 {
		return a.reg
	}
	if a.cur.Valid() && a.base == base {
		return a.cur
	}
	var t isa.Temp
	switch {
	case !a.reg.Valid():
		t = ctx.bld.Tmp(isa.NewRegClass(a.kind, 1))
		ctx.movConst(isa.Def(t), base)
	case a.reg.RC.Size == 2:
		t = ctx.bld.Tmp(a.reg.RC)
		lo, hi := ctx.halves(a.reg)
		ctx.addSub64(t, op(lo), op(hi), cnst(base), cnst(0), false)
	default:
		t = ctx.bld.Tmp(a.reg.RC)
		ctx.add32(isa.Def(t), op(a.reg), cnst(base), false)
	}
	a.base, a.cur = base, t
	return t
}

func partClass(bytes uint32, kind isa.LaneKind) isa.RegClass {
	return isa.NewRegClass(kind, uint8((bytes+3)/4))
}

// accessBytes returns the memory size of the value h.
func (ctx *selCtx) accessBytes(in *ir.Intrinsic, h ir.ValueHandle) uint32 {
	v := ctx.fn.Value(h)
	if v.BitSize == 1 {
		malformed(in.Op, "boolean memory access")
	}
	if v.BitSize < 32 && v.Components > 1 {
		unsupported(in.Op, "vector of %d-bit values", v.BitSize)
	}
	return v.Bytes()
}

// offsetOf splits an offset source plus a constant into a register part,
// invalid when the source is constant, and a constant part.
func (ctx *selCtx) offsetOf(h ir.ValueHandle, base uint32) (isa.Temp, uint32) {
	if h == ir.NoValue {
		return isa.Temp{}, base
	}
	if c, ok := ctx.constValue(h, 0); ok {
		return isa.Temp{}, base + uint32(c)
	}
	return ctx.get(h), base
}

func (ctx *selCtx) plan(in *ir.Intrinsic, widths []memWidth, offset, size, align uint32) []transfer {
	p, ok := planTransfers(widths, offset, size, align)
	if !ok {
		unsupported(in.Op, "%d-byte access with alignment %d", size, align)
	}
	return p
}

// assemble builds dst from the results of a split load.
func (ctx *selCtx) assemble(dst isa.Temp, parts []isa.Temp) {
	if len(parts) == 1 {
		ctx.move(parts[0], dst)
		return
	}
	for i, p := range parts {
		parts[i] = ctx.convert(p, p.RC.AsKind(dst.RC.Kind))
	}
	ctx.createVector(dst, parts...)
}

// storeData returns bytes of the store data starting at byte pos as a
// vector register.
func (ctx *selCtx) storeData(dwords []isa.Temp, pos, bytes uint32) isa.Temp {
	first := pos / 4
	n := (bytes + 3) / 4
	elems := make([]isa.Temp, n)
	for i := range elems {
		elems[i] = ctx.asVGPR(dwords[first+uint32(i)])
	}
	if n == 1 {
		return elems[0]
	}
	t := ctx.bld.Tmp(isa.NewRegClass(isa.Divergent, uint8(n)))
	ctx.createVector(t, elems...)
	return t
}

// dwordsOf returns the dwords of a store's data.
func (ctx *selCtx) dwordsOf(data isa.Temp) []isa.Temp {
	return ctx.elements(data, int(data.RC.Size))
}

// writeRun is a run of consecutive components written by a store.
type writeRun struct {
	first, count int
}

func writeRuns(mask uint8, comps int) []writeRun {
	var runs []writeRun
	for c := 0; c < comps; {
		if mask&(1<<uint(c)) == 0 {
			c++
			continue
		}
		r := writeRun{first: c}
		for c < comps && mask&(1<<uint(c)) != 0 {
			c++
		}
		r.count = c - r.first
		runs = append(runs, r)
	}
	return runs
}

// storeRuns returns the byte ranges written by a store.
func (ctx *selCtx) storeRuns(in *ir.Intrinsic, data ir.ValueHandle) (runs []writeRun, elemBytes uint32) {
	v := ctx.fn.Value(data)
	bytes := ctx.accessBytes(in, data)
	mask := in.WriteMask
	if mask == 0 {
		mask = uint8(1)<<v.Components - 1
	}
	return writeRuns(mask, int(v.Components)), bytes / uint32(v.Components)
}

// pointer64 extends a 32-bit pointer with the configured high dword.
func (ctx *selCtx) pointer64(ptr isa.Temp) isa.Temp {
	t := ctx.bld.Tmp(isa.S2)
	ctx.bld.CreateVector(isa.Def(t), op(ctx.asUniform(ptr)), cnst(ctx.opts.AddressHigh))
	return t
}

// bufferRsrc loads the buffer descriptor at address desc.
func (ctx *selCtx) bufferRsrc(desc isa.Temp) isa.Temp {
	rsrc := ctx.bld.Tmp(isa.S4)
	ctx.bld.Smem(isa.OpSLoadDwordx4, isa.SMEMInfo{CanReorder: true}, isa.Def(rsrc), op(ctx.pointer64(desc)), cnst(0))
	return rsrc
}

func (ctx *selCtx) visitMemoryIntrinsic(in *ir.Intrinsic) bool {
	switch in.Op {
	case ir.LoadShared:
		ctx.visitLoadShared(in)
	case ir.StoreShared:
		ctx.visitStoreShared(in)
	case ir.SharedAtomic:
		ctx.visitSharedAtomic(in)
	case ir.LoadUBO, ir.LoadSSBO:
		dyn, c := ctx.offsetOf(in.Srcs[1], in.Base)
		ctx.loadBuffer(in, ctx.bufferRsrc(ctx.get(in.Srcs[0])), dyn, c)
	case ir.StoreSSBO:
		ctx.visitStoreSSBO(in)
	case ir.SSBOAtomic:
		ctx.visitSSBOAtomic(in)
	case ir.GetBufferSize:
		rsrc := ctx.bufferRsrc(ctx.get(in.Srcs[0]))
		ctx.move(ctx.extract(rsrc, 2, isa.S1), ctx.get(in.Dest))
	case ir.LoadGlobal:
		ctx.visitLoadGlobal(in)
	case ir.StoreGlobal:
		ctx.visitStoreGlobal(in)
	case ir.GlobalAtomic:
		ctx.visitGlobalAtomic(in)
	case ir.LoadScratch:
		ctx.visitLoadScratch(in)
	case ir.StoreScratch:
		ctx.visitStoreScratch(in)
	case ir.LoadPushConstant:
		ctx.visitLoadPushConstant(in)
	case ir.LoadConstant:
		ctx.visitLoadConstant(in)
	case ir.VulkanResourceIndex:
		ctx.visitResourceIndex(in)
	default:
		return false
	}
	return true
}

// ldsOperands appends the m0 limit read by LDS instructions on older chips.
func (ctx *selCtx) ldsOperands(ops ...isa.Operand) []isa.Operand {
	if !ctx.target.LDSNeedsM0 {
		return ops
	}
	m0 := ctx.bld.Sop1(isa.OpSMovB32, ctx.bld.DefFixed(isa.S1, isa.RegM0), cnst(^uint32(0))).Def(0)
	return append(ops, isa.OperandFixedTemp(m0, isa.RegM0))
}

// ldsAddress returns the address register of an LDS access. DS
// instructions always take one, so a constant address starts at zero.
func (ctx *selCtx) ldsAddress(dyn isa.Temp) *addrReg {
	if dyn.Valid() {
		return &addrReg{reg: ctx.asVGPR(dyn), kind: isa.Divergent}
	}
	zero := ctx.bld.Tmp(isa.V1)
	ctx.bld.Vop1(isa.OpVMovB32, isa.Def(zero), cnst(0))
	return &addrReg{reg: zero, kind: isa.Divergent}
}

func dsInfo(t transfer) isa.DSInfo {
	if t.width.paired {
		o0, o1 := pairedOffsets(t)
		return isa.DSInfo{Offset0: o0, Offset1: o1}
	}
	return isa.DSInfo{Offset0: uint16(t.offset)}
}

func (ctx *selCtx) visitLoadShared(in *ir.Intrinsic) {
	dst := ctx.get(in.Dest)
	dyn, c := ctx.offsetOf(in.Srcs[0], in.Base)
	addr := ctx.ldsAddress(dyn)
	var parts []isa.Temp
	for _, t := range ctx.plan(in, ctx.ldsWidths(), c, ctx.accessBytes(in, in.Dest), in.Align) {
		part := ctx.bld.Tmp(partClass(t.bytes, isa.Divergent))
		ctx.bld.DS(t.width.load, dsInfo(t), isa.Def(part), ctx.ldsOperands(op(ctx.at(addr, t.base)))...)
		parts = append(parts, part)
	}
	ctx.assemble(dst, parts)
}

func (ctx *selCtx) visitStoreShared(in *ir.Intrinsic) {
	data := ctx.get(in.Srcs[0])
	dyn, c := ctx.offsetOf(in.Srcs[1], in.Base)
	runs, elemBytes := ctx.storeRuns(in, in.Srcs[0])
	dwords := ctx.dwordsOf(data)
	addr := ctx.ldsAddress(dyn)

	if ctx.storeSharedPair(in, addr, dwords, runs, elemBytes, c) {
		return
	}
	for _, r := range runs {
		start := uint32(r.first) * elemBytes
		align := alignAt(in.Align, start)
		for _, t := range ctx.plan(in, ctx.ldsWidths(), c+start, uint32(r.count)*elemBytes, align) {
			pos := start + t.at
			ops := []isa.Operand{op(ctx.at(addr, t.base))}
			if t.width.paired {
				half := t.bytes / 2
				ops = append(ops, op(ctx.storeData(dwords, pos, half)), op(ctx.storeData(dwords, pos+half, half)))
			} else {
				ops = append(ops, op(ctx.storeData(dwords, pos, t.bytes)))
			}
			ctx.bld.DS(t.width.store, dsInfo(t), isa.Definition{}, ctx.ldsOperands(ops...)...)
		}
	}
}

// storeSharedPair writes two equally sized runs with one paired store. It
// reports false when the runs cannot be paired.
func (ctx *selCtx) storeSharedPair(in *ir.Intrinsic, addr *addrReg, dwords []isa.Temp, runs []writeRun, elemBytes, offset uint32) bool {
	if len(runs) != 2 || runs[0].count != runs[1].count {
		return false
	}
	size := uint32(runs[0].count) * elemBytes
	var opc isa.Opcode
	switch size {
	case 4:
		opc = isa.OpDSWrite2B32
	case 8:
		opc = isa.OpDSWrite2B64
	default:
		return false
	}
	first := offset + uint32(runs[0].first)*elemBytes
	second := offset + uint32(runs[1].first)*elemBytes
	if alignAt(in.Align, 0) < size || first%size != 0 || second%size != 0 || second/size > 255 {
		return false
	}
	info := isa.DSInfo{Offset0: uint16(first / size), Offset1: uint8(second / size)}
	d0 := ctx.storeData(dwords, uint32(runs[0].first)*elemBytes, size)
	d1 := ctx.storeData(dwords, uint32(runs[1].first)*elemBytes, size)
	ctx.bld.DS(opc, info, isa.Definition{}, ctx.ldsOperands(op(ctx.at(addr, 0)), op(d0), op(d1))...)
	return true
}

// atomicOp maps an IR atomic to the hardware operation.
func atomicOp(op ir.AtomicOp) isa.AtomicOp {
	switch op {
	case ir.AtomicAdd:
		return isa.AtomicAdd
	case ir.AtomicSub:
		return isa.AtomicSub
	case ir.AtomicIMin:
		return isa.AtomicSMin
	case ir.AtomicUMin:
		return isa.AtomicUMin
	case ir.AtomicIMax:
		return isa.AtomicSMax
	case ir.AtomicUMax:
		return isa.AtomicUMax
	case ir.AtomicAnd:
		return isa.AtomicAnd
	case ir.AtomicOr:
		return isa.AtomicOr
	case ir.AtomicXor:
		return isa.AtomicXor
	case ir.AtomicExchange:
		return isa.AtomicSwap
	case ir.AtomicCompSwap:
		return isa.AtomicCmpSwap
	}
	malformed(opName("atomic"), "unknown atomic operation %d", op)
	return 0
}

// atomicResult returns the definition of an atomic's previous value, or
// the zero Definition when the value is never read.
func (ctx *selCtx) atomicResult(in *ir.Intrinsic) (isa.Definition, bool) {
	if !ctx.hasUses(in.Dest) {
		return isa.Definition{}, false
	}
	return isa.Def(ctx.get(in.Dest)), true
}

// atomicData returns the data operand of a vector memory atomic. Compare
// and swap packs the new value and the comparand into one vector.
func (ctx *selCtx) atomicData(in *ir.Intrinsic, data, compare ir.ValueHandle) (isa.Temp, bool) {
	v := ctx.fn.Value(data)
	if v.Components != 1 || (v.BitSize != 32 && v.BitSize != 64) {
		unsupported(in.Op, "%d-bit atomic on %d components", v.BitSize, v.Components)
	}
	wide := v.BitSize == 64
	d := ctx.asVGPR(ctx.get(data))
	if in.Atomic != ir.AtomicCompSwap {
		return d, wide
	}
	if compare == ir.NoValue {
		malformed(in.Op, "compare and swap without a comparand")
	}
	packed := ctx.bld.Tmp(isa.NewRegClass(isa.Divergent, 2*d.RC.Size))
	ctx.bld.CreateVector(isa.Def(packed), op(d), op(ctx.asVGPR(ctx.get(compare))))
	return packed, wide
}

func (ctx *selCtx) visitSharedAtomic(in *ir.Intrinsic) {
	dyn, c := ctx.offsetOf(in.Srcs[0], in.Base)
	addr := ctx.ldsAddress(dyn)
	base, imm := uint32(0), c
	if c > 0xffff {
		base, imm = c, 0
	}
	a := ctx.at(addr, base)
	v := ctx.fn.Value(in.Srcs[1])
	if v.Components != 1 || (v.BitSize != 32 && v.BitSize != 64) {
		unsupported(in.Op, "%d-bit atomic on %d components", v.BitSize, v.Components)
	}
	data := ctx.asVGPR(ctx.get(in.Srcs[1]))
	ops := []isa.Operand{op(a)}
	if in.Atomic == ir.AtomicCompSwap {
		if len(in.Srcs) < 3 {
			malformed(in.Op, "compare and swap without a comparand")
		}
		ops = append(ops, op(ctx.asVGPR(ctx.get(in.Srcs[2]))))
	}
	ops = append(ops, op(data))
	def, ret := ctx.atomicResult(in)
	family := isa.AtomicFamilyDS
	if ret {
		family = isa.AtomicFamilyDSReturn
	}
	opc := isa.AtomicOpcode(family, atomicOp(in.Atomic), v.BitSize == 64)
	ctx.bld.DS(opc, isa.DSInfo{Offset0: uint16(imm)}, def, ctx.ldsOperands(ops...)...)
}

// mubufAddress returns the vaddr and soffset operands of a buffer
// transfer. soff is an optional register added to every access.
func (ctx *selCtx) mubufAddress(addr *addrReg, t transfer, soff isa.Temp) (vaddr, soffset isa.Operand, offen bool) {
	soffset = cnst(0)
	if soff.Valid() {
		soffset = op(soff)
	}
	vaddr = isa.OperandUndef(isa.V1)
	switch {
	case addr.reg.Valid():
		return op(ctx.at(addr, t.base)), soffset, true
	case t.base == 0:
		return vaddr, soffset, false
	case soff.Valid():
		s := ctx.bld.Tmp(isa.S1)
		ctx.add32(isa.Def(s), op(soff), cnst(t.base), false)
		return vaddr, op(s), false
	}
	return vaddr, op(ctx.at(addr, t.base)), false
}

// bufferAddress returns the address register of a buffer access.
func (ctx *selCtx) bufferAddress(dyn isa.Temp) *addrReg {
	if dyn.Valid() {
		return &addrReg{reg: ctx.asVGPR(dyn), kind: isa.Divergent}
	}
	return &addrReg{kind: isa.Uniform}
}

// loadBuffer loads the destination of in from a buffer. Uniform results use
// scalar loads unless the access needs a vector path, in which case the
// vector result is asserted uniform.
func (ctx *selCtx) loadBuffer(in *ir.Intrinsic, rsrc, dyn isa.Temp, c uint32) {
	dst := ctx.get(in.Dest)
	size := ctx.accessBytes(in, in.Dest)
	coherent := in.Access&(ir.AccessCoherent|ir.AccessVolatile) != 0
	reorder := in.Access&ir.AccessCanReorder != 0 || in.Op == ir.LoadUBO || in.Op == ir.LoadConstant

	if dst.RC.IsUniform() && size%4 == 0 && (!coherent || ctx.target.SMEMGLCOK) {
		addr := &addrReg{kind: isa.Uniform}
		if dyn.Valid() {
			addr.reg = ctx.asUniform(dyn)
		}
		var parts []isa.Temp
		for _, t := range ctx.plan(in, ctx.smemWidths(true, addr.reg.Valid()), c, size, in.Align) {
			part := ctx.bld.Tmp(partClass(t.bytes, isa.Uniform))
			info := isa.SMEMInfo{GLC: coherent, CanReorder: reorder}
			ctx.bld.Smem(t.width.load, info, isa.Def(part), op(rsrc), ctx.smemOffset(addr, t))
			parts = append(parts, part)
		}
		ctx.assemble(dst, parts)
		return
	}

	addr := ctx.bufferAddress(dyn)
	var parts []isa.Temp
	for _, t := range ctx.plan(in, ctx.bufferWidths(), c, size, in.Align) {
		vaddr, soffset, offen := ctx.mubufAddress(addr, t, isa.Temp{})
		info := isa.MUBUFInfo{Offset: uint16(t.offset), Offen: offen, GLC: coherent, CanReorder: reorder}
		part := ctx.bld.Tmp(partClass(t.bytes, isa.Divergent))
		ctx.bld.MUBUF(t.width.load, info, isa.Def(part), op(rsrc), vaddr, soffset)
		parts = append(parts, part)
	}
	ctx.assemble(dst, parts)
}

// smemOffset returns the offset operand of a scalar load: an immediate, a
// register, or their sum.
func (ctx *selCtx) smemOffset(addr *addrReg, t transfer) isa.Operand {
	if !addr.reg.Valid() && t.base == 0 {
		return cnst(t.offset)
	}
	reg := ctx.at(addr, t.base)
	if t.offset == 0 {
		return op(reg)
	}
	s := ctx.bld.Tmp(isa.S1)
	ctx.add32(isa.Def(s), op(reg), cnst(t.offset), false)
	return op(s)
}

// storeBuffer writes data through a buffer descriptor. soff is added to
// every address, as the scratch wave offset is.
func (ctx *selCtx) storeBuffer(in *ir.Intrinsic, rsrc, soff isa.Temp, data ir.ValueHandle, dyn isa.Temp, c uint32) {
	runs, elemBytes := ctx.storeRuns(in, data)
	dwords := ctx.dwordsOf(ctx.get(data))
	coherent := in.Access&(ir.AccessCoherent|ir.AccessVolatile) != 0
	addr := ctx.bufferAddress(dyn)
	for _, r := range runs {
		start := uint32(r.first) * elemBytes
		for _, t := range ctx.plan(in, ctx.bufferWidths(), c+start, uint32(r.count)*elemBytes, alignAt(in.Align, start)) {
			vaddr, soffset, offen := ctx.mubufAddress(addr, t, soff)
			info := isa.MUBUFInfo{Offset: uint16(t.offset), Offen: offen, GLC: coherent}
			ctx.bld.MUBUF(t.width.store, info, isa.Definition{}, op(rsrc), vaddr, soffset, op(ctx.storeData(dwords, start+t.at, t.bytes)))
		}
	}
}

func (ctx *selCtx) visitStoreSSBO(in *ir.Intrinsic) {
	rsrc := ctx.bufferRsrc(ctx.get(in.Srcs[1]))
	dyn, c := ctx.offsetOf(in.Srcs[2], in.Base)
	ctx.storeBuffer(in, rsrc, isa.Temp{}, in.Srcs[0], dyn, c)
}

func (ctx *selCtx) visitSSBOAtomic(in *ir.Intrinsic) {
	rsrc := ctx.bufferRsrc(ctx.get(in.Srcs[0]))
	dyn, c := ctx.offsetOf(in.Srcs[1], in.Base)
	var compare ir.ValueHandle
	if len(in.Srcs) > 3 {
		compare = in.Srcs[3]
	}
	data, wide := ctx.atomicData(in, in.Srcs[2], compare)
	addr := ctx.bufferAddress(dyn)
	t := transfer{offset: c}
	if c > mubufMaxOffset {
		t = transfer{base: c}
	}
	vaddr, soffset, offen := ctx.mubufAddress(addr, t, isa.Temp{})
	def, ret := ctx.atomicResult(in)
	info := isa.MUBUFInfo{Offset: uint16(t.offset), Offen: offen, GLC: ret}
	opc := isa.AtomicOpcode(isa.AtomicFamilyBuffer, atomicOp(in.Atomic), wide)
	ctx.bld.MUBUF(opc, info, def, op(rsrc), vaddr, soffset, op(data))
}

func (ctx *selCtx) visitLoadScratch(in *ir.Intrinsic) {
	dst := ctx.get(in.Dest)
	dyn, c := ctx.offsetOf(in.Srcs[0], in.Base)
	addr := ctx.bufferAddress(dyn)
	var parts []isa.Temp
	for _, t := range ctx.plan(in, ctx.bufferWidths(), c, ctx.accessBytes(in, in.Dest), in.Align) {
		vaddr, soffset, offen := ctx.mubufAddress(addr, t, ctx.args.scratchOffset)
		info := isa.MUBUFInfo{Offset: uint16(t.offset), Offen: offen}
		part := ctx.bld.Tmp(partClass(t.bytes, isa.Divergent))
		ctx.bld.MUBUF(t.width.load, info, isa.Def(part), op(ctx.args.privateBuffer), vaddr, soffset)
		parts = append(parts, part)
	}
	ctx.assemble(dst, parts)
}

func (ctx *selCtx) visitStoreScratch(in *ir.Intrinsic) {
	dyn, c := ctx.offsetOf(in.Srcs[1], in.Base)
	ctx.storeBuffer(in, ctx.args.privateBuffer, ctx.args.scratchOffset, in.Srcs[0], dyn, c)
}

// globalAddress returns the address register of a global access, which
// lives in vector registers.
func (ctx *selCtx) globalAddress(in *ir.Intrinsic, addr ir.ValueHandle) *addrReg {
	if !ctx.target.HasFlat {
		unsupported(in.Op, "global memory on %v", ctx.target.Chip)
	}
	if v := ctx.fn.Value(addr); v.BitSize != 64 || v.Components != 1 {
		malformed(in.Op, "address is not a 64-bit scalar")
	}
	return &addrReg{reg: ctx.asVGPR(ctx.get(addr)), kind: isa.Divergent}
}

func (ctx *selCtx) visitLoadGlobal(in *ir.Intrinsic) {
	dst := ctx.get(in.Dest)
	size := ctx.accessBytes(in, in.Dest)
	ptr := ctx.get(in.Srcs[0])
	coherent := in.Access&(ir.AccessCoherent|ir.AccessVolatile) != 0
	reorder := in.Access&ir.AccessCanReorder != 0
	if dst.RC.IsUniform() && ptr.RC.IsUniform() && size%4 == 0 && (!coherent || ctx.target.SMEMGLCOK) {
		ctx.loadScalar(in, dst, ptr, in.Base, size, coherent, reorder)
		return
	}
	ctx.loadGlobal(in, dst, ctx.globalAddress(in, in.Srcs[0]), in.Base, size, coherent, reorder)
}

// loadScalar loads size bytes from a uniform 64-bit address with scalar
// loads.
func (ctx *selCtx) loadScalar(in *ir.Intrinsic, dst, ptr isa.Temp, c, size uint32, coherent, reorder bool) {
	addr := &addrReg{reg: ptr, kind: isa.Uniform}
	var parts []isa.Temp
	for _, t := range ctx.plan(in, ctx.smemWidths(false, false), c, size, in.Align) {
		part := ctx.bld.Tmp(partClass(t.bytes, isa.Uniform))
		info := isa.SMEMInfo{GLC: coherent, CanReorder: reorder}
		ctx.bld.Smem(t.width.load, info, isa.Def(part), op(ctx.at(addr, t.base)), cnst(t.offset))
		parts = append(parts, part)
	}
	ctx.assemble(dst, parts)
}

func (ctx *selCtx) loadGlobal(in *ir.Intrinsic, dst isa.Temp, addr *addrReg, c, size uint32, coherent, reorder bool) {
	var parts []isa.Temp
	for _, t := range ctx.plan(in, ctx.globalWidths(), c, size, in.Align) {
		part := ctx.bld.Tmp(partClass(t.bytes, isa.Divergent))
		info := isa.FLATInfo{Offset: int16(t.offset), GLC: coherent, CanReorder: reorder}
		ctx.bld.Flat(t.width.load, info, isa.Def(part), op(ctx.at(addr, t.base)))
		parts = append(parts, part)
	}
	ctx.assemble(dst, parts)
}

func (ctx *selCtx) visitStoreGlobal(in *ir.Intrinsic) {
	addr := ctx.globalAddress(in, in.Srcs[1])
	runs, elemBytes := ctx.storeRuns(in, in.Srcs[0])
	dwords := ctx.dwordsOf(ctx.get(in.Srcs[0]))
	coherent := in.Access&(ir.AccessCoherent|ir.AccessVolatile) != 0
	for _, r := range runs {
		start := uint32(r.first) * elemBytes
		for _, t := range ctx.plan(in, ctx.globalWidths(), in.Base+start, uint32(r.count)*elemBytes, alignAt(in.Align, start)) {
			info := isa.FLATInfo{Offset: int16(t.offset), GLC: coherent}
			ctx.bld.Flat(t.width.store, info, isa.Definition{}, op(ctx.at(addr, t.base)), op(ctx.storeData(dwords, start+t.at, t.bytes)))
		}
	}
}

func (ctx *selCtx) visitGlobalAtomic(in *ir.Intrinsic) {
	addr := ctx.globalAddress(in, in.Srcs[0])
	var compare ir.ValueHandle
	if len(in.Srcs) > 2 {
		compare = in.Srcs[2]
	}
	data, wide := ctx.atomicData(in, in.Srcs[1], compare)
	family := isa.AtomicFamilyFlat
	limit := uint32(0)
	if ctx.target.HasGlobal {
		family = isa.AtomicFamilyGlobal
		limit = ctx.globalWidths()[0].maxOffset
	}
	t := transfer{offset: in.Base}
	if in.Base > limit {
		t = transfer{base: in.Base}
	}
	def, ret := ctx.atomicResult(in)
	info := isa.FLATInfo{Offset: int16(t.offset), GLC: ret}
	ctx.bld.Flat(isa.AtomicOpcode(family, atomicOp(in.Atomic), wide), info, def, op(ctx.at(addr, t.base)), op(data))
}

func (ctx *selCtx) visitLoadPushConstant(in *ir.Intrinsic) {
	dst := ctx.get(in.Dest)
	size := ctx.accessBytes(in, in.Dest)
	dyn, c := ctx.offsetOf(in.Srcs[0], in.Base)
	if in.Range != 0 && !dyn.Valid() && c+size > in.Base+in.Range {
		malformed(in.Op, "bytes [%d, %d) outside the push constant range", c, c+size)
	}

	inline := ctx.opts.InlinePushConstants
	if !dyn.Valid() && inline.Contains(c, size) {
		first := c/4 - inline.Base
		elems := ctx.args.inlinePush[first : first+size/4]
		ctx.assemble(dst, append([]isa.Temp(nil), elems...))
		return
	}

	ptr := ctx.pointer64(ctx.args.pushConsts)
	if dst.RC.IsUniform() && size%4 == 0 {
		if dyn.Valid() {
			lo, hi := ctx.halves(ptr)
			sum := ctx.bld.Tmp(isa.S2)
			ctx.addSub64(sum, op(lo), op(hi), op(ctx.asUniform(dyn)), cnst(0), false)
			ptr = sum
		}
		ctx.loadScalar(in, dst, ptr, c, size, false, true)
		return
	}

	// A divergent offset indexes through a vector load of the same memory.
	addr := &addrReg{reg: ctx.asVGPR(ptr), kind: isa.Divergent}
	if dyn.Valid() {
		lo, hi := ctx.halves(addr.reg)
		sum := ctx.bld.Tmp(isa.V2)
		ctx.addSub64(sum, op(lo), op(hi), op(ctx.asVGPR(dyn)), cnst(0), false)
		addr.reg = sum
	}
	if !ctx.target.HasFlat {
		unsupported(in.Op, "divergent push constant offset on %v", ctx.target.Chip)
	}
	ctx.loadGlobal(in, dst, addr, c, size, false, true)
}

func (ctx *selCtx) visitLoadConstant(in *ir.Intrinsic) {
	if len(ctx.fn.ConstantData) == 0 {
		malformed(in.Op, "function has no constant data")
	}
	addr := ctx.bld.Pseudo(isa.OpPConstAddr, []isa.Definition{ctx.bld.Def(isa.S2)}, cnst(0)).Def(0)
	lo, hi := ctx.halves(addr)
	rsrc := ctx.bld.Tmp(isa.S4)
	ctx.bld.CreateVector(isa.Def(rsrc), op(lo), op(hi), cnst(uint32(len(ctx.fn.ConstantData))), cnst(constantRsrcWord3))
	dyn, c := ctx.offsetOf(in.Srcs[0], in.Base)
	ctx.loadBuffer(in, rsrc, dyn, c)
}

// descriptorSet returns the pointer argument of descriptor set n.
func (ctx *selCtx) descriptorSet(what fmt.Stringer, n uint32) isa.Temp {
	if int(n) >= len(ctx.args.descSets) {
		malformed(what, "descriptor set %d is not bound", n)
	}
	return ctx.args.descSets[n]
}

// visitResourceIndex computes the address of a buffer descriptor: the set
// pointer plus the binding offset plus the array index times the stride.
func (ctx *selCtx) visitResourceIndex(in *ir.Intrinsic) {
	dst := ctx.get(in.Dest)
	set := ctx.descriptorSet(in.Op, in.Resource.Set)
	b := ctx.opts.Layout.Binding(in.Resource)

	var index ir.ValueHandle
	if len(in.Srcs) > 0 {
		index = in.Srcs[0]
	}
	if c, ok := ctx.constValue(index, 0); ok || index == ir.NoValue {
		off := b.Offset + uint32(c)*b.Stride
		if dst.RC.IsUniform() {
			ctx.bld.Sop2(isa.OpSAddU32, isa.Def(dst), op(set), cnst(off))
			return
		}
		ctx.add32(isa.Def(dst), cnst(off), op(set), false)
		return
	}
	idx := ctx.get(index)
	if dst.RC.IsUniform() {
		scaled := ctx.bld.Sop2(isa.OpSMulI32, ctx.bld.Def(isa.S1), op(ctx.asUniform(idx)), cnst(b.Stride)).Def(0)
		withSet := ctx.bld.Sop2(isa.OpSAddU32, ctx.bld.Def(isa.S1), op(set), op(scaled)).Def(0)
		ctx.bld.Sop2(isa.OpSAddU32, isa.Def(dst), op(withSet), cnst(b.Offset))
		return
	}
	scaled := ctx.bld.Vop3(isa.OpVMulLoU32, ctx.bld.Def(isa.V1), op(ctx.asVGPR(idx)), ctx.vop3Const(b.Stride)).Def(0)
	withSet := ctx.bld.Tmp(isa.V1)
	ctx.add32(isa.Def(withSet), op(set), op(scaled), false)
	ctx.add32(isa.Def(dst), cnst(b.Offset), op(withSet), false)
}
