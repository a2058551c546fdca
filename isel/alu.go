package isel

import (
	"github.com/gogpu/wavesel/ir"
	"github.com/gogpu/wavesel/isa"
)

// src returns component 0 of ALU source i after applying its swizzle.
func (ctx *selCtx) src(in *ir.ALU, i int) isa.Temp {
	return ctx.srcComp(in.Srcs[i], 0)
}

// srcComp returns the component an ALU source selects for destination
// component c.
func (ctx *selCtx) srcComp(s ir.ALUSrc, c int) isa.Temp {
	v := ctx.fn.Value(s.Value)
	t := ctx.get(s.Value)
	if v.Components == 1 {
		return t
	}
	if v.BitSize == 1 {
		unsupported(opName("swizzle"), "boolean vector %d", s.Value)
	}
	return ctx.extract(t, int(s.Swizzle[c]), t.RC.Element(int(v.Components)))
}

func (ctx *selCtx) srcBits(in *ir.ALU, i int) uint8 {
	return ctx.fn.Value(in.Srcs[i].Value).BitSize
}

func isVGPR(o isa.Operand) bool {
	return o.IsTemp() && o.Temp().RC.IsDivergent()
}

// vgprOperand moves o into a vector register unless it already is one.
func (ctx *selCtx) vgprOperand(o isa.Operand) isa.Operand {
	if isVGPR(o) {
		return o
	}
	if o.IsTemp() {
		return op(ctx.asVGPR(o.Temp()))
	}
	t := ctx.bld.Tmp(isa.V1)
	ctx.bld.Vop1(isa.OpVMovB32, isa.Def(t), o)
	return op(t)
}

// vop2 emits a VOP2 instruction computing opc(a, b). The second slot only
// accepts a vector register: when b is not one and a is, the operands are
// swapped under rev, the opcode with reversed operand order (opc itself for
// commutative operations). Otherwise b is copied to a vector register.
// extra operands, such as a carry-in or a select condition, are appended.
func (ctx *selCtx) vop2(opc, rev isa.Opcode, dst isa.Definition, a, b isa.Operand, extra ...isa.Operand) *isa.Instruction {
	if !isVGPR(b) {
		if isVGPR(a) && rev != isa.OpInvalid {
			a, b = b, a
			opc = rev
		} else {
			b = ctx.vgprOperand(b)
		}
	}
	return ctx.bld.Vop2(opc, dst, append([]isa.Operand{a, b}, extra...)...)
}

// cndmask emits dst = cond ? then : els for one dword.
func (ctx *selCtx) cndmask(dst isa.Definition, els, then isa.Operand, cond isa.Temp) *isa.Instruction {
	if !isVGPR(then) {
		return ctx.bld.Vop2E(isa.OpVCndmaskB32, dst, els, then, op(cond))
	}
	return ctx.bld.Vop2(isa.OpVCndmaskB32, dst, els, then, op(cond))
}

// move copies src into dst, converting between register files.
func (ctx *selCtx) move(src, dst isa.Temp) {
	if dst.RC.IsUniform() && src.RC.IsDivergent() {
		ctx.bld.AsUniform(isa.Def(dst), op(src))
		return
	}
	ctx.bld.Copy(isa.Def(dst), op(src))
	if cached, ok := ctx.allocatedVec[src.ID]; ok && src.RC == dst.RC {
		ctx.allocatedVec[dst.ID] = cached
	}
}

// convert returns t in class rc, which must have the same size.
func (ctx *selCtx) convert(t isa.Temp, rc isa.RegClass) isa.Temp {
	switch {
	case t.RC == rc:
		return t
	case rc.IsDivergent():
		return ctx.asVGPR(t)
	case rc.IsUniform() && t.RC.IsDivergent():
		return ctx.asUniform(t)
	}
	invariant(opName("convert"), "cannot convert %v to %v", t, rc)
	return t
}

// moveBool copies a boolean into dst, converting between the lane mask and
// the uniform 0/1 representation.
func (ctx *selCtx) moveBool(src, dst isa.Temp) {
	if dst.RC.IsMask() {
		ctx.bld.Copy(isa.Def(dst), op(ctx.boolToVector(src)))
		return
	}
	ctx.boolToScalarInto(src, dst)
}

func (ctx *selCtx) visitALU(in *ir.ALU) {
	dv := ctx.fn.Value(in.Dest)
	dst := ctx.get(in.Dest)

	switch in.Op {
	case ir.OpMov, ir.OpVec2, ir.OpVec3, ir.OpVec4:
		ctx.visitVec(in, dst, dv)
	case ir.OpINot, ir.OpIAnd, ir.OpIOr, ir.OpIXor:
		if dv.BitSize == 1 {
			ctx.visitBoolLogic(in, dst)
		} else {
			ctx.visitIntLogic(in, dst, dv)
		}
	case ir.OpIAdd, ir.OpISub:
		ctx.visitAddSub(in, dst, dv)
	case ir.OpINeg:
		ctx.visitINeg(in, dst, dv)
	case ir.OpUAddCarry, ir.OpUSubBorrow:
		ctx.visitCarry(in, dst)
	case ir.OpIMul, ir.OpIMulHigh, ir.OpUMulHigh:
		ctx.visitMul(in, dst, dv)
	case ir.OpUDiv, ir.OpUMod:
		ctx.visitUDiv(in, dst, dv)
	case ir.OpIShl, ir.OpIShr, ir.OpUShr:
		ctx.visitShift(in, dst, dv)
	case ir.OpIMin, ir.OpIMax, ir.OpUMin, ir.OpUMax:
		ctx.visitIntMinMax(in, dst, dv)
	case ir.OpIMin3, ir.OpIMax3, ir.OpIMed3, ir.OpUMin3, ir.OpUMax3, ir.OpUMed3:
		ctx.visitIntMinMax3(in, dst, dv)
	case ir.OpIAbs, ir.OpISign:
		ctx.visitIntSign(in, dst, dv)
	case ir.OpBitfieldReverse, ir.OpBitCount, ir.OpFindLSB, ir.OpUFindMSB, ir.OpIFindMSB:
		ctx.visitBitScan(in, dst)
	case ir.OpUBfe, ir.OpIBfe:
		ctx.visitBfe(in, dst, dv)
	case ir.OpBitfieldInsert:
		ctx.visitBitfieldInsert(in, dst, dv)
	case ir.OpBfm:
		ctx.visitBfm(in, dst, dv)
	case ir.OpFEq, ir.OpFNeu, ir.OpFLt, ir.OpFGe,
		ir.OpIEq, ir.OpINe, ir.OpILt, ir.OpIGe, ir.OpULt, ir.OpUGe:
		ctx.visitCompare(in, dst)
	case ir.OpBcsel:
		ctx.visitBcsel(in, dst)
	case ir.OpFDdx, ir.OpFDdy, ir.OpFDdxFine, ir.OpFDdyFine, ir.OpFDdxCoarse, ir.OpFDdyCoarse:
		ctx.visitDerivative(in, dst)
	default:
		if ctx.visitFloat(in, dst, dv) || ctx.visitConversion(in, dst, dv) {
			return
		}
		unsupported(in.Op, "%d-bit operation", dv.BitSize)
	}
}

func (ctx *selCtx) visitVec(in *ir.ALU, dst isa.Temp, dv ir.Value) {
	n := int(dv.Components)
	if dv.BitSize == 1 {
		if n != 1 {
			unsupported(in.Op, "boolean vectors")
		}
		ctx.moveBool(ctx.src(in, 0), dst)
		return
	}
	if n == 1 {
		ctx.move(ctx.src(in, 0), dst)
		return
	}
	elemRC := dst.RC.Element(n)
	elems := make([]isa.Temp, n)
	for c := range elems {
		var e isa.Temp
		if in.Op == ir.OpMov {
			e = ctx.srcComp(in.Srcs[0], c)
		} else {
			e = ctx.src(in, c)
		}
		elems[c] = ctx.convert(e, elemRC)
	}
	ctx.createVector(dst, elems...)
}

func (ctx *selCtx) visitLoadConst(in *ir.LoadConst) {
	v := ctx.fn.Value(in.Dest)
	dst := ctx.get(in.Dest)
	if v.BitSize == 1 {
		if v.Components != 1 {
			unsupported(opName("load_const"), "boolean vectors")
		}
		set := in.Values[0] != 0
		if dst.RC.IsMask() {
			ctx.bld.Sop1(ctx.lm(isa.OpSMovB32, isa.OpSMovB64), isa.Def(dst), ctx.laneMaskConst(set))
			return
		}
		var b uint32
		if set {
			b = 1
		}
		ctx.bld.Sop1(isa.OpSMovB32, isa.Def(dst), cnst(b))
		return
	}
	if dst.RC.IsUniform() && v.BitSize == 64 && v.Components == 1 {
		ctx.bld.Sop1(isa.OpSMovB64, isa.Def(dst), isa.OperandConst64(in.Values[0]))
		return
	}
	var dwords []uint32
	for _, x := range in.Values {
		dwords = append(dwords, uint32(x))
		if v.BitSize == 64 {
			dwords = append(dwords, uint32(x>>32))
		}
	}
	if len(dwords) == 1 {
		ctx.movConst(isa.Def(dst), dwords[0])
		return
	}
	elems := make([]isa.Temp, len(dwords))
	for i, d := range dwords {
		elems[i] = ctx.bld.Tmp(isa.NewRegClass(dst.RC.Kind, 1))
		ctx.movConst(isa.Def(elems[i]), d)
	}
	ctx.createVector(dst, elems...)
}

// movConst materializes a dword constant in the register file of dst.
func (ctx *selCtx) movConst(dst isa.Definition, v uint32) {
	if dst.Temp.RC.IsDivergent() {
		ctx.bld.Vop1(isa.OpVMovB32, dst, cnst(v))
		return
	}
	ctx.bld.Sop1(isa.OpSMovB32, dst, cnst(v))
}

func (ctx *selCtx) visitUndef(in *ir.Undef) {
	dst := ctx.get(in.Dest)
	ctx.bld.Copy(isa.Def(dst), isa.OperandUndef(dst.RC))
}

func (ctx *selCtx) visitBoolLogic(in *ir.ALU, dst isa.Temp) {
	if dst.RC.IsMask() {
		a := ctx.boolToVector(ctx.src(in, 0))
		if in.Op == ir.OpINot {
			ctx.bld.Sop2(ctx.lm(isa.OpSAndn2B32, isa.OpSAndn2B64), isa.Def(dst), ctx.exec(), op(a))
			return
		}
		b := ctx.boolToVector(ctx.src(in, 1))
		var opc isa.Opcode
		switch in.Op {
		case ir.OpIAnd:
			opc = ctx.lm(isa.OpSAndB32, isa.OpSAndB64)
		case ir.OpIOr:
			opc = ctx.lm(isa.OpSOrB32, isa.OpSOrB64)
		default:
			opc = ctx.lm(isa.OpSXorB32, isa.OpSXorB64)
		}
		ctx.bld.Sop2(opc, isa.Def(dst), op(a), op(b))
		return
	}
	a := ctx.boolToScalar(ctx.src(in, 0))
	if in.Op == ir.OpINot {
		ctx.bld.Sop2(isa.OpSXorB32, isa.Def(dst), op(a), cnst(1))
		return
	}
	b := ctx.boolToScalar(ctx.src(in, 1))
	opc := map[ir.ALUOp]isa.Opcode{ir.OpIAnd: isa.OpSAndB32, ir.OpIOr: isa.OpSOrB32, ir.OpIXor: isa.OpSXorB32}[in.Op]
	ctx.bld.Sop2(opc, isa.Def(dst), op(a), op(b))
}

// intBinary lists the scalar and vector forms of 32-bit integer operations
// selected one dword at a time.
var intBinary = map[ir.ALUOp]struct {
	salu, salu64 isa.Opcode
	valu, rev    isa.Opcode
}{
	ir.OpIAnd: {isa.OpSAndB32, isa.OpSAndB64, isa.OpVAndB32, isa.OpVAndB32},
	ir.OpIOr:  {isa.OpSOrB32, isa.OpSOrB64, isa.OpVOrB32, isa.OpVOrB32},
	ir.OpIXor: {isa.OpSXorB32, isa.OpSXorB64, isa.OpVXorB32, isa.OpVXorB32},
	ir.OpIMin: {isa.OpSMinI32, isa.OpInvalid, isa.OpVMinI32, isa.OpVMinI32},
	ir.OpIMax: {isa.OpSMaxI32, isa.OpInvalid, isa.OpVMaxI32, isa.OpVMaxI32},
	ir.OpUMin: {isa.OpSMinU32, isa.OpInvalid, isa.OpVMinU32, isa.OpVMinU32},
	ir.OpUMax: {isa.OpSMaxU32, isa.OpInvalid, isa.OpVMaxU32, isa.OpVMaxU32},
}

func (ctx *selCtx) visitIntLogic(in *ir.ALU, dst isa.Temp, dv ir.Value) {
	if in.Op == ir.OpINot {
		src := ctx.src(in, 0)
		switch {
		case dst.RC.IsUniform() && dv.BitSize == 64:
			ctx.bld.Sop1(isa.OpSNotB64, isa.Def(dst), op(src))
		case dst.RC.IsUniform():
			ctx.bld.Sop1(isa.OpSNotB32, isa.Def(dst), op(src))
		case dv.BitSize == 64:
			lo, hi := ctx.halves(src)
			rlo, rhi := ctx.bld.Tmp(isa.V1), ctx.bld.Tmp(isa.V1)
			ctx.bld.Vop1(isa.OpVNotB32, isa.Def(rlo), op(lo))
			ctx.bld.Vop1(isa.OpVNotB32, isa.Def(rhi), op(hi))
			ctx.createVector(dst, rlo, rhi)
		default:
			ctx.bld.Vop1(isa.OpVNotB32, isa.Def(dst), op(src))
		}
		return
	}
	ctx.emitIntBinary(in, dst, dv)
}

func (ctx *selCtx) emitIntBinary(in *ir.ALU, dst isa.Temp, dv ir.Value) {
	forms := intBinary[in.Op]
	a, b := ctx.src(in, 0), ctx.src(in, 1)
	if dv.BitSize == 64 && forms.salu64 == isa.OpInvalid {
		unsupported(in.Op, "64-bit operation")
	}
	if dst.RC.IsUniform() {
		opc := forms.salu
		if dv.BitSize == 64 {
			opc = forms.salu64
		}
		ctx.bld.Sop2(opc, isa.Def(dst), op(a), op(b))
		return
	}
	if dv.BitSize == 64 {
		alo, ahi := ctx.halves(a)
		blo, bhi := ctx.halves(b)
		lo, hi := ctx.bld.Tmp(isa.V1), ctx.bld.Tmp(isa.V1)
		ctx.vop2(forms.valu, forms.rev, isa.Def(lo), op(alo), op(blo))
		ctx.vop2(forms.valu, forms.rev, isa.Def(hi), op(ahi), op(bhi))
		ctx.createVector(dst, lo, hi)
		return
	}
	ctx.vop2(forms.valu, forms.rev, isa.Def(dst), op(a), op(b))
}

func (ctx *selCtx) visitIntMinMax(in *ir.ALU, dst isa.Temp, dv ir.Value) {
	if dv.BitSize != 32 {
		unsupported(in.Op, "%d-bit operation", dv.BitSize)
	}
	ctx.emitIntBinary(in, dst, dv)
}

// add32 emits a 32-bit add or subtract in the register file of dst.
func (ctx *selCtx) add32(dst isa.Definition, a, b isa.Operand, sub bool) {
	if dst.Temp.RC.IsUniform() {
		opc := isa.OpSAddU32
		if sub {
			opc = isa.OpSSubU32
		}
		ctx.bld.Sop2(opc, dst, a, b)
		return
	}
	switch {
	case !sub && ctx.target.HasNoCarryAdd:
		ctx.vop2(isa.OpVAddU32, isa.OpVAddU32, dst, a, b)
	case !sub:
		ctx.vop2(isa.OpVAddCoU32, isa.OpVAddCoU32, dst, a, b)
	case ctx.target.HasNoCarryAdd:
		ctx.vop2(isa.OpVSubU32, isa.OpVSubrevU32, dst, a, b)
	default:
		ctx.vop2(isa.OpVSubCoU32, isa.OpVSubrevCoU32, dst, a, b)
	}
}

func (ctx *selCtx) visitAddSub(in *ir.ALU, dst isa.Temp, dv ir.Value) {
	sub := in.Op == ir.OpISub
	a, b := ctx.src(in, 0), ctx.src(in, 1)
	if dv.BitSize == 64 {
		alo, ahi := ctx.halves(a)
		blo, bhi := ctx.halves(b)
		ctx.addSub64(dst, op(alo), op(ahi), op(blo), op(bhi), sub)
		return
	}
	ctx.add32(isa.Def(dst), op(a), op(b), sub)
}

func (ctx *selCtx) visitINeg(in *ir.ALU, dst isa.Temp, dv ir.Value) {
	src := ctx.src(in, 0)
	if dv.BitSize == 64 {
		lo, hi := ctx.halves(src)
		ctx.addSub64(dst, cnst(0), cnst(0), op(lo), op(hi), true)
		return
	}
	if dst.RC.IsUniform() {
		ctx.bld.Sop2(isa.OpSSubI32, isa.Def(dst), cnst(0), op(src))
		return
	}
	ctx.add32(isa.Def(dst), cnst(0), op(src), true)
}

// addSub64 emits a 64-bit add or subtract as a low half producing a carry
// and a high half consuming it.
func (ctx *selCtx) addSub64(dst isa.Temp, alo, ahi, blo, bhi isa.Operand, sub bool) {
	if dst.RC.IsUniform() {
		first, second := isa.OpSAddU32, isa.OpSAddcU32
		if sub {
			first, second = isa.OpSSubU32, isa.OpSSubbU32
		}
		lo, hi := ctx.bld.Tmp(isa.S1), ctx.bld.Tmp(isa.S1)
		carry := ctx.bld.Sop2(first, isa.Def(lo), alo, blo).Def(1)
		ctx.bld.Sop2(second, isa.Def(hi), ahi, bhi, scc(carry))
		ctx.createVector(dst, lo, hi)
		return
	}
	lo, hi := ctx.bld.Tmp(isa.V1), ctx.bld.Tmp(isa.V1)
	var carry isa.Temp
	if sub {
		carry = ctx.vop2(isa.OpVSubCoU32, isa.OpVSubrevCoU32, isa.Def(lo), alo, blo).Def(1)
		ctx.vop2(isa.OpVSubbCoU32, isa.OpInvalid, isa.Def(hi), ahi, bhi, op(carry))
	} else {
		carry = ctx.vop2(isa.OpVAddCoU32, isa.OpVAddCoU32, isa.Def(lo), alo, blo).Def(1)
		ctx.vop2(isa.OpVAddcCoU32, isa.OpVAddcCoU32, isa.Def(hi), ahi, bhi, op(carry))
	}
	ctx.createVector(dst, lo, hi)
}

func (ctx *selCtx) visitCarry(in *ir.ALU, dst isa.Temp) {
	if ctx.srcBits(in, 0) != 32 {
		unsupported(in.Op, "%d-bit operation", ctx.srcBits(in, 0))
	}
	a, b := ctx.src(in, 0), ctx.src(in, 1)
	sub := in.Op == ir.OpUSubBorrow
	if dst.RC.IsUniform() {
		opc := isa.OpSAddU32
		if sub {
			opc = isa.OpSSubU32
		}
		carry := ctx.bld.Sop2(opc, ctx.bld.Def(isa.S1), op(a), op(b)).Def(1)
		ctx.bld.Sop2(isa.OpSCselectB32, isa.Def(dst), cnst(1), cnst(0), scc(carry))
		return
	}
	opc, rev := isa.OpVAddCoU32, isa.OpVAddCoU32
	if sub {
		opc, rev = isa.OpVSubCoU32, isa.OpVSubrevCoU32
	}
	carry := ctx.vop2(opc, rev, ctx.bld.Def(isa.V1), op(a), op(b)).Def(1)
	ctx.cndmask(isa.Def(dst), cnst(0), cnst(1), carry)
}

func (ctx *selCtx) visitMul(in *ir.ALU, dst isa.Temp, dv ir.Value) {
	if dv.BitSize != 32 {
		unsupported(in.Op, "%d-bit operation", dv.BitSize)
	}
	a, b := ctx.src(in, 0), ctx.src(in, 1)
	if dst.RC.IsUniform() {
		opc := isa.OpSMulI32
		switch in.Op {
		case ir.OpIMulHigh:
			opc = isa.OpSMulHiI32
		case ir.OpUMulHigh:
			opc = isa.OpSMulHiU32
		}
		ctx.bld.Sop2(opc, isa.Def(dst), op(a), op(b))
		return
	}
	opc := isa.OpVMulLoU32
	switch in.Op {
	case ir.OpIMulHigh:
		opc = isa.OpVMulHiI32
	case ir.OpUMulHigh:
		opc = isa.OpVMulHiU32
	}
	ctx.bld.Vop3(opc, isa.Def(dst), op(a), op(b))
}

func (ctx *selCtx) visitShift(in *ir.ALU, dst isa.Temp, dv ir.Value) {
	value, amount := ctx.src(in, 0), ctx.src(in, 1)
	if ctx.srcBits(in, 1) != 32 {
		unsupported(in.Op, "%d-bit shift amount", ctx.srcBits(in, 1))
	}
	type forms struct{ s32, s64, v32, v64rev, v64 isa.Opcode }
	f := map[ir.ALUOp]forms{
		ir.OpIShl: {isa.OpSLshlB32, isa.OpSLshlB64, isa.OpVLshlrevB32, isa.OpVLshlrevB64, isa.OpVLshlB64},
		ir.OpIShr: {isa.OpSAshrI32, isa.OpSAshrI64, isa.OpVAshrrevI32, isa.OpVAshrrevI64, isa.OpVAshrI64},
		ir.OpUShr: {isa.OpSLshrB32, isa.OpSLshrB64, isa.OpVLshrrevB32, isa.OpVLshrrevB64, isa.OpVLshrB64},
	}[in.Op]
	switch {
	case dst.RC.IsUniform() && dv.BitSize == 64:
		ctx.bld.Sop2(f.s64, isa.Def(dst), op(value), op(amount))
	case dst.RC.IsUniform():
		ctx.bld.Sop2(f.s32, isa.Def(dst), op(value), op(amount))
	case dv.BitSize == 64 && ctx.target.HasShiftRev64:
		ctx.bld.Vop3(f.v64rev, isa.Def(dst), op(amount), op(value))
	case dv.BitSize == 64:
		ctx.bld.Vop3(f.v64, isa.Def(dst), op(value), op(amount))
	default:
		ctx.vop2(f.v32, isa.OpInvalid, isa.Def(dst), op(amount), op(value))
	}
}

func (ctx *selCtx) visitIntMinMax3(in *ir.ALU, dst isa.Temp, dv ir.Value) {
	if dv.BitSize != 32 {
		unsupported(in.Op, "%d-bit operation", dv.BitSize)
	}
	a, b, c := ctx.src(in, 0), ctx.src(in, 1), ctx.src(in, 2)
	signed := in.Op == ir.OpIMin3 || in.Op == ir.OpIMax3 || in.Op == ir.OpIMed3
	if dst.RC.IsDivergent() {
		opc := map[ir.ALUOp]isa.Opcode{
			ir.OpIMin3: isa.OpVMin3I32, ir.OpIMax3: isa.OpVMax3I32, ir.OpIMed3: isa.OpVMed3I32,
			ir.OpUMin3: isa.OpVMin3U32, ir.OpUMax3: isa.OpVMax3U32, ir.OpUMed3: isa.OpVMed3U32,
		}[in.Op]
		ctx.bld.Vop3(opc, isa.Def(dst), op(a), op(b), op(c))
		return
	}
	minOp, maxOp := isa.OpSMinU32, isa.OpSMaxU32
	if signed {
		minOp, maxOp = isa.OpSMinI32, isa.OpSMaxI32
	}
	switch in.Op {
	case ir.OpIMin3, ir.OpUMin3:
		t := ctx.bld.Sop2(minOp, ctx.bld.Def(isa.S1), op(a), op(b)).Def(0)
		ctx.bld.Sop2(minOp, isa.Def(dst), op(t), op(c))
	case ir.OpIMax3, ir.OpUMax3:
		t := ctx.bld.Sop2(maxOp, ctx.bld.Def(isa.S1), op(a), op(b)).Def(0)
		ctx.bld.Sop2(maxOp, isa.Def(dst), op(t), op(c))
	default:
		// med3(a, b, c) = max(min(a, b), min(max(a, b), c))
		lo := ctx.bld.Sop2(minOp, ctx.bld.Def(isa.S1), op(a), op(b)).Def(0)
		hi := ctx.bld.Sop2(maxOp, ctx.bld.Def(isa.S1), op(a), op(b)).Def(0)
		hi = ctx.bld.Sop2(minOp, ctx.bld.Def(isa.S1), op(hi), op(c)).Def(0)
		ctx.bld.Sop2(maxOp, isa.Def(dst), op(lo), op(hi))
	}
}

func (ctx *selCtx) visitIntSign(in *ir.ALU, dst isa.Temp, dv ir.Value) {
	if dv.BitSize != 32 {
		unsupported(in.Op, "%d-bit operation", dv.BitSize)
	}
	src := ctx.src(in, 0)
	if in.Op == ir.OpIAbs {
		if dst.RC.IsUniform() {
			ctx.bld.Sop1(isa.OpSAbsI32, isa.Def(dst), op(src))
			return
		}
		neg := ctx.bld.Tmp(isa.V1)
		ctx.add32(isa.Def(neg), cnst(0), op(src), true)
		ctx.vop2(isa.OpVMaxI32, isa.OpVMaxI32, isa.Def(dst), op(src), op(neg))
		return
	}
	if dst.RC.IsUniform() {
		t := ctx.bld.Sop2(isa.OpSMaxI32, ctx.bld.Def(isa.S1), op(src), cnst(^uint32(0))).Def(0)
		ctx.bld.Sop2(isa.OpSMinI32, isa.Def(dst), op(t), cnst(1))
		return
	}
	ctx.bld.Vop3(isa.OpVMed3I32, isa.Def(dst), cnst(^uint32(0)), op(src), cnst(1))
}

func (ctx *selCtx) visitBitScan(in *ir.ALU, dst isa.Temp) {
	bits := ctx.srcBits(in, 0)
	src := ctx.src(in, 0)
	uniform := dst.RC.IsUniform()
	if bits == 64 && in.Op != ir.OpBitCount {
		unsupported(in.Op, "64-bit operation")
	}
	switch in.Op {
	case ir.OpBitfieldReverse:
		if uniform {
			ctx.bld.Sop1(isa.OpSBrevB32, isa.Def(dst), op(src))
		} else {
			ctx.bld.Vop1(isa.OpVBfrevB32, isa.Def(dst), op(src))
		}
	case ir.OpBitCount:
		switch {
		case uniform && bits == 64:
			ctx.bld.Sop1(isa.OpSBcnt1I32B64, isa.Def(dst), op(src))
		case uniform:
			ctx.bld.Sop1(isa.OpSBcnt1I32B32, isa.Def(dst), op(src))
		case bits == 64:
			lo, hi := ctx.halves(src)
			t := ctx.bld.Vop3(isa.OpVBcntU32B32, ctx.bld.Def(isa.V1), op(lo), cnst(0)).Def(0)
			ctx.bld.Vop3(isa.OpVBcntU32B32, isa.Def(dst), op(hi), op(t))
		default:
			ctx.bld.Vop3(isa.OpVBcntU32B32, isa.Def(dst), op(src), cnst(0))
		}
	case ir.OpFindLSB:
		if uniform {
			ctx.bld.Sop1(isa.OpSFf1I32B32, isa.Def(dst), op(src))
		} else {
			ctx.bld.Vop1(isa.OpVFfblB32, isa.Def(dst), op(src))
		}
	default:
		signed := in.Op == ir.OpIFindMSB
		// The hardware counts from the most significant bit and returns -1
		// when no bit is found; 31 - rev is the bit index.
		if uniform {
			opc := isa.OpSFlbitI32B32
			if signed {
				opc = isa.OpSFlbitI32
			}
			rev := ctx.bld.Sop1(opc, ctx.bld.Def(isa.S1), op(src)).Def(0)
			sub := ctx.bld.Sop2(isa.OpSSubU32, ctx.bld.Def(isa.S1), cnst(31), op(rev))
			ctx.bld.Sop2(isa.OpSCselectB32, isa.Def(dst), cnst(^uint32(0)), op(sub.Def(0)), scc(sub.Def(1)))
			return
		}
		opc := isa.OpVFfbhU32
		if signed {
			opc = isa.OpVFfbhI32
		}
		rev := ctx.bld.Vop1(opc, ctx.bld.Def(isa.V1), op(src)).Def(0)
		sub := ctx.bld.Vop2E(isa.OpVSubCoU32, ctx.bld.Def(isa.V1), cnst(31), op(rev))
		ctx.bld.Vop2E(isa.OpVCndmaskB32, isa.Def(dst), op(sub.Def(0)), cnst(^uint32(0)), op(sub.Def(1)))
	}
}

func (ctx *selCtx) visitBfe(in *ir.ALU, dst isa.Temp, dv ir.Value) {
	if dv.BitSize != 32 {
		unsupported(in.Op, "%d-bit operation", dv.BitSize)
	}
	base := ctx.src(in, 0)
	if dst.RC.IsDivergent() {
		opc := isa.OpVBfeU32
		if in.Op == ir.OpIBfe {
			opc = isa.OpVBfeI32
		}
		ctx.bld.Vop3(opc, isa.Def(dst), op(base), op(ctx.src(in, 1)), op(ctx.src(in, 2)))
		return
	}
	// s_bfe takes the offset in bits [4:0] and the width in bits [22:16] of
	// its second operand.
	var extract isa.Operand
	off, offConst := ctx.constValue(in.Srcs[1].Value, int(in.Srcs[1].Swizzle[0]))
	bits, bitsConst := ctx.constValue(in.Srcs[2].Value, int(in.Srcs[2].Swizzle[0]))
	if offConst && bitsConst {
		extract = cnst(uint32(bits)<<16 | uint32(off)&0x1f)
	} else {
		width := ctx.bld.Sop2(isa.OpSLshlB32, ctx.bld.Def(isa.S1), op(ctx.src(in, 2)), cnst(16)).Def(0)
		extract = op(ctx.bld.Sop2(isa.OpSOrB32, ctx.bld.Def(isa.S1), op(width), op(ctx.src(in, 1))).Def(0))
	}
	opc := isa.OpSBfeU32
	if in.Op == ir.OpIBfe {
		opc = isa.OpSBfeI32
	}
	ctx.bld.Sop2(opc, isa.Def(dst), op(base), extract)
}

func (ctx *selCtx) visitBfm(in *ir.ALU, dst isa.Temp, dv ir.Value) {
	if dv.BitSize != 32 {
		unsupported(in.Op, "%d-bit operation", dv.BitSize)
	}
	bits, offset := ctx.src(in, 0), ctx.src(in, 1)
	if dst.RC.IsUniform() {
		ctx.bld.Sop2(isa.OpSBfmB32, isa.Def(dst), op(bits), op(offset))
		return
	}
	ctx.bld.Vop3(isa.OpVBfmB32, isa.Def(dst), op(bits), op(offset))
}

// visitBitfieldInsert selects insert(base, insert, offset, bits).
func (ctx *selCtx) visitBitfieldInsert(in *ir.ALU, dst isa.Temp, dv ir.Value) {
	if dv.BitSize != 32 {
		unsupported(in.Op, "%d-bit operation", dv.BitSize)
	}
	base, insert := ctx.src(in, 0), ctx.src(in, 1)
	offset, bits := ctx.src(in, 2), ctx.src(in, 3)
	if dst.RC.IsDivergent() {
		mask := ctx.bld.Vop3(isa.OpVBfmB32, ctx.bld.Def(isa.V1), op(bits), op(offset)).Def(0)
		shifted := ctx.vop2(isa.OpVLshlrevB32, isa.OpInvalid, ctx.bld.Def(isa.V1), op(offset), op(insert)).Def(0)
		ctx.bld.Vop3(isa.OpVBfiB32, isa.Def(dst), op(mask), op(shifted), op(base))
		return
	}
	mask := ctx.bld.Sop2(isa.OpSBfmB32, ctx.bld.Def(isa.S1), op(bits), op(offset)).Def(0)
	shifted := ctx.bld.Sop2(isa.OpSLshlB32, ctx.bld.Def(isa.S1), op(insert), op(offset)).Def(0)
	in1 := ctx.bld.Sop2(isa.OpSAndB32, ctx.bld.Def(isa.S1), op(shifted), op(mask)).Def(0)
	kept := ctx.bld.Sop2(isa.OpSAndn2B32, ctx.bld.Def(isa.S1), op(base), op(mask)).Def(0)
	ctx.bld.Sop2(isa.OpSOrB32, isa.Def(dst), op(in1), op(kept))
}

type compareForms struct {
	v32, v64 isa.Opcode
	// s32 and s64 are isa.OpInvalid when there is no scalar compare.
	s32, s64 isa.Opcode
}

var compareOps = map[ir.ALUOp]compareForms{
	ir.OpFEq: {isa.OpVCmpEqF32, isa.OpVCmpEqF64, isa.OpInvalid, isa.OpInvalid},
	ir.OpFNeu: {isa.OpVCmpNeqF32, isa.OpVCmpNeqF64, isa.OpInvalid, isa.OpInvalid},
	ir.OpFLt: {isa.OpVCmpLtF32, isa.OpVCmpLtF64, isa.OpInvalid, isa.OpInvalid},
	ir.OpFGe: {isa.OpVCmpGeF32, isa.OpVCmpGeF64, isa.OpInvalid, isa.OpInvalid},
	ir.OpIEq: {isa.OpVCmpEqI32, isa.OpVCmpEqI64, isa.OpSCmpEqI32, isa.OpSCmpEqU64},
	ir.OpINe: {isa.OpVCmpNeI32, isa.OpVCmpNeI64, isa.OpSCmpLgI32, isa.OpSCmpLgU64},
	ir.OpILt: {isa.OpVCmpLtI32, isa.OpVCmpLtI64, isa.OpSCmpLtI32, isa.OpInvalid},
	ir.OpIGe: {isa.OpVCmpGeI32, isa.OpVCmpGeI64, isa.OpSCmpGeI32, isa.OpInvalid},
	ir.OpULt: {isa.OpVCmpLtU32, isa.OpVCmpLtU64, isa.OpSCmpLtU32, isa.OpInvalid},
	ir.OpUGe: {isa.OpVCmpGeU32, isa.OpVCmpGeU64, isa.OpSCmpGeU32, isa.OpInvalid},
}

// swappedCompare maps each vector compare to the compare computing the same
// result with its operands exchanged.
var swappedCompare = func() map[isa.Opcode]isa.Opcode {
	pairs := [][2]isa.Opcode{
		{isa.OpVCmpLtF32, isa.OpVCmpGtF32}, {isa.OpVCmpLeF32, isa.OpVCmpGeF32},
		{isa.OpVCmpLtF64, isa.OpVCmpGtF64}, {isa.OpVCmpLeF64, isa.OpVCmpGeF64},
		{isa.OpVCmpLtI32, isa.OpVCmpGtI32}, {isa.OpVCmpLeI32, isa.OpVCmpGeI32},
		{isa.OpVCmpLtU32, isa.OpVCmpGtU32}, {isa.OpVCmpLeU32, isa.OpVCmpGeU32},
		{isa.OpVCmpLtI64, isa.OpVCmpGtI64}, {isa.OpVCmpLeI64, isa.OpVCmpGeI64},
		{isa.OpVCmpLtU64, isa.OpVCmpGtU64}, {isa.OpVCmpLeU64, isa.OpVCmpGeU64},
	}
	m := make(map[isa.Opcode]isa.Opcode, 2*len(pairs))
	for _, p := range pairs {
		m[p[0]] = p[1]
		m[p[1]] = p[0]
	}
	return m
}()

// swapCompare returns the compare equivalent to opc with swapped operands.
// Symmetric compares map to themselves.
func swapCompare(opc isa.Opcode) isa.Opcode {
	if s, ok := swappedCompare[opc]; ok {
		return s
	}
	return opc
}

// vopc emits a vector compare. The second operand must be a vector
// register, so a lone vector operand in the first slot is moved to the
// second under the swapped compare.
func (ctx *selCtx) vopc(opc isa.Opcode, dst isa.Definition, a, b isa.Operand) *isa.Instruction {
	if !isVGPR(b) {
		if isVGPR(a) {
			a, b = b, a
			opc = swapCompare(opc)
		} else {
			b = ctx.vgprOperand(b)
		}
	}
	return ctx.bld.Vopc(opc, dst, a, b)
}

func (ctx *selCtx) visitCompare(in *ir.ALU, dst isa.Temp) {
	forms := compareOps[in.Op]
	a, b := ctx.src(in, 0), ctx.src(in, 1)
	wide := ctx.srcBits(in, 0) == 64
	if dst.RC.IsUniform() && a.RC.IsUniform() && b.RC.IsUniform() {
		s := forms.s32
		if wide {
			s = isa.OpInvalid
			if ctx.target.HasS64Compare {
				s = forms.s64
			}
		}
		if s != isa.OpInvalid {
			ctx.bld.Build(s, []isa.Definition{{Temp: dst, Fixed: isa.RegSCC}}, op(a), op(b))
			return
		}
	}
	v := forms.v32
	if wide {
		v = forms.v64
	}
	if dst.RC.IsMask() {
		ctx.vopc(v, isa.Def(dst), op(a), op(b))
		return
	}
	mask := ctx.bld.Tmp(ctx.program.LaneMask)
	ctx.vopc(v, isa.Def(mask), op(a), op(b))
	ctx.boolToScalarInto(mask, dst)
}

// visitBcsel selects one of four strategies from the classes of the
// condition and the destination.
func (ctx *selCtx) visitBcsel(in *ir.ALU, dst isa.Temp) {
	cond := ctx.src(in, 0)
	then, els := ctx.src(in, 1), ctx.src(in, 2)
	switch {
	case dst.RC.IsDivergent():
		c := ctx.boolToVector(cond)
		if dst.RC.Size == 1 {
			ctx.cndmask(isa.Def(dst), op(els), ctx.vgprOperand(op(then)), c)
			return
		}
		n := int(dst.RC.Size)
		t, e := ctx.elements(then, n), ctx.elements(els, n)
		parts := make([]isa.Temp, n)
		for i := range parts {
			parts[i] = ctx.bld.Tmp(isa.V1)
			ctx.cndmask(isa.Def(parts[i]), op(e[i]), ctx.vgprOperand(op(t[i])), c)
		}
		ctx.createVector(dst, parts...)
	case dst.RC.IsMask() && cond.RC.IsMask():
		t, e := ctx.boolToVector(then), ctx.boolToVector(els)
		taken := ctx.bld.Sop2(ctx.lm(isa.OpSAndB32, isa.OpSAndB64), ctx.bld.Def(ctx.program.LaneMask), op(cond), op(t)).Def(0)
		other := ctx.bld.Sop2(ctx.lm(isa.OpSAndn2B32, isa.OpSAndn2B64), ctx.bld.Def(ctx.program.LaneMask), op(e), op(cond)).Def(0)
		ctx.bld.Sop2(ctx.lm(isa.OpSOrB32, isa.OpSOrB64), isa.Def(dst), op(taken), op(other))
	case dst.RC.IsMask():
		t, e := ctx.boolToVector(then), ctx.boolToVector(els)
		ctx.bld.Sop2(ctx.lm(isa.OpSCselectB32, isa.OpSCselectB64), isa.Def(dst), op(t), op(e), scc(cond))
	default:
		if cond.RC.IsMask() {
			invariant(in.Op, "uniform result selected by divergent condition %v", cond)
		}
		if dst.RC.Size == 1 && then.RC.IsMask() {
			invariant(in.Op, "uniform boolean selected from lane mask %v", then)
		}
		opc := isa.OpSCselectB32
		if dst.RC.Size == 2 {
			opc = isa.OpSCselectB64
		}
		ctx.bld.Sop2(opc, isa.Def(dst), op(then), op(els), scc(cond))
	}
}
