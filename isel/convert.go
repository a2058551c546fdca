package isel

import (
	"github.com/gogpu/wavesel/ir"
	"github.com/gogpu/wavesel/isa"
)

// visitConversion selects conversions between integers, floats and
// booleans. It reports false for operations it does not handle.
func (ctx *selCtx) visitConversion(in *ir.ALU, dst isa.Temp, dv ir.Value) bool {
	from := ctx.srcBits(in, 0)
	src := ctx.src(in, 0)
	switch in.Op {
	case ir.OpF2F16, ir.OpF2F32, ir.OpF2F64:
		ctx.emitFloatResize(in.Op, dst, src, from, dv.BitSize)
	case ir.OpI2F32, ir.OpU2F32, ir.OpI2F64, ir.OpU2F64:
		ctx.emitIntToFloat(in.Op, dst, src, from, dv.BitSize)
	case ir.OpF2I32, ir.OpF2U32:
		f := ctx.floatToF32OrF64(src, from)
		signed := in.Op == ir.OpF2I32
		var opc isa.Opcode
		switch {
		case f.RC.Size == 2 && signed:
			opc = isa.OpVCvtI32F64
		case f.RC.Size == 2:
			opc = isa.OpVCvtU32F64
		case signed:
			opc = isa.OpVCvtI32F32
		default:
			opc = isa.OpVCvtU32F32
		}
		ctx.bld.Vop1(opc, isa.Def(dst), op(f))
	case ir.OpF2I64, ir.OpF2U64:
		ctx.emitFloatToInt64(in.Op, dst, src, from)
	case ir.OpI2I, ir.OpU2U:
		ctx.emitIntResize(dst, src, from, dv.BitSize, in.Op == ir.OpI2I)
	case ir.OpB2F32, ir.OpB2F64, ir.OpB2I32, ir.OpB2I64:
		ctx.emitBoolToNumber(in.Op, dst, src)
	case ir.OpF2B:
		zero := cnst(0)
		opc := isa.OpVCmpNeqF32
		if from == 64 {
			zero, opc = isa.OperandConst64(0), isa.OpVCmpNeqF64
		}
		ctx.compareIntoBool(opc, dst, zero, op(src))
	case ir.OpI2B:
		ctx.emitIntToBool(dst, src, from)
	default:
		return false
	}
	return true
}

// compareIntoBool emits a vector compare whose result is stored in the
// boolean dst, reducing it to a uniform boolean when dst is uniform.
func (ctx *selCtx) compareIntoBool(opc isa.Opcode, dst isa.Temp, a, b isa.Operand) {
	if dst.RC.IsMask() {
		ctx.vopc(opc, isa.Def(dst), a, b)
		return
	}
	mask := ctx.vopc(opc, ctx.bld.Def(ctx.program.LaneMask), a, b).Def(0)
	ctx.boolToScalarInto(mask, dst)
}

// floatToF32OrF64 widens a half-precision value to 32 bits.
func (ctx *selCtx) floatToF32OrF64(src isa.Temp, bits uint8) isa.Temp {
	if bits != 16 {
		return src
	}
	return ctx.bld.Vop1(isa.OpVCvtF32F16, ctx.bld.Def(isa.V1), op(src)).Def(0)
}

func (ctx *selCtx) emitFloatResize(aluOp ir.ALUOp, dst, src isa.Temp, from, to uint8) {
	switch {
	case from == to:
		ctx.move(src, dst)
	case to == 16:
		if from == 64 {
			src = ctx.bld.Vop1(isa.OpVCvtF32F64, ctx.bld.Def(isa.V1), op(src)).Def(0)
		}
		ctx.bld.Vop1(isa.OpVCvtF16F32, isa.Def(dst), op(src))
	case to == 32 && from == 16:
		ctx.bld.Vop1(isa.OpVCvtF32F16, isa.Def(dst), op(src))
	case to == 32:
		ctx.bld.Vop1(isa.OpVCvtF32F64, isa.Def(dst), op(src))
	case to == 64:
		src = ctx.floatToF32OrF64(src, from)
		ctx.bld.Vop1(isa.OpVCvtF64F32, isa.Def(dst), op(src))
	default:
		unsupported(aluOp, "%d-bit to %d-bit", from, to)
	}
}

func (ctx *selCtx) emitIntToFloat(aluOp ir.ALUOp, dst, src isa.Temp, from, to uint8) {
	signed := aluOp == ir.OpI2F32 || aluOp == ir.OpI2F64
	if from == 64 {
		if to == 64 {
			ctx.int64ToF64(isa.Def(dst), src, signed)
			return
		}
		ctx.int64ToF32(isa.Def(dst), src, signed)
		return
	}
	src = ctx.extend(src, from, signed)
	var opc isa.Opcode
	switch {
	case to == 64 && signed:
		opc = isa.OpVCvtF64I32
	case to == 64:
		opc = isa.OpVCvtF64U32
	case signed:
		opc = isa.OpVCvtF32I32
	default:
		opc = isa.OpVCvtF32U32
	}
	ctx.bld.Vop1(opc, isa.Def(dst), op(src))
}

// int64ToF64 converts each half exactly and combines them as
// hi * 2^32 + lo.
func (ctx *selCtx) int64ToF64(dst isa.Definition, src isa.Temp, signed bool) {
	lo, hi := ctx.halves(src)
	flo := ctx.bld.Vop1(isa.OpVCvtF64U32, ctx.bld.Def(isa.V2), op(lo)).Def(0)
	hiOp := isa.OpVCvtF64U32
	if signed {
		hiOp = isa.OpVCvtF64I32
	}
	fhi := ctx.bld.Vop1(hiOp, ctx.bld.Def(isa.V2), op(hi)).Def(0)
	fhi = ctx.bld.Vop3(isa.OpVLdexpF64, ctx.bld.Def(isa.V2), op(fhi), cnst(32)).Def(0)
	ctx.bld.Vop3(isa.OpVAddF64, dst, op(flo), op(fhi))
}

// int64ToF32 converts the magnitude shifted so that its top bit is set.
// The low dword only decides rounding, so it is folded into bit 0 of the
// high dword, which is converted once and scaled back with ldexp.
func (ctx *selCtx) int64ToF32(dst isa.Definition, src isa.Temp, signed bool) {
	v1 := func() isa.Definition { return ctx.bld.Def(isa.V1) }
	lo, hi := ctx.halves(ctx.asVGPR(src))

	var sign isa.Temp
	if signed {
		sign = ctx.vop2(isa.OpVAshrrevI32, isa.OpInvalid, v1(), cnst(31), op(hi)).Def(0)
		lo = ctx.vop2(isa.OpVXorB32, isa.OpVXorB32, v1(), op(sign), op(lo)).Def(0)
		hi = ctx.vop2(isa.OpVXorB32, isa.OpVXorB32, v1(), op(sign), op(hi)).Def(0)
		abs := ctx.bld.Tmp(isa.V1)
		borrow := ctx.vop2(isa.OpVSubCoU32, isa.OpVSubrevCoU32, isa.Def(abs), op(lo), op(sign)).Def(1)
		hi = ctx.vop2(isa.OpVSubbCoU32, isa.OpInvalid, v1(), op(hi), op(sign), op(borrow)).Def(0)
		lo = abs
	}

	clz := ctx.bld.Vop1(isa.OpVFfbhU32, v1(), op(hi)).Def(0)
	clz = ctx.vop2(isa.OpVMinU32, isa.OpVMinU32, v1(), cnst(32), op(clz)).Def(0)
	wide := ctx.bld.Tmp(isa.V2)
	ctx.createVector(wide, lo, hi)
	nlo, nhi := ctx.halves(ctx.shiftLeft64(wide, clz))
	sticky := ctx.vop2(isa.OpVMinU32, isa.OpVMinU32, v1(), cnst(1), op(nlo)).Def(0)
	nhi = ctx.vop2(isa.OpVOrB32, isa.OpVOrB32, v1(), op(sticky), op(nhi)).Def(0)
	f := ctx.bld.Vop1(isa.OpVCvtF32U32, v1(), op(nhi)).Def(0)
	scale := ctx.bld.Tmp(isa.V1)
	ctx.add32(isa.Def(scale), cnst(32), op(clz), true)
	if !signed {
		ctx.bld.Vop3(isa.OpVLdexpF32, dst, op(f), op(scale))
		return
	}
	f = ctx.bld.Vop3(isa.OpVLdexpF32, v1(), op(f), op(scale)).Def(0)
	ctx.bld.Vop3(isa.OpVBfiB32, dst, ctx.vop3Const(0x7fffffff), op(f), op(sign))
}

// sconst64 materializes a 64-bit constant in scalar registers.
func (ctx *selCtx) sconst64(v uint64) isa.Temp {
	return ctx.bld.Sop1(isa.OpSMovB64, ctx.bld.Def(isa.S2), isa.OperandConst64(v)).Def(0)
}

func (ctx *selCtx) emitFloatToInt64(aluOp ir.ALUOp, dst, src isa.Temp, from uint8) {
	signed := aluOp == ir.OpF2I64
	if from == 64 {
		ctx.f64ToInt64(dst, src, signed)
		return
	}
	src = ctx.floatToF32OrF64(src, from)
	if signed {
		ctx.f32ToI64(dst, src)
	} else {
		ctx.f32ToU64(dst, src)
	}
}

// shiftRight64 emits a 64-bit logical right shift of a vector value.
func (ctx *selCtx) shiftRight64(value, amount isa.Temp) isa.Temp {
	if ctx.target.HasShiftRev64 {
		return ctx.bld.Vop3(isa.OpVLshrrevB64, ctx.bld.Def(isa.V2), op(amount), op(value)).Def(0)
	}
	return ctx.bld.Vop3(isa.OpVLshrB64, ctx.bld.Def(isa.V2), op(value), op(amount)).Def(0)
}

func (ctx *selCtx) shiftLeft64(value, amount isa.Temp) isa.Temp {
	if ctx.target.HasShiftRev64 {
		return ctx.bld.Vop3(isa.OpVLshlrevB64, ctx.bld.Def(isa.V2), op(amount), op(value)).Def(0)
	}
	return ctx.bld.Vop3(isa.OpVLshlB64, ctx.bld.Def(isa.V2), op(value), op(amount)).Def(0)
}

// f32ToI64 truncates a float to a signed 64-bit integer. The mantissa is
// placed at the top of a 64-bit value and shifted down by 63 - exponent,
// saturating when the exponent is out of range. The sign is applied by
// two's complement negation: (x ^ s) - s.
func (ctx *selCtx) f32ToI64(dst, src isa.Temp) {
	v1 := func() isa.Definition { return ctx.bld.Def(isa.V1) }
	f := op(src)

	exp := ctx.bld.Vop1(isa.OpVFrexpExpI32F32, v1(), f).Def(0)
	exp = ctx.bld.Vop3(isa.OpVMed3I32, v1(), cnst(0), op(exp), cnst(64)).Def(0)
	mant := ctx.vop2(isa.OpVAndB32, isa.OpVAndB32, v1(), cnst(0x7fffff), f).Def(0)
	sign := ctx.vop2(isa.OpVAshrrevI32, isa.OpInvalid, v1(), cnst(31), f).Def(0)
	mant = ctx.vop2(isa.OpVOrB32, isa.OpVOrB32, v1(), cnst(0x800000), op(mant)).Def(0)
	mant = ctx.vop2(isa.OpVLshlrevB32, isa.OpInvalid, v1(), cnst(7), op(mant)).Def(0)
	wide := ctx.bld.CreateVector(ctx.bld.Def(isa.V2), cnst(0), op(mant)).Def(0)

	shift := ctx.bld.Tmp(isa.V1)
	borrow := ctx.vop2(isa.OpVSubCoU32, isa.OpVSubrevCoU32, isa.Def(shift), cnst(63), op(exp)).Def(1)
	shifted := ctx.shiftRight64(wide, shift)
	saturate := ctx.bld.Vop1(isa.OpVBfrevB32, v1(), cnst(0xfffffffe)).Def(0)

	lo, hi := ctx.halves(shifted)
	lo = ctx.cndmask(v1(), op(lo), cnst(0xffffffff), borrow).Def(0)
	hi = ctx.cndmask(v1(), op(hi), op(saturate), borrow).Def(0)
	lo = ctx.vop2(isa.OpVXorB32, isa.OpVXorB32, v1(), op(sign), op(lo)).Def(0)
	hi = ctx.vop2(isa.OpVXorB32, isa.OpVXorB32, v1(), op(sign), op(hi)).Def(0)

	rlo := ctx.bld.Tmp(isa.V1)
	borrow = ctx.vop2(isa.OpVSubCoU32, isa.OpVSubrevCoU32, isa.Def(rlo), op(lo), op(sign)).Def(1)
	rhi := ctx.vop2(isa.OpVSubbCoU32, isa.OpInvalid, v1(), op(hi), op(sign), op(borrow)).Def(0)
	ctx.createVector(dst, rlo, rhi)
}

// f32ToU64 truncates a float to an unsigned 64-bit integer. Exponents below
// 24 shift the mantissa right within one dword; larger ones shift it left
// across both. Exponents above 64 saturate.
func (ctx *selCtx) f32ToU64(dst, src isa.Temp) {
	v1 := func() isa.Definition { return ctx.bld.Def(isa.V1) }
	f := op(src)

	exp := ctx.bld.Vop1(isa.OpVFrexpExpI32F32, v1(), f).Def(0)
	inRange := ctx.vopc(isa.OpVCmpGeI32, ctx.bld.Def(ctx.program.LaneMask), cnst(64), op(exp)).Def(0)
	exp = ctx.vop2(isa.OpVMaxI32, isa.OpVMaxI32, v1(), cnst(0), op(exp)).Def(0)
	mant := ctx.vop2(isa.OpVAndB32, isa.OpVAndB32, v1(), cnst(0x7fffff), f).Def(0)
	mant = ctx.vop2(isa.OpVOrB32, isa.OpVOrB32, v1(), cnst(0x800000), op(mant)).Def(0)

	smallShift := ctx.bld.Tmp(isa.V1)
	ctx.add32(isa.Def(smallShift), cnst(24), op(exp), true)
	small := ctx.vop2(isa.OpVLshrrevB32, isa.OpInvalid, v1(), op(smallShift), op(mant)).Def(0)

	wide := ctx.bld.CreateVector(ctx.bld.Def(isa.V2), op(mant), cnst(0)).Def(0)
	shift := ctx.bld.Tmp(isa.V1)
	isSmall := ctx.vop2(isa.OpVSubCoU32, isa.OpVSubrevCoU32, isa.Def(shift), op(exp), cnst(24)).Def(1)
	shifted := ctx.shiftLeft64(wide, shift)

	lo, hi := ctx.halves(shifted)
	lo = ctx.cndmask(v1(), op(lo), op(small), isSmall).Def(0)
	hi = ctx.cndmask(v1(), op(hi), cnst(0), isSmall).Def(0)
	lo = ctx.cndmask(v1(), cnst(0xffffffff), op(lo), inRange).Def(0)
	hi = ctx.cndmask(v1(), cnst(0xffffffff), op(hi), inRange).Def(0)
	ctx.createVector(dst, lo, hi)
}

// f64ToInt64 splits the truncated value t into hi = floor(t / 2^32) and
// lo = t - hi * 2^32 and converts each half.
func (ctx *selCtx) f64ToInt64(dst, src isa.Temp, signed bool) {
	v2 := func() isa.Definition { return ctx.bld.Def(isa.V2) }
	trunc := ctx.truncF64(src)
	scaled := ctx.bld.Vop3(isa.OpVMulF64, v2(), op(trunc), op(ctx.sconst64(0x3df0000000000000))).Def(0)
	floor := ctx.floorF64(scaled)
	rest := ctx.bld.Vop3(isa.OpVFmaF64, v2(), op(floor), op(ctx.sconst64(0xc1f0000000000000)), op(trunc)).Def(0)

	lo := ctx.bld.Vop1(isa.OpVCvtU32F64, ctx.bld.Def(isa.V1), op(rest)).Def(0)
	hiOp := isa.OpVCvtU32F64
	if signed {
		hiOp = isa.OpVCvtI32F64
	}
	hi := ctx.bld.Vop1(hiOp, ctx.bld.Def(isa.V1), op(floor)).Def(0)
	ctx.createVector(dst, lo, hi)
}

// floorF64 rounds x down. Targets without the 64-bit rounding
// instructions compute x - fract(x).
func (ctx *selCtx) floorF64(x isa.Temp) isa.Temp {
	if ctx.target.HasF64Rounding {
		return ctx.bld.Vop1(isa.OpVFloorF64, ctx.bld.Def(isa.V2), op(x)).Def(0)
	}
	fr := ctx.bld.Vop1(isa.OpVFractF64, ctx.bld.Def(isa.V2), op(x)).Def(0)
	return ctx.bld.Vop3Mods(isa.OpVAddF64, isa.VOP3Info{Neg: [3]bool{false, true}}, ctx.bld.Def(isa.V2), op(x), op(fr)).Def(0)
}

// truncF64 rounds x toward zero. Without v_trunc_f64 the fraction of |x|
// is given the sign of x and subtracted.
func (ctx *selCtx) truncF64(x isa.Temp) isa.Temp {
	if ctx.target.HasF64Rounding {
		return ctx.bld.Vop1(isa.OpVTruncF64, ctx.bld.Def(isa.V2), op(x)).Def(0)
	}
	x = ctx.asVGPR(x)
	fr := ctx.bld.Vop3Mods(isa.OpVFractF64, isa.VOP3Info{Abs: [3]bool{true}}, ctx.bld.Def(isa.V2), op(x)).Def(0)
	frlo, frhi := ctx.halves(fr)
	_, xhi := ctx.halves(x)
	frhi = ctx.bld.Vop3(isa.OpVBfiB32, ctx.bld.Def(isa.V1), ctx.vop3Const(0x7fffffff), op(frhi), op(xhi)).Def(0)
	signed := ctx.bld.Tmp(isa.V2)
	ctx.createVector(signed, frlo, frhi)
	return ctx.bld.Vop3Mods(isa.OpVAddF64, isa.VOP3Info{Neg: [3]bool{false, true}}, ctx.bld.Def(isa.V2), op(x), op(signed)).Def(0)
}

// extend sign- or zero-extends an 8- or 16-bit value held in a dword.
func (ctx *selCtx) extend(src isa.Temp, bits uint8, signed bool) isa.Temp {
	if bits >= 32 {
		return src
	}
	mask := uint32(1)<<bits - 1
	if src.RC.IsUniform() {
		switch {
		case signed && bits == 8:
			return ctx.bld.Sop1(isa.OpSSextI32I8, ctx.bld.Def(isa.S1), op(src)).Def(0)
		case signed:
			return ctx.bld.Sop1(isa.OpSSextI32I16, ctx.bld.Def(isa.S1), op(src)).Def(0)
		}
		return ctx.bld.Sop2(isa.OpSAndB32, ctx.bld.Def(isa.S1), op(src), cnst(mask)).Def(0)
	}
	if signed {
		return ctx.bld.Vop3(isa.OpVBfeI32, ctx.bld.Def(isa.V1), op(src), cnst(0), cnst(uint32(bits))).Def(0)
	}
	return ctx.vop2(isa.OpVAndB32, isa.OpVAndB32, ctx.bld.Def(isa.V1), cnst(mask), op(src)).Def(0)
}

func (ctx *selCtx) emitIntResize(dst, src isa.Temp, from, to uint8, signed bool) {
	switch {
	case from == to:
		ctx.move(src, dst)
	case from == 64:
		lo, _ := ctx.halves(src)
		ctx.move(lo, dst)
	case to == 64:
		lo := ctx.convert(ctx.extend(src, from, signed), dst.RC.Element(2))
		var hi isa.Temp
		switch {
		case !signed:
			hi = ctx.bld.Tmp(lo.RC)
			ctx.movConst(isa.Def(hi), 0)
		case lo.RC.IsUniform():
			hi = ctx.bld.Sop2(isa.OpSAshrI32, ctx.bld.Def(isa.S1), op(lo), cnst(31)).Def(0)
		default:
			hi = ctx.vop2(isa.OpVAshrrevI32, isa.OpInvalid, ctx.bld.Def(isa.V1), cnst(31), op(lo)).Def(0)
		}
		ctx.createVector(dst, lo, hi)
	case to > from:
		ctx.move(ctx.convert(ctx.extend(src, from, signed), dst.RC), dst)
	default:
		// Narrow values keep the full dword; users read the low bits.
		ctx.move(src, dst)
	}
}

func (ctx *selCtx) emitBoolToNumber(aluOp ir.ALUOp, dst, src isa.Temp) {
	var one uint32
	switch aluOp {
	case ir.OpB2F32:
		one = 0x3f800000
	case ir.OpB2F64:
		one = 0x3ff00000
	default:
		one = 1
	}
	wide := aluOp == ir.OpB2F64 || aluOp == ir.OpB2I64

	var word isa.Temp
	if dst.RC.IsDivergent() {
		c := ctx.boolToVector(src)
		word = ctx.cndmask(ctx.bld.Def(isa.V1), cnst(0), cnst(one), c).Def(0)
	} else {
		if src.RC.IsMask() {
			invariant(aluOp, "uniform result from lane mask %v", src)
		}
		if one == 1 {
			word = ctx.bld.Sop2(isa.OpSAndB32, ctx.bld.Def(isa.S1), op(src), cnst(1)).Def(0)
		} else {
			word = ctx.bld.Sop2(isa.OpSMulI32, ctx.bld.Def(isa.S1), cnst(one), op(src)).Def(0)
		}
	}
	if !wide {
		ctx.move(word, dst)
		return
	}
	zero := ctx.bld.Tmp(word.RC)
	ctx.movConst(isa.Def(zero), 0)
	if aluOp == ir.OpB2F64 {
		ctx.createVector(dst, zero, word)
	} else {
		ctx.createVector(dst, word, zero)
	}
}

func (ctx *selCtx) emitIntToBool(dst, src isa.Temp, from uint8) {
	if dst.RC.IsUniform() && src.RC.IsUniform() {
		sccDef := isa.Definition{Temp: dst, Fixed: isa.RegSCC}
		switch {
		case from != 64:
			ctx.bld.Build(isa.OpSCmpLgU32, []isa.Definition{sccDef}, op(src), cnst(0))
		case ctx.target.HasS64Compare:
			ctx.bld.Build(isa.OpSCmpLgU64, []isa.Definition{sccDef}, op(src), isa.OperandConst64(0))
		default:
			lo, hi := ctx.halves(src)
			ctx.bld.Build(isa.OpSOrB32, []isa.Definition{ctx.bld.Def(isa.S1), sccDef}, op(lo), op(hi))
		}
		return
	}
	if from == 64 {
		ctx.compareIntoBool(isa.OpVCmpNeU64, dst, isa.OperandConst64(0), op(src))
		return
	}
	ctx.compareIntoBool(isa.OpVCmpNeU32, dst, cnst(0), op(src))
}
