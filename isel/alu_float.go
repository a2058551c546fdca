package isel

import (
	"github.com/gogpu/wavesel/ir"
	"github.com/gogpu/wavesel/isa"
)

// floatUnary lists the VOP1 forms of one-source float operations. OpInvalid
// marks a width without a lowering.
var floatUnary = map[ir.ALUOp][2]isa.Opcode{
	ir.OpFRcp:       {isa.OpVRcpF32, isa.OpVRcpF64},
	ir.OpFRsq:       {isa.OpVRsqF32, isa.OpVRsqF64},
	ir.OpFSqrt:      {isa.OpVSqrtF32, isa.OpVSqrtF64},
	ir.OpFLog2:      {isa.OpVLogF32, isa.OpInvalid},
	ir.OpFExp2:      {isa.OpVExpF32, isa.OpInvalid},
	ir.OpFFract:     {isa.OpVFractF32, isa.OpVFractF64},
	ir.OpFFloor:     {isa.OpVFloorF32, isa.OpVFloorF64},
	ir.OpFCeil:      {isa.OpVCeilF32, isa.OpVCeilF64},
	ir.OpFTrunc:     {isa.OpVTruncF32, isa.OpVTruncF64},
	ir.OpFRoundEven: {isa.OpVRndneF32, isa.OpVRndneF64},
	ir.OpFrexpExp:   {isa.OpVFrexpExpI32F32, isa.OpVFrexpExpI32F64},
	ir.OpFrexpSig:   {isa.OpVFrexpMantF32, isa.OpVFrexpMantF64},
}

// floatBinary lists the forms of two-source float operations: the VOP2
// form for 32 bits and the VOP3 form for 64 bits.
var floatBinary = map[ir.ALUOp][2]isa.Opcode{
	ir.OpFAdd: {isa.OpVAddF32, isa.OpVAddF64},
	ir.OpFMul: {isa.OpVMulF32, isa.OpVMulF64},
	ir.OpFMin: {isa.OpVMinF32, isa.OpVMinF64},
	ir.OpFMax: {isa.OpVMaxF32, isa.OpVMaxF64},
}

var floatMinMax3 = map[ir.ALUOp]isa.Opcode{
	ir.OpFMin3: isa.OpVMin3F32,
	ir.OpFMax3: isa.OpVMax3F32,
	ir.OpFMed3: isa.OpVMed3F32,
}

// visitFloat selects float arithmetic. It reports false for operations it
// does not handle.
func (ctx *selCtx) visitFloat(in *ir.ALU, dst isa.Temp, dv ir.Value) bool {
	wide := ctx.srcBits(in, 0) == 64
	w := 0
	if wide {
		w = 1
	}

	if forms, ok := floatUnary[in.Op]; ok {
		opc := forms[w]
		if opc == isa.OpInvalid {
			unsupported(in.Op, "64-bit operation")
		}
		src := ctx.src(in, 0)
		if wide && !ctx.target.HasF64Rounding {
			switch in.Op {
			case ir.OpFFloor:
				// floor(x) = x - fract(x)
				fr := ctx.bld.Vop1(isa.OpVFractF64, ctx.bld.Def(isa.V2), op(src)).Def(0)
				ctx.bld.Vop3Mods(isa.OpVAddF64, isa.VOP3Info{Neg: [3]bool{false, true}}, isa.Def(dst), op(src), op(fr))
				return true
			case ir.OpFCeil, ir.OpFTrunc, ir.OpFRoundEven:
				unsupported(in.Op, "64-bit rounding on %v", ctx.target.Chip)
			}
		}
		ctx.bld.Vop1(opc, isa.Def(dst), op(src))
		return true
	}
	if forms, ok := floatBinary[in.Op]; ok {
		a, b := ctx.src(in, 0), ctx.src(in, 1)
		if wide {
			ctx.bld.Vop3(forms[1], isa.Def(dst), op(a), op(b))
		} else {
			ctx.vop2(forms[0], forms[0], isa.Def(dst), op(a), op(b))
		}
		return true
	}
	if opc, ok := floatMinMax3[in.Op]; ok {
		if wide {
			unsupported(in.Op, "64-bit operation")
		}
		ctx.bld.Vop3(opc, isa.Def(dst), op(ctx.src(in, 0)), op(ctx.src(in, 1)), op(ctx.src(in, 2)))
		return true
	}

	switch in.Op {
	case ir.OpFSub:
		a, b := ctx.src(in, 0), ctx.src(in, 1)
		if wide {
			ctx.bld.Vop3Mods(isa.OpVAddF64, isa.VOP3Info{Neg: [3]bool{false, true}}, isa.Def(dst), op(a), op(b))
		} else {
			ctx.vop2(isa.OpVSubF32, isa.OpInvalid, isa.Def(dst), op(a), op(b))
		}
	case ir.OpFFma:
		opc := isa.OpVFmaF32
		if wide {
			opc = isa.OpVFmaF64
		}
		ctx.bld.Vop3(opc, isa.Def(dst), op(ctx.src(in, 0)), op(ctx.src(in, 1)), op(ctx.src(in, 2)))
	case ir.OpFLdexp:
		opc := isa.OpVLdexpF32
		if wide {
			opc = isa.OpVLdexpF64
		}
		ctx.bld.Vop3(opc, isa.Def(dst), op(ctx.src(in, 0)), op(ctx.src(in, 1)))
	case ir.OpFNeg, ir.OpFAbs:
		ctx.visitSignBit(in, dst, wide)
	case ir.OpFSat:
		src := ctx.src(in, 0)
		if wide {
			ctx.bld.Vop3Mods(isa.OpVAddF64, isa.VOP3Info{Clamp: true}, isa.Def(dst), op(src), isa.OperandConst64(0))
		} else {
			ctx.bld.Vop3(isa.OpVMed3F32, isa.Def(dst), cnst(0), isa.OperandFloat(1), op(src))
		}
	case ir.OpFSign:
		if wide {
			unsupported(in.Op, "64-bit operation")
		}
		src := ctx.vgprOperand(op(ctx.src(in, 0)))
		// Positive values become 1.0, then negative values become -1.0.
		nonPos := ctx.vopc(isa.OpVCmpGeF32, ctx.bld.Def(ctx.program.LaneMask), cnst(0), src).Def(0)
		t := ctx.cndmask(ctx.bld.Def(isa.V1), isa.OperandFloat(1), src, nonPos).Def(0)
		nonNeg := ctx.vopc(isa.OpVCmpLeF32, ctx.bld.Def(ctx.program.LaneMask), cnst(0), op(t)).Def(0)
		ctx.cndmask(isa.Def(dst), isa.OperandFloat(-1), op(t), nonNeg)
	case ir.OpFSin, ir.OpFCos:
		if wide {
			unsupported(in.Op, "64-bit operation")
		}
		// The hardware takes its input in revolutions.
		t := ctx.vop2(isa.OpVMulF32, isa.OpVMulF32, ctx.bld.Def(isa.V1), cnst(0x3e22f983), op(ctx.src(in, 0))).Def(0)
		if !ctx.target.FullSinCosDomain {
			t = ctx.bld.Vop1(isa.OpVFractF32, ctx.bld.Def(isa.V1), op(t)).Def(0)
		}
		opc := isa.OpVSinF32
		if in.Op == ir.OpFCos {
			opc = isa.OpVCosF32
		}
		ctx.bld.Vop1(opc, isa.Def(dst), op(t))
	default:
		return false
	}
	return true
}

// visitSignBit selects fneg and fabs by flipping or clearing the sign bit.
func (ctx *selCtx) visitSignBit(in *ir.ALU, dst isa.Temp, wide bool) {
	opc, mask := isa.OpVXorB32, uint32(0x80000000)
	if in.Op == ir.OpFAbs {
		opc, mask = isa.OpVAndB32, 0x7fffffff
	}
	src := ctx.src(in, 0)
	if !wide {
		ctx.vop2(opc, opc, isa.Def(dst), cnst(mask), op(src))
		return
	}
	lo, hi := ctx.halves(src)
	rhi := ctx.vop2(opc, opc, ctx.bld.Def(isa.V1), cnst(mask), op(hi)).Def(0)
	ctx.createVector(dst, ctx.asVGPR(lo), rhi)
}

// quadLanes returns the two quad permutations whose difference is the
// derivative computed by aluOp.
func quadLanes(aluOp ir.ALUOp) (base, other uint16) {
	switch aluOp {
	case ir.OpFDdy, ir.OpFDdyFine:
		return isa.DPPQuadPerm(0, 1, 0, 1), isa.DPPQuadPerm(2, 3, 2, 3)
	case ir.OpFDdxCoarse:
		return isa.DPPQuadPerm(0, 0, 0, 0), isa.DPPQuadPerm(1, 1, 1, 1)
	case ir.OpFDdyCoarse:
		return isa.DPPQuadPerm(0, 0, 0, 0), isa.DPPQuadPerm(2, 2, 2, 2)
	}
	return isa.DPPQuadPerm(0, 0, 2, 2), isa.DPPQuadPerm(1, 1, 3, 3)
}

// dsSwizzleQuad is the ds_swizzle offset selecting quad permutation mode.
const dsSwizzleQuad = 1 << 15

func (ctx *selCtx) visitDerivative(in *ir.ALU, dst isa.Temp) {
	if bits := ctx.srcBits(in, 0); bits != 32 {
		unsupported(in.Op, "%d-bit derivative", bits)
	}
	src := ctx.asVGPR(ctx.src(in, 0))
	base, other := quadLanes(in.Op)
	tmp := ctx.bld.Tmp(isa.V1)
	if ctx.target.HasDPP {
		dpp := isa.DPPInfo{Ctrl: base, RowMask: 0xf, BankMask: 0xf}
		tl := ctx.bld.VopDPP(isa.OpVMovB32, dpp, ctx.bld.Def(isa.V1), op(src)).Def(0)
		dpp.Ctrl = other
		ctx.bld.VopDPP(isa.OpVSubF32, dpp, isa.Def(tmp), op(src), op(tl))
	} else {
		tl := ctx.bld.DS(isa.OpDSSwizzleB32, isa.DSInfo{Offset0: dsSwizzleQuad | base}, ctx.bld.Def(isa.V1), op(src)).Def(0)
		tr := ctx.bld.DS(isa.OpDSSwizzleB32, isa.DSInfo{Offset0: dsSwizzleQuad | other}, ctx.bld.Def(isa.V1), op(src)).Def(0)
		ctx.bld.Vop2(isa.OpVSubF32, isa.Def(tmp), op(tr), op(tl))
	}
	ctx.emitWQM(tmp, dst)
}
