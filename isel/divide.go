package isel

import (
	"math/bits"

	"github.com/gogpu/wavesel/ir"
	"github.com/gogpu/wavesel/isa"
)

// udivInfo describes the division of a 32-bit unsigned n by a constant as
//
//	x = n >> PreShift
//	if Increment { x = min(x + 1, 2^32 - 1) }
//	q = mulhi(x, Multiplier) >> PostShift
//
// Powers of two only set PostShift and leave Multiplier zero.
type udivInfo struct {
	PreShift   uint32
	Increment  bool
	Multiplier uint32
	PostShift  uint32
}

// udivMagic computes the reciprocal multiplier of d. d must not be zero.
//
// Trailing zero bits of d are removed by the pre-shift, leaving an odd
// divisor o and dividends of N = 32 - PreShift bits. With l = floor(log2 o)
// and m = floor(2^(N+l) / o), the rounded-up multiplier m+1 is exact when
// o - 2^(N+l) mod o <= 2^l. Otherwise the rounded-down m is exact when the
// dividend is incremented first. The increment only saturates for an
// undivided dividend of 2^32 - 1, which needs it only when o divides
// 2^32 - 1, and then the rounded-up multiplier is always exact.
func udivMagic(d uint32) udivInfo {
	if d == 0 {
		invariant(ir.OpUDiv, "division by constant zero")
	}
	if d&(d-1) == 0 {
		return udivInfo{PostShift: uint32(bits.TrailingZeros32(d))}
	}
	pre := uint32(bits.TrailingZeros32(d))
	odd := uint64(d >> pre)
	n := 32 - pre
	l := uint32(bits.Len64(odd)) - 1
	e := n + l
	pow := uint64(1) << e
	m := pow / odd
	r := pow % odd

	info := udivInfo{PreShift: pre}
	if odd-r <= uint64(1)<<l {
		m++
	} else {
		info.Increment = true
	}
	// mulhi divides by 2^32; the rest of 2^e is the post-shift. When e is
	// below 32 the multiplier is scaled up instead, which still fits in 32
	// bits because m < 2^n and l >= 1.
	if e >= 32 {
		info.PostShift = e - 32
	} else {
		m <<= 32 - e
	}
	info.Multiplier = uint32(m)
	return info
}

// apply evaluates the division on the host.
func (info udivInfo) apply(n uint32) uint32 {
	x := n >> info.PreShift
	if info.Multiplier == 0 {
		return x >> info.PostShift
	}
	if info.Increment && x != ^uint32(0) {
		x++
	}
	return uint32(uint64(x)*uint64(info.Multiplier)>>32) >> info.PostShift
}

func (ctx *selCtx) visitUDiv(in *ir.ALU, dst isa.Temp, dv ir.Value) {
	if dv.BitSize != 32 {
		unsupported(in.Op, "%d-bit division", dv.BitSize)
	}
	d, ok := ctx.constValue(in.Srcs[1].Value, int(in.Srcs[1].Swizzle[0]))
	if !ok {
		unsupported(in.Op, "non-constant divisor")
	}
	n := ctx.src(in, 0)
	if dst.RC.IsDivergent() {
		n = ctx.asVGPR(n)
	}
	if in.Op == ir.OpUDiv {
		ctx.move(ctx.udivConst(n, uint32(d)), dst)
		return
	}
	q := ctx.udivConst(n, uint32(d))
	if dst.RC.IsUniform() {
		prod := ctx.bld.Sop2(isa.OpSMulI32, ctx.bld.Def(isa.S1), op(q), cnst(uint32(d))).Def(0)
		ctx.bld.Sop2(isa.OpSSubU32, isa.Def(dst), op(n), op(prod))
		return
	}
	prod := ctx.bld.Vop3(isa.OpVMulLoU32, ctx.bld.Def(isa.V1), op(q), ctx.vop3Const(uint32(d))).Def(0)
	ctx.add32(isa.Def(dst), op(n), op(prod), true)
}

// udivConst emits n / d for a constant d in the register file of n.
func (ctx *selCtx) udivConst(n isa.Temp, d uint32) isa.Temp {
	info := udivMagic(d)
	uniform := n.RC.IsUniform()
	x := n
	if d == 1 {
		return x
	}
	shr := func(v isa.Temp, s uint32) isa.Temp {
		if s == 0 {
			return v
		}
		if uniform {
			return ctx.bld.Sop2(isa.OpSLshrB32, ctx.bld.Def(isa.S1), op(v), cnst(s)).Def(0)
		}
		return ctx.vop2(isa.OpVLshrrevB32, isa.OpInvalid, ctx.bld.Def(isa.V1), cnst(s), op(v)).Def(0)
	}
	if info.Multiplier == 0 {
		return shr(x, info.PostShift)
	}
	x = shr(x, info.PreShift)
	if info.Increment {
		x = ctx.incrementSaturated(x, info.PreShift > 0)
	}
	var q isa.Temp
	switch {
	case uniform && ctx.target.HasSMulHi:
		q = ctx.bld.Sop2(isa.OpSMulHiU32, ctx.bld.Def(isa.S1), op(x), cnst(info.Multiplier)).Def(0)
	case uniform:
		v := ctx.bld.Vop3(isa.OpVMulHiU32, ctx.bld.Def(isa.V1), op(x), ctx.vop3Const(info.Multiplier)).Def(0)
		q = ctx.asUniform(v)
	default:
		q = ctx.bld.Vop3(isa.OpVMulHiU32, ctx.bld.Def(isa.V1), op(x), ctx.vop3Const(info.Multiplier)).Def(0)
	}
	return shr(q, info.PostShift)
}

// incrementSaturated adds one to x, keeping 2^32 - 1 unchanged. When the
// dividend was pre-shifted the increment cannot overflow.
func (ctx *selCtx) incrementSaturated(x isa.Temp, noOverflow bool) isa.Temp {
	if x.RC.IsUniform() {
		add := ctx.bld.Sop2(isa.OpSAddU32, ctx.bld.Def(isa.S1), op(x), cnst(1))
		if noOverflow {
			return add.Def(0)
		}
		return ctx.bld.Sop2(isa.OpSCselectB32, ctx.bld.Def(isa.S1), op(x), op(add.Def(0)), scc(add.Def(1))).Def(0)
	}
	if noOverflow {
		sum := ctx.bld.Tmp(isa.V1)
		ctx.add32(isa.Def(sum), cnst(1), op(x), false)
		return sum
	}
	add := ctx.vop2(isa.OpVAddCoU32, isa.OpVAddCoU32, ctx.bld.Def(isa.V1), cnst(1), op(x))
	return ctx.cndmask(ctx.bld.Def(isa.V1), op(add.Def(0)), op(x), add.Def(1)).Def(0)
}
