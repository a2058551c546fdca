package isel

import (
	"math/bits"

	"github.com/gogpu/wavesel/isa"
)

// splitVector splits v into n equal elements and caches them. It emits
// nothing when n is 1 or when v is already cached with elements of that
// size.
func (ctx *selCtx) splitVector(v isa.Temp, n int) {
	if n <= 1 {
		return
	}
	elem := v.RC.Element(n)
	if cached, ok := ctx.allocatedVec[v.ID]; ok && len(cached) == n && cached[0].RC.Size == elem.Size {
		return
	}
	elems := make([]isa.Temp, n)
	defs := make([]isa.Definition, n)
	for i := range elems {
		elems[i] = ctx.bld.Tmp(elem)
		defs[i] = isa.Def(elems[i])
	}
	ctx.bld.SplitVector(defs, op(v))
	ctx.allocatedVec[v.ID] = elems
}

// elements returns the n elements of v, splitting it if needed.
func (ctx *selCtx) elements(v isa.Temp, n int) []isa.Temp {
	if n == 1 {
		return []isa.Temp{v}
	}
	ctx.splitVector(v, n)
	return ctx.allocatedVec[v.ID]
}

// halves returns the low and high dword of a 64-bit temp.
func (ctx *selCtx) halves(v isa.Temp) (lo, hi isa.Temp) {
	e := ctx.elements(v, 2)
	return e[0], e[1]
}

// extract returns element idx of v as a temp of class rc.
func (ctx *selCtx) extract(v isa.Temp, idx int, rc isa.RegClass) isa.Temp {
	if idx == 0 && v.RC == rc {
		return v
	}
	if cached, ok := ctx.allocatedVec[v.ID]; ok && idx < len(cached) {
		e := cached[idx]
		if e.RC == rc {
			return e
		}
		if ctx.promotable(e.RC, rc) {
			ctx.program.Stats.Promotions++
			dst := ctx.bld.Tmp(rc)
			ctx.bld.Copy(isa.Def(dst), op(e))
			return dst
		}
	}
	if v.RC.Size%rc.Size != 0 || uint32(idx+1)*uint32(rc.Size) > uint32(v.RC.Size) {
		invariant(isa.OpPExtractVector, "element %d of class %v is out of range for %v", idx, rc, v)
	}
	dst := ctx.bld.Tmp(rc)
	ctx.bld.ExtractVector(isa.Def(dst), op(v), uint32(idx))
	return dst
}

// promotable reports whether a cached element of class have may be copied
// into a fresh temp of class want.
func (ctx *selCtx) promotable(have, want isa.RegClass) bool {
	if ctx.opts.Promotion == PromoteNever {
		return false
	}
	return have.Size == want.Size && have.IsUniform() && want.IsDivergent()
}

// createVector assembles dst from elems. The elements are cached when they
// all have the same class.
func (ctx *selCtx) createVector(dst isa.Temp, elems ...isa.Temp) {
	if len(elems) == 1 {
		ctx.bld.Copy(isa.Def(dst), op(elems[0]))
		return
	}
	ops := make([]isa.Operand, len(elems))
	same := true
	for i, e := range elems {
		ops[i] = op(e)
		same = same && e.RC == elems[0].RC
	}
	ctx.bld.CreateVector(isa.Def(dst), ops...)
	if same {
		ctx.allocatedVec[dst.ID] = append([]isa.Temp(nil), elems...)
	}
}

// expandVector builds the total-element vector dst from src. Element i of
// dst is the next unconsumed element of src when bit i of mask is set and
// zero otherwise.
func (ctx *selCtx) expandVector(src, dst isa.Temp, total int, mask uint32) {
	present := bits.OnesCount32(mask)
	if present == 0 || total <= 0 || int(dst.RC.Size)%total != 0 {
		invariant(isa.OpPCreateVector, "cannot expand %v into %d elements of %v", src, total, dst)
	}
	elemSize := dst.RC.Size / uint8(total)
	if int(src.RC.Size) != present*int(elemSize) {
		invariant(isa.OpPCreateVector, "expanding %v with mask %#x consumes %d elements", src, mask, present)
	}
	if present == total && src.RC == dst.RC {
		ctx.bld.Copy(isa.Def(dst), op(src))
		ctx.allocatedVec[dst.ID] = ctx.elements(src, total)
		return
	}
	ctx.splitVector(src, present)
	elemRC := isa.NewRegClass(src.RC.Kind, elemSize)
	var zero isa.Operand
	switch elemSize {
	case 1:
		zero = cnst(0)
	case 2:
		zero = isa.OperandConst64(0)
	default:
		invariant(isa.OpPCreateVector, "cannot zero fill elements of %d dwords", elemSize)
	}
	ops := make([]isa.Operand, total)
	k := 0
	for i := 0; i < total; i++ {
		if mask&(1<<uint(i)) == 0 {
			ops[i] = zero
			continue
		}
		e := ctx.extract(src, k, elemRC)
		k++
		if dst.RC.IsUniform() {
			e = ctx.asUniform(e)
		}
		ops[i] = op(e)
	}
	ctx.bld.CreateVector(isa.Def(dst), ops...)
}
