package isel

import (
	"math"
	"math/bits"
	"testing"

	"golang.org/x/exp/slices"

	"github.com/gogpu/wavesel/ir"
	"github.com/gogpu/wavesel/isa"
)

// laneEval interprets the integer and float arithmetic of a program for a
// single active lane. Values are kept as dwords, low dword first; lane
// masks hold 0 or 1. Temps whose value depends on anything it does not
// model stay unknown.
type laneEval struct {
	vals map[uint32][]uint32
}

func newLaneEval() *laneEval {
	return &laneEval{vals: make(map[uint32][]uint32)}
}

func (e *laneEval) operand(o isa.Operand) ([]uint32, bool) {
	switch {
	case o.IsConstant():
		v := o.Constant()
		if o.Size() == 2 {
			return []uint32{uint32(v), uint32(v >> 32)}, true
		}
		return []uint32{uint32(v)}, true
	case o.IsTemp():
		v, ok := e.vals[o.TempID()]
		return v, ok
	}
	return nil, false
}

func (e *laneEval) set(t isa.Temp, v ...uint32) {
	e.vals[t.ID] = v
}

// dword returns the first dword of a known temp.
func (e *laneEval) dword(t isa.Temp) (uint32, bool) {
	v, ok := e.vals[t.ID]
	if !ok || len(v) == 0 {
		return 0, false
	}
	return v[0], true
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func join(v []uint32) uint64 { return uint64(v[0]) | uint64(v[1])<<32 }

func dwords(v uint64) []uint32 { return []uint32{uint32(v), uint32(v >> 32)} }

func f32(v uint32) float64 { return float64(math.Float32frombits(v)) }

func bitsF32(f float64) []uint32 { return []uint32{math.Float32bits(float32(f))} }

func f64(v []uint32) float64 { return math.Float64frombits(join(v)) }

func bitsF64(f float64) []uint32 { return dwords(math.Float64bits(f)) }

// run evaluates every block in order. seed supplies values for
// instructions the evaluator cannot compute, such as argument loads.
func (e *laneEval) run(p *isa.Program, seed func(in *isa.Instruction) bool) {
	for _, b := range p.Blocks {
		for _, in := range b.Instructions {
			if len(in.Definitions) == 0 || seed(in) {
				continue
			}
			args := make([][]uint32, len(in.Operands))
			known := true
			for i, o := range in.Operands {
				v, ok := e.operand(o)
				args[i] = v
				known = known && ok
			}
			if !known {
				continue
			}
			if vop3, ok := in.Payload.(isa.VOP3Info); ok {
				args = applyMods(args, vop3)
			}
			res, ok := evalInstr(in, args)
			if !ok {
				continue
			}
			for i, r := range res {
				if i < len(in.Definitions) {
					e.vals[in.Def(i).ID] = r
				}
			}
		}
	}
}

// applyMods applies the input modifiers of a 64-bit float VOP3
// instruction to its operands.
func applyMods(args [][]uint32, m isa.VOP3Info) [][]uint32 {
	out := make([][]uint32, len(args))
	for i, a := range args {
		out[i] = a
		if i >= 3 || len(a) != 2 {
			continue
		}
		v := join(a)
		if m.Abs[i] {
			v &^= 1 << 63
		}
		if m.Neg[i] {
			v ^= 1 << 63
		}
		out[i] = dwords(v)
	}
	return out
}

func evalInstr(in *isa.Instruction, a [][]uint32) ([][]uint32, bool) {
	one := func(v uint32) ([][]uint32, bool) { return [][]uint32{{v}}, true }
	carry := func(v uint32, c bool) ([][]uint32, bool) { return [][]uint32{{v}, {b2u(c)}}, true }
	x := func(i int) uint32 { return a[i][0] }
	switch in.Opcode {
	case isa.OpPParallelCopy, isa.OpPAsUniform, isa.OpSMovB32, isa.OpVMovB32,
		isa.OpVReadfirstlaneB32, isa.OpSMovB64:
		if len(a) != 1 {
			return nil, false
		}
		return [][]uint32{a[0]}, true
	case isa.OpPCreateVector:
		var v []uint32
		for _, o := range a {
			v = append(v, o...)
		}
		return [][]uint32{v}, true
	case isa.OpPSplitVector:
		var res [][]uint32
		k := 0
		for _, d := range in.Definitions {
			n := int(d.RegClass().Size)
			if k+n > len(a[0]) {
				return nil, false
			}
			res = append(res, a[0][k:k+n])
			k += n
		}
		return res, true
	case isa.OpPExtractVector:
		n := int(in.Definitions[0].RegClass().Size)
		k := int(x(1)) * n
		if k+n > len(a[0]) {
			return nil, false
		}
		return [][]uint32{a[0][k : k+n]}, true

	case isa.OpSLshrB32:
		return one(x(0) >> (x(1) & 31))
	case isa.OpVLshrrevB32:
		return one(x(1) >> (x(0) & 31))
	case isa.OpVLshlrevB32:
		return one(x(1) << (x(0) & 31))
	case isa.OpVAshrrevI32:
		return one(uint32(int32(x(1)) >> (x(0) & 31)))
	case isa.OpVAndB32, isa.OpSAndB32:
		return one(x(0) & x(1))
	case isa.OpVOrB32:
		return one(x(0) | x(1))
	case isa.OpVXorB32:
		return one(x(0) ^ x(1))
	case isa.OpVBfiB32:
		return one(x(0)&x(1) | ^x(0)&x(2))
	case isa.OpVBfrevB32:
		return one(bits.Reverse32(x(0)))
	case isa.OpVFfbhU32:
		if x(0) == 0 {
			return one(0xffffffff)
		}
		return one(uint32(bits.LeadingZeros32(x(0))))
	case isa.OpVMinU32:
		return one(min(x(0), x(1)))
	case isa.OpVMaxI32:
		return one(uint32(max(int32(x(0)), int32(x(1)))))
	case isa.OpVMed3I32:
		s := []int32{int32(x(0)), int32(x(1)), int32(x(2))}
		return one(uint32(max(min(s[0], s[1]), min(max(s[0], s[1]), s[2]))))
	case isa.OpVCmpGeI32:
		return one(b2u(int32(x(0)) >= int32(x(1))))
	case isa.OpVCmpLeI32:
		return one(b2u(int32(x(0)) <= int32(x(1))))

	case isa.OpVLshrrevB64:
		return [][]uint32{dwords(join(a[1]) >> (x(0) & 63))}, true
	case isa.OpVLshrB64:
		return [][]uint32{dwords(join(a[0]) >> (x(1) & 63))}, true
	case isa.OpVLshlrevB64:
		return [][]uint32{dwords(join(a[1]) << (x(0) & 63))}, true
	case isa.OpVLshlB64:
		return [][]uint32{dwords(join(a[0]) << (x(1) & 63))}, true

	case isa.OpSMulHiU32, isa.OpVMulHiU32:
		return one(uint32(uint64(x(0)) * uint64(x(1)) >> 32))
	case isa.OpSMulI32, isa.OpVMulLoU32:
		return one(x(0) * x(1))
	case isa.OpSAddU32, isa.OpVAddU32, isa.OpVAddCoU32:
		sum := uint64(x(0)) + uint64(x(1))
		return carry(uint32(sum), sum>>32 != 0)
	case isa.OpSAddcU32, isa.OpVAddcCoU32:
		sum := uint64(x(0)) + uint64(x(1)) + uint64(x(2)&1)
		return carry(uint32(sum), sum>>32 != 0)
	case isa.OpSSubU32, isa.OpVSubU32, isa.OpVSubCoU32:
		return carry(x(0)-x(1), x(1) > x(0))
	case isa.OpVSubrevU32, isa.OpVSubrevCoU32:
		return carry(x(1)-x(0), x(0) > x(1))
	case isa.OpSSubbU32, isa.OpVSubbCoU32:
		sub := uint64(x(1)) + uint64(x(2)&1)
		return carry(x(0)-uint32(sub), sub > uint64(x(0)))
	case isa.OpSCselectB32:
		if x(2) != 0 {
			return one(x(0))
		}
		return one(x(1))
	case isa.OpVCndmaskB32:
		if x(2) != 0 {
			return one(x(1))
		}
		return one(x(0))

	case isa.OpVFrexpExpI32F32:
		f := f32(x(0))
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return one(0)
		}
		_, exp := math.Frexp(f)
		return one(uint32(int32(exp)))
	case isa.OpVCvtF32U32:
		return [][]uint32{{math.Float32bits(float32(x(0)))}}, true
	case isa.OpVLdexpF32:
		return [][]uint32{bitsF32(math.Ldexp(f32(x(0)), int(int32(x(1)))))}, true
	case isa.OpVCvtF64U32:
		return [][]uint32{bitsF64(float64(x(0)))}, true
	case isa.OpVCvtF64I32:
		return [][]uint32{bitsF64(float64(int32(x(0))))}, true
	case isa.OpVLdexpF64:
		return [][]uint32{bitsF64(math.Ldexp(f64(a[0]), int(int32(x(1)))))}, true
	case isa.OpVTruncF64:
		return [][]uint32{bitsF64(math.Trunc(f64(a[0])))}, true
	case isa.OpVFloorF64:
		return [][]uint32{bitsF64(math.Floor(f64(a[0])))}, true
	case isa.OpVFractF64:
		f := f64(a[0])
		return [][]uint32{bitsF64(math.Min(f-math.Floor(f), math.Nextafter(1, 0)))}, true
	case isa.OpVAddF64:
		return [][]uint32{bitsF64(f64(a[0]) + f64(a[1]))}, true
	case isa.OpVMulF64:
		return [][]uint32{bitsF64(f64(a[0]) * f64(a[1]))}, true
	case isa.OpVFmaF64:
		return [][]uint32{bitsF64(math.FMA(f64(a[0]), f64(a[1]), f64(a[2])))}, true
	case isa.OpVCvtU32F64:
		f := math.Trunc(f64(a[0]))
		switch {
		case math.IsNaN(f) || f <= 0:
			return one(0)
		case f >= math.MaxUint32:
			return one(math.MaxUint32)
		}
		return one(uint32(f))
	case isa.OpVCvtI32F64:
		f := math.Trunc(f64(a[0]))
		switch {
		case math.IsNaN(f):
			return one(0)
		case f <= math.MinInt32:
			return one(uint32(1) << 31)
		case f >= math.MaxInt32:
			return one(math.MaxInt32)
		}
		return one(uint32(int32(f)))
	}
	return nil, false
}

// selectFor selects fn for chip without running the full pipeline, so
// the selected temps can still be looked up.
func selectFor(fn *ir.Function, chip isa.ChipClass) *selCtx {
	opts := DefaultOptions()
	opts.Target = TargetFor(chip, 64)
	ctx := newSelCtx(fn, &opts)
	ctx.selectFunction()
	return ctx
}

func noSeed(*isa.Instruction) bool { return false }

// evalDivision selects n op d and returns the value the program computes
// for dividend n.
func evalDivision(t *testing.T, op ir.ALUOp, d, n uint32, divergent bool, chip isa.ChipClass) uint32 {
	t.Helper()
	b := ir.NewBuilder("f", ir.StageCompute)
	lid := localID(b)
	x := lid
	if !divergent {
		x = pushConst(b)
	}
	r := b.ALU(op, 32, divergent, x, b.Const(d))
	store(b, r, lid)
	ctx := selectFor(b.Finish(), chip)

	e := newLaneEval()
	seeded := false
	e.run(ctx.program, func(in *isa.Instruction) bool {
		switch {
		case !divergent && in.Opcode == isa.OpSLoadDword:
			e.set(in.Def(0), n)
			return true
		case divergent && in.Opcode == isa.OpPStartPgm && !seeded:
			for _, def := range in.Definitions {
				if def.RegClass() == isa.V1 {
					e.set(def.Temp, n)
					seeded = true
					break
				}
			}
		}
		return false
	})
	v, ok := e.dword(ctx.get(r))
	if !ok {
		t.Fatalf("%v by %d: result was not computed", op, d)
	}
	return v
}

func TestEval_ConstantDivision(t *testing.T) {
	divisors := []uint32{1, 2, 3, 5, 7, 8, 10, 13, 641, 1000, 0x7fffffff, 0x80000001, 0xffffffff}
	dividends := []uint32{0, 1, 6, 7, 100, 12345, 0x7fffffff, 0x80000000, 0xfffffffe, 0xffffffff}
	modes := []struct {
		name      string
		divergent bool
		chip      isa.ChipClass
	}{
		{"uniform", false, isa.GFX9},
		{"uniform without s_mul_hi", false, isa.GFX8},
		{"vector", true, isa.GFX9},
		{"vector with carry", true, isa.GFX8},
	}
	for _, m := range modes {
		t.Run(m.name, func(t *testing.T) {
			for _, d := range divisors {
				for _, n := range dividends {
					if got := evalDivision(t, ir.OpUDiv, d, n, m.divergent, m.chip); got != n/d {
						t.Errorf("%d / %d = %d, want %d", n, d, got, n/d)
					}
					if got := evalDivision(t, ir.OpUMod, d, n, m.divergent, m.chip); got != n%d {
						t.Errorf("%d %% %d = %d, want %d", n, d, got, n%d)
					}
				}
			}
		})
	}
}

// evalResult selects the value built by build and returns the dwords the
// program computes for it.
func evalResult(t *testing.T, chip isa.ChipClass, build func(b *ir.Builder) ir.ValueHandle) (*isa.Program, []uint32) {
	t.Helper()
	b := ir.NewBuilder("f", ir.StageCompute)
	r := build(b)
	ctx := selectFor(b.Finish(), chip)
	e := newLaneEval()
	e.run(ctx.program, noSeed)
	v, ok := e.vals[ctx.get(r).ID]
	if !ok {
		t.Fatalf("result %v was not computed", ctx.get(r))
	}
	return ctx.program, v
}

func TestEval_AddSub64(t *testing.T) {
	tests := []struct {
		a, b uint64
	}{
		{0, 0},
		{0xffffffff, 1},
		{1 << 32, 1},
		{0xffffffffffffffff, 1},
		{0x8000000000000000, 0x8000000000000000},
		{0x123456789abcdef0, 0x0fedcba987654321},
	}
	for _, chip := range []isa.ChipClass{isa.GFX8, isa.GFX9} {
		for _, divergent := range []bool{false, true} {
			for _, tt := range tests {
				for _, sub := range []bool{false, true} {
					op, want := ir.OpIAdd, tt.a+tt.b
					if sub {
						op, want = ir.OpISub, tt.a-tt.b
					}
					_, got := evalResult(t, chip, func(b *ir.Builder) ir.ValueHandle {
						x := b.ConstOf(64, divergent, tt.a)
						y := b.ConstOf(64, divergent, tt.b)
						return b.ALU(op, 64, divergent, x, y)
					})
					if len(got) != 2 || join(got) != want {
						t.Errorf("%v divergent=%v: %#x %v %#x = %#x, want %#x", chip, divergent, tt.a, op, tt.b, got, want)
					}
				}
			}
		}
	}
}

func TestEval_Float32ToInt64(t *testing.T) {
	tests := []struct {
		f      float32
		signed bool
		want   uint64
	}{
		{0, true, 0},
		{0.5, true, 0},
		{1.5, true, 1},
		{-1.5, true, 0xffffffffffffffff},
		{3e9, true, 3000000000},
		{-1e10, true, 0xfffffffdabf41c00},
		{1 << 62, true, 1 << 62},
		{-(1 << 62), true, 0xc000000000000000},
		{1 << 63, true, 0x7fffffffffffffff},
		{1e30, true, 0x7fffffffffffffff},

		{0, false, 0},
		{0.75, false, 0},
		{1.5, false, 1},
		{1 << 24, false, 1 << 24},
		{3 << 24, false, 3 << 24},
		{3e9, false, 3000000000},
		{1e10, false, 10000000000},
		{1 << 63, false, 1 << 63},
		{18446742974197923840, false, 0xffffff0000000000},
		{1 << 64, false, 0xffffffffffffffff},
		{1e30, false, 0xffffffffffffffff},
	}
	for _, tt := range tests {
		op := ir.OpF2U64
		if tt.signed {
			op = ir.OpF2I64
		}
		_, got := evalResult(t, isa.GFX9, func(b *ir.Builder) ir.ValueHandle {
			f := b.ConstOf(32, true, uint64(math.Float32bits(tt.f)))
			return b.ALU(op, 64, true, f)
		})
		if len(got) != 2 || join(got) != tt.want {
			t.Errorf("%v(%g) = %#x, want %#x", op, tt.f, got, tt.want)
		}
	}
}

func TestEval_Float64ToInt64(t *testing.T) {
	signed := []float64{0, 2.7, -2.7, 4294967296.5, -4294967297.9, 1<<62 + 1<<40, -(1 << 62), -1e15 - 0.5, 123456789012.75}
	unsigned := []float64{0, 123.9, 4294967295.99, 1 << 32, 1<<63 + 4096, 1.8e19}
	for _, chip := range []isa.ChipClass{isa.GFX6, isa.GFX9} {
		t.Run(chip.String(), func(t *testing.T) {
			check := func(op ir.ALUOp, x float64, want uint64) {
				t.Helper()
				p, got := evalResult(t, chip, func(b *ir.Builder) ir.ValueHandle {
					f := b.ConstOf(64, true, math.Float64bits(x))
					return b.ALU(op, 64, true, f)
				})
				if len(got) != 2 || join(got) != want {
					t.Errorf("%v(%g) = %#x, want %#x", op, x, got, want)
				}
				if chip == isa.GFX6 && (findOpcode(p, isa.OpVTruncF64) != nil || findOpcode(p, isa.OpVFloorF64) != nil) {
					t.Errorf("%v uses 64-bit rounding instructions the target lacks", op)
				}
			}
			for _, x := range signed {
				check(ir.OpF2I64, x, uint64(int64(x)))
			}
			for _, x := range unsigned {
				check(ir.OpF2U64, x, uint64(x))
			}
		})
	}
}

func TestEval_Int64ToFloat(t *testing.T) {
	values := []uint64{
		0, 1, 0xffffffff, 1 << 32,
		0x8000008000000001, 0x0020000010000001, 0xffffff7fffffffff,
		0x7fffffffffffffff, 0x8000000000000000, 0xffffffffffffffff,
		12345678901234567,
	}
	for _, chip := range []isa.ChipClass{isa.GFX8, isa.GFX9} {
		for _, divergent := range []bool{false, true} {
			for _, v := range values {
				cases := []struct {
					op   ir.ALUOp
					bits uint8
					want []uint32
				}{
					{ir.OpU2F32, 32, []uint32{math.Float32bits(float32(v))}},
					{ir.OpI2F32, 32, []uint32{math.Float32bits(float32(int64(v)))}},
					{ir.OpU2F64, 64, dwords(math.Float64bits(float64(v)))},
					{ir.OpI2F64, 64, dwords(math.Float64bits(float64(int64(v))))},
				}
				for _, c := range cases {
					_, got := evalResult(t, chip, func(b *ir.Builder) ir.ValueHandle {
						x := b.ConstOf(64, divergent, v)
						return b.ALU(c.op, c.bits, true, x)
					})
					if !slices.Equal(got, c.want) {
						t.Errorf("%v divergent=%v: %v(%#x) = %#x, want %#x", chip, divergent, c.op, v, got, c.want)
					}
				}
			}
		}
	}
}
