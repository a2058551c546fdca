package isel

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/wavesel/ir"
	"github.com/gogpu/wavesel/isa"
)

// binaryFunction computes op(x, c) for a uniform or divergent x and a
// constant c, and stores the result.
func binaryFunction(op ir.ALUOp, divergent bool, c uint32) *ir.Function {
	b := ir.NewBuilder("f", ir.StageCompute)
	lid := localID(b)
	x := lid
	if !divergent {
		x = pushConst(b)
	}
	r := b.ALU(op, 32, divergent, x, b.Const(c))
	store(b, r, lid)
	return b.Finish()
}

func TestSelect_ALU(t *testing.T) {
	tests := []struct {
		name      string
		op        ir.ALUOp
		divergent bool
		c         uint32
		chip      isa.ChipClass
		want      []isa.Opcode
		missing   []isa.Opcode
	}{
		{"uniform add", ir.OpIAdd, false, 5, isa.GFX9, []isa.Opcode{isa.OpSAddU32}, []isa.Opcode{isa.OpVAddU32}},
		{"vector add", ir.OpIAdd, true, 5, isa.GFX9, []isa.Opcode{isa.OpVAddU32}, []isa.Opcode{isa.OpVAddCoU32}},
		{"vector add with carry", ir.OpIAdd, true, 5, isa.GFX8, []isa.Opcode{isa.OpVAddCoU32}, nil},
		{"uniform and", ir.OpIAnd, false, 0xff, isa.GFX9, []isa.Opcode{isa.OpSAndB32}, nil},
		{"vector umax", ir.OpUMax, true, 3, isa.GFX9, []isa.Opcode{isa.OpVMaxU32}, nil},
		{"uniform udiv", ir.OpUDiv, false, 3, isa.GFX9, []isa.Opcode{isa.OpSMulHiU32, isa.OpSLshrB32}, []isa.Opcode{isa.OpVMulHiU32}},
		{"uniform udiv without s_mul_hi", ir.OpUDiv, false, 3, isa.GFX8, []isa.Opcode{isa.OpVMulHiU32}, []isa.Opcode{isa.OpSMulHiU32}},
		{"vector udiv", ir.OpUDiv, true, 7, isa.GFX9, []isa.Opcode{isa.OpVMulHiU32, isa.OpVCndmaskB32}, []isa.Opcode{isa.OpSMulHiU32}},
		{"udiv by power of two", ir.OpUDiv, true, 8, isa.GFX9, []isa.Opcode{isa.OpVLshrrevB32}, []isa.Opcode{isa.OpVMulHiU32}},
		{"uniform umod", ir.OpUMod, false, 5, isa.GFX9, []isa.Opcode{isa.OpSMulHiU32, isa.OpSMulI32, isa.OpSSubU32}, nil},
		{"vector umod", ir.OpUMod, true, 5, isa.GFX9, []isa.Opcode{isa.OpVMulHiU32, isa.OpVMulLoU32}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := selectWave(t, binaryFunction(tt.op, tt.divergent, tt.c), tt.chip, 64)
			for _, opc := range tt.want {
				if findOpcode(p, opc) == nil {
					t.Errorf("no %v emitted", opc)
				}
			}
			for _, opc := range tt.missing {
				if findOpcode(p, opc) != nil {
					t.Errorf("unexpected %v", opc)
				}
			}
		})
	}
}

func TestSelect_UniformCompareWritesSCC(t *testing.T) {
	b := ir.NewBuilder("f", ir.StageCompute)
	n := pushConst(b)
	c := b.ALU(ir.OpIEq, 1, false, n, b.Const(1))
	r := b.ALU(ir.OpBcsel, 32, false, c, n, b.Const(9))
	store(b, r, localID(b))
	p := selectFn(t, b.Finish())

	cmp := findOpcode(p, isa.OpSCmpEqI32)
	if cmp == nil {
		t.Fatal("no s_cmp_eq_i32 emitted")
	}
	if cmp.Definitions[0].Fixed != isa.RegSCC {
		t.Errorf("compare defines %v, want scc", cmp.Definitions[0])
	}
	if findOpcode(p, isa.OpSCselectB32) == nil {
		t.Error("uniform select did not use s_cselect_b32")
	}
}

func TestSelect_DivergentCompareIsLaneMask(t *testing.T) {
	b := ir.NewBuilder("f", ir.StageCompute)
	lid := localID(b)
	c := b.ALU(ir.OpIEq, 1, true, lid, b.Const(1))
	r := b.ALU(ir.OpBcsel, 32, true, c, lid, b.Const(9))
	store(b, r, lid)
	p := selectFn(t, b.Finish())

	cmp := findOpcode(p, isa.OpVCmpEqI32)
	if cmp == nil {
		t.Fatal("no v_cmp_eq_i32 emitted")
	}
	if rc := cmp.Definitions[0].RegClass(); rc != p.LaneMask {
		t.Errorf("compare defines %v, want the lane mask %v", rc, p.LaneMask)
	}
	if findOpcode(p, isa.OpVCndmaskB32) == nil {
		t.Error("divergent select did not use v_cndmask_b32")
	}
}

func TestSelect_UDivUnsupported(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *ir.Builder) ir.ValueHandle
	}{
		{"variable divisor", func(b *ir.Builder) ir.ValueHandle {
			n := pushConst(b)
			return b.ALU(ir.OpUDiv, 32, false, n, n)
		}},
		{"64-bit", func(b *ir.Builder) ir.ValueHandle {
			n := b.ConstOf(64, false, 100)
			return b.ALU(ir.OpUDiv, 64, false, n, b.ConstOf(64, false, 3))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ir.NewBuilder("f", ir.StageCompute)
			tt.build(b)
			opts := DefaultOptions()
			_, err := Select(b.Finish(), &opts)
			var ce *CompileError
			if !errors.As(err, &ce) || ce.Kind != ErrUnsupported || ce.Op != "udiv" {
				t.Fatalf("Select error = %v, want unsupported udiv", err)
			}
		})
	}
}

func TestSelect_CommutativeOperandOrder(t *testing.T) {
	tests := []struct {
		name string
		op   ir.ALUOp
		opc  isa.Opcode
		// swapped is the opcode selected when the divergent operand comes
		// first, for operations that are not commutative.
		swapped isa.Opcode
	}{
		{"iadd", ir.OpIAdd, isa.OpVAddU32, isa.OpVAddU32},
		{"iand", ir.OpIAnd, isa.OpVAndB32, isa.OpVAndB32},
		{"ixor", ir.OpIXor, isa.OpVXorB32, isa.OpVXorB32},
		{"umax", ir.OpUMax, isa.OpVMaxU32, isa.OpVMaxU32},
		{"ult", ir.OpULt, isa.OpVCmpLtU32, isa.OpVCmpGtU32},
	}
	build := func(op ir.ALUOp, divergentFirst bool) *ir.Function {
		b := ir.NewBuilder("f", ir.StageCompute)
		lid := localID(b)
		n := pushConst(b)
		a, c := n, lid
		if divergentFirst {
			a, c = lid, n
		}
		bits := uint8(32)
		if op == ir.OpULt {
			bits = 1
		}
		r := b.ALU(op, bits, true, a, c)
		if bits == 1 {
			r = b.ALU(ir.OpBcsel, 32, true, r, lid, b.Const(0))
		}
		store(b, r, lid)
		return b.Finish()
	}
	text := func(p *isa.Program) string {
		var buf bytes.Buffer
		if err := isa.Print(&buf, p); err != nil {
			t.Fatalf("Print failed: %v", err)
		}
		return buf.String()
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, first := range []bool{false, true} {
				p := selectWave(t, build(tt.op, first), isa.GFX9, 64)
				want := tt.opc
				if first {
					want = tt.swapped
				}
				in := findOpcode(p, want)
				if in == nil {
					t.Fatalf("divergent first=%v: no %v emitted", first, want)
				}
				if isVGPR(in.Operands[0]) || !isVGPR(in.Operands[1]) {
					t.Errorf("divergent first=%v: %v has operands %v, want the vector operand second", first, want, in.Operands)
				}
				again := selectWave(t, build(tt.op, first), isa.GFX9, 64)
				if text(p) != text(again) {
					t.Errorf("divergent first=%v: selecting twice gave different programs", first)
				}
			}
		})
	}
}
