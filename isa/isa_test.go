package isa

import (
	"strings"
	"testing"
)

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestRegClass_Element(t *testing.T) {
	tests := []struct {
		rc   RegClass
		n    int
		want RegClass
	}{
		{V4, 4, V1},
		{V4, 2, V2},
		{S2, 2, S1},
		{RegClass{Kind: Mask, Size: 2}, 2, S1},
		{S16, 4, S4},
	}
	for _, tt := range tests {
		if got := tt.rc.Element(tt.n); got != tt.want {
			t.Errorf("%v.Element(%d) = %v, want %v", tt.rc, tt.n, got, tt.want)
		}
	}
	expectPanic(t, "v3/2", func() { V3.Element(2) })
}

func TestRegClass_String(t *testing.T) {
	tests := map[RegClass]string{
		S1:                "s1",
		V4:                "v4",
		LaneMaskClass(64): "lm2",
		LaneMaskClass(32): "lm1",
		RegClassNone:      "none",
	}
	for rc, want := range tests {
		if got := rc.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestOperand_Literal(t *testing.T) {
	tests := []struct {
		op   Operand
		want bool
	}{
		{OperandConst(0), false},
		{OperandConst(64), false},
		{OperandConst(65), true},
		{OperandConst(0xfffffff0), false}, // -16
		{OperandConst(0xffffffef), true},  // -17
		{OperandFloat(1.0), false},
		{OperandFloat(-4.0), false},
		{OperandFloat(3.0), true},
		{OperandTemp(Temp{ID: 1, RC: V1}), false},
	}
	for _, tt := range tests {
		if got := tt.op.IsLiteral(); got != tt.want {
			t.Errorf("%v.IsLiteral() = %v, want %v", tt.op, got, tt.want)
		}
	}
}

func TestProgram_AllocateIDsAreUnique(t *testing.T) {
	p := NewProgram(GFX9, 64)
	seen := make(map[uint32]bool)
	for i := 0; i < 100; i++ {
		rc := V1
		if i%2 == 0 {
			rc = S2
		}
		tmp := p.AllocateTemp(rc)
		if !tmp.Valid() {
			t.Fatalf("allocated invalid temp %v", tmp)
		}
		if seen[tmp.ID] {
			t.Fatalf("id %d allocated twice", tmp.ID)
		}
		seen[tmp.ID] = true
		if p.TempClass(tmp.ID) != rc {
			t.Errorf("TempClass(%d) = %v, want %v", tmp.ID, p.TempClass(tmp.ID), rc)
		}
	}
	if p.NumTemps() != 100 {
		t.Errorf("NumTemps() = %d, want 100", p.NumTemps())
	}
	if p.LaneMask != LaneMaskClass(64) {
		t.Errorf("LaneMask = %v, want lm2", p.LaneMask)
	}
}

func TestNewInstruction_ShapeChecked(t *testing.T) {
	v := Temp{ID: 1, RC: V1}
	expectPanic(t, "vop1 with two operands", func() {
		NewInstruction(OpVMovB32, []Definition{Def(v)}, []Operand{OperandTemp(v), OperandTemp(v)}, nil)
	})
	expectPanic(t, "sopc without definitions", func() {
		NewInstruction(OpSCmpEqU32, nil, []Operand{OperandConst(0), OperandConst(1)}, nil)
	})
	expectPanic(t, "payload of wrong format", func() {
		NewInstruction(OpVMovB32, []Definition{Def(v)}, []Operand{OperandTemp(v)}, DSInfo{})
	})
	in := NewInstruction(OpPCreateVector, []Definition{Def(Temp{ID: 2, RC: V4})},
		[]Operand{OperandTemp(v), OperandTemp(v), OperandTemp(v), OperandTemp(v)}, nil)
	if len(in.Operands) != 4 {
		t.Errorf("pseudo create_vector lost operands")
	}
}

func TestBuilder_ImplicitDefinitions(t *testing.T) {
	p := NewProgram(GFX9, 64)
	b := NewBuilder(p, p.CreateAndInsertBlock())

	add := b.Sop2(OpSAddU32, b.Def(S1), OperandConst(1), OperandConst(2))
	if len(add.Definitions) != 2 || add.Definitions[1].Fixed != RegSCC {
		t.Errorf("s_add_u32 should define scc, got %v", add)
	}
	csel := b.Sop2(OpSCselectB32, b.Def(S1), OperandConst(1), OperandConst(2), OperandTemp(add.Def(1)))
	if len(csel.Definitions) != 1 {
		t.Errorf("s_cselect_b32 should not define scc, got %v", csel)
	}
	co := b.Vop2(OpVAddCoU32, b.Def(V1), OperandConst(1), OperandTemp(b.Tmp(V1)))
	if len(co.Definitions) != 2 || co.Definitions[1].Hint != RegVCC || co.Def(1).RC != p.LaneMask {
		t.Errorf("v_add_co_u32 should define a vcc-hinted carry, got %v", co)
	}
	cmp := b.Vopc(OpVCmpLtF32, b.Def(p.LaneMask), OperandConst(0), OperandTemp(b.Tmp(V1)))
	if cmp.Definitions[0].Hint != RegVCC {
		t.Errorf("vopc should be hinted to vcc")
	}
	if got := len(b.Block().Instructions); got != 4 {
		t.Errorf("block has %d instructions, want 4", got)
	}
	if p.Stats.Instructions != 4 {
		t.Errorf("Stats.Instructions = %d, want 4", p.Stats.Instructions)
	}
}

func TestBlock_InsertPhi(t *testing.T) {
	p := NewProgram(GFX9, 32)
	blk := p.CreateAndInsertBlock()
	b := NewBuilder(p, blk)
	b.Copy(b.Def(V1), OperandConst(0))
	phi1 := NewInstruction(OpPPhi, []Definition{b.Def(V1)}, []Operand{OperandConst(1), OperandConst(2)}, nil)
	phi2 := NewInstruction(OpPLinearPhi, []Definition{b.Def(S1)}, []Operand{OperandConst(1), OperandConst(2)}, nil)
	blk.InsertPhi(phi1)
	blk.InsertPhi(phi2)
	if blk.Instructions[0] != phi1 || blk.Instructions[1] != phi2 {
		t.Fatalf("phis not inserted in order at block start: %v", blk.Instructions)
	}
	if len(blk.Phis()) != 2 {
		t.Errorf("Phis() = %d, want 2", len(blk.Phis()))
	}
}

func TestProgram_ComputeSuccessors(t *testing.T) {
	p := NewProgram(GFX10, 32)
	b0 := p.CreateAndInsertBlock()
	b1 := p.CreateAndInsertBlock()
	b2 := p.CreateAndInsertBlock()
	b3 := p.CreateAndInsertBlock()
	b1.AddEdge(b0.Index)
	b2.AddLinearPred(b0.Index)
	b3.AddEdge(b1.Index)
	b3.AddLinearPred(b2.Index)
	b3.AddLogicalPred(b0.Index)
	p.ComputeSuccessors()

	if got := joinIndices(b0.LogicalSuccs); got != "BB1, BB3" {
		t.Errorf("BB0 logical succs = %s", got)
	}
	if got := joinIndices(b0.LinearSuccs); got != "BB1, BB2" {
		t.Errorf("BB0 linear succs = %s", got)
	}
	if len(b2.LogicalSuccs) != 0 {
		t.Errorf("BB2 must not have logical succs")
	}

	logical := p.Reachable(false)
	linear := p.Reachable(true)
	for i := range logical {
		if logical[i] && !linear[i] {
			t.Errorf("BB%d reachable logically but not linearly", i)
		}
	}
	if logical[2] {
		t.Errorf("BB2 should be unreachable in the logical CFG")
	}
}

func TestOpcode_Names(t *testing.T) {
	tests := map[Opcode]string{
		OpSAddU32:        "s_add_u32",
		OpVCmpNeqF32:     "v_cmp_neq_f32",
		OpImageSampleCDO: "image_sample_c_d_o",
		OpPLinearPhi:     "p_linear_phi",

		AtomicOpcode(AtomicFamilyDSReturn, AtomicAdd, false): "ds_add_rtn_b32",
		AtomicOpcode(AtomicFamilyDS, AtomicCmpSwap, true):    "ds_cmpswap_b64",
		AtomicOpcode(AtomicFamilyBuffer, AtomicUMax, true):   "buffer_atomic_umax_x2",
		AtomicOpcode(AtomicFamilyGlobal, AtomicSwap, false):  "global_atomic_swap",
		AtomicOpcode(AtomicFamilyImage, AtomicXor, false):    "image_atomic_xor",
	}
	for op, want := range tests {
		if got := op.String(); got != want {
			t.Errorf("Opcode(%d).String() = %q, want %q", op, got, want)
		}
	}
	if f := AtomicOpcode(AtomicFamilyFlat, AtomicAdd, false).Format(); f != FormatFLAT {
		t.Errorf("flat atomic format = %v", f)
	}
	if !AtomicOpcode(AtomicFamilyBuffer, AtomicAdd, false).IsAtomic() || OpBufferLoadDword.IsAtomic() {
		t.Errorf("IsAtomic mismatch")
	}
}

func TestPrint(t *testing.T) {
	p := NewProgram(GFX9, 64)
	blk := p.CreateAndInsertBlock()
	blk.Kind = BlockTopLevel | BlockUniform
	b := NewBuilder(p, blk)
	v := b.Vop1(OpVMovB32, b.Def(V1), OperandConst(7)).Def(0)
	b.MUBUF(OpBufferStoreDword, MUBUFInfo{Offset: 16, GLC: true}, Definition{},
		OperandTemp(b.Tmp(S4)), OperandUndef(V1), OperandConst(0), OperandTemp(v))
	b.Sopp(OpSEndpgm, 0)
	p.MarkWQM()

	out := Sprint(p)
	for _, want := range []string{
		"; gfx9 wave64",
		"BB0:",
		"kind: uniform,top_level",
		"%1:v1 = v_mov_b32 0x7",
		"buffer_store_dword %2:s4, undef:v1, 0x0, %1:v1 offset:16 glc",
		"s_endpgm",
		"; flags: wqm",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}
