package isa

// Builder emits instructions into a block of a program. The zero value is
// not usable; create one with NewBuilder.
type Builder struct {
	Program *Program
	block   *Block
}

// NewBuilder returns a builder appending to block. block may be nil and set
// later with Reset.
func NewBuilder(p *Program, block *Block) *Builder {
	return &Builder{Program: p, block: block}
}

// Reset redirects the builder to append to block.
func (b *Builder) Reset(block *Block) { b.block = block }

// Block returns the block instructions are appended to.
func (b *Builder) Block() *Block { return b.block }

// LaneMask returns the lane mask class of the program.
func (b *Builder) LaneMask() RegClass { return b.Program.LaneMask }

// Tmp allocates a fresh temp of class rc.
func (b *Builder) Tmp(rc RegClass) Temp { return b.Program.AllocateTemp(rc) }

// Def returns a definition of a fresh temp of class rc.
func (b *Builder) Def(rc RegClass) Definition { return Def(b.Tmp(rc)) }

// DefFixed returns a definition of a fresh temp pinned to r.
func (b *Builder) DefFixed(rc RegClass, r PhysReg) Definition {
	return Definition{Temp: b.Tmp(rc), Fixed: r}
}

// DefHint returns a definition of a fresh temp with an allocation hint.
func (b *Builder) DefHint(rc RegClass, r PhysReg) Definition {
	return Definition{Temp: b.Tmp(rc), Hint: r}
}

// SCC returns a definition of the scalar condition code.
func (b *Builder) SCC() Definition { return b.DefFixed(S1, RegSCC) }

// Exec returns an operand reading the exec mask.
func (b *Builder) Exec() Operand { return OperandFixed(RegExec, b.Program.LaneMask) }

// Insert appends in to the current block.
func (b *Builder) Insert(in *Instruction) *Instruction {
	b.block.Append(in)
	b.Program.Stats.Instructions++
	return in
}

// Build emits op in its default format.
func (b *Builder) Build(op Opcode, defs []Definition, ops ...Operand) *Instruction {
	return b.Insert(NewInstruction(op, defs, ops, nil))
}

// BuildPayload emits op in its default format with a payload.
func (b *Builder) BuildPayload(op Opcode, payload Payload, defs []Definition, ops ...Operand) *Instruction {
	return b.Insert(NewInstruction(op, defs, ops, payload))
}

// writesSCC reports whether a scalar ALU opcode defines scc besides its result.
func writesSCC(op Opcode) bool {
	switch op {
	case OpSMovB32, OpSMovB64, OpSBrevB32, OpSBrevB64, OpSFf1I32B32, OpSFf1I32B64,
		OpSFlbitI32B32, OpSFlbitI32B64, OpSFlbitI32, OpSFlbitI32I64, OpSSextI32I8, OpSSextI32I16,
		OpSCselectB32, OpSCselectB64, OpSMulI32, OpSMulHiU32, OpSMulHiI32, OpSBfmB32, OpSBfmB64:
		return false
	}
	f := op.Format()
	return f == FormatSOP1 || f == FormatSOP2
}

// writesCarry reports whether a vector ALU opcode defines a carry or borrow mask.
func writesCarry(op Opcode) bool {
	switch op {
	case OpVAddCoU32, OpVAddcCoU32, OpVSubCoU32, OpVSubbCoU32, OpVSubrevCoU32:
		return true
	}
	return false
}

// Sop1 emits a one-source scalar instruction. Opcodes that write scc get a
// second definition for it.
func (b *Builder) Sop1(op Opcode, dst Definition, src Operand) *Instruction {
	defs := []Definition{dst}
	if writesSCC(op) {
		defs = append(defs, b.SCC())
	}
	return b.Build(op, defs, src)
}

// Sop2 emits a two-source scalar instruction. An optional third operand is
// the scc input of s_addc, s_subb and s_cselect.
func (b *Builder) Sop2(op Opcode, dst Definition, ops ...Operand) *Instruction {
	defs := []Definition{dst}
	if writesSCC(op) {
		defs = append(defs, b.SCC())
	}
	return b.Build(op, defs, ops...)
}

// Sopc emits a scalar compare defining scc.
func (b *Builder) Sopc(op Opcode, a, c Operand) *Instruction {
	return b.Build(op, []Definition{b.SCC()}, a, c)
}

// Sopp emits a program control instruction.
func (b *Builder) Sopp(op Opcode, imm uint16) *Instruction {
	return b.BuildPayload(op, SOPPInfo{Imm: imm}, nil)
}

// Smem emits a scalar memory load.
func (b *Builder) Smem(op Opcode, info SMEMInfo, dst Definition, ops ...Operand) *Instruction {
	return b.BuildPayload(op, info, []Definition{dst}, ops...)
}

// Vop1 emits a one-source vector instruction.
func (b *Builder) Vop1(op Opcode, dst Definition, src Operand) *Instruction {
	return b.Build(op, []Definition{dst}, src)
}

// Vop2 emits a two-source vector instruction. Carry-producing opcodes get a
// lane mask definition hinted to vcc; carry-consuming ones take it as the
// third operand, as does v_cndmask_b32 for its condition.
func (b *Builder) Vop2(op Opcode, dst Definition, ops ...Operand) *Instruction {
	defs := []Definition{dst}
	if writesCarry(op) {
		defs = append(defs, b.DefHint(b.Program.LaneMask, RegVCC))
	}
	return b.Build(op, defs, ops...)
}

// Vop2E emits a VOP2 opcode in the VOP3 encoding, which lifts the operand
// placement restrictions and allows a carry in an arbitrary mask register.
func (b *Builder) Vop2E(op Opcode, dst Definition, ops ...Operand) *Instruction {
	defs := []Definition{dst}
	if writesCarry(op) {
		defs = append(defs, b.Def(b.Program.LaneMask))
	}
	return b.Insert(NewInstructionFormat(op, FormatVOP3, defs, ops, nil))
}

// Vop3 emits a three-source (or VOP3-only) vector instruction.
func (b *Builder) Vop3(op Opcode, dst Definition, ops ...Operand) *Instruction {
	return b.Build(op, []Definition{dst}, ops...)
}

// Vop3Mods emits a VOP3 instruction with input or output modifiers.
func (b *Builder) Vop3Mods(op Opcode, mods VOP3Info, dst Definition, ops ...Operand) *Instruction {
	return b.Insert(NewInstructionFormat(op, FormatVOP3, []Definition{dst}, ops, mods))
}

// Vopc emits a vector compare writing a lane mask, hinted to vcc.
func (b *Builder) Vopc(op Opcode, dst Definition, a, c Operand) *Instruction {
	if dst.Hint == RegNone && dst.Fixed == RegNone {
		dst.Hint = RegVCC
	}
	return b.Build(op, []Definition{dst}, a, c)
}

// VopcE emits a vector compare in the VOP3 encoding.
func (b *Builder) VopcE(op Opcode, dst Definition, a, c Operand) *Instruction {
	return b.Insert(NewInstructionFormat(op, FormatVOP3, []Definition{dst}, []Operand{a, c}, nil))
}

// VopDPP emits a VOP1 or VOP2 instruction whose first operand is permuted
// across lanes.
func (b *Builder) VopDPP(op Opcode, dpp DPPInfo, dst Definition, ops ...Operand) *Instruction {
	return b.BuildPayload(op, dpp, []Definition{dst}, ops...)
}

// DS emits a local data share instruction. dst may be the zero Definition
// for stores.
func (b *Builder) DS(op Opcode, info DSInfo, dst Definition, ops ...Operand) *Instruction {
	return b.BuildPayload(op, info, optDef(dst), ops...)
}

// MUBUF emits a buffer instruction. Operands are rsrc, vaddr, soffset and
// optionally vdata.
func (b *Builder) MUBUF(op Opcode, info MUBUFInfo, dst Definition, ops ...Operand) *Instruction {
	return b.BuildPayload(op, info, optDef(dst), ops...)
}

// Flat emits a flat, global or scratch instruction in op's format.
func (b *Builder) Flat(op Opcode, info FLATInfo, dst Definition, ops ...Operand) *Instruction {
	return b.BuildPayload(op, info, optDef(dst), ops...)
}

// MIMG emits an image instruction. Operands are resource, sampler, vaddr
// and optionally vdata.
func (b *Builder) MIMG(op Opcode, info MIMGInfo, dst Definition, ops ...Operand) *Instruction {
	return b.BuildPayload(op, info, optDef(dst), ops...)
}

// Exp emits an export of four dwords.
func (b *Builder) Exp(info ExportInfo, ops [4]Operand) *Instruction {
	return b.BuildPayload(OpExp, info, nil, ops[:]...)
}

// Branch emits a pseudo branch. Conditional branches take the condition as
// the only operand.
func (b *Builder) Branch(op Opcode, target uint32, cond ...Operand) *Instruction {
	return b.BuildPayload(op, BranchInfo{Target: [2]uint32{target}}, nil, cond...)
}

// Pseudo emits a pseudo instruction with arbitrary operands and definitions.
func (b *Builder) Pseudo(op Opcode, defs []Definition, ops ...Operand) *Instruction {
	return b.Build(op, defs, ops...)
}

// Copy emits a p_parallelcopy from src to dst. Copies between register
// files are legal when dst is divergent.
func (b *Builder) Copy(dst Definition, src Operand) *Instruction {
	return b.Build(OpPParallelCopy, []Definition{dst}, src)
}

// CreateVector emits a p_create_vector concatenating elems into dst.
func (b *Builder) CreateVector(dst Definition, elems ...Operand) *Instruction {
	return b.Build(OpPCreateVector, []Definition{dst}, elems...)
}

// SplitVector emits a p_split_vector of src into defs.
func (b *Builder) SplitVector(defs []Definition, src Operand) *Instruction {
	return b.Build(OpPSplitVector, defs, src)
}

// ExtractVector emits a p_extract_vector of element idx of src.
func (b *Builder) ExtractVector(dst Definition, src Operand, idx uint32) *Instruction {
	return b.Build(OpPExtractVector, []Definition{dst}, src, OperandConst(idx))
}

// AsUniform emits a p_as_uniform asserting that a divergent value holds the
// same value in every active lane.
func (b *Builder) AsUniform(dst Definition, src Operand) *Instruction {
	return b.Build(OpPAsUniform, []Definition{dst}, src)
}

func optDef(d Definition) []Definition {
	if !d.Temp.Valid() {
		return nil
	}
	return []Definition{d}
}
