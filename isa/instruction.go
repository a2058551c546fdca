package isa

import (
	"fmt"
	"strings"
)

// Instruction is one target instruction. The Payload, when present, must
// belong to Format. Instructions are not mutated after insertion into a
// block, except for phi operands and branch targets, which are filled in once
// the CFG is complete.
type Instruction struct {
	Opcode      Opcode
	Format      Format
	Operands    []Operand
	Definitions []Definition
	Payload     Payload
}

// NewInstruction creates an instruction using the opcode's default format.
// It panics if the operand or definition counts do not fit the format.
func NewInstruction(op Opcode, defs []Definition, ops []Operand, payload Payload) *Instruction {
	return NewInstructionFormat(op, op.Format(), defs, ops, payload)
}

// NewInstructionFormat creates an instruction with an explicit format, used
// for VOP3 encodings of VOP1/VOP2/VOPC opcodes.
func NewInstructionFormat(op Opcode, f Format, defs []Definition, ops []Operand, payload Payload) *Instruction {
	checkShape(op, f, len(ops), len(defs))
	checkPayload(op, f, payload)
	return &Instruction{
		Opcode:      op,
		Format:      f,
		Operands:    ops,
		Definitions: defs,
		Payload:     payload,
	}
}

// Def returns the temp defined by the i-th definition.
func (in *Instruction) Def(i int) Temp {
	return in.Definitions[i].Temp
}

// Op returns the i-th operand.
func (in *Instruction) Op(i int) Operand {
	return in.Operands[i]
}

// IsPhi reports whether the instruction is a phi.
func (in *Instruction) IsPhi() bool { return in.Opcode.IsPhi() }

// IsBranch reports whether the instruction is a pseudo branch.
func (in *Instruction) IsBranch() bool { return in.Format == FormatPseudoBranch }

// String formats the instruction in assembler-like syntax:
//
//	%3:v1 = v_add_f32 %1:v1, %2:s1
func (in *Instruction) String() string {
	var sb strings.Builder
	for i, d := range in.Definitions {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.String())
	}
	if len(in.Definitions) > 0 {
		sb.WriteString(" = ")
	}
	sb.WriteString(in.Opcode.String())
	if in.Format != in.Opcode.Format() {
		fmt.Fprintf(&sb, "(%v)", in.Format)
	}
	for i, o := range in.Operands {
		if i == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(o.String())
	}
	if s := payloadString(in.Payload); s != "" {
		sb.WriteByte(' ')
		sb.WriteString(s)
	}
	return sb.String()
}

func payloadString(p Payload) string {
	var parts []string
	flag := func(set bool, name string) {
		if set {
			parts = append(parts, name)
		}
	}
	switch p := p.(type) {
	case nil:
		return ""
	case SOPPInfo:
		if p.Imm != 0 {
			parts = append(parts, fmt.Sprintf("imm:%d", p.Imm))
		}
	case SMEMInfo:
		flag(p.GLC, "glc")
		flag(p.DLC, "dlc")
		flag(p.CanReorder, "reorder")
	case MUBUFInfo:
		if p.Offset != 0 {
			parts = append(parts, fmt.Sprintf("offset:%d", p.Offset))
		}
		flag(p.Offen, "offen")
		flag(p.Idxen, "idxen")
		flag(p.GLC, "glc")
		flag(p.SLC, "slc")
		flag(p.DLC, "dlc")
		flag(p.CanReorder, "reorder")
	case DSInfo:
		if p.Offset0 != 0 {
			parts = append(parts, fmt.Sprintf("offset0:%d", p.Offset0))
		}
		if p.Offset1 != 0 {
			parts = append(parts, fmt.Sprintf("offset1:%d", p.Offset1))
		}
		flag(p.GDS, "gds")
	case FLATInfo:
		if p.Offset != 0 {
			parts = append(parts, fmt.Sprintf("offset:%d", p.Offset))
		}
		flag(p.GLC, "glc")
		flag(p.SLC, "slc")
		flag(p.DLC, "dlc")
		flag(p.CanReorder, "reorder")
	case MIMGInfo:
		parts = append(parts, fmt.Sprintf("dmask:0x%x", p.DMask), fmt.Sprintf("dim:%d", p.Dim))
		flag(p.DA, "da")
		flag(p.Unrm, "unrm")
		flag(p.GLC, "glc")
		flag(p.SLC, "slc")
		flag(p.DLC, "dlc")
		flag(p.TFE, "tfe")
		flag(p.LWE, "lwe")
		flag(p.D16, "d16")
		flag(p.CanReorder, "reorder")
	case ExportInfo:
		parts = append(parts, fmt.Sprintf("en:0x%x", p.Enabled), fmt.Sprintf("target:%d", p.Target))
		flag(p.Compressed, "compr")
		flag(p.Done, "done")
		flag(p.ValidMask, "vm")
	case BranchInfo:
		parts = append(parts, fmt.Sprintf("BB%d", p.Target[0]))
		if p.Target[1] != 0 {
			parts = append(parts, fmt.Sprintf("BB%d", p.Target[1]))
		}
	case VOP3Info:
		for i := range p.Abs {
			flag(p.Abs[i], fmt.Sprintf("abs%d", i))
			flag(p.Neg[i], fmt.Sprintf("neg%d", i))
		}
		flag(p.Clamp, "clamp")
		if p.Omod != 0 {
			parts = append(parts, fmt.Sprintf("omod:%d", p.Omod))
		}
		if p.Opsel != 0 {
			parts = append(parts, fmt.Sprintf("opsel:%d", p.Opsel))
		}
	case DPPInfo:
		parts = append(parts, fmt.Sprintf("dpp:0x%x", p.Ctrl))
		flag(p.BoundCtrl, "bound_ctrl")
	case ReductionInfo:
		parts = append(parts, fmt.Sprintf("%v%d", p.Op, p.BitSize))
		if p.ClusterSize != 0 {
			parts = append(parts, fmt.Sprintf("cluster:%d", p.ClusterSize))
		}
	}
	return strings.Join(parts, " ")
}
