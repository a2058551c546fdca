package isa

import "fmt"

// Format is the encoding family of an instruction.
type Format uint8

const (
	FormatPseudo Format = iota
	FormatPseudoBranch
	FormatPseudoBarrier
	FormatPseudoReduction
	FormatSOP1
	FormatSOP2
	FormatSOPK
	FormatSOPC
	FormatSOPP
	FormatSMEM
	FormatVOP1
	FormatVOP2
	FormatVOPC
	FormatVOP3
	FormatVOP3P
	FormatDS
	FormatMUBUF
	FormatMTBUF
	FormatMIMG
	FormatEXP
	FormatFLAT
	FormatGLOBAL
	FormatSCRATCH
)

var formatNames = [...]string{
	FormatPseudo:          "pseudo",
	FormatPseudoBranch:    "pseudo_branch",
	FormatPseudoBarrier:   "pseudo_barrier",
	FormatPseudoReduction: "pseudo_reduction",
	FormatSOP1:            "sop1",
	FormatSOP2:            "sop2",
	FormatSOPK:            "sopk",
	FormatSOPC:            "sopc",
	FormatSOPP:            "sopp",
	FormatSMEM:            "smem",
	FormatVOP1:            "vop1",
	FormatVOP2:            "vop2",
	FormatVOPC:            "vopc",
	FormatVOP3:            "vop3",
	FormatVOP3P:           "vop3p",
	FormatDS:              "ds",
	FormatMUBUF:           "mubuf",
	FormatMTBUF:           "mtbuf",
	FormatMIMG:            "mimg",
	FormatEXP:             "exp",
	FormatFLAT:            "flat",
	FormatGLOBAL:          "global",
	FormatSCRATCH:         "scratch",
}

// String implements fmt.Stringer.
func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// IsVALU reports whether the format is a vector ALU encoding.
func (f Format) IsVALU() bool {
	switch f {
	case FormatVOP1, FormatVOP2, FormatVOPC, FormatVOP3, FormatVOP3P:
		return true
	}
	return false
}

// IsSALU reports whether the format is a scalar ALU encoding.
func (f Format) IsSALU() bool {
	switch f {
	case FormatSOP1, FormatSOP2, FormatSOPK, FormatSOPC, FormatSOPP:
		return true
	}
	return false
}

// IsMemory reports whether the format accesses memory.
func (f Format) IsMemory() bool {
	switch f {
	case FormatSMEM, FormatDS, FormatMUBUF, FormatMTBUF, FormatMIMG, FormatFLAT, FormatGLOBAL, FormatSCRATCH:
		return true
	}
	return false
}

// shape bounds the operand and definition counts of a format.
type shape struct {
	minOps, maxOps   int
	minDefs, maxDefs int
}

const unbounded = -1

var formatShapes = [...]shape{
	FormatPseudo:          {0, unbounded, 0, unbounded},
	FormatPseudoBranch:    {0, 1, 0, 0},
	FormatPseudoBarrier:   {0, 0, 0, 0},
	FormatPseudoReduction: {1, 3, 1, 4},
	FormatSOP1:            {0, 2, 1, 2},
	FormatSOP2:            {2, 3, 1, 2},
	FormatSOPK:            {0, 1, 1, 1},
	FormatSOPC:            {2, 2, 1, 1},
	FormatSOPP:            {0, 1, 0, 0},
	FormatSMEM:            {1, 3, 0, 1},
	FormatVOP1:            {1, 1, 1, 1},
	FormatVOP2:            {2, 3, 1, 2},
	FormatVOPC:            {2, 2, 1, 1},
	FormatVOP3:            {1, 3, 1, 2},
	FormatVOP3P:           {1, 3, 1, 1},
	FormatDS:              {1, 4, 0, 1},
	FormatMUBUF:           {3, 5, 0, 1},
	FormatMTBUF:           {3, 4, 0, 1},
	FormatMIMG:            {2, 4, 0, 1},
	FormatEXP:             {4, 4, 0, 0},
	FormatFLAT:            {1, 3, 0, 1},
	FormatGLOBAL:          {1, 3, 0, 1},
	FormatSCRATCH:         {1, 3, 0, 1},
}

// checkShape panics if the operand or definition counts do not fit the format.
func checkShape(op Opcode, f Format, nops, ndefs int) {
	if int(f) >= len(formatShapes) {
		panic(fmt.Sprintf("%v: unknown format %v", op, f))
	}
	s := formatShapes[f]
	if nops < s.minOps || (s.maxOps != unbounded && nops > s.maxOps) {
		panic(fmt.Sprintf("%v: format %v takes %s operands, got %d", op, f, bounds(s.minOps, s.maxOps), nops))
	}
	if ndefs < s.minDefs || (s.maxDefs != unbounded && ndefs > s.maxDefs) {
		panic(fmt.Sprintf("%v: format %v takes %s definitions, got %d", op, f, bounds(s.minDefs, s.maxDefs), ndefs))
	}
}

func bounds(lo, hi int) string {
	switch {
	case hi == unbounded:
		return fmt.Sprintf("at least %d", lo)
	case lo == hi:
		return fmt.Sprintf("%d", lo)
	default:
		return fmt.Sprintf("%d..%d", lo, hi)
	}
}

// Payload carries the format-specific fields of an instruction.
// The set of payloads is closed; each one belongs to one or more formats.
type Payload interface {
	payload()
	formats() []Format
}

// SOPPInfo is the immediate of a SOPP instruction.
type SOPPInfo struct {
	Imm uint16
}

func (SOPPInfo) payload()          {}
func (SOPPInfo) formats() []Format { return []Format{FormatSOPP} }

// SMEMInfo holds scalar memory cache-control flags.
type SMEMInfo struct {
	GLC bool
	DLC bool
	// CanReorder allows the load to move across stores.
	CanReorder bool
}

func (SMEMInfo) payload()          {}
func (SMEMInfo) formats() []Format { return []Format{FormatSMEM} }

// MUBUFInfo holds buffer addressing and cache-control fields.
type MUBUFInfo struct {
	Offset     uint16
	Offen      bool
	Idxen      bool
	GLC        bool
	SLC        bool
	DLC        bool
	CanReorder bool
}

func (MUBUFInfo) payload()          {}
func (MUBUFInfo) formats() []Format { return []Format{FormatMUBUF, FormatMTBUF} }

// DSInfo holds local data share offsets. Paired instructions use both
// offsets, counted in elements; others use Offset0 in bytes.
type DSInfo struct {
	Offset0 uint16
	Offset1 uint8
	GDS     bool
}

func (DSInfo) payload()          {}
func (DSInfo) formats() []Format { return []Format{FormatDS} }

// FLATInfo holds the immediate offset and cache-control flags of flat,
// global and scratch instructions.
type FLATInfo struct {
	Offset     int16
	GLC        bool
	SLC        bool
	DLC        bool
	CanReorder bool
}

func (FLATInfo) payload()          {}
func (FLATInfo) formats() []Format { return []Format{FormatFLAT, FormatGLOBAL, FormatSCRATCH} }

// ImageDim is the hardware dimensionality of an image access.
type ImageDim uint8

const (
	ImageDim1D ImageDim = iota
	ImageDim2D
	ImageDim3D
	ImageDimCube
	ImageDim1DArray
	ImageDim2DArray
	ImageDim2DMSAA
	ImageDim2DArrayMSAA
)

// MIMGInfo holds image instruction fields.
type MIMGInfo struct {
	DMask uint8
	Dim   ImageDim
	// DA marks an arrayed access on chips without Dim.
	DA         bool
	Unrm       bool
	GLC        bool
	SLC        bool
	DLC        bool
	TFE        bool
	LWE        bool
	D16        bool
	CanReorder bool
}

func (MIMGInfo) payload()          {}
func (MIMGInfo) formats() []Format { return []Format{FormatMIMG} }

// ExportTarget identifies an export destination.
type ExportTarget uint8

// Export targets.
const (
	ExportMRT0 ExportTarget = 0
	ExportMRTZ ExportTarget = 8
	ExportNull ExportTarget = 9
	ExportPos0 ExportTarget = 12
)

// ExportInfo holds the fields of an exp instruction.
type ExportInfo struct {
	Enabled    uint8
	Target     ExportTarget
	Compressed bool
	Done       bool
	ValidMask  bool
}

func (ExportInfo) payload()          {}
func (ExportInfo) formats() []Format { return []Format{FormatEXP} }

// BranchInfo holds the targets of a pseudo branch as block indices.
// Target[1] is the fallthrough block of a conditional branch.
type BranchInfo struct {
	Target [2]uint32
}

func (BranchInfo) payload()          {}
func (BranchInfo) formats() []Format { return []Format{FormatPseudoBranch} }

// VOP3Info holds the input and output modifiers of a VOP3 instruction.
type VOP3Info struct {
	Abs   [3]bool
	Neg   [3]bool
	Clamp bool
	// Omod: 0 none, 1 *2, 2 *4, 3 /2.
	Omod  uint8
	Opsel uint8
}

func (VOP3Info) payload()          {}
func (VOP3Info) formats() []Format { return []Format{FormatVOP3, FormatVOP3P, FormatVOPC} }

// DPPInfo holds a data-parallel-primitive lane permutation applied to the
// first operand of a VOP1 or VOP2 instruction.
type DPPInfo struct {
	Ctrl      uint16
	RowMask   uint8
	BankMask  uint8
	BoundCtrl bool
}

func (DPPInfo) payload()          {}
func (DPPInfo) formats() []Format { return []Format{FormatVOP1, FormatVOP2} }

// DPP control values.
const (
	dppQuadPermBase uint16 = 0x000
	DPPRowShl1      uint16 = 0x101
	DPPRowShr1      uint16 = 0x111
)

// DPPQuadPerm returns the DPP control that permutes the lanes of every quad.
func DPPQuadPerm(l0, l1, l2, l3 uint8) uint16 {
	return dppQuadPermBase | uint16(l0&3) | uint16(l1&3)<<2 | uint16(l2&3)<<4 | uint16(l3&3)<<6
}

// ReduceOp is the operation of a reduction or scan.
type ReduceOp uint8

const (
	ReduceIAdd ReduceOp = iota
	ReduceIMul
	ReduceFAdd
	ReduceFMul
	ReduceIMin
	ReduceUMin
	ReduceFMin
	ReduceIMax
	ReduceUMax
	ReduceFMax
	ReduceAnd
	ReduceOr
	ReduceXor
)

var reduceOpNames = [...]string{
	"iadd", "imul", "fadd", "fmul", "imin", "umin", "fmin", "imax", "umax", "fmax", "iand", "ior", "ixor",
}

// String implements fmt.Stringer.
func (r ReduceOp) String() string {
	if int(r) < len(reduceOpNames) {
		return reduceOpNames[r]
	}
	return fmt.Sprintf("ReduceOp(%d)", uint8(r))
}

// ReductionInfo describes a p_reduce or scan. BitSize is 32 or 64;
// ClusterSize 0 means the whole wave.
type ReductionInfo struct {
	Op          ReduceOp
	BitSize     uint8
	ClusterSize uint32
}

func (ReductionInfo) payload()          {}
func (ReductionInfo) formats() []Format { return []Format{FormatPseudoReduction} }

func checkPayload(op Opcode, f Format, p Payload) {
	if p == nil {
		return
	}
	for _, allowed := range p.formats() {
		if allowed == f {
			return
		}
	}
	panic(fmt.Sprintf("%v: payload %T does not belong to format %v", op, p, f))
}
