package ir

import "fmt"

// Instr is an instruction of a Block.
type Instr interface {
	instr()
}

// ALUSrc is an ALU source: a value plus the component each destination
// component reads.
type ALUSrc struct {
	Value   ValueHandle
	Swizzle [4]uint8
}

// Src returns an ALU source reading v with the identity swizzle.
func Src(v ValueHandle) ALUSrc {
	return ALUSrc{Value: v, Swizzle: [4]uint8{0, 1, 2, 3}}
}

// SrcComp returns an ALU source reading component c of v.
func SrcComp(v ValueHandle, c uint8) ALUSrc {
	return ALUSrc{Value: v, Swizzle: [4]uint8{c, c, c, c}}
}

// ALU is an arithmetic, logic, conversion or comparison operation.
// Apart from Mov and the Vec ops, the destination has one component.
type ALU struct {
	Op   ALUOp
	Dest ValueHandle
	Srcs []ALUSrc
	// Exact forbids reassociation of float math.
	Exact bool
}

func (*ALU) instr() {}

// LoadConst defines a constant. Values holds one entry per component.
type LoadConst struct {
	Dest   ValueHandle
	Values []uint64
}

func (*LoadConst) instr() {}

// Undef defines an undefined value.
type Undef struct {
	Dest ValueHandle
}

func (*Undef) instr() {}

// PhiSrc is the value flowing into a phi from predecessor block Pred.
type PhiSrc struct {
	Pred  uint32
	Value ValueHandle
}

// Phi merges values at the start of a block.
type Phi struct {
	Dest ValueHandle
	Srcs []PhiSrc
}

func (*Phi) instr() {}

// JumpKind distinguishes break and continue.
type JumpKind uint8

const (
	JumpBreak JumpKind = iota
	JumpContinue
)

// String returns the jump name.
func (k JumpKind) String() string {
	if k == JumpContinue {
		return "continue"
	}
	return "break"
}

// Jump leaves the current loop iteration.
type Jump struct {
	Kind JumpKind
}

func (*Jump) instr() {}

// ALUOp enumerates ALU operations.
type ALUOp uint8

const (
	OpMov ALUOp = iota
	OpVec2
	OpVec3
	OpVec4

	OpINot
	OpIAnd
	OpIOr
	OpIXor
	OpINeg
	OpIAbs
	OpISign
	OpFNeg
	OpFAbs
	OpFSign
	OpFSat

	OpIAdd
	OpISub
	OpUAddCarry
	OpUSubBorrow
	OpIMul
	OpIMulHigh
	OpUMulHigh
	OpUDiv
	OpUMod

	OpIShl
	OpIShr
	OpUShr

	OpIMin
	OpIMax
	OpUMin
	OpUMax
	OpFMin
	OpFMax
	OpIMin3
	OpIMax3
	OpIMed3
	OpUMin3
	OpUMax3
	OpUMed3
	OpFMin3
	OpFMax3
	OpFMed3

	OpFAdd
	OpFSub
	OpFMul
	OpFFma

	OpFRcp
	OpFRsq
	OpFSqrt
	OpFLog2
	OpFExp2
	OpFSin
	OpFCos
	OpFFract
	OpFFloor
	OpFCeil
	OpFTrunc
	OpFRoundEven
	OpFLdexp
	OpFrexpExp
	OpFrexpSig

	OpF2F16
	OpF2F32
	OpF2F64
	OpI2F32
	OpU2F32
	OpI2F64
	OpU2F64
	OpF2I32
	OpF2U32
	OpF2I64
	OpF2U64
	OpI2I
	OpU2U
	OpB2F32
	OpB2F64
	OpB2I32
	OpB2I64
	OpF2B
	OpI2B

	OpBitfieldReverse
	OpBitCount
	OpFindLSB
	OpUFindMSB
	OpIFindMSB
	OpUBfe
	OpIBfe
	OpBitfieldInsert
	OpBfm

	OpFEq
	OpFNeu
	OpFLt
	OpFGe
	OpIEq
	OpINe
	OpILt
	OpIGe
	OpULt
	OpUGe

	OpBcsel

	OpFDdx
	OpFDdy
	OpFDdxFine
	OpFDdyFine
	OpFDdxCoarse
	OpFDdyCoarse

	aluOpCount
)

var aluOpNames = [aluOpCount]string{
	OpMov: "mov", OpVec2: "vec2", OpVec3: "vec3", OpVec4: "vec4",

	OpINot: "inot", OpIAnd: "iand", OpIOr: "ior", OpIXor: "ixor",
	OpINeg: "ineg", OpIAbs: "iabs", OpISign: "isign",
	OpFNeg: "fneg", OpFAbs: "fabs", OpFSign: "fsign", OpFSat: "fsat",

	OpIAdd: "iadd", OpISub: "isub", OpUAddCarry: "uadd_carry", OpUSubBorrow: "usub_borrow",
	OpIMul: "imul", OpIMulHigh: "imul_high", OpUMulHigh: "umul_high",
	OpUDiv: "udiv", OpUMod: "umod",

	OpIShl: "ishl", OpIShr: "ishr", OpUShr: "ushr",

	OpIMin: "imin", OpIMax: "imax", OpUMin: "umin", OpUMax: "umax", OpFMin: "fmin", OpFMax: "fmax",
	OpIMin3: "imin3", OpIMax3: "imax3", OpIMed3: "imed3",
	OpUMin3: "umin3", OpUMax3: "umax3", OpUMed3: "umed3",
	OpFMin3: "fmin3", OpFMax3: "fmax3", OpFMed3: "fmed3",

	OpFAdd: "fadd", OpFSub: "fsub", OpFMul: "fmul", OpFFma: "ffma",

	OpFRcp: "frcp", OpFRsq: "frsq", OpFSqrt: "fsqrt", OpFLog2: "flog2", OpFExp2: "fexp2",
	OpFSin: "fsin", OpFCos: "fcos", OpFFract: "ffract",
	OpFFloor: "ffloor", OpFCeil: "fceil", OpFTrunc: "ftrunc", OpFRoundEven: "fround_even",
	OpFLdexp: "ldexp", OpFrexpExp: "frexp_exp", OpFrexpSig: "frexp_sig",

	OpF2F16: "f2f16", OpF2F32: "f2f32", OpF2F64: "f2f64",
	OpI2F32: "i2f32", OpU2F32: "u2f32", OpI2F64: "i2f64", OpU2F64: "u2f64",
	OpF2I32: "f2i32", OpF2U32: "f2u32", OpF2I64: "f2i64", OpF2U64: "f2u64",
	OpI2I: "i2i", OpU2U: "u2u",
	OpB2F32: "b2f32", OpB2F64: "b2f64", OpB2I32: "b2i32", OpB2I64: "b2i64",
	OpF2B: "f2b", OpI2B: "i2b",

	OpBitfieldReverse: "bitfield_reverse", OpBitCount: "bit_count",
	OpFindLSB: "find_lsb", OpUFindMSB: "ufind_msb", OpIFindMSB: "ifind_msb",
	OpUBfe: "ubfe", OpIBfe: "ibfe", OpBitfieldInsert: "bitfield_insert", OpBfm: "bfm",

	OpFEq: "feq", OpFNeu: "fneu", OpFLt: "flt", OpFGe: "fge",
	OpIEq: "ieq", OpINe: "ine", OpILt: "ilt", OpIGe: "ige", OpULt: "ult", OpUGe: "uge",

	OpBcsel: "bcsel",

	OpFDdx: "fddx", OpFDdy: "fddy", OpFDdxFine: "fddx_fine", OpFDdyFine: "fddy_fine",
	OpFDdxCoarse: "fddx_coarse", OpFDdyCoarse: "fddy_coarse",
}

// String returns the operation name.
func (op ALUOp) String() string {
	if op < aluOpCount {
		return aluOpNames[op]
	}
	return fmt.Sprintf("ALUOp(%d)", uint8(op))
}

// NumSrcs returns the number of sources the operation takes.
func (op ALUOp) NumSrcs() int {
	switch op {
	case OpVec2:
		return 2
	case OpVec3, OpIMin3, OpIMax3, OpIMed3, OpUMin3, OpUMax3, OpUMed3, OpFMin3, OpFMax3, OpFMed3,
		OpFFma, OpUBfe, OpIBfe, OpBcsel:
		return 3
	case OpVec4, OpBitfieldInsert:
		return 4
	case OpIAnd, OpIOr, OpIXor, OpIAdd, OpISub, OpUAddCarry, OpUSubBorrow, OpIMul, OpIMulHigh,
		OpUMulHigh, OpUDiv, OpUMod, OpIShl, OpIShr, OpUShr, OpIMin, OpIMax, OpUMin, OpUMax,
		OpFMin, OpFMax, OpFAdd, OpFSub, OpFMul, OpFLdexp, OpBfm,
		OpFEq, OpFNeu, OpFLt, OpFGe, OpIEq, OpINe, OpILt, OpIGe, OpULt, OpUGe:
		return 2
	}
	return 1
}

// IsComparison reports whether the operation produces a boolean from two
// numeric sources.
func (op ALUOp) IsComparison() bool {
	return op >= OpFEq && op <= OpUGe
}

// Access is a bitset of memory access qualifiers.
type Access uint8

const (
	AccessCoherent Access = 1 << iota
	AccessVolatile
	AccessNonReadable
	AccessNonWritable
	// AccessCanReorder allows the access to move across other memory accesses.
	AccessCanReorder
)

// AtomicOp is the operation of an atomic intrinsic.
type AtomicOp uint8

const (
	AtomicAdd AtomicOp = iota
	AtomicSub
	AtomicIMin
	AtomicUMin
	AtomicIMax
	AtomicUMax
	AtomicAnd
	AtomicOr
	AtomicXor
	AtomicExchange
	AtomicCompSwap
)

// ReduceOp is the combining operation of a subgroup reduction.
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
	ReduceIAnd
	ReduceIOr
	ReduceIXor
)

// ImageDimension represents image dimensions.
type ImageDimension uint8

const (
	Dim1D ImageDimension = iota
	Dim2D
	Dim3D
	DimCube
	DimMS
	DimBuffer
)

// Resource names a descriptor by set and binding.
type Resource struct {
	Set     uint32
	Binding uint32
}

// ImageRef names an image descriptor and its shape.
type ImageRef struct {
	Resource
	Dim     ImageDimension
	IsArray bool
}

// Intrinsic is a memory, image, control or cross-lane operation.
// Srcs is interpreted per Op; see the IntrinsicOp documentation.
type Intrinsic struct {
	Op   IntrinsicOp
	Dest ValueHandle
	Srcs []ValueHandle

	// Base is a constant byte offset, a push constant base or a quad lane.
	Base  uint32
	Range uint32
	Align uint32
	// WriteMask selects the components written by a store.
	WriteMask uint8
	Access    Access

	Atomic      AtomicOp
	Reduce      ReduceOp
	ClusterSize uint32

	// Resource of VulkanResourceIndex.
	Resource Resource
	// Image of image intrinsics.
	Image ImageRef
}

func (*Intrinsic) instr() {}

// IntrinsicOp enumerates intrinsics. The sources of each are listed after
// the name.
type IntrinsicOp uint8

const (
	// LoadPushConstant: offset. Base is added to offset.
	LoadPushConstant IntrinsicOp = iota
	// VulkanResourceIndex: array index. Produces a buffer descriptor address.
	VulkanResourceIndex
	// LoadUBO: descriptor, offset.
	LoadUBO
	// LoadSSBO: descriptor, offset.
	LoadSSBO
	// StoreSSBO: data, descriptor, offset.
	StoreSSBO
	// SSBOAtomic: descriptor, offset, data[, compare].
	SSBOAtomic
	// GetBufferSize: descriptor.
	GetBufferSize
	// LoadGlobal: 64-bit address.
	LoadGlobal
	// StoreGlobal: data, address.
	StoreGlobal
	// GlobalAtomic: address, data[, compare].
	GlobalAtomic
	// LoadShared: offset. Base is added to offset.
	LoadShared
	// StoreShared: data, offset.
	StoreShared
	// SharedAtomic: offset, data[, compare].
	SharedAtomic
	// LoadScratch: offset.
	LoadScratch
	// StoreScratch: data, offset.
	StoreScratch
	// LoadConstant: offset. Reads Function.ConstantData at Base+offset.
	LoadConstant

	// ImageLoad: coord[, sample].
	ImageLoad
	// ImageStore: coord, sample or NoValue, data.
	ImageStore
	// ImageAtomic: coord, sample or NoValue, data[, compare].
	ImageAtomic
	// ImageSize: lod.
	ImageSize
	// ImageSamples: none.
	ImageSamples

	Discard
	// DiscardIf: condition.
	DiscardIf
	Demote
	// DemoteIf: condition.
	DemoteIf
	IsHelperInvocation

	ControlBarrier
	MemoryBarrier
	MemoryBarrierShared
	MemoryBarrierBuffer
	MemoryBarrierImage

	// Ballot: condition.
	Ballot
	// ReadInvocation: value, lane.
	ReadInvocation
	// ReadFirstInvocation: value.
	ReadFirstInvocation
	// Shuffle: value, lane.
	Shuffle
	// VoteAll: condition.
	VoteAll
	// VoteAny: condition.
	VoteAny
	// VoteIEq: value.
	VoteIEq
	// VoteFEq: value.
	VoteFEq
	Elect
	FirstInvocation
	LoadSubgroupInvocation
	// Reduce, InclusiveScan, ExclusiveScan: value.
	Reduce
	InclusiveScan
	ExclusiveScan
	// QuadBroadcast: value. Base is the quad lane.
	QuadBroadcast
	// QuadSwapHorizontal, QuadSwapVertical, QuadSwapDiagonal: value.
	QuadSwapHorizontal
	QuadSwapVertical
	QuadSwapDiagonal

	LoadLocalInvocationID
	LoadWorkgroupID

	intrinsicOpCount
)

var intrinsicNames = [intrinsicOpCount]string{
	LoadPushConstant:       "load_push_constant",
	VulkanResourceIndex:    "vulkan_resource_index",
	LoadUBO:                "load_ubo",
	LoadSSBO:               "load_ssbo",
	StoreSSBO:              "store_ssbo",
	SSBOAtomic:             "ssbo_atomic",
	GetBufferSize:          "get_buffer_size",
	LoadGlobal:             "load_global",
	StoreGlobal:            "store_global",
	GlobalAtomic:           "global_atomic",
	LoadShared:             "load_shared",
	StoreShared:            "store_shared",
	SharedAtomic:           "shared_atomic",
	LoadScratch:            "load_scratch",
	StoreScratch:           "store_scratch",
	LoadConstant:           "load_constant",
	ImageLoad:              "image_load",
	ImageStore:             "image_store",
	ImageAtomic:            "image_atomic",
	ImageSize:              "image_size",
	ImageSamples:           "image_samples",
	Discard:                "discard",
	DiscardIf:              "discard_if",
	Demote:                 "demote",
	DemoteIf:               "demote_if",
	IsHelperInvocation:     "is_helper_invocation",
	ControlBarrier:         "control_barrier",
	MemoryBarrier:          "memory_barrier",
	MemoryBarrierShared:    "memory_barrier_shared",
	MemoryBarrierBuffer:    "memory_barrier_buffer",
	MemoryBarrierImage:     "memory_barrier_image",
	Ballot:                 "ballot",
	ReadInvocation:         "read_invocation",
	ReadFirstInvocation:    "read_first_invocation",
	Shuffle:                "shuffle",
	VoteAll:                "vote_all",
	VoteAny:                "vote_any",
	VoteIEq:                "vote_ieq",
	VoteFEq:                "vote_feq",
	Elect:                  "elect",
	FirstInvocation:        "first_invocation",
	LoadSubgroupInvocation: "load_subgroup_invocation",
	Reduce:                 "reduce",
	InclusiveScan:          "inclusive_scan",
	ExclusiveScan:          "exclusive_scan",
	QuadBroadcast:          "quad_broadcast",
	QuadSwapHorizontal:     "quad_swap_horizontal",
	QuadSwapVertical:       "quad_swap_vertical",
	QuadSwapDiagonal:       "quad_swap_diagonal",
	LoadLocalInvocationID:  "load_local_invocation_id",
	LoadWorkgroupID:        "load_workgroup_id",
}

// String returns the intrinsic name.
func (op IntrinsicOp) String() string {
	if op < intrinsicOpCount {
		return intrinsicNames[op]
	}
	return fmt.Sprintf("IntrinsicOp(%d)", uint8(op))
}

// HasDest reports whether the intrinsic produces a value.
func (op IntrinsicOp) HasDest() bool {
	switch op {
	case StoreSSBO, StoreGlobal, StoreShared, StoreScratch, ImageStore,
		Discard, DiscardIf, Demote, DemoteIf,
		ControlBarrier, MemoryBarrier, MemoryBarrierShared, MemoryBarrierBuffer, MemoryBarrierImage:
		return false
	}
	return true
}

// TexOp enumerates texture operations.
type TexOp uint8

const (
	TexSample TexOp = iota
	TexSampleBias
	TexSampleLod
	TexSampleGrad
	TexFetch
	TexFetchMS
	TexSize
	TexQueryLod
	TexGather
)

var texOpNames = [...]string{"tex", "txb", "txl", "txd", "txf", "txf_ms", "txs", "lod", "tg4"}

// String returns the short texture op name.
func (op TexOp) String() string {
	if int(op) < len(texOpNames) {
		return texOpNames[op]
	}
	return fmt.Sprintf("TexOp(%d)", uint8(op))
}

// Tex is a sampled or fetched texture access. Optional sources are NoValue
// when absent. Offset is a vector of signed texel offsets.
type Tex struct {
	Op   TexOp
	Dest ValueHandle

	Coord      ValueHandle
	Bias       ValueHandle
	Lod        ValueHandle
	Comparator ValueHandle
	Offset     ValueHandle
	DDX        ValueHandle
	DDY        ValueHandle
	MSIndex    ValueHandle

	Texture ImageRef
	Sampler Resource
	// Component selects the gathered channel.
	Component uint8
}

func (*Tex) instr() {}
