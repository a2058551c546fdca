package isa

import "fmt"

// Opcode identifies a target instruction or pseudo instruction.
type Opcode uint16

// Pseudo instructions. They are expanded by later passes.
const (
	OpInvalid Opcode = iota

	OpPStartPgm
	OpPPhi
	OpPLinearPhi
	OpPCreateVector
	OpPSplitVector
	OpPExtractVector
	OpPParallelCopy
	OpPAsUniform
	OpPWQM
	OpPLogicalStart
	OpPLogicalEnd
	OpPDiscardIf
	OpPDemoteToHelper
	OpPIsHelper
	OpPConstAddr
	OpPReduce
	OpPInclusiveScan
	OpPExclusiveScan
	OpPBpermute
	OpPMemoryBarrierShared
	OpPMemoryBarrierBuffer
	OpPMemoryBarrierImage
	OpPMemoryBarrierAll

	OpPBranch
	OpPCbranchZ
	OpPCbranchNz

	// SOP1
	OpSMovB32
	OpSMovB64
	OpSNotB32
	OpSNotB64
	OpSBrevB32
	OpSBrevB64
	OpSBcnt1I32B32
	OpSBcnt1I32B64
	OpSFf1I32B32
	OpSFf1I32B64
	OpSFlbitI32B32
	OpSFlbitI32B64
	OpSFlbitI32
	OpSFlbitI32I64
	OpSAbsI32
	OpSSextI32I8
	OpSSextI32I16

	// SOP2
	OpSAddU32
	OpSAddcU32
	OpSSubU32
	OpSSubbU32
	OpSAddI32
	OpSSubI32
	OpSMulI32
	OpSMulHiU32
	OpSMulHiI32
	OpSAndB32
	OpSAndB64
	OpSOrB32
	OpSOrB64
	OpSXorB32
	OpSXorB64
	OpSAndn2B32
	OpSAndn2B64
	OpSOrn2B32
	OpSOrn2B64
	OpSLshlB32
	OpSLshlB64
	OpSLshrB32
	OpSLshrB64
	OpSAshrI32
	OpSAshrI64
	OpSMinI32
	OpSMinU32
	OpSMaxI32
	OpSMaxU32
	OpSCselectB32
	OpSCselectB64
	OpSBfeU32
	OpSBfeI32
	OpSBfeU64
	OpSBfeI64
	OpSBfmB32
	OpSBfmB64

	// SOPC
	OpSCmpEqI32
	OpSCmpLgI32
	OpSCmpGtI32
	OpSCmpGeI32
	OpSCmpLtI32
	OpSCmpLeI32
	OpSCmpEqU32
	OpSCmpLgU32
	OpSCmpGtU32
	OpSCmpGeU32
	OpSCmpLtU32
	OpSCmpLeU32
	OpSCmpEqU64
	OpSCmpLgU64
	OpSBitcmp1B32
	OpSBitcmp1B64

	// SOPP
	OpSEndpgm
	OpSBarrier

	// SMEM
	OpSLoadDword
	OpSLoadDwordx2
	OpSLoadDwordx4
	OpSLoadDwordx8
	OpSLoadDwordx16
	OpSBufferLoadDword
	OpSBufferLoadDwordx2
	OpSBufferLoadDwordx4
	OpSBufferLoadDwordx8
	OpSBufferLoadDwordx16

	// VOP1
	OpVMovB32
	OpVNotB32
	OpVBfrevB32
	OpVFfbhU32
	OpVFfbhI32
	OpVFfblB32
	OpVCvtF32I32
	OpVCvtF32U32
	OpVCvtI32F32
	OpVCvtU32F32
	OpVCvtF64F32
	OpVCvtF32F64
	OpVCvtF64I32
	OpVCvtF64U32
	OpVCvtI32F64
	OpVCvtU32F64
	OpVCvtF16F32
	OpVCvtF32F16
	OpVRcpF32
	OpVRcpF64
	OpVRsqF32
	OpVRsqF64
	OpVSqrtF32
	OpVSqrtF64
	OpVLogF32
	OpVExpF32
	OpVSinF32
	OpVCosF32
	OpVFractF32
	OpVFractF64
	OpVFloorF32
	OpVFloorF64
	OpVCeilF32
	OpVCeilF64
	OpVTruncF32
	OpVTruncF64
	OpVRndneF32
	OpVRndneF64
	OpVFrexpExpI32F32
	OpVFrexpExpI32F64
	OpVFrexpMantF32
	OpVFrexpMantF64
	OpVReadfirstlaneB32

	// VOP2
	OpVAddF32
	OpVSubF32
	OpVMulF32
	OpVMinF32
	OpVMaxF32
	OpVAddU32
	OpVAddCoU32
	OpVAddcCoU32
	OpVSubU32
	OpVSubCoU32
	OpVSubbCoU32
	OpVSubrevU32
	OpVSubrevCoU32
	OpVMulU32U24
	OpVMinI32
	OpVMaxI32
	OpVMinU32
	OpVMaxU32
	OpVAndB32
	OpVOrB32
	OpVXorB32
	OpVLshlrevB32
	OpVLshrrevB32
	OpVAshrrevI32
	OpVCndmaskB32

	// VOP3
	OpVFmaF32
	OpVFmaF64
	OpVMadF32
	OpVAddF64
	OpVMulF64
	OpVMinF64
	OpVMaxF64
	OpVLdexpF32
	OpVLdexpF64
	OpVMulLoU32
	OpVMulHiU32
	OpVMulHiI32
	OpVBfeU32
	OpVBfeI32
	OpVBfiB32
	OpVBfmB32
	OpVMed3F32
	OpVMed3I32
	OpVMed3U32
	OpVMin3F32
	OpVMin3I32
	OpVMin3U32
	OpVMax3F32
	OpVMax3I32
	OpVMax3U32
	OpVLshlrevB64
	OpVLshrrevB64
	OpVAshrrevI64
	OpVLshlB64
	OpVLshrB64
	OpVAshrI64
	OpVCubeidF32
	OpVCubescF32
	OpVCubetcF32
	OpVCubemaF32
	OpVBcntU32B32
	OpVMbcntLoU32B32
	OpVMbcntHiU32B32
	OpVReadlaneB32
	OpVAlignbitB32

	// VOPC
	OpVCmpLtF32
	OpVCmpEqF32
	OpVCmpLeF32
	OpVCmpGtF32
	OpVCmpLgF32
	OpVCmpGeF32
	OpVCmpNeqF32
	OpVCmpLtF64
	OpVCmpEqF64
	OpVCmpLeF64
	OpVCmpGtF64
	OpVCmpLgF64
	OpVCmpGeF64
	OpVCmpNeqF64
	OpVCmpLtI32
	OpVCmpEqI32
	OpVCmpLeI32
	OpVCmpGtI32
	OpVCmpNeI32
	OpVCmpGeI32
	OpVCmpLtU32
	OpVCmpEqU32
	OpVCmpLeU32
	OpVCmpGtU32
	OpVCmpNeU32
	OpVCmpGeU32
	OpVCmpLtI64
	OpVCmpEqI64
	OpVCmpLeI64
	OpVCmpGtI64
	OpVCmpNeI64
	OpVCmpGeI64
	OpVCmpLtU64
	OpVCmpEqU64
	OpVCmpLeU64
	OpVCmpGtU64
	OpVCmpNeU64
	OpVCmpGeU64
	OpVCmpClassF32
	OpVCmpClassF64

	// DS
	OpDSReadU8
	OpDSReadU16
	OpDSReadB32
	OpDSReadB64
	OpDSReadB96
	OpDSReadB128
	OpDSRead2B32
	OpDSRead2B64
	OpDSWriteB8
	OpDSWriteB16
	OpDSWriteB32
	OpDSWriteB64
	OpDSWriteB96
	OpDSWriteB128
	OpDSWrite2B32
	OpDSWrite2B64
	OpDSBpermuteB32
	OpDSSwizzleB32

	// MUBUF
	OpBufferLoadUbyte
	OpBufferLoadUshort
	OpBufferLoadDword
	OpBufferLoadDwordx2
	OpBufferLoadDwordx3
	OpBufferLoadDwordx4
	OpBufferStoreByte
	OpBufferStoreShort
	OpBufferStoreDword
	OpBufferStoreDwordx2
	OpBufferStoreDwordx3
	OpBufferStoreDwordx4

	// FLAT / GLOBAL
	OpFlatLoadDword
	OpFlatLoadDwordx2
	OpFlatLoadDwordx3
	OpFlatLoadDwordx4
	OpFlatStoreDword
	OpFlatStoreDwordx2
	OpFlatStoreDwordx3
	OpFlatStoreDwordx4
	OpGlobalLoadDword
	OpGlobalLoadDwordx2
	OpGlobalLoadDwordx3
	OpGlobalLoadDwordx4
	OpGlobalStoreDword
	OpGlobalStoreDwordx2
	OpGlobalStoreDwordx3
	OpGlobalStoreDwordx4

	// MIMG
	OpImageLoad
	OpImageLoadMip
	OpImageStore
	OpImageStoreMip
	OpImageGetResinfo
	OpImageGetLod
	OpImageSample
	OpImageSampleC
	OpImageSampleD
	OpImageSampleCD
	OpImageSampleB
	OpImageSampleCB
	OpImageSampleLz
	OpImageSampleCLz
	OpImageSampleL
	OpImageSampleCL
	OpImageSampleO
	OpImageSampleCO
	OpImageSampleDO
	OpImageSampleCDO
	OpImageSampleBO
	OpImageSampleCBO
	OpImageSampleLzO
	OpImageSampleCLzO
	OpImageSampleLO
	OpImageSampleCLO
	OpImageGather4Lz
	OpImageGather4CLz
	OpImageGather4LzO
	OpImageGather4CLzO

	// EXP
	OpExp

	opcodeAtomicBase
)

// Atomic operations are laid out as a grid: one row per memory family and
// width, one column per AtomicOp. See AtomicOpcode.

// AtomicOp is the operation performed by an atomic memory instruction.
type AtomicOp uint8

const (
	AtomicAdd AtomicOp = iota
	AtomicSub
	AtomicSMin
	AtomicUMin
	AtomicSMax
	AtomicUMax
	AtomicAnd
	AtomicOr
	AtomicXor
	AtomicSwap
	AtomicCmpSwap
	atomicOpCount
)

var atomicOpNames = [atomicOpCount]string{
	AtomicAdd:     "add",
	AtomicSub:     "sub",
	AtomicSMin:    "smin",
	AtomicUMin:    "umin",
	AtomicSMax:    "smax",
	AtomicUMax:    "umax",
	AtomicAnd:     "and",
	AtomicOr:      "or",
	AtomicXor:     "xor",
	AtomicSwap:    "swap",
	AtomicCmpSwap: "cmpswap",
}

// AtomicFamily is the instruction family of an atomic.
type AtomicFamily uint8

const (
	AtomicFamilyDS AtomicFamily = iota
	AtomicFamilyDSReturn
	AtomicFamilyBuffer
	AtomicFamilyFlat
	AtomicFamilyGlobal
	AtomicFamilyImage
	atomicFamilyCount
)

var atomicFamilyInfo = [atomicFamilyCount]struct {
	prefix string
	format Format
}{
	AtomicFamilyDS:       {"ds", FormatDS},
	AtomicFamilyDSReturn: {"ds", FormatDS},
	AtomicFamilyBuffer:   {"buffer_atomic", FormatMUBUF},
	AtomicFamilyFlat:     {"flat_atomic", FormatFLAT},
	AtomicFamilyGlobal:   {"global_atomic", FormatGLOBAL},
	AtomicFamilyImage:    {"image_atomic", FormatMIMG},
}

// AtomicOpcode returns the opcode of an atomic in the given family. wide
// selects the 64-bit variant.
func AtomicOpcode(family AtomicFamily, op AtomicOp, wide bool) Opcode {
	row := uint16(family) * 2
	if wide {
		row++
	}
	return opcodeAtomicBase + Opcode(row*uint16(atomicOpCount)+uint16(op))
}

func atomicDecode(op Opcode) (family AtomicFamily, aop AtomicOp, wide bool, ok bool) {
	if op < opcodeAtomicBase {
		return 0, 0, false, false
	}
	idx := uint16(op - opcodeAtomicBase)
	row := idx / uint16(atomicOpCount)
	if row >= uint16(atomicFamilyCount)*2 {
		return 0, 0, false, false
	}
	return AtomicFamily(row / 2), AtomicOp(idx % uint16(atomicOpCount)), row%2 == 1, true
}

func atomicName(family AtomicFamily, op AtomicOp, wide bool) string {
	info := atomicFamilyInfo[family]
	if family == AtomicFamilyDS || family == AtomicFamilyDSReturn {
		name := "ds_" + atomicOpNames[op]
		if family == AtomicFamilyDSReturn {
			name += "_rtn"
		}
		if wide {
			return name + "_b64"
		}
		return name + "_b32"
	}
	name := info.prefix + "_" + atomicOpNames[op]
	if wide {
		name += "_x2"
	}
	return name
}

type opcodeInfo struct {
	name   string
	format Format
}

var opcodeInfos = [...]opcodeInfo{
	OpInvalid: {"invalid", FormatPseudo},

	OpPStartPgm:            {"p_startpgm", FormatPseudo},
	OpPPhi:                 {"p_phi", FormatPseudo},
	OpPLinearPhi:           {"p_linear_phi", FormatPseudo},
	OpPCreateVector:        {"p_create_vector", FormatPseudo},
	OpPSplitVector:         {"p_split_vector", FormatPseudo},
	OpPExtractVector:       {"p_extract_vector", FormatPseudo},
	OpPParallelCopy:        {"p_parallelcopy", FormatPseudo},
	OpPAsUniform:           {"p_as_uniform", FormatPseudo},
	OpPWQM:                 {"p_wqm", FormatPseudo},
	OpPLogicalStart:        {"p_logical_start", FormatPseudo},
	OpPLogicalEnd:          {"p_logical_end", FormatPseudo},
	OpPDiscardIf:           {"p_discard_if", FormatPseudo},
	OpPDemoteToHelper:      {"p_demote_to_helper", FormatPseudo},
	OpPIsHelper:            {"p_is_helper", FormatPseudo},
	OpPConstAddr:           {"p_constaddr", FormatPseudo},
	OpPReduce:              {"p_reduce", FormatPseudoReduction},
	OpPInclusiveScan:       {"p_inclusive_scan", FormatPseudoReduction},
	OpPExclusiveScan:       {"p_exclusive_scan", FormatPseudoReduction},
	OpPBpermute:            {"p_bpermute", FormatPseudo},
	OpPMemoryBarrierShared: {"p_memory_barrier_shared", FormatPseudoBarrier},
	OpPMemoryBarrierBuffer: {"p_memory_barrier_buffer", FormatPseudoBarrier},
	OpPMemoryBarrierImage:  {"p_memory_barrier_image", FormatPseudoBarrier},
	OpPMemoryBarrierAll:    {"p_memory_barrier_all", FormatPseudoBarrier},

	OpPBranch:    {"p_branch", FormatPseudoBranch},
	OpPCbranchZ:  {"p_cbranch_z", FormatPseudoBranch},
	OpPCbranchNz: {"p_cbranch_nz", FormatPseudoBranch},

	OpSMovB32:      {"s_mov_b32", FormatSOP1},
	OpSMovB64:      {"s_mov_b64", FormatSOP1},
	OpSNotB32:      {"s_not_b32", FormatSOP1},
	OpSNotB64:      {"s_not_b64", FormatSOP1},
	OpSBrevB32:     {"s_brev_b32", FormatSOP1},
	OpSBrevB64:     {"s_brev_b64", FormatSOP1},
	OpSBcnt1I32B32: {"s_bcnt1_i32_b32", FormatSOP1},
	OpSBcnt1I32B64: {"s_bcnt1_i32_b64", FormatSOP1},
	OpSFf1I32B32:   {"s_ff1_i32_b32", FormatSOP1},
	OpSFf1I32B64:   {"s_ff1_i32_b64", FormatSOP1},
	OpSFlbitI32B32: {"s_flbit_i32_b32", FormatSOP1},
	OpSFlbitI32B64: {"s_flbit_i32_b64", FormatSOP1},
	OpSFlbitI32:    {"s_flbit_i32", FormatSOP1},
	OpSFlbitI32I64: {"s_flbit_i32_i64", FormatSOP1},
	OpSAbsI32:      {"s_abs_i32", FormatSOP1},
	OpSSextI32I8:   {"s_sext_i32_i8", FormatSOP1},
	OpSSextI32I16:  {"s_sext_i32_i16", FormatSOP1},

	OpSAddU32:     {"s_add_u32", FormatSOP2},
	OpSAddcU32:    {"s_addc_u32", FormatSOP2},
	OpSSubU32:     {"s_sub_u32", FormatSOP2},
	OpSSubbU32:    {"s_subb_u32", FormatSOP2},
	OpSAddI32:     {"s_add_i32", FormatSOP2},
	OpSSubI32:     {"s_sub_i32", FormatSOP2},
	OpSMulI32:     {"s_mul_i32", FormatSOP2},
	OpSMulHiU32:   {"s_mul_hi_u32", FormatSOP2},
	OpSMulHiI32:   {"s_mul_hi_i32", FormatSOP2},
	OpSAndB32:     {"s_and_b32", FormatSOP2},
	OpSAndB64:     {"s_and_b64", FormatSOP2},
	OpSOrB32:      {"s_or_b32", FormatSOP2},
	OpSOrB64:      {"s_or_b64", FormatSOP2},
	OpSXorB32:     {"s_xor_b32", FormatSOP2},
	OpSXorB64:     {"s_xor_b64", FormatSOP2},
	OpSAndn2B32:   {"s_andn2_b32", FormatSOP2},
	OpSAndn2B64:   {"s_andn2_b64", FormatSOP2},
	OpSOrn2B32:    {"s_orn2_b32", FormatSOP2},
	OpSOrn2B64:    {"s_orn2_b64", FormatSOP2},
	OpSLshlB32:    {"s_lshl_b32", FormatSOP2},
	OpSLshlB64:    {"s_lshl_b64", FormatSOP2},
	OpSLshrB32:    {"s_lshr_b32", FormatSOP2},
	OpSLshrB64:    {"s_lshr_b64", FormatSOP2},
	OpSAshrI32:    {"s_ashr_i32", FormatSOP2},
	OpSAshrI64:    {"s_ashr_i64", FormatSOP2},
	OpSMinI32:     {"s_min_i32", FormatSOP2},
	OpSMinU32:     {"s_min_u32", FormatSOP2},
	OpSMaxI32:     {"s_max_i32", FormatSOP2},
	OpSMaxU32:     {"s_max_u32", FormatSOP2},
	OpSCselectB32: {"s_cselect_b32", FormatSOP2},
	OpSCselectB64: {"s_cselect_b64", FormatSOP2},
	OpSBfeU32:     {"s_bfe_u32", FormatSOP2},
	OpSBfeI32:     {"s_bfe_i32", FormatSOP2},
	OpSBfeU64:     {"s_bfe_u64", FormatSOP2},
	OpSBfeI64:     {"s_bfe_i64", FormatSOP2},
	OpSBfmB32:     {"s_bfm_b32", FormatSOP2},
	OpSBfmB64:     {"s_bfm_b64", FormatSOP2},

	OpSCmpEqI32:   {"s_cmp_eq_i32", FormatSOPC},
	OpSCmpLgI32:   {"s_cmp_lg_i32", FormatSOPC},
	OpSCmpGtI32:   {"s_cmp_gt_i32", FormatSOPC},
	OpSCmpGeI32:   {"s_cmp_ge_i32", FormatSOPC},
	OpSCmpLtI32:   {"s_cmp_lt_i32", FormatSOPC},
	OpSCmpLeI32:   {"s_cmp_le_i32", FormatSOPC},
	OpSCmpEqU32:   {"s_cmp_eq_u32", FormatSOPC},
	OpSCmpLgU32:   {"s_cmp_lg_u32", FormatSOPC},
	OpSCmpGtU32:   {"s_cmp_gt_u32", FormatSOPC},
	OpSCmpGeU32:   {"s_cmp_ge_u32", FormatSOPC},
	OpSCmpLtU32:   {"s_cmp_lt_u32", FormatSOPC},
	OpSCmpLeU32:   {"s_cmp_le_u32", FormatSOPC},
	OpSCmpEqU64:   {"s_cmp_eq_u64", FormatSOPC},
	OpSCmpLgU64:   {"s_cmp_lg_u64", FormatSOPC},
	OpSBitcmp1B32: {"s_bitcmp1_b32", FormatSOPC},
	OpSBitcmp1B64: {"s_bitcmp1_b64", FormatSOPC},

	OpSEndpgm:  {"s_endpgm", FormatSOPP},
	OpSBarrier: {"s_barrier", FormatSOPP},

	OpSLoadDword:          {"s_load_dword", FormatSMEM},
	OpSLoadDwordx2:        {"s_load_dwordx2", FormatSMEM},
	OpSLoadDwordx4:        {"s_load_dwordx4", FormatSMEM},
	OpSLoadDwordx8:        {"s_load_dwordx8", FormatSMEM},
	OpSLoadDwordx16:       {"s_load_dwordx16", FormatSMEM},
	OpSBufferLoadDword:    {"s_buffer_load_dword", FormatSMEM},
	OpSBufferLoadDwordx2:  {"s_buffer_load_dwordx2", FormatSMEM},
	OpSBufferLoadDwordx4:  {"s_buffer_load_dwordx4", FormatSMEM},
	OpSBufferLoadDwordx8:  {"s_buffer_load_dwordx8", FormatSMEM},
	OpSBufferLoadDwordx16: {"s_buffer_load_dwordx16", FormatSMEM},

	OpVMovB32:           {"v_mov_b32", FormatVOP1},
	OpVNotB32:           {"v_not_b32", FormatVOP1},
	OpVBfrevB32:         {"v_bfrev_b32", FormatVOP1},
	OpVFfbhU32:          {"v_ffbh_u32", FormatVOP1},
	OpVFfbhI32:          {"v_ffbh_i32", FormatVOP1},
	OpVFfblB32:          {"v_ffbl_b32", FormatVOP1},
	OpVCvtF32I32:        {"v_cvt_f32_i32", FormatVOP1},
	OpVCvtF32U32:        {"v_cvt_f32_u32", FormatVOP1},
	OpVCvtI32F32:        {"v_cvt_i32_f32", FormatVOP1},
	OpVCvtU32F32:        {"v_cvt_u32_f32", FormatVOP1},
	OpVCvtF64F32:        {"v_cvt_f64_f32", FormatVOP1},
	OpVCvtF32F64:        {"v_cvt_f32_f64", FormatVOP1},
	OpVCvtF64I32:        {"v_cvt_f64_i32", FormatVOP1},
	OpVCvtF64U32:        {"v_cvt_f64_u32", FormatVOP1},
	OpVCvtI32F64:        {"v_cvt_i32_f64", FormatVOP1},
	OpVCvtU32F64:        {"v_cvt_u32_f64", FormatVOP1},
	OpVCvtF16F32:        {"v_cvt_f16_f32", FormatVOP1},
	OpVCvtF32F16:        {"v_cvt_f32_f16", FormatVOP1},
	OpVRcpF32:           {"v_rcp_f32", FormatVOP1},
	OpVRcpF64:           {"v_rcp_f64", FormatVOP1},
	OpVRsqF32:           {"v_rsq_f32", FormatVOP1},
	OpVRsqF64:           {"v_rsq_f64", FormatVOP1},
	OpVSqrtF32:          {"v_sqrt_f32", FormatVOP1},
	OpVSqrtF64:          {"v_sqrt_f64", FormatVOP1},
	OpVLogF32:           {"v_log_f32", FormatVOP1},
	OpVExpF32:           {"v_exp_f32", FormatVOP1},
	OpVSinF32:           {"v_sin_f32", FormatVOP1},
	OpVCosF32:           {"v_cos_f32", FormatVOP1},
	OpVFractF32:         {"v_fract_f32", FormatVOP1},
	OpVFractF64:         {"v_fract_f64", FormatVOP1},
	OpVFloorF32:         {"v_floor_f32", FormatVOP1},
	OpVFloorF64:         {"v_floor_f64", FormatVOP1},
	OpVCeilF32:          {"v_ceil_f32", FormatVOP1},
	OpVCeilF64:          {"v_ceil_f64", FormatVOP1},
	OpVTruncF32:         {"v_trunc_f32", FormatVOP1},
	OpVTruncF64:         {"v_trunc_f64", FormatVOP1},
	OpVRndneF32:         {"v_rndne_f32", FormatVOP1},
	OpVRndneF64:         {"v_rndne_f64", FormatVOP1},
	OpVFrexpExpI32F32:   {"v_frexp_exp_i32_f32", FormatVOP1},
	OpVFrexpExpI32F64:   {"v_frexp_exp_i32_f64", FormatVOP1},
	OpVFrexpMantF32:     {"v_frexp_mant_f32", FormatVOP1},
	OpVFrexpMantF64:     {"v_frexp_mant_f64", FormatVOP1},
	OpVReadfirstlaneB32: {"v_readfirstlane_b32", FormatVOP1},

	OpVAddF32:      {"v_add_f32", FormatVOP2},
	OpVSubF32:      {"v_sub_f32", FormatVOP2},
	OpVMulF32:      {"v_mul_f32", FormatVOP2},
	OpVMinF32:      {"v_min_f32", FormatVOP2},
	OpVMaxF32:      {"v_max_f32", FormatVOP2},
	OpVAddU32:      {"v_add_u32", FormatVOP2},
	OpVAddCoU32:    {"v_add_co_u32", FormatVOP2},
	OpVAddcCoU32:   {"v_addc_co_u32", FormatVOP2},
	OpVSubU32:      {"v_sub_u32", FormatVOP2},
	OpVSubCoU32:    {"v_sub_co_u32", FormatVOP2},
	OpVSubbCoU32:   {"v_subb_co_u32", FormatVOP2},
	OpVSubrevU32:   {"v_subrev_u32", FormatVOP2},
	OpVSubrevCoU32: {"v_subrev_co_u32", FormatVOP2},
	OpVMulU32U24:   {"v_mul_u32_u24", FormatVOP2},
	OpVMinI32:      {"v_min_i32", FormatVOP2},
	OpVMaxI32:      {"v_max_i32", FormatVOP2},
	OpVMinU32:      {"v_min_u32", FormatVOP2},
	OpVMaxU32:      {"v_max_u32", FormatVOP2},
	OpVAndB32:      {"v_and_b32", FormatVOP2},
	OpVOrB32:       {"v_or_b32", FormatVOP2},
	OpVXorB32:      {"v_xor_b32", FormatVOP2},
	OpVLshlrevB32:  {"v_lshlrev_b32", FormatVOP2},
	OpVLshrrevB32:  {"v_lshrrev_b32", FormatVOP2},
	OpVAshrrevI32:  {"v_ashrrev_i32", FormatVOP2},
	OpVCndmaskB32:  {"v_cndmask_b32", FormatVOP2},

	OpVFmaF32:        {"v_fma_f32", FormatVOP3},
	OpVFmaF64:        {"v_fma_f64", FormatVOP3},
	OpVMadF32:        {"v_mad_f32", FormatVOP3},
	OpVAddF64:        {"v_add_f64", FormatVOP3},
	OpVMulF64:        {"v_mul_f64", FormatVOP3},
	OpVMinF64:        {"v_min_f64", FormatVOP3},
	OpVMaxF64:        {"v_max_f64", FormatVOP3},
	OpVLdexpF32:      {"v_ldexp_f32", FormatVOP3},
	OpVLdexpF64:      {"v_ldexp_f64", FormatVOP3},
	OpVMulLoU32:      {"v_mul_lo_u32", FormatVOP3},
	OpVMulHiU32:      {"v_mul_hi_u32", FormatVOP3},
	OpVMulHiI32:      {"v_mul_hi_i32", FormatVOP3},
	OpVBfeU32:        {"v_bfe_u32", FormatVOP3},
	OpVBfeI32:        {"v_bfe_i32", FormatVOP3},
	OpVBfiB32:        {"v_bfi_b32", FormatVOP3},
	OpVBfmB32:        {"v_bfm_b32", FormatVOP3},
	OpVMed3F32:       {"v_med3_f32", FormatVOP3},
	OpVMed3I32:       {"v_med3_i32", FormatVOP3},
	OpVMed3U32:       {"v_med3_u32", FormatVOP3},
	OpVMin3F32:       {"v_min3_f32", FormatVOP3},
	OpVMin3I32:       {"v_min3_i32", FormatVOP3},
	OpVMin3U32:       {"v_min3_u32", FormatVOP3},
	OpVMax3F32:       {"v_max3_f32", FormatVOP3},
	OpVMax3I32:       {"v_max3_i32", FormatVOP3},
	OpVMax3U32:       {"v_max3_u32", FormatVOP3},
	OpVLshlrevB64:    {"v_lshlrev_b64", FormatVOP3},
	OpVLshrrevB64:    {"v_lshrrev_b64", FormatVOP3},
	OpVAshrrevI64:    {"v_ashrrev_i64", FormatVOP3},
	OpVLshlB64:       {"v_lshl_b64", FormatVOP3},
	OpVLshrB64:       {"v_lshr_b64", FormatVOP3},
	OpVAshrI64:       {"v_ashr_i64", FormatVOP3},
	OpVCubeidF32:     {"v_cubeid_f32", FormatVOP3},
	OpVCubescF32:     {"v_cubesc_f32", FormatVOP3},
	OpVCubetcF32:     {"v_cubetc_f32", FormatVOP3},
	OpVCubemaF32:     {"v_cubema_f32", FormatVOP3},
	OpVBcntU32B32:    {"v_bcnt_u32_b32", FormatVOP3},
	OpVMbcntLoU32B32: {"v_mbcnt_lo_u32_b32", FormatVOP3},
	OpVMbcntHiU32B32: {"v_mbcnt_hi_u32_b32", FormatVOP3},
	OpVReadlaneB32:   {"v_readlane_b32", FormatVOP3},
	OpVAlignbitB32:   {"v_alignbit_b32", FormatVOP3},

	OpVCmpLtF32:    {"v_cmp_lt_f32", FormatVOPC},
	OpVCmpEqF32:    {"v_cmp_eq_f32", FormatVOPC},
	OpVCmpLeF32:    {"v_cmp_le_f32", FormatVOPC},
	OpVCmpGtF32:    {"v_cmp_gt_f32", FormatVOPC},
	OpVCmpLgF32:    {"v_cmp_lg_f32", FormatVOPC},
	OpVCmpGeF32:    {"v_cmp_ge_f32", FormatVOPC},
	OpVCmpNeqF32:   {"v_cmp_neq_f32", FormatVOPC},
	OpVCmpLtF64:    {"v_cmp_lt_f64", FormatVOPC},
	OpVCmpEqF64:    {"v_cmp_eq_f64", FormatVOPC},
	OpVCmpLeF64:    {"v_cmp_le_f64", FormatVOPC},
	OpVCmpGtF64:    {"v_cmp_gt_f64", FormatVOPC},
	OpVCmpLgF64:    {"v_cmp_lg_f64", FormatVOPC},
	OpVCmpGeF64:    {"v_cmp_ge_f64", FormatVOPC},
	OpVCmpNeqF64:   {"v_cmp_neq_f64", FormatVOPC},
	OpVCmpLtI32:    {"v_cmp_lt_i32", FormatVOPC},
	OpVCmpEqI32:    {"v_cmp_eq_i32", FormatVOPC},
	OpVCmpLeI32:    {"v_cmp_le_i32", FormatVOPC},
	OpVCmpGtI32:    {"v_cmp_gt_i32", FormatVOPC},
	OpVCmpNeI32:    {"v_cmp_ne_i32", FormatVOPC},
	OpVCmpGeI32:    {"v_cmp_ge_i32", FormatVOPC},
	OpVCmpLtU32:    {"v_cmp_lt_u32", FormatVOPC},
	OpVCmpEqU32:    {"v_cmp_eq_u32", FormatVOPC},
	OpVCmpLeU32:    {"v_cmp_le_u32", FormatVOPC},
	OpVCmpGtU32:    {"v_cmp_gt_u32", FormatVOPC},
	OpVCmpNeU32:    {"v_cmp_ne_u32", FormatVOPC},
	OpVCmpGeU32:    {"v_cmp_ge_u32", FormatVOPC},
	OpVCmpLtI64:    {"v_cmp_lt_i64", FormatVOPC},
	OpVCmpEqI64:    {"v_cmp_eq_i64", FormatVOPC},
	OpVCmpLeI64:    {"v_cmp_le_i64", FormatVOPC},
	OpVCmpGtI64:    {"v_cmp_gt_i64", FormatVOPC},
	OpVCmpNeI64:    {"v_cmp_ne_i64", FormatVOPC},
	OpVCmpGeI64:    {"v_cmp_ge_i64", FormatVOPC},
	OpVCmpLtU64:    {"v_cmp_lt_u64", FormatVOPC},
	OpVCmpEqU64:    {"v_cmp_eq_u64", FormatVOPC},
	OpVCmpLeU64:    {"v_cmp_le_u64", FormatVOPC},
	OpVCmpGtU64:    {"v_cmp_gt_u64", FormatVOPC},
	OpVCmpNeU64:    {"v_cmp_ne_u64", FormatVOPC},
	OpVCmpGeU64:    {"v_cmp_ge_u64", FormatVOPC},
	OpVCmpClassF32: {"v_cmp_class_f32", FormatVOPC},
	OpVCmpClassF64: {"v_cmp_class_f64", FormatVOPC},

	OpDSReadU8:      {"ds_read_u8", FormatDS},
	OpDSReadU16:     {"ds_read_u16", FormatDS},
	OpDSReadB32:     {"ds_read_b32", FormatDS},
	OpDSReadB64:     {"ds_read_b64", FormatDS},
	OpDSReadB96:     {"ds_read_b96", FormatDS},
	OpDSReadB128:    {"ds_read_b128", FormatDS},
	OpDSRead2B32:    {"ds_read2_b32", FormatDS},
	OpDSRead2B64:    {"ds_read2_b64", FormatDS},
	OpDSWriteB8:     {"ds_write_b8", FormatDS},
	OpDSWriteB16:    {"ds_write_b16", FormatDS},
	OpDSWriteB32:    {"ds_write_b32", FormatDS},
	OpDSWriteB64:    {"ds_write_b64", FormatDS},
	OpDSWriteB96:    {"ds_write_b96", FormatDS},
	OpDSWriteB128:   {"ds_write_b128", FormatDS},
	OpDSWrite2B32:   {"ds_write2_b32", FormatDS},
	OpDSWrite2B64:   {"ds_write2_b64", FormatDS},
	OpDSBpermuteB32: {"ds_bpermute_b32", FormatDS},
	OpDSSwizzleB32:  {"ds_swizzle_b32", FormatDS},

	OpBufferLoadUbyte:    {"buffer_load_ubyte", FormatMUBUF},
	OpBufferLoadUshort:   {"buffer_load_ushort", FormatMUBUF},
	OpBufferLoadDword:    {"buffer_load_dword", FormatMUBUF},
	OpBufferLoadDwordx2:  {"buffer_load_dwordx2", FormatMUBUF},
	OpBufferLoadDwordx3:  {"buffer_load_dwordx3", FormatMUBUF},
	OpBufferLoadDwordx4:  {"buffer_load_dwordx4", FormatMUBUF},
	OpBufferStoreByte:    {"buffer_store_byte", FormatMUBUF},
	OpBufferStoreShort:   {"buffer_store_short", FormatMUBUF},
	OpBufferStoreDword:   {"buffer_store_dword", FormatMUBUF},
	OpBufferStoreDwordx2: {"buffer_store_dwordx2", FormatMUBUF},
	OpBufferStoreDwordx3: {"buffer_store_dwordx3", FormatMUBUF},
	OpBufferStoreDwordx4: {"buffer_store_dwordx4", FormatMUBUF},

	OpFlatLoadDword:      {"flat_load_dword", FormatFLAT},
	OpFlatLoadDwordx2:    {"flat_load_dwordx2", FormatFLAT},
	OpFlatLoadDwordx3:    {"flat_load_dwordx3", FormatFLAT},
	OpFlatLoadDwordx4:    {"flat_load_dwordx4", FormatFLAT},
	OpFlatStoreDword:     {"flat_store_dword", FormatFLAT},
	OpFlatStoreDwordx2:   {"flat_store_dwordx2", FormatFLAT},
	OpFlatStoreDwordx3:   {"flat_store_dwordx3", FormatFLAT},
	OpFlatStoreDwordx4:   {"flat_store_dwordx4", FormatFLAT},
	OpGlobalLoadDword:    {"global_load_dword", FormatGLOBAL},
	OpGlobalLoadDwordx2:  {"global_load_dwordx2", FormatGLOBAL},
	OpGlobalLoadDwordx3:  {"global_load_dwordx3", FormatGLOBAL},
	OpGlobalLoadDwordx4:  {"global_load_dwordx4", FormatGLOBAL},
	OpGlobalStoreDword:   {"global_store_dword", FormatGLOBAL},
	OpGlobalStoreDwordx2: {"global_store_dwordx2", FormatGLOBAL},
	OpGlobalStoreDwordx3: {"global_store_dwordx3", FormatGLOBAL},
	OpGlobalStoreDwordx4: {"global_store_dwordx4", FormatGLOBAL},

	OpImageLoad:        {"image_load", FormatMIMG},
	OpImageLoadMip:     {"image_load_mip", FormatMIMG},
	OpImageStore:       {"image_store", FormatMIMG},
	OpImageStoreMip:    {"image_store_mip", FormatMIMG},
	OpImageGetResinfo:  {"image_get_resinfo", FormatMIMG},
	OpImageGetLod:      {"image_get_lod", FormatMIMG},
	OpImageSample:      {"image_sample", FormatMIMG},
	OpImageSampleC:     {"image_sample_c", FormatMIMG},
	OpImageSampleD:     {"image_sample_d", FormatMIMG},
	OpImageSampleCD:    {"image_sample_c_d", FormatMIMG},
	OpImageSampleB:     {"image_sample_b", FormatMIMG},
	OpImageSampleCB:    {"image_sample_c_b", FormatMIMG},
	OpImageSampleLz:    {"image_sample_lz", FormatMIMG},
	OpImageSampleCLz:   {"image_sample_c_lz", FormatMIMG},
	OpImageSampleL:     {"image_sample_l", FormatMIMG},
	OpImageSampleCL:    {"image_sample_c_l", FormatMIMG},
	OpImageSampleO:     {"image_sample_o", FormatMIMG},
	OpImageSampleCO:    {"image_sample_c_o", FormatMIMG},
	OpImageSampleDO:    {"image_sample_d_o", FormatMIMG},
	OpImageSampleCDO:   {"image_sample_c_d_o", FormatMIMG},
	OpImageSampleBO:    {"image_sample_b_o", FormatMIMG},
	OpImageSampleCBO:   {"image_sample_c_b_o", FormatMIMG},
	OpImageSampleLzO:   {"image_sample_lz_o", FormatMIMG},
	OpImageSampleCLzO:  {"image_sample_c_lz_o", FormatMIMG},
	OpImageSampleLO:    {"image_sample_l_o", FormatMIMG},
	OpImageSampleCLO:   {"image_sample_c_l_o", FormatMIMG},
	OpImageGather4Lz:   {"image_gather4_lz", FormatMIMG},
	OpImageGather4CLz:  {"image_gather4_c_lz", FormatMIMG},
	OpImageGather4LzO:  {"image_gather4_lz_o", FormatMIMG},
	OpImageGather4CLzO: {"image_gather4_c_lz_o", FormatMIMG},

	OpExp: {"exp", FormatEXP},
}

// String returns the assembler mnemonic of the opcode.
func (op Opcode) String() string {
	if family, aop, wide, ok := atomicDecode(op); ok {
		return atomicName(family, aop, wide)
	}
	if int(op) < len(opcodeInfos) && opcodeInfos[op].name != "" {
		return opcodeInfos[op].name
	}
	return fmt.Sprintf("Opcode(%d)", uint16(op))
}

// Format returns the default encoding format of the opcode.
func (op Opcode) Format() Format {
	if family, _, _, ok := atomicDecode(op); ok {
		return atomicFamilyInfo[family].format
	}
	if int(op) < len(opcodeInfos) {
		return opcodeInfos[op].format
	}
	return FormatPseudo
}

// IsPhi reports whether the opcode is a logical or linear phi.
func (op Opcode) IsPhi() bool {
	return op == OpPPhi || op == OpPLinearPhi
}

// IsAtomic reports whether the opcode is an atomic memory instruction.
func (op Opcode) IsAtomic() bool {
	_, _, _, ok := atomicDecode(op)
	return ok
}
