package isel

import (
	"fmt"
	"math/bits"

	"github.com/gogpu/wavesel/ir"
	"github.com/gogpu/wavesel/isa"
)

// Float constants of the cube face transform.
const (
	f32OneHalf     = 0x3f000000
	f32ThreeHalves = 0x3fc00000
	f32Eight       = 0x41000000
)

// imageDescriptor loads the 8-dword image descriptor of ref, or the 4-dword
// buffer descriptor of a texel buffer.
func (ctx *selCtx) imageDescriptor(what fmt.Stringer, ref ir.ImageRef) isa.Temp {
	b := ctx.opts.Layout.Binding(ref.Resource)
	if ref.Dim == ir.DimBuffer {
		return ctx.loadDescriptor(what, ref.Resource, b.Offset, isa.OpSLoadDwordx4, isa.S4)
	}
	return ctx.loadDescriptor(what, ref.Resource, b.Offset, isa.OpSLoadDwordx8, isa.S8)
}

func (ctx *selCtx) fmaskDescriptor(what fmt.Stringer, ref ir.ImageRef) isa.Temp {
	b := ctx.opts.Layout.Binding(ref.Resource)
	return ctx.loadDescriptor(what, ref.Resource, b.Offset+b.FmaskOffset, isa.OpSLoadDwordx8, isa.S8)
}

// samplerDescriptor loads the sampler of a texture access. A sampler bound
// together with its image lives SamplerOffset bytes after the image.
func (ctx *selCtx) samplerDescriptor(t *ir.Tex) isa.Temp {
	b := ctx.opts.Layout.Binding(t.Sampler)
	off := b.Offset
	if t.Sampler == t.Texture.Resource {
		off += b.SamplerOffset
	}
	return ctx.loadDescriptor(t.Op, t.Sampler, off, isa.OpSLoadDwordx4, isa.S4)
}

func (ctx *selCtx) loadDescriptor(what fmt.Stringer, res ir.Resource, off uint32, opc isa.Opcode, rc isa.RegClass) isa.Temp {
	addr := &addrReg{reg: ctx.pointer64(ctx.descriptorSet(what, res.Set)), kind: isa.Uniform}
	base, imm := uint32(0), off
	if off > ctx.smemMaxOffset() {
		base, imm = off, 0
	}
	desc := ctx.bld.Tmp(rc)
	ctx.bld.Smem(opc, isa.SMEMInfo{CanReorder: true}, isa.Def(desc), op(ctx.at(addr, base)), cnst(imm))
	return desc
}

// mimgDim returns the hardware dimension of ref and whether the access is
// layered.
func mimgDim(ref ir.ImageRef) (isa.ImageDim, bool) {
	switch ref.Dim {
	case ir.Dim1D:
		if ref.IsArray {
			return isa.ImageDim1DArray, true
		}
		return isa.ImageDim1D, false
	case ir.Dim3D:
		return isa.ImageDim3D, false
	case ir.DimCube:
		return isa.ImageDimCube, true
	case ir.DimMS:
		if ref.IsArray {
			return isa.ImageDim2DArrayMSAA, true
		}
		return isa.ImageDim2DMSAA, false
	}
	if ref.IsArray {
		return isa.ImageDim2DArray, true
	}
	return isa.ImageDim2D, false
}

func fullMask(n uint8) uint8 { return uint8(1)<<n - 1 }

// coords returns the address components of h in vector registers.
func (ctx *selCtx) coords(what fmt.Stringer, h ir.ValueHandle) []isa.Temp {
	v := ctx.fn.Value(h)
	if v.BitSize != 32 {
		unsupported(what, "%d-bit image coordinates", v.BitSize)
	}
	elems := ctx.elements(ctx.get(h), int(v.Components))
	out := make([]isa.Temp, len(elems))
	for i, e := range elems {
		out[i] = ctx.asVGPR(e)
	}
	return out
}

// scalarV returns the single component value h in a vector register.
func (ctx *selCtx) scalarV(h ir.ValueHandle) isa.Temp {
	return ctx.asVGPR(ctx.get(h))
}

// gfx9Pad1D inserts the second coordinate GFX9 expects for 1D images,
// which it addresses as 2D.
func (ctx *selCtx) gfx9Pad1D(ref ir.ImageRef, coords []isa.Temp, value uint32) []isa.Temp {
	if ctx.target.Chip != isa.GFX9 || ref.Dim != ir.Dim1D || len(coords) == 0 {
		return coords
	}
	y := ctx.bld.Tmp(isa.V1)
	ctx.bld.Vop1(isa.OpVMovB32, isa.Def(y), cnst(value))
	return append([]isa.Temp{coords[0], y}, coords[1:]...)
}

// vaddr packs address components into the single address operand.
func (ctx *selCtx) vaddr(args []isa.Temp) isa.Temp {
	if len(args) == 1 {
		return args[0]
	}
	v := ctx.bld.Tmp(isa.NewRegClass(isa.Divergent, uint8(len(args))))
	ops := make([]isa.Operand, len(args))
	for i, a := range args {
		ops[i] = op(a)
	}
	ctx.bld.CreateVector(isa.Def(v), ops...)
	return v
}

// cubeCoords turns a direction, and the layer of cube arrays, into the
// face-local coordinates and face index the hardware samples with. The
// face-local coordinates are sc/|ma| + 1.5; the face becomes layer*8 + face
// for arrays.
func (ctx *selCtx) cubeCoords(coords []isa.Temp, array bool) []isa.Temp {
	x, y, z := op(coords[0]), op(coords[1]), op(coords[2])
	ma := ctx.bld.Vop3(isa.OpVCubemaF32, ctx.bld.Def(isa.V1), x, y, z).Def(0)
	sc := ctx.bld.Vop3(isa.OpVCubescF32, ctx.bld.Def(isa.V1), x, y, z).Def(0)
	tc := ctx.bld.Vop3(isa.OpVCubetcF32, ctx.bld.Def(isa.V1), x, y, z).Def(0)
	id := ctx.bld.Vop3(isa.OpVCubeidF32, ctx.bld.Def(isa.V1), x, y, z).Def(0)

	invma := ctx.bld.Vop3Mods(isa.OpVRcpF32, isa.VOP3Info{Abs: [3]bool{true}}, ctx.bld.Def(isa.V1), op(ma)).Def(0)
	half := ctx.vop3Const(f32ThreeHalves)
	sc = ctx.bld.Vop3(isa.OpVMadF32, ctx.bld.Def(isa.V1), op(sc), op(invma), half).Def(0)
	tc = ctx.bld.Vop3(isa.OpVMadF32, ctx.bld.Def(isa.V1), op(tc), op(invma), half).Def(0)
	if array {
		layer := ctx.bld.Vop1(isa.OpVRndneF32, ctx.bld.Def(isa.V1), op(coords[3])).Def(0)
		id = ctx.bld.Vop3(isa.OpVMadF32, ctx.bld.Def(isa.V1), op(layer), ctx.vop3Const(f32Eight), op(id)).Def(0)
	}
	return []isa.Temp{sc, tc, id}
}

// packOffsets packs texel offsets into one dword, six bits per component
// at byte granularity. Constant components are packed at compile time.
func (ctx *selCtx) packOffsets(h ir.ValueHandle) isa.Temp {
	v := ctx.fn.Value(h)
	var packed uint32
	var dynamic []int
	for i := 0; i < int(v.Components); i++ {
		if c, ok := ctx.constComponent(h, i); ok {
			packed |= (uint32(c) & 0x3f) << (8 * uint(i))
			continue
		}
		dynamic = append(dynamic, i)
	}
	res := ctx.bld.Tmp(isa.V1)
	if len(dynamic) == 0 {
		ctx.bld.Vop1(isa.OpVMovB32, isa.Def(res), cnst(packed))
		return res
	}
	elems := ctx.elements(ctx.get(h), int(v.Components))
	var acc isa.Temp
	for _, i := range dynamic {
		field := ctx.vop2(isa.OpVAndB32, isa.OpVAndB32, ctx.bld.Def(isa.V1), cnst(0x3f), op(elems[i])).Def(0)
		if i > 0 {
			field = ctx.vop2(isa.OpVLshlrevB32, isa.OpInvalid, ctx.bld.Def(isa.V1), cnst(8*uint32(i)), op(field)).Def(0)
		}
		if acc.Valid() {
			field = ctx.bld.Vop2(isa.OpVOrB32, ctx.bld.Def(isa.V1), op(acc), op(field)).Def(0)
		}
		acc = field
	}
	if packed != 0 {
		ctx.bld.Vop2(isa.OpVOrB32, isa.Def(res), cnst(packed), op(acc))
		return res
	}
	ctx.bld.Copy(isa.Def(res), op(acc))
	return res
}

// fmaskSample remaps the sample index of a compressed multisampled image
// through its FMASK: the physical sample is the 4-bit field at index*4 of
// the FMASK value. An FMASK descriptor whose second dword is zero marks an
// uncompressed surface, and the index is kept.
func (ctx *selCtx) fmaskSample(what fmt.Stringer, ref ir.ImageRef, coords []isa.Temp, sample ir.ValueHandle) isa.Temp {
	fdesc := ctx.fmaskDescriptor(what, ref)
	dim := isa.ImageDim2D
	if ref.IsArray {
		dim = isa.ImageDim2DArray
	}
	fmask := ctx.bld.Tmp(isa.V1)
	ctx.bld.MIMG(isa.OpImageLoad, isa.MIMGInfo{DMask: 1, Dim: dim, DA: ref.IsArray, Unrm: true, CanReorder: true},
		isa.Def(fmask), op(fdesc), isa.OperandUndef(isa.S4), op(ctx.vaddr(coords)))

	var shift isa.Operand
	if c, ok := ctx.constValue(sample, 0); ok {
		shift = cnst(uint32(c) * 4)
	} else {
		shift = op(ctx.vop2(isa.OpVLshlrevB32, isa.OpInvalid, ctx.bld.Def(isa.V1), cnst(2), op(ctx.scalarV(sample))).Def(0))
	}
	remapped := ctx.bld.Vop3(isa.OpVBfeU32, ctx.bld.Def(isa.V1), op(fmask), shift, cnst(4)).Def(0)

	word1 := ctx.extract(fdesc, 1, isa.S1)
	valid := ctx.bld.VopcE(isa.OpVCmpNeU32, ctx.bld.Def(ctx.program.LaneMask), cnst(0), op(word1)).Def(0)
	return ctx.cndmask(ctx.bld.Def(isa.V1), op(ctx.scalarV(sample)), op(remapped), valid).Def(0)
}

// sampleMode selects the level of detail source of a sample instruction.
type sampleMode uint8

const (
	sampleImplicit sampleMode = iota
	sampleDeriv
	sampleBias
	sampleLz
	sampleLod
)

// sampleOpcodes is indexed by mode, comparison and offset.
var sampleOpcodes = [...][2][2]isa.Opcode{
	sampleImplicit: {{isa.OpImageSample, isa.OpImageSampleO}, {isa.OpImageSampleC, isa.OpImageSampleCO}},
	sampleDeriv:    {{isa.OpImageSampleD, isa.OpImageSampleDO}, {isa.OpImageSampleCD, isa.OpImageSampleCDO}},
	sampleBias:     {{isa.OpImageSampleB, isa.OpImageSampleBO}, {isa.OpImageSampleCB, isa.OpImageSampleCBO}},
	sampleLz:       {{isa.OpImageSampleLz, isa.OpImageSampleLzO}, {isa.OpImageSampleCLz, isa.OpImageSampleCLzO}},
	sampleLod:      {{isa.OpImageSampleL, isa.OpImageSampleLO}, {isa.OpImageSampleCL, isa.OpImageSampleCLO}},
}

// gatherOpcodes is indexed by comparison and offset. Gathers read level 0.
var gatherOpcodes = [2][2]isa.Opcode{
	{isa.OpImageGather4Lz, isa.OpImageGather4LzO},
	{isa.OpImageGather4CLz, isa.OpImageGather4CLzO},
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// texMode picks the sample mode of t. Implicit derivatives only exist in
// fragment shaders; elsewhere level 0 is sampled.
func (ctx *selCtx) texMode(t *ir.Tex) sampleMode {
	fragment := ctx.fn.Stage == ir.StageFragment
	switch t.Op {
	case ir.TexSample:
		if fragment {
			return sampleImplicit
		}
		return sampleLz
	case ir.TexSampleBias:
		if fragment {
			return sampleBias
		}
		return sampleLz
	case ir.TexSampleGrad:
		return sampleDeriv
	case ir.TexSampleLod:
		if c, ok := ctx.constValue(t.Lod, 0); ok && c == 0 {
			return sampleLz
		}
		return sampleLod
	}
	return sampleLz
}

func (ctx *selCtx) visitTex(t *ir.Tex) {
	ref := t.Texture
	if t.Op == ir.TexSize {
		ctx.imageSize(t.Op, ref, t.Lod, ctx.get(t.Dest))
		return
	}
	if ref.Dim == ir.DimBuffer {
		unsupported(t.Op, "texel buffer access through a texture instruction")
	}
	switch t.Op {
	case ir.TexFetch, ir.TexFetchMS:
		ctx.visitTexFetch(t)
		return
	}

	dst := ctx.get(t.Dest)
	dim, da := mimgDim(ref)
	coords := ctx.coords(t.Op, t.Coord)
	switch {
	case ref.Dim == ir.DimCube:
		if len(coords) < 3 {
			malformed(t.Op, "cube coordinates with %d components", len(coords))
		}
		if t.Op == ir.TexSampleGrad {
			unsupported(t.Op, "explicit derivatives on cube images")
		}
		coords = ctx.cubeCoords(coords, ref.IsArray)
	case ref.IsArray && t.Op != ir.TexQueryLod:
		last := len(coords) - 1
		coords[last] = ctx.bld.Vop1(isa.OpVRndneF32, ctx.bld.Def(isa.V1), op(coords[last])).Def(0)
	}
	if t.Op != ir.TexQueryLod {
		coords = ctx.gfx9Pad1D(ref, coords, f32OneHalf)
	}

	compare := t.Comparator != ir.NoValue
	offset := t.Offset != ir.NoValue
	var args []isa.Temp
	if offset && t.Op != ir.TexQueryLod {
		args = append(args, ctx.packOffsets(t.Offset))
	}

	var opc isa.Opcode
	mode := ctx.texMode(t)
	switch t.Op {
	case ir.TexQueryLod:
		opc = isa.OpImageGetLod
	case ir.TexGather:
		opc = gatherOpcodes[b2i(compare)][b2i(offset)]
	default:
		opc = sampleOpcodes[mode][b2i(compare)][b2i(offset)]
	}
	if mode == sampleBias {
		args = append(args, ctx.scalarV(t.Bias))
	}
	if compare && t.Op != ir.TexQueryLod {
		args = append(args, ctx.scalarV(t.Comparator))
	}
	if t.Op == ir.TexSampleGrad {
		args = append(args, ctx.coords(t.Op, t.DDX)...)
		args = append(args, ctx.coords(t.Op, t.DDY)...)
	}
	args = append(args, coords...)
	if mode == sampleLod {
		args = append(args, ctx.scalarV(t.Lod))
	}

	info := isa.MIMGInfo{Dim: dim, DA: da, CanReorder: true}
	comps := ctx.fn.Value(t.Dest).Components
	mask := fullMask(comps)
	switch {
	case t.Op == ir.TexGather && compare:
		info.DMask = 1
	case t.Op == ir.TexGather:
		info.DMask = 1 << (t.Component & 3)
	default:
		mask = ctx.texelMask(t.Dest, dst)
		info.DMask = mask
	}

	addr := ctx.vaddr(args)
	implicit := t.Op == ir.TexQueryLod || mode == sampleImplicit || mode == sampleBias
	if implicit && ctx.fn.Stage == ir.StageFragment {
		wqm := ctx.bld.Tmp(addr.RC)
		ctx.emitWQM(addr, wqm)
		addr = wqm
	}
	ctx.readTexels(opc, info, dst, comps, mask,
		op(ctx.imageDescriptor(t.Op, ref)), op(ctx.samplerDescriptor(t)), op(addr))
}

// visitTexFetch reads texels by integer coordinates. Multisampled fetches
// append the sample index, remapped through FMASK.
func (ctx *selCtx) visitTexFetch(t *ir.Tex) {
	ref := t.Texture
	coords := ctx.gfx9Pad1D(ref, ctx.coords(t.Op, t.Coord), 0)
	args := coords
	opc := isa.OpImageLoad
	switch {
	case t.Op == ir.TexFetchMS:
		if ref.Dim != ir.DimMS {
			malformed(t.Op, "multisample fetch from a single-sample image")
		}
		args = append(append([]isa.Temp(nil), coords...), ctx.fmaskSample(t.Op, ref, coords, t.MSIndex))
	case t.Lod != ir.NoValue:
		if c, ok := ctx.constValue(t.Lod, 0); !ok || c != 0 {
			opc = isa.OpImageLoadMip
			args = append(append([]isa.Temp(nil), coords...), ctx.scalarV(t.Lod))
		}
	}
	dim, da := mimgDim(ref)
	ctx.imageLoad(opc, isa.MIMGInfo{Dim: dim, DA: da, Unrm: true, CanReorder: true},
		ctx.imageDescriptor(t.Op, ref), args, t.Dest)
}

// imageLoad emits a sampler-less image read into dest.
func (ctx *selCtx) imageLoad(opc isa.Opcode, info isa.MIMGInfo, desc isa.Temp, args []isa.Temp, dest ir.ValueHandle) {
	dst := ctx.get(dest)
	info.DMask = ctx.texelMask(dest, dst)
	ctx.readTexels(opc, info, dst, ctx.fn.Value(dest).Components, info.DMask,
		op(desc), isa.OperandUndef(isa.S4), op(ctx.vaddr(args)))
}

// texelMask returns the dmask of the components of dest that some use reads.
func (ctx *selCtx) texelMask(dest ir.ValueHandle, dst isa.Temp) uint8 {
	comps := ctx.fn.Value(dest).Components
	if dst.RC.Size != comps {
		return fullMask(comps)
	}
	return uint8(ctx.componentsRead(dest))
}

// readTexels emits an image read whose result holds the components of dst
// in mask. The other components of dst are zero.
func (ctx *selCtx) readTexels(opc isa.Opcode, info isa.MIMGInfo, dst isa.Temp, comps, mask uint8, ops ...isa.Operand) {
	full := mask == fullMask(comps)
	res := dst
	switch {
	case !full:
		res = ctx.bld.Tmp(isa.NewRegClass(isa.Divergent, uint8(bits.OnesCount8(mask))))
	case dst.RC.IsUniform():
		res = ctx.bld.Tmp(dst.RC.AsKind(isa.Divergent))
	}
	ctx.bld.MIMG(opc, info, isa.Def(res), ops...)
	switch {
	case !full:
		ctx.expandVector(res, dst, int(comps), uint32(mask))
	case res != dst:
		ctx.move(res, dst)
	}
}

// imageSize queries the dimensions of ref at level lod. Cube arrays report
// faces, which are divided back into layers. Texel buffers read the
// element count from the descriptor.
func (ctx *selCtx) imageSize(what fmt.Stringer, ref ir.ImageRef, lod ir.ValueHandle, dst isa.Temp) {
	desc := ctx.imageDescriptor(what, ref)
	if ref.Dim == ir.DimBuffer {
		ctx.move(ctx.extract(desc, 2, isa.S1), dst)
		return
	}
	var level isa.Temp
	if lod != ir.NoValue {
		level = ctx.scalarV(lod)
	} else {
		level = ctx.bld.Tmp(isa.V1)
		ctx.bld.Vop1(isa.OpVMovB32, isa.Def(level), cnst(0))
	}
	comps := dst.RC.Size
	dim, da := mimgDim(ref)
	dmask := fullMask(comps)
	if ctx.target.Chip == isa.GFX9 && ref.Dim == ir.Dim1D && ref.IsArray {
		// The layer count of a 1D array is in z when addressed as 2D.
		dmask = dmask&1 | (dmask&2)<<1
	}
	res := ctx.bld.Tmp(isa.NewRegClass(isa.Divergent, comps))
	ctx.bld.MIMG(isa.OpImageGetResinfo, isa.MIMGInfo{DMask: dmask, Dim: dim, DA: da, CanReorder: true},
		isa.Def(res), op(desc), isa.OperandUndef(isa.S4), op(level))
	if ref.Dim == ir.DimCube && ref.IsArray && comps >= 3 {
		elems := append([]isa.Temp(nil), ctx.elements(res, int(comps))...)
		elems[2] = ctx.udivConst(elems[2], 6)
		v := ctx.bld.Tmp(res.RC)
		ctx.createVector(v, elems...)
		res = v
	}
	ctx.move(res, dst)
}

// visitImageSamples decodes the sample count of a multisampled image from its
// descriptor, and returns 1 for other image types.
func (ctx *selCtx) visitImageSamples(in *ir.Intrinsic) {
	dst := ctx.get(in.Dest)
	desc := ctx.imageDescriptor(in.Op, in.Image)
	word3 := ctx.extract(desc, 3, isa.S1)
	log2 := ctx.bld.Sop2(isa.OpSBfeU32, ctx.bld.Def(isa.S1), op(word3), cnst(16|4<<16)).Def(0)
	samples := ctx.bld.Sop2(isa.OpSLshlB32, ctx.bld.Def(isa.S1), cnst(1), op(log2)).Def(0)
	kind := ctx.bld.Sop2(isa.OpSBfeU32, ctx.bld.Def(isa.S1), op(word3), cnst(28|4<<16)).Def(0)
	msaa := ctx.bld.Sopc(isa.OpSCmpGeU32, op(kind), cnst(14)).Def(0)
	if dst.RC.IsUniform() {
		ctx.bld.Sop2(isa.OpSCselectB32, isa.Def(dst), op(samples), cnst(1), scc(msaa))
		return
	}
	sel := ctx.bld.Sop2(isa.OpSCselectB32, ctx.bld.Def(isa.S1), op(samples), cnst(1), scc(msaa)).Def(0)
	ctx.bld.Copy(isa.Def(dst), op(sel))
}

// imageArgs returns the address of an image intrinsic. Sample indices of
// loads are remapped through FMASK; stores and atomics use them as is.
func (ctx *selCtx) imageArgs(in *ir.Intrinsic, remap bool) []isa.Temp {
	if len(in.Srcs) == 0 {
		malformed(in.Op, "image access without coordinates")
	}
	coords := ctx.gfx9Pad1D(in.Image, ctx.coords(in.Op, in.Srcs[0]), 0)
	if in.Image.Dim != ir.DimMS {
		return coords
	}
	if len(in.Srcs) < 2 || in.Srcs[1] == ir.NoValue {
		malformed(in.Op, "multisampled image access without a sample index")
	}
	sample := ctx.scalarV(in.Srcs[1])
	if remap {
		sample = ctx.fmaskSample(in.Op, in.Image, coords, in.Srcs[1])
	}
	return append(append([]isa.Temp(nil), coords...), sample)
}

func (ctx *selCtx) imageInfo(in *ir.Intrinsic) isa.MIMGInfo {
	if in.Image.Dim == ir.DimBuffer {
		unsupported(in.Op, "storage texel buffers")
	}
	dim, da := mimgDim(in.Image)
	return isa.MIMGInfo{
		Dim:        dim,
		DA:         da,
		Unrm:       true,
		GLC:        in.Access&ir.AccessCoherent != 0,
		CanReorder: in.Access&ir.AccessCoherent == 0,
	}
}

func (ctx *selCtx) visitImageIntrinsic(in *ir.Intrinsic) bool {
	switch in.Op {
	case ir.ImageLoad:
		info := ctx.imageInfo(in)
		ctx.imageLoad(isa.OpImageLoad, info, ctx.imageDescriptor(in.Op, in.Image), ctx.imageArgs(in, true), in.Dest)
	case ir.ImageStore:
		ctx.visitImageStore(in)
	case ir.ImageAtomic:
		ctx.visitImageAtomic(in)
	case ir.ImageSize:
		lod := ir.NoValue
		if len(in.Srcs) > 0 {
			lod = in.Srcs[0]
		}
		ctx.imageSize(in.Op, in.Image, lod, ctx.get(in.Dest))
	case ir.ImageSamples:
		ctx.visitImageSamples(in)
	default:
		return false
	}
	return true
}

func (ctx *selCtx) visitImageStore(in *ir.Intrinsic) {
	if len(in.Srcs) < 3 {
		malformed(in.Op, "image store without data")
	}
	info := ctx.imageInfo(in)
	info.CanReorder = false
	data := ctx.asVGPR(ctx.get(in.Srcs[2]))
	info.DMask = fullMask(ctx.fn.Value(in.Srcs[2]).Components)
	ctx.bld.MIMG(isa.OpImageStore, info, isa.Definition{},
		op(ctx.imageDescriptor(in.Op, in.Image)), isa.OperandUndef(isa.S4), op(ctx.vaddr(ctx.imageArgs(in, false))), op(data))
}

func (ctx *selCtx) visitImageAtomic(in *ir.Intrinsic) {
	if len(in.Srcs) < 3 {
		malformed(in.Op, "image atomic without data")
	}
	info := ctx.imageInfo(in)
	info.CanReorder = false
	compare := ir.NoValue
	if len(in.Srcs) > 3 {
		compare = in.Srcs[3]
	}
	data, wide := ctx.atomicData(in, in.Srcs[2], compare)
	def, ret := ctx.atomicResult(in)
	info.GLC = ret
	info.DMask = fullMask(data.RC.Size)
	// Compare and swap returns as many dwords as it consumes; the previous
	// value is the first half.
	swap := ret && in.Atomic == ir.AtomicCompSwap
	if swap {
		def = ctx.bld.Def(data.RC)
	}
	opc := isa.AtomicOpcode(isa.AtomicFamilyImage, atomicOp(in.Atomic), wide)
	ctx.bld.MIMG(opc, info, def,
		op(ctx.imageDescriptor(in.Op, in.Image)), isa.OperandUndef(isa.S4), op(ctx.vaddr(ctx.imageArgs(in, false))), op(data))
	if swap {
		dst := ctx.get(in.Dest)
		ctx.bld.ExtractVector(isa.Def(dst), op(def.Temp), 0)
	}
}
