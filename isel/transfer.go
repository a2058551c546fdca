package isel

import "github.com/gogpu/wavesel/isa"

// memWidth is one instruction width of a memory space.
type memWidth struct {
	bytes uint32
	// align is the address alignment the instruction requires.
	align uint32
	// maxOffset is the largest immediate byte offset.
	maxOffset uint32
	// paired instructions access two elements of bytes/2 each, addressed
	// by two 8-bit element offsets.
	paired      bool
	load, store isa.Opcode
}

// transfer is one instruction of a split memory access. The instruction
// reads or writes bytes at address + base + offset, where base is folded
// into the address register and offset is the immediate.
type transfer struct {
	base   uint32
	offset uint32
	bytes  uint32
	// at is the position of the first byte within the access.
	at    uint32
	width memWidth
}

// alignAt returns the alignment of an address with alignment align after
// adding delta bytes.
func alignAt(align, delta uint32) uint32 {
	if align == 0 {
		align = 4
	}
	if delta != 0 && delta&-delta < align {
		return delta & -delta
	}
	return align
}

// planTransfers splits an access of size bytes at constant offset into
// instructions from widths, which are ordered from widest to narrowest.
// align is the alignment of the address including offset, 0 meaning 4.
// Each step takes the widest width that fits the remaining bytes and the
// current alignment. When its immediate would exceed the limit, the running
// offset is folded into the address first. It reports false when some
// remainder has no legal width.
func planTransfers(widths []memWidth, offset, size, align uint32) ([]transfer, bool) {
	var plan []transfer
	base := uint32(0)
	for done := uint32(0); done < size; {
		cur := offset + done
		w, ok := pickWidth(widths, size-done, alignAt(align, done))
		if !ok {
			return nil, false
		}
		imm := cur - base
		if imm > w.maxOffset || (w.paired && imm%(w.bytes/2) != 0) {
			base = cur
			imm = 0
		}
		plan = append(plan, transfer{base: base, offset: imm, bytes: w.bytes, at: done, width: w})
		done += w.bytes
	}
	return plan, true
}

func pickWidth(widths []memWidth, remaining, align uint32) (memWidth, bool) {
	for _, w := range widths {
		if w.bytes <= remaining && align%w.align == 0 {
			return w, true
		}
	}
	return memWidth{}, false
}

// pairedOffsets returns the two element offsets of a paired instruction.
func pairedOffsets(t transfer) (uint16, uint8) {
	elem := t.width.bytes / 2
	first := t.offset / elem
	return uint16(first), uint8(first + 1)
}

// ldsWidths are the local data share instructions.
func (ctx *selCtx) ldsWidths() []memWidth {
	var w []memWidth
	if ctx.target.HasDwordx3 {
		w = append(w,
			memWidth{bytes: 16, align: 16, maxOffset: 0xffff, load: isa.OpDSReadB128, store: isa.OpDSWriteB128},
			memWidth{bytes: 12, align: 16, maxOffset: 0xffff, load: isa.OpDSReadB96, store: isa.OpDSWriteB96})
	}
	return append(w,
		memWidth{bytes: 16, align: 8, maxOffset: 254 * 8, paired: true, load: isa.OpDSRead2B64, store: isa.OpDSWrite2B64},
		memWidth{bytes: 8, align: 8, maxOffset: 0xffff, load: isa.OpDSReadB64, store: isa.OpDSWriteB64},
		memWidth{bytes: 8, align: 4, maxOffset: 254 * 4, paired: true, load: isa.OpDSRead2B32, store: isa.OpDSWrite2B32},
		memWidth{bytes: 4, align: 4, maxOffset: 0xffff, load: isa.OpDSReadB32, store: isa.OpDSWriteB32},
		memWidth{bytes: 2, align: 2, maxOffset: 0xffff, load: isa.OpDSReadU16, store: isa.OpDSWriteB16},
		memWidth{bytes: 1, align: 1, maxOffset: 0xffff, load: isa.OpDSReadU8, store: isa.OpDSWriteB8})
}

// mubufMaxOffset is the 12-bit immediate of buffer instructions.
const mubufMaxOffset = 4095

// bufferWidths are the buffer instructions, used for uniform buffers,
// storage buffers and scratch.
func (ctx *selCtx) bufferWidths() []memWidth {
	w := []memWidth{
		{bytes: 16, align: 4, maxOffset: mubufMaxOffset, load: isa.OpBufferLoadDwordx4, store: isa.OpBufferStoreDwordx4},
	}
	if ctx.target.HasDwordx3 {
		w = append(w, memWidth{bytes: 12, align: 4, maxOffset: mubufMaxOffset, load: isa.OpBufferLoadDwordx3, store: isa.OpBufferStoreDwordx3})
	}
	return append(w,
		memWidth{bytes: 8, align: 4, maxOffset: mubufMaxOffset, load: isa.OpBufferLoadDwordx2, store: isa.OpBufferStoreDwordx2},
		memWidth{bytes: 4, align: 4, maxOffset: mubufMaxOffset, load: isa.OpBufferLoadDword, store: isa.OpBufferStoreDword},
		memWidth{bytes: 2, align: 2, maxOffset: mubufMaxOffset, load: isa.OpBufferLoadUshort, store: isa.OpBufferStoreShort},
		memWidth{bytes: 1, align: 1, maxOffset: mubufMaxOffset, load: isa.OpBufferLoadUbyte, store: isa.OpBufferStoreByte})
}

// smemMaxOffset returns the largest scalar load immediate. Older chips
// encode it as an 8-bit dword count.
func (ctx *selCtx) smemMaxOffset() uint32 {
	if ctx.target.Chip >= isa.GFX8 {
		return 0xfffff
	}
	return 255 * 4
}

// smemWidths are the scalar loads, either through a buffer descriptor or
// from a 64-bit address. A dynamic offset register leaves no room for an
// immediate.
func (ctx *selCtx) smemWidths(buffer, dynamic bool) []memWidth {
	limit := ctx.smemMaxOffset()
	if dynamic {
		limit = 0
	}
	ops := [4]isa.Opcode{isa.OpSLoadDwordx8, isa.OpSLoadDwordx4, isa.OpSLoadDwordx2, isa.OpSLoadDword}
	if buffer {
		ops = [4]isa.Opcode{isa.OpSBufferLoadDwordx8, isa.OpSBufferLoadDwordx4, isa.OpSBufferLoadDwordx2, isa.OpSBufferLoadDword}
	}
	return []memWidth{
		{bytes: 32, align: 4, maxOffset: limit, load: ops[0]},
		{bytes: 16, align: 4, maxOffset: limit, load: ops[1]},
		{bytes: 8, align: 4, maxOffset: limit, load: ops[2]},
		{bytes: 4, align: 4, maxOffset: limit, load: ops[3]},
	}
}

// globalWidths are the global instructions, or the flat instructions
// without an immediate offset on chips lacking them.
func (ctx *selCtx) globalWidths() []memWidth {
	if !ctx.target.HasGlobal {
		return []memWidth{
			{bytes: 16, align: 4, load: isa.OpFlatLoadDwordx4, store: isa.OpFlatStoreDwordx4},
			{bytes: 12, align: 4, load: isa.OpFlatLoadDwordx3, store: isa.OpFlatStoreDwordx3},
			{bytes: 8, align: 4, load: isa.OpFlatLoadDwordx2, store: isa.OpFlatStoreDwordx2},
			{bytes: 4, align: 4, load: isa.OpFlatLoadDword, store: isa.OpFlatStoreDword},
		}
	}
	limit := uint32(4095)
	if ctx.target.Chip >= isa.GFX10 {
		limit = 2047
	}
	return []memWidth{
		{bytes: 16, align: 4, maxOffset: limit, load: isa.OpGlobalLoadDwordx4, store: isa.OpGlobalStoreDwordx4},
		{bytes: 12, align: 4, maxOffset: limit, load: isa.OpGlobalLoadDwordx3, store: isa.OpGlobalStoreDwordx3},
		{bytes: 8, align: 4, maxOffset: limit, load: isa.OpGlobalLoadDwordx2, store: isa.OpGlobalStoreDwordx2},
		{bytes: 4, align: 4, maxOffset: limit, load: isa.OpGlobalLoadDword, store: isa.OpGlobalStoreDword},
	}
}
