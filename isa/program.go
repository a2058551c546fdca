package isa

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// ChipClass is a GPU hardware generation.
type ChipClass uint8

const (
	GFX6 ChipClass = iota + 6
	GFX7
	GFX8
	GFX9
	GFX10
	GFX103
)

// String implements fmt.Stringer.
func (c ChipClass) String() string {
	switch c {
	case GFX6, GFX7, GFX8, GFX9, GFX10:
		return fmt.Sprintf("gfx%d", uint8(c))
	case GFX103:
		return "gfx10.3"
	default:
		return fmt.Sprintf("ChipClass(%d)", uint8(c))
	}
}

// Stats counts notable events during selection.
type Stats struct {
	// Promotions is the number of cached uniform elements that had to be
	// broadcast into divergent registers.
	Promotions int
	// Instructions is the number of instructions emitted.
	Instructions int
}

// Program is the output of instruction selection for one function.
type Program struct {
	Blocks   []*Block
	Chip     ChipClass
	WaveSize uint32
	LaneMask RegClass

	// temps[id] is the class of temp id; id 0 is reserved as invalid.
	temps []RegClass

	// NeedsWQM is set when some value must be computed in whole quad mode.
	NeedsWQM bool
	// NeedsExact is set when some instruction must run with the exact mask.
	NeedsExact bool
	UsesDiscard bool
	UsesDemote  bool
	// SharedVGPRs is the peak number of vector registers shared between the
	// two halves of a wave64 by an emulated cross-lane primitive.
	SharedVGPRs uint32

	ConstantData []byte
	Stats        Stats
}

// NewProgram returns an empty program for the given chip and wave size.
func NewProgram(chip ChipClass, waveSize uint32) *Program {
	if waveSize != 32 && waveSize != 64 {
		panic(fmt.Sprintf("unsupported wave size %d", waveSize))
	}
	return &Program{
		Chip:     chip,
		WaveSize: waveSize,
		LaneMask: LaneMaskClass(waveSize),
		temps:    []RegClass{RegClassNone},
	}
}

// AllocateID reserves a fresh temp id of class rc. Ids are never reused.
func (p *Program) AllocateID(rc RegClass) uint32 {
	p.temps = append(p.temps, rc)
	return uint32(len(p.temps) - 1)
}

// AllocateTemp returns a fresh temp of class rc.
func (p *Program) AllocateTemp(rc RegClass) Temp {
	return Temp{ID: p.AllocateID(rc), RC: rc}
}

// TempClass returns the class recorded for id.
func (p *Program) TempClass(id uint32) RegClass {
	if int(id) >= len(p.temps) {
		panic(fmt.Sprintf("temp id %d out of range", id))
	}
	return p.temps[id]
}

// NumTemps returns the number of allocated temps.
func (p *Program) NumTemps() int { return len(p.temps) - 1 }

// CreateAndInsertBlock appends a new empty block.
func (p *Program) CreateAndInsertBlock() *Block {
	return p.InsertBlock(&Block{})
}

// InsertBlock assigns b the next index and appends it. Blocks built ahead of
// time are inserted once their predecessors are known, so indices follow
// the linear order.
func (p *Program) InsertBlock(b *Block) *Block {
	b.Index = uint32(len(p.Blocks))
	p.Blocks = append(p.Blocks, b)
	return b
}

// MarkWQM records that whole quad mode is needed. The flag is never cleared.
func (p *Program) MarkWQM() { p.NeedsWQM = true }

// MarkExact records that exact-mask execution is needed.
func (p *Program) MarkExact() { p.NeedsExact = true }

// NoteSharedVGPRs raises the shared VGPR peak to n if larger.
func (p *Program) NoteSharedVGPRs(n uint32) {
	if n > p.SharedVGPRs {
		p.SharedVGPRs = n
	}
}

// ComputeSuccessors fills the successor lists of every block from the
// predecessor lists. Successors appear in increasing block order.
func (p *Program) ComputeSuccessors() {
	for _, b := range p.Blocks {
		b.LogicalSuccs = b.LogicalSuccs[:0]
		b.LinearSuccs = b.LinearSuccs[:0]
	}
	for _, b := range p.Blocks {
		for _, pred := range b.LogicalPreds {
			succs := &p.Blocks[pred].LogicalSuccs
			if !slices.Contains(*succs, b.Index) {
				*succs = append(*succs, b.Index)
			}
		}
		for _, pred := range b.LinearPreds {
			succs := &p.Blocks[pred].LinearSuccs
			if !slices.Contains(*succs, b.Index) {
				*succs = append(*succs, b.Index)
			}
		}
	}
}

// Reachable returns, for each block, whether it is reachable from block 0
// following linear (linear=true) or logical successor edges. Successors must
// have been computed.
func (p *Program) Reachable(linear bool) []bool {
	seen := make([]bool, len(p.Blocks))
	if len(p.Blocks) == 0 {
		return seen
	}
	work := []uint32{0}
	seen[0] = true
	for len(work) > 0 {
		idx := work[len(work)-1]
		work = work[:len(work)-1]
		succs := p.Blocks[idx].LogicalSuccs
		if linear {
			succs = p.Blocks[idx].LinearSuccs
		}
		for _, s := range succs {
			if !seen[s] {
				seen[s] = true
				work = append(work, s)
			}
		}
	}
	return seen
}
