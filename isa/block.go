package isa

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// BlockKind is a bitset describing the role of a block in the lowered CFG.
type BlockKind uint32

const (
	BlockUniform BlockKind = 1 << iota
	BlockTopLevel
	BlockLoopPreheader
	BlockLoopHeader
	BlockLoopExit
	BlockContinue
	BlockBreak
	BlockContinueOrBreak
	BlockDiscard
	BlockBranch
	BlockMerge
	BlockInvert
	BlockUsesDiscardIf
	BlockUsesDemote
	BlockExportEnd
)

var blockKindNames = [...]string{
	"uniform",
	"top_level",
	"loop_preheader",
	"loop_header",
	"loop_exit",
	"continue",
	"break",
	"continue_or_break",
	"discard",
	"branch",
	"merge",
	"invert",
	"uses_discard_if",
	"uses_demote",
	"export_end",
}

// Has reports whether all bits of k2 are set in k.
func (k BlockKind) Has(k2 BlockKind) bool { return k&k2 == k2 }

// String lists the set kinds separated by commas.
func (k BlockKind) String() string {
	var names []string
	for i, name := range blockKindNames {
		if k&(1<<uint(i)) != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, ",")
}

// Block is a basic block of the lowered program. Predecessor lists are
// filled during selection; successor lists are derived from them by
// Program.ComputeSuccessors.
type Block struct {
	Index        uint32
	Instructions []*Instruction

	LogicalPreds []uint32
	LinearPreds  []uint32
	LogicalSuccs []uint32
	LinearSuccs  []uint32

	Kind          BlockKind
	LoopNestDepth uint32
}

// AddLogicalPred records a logical edge from pred to b.
func (b *Block) AddLogicalPred(pred uint32) {
	b.LogicalPreds = append(b.LogicalPreds, pred)
}

// AddLinearPred records a linear edge from pred to b.
func (b *Block) AddLinearPred(pred uint32) {
	b.LinearPreds = append(b.LinearPreds, pred)
}

// AddEdge records pred as both a logical and a linear predecessor of b.
func (b *Block) AddEdge(pred uint32) {
	b.AddLogicalPred(pred)
	b.AddLinearPred(pred)
}

// HasLogicalPred reports whether pred is a logical predecessor of b.
func (b *Block) HasLogicalPred(pred uint32) bool {
	return slices.Contains(b.LogicalPreds, pred)
}

// HasLinearPred reports whether pred is a linear predecessor of b.
func (b *Block) HasLinearPred(pred uint32) bool {
	return slices.Contains(b.LinearPreds, pred)
}

// Append adds an instruction at the end of the block.
func (b *Block) Append(in *Instruction) {
	b.Instructions = append(b.Instructions, in)
}

// Last returns the last instruction of the block, or nil.
func (b *Block) Last() *Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	return b.Instructions[len(b.Instructions)-1]
}

// InsertPhi inserts a phi after the existing phis at the start of the block.
func (b *Block) InsertPhi(in *Instruction) {
	pos := slices.IndexFunc(b.Instructions, func(i *Instruction) bool { return !i.IsPhi() })
	if pos < 0 {
		pos = len(b.Instructions)
	}
	b.Instructions = slices.Insert(b.Instructions, pos, in)
}

// Phis returns the leading phi instructions of the block.
func (b *Block) Phis() []*Instruction {
	n := slices.IndexFunc(b.Instructions, func(i *Instruction) bool { return !i.IsPhi() })
	if n < 0 {
		n = len(b.Instructions)
	}
	return b.Instructions[:n]
}

// RemoveInstructions drops every instruction for which drop returns true.
func (b *Block) RemoveInstructions(drop func(*Instruction) bool) {
	b.Instructions = slices.DeleteFunc(b.Instructions, drop)
}

// String returns a short header line for the block.
func (b *Block) String() string {
	return fmt.Sprintf("BB%d", b.Index)
}
