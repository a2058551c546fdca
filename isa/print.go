package isa

import (
	"fmt"
	"io"
	"strings"
)

func joinIndices(idx []uint32) string {
	parts := make([]string, len(idx))
	for i, v := range idx {
		parts[i] = fmt.Sprintf("BB%d", v)
	}
	return strings.Join(parts, ", ")
}

// Print writes a readable listing of the program to w.
func Print(w io.Writer, p *Program) error {
	if _, err := fmt.Fprintf(w, "; %v wave%d\n", p.Chip, p.WaveSize); err != nil {
		return err
	}
	for _, b := range p.Blocks {
		if err := printBlock(w, b); err != nil {
			return err
		}
	}
	var flags []string
	if p.NeedsWQM {
		flags = append(flags, "wqm")
	}
	if p.NeedsExact {
		flags = append(flags, "exact")
	}
	if p.UsesDiscard {
		flags = append(flags, "discard")
	}
	if p.UsesDemote {
		flags = append(flags, "demote")
	}
	if p.SharedVGPRs > 0 {
		flags = append(flags, fmt.Sprintf("shared_vgprs=%d", p.SharedVGPRs))
	}
	if len(flags) > 0 {
		_, err := fmt.Fprintf(w, "; flags: %s\n", strings.Join(flags, " "))
		return err
	}
	return nil
}

func printBlock(w io.Writer, b *Block) error {
	_, err := fmt.Fprintf(w, "BB%d:\n", b.Index)
	if err != nil {
		return err
	}
	if b.Kind != 0 {
		fmt.Fprintf(w, "  /* kind: %v */\n", b.Kind)
	}
	fmt.Fprintf(w, "  /* logical preds: %s / linear preds: %s */\n",
		joinIndices(b.LogicalPreds), joinIndices(b.LinearPreds))
	for _, in := range b.Instructions {
		if _, err := fmt.Fprintf(w, "  %s\n", in); err != nil {
			return err
		}
	}
	if len(b.LogicalSuccs) > 0 || len(b.LinearSuccs) > 0 {
		_, err = fmt.Fprintf(w, "  /* logical succs: %s / linear succs: %s */\n",
			joinIndices(b.LogicalSuccs), joinIndices(b.LinearSuccs))
	}
	return err
}

// Sprint returns the listing produced by Print.
func Sprint(p *Program) string {
	var sb strings.Builder
	_ = Print(&sb, p)
	return sb.String()
}
