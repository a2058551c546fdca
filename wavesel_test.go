package wavesel

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/wavesel/ir"
	"github.com/gogpu/wavesel/isa"
	"github.com/gogpu/wavesel/isel"
)

var v32 = &ir.Value{BitSize: 32, Components: 1, Divergent: true}

// buildDiamond builds a compute shader with a per-lane conditional.
func buildDiamond() *ir.Function {
	b := ir.NewBuilder("main", ir.StageCompute)
	lid := b.Intrinsic(&ir.Intrinsic{Op: ir.LoadLocalInvocationID}, v32)
	cond := b.ALU(ir.OpULt, 1, true, lid, b.Const(16))
	var x, y ir.ValueHandle
	thenEnd, elseEnd := b.If(cond, func() {
		x = b.ALU(ir.OpIMul, 32, true, lid, b.Const(3))
	}, func() {
		y = b.ALU(ir.OpIAdd, 32, true, lid, b.Const(1))
	})
	r := b.Phi(32, 1, true,
		ir.PhiSrc{Pred: thenEnd.Index, Value: x},
		ir.PhiSrc{Pred: elseEnd.Index, Value: y})
	desc := b.Intrinsic(&ir.Intrinsic{Op: ir.VulkanResourceIndex}, &ir.Value{BitSize: 32, Components: 1})
	off := b.ALU(ir.OpIShl, 32, true, lid, b.Const(2))
	b.Intrinsic(&ir.Intrinsic{Op: ir.StoreSSBO, Srcs: []ir.ValueHandle{r, desc, off}, Align: 4}, nil)
	return b.Finish()
}

func TestCompile(t *testing.T) {
	prog, err := Compile(buildDiamond(), DefaultOptions())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(prog.Blocks) != 7 {
		t.Errorf("got %d blocks, want 7", len(prog.Blocks))
	}

	var buf bytes.Buffer
	if err := isa.Print(&buf, prog); err != nil {
		t.Fatalf("Print failed: %v", err)
	}
	for _, want := range []string{"p_startpgm", "p_cbranch_z", "p_cbranch_nz", "p_phi", "buffer_store_dword", "s_endpgm"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output lacks %q", want)
		}
	}
}

func TestCompileTargets(t *testing.T) {
	tests := []struct {
		chip isa.ChipClass
		wave uint32
	}{
		{isa.GFX6, 64},
		{isa.GFX8, 64},
		{isa.GFX9, 64},
		{isa.GFX10, 32},
		{isa.GFX103, 32},
	}
	for _, tt := range tests {
		t.Run(tt.chip.String(), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Select.Target = isel.TargetFor(tt.chip, tt.wave)
			prog, err := Compile(buildDiamond(), opts)
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			if prog.WaveSize != tt.wave || prog.Chip != tt.chip {
				t.Errorf("program targets %v wave%d", prog.Chip, prog.WaveSize)
			}
		})
	}
}

func TestCompileValidationError(t *testing.T) {
	b := ir.NewBuilder("main", ir.StageCompute)
	b.Jump(ir.JumpBreak)
	fn := b.Finish()

	_, err := Compile(fn, DefaultOptions())
	if err == nil {
		t.Fatal("Compile accepted a break outside a loop")
	}
	if !strings.HasPrefix(err.Error(), "validation failed: ") {
		t.Errorf("error = %q, want a validation failure", err)
	}
	var verr *ir.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("error %v does not wrap *ir.ValidationError", err)
	}

	opts := DefaultOptions()
	opts.Validate = false
	_, err = Compile(fn, opts)
	var ce *isel.CompileError
	if !errors.As(err, &ce) || ce.Kind != isel.ErrMalformed {
		t.Errorf("unvalidated Compile error = %v, want a malformed selection error", err)
	}
	if err != nil && !strings.HasPrefix(err.Error(), "selection error: ") {
		t.Errorf("error = %q, want a selection error", err)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(buildDiamond()); err != nil {
		t.Errorf("Validate(diamond) = %v", err)
	}
	fn := ir.NewFunction("bad", ir.StageFragment)
	fn.Body = []ir.Node{&ir.Block{Index: 3}}
	if err := Validate(fn); err == nil {
		t.Error("Validate accepted a misnumbered block")
	}
}
