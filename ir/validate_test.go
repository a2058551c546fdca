package ir

import (
	"strings"
	"testing"
)

func diamond() (*Function, ValueHandle) {
	b := NewBuilder("main", StageFragment)
	cond := b.Value(1, 1, true)
	b.Emit(&Undef{Dest: cond})
	var x1, x2 ValueHandle
	thenEnd, elseEnd := b.If(cond,
		func() { x1 = b.Const(1) },
		func() { x2 = b.Const(2) },
	)
	x := b.Phi(32, 1, true, PhiSrc{Pred: thenEnd.Index, Value: x1}, PhiSrc{Pred: elseEnd.Index, Value: x2})
	return b.Finish(), x
}

func TestValidate_ValidFunction(t *testing.T) {
	fn, _ := diamond()
	errors, err := Validate(fn)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(errors) > 0 {
		t.Errorf("Expected no validation errors, got %d:", len(errors))
		for _, e := range errors {
			t.Errorf("  - %s", e.Error())
		}
	}
}

func TestValidate_NilFunction(t *testing.T) {
	if _, err := Validate(nil); err == nil {
		t.Error("Expected error for nil function")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Function
		want  string
	}{
		{
			name: "jump outside loop",
			build: func() *Function {
				b := NewBuilder("f", StageCompute)
				b.Jump(JumpBreak)
				return b.Finish()
			},
			want: "jump outside of a loop",
		},
		{
			name: "jump not last",
			build: func() *Function {
				b := NewBuilder("f", StageCompute)
				b.Loop(func(*Block) {
					b.Jump(JumpBreak)
					b.Const(1)
				})
				return b.Finish()
			},
			want: "jump is not the last instruction",
		},
		{
			name: "double definition",
			build: func() *Function {
				b := NewBuilder("f", StageCompute)
				v := b.Const(1)
				b.Emit(&LoadConst{Dest: v, Values: []uint64{2}})
				return b.Finish()
			},
			want: "defined more than once",
		},
		{
			name: "undefined source",
			build: func() *Function {
				b := NewBuilder("f", StageCompute)
				v := b.Value(32, 1, false)
				b.ALU(OpINeg, 32, false, v)
				return b.Finish()
			},
			want: "used but never defined",
		},
		{
			name: "non boolean condition",
			build: func() *Function {
				b := NewBuilder("f", StageCompute)
				b.If(b.Const(1), nil, nil)
				return b.Finish()
			},
			want: "scalar boolean",
		},
		{
			name: "phi after instruction",
			build: func() *Function {
				b := NewBuilder("f", StageCompute)
				c := b.Const(1)
				b.Phi(32, 1, false, PhiSrc{Pred: 0, Value: c})
				return b.Finish()
			},
			want: "phi after a non-phi",
		},
		{
			name: "wrong source count",
			build: func() *Function {
				b := NewBuilder("f", StageCompute)
				c := b.Const(1)
				b.ALU(OpIAdd, 32, false, c)
				return b.Finish()
			},
			want: "iadd takes 2 sources",
		},
		{
			name: "bad swizzle",
			build: func() *Function {
				b := NewBuilder("f", StageCompute)
				c := b.Const(1)
				d := b.Value(32, 1, false)
				b.Emit(&ALU{Op: OpMov, Dest: d, Srcs: []ALUSrc{SrcComp(c, 2)}})
				return b.Finish()
			},
			want: "swizzle reads component 2",
		},
		{
			name: "store with destination",
			build: func() *Function {
				b := NewBuilder("f", StageCompute)
				c := b.Const(1)
				b.Intrinsic(&Intrinsic{Op: StoreShared, Srcs: []ValueHandle{c, c}}, &Value{BitSize: 32, Components: 1})
				return b.Finish()
			},
			want: "destination presence mismatch",
		},
		{
			name: "empty body",
			build: func() *Function {
				return NewFunction("f", StageCompute)
			},
			want: "function body is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errors, err := Validate(tt.build())
			if err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
			for _, e := range errors {
				if strings.Contains(e.Error(), tt.want) {
					return
				}
			}
			t.Errorf("Expected error containing %q, got %v", tt.want, errors)
		})
	}
}

func TestBuilder_BlockNumbering(t *testing.T) {
	b := NewBuilder("main", StageCompute)
	cond := b.Value(1, 1, false)
	b.Emit(&Undef{Dest: cond})
	var header *Block
	b.Loop(func(h *Block) {
		header = h
		b.If(cond, func() { b.Jump(JumpBreak) }, nil)
	})
	fn := b.Finish()

	var got []uint32
	fn.Walk(func(blk *Block) { got = append(got, blk.Index) })
	for i, idx := range got {
		if idx != uint32(i) {
			t.Fatalf("blocks not numbered in visiting order: %v", got)
		}
	}
	// entry, header, then, else, merge, after loop
	if len(got) != 6 {
		t.Errorf("Expected 6 blocks, got %d", len(got))
	}
	if header.Index != 1 {
		t.Errorf("Expected loop header to be block 1, got %d", header.Index)
	}
	if errs, _ := Validate(fn); len(errs) != 0 {
		t.Errorf("Unexpected validation errors: %v", errs)
	}
}

func TestResolve(t *testing.T) {
	fn, x := diamond()
	info := Resolve(fn)

	if len(info.Blocks) != fn.NumBlocks() {
		t.Fatalf("Resolve found %d blocks, want %d", len(info.Blocks), fn.NumBlocks())
	}
	if _, ok := info.Defs[x].(*Phi); !ok {
		t.Errorf("Expected phi to define %d, got %T", x, info.Defs[x])
	}
	if info.Uses[x] != 0 {
		t.Errorf("Expected unused phi, got %d uses", info.Uses[x])
	}
	phi := info.Defs[x].(*Phi)
	c, ok := info.ConstScalar(phi.Srcs[1].Value, 0)
	if !ok || c != 2 {
		t.Errorf("ConstScalar = %d, %v; want 2, true", c, ok)
	}
	if info.Uses[phi.Srcs[0].Value] != 1 {
		t.Errorf("Expected one use of then value, got %d", info.Uses[phi.Srcs[0].Value])
	}
	if _, ok := info.Const(x); ok {
		t.Errorf("phi must not resolve as a constant")
	}
}
