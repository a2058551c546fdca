package ir

// Builder constructs a Function while keeping the structural invariants:
// every node list starts and ends with a block and blocks are numbered in
// visiting order.
type Builder struct {
	Func *Function

	lists []*[]Node
	next  uint32
}

// NewBuilder starts a function with an empty entry block.
func NewBuilder(name string, stage ShaderStage) *Builder {
	b := &Builder{Func: NewFunction(name, stage)}
	b.lists = []*[]Node{&b.Func.Body}
	b.newBlock()
	return b
}

func (b *Builder) list() *[]Node { return b.lists[len(b.lists)-1] }

func (b *Builder) newBlock() *Block {
	blk := &Block{Index: b.next}
	b.next++
	*b.list() = append(*b.list(), blk)
	return blk
}

// Current returns the block instructions are appended to.
func (b *Builder) Current() *Block {
	return LastBlock(*b.list())
}

// Value registers a new value.
func (b *Builder) Value(bitSize, components uint8, divergent bool) ValueHandle {
	return b.Func.NewValue(bitSize, components, divergent)
}

// Emit appends an instruction to the current block.
func (b *Builder) Emit(in Instr) {
	blk := b.Current()
	blk.Instrs = append(blk.Instrs, in)
}

// Const emits a 32-bit uniform constant.
func (b *Builder) Const(v uint32) ValueHandle {
	return b.ConstOf(32, false, uint64(v))
}

// ConstOf emits a constant vector with one entry per component.
func (b *Builder) ConstOf(bitSize uint8, divergent bool, vals ...uint64) ValueHandle {
	d := b.Value(bitSize, uint8(len(vals)), divergent)
	b.Emit(&LoadConst{Dest: d, Values: vals})
	return d
}

// ALU emits a scalar ALU operation producing a new value.
func (b *Builder) ALU(op ALUOp, bitSize uint8, divergent bool, srcs ...ValueHandle) ValueHandle {
	d := b.Value(bitSize, 1, divergent)
	in := &ALU{Op: op, Dest: d}
	for _, s := range srcs {
		in.Srcs = append(in.Srcs, Src(s))
	}
	b.Emit(in)
	return d
}

// Intrinsic emits in, allocating its destination if dest describes one.
func (b *Builder) Intrinsic(in *Intrinsic, dest *Value) ValueHandle {
	if dest != nil {
		in.Dest = b.Value(dest.BitSize, dest.Components, dest.Divergent)
	}
	b.Emit(in)
	return in.Dest
}

// Phi emits a phi in the current block.
func (b *Builder) Phi(bitSize, components uint8, divergent bool, srcs ...PhiSrc) ValueHandle {
	d := b.Value(bitSize, components, divergent)
	b.Emit(&Phi{Dest: d, Srcs: srcs})
	return d
}

// Jump emits a break or continue.
func (b *Builder) Jump(kind JumpKind) {
	b.Emit(&Jump{Kind: kind})
}

// If emits an if node. then and els run with the builder positioned in the
// respective branch; both may be nil. It returns the last block of each
// branch, for use as phi predecessors, and leaves the builder in the merge
// block.
func (b *Builder) If(cond ValueHandle, then, els func()) (thenEnd, elseEnd *Block) {
	n := &If{Condition: cond}
	*b.list() = append(*b.list(), n)

	thenEnd = b.nested(&n.Then, then)
	elseEnd = b.nested(&n.Else, els)
	b.newBlock()
	return thenEnd, elseEnd
}

// Loop emits a loop whose body is built by body. The builder is positioned
// in the loop header when body is called and in the block after the loop
// when Loop returns. The returned block is the last block of the body.
func (b *Builder) Loop(body func(header *Block)) *Block {
	n := &Loop{}
	*b.list() = append(*b.list(), n)
	b.lists = append(b.lists, &n.Body)
	header := b.newBlock()
	if body != nil {
		body(header)
	}
	end := b.Current()
	b.lists = b.lists[:len(b.lists)-1]
	b.newBlock()
	return end
}

func (b *Builder) nested(list *[]Node, fn func()) *Block {
	b.lists = append(b.lists, list)
	b.newBlock()
	if fn != nil {
		fn()
	}
	end := b.Current()
	b.lists = b.lists[:len(b.lists)-1]
	return end
}

// Finish returns the built function.
func (b *Builder) Finish() *Function {
	return b.Func
}
