package ir

// Node is an element of a structured control-flow list.
type Node interface {
	node()
}

// Block is a straight-line sequence of instructions.
type Block struct {
	// Index is assigned in visiting order by Builder or Renumber.
	Index  uint32
	Instrs []Instr
}

func (*Block) node() {}

// EndsInJump reports whether the block ends with a break or continue.
func (b *Block) EndsInJump() bool {
	if len(b.Instrs) == 0 {
		return false
	}
	_, ok := b.Instrs[len(b.Instrs)-1].(*Jump)
	return ok
}

// If executes Then when Condition (a 1-bit value) is true, Else otherwise.
type If struct {
	Condition ValueHandle
	Then      []Node
	Else      []Node
}

func (*If) node() {}

// Loop repeats Body until a break is taken. The first block of Body is the
// loop header and the only target of continue.
type Loop struct {
	Body []Node
}

func (*Loop) node() {}

// FirstBlock returns the first block of a node list, or nil.
func FirstBlock(nodes []Node) *Block {
	if len(nodes) == 0 {
		return nil
	}
	b, _ := nodes[0].(*Block)
	return b
}

// LastBlock returns the last block of a node list, or nil.
func LastBlock(nodes []Node) *Block {
	if len(nodes) == 0 {
		return nil
	}
	b, _ := nodes[len(nodes)-1].(*Block)
	return b
}

// Renumber assigns block indices in visiting order.
func (f *Function) Renumber() {
	var next uint32
	f.Walk(func(b *Block) {
		b.Index = next
		next++
	})
}
