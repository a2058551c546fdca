package ir

// Info is derived data about a function used by the selector.
type Info struct {
	// Uses counts the instructions and control nodes reading each value.
	Uses []int
	// Defs maps each value to its defining instruction.
	Defs []Instr
	// Blocks lists blocks by index.
	Blocks []*Block
}

// Resolve computes the Info of f. Block indices must be assigned.
func Resolve(f *Function) *Info {
	info := &Info{
		Uses: make([]int, len(f.Values)),
		Defs: make([]Instr, len(f.Values)),
	}
	use := func(h ValueHandle) {
		if h != NoValue && int(h) < len(info.Uses) {
			info.Uses[h]++
		}
	}
	def := func(h ValueHandle, in Instr) {
		if h != NoValue && int(h) < len(info.Defs) {
			info.Defs[h] = in
		}
	}
	var walk func(nodes []Node)
	walk = func(nodes []Node) {
		for _, n := range nodes {
			switch n := n.(type) {
			case *Block:
				info.Blocks = append(info.Blocks, n)
				for _, in := range n.Instrs {
					def(InstrDest(in), in)
					for _, s := range InstrSrcs(in) {
						use(s)
					}
				}
			case *If:
				use(n.Condition)
				walk(n.Then)
				walk(n.Else)
			case *Loop:
				walk(n.Body)
			}
		}
	}
	walk(f.Body)
	return info
}

// Const returns the constant components of h if it is defined by LoadConst.
func (info *Info) Const(h ValueHandle) ([]uint64, bool) {
	if h == NoValue || int(h) >= len(info.Defs) {
		return nil, false
	}
	lc, ok := info.Defs[h].(*LoadConst)
	if !ok {
		return nil, false
	}
	return lc.Values, true
}

// ConstScalar returns component c of h if it is a constant.
func (info *Info) ConstScalar(h ValueHandle, c int) (uint64, bool) {
	vals, ok := info.Const(h)
	if !ok || c >= len(vals) {
		return 0, false
	}
	return vals[c], true
}

// InstrDest returns the value defined by in, or NoValue.
func InstrDest(in Instr) ValueHandle {
	switch in := in.(type) {
	case *ALU:
		return in.Dest
	case *LoadConst:
		return in.Dest
	case *Undef:
		return in.Dest
	case *Phi:
		return in.Dest
	case *Intrinsic:
		return in.Dest
	case *Tex:
		return in.Dest
	}
	return NoValue
}

// InstrSrcs returns the values read by in, skipping absent sources.
func InstrSrcs(in Instr) []ValueHandle {
	var srcs []ValueHandle
	add := func(h ValueHandle) {
		if h != NoValue {
			srcs = append(srcs, h)
		}
	}
	switch in := in.(type) {
	case *ALU:
		for _, s := range in.Srcs {
			add(s.Value)
		}
	case *Phi:
		for _, s := range in.Srcs {
			add(s.Value)
		}
	case *Intrinsic:
		for _, s := range in.Srcs {
			add(s)
		}
	case *Tex:
		for _, h := range []ValueHandle{in.Coord, in.Bias, in.Lod, in.Comparator, in.Offset, in.DDX, in.DDY, in.MSIndex} {
			add(h)
		}
	}
	return srcs
}
