package ir

// ShaderStage represents a shader stage.
type ShaderStage uint8

const (
	StageVertex ShaderStage = iota
	StageFragment
	StageCompute
)

// String returns the stage name.
func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	}
	return "unknown"
}

// ValueHandle references a Value of a Function. The zero handle is never a
// valid value and marks an absent optional source.
type ValueHandle uint32

// NoValue is the absent value.
const NoValue ValueHandle = 0

// Value describes an SSA value. BitSize is 1 for booleans.
type Value struct {
	BitSize    uint8
	Components uint8
	// Divergent is set when the value may differ between the lanes of a wave.
	Divergent bool
}

// Bytes returns the size of the value in bytes. Booleans count as one byte
// per component.
func (v Value) Bytes() uint32 {
	bits := uint32(v.BitSize)
	if bits < 8 {
		bits = 8
	}
	return bits / 8 * uint32(v.Components)
}

// Function is a shader entry point in structured SSA form.
type Function struct {
	Name  string
	Stage ShaderStage

	// Values[0] is a placeholder so that NoValue never aliases a real value.
	Values []Value
	Body   []Node

	// Workgroup size for compute shaders.
	Workgroup [3]uint32
	// ConstantData backs LoadConstant.
	ConstantData []byte
	// PushConstantSize is the size in bytes of the push constant block.
	PushConstantSize uint32
}

// NewFunction returns an empty function.
func NewFunction(name string, stage ShaderStage) *Function {
	return &Function{Name: name, Stage: stage, Values: []Value{{}}}
}

// NewValue registers a value and returns its handle.
func (f *Function) NewValue(bitSize, components uint8, divergent bool) ValueHandle {
	if len(f.Values) == 0 {
		f.Values = append(f.Values, Value{})
	}
	f.Values = append(f.Values, Value{BitSize: bitSize, Components: components, Divergent: divergent})
	return ValueHandle(len(f.Values) - 1)
}

// Value returns the description of h.
func (f *Function) Value(h ValueHandle) Value {
	return f.Values[h]
}

// Walk calls fn for every block in visiting order.
func (f *Function) Walk(fn func(*Block)) {
	walkNodes(f.Body, fn)
}

func walkNodes(nodes []Node, fn func(*Block)) {
	for _, n := range nodes {
		switch n := n.(type) {
		case *Block:
			fn(n)
		case *If:
			walkNodes(n.Then, fn)
			walkNodes(n.Else, fn)
		case *Loop:
			walkNodes(n.Body, fn)
		}
	}
}

// NumBlocks returns the number of blocks in the function.
func (f *Function) NumBlocks() int {
	n := 0
	f.Walk(func(*Block) { n++ })
	return n
}
