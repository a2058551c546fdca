package ir

import (
	"fmt"
)

// ValidationError represents a validation error.
type ValidationError struct {
	Message string
	// Optional context
	Function string
	Value    *ValueHandle
	Block    int
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Function != "" {
		if e.Value != nil {
			return fmt.Sprintf("in function %s, value %d: %s", e.Function, *e.Value, e.Message)
		}
		if e.Block >= 0 {
			return fmt.Sprintf("in function %s, block %d: %s", e.Function, e.Block, e.Message)
		}
		return fmt.Sprintf("in function %s: %s", e.Function, e.Message)
	}
	return e.Message
}

// Validator validates IR functions.
type Validator struct {
	fn     *Function
	errors []ValidationError

	defined   []bool
	blocks    int
	loopDepth int
	block     int
}

// Validate checks the structure of a function.
// Returns validation errors if any, or nil if the function is valid.
func Validate(fn *Function) ([]ValidationError, error) {
	if fn == nil {
		return nil, fmt.Errorf("function is nil")
	}

	v := &Validator{
		fn:     fn,
		errors: make([]ValidationError, 0),
		block:  -1,
	}

	v.ValidateFunction()

	if len(v.errors) > 0 {
		return v.errors, nil
	}
	return nil, nil
}

// ValidateFunction validates the complete function.
func (v *Validator) ValidateFunction() {
	if len(v.fn.Values) == 0 {
		v.addErrorInFunction("missing placeholder value 0")
		return
	}

	// Validate values
	for i := 1; i < len(v.fn.Values); i++ {
		v.validateValue(ValueHandle(i), v.fn.Values[i])
	}

	// Collect definitions before checking uses so that loop-carried phi
	// sources defined later in the body are accepted.
	v.defined = make([]bool, len(v.fn.Values))
	v.collectDefs(v.fn.Body)
	v.countBlocks()

	// Validate control flow
	v.validateList(v.fn.Body, "function body")
}

func (v *Validator) validateValue(h ValueHandle, val Value) {
	switch val.BitSize {
	case 1, 8, 16, 32, 64:
	default:
		v.addErrorInValue(h, fmt.Sprintf("invalid bit size %d", val.BitSize))
	}
	if val.Components == 0 || val.Components > 16 {
		v.addErrorInValue(h, fmt.Sprintf("invalid component count %d", val.Components))
	}
}

func (v *Validator) collectDefs(nodes []Node) {
	for _, n := range nodes {
		switch n := n.(type) {
		case *Block:
			for _, in := range n.Instrs {
				d := InstrDest(in)
				if d == NoValue {
					continue
				}
				if !v.isValidValueHandle(d) {
					v.addErrorInBlock(int(n.Index), fmt.Sprintf("destination %d out of range", d))
					continue
				}
				if v.defined[d] {
					v.addErrorInValue(d, "value defined more than once")
				}
				v.defined[d] = true
			}
		case *If:
			v.collectDefs(n.Then)
			v.collectDefs(n.Else)
		case *Loop:
			v.collectDefs(n.Body)
		}
	}
}

func (v *Validator) countBlocks() {
	var next uint32
	v.fn.Walk(func(b *Block) {
		if b.Index != next {
			v.addErrorInBlock(int(b.Index), fmt.Sprintf("block numbered %d, expected %d in visiting order", b.Index, next))
		}
		next++
	})
	v.blocks = int(next)
}

func (v *Validator) validateList(nodes []Node, what string) {
	if len(nodes) == 0 {
		v.addErrorInFunction(what + " is empty")
		return
	}
	if _, ok := nodes[0].(*Block); !ok {
		v.addErrorInFunction(what + " does not start with a block")
	}
	if _, ok := nodes[len(nodes)-1].(*Block); !ok {
		v.addErrorInFunction(what + " does not end with a block")
	}
	for i, n := range nodes {
		switch n := n.(type) {
		case *Block:
			if i > 0 {
				if _, ok := nodes[i-1].(*Block); ok {
					v.addErrorInBlock(int(n.Index), "consecutive blocks in "+what)
				}
			}
			v.validateBlock(n)
		case *If:
			v.validateCondition(n.Condition)
			v.validateList(n.Then, "then branch")
			v.validateList(n.Else, "else branch")
		case *Loop:
			v.loopDepth++
			v.validateList(n.Body, "loop body")
			v.loopDepth--
		default:
			v.addErrorInFunction(fmt.Sprintf("unknown node %T", n))
		}
	}
}

func (v *Validator) validateCondition(h ValueHandle) {
	if !v.checkSrc(h) {
		return
	}
	val := v.fn.Values[h]
	if val.BitSize != 1 || val.Components != 1 {
		v.addErrorInValue(h, "if condition must be a scalar boolean")
	}
}

func (v *Validator) validateBlock(b *Block) {
	prev := v.block
	v.block = int(b.Index)
	defer func() { v.block = prev }()

	phisDone := false
	for i, in := range b.Instrs {
		if _, ok := in.(*Phi); ok {
			if phisDone {
				v.addErrorInBlock(v.block, "phi after a non-phi instruction")
			}
		} else {
			phisDone = true
		}
		if _, ok := in.(*Jump); ok {
			if v.loopDepth == 0 {
				v.addErrorInBlock(v.block, "jump outside of a loop")
			}
			if i != len(b.Instrs)-1 {
				v.addErrorInBlock(v.block, "jump is not the last instruction of its block")
			}
		}
		v.validateInstr(in)
	}
}

func (v *Validator) validateInstr(in Instr) {
	for _, s := range InstrSrcs(in) {
		v.checkSrc(s)
	}
	switch in := in.(type) {
	case *ALU:
		v.validateALU(in)
	case *LoadConst:
		if v.isValidValueHandle(in.Dest) && len(in.Values) != int(v.fn.Values[in.Dest].Components) {
			v.addErrorInValue(in.Dest, "constant component count mismatch")
		}
	case *Undef:
	case *Phi:
		if len(in.Srcs) == 0 {
			v.addErrorInValue(in.Dest, "phi without sources")
		}
		for _, s := range in.Srcs {
			if int(s.Pred) >= v.blocks {
				v.addErrorInValue(in.Dest, fmt.Sprintf("phi predecessor %d does not exist", s.Pred))
			}
		}
	case *Jump:
	case *Intrinsic:
		if in.Op.HasDest() != (in.Dest != NoValue) {
			v.addErrorInBlock(v.block, fmt.Sprintf("%v: destination presence mismatch", in.Op))
		}
	case *Tex:
		if in.Dest == NoValue {
			v.addErrorInBlock(v.block, fmt.Sprintf("%v without destination", in.Op))
		}
		if in.Coord == NoValue && in.Op != TexSize {
			v.addErrorInBlock(v.block, fmt.Sprintf("%v without coordinates", in.Op))
		}
	default:
		v.addErrorInBlock(v.block, fmt.Sprintf("unknown instruction %T", in))
	}
}

func (v *Validator) validateALU(in *ALU) {
	if len(in.Srcs) != in.Op.NumSrcs() {
		v.addErrorInValue(in.Dest, fmt.Sprintf("%v takes %d sources, got %d", in.Op, in.Op.NumSrcs(), len(in.Srcs)))
		return
	}
	if !v.isValidValueHandle(in.Dest) {
		return
	}
	dest := v.fn.Values[in.Dest]
	switch in.Op {
	case OpMov:
	case OpVec2, OpVec3, OpVec4:
		if int(dest.Components) != in.Op.NumSrcs() {
			v.addErrorInValue(in.Dest, fmt.Sprintf("%v destination has %d components", in.Op, dest.Components))
		}
	default:
		if dest.Components != 1 {
			v.addErrorInValue(in.Dest, fmt.Sprintf("%v destination must be scalar", in.Op))
		}
	}
	if in.Op.IsComparison() && dest.BitSize != 1 {
		v.addErrorInValue(in.Dest, fmt.Sprintf("%v must produce a boolean", in.Op))
	}
	for _, s := range in.Srcs {
		if !v.isValidValueHandle(s.Value) {
			continue
		}
		comps := v.fn.Values[s.Value].Components
		n := dest.Components
		if in.Op >= OpVec2 && in.Op <= OpVec4 {
			n = 1
		}
		for c := uint8(0); c < n && c < 4; c++ {
			if s.Swizzle[c] >= comps {
				v.addErrorInValue(in.Dest, fmt.Sprintf("swizzle reads component %d of a %d-component value", s.Swizzle[c], comps))
			}
		}
	}
}

func (v *Validator) checkSrc(h ValueHandle) bool {
	if !v.isValidValueHandle(h) {
		v.addErrorInBlock(v.block, fmt.Sprintf("source %d out of range", h))
		return false
	}
	if !v.defined[h] {
		v.addErrorInValue(h, "value used but never defined")
		return false
	}
	return true
}

func (v *Validator) isValidValueHandle(h ValueHandle) bool {
	return h != NoValue && int(h) < len(v.fn.Values)
}

func (v *Validator) addErrorInFunction(msg string) {
	v.errors = append(v.errors, ValidationError{
		Message:  msg,
		Function: v.fn.Name,
		Block:    -1,
	})
}

func (v *Validator) addErrorInValue(handle ValueHandle, msg string) {
	v.errors = append(v.errors, ValidationError{
		Message:  msg,
		Function: v.fn.Name,
		Value:    &handle,
		Block:    -1,
	})
}

func (v *Validator) addErrorInBlock(index int, msg string) {
	v.errors = append(v.errors, ValidationError{
		Message:  msg,
		Function: v.fn.Name,
		Block:    index,
	})
}
