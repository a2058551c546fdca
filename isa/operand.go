package isa

import (
	"fmt"
	"math"
)

// PhysReg names a fixed hardware register an operand or definition is pinned to.
type PhysReg uint16

const (
	RegNone PhysReg = iota
	RegVCC
	RegExec
	RegSCC
	RegM0
)

var physRegNames = [...]string{
	RegNone: "",
	RegVCC:  "vcc",
	RegExec: "exec",
	RegSCC:  "scc",
	RegM0:   "m0",
}

// String implements fmt.Stringer.
func (r PhysReg) String() string {
	if int(r) < len(physRegNames) {
		return physRegNames[r]
	}
	return fmt.Sprintf("reg%d", uint16(r))
}

type operandKind uint8

const (
	operandTemp operandKind = iota
	operandConstant
	operandUndef
	operandFixed
)

// Operand is an instruction input: a temp, a constant, an undefined value
// of some class, or a fixed hardware register such as exec.
type Operand struct {
	kind  operandKind
	temp  Temp
	value uint64
	rc    RegClass
	fixed PhysReg
}

// OperandTemp returns an operand reading t.
func OperandTemp(t Temp) Operand {
	return Operand{kind: operandTemp, temp: t, rc: t.RC}
}

// OperandConst returns a 32-bit constant operand.
func OperandConst(v uint32) Operand {
	return Operand{kind: operandConstant, value: uint64(v), rc: S1}
}

// OperandConst64 returns a 64-bit constant operand.
func OperandConst64(v uint64) Operand {
	return Operand{kind: operandConstant, value: v, rc: S2}
}

// OperandFloat returns the bit pattern of a 32-bit float as a constant operand.
func OperandFloat(f float32) Operand {
	return OperandConst(math.Float32bits(f))
}

// OperandUndef returns an undefined operand of class rc.
func OperandUndef(rc RegClass) Operand {
	return Operand{kind: operandUndef, rc: rc}
}

// OperandFixed returns an operand reading the hardware register r with class rc.
func OperandFixed(r PhysReg, rc RegClass) Operand {
	return Operand{kind: operandFixed, fixed: r, rc: rc}
}

// OperandFixedTemp returns an operand reading t that must live in r.
func OperandFixedTemp(t Temp, r PhysReg) Operand {
	return Operand{kind: operandTemp, temp: t, rc: t.RC, fixed: r}
}

// IsTemp reports whether the operand reads a temp.
func (o Operand) IsTemp() bool { return o.kind == operandTemp }

// IsConstant reports whether the operand is a constant.
func (o Operand) IsConstant() bool { return o.kind == operandConstant }

// IsUndef reports whether the operand is undefined.
func (o Operand) IsUndef() bool { return o.kind == operandUndef }

// IsFixed reports whether the operand is pinned to a hardware register.
func (o Operand) IsFixed() bool { return o.fixed != RegNone }

// Temp returns the temp read by the operand.
func (o Operand) Temp() Temp { return o.temp }

// TempID returns the id of the temp read by the operand, or 0.
func (o Operand) TempID() uint32 {
	if o.kind != operandTemp {
		return 0
	}
	return o.temp.ID
}

// Constant returns the constant value of the operand.
func (o Operand) Constant() uint64 { return o.value }

// Fixed returns the hardware register of a fixed operand.
func (o Operand) Fixed() PhysReg { return o.fixed }

// RegClass returns the class of the value the operand reads.
func (o Operand) RegClass() RegClass { return o.rc }

// Size returns the operand size in dwords.
func (o Operand) Size() uint8 { return o.rc.Size }

// IsLiteral reports whether a constant cannot be encoded as an inline constant
// and therefore needs a literal dword.
func (o Operand) IsLiteral() bool {
	if o.kind != operandConstant {
		return false
	}
	return !isInlineConstant(uint32(o.value))
}

func isInlineConstant(v uint32) bool {
	i := int32(v)
	if i >= -16 && i <= 64 {
		return true
	}
	switch v {
	case 0x3f000000, 0xbf000000, // +-0.5
		0x3f800000, 0xbf800000, // +-1.0
		0x40000000, 0xc0000000, // +-2.0
		0x40800000, 0xc0800000, // +-4.0
		0x3e22f983: // 1/(2*pi)
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (o Operand) String() string {
	var s string
	switch o.kind {
	case operandTemp:
		s = o.temp.String()
	case operandConstant:
		if o.rc.Size == 2 {
			s = fmt.Sprintf("0x%x", o.value)
		} else {
			s = fmt.Sprintf("0x%x", uint32(o.value))
		}
	case operandUndef:
		s = "undef:" + o.rc.String()
	case operandFixed:
		return o.fixed.String()
	}
	if o.fixed != RegNone {
		s += "@" + o.fixed.String()
	}
	return s
}

// Definition is an instruction output. It defines a fresh temp and may carry
// a fixed register or an allocation hint for the register allocator.
type Definition struct {
	Temp  Temp
	Fixed PhysReg
	Hint  PhysReg
}

// Def returns a definition of t.
func Def(t Temp) Definition { return Definition{Temp: t} }

// RegClass returns the class of the defined temp.
func (d Definition) RegClass() RegClass { return d.Temp.RC }

// String implements fmt.Stringer.
func (d Definition) String() string {
	s := d.Temp.String()
	if d.Fixed != RegNone {
		s += "@" + d.Fixed.String()
	} else if d.Hint != RegNone {
		s += "(" + d.Hint.String() + "?)"
	}
	return s
}
