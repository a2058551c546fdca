package isa

import "fmt"

// LaneKind describes how a value is distributed across the lanes of a wave.
type LaneKind uint8

const (
	// Uniform values hold one value for all lanes (scalar registers).
	Uniform LaneKind = iota
	// Divergent values hold one value per lane (vector registers).
	Divergent
	// Mask values hold one bit per lane (scalar registers used as a lane mask).
	Mask
)

// String returns the short register-file prefix for the kind.
func (k LaneKind) String() string {
	switch k {
	case Uniform:
		return "s"
	case Divergent:
		return "v"
	case Mask:
		return "lm"
	default:
		return fmt.Sprintf("LaneKind(%d)", uint8(k))
	}
}

// RegClass is a register class: lane kind and size in dwords.
type RegClass struct {
	Kind LaneKind
	Size uint8
}

// Common register classes.
var (
	RegClassNone = RegClass{}

	S1  = RegClass{Kind: Uniform, Size: 1}
	S2  = RegClass{Kind: Uniform, Size: 2}
	S3  = RegClass{Kind: Uniform, Size: 3}
	S4  = RegClass{Kind: Uniform, Size: 4}
	S8  = RegClass{Kind: Uniform, Size: 8}
	S16 = RegClass{Kind: Uniform, Size: 16}

	V1 = RegClass{Kind: Divergent, Size: 1}
	V2 = RegClass{Kind: Divergent, Size: 2}
	V3 = RegClass{Kind: Divergent, Size: 3}
	V4 = RegClass{Kind: Divergent, Size: 4}
)

// NewRegClass returns the class of the given kind and dword size.
func NewRegClass(kind LaneKind, size uint8) RegClass {
	return RegClass{Kind: kind, Size: size}
}

// LaneMaskClass returns the mask class for a wave size (one dword per 32 lanes).
func LaneMaskClass(waveSize uint32) RegClass {
	return RegClass{Kind: Mask, Size: uint8(waveSize / 32)}
}

// IsUniform reports whether the class lives in scalar registers as a wave-wide value.
func (rc RegClass) IsUniform() bool { return rc.Kind == Uniform }

// IsDivergent reports whether the class lives in vector registers.
func (rc RegClass) IsDivergent() bool { return rc.Kind == Divergent }

// IsMask reports whether the class is a lane mask.
func (rc RegClass) IsMask() bool { return rc.Kind == Mask }

// IsScalarFile reports whether values of the class are stored in scalar registers.
// Lane masks are stored in scalar registers too.
func (rc RegClass) IsScalarFile() bool { return rc.Kind != Divergent }

// Valid reports whether the class names at least one register.
func (rc RegClass) Valid() bool { return rc.Size != 0 }

// Bytes returns the size of the class in bytes.
func (rc RegClass) Bytes() uint32 { return uint32(rc.Size) * 4 }

// Element returns the class of one of n equally sized elements of rc.
func (rc RegClass) Element(n int) RegClass {
	if n <= 0 || int(rc.Size)%n != 0 {
		panic(fmt.Sprintf("register class %v cannot be split into %d elements", rc, n))
	}
	kind := rc.Kind
	if kind == Mask {
		kind = Uniform
	}
	return RegClass{Kind: kind, Size: rc.Size / uint8(n)}
}

// AsKind returns rc with its kind replaced.
func (rc RegClass) AsKind(kind LaneKind) RegClass {
	return RegClass{Kind: kind, Size: rc.Size}
}

// String implements fmt.Stringer.
func (rc RegClass) String() string {
	if !rc.Valid() {
		return "none"
	}
	if rc.Kind == Mask {
		return fmt.Sprintf("lm%d", rc.Size)
	}
	return fmt.Sprintf("%s%d", rc.Kind, rc.Size)
}

// Temp is an SSA value of the program: an arena id plus its register class.
// Temps are produced exactly once and never mutated.
type Temp struct {
	ID uint32
	RC RegClass
}

// Valid reports whether the temp refers to an allocated value.
func (t Temp) Valid() bool { return t.ID != 0 }

// String implements fmt.Stringer.
func (t Temp) String() string {
	return fmt.Sprintf("%%%d:%s", t.ID, t.RC)
}
