package isel

import (
	"fmt"
	"io"
)

// ErrorKind classifies a fatal selection error.
type ErrorKind uint8

const (
	// ErrUnsupported is an operation or width with no lowering rule.
	ErrUnsupported ErrorKind = iota
	// ErrInvariant is a broken internal invariant of the selector.
	ErrInvariant
	// ErrMalformed is input that is structurally valid but cannot be
	// selected, such as a non-constant operand that must be constant.
	ErrMalformed
)

// String returns the kind name used in diagnostics.
func (k ErrorKind) String() string {
	switch k {
	case ErrUnsupported:
		return "unsupported"
	case ErrInvariant:
		return "invariant violated in"
	case ErrMalformed:
		return "malformed"
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// CompileError is a fatal error raised while selecting a function.
type CompileError struct {
	Kind     ErrorKind
	Function string
	// Op names the operation being selected.
	Op      string
	Message string
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%v %s: %s", e.Kind, e.Op, e.Message)
}

// diagnose writes the one-line diagnostic for err to w.
func diagnose(w io.Writer, err *CompileError) {
	if w == nil {
		return
	}
	fmt.Fprintf(w, "wavesel: %s: %v\n", err.Function, err)
}

// fail aborts selection with a CompileError. Select recovers it.
func fail(kind ErrorKind, op fmt.Stringer, format string, args ...any) {
	panic(&CompileError{Kind: kind, Op: op.String(), Message: fmt.Sprintf(format, args...)})
}

func unsupported(op fmt.Stringer, format string, args ...any) {
	fail(ErrUnsupported, op, format, args...)
}

func invariant(op fmt.Stringer, format string, args ...any) {
	fail(ErrInvariant, op, format, args...)
}

func malformed(op fmt.Stringer, format string, args ...any) {
	fail(ErrMalformed, op, format, args...)
}

// opName adapts a plain string to fmt.Stringer for fail.
type opName string

func (s opName) String() string { return string(s) }
