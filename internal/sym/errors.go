package sym

import "errors"

var (
	// ErrUnbound indicates a free symbol without a value during evaluation.
	ErrUnbound = errors.New("sym: unbound symbol")

	// ErrSingular indicates a linear system whose determinant is identically zero.
	ErrSingular = errors.New("sym: singular linear system")

	// ErrShape indicates mismatched matrix and vector dimensions.
	ErrShape = errors.New("sym: dimension mismatch")
)
