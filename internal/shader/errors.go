package shader

import "errors"

// Common errors.
var (
	ErrUnsupportedRank    = errors.New("unsupported rank")
	ErrInvalidPermutation = errors.New("invalid permutation")
	ErrShapeMismatch      = errors.New("shape mismatch")
	ErrBindingMismatch    = errors.New("input bindings do not match the program")
	ErrCompile            = errors.New("shader compilation failed")
)
