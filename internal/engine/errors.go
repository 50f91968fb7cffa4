package engine

import "errors"

// Common errors.
var (
	ErrDisposed      = errors.New("texture already disposed")
	ErrComplexView   = errors.New("operation not supported on a complex view")
	ErrAlreadyLayout = errors.New("texture already has the requested layout")
	ErrShapeMismatch = errors.New("element count mismatch")
)
