package webgpu

import "errors"

var (
	// ErrUnavailable is returned when no WebGPU adapter or device can be
	// obtained on this system.
	ErrUnavailable = errors.New("webgpu: not available")

	// ErrForeignBuffer is returned for buffers not allocated by this backend.
	ErrForeignBuffer = errors.New("webgpu: buffer does not belong to the webgpu backend")
)
