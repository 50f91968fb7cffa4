//go:build !windows

package webgpu

import (
	"context"

	"github.com/born-ml/texel/internal/shader"
	"github.com/born-ml/texel/internal/texture"
)

// Backend is unavailable on this platform; New always fails.
type Backend struct{}

// New returns ErrUnavailable: the go-webgpu bindings are only wired on
// windows.
func New() (*Backend, error) {
	return nil, ErrUnavailable
}

// IsAvailable always reports false on this platform.
func IsAvailable() bool { return false }

// Name returns the backend name.
func (b *Backend) Name() string { return "WebGPU" }

// Upload implements engine.Runner.
func (b *Backend) Upload(context.Context, []float32, texture.PhysicalType) (texture.Buffer, error) {
	return nil, ErrUnavailable
}

// Run implements engine.Runner.
func (b *Backend) Run(context.Context, shader.Program, []*texture.TextureData, texture.PhysicalType) (texture.Buffer, error) {
	return nil, ErrUnavailable
}

// Download implements engine.Runner.
func (b *Backend) Download(context.Context, texture.Buffer) ([]float32, error) {
	return nil, ErrUnavailable
}

// Release is a no-op.
func (b *Backend) Release() {}
