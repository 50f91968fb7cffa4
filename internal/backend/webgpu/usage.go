package webgpu

import (
	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/texel/internal/texture"
)

// bufferUsage converts the flags a texture usage requests into go-webgpu's.
// Both follow the WebGPU bit assignments.
func bufferUsage(u texture.Usage) wgpu.BufferUsage {
	return wgpu.BufferUsage(u.BufferUsage())
}
