//go:build windows

package webgpu

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/texel/internal/logging"
	"github.com/born-ml/texel/internal/shader"
	"github.com/born-ml/texel/internal/texture"
)

// Buffer is a texture held in a GPU storage buffer, one f32 per channel.
// Half-float textures are stored widened; their values are rounded on the
// way in.
type Buffer struct {
	buf    *wgpu.Buffer
	size   uint64
	usage  wgpu.BufferUsage
	phys   texture.PhysicalType
	texels int
	pool   *BufferPool
}

// Texels returns the number of texels the buffer holds.
func (b *Buffer) Texels() int { return b.texels }

// PhysicalType returns the storage type of the buffer.
func (b *Buffer) PhysicalType() texture.PhysicalType { return b.phys }

// Release returns the storage to the backend's pool.
func (b *Buffer) Release() {
	if b.buf == nil {
		return
	}
	b.pool.Put(b.buf, b.size, b.usage)
	b.buf = nil
	b.texels = 0
}

// byteSize returns the buffer size for texels of phys. Zero-sized bindings
// are invalid, so at least one f32 is allocated.
func byteSize(texels int, phys texture.PhysicalType) uint64 {
	//nolint:gosec // G115: texel counts are non-negative
	return uint64(max(texels*phys.Channels(), 1)) * 4
}

// compileShader compiles WGSL into a ShaderModule cached under key.
func (b *Backend) compileShader(key, code string) *wgpu.ShaderModule {
	b.mu.RLock()
	if module, exists := b.shaders[key]; exists {
		b.mu.RUnlock()
		return module
	}
	b.mu.RUnlock()

	module := b.device.CreateShaderModuleWGSL(code)

	b.mu.Lock()
	b.shaders[key] = module
	b.mu.Unlock()

	return module
}

// getOrCreatePipeline returns the cached ComputePipeline for key or creates
// one with an auto layout.
func (b *Backend) getOrCreatePipeline(key string, module *wgpu.ShaderModule) *wgpu.ComputePipeline {
	b.mu.RLock()
	if pipeline, exists := b.pipelines[key]; exists {
		b.mu.RUnlock()
		return pipeline
	}
	b.mu.RUnlock()

	pipeline := b.device.CreateComputePipelineSimple(nil, module, "main")

	b.mu.Lock()
	b.pipelines[key] = pipeline
	b.mu.Unlock()

	return pipeline
}

// createBuffer creates a buffer holding data.
func (b *Backend) createBuffer(data []byte, usage wgpu.BufferUsage) *wgpu.Buffer {
	size := uint64(len(data))
	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            usage,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})

	mappedPtr := buffer.GetMappedRange(0, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*byte)(mappedPtr), size), data)
	buffer.Unmap()

	return buffer
}

// readBuffer copies size bytes of src back to host memory through a
// staging buffer, since storage buffers can't be mapped directly.
func (b *Backend) readBuffer(src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: bufferUsage(texture.UsageDownload),
		Size:  size,
	})
	defer staging.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	b.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(b.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("webgpu: map staging buffer: %w", err)
	}
	mappedPtr := staging.GetMappedRange(0, size)
	result := make([]byte, size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(result, unsafe.Slice((*byte)(mappedPtr), size))
	staging.Unmap()

	return result, nil
}

// Upload copies data, already laid out for phys, into a new buffer.
func (b *Backend) Upload(ctx context.Context, data []float32, phys texture.PhysicalType) (texture.Buffer, error) {
	texels, err := texture.MatrixSizeFromUnpackedArraySize(len(data), phys.Channels())
	if err != nil {
		return nil, fmt.Errorf("webgpu: upload: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values := data
	if phys.IsFloat16() {
		values = make([]float32, len(data))
		copy(values, data)
		texture.RoundFloat16(values)
	}
	size := byteSize(texels, phys)
	raw := make([]byte, size)
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}

	usage := bufferUsage(texture.UsageUpload)
	logging.Logger().Debug("texture uploaded", "backend", b.Name(), "format", phys.Format(), "texels", texels)
	return &Buffer{buf: b.createBuffer(raw, usage), size: size, usage: usage, phys: phys, texels: texels, pool: b.pool}, nil
}

// Run assembles p for the bound inputs, dispatches one invocation per
// output texel and returns the output buffer.
func (b *Backend) Run(ctx context.Context, p shader.Program, inputs []*texture.TextureData, phys texture.PhysicalType) (texture.Buffer, error) {
	if phys.IsPacked() != p.PackedOutput() {
		return nil, fmt.Errorf("webgpu: %s: %w: output physical type %s", p.Key(), shader.ErrBindingMismatch, phys)
	}
	names := p.VariableNames()
	if len(names) != len(inputs) {
		return nil, fmt.Errorf("webgpu: %s: %w: want %d inputs, got %d",
			p.Key(), shader.ErrBindingMismatch, len(names), len(inputs))
	}

	bindings := make([]shader.Binding, len(inputs))
	buffers := make([]*Buffer, len(inputs))
	for i, td := range inputs {
		if td == nil || td.Buffer == nil {
			return nil, fmt.Errorf("webgpu: %s: input %q: %w", p.Key(), names[i], texture.ErrInvalidRecord)
		}
		buf, ok := texture.Underlying(td.Buffer).(*Buffer)
		if !ok || buf.buf == nil {
			return nil, fmt.Errorf("webgpu: %s: input %q: %w", p.Key(), names[i], ErrForeignBuffer)
		}
		bindings[i] = shader.Binding{Name: names[i], Shape: td.Shape, Packed: td.IsPacked}
		buffers[i] = buf
	}

	code, err := shader.Assemble(p, bindings)
	if err != nil {
		return nil, fmt.Errorf("webgpu: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	module := b.compileShader(p.Key(), code)
	pipeline := b.getOrCreatePipeline(p.Key(), module)

	texels := texture.TexelCount(p.OutputShape(), p.PackedOutput())
	size := byteSize(texels, phys)
	usage := bufferUsage(texture.UsageRender)
	out := b.pool.Acquire(size, usage)

	entries := make([]wgpu.BindGroupEntry, 0, len(buffers)+1)
	entries = append(entries, wgpu.BufferBindingEntry(0, out, 0, size))
	for i, in := range buffers {
		//nolint:gosec // G115: binding indices are small
		entries = append(entries, wgpu.BufferBindingEntry(uint32(i+1), in.buf, 0, in.size))
	}
	bindGroupLayout := pipeline.GetBindGroupLayout(0)
	defer bindGroupLayout.Release()
	bindGroup := b.device.CreateBindGroupSimple(bindGroupLayout, entries)
	defer bindGroup.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	computePass := encoder.BeginComputePass(nil)
	computePass.SetPipeline(pipeline)
	computePass.SetBindGroup(0, bindGroup, nil)
	x, y := shader.Dispatch(texels)
	computePass.DispatchWorkgroups(x, y, 1)
	computePass.End()
	b.queue.Submit(encoder.Finish(nil))

	logging.Logger().Debug("program dispatched", "backend", b.Name(), "key", p.Key(), "format", phys.Format(),
		"texels", texels, "workgroups_x", x, "workgroups_y", y)
	return &Buffer{buf: out, size: size, usage: usage, phys: phys, texels: texels, pool: b.pool}, nil
}

// Download reads the buffer contents back in their physical layout.
func (b *Backend) Download(ctx context.Context, tb texture.Buffer) ([]float32, error) {
	buf, ok := texture.Underlying(tb).(*Buffer)
	if !ok || buf.buf == nil {
		return nil, ErrForeignBuffer
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := buf.texels * buf.phys.Channels()
	raw, err := b.readBuffer(buf.buf, uint64(n)*4) //nolint:gosec // G115: non-negative
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}
