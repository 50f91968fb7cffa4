// Package cpu implements the reference execution harness: it runs the Go
// kernel of every generated program once per output texel.
package cpu

import (
	"context"
	"errors"
	"fmt"

	"github.com/born-ml/texel/internal/logging"
	"github.com/born-ml/texel/internal/parallel"
	"github.com/born-ml/texel/internal/shader"
	"github.com/born-ml/texel/internal/tensor"
	"github.com/born-ml/texel/internal/texture"
)

// ErrForeignBuffer is returned for buffers not allocated by this backend.
var ErrForeignBuffer = errors.New("buffer does not belong to the cpu backend")

// Buffer is a texture in host memory, laid out texel by texel.
type Buffer struct {
	data   []float32
	phys   texture.PhysicalType
	texels int
}

// Texels returns the number of texels the buffer holds.
func (b *Buffer) Texels() int { return b.texels }

// Release drops the storage.
func (b *Buffer) Release() {
	b.data = nil
	b.texels = 0
}

// PhysicalType returns the storage type of the buffer.
func (b *Buffer) PhysicalType() texture.PhysicalType { return b.phys }

// CPUBackend executes programs on the host.
type CPUBackend struct {
	parallel parallel.Config
}

// New creates a new CPU backend splitting texel loops per cfg.
func New(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{parallel: cfg}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Upload copies data, already laid out for phys, into a new buffer.
func (cpu *CPUBackend) Upload(_ context.Context, data []float32, phys texture.PhysicalType) (texture.Buffer, error) {
	texels, err := texture.MatrixSizeFromUnpackedArraySize(len(data), phys.Channels())
	if err != nil {
		return nil, fmt.Errorf("cpu: upload: %w", err)
	}
	buf := &Buffer{data: make([]float32, len(data)), phys: phys, texels: texels}
	copy(buf.data, data)
	if phys.IsFloat16() {
		texture.RoundFloat16(buf.data)
	}
	return buf, nil
}

// Run evaluates p for every output texel and returns the output buffer.
func (cpu *CPUBackend) Run(ctx context.Context, p shader.Program, inputs []*texture.TextureData, phys texture.PhysicalType) (texture.Buffer, error) {
	if phys.IsPacked() != p.PackedOutput() {
		return nil, fmt.Errorf("cpu: %s: %w: output physical type %s", p.Key(), shader.ErrBindingMismatch, phys)
	}
	bound, err := bind(p, inputs)
	if err != nil {
		return nil, err
	}

	out := p.OutputShape()
	packed := p.PackedOutput()
	texels := texture.TexelCount(out, packed)
	channels := phys.Channels()
	buf := &Buffer{data: make([]float32, texels*channels), phys: phys, texels: texels}

	err = parallel.ForErr(ctx, texels, func(i int) error {
		v := p.Eval(shader.OutputCoords(out, packed, i), bound)
		if packed {
			copy(buf.data[i*4:i*4+4], v[:])
		} else {
			buf.data[i] = v[0]
		}
		return nil
	}, cpu.parallel)
	if err != nil {
		return nil, fmt.Errorf("cpu: %s: %w", p.Key(), err)
	}
	if phys.IsFloat16() {
		texture.RoundFloat16(buf.data)
	}

	logging.Logger().Debug("program executed", "backend", cpu.Name(), "key", p.Key(), "texels", texels)
	return buf, nil
}

// Download returns a copy of the buffer contents.
func (cpu *CPUBackend) Download(_ context.Context, b texture.Buffer) ([]float32, error) {
	buf, ok := texture.Underlying(b).(*Buffer)
	if !ok {
		return nil, ErrForeignBuffer
	}
	out := make([]float32, len(buf.data))
	copy(out, buf.data)
	return out, nil
}

// Release is a no-op: host buffers are garbage collected.
func (cpu *CPUBackend) Release() {}

// input is a bound input texture.
type input struct {
	shape  tensor.Shape
	packed bool
	data   []float32
}

type inputs map[string]input

func bind(p shader.Program, records []*texture.TextureData) (inputs, error) {
	names := p.VariableNames()
	if len(names) != len(records) {
		return nil, fmt.Errorf("cpu: %s: %w: want %d inputs, got %d",
			p.Key(), shader.ErrBindingMismatch, len(names), len(records))
	}
	bound := make(inputs, len(names))
	for i, td := range records {
		if td == nil || td.Buffer == nil {
			return nil, fmt.Errorf("cpu: %s: input %q: %w", p.Key(), names[i], texture.ErrInvalidRecord)
		}
		if td.IsPacked != p.UsesPackedTextures() {
			return nil, fmt.Errorf("cpu: %s: %w: input %q packed=%t",
				p.Key(), shader.ErrBindingMismatch, names[i], td.IsPacked)
		}
		buf, ok := texture.Underlying(td.Buffer).(*Buffer)
		if !ok {
			return nil, fmt.Errorf("cpu: %s: input %q: %w", p.Key(), names[i], ErrForeignBuffer)
		}
		bound[names[i]] = input{shape: td.Shape, packed: td.IsPacked, data: buf.data}
	}
	return bound, nil
}

// Value implements shader.Inputs.
func (in inputs) Value(name string, coords ...int) float32 {
	t := in[name]
	return t.data[shader.CoordsToIndex(coords, t.shape)]
}

// Texel implements shader.Inputs.
func (in inputs) Texel(name string, coords ...int) [4]float32 {
	t := in[name]
	perRow := max((t.shape.Cols()+1)/2, 1)
	i := ((shader.FlatRow(coords, t.shape)/2)*perRow + coords[len(coords)-1]/2) * 4
	return [4]float32(t.data[i : i+4])
}
