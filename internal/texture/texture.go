// Package texture maps logical tensors onto 2-D textures.
//
// It owns the packed 2x2 RGBA layout, the simpler one-value-per-texel
// unpacked layout, the physical texture shape selection and the Texture Data
// record every execution harness allocates.
package texture

import (
	"fmt"

	"github.com/born-ml/texel/internal/tensor"
)

// Usage classifies how a texture is produced or consumed by a harness.
// The layout code treats it as an opaque tag.
type Usage int

// Texture usages.
const (
	UsageRender Usage = iota
	UsageUpload
	UsagePixels
	UsageDownload
)

// String returns a human-readable usage name.
func (u Usage) String() string {
	switch u {
	case UsageRender:
		return "render"
	case UsageUpload:
		return "upload"
	case UsagePixels:
		return "pixels"
	case UsageDownload:
		return "download"
	default:
		return "unknown"
	}
}

// Buffer is the harness-owned storage behind a record.
type Buffer interface {
	// Texels returns the number of texels the buffer holds.
	Texels() int
	// Release frees the underlying storage.
	Release()
}

// Underlying returns the innermost buffer of b, following Unwrap methods of
// buffers that wrap another one.
func Underlying(b Buffer) Buffer {
	for {
		w, ok := b.(interface{ Unwrap() Buffer })
		if !ok {
			return b
		}
		b = w.Unwrap()
	}
}

// ComplexTensors holds the component records of a complex tensor view.
// The view never owns them.
type ComplexTensors struct {
	Real *TextureData
	Imag *TextureData
}

// TextureData describes one physical buffer backing a tensor.
//
// Exactly one of Buffer and Complex is set. A record with Complex set is a
// non-owning view and has no storage of its own.
type TextureData struct {
	Shape        tensor.Shape
	TexShape     [2]int // [height, width] in texels
	DType        tensor.DataType
	Usage        Usage
	IsPacked     bool
	PhysicalType PhysicalType

	// Values is a CPU-resident snapshot, populated lazily on readback.
	Values []float32

	Buffer  Buffer
	Complex *ComplexTensors
}

// NewComplexView creates a complex64 record over real and imag.
func NewComplexView(real, imag *TextureData) (*TextureData, error) {
	if real == nil || imag == nil {
		return nil, fmt.Errorf("texture: %w: complex view needs both components", ErrInvalidRecord)
	}
	if !real.Shape.Equal(imag.Shape) {
		return nil, fmt.Errorf("texture: %w: complex components differ in shape: %v vs %v",
			ErrInvalidRecord, real.Shape, imag.Shape)
	}
	return &TextureData{
		Shape:   real.Shape.Clone(),
		DType:   tensor.Complex64,
		Usage:   real.Usage,
		Complex: &ComplexTensors{Real: real, Imag: imag},
	}, nil
}

// Validate checks the storage invariant of the record.
func (td *TextureData) Validate() error {
	hasBuffer := td.Buffer != nil
	hasComplex := td.Complex != nil
	switch {
	case hasBuffer && hasComplex:
		return fmt.Errorf("texture: %w: record has both a buffer and complex components", ErrInvalidRecord)
	case !hasBuffer && !hasComplex:
		return fmt.Errorf("texture: %w: record has neither a buffer nor complex components", ErrInvalidRecord)
	case hasComplex && (td.Complex.Real == nil || td.Complex.Imag == nil):
		return fmt.Errorf("texture: %w: complex view is missing a component", ErrInvalidRecord)
	}
	return td.Shape.Validate()
}

// Owns reports whether the record owns its storage.
func (td *TextureData) Owns() bool {
	return td.Complex == nil && td.Buffer != nil
}

// Release frees the record's storage. Complex views drop their references
// without touching the components.
func (td *TextureData) Release() {
	if td.Complex != nil {
		td.Complex = nil
		return
	}
	if td.Buffer != nil {
		td.Buffer.Release()
		td.Buffer = nil
	}
	td.Values = nil
}

// Texels returns the number of texels the logical shape occupies in the
// record's layout.
func (td *TextureData) Texels() int {
	return TexelCount(td.Shape, td.IsPacked)
}

// TexelCount returns the number of texels shape occupies, packed or not.
func TexelCount(shape tensor.Shape, packed bool) int {
	if !packed {
		return shape.NumElements()
	}
	w, h := PackedMatrixTextureShapeWidthHeight(shape.FlatRows(), shape.Cols())
	return w * h
}
