// Package engine implements tensor operations over texture records: upload,
// layout conversion, packed transpose, reshape and readback. Execution is
// delegated to a Runner.
//
// Records returned by the engine are exclusively owned by the caller, except
// for complex views, which only reference their components. Records are not
// safe for concurrent mutation; the engine itself is.
package engine

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/born-ml/texel/internal/logging"
	"github.com/born-ml/texel/internal/shader"
	"github.com/born-ml/texel/internal/tensor"
	"github.com/born-ml/texel/internal/texture"
)

// Runner executes generated programs and owns texture storage.
type Runner interface {
	Name() string
	// Upload copies data, laid out for phys, into a new buffer.
	Upload(ctx context.Context, data []float32, phys texture.PhysicalType) (texture.Buffer, error)
	// Run executes p once per output texel, binding inputs in the order of
	// p.VariableNames, and returns the output buffer.
	Run(ctx context.Context, p shader.Program, inputs []*texture.TextureData, phys texture.PhysicalType) (texture.Buffer, error)
	// Download returns the buffer contents in their physical layout.
	Download(ctx context.Context, buf texture.Buffer) ([]float32, error)
	// Release frees the runner's resources.
	Release()
}

// Engine runs tensor operations on a Runner.
type Engine struct {
	cfg    Config
	runner Runner
	cache  *shader.Cache
	live   atomic.Int64
}

// New creates an engine on runner.
func New(runner Runner, opts ...Option) *Engine {
	e := &Engine{
		cfg:    NewConfig(opts...),
		runner: runner,
		cache:  shader.NewCache(),
	}
	logging.Logger().Info("engine created", "backend", runner.Name(),
		"packed", e.cfg.PackedTextures, "float16", e.cfg.Float16Textures)
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Cache returns the program cache.
func (e *Engine) Cache() *shader.Cache { return e.cache }

// Live returns the number of records owning storage that are not disposed.
func (e *Engine) Live() int { return int(e.live.Load()) }

// Close releases the runner.
func (e *Engine) Close() {
	e.runner.Release()
}

func (e *Engine) physicalType(packed bool) texture.PhysicalType {
	return texture.PhysicalTypeFor(packed, e.cfg.Float16Textures)
}

func (e *Engine) track(td *texture.TextureData) *texture.TextureData {
	e.live.Add(1)
	logging.Logger().Debug("texture allocated", "shape", td.Shape, "texShape", td.TexShape,
		"packed", td.IsPacked, "type", td.PhysicalType)
	return td
}

// check rejects disposed records and complex views.
func check(td *texture.TextureData) error {
	switch {
	case td == nil || (td.Buffer == nil && td.Complex == nil):
		return ErrDisposed
	case td.Complex != nil:
		return ErrComplexView
	}
	return nil
}

// programShape maps a logical shape to the shape generators see. Scalars
// become [1]; ranks above the generator limit fold into [batch, rows, cols],
// which keeps the packed layout unchanged.
func programShape(s tensor.Shape) tensor.Shape {
	switch {
	case s.Rank() == 0:
		return tensor.Shape{1}
	case s.Rank() > tensor.MaxRank:
		return s.As3D()
	default:
		return s
	}
}

// Upload creates a record holding values with the given logical shape.
func (e *Engine) Upload(ctx context.Context, values []float32, shape tensor.Shape, dtype tensor.DataType) (*texture.TextureData, error) {
	return e.upload(ctx, values, shape, dtype, texture.UsageUpload)
}

func (e *Engine) upload(ctx context.Context, values []float32, shape tensor.Shape, dtype tensor.DataType, usage texture.Usage) (*texture.TextureData, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("engine: upload: %w", err)
	}
	if dtype == tensor.Complex64 {
		return nil, fmt.Errorf("engine: upload: %w: upload the components and use Complex", ErrComplexView)
	}
	if n := shape.NumElements(); len(values) != n {
		return nil, fmt.Errorf("engine: upload %v: %w: got %d values, want %d",
			shape, ErrShapeMismatch, len(values), n)
	}

	packed := e.cfg.PackedTextures
	texShape, err := texture.TexShape(shape, packed, e.cfg.MaxTextureSize)
	if err != nil {
		return nil, err
	}

	var data []float32
	if packed {
		s := shape.As3D()
		data = make([]float32, texture.TexelCount(shape, true)*4)
		err = texture.EncodeMatrixToPackedRGBA(values, s[0], s[1], s[2], data)
	} else {
		data = make([]float32, texture.UnpackedArraySizeFromMatrixSize(len(values), 1))
		err = texture.EncodeMatrixToUnpackedArray(values, data, 1)
	}
	if err != nil {
		return nil, err
	}

	phys := e.physicalType(packed)
	buf, err := e.runner.Upload(ctx, data, phys)
	if err != nil {
		return nil, err
	}
	return e.track(&texture.TextureData{
		Shape:        shape.Clone(),
		TexShape:     texShape,
		DType:        dtype,
		Usage:        usage,
		IsPacked:     packed,
		PhysicalType: phys,
		Buffer:       buf,
	}), nil
}

func (e *Engine) program(key string, create func() (shader.Program, error)) (shader.Program, error) {
	return e.cache.GetOrCreate(key, create)
}

// run executes p on in, presented to the program with shape inShape, and
// returns a new record with logical shape outShape.
func (e *Engine) run(ctx context.Context, p shader.Program, in *texture.TextureData, inShape, outShape tensor.Shape) (*texture.TextureData, error) {
	packed := p.PackedOutput()
	texShape, err := texture.TexShape(outShape, packed, e.cfg.MaxTextureSize)
	if err != nil {
		return nil, err
	}

	view := *in
	view.Shape = inShape
	phys := e.physicalType(packed)
	buf, err := e.runner.Run(ctx, p, []*texture.TextureData{&view}, phys)
	if err != nil {
		return nil, err
	}
	return e.track(&texture.TextureData{
		Shape:        outShape.Clone(),
		TexShape:     texShape,
		DType:        in.DType,
		Usage:        texture.UsageRender,
		IsPacked:     packed,
		PhysicalType: phys,
		Buffer:       buf,
	}), nil
}

// Pack converts an unpacked record to the packed layout.
func (e *Engine) Pack(ctx context.Context, td *texture.TextureData) (*texture.TextureData, error) {
	if err := check(td); err != nil {
		return nil, fmt.Errorf("engine: pack: %w", err)
	}
	if td.IsPacked {
		return nil, fmt.Errorf("engine: pack: %w", ErrAlreadyLayout)
	}
	shape := programShape(td.Shape)
	p, err := e.program(shader.Key(shader.KindPack, shape), func() (shader.Program, error) {
		return toProgram(shader.NewPackProgram(shape))
	})
	if err != nil {
		return nil, err
	}
	return e.run(ctx, p, td, shape, td.Shape)
}

// Unpack converts a packed record to the unpacked layout.
func (e *Engine) Unpack(ctx context.Context, td *texture.TextureData) (*texture.TextureData, error) {
	if err := check(td); err != nil {
		return nil, fmt.Errorf("engine: unpack: %w", err)
	}
	if !td.IsPacked {
		return nil, fmt.Errorf("engine: unpack: %w", ErrAlreadyLayout)
	}
	shape := programShape(td.Shape)
	p, err := e.program(shader.Key(shader.KindUnpack, shape), func() (shader.Program, error) {
		return toProgram(shader.NewUnpackProgram(shape))
	})
	if err != nil {
		return nil, err
	}
	return e.run(ctx, p, td, shape, td.Shape)
}

// Transpose permutes the axes of td: output axis i is input axis perm[i].
// The result is packed; unpacked inputs are packed first.
func (e *Engine) Transpose(ctx context.Context, td *texture.TextureData, perm []int) (*texture.TextureData, error) {
	if err := check(td); err != nil {
		return nil, fmt.Errorf("engine: transpose: %w", err)
	}
	if err := tensor.ValidatePermutation(perm, td.Shape.Rank()); err != nil {
		return nil, fmt.Errorf("engine: transpose: %w: %v", shader.ErrInvalidPermutation, err)
	}
	if td.Shape.Rank() == 0 {
		return e.reinterpret(td, td.Shape), nil
	}

	// Generate first: unsupported ranks fail before any program runs.
	p, err := e.program(shader.Key(shader.KindTransposePacked, td.Shape, perm), func() (shader.Program, error) {
		return toProgram(shader.NewTransposePackedProgram(td.Shape, perm))
	})
	if err != nil {
		return nil, err
	}

	src := td
	if !td.IsPacked {
		packed, err := e.Pack(ctx, td)
		if err != nil {
			return nil, err
		}
		defer e.Dispose(packed)
		src = packed
	}
	return e.run(ctx, p, src, td.Shape, td.Shape.Permute(perm))
}

// Reshape gives td a new logical shape with the same number of elements.
//
// Unpacked records, and packed records whose texel layout survives the new
// shape, are reinterpreted without copying. The packed reshape program runs
// when the last dimension changes or the packed texture shape for the new
// shape differs from the record's.
func (e *Engine) Reshape(ctx context.Context, td *texture.TextureData, shape tensor.Shape) (*texture.TextureData, error) {
	if err := check(td); err != nil {
		return nil, fmt.Errorf("engine: reshape: %w", err)
	}
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("engine: reshape: %w", err)
	}
	if shape.NumElements() != td.Shape.NumElements() {
		return nil, fmt.Errorf("engine: reshape %v -> %v: %w", td.Shape, shape, ErrShapeMismatch)
	}

	if !td.IsPacked {
		logging.Logger().Debug("reshape", "path", "reinterpret", "from", td.Shape, "to", shape)
		return e.reinterpret(td, shape), nil
	}

	texShape, err := texture.PackedTexShape(shape, e.cfg.MaxTextureSize)
	if err != nil {
		return nil, err
	}
	if shape.Cols() == td.Shape.Cols() && texShape == td.TexShape {
		logging.Logger().Debug("reshape", "path", "reinterpret", "from", td.Shape, "to", shape)
		return e.reinterpret(td, shape), nil
	}

	in3, out3 := td.Shape.As3D(), shape.As3D()
	p, err := e.program(shader.Key(shader.KindReshapePacked, out3, in3), func() (shader.Program, error) {
		return toProgram(shader.NewReshapePackedProgram(out3, in3))
	})
	if err != nil {
		return nil, err
	}
	logging.Logger().Debug("reshape", "path", "packed", "from", td.Shape, "to", shape)
	return e.run(ctx, p, td, in3, shape)
}

// reinterpret returns a record sharing td's buffer under a new shape.
func (e *Engine) reinterpret(td *texture.TextureData, shape tensor.Shape) *texture.TextureData {
	keep, other := share(td.Buffer)
	td.Buffer = keep
	texShape, err := texture.TexShape(shape, td.IsPacked, e.cfg.MaxTextureSize)
	if err != nil {
		texShape = td.TexShape
	}
	return e.track(&texture.TextureData{
		Shape:        shape.Clone(),
		TexShape:     texShape,
		DType:        td.DType,
		Usage:        td.Usage,
		IsPacked:     td.IsPacked,
		PhysicalType: td.PhysicalType,
		Buffer:       other,
	})
}

// Read returns the logical values of td in row-major order.
func (e *Engine) Read(ctx context.Context, td *texture.TextureData) ([]float32, error) {
	if err := check(td); err != nil {
		return nil, fmt.Errorf("engine: read: %w", err)
	}
	if td.Values == nil {
		values, err := e.read(ctx, td)
		if err != nil {
			return nil, err
		}
		td.Values = values
	}
	out := make([]float32, len(td.Values))
	copy(out, td.Values)
	return out, nil
}

func (e *Engine) read(ctx context.Context, td *texture.TextureData) ([]float32, error) {
	if td.IsPacked && !e.cfg.LazilyUnpack {
		unpacked, err := e.Unpack(ctx, td)
		if err != nil {
			return nil, err
		}
		defer e.Dispose(unpacked)
		return e.read(ctx, unpacked)
	}

	raw, err := e.runner.Download(ctx, td.Buffer)
	if err != nil {
		return nil, err
	}
	values := make([]float32, td.Shape.NumElements())
	if td.IsPacked {
		s := td.Shape.As3D()
		err = texture.DecodeMatrixFromPackedRGBA(raw, s[0], s[1], s[2], values)
	} else {
		err = texture.DecodeMatrixFromUnpackedArray(raw, values, 1)
	}
	if err != nil {
		return nil, err
	}
	return values, nil
}

// ReadComplex returns the real and imaginary parts of a complex view.
func (e *Engine) ReadComplex(ctx context.Context, td *texture.TextureData) (real, imag []float32, err error) {
	if td == nil || td.Complex == nil {
		return nil, nil, fmt.Errorf("engine: read complex: %w: not a complex view", texture.ErrInvalidRecord)
	}
	if real, err = e.Read(ctx, td.Complex.Real); err != nil {
		return nil, nil, err
	}
	if imag, err = e.Read(ctx, td.Complex.Imag); err != nil {
		return nil, nil, err
	}
	return real, imag, nil
}

// FromPixels uploads an image as an int32 tensor of shape
// [height, width, channels]. channels is 1, 3 or 4.
func (e *Engine) FromPixels(ctx context.Context, img image.Image, channels int) (*texture.TextureData, error) {
	values, shape, err := texture.FromPixels(img, channels)
	if err != nil {
		return nil, err
	}
	return e.upload(ctx, values, shape, tensor.Int32, texture.UsagePixels)
}

// Complex creates a complex view over two float records of equal shape. The
// view does not own them: disposing it leaves both components alive.
func (e *Engine) Complex(real, imag *texture.TextureData) (*texture.TextureData, error) {
	if err := check(real); err != nil {
		return nil, fmt.Errorf("engine: complex: real: %w", err)
	}
	if err := check(imag); err != nil {
		return nil, fmt.Errorf("engine: complex: imag: %w", err)
	}
	return texture.NewComplexView(real, imag)
}

// Dispose releases td. Disposing a complex view only drops its references.
// Disposing twice is a no-op.
func (e *Engine) Dispose(td *texture.TextureData) {
	if td == nil {
		return
	}
	if td.Owns() {
		e.live.Add(-1)
	}
	td.Release()
}

func toProgram[P shader.Program](p P, err error) (shader.Program, error) {
	if err != nil {
		return nil, err
	}
	return p, nil
}
