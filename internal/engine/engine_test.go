package engine

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/texel/internal/backend/cpu"
	"github.com/born-ml/texel/internal/parallel"
	"github.com/born-ml/texel/internal/shader"
	"github.com/born-ml/texel/internal/tensor"
	"github.com/born-ml/texel/internal/texture"
)

func newEngine(opts ...Option) *Engine {
	return New(cpu.New(parallel.Sequential()), opts...)
}

func seq(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i + 1)
	}
	return out
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(WithMaxTextureSize(8), WithPackedTextures(false), WithLazyUnpack(false),
		WithFloat16Textures(true), WithParallel(parallel.Sequential()))
	assert.Equal(t, 8, cfg.MaxTextureSize)
	assert.False(t, cfg.PackedTextures)
	assert.False(t, cfg.LazilyUnpack)
	assert.True(t, cfg.Float16Textures)
	assert.False(t, cfg.Parallel.Enabled)

	def := DefaultConfig()
	assert.True(t, def.PackedTextures)
	assert.Positive(t, def.MaxTextureSize)
}

func TestUploadRead(t *testing.T) {
	shapes := []tensor.Shape{{}, {5}, {3, 3}, {2, 3, 5}, {2, 1, 3, 4}, {1, 1, 1, 1, 1, 2, 3}}
	for _, packed := range []bool{true, false} {
		for _, lazy := range []bool{true, false} {
			e := newEngine(WithPackedTextures(packed), WithLazyUnpack(lazy))
			for _, shape := range shapes {
				values := seq(shape.NumElements())
				td, err := e.Upload(context.Background(), values, shape, tensor.Float32)
				require.NoError(t, err)
				assert.Equal(t, packed, td.IsPacked)
				assert.Equal(t, texture.UsageUpload, td.Usage)

				got, err := e.Read(context.Background(), td)
				require.NoError(t, err)
				assert.Equal(t, values, got, "shape %v packed=%t lazy=%t", shape, packed, lazy)
				e.Dispose(td)
			}
			assert.Zero(t, e.Live())
		}
	}
}

func TestUploadErrors(t *testing.T) {
	e := newEngine(WithMaxTextureSize(2))
	ctx := context.Background()

	_, err := e.Upload(ctx, seq(3), tensor.Shape{2, 2}, tensor.Float32)
	require.ErrorIs(t, err, ErrShapeMismatch)

	_, err = e.Upload(ctx, seq(4), tensor.Shape{2, 2}, tensor.Complex64)
	require.ErrorIs(t, err, ErrComplexView)

	_, err = e.Upload(ctx, seq(100), tensor.Shape{10, 10}, tensor.Float32)
	require.ErrorIs(t, err, texture.ErrTextureTooLarge)
}

func TestPackUnpack(t *testing.T) {
	e := newEngine(WithPackedTextures(false))
	ctx := context.Background()
	values := seq(30)

	td, err := e.Upload(ctx, values, tensor.Shape{2, 3, 5}, tensor.Float32)
	require.NoError(t, err)

	packed, err := e.Pack(ctx, td)
	require.NoError(t, err)
	assert.True(t, packed.IsPacked)
	assert.Equal(t, texture.Packed2x2Float32, packed.PhysicalType)
	assert.Equal(t, [2]int{3, 3}, packed.TexShape)

	_, err = e.Pack(ctx, packed)
	require.ErrorIs(t, err, ErrAlreadyLayout)

	unpacked, err := e.Unpack(ctx, packed)
	require.NoError(t, err)
	assert.False(t, unpacked.IsPacked)

	got, err := e.Read(ctx, unpacked)
	require.NoError(t, err)
	assert.Equal(t, values, got)

	_, err = e.Pack(ctx, td)
	require.NoError(t, err)
	assert.Equal(t, 2, e.Cache().Len(), "pack program is reused")
}

func TestTranspose(t *testing.T) {
	for _, packed := range []bool{true, false} {
		e := newEngine(WithPackedTextures(packed))
		ctx := context.Background()

		td, err := e.Upload(ctx, seq(15), tensor.Shape{3, 5}, tensor.Float32)
		require.NoError(t, err)

		out, err := e.Transpose(ctx, td, []int{1, 0})
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{5, 3}, out.Shape)
		assert.True(t, out.IsPacked)

		got, err := e.Read(ctx, out)
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 6, 11, 2, 7, 12, 3, 8, 13, 4, 9, 14, 5, 10, 15}, got)

		e.Dispose(td)
		e.Dispose(out)
		assert.Zero(t, e.Live(), "temporary packed copy is disposed")
	}
}

func TestTransposeErrors(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	td, err := e.Upload(ctx, seq(15), tensor.Shape{3, 5}, tensor.Float32)
	require.NoError(t, err)
	_, err = e.Transpose(ctx, td, []int{1, 1})
	require.ErrorIs(t, err, shader.ErrInvalidPermutation)

	high, err := e.Upload(ctx, seq(2), tensor.Shape{1, 1, 1, 1, 1, 1, 2}, tensor.Float32)
	require.NoError(t, err)
	_, err = e.Transpose(ctx, high, []int{0, 1, 2, 3, 4, 6, 5})
	require.ErrorIs(t, err, shader.ErrUnsupportedRank)
}

// countingRunner counts the programs a runner is asked to execute.
type countingRunner struct {
	Runner
	runs int
}

func (r *countingRunner) Run(ctx context.Context, p shader.Program, inputs []*texture.TextureData, phys texture.PhysicalType) (texture.Buffer, error) {
	r.runs++
	return r.Runner.Run(ctx, p, inputs, phys)
}

func TestTransposeRejectsRankBeforeRunning(t *testing.T) {
	runner := &countingRunner{Runner: cpu.New(parallel.Sequential())}
	e := New(runner, WithPackedTextures(false))
	ctx := context.Background()

	high, err := e.Upload(ctx, seq(2), tensor.Shape{1, 1, 1, 1, 1, 1, 2}, tensor.Float32)
	require.NoError(t, err)
	require.False(t, high.IsPacked)

	_, err = e.Transpose(ctx, high, []int{0, 1, 2, 3, 4, 6, 5})
	require.ErrorIs(t, err, shader.ErrUnsupportedRank)
	assert.Zero(t, runner.runs)
	assert.Equal(t, 1, e.Live(), "no temporary record is left behind")

	td, err := e.Upload(ctx, seq(6), tensor.Shape{2, 3}, tensor.Float32)
	require.NoError(t, err)
	out, err := e.Transpose(ctx, td, []int{1, 0})
	require.NoError(t, err)
	assert.Equal(t, 2, runner.runs, "pack then transpose")

	got, err := e.Read(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, got)
}

func TestReshapeReinterpretsWhenLayoutSurvives(t *testing.T) {
	e := newEngine()
	ctx := context.Background()
	values := seq(24)

	td, err := e.Upload(ctx, values, tensor.Shape{2, 3, 4}, tensor.Float32)
	require.NoError(t, err)

	out, err := e.Reshape(ctx, td, tensor.Shape{6, 4})
	require.NoError(t, err)
	assert.Same(t, texture.Underlying(td.Buffer), texture.Underlying(out.Buffer))
	assert.Zero(t, e.Cache().Len(), "no program runs")

	e.Dispose(td)
	got, err := e.Read(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, values, got)

	e.Dispose(out)
	assert.Zero(t, e.Live())
}

func TestReshapeRunsPackedProgram(t *testing.T) {
	e := newEngine(WithMaxTextureSize(4))
	ctx := context.Background()
	values := []float32{
		7, 10, 15, 22, 23, 34, 31, 46, 39, 58, 47, 70, 55, 82, 63,
		94, 71, 106, 79, 118, 87, 130, 95, 142, 103, 154, 111, 166, 119, 178,
	}

	td, err := e.Upload(ctx, values, tensor.Shape{15, 2}, tensor.Float32)
	require.NoError(t, err)
	assert.Equal(t, [2]int{3, 3}, td.TexShape)

	out, err := e.Reshape(ctx, td, tensor.Shape{10, 3})
	require.NoError(t, err)
	assert.Equal(t, [2]int{3, 4}, out.TexShape)
	assert.Equal(t, 1, e.Cache().Len())

	got, err := e.Read(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, values, got)
}

func TestReshapeColumnToMatrix(t *testing.T) {
	e := newEngine()
	ctx := context.Background()
	values := []float32{46, 52, 58, 64, 70, 100, 115, 130, 145, 160, 154, 178, 202, 226, 250}

	td, err := e.Upload(ctx, values, tensor.Shape{1, 15, 1}, tensor.Float32)
	require.NoError(t, err)
	out, err := e.Reshape(ctx, td, tensor.Shape{3, 5, 1})
	require.NoError(t, err)

	got, err := e.Read(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, values, got)

	mat, err := e.Reshape(ctx, td, tensor.Shape{3, 5})
	require.NoError(t, err)
	got, err = e.Read(ctx, mat)
	require.NoError(t, err)
	assert.Equal(t, values, got)
}

func TestReshapeUnpackedAndErrors(t *testing.T) {
	e := newEngine(WithPackedTextures(false))
	ctx := context.Background()

	td, err := e.Upload(ctx, seq(6), tensor.Shape{2, 3}, tensor.Float32)
	require.NoError(t, err)

	out, err := e.Reshape(ctx, td, tensor.Shape{3, 2})
	require.NoError(t, err)
	assert.Equal(t, [2]int{3, 2}, out.TexShape)
	got, err := e.Read(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, seq(6), got)

	_, err = e.Reshape(ctx, td, tensor.Shape{4})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestComplexView(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	re, err := e.Upload(ctx, []float32{1, 2, 3}, tensor.Shape{3}, tensor.Float32)
	require.NoError(t, err)
	im, err := e.Upload(ctx, []float32{4, 5, 6}, tensor.Shape{3}, tensor.Float32)
	require.NoError(t, err)

	view, err := e.Complex(re, im)
	require.NoError(t, err)
	assert.Equal(t, tensor.Complex64, view.DType)

	_, err = e.Pack(ctx, view)
	require.ErrorIs(t, err, ErrComplexView)
	_, err = e.Read(ctx, view)
	require.ErrorIs(t, err, ErrComplexView)

	gotRe, gotIm, err := e.ReadComplex(ctx, view)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, gotRe)
	assert.Equal(t, []float32{4, 5, 6}, gotIm)

	e.Dispose(view)
	assert.Equal(t, 2, e.Live())
	re.Values = nil
	gotRe, err = e.Read(ctx, re)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, gotRe)

	_, _, err = e.ReadComplex(ctx, re)
	require.ErrorIs(t, err, texture.ErrInvalidRecord)
}

func TestDisposed(t *testing.T) {
	e := newEngine()
	ctx := context.Background()

	td, err := e.Upload(ctx, seq(4), tensor.Shape{2, 2}, tensor.Float32)
	require.NoError(t, err)
	e.Dispose(td)
	e.Dispose(td)
	assert.Zero(t, e.Live())

	_, err = e.Read(ctx, td)
	require.ErrorIs(t, err, ErrDisposed)
	_, err = e.Reshape(ctx, td, tensor.Shape{4})
	require.ErrorIs(t, err, ErrDisposed)
}

func TestFloat16Textures(t *testing.T) {
	e := newEngine(WithFloat16Textures(true))
	ctx := context.Background()

	td, err := e.Upload(ctx, []float32{0.1, 1, 2, 65504}, tensor.Shape{2, 2}, tensor.Float32)
	require.NoError(t, err)
	assert.Equal(t, texture.Packed2x2Float16, td.PhysicalType)

	got, err := e.Read(ctx, td)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, got[0], 1e-4)
	assert.NotEqual(t, float32(0.1), got[0])
	assert.Equal(t, []float32{1, 2, 65504}, got[1:])
}

func TestFromPixels(t *testing.T) {
	e := newEngine()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			v := uint8(10 * (y*2 + x + 1))
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v + 1, B: v + 2, A: 255})
		}
	}

	td, err := e.FromPixels(context.Background(), img, 4)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2, 4}, td.Shape)
	assert.Equal(t, tensor.Int32, td.DType)
	assert.Equal(t, texture.UsagePixels, td.Usage)

	got, err := e.Read(context.Background(), td)
	require.NoError(t, err)
	assert.Equal(t, []float32{10, 11, 12, 255, 20, 21, 22, 255, 30, 31, 32, 255, 40, 41, 42, 255}, got)
}
