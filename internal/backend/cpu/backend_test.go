package cpu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/texel/internal/parallel"
	"github.com/born-ml/texel/internal/shader"
	"github.com/born-ml/texel/internal/tensor"
	"github.com/born-ml/texel/internal/texture"
)

type foreignBuffer struct{}

func (foreignBuffer) Texels() int { return 1 }
func (foreignBuffer) Release()    {}

func seq(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i + 1)
	}
	return out
}

func upload(t *testing.T, b *CPUBackend, shape tensor.Shape, values []float32) *texture.TextureData {
	t.Helper()
	buf, err := b.Upload(context.Background(), values, texture.UnpackedFloat32)
	require.NoError(t, err)
	return &texture.TextureData{Shape: shape, PhysicalType: texture.UnpackedFloat32, Buffer: buf}
}

func TestUploadDownload(t *testing.T) {
	b := New(parallel.DefaultConfig())
	assert.Equal(t, "CPU", b.Name())

	buf, err := b.Upload(context.Background(), []float32{1, 2, 3, 4, 5, 6, 7, 8}, texture.Packed2x2Float32)
	require.NoError(t, err)
	assert.Equal(t, 2, buf.Texels())

	got, err := b.Download(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, got)

	_, err = b.Upload(context.Background(), []float32{1, 2, 3}, texture.Packed2x2Float32)
	require.ErrorIs(t, err, texture.ErrNotDivisible)

	_, err = b.Download(context.Background(), foreignBuffer{})
	require.ErrorIs(t, err, ErrForeignBuffer)
}

func TestUploadRoundsFloat16(t *testing.T) {
	b := New(parallel.Sequential())
	buf, err := b.Upload(context.Background(), []float32{0.1}, texture.UnpackedFloat16)
	require.NoError(t, err)

	got, err := b.Download(context.Background(), buf)
	require.NoError(t, err)
	assert.NotEqual(t, float32(0.1), got[0])
	assert.InDelta(t, 0.1, got[0], 1e-4)
}

func TestRunPackThenUnpack(t *testing.T) {
	for _, cfg := range []parallel.Config{parallel.Sequential(), {Enabled: true, NumWorkers: 4, MinChunkSize: 1}} {
		b := New(cfg)
		ctx := context.Background()
		shape := tensor.Shape{2, 3, 5}
		values := seq(30)
		src := upload(t, b, shape, values)

		pack, err := shader.NewPackProgram(shape)
		require.NoError(t, err)
		packedBuf, err := b.Run(ctx, pack, []*texture.TextureData{src}, texture.Packed2x2Float32)
		require.NoError(t, err)

		raw, err := b.Download(ctx, packedBuf)
		require.NoError(t, err)
		want := make([]float32, texture.TexelCount(shape, true)*4)
		require.NoError(t, texture.EncodeMatrixToPackedRGBA(values, 2, 3, 5, want))
		assert.Equal(t, want, raw)

		packed := &texture.TextureData{Shape: shape, IsPacked: true, PhysicalType: texture.Packed2x2Float32, Buffer: packedBuf}
		unpack, err := shader.NewUnpackProgram(shape)
		require.NoError(t, err)
		outBuf, err := b.Run(ctx, unpack, []*texture.TextureData{packed}, texture.UnpackedFloat32)
		require.NoError(t, err)

		got, err := b.Download(ctx, outBuf)
		require.NoError(t, err)
		assert.Equal(t, values, got)
	}
}

func TestRunBindingErrors(t *testing.T) {
	b := New(parallel.Sequential())
	ctx := context.Background()
	shape := tensor.Shape{2, 2}
	src := upload(t, b, shape, seq(4))

	pack, err := shader.NewPackProgram(shape)
	require.NoError(t, err)

	_, err = b.Run(ctx, pack, nil, texture.Packed2x2Float32)
	require.ErrorIs(t, err, shader.ErrBindingMismatch)

	_, err = b.Run(ctx, pack, []*texture.TextureData{src}, texture.UnpackedFloat32)
	require.ErrorIs(t, err, shader.ErrBindingMismatch)

	packedSrc := *src
	packedSrc.IsPacked = true
	_, err = b.Run(ctx, pack, []*texture.TextureData{&packedSrc}, texture.Packed2x2Float32)
	require.ErrorIs(t, err, shader.ErrBindingMismatch)

	foreign := &texture.TextureData{Shape: shape, Buffer: foreignBuffer{}}
	_, err = b.Run(ctx, pack, []*texture.TextureData{foreign}, texture.Packed2x2Float32)
	require.ErrorIs(t, err, ErrForeignBuffer)
}

func TestRunCanceled(t *testing.T) {
	b := New(parallel.Sequential())
	shape := tensor.Shape{4, 4}
	src := upload(t, b, shape, seq(16))
	pack, err := shader.NewPackProgram(shape)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Run(ctx, pack, []*texture.TextureData{src}, texture.Packed2x2Float32)
	require.ErrorIs(t, err, context.Canceled)
}
