// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package texel_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/texel"
	"github.com/born-ml/texel/backend/cpu"
)

func TestNewDefaults(t *testing.T) {
	e := texel.New()
	defer e.Close()

	cfg := e.Config()
	assert.True(t, cfg.PackedTextures)
	assert.True(t, cfg.LazilyUnpack)
	assert.False(t, cfg.Float16Textures)
	assert.Equal(t, 16384, cfg.MaxTextureSize)
}

func TestReshapeAndTranspose(t *testing.T) {
	ctx := context.Background()
	for _, packed := range []bool{true, false} {
		e := texel.New(texel.WithPackedTextures(packed), texel.WithSequentialCPU())

		x, err := e.Upload(ctx, []float32{1, 2, 3, 4, 5, 6}, texel.Shape{2, 3}, texel.Float32)
		require.NoError(t, err)
		r, err := e.Reshape(ctx, x, texel.Shape{3, 2})
		require.NoError(t, err)
		rt, err := e.Transpose(ctx, r, []int{1, 0})
		require.NoError(t, err)

		got, err := e.Read(ctx, rt)
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 3, 5, 2, 4, 6}, got)

		e.Dispose(rt)
		e.Dispose(r)
		e.Dispose(x)
		assert.Equal(t, 0, e.Live())
		e.Close()
	}
}

func TestNewWithRunner(t *testing.T) {
	e := texel.NewWithRunner(cpu.NewSequential(), texel.WithFloat16Textures(true))
	defer e.Close()

	x, err := e.Upload(context.Background(), []float32{0.1, 1}, texel.Shape{2}, texel.Float32)
	require.NoError(t, err)
	got, err := e.Read(context.Background(), x)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, got[0], 1e-3)
	assert.NotEqual(t, float32(0.1), got[0])
	assert.Equal(t, float32(1), got[1])
}

func TestDisposedRecord(t *testing.T) {
	e := texel.New()
	defer e.Close()

	x, err := e.Upload(context.Background(), []float32{1, 2}, texel.Shape{2}, texel.Float32)
	require.NoError(t, err)
	e.Dispose(x)
	_, err = e.Read(context.Background(), x)
	require.ErrorIs(t, err, texel.ErrDisposed)
}

func TestSetLogger(t *testing.T) {
	texel.SetLogger(slog.New(slog.DiscardHandler))
	t.Cleanup(func() { texel.SetLogger(nil) })

	e := texel.New()
	e.Close()
}

func Example() {
	e := texel.New()
	defer e.Close()

	ctx := context.Background()
	x, _ := e.Upload(ctx, []float32{1, 2, 3, 4, 5, 6}, texel.Shape{2, 3}, texel.Float32)
	xt, _ := e.Transpose(ctx, x, []int{1, 0})
	values, _ := e.Read(ctx, xt)
	fmt.Println(values)
	// Output: [1 4 2 5 3 6]
}
