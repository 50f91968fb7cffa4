// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package texel

import (
	"log/slog"

	"github.com/born-ml/texel/internal/backend/cpu"
	"github.com/born-ml/texel/internal/engine"
	"github.com/born-ml/texel/internal/logging"
	"github.com/born-ml/texel/internal/parallel"
	"github.com/born-ml/texel/internal/tensor"
	"github.com/born-ml/texel/internal/texture"
)

// Engine runs tensor operations over texture records.
type Engine = engine.Engine

// Runner executes generated programs and owns texture storage.
type Runner = engine.Runner

// Config holds the engine settings.
type Config = engine.Config

// Option configures an Engine during creation.
type Option = engine.Option

// TextureData describes the texture backing a tensor.
type TextureData = texture.TextureData

// PhysicalType is the storage format of a texture.
type PhysicalType = texture.PhysicalType

// Shape represents tensor dimensions.
type Shape = tensor.Shape

// DataType represents the element type of a tensor.
type DataType = tensor.DataType

// Element types.
const (
	Float32   = tensor.Float32
	Int32     = tensor.Int32
	Bool      = tensor.Bool
	Complex64 = tensor.Complex64
)

// Engine options.
var (
	WithMaxTextureSize  = engine.WithMaxTextureSize
	WithPackedTextures  = engine.WithPackedTextures
	WithLazyUnpack      = engine.WithLazyUnpack
	WithFloat16Textures = engine.WithFloat16Textures
)

// Errors returned by engine operations.
var (
	ErrDisposed        = engine.ErrDisposed
	ErrComplexView     = engine.ErrComplexView
	ErrAlreadyLayout   = engine.ErrAlreadyLayout
	ErrShapeMismatch   = engine.ErrShapeMismatch
	ErrTextureTooLarge = texture.ErrTextureTooLarge
	ErrInvalidRecord   = texture.ErrInvalidRecord
)

// WithSequentialCPU makes the CPU backend evaluate texels on the calling
// goroutine. It has no effect on other backends.
func WithSequentialCPU() Option {
	return engine.WithParallel(parallel.Sequential())
}

// New creates an engine on the CPU backend.
func New(opts ...Option) *Engine {
	cfg := engine.NewConfig(opts...)
	return engine.New(cpu.New(cfg.Parallel), opts...)
}

// NewWithRunner creates an engine on runner.
func NewWithRunner(runner Runner, opts ...Option) *Engine {
	return engine.New(runner, opts...)
}

// SetLogger sets the logger used by every texel package. Nil restores the
// default, which discards everything.
func SetLogger(l *slog.Logger) {
	logging.SetLogger(l)
}
