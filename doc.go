// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package texel stores tensors in GPU textures and converts between their
// physical layouts.
//
// # Layouts
//
// A tensor is stored either unpacked, one element per texel, or packed, where
// each RGBA texel holds a 2x2 block: R and G come from one flat row, B and A
// from the next, at two adjacent columns. Flat rows run over every axis but
// the last, so blocks may straddle batch boundaries.
//
// # Programs
//
// Layout conversions, packed transpose and packed reshape are generated as
// WGSL compute programs. Each program also has a Go kernel evaluating the
// same texel, which is what the CPU backend runs.
//
// # Basic Usage
//
//	e := texel.New()
//	defer e.Close()
//
//	ctx := context.Background()
//	x, _ := e.Upload(ctx, []float32{1, 2, 3, 4, 5, 6}, texel.Shape{2, 3}, texel.Float32)
//	xt, _ := e.Transpose(ctx, x, []int{1, 0})
//	values, _ := e.Read(ctx, xt) // [1 4 2 5 3 6]
//
// # Logging
//
// Nothing is logged by default. Pass a [*slog.Logger] to [SetLogger] to see
// program generation and backend events.
package texel
