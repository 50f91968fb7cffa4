// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU execution backend. Programs are
// assembled into WGSL compute shaders, one invocation per output texel.
//
// The native bindings are wired on windows; elsewhere New returns
// ErrUnavailable.
//
// Example:
//
//	runner := engine.Runner(cpu.New())
//	if webgpu.IsAvailable() {
//	    if gpu, err := webgpu.New(); err == nil {
//	        runner = gpu
//	    }
//	}
//	e := texel.NewWithRunner(runner)
//	defer e.Close()
package webgpu

import (
	internalwebgpu "github.com/born-ml/texel/internal/backend/webgpu"
	"github.com/born-ml/texel/internal/engine"
)

// Backend represents the WebGPU backend implementation.
type Backend = internalwebgpu.Backend

// Compile-time check that Backend implements engine.Runner.
var _ engine.Runner = (*Backend)(nil)

// ErrUnavailable is returned by New when no adapter or device is present.
var ErrUnavailable = internalwebgpu.ErrUnavailable

// New creates a new WebGPU backend. Call Release when done to free GPU
// resources.
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable reports whether a compatible GPU and drivers are present.
// Use it for graceful fallback to the CPU backend.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
