// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the reference execution backend: every generated
// program is evaluated in pure Go, one output texel at a time, split across
// goroutines.
//
// Example:
//
//	import (
//	    "github.com/born-ml/texel"
//	    "github.com/born-ml/texel/backend/cpu"
//	)
//
//	func main() {
//	    e := texel.NewWithRunner(cpu.New())
//	    defer e.Close()
//	}
package cpu

import (
	internalcpu "github.com/born-ml/texel/internal/backend/cpu"
	"github.com/born-ml/texel/internal/engine"
	"github.com/born-ml/texel/internal/parallel"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements engine.Runner.
var _ engine.Runner = (*Backend)(nil)

// New creates a CPU backend using all available cores.
func New() *Backend {
	return internalcpu.New(parallel.DefaultConfig())
}

// NewSequential creates a CPU backend that evaluates texels on the calling
// goroutine.
func NewSequential() *Backend {
	return internalcpu.New(parallel.Sequential())
}
