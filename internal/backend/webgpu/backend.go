//go:build windows

// Package webgpu implements the GPU execution harness: generated programs
// are assembled into WGSL compute shaders and dispatched once per output
// texel through go-webgpu (github.com/go-webgpu/webgpu).
package webgpu

import (
	"fmt"
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/born-ml/texel/internal/logging"
)

// Backend runs programs on a WebGPU device.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	// Keyed by program key.
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline
	mu        sync.RWMutex

	adapterInfo *wgpu.AdapterInfoGo
	pool        *BufferPool
}

// New creates a new WebGPU backend.
// Returns an error if WebGPU is not available or initialization fails.
func New() (backend *Backend, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("%w: native library not available: %v", ErrUnavailable, r)
		}
	}()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", ErrUnavailable, err)
	}
	opened := []interface{ Release() }{instance}
	abort := func(format string, args ...any) (*Backend, error) {
		for i := len(opened) - 1; i >= 0; i-- {
			opened[i].Release()
		}
		return nil, fmt.Errorf("%w: "+format, append([]any{ErrUnavailable}, args...)...)
	}

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return abort("request adapter: %w", err)
	}
	opened = append(opened, adapter)
	info, err := adapter.GetInfo()
	if err != nil {
		return abort("adapter info: %w", err)
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		return abort("request device: %w", err)
	}
	opened = append(opened, device)

	queue := device.GetQueue()
	if queue == nil {
		return abort("device has no queue")
	}

	logging.Logger().Info("webgpu device ready", "adapter", info.Description, "backend", info.BackendType)
	return &Backend{
		instance:    instance,
		adapter:     adapter,
		device:      device,
		queue:       queue,
		shaders:     make(map[string]*wgpu.ShaderModule),
		pipelines:   make(map[string]*wgpu.ComputePipeline),
		adapterInfo: info,
		pool:        NewBufferPool(device),
	}, nil
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return "WebGPU"
}

// AdapterInfo returns information about the GPU adapter in use.
func (b *Backend) AdapterInfo() *wgpu.AdapterInfoGo {
	return b.adapterInfo
}

// Pool returns the texture buffer pool.
func (b *Backend) Pool() *BufferPool {
	return b.pool
}

// Release frees cached pipelines and shader modules, pooled buffers and the
// device. Buffers still held by records must not be used afterwards.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pool != nil {
		b.pool.Clear()
		b.pool = nil
	}
	for key, p := range b.pipelines {
		p.Release()
		delete(b.pipelines, key)
	}
	for key, s := range b.shaders {
		s.Release()
		delete(b.shaders, key)
	}

	if b.instance == nil {
		return
	}
	b.queue.Release()
	b.device.Release()
	b.adapter.Release()
	b.instance.Release()
	b.queue, b.device, b.adapter, b.instance = nil, nil, nil, nil
	logging.Logger().Info("webgpu device released")
}

// IsAvailable reports whether a WebGPU adapter can be obtained.
func IsAvailable() (available bool) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}
