//go:build windows

package webgpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// sizeClass groups pooled buffers by byte size.
type sizeClass int

const (
	smallClass sizeClass = iota
	mediumClass
	largeClass
)

const (
	smallThreshold  = 4 * 1024    // 4KB
	mediumThreshold = 1024 * 1024 // 1MB
	maxPerClass     = 64
)

type pooledBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
	usage  wgpu.BufferUsage
}

// BufferPool recycles texture buffers released by disposed records, so
// repeated programs over the same shapes do not reallocate their outputs.
type BufferPool struct {
	device  *wgpu.Device
	classes [3][]pooledBuffer
	closed  bool
	mu      sync.Mutex

	allocated uint64
	released  uint64
	hits      uint64
	misses    uint64
}

// NewBufferPool creates an empty pool for device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	return &BufferPool{device: device}
}

// Acquire returns a buffer of at least size bytes carrying every flag of
// usage.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := classOf(size)
	for i, pb := range p.classes[c] {
		if pb.size >= size && pb.usage&usage == usage {
			p.classes[c] = append(p.classes[c][:i], p.classes[c][i+1:]...)
			p.hits++
			return pb.buffer
		}
	}

	p.misses++
	p.allocated++
	return p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  size,
	})
}

// Put hands buffer back to the pool. It is released right away when its
// class is full or the pool has been cleared.
func (p *BufferPool) Put(buffer *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.released++
	c := classOf(size)
	if p.closed || len(p.classes[c]) >= maxPerClass {
		buffer.Release()
		return
	}
	p.classes[c] = append(p.classes[c], pooledBuffer{buffer: buffer, size: size, usage: usage})
}

// Clear releases all pooled buffers. Buffers put back afterwards are
// released immediately.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for c := range p.classes {
		for _, pb := range p.classes[c] {
			pb.buffer.Release()
		}
		p.classes[c] = nil
	}
}

// Stats returns pool counters and the number of idle buffers.
func (p *BufferPool) Stats() (allocated, released, hits, misses uint64, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, class := range p.classes {
		idle += len(class)
	}
	return p.allocated, p.released, p.hits, p.misses, idle
}

func classOf(size uint64) sizeClass {
	switch {
	case size < smallThreshold:
		return smallClass
	case size < mediumThreshold:
		return mediumClass
	default:
		return largeClass
	}
}
