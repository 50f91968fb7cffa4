package engine

import (
	"sync/atomic"

	"github.com/born-ml/texel/internal/texture"
)

// sharedBuffer lets several records reinterpret one buffer. The underlying
// buffer is released with the last reference.
type sharedBuffer struct {
	inner    texture.Buffer
	refs     *atomic.Int32
	released atomic.Bool
}

// share returns the buffer the current owner keeps and a second reference
// for a new owner.
func share(b texture.Buffer) (keep, other texture.Buffer) {
	if s, ok := b.(*sharedBuffer); ok {
		s.refs.Add(1)
		return s, &sharedBuffer{inner: s.inner, refs: s.refs}
	}
	refs := new(atomic.Int32)
	refs.Store(2)
	return &sharedBuffer{inner: b, refs: refs}, &sharedBuffer{inner: b, refs: refs}
}

func (s *sharedBuffer) Texels() int            { return s.inner.Texels() }
func (s *sharedBuffer) Unwrap() texture.Buffer { return s.inner }

func (s *sharedBuffer) Release() {
	if !s.released.CompareAndSwap(false, true) {
		return
	}
	if s.refs.Add(-1) == 0 {
		s.inner.Release()
	}
}
