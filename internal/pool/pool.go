// Package pool provides typed object pools for scratch space used while
// rendering output, help and errors.
package pool

import (
	"bytes"
	"sync"
)

// maxBufferCap is the largest buffer Buffers keeps; bigger ones are dropped
// so one large output does not pin memory.
const maxBufferCap = 64 << 10

// Pool is a type-safe wrapper around sync.Pool
type Pool[T any] struct {
	pool  sync.Pool
	reset func(*T)      // called before an object is handed out again
	keep  func(*T) bool // optional; false drops the object on Put
}

// NewPool creates a pool whose objects come from factory
func NewPool[T any](factory func() *T) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{New: func() any { return factory() }},
	}
}

// NewPoolWithReset creates a pool that calls reset before reuse
func NewPoolWithReset[T any](factory func() *T, reset func(*T)) *Pool[T] {
	p := NewPool(factory)
	p.reset = reset
	return p
}

// Retain sets the predicate deciding whether a returned object is pooled
func (p *Pool[T]) Retain(keep func(*T) bool) *Pool[T] {
	p.keep = keep
	return p
}

// Get returns a pooled object or a new one
func (p *Pool[T]) Get() *T {
	obj, _ := p.pool.Get().(*T)
	if p.reset != nil {
		p.reset(obj)
	}
	return obj
}

// Put returns obj to the pool
func (p *Pool[T]) Put(obj *T) {
	if obj == nil || (p.keep != nil && !p.keep(obj)) {
		return
	}
	p.pool.Put(obj)
}

// Buffers holds the byte buffers output and error rendering write into
var Buffers = NewPoolWithReset(
	func() *bytes.Buffer { return bytes.NewBuffer(make([]byte, 0, 512)) },
	(*bytes.Buffer).Reset,
).Retain(func(b *bytes.Buffer) bool { return b.Cap() <= maxBufferCap })

// GetBuffer returns an empty buffer from Buffers
func GetBuffer() *bytes.Buffer { return Buffers.Get() }

// PutBuffer returns b to Buffers. b must not be used afterwards.
func PutBuffer(b *bytes.Buffer) { Buffers.Put(b) }
