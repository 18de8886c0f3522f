package transport

import "sync"

// Buffer is a reusable outbound transport buffer with a fixed capacity.
// Buffers come from a BufferPool, carry one send's payload, and return to
// the pool once the transport has written them.
type Buffer struct {
	b []byte
}

// Append copies p onto the end of the buffer, truncating at capacity.
//
// Parameters:
//   - p: The bytes to append
//
// Returns:
//   - The number of bytes copied
func (b *Buffer) Append(p []byte) int {
	n := copy(b.b[len(b.b):cap(b.b)], p)
	b.b = b.b[:len(b.b)+n]
	return n
}

// Bytes returns the buffer's current contents.
func (b *Buffer) Bytes() []byte {
	return b.b
}

// Len returns the number of bytes in the buffer.
func (b *Buffer) Len() int {
	return len(b.b)
}

// Reset empties the buffer, keeping its storage.
func (b *Buffer) Reset() {
	b.b = b.b[:0]
}

// BufferPool recycles outbound Buffers of a fixed capacity so the send
// path does not allocate per line. Safe for concurrent use.
type BufferPool struct {
	pool sync.Pool
}

// NewBufferPool creates a pool of buffers with the given byte capacity.
//
// Parameters:
//   - size: Byte capacity of each buffer
//
// Returns:
//   - A new BufferPool
func NewBufferPool(size int) *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() any {
				return &Buffer{b: make([]byte, 0, size)}
			},
		},
	}
}

// Acquire returns an empty buffer from the pool.
func (p *BufferPool) Acquire() *Buffer {
	b := p.pool.Get().(*Buffer)
	b.Reset()
	return b
}

// Release returns a buffer to the pool. The caller must not use the buffer
// afterwards.
//
// Parameters:
//   - b: The buffer to recycle; nil is ignored
func (p *BufferPool) Release(b *Buffer) {
	if b == nil {
		return
	}
	p.pool.Put(b)
}
