// Package lineinput provides the line-input collaborators consumed by the
// telnet console engine: a fixed pool of pre-allocated input line buffers
// and a bounded queue of completed lines. Both sides are non-blocking; when
// the pool is exhausted or the queue is full, input is dropped rather than
// stalling the network callback path.
package lineinput

// Buffer holds one line of client input. Buffers are pre-allocated by a
// Pool and cycle between the pool, the console engine, and the consumer of
// the completed-lines queue; ownership transfers at each handoff.
type Buffer struct {
	buf []byte
	n   int
}

// Fill copies payload into the buffer, truncating at the buffer's capacity,
// and replaces any previous contents.
//
// Parameters:
//   - payload: The bytes to copy in
//
// Returns:
//   - The number of bytes copied
func (b *Buffer) Fill(payload []byte) int {
	b.n = copy(b.buf, payload)
	return b.n
}

// TrimLineEnding strips a trailing line feed and then a trailing carriage
// return, unless the buffer already ends in a NUL terminator (some clients
// send NUL-terminated lines, which are passed through untouched).
func (b *Buffer) TrimLineEnding() {
	if b.n == 0 || b.buf[b.n-1] == 0 {
		return
	}

	if b.buf[b.n-1] == '\n' {
		b.n--
	}

	if b.n > 0 && b.buf[b.n-1] == '\r' {
		b.n--
	}
}

// Bytes returns the buffer's contents. The slice aliases the buffer's
// storage and is only valid while the caller owns the buffer.
func (b *Buffer) Bytes() []byte {
	return b.buf[:b.n]
}

// String returns the buffer's contents as a string.
func (b *Buffer) String() string {
	return string(b.buf[:b.n])
}

// Len returns the number of bytes in the buffer.
func (b *Buffer) Len() int {
	return b.n
}

// Cap returns the buffer's fixed capacity.
func (b *Buffer) Cap() int {
	return len(b.buf)
}

// Pool is a fixed set of pre-allocated input line Buffers. Acquire and
// Release never block and never allocate; when every buffer is in flight,
// Acquire reports exhaustion and the caller is expected to drop the input.
// Safe for concurrent use.
type Pool struct {
	size int
	free chan *Buffer
}

// NewPool creates a Pool of count buffers, each with the given byte
// capacity. All storage is allocated here.
//
// Parameters:
//   - count: Number of buffers in the pool
//   - size: Byte capacity of each buffer
//
// Returns:
//   - A new Pool with every buffer available
func NewPool(count, size int) *Pool {
	p := &Pool{
		size: size,
		free: make(chan *Buffer, count),
	}
	for i := 0; i < count; i++ {
		p.free <- &Buffer{buf: make([]byte, size)}
	}

	return p
}

// Acquire takes a free buffer from the pool without blocking.
//
// Returns:
//   - A free buffer and true, or nil and false if the pool is exhausted
func (p *Pool) Acquire() (*Buffer, bool) {
	select {
	case b := <-p.free:
		return b, true
	default:
		return nil, false
	}
}

// Release returns a buffer to the pool. The buffer is cleared first. The
// caller must not use the buffer after releasing it.
//
// Parameters:
//   - b: The buffer to return; nil is ignored
func (p *Pool) Release(b *Buffer) {
	if b == nil {
		return
	}

	b.n = 0
	select {
	case p.free <- b:
	default:
		// Double release; drop the extra reference.
	}
}

// Size returns the byte capacity of the pool's buffers.
func (p *Pool) Size() int {
	return p.size
}

// Queue is a bounded queue of completed input lines. Submit never blocks;
// when the consumer falls behind and the queue fills, new lines are
// rejected and the caller returns the buffer to its pool. Safe for
// concurrent use.
type Queue struct {
	ch chan *Buffer
}

// NewQueue creates a Queue holding at most depth completed lines.
//
// Parameters:
//   - depth: Maximum number of queued lines
//
// Returns:
//   - A new empty Queue
func NewQueue(depth int) *Queue {
	return &Queue{ch: make(chan *Buffer, depth)}
}

// Submit hands a completed line to the queue without blocking.
//
// Parameters:
//   - b: The completed line; ownership transfers to the queue on success
//
// Returns:
//   - true if the line was queued, false if the queue was full (the caller
//     keeps ownership and should release the buffer back to its pool)
func (q *Queue) Submit(b *Buffer) bool {
	select {
	case q.ch <- b:
		return true
	default:
		return false
	}
}

// Lines returns the receive side of the queue for the shell or line-editing
// consumer. The consumer owns each received buffer and should release it
// back to the originating pool when done.
func (q *Queue) Lines() <-chan *Buffer {
	return q.ch
}
