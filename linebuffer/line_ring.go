// Package linebuffer provides the fixed-size line storage used by the telnet
// console engine: a Line is a fixed-capacity byte buffer plus a length, and a
// Ring is a circular collection of N lines with separate write and read
// cursors. All storage is allocated once at construction; when the ring runs
// out of slots the oldest undelivered line is evicted so the writer never
// blocks and memory never grows.
package linebuffer

// Line is a fixed-capacity byte buffer holding one buffered console line.
// A Line is owned by the Ring that created it and must not be retained
// across ring operations.
type Line struct {
	buf []byte
	n   int
}

// Append adds one byte to the line. Bytes beyond the line's capacity are
// ignored; callers are expected to complete the line before it fills up.
//
// Parameters:
//   - b: The byte to append
func (l *Line) Append(b byte) {
	if l.n == len(l.buf) {
		return
	}

	l.buf[l.n] = b
	l.n++
}

// SetLast overwrites the most recently appended byte. It is a no-op on an
// empty line. Used to normalize a line terminator in place.
//
// Parameters:
//   - b: The byte to store at the last position
func (l *Line) SetLast(b byte) {
	if l.n == 0 {
		return
	}

	l.buf[l.n-1] = b
}

// Len returns the number of bytes currently in the line.
func (l *Line) Len() int {
	return l.n
}

// Cap returns the line's fixed capacity in bytes.
func (l *Line) Cap() int {
	return len(l.buf)
}

// Bytes returns the line's contents. The returned slice aliases the line's
// internal storage and is only valid until the line is reset or reused.
func (l *Line) Bytes() []byte {
	return l.buf[:l.n]
}

// Reset clears the line's length. The underlying storage is retained.
func (l *Line) Reset() {
	l.n = 0
}

// Ring is a fixed-size circular collection of Lines with a write cursor
// (the slot currently being appended to) and a read cursor (the next slot
// to drain). Slots between the read and write cursors hold completed,
// undelivered lines in completion order.
//
// Ring performs no locking of its own; callers serialize all access. At
// most N-1 completed lines can be buffered, since one slot is always the
// in-progress write slot.
type Ring struct {
	lines []Line
	write int
	read  int
}

// NewRing creates a Ring of count line slots, each with the given byte
// capacity. All storage is allocated here; no further allocation occurs.
//
// Parameters:
//   - count: Number of line slots (must be >= 2)
//   - capacity: Byte capacity of each slot
//
// Returns:
//   - A new Ring with both cursors at slot zero
func NewRing(count, capacity int) *Ring {
	r := &Ring{lines: make([]Line, count)}
	for i := range r.lines {
		r.lines[i].buf = make([]byte, capacity)
	}

	return r
}

// Reset clears every slot's length and returns both cursors to slot zero.
// Used at connection teardown so a new client starts with an empty ring.
func (r *Ring) Reset() {
	r.write = 0
	r.read = 0
	for i := range r.lines {
		r.lines[i].Reset()
	}
}

// WriteLine returns the slot currently being filled, for in-place appending.
func (r *Ring) WriteLine() *Line {
	return &r.lines[r.write]
}

// AdvanceWrite completes the current write slot: the write cursor moves to
// the next slot, which is cleared for reuse. If the write cursor catches up
// with the read cursor, the oldest undelivered line is evicted by advancing
// the read cursor as well.
//
// Returns:
//   - true if an undelivered line was evicted, false otherwise
func (r *Ring) AdvanceWrite() bool {
	r.write++
	if r.write == len(r.lines) {
		r.write = 0
	}

	r.lines[r.write].Reset()

	if r.write != r.read {
		return false
	}

	r.read++
	if r.read == len(r.lines) {
		r.read = 0
	}

	return true
}

// TakeRead returns the oldest completed line and advances the read cursor.
// When the slot at the read cursor is empty the ring has nothing to drain;
// the cursor is left in place and ok is false.
//
// The caller owns the returned line until it calls Reset on it; the ring
// will not hand the same slot out again before the cursor wraps.
//
// Returns:
//   - The oldest completed line, or nil if the ring is empty
//   - true if a line was taken, false if the ring was empty
func (r *Ring) TakeRead() (*Line, bool) {
	l := &r.lines[r.read]
	if l.Len() == 0 {
		return nil, false
	}

	r.read++
	if r.read == len(r.lines) {
		r.read = 0
	}

	return l, true
}
