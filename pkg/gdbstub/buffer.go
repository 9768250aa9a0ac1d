package gdbstub

// Buffer is a bounded-growth byte FIFO with independent read and write
// cursors, used both for raw channel I/O and for building/parsing packet
// payloads. It is not safe for concurrent use; callers serialize access.
type Buffer struct {
	data       []byte
	readCursor int
	writeCursor int
}

// NewBuffer returns an empty buffer with capacity hint cap.
func NewBuffer(cap int) *Buffer {
	return &Buffer{data: make([]byte, 0, cap)}
}

// Reserve ensures n writable bytes are available past the write cursor and
// returns a slice of exactly n bytes over them. Callers write into the
// returned slice and then call MarkWritten.
func (b *Buffer) Reserve(n int) []byte {
	need := b.writeCursor + n
	if need > cap(b.data) {
		grown := make([]byte, len(b.data), need*2)
		copy(grown, b.data)
		b.data = grown
	}
	if need > len(b.data) {
		b.data = b.data[:need]
	}
	return b.data[b.writeCursor : b.writeCursor+n]
}

// MarkWritten advances the write cursor by k bytes, which must have been
// produced into the slice returned by the most recent Reserve call.
func (b *Buffer) MarkWritten(k int) {
	b.writeCursor += k
	if b.writeCursor > len(b.data) {
		b.data = b.data[:b.writeCursor]
	}
	b.compact()
}

// Read returns the contiguous readable slice: bytes written but not yet
// consumed.
func (b *Buffer) Read() []byte {
	return b.data[b.readCursor:b.writeCursor]
}

// ReadAvailable returns the number of unread bytes.
func (b *Buffer) ReadAvailable() int {
	return b.writeCursor - b.readCursor
}

// MarkRead advances the read cursor by k bytes, 0 <= k <= ReadAvailable().
func (b *Buffer) MarkRead(k int) {
	b.readCursor += k
	b.compact()
}

// Write appends bytes to the buffer, advancing the write cursor.
func (b *Buffer) Write(p ...byte) {
	dst := b.Reserve(len(p))
	copy(dst, p)
	b.MarkWritten(len(p))
}

// WriteString appends the bytes of s, excluding any terminator.
func (b *Buffer) WriteString(s string) {
	b.Write([]byte(s)...)
}

// Clear resets both cursors to zero; the underlying capacity is retained.
func (b *Buffer) Clear() {
	b.data = b.data[:0]
	b.readCursor = 0
	b.writeCursor = 0
}

// compact shifts unread data to the front once the read cursor has drifted
// far enough that doing so is worth the memmove; this has no caller-visible
// effect on cursor semantics.
func (b *Buffer) compact() {
	const compactThreshold = 4096
	if b.readCursor < compactThreshold || b.readCursor < b.writeCursor/2 {
		return
	}
	n := copy(b.data, b.data[b.readCursor:b.writeCursor])
	b.data = b.data[:n]
	b.writeCursor = n
	b.readCursor = 0
}
