// Package bitqueue is a FIFO of bits with indexed access.
// Bits are appended at the back and consumed or trimmed at the front in
// amortised constant time per bit.
package bitqueue

import "pulsedec/pkg/port"

// Queue is the bit FIFO. The zero value is an empty queue.
type Queue struct {
	bits []port.Level
	head int
}

// Len returns the count of buffered bits.
func (q *Queue) Len() int {
	return len(q.bits) - q.head
}

// Push appends bits at the back.
func (q *Queue) Push(bits ...port.Level) {
	q.bits = append(q.bits, bits...)
}

// At returns the i-th bit counted from the front. It panics if i is out of range.
func (q *Queue) At(i int) port.Level {
	if i < 0 || i >= q.Len() {
		panic("bitqueue: index out of range")
	}
	return q.bits[q.head+i]
}

// Peek returns the first n bits without consuming them.
// The returned slice is only valid until the next modification of the queue.
func (q *Queue) Peek(n int) []port.Level {
	if n > q.Len() {
		n = q.Len()
	}
	return q.bits[q.head : q.head+n]
}

// Take consumes and returns a copy of the first n bits.
func (q *Queue) Take(n int) []port.Level {
	out := append([]port.Level(nil), q.Peek(n)...)
	q.Discard(len(out))
	return out
}

// Discard drops up to n bits from the front and returns the count of dropped bits.
func (q *Queue) Discard(n int) int {
	if n > q.Len() {
		n = q.Len()
	}
	if n <= 0 {
		return 0
	}

	q.head += n
	q.compact()
	return n
}

// Trim keeps the newest keep bits if the queue holds more than max bits.
// It returns the count of dropped bits.
func (q *Queue) Trim(max, keep int) int {
	if q.Len() <= max {
		return 0
	}
	return q.Discard(q.Len() - keep)
}

// Reset empties the queue.
func (q *Queue) Reset() {
	q.bits = q.bits[:0]
	q.head = 0
}

// String renders the buffered bits as '0'/'1' characters.
func (q *Queue) String() string {
	return port.Format(q.bits[q.head:])
}

// compact releases the consumed front once it outweighs the buffered bits.
func (q *Queue) compact() {
	if q.head == len(q.bits) {
		q.Reset()
		return
	}
	if q.head < 1024 || q.head < q.Len() {
		return
	}

	n := copy(q.bits, q.bits[q.head:])
	q.bits = q.bits[:n]
	q.head = 0
}
