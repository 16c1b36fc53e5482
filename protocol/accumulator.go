package protocol

import (
	"bytes"
	"iter"
)

var crlfBytes = []byte(CRLF)

// Accumulator turns an append-only byte stream into CRLF-delimited lines.
// It holds at most one incomplete trailing line between calls; nothing is
// ever discarded and no size limit is enforced.
//
// An Accumulator is not safe for concurrent use.
type Accumulator struct {
	buf []byte
}

// Write appends received bytes to the buffer.
func (a *Accumulator) Write(p []byte) {
	a.buf = append(a.buf, p...)
}

// Len returns the number of buffered bytes.
func (a *Accumulator) Len() int {
	return len(a.buf)
}

// Buffered returns a copy of the buffered bytes.
func (a *Accumulator) Buffered() []byte {
	return bytes.Clone(a.buf)
}

// Reset drops all buffered bytes.
func (a *Accumulator) Reset() {
	a.buf = nil
}

// HasPrefix reports whether the buffer starts with prefix.
func (a *Accumulator) HasPrefix(prefix string) bool {
	return bytes.HasPrefix(a.buf, []byte(prefix))
}

// TrimPrefix removes prefix from the front of the buffer if present.
// Prompts are not line terminated and are consumed this way.
func (a *Accumulator) TrimPrefix(prefix string) bool {
	if !a.HasPrefix(prefix) {
		return false
	}
	a.consume(len(prefix))
	return true
}

// Next removes and returns the first complete line, without its separator.
// The returned line may be empty. ok is false when no separator is buffered.
func (a *Accumulator) Next() (line []byte, ok bool) {
	idx := bytes.Index(a.buf, crlfBytes)
	if idx < 0 {
		return nil, false
	}

	line = bytes.Clone(a.buf[:idx])
	a.consume(idx + len(crlfBytes))
	return line, true
}

// Feed appends p and returns the complete lines now available, in arrival
// order. Lines are extracted lazily as the sequence is consumed; a line
// left unconsumed stays in the buffer for the next call. Blank lines are skipped.
func (a *Accumulator) Feed(p []byte) iter.Seq[[]byte] {
	a.Write(p)

	return func(yield func([]byte) bool) {
		for {
			line, ok := a.Next()
			if !ok {
				return
			}
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}
}

func (a *Accumulator) consume(n int) {
	a.buf = a.buf[n:]
	if len(a.buf) == 0 {
		// Release the backing array once drained
		a.buf = nil
	}
}
