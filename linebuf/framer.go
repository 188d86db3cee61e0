// Package linebuf reassembles a chunked byte stream into text lines.
package linebuf

import (
	"bytes"
	"iter"
)

// Framer accumulates inbound bytes and splits them into complete lines.
//
// A line ends at '\r' or '\n'. Whitespace before the first printable byte of a
// line is dropped, and every emitted line is trimmed. Empty lines are never
// emitted.
type Framer struct {
	buf []byte
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	}
	return false
}

// Append adds data to the buffer and returns the complete lines it now holds.
//
// The sequence is lazy: lines are removed from the buffer only as they are
// yielded. Stopping early leaves the remainder buffered, and the next
// iteration (of this or any later sequence) picks up where it left off.
func (f *Framer) Append(data []byte) iter.Seq[string] {
	for _, c := range data {
		if len(f.buf) == 0 && isSpace(c) {
			continue
		}
		f.buf = append(f.buf, c)
	}

	return func(yield func(string) bool) {
		for {
			line, ok := f.next()
			if !ok {
				return
			}
			if line == "" {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}
}

func (f *Framer) next() (string, bool) {
	i := bytes.IndexAny(f.buf, "\r\n")
	if i < 0 {
		return "", false
	}
	line := string(bytes.TrimSpace(f.buf[:i]))

	rest := f.buf[i+1:]
	for len(rest) > 0 && isSpace(rest[0]) {
		rest = rest[1:]
	}
	f.buf = append(f.buf[:0], rest...)

	return line, true
}

// Lines is a convenience wrapper that collects every complete line.
func (f *Framer) Lines(data []byte) []string {
	var lines []string
	for l := range f.Append(data) {
		lines = append(lines, l)
	}
	return lines
}

// Buffered returns the number of bytes of an incomplete line held.
func (f *Framer) Buffered() int { return len(f.buf) }

// Reset discards any partial line.
func (f *Framer) Reset() { f.buf = f.buf[:0] }
