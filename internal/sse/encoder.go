package sse

import (
	"bytes"
	"fmt"
)

// Encode translates a chunk into its exact wire representation:
//
//	event: <name>\n        only for typed chunks
//	data: <line>\n         one per payload line, in order
//	\n
//
// It is pure: the only possible failure is a zero-value chunk, which
// indicates a bug on the publishing side.
func Encode(c Chunk) ([]byte, error) {
	if !c.valid() {
		return nil, ErrInvalidChunk
	}

	var buf bytes.Buffer
	if name, ok := c.Event(); ok {
		fmt.Fprintf(&buf, "event: %s\n", name)
	}
	for _, line := range c.lines {
		fmt.Fprintf(&buf, "data: %s\n", line)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
