package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Chunk kinds accepted by BuildChunk. Anything else is rejected.
const (
	KindMessage = "message"
	KindEvent   = "event"
)

var (
	// ErrInvalidChunkKind is returned by BuildChunk for an unknown kind or
	// an event chunk without an event name.
	ErrInvalidChunkKind = errors.New("invalid chunk kind")

	// ErrInvalidChunk marks a chunk with no data payload at all. Only the
	// zero value can be in this state, chunks built through BuildChunk or
	// the typed constructors always carry a payload.
	ErrInvalidChunk = errors.New("invalid chunk: missing data")
)

// Chunk is one SSE payload before wire encoding: an ordered list of data
// lines and an optional event name. The fields are unexported so a chunk is
// either the zero value or was produced by a constructor; there is no third
// state to validate mid-stream.
type Chunk struct {
	lines []string
	event string
}

// NewMessage builds an untyped chunk from the given payload lines.
func NewMessage(lines ...string) Chunk {
	return Chunk{lines: normalizeLines(lines)}
}

// NewEvent builds a chunk delivered under the given event name.
func NewEvent(name string, lines ...string) Chunk {
	return Chunk{lines: normalizeLines(lines), event: name}
}

// BuildChunk validates a (payload, kind, event name) triple coming from an
// untrusted boundary such as an HTTP body or a broker envelope. kind must be
// KindMessage or KindEvent; eventName is required for KindEvent and ignored
// otherwise.
func BuildChunk(payload []string, kind string, eventName string) (Chunk, error) {
	switch kind {
	case KindMessage:
		return NewMessage(payload...), nil
	case KindEvent:
		if eventName == "" {
			return Chunk{}, fmt.Errorf("%w: event chunk without event name", ErrInvalidChunkKind)
		}
		return NewEvent(eventName, payload...), nil
	default:
		return Chunk{}, fmt.Errorf("%w: %q", ErrInvalidChunkKind, kind)
	}
}

// Event returns the event name and whether the chunk is typed.
func (c Chunk) Event() (string, bool) {
	return c.event, c.event != ""
}

// Lines returns the data lines in order. The returned slice is shared, do
// not mutate it.
func (c Chunk) Lines() []string {
	return c.lines
}

// valid reports whether the chunk carries a payload. An empty payload is
// valid, only the zero value is not.
func (c Chunk) valid() bool {
	return c.lines != nil
}

// normalizeLines splits embedded newlines so every stored line maps to
// exactly one data: field. The SSE format cannot represent a newline inside
// a single field, producers are allowed to hand us raw multi-line strings.
func normalizeLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, strings.Split(strings.TrimSuffix(l, "\n"), "\n")...)
	}
	return out
}

type chunkJSON struct {
	Event string   `json:"event,omitempty" mapstructure:"event"`
	Lines []string `json:"lines" mapstructure:"lines"`
}

// MarshalJSON encodes the chunk for transit between relay nodes.
func (c Chunk) MarshalJSON() ([]byte, error) {
	if !c.valid() {
		return nil, ErrInvalidChunk
	}
	return json.Marshal(chunkJSON{Event: c.event, Lines: c.lines})
}

// UnmarshalJSON decodes a chunk produced by MarshalJSON, re-running payload
// normalization since the sender is not necessarily this process.
func (c *Chunk) UnmarshalJSON(data []byte) error {
	var raw chunkJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Lines == nil {
		return ErrInvalidChunk
	}
	c.lines = normalizeLines(raw.Lines)
	c.event = raw.Event
	return nil
}
