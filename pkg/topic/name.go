// Package topic validates topic names at the HTTP boundary. The streaming
// core itself treats topics as opaque strings; this guard only keeps control
// characters and absurd lengths out of the bus.
package topic

import (
	"fmt"
	"regexp"
)

var nameRegex = regexp.MustCompile(`^[^\x00\s]+$`)

// Name is a validated topic name.
type Name struct {
	Value string `json:"value"`
}

// NewName validates value as a topic name: non-empty, at most 64 KiB,
// no whitespace or NUL bytes.
func NewName(value string) (*Name, error) {
	if value == "" {
		return nil, fmt.Errorf("topic name cannot be empty")
	}

	if len(value) > 65535 {
		return nil, fmt.Errorf("topic name %q cannot have more than 65535 bytes", value)
	}

	if !nameRegex.MatchString(value) {
		return nil, fmt.Errorf("topic name %q format is invalid", value)
	}

	return &Name{value}, nil
}
