package api

import (
	"bytes"
	"encoding/json"
)

// dataLines accepts the data field of a publish request as either a single
// string or an array of strings.
type dataLines []string

func (d *dataLines) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		// Stays nil so the handler rejects it as missing.
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*d = dataLines{single}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*d = many
	return nil
}

// publishRequest is the body of POST /pub.
type publishRequest struct {
	Topic string    `json:"topic"`
	Kind  string    `json:"kind"`
	Event string    `json:"event"`
	Data  dataLines `json:"data"`
}
