package events

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Frame is the wire form of an Event. Payload decodes as a generic map.
type Frame struct {
	Kind    string `json:"kind"`
	Tick    uint64 `json:"tick"`
	Payload any    `json:"payload"`
}

// Encode serializes an event as a msgpack frame. Payload structs are keyed by their json tags.
func Encode(e Event) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	err := enc.Encode(Frame{
		Kind:    e.Kind.String(),
		Tick:    e.Tick,
		Payload: e.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", e.Kind, err)
	}
	return buf.Bytes(), nil
}

// Decode parses a msgpack frame produced by Encode.
func Decode(data []byte) (Frame, error) {
	var f Frame
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&f); err != nil {
		return Frame{}, fmt.Errorf("decode event frame: %w", err)
	}
	return f, nil
}
