package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeUsesJSONKeys(t *testing.T) {
	data, err := Encode(Event{
		Kind:    RelationChanged,
		Tick:    9,
		Payload: relationPayload{A: "pirates", B: "merchants", Value: -30},
	})
	require.NoError(t, err)

	f, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "relation_changed", f.Kind)
	assert.Equal(t, uint64(9), f.Tick)

	payload, ok := f.Payload.(map[string]any)
	require.True(t, ok, "payload should decode as a map, got %T", f.Payload)
	assert.Equal(t, "pirates", payload["a"])
	assert.Equal(t, "merchants", payload["b"])
	assert.EqualValues(t, -30, payload["value"])
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte{0xc1})
	assert.Error(t, err)
}
