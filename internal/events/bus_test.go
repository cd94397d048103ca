package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relationPayload struct {
	A     string  `json:"a"`
	B     string  `json:"b"`
	Value float64 `json:"value"`
}

func TestSubscribeByKind(t *testing.T) {
	bus := NewBus()
	var got []Event
	bus.Subscribe(RelationChanged, func(e Event) { got = append(got, e) })

	bus.Publish(RelationChanged, relationPayload{A: "pirates", B: "royal_navy", Value: 20})
	bus.Publish(InfluenceChanged, nil)

	require.Len(t, got, 1)
	assert.Equal(t, RelationChanged, got[0].Kind)
	assert.Equal(t, 20.0, got[0].Payload.(relationPayload).Value)
}

func TestSubscribeAllSeesEverything(t *testing.T) {
	bus := NewBus()
	var kinds []Kind
	bus.SubscribeAll(func(e Event) { kinds = append(kinds, e.Kind) })

	bus.Publish(ShipRegistered, nil)
	bus.Publish(EngagementEnded, nil)

	assert.Equal(t, []Kind{ShipRegistered, EngagementEnded}, kinds)
	assert.Equal(t, uint64(2), bus.Published())
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()
	count := 0
	unsub := bus.Subscribe(OwnerChanged, func(Event) { count++ })

	bus.Publish(OwnerChanged, nil)
	unsub()
	bus.Publish(OwnerChanged, nil)

	assert.Equal(t, 1, count)
}

func TestHandlerMayPublish(t *testing.T) {
	bus := NewBus()
	var order []Kind
	bus.Subscribe(RelationChanged, func(Event) {
		order = append(order, RelationChanged)
		bus.Publish(StandingChanged, nil)
	})
	bus.Subscribe(StandingChanged, func(Event) { order = append(order, StandingChanged) })

	bus.Publish(RelationChanged, nil)

	assert.Equal(t, []Kind{RelationChanged, StandingChanged}, order)
}

func TestTickStamp(t *testing.T) {
	bus := NewBus()
	var tick uint64
	bus.SubscribeAll(func(e Event) { tick = e.Tick })

	bus.SetTick(17)
	bus.Publish(ShotFired, nil)

	assert.Equal(t, uint64(17), tick)
}

func TestNilBusIsSilent(t *testing.T) {
	var bus *Bus
	assert.NotPanics(t, func() {
		bus.SetTick(3)
		bus.Publish(ShipDamaged, nil)
		bus.Subscribe(ShipDamaged, func(Event) {})()
		bus.SubscribeAll(func(Event) {})()
	})
	assert.Zero(t, bus.Published())
}

func TestKindNames(t *testing.T) {
	for k := RelationChanged; k <= ShotFired; k++ {
		name := k.String()
		assert.NotEqual(t, "unknown", name)
		parsed, ok := ParseKind(name)
		require.True(t, ok)
		assert.Equal(t, k, parsed)
	}
	_, ok := ParseKind("nope")
	assert.False(t, ok)
}
