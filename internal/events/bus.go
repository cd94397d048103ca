// Package events is the typed publish/subscribe channel between the simulation core
// and its observers (feed, logging, persistence).
package events

import (
	"sync"
)

// Kind identifies the closed set of events the core emits.
type Kind uint8

const (
	RelationChanged Kind = iota + 1
	StandingChanged
	InfluenceChanged
	ResourcesChanged
	PortCaptured
	PirateRegistered
	PirateUnregistered
	PirateDefected
	ShipRegistered
	ShipUnregistered
	OwnerChanged
	ShipDamaged
	ShipSinking
	EngagementStarted
	EngagementEnded
	ShotFired
)

var kindNames = map[Kind]string{
	RelationChanged:    "relation_changed",
	StandingChanged:    "standing_changed",
	InfluenceChanged:   "influence_changed",
	ResourcesChanged:   "resources_changed",
	PortCaptured:       "port_captured",
	PirateRegistered:   "pirate_registered",
	PirateUnregistered: "pirate_unregistered",
	PirateDefected:     "pirate_defected",
	ShipRegistered:     "ship_registered",
	ShipUnregistered:   "ship_unregistered",
	OwnerChanged:       "owner_changed",
	ShipDamaged:        "ship_damaged",
	ShipSinking:        "ship_sinking",
	EngagementStarted:  "engagement_started",
	EngagementEnded:    "engagement_ended",
	ShotFired:          "shot_fired",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind resolves a wire name back to a Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Event is one published notification. Payload is the kind-specific struct
// defined by the publishing package (e.g. faction.RelationChange).
type Event struct {
	Kind    Kind
	Tick    uint64
	Payload any
}

// Handler receives published events.
type Handler func(Event)

type subscription struct {
	id uint64
	fn Handler
}

// Bus dispatches events synchronously to subscribers in registration order.
// A nil *Bus discards everything.
type Bus struct {
	mu       sync.RWMutex
	byKind   map[Kind][]subscription
	all      []subscription
	nextID   uint64
	tick     uint64
	received uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{byKind: make(map[Kind][]subscription)}
}

// SetTick stamps subsequent events with the given simulation tick.
func (b *Bus) SetTick(tick uint64) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.tick = tick
	b.mu.Unlock()
}

// Subscribe registers h for one kind. The returned func removes the subscription.
func (b *Bus) Subscribe(kind Kind, h Handler) func() {
	if b == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.byKind[kind] = append(b.byKind[kind], subscription{id: id, fn: h})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.byKind[kind] = remove(b.byKind[kind], id)
	}
}

// SubscribeAll registers h for every kind.
func (b *Bus) SubscribeAll(h Handler) func() {
	if b == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.all = append(b.all, subscription{id: id, fn: h})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.all = remove(b.all, id)
	}
}

// Publish delivers an event to kind subscribers first, then catch-all subscribers.
// Handlers run on the caller's goroutine and may publish further events.
func (b *Bus) Publish(kind Kind, payload any) {
	if b == nil {
		return
	}
	b.mu.Lock()
	ev := Event{Kind: kind, Tick: b.tick, Payload: payload}
	b.received++
	targets := make([]subscription, 0, len(b.byKind[kind])+len(b.all))
	targets = append(targets, b.byKind[kind]...)
	targets = append(targets, b.all...)
	b.mu.Unlock()

	for _, s := range targets {
		s.fn(ev)
	}
}

// Published returns the number of events published so far.
func (b *Bus) Published() uint64 {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.received
}

func remove(subs []subscription, id uint64) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}
