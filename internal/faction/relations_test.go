package faction

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/corsair/internal/events"
)

func newRelations(t *testing.T, cfg Settings) (*Relations, *events.Bus) {
	t.Helper()
	reg := NewRegistry()
	reg.Bootstrap()
	bus := events.NewBus()
	return NewRelations(reg, cfg, bus), bus
}

func recordKind(bus *events.Bus, kind events.Kind) *[]events.Event {
	var got []events.Event
	bus.Subscribe(kind, func(e events.Event) { got = append(got, e) })
	return &got
}

func TestRelationSymmetry(t *testing.T) {
	rel, _ := newRelations(t, DefaultSettings())
	rng := rand.New(rand.NewSource(1))
	types := AllTypes()

	for i := 0; i < 500; i++ {
		a := types[rng.Intn(len(types))]
		b := types[rng.Intn(len(types))]
		if a == b {
			continue
		}
		v := rng.Float64()*400 - 200
		require.NoError(t, rel.SetRelation(a, b, v))

		want := v
		if want > 100 {
			want = 100
		}
		if want < -100 {
			want = -100
		}
		assert.Equal(t, want, rel.Relation(a, b))
		assert.Equal(t, rel.Relation(a, b), rel.Relation(b, a))
	}
}

func TestSelfRelation(t *testing.T) {
	rel, _ := newRelations(t, DefaultSettings())
	for _, a := range AllTypes() {
		assert.Equal(t, 100.0, rel.Relation(a, a))
		assert.True(t, rel.AreAllied(a, a))
		assert.False(t, rel.AreAtWar(a, a))
		assert.ErrorIs(t, rel.SetRelation(a, a, 10), ErrInvalidArgument)
	}
}

func TestUnsetPairIsNeutral(t *testing.T) {
	rel, _ := newRelations(t, DefaultSettings())
	assert.Equal(t, 0.0, rel.Relation(Pirates, Merchants))
	assert.Equal(t, Neutral, rel.Standing(Pirates, Merchants))
}

func TestThresholdConsistency(t *testing.T) {
	rel, _ := newRelations(t, DefaultSettings())
	for v := -100.0; v <= 100; v += 2.5 {
		require.NoError(t, rel.SetRelation(Pirates, RoyalNavy, v))
		war := rel.AreAtWar(Pirates, RoyalNavy)
		ally := rel.AreAllied(Pirates, RoyalNavy)

		assert.False(t, war && ally, "relation %.1f reported both war and alliance", v)
		assert.Equal(t, v <= -25, war, "war at %.1f", v)
		assert.Equal(t, v >= 25, ally, "ally at %.1f", v)
	}
}

func TestSetRelationUnknownFaction(t *testing.T) {
	rel := NewRelations(NewRegistry(), DefaultSettings(), nil)
	assert.ErrorIs(t, rel.SetRelation(Pirates, RoyalNavy, 10), ErrUnknownFaction)
}

func TestRelationCrossingWarThreshold(t *testing.T) {
	cfg := Settings{MinRelation: 0, MaxRelation: 100, NeutralRelation: 50, WarThreshold: 25, AllyThreshold: 75}
	rel, bus := newRelations(t, cfg)
	require.NoError(t, rel.SetRelation(Pirates, RoyalNavy, 30))
	require.False(t, rel.AreAtWar(Pirates, RoyalNavy))

	changed := recordKind(bus, events.RelationChanged)
	standing := recordKind(bus, events.StandingChanged)

	require.NoError(t, rel.SetRelation(Pirates, RoyalNavy, 20))

	assert.True(t, rel.AreAtWar(Pirates, RoyalNavy))
	require.Len(t, *changed, 1)
	payload := (*changed)[0].Payload.(RelationChange)
	assert.Equal(t, 20.0, payload.Value)
	assert.Equal(t, 30.0, payload.Old)

	require.Len(t, *standing, 1)
	assert.Equal(t, StandingChange{A: Pirates, B: RoyalNavy, From: Neutral, To: Hostile}, (*standing)[0].Payload)

	// Moving deeper into war is not another crossing.
	require.NoError(t, rel.SetRelation(Pirates, RoyalNavy, 10))
	assert.Len(t, *standing, 1)
	assert.Len(t, *changed, 2)
}

func TestUnchangedRelationIsSilent(t *testing.T) {
	rel, bus := newRelations(t, DefaultSettings())
	require.NoError(t, rel.SetRelation(Pirates, Merchants, 100))
	changed := recordKind(bus, events.RelationChanged)

	require.NoError(t, rel.SetRelation(Pirates, Merchants, 140))
	assert.Empty(t, *changed)
}

func TestOnThreshold(t *testing.T) {
	rel, _ := newRelations(t, DefaultSettings())
	var fired []float64
	rel.OnThreshold(50, func(a, b FactionType, v float64) { fired = append(fired, v) })

	require.NoError(t, rel.SetRelation(Merchants, RoyalNavy, 40))
	require.NoError(t, rel.SetRelation(Merchants, RoyalNavy, 60))
	require.NoError(t, rel.SetRelation(Merchants, RoyalNavy, 70))
	require.NoError(t, rel.SetRelation(Merchants, RoyalNavy, 50))

	assert.Equal(t, []float64{60, 50}, fired)
}

func TestModifyInfluence(t *testing.T) {
	rel, bus := newRelations(t, DefaultSettings())
	changed := recordKind(bus, events.InfluenceChanged)

	require.NoError(t, rel.ModifyInfluence(Pirates, 30))
	assert.Equal(t, 30.0, rel.Influence(Pirates))

	require.NoError(t, rel.ModifyInfluence(Pirates, 500))
	assert.Equal(t, 100.0, rel.Influence(Pirates))

	require.NoError(t, rel.ModifyInfluence(Pirates, 0))
	require.NoError(t, rel.ModifyInfluence(Pirates, 5)) // already capped
	assert.Len(t, *changed, 2)

	require.NoError(t, rel.ModifyInfluence(Pirates, -250))
	assert.Zero(t, rel.Influence(Pirates))

	assert.ErrorIs(t, NewRelations(NewRegistry(), DefaultSettings(), nil).ModifyInfluence(Pirates, 1), ErrUnknownFaction)
}

func TestModifyResources(t *testing.T) {
	rel, bus := newRelations(t, DefaultSettings())
	changed := recordKind(bus, events.ResourcesChanged)

	require.NoError(t, rel.ModifyResources(Merchants, 40))
	require.NoError(t, rel.ModifyResources(Merchants, -60))

	f, _ := rel.reg.Get(Merchants)
	assert.Zero(t, f.Resources())
	assert.Len(t, *changed, 2)
}

func TestRecordTrade(t *testing.T) {
	rel, _ := newRelations(t, DefaultSettings())

	require.NoError(t, rel.RecordTrade(Merchants, Pirates, 100))
	assert.InDelta(t, 10, rel.Relation(Merchants, Pirates), 1e-9)

	require.NoError(t, rel.RecordTrade(Merchants, Pirates, -50))
	require.NoError(t, rel.RecordTrade(Merchants, Merchants, 50))
	assert.InDelta(t, 10, rel.Relation(Merchants, Pirates), 1e-9)

	require.NoError(t, rel.RecordTrade(Merchants, Pirates, 10000))
	assert.Equal(t, 100.0, rel.Relation(Merchants, Pirates))
}

func TestPortCaptureSideEffects(t *testing.T) {
	cfg := DefaultSettings()
	cfg.CaptureRelationPenalty = 20
	cfg.CaptureInfluenceChange = 10
	rel, bus := newRelations(t, cfg)

	port, err := rel.reg.AddPort("Havana", Merchants)
	require.NoError(t, err)
	require.NoError(t, rel.SetRelation(Merchants, Pirates, 50))
	require.NoError(t, rel.ModifyInfluence(Merchants, 50))
	require.NoError(t, rel.ModifyInfluence(Pirates, 50))
	captured := recordKind(bus, events.PortCaptured)

	assert.True(t, rel.HandlePortCapture(Pirates, port))

	assert.Equal(t, Pirates, port.Owner())
	assert.Equal(t, 30.0, rel.Relation(Merchants, Pirates))
	assert.Equal(t, 40.0, rel.Influence(Merchants))
	assert.Equal(t, 60.0, rel.Influence(Pirates))

	merchants, _ := rel.reg.Get(Merchants)
	pirates, _ := rel.reg.Get(Pirates)
	assert.Empty(t, merchants.Ports())
	require.Len(t, pirates.Ports(), 1)

	require.Len(t, *captured, 1)
	assert.Equal(t, PortCapture{Port: "Havana", From: Merchants, To: Pirates}, (*captured)[0].Payload)
}

func TestPortCaptureFromNeutralHasNoPenalty(t *testing.T) {
	rel, _ := newRelations(t, DefaultSettings())
	port, err := rel.reg.AddPort("Nassau", None)
	require.NoError(t, err)
	require.NoError(t, rel.ModifyInfluence(Pirates, 50))

	assert.True(t, rel.HandlePortCapture(Pirates, port))
	assert.Equal(t, Pirates, port.Owner())
	assert.Equal(t, 50.0, rel.Influence(Pirates))
}

func TestPortCaptureNoops(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Register(Pirates, Definition{})
	require.NoError(t, err)
	rel := NewRelations(reg, DefaultSettings(), nil)
	port, err := reg.AddPort("Tortuga", Pirates)
	require.NoError(t, err)

	assert.False(t, rel.HandlePortCapture(Pirates, port), "capturing own port")
	assert.Equal(t, Pirates, port.Owner())
}

func TestPortCaptureByUnregisteredFaction(t *testing.T) {
	reg := NewRegistry()
	pirates, err := reg.Register(Pirates, Definition{Influence: 40})
	require.NoError(t, err)
	bus := events.NewBus()
	captures := recordKind(bus, events.PortCaptured)
	rel := NewRelations(reg, DefaultSettings(), bus)
	port, err := reg.AddPort("Tortuga", Pirates)
	require.NoError(t, err)

	assert.True(t, rel.HandlePortCapture(RoyalNavy, port))
	assert.Equal(t, RoyalNavy, port.Owner())
	assert.Empty(t, pirates.Ports(), "port leaves the old owner's set")
	assert.Equal(t, 40.0, rel.Influence(Pirates), "no influence shift")

	require.Len(t, *captures, 1)
	assert.Equal(t, PortCapture{Port: "Tortuga", From: Pirates, To: RoyalNavy}, (*captures)[0].Payload)

	assert.True(t, rel.HandlePortCapture(Pirates, port), "recapture from an unregistered owner")
	assert.Equal(t, Pirates, port.Owner())
	assert.Len(t, pirates.Ports(), 1)
	assert.Equal(t, 40.0, rel.Influence(Pirates))
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())

	bad := DefaultSettings()
	bad.WarThreshold = 30
	assert.ErrorIs(t, bad.Validate(), ErrInvalidArgument)

	bad = DefaultSettings()
	bad.MinRelation = 200
	assert.Error(t, bad.Validate())

	bad = DefaultSettings()
	bad.NeutralRelation = 150
	assert.Error(t, bad.Validate())
}
