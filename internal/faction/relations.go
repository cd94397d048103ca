package faction

import (
	"fmt"
	"log/slog"

	"github.com/talgya/corsair/internal/events"
	"github.com/talgya/corsair/internal/world"
)

// Settings are the global diplomacy tunables.
type Settings struct {
	MinRelation     float64
	MaxRelation     float64
	NeutralRelation float64
	WarThreshold    float64 // At or below: hostile
	AllyThreshold   float64 // At or above: allied
	TradeMultiplier float64

	CaptureRelationPenalty float64
	CaptureInfluenceChange float64
}

// DefaultSettings uses a [-100, 100] relation scale centered on 0.
func DefaultSettings() Settings {
	return Settings{
		MinRelation:            -100,
		MaxRelation:            100,
		NeutralRelation:        0,
		WarThreshold:           -25,
		AllyThreshold:          25,
		TradeMultiplier:        0.1,
		CaptureRelationPenalty: 20,
		CaptureInfluenceChange: 10,
	}
}

// Validate checks the ordering constraints between the settings.
func (s Settings) Validate() error {
	switch {
	case s.MinRelation >= s.MaxRelation:
		return fmt.Errorf("%w: min relation %.1f must be below max %.1f", ErrInvalidArgument, s.MinRelation, s.MaxRelation)
	case s.NeutralRelation < s.MinRelation || s.NeutralRelation > s.MaxRelation:
		return fmt.Errorf("%w: neutral relation %.1f outside [%.1f, %.1f]", ErrInvalidArgument, s.NeutralRelation, s.MinRelation, s.MaxRelation)
	case s.WarThreshold >= s.AllyThreshold:
		return fmt.Errorf("%w: war threshold %.1f must be below ally threshold %.1f", ErrInvalidArgument, s.WarThreshold, s.AllyThreshold)
	case s.TradeMultiplier < 0, s.CaptureRelationPenalty < 0, s.CaptureInfluenceChange < 0:
		return fmt.Errorf("%w: trade multiplier and capture effects must be non-negative", ErrInvalidArgument)
	}
	return nil
}

// RelationChange is the payload of events.RelationChanged.
type RelationChange struct {
	A     FactionType `json:"a"`
	B     FactionType `json:"b"`
	Old   float64     `json:"old"`
	Value float64     `json:"value"`
}

// StandingChange is the payload of events.StandingChanged, published once per threshold crossing.
type StandingChange struct {
	A    FactionType `json:"a"`
	B    FactionType `json:"b"`
	From Standing    `json:"from"`
	To   Standing    `json:"to"`
}

// LevelChange is the payload of events.InfluenceChanged and events.ResourcesChanged.
type LevelChange struct {
	Faction FactionType `json:"faction"`
	Old     float64     `json:"old"`
	Value   float64     `json:"value"`
}

// PortCapture is the payload of events.PortCaptured.
type PortCapture struct {
	Port string      `json:"port"`
	From FactionType `json:"from"`
	To   FactionType `json:"to"`
}

// ThresholdFunc is called when a relation update crosses a registered value.
type ThresholdFunc func(a, b FactionType, value float64)

type trigger struct {
	value float64
	fn    ThresholdFunc
}

// Relations applies diplomacy rules to the registry. It is the only writer of
// relation rows, influence, resources, and port ownership.
type Relations struct {
	reg      *Registry
	cfg      Settings
	bus      *events.Bus
	triggers []trigger
}

// NewRelations binds the rules to a registry. bus may be nil.
func NewRelations(reg *Registry, cfg Settings, bus *events.Bus) *Relations {
	if reg == nil {
		panic("faction: NewRelations requires a registry")
	}
	return &Relations{reg: reg, cfg: cfg, bus: bus}
}

// Settings returns the active tunables.
func (r *Relations) Settings() Settings { return r.cfg }

// Relation returns the symmetric relation between a and b. A faction's relation
// with itself is always the maximum; pairs never set read as neutral.
func (r *Relations) Relation(a, b FactionType) float64 {
	if a == b {
		return r.cfg.MaxRelation
	}
	if f, ok := r.reg.factions[a]; ok {
		if v, ok := f.relations[b]; ok {
			return v
		}
	}
	return r.cfg.NeutralRelation
}

// SetRelation clamps value into range and writes it to both factions' rows.
func (r *Relations) SetRelation(a, b FactionType, value float64) error {
	if a == b {
		return fmt.Errorf("%w: cannot set relation of %s with itself", ErrInvalidArgument, a)
	}
	fa, err := r.reg.Get(a)
	if err != nil {
		return err
	}
	fb, err := r.reg.Get(b)
	if err != nil {
		return err
	}

	old := r.Relation(a, b)
	value = world.Clamp(value, r.cfg.MinRelation, r.cfg.MaxRelation)
	fa.relations[b] = value
	fb.relations[a] = value
	if value == old {
		return nil
	}

	r.bus.Publish(events.RelationChanged, RelationChange{A: a, B: b, Old: old, Value: value})

	from, to := r.standingFor(old), r.standingFor(value)
	if from != to {
		slog.Info("faction standing changed", "a", a, "b", b, "from", from, "to", to, "relation", value)
		r.bus.Publish(events.StandingChanged, StandingChange{A: a, B: b, From: from, To: to})
	}
	for _, t := range r.triggers {
		if crossed(old, value, t.value) {
			t.fn(a, b, value)
		}
	}
	return nil
}

// AdjustRelation shifts the relation between a and b by delta.
func (r *Relations) AdjustRelation(a, b FactionType, delta float64) error {
	return r.SetRelation(a, b, r.Relation(a, b)+delta)
}

// OnThreshold registers fn to run whenever a relation update crosses value in either direction.
func (r *Relations) OnThreshold(value float64, fn ThresholdFunc) {
	r.triggers = append(r.triggers, trigger{value: value, fn: fn})
}

// Standing classifies the relation between a and b.
func (r *Relations) Standing(a, b FactionType) Standing {
	if a == b {
		return Allied
	}
	return r.standingFor(r.Relation(a, b))
}

func (r *Relations) standingFor(v float64) Standing {
	switch {
	case v <= r.cfg.WarThreshold:
		return Hostile
	case v >= r.cfg.AllyThreshold:
		return Allied
	default:
		return Neutral
	}
}

// AreAtWar reports whether a and b are hostile. A faction is never at war with itself.
func (r *Relations) AreAtWar(a, b FactionType) bool {
	return r.Standing(a, b) == Hostile
}

// AreAllied reports whether a and b are allied. A faction is always allied with itself.
func (r *Relations) AreAllied(a, b FactionType) bool {
	return r.Standing(a, b) == Allied
}

// Influence returns the faction's influence, or 0 for unknown factions.
func (r *Relations) Influence(t FactionType) float64 {
	if f, ok := r.reg.factions[t]; ok {
		return f.influence
	}
	return 0
}

// Color returns the faction's display color, gray for unknown factions.
func (r *Relations) Color(t FactionType) Color {
	if f, ok := r.reg.factions[t]; ok {
		return f.Color
	}
	return Gray
}

// ModifyInfluence shifts influence by delta, clamped to [0, 100]. Zero or
// clamped-away deltas are silent no-ops.
func (r *Relations) ModifyInfluence(t FactionType, delta float64) error {
	f, err := r.reg.Get(t)
	if err != nil {
		return err
	}
	if delta == 0 {
		return nil
	}
	old := f.influence
	f.influence = clampLevel(old + delta)
	if f.influence == old {
		return nil
	}
	r.bus.Publish(events.InfluenceChanged, LevelChange{Faction: t, Old: old, Value: f.influence})
	return nil
}

// ModifyResources shifts the resource level by delta with the same rules as influence.
func (r *Relations) ModifyResources(t FactionType, delta float64) error {
	f, err := r.reg.Get(t)
	if err != nil {
		return err
	}
	if delta == 0 {
		return nil
	}
	old := f.resources
	f.resources = clampLevel(old + delta)
	if f.resources == old {
		return nil
	}
	r.bus.Publish(events.ResourcesChanged, LevelChange{Faction: t, Old: old, Value: f.resources})
	return nil
}

// RecordTrade improves relations between trading partners by value * TradeMultiplier.
// Self-trade and non-positive values are ignored.
func (r *Relations) RecordTrade(a, b FactionType, value float64) error {
	if a == b || value <= 0 {
		return nil
	}
	return r.SetRelation(a, b, r.Relation(a, b)+value*r.cfg.TradeMultiplier)
}

// HandlePortCapture transfers port to capturing. When the port had a prior
// owner, their relation drops by the capture penalty and influence shifts from
// the old owner to the new one. Ownership always moves; when either faction is
// not registered the relation and influence effects are skipped.
// Returns false when nothing changed.
func (r *Relations) HandlePortCapture(capturing FactionType, port *Port) bool {
	if port == nil {
		panic("faction: HandlePortCapture requires a port")
	}
	prior := port.owner
	if prior == capturing {
		return false
	}
	r.reg.assignPort(port, capturing)
	slog.Info("port captured", "port", port.Name, "from", prior, "to", capturing)

	if prior != None && capturing != None && r.reg.Has(prior) && r.reg.Has(capturing) {
		if err := r.AdjustRelation(prior, capturing, -r.cfg.CaptureRelationPenalty); err == nil {
			_ = r.ModifyInfluence(prior, -r.cfg.CaptureInfluenceChange)
			_ = r.ModifyInfluence(capturing, r.cfg.CaptureInfluenceChange)
		}
	}

	r.bus.Publish(events.PortCaptured, PortCapture{Port: port.Name, From: prior, To: capturing})
	return true
}

// crossed reports whether moving from old to value passes through t.
func crossed(old, value, t float64) bool {
	return (old < t && value >= t) || (old > t && value <= t)
}
