// Package combat runs the per-ship targeting state machine: it tracks one
// engagement per attacker, checks range and firing arc on a fixed interval,
// fires projectiles and drops engagements that have gone stale.
package combat

import (
	"log/slog"
	"sort"

	"github.com/talgya/corsair/internal/events"
	"github.com/talgya/corsair/internal/faction"
	"github.com/talgya/corsair/internal/fleet"
	"github.com/talgya/corsair/internal/world"
)

// Settings are the engine-wide combat tunables. Per-ship range, arc and
// damage come from the ship's class.
type Settings struct {
	UpdateInterval     float64 // Seconds between engagement evaluations
	MaxRange           float64 // Engagements beyond this distance are dropped
	ProjectileSpeed    float64
	ProjectileLifetime float64 // Seconds before an unfinished shot is lost
}

// DefaultSettings returns the stock combat tuning.
func DefaultSettings() Settings {
	return Settings{
		UpdateInterval:     0.5,
		MaxRange:           200,
		ProjectileSpeed:    20,
		ProjectileLifetime: 3,
	}
}

// Movement is the steering side of combat. The engine never moves ships; it
// tells the movement layer when an attacker starts or stops chasing a target.
type Movement interface {
	OnEngageTarget(attacker, target *fleet.Ship)
	OnDisengage(attacker *fleet.Ship)
}

type nopMovement struct{}

func (nopMovement) OnEngageTarget(_, _ *fleet.Ship) {}
func (nopMovement) OnDisengage(_ *fleet.Ship)       {}

// Engine owns every engagement and projectile in flight.
type Engine struct {
	cfg       Settings
	graph     *fleet.Graph
	relations *faction.Relations
	bus       *events.Bus
	movement  Movement

	engagements map[string]*Engagement // Keyed by attacker ID
	projectiles []*Projectile
	nextShot    uint64
	metrics     combatMetrics
}

// NewEngine wires the engine to the ownership graph and diplomacy rules.
// relations and bus may be nil; without relations no pair is hostile.
func NewEngine(cfg Settings, g *fleet.Graph, rel *faction.Relations, bus *events.Bus) *Engine {
	if g == nil {
		panic("combat: NewEngine requires an ownership graph")
	}
	metrics, err := newCombatMetrics()
	if err != nil {
		slog.Warn("combat metrics disabled", "error", err)
		metrics = noopMetrics()
	}
	return &Engine{
		cfg:         cfg,
		graph:       g,
		relations:   rel,
		bus:         bus,
		movement:    nopMovement{},
		engagements: make(map[string]*Engagement),
		metrics:     metrics,
	}
}

// SetMovement attaches the steering layer. nil restores the no-op default.
func (e *Engine) SetMovement(m Movement) {
	if m == nil {
		m = nopMovement{}
	}
	e.movement = m
}

// Settings returns the active tuning.
func (e *Engine) Settings() Settings { return e.cfg }

// SetTarget starts or replaces attacker's engagement. Invalid pairs are logged
// and ignored. The new engagement is evaluated on the next Update.
func (e *Engine) SetTarget(attacker, target *fleet.Ship) bool {
	switch {
	case attacker == nil || target == nil:
		slog.Warn("set target with nil ship")
		return false
	case attacker == target:
		slog.Warn("ship cannot target itself", "ship", attacker.Name)
		return false
	case !e.tracked(attacker) || !attacker.Alive():
		slog.Debug("set target from inactive ship", "ship", attacker.Name)
		return false
	case !e.tracked(target) || !target.Alive():
		slog.Debug("set target on inactive ship", "attacker", attacker.Name, "target", target.Name)
		return false
	}

	if prev, ok := e.engagements[attacker.ID]; ok {
		if prev.Target == target {
			prev.wait = 0
			return true
		}
		e.bus.Publish(events.EngagementEnded, EngagementInfo{Attacker: attacker.ID, Target: prev.Target.ID, Reason: ReasonRetargeted})
	} else {
		e.metrics.engagementDelta(1)
	}

	e.engagements[attacker.ID] = &Engagement{Attacker: attacker, Target: target, State: Pursuing}
	slog.Debug("engagement started", "attacker", attacker.Name, "target", target.Name)
	e.movement.OnEngageTarget(attacker, target)
	e.bus.Publish(events.EngagementStarted, EngagementInfo{Attacker: attacker.ID, Target: target.ID})
	return true
}

// ClearTarget ends attacker's engagement. Clearing a ship with no target is a no-op.
func (e *Engine) ClearTarget(attacker *fleet.Ship) {
	if attacker == nil {
		return
	}
	e.disengage(attacker.ID, ReasonCleared)
}

// Forget drops every engagement involving s and every projectile aimed at it.
// Called when a ship leaves the game so the next tick never sees it.
func (e *Engine) Forget(s *fleet.Ship) {
	if s == nil {
		return
	}
	e.disengage(s.ID, ReasonGone)
	for _, id := range e.attackerIDs() {
		if eng := e.engagements[id]; eng.Target == s {
			e.disengage(id, ReasonGone)
		}
	}
	kept := e.projectiles[:0]
	for _, p := range e.projectiles {
		if p.Target != s {
			kept = append(kept, p)
		}
	}
	clear(e.projectiles[len(kept):])
	e.projectiles = kept
}

// Update advances projectiles by dt, then evaluates every engagement whose
// interval has elapsed, in attacker ID order.
func (e *Engine) Update(dt float64) {
	e.advanceProjectiles(dt)

	for _, id := range e.attackerIDs() {
		eng, ok := e.engagements[id]
		if !ok {
			continue
		}
		eng.wait -= dt
		if eng.wait > 0 {
			continue
		}
		eng.wait = e.cfg.UpdateInterval
		e.evaluate(eng)
	}
}

func (e *Engine) evaluate(eng *Engagement) {
	a, t := eng.Attacker, eng.Target

	switch {
	case !e.tracked(a) || !e.tracked(t):
		e.disengage(a.ID, ReasonGone)
		return
	case a.IsSinking() || t.IsSinking():
		e.disengage(a.ID, ReasonSinking)
		return
	}

	dist := world.FlatDistance(a.Position, t.Position)
	if dist > e.cfg.MaxRange {
		e.disengage(a.ID, ReasonOutOfRange)
		return
	}
	if dist > a.Class.AttackRange {
		eng.State = Pursuing
		return
	}

	angle := world.AngleDeg(a.Forward.Flat(), t.Position.Sub(a.Position).Flat())
	if angle > a.Class.FiringArc*0.5 {
		eng.State = InRange
		return
	}
	if !a.ConsumeShot() {
		slog.Debug("cannot fire", "ship", a.Name, "ammo", a.Ammo(), "reload", a.ReloadRemaining())
		eng.State = InRange
		return
	}

	eng.State = Firing
	eng.Shots++
	e.fire(a, t, dist, angle)
}

func (e *Engine) fire(a, t *fleet.Ship, dist, angle float64) {
	e.nextShot++
	p := &Projectile{
		ID:       e.nextShot,
		Attacker: a.ID,
		Faction:  a.Faction().String(),
		Target:   t,
		Damage:   a.Class.AttackDamage,
		lifetime: e.cfg.ProjectileLifetime,
	}
	if e.cfg.ProjectileSpeed > 0 {
		p.eta = dist / e.cfg.ProjectileSpeed
	}
	e.projectiles = append(e.projectiles, p)

	e.metrics.shotFired(p.Faction)
	slog.Debug("fired", "attacker", a.Name, "target", t.Name, "distance", dist, "eta", p.eta, "hit", p.WillHit())
	e.bus.Publish(events.ShotFired, Shot{
		Projectile: p.ID,
		Attacker:   a.ID,
		Target:     t.ID,
		Distance:   dist,
		Angle:      angle,
		Damage:     p.Damage,
	})
}

func (e *Engine) advanceProjectiles(dt float64) {
	if len(e.projectiles) == 0 {
		return
	}
	var landed []*Projectile
	kept := e.projectiles[:0]
	for _, p := range e.projectiles {
		done, impact := p.advance(dt)
		switch {
		case !done:
			kept = append(kept, p)
		case impact:
			landed = append(landed, p)
		}
	}
	clear(e.projectiles[len(kept):])
	e.projectiles = kept

	for _, p := range landed {
		t := p.Target
		if !e.tracked(t) || t.IsSinking() {
			continue
		}
		e.metrics.shotHit(p.Faction)
		e.graph.ApplyDamage(t, p.Damage)
	}
}

func (e *Engine) disengage(attackerID, reason string) {
	eng, ok := e.engagements[attackerID]
	if !ok {
		return
	}
	delete(e.engagements, attackerID)
	e.metrics.engagementDelta(-1)
	slog.Debug("engagement ended", "attacker", eng.Attacker.Name, "target", eng.Target.Name, "reason", reason)
	e.movement.OnDisengage(eng.Attacker)
	e.bus.Publish(events.EngagementEnded, EngagementInfo{Attacker: attackerID, Target: eng.Target.ID, Reason: reason})
}

// tracked reports whether s is still the ship the graph knows under its ID.
func (e *Engine) tracked(s *fleet.Ship) bool {
	if s == nil {
		return false
	}
	got, ok := e.graph.Ship(s.ID)
	return ok && got == s
}

func (e *Engine) attackerIDs() []string {
	ids := make([]string, 0, len(e.engagements))
	for id := range e.engagements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ── Queries ─────────────────────────────────────────────────────────

// Target returns attacker's current target, or nil.
func (e *Engine) Target(attacker *fleet.Ship) *fleet.Ship {
	if attacker == nil {
		return nil
	}
	if eng, ok := e.engagements[attacker.ID]; ok {
		return eng.Target
	}
	return nil
}

// State returns attacker's engagement state.
func (e *Engine) State(attacker *fleet.Ship) State {
	if attacker == nil {
		return NoTarget
	}
	if eng, ok := e.engagements[attacker.ID]; ok {
		return eng.State
	}
	return NoTarget
}

// IsInCombat reports whether s is attacking or being attacked.
func (e *Engine) IsInCombat(s *fleet.Ship) bool {
	if s == nil {
		return false
	}
	if _, ok := e.engagements[s.ID]; ok {
		return true
	}
	for _, eng := range e.engagements {
		if eng.Target == s {
			return true
		}
	}
	return false
}

// IsHostile reports whether a and b sail for factions at war.
func (e *Engine) IsHostile(a, b *fleet.Ship) bool {
	if a == nil || b == nil || a == b || e.relations == nil {
		return false
	}
	return e.relations.AreAtWar(a.Faction(), b.Faction())
}

// Engagements returns a copy of every engagement, ordered by attacker ID.
func (e *Engine) Engagements() []Engagement {
	out := make([]Engagement, 0, len(e.engagements))
	for _, id := range e.attackerIDs() {
		out = append(out, *e.engagements[id])
	}
	return out
}

// InFlight returns the number of projectiles in the air.
func (e *Engine) InFlight() int { return len(e.projectiles) }

// Records captures the engagements for persistence.
func (e *Engine) Records() []Record {
	out := make([]Record, 0, len(e.engagements))
	for _, eng := range e.Engagements() {
		out = append(out, Record{
			Attacker: eng.Attacker.ID,
			Target:   eng.Target.ID,
			State:    eng.State.String(),
			Shots:    eng.Shots,
		})
	}
	return out
}

// Restore re-creates an engagement from its record. Records that no longer
// resolve to valid ships are skipped.
func (e *Engine) Restore(r Record) bool {
	a, okA := e.graph.Ship(r.Attacker)
	t, okT := e.graph.Ship(r.Target)
	if !okA || !okT || !e.SetTarget(a, t) {
		slog.Debug("engagement not restored", "attacker", r.Attacker, "target", r.Target)
		return false
	}
	eng := e.engagements[a.ID]
	eng.State = ParseState(r.State)
	if eng.State == NoTarget {
		eng.State = Pursuing
	}
	eng.Shots = r.Shots
	return true
}
