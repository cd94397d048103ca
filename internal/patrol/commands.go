package patrol

import (
	"fmt"
	"log/slog"

	"github.com/talgya/corsair/internal/combat"
	"github.com/talgya/corsair/internal/faction"
	"github.com/talgya/corsair/internal/fleet"
	"github.com/talgya/corsair/internal/world"
)

// Formation layout for fleet moves.
const (
	ShipsPerRow       = 3
	FormationSpacing  = 5.0
	maxTargetDistance = 150.0
)

// OrderKind names a player command.
type OrderKind uint8

const (
	OrderSelect OrderKind = iota
	OrderAttack
	OrderMove
	OrderMoveFleet
	OrderCancel
)

func (k OrderKind) String() string {
	switch k {
	case OrderSelect:
		return "select"
	case OrderAttack:
		return "attack"
	case OrderMove:
		return "move"
	case OrderMoveFleet:
		return "move_fleet"
	case OrderCancel:
		return "cancel"
	default:
		return fmt.Sprintf("order(%d)", uint8(k))
	}
}

// ParseOrderKind resolves an order name such as "move_fleet".
func ParseOrderKind(name string) (OrderKind, bool) {
	for k := OrderSelect; k <= OrderCancel; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// Order is one queued player command. Ship and Target are ship IDs.
type Order struct {
	Kind   OrderKind
	Ship   string
	Target string
	Dest   world.Vec3
}

// Commands is the player's controller. Input lands in a queue and is applied
// at the start of the next tick, before combat evaluates.
type Commands struct {
	graph     *fleet.Graph
	combat    *combat.Engine
	relations *faction.Relations
	helm      *Helm
	queue     []Order
}

// NewCommands creates the player controller.
func NewCommands(g *fleet.Graph, ce *combat.Engine, rel *faction.Relations, helm *Helm) *Commands {
	if g == nil || ce == nil || rel == nil || helm == nil {
		panic("patrol: NewCommands requires graph, combat engine, relations and helm")
	}
	return &Commands{graph: g, combat: ce, relations: rel, helm: helm}
}

// Enqueue records an order for the next tick.
func (c *Commands) Enqueue(o Order) {
	c.queue = append(c.queue, o)
}

// Pending returns the number of queued orders.
func (c *Commands) Pending() int { return len(c.queue) }

// Tick implements fleet.Controller by applying every queued order in arrival order.
func (c *Commands) Tick(p *fleet.Pirate, _ float64) {
	queue := c.queue
	c.queue = nil
	for _, o := range queue {
		var ok bool
		switch o.Kind {
		case OrderSelect:
			ok = c.Select(p, o.Ship)
		case OrderAttack:
			ok = c.Attack(p, o.Target)
		case OrderMove:
			ok = c.MoveTo(p, o.Dest)
		case OrderMoveFleet:
			ok = c.MoveFleet(p, o.Dest) > 0
		case OrderCancel:
			ok = c.CancelTarget(p)
		}
		if !ok {
			slog.Debug("order not applied", "order", o.Kind, "pirate", p.Name)
		}
	}
}

// Select makes the given ship the player's selected ship.
func (c *Commands) Select(p *fleet.Pirate, shipID string) bool {
	s, ok := c.graph.Ship(shipID)
	if !ok {
		return false
	}
	if !c.graph.Select(p, s) {
		slog.Warn("cannot select ship", "ship", s.Name, "pirate", p.Name)
		return false
	}
	return true
}

// Attack sends the selected ship after target. Friendly and allied ships are
// approached instead of attacked.
func (c *Commands) Attack(p *fleet.Pirate, targetID string) bool {
	s := p.Selected()
	target, ok := c.graph.Ship(targetID)
	if s == nil || !ok || target == s || !target.Alive() {
		return false
	}
	if target.Faction() == s.Faction() || c.relations.AreAllied(s.Faction(), target.Faction()) {
		slog.Debug("moving to friendly ship", "ship", s.Name, "target", target.Name)
		c.helm.SetWaypoint(s, target.Position)
		return true
	}
	return c.combat.SetTarget(s, target)
}

// MoveTo steers the selected ship to dest. A ship moving far from its target
// breaks off the engagement.
func (c *Commands) MoveTo(p *fleet.Pirate, dest world.Vec3) bool {
	s := p.Selected()
	if s == nil {
		return false
	}
	if t := c.combat.Target(s); t != nil && world.Distance(dest, t.Position) > maxTargetDistance*1.5 {
		c.combat.ClearTarget(s)
	}
	c.helm.SetWaypoint(s, dest)
	return true
}

// MoveFleet sends every live ship of p to dest in rows of ShipsPerRow,
// returning how many ships were ordered.
func (c *Commands) MoveFleet(p *fleet.Pirate, dest world.Vec3) int {
	moved := 0
	for _, s := range p.Ships() {
		if !s.Alive() {
			continue
		}
		c.helm.SetWaypoint(s, dest.Add(FormationOffset(moved)))
		moved++
	}
	return moved
}

// CancelTarget ends the selected ship's engagement.
func (c *Commands) CancelTarget(p *fleet.Pirate) bool {
	s := p.Selected()
	if s == nil {
		return false
	}
	c.combat.ClearTarget(s)
	return true
}

// FormationOffset returns the slot offset of the i-th ship: rows of
// ShipsPerRow centered on the destination, each row further astern.
func FormationOffset(i int) world.Vec3 {
	row, col := i/ShipsPerRow, i%ShipsPerRow
	return world.Vec3{
		X: float64(col)*FormationSpacing - FormationSpacing*float64(ShipsPerRow-1)/2,
		Z: float64(row) * -FormationSpacing,
	}
}
