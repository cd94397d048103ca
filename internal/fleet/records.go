package fleet

import (
	"fmt"

	"github.com/talgya/corsair/internal/faction"
	"github.com/talgya/corsair/internal/world"
)

// PirateRecord is the persisted form of a pirate.
type PirateRecord struct {
	ID         string              `db:"id" json:"id"`
	Name       string              `db:"name" json:"name"`
	Faction    faction.FactionType `db:"faction" json:"faction"`
	Rank       Rank                `db:"rank" json:"rank"`
	Reputation float64             `db:"reputation" json:"reputation"`
	Wealth     float64             `db:"wealth" json:"wealth"`
	Player     bool                `db:"player" json:"player"`
	HomeX      float64             `db:"home_x" json:"home_x"`
	HomeZ      float64             `db:"home_z" json:"home_z"`
}

// ShipRecord is the persisted form of a ship.
type ShipRecord struct {
	ID          string              `db:"id" json:"id"`
	Name        string              `db:"name" json:"name"`
	Class       string              `db:"class" json:"class"`
	Faction     faction.FactionType `db:"faction" json:"faction"`
	OwnerID     string              `db:"owner_id" json:"owner_id"`
	Health      float64             `db:"health" json:"health"`
	Sinking     bool                `db:"sinking" json:"sinking"`
	SinkElapsed float64             `db:"sink_elapsed" json:"sink_elapsed"`
	Selected    bool                `db:"selected" json:"selected"`
	PosX        float64             `db:"pos_x" json:"pos_x"`
	PosZ        float64             `db:"pos_z" json:"pos_z"`
	FwdX        float64             `db:"fwd_x" json:"fwd_x"`
	FwdZ        float64             `db:"fwd_z" json:"fwd_z"`
	Ammo        int                 `db:"ammo" json:"ammo"`
	ReloadLeft  float64             `db:"reload_left" json:"reload_left"`
}

// PirateRecords captures every pirate, sorted by ID.
func (g *Graph) PirateRecords() []PirateRecord {
	out := make([]PirateRecord, 0, len(g.pirates))
	for _, p := range g.Pirates() {
		out = append(out, PirateRecord{
			ID:         p.ID,
			Name:       p.Name,
			Faction:    p.faction,
			Rank:       p.rank,
			Reputation: p.reputation,
			Wealth:     p.wealth,
			Player:     p.player,
			HomeX:      p.Home.X,
			HomeZ:      p.Home.Z,
		})
	}
	return out
}

// ShipRecords captures every ship, sorted by ID.
func (g *Graph) ShipRecords() []ShipRecord {
	out := make([]ShipRecord, 0, len(g.ships))
	for _, s := range g.Ships() {
		out = append(out, ShipRecord{
			ID:          s.ID,
			Name:        s.Name,
			Class:       s.Class.Name,
			Faction:     s.faction,
			OwnerID:     s.OwnerID(),
			Health:      s.health,
			Sinking:     s.sinking,
			SinkElapsed: s.sinkElapsed,
			Selected:    s.selected,
			PosX:        s.Position.X,
			PosZ:        s.Position.Z,
			FwdX:        s.Forward.X,
			FwdZ:        s.Forward.Z,
			Ammo:        s.ammo,
			ReloadLeft:  s.reloadLeft,
		})
	}
	return out
}

// RestorePirate re-creates a pirate from its record and registers it.
func (g *Graph) RestorePirate(r PirateRecord) (*Pirate, error) {
	p := &Pirate{
		ID:         r.ID,
		Name:       r.Name,
		Home:       world.Vec3{X: r.HomeX, Z: r.HomeZ},
		faction:    r.Faction,
		rank:       r.Rank,
		reputation: r.Reputation,
		wealth:     r.Wealth,
		player:     r.Player,
		ships:      make(map[string]*Ship),
	}
	if err := g.RegisterPirate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// RestoreShip re-creates a ship from its record through the normal two-phase
// initialization, then reapplies its mutable state. The owner must already be restored.
func (g *Graph) RestoreShip(r ShipRecord, class Class) (*Ship, error) {
	owner, ok := g.pirates[r.OwnerID]
	if !ok {
		return nil, fmt.Errorf("restore ship %s: %w: %s", r.Name, ErrUnknownPirate, r.OwnerID)
	}
	s := NewShip(class)
	s.ID = r.ID
	g.restoring = true
	err := g.InitializeShip(s, r.Name, r.Faction, owner)
	g.restoring = false
	if err != nil {
		return nil, err
	}
	s.health = world.Clamp(r.Health, 0, class.MaxHealth)
	s.sinking = r.Sinking
	s.sinkElapsed = r.SinkElapsed
	s.selected = r.Selected && !r.Sinking
	s.Position = world.Vec3{X: r.PosX, Z: r.PosZ}
	s.Forward = world.Vec3{X: r.FwdX, Z: r.FwdZ}
	if s.Forward.Len() == 0 {
		s.Forward = world.Forward
	}
	s.ammo = r.Ammo
	s.reloadLeft = r.ReloadLeft
	return s, nil
}
