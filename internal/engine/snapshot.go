package engine

import (
	"fmt"

	"github.com/talgya/corsair/internal/combat"
	"github.com/talgya/corsair/internal/faction"
	"github.com/talgya/corsair/internal/fleet"
)

// FactionState is the persisted form of a faction record.
type FactionState struct {
	Type         faction.FactionType             `json:"type"`
	Name         string                          `json:"name"`
	Color        string                          `json:"color"`
	BaseLocation string                          `json:"base_location"`
	Influence    float64                         `json:"influence"`
	Resources    float64                         `json:"resources"`
	Relations    map[faction.FactionType]float64 `json:"relations"`
}

// PortState is the persisted form of a port.
type PortState struct {
	Name  string              `json:"name"`
	Owner faction.FactionType `json:"owner"`
}

// Snapshot is everything needed to resume a game.
type Snapshot struct {
	Tick        uint64
	Factions    []FactionState
	Ports       []PortState
	Pirates     []fleet.PirateRecord
	Ships       []fleet.ShipRecord
	Engagements []combat.Record
}

// Snapshot captures the world. Projectiles in flight are not kept.
func (s *Simulation) Snapshot() *Snapshot {
	snap := &Snapshot{
		Tick:        s.LastTick,
		Pirates:     s.Graph.PirateRecords(),
		Ships:       s.Graph.ShipRecords(),
		Engagements: s.Combat.Records(),
	}
	for _, f := range s.Registry.All() {
		snap.Factions = append(snap.Factions, FactionState{
			Type:         f.Type,
			Name:         f.Name,
			Color:        f.Color.String(),
			BaseLocation: f.BaseLocation,
			Influence:    f.Influence(),
			Resources:    f.Resources(),
			Relations:    f.RelationRow(),
		})
	}
	for _, p := range s.Registry.AllPorts() {
		snap.Ports = append(snap.Ports, PortState{Name: p.Name, Owner: p.Owner()})
	}
	return snap
}

// Restore loads snap into a freshly built simulation. Ships whose class is no
// longer defined are rebuilt with the default class stats under their old class name.
// Events published while rebuilding are not added to the event log.
func (s *Simulation) Restore(snap *Snapshot) error {
	if len(s.Registry.All()) > 0 {
		return fmt.Errorf("restore: simulation already populated")
	}
	s.restoring = true
	defer func() { s.restoring = false }()
	s.LastTick = snap.Tick
	s.Bus.SetTick(snap.Tick)

	for _, fs := range snap.Factions {
		color, err := faction.ParseColor(fs.Color)
		if err != nil {
			color = faction.Gray
		}
		_, err = s.Registry.Register(fs.Type, faction.Definition{
			Name:         fs.Name,
			Color:        color,
			BaseLocation: fs.BaseLocation,
			Influence:    fs.Influence,
			Resources:    fs.Resources,
		})
		if err != nil {
			return fmt.Errorf("restore faction: %w", err)
		}
	}
	s.Registry.Bootstrap()

	for _, fs := range snap.Factions {
		for other, v := range fs.Relations {
			if other <= fs.Type {
				continue
			}
			if err := s.Relations.SetRelation(fs.Type, other, v); err != nil {
				return fmt.Errorf("restore relations: %w", err)
			}
		}
	}
	for _, ps := range snap.Ports {
		if _, err := s.Registry.AddPort(ps.Name, ps.Owner); err != nil {
			return fmt.Errorf("restore port: %w", err)
		}
	}

	for _, pr := range snap.Pirates {
		if _, err := s.Graph.RestorePirate(pr); err != nil {
			return fmt.Errorf("restore pirate: %w", err)
		}
	}
	for _, sr := range snap.Ships {
		class, ok := s.Spawner.Class(sr.Class)
		if !ok {
			class = fleet.DefaultClass()
			class.Name = sr.Class
		}
		if _, err := s.Graph.RestoreShip(sr, class); err != nil {
			return fmt.Errorf("restore ship: %w", err)
		}
	}
	for _, er := range snap.Engagements {
		s.Combat.Restore(er)
	}

	s.attachControllers()
	return s.Verify()
}
