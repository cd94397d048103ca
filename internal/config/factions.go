package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/corsair/internal/faction"
	"github.com/talgya/corsair/internal/fleet"
	"github.com/talgya/corsair/internal/world"
)

// ClassSpec is one ship class as written in the definitions file.
type ClassSpec struct {
	Name             string  `yaml:"name"`
	MaxHealth        float64 `yaml:"max_health"`
	SinkingThreshold float64 `yaml:"sinking_threshold"`
	AttackRange      float64 `yaml:"attack_range"`
	FiringArc        float64 `yaml:"firing_arc"`
	AttackDamage     float64 `yaml:"attack_damage"`
	ReloadTime       float64 `yaml:"reload_time"`
	MaxAmmo          int     `yaml:"max_ammo"`
	Speed            float64 `yaml:"speed"`
}

// UnmarshalYAML fills omitted stats from fleet.DefaultClass.
func (c *ClassSpec) UnmarshalYAML(n *yaml.Node) error {
	type plain ClassSpec
	d := fleet.DefaultClass()
	p := plain{
		MaxHealth:        d.MaxHealth,
		SinkingThreshold: d.SinkingThreshold,
		AttackRange:      d.AttackRange,
		FiringArc:        d.FiringArc,
		AttackDamage:     d.AttackDamage,
		ReloadTime:       d.ReloadTime,
		MaxAmmo:          d.MaxAmmo,
		Speed:            d.Speed,
	}
	if err := n.Decode(&p); err != nil {
		return err
	}
	*c = ClassSpec(p)
	return nil
}

// PirateSpec is one named captain.
type PirateSpec struct {
	Name       string  `yaml:"name"`
	Rank       string  `yaml:"rank"`
	Reputation float64 `yaml:"reputation"`
	Wealth     float64 `yaml:"wealth"`
}

// UnmarshalYAML applies the stock reputation and wealth when omitted.
func (p *PirateSpec) UnmarshalYAML(n *yaml.Node) error {
	type plain PirateSpec
	v := plain{Rank: fleet.Regular.String(), Reputation: 50, Wealth: 1000}
	if err := n.Decode(&v); err != nil {
		return err
	}
	*p = PirateSpec(v)
	return nil
}

// PointSpec is a position on the water plane.
type PointSpec struct {
	X float64 `yaml:"x"`
	Z float64 `yaml:"z"`
}

// ShipsSpec describes a faction's starting fleet. Classes are used round-robin
// for Count ships, which are dealt out to the faction's pirates in turn.
type ShipsSpec struct {
	Count   int       `yaml:"count"`
	Classes []string  `yaml:"classes"`
	Center  PointSpec `yaml:"center"`
	Radius  float64   `yaml:"radius"`
}

// FactionSpec is one faction as written in the definitions file.
type FactionSpec struct {
	Type         string             `yaml:"type"`
	Name         string             `yaml:"name"`
	Color        string             `yaml:"color"`
	BaseLocation string             `yaml:"base_location"`
	Influence    float64            `yaml:"influence"`
	Resources    float64            `yaml:"resources"`
	Relations    map[string]float64 `yaml:"relations"`
	Player       bool               `yaml:"player"`
	Ports        []string           `yaml:"ports"`
	Pirates      []PirateSpec       `yaml:"pirates"`
	Ships        ShipsSpec          `yaml:"ships"`
}

// UnmarshalYAML applies the default influence for defined factions.
func (f *FactionSpec) UnmarshalYAML(n *yaml.Node) error {
	type plain FactionSpec
	v := plain{Influence: faction.DefaultInfluence}
	if err := n.Decode(&v); err != nil {
		return err
	}
	*f = FactionSpec(v)
	return nil
}

// FactionFile is the top-level document.
type FactionFile struct {
	ShipClasses []ClassSpec   `yaml:"ship_classes"`
	Factions    []FactionSpec `yaml:"factions"`
}

// PirateDef is a validated captain.
type PirateDef struct {
	Name       string
	Rank       fleet.Rank
	Reputation float64
	Wealth     float64
}

// FleetDef is a validated starting fleet.
type FleetDef struct {
	Count   int
	Classes []string
	Center  world.Vec3
	Radius  float64
}

// FactionDef is a validated faction definition.
type FactionDef struct {
	Type       faction.FactionType
	Definition faction.Definition
	Relations  map[faction.FactionType]float64
	Player     bool
	Ports      []string
	Pirates    []PirateDef
	Fleet      FleetDef
}

// Factions is everything the definitions file sets up at startup.
type Factions struct {
	Classes  []fleet.Class
	Factions []FactionDef
}

// LoadFactions reads and validates the definitions file at path.
func LoadFactions(path string) (*Factions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read factions file: %w", err)
	}
	return ParseFactions(data)
}

// ParseFactions validates a definitions document.
func ParseFactions(data []byte) (*Factions, error) {
	var file FactionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parse factions: %v", ErrInvalidConfig, err)
	}

	out := &Factions{}
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	classes := make(map[string]bool)
	for _, cs := range file.ShipClasses {
		c := fleet.Class(cs)
		if err := c.Validate(); err != nil {
			fail("%v", err)
			continue
		}
		if classes[c.Name] {
			fail("ship class %q defined twice", c.Name)
			continue
		}
		classes[c.Name] = true
		out.Classes = append(out.Classes, c)
	}
	if len(out.Classes) == 0 && len(file.ShipClasses) == 0 {
		d := fleet.DefaultClass()
		classes[d.Name] = true
		out.Classes = append(out.Classes, d)
	}

	seen := make(map[faction.FactionType]bool)
	players := 0
	for i, fs := range file.Factions {
		ft, err := faction.ParseFactionType(fs.Type)
		if err != nil || ft == faction.None {
			fail("factions[%d]: unknown faction type %q", i, fs.Type)
			continue
		}
		if seen[ft] {
			fail("faction %s defined twice", ft)
			continue
		}
		seen[ft] = true

		def := FactionDef{
			Type: ft,
			Definition: faction.Definition{
				Name:         fs.Name,
				Color:        faction.Gray,
				BaseLocation: fs.BaseLocation,
				Influence:    fs.Influence,
				Resources:    fs.Resources,
			},
			Relations: make(map[faction.FactionType]float64, len(fs.Relations)),
			Player:    fs.Player,
			Ports:     fs.Ports,
			Fleet: FleetDef{
				Count:   fs.Ships.Count,
				Classes: fs.Ships.Classes,
				Center:  world.Vec3{X: fs.Ships.Center.X, Z: fs.Ships.Center.Z},
				Radius:  fs.Ships.Radius,
			},
		}
		if fs.Color != "" {
			c, err := faction.ParseColor(fs.Color)
			if err != nil {
				fail("faction %s: %v", ft, err)
			}
			def.Definition.Color = c
		}

		for name, v := range fs.Relations {
			other, err := faction.ParseFactionType(name)
			switch {
			case err != nil || other == faction.None:
				fail("faction %s: relation with unknown faction %q", ft, name)
			case other == ft:
				fail("faction %s: relation with itself", ft)
			default:
				def.Relations[other] = v
			}
		}

		for _, ps := range fs.Pirates {
			rank, err := fleet.ParseRank(ps.Rank)
			if err != nil {
				fail("faction %s pirate %q: %v", ft, ps.Name, err)
				continue
			}
			if ps.Name == "" {
				fail("faction %s: pirate without a name", ft)
				continue
			}
			def.Pirates = append(def.Pirates, PirateDef{Name: ps.Name, Rank: rank, Reputation: ps.Reputation, Wealth: ps.Wealth})
		}
		if fs.Player {
			players++
			if len(def.Pirates) == 0 {
				def.Pirates = append(def.Pirates, PirateDef{Name: "Player", Rank: fleet.Captain, Reputation: 50, Wealth: 1000})
			}
		}

		if def.Fleet.Count < 0 {
			fail("faction %s: negative ship count", ft)
		}
		if def.Fleet.Count > 0 && len(def.Fleet.Classes) == 0 && len(out.Classes) > 0 {
			def.Fleet.Classes = []string{out.Classes[0].Name}
		}
		for _, cn := range def.Fleet.Classes {
			if !classes[cn] {
				fail("faction %s: unknown ship class %q", ft, cn)
			}
		}

		out.Factions = append(out.Factions, def)
	}
	if players > 1 {
		fail("%d factions marked as player, at most one allowed", players)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}
