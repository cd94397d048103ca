package faction

import (
	"sort"
	"unicode/utf8"

	"github.com/talgya/corsair/internal/world"
)

// Name length bounds for faction display names.
const (
	MinNameLength = 3
	MaxNameLength = 32
)

// Influence and resource levels are percentages.
const (
	MinLevel = 0.0
	MaxLevel = 100.0
)

// DefaultInfluence applies to configured factions that do not state one.
const DefaultInfluence = 100.0

// Definition is the startup data for one faction.
type Definition struct {
	Name         string
	Color        Color
	BaseLocation string
	Influence    float64
	Resources    float64
}

// Faction is the canonical record for one faction. Relations, ports, and member
// sets are only mutated through Registry and Relations.
type Faction struct {
	Type         FactionType
	Name         string
	Color        Color
	BaseLocation string

	influence float64
	resources float64

	// Relation row toward every other faction. Missing entries read as neutral.
	relations map[FactionType]float64

	ports   map[string]*Port
	pirates map[string]struct{}
	ships   map[string]struct{} // Derived from ownership, see fleet.Graph
}

func newFaction(t FactionType, def Definition) *Faction {
	return &Faction{
		Type:         t,
		Name:         def.Name,
		Color:        def.Color,
		BaseLocation: def.BaseLocation,
		influence:    clampLevel(def.Influence),
		resources:    clampLevel(def.Resources),
		relations:    make(map[FactionType]float64),
		ports:        make(map[string]*Port),
		pirates:      make(map[string]struct{}),
		ships:        make(map[string]struct{}),
	}
}

// Influence returns the faction's influence (0–100).
func (f *Faction) Influence() float64 { return f.influence }

// Resources returns the faction's resource level (0–100).
func (f *Faction) Resources() float64 { return f.resources }

// RelationRow returns a copy of the explicitly set relations.
func (f *Faction) RelationRow() map[FactionType]float64 {
	row := make(map[FactionType]float64, len(f.relations))
	for k, v := range f.relations {
		row[k] = v
	}
	return row
}

// Ports returns the faction's ports sorted by name.
func (f *Faction) Ports() []*Port {
	out := make([]*Port, 0, len(f.ports))
	for _, p := range f.ports {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PirateIDs returns member pirate IDs in sorted order.
func (f *Faction) PirateIDs() []string { return sortedKeys(f.pirates) }

// ShipIDs returns the IDs of ships flying this faction's colors, sorted.
func (f *Faction) ShipIDs() []string { return sortedKeys(f.ships) }

// ShipCount returns the number of ships in the faction.
func (f *Faction) ShipCount() int { return len(f.ships) }

// HasShip reports whether the ship ID is in the faction's ship set.
func (f *Faction) HasShip(id string) bool {
	_, ok := f.ships[id]
	return ok
}

// Port is a harbor owned by at most one faction.
type Port struct {
	Name  string
	owner FactionType
}

// NewPort creates an unowned port.
func NewPort(name string) *Port {
	return &Port{Name: name, owner: None}
}

// Owner returns the owning faction, or None.
func (p *Port) Owner() FactionType { return p.owner }

func validName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n >= MinNameLength && n <= MaxNameLength
}

func clampLevel(v float64) float64 {
	return world.Clamp(v, MinLevel, MaxLevel)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
