package fleet

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/talgya/corsair/internal/faction"
	"github.com/talgya/corsair/internal/world"
)

// Spawner builds ships from named classes and places them clear of the rest of the fleet.
type Spawner struct {
	graph   *Graph
	sea     *world.Sea
	classes map[string]Class
	counter map[faction.FactionType]int
}

// NewSpawner creates a spawner for the given class catalogue.
func NewSpawner(g *Graph, sea *world.Sea, classes []Class) *Spawner {
	if g == nil || sea == nil {
		panic("fleet: NewSpawner requires a graph and a sea")
	}
	sp := &Spawner{
		graph:   g,
		sea:     sea,
		classes: make(map[string]Class, len(classes)),
		counter: make(map[faction.FactionType]int),
	}
	for _, c := range classes {
		sp.classes[c.Name] = c
	}
	return sp
}

// Class looks up a ship class by name.
func (sp *Spawner) Class(name string) (Class, bool) {
	c, ok := sp.classes[name]
	return c, ok
}

// ClassNames returns the catalogue sorted by name.
func (sp *Spawner) ClassNames() []string {
	names := make([]string, 0, len(sp.classes))
	for n := range sp.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SpawnShip creates a ship of the named class near pos and hands it to owner.
// pos is used as-is when it keeps the minimum spacing from live ships.
func (sp *Spawner) SpawnShip(className string, pos world.Vec3, ft faction.FactionType, owner *Pirate) (*Ship, error) {
	class, ok := sp.classes[className]
	if !ok {
		return nil, fmt.Errorf("%w: ship class %q", faction.ErrInvalidArgument, className)
	}
	if owner == nil {
		return nil, ErrNoOwner
	}

	s := NewShip(class)
	s.Position = sp.place(pos, sp.sea.Config().MinDistance*2)
	s.Forward = world.HeadingVector(float64(len(sp.graph.ships)*47 % 360))

	sp.counter[ft]++
	name := fmt.Sprintf("%s %s %d", ft.DisplayName(), class.Name, sp.counter[ft])
	if err := sp.graph.InitializeShip(s, name, ft, owner); err != nil {
		return nil, err
	}
	return s, nil
}

// SpawnFleet spawns one ship per class name, scattered within radius of center.
func (sp *Spawner) SpawnFleet(owner *Pirate, classNames []string, center world.Vec3, radius float64) ([]*Ship, error) {
	if owner == nil {
		return nil, ErrNoOwner
	}
	ships := make([]*Ship, 0, len(classNames))
	for _, cn := range classNames {
		s, err := sp.SpawnShip(cn, sp.place(center, radius), owner.faction, owner)
		if err != nil {
			return ships, fmt.Errorf("spawn fleet for %s: %w", owner.Name, err)
		}
		ships = append(ships, s)
	}
	slog.Info("fleet spawned", "owner", owner.Name, "faction", owner.faction, "ships", len(ships))
	return ships, nil
}

// place returns pos if it is clear, otherwise a clear point within radius of it.
// When no clear point turns up, it falls back to a point within half the radius.
func (sp *Spawner) place(pos world.Vec3, radius float64) world.Vec3 {
	occupied := sp.occupied()
	if sp.sea.IsSafe(pos, occupied) {
		return pos
	}
	if found, ok := sp.sea.SafePosition(pos, radius, occupied); ok {
		return found
	}
	fallback := sp.sea.Scatter(pos, radius*0.5)
	slog.Warn("no safe spawn position, using fallback",
		"attempts", sp.sea.Config().MaxAttempts, "x", fallback.X, "z", fallback.Z)
	return fallback
}

func (sp *Spawner) occupied() []world.Vec3 {
	live := sp.graph.LiveShips()
	out := make([]world.Vec3, 0, len(live))
	for _, s := range live {
		out = append(out, s.Position)
	}
	return out
}
