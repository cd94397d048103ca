package faction

import (
	"fmt"
	"log/slog"
	"sort"
)

// Registry stores one record per registered faction type, plus every known port.
type Registry struct {
	factions map[FactionType]*Faction
	ports    map[string]*Port
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factions: make(map[FactionType]*Faction),
		ports:    make(map[string]*Port),
	}
}

// Register adds a faction record. An empty display name falls back to the type's name.
func (r *Registry) Register(t FactionType, def Definition) (*Faction, error) {
	if t == None {
		return nil, fmt.Errorf("%w: cannot register the neutral sentinel", ErrInvalidArgument)
	}
	if _, exists := r.factions[t]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateFaction, t)
	}
	if def.Name == "" {
		def.Name = t.DisplayName()
	}
	if !validName(def.Name) {
		return nil, fmt.Errorf("%w: %q must be %d-%d characters", ErrInvalidName, def.Name, MinNameLength, MaxNameLength)
	}

	f := newFaction(t, def)
	r.factions[t] = f
	slog.Info("faction registered", "faction", t, "name", f.Name, "influence", f.influence)
	return f, nil
}

// Bootstrap registers every enumerated type that has no record yet, using defaults:
// gray, zero influence and resources, neutral toward everyone. Safe to call repeatedly.
func (r *Registry) Bootstrap() int {
	added := 0
	for _, t := range AllTypes() {
		if _, ok := r.factions[t]; ok {
			continue
		}
		if _, err := r.Register(t, Definition{Color: Gray}); err != nil {
			// Only reachable if DisplayName produces an invalid name.
			slog.Error("bootstrap faction", "faction", t, "error", err)
			continue
		}
		added++
	}
	return added
}

// Get returns the record for t.
func (r *Registry) Get(t FactionType) (*Faction, error) {
	f, ok := r.factions[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFaction, t)
	}
	return f, nil
}

// Has reports whether t is registered.
func (r *Registry) Has(t FactionType) bool {
	_, ok := r.factions[t]
	return ok
}

// All returns every registered faction ordered by type.
func (r *Registry) All() []*Faction {
	out := make([]*Faction, 0, len(r.factions))
	for _, f := range r.factions {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// AddPort registers a port owned by owner (None for unowned). Port names are unique.
func (r *Registry) AddPort(name string, owner FactionType) (*Port, error) {
	if _, exists := r.ports[name]; exists {
		return nil, fmt.Errorf("%w: port %q already exists", ErrInvalidArgument, name)
	}
	if owner != None && !r.Has(owner) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFaction, owner)
	}
	p := NewPort(name)
	r.ports[name] = p
	r.assignPort(p, owner)
	return p, nil
}

// Port looks up a port by name.
func (r *Registry) Port(name string) (*Port, bool) {
	p, ok := r.ports[name]
	return p, ok
}

// AllPorts returns every port sorted by name.
func (r *Registry) AllPorts() []*Port {
	out := make([]*Port, 0, len(r.ports))
	for _, p := range r.ports {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// assignPort moves p out of its current owner's port set and into owner's.
func (r *Registry) assignPort(p *Port, owner FactionType) {
	if old, ok := r.factions[p.owner]; ok {
		delete(old.ports, p.Name)
	}
	p.owner = owner
	if f, ok := r.factions[owner]; ok {
		f.ports[p.Name] = p
	}
}

// TrackShip adds a ship ID to the faction's ship set. Used by the ownership graph only.
func (r *Registry) TrackShip(t FactionType, shipID string) error {
	f, err := r.Get(t)
	if err != nil {
		return err
	}
	f.ships[shipID] = struct{}{}
	return nil
}

// UntrackShip removes a ship ID from the faction's ship set. Unknown factions are ignored.
func (r *Registry) UntrackShip(t FactionType, shipID string) {
	if f, ok := r.factions[t]; ok {
		delete(f.ships, shipID)
	}
}

// TrackPirate adds a pirate ID to the faction's member set.
func (r *Registry) TrackPirate(t FactionType, pirateID string) error {
	f, err := r.Get(t)
	if err != nil {
		return err
	}
	f.pirates[pirateID] = struct{}{}
	return nil
}

// UntrackPirate removes a pirate ID from the faction's member set.
func (r *Registry) UntrackPirate(t FactionType, pirateID string) {
	if f, ok := r.factions[t]; ok {
		delete(f.pirates, pirateID)
	}
}
