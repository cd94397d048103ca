package fleet

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/talgya/corsair/internal/events"
	"github.com/talgya/corsair/internal/faction"
)

// PirateInfo is the payload of PirateRegistered and PirateUnregistered.
type PirateInfo struct {
	Pirate  string              `json:"pirate"`
	Name    string              `json:"name"`
	Faction faction.FactionType `json:"faction"`
	Rank    Rank                `json:"rank"`
}

// Defection is the payload of PirateDefected.
type Defection struct {
	Pirate string              `json:"pirate"`
	From   faction.FactionType `json:"from"`
	To     faction.FactionType `json:"to"`
	Ships  int                 `json:"ships"`
}

// ShipInfo is the payload of ShipRegistered and ShipUnregistered.
type ShipInfo struct {
	Ship    string              `json:"ship"`
	Name    string              `json:"name"`
	Class   string              `json:"class"`
	Faction faction.FactionType `json:"faction"`
	Owner   string              `json:"owner"`
}

// OwnerChange is the payload of OwnerChanged. An empty To means the ship was released.
type OwnerChange struct {
	Ship string `json:"ship"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Damage is the payload of ShipDamaged.
type Damage struct {
	Ship   string  `json:"ship"`
	Amount float64 `json:"amount"`
	Health float64 `json:"health"`
}

// Sinking is the payload of ShipSinking.
type Sinking struct {
	Ship    string              `json:"ship"`
	Name    string              `json:"name"`
	Faction faction.FactionType `json:"faction"`
}

// Graph is the single writer of ship ownership. It keeps every owned ship in
// exactly one pirate's collection with a matching faction, and mirrors the
// faction ship sets in the registry.
type Graph struct {
	reg     *faction.Registry
	bus     *events.Bus
	pirates map[string]*Pirate
	ships   map[string]*Ship
	metrics fleetMetrics

	restoring bool // Set by RestoreShip; restored ships are not counted as spawned
}

// NewGraph creates an empty graph over reg. bus may be nil.
func NewGraph(reg *faction.Registry, bus *events.Bus) *Graph {
	if reg == nil {
		panic("fleet: NewGraph requires a registry")
	}
	return &Graph{
		reg:     reg,
		bus:     bus,
		pirates: make(map[string]*Pirate),
		ships:   make(map[string]*Ship),
		metrics: newFleetMetrics(),
	}
}

// ── Pirates ─────────────────────────────────────────────────────────

// RegisterPirate adds p to the graph and to its faction's member set.
func (g *Graph) RegisterPirate(p *Pirate) error {
	if p == nil {
		panic("fleet: RegisterPirate requires a pirate")
	}
	if _, exists := g.pirates[p.ID]; exists {
		return fmt.Errorf("%w: pirate %s already registered", faction.ErrInvalidArgument, p.ID)
	}
	if err := g.reg.TrackPirate(p.faction, p.ID); err != nil {
		return fmt.Errorf("register pirate %s: %w", p.Name, err)
	}
	g.pirates[p.ID] = p
	slog.Info("pirate registered", "pirate", p.Name, "faction", p.faction, "rank", p.rank,
		"wealth", humanize.Commaf(p.wealth), "player", p.player)
	g.bus.Publish(events.PirateRegistered, g.pirateInfo(p))
	return nil
}

// RemovePirate takes p out of the game. Its fleet passes to heir when heir is a
// registered pirate of the same faction, otherwise to the faction leader.
func (g *Graph) RemovePirate(p, heir *Pirate) error {
	if p == nil {
		panic("fleet: RemovePirate requires a pirate")
	}
	if g.pirates[p.ID] != p {
		return fmt.Errorf("%w: %s", ErrUnknownPirate, p.ID)
	}

	if len(p.ships) > 0 {
		if heir == nil || heir == p || heir.faction != p.faction || g.pirates[heir.ID] != heir {
			leader, err := g.leaderExcluding(p.faction, p)
			if err != nil {
				return fmt.Errorf("remove pirate %s: %w", p.Name, err)
			}
			heir = leader
		}
		for _, s := range p.Ships() {
			g.transfer(s, heir)
		}
		slog.Info("fleet inherited", "from", p.Name, "heir", heir.Name, "ships", heir.ShipCount())
	}

	g.reg.UntrackPirate(p.faction, p.ID)
	delete(g.pirates, p.ID)
	slog.Info("pirate removed", "pirate", p.Name, "faction", p.faction)
	g.bus.Publish(events.PirateUnregistered, g.pirateInfo(p))
	return nil
}

// FactionLeader returns the faction's leader, creating and registering one
// named "<Faction> Leader" if the faction has none.
func (g *Graph) FactionLeader(ft faction.FactionType) (*Pirate, error) {
	return g.leaderExcluding(ft, nil)
}

func (g *Graph) leaderExcluding(ft faction.FactionType, skip *Pirate) (*Pirate, error) {
	var best *Pirate
	for _, p := range g.Pirates() {
		if p == skip || p.faction != ft || p.rank != FactionLeader {
			continue
		}
		if best == nil || p.reputation > best.reputation {
			best = p
		}
	}
	if best != nil {
		return best, nil
	}

	f, err := g.reg.Get(ft)
	if err != nil {
		return nil, err
	}
	leader := NewPirate(f.Name+" Leader", ft, FactionLeader)
	if err := g.RegisterPirate(leader); err != nil {
		return nil, err
	}
	slog.Info("faction leader appointed", "faction", ft, "pirate", leader.Name)
	return leader, nil
}

// Defect moves p and its whole fleet to another faction in one step.
func (g *Graph) Defect(p *Pirate, to faction.FactionType) error {
	if p == nil {
		panic("fleet: Defect requires a pirate")
	}
	if g.pirates[p.ID] != p {
		return fmt.Errorf("%w: %s", ErrUnknownPirate, p.ID)
	}
	if p.faction == to {
		return nil
	}
	if to == faction.None || !g.reg.Has(to) {
		return fmt.Errorf("defect %s: %w: %s", p.Name, faction.ErrUnknownFaction, to)
	}

	from := p.faction
	g.reg.UntrackPirate(from, p.ID)
	// Registry.Has(to) was checked above, tracking cannot fail.
	_ = g.reg.TrackPirate(to, p.ID)
	p.faction = to
	for _, s := range p.ships {
		g.reg.UntrackShip(from, s.ID)
		_ = g.reg.TrackShip(to, s.ID)
		s.faction = to
	}
	if p.rank == FactionLeader {
		p.rank = Captain
	}

	slog.Info("pirate defected", "pirate", p.Name, "from", from, "to", to, "ships", len(p.ships))
	g.bus.Publish(events.PirateDefected, Defection{Pirate: p.ID, From: from, To: to, Ships: len(p.ships)})
	return nil
}

// ── Ships ───────────────────────────────────────────────────────────

// InitializeShip completes two-phase construction: it names the ship, sets its
// faction and hands it to owner. Nothing is mutated on failure.
func (g *Graph) InitializeShip(s *Ship, name string, ft faction.FactionType, owner *Pirate) error {
	if s == nil {
		panic("fleet: InitializeShip requires a ship")
	}
	if owner == nil {
		slog.Warn("ship initialization without owner", "ship", name)
		return ErrNoOwner
	}
	if s.initialized {
		slog.Warn("ship initialized twice", "ship", s.Name)
		return fmt.Errorf("%w: %s", ErrAlreadyInitialized, s.Name)
	}
	if g.pirates[owner.ID] != owner {
		return fmt.Errorf("%w: %s", ErrUnknownPirate, owner.Name)
	}
	if owner.faction != ft {
		slog.Warn("ship owner faction mismatch", "ship", name, "faction", ft, "owner", owner.Name, "owner_faction", owner.faction)
		return fmt.Errorf("%w: ship %s is %s, owner %s is %s", ErrFactionMismatch, name, ft, owner.Name, owner.faction)
	}
	if err := g.reg.TrackShip(ft, s.ID); err != nil {
		return fmt.Errorf("initialize ship %s: %w", name, err)
	}

	s.Name = name
	s.faction = ft
	s.initialized = true
	g.ships[s.ID] = s
	g.transfer(s, owner)

	if !g.restoring {
		g.metrics.shipSpawned(s)
	}
	slog.Debug("ship initialized", "ship", s.Name, "class", s.Class.Name, "faction", ft, "owner", owner.Name)
	g.bus.Publish(events.ShipRegistered, g.shipInfo(s))
	return nil
}

// SetOwner hands s to owner. It returns false without mutating anything when
// the factions differ, the ship is sinking or unknown, or owner is not registered.
func (g *Graph) SetOwner(s *Ship, owner *Pirate) bool {
	if s == nil || owner == nil {
		slog.Warn("set owner with nil argument")
		return false
	}
	if g.ships[s.ID] != s {
		slog.Debug("set owner on unknown ship", "ship", s.ID)
		return false
	}
	if s.sinking {
		slog.Debug("set owner on sinking ship", "ship", s.Name)
		return false
	}
	if g.pirates[owner.ID] != owner {
		slog.Warn("set owner to unregistered pirate", "ship", s.Name, "owner", owner.Name)
		return false
	}
	if owner.faction != s.faction {
		slog.Warn("owner faction mismatch", "ship", s.Name, "faction", s.faction, "owner", owner.Name, "owner_faction", owner.faction)
		return false
	}
	if s.owner == owner {
		return true
	}
	g.transfer(s, owner)
	return true
}

// transfer moves s into owner's collection. Callers have already checked factions.
func (g *Graph) transfer(s *Ship, owner *Pirate) {
	from := ""
	if prev := s.owner; prev != nil {
		delete(prev.ships, s.ID)
		from = prev.ID
	}
	s.selected = false
	s.owner = owner
	owner.ships[s.ID] = s

	if !g.restoring {
		g.metrics.ownerChanged(s)
	}
	g.bus.Publish(events.OwnerChanged, OwnerChange{Ship: s.ID, From: from, To: owner.ID})
}

// AddShip puts s in owner's collection. Adding an already-owned ship is a no-op.
func (g *Graph) AddShip(owner *Pirate, s *Ship) bool {
	if owner != nil && owner.Owns(s) {
		return true
	}
	return g.SetOwner(s, owner)
}

// RemoveShip releases s from owner. Removing a ship owner does not hold is a no-op.
func (g *Graph) RemoveShip(owner *Pirate, s *Ship) {
	if owner == nil || s == nil || s.owner != owner {
		return
	}
	g.ClearOwner(s)
}

// ClearOwner removes s from its owner's collection and drops the back-reference.
func (g *Graph) ClearOwner(s *Ship) {
	if s == nil || s.owner == nil {
		return
	}
	prev := s.owner
	delete(prev.ships, s.ID)
	s.owner = nil
	s.selected = false
	g.bus.Publish(events.OwnerChanged, OwnerChange{Ship: s.ID, From: prev.ID})
}

// Select makes s the owner's only selected ship. Sinking ships and ships the
// owner does not hold cannot be selected.
func (g *Graph) Select(owner *Pirate, s *Ship) bool {
	if owner == nil || s == nil || !owner.Owns(s) {
		return false
	}
	if s.sinking {
		slog.Debug("select sinking ship ignored", "ship", s.Name)
		return false
	}
	for _, other := range owner.ships {
		other.selected = false
	}
	s.selected = true
	return true
}

// Deselect clears the selection flag on s.
func (g *Graph) Deselect(s *Ship) {
	if s != nil {
		s.selected = false
	}
}

// ApplyDamage removes hull points. It reports true when this hit started the
// ship sinking. Sinking ships ignore further damage.
func (g *Graph) ApplyDamage(s *Ship, amount float64) bool {
	if s == nil || !s.initialized || s.sinking || amount <= 0 {
		return false
	}
	s.health = max(0, s.health-amount)
	g.bus.Publish(events.ShipDamaged, Damage{Ship: s.ID, Amount: amount, Health: s.health})

	if s.health > s.Class.SinkingThreshold {
		return false
	}
	s.sinking = true
	s.selected = false
	g.metrics.shipSunk(s)
	slog.Info("ship sinking", "ship", s.Name, "faction", s.faction, "owner", s.OwnerID())
	g.bus.Publish(events.ShipSinking, Sinking{Ship: s.ID, Name: s.Name, Faction: s.faction})
	return true
}

// Heal restores hull points up to the class maximum. Sinking ships cannot be healed.
func (g *Graph) Heal(s *Ship, amount float64) bool {
	if s == nil || s.sinking || amount <= 0 {
		return false
	}
	s.health = min(s.Class.MaxHealth, s.health+amount)
	return true
}

// AdvanceSinking moves every sinking ship's timer forward by dt and returns the
// ships whose timer reached duration, sorted by ID. The caller finalizes them.
func (g *Graph) AdvanceSinking(dt, duration float64) []*Ship {
	var done []*Ship
	for _, s := range g.ships {
		if !s.sinking {
			continue
		}
		s.sinkElapsed += dt
		if s.sinkElapsed >= duration {
			done = append(done, s)
		}
	}
	sort.Slice(done, func(i, j int) bool { return done[i].ID < done[j].ID })
	return done
}

// DestroyShip removes s from its owner, its faction, and the graph. Safe to call twice.
func (g *Graph) DestroyShip(s *Ship) {
	if s == nil || g.ships[s.ID] != s {
		return
	}
	info := g.shipInfo(s)
	g.ClearOwner(s)
	g.reg.UntrackShip(s.faction, s.ID)
	delete(g.ships, s.ID)
	slog.Info("ship destroyed", "ship", s.Name, "faction", s.faction)
	g.bus.Publish(events.ShipUnregistered, info)
}

// ── Lookups ─────────────────────────────────────────────────────────

// Ship returns the ship with the given ID.
func (g *Graph) Ship(id string) (*Ship, bool) {
	s, ok := g.ships[id]
	return s, ok
}

// Pirate returns the pirate with the given ID.
func (g *Graph) Pirate(id string) (*Pirate, bool) {
	p, ok := g.pirates[id]
	return p, ok
}

// Ships returns every ship in the graph sorted by ID.
func (g *Graph) Ships() []*Ship {
	out := make([]*Ship, 0, len(g.ships))
	for _, s := range g.ships {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LiveShips returns ships that are afloat and not sinking, sorted by ID.
func (g *Graph) LiveShips() []*Ship {
	var out []*Ship
	for _, s := range g.Ships() {
		if s.Alive() {
			out = append(out, s)
		}
	}
	return out
}

// ShipsOf returns the ships of one faction, sorted by ID.
func (g *Graph) ShipsOf(ft faction.FactionType) []*Ship {
	var out []*Ship
	for _, s := range g.Ships() {
		if s.faction == ft {
			out = append(out, s)
		}
	}
	return out
}

// Pirates returns every registered pirate sorted by ID.
func (g *Graph) Pirates() []*Pirate {
	out := make([]*Pirate, 0, len(g.pirates))
	for _, p := range g.pirates {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Player returns the human-controlled pirate, if one is registered.
func (g *Graph) Player() *Pirate {
	for _, p := range g.Pirates() {
		if p.player {
			return p
		}
	}
	return nil
}

// CheckInvariants verifies the ownership chain: every owned ship sits in exactly
// its owner's collection with the owner's faction, every faction ship set
// mirrors the graph, and sinking ships are never selected.
func (g *Graph) CheckInvariants() error {
	var errs []error
	holders := make(map[string]string)

	for _, p := range g.Pirates() {
		selected := 0
		for id, s := range p.ships {
			if prev, dup := holders[id]; dup {
				errs = append(errs, fmt.Errorf("ship %s held by %s and %s", id, prev, p.ID))
			}
			holders[id] = p.ID
			if s.owner != p {
				errs = append(errs, fmt.Errorf("ship %s in %s's fleet points at owner %s", id, p.ID, s.OwnerID()))
			}
			if s.faction != p.faction {
				errs = append(errs, fmt.Errorf("ship %s is %s but owner %s is %s", id, s.faction, p.ID, p.faction))
			}
			if g.ships[id] != s {
				errs = append(errs, fmt.Errorf("ship %s owned by %s is not in the graph", id, p.ID))
			}
			if s.selected {
				selected++
			}
		}
		if selected > 1 {
			errs = append(errs, fmt.Errorf("pirate %s has %d ships selected", p.ID, selected))
		}
	}

	for id, s := range g.ships {
		if s.owner != nil && !s.owner.Owns(s) {
			errs = append(errs, fmt.Errorf("ship %s claims owner %s which does not hold it", id, s.owner.ID))
		}
		if s.owner != nil && g.pirates[s.owner.ID] != s.owner {
			errs = append(errs, fmt.Errorf("ship %s owned by unregistered pirate %s", id, s.owner.ID))
		}
		if s.sinking && s.selected {
			errs = append(errs, fmt.Errorf("sinking ship %s is selected", id))
		}
		if f, err := g.reg.Get(s.faction); err != nil || !f.HasShip(id) {
			errs = append(errs, fmt.Errorf("ship %s missing from %s ship set", id, s.faction))
		}
	}

	for _, f := range g.reg.All() {
		for _, id := range f.ShipIDs() {
			if s, ok := g.ships[id]; !ok || s.faction != f.Type {
				errs = append(errs, fmt.Errorf("faction %s lists ship %s it does not own", f.Type, id))
			}
		}
	}
	return errors.Join(errs...)
}

func (g *Graph) pirateInfo(p *Pirate) PirateInfo {
	return PirateInfo{Pirate: p.ID, Name: p.Name, Faction: p.faction, Rank: p.rank}
}

func (g *Graph) shipInfo(s *Ship) ShipInfo {
	return ShipInfo{Ship: s.ID, Name: s.Name, Class: s.Class.Name, Faction: s.faction, Owner: s.OwnerID()}
}
