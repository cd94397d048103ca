package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/talgya/corsair/internal/combat"
	"github.com/talgya/corsair/internal/config"
	"github.com/talgya/corsair/internal/events"
	"github.com/talgya/corsair/internal/faction"
	"github.com/talgya/corsair/internal/fleet"
	"github.com/talgya/corsair/internal/patrol"
	"github.com/talgya/corsair/internal/world"
)

// maxEvents bounds the in-memory event log between autosaves.
const maxEvents = 1000

// defaultFleetRadius is the spawn spread for fleets that do not set one.
const defaultFleetRadius = 100.0

// Simulation holds the complete game state and wires systems together.
type Simulation struct {
	Bus       *events.Bus
	Registry  *faction.Registry
	Relations *faction.Relations
	Graph     *fleet.Graph
	Combat    *combat.Engine
	Helm      *patrol.Helm
	Patrol    *patrol.Patrol
	Commands  *patrol.Commands
	Spawner   *fleet.Spawner
	Sea       *world.Sea

	Events   []events.Event // Published since the last drain
	LastTick uint64         // Most recent tick processed

	mu              sync.Mutex
	sinkingDuration float64
	unsubscribe     func()
	restoring       bool // Restore replays state through the graph; its events are not history
}

// Do runs fn while holding the simulation lock. Code outside the engine
// goroutine must use it to read or change world state.
func (s *Simulation) Do(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	return s.LastTick
}

// NewSimulation builds an empty world from the runtime settings and the ship
// classes the definitions file declares.
func NewSimulation(cfg *config.Config, classes []fleet.Class) (*Simulation, error) {
	rs := cfg.FactionSettings()
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("relations settings: %w", err)
	}
	if len(classes) == 0 {
		classes = []fleet.Class{fleet.DefaultClass()}
	}

	bus := events.NewBus()
	reg := faction.NewRegistry()
	rel := faction.NewRelations(reg, rs, bus)
	graph := fleet.NewGraph(reg, bus)
	sea := world.NewSea(cfg.Sim.Seed, cfg.Placement())
	ce := combat.NewEngine(cfg.CombatSettings(), graph, rel, bus)
	helm := patrol.NewHelm(graph)
	ce.SetMovement(helm)

	sim := &Simulation{
		Bus:             bus,
		Registry:        reg,
		Relations:       rel,
		Graph:           graph,
		Combat:          ce,
		Helm:            helm,
		Patrol:          patrol.NewPatrol(cfg.PatrolSettings(), graph, ce, helm, sea),
		Commands:        patrol.NewCommands(graph, ce, rel, helm),
		Spawner:         fleet.NewSpawner(graph, sea, classes),
		Sea:             sea,
		sinkingDuration: cfg.Ships.SinkingDuration.Seconds(),
	}
	sim.unsubscribe = bus.SubscribeAll(sim.record)
	return sim, nil
}

// Close detaches the simulation from its bus.
func (s *Simulation) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *Simulation) record(e events.Event) {
	if s.restoring {
		return
	}
	s.Events = append(s.Events, e)
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
}

// DrainEvents returns and clears the event log.
func (s *Simulation) DrainEvents() []events.Event {
	out := s.Events
	s.Events = nil
	return out
}

// ── Setup ───────────────────────────────────────────────────────────

// Populate creates factions, ports, pirates and starting fleets from the
// definitions file, then fills in every undefined faction type with defaults.
func (s *Simulation) Populate(defs *config.Factions) error {
	for _, d := range defs.Factions {
		if _, err := s.Registry.Register(d.Type, d.Definition); err != nil {
			return fmt.Errorf("populate: %w", err)
		}
	}
	if n := s.Registry.Bootstrap(); n > 0 {
		slog.Info("undefined factions filled with defaults", "count", n)
	}

	for _, d := range defs.Factions {
		for other, v := range d.Relations {
			if err := s.Relations.SetRelation(d.Type, other, v); err != nil {
				return fmt.Errorf("populate relations of %s: %w", d.Type, err)
			}
		}
		for _, name := range d.Ports {
			if _, err := s.Registry.AddPort(name, d.Type); err != nil {
				return fmt.Errorf("populate ports of %s: %w", d.Type, err)
			}
		}
	}

	for _, d := range defs.Factions {
		owners, err := s.populatePirates(d)
		if err != nil {
			return err
		}
		if err := s.populateFleet(d, owners); err != nil {
			return err
		}
	}

	s.attachControllers()
	if p := s.Graph.Player(); p != nil {
		if ships := p.Ships(); len(ships) > 0 {
			s.Graph.Select(p, ships[0])
		}
	}
	return s.Graph.CheckInvariants()
}

func (s *Simulation) populatePirates(d config.FactionDef) ([]*fleet.Pirate, error) {
	owners := make([]*fleet.Pirate, 0, len(d.Pirates))
	for i, pd := range d.Pirates {
		var p *fleet.Pirate
		if d.Player && i == 0 {
			p = fleet.NewPlayer(pd.Name, d.Type)
			p.SetRank(pd.Rank)
		} else {
			p = fleet.NewPirate(pd.Name, d.Type, pd.Rank)
		}
		p.ModifyReputation(pd.Reputation - p.Reputation())
		p.ModifyWealth(pd.Wealth - p.Wealth())
		p.Home = d.Fleet.Center
		if err := s.Graph.RegisterPirate(p); err != nil {
			return nil, fmt.Errorf("populate pirates of %s: %w", d.Type, err)
		}
		owners = append(owners, p)
	}
	return owners, nil
}

// populateFleet deals the faction's starting ships round-robin to its pirates,
// or to the faction leader when it has none.
func (s *Simulation) populateFleet(d config.FactionDef, owners []*fleet.Pirate) error {
	if d.Fleet.Count == 0 {
		return nil
	}
	if len(owners) == 0 {
		leader, err := s.Graph.FactionLeader(d.Type)
		if err != nil {
			return fmt.Errorf("populate fleet of %s: %w", d.Type, err)
		}
		leader.Home = d.Fleet.Center
		owners = []*fleet.Pirate{leader}
	}
	radius := d.Fleet.Radius
	if radius <= 0 {
		radius = defaultFleetRadius
	}

	for i := 0; i < d.Fleet.Count; i++ {
		class := d.Fleet.Classes[i%len(d.Fleet.Classes)]
		owner := owners[i%len(owners)]
		pos := s.Sea.Scatter(d.Fleet.Center, radius)
		if _, err := s.Spawner.SpawnShip(class, pos, d.Type, owner); err != nil {
			return fmt.Errorf("populate fleet of %s: %w", d.Type, err)
		}
	}
	slog.Info("starting fleet spawned", "faction", d.Type, "ships", d.Fleet.Count, "captains", len(owners))
	return nil
}

// attachControllers gives the player the command queue and every other pirate the patrol AI.
func (s *Simulation) attachControllers() {
	for _, p := range s.Graph.Pirates() {
		if p.Controller != nil {
			continue
		}
		if p.IsPlayer() {
			p.Controller = s.Commands
		} else {
			p.Controller = s.Patrol
		}
	}
}

// ── Tick ────────────────────────────────────────────────────────────

// Step advances the world by dt seconds: controllers issue orders, ships move
// and reload, finished wrecks leave the game, then combat evaluates.
// It holds the simulation lock for the whole tick.
func (s *Simulation) Step(tick uint64, dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastTick = tick
	s.Bus.SetTick(tick)

	for _, p := range s.Graph.Pirates() {
		if p.Controller != nil {
			p.Controller.Tick(p, dt)
		}
	}

	s.Helm.Steer(dt)

	for _, sh := range s.Graph.AdvanceSinking(dt, s.sinkingDuration) {
		s.Combat.Forget(sh)
		s.Patrol.Forget(sh)
		s.Graph.DestroyShip(sh)
	}

	s.Combat.Update(dt)
}

// Verify checks the cross-structure invariants of the whole world.
func (s *Simulation) Verify() error {
	var errs []error
	if err := s.Graph.CheckInvariants(); err != nil {
		errs = append(errs, err)
	}
	for _, e := range s.Combat.Engagements() {
		if _, ok := s.Graph.Ship(e.Attacker.ID); !ok {
			errs = append(errs, fmt.Errorf("engagement attacker %s not in graph", e.Attacker.ID))
		}
		if _, ok := s.Graph.Ship(e.Target.ID); !ok {
			errs = append(errs, fmt.Errorf("engagement target %s not in graph", e.Target.ID))
		}
	}
	return errors.Join(errs...)
}
