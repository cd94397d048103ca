package fleet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/talgya/corsair/internal/faction"
	"github.com/talgya/corsair/internal/world"
)

// Rank orders pirates within a faction.
type Rank uint8

const (
	Regular Rank = iota
	Captain
	FactionLeader
)

var rankNames = [...]string{
	Regular:       "regular",
	Captain:       "captain",
	FactionLeader: "faction_leader",
}

func (r Rank) String() string {
	if int(r) < len(rankNames) {
		return rankNames[r]
	}
	return fmt.Sprintf("rank(%d)", uint8(r))
}

// ParseRank accepts snake_case or CamelCase rank names.
func ParseRank(s string) (Rank, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	for i, name := range rankNames {
		if strings.ReplaceAll(name, "_", "") == norm {
			return Rank(i), nil
		}
	}
	return Regular, fmt.Errorf("unknown rank %q", s)
}

// MarshalText encodes the rank by name.
func (r Rank) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Controller decides what a pirate's fleet does each tick. The player and
// AI captains differ only by the controller attached to them.
type Controller interface {
	Tick(p *Pirate, dt float64)
}

// Pirate commands ships on behalf of exactly one faction.
type Pirate struct {
	ID   string
	Name string
	Home world.Vec3 // Patrol anchor for AI captains

	Controller Controller

	faction    faction.FactionType
	rank       Rank
	reputation float64
	wealth     float64
	player     bool

	ships map[string]*Ship
}

// NewPirateID returns a fresh pirate identifier.
func NewPirateID() string {
	return uuid.NewString()
}

// NewPirate creates an AI-controlled pirate. It must be registered with a Graph before owning ships.
func NewPirate(name string, ft faction.FactionType, rank Rank) *Pirate {
	return &Pirate{
		ID:         NewPirateID(),
		Name:       name,
		faction:    ft,
		rank:       rank,
		reputation: 50,
		wealth:     1000,
		ships:      make(map[string]*Ship),
	}
}

// NewPlayer creates the human-controlled pirate.
func NewPlayer(name string, ft faction.FactionType) *Pirate {
	p := NewPirate(name, ft, Captain)
	p.player = true
	return p
}

// Faction returns the pirate's faction.
func (p *Pirate) Faction() faction.FactionType { return p.faction }

// Rank returns the pirate's rank.
func (p *Pirate) Rank() Rank { return p.rank }

// SetRank promotes or demotes the pirate.
func (p *Pirate) SetRank(r Rank) { p.rank = r }

// Reputation returns the pirate's standing, 0-100.
func (p *Pirate) Reputation() float64 { return p.reputation }

// ModifyReputation shifts reputation by delta, clamped to [0, 100].
func (p *Pirate) ModifyReputation(delta float64) {
	p.reputation = world.Clamp(p.reputation+delta, 0, 100)
}

// Wealth returns the pirate's gold.
func (p *Pirate) Wealth() float64 { return p.wealth }

// ModifyWealth shifts wealth by delta, never below zero.
func (p *Pirate) ModifyWealth(delta float64) {
	p.wealth = max(0, p.wealth+delta)
}

// IsPlayer reports whether the pirate is under direct user control.
func (p *Pirate) IsPlayer() bool { return p.player }

// Ships returns owned ships sorted by ID.
func (p *Pirate) Ships() []*Ship {
	out := make([]*Ship, 0, len(p.ships))
	for _, s := range p.ships {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ShipCount returns the number of owned ships.
func (p *Pirate) ShipCount() int { return len(p.ships) }

// Owns reports whether s is in the pirate's collection.
func (p *Pirate) Owns(s *Ship) bool {
	if s == nil {
		return false
	}
	owned, ok := p.ships[s.ID]
	return ok && owned == s
}

// Selected returns the currently selected ship, or nil.
func (p *Pirate) Selected() *Ship {
	for _, s := range p.ships {
		if s.selected {
			return s
		}
	}
	return nil
}
