// Package fleet owns ships and the pirates that command them, and keeps the
// ship -> owner -> faction chain consistent.
package fleet

import (
	"github.com/google/uuid"

	"github.com/talgya/corsair/internal/faction"
	"github.com/talgya/corsair/internal/world"
)

// Ship is a single vessel. Identity and stats are fixed at spawn; ownership,
// health and sinking state change only through Graph.
type Ship struct {
	ID    string
	Name  string
	Class Class

	// Kinematic state written by the movement layer and read by combat.
	Position world.Vec3
	Forward  world.Vec3

	faction     faction.FactionType
	owner       *Pirate
	initialized bool

	health      float64
	sinking     bool
	sinkElapsed float64
	selected    bool

	ammo       int
	reloadLeft float64
}

// NewShipID returns a fresh ship identifier.
func NewShipID() string {
	return uuid.NewString()
}

// NewShip creates an unowned, uninitialized ship at full health facing +Z.
// It joins the game only once Graph.InitializeShip assigns its owner.
func NewShip(class Class) *Ship {
	return &Ship{
		ID:      NewShipID(),
		Class:   class,
		Forward: world.Forward,
		faction: faction.None,
		health:  class.MaxHealth,
		ammo:    class.MaxAmmo,
	}
}

// Faction returns the colors the ship sails under.
func (s *Ship) Faction() faction.FactionType { return s.faction }

// Owner returns the commanding pirate, nil only before initialization or after release.
func (s *Ship) Owner() *Pirate { return s.owner }

// OwnerID returns the owner's ID, or "" when unowned.
func (s *Ship) OwnerID() string {
	if s.owner == nil {
		return ""
	}
	return s.owner.ID
}

// Initialized reports whether the ship completed two-phase initialization.
func (s *Ship) Initialized() bool { return s.initialized }

// Health returns the current hull points.
func (s *Ship) Health() float64 { return s.health }

// HealthFraction returns health relative to the class maximum.
func (s *Ship) HealthFraction() float64 {
	if s.Class.MaxHealth <= 0 {
		return 0
	}
	return s.health / s.Class.MaxHealth
}

// IsSinking reports whether the ship has entered its terminal state.
func (s *Ship) IsSinking() bool { return s.sinking }

// SinkElapsed returns seconds spent sinking.
func (s *Ship) SinkElapsed() float64 { return s.sinkElapsed }

// IsSelected reports whether the owner currently has this ship selected.
func (s *Ship) IsSelected() bool { return s.selected }

// Alive reports whether the ship is initialized and afloat.
func (s *Ship) Alive() bool { return s.initialized && !s.sinking }

// Ammo returns remaining shots, or Unlimited.
func (s *Ship) Ammo() int { return s.ammo }

// ReloadRemaining returns seconds until the guns are ready.
func (s *Ship) ReloadRemaining() float64 { return s.reloadLeft }

// CanFire reports whether the ship may fire this tick.
func (s *Ship) CanFire() bool {
	if s.sinking || s.reloadLeft > 0 {
		return false
	}
	return s.ammo == Unlimited || s.ammo > 0
}

// ConsumeShot spends one round and starts the reload timer. It reports false
// when the ship could not fire.
func (s *Ship) ConsumeShot() bool {
	if !s.CanFire() {
		return false
	}
	if s.ammo != Unlimited {
		s.ammo--
	}
	s.reloadLeft = s.Class.ReloadTime
	return true
}

// AdvanceReload counts the reload timer down by dt seconds.
func (s *Ship) AdvanceReload(dt float64) {
	if s.reloadLeft > 0 {
		s.reloadLeft = max(0, s.reloadLeft-dt)
	}
}

// Resupply refills ammunition to the class maximum.
func (s *Ship) Resupply() {
	s.ammo = s.Class.MaxAmmo
}
