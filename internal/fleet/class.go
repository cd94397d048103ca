package fleet

import "fmt"

// Class is the stat block a ship is spawned from.
type Class struct {
	Name             string
	MaxHealth        float64
	SinkingThreshold float64 // Health at or below which the ship starts sinking
	AttackRange      float64
	FiringArc        float64 // Degrees, centered on the bow
	AttackDamage     float64
	ReloadTime       float64 // Seconds between shots
	MaxAmmo          int     // -1 for unlimited
	Speed            float64 // Units per second
}

// Unlimited marks a class with no ammunition limit.
const Unlimited = -1

// DefaultClass is a mid-sized sloop.
func DefaultClass() Class {
	return Class{
		Name:             "sloop",
		MaxHealth:        100,
		SinkingThreshold: 20,
		AttackRange:      50,
		FiringArc:        90,
		AttackDamage:     10,
		ReloadTime:       2,
		MaxAmmo:          Unlimited,
		Speed:            10,
	}
}

// Validate rejects stat blocks that would make a ship unusable.
func (c Class) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("ship class needs a name")
	case c.MaxHealth <= 0:
		return fmt.Errorf("class %s: max health must be positive", c.Name)
	case c.SinkingThreshold < 0 || c.SinkingThreshold >= c.MaxHealth:
		return fmt.Errorf("class %s: sinking threshold must be in [0, max health)", c.Name)
	case c.AttackRange <= 0:
		return fmt.Errorf("class %s: attack range must be positive", c.Name)
	case c.FiringArc <= 0 || c.FiringArc > 360:
		return fmt.Errorf("class %s: firing arc must be in (0, 360]", c.Name)
	case c.AttackDamage < 0 || c.ReloadTime < 0 || c.Speed < 0:
		return fmt.Errorf("class %s: damage, reload time and speed must be non-negative", c.Name)
	case c.MaxAmmo < Unlimited:
		return fmt.Errorf("class %s: max ammo must be -1 or more", c.Name)
	}
	return nil
}
