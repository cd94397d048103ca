package combat

import "github.com/talgya/corsair/internal/fleet"

// Projectile is a round in flight. Impact happens when eta runs out, unless
// the lifetime runs out first.
type Projectile struct {
	ID       uint64
	Attacker string
	Faction  string
	Target   *fleet.Ship
	Damage   float64

	eta      float64
	lifetime float64
}

// ETA returns seconds until impact.
func (p *Projectile) ETA() float64 { return p.eta }

// WillHit reports whether the round reaches its target before expiring.
func (p *Projectile) WillHit() bool { return p.eta <= p.lifetime }

// advance moves the projectile forward by dt. It reports whether the
// projectile is finished and whether it struck.
func (p *Projectile) advance(dt float64) (done, impact bool) {
	p.eta -= dt
	p.lifetime -= dt
	if p.eta <= 0 && p.lifetime >= 0 {
		return true, true
	}
	if p.lifetime <= 0 {
		return true, false
	}
	return false, false
}
