package combat

import "github.com/talgya/corsair/internal/fleet"

// State is where an attacker stands against its target.
type State uint8

const (
	NoTarget State = iota
	Pursuing       // Target tracked but beyond attack range
	InRange        // Within attack range, not firing this evaluation
	Firing         // Fired on the last evaluation
)

func (s State) String() string {
	switch s {
	case Pursuing:
		return "pursuing"
	case InRange:
		return "in_range"
	case Firing:
		return "firing"
	default:
		return "no_target"
	}
}

// ParseState resolves a state name, returning NoTarget for anything unknown.
func ParseState(name string) State {
	for _, s := range []State{Pursuing, InRange, Firing} {
		if s.String() == name {
			return s
		}
	}
	return NoTarget
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Disengage reasons reported in EngagementEnded.
const (
	ReasonCleared    = "cleared"
	ReasonOutOfRange = "out_of_range"
	ReasonSinking    = "sinking"
	ReasonGone       = "gone"
	ReasonRetargeted = "retargeted"
)

// Engagement is one attacker's hold on one target.
type Engagement struct {
	Attacker *fleet.Ship
	Target   *fleet.Ship
	State    State
	Shots    int

	// Seconds until the next evaluation. Zero means evaluate on the next Update.
	wait float64
}

// EngagementInfo is the payload of EngagementStarted and EngagementEnded.
type EngagementInfo struct {
	Attacker string `json:"attacker"`
	Target   string `json:"target"`
	Reason   string `json:"reason,omitempty"`
}

// Shot is the payload of ShotFired.
type Shot struct {
	Projectile uint64  `json:"projectile"`
	Attacker   string  `json:"attacker"`
	Target     string  `json:"target"`
	Distance   float64 `json:"distance"`
	Angle      float64 `json:"angle"`
	Damage     float64 `json:"damage"`
}

// Record is the persisted form of an engagement.
type Record struct {
	Attacker string `db:"attacker_id" json:"attacker"`
	Target   string `db:"target_id" json:"target"`
	State    string `db:"state" json:"state"`
	Shots    int    `db:"shots" json:"shots"`
}
