package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
)

// SimStats is an aggregate view of the world at one tick.
type SimStats struct {
	Tick        uint64  `json:"tick"`
	Pirates     int     `json:"pirates"`
	ShipsAfloat int     `json:"ships_afloat"`
	Sinking     int     `json:"sinking"`
	Engagements int     `json:"engagements"`
	InFlight    int     `json:"in_flight"`
	TotalWealth float64 `json:"total_wealth"`
	Events      uint64  `json:"events"`
}

// Stats collects the current aggregate statistics.
func (s *Simulation) Stats() SimStats {
	st := SimStats{
		Tick:        s.LastTick,
		Engagements: len(s.Combat.Engagements()),
		InFlight:    s.Combat.InFlight(),
		Events:      s.Bus.Published(),
	}
	for _, p := range s.Graph.Pirates() {
		st.Pirates++
		st.TotalWealth += p.Wealth()
	}
	for _, sh := range s.Graph.Ships() {
		if sh.IsSinking() {
			st.Sinking++
		} else {
			st.ShipsAfloat++
		}
	}
	return st
}

// Report logs the periodic fleet report and one line per faction.
func (s *Simulation) Report(tick uint64, interval time.Duration) {
	st := s.Stats()
	slog.Info("fleet report",
		"tick", tick,
		"time", SimTime(tick, interval),
		"pirates", st.Pirates,
		"ships_afloat", st.ShipsAfloat,
		"sinking", st.Sinking,
		"engagements", st.Engagements,
		"in_flight", st.InFlight,
		"total_wealth", humanize.Commaf(st.TotalWealth),
		"events", humanize.Comma(int64(st.Events)),
	)

	for _, f := range s.Registry.All() {
		if f.ShipCount() == 0 && len(f.PirateIDs()) == 0 {
			continue
		}
		slog.Info("faction",
			"faction", f.Type,
			"name", f.Name,
			"influence", fmt.Sprintf("%.1f", f.Influence()),
			"resources", fmt.Sprintf("%.1f", f.Resources()),
			"ships", f.ShipCount(),
			"ports", len(f.Ports()),
		)
	}
}
