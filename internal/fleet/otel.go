package fleet

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/talgya/corsair/internal/fleet"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type fleetMetrics struct {
	spawned      metric.Int64Counter
	sunk         metric.Int64Counter
	ownerChanges metric.Int64Counter
}

// newFleetMetrics registers counters on the global meter (no-op if not configured).
func newFleetMetrics() fleetMetrics {
	m := meter()
	fm := fleetMetrics{
		spawned:      noop.Int64Counter{},
		sunk:         noop.Int64Counter{},
		ownerChanges: noop.Int64Counter{},
	}
	if c, err := m.Int64Counter("fleet.ships.spawned", metric.WithDescription("Ships initialized into the fleet")); err == nil {
		fm.spawned = c
	} else {
		slog.Warn("creating spawned counter", "error", err)
	}
	if c, err := m.Int64Counter("fleet.ships.sunk", metric.WithDescription("Ships that started sinking")); err == nil {
		fm.sunk = c
	} else {
		slog.Warn("creating sunk counter", "error", err)
	}
	if c, err := m.Int64Counter("fleet.owner.changes", metric.WithDescription("Ship ownership transfers")); err == nil {
		fm.ownerChanges = c
	} else {
		slog.Warn("creating owner change counter", "error", err)
	}
	return fm
}

func factionAttr(ft interface{ String() string }) metric.AddOption {
	return metric.WithAttributes(attribute.String("faction", ft.String()))
}

func (m fleetMetrics) shipSpawned(s *Ship) {
	m.spawned.Add(context.Background(), 1, factionAttr(s.faction))
}

func (m fleetMetrics) shipSunk(s *Ship) {
	m.sunk.Add(context.Background(), 1, factionAttr(s.faction))
}

func (m fleetMetrics) ownerChanged(s *Ship) {
	m.ownerChanges.Add(context.Background(), 1, factionAttr(s.faction))
}
