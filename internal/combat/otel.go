package combat

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/talgya/corsair/internal/combat"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type combatMetrics struct {
	shots       metric.Int64Counter
	hits        metric.Int64Counter
	engagements metric.Int64UpDownCounter
}

func newCombatMetrics() (combatMetrics, error) {
	m := meter()
	var (
		cm  combatMetrics
		err error
	)
	cm.shots, err = m.Int64Counter("combat.shots.fired", metric.WithDescription("Projectiles fired"))
	if err != nil {
		return cm, err
	}
	cm.hits, err = m.Int64Counter("combat.shots.hit", metric.WithDescription("Projectiles that struck their target"))
	if err != nil {
		return cm, err
	}
	cm.engagements, err = m.Int64UpDownCounter("combat.engagements.active", metric.WithDescription("Engagements currently tracked"))
	if err != nil {
		return cm, err
	}
	return cm, nil
}

func noopMetrics() combatMetrics {
	return combatMetrics{
		shots:       noop.Int64Counter{},
		hits:        noop.Int64Counter{},
		engagements: noop.Int64UpDownCounter{},
	}
}

func (m combatMetrics) shotFired(faction string) {
	m.shots.Add(context.Background(), 1, metric.WithAttributes(attribute.String("faction", faction)))
}

func (m combatMetrics) shotHit(faction string) {
	m.hits.Add(context.Background(), 1, metric.WithAttributes(attribute.String("faction", faction)))
}

func (m combatMetrics) engagementDelta(n int64) {
	m.engagements.Add(context.Background(), n)
}
