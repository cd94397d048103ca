// Package engine provides the tick-based simulation loop and the Simulation
// that wires factions, fleets, combat and controllers together.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"
)

// Engine drives the simulation forward at a fixed step.
type Engine struct {
	Tick     uint64        // Current tick counter (monotonic, never resets)
	Interval time.Duration // Simulated time per tick

	// Every ticks, not 0, run the matching callback after OnTick.
	ReportEvery   uint64
	AutosaveEvery uint64

	OnTick     func(tick uint64, dt float64)
	OnReport   func(tick uint64)
	OnAutosave func(tick uint64)

	running atomic.Bool
	speed   atomic.Uint64 // float64 bits; 1.0 = real-time, 0 = paused
}

// NewEngine creates an engine stepping interval of simulated time per tick.
func NewEngine(interval time.Duration) *Engine {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	e := &Engine{Interval: interval}
	e.SetSpeed(1.0)
	return e
}

// Speed returns the wall-clock multiplier.
func (e *Engine) Speed() float64 { return math.Float64frombits(e.speed.Load()) }

// SetSpeed changes the wall-clock multiplier. Safe to call while Run is looping.
func (e *Engine) SetSpeed(v float64) { e.speed.Store(math.Float64bits(max(v, 0))) }

// Running reports whether Run is looping.
func (e *Engine) Running() bool { return e.running.Load() }

// Run steps the simulation until ctx is done or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("simulation engine started", "tick", e.Tick, "speed", e.Speed(), "interval", e.Interval)

	for e.running.Load() && ctx.Err() == nil {
		speed := e.Speed()
		if speed <= 0 {
			// Paused.
			sleep(ctx, 100*time.Millisecond)
			continue
		}

		start := time.Now()
		e.Step()

		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			sleep(ctx, target-elapsed)
		}
	}

	slog.Info("simulation engine stopped", "tick", e.Tick)
}

// Stop halts the loop after the current step.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Step advances the simulation by exactly one tick.
func (e *Engine) Step() {
	e.Tick++

	if e.OnTick != nil {
		e.OnTick(e.Tick, e.Interval.Seconds())
	}
	if e.ReportEvery > 0 && e.Tick%e.ReportEvery == 0 && e.OnReport != nil {
		e.OnReport(e.Tick)
	}
	if e.AutosaveEvery > 0 && e.Tick%e.AutosaveEvery == 0 && e.OnAutosave != nil {
		e.OnAutosave(e.Tick)
	}
}

// SimTime renders the simulated time elapsed at tick, e.g. "00:01:30".
func SimTime(tick uint64, interval time.Duration) string {
	d := time.Duration(tick) * interval
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
