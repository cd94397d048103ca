// Command corsair runs the naval faction and combat simulation.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/corsair/internal/api"
	"github.com/talgya/corsair/internal/config"
	"github.com/talgya/corsair/internal/engine"
	"github.com/talgya/corsair/internal/feed"
	"github.com/talgya/corsair/internal/logging"
	"github.com/talgya/corsair/internal/persistence"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (yaml, json or toml)")
	factionsPath := flag.String("factions", "", "faction definitions file (overrides factions_file)")
	reset := flag.Bool("reset", false, "ignore any saved game and start fresh")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Setup(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.Info("Corsair naval faction simulation", "seed", cfg.Sim.Seed, "tick", cfg.Sim.TickInterval)

	if *factionsPath != "" {
		cfg.FactionsFile = *factionsPath
	}
	defs, err := config.LoadFactions(cfg.FactionsFile)
	if err != nil {
		slog.Error("failed to load faction definitions", "path", cfg.FactionsFile, "error", err)
		os.Exit(1)
	}

	sim, err := engine.NewSimulation(cfg, defs.Classes)
	if err != nil {
		slog.Error("failed to build simulation", "error", err)
		os.Exit(1)
	}
	defer sim.Close()

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.Persistence.Path); dir != "." {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.Open(cfg.Persistence.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.Persistence.Path)

	// ── Load or Populate ──────────────────────────────────────────────
	if db.HasSnapshot() && !*reset {
		slog.Info("found saved game, loading...")
		snap, err := db.LoadSnapshot()
		if err != nil {
			slog.Error("failed to load snapshot", "error", err)
			os.Exit(1)
		}
		if err := sim.Restore(snap); err != nil {
			slog.Error("failed to restore snapshot", "error", err)
			os.Exit(1)
		}
		st := sim.Stats()
		slog.Info("game restored",
			"tick", snap.Tick,
			"sim_time", engine.SimTime(snap.Tick, cfg.Sim.TickInterval),
			"pirates", st.Pirates,
			"ships", st.ShipsAfloat+st.Sinking,
			"engagements", st.Engagements,
		)
	} else {
		slog.Info("starting new game", "factions_file", cfg.FactionsFile, "reset", *reset)
		if err := sim.Populate(defs); err != nil {
			slog.Error("failed to populate world", "error", err)
			os.Exit(1)
		}
		if err := db.SaveWorldState(sim); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine(cfg.Sim.TickInterval)
	eng.Tick = sim.LastTick
	eng.ReportEvery = cfg.Sim.ReportEvery
	eng.AutosaveEvery = cfg.Sim.AutosaveEvery
	eng.OnTick = sim.Step
	eng.OnReport = func(tick uint64) {
		sim.Do(func() { sim.Report(tick, eng.Interval) })
	}
	eng.OnAutosave = func(tick uint64) {
		sim.Do(func() {
			if err := db.SaveWorldState(sim); err != nil {
				slog.Error("autosave failed", "tick", tick, "error", err)
			}
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Feed and API ──────────────────────────────────────────────────
	var feedHandler http.Handler
	if cfg.Feed.Enabled {
		hub := feed.NewHub()
		go hub.Run(ctx)
		detach := hub.Attach(sim.Bus)
		defer detach()
		feedHandler = hub
	}

	var srv *http.Server
	if cfg.API.Addr != "" {
		if cfg.API.AdminKey == "" {
			slog.Warn("api.admin_key not set, admin POST endpoints and orders will be disabled")
		}
		apiServer := &api.Server{
			Sim:         sim,
			Eng:         eng,
			DB:          db,
			Feed:        feedHandler,
			Addr:        cfg.API.Addr,
			AdminKey:    cfg.API.AdminKey,
			CORSOrigins: cfg.API.CORSOrigins,
		}
		srv = apiServer.Start()
		fmt.Printf("API: http://%s/api/v1/status\n", cfg.API.Addr)
	} else if cfg.Feed.Enabled {
		slog.Warn("feed enabled but api.addr is empty, nothing will serve it")
	}

	if eng.Tick > 0 {
		fmt.Printf("Resuming from tick %d (%s)\n", eng.Tick, engine.SimTime(eng.Tick, eng.Interval))
	}
	fmt.Println("Setting sail... (Ctrl+C to stop)")

	eng.Run(ctx)
	slog.Info("engine stopped", "tick", sim.CurrentTick())

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP shutdown failed", "error", err)
		}
		cancel()
	}

	slog.Info("final save...")
	sim.Do(func() {
		if err := db.SaveWorldState(sim); err != nil {
			slog.Error("final save failed", "error", err)
		}
	})

	fmt.Println("Simulation stopped. Game state saved.")
}
