// Package persistence provides SQLite-based game state storage.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/corsair/internal/engine"
	"github.com/talgya/corsair/internal/events"
	"github.com/talgya/corsair/internal/faction"
	"github.com/talgya/corsair/internal/fleet"
)

// ErrNoSnapshot is returned by LoadSnapshot when nothing was saved yet.
var ErrNoSnapshot = errors.New("no saved snapshot")

const metaLastTick = "last_tick"

// DB wraps a SQLite connection for game state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS factions (
		type INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		color TEXT NOT NULL,
		base_location TEXT NOT NULL,
		influence REAL NOT NULL,
		resources REAL NOT NULL,
		relations_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ports (
		name TEXT PRIMARY KEY,
		owner INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pirates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		faction INTEGER NOT NULL,
		rank INTEGER NOT NULL,
		reputation REAL NOT NULL,
		wealth REAL NOT NULL,
		player INTEGER NOT NULL,
		home_x REAL NOT NULL,
		home_z REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ships (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		class TEXT NOT NULL,
		faction INTEGER NOT NULL,
		owner_id TEXT NOT NULL,
		health REAL NOT NULL,
		sinking INTEGER NOT NULL,
		sink_elapsed REAL NOT NULL,
		selected INTEGER NOT NULL,
		pos_x REAL NOT NULL,
		pos_z REAL NOT NULL,
		fwd_x REAL NOT NULL,
		fwd_z REAL NOT NULL,
		ammo INTEGER NOT NULL,
		reload_left REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS engagements (
		attacker_id TEXT PRIMARY KEY,
		target_id TEXT NOT NULL,
		state TEXT NOT NULL,
		shots INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		kind TEXT NOT NULL,
		frame BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_ships_owner ON ships(owner_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// ── Snapshot ────────────────────────────────────────────────────────

// SaveSnapshot replaces the stored game state with snap in one transaction.
func (db *DB) SaveSnapshot(snap *engine.Snapshot) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"factions", "ports", "pirates", "ships", "engagements"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := saveFactions(tx, snap.Factions); err != nil {
		return err
	}
	for _, p := range snap.Ports {
		if _, err := tx.Exec("INSERT INTO ports (name, owner) VALUES (?, ?)", p.Name, int(p.Owner)); err != nil {
			return fmt.Errorf("insert port %q: %w", p.Name, err)
		}
	}
	if err := savePirates(tx, snap.Pirates); err != nil {
		return err
	}
	if err := saveShips(tx, snap.Ships); err != nil {
		return err
	}
	for _, e := range snap.Engagements {
		_, err := tx.Exec("INSERT INTO engagements (attacker_id, target_id, state, shots) VALUES (?, ?, ?, ?)",
			e.Attacker, e.Target, e.State, e.Shots)
		if err != nil {
			return fmt.Errorf("insert engagement %s: %w", e.Attacker, err)
		}
	}
	if _, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		metaLastTick, strconv.FormatUint(snap.Tick, 10)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	return tx.Commit()
}

func saveFactions(tx *sqlx.Tx, factions []engine.FactionState) error {
	stmt, err := tx.Preparex(`INSERT INTO factions
		(type, name, color, base_location, influence, resources, relations_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range factions {
		relJSON, err := json.Marshal(f.Relations)
		if err != nil {
			return fmt.Errorf("encode relations of %s: %w", f.Type, err)
		}
		if _, err := stmt.Exec(int(f.Type), f.Name, f.Color, f.BaseLocation, f.Influence, f.Resources, string(relJSON)); err != nil {
			return fmt.Errorf("insert faction %s: %w", f.Type, err)
		}
	}
	return nil
}

func savePirates(tx *sqlx.Tx, pirates []fleet.PirateRecord) error {
	stmt, err := tx.Preparex(`INSERT INTO pirates
		(id, name, faction, rank, reputation, wealth, player, home_x, home_z)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range pirates {
		_, err := stmt.Exec(p.ID, p.Name, int(p.Faction), int(p.Rank), p.Reputation, p.Wealth,
			boolInt(p.Player), p.HomeX, p.HomeZ)
		if err != nil {
			return fmt.Errorf("insert pirate %s: %w", p.ID, err)
		}
	}
	return nil
}

func saveShips(tx *sqlx.Tx, ships []fleet.ShipRecord) error {
	stmt, err := tx.Preparex(`INSERT INTO ships
		(id, name, class, faction, owner_id, health, sinking, sink_elapsed, selected,
		 pos_x, pos_z, fwd_x, fwd_z, ammo, reload_left)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range ships {
		_, err := stmt.Exec(
			s.ID, s.Name, s.Class, int(s.Faction), s.OwnerID, s.Health,
			boolInt(s.Sinking), s.SinkElapsed, boolInt(s.Selected),
			s.PosX, s.PosZ, s.FwdX, s.FwdZ, s.Ammo, s.ReloadLeft,
		)
		if err != nil {
			return fmt.Errorf("insert ship %s: %w", s.ID, err)
		}
	}
	return nil
}

type factionRow struct {
	Type          int     `db:"type"`
	Name          string  `db:"name"`
	Color         string  `db:"color"`
	BaseLocation  string  `db:"base_location"`
	Influence     float64 `db:"influence"`
	Resources     float64 `db:"resources"`
	RelationsJSON string  `db:"relations_json"`
}

type portRow struct {
	Name  string `db:"name"`
	Owner int    `db:"owner"`
}

// HasSnapshot reports whether a game state has been saved.
func (db *DB) HasSnapshot() bool {
	_, err := db.GetMeta(metaLastTick)
	return err == nil
}

// LoadSnapshot reads the stored game state.
func (db *DB) LoadSnapshot() (*engine.Snapshot, error) {
	tickStr, err := db.GetMeta(metaLastTick)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	tick, err := strconv.ParseUint(tickStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse %s %q: %w", metaLastTick, tickStr, err)
	}
	snap := &engine.Snapshot{Tick: tick}

	var frows []factionRow
	if err := db.conn.Select(&frows, "SELECT * FROM factions ORDER BY type"); err != nil {
		return nil, fmt.Errorf("load factions: %w", err)
	}
	for _, r := range frows {
		fs := engine.FactionState{
			Type:         faction.FactionType(r.Type),
			Name:         r.Name,
			Color:        r.Color,
			BaseLocation: r.BaseLocation,
			Influence:    r.Influence,
			Resources:    r.Resources,
		}
		if err := json.Unmarshal([]byte(r.RelationsJSON), &fs.Relations); err != nil {
			return nil, fmt.Errorf("decode relations of %s: %w", fs.Type, err)
		}
		snap.Factions = append(snap.Factions, fs)
	}

	var prows []portRow
	if err := db.conn.Select(&prows, "SELECT name, owner FROM ports ORDER BY name"); err != nil {
		return nil, fmt.Errorf("load ports: %w", err)
	}
	for _, r := range prows {
		snap.Ports = append(snap.Ports, engine.PortState{Name: r.Name, Owner: faction.FactionType(r.Owner)})
	}

	if err := db.conn.Select(&snap.Pirates, "SELECT * FROM pirates ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load pirates: %w", err)
	}
	if err := db.conn.Select(&snap.Ships, "SELECT * FROM ships ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load ships: %w", err)
	}
	if err := db.conn.Select(&snap.Engagements, "SELECT * FROM engagements ORDER BY attacker_id"); err != nil {
		return nil, fmt.Errorf("load engagements: %w", err)
	}

	return snap, nil
}

// ── Events ──────────────────────────────────────────────────────────

// SaveEvents appends events to the log as msgpack frames.
func (db *DB) SaveEvents(evs []events.Event) error {
	if len(evs) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range evs {
		frame, err := events.Encode(e)
		if err != nil {
			return err
		}
		if _, err := tx.Exec("INSERT INTO events (tick, kind, frame) VALUES (?, ?, ?)",
			e.Tick, e.Kind.String(), frame); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent limit events, newest first.
func (db *DB) RecentEvents(limit int) ([]events.Frame, error) {
	var blobs [][]byte
	if err := db.conn.Select(&blobs, "SELECT frame FROM events ORDER BY id DESC LIMIT ?", limit); err != nil {
		return nil, err
	}
	out := make([]events.Frame, 0, len(blobs))
	for _, b := range blobs {
		f, err := events.Decode(b)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// CountEvents returns the number of logged events of the given kind.
func (db *DB) CountEvents(kind events.Kind) (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM events WHERE kind = ?", kind.String())
	return n, err
}

// ── Meta ────────────────────────────────────────────────────────────

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// SaveWorldState snapshots sim and appends its pending events.
func (db *DB) SaveWorldState(sim *engine.Simulation) error {
	snap := sim.Snapshot()
	slog.Info("saving world state", "tick", snap.Tick, "pirates", len(snap.Pirates), "ships", len(snap.Ships))

	if err := db.SaveSnapshot(snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := db.SaveEvents(sim.DrainEvents()); err != nil {
		return fmt.Errorf("save events: %w", err)
	}

	slog.Info("world state saved")
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
