// Package config loads runtime settings (viper: defaults, optional file,
// CORSAIR_ environment overrides) and the faction definitions file (YAML).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/talgya/corsair/internal/combat"
	"github.com/talgya/corsair/internal/faction"
	"github.com/talgya/corsair/internal/patrol"
	"github.com/talgya/corsair/internal/world"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// EnvPrefix is prepended to environment overrides, e.g. CORSAIR_SIM_SEED.
const EnvPrefix = "CORSAIR"

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RelationsConfig struct {
	Min             float64 `mapstructure:"min"`
	Max             float64 `mapstructure:"max"`
	Neutral         float64 `mapstructure:"neutral"`
	WarThreshold    float64 `mapstructure:"war_threshold"`
	AllyThreshold   float64 `mapstructure:"ally_threshold"`
	TradeMultiplier float64 `mapstructure:"trade_multiplier"`
}

type CaptureConfig struct {
	RelationPenalty float64 `mapstructure:"relation_penalty"`
	InfluenceChange float64 `mapstructure:"influence_change"`
}

type CombatConfig struct {
	UpdateInterval     time.Duration `mapstructure:"update_interval"`
	MaxRange           float64       `mapstructure:"max_range"`
	ProjectileSpeed    float64       `mapstructure:"projectile_speed"`
	ProjectileLifetime time.Duration `mapstructure:"projectile_lifetime"`
}

type ShipsConfig struct {
	SinkingDuration time.Duration `mapstructure:"sinking_duration"`
}

type SimConfig struct {
	TickInterval  time.Duration `mapstructure:"tick_interval"`
	Seed          int64         `mapstructure:"seed"`
	AutosaveEvery uint64        `mapstructure:"autosave_every"`
	ReportEvery   uint64        `mapstructure:"report_every"`
}

type SpawnConfig struct {
	MinDistance float64 `mapstructure:"min_distance"`
	MaxAttempts int     `mapstructure:"max_attempts"`
}

type PatrolConfig struct {
	Radius          float64 `mapstructure:"radius"`
	ArriveThreshold float64 `mapstructure:"arrive_threshold"`
	DetectionRange  float64 `mapstructure:"detection_range"`
}

type PersistenceConfig struct {
	Path string `mapstructure:"path"`
}

type APIConfig struct {
	Addr        string   `mapstructure:"addr"`
	AdminKey    string   `mapstructure:"admin_key"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type FeedConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config is the full runtime configuration.
type Config struct {
	Log          LogConfig         `mapstructure:"log"`
	Relations    RelationsConfig   `mapstructure:"relations"`
	Capture      CaptureConfig     `mapstructure:"capture"`
	Combat       CombatConfig      `mapstructure:"combat"`
	Ships        ShipsConfig       `mapstructure:"ships"`
	Sim          SimConfig         `mapstructure:"sim"`
	Spawn        SpawnConfig       `mapstructure:"spawn"`
	Patrol       PatrolConfig      `mapstructure:"patrol"`
	Persistence  PersistenceConfig `mapstructure:"persistence"`
	API          APIConfig         `mapstructure:"api"`
	Feed         FeedConfig        `mapstructure:"feed"`
	FactionsFile string            `mapstructure:"factions_file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("relations.min", -100.0)
	v.SetDefault("relations.max", 100.0)
	v.SetDefault("relations.neutral", 0.0)
	v.SetDefault("relations.war_threshold", -25.0)
	v.SetDefault("relations.ally_threshold", 25.0)
	v.SetDefault("relations.trade_multiplier", 0.1)

	v.SetDefault("capture.relation_penalty", 20.0)
	v.SetDefault("capture.influence_change", 10.0)

	v.SetDefault("combat.update_interval", "500ms")
	v.SetDefault("combat.max_range", 200.0)
	v.SetDefault("combat.projectile_speed", 20.0)
	v.SetDefault("combat.projectile_lifetime", "3s")

	v.SetDefault("ships.sinking_duration", "5s")

	v.SetDefault("sim.tick_interval", "100ms")
	v.SetDefault("sim.seed", 42)
	v.SetDefault("sim.autosave_every", 600)
	v.SetDefault("sim.report_every", 100)

	v.SetDefault("spawn.min_distance", 50.0)
	v.SetDefault("spawn.max_attempts", 10)

	v.SetDefault("patrol.radius", 100.0)
	v.SetDefault("patrol.arrive_threshold", 5.0)
	v.SetDefault("patrol.detection_range", 60.0)

	v.SetDefault("persistence.path", "data/corsair.db")
	v.SetDefault("api.addr", "")
	v.SetDefault("api.admin_key", "")
	v.SetDefault("api.cors_origins", []string{})
	v.SetDefault("feed.enabled", true)
	v.SetDefault("factions_file", "factions.yaml")
}

// Load builds the configuration from defaults, the optional file at path
// (format by extension) and CORSAIR_* environment variables, then validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges and orderings between settings.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	check(c.Relations.Min < c.Relations.Max, "relations.min %.1f must be below relations.max %.1f", c.Relations.Min, c.Relations.Max)
	check(c.Relations.Neutral >= c.Relations.Min && c.Relations.Neutral <= c.Relations.Max,
		"relations.neutral %.1f outside [%.1f, %.1f]", c.Relations.Neutral, c.Relations.Min, c.Relations.Max)
	check(c.Relations.WarThreshold < c.Relations.AllyThreshold,
		"relations.war_threshold %.1f must be below relations.ally_threshold %.1f", c.Relations.WarThreshold, c.Relations.AllyThreshold)
	check(c.Relations.TradeMultiplier >= 0, "relations.trade_multiplier must be non-negative")
	check(c.Capture.RelationPenalty >= 0 && c.Capture.InfluenceChange >= 0, "capture effects must be non-negative")

	check(c.Combat.UpdateInterval > 0, "combat.update_interval must be positive")
	check(c.Combat.MaxRange > 0, "combat.max_range must be positive")
	check(c.Combat.ProjectileSpeed > 0, "combat.projectile_speed must be positive")
	check(c.Combat.ProjectileLifetime > 0, "combat.projectile_lifetime must be positive")
	check(c.Ships.SinkingDuration >= 0, "ships.sinking_duration must be non-negative")

	check(c.Sim.TickInterval > 0, "sim.tick_interval must be positive")
	check(c.Spawn.MinDistance >= 0, "spawn.min_distance must be non-negative")
	check(c.Spawn.MaxAttempts > 0, "spawn.max_attempts must be positive")
	check(c.Patrol.Radius > 0, "patrol.radius must be positive")
	check(c.Patrol.ArriveThreshold > 0, "patrol.arrive_threshold must be positive")
	check(c.Patrol.DetectionRange >= 0, "patrol.detection_range must be non-negative")

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		check(false, "log.format %q must be text or json", c.Log.Format)
	}
	return errors.Join(errs...)
}

// FactionSettings maps the diplomacy keys onto faction.Settings.
func (c *Config) FactionSettings() faction.Settings {
	return faction.Settings{
		MinRelation:            c.Relations.Min,
		MaxRelation:            c.Relations.Max,
		NeutralRelation:        c.Relations.Neutral,
		WarThreshold:           c.Relations.WarThreshold,
		AllyThreshold:          c.Relations.AllyThreshold,
		TradeMultiplier:        c.Relations.TradeMultiplier,
		CaptureRelationPenalty: c.Capture.RelationPenalty,
		CaptureInfluenceChange: c.Capture.InfluenceChange,
	}
}

// CombatSettings maps the combat keys onto combat.Settings, in seconds.
func (c *Config) CombatSettings() combat.Settings {
	return combat.Settings{
		UpdateInterval:     c.Combat.UpdateInterval.Seconds(),
		MaxRange:           c.Combat.MaxRange,
		ProjectileSpeed:    c.Combat.ProjectileSpeed,
		ProjectileLifetime: c.Combat.ProjectileLifetime.Seconds(),
	}
}

// PatrolSettings maps the patrol keys onto patrol.Settings.
func (c *Config) PatrolSettings() patrol.Settings {
	s := patrol.DefaultSettings()
	s.Radius = c.Patrol.Radius
	s.ArriveThreshold = c.Patrol.ArriveThreshold
	s.DetectionRange = c.Patrol.DetectionRange
	return s
}

// Placement maps the spawn keys onto world.PlacementConfig.
func (c *Config) Placement() world.PlacementConfig {
	return world.PlacementConfig{
		MinDistance: c.Spawn.MinDistance,
		MaxAttempts: c.Spawn.MaxAttempts,
	}
}
