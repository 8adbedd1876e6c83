package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Physics   PhysicsConfig   `toml:"physics"`
	Driver    DriverConfig    `toml:"driver"`
	Scripting ScriptingConfig `toml:"scripting"`
	Logging   LoggingConfig   `toml:"logging"`
}

// PhysicsConfig holds the tunable constants of the engine. Per-kind radius and
// density limits are fixed tables in internal/world, not configuration.
type PhysicsConfig struct {
	SpeedOfLight     float64 `toml:"speed_of_light"`     // km/s, default max speed of every body
	BulletSpeed      float64 `toml:"bullet_speed"`       // km/s, launch speed of a fired bullet
	ThrusterForce    float64 `toml:"thruster_force"`     // N, applied along the heading while thrusting
	LoadingRange     float64 `toml:"loading_range"`      // km between ship and bullet edges
	Seed             int64   `toml:"seed"`               // relocation and split RNG
	SplitPlanetoids  bool    `toml:"split_planetoids"`   // large planetoids break into asteroids
	SplitRadius      float64 `toml:"split_radius"`       // minimum planetoid radius that splits
	SplitSpeedFactor float64 `toml:"split_speed_factor"` // child speed relative to the parent
}

type DriverConfig struct {
	Scenario              string        `toml:"scenario"`
	TickRate              time.Duration `toml:"tick_rate"`
	Steps                 int           `toml:"steps"`    // 0 = run until interrupted
	Realtime              bool          `toml:"realtime"` // pace ticks with a wall-clock ticker
	MaxResolutionsPerStep int           `toml:"max_resolutions_per_step"`
}

type ScriptingConfig struct {
	Dir     string `toml:"dir"`
	Enabled bool   `toml:"enabled"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	p := c.Physics
	switch {
	case !(p.SpeedOfLight > 0):
		return errors.New("physics.speed_of_light must be positive")
	case !(p.BulletSpeed > 0) || p.BulletSpeed > p.SpeedOfLight:
		return errors.New("physics.bullet_speed must be in (0, speed_of_light]")
	case p.ThrusterForce < 0:
		return errors.New("physics.thruster_force must not be negative")
	case p.LoadingRange < 0:
		return errors.New("physics.loading_range must not be negative")
	case p.SplitPlanetoids && !(p.SplitRadius > 0):
		return errors.New("physics.split_radius must be positive")
	case p.SplitSpeedFactor < 0:
		return errors.New("physics.split_speed_factor must not be negative")
	}
	if c.Driver.TickRate <= 0 {
		return errors.New("driver.tick_rate must be positive")
	}
	if c.Driver.Steps < 0 {
		return errors.New("driver.steps must not be negative")
	}
	if c.Driver.MaxResolutionsPerStep <= 0 {
		return errors.New("driver.max_resolutions_per_step must be positive")
	}
	return nil
}

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	return &Config{
		Physics: PhysicsConfig{
			SpeedOfLight:     300000,
			BulletSpeed:      250,
			ThrusterForce:    1.1e18,
			LoadingRange:     1,
			Seed:             1,
			SplitPlanetoids:  true,
			SplitRadius:      30,
			SplitSpeedFactor: 1.5,
		},
		Driver: DriverConfig{
			Scenario:              "data/yaml/scenario.yaml",
			TickRate:              200 * time.Millisecond,
			Steps:                 600,
			Realtime:              false,
			MaxResolutionsPerStep: 1000,
		},
		Scripting: ScriptingConfig{
			Dir:     "scripts/ships",
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
