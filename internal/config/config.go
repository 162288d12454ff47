// Package config provides Viper-based configuration loading for the combat simulator.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// SimulationConfig holds the per-run knobs the simulator accepts and the
// parameters of the build search layered on top of it.
type SimulationConfig struct {
	// TravelTime is the projectile travel time in simulated seconds.
	TravelTime float64 `mapstructure:"travel_time"`
	// Distance is the static attacker-to-target distance in meters.
	Distance float64 `mapstructure:"distance"`
	// Workers bounds the number of simulations scored concurrently.
	Workers int `mapstructure:"workers"`
	// BuildSize is the number of items per enumerated build.
	BuildSize int `mapstructure:"build_size"`
	// Budget is the maximum total build cost in souls; 0 means unlimited.
	Budget int `mapstructure:"budget"`
	// Top is the number of ranked rows printed by the search commands.
	Top int `mapstructure:"top"`
}

// HeroConfig holds the base stats of one combatant.
type HeroConfig struct {
	Name         string  `mapstructure:"name"`
	Health       float64 `mapstructure:"health"`
	BulletDamage float64 `mapstructure:"bullet_damage"`
	FireRate     float64 `mapstructure:"fire_rate"`
	Ammo         int     `mapstructure:"ammo"`
}

// CatalogConfig locates the item catalog on disk.
type CatalogConfig struct {
	// ItemsDir is the directory of item YAML files.
	ItemsDir string `mapstructure:"items_dir"`
	// ScriptsDir is the directory scripted item hooks are resolved against.
	ScriptsDir string `mapstructure:"scripts_dir"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Attacker   HeroConfig       `mapstructure:"attacker"`
	Defender   HeroConfig       `mapstructure:"defender"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSimulation(c.Simulation); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateAttacker(c.Attacker); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateDefender(c.Defender); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateCatalog(c.Catalog); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.TravelTime < 0 {
		errs = append(errs, fmt.Sprintf("simulation.travel_time must be >= 0, got %g", s.TravelTime))
	}
	if s.Distance < 0 {
		errs = append(errs, fmt.Sprintf("simulation.distance must be >= 0, got %g", s.Distance))
	}
	if s.Workers < 1 {
		errs = append(errs, fmt.Sprintf("simulation.workers must be >= 1, got %d", s.Workers))
	}
	if s.BuildSize < 1 {
		errs = append(errs, fmt.Sprintf("simulation.build_size must be >= 1, got %d", s.BuildSize))
	}
	if s.Budget < 0 {
		errs = append(errs, fmt.Sprintf("simulation.budget must be >= 0, got %d", s.Budget))
	}
	if s.Top < 1 {
		errs = append(errs, fmt.Sprintf("simulation.top must be >= 1, got %d", s.Top))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateAttacker(h HeroConfig) error {
	var errs []string
	if h.Name == "" {
		errs = append(errs, "attacker.name must not be empty")
	}
	if h.Health <= 0 {
		errs = append(errs, fmt.Sprintf("attacker.health must be > 0, got %g", h.Health))
	}
	if h.BulletDamage <= 0 {
		errs = append(errs, fmt.Sprintf("attacker.bullet_damage must be > 0, got %g", h.BulletDamage))
	}
	if h.FireRate <= 0 {
		errs = append(errs, fmt.Sprintf("attacker.fire_rate must be > 0, got %g", h.FireRate))
	}
	if h.Ammo < 1 {
		errs = append(errs, fmt.Sprintf("attacker.ammo must be >= 1, got %d", h.Ammo))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// The defender never attacks, so only its identity and health matter.
func validateDefender(h HeroConfig) error {
	var errs []string
	if h.Name == "" {
		errs = append(errs, "defender.name must not be empty")
	}
	if h.Health <= 0 {
		errs = append(errs, fmt.Sprintf("defender.health must be > 0, got %g", h.Health))
	}
	if h.BulletDamage < 0 {
		errs = append(errs, fmt.Sprintf("defender.bullet_damage must be >= 0, got %g", h.BulletDamage))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateCatalog(c CatalogConfig) error {
	if c.ItemsDir == "" {
		return errors.New("catalog.items_dir must not be empty")
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with DPSIM_ prefix
	v.SetEnvPrefix("DPSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults registers the default value of every configuration key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("simulation.travel_time", 0.0)
	v.SetDefault("simulation.distance", 0.0)
	v.SetDefault("simulation.workers", 8)
	v.SetDefault("simulation.build_size", 5)
	v.SetDefault("simulation.budget", 8250)
	v.SetDefault("simulation.top", 10)

	v.SetDefault("attacker.name", "Vindicta")
	v.SetDefault("attacker.health", 550.0)
	v.SetDefault("attacker.bullet_damage", 13.0)
	v.SetDefault("attacker.fire_rate", 5.26)
	v.SetDefault("attacker.ammo", 22)

	v.SetDefault("defender.name", "Abrams")
	v.SetDefault("defender.health", 5000.0)
	v.SetDefault("defender.bullet_damage", 0.0)
	v.SetDefault("defender.fire_rate", 1.0)
	v.SetDefault("defender.ammo", 1)

	v.SetDefault("catalog.items_dir", "content/items")
	v.SetDefault("catalog.scripts_dir", "content/scripts")
}
