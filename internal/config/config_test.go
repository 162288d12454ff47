package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Simulation: SimulationConfig{
			TravelTime: 0,
			Distance:   0,
			Workers:    8,
			BuildSize:  5,
			Budget:     8250,
			Top:        10,
		},
		Attacker: HeroConfig{
			Name:         "Vindicta",
			Health:       550,
			BulletDamage: 13,
			FireRate:     5.26,
			Ammo:         22,
		},
		Defender: HeroConfig{
			Name:     "Abrams",
			Health:   5000,
			FireRate: 1,
			Ammo:     1,
		},
		Catalog: CatalogConfig{
			ItemsDir:   "content/items",
			ScriptsDir: "content/scripts",
		},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	err := os.WriteFile(path, []byte(`
logging:
  level: debug
  format: console
simulation:
  travel_time: 0.05
  distance: 22
  workers: 2
attacker:
  name: Vindicta
  health: 600
  bullet_damage: 14
  fire_rate: 5
  ammo: 20
defender:
  name: Target
  health: 1200
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.InDelta(t, 0.05, cfg.Simulation.TravelTime, 1e-9)
	assert.InDelta(t, 22.0, cfg.Simulation.Distance, 1e-9)
	assert.Equal(t, 2, cfg.Simulation.Workers)
	assert.Equal(t, 20, cfg.Attacker.Ammo)
	assert.Equal(t, "Target", cfg.Defender.Name)
	// Unset keys fall back to defaults.
	assert.Equal(t, 5, cfg.Simulation.BuildSize)
	assert.Equal(t, "content/items", cfg.Catalog.ItemsDir)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: info\n"), 0644))
	t.Setenv("DPSIM_SIMULATION_DISTANCE", "31.5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 31.5, cfg.Simulation.Distance, 1e-9)
}

func TestLoadFromViper_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "Vindicta", cfg.Attacker.Name)
	assert.InDelta(t, 5.26, cfg.Attacker.FireRate, 1e-9)
	assert.Equal(t, 22, cfg.Attacker.Ammo)
	assert.InDelta(t, 5000.0, cfg.Defender.Health, 1e-9)
	assert.Equal(t, 8250, cfg.Simulation.Budget)
}

func TestValidateLoggingLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), "level %q should be valid", level)
	}
	cfg := validConfig()
	cfg.Logging.Level = "trace"
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestValidateAttackerFireRate(t *testing.T) {
	cfg := validConfig()
	cfg.Attacker.FireRate = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Attacker.FireRate = -1
	assert.Error(t, cfg.Validate())
}

func TestValidateAttackerBulletDamage(t *testing.T) {
	cfg := validConfig()
	cfg.Attacker.BulletDamage = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateAttackerAmmo(t *testing.T) {
	cfg := validConfig()
	cfg.Attacker.Ammo = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateDefenderHealth(t *testing.T) {
	cfg := validConfig()
	cfg.Defender.Health = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateSimulation(t *testing.T) {
	cfg := validConfig()
	cfg.Simulation.TravelTime = -0.1
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Simulation.Workers = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Simulation.Budget = -1
	assert.Error(t, cfg.Validate())
}

func TestValidate_ReportsAllViolations(t *testing.T) {
	cfg := validConfig()
	cfg.Attacker.FireRate = 0
	cfg.Defender.Health = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attacker.fire_rate")
	assert.Contains(t, err.Error(), "defender.health")
}

func TestValidateCatalogItemsDir(t *testing.T) {
	cfg := validConfig()
	cfg.Catalog.ItemsDir = ""
	assert.Error(t, cfg.Validate())
}

// Property-based tests

func TestPropertyPositiveFireRateAccepted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rate := rapid.Float64Range(0.01, 100).Draw(t, "fire_rate")
		cfg := validConfig()
		cfg.Attacker.FireRate = rate
		if err := cfg.Validate(); err != nil {
			t.Fatalf("valid fire rate %g rejected: %v", rate, err)
		}
	})
}

func TestPropertyNonPositiveFireRateRejected(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rate := rapid.Float64Range(-100, 0).Draw(t, "fire_rate")
		cfg := validConfig()
		cfg.Attacker.FireRate = rate
		if err := cfg.Validate(); err == nil {
			t.Fatalf("invalid fire rate %g accepted", rate)
		}
	})
}
