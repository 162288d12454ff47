// Package combat implements the discrete-event ranged combat simulator: one
// attacker firing at one passive defender until the defender dies or the
// attacker's magazine runs dry.
package combat

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// BaseStats are a combatant's unmodified parameters.
type BaseStats struct {
	Health float64
	// BulletDamage is damage per shot before multipliers.
	BulletDamage float64
	// FireRate is shots per simulated second.
	FireRate float64
	// Ammo is the magazine size.
	Ammo int
}

// Validate checks that s can describe a combatant.
//
// Postcondition: returns nil iff Health, FireRate and Ammo are > 0 and
// BulletDamage is >= 0.
func (s BaseStats) Validate() error {
	var errs []error
	if s.Health <= 0 {
		errs = append(errs, fmt.Errorf("health must be > 0, got %g", s.Health))
	}
	if s.BulletDamage < 0 {
		errs = append(errs, fmt.Errorf("bullet damage must be >= 0, got %g", s.BulletDamage))
	}
	if s.FireRate <= 0 {
		errs = append(errs, fmt.Errorf("fire rate must be > 0, got %g", s.FireRate))
	}
	if s.Ammo <= 0 {
		errs = append(errs, fmt.Errorf("ammo must be > 0, got %d", s.Ammo))
	}
	return errors.Join(errs...)
}

// Outcome is how a run terminated.
type Outcome int

const (
	// Running is the outcome of a run that has not finished.
	Running Outcome = iota
	// DefenderKilled means a resolution brought defender health to zero.
	DefenderKilled
	// AmmoExhausted means the attacker fired its last round and every
	// in-flight shot resolved without killing the defender.
	AmmoExhausted
	// QueueDrained means the event queue emptied with ammo left and the
	// defender alive.
	QueueDrained
)

// String returns a human-readable outcome label.
func (o Outcome) String() string {
	switch o {
	case Running:
		return "running"
	case DefenderKilled:
		return "defender killed"
	case AmmoExhausted:
		return "ammo exhausted"
	case QueueDrained:
		return "queue drained"
	default:
		return "unknown"
	}
}

// Stats accumulates the damage an attacker has dealt in one run.
type Stats struct {
	TotalDamage  float64
	TotalAttacks int
	// DPS is zero until the run finishes.
	DPS float64
}

// DPS returns totalDamage / elapsed, or 0 when no attack landed or no
// simulated time passed.
//
// Postcondition: the result is a pure function of its arguments.
func DPS(totalDamage float64, attacks int, elapsed float64) float64 {
	if attacks <= 0 || elapsed <= 0 {
		return 0
	}
	return totalDamage / elapsed
}

// Result is the outcome record of a finished run.
type Result struct {
	RunID uuid.UUID
	Stats
	// Elapsed is the simulated time at which the run finished.
	Elapsed        float64
	Outcome        Outcome
	DefenderHealth float64
	AmmoLeft       int
}
