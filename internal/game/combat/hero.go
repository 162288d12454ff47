package combat

import (
	"errors"
	"fmt"
	"math"

	"github.com/cory-johannsen/dpsim/internal/game/inventory"
)

// Hero is a combatant: base stats plus an equipped build. Effective stats are
// fixed at construction; only current health and the magazine change.
// Hero implements inventory.Subject.
type Hero struct {
	Name string
	Base BaseStats
	// Items are the hero's own instances, in equipped order.
	Items []*inventory.Item
	// Magazine holds the hero's remaining rounds.
	Magazine *inventory.Magazine

	maxHealth     float64
	weaponDamage  float64
	fireRateBonus float64
	ammoBonus     float64
	fireRate      float64
	health        float64
	distance      float64
}

// NewHero builds a combatant from base stats and a build. Every item is cloned
// so the hero exclusively owns its items' trigger state.
//
// Precondition: build items must be non-nil.
// Postcondition: returns an error if base is invalid or the build drives
// effective health, fire rate or ammo capacity to zero or below.
func NewHero(name string, base BaseStats, build []*inventory.Item) (*Hero, error) {
	if err := base.Validate(); err != nil {
		return nil, fmt.Errorf("combat: NewHero %q: %w", name, err)
	}
	h := &Hero{Name: name, Base: base, maxHealth: base.Health}
	for _, it := range build {
		h.maxHealth += it.Def.Health
		h.weaponDamage += it.Def.WeaponDamage
		h.fireRateBonus += it.Def.FireRate
		h.ammoBonus += it.Def.Ammo
	}
	h.fireRate = base.FireRate * (1 + h.fireRateBonus)
	capacity := int(math.Round(float64(base.Ammo) * (1 + h.ammoBonus)))

	var errs []error
	if h.maxHealth <= 0 {
		errs = append(errs, fmt.Errorf("effective health must be > 0, got %g", h.maxHealth))
	}
	if h.fireRate <= 0 {
		errs = append(errs, fmt.Errorf("effective fire rate must be > 0, got %g", h.fireRate))
	}
	if capacity <= 0 {
		errs = append(errs, fmt.Errorf("effective ammo must be > 0, got %d", capacity))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("combat: NewHero %q: %w", name, errors.Join(errs...))
	}

	h.Items = make([]*inventory.Item, 0, len(build))
	for _, it := range build {
		c, err := it.Clone()
		if err != nil {
			inventory.ReleaseAll(h.Items)
			return nil, fmt.Errorf("combat: NewHero %q: %w", name, err)
		}
		h.Items = append(h.Items, c)
	}
	h.health = h.maxHealth
	h.Magazine = inventory.NewMagazine(capacity)
	return h, nil
}

// MaxHealth returns the effective health the hero started with.
func (h *Hero) MaxHealth() float64 { return h.maxHealth }

// Health returns current health.
func (h *Hero) Health() float64 { return h.health }

// IsDead reports whether current health has reached zero.
func (h *Hero) IsDead() bool { return h.health <= 0 }

// WeaponDamageBonus returns the summed static weapon damage bonus. A shot's
// multiplier starts at 1 + WeaponDamageBonus().
func (h *Hero) WeaponDamageBonus() float64 { return h.weaponDamage }

// EffectiveFireRate returns the fire rate including static bonuses only.
func (h *Hero) EffectiveFireRate() float64 { return h.fireRate }

// AmmoCapacity returns the effective magazine size.
func (h *Hero) AmmoCapacity() int { return h.Magazine.Capacity }

// Ammo returns the rounds left.
func (h *Hero) Ammo() int { return h.Magazine.Loaded }

// HealthRatio returns current health over effective health.
func (h *Hero) HealthRatio() float64 { return h.health / h.maxHealth }

// TargetDistance returns the static distance to the opposing combatant.
func (h *Hero) TargetDistance() float64 { return h.distance }

// SetTargetDistance fixes the distance used by range-gated hooks.
//
// Precondition: d >= 0.
func (h *Hero) SetTargetDistance(d float64) { h.distance = d }

// CurrentFireRate returns base fire rate scaled by static bonuses plus every
// fire-rate buff active on h at now. buffs may be nil.
func (h *Hero) CurrentFireRate(buffs *BuffLedger, now float64) float64 {
	return h.Base.FireRate * (1 + h.fireRateBonus + buffs.Sum(h, inventory.FireRateBuff, now))
}

// CurrentAmmoCapacity returns the magazine size including ammo buffs active
// at now. Buffs never refill the magazine; they only report capacity.
func (h *Hero) CurrentAmmoCapacity(buffs *BuffLedger, now float64) int {
	return int(math.Round(float64(h.Base.Ammo) * (1 + h.ammoBonus + buffs.Sum(h, inventory.AmmoBuff, now))))
}

// ApplyDamage reduces current health by amount, flooring at zero.
//
// Precondition: amount >= 0 (panics otherwise).
// Postcondition: 0 <= Health() <= MaxHealth().
func (h *Hero) ApplyDamage(amount float64) {
	if amount < 0 || math.IsNaN(amount) {
		panic(fmt.Sprintf("combat: Hero.ApplyDamage: amount must be >= 0, got %g", amount))
	}
	h.health = math.Max(0, h.health-amount)
}

// Release frees the hero's item instances. The hero must not be simulated
// afterwards.
func (h *Hero) Release() { inventory.ReleaseAll(h.Items) }
