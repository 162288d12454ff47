package inventory

import "fmt"

// EffectKind identifies what an item hook grants.
type EffectKind string

const (
	// WeaponDamageMultiplier adds to the shot's total damage multiplier.
	WeaponDamageMultiplier EffectKind = "weapon_damage_multiplier"
	// BonusFlatDamage adds flat damage to the shot after multiplication.
	BonusFlatDamage EffectKind = "bonus_flat_damage"
	// FireRateBuff is a timed percentage fire-rate increase.
	FireRateBuff EffectKind = "fire_rate_buff"
	// AmmoBuff is a timed percentage ammo-capacity increase.
	AmmoBuff EffectKind = "ammo_buff"
)

var validEffectKinds = map[EffectKind]bool{
	WeaponDamageMultiplier: true,
	BonusFlatDamage:        true,
	FireRateBuff:           true,
	AmmoBuff:               true,
}

// Valid reports whether k is a known effect kind.
func (k EffectKind) Valid() bool { return validEffectKinds[k] }

// Timed reports whether effects of this kind are time-bounded buffs routed to
// the buff ledger rather than folded into a single shot.
func (k EffectKind) Timed() bool {
	return k == FireRateBuff || k == AmmoBuff
}

// Effect is the result of one hook invocation.
// A zero Magnitude means the hook had no effect this trigger.
type Effect struct {
	Kind      EffectKind
	Magnitude float64
	// Duration is the buff lifetime in simulated seconds; only meaningful
	// for timed kinds.
	Duration float64
}

// None reports whether the effect grants nothing.
func (e Effect) None() bool { return e.Magnitude == 0 }

// String returns a compact human-readable form, e.g. "fire_rate_buff+0.30/4.0s".
func (e Effect) String() string {
	if e.Kind.Timed() {
		return fmt.Sprintf("%s%+.2f/%.1fs", e.Kind, e.Magnitude, e.Duration)
	}
	return fmt.Sprintf("%s%+.2f", e.Kind, e.Magnitude)
}

// Subject is the view of a combatant that item hooks may consult.
type Subject interface {
	// HealthRatio returns current health divided by effective maximum health.
	HealthRatio() float64
	// TargetDistance returns the static distance to the opposing combatant.
	TargetDistance() float64
}

// HitContext is the world state handed to every hook invocation.
type HitContext struct {
	Attacker Subject
	Defender Subject
	// Now is the current simulated time in seconds.
	Now float64
}

// HitHook is evaluated once per damage-resolution event.
type HitHook func(self *Item, ctx HitContext) Effect

// DamageHook runs after damage is applied; it cannot change that damage.
type DamageHook func(self *Item, ctx HitContext)

// ActiveHook is a manually triggered effect that may grant several buffs at once.
type ActiveHook func(self *Item, ctx HitContext) []Effect
