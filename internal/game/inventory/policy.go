package inventory

import (
	"errors"
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"
)

// Policy names a reusable hook behaviour that an item definition parameterises.
type Policy string

const (
	// PolicyCooldownFlatDamage grants Amount flat damage, at most once per cooldown.
	PolicyCooldownFlatDamage Policy = "cooldown_flat_damage"
	// PolicyAttackerHealthMultiplier grants Amount weapon damage while the
	// attacker's health ratio exceeds Threshold.
	PolicyAttackerHealthMultiplier Policy = "attacker_health_multiplier"
	// PolicyDefenderHealthMultiplier grants Amount weapon damage while the
	// defender's health ratio exceeds Threshold.
	PolicyDefenderHealthMultiplier Policy = "defender_health_multiplier"
	// PolicyRangeMultiplier grants Amount weapon damage while the target is
	// at least Threshold meters away.
	PolicyRangeMultiplier Policy = "range_multiplier"
	// PolicyCooldownBuff grants a timed buff of Kind, at most once per cooldown.
	PolicyCooldownBuff Policy = "cooldown_buff"
	// PolicyRampMultiplier grows weapon damage linearly from 0 to Amount over
	// Ramp seconds after the first hit, then holds.
	PolicyRampMultiplier Policy = "ramp_multiplier"
	// PolicyCompoundBuff grants every entry of Effects at once.
	PolicyCompoundBuff Policy = "compound_buff"
	// PolicyScript delegates to a Lua function in the item's script.
	PolicyScript Policy = "script"
)

type hookSlot string

const (
	slotOnHit    hookSlot = "on_hit"
	slotOnDamage hookSlot = "on_damage"
	slotActive   hookSlot = "active"
)

// policySlots lists which hook slots each policy may fill.
var policySlots = map[Policy]map[hookSlot]bool{
	PolicyCooldownFlatDamage:       {slotOnHit: true},
	PolicyAttackerHealthMultiplier: {slotOnHit: true},
	PolicyDefenderHealthMultiplier: {slotOnHit: true},
	PolicyRangeMultiplier:          {slotOnHit: true},
	PolicyCooldownBuff:             {slotOnHit: true},
	PolicyRampMultiplier:           {slotOnHit: true},
	PolicyCompoundBuff:             {slotActive: true},
	PolicyScript:                   {slotOnHit: true, slotOnDamage: true, slotActive: true},
}

// EffectSpec is one grant of a compound hook.
type EffectSpec struct {
	Kind      EffectKind `yaml:"kind"`
	Magnitude float64    `yaml:"magnitude"`
	Duration  float64    `yaml:"duration"`
}

// HookSpec parameterises a Policy for one hook slot of an item.
type HookSpec struct {
	Policy    Policy       `yaml:"policy"`
	Kind      EffectKind   `yaml:"kind"`
	Amount    float64      `yaml:"amount"`
	Threshold float64      `yaml:"threshold"`
	Duration  float64      `yaml:"duration"`
	Ramp      float64      `yaml:"ramp"`
	Effects   []EffectSpec `yaml:"effects"`
}

func (s *HookSpec) validate(slot hookSlot, cooldown float64) error {
	slots, ok := policySlots[s.Policy]
	if !ok {
		return fmt.Errorf("unknown policy %q", s.Policy)
	}
	if !slots[slot] {
		return fmt.Errorf("policy %q cannot be used as %s", s.Policy, slot)
	}
	switch s.Policy {
	case PolicyCooldownFlatDamage:
		if s.Amount <= 0 {
			return errors.New("amount must be > 0")
		}
		if cooldown <= 0 {
			return errors.New("item cooldown must be > 0")
		}
	case PolicyAttackerHealthMultiplier, PolicyDefenderHealthMultiplier:
		if s.Threshold < 0 || s.Threshold > 1 {
			return fmt.Errorf("threshold must be within [0, 1], got %g", s.Threshold)
		}
	case PolicyRangeMultiplier:
		if s.Threshold < 0 {
			return errors.New("threshold must be >= 0")
		}
	case PolicyCooldownBuff:
		if !s.Kind.Timed() {
			return fmt.Errorf("kind must be a timed buff, got %q", s.Kind)
		}
		if s.Amount <= 0 || s.Duration <= 0 {
			return errors.New("amount and duration must be > 0")
		}
		if cooldown <= 0 {
			return errors.New("item cooldown must be > 0")
		}
	case PolicyRampMultiplier:
		if s.Amount <= 0 || s.Ramp <= 0 {
			return errors.New("amount and ramp must be > 0")
		}
	case PolicyCompoundBuff:
		if len(s.Effects) == 0 {
			return errors.New("effects must not be empty")
		}
		for i, e := range s.Effects {
			if !e.Kind.Timed() {
				return fmt.Errorf("effects[%d]: kind must be a timed buff, got %q", i, e.Kind)
			}
			if e.Magnitude <= 0 || e.Duration <= 0 {
				return fmt.Errorf("effects[%d]: magnitude and duration must be > 0", i)
			}
		}
	}
	return nil
}

func (s *HookSpec) hitHook() HitHook {
	spec := *s
	switch spec.Policy {
	case PolicyCooldownFlatDamage:
		return CooldownFlatDamage(spec.Amount)
	case PolicyAttackerHealthMultiplier:
		return AttackerHealthMultiplier(spec.Amount, spec.Threshold)
	case PolicyDefenderHealthMultiplier:
		return DefenderHealthMultiplier(spec.Amount, spec.Threshold)
	case PolicyRangeMultiplier:
		return RangeMultiplier(spec.Amount, spec.Threshold)
	case PolicyCooldownBuff:
		return CooldownBuff(spec.Kind, spec.Amount, spec.Duration)
	case PolicyRampMultiplier:
		return RampMultiplier(spec.Amount, spec.Ramp)
	case PolicyScript:
		return scriptHit
	}
	return nil
}

func (s *HookSpec) damageHook() DamageHook {
	if s.Policy == PolicyScript {
		return scriptDamage
	}
	return nil
}

func (s *HookSpec) activeHook() ActiveHook {
	switch s.Policy {
	case PolicyCompoundBuff:
		effects := make([]Effect, len(s.Effects))
		for i, e := range s.Effects {
			effects[i] = Effect{Kind: e.Kind, Magnitude: e.Magnitude, Duration: e.Duration}
		}
		return CompoundBuff(effects...)
	case PolicyScript:
		return scriptActive
	}
	return nil
}

// CooldownFlatDamage grants amount bonus damage on the first invocation and
// again whenever the item's cooldown has fully elapsed since the last grant.
// The item is stamped only on a successful grant.
func CooldownFlatDamage(amount float64) HitHook {
	return func(self *Item, ctx HitContext) Effect {
		if !self.Ready(ctx.Now) {
			return Effect{Kind: BonusFlatDamage}
		}
		self.Stamp(ctx.Now)
		return Effect{Kind: BonusFlatDamage, Magnitude: amount}
	}
}

// AttackerHealthMultiplier grants pct weapon damage while the attacker's
// health ratio is strictly above threshold.
func AttackerHealthMultiplier(pct, threshold float64) HitHook {
	return func(_ *Item, ctx HitContext) Effect {
		if ctx.Attacker.HealthRatio() > threshold {
			return Effect{Kind: WeaponDamageMultiplier, Magnitude: pct}
		}
		return Effect{Kind: WeaponDamageMultiplier}
	}
}

// DefenderHealthMultiplier grants pct weapon damage while the defender's
// health ratio is strictly above threshold.
func DefenderHealthMultiplier(pct, threshold float64) HitHook {
	return func(_ *Item, ctx HitContext) Effect {
		if ctx.Defender.HealthRatio() > threshold {
			return Effect{Kind: WeaponDamageMultiplier, Magnitude: pct}
		}
		return Effect{Kind: WeaponDamageMultiplier}
	}
}

// RangeMultiplier grants pct weapon damage while the attacker is at least
// minDistance from its target.
func RangeMultiplier(pct, minDistance float64) HitHook {
	return func(_ *Item, ctx HitContext) Effect {
		if ctx.Attacker.TargetDistance() >= minDistance {
			return Effect{Kind: WeaponDamageMultiplier, Magnitude: pct}
		}
		return Effect{Kind: WeaponDamageMultiplier}
	}
}

// CooldownBuff grants a timed buff of kind, gated like CooldownFlatDamage.
func CooldownBuff(kind EffectKind, magnitude, duration float64) HitHook {
	return func(self *Item, ctx HitContext) Effect {
		if !self.Ready(ctx.Now) {
			return Effect{Kind: kind}
		}
		self.Stamp(ctx.Now)
		return Effect{Kind: kind, Magnitude: magnitude, Duration: duration}
	}
}

// RampMultiplier records the first invocation time and thereafter grants
// weapon damage growing linearly from 0 to maxPct over ramp seconds, clamped
// at maxPct. It never resets within a run.
func RampMultiplier(maxPct, ramp float64) HitHook {
	return func(self *Item, ctx HitContext) Effect {
		if !self.Triggered() {
			self.Stamp(ctx.Now)
		}
		start, _ := self.LastTriggered()
		elapsed := ctx.Now - start
		return Effect{Kind: WeaponDamageMultiplier, Magnitude: math.Min(maxPct*elapsed/ramp, maxPct)}
	}
}

// CompoundBuff returns an active hook granting all effects at once.
func CompoundBuff(effects ...Effect) ActiveHook {
	return func(_ *Item, _ HitContext) []Effect {
		out := make([]Effect, len(effects))
		copy(out, effects)
		return out
	}
}

// Script hooks receive (self, ctx) tables and return effect tables of the form
// {kind = "...", magnitude = n, duration = n}. Script globals persist for the
// lifetime of the item instance.

func scriptArgs(self *Item, ctx HitContext) []lua.LValue {
	selfFields := map[string]float64{"cooldown": self.Def.Cooldown}
	ctxFields := map[string]float64{
		"now":                   ctx.Now,
		"attacker_health_ratio": ctx.Attacker.HealthRatio(),
		"defender_health_ratio": ctx.Defender.HealthRatio(),
		"distance":              ctx.Attacker.TargetDistance(),
	}
	return []lua.LValue{self.vm.Table(selfFields), self.vm.Table(ctxFields)}
}

func scriptHit(self *Item, ctx HitContext) Effect {
	if self.vm == nil {
		return Effect{}
	}
	ret := self.vm.Call(string(slotOnHit), 1, scriptArgs(self, ctx)...)
	if len(ret) == 0 {
		return Effect{}
	}
	e, _ := effectFromLua(ret[0])
	return e
}

func scriptDamage(self *Item, ctx HitContext) {
	if self.vm == nil {
		return
	}
	self.vm.Call(string(slotOnDamage), 0, scriptArgs(self, ctx)...)
}

func scriptActive(self *Item, ctx HitContext) []Effect {
	if self.vm == nil {
		return nil
	}
	ret := self.vm.Call(string(slotActive), 1, scriptArgs(self, ctx)...)
	if len(ret) == 0 {
		return nil
	}
	list, ok := ret[0].(*lua.LTable)
	if !ok {
		return nil
	}
	var out []Effect
	list.ForEach(func(_, v lua.LValue) {
		if e, ok := effectFromLua(v); ok {
			out = append(out, e)
		}
	})
	return out
}

// effectFromLua converts a script result table. Unknown kinds and non-table
// values yield a zero Effect and false.
func effectFromLua(v lua.LValue) (Effect, bool) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return Effect{}, false
	}
	kind := EffectKind(lua.LVAsString(t.RawGetString("kind")))
	if !kind.Valid() {
		return Effect{}, false
	}
	return Effect{
		Kind:      kind,
		Magnitude: float64(lua.LVAsNumber(t.RawGetString("magnitude"))),
		Duration:  float64(lua.LVAsNumber(t.RawGetString("duration"))),
	}, true
}
