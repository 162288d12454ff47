package combat

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cory-johannsen/dpsim/internal/game/event"
	"github.com/cory-johannsen/dpsim/internal/game/inventory"
)

// ErrOnCooldown is returned by TriggerActive when the item is still cooling down.
var ErrOnCooldown = errors.New("combat: active item is on cooldown")

// Options are the per-run knobs of a Simulator.
type Options struct {
	// TravelTime is the delay between a shot and its damage resolution.
	TravelTime float64
	// Distance is the static attacker-to-defender distance.
	Distance float64
	// Observer receives extension-point events; nil means NopObserver.
	Observer Observer
}

// Validate checks o for configuration errors.
func (o Options) Validate() error {
	var errs []error
	if o.TravelTime < 0 {
		errs = append(errs, fmt.Errorf("travel time must be >= 0, got %g", o.TravelTime))
	}
	if o.Distance < 0 {
		errs = append(errs, fmt.Errorf("distance must be >= 0, got %g", o.Distance))
	}
	return errors.Join(errs...)
}

// Simulator runs one attacker against one defender. A Simulator is single-use
// and single-threaded; run many builds by creating one Simulator, with fresh
// heroes, per run.
//
// Events at equal times execute in the order they were scheduled.
type Simulator struct {
	id       uuid.UUID
	attacker *Hero
	defender *Hero
	opts     Options
	obs      Observer

	queue *event.Queue
	buffs *BuffLedger
	now   float64

	stats   Stats
	started bool
	ended   bool
	result  Result
}

// NewSimulator prepares a run. It sets both heroes' target distance.
//
// Precondition: attacker and defender are distinct heroes not used by any
// other Simulator.
// Postcondition: returns an error if the attacker cannot deal damage or opts
// is invalid.
func NewSimulator(attacker, defender *Hero, opts Options) (*Simulator, error) {
	if attacker == nil || defender == nil {
		return nil, errors.New("combat: NewSimulator: attacker and defender must not be nil")
	}
	if attacker == defender {
		return nil, errors.New("combat: NewSimulator: attacker and defender must be distinct")
	}
	if attacker.Base.BulletDamage <= 0 {
		return nil, fmt.Errorf("combat: NewSimulator: attacker %q bullet damage must be > 0", attacker.Name)
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("combat: NewSimulator: %w", err)
	}
	obs := opts.Observer
	if obs == nil {
		obs = NopObserver{}
	}
	s := &Simulator{
		id:       uuid.New(),
		attacker: attacker,
		defender: defender,
		opts:     opts,
		obs:      obs,
		queue:    event.NewQueue(),
	}
	s.buffs = NewBuffLedger(s.queue, func(b Buff) {
		s.obs.BuffExpired(BuffEvent{RunID: s.id, Time: s.now, Buff: b})
	})
	attacker.SetTargetDistance(opts.Distance)
	defender.SetTargetDistance(opts.Distance)
	return s, nil
}

// RunID identifies this run in observer events and its Result.
func (s *Simulator) RunID() uuid.UUID { return s.id }

// Now returns the current simulated time.
func (s *Simulator) Now() float64 { return s.now }

// Stats returns the accumulated statistics. DPS is zero until the run ends.
func (s *Simulator) Stats() Stats { return s.stats }

// Buffs returns the run's buff ledger.
func (s *Simulator) Buffs() *BuffLedger { return s.buffs }

// Run seeds the first shot at time 0 and processes events until the defender
// dies, the attacker's last shot resolves, or the queue empties.
//
// Precondition: Run has not been called before on s (panics otherwise).
// Postcondition: the returned Result is final; DPS was computed exactly once.
func (s *Simulator) Run() Result {
	if s.started {
		panic("combat: Simulator.Run: simulator already run")
	}
	s.started = true
	s.queue.Schedule(0, s.fire)
	for !s.queue.IsEmpty() {
		ev := s.queue.PopEarliest()
		s.now = ev.Time
		ev.Action()
		if s.defender.IsDead() {
			s.finish(DefenderKilled)
		}
		if s.ended {
			break
		}
	}
	if !s.ended {
		if s.attacker.Magazine.IsEmpty() {
			s.finish(AmmoExhausted)
		} else {
			s.finish(QueueDrained)
		}
	}
	return s.result
}

// ScheduleActive triggers the attacker's active item itemID at simulated time
// at. An item still cooling down at that time grants nothing.
//
// Precondition: Run has not been called yet.
// Postcondition: returns an error if the attacker has no such active item.
func (s *Simulator) ScheduleActive(at float64, itemID string) error {
	if s.started {
		return errors.New("combat: Simulator.ScheduleActive: run already started")
	}
	if at < 0 {
		return fmt.Errorf("combat: Simulator.ScheduleActive: time must be >= 0, got %g", at)
	}
	if _, err := s.activeItem(itemID); err != nil {
		return err
	}
	s.queue.Schedule(at, func() { _ = s.TriggerActive(itemID) })
	return nil
}

// TriggerActive invokes the attacker's active item itemID at the current time
// and applies every timed effect it returns.
//
// Postcondition: returns ErrOnCooldown without side effects when the item's
// cooldown has not elapsed; the item is stamped on success.
func (s *Simulator) TriggerActive(itemID string) error {
	it, err := s.activeItem(itemID)
	if err != nil {
		return err
	}
	if !it.Ready(s.now) {
		return ErrOnCooldown
	}
	it.Stamp(s.now)
	for _, e := range it.Active(it, s.hitContext()) {
		if e.Kind.Timed() {
			s.applyBuff(e)
		}
	}
	return nil
}

func (s *Simulator) activeItem(itemID string) (*inventory.Item, error) {
	for _, it := range s.attacker.Items {
		if it.Def.ID == itemID && it.Active != nil {
			return it, nil
		}
	}
	return nil, fmt.Errorf("combat: attacker %q has no active item %q", s.attacker.Name, itemID)
}

func (s *Simulator) hitContext() inventory.HitContext {
	return inventory.HitContext{Attacker: s.attacker, Defender: s.defender, Now: s.now}
}

func (s *Simulator) applyBuff(e inventory.Effect) {
	if b, ok := s.buffs.Apply(s.attacker, e.Kind, e.Magnitude, e.Duration, s.now); ok {
		s.obs.BuffApplied(BuffEvent{RunID: s.id, Time: s.now, Buff: b})
	}
}

// fire spends one round, schedules its resolution and either the next shot
// or, on the last round, the end of combat once that round lands.
func (s *Simulator) fire() {
	a := s.attacker
	if err := a.Magazine.Consume(1); err != nil {
		panic(fmt.Sprintf("combat: Simulator.fire: %v", err))
	}
	hit := s.now + s.opts.TravelTime
	s.queue.Schedule(hit, s.resolve)

	rate := a.CurrentFireRate(s.buffs, s.now)
	if a.Magazine.IsEmpty() {
		s.queue.Schedule(hit, s.endOfMagazine)
	} else {
		s.queue.Schedule(s.now+1/rate, s.fire)
	}
	s.obs.ShotFired(ShotEvent{RunID: s.id, Time: s.now, Shooter: a.Name, AmmoLeft: a.Ammo(), FireRate: rate})
}

// resolve runs every on-hit hook against the same world state, folds their
// effects into one damage number, applies it, then runs on-damage hooks.
func (s *Simulator) resolve() {
	a, d := s.attacker, s.defender
	ctx := s.hitContext()

	effects := make([]inventory.Effect, 0, len(a.Items))
	for _, it := range a.Items {
		if it.OnHit != nil {
			effects = append(effects, it.OnHit(it, ctx))
		}
	}

	multiplier := 1 + a.WeaponDamageBonus()
	flat := 0.0
	for _, e := range effects {
		switch {
		case e.Kind == inventory.WeaponDamageMultiplier:
			multiplier += e.Magnitude
		case e.Kind == inventory.BonusFlatDamage:
			flat += e.Magnitude
		case e.Kind.Timed():
			s.applyBuff(e)
		}
	}

	// Script hooks can return negative magnitudes; a shot never heals.
	damage := max(0, a.Base.BulletDamage*multiplier+flat)
	d.ApplyDamage(damage)
	s.stats.TotalAttacks++
	s.stats.TotalDamage += damage
	s.obs.DamageResolved(DamageEvent{
		RunID:          s.id,
		Time:           s.now,
		Multiplier:     multiplier,
		FlatDamage:     flat,
		Damage:         damage,
		DefenderHealth: d.Health(),
	})

	for _, it := range a.Items {
		if it.OnDamage != nil {
			it.OnDamage(it, ctx)
		}
	}

	if d.IsDead() {
		s.queue.Schedule(s.now, s.endCombat)
	}
}

func (s *Simulator) endOfMagazine() { s.finish(AmmoExhausted) }

func (s *Simulator) endCombat() { s.finish(DefenderKilled) }

// finish computes DPS and records the result. Only the first call has any
// effect.
func (s *Simulator) finish(outcome Outcome) {
	if s.ended {
		return
	}
	s.ended = true
	s.stats.DPS = DPS(s.stats.TotalDamage, s.stats.TotalAttacks, s.now)
	s.result = Result{
		RunID:          s.id,
		Stats:          s.stats,
		Elapsed:        s.now,
		Outcome:        outcome,
		DefenderHealth: s.defender.Health(),
		AmmoLeft:       s.attacker.Ammo(),
	}
	s.obs.CombatEnded(s.result)
}
