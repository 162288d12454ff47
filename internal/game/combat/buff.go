package combat

import (
	"fmt"

	"github.com/cory-johannsen/dpsim/internal/game/event"
	"github.com/cory-johannsen/dpsim/internal/game/inventory"
)

// Buff is a time-bounded additive grant to one combatant.
type Buff struct {
	Target    *Hero
	Kind      inventory.EffectKind
	Magnitude float64
	Granted   float64
	Expiry    float64
}

// Active reports whether b contributes at now. The bounds are exclusive on
// both sides, so a buff is invisible at the instant it is granted and at the
// instant it expires regardless of event order within that instant.
func (b Buff) Active(now float64) bool {
	return b.Granted < now && now < b.Expiry
}

// BuffLedger holds the active buffs of one run and schedules their expiry.
// It is not safe for concurrent use.
type BuffLedger struct {
	queue    *event.Queue
	buffs    []Buff
	onExpire func(Buff)
}

// NewBuffLedger returns an empty ledger scheduling expiries on q. onExpire, if
// non-nil, is called after each expiry removes its buff.
//
// Precondition: q must not be nil.
func NewBuffLedger(q *event.Queue, onExpire func(Buff)) *BuffLedger {
	if q == nil {
		panic("combat: NewBuffLedger: queue must not be nil")
	}
	return &BuffLedger{queue: q, onExpire: onExpire}
}

// Apply grants target a buff of kind for duration seconds starting at now and
// schedules its expiry.
//
// Postcondition: returns false and changes nothing unless magnitude > 0 and
// duration > 0.
func (l *BuffLedger) Apply(target *Hero, kind inventory.EffectKind, magnitude, duration, now float64) (Buff, bool) {
	if magnitude <= 0 || duration <= 0 {
		return Buff{}, false
	}
	b := Buff{Target: target, Kind: kind, Magnitude: magnitude, Granted: now, Expiry: now + duration}
	l.buffs = append(l.buffs, b)
	l.queue.Schedule(b.Expiry, func() {
		l.Remove(target, kind, magnitude)
		if l.onExpire != nil {
			l.onExpire(b)
		}
	})
	return b, true
}

// Remove deletes the earliest-expiring buff matching target, kind and
// magnitude exactly. Equal grants are tracked and removed one at a time.
//
// Precondition: a matching buff is held (panics otherwise).
func (l *BuffLedger) Remove(target *Hero, kind inventory.EffectKind, magnitude float64) {
	idx := -1
	for i, b := range l.buffs {
		if b.Target != target || b.Kind != kind || b.Magnitude != magnitude {
			continue
		}
		if idx < 0 || b.Expiry < l.buffs[idx].Expiry {
			idx = i
		}
	}
	if idx < 0 {
		panic(fmt.Sprintf("combat: BuffLedger.Remove: no %s buff of %g held by %q", kind, magnitude, target.Name))
	}
	l.buffs = append(l.buffs[:idx], l.buffs[idx+1:]...)
}

// Sum returns the total magnitude of target's buffs of kind active at now.
// A nil ledger sums to zero.
func (l *BuffLedger) Sum(target *Hero, kind inventory.EffectKind, now float64) float64 {
	if l == nil {
		return 0
	}
	total := 0.0
	for _, b := range l.buffs {
		if b.Target == target && b.Kind == kind && b.Active(now) {
			total += b.Magnitude
		}
	}
	return total
}

// Len returns the number of held buffs, including any not yet active.
func (l *BuffLedger) Len() int { return len(l.buffs) }
