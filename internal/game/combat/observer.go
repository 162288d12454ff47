package combat

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ShotEvent describes one fire action.
type ShotEvent struct {
	RunID    uuid.UUID
	Time     float64
	Shooter  string
	AmmoLeft int
	// FireRate is the rate used to schedule the next shot.
	FireRate float64
}

// DamageEvent describes one damage resolution.
type DamageEvent struct {
	RunID          uuid.UUID
	Time           float64
	Multiplier     float64
	FlatDamage     float64
	Damage         float64
	DefenderHealth float64
}

// BuffEvent describes a buff grant or expiry.
type BuffEvent struct {
	RunID uuid.UUID
	Time  float64
	Buff  Buff
}

// Observer receives simulator extension points. Implementations must not
// mutate the simulation.
type Observer interface {
	ShotFired(ShotEvent)
	DamageResolved(DamageEvent)
	BuffApplied(BuffEvent)
	BuffExpired(BuffEvent)
	CombatEnded(Result)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) ShotFired(ShotEvent)        {}
func (NopObserver) DamageResolved(DamageEvent) {}
func (NopObserver) BuffApplied(BuffEvent)      {}
func (NopObserver) BuffExpired(BuffEvent)      {}
func (NopObserver) CombatEnded(Result)         {}

// LoggedObserver writes each event as a structured debug line.
type LoggedObserver struct {
	logger *zap.Logger
}

// NewLoggedObserver returns an Observer logging to logger.
//
// Precondition: logger must be non-nil.
func NewLoggedObserver(logger *zap.Logger) *LoggedObserver {
	if logger == nil {
		panic("combat: NewLoggedObserver: logger must not be nil")
	}
	return &LoggedObserver{logger: logger}
}

func (o *LoggedObserver) ShotFired(e ShotEvent) {
	o.logger.Debug("shot fired",
		zap.Stringer("run_id", e.RunID),
		zap.Float64("t", e.Time),
		zap.String("shooter", e.Shooter),
		zap.Int("ammo_left", e.AmmoLeft),
		zap.Float64("fire_rate", e.FireRate),
	)
}

func (o *LoggedObserver) DamageResolved(e DamageEvent) {
	o.logger.Debug("damage resolved",
		zap.Stringer("run_id", e.RunID),
		zap.Float64("t", e.Time),
		zap.Float64("multiplier", e.Multiplier),
		zap.Float64("flat", e.FlatDamage),
		zap.Float64("damage", e.Damage),
		zap.Float64("defender_health", e.DefenderHealth),
	)
}

func (o *LoggedObserver) BuffApplied(e BuffEvent) {
	o.logger.Debug("buff applied", buffFields(e)...)
}

func (o *LoggedObserver) BuffExpired(e BuffEvent) {
	o.logger.Debug("buff expired", buffFields(e)...)
}

func buffFields(e BuffEvent) []zap.Field {
	return []zap.Field{
		zap.Stringer("run_id", e.RunID),
		zap.Float64("t", e.Time),
		zap.String("target", e.Buff.Target.Name),
		zap.String("kind", string(e.Buff.Kind)),
		zap.Float64("magnitude", e.Buff.Magnitude),
		zap.Float64("expiry", e.Buff.Expiry),
	}
}

func (o *LoggedObserver) CombatEnded(r Result) {
	o.logger.Info("combat ended",
		zap.Stringer("run_id", r.RunID),
		zap.Stringer("outcome", r.Outcome),
		zap.Float64("elapsed", r.Elapsed),
		zap.Int("attacks", r.TotalAttacks),
		zap.Float64("damage", r.TotalDamage),
		zap.Float64("dps", r.DPS),
	)
}

// Recorder keeps every event in memory, in order. It is not safe for
// concurrent use.
type Recorder struct {
	Shots   []ShotEvent
	Damage  []DamageEvent
	Applied []BuffEvent
	Expired []BuffEvent
	Ended   []Result
}

func (r *Recorder) ShotFired(e ShotEvent)        { r.Shots = append(r.Shots, e) }
func (r *Recorder) DamageResolved(e DamageEvent) { r.Damage = append(r.Damage, e) }
func (r *Recorder) BuffApplied(e BuffEvent)      { r.Applied = append(r.Applied, e) }
func (r *Recorder) BuffExpired(e BuffEvent)      { r.Expired = append(r.Expired, e) }
func (r *Recorder) CombatEnded(res Result)       { r.Ended = append(r.Ended, res) }

// Observers fans each event out to every element in order.
type Observers []Observer

func (os Observers) ShotFired(e ShotEvent) {
	for _, o := range os {
		o.ShotFired(e)
	}
}

func (os Observers) DamageResolved(e DamageEvent) {
	for _, o := range os {
		o.DamageResolved(e)
	}
}

func (os Observers) BuffApplied(e BuffEvent) {
	for _, o := range os {
		o.BuffApplied(e)
	}
}

func (os Observers) BuffExpired(e BuffEvent) {
	for _, o := range os {
		o.BuffExpired(e)
	}
}

func (os Observers) CombatEnded(r Result) {
	for _, o := range os {
		o.CombatEnded(r)
	}
}
