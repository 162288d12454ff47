// Package inventory provides the item (modifier) catalog consumed by the
// combat simulator: static stat bonuses, triggered effect hooks, and the
// loaders that read them from YAML.
package inventory

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dpsim/internal/scripting"
)

// Slot constants for ItemDef.Slot.
const (
	SlotWeapon   = "weapon"
	SlotVitality = "vitality"
	SlotSpirit   = "spirit"
)

var validSlots = map[string]bool{
	SlotWeapon:   true,
	SlotVitality: true,
	SlotSpirit:   true,
}

// ItemDef defines the static properties of an item loaded from YAML.
// An ItemDef is immutable once loaded and may be shared across goroutines;
// all mutable trigger state lives on the Item instances created from it.
type ItemDef struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Slot string `yaml:"slot"`
	Tier int    `yaml:"tier"`
	// Cost is the purchase price in souls.
	Cost int `yaml:"cost"`

	// WeaponDamage is a fractional weapon damage bonus (0.15 = +15%).
	WeaponDamage float64 `yaml:"weapon_damage"`
	// FireRate is a fractional fire-rate bonus.
	FireRate float64 `yaml:"fire_rate"`
	// Ammo is a fractional ammo-capacity bonus.
	Ammo float64 `yaml:"ammo"`
	// Health is a flat bonus to maximum health.
	Health float64 `yaml:"health"`

	// Cooldown is the minimum simulated seconds between self-throttled grants.
	Cooldown float64 `yaml:"cooldown"`

	OnHit    *HookSpec `yaml:"on_hit"`
	OnDamage *HookSpec `yaml:"on_damage"`
	Active   *HookSpec `yaml:"active"`

	// Script is a Lua file, relative to the catalog scripts directory,
	// backing every hook whose policy is "script".
	Script string `yaml:"script"`

	program *scripting.Program
}

// Validate checks that the ItemDef satisfies its invariants.
//
// Precondition: d is non-nil.
// Postcondition: returns nil iff all fields are valid.
func (d *ItemDef) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("ID must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("Name must not be empty"))
	}
	if !validSlots[d.Slot] {
		errs = append(errs, fmt.Errorf("Slot must be one of weapon, vitality, spirit; got %q", d.Slot))
	}
	if d.Tier < 1 || d.Tier > 4 {
		errs = append(errs, fmt.Errorf("Tier must be 1-4, got %d", d.Tier))
	}
	if d.Cost < 0 {
		errs = append(errs, errors.New("Cost must be >= 0"))
	}
	if d.Cooldown < 0 {
		errs = append(errs, errors.New("Cooldown must be >= 0"))
	}
	needsScript := false
	for _, h := range []struct {
		slot hookSlot
		spec *HookSpec
	}{{slotOnHit, d.OnHit}, {slotOnDamage, d.OnDamage}, {slotActive, d.Active}} {
		if h.spec == nil {
			continue
		}
		if err := h.spec.validate(h.slot, d.Cooldown); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.slot, err))
		}
		if h.spec.Policy == PolicyScript {
			needsScript = true
		}
	}
	if needsScript && d.Script == "" {
		errs = append(errs, errors.New("Script is required when a hook uses the script policy"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("item validation failed: %v", errs)
	}
	return nil
}

// AttachProgram binds a compiled script to the definition. It is used by the
// loaders and by callers that build definitions in code.
//
// Precondition: called before any Item is instantiated from d.
func (d *ItemDef) AttachProgram(p *scripting.Program) { d.program = p }

// Item is one equipped instance of an ItemDef. It owns the mutable trigger
// state that self-throttled and ramping hooks keep between invocations, so an
// Item must be equipped by at most one combatant per simulation run.
type Item struct {
	Def        *ItemDef
	InstanceID string

	OnHit    HitHook
	OnDamage DamageHook
	Active   ActiveHook

	triggered     bool
	lastTriggered float64
	vm            *scripting.VM
}

// NewItem instantiates def with fresh trigger state and, when def is
// scripted, a private script VM.
//
// Precondition: def must be non-nil and valid.
// Postcondition: Returns an Item with Triggered() == false, or an error if the
// script fails to load.
func NewItem(def *ItemDef) (*Item, error) {
	if def == nil {
		return nil, errors.New("inventory: NewItem: def must not be nil")
	}
	it := &Item{Def: def, InstanceID: uuid.New().String()}
	if def.OnHit != nil {
		it.OnHit = def.OnHit.hitHook()
	}
	if def.OnDamage != nil {
		it.OnDamage = def.OnDamage.damageHook()
	}
	if def.Active != nil {
		it.Active = def.Active.activeHook()
	}
	if def.program != nil {
		vm, err := def.program.NewVM()
		if err != nil {
			return nil, fmt.Errorf("inventory: NewItem %q: %w", def.ID, err)
		}
		it.vm = vm
	}
	return it, nil
}

// Clone returns an independent instance with the same definition and hooks and
// reset trigger state.
//
// Postcondition: the clone shares no mutable state with it.
func (it *Item) Clone() (*Item, error) {
	c := &Item{
		Def:        it.Def,
		InstanceID: uuid.New().String(),
		OnHit:      it.OnHit,
		OnDamage:   it.OnDamage,
		Active:     it.Active,
	}
	if it.Def.program != nil {
		vm, err := it.Def.program.NewVM()
		if err != nil {
			return nil, fmt.Errorf("inventory: Clone %q: %w", it.Def.ID, err)
		}
		c.vm = vm
	}
	return c, nil
}

// Name returns the display name of the item.
func (it *Item) Name() string { return it.Def.Name }

// Triggered reports whether a throttled hook has ever stamped this item.
func (it *Item) Triggered() bool { return it.triggered }

// LastTriggered returns the last stamp and whether one exists.
func (it *Item) LastTriggered() (float64, bool) { return it.lastTriggered, it.triggered }

// Ready reports whether a self-throttled hook may grant at now: either it has
// never been stamped, or at least Def.Cooldown seconds have elapsed.
func (it *Item) Ready(now float64) bool {
	return !it.triggered || now-it.lastTriggered >= it.Def.Cooldown
}

// Stamp records now as the last trigger time.
func (it *Item) Stamp(now float64) {
	it.triggered = true
	it.lastTriggered = now
}

// Release frees the script VM, if any. The item must not be used afterwards.
func (it *Item) Release() {
	if it.vm != nil {
		it.vm.Close()
		it.vm = nil
	}
}

// LoadItems reads all *.yaml and *.yml files from dir, parses each as an
// ItemDef, validates it, compiles its script (resolved against scriptsDir) and
// returns the collected slice in directory order.
//
// Precondition: dir is a readable directory path; logger is non-nil.
// Postcondition: returns all valid ItemDefs or the first encountered error.
func LoadItems(dir, scriptsDir string, logger *zap.Logger) ([]*ItemDef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("LoadItems: cannot read directory %q: %w", dir, err)
	}

	var items []*ItemDef
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("LoadItems: cannot read file %q: %w", path, err)
		}
		var d ItemDef
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&d); err != nil {
			return nil, fmt.Errorf("LoadItems: cannot parse file %q: %w", path, err)
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("LoadItems: invalid item in %q: %w", path, err)
		}
		if d.Script != "" {
			prog, err := scripting.CompileFile(filepath.Join(scriptsDir, d.Script), scripting.DefaultInstructionLimit, logger)
			if err != nil {
				return nil, fmt.Errorf("LoadItems: item %q: %w", d.ID, err)
			}
			d.program = prog
		}
		items = append(items, &d)
	}
	return items, nil
}
