package inventory

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Registry holds all loaded item definitions indexed by ID.
type Registry struct {
	items map[string]*ItemDef
}

// NewRegistry returns an empty Registry.
//
// Postcondition: the internal map is initialised.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]*ItemDef)}
}

// LoadCatalog loads every item under itemsDir into a new Registry.
//
// Precondition: itemsDir is a readable directory; logger is non-nil.
// Postcondition: returns a Registry holding every item, or the first load or
// duplicate-ID error.
func LoadCatalog(itemsDir, scriptsDir string, logger *zap.Logger) (*Registry, error) {
	defs, err := LoadItems(itemsDir, scriptsDir, logger)
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	for _, d := range defs {
		if err := r.RegisterItem(d); err != nil {
			return nil, err
		}
	}
	logger.Debug("item catalog loaded", zap.Int("items", len(defs)), zap.String("dir", itemsDir))
	return r, nil
}

// RegisterItem adds d to the registry.
//
// Precondition:  d must not be nil.
// Postcondition: Item(d.ID) returns (d, true); returns error if d.ID already registered.
func (r *Registry) RegisterItem(d *ItemDef) error {
	if _, exists := r.items[d.ID]; exists {
		return fmt.Errorf("inventory: Registry.RegisterItem: item ID %q already registered", d.ID)
	}
	r.items[d.ID] = d
	return nil
}

// Item returns the ItemDef for the given id and whether it was found.
//
// Postcondition: ok is true iff the id is registered.
func (r *Registry) Item(id string) (*ItemDef, bool) {
	d, ok := r.items[id]
	return d, ok
}

// Len returns the number of registered items.
func (r *Registry) Len() int { return len(r.items) }

// All returns every registered ItemDef ordered by tier, then ID.
//
// Postcondition: len(result) == Len(); the order is deterministic.
func (r *Registry) All() []*ItemDef {
	out := make([]*ItemDef, 0, len(r.items))
	for _, d := range r.items {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier < out[j].Tier
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Resolve looks up ids in order.
//
// Postcondition: result[i].ID == ids[i]; returns an error naming the first
// unknown id.
func (r *Registry) Resolve(ids []string) ([]*ItemDef, error) {
	out := make([]*ItemDef, 0, len(ids))
	for _, id := range ids {
		d, ok := r.items[id]
		if !ok {
			return nil, fmt.Errorf("inventory: Registry.Resolve: unknown item %q", id)
		}
		out = append(out, d)
	}
	return out, nil
}

// NewInstances creates one fresh Item per definition, preserving order.
// On error every instance created so far is released.
//
// Postcondition: len(result) == len(defs) and no two results share state.
func NewInstances(defs []*ItemDef) ([]*Item, error) {
	out := make([]*Item, 0, len(defs))
	for _, d := range defs {
		it, err := NewItem(d)
		if err != nil {
			ReleaseAll(out)
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

// ReleaseAll releases every item in items.
func ReleaseAll(items []*Item) {
	for _, it := range items {
		it.Release()
	}
}
