// Package build enumerates and scores item builds by running one combat
// simulation per build.
package build

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/dpsim/internal/game/combat"
	"github.com/cory-johannsen/dpsim/internal/game/inventory"
)

// Build is an ordered set of item definitions equipped together.
type Build []*inventory.ItemDef

// TotalCost returns the summed soul cost of b.
func (b Build) TotalCost() int {
	total := 0
	for _, d := range b {
		total += d.Cost
	}
	return total
}

// IDs returns the item IDs in order.
func (b Build) IDs() []string {
	out := make([]string, len(b))
	for i, d := range b {
		out[i] = d.ID
	}
	return out
}

// Names returns the item display names in order.
func (b Build) Names() []string {
	out := make([]string, len(b))
	for i, d := range b {
		out[i] = d.Name
	}
	return out
}

// Contains reports whether an item with id is in b.
func (b Build) Contains(id string) bool {
	for _, d := range b {
		if d.ID == id {
			return true
		}
	}
	return false
}

// Combinations returns every k-element subset of items, each in items order,
// with subsets in lexicographic index order.
//
// Postcondition: returns nil when k < 1 or k > len(items).
func Combinations(items []*inventory.ItemDef, k int) []Build {
	n := len(items)
	if k < 1 || k > n {
		return nil
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	var out []Build
	for {
		b := make(Build, k)
		for i, j := range idx {
			b[i] = items[j]
		}
		out = append(out, b)

		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return out
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// Score is the simulated result of one build.
type Score struct {
	// Index is the build's position in the slice passed to Evaluate.
	Index  int
	Build  Build
	Cost   int
	Result combat.Result
}

// Value returns DPS per soul spent, or 0 for a free build.
func (s Score) Value() float64 {
	if s.Cost <= 0 {
		return 0
	}
	return s.Result.DPS / float64(s.Cost)
}

// RunFunc simulates one build. It must construct fresh combatants and item
// instances on every call, since calls run concurrently.
type RunFunc func(ctx context.Context, b Build) (combat.Result, error)

// NewRunner returns a RunFunc pitting an attacker with base stats attacker
// and the build against a bare defender. opts.Observer, if set, is shared by
// every run and must be safe for concurrent use.
//
// Postcondition: the returned RunFunc fails fast on invalid stats.
func NewRunner(attackerName string, attacker combat.BaseStats, defenderName string, defender combat.BaseStats, opts combat.Options) RunFunc {
	return func(ctx context.Context, b Build) (combat.Result, error) {
		if err := ctx.Err(); err != nil {
			return combat.Result{}, err
		}
		items, err := inventory.NewInstances(b)
		if err != nil {
			return combat.Result{}, err
		}
		defer inventory.ReleaseAll(items)

		a, err := combat.NewHero(attackerName, attacker, items)
		if err != nil {
			return combat.Result{}, err
		}
		defer a.Release()
		d, err := combat.NewHero(defenderName, defender, nil)
		if err != nil {
			return combat.Result{}, err
		}
		sim, err := combat.NewSimulator(a, d, opts)
		if err != nil {
			return combat.Result{}, err
		}
		return sim.Run(), nil
	}
}

// Evaluate scores builds with at most workers concurrent runs. The first
// failing run cancels the rest.
//
// Precondition: workers >= 1; run is non-nil.
// Postcondition: on success result[i] scores builds[i].
func Evaluate(ctx context.Context, builds []Build, run RunFunc, workers int) ([]Score, error) {
	if run == nil {
		return nil, errors.New("build: Evaluate: run must not be nil")
	}
	if workers < 1 {
		return nil, fmt.Errorf("build: Evaluate: workers must be >= 1, got %d", workers)
	}
	scores := make([]Score, len(builds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, b := range builds {
		i, b := i, b
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := run(gctx, b)
			if err != nil {
				return fmt.Errorf("build %v: %w", b.IDs(), err)
			}
			scores[i] = Score{Index: i, Build: b, Cost: b.TotalCost(), Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// Best returns the highest-DPS score costing at most budget; budget 0 means
// unlimited. Ties keep the earliest score.
//
// Postcondition: ok is false iff no score fits the budget.
func Best(scores []Score, budget int) (best Score, ok bool) {
	for _, s := range scores {
		if budget > 0 && s.Cost > budget {
			continue
		}
		if !ok || s.Result.DPS > best.Result.DPS {
			best, ok = s, true
		}
	}
	return best, ok
}

// Replacement is current with the item at Index swapped for With.
type Replacement struct {
	Index    int
	Replaced *inventory.ItemDef
	With     *inventory.ItemDef
	Build    Build
}

// Replacements returns every build formed by swapping one item of current for
// a pool item that is not already equipped and costs at least as much.
//
// Postcondition: each result differs from current in exactly one position.
func Replacements(current Build, pool []*inventory.ItemDef) []Replacement {
	var out []Replacement
	for i, old := range current {
		for _, p := range pool {
			if current.Contains(p.ID) || p.Cost < old.Cost {
				continue
			}
			b := make(Build, len(current))
			copy(b, current)
			b[i] = p
			out = append(out, Replacement{Index: i, Replaced: old, With: p, Build: b})
		}
	}
	return out
}

// SortByDPS orders scores by descending DPS, keeping input order on ties.
func SortByDPS(scores []Score) {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Result.DPS > scores[j].Result.DPS
	})
}

// SortByTotalDamage orders scores by descending total damage, keeping input
// order on ties.
func SortByTotalDamage(scores []Score) {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Result.TotalDamage > scores[j].Result.TotalDamage
	})
}
