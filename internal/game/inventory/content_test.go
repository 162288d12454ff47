// Package inventory_test contains completeness tests for the shipped item
// catalog.
package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dpsim/internal/game/inventory"
)

const (
	contentItems   = "../../../content/items"
	contentScripts = "../../../content/scripts"
)

func loadContent(t *testing.T) *inventory.Registry {
	t.Helper()
	reg, err := inventory.LoadCatalog(contentItems, contentScripts, zap.NewNop())
	require.NoError(t, err, "content/items should load without error")
	return reg
}

func TestContent_CatalogLoads(t *testing.T) {
	reg := loadContent(t)
	for _, id := range []string{
		"basic_magazine", "headshot_booster", "high_velocity_mag", "hollow_point_ward",
		"rapid_rounds", "restorative_shot", "long_range", "swift_striker",
		"burst_fire", "intensifying_magazine", "pristine_emblem", "sharpshooter",
		"glass_cannon", "vampiric_burst", "mystic_shot", "soul_shredder_bullets", "warp_stone",
	} {
		_, ok := reg.Item(id)
		assert.True(t, ok, "missing item %q", id)
	}
}

// TestContent_CostMatchesTier verifies every item is priced at its tier's cost.
func TestContent_CostMatchesTier(t *testing.T) {
	tierCost := map[int]int{1: 500, 2: 1250, 3: 3000, 4: 6200}
	for _, d := range loadContent(t).All() {
		assert.Equal(t, tierCost[d.Tier], d.Cost, "item %q tier %d", d.ID, d.Tier)
	}
}

// TestContent_AllItemsInstantiate verifies every catalog item yields a usable
// instance, scripts included.
func TestContent_AllItemsInstantiate(t *testing.T) {
	for _, d := range loadContent(t).All() {
		it, err := inventory.NewItem(d)
		require.NoError(t, err, "item %q", d.ID)
		if d.OnHit != nil {
			assert.NotNil(t, it.OnHit, "item %q on_hit", d.ID)
		}
		if d.OnDamage != nil {
			assert.NotNil(t, it.OnDamage, "item %q on_damage", d.ID)
		}
		if d.Active != nil {
			assert.NotNil(t, it.Active, "item %q active", d.ID)
		}
		it.Release()
	}
}

func TestContent_MysticShotScriptThrottles(t *testing.T) {
	d, ok := loadContent(t).Item("mystic_shot")
	require.True(t, ok)
	it, err := inventory.NewItem(d)
	require.NoError(t, err)
	defer it.Release()

	assert.Equal(t, 65.0, it.OnHit(it, ctxAt(0)).Magnitude)
	assert.True(t, it.OnHit(it, ctxAt(6)).None())
	assert.Equal(t, 65.0, it.OnHit(it, ctxAt(6.5)).Magnitude)
}

func TestContent_SoulShredderStacks(t *testing.T) {
	d, ok := loadContent(t).Item("soul_shredder_bullets")
	require.True(t, ok)
	it, err := inventory.NewItem(d)
	require.NoError(t, err)
	defer it.Release()

	assert.True(t, it.OnHit(it, ctxAt(0)).None())
	for i := 0; i < 20; i++ {
		it.OnDamage(it, ctxAt(float64(i)))
	}
	assert.InDelta(t, 0.12, it.OnHit(it, ctxAt(20)).Magnitude, 1e-9)
}
