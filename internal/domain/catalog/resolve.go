package catalog

import "github.com/MRamiBalles/ReactorIdle/server/internal/domain/rules"

// Tier records which fallback level produced an enemy.
type Tier string

const (
	TierSubRegion Tier = "subRegion"
	TierRegion    Tier = "region"
	TierLegacy    Tier = "legacy"
)

// ResolveEnemy picks an enemy for a region. Candidates are tried in order:
// enemies matching the sub-region (or with no sub-region) and boss flag,
// then any enemy of the region with the boss flag, then the region's
// legacy weighted table. Uniform picks use rnd.Intn, the legacy table
// uses rnd.Float64.
func (c *Catalog) ResolveEnemy(regionID, subRegionID string, isBoss bool, rnd rules.Rand) (Enemy, Tier, bool) {
	var inRegion, inSub []string
	for _, id := range c.enemyOrder {
		e := c.enemies[id]
		if e.RegionID != regionID || e.IsBoss != isBoss {
			continue
		}
		inRegion = append(inRegion, id)
		if e.SubRegionID == "" || e.SubRegionID == subRegionID {
			inSub = append(inSub, id)
		}
	}

	if len(inSub) > 0 {
		return c.enemies[inSub[rnd.Intn(len(inSub))]].clone(), TierSubRegion, true
	}
	if len(inRegion) > 0 {
		return c.enemies[inRegion[rnd.Intn(len(inRegion))]].clone(), TierRegion, true
	}

	r, ok := c.regions[regionID]
	if !ok || len(r.LegacyEnemies) == 0 {
		return Enemy{}, "", false
	}
	weights := make([]float64, len(r.LegacyEnemies))
	for i, w := range r.LegacyEnemies {
		weights[i] = w.Weight
	}
	idx := rules.WeightedIndex(weights, rnd.Float64())
	if idx < 0 {
		return Enemy{}, "", false
	}
	e, ok := c.enemies[r.LegacyEnemies[idx].EnemyID]
	if !ok {
		return Enemy{}, "", false
	}
	return e.clone(), TierLegacy, true
}
