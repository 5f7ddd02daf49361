package engine

import (
	"fmt"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/catalog"
	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
	"github.com/MRamiBalles/ReactorIdle/server/internal/events"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/logger"
)

// PurchaseResult reports a purchase attempt. A failed purchase mutates
// nothing.
type PurchaseResult struct {
	Success  bool    `json:"success"`
	Message  string  `json:"message"`
	Cost     float64 `json:"cost"`
	NewLevel int     `json:"newLevel"`
}

// UpgradeSystem validates purchases and derives category stats from
// upgrade levels.
type UpgradeSystem struct {
	bus     *events.Bus
	logger  *logger.Logger
	catalog *catalog.Catalog
}

// NewUpgradeSystem creates the upgrade engine.
func NewUpgradeSystem(bus *events.Bus, log *logger.Logger, cat *catalog.Catalog) *UpgradeSystem {
	return &UpgradeSystem{
		bus:     bus,
		logger:  log.With("upgrades"),
		catalog: cat,
	}
}

// Purchase buys the next level of an upgrade.
func (us *UpgradeSystem) Purchase(s *state.GameState, category state.CategoryID, upgradeID string) PurchaseResult {
	def, found := us.catalog.Upgrade(category, upgradeID)
	if !found {
		return PurchaseResult{Message: fmt.Sprintf("Unknown upgrade %s/%s", category, upgradeID)}
	}
	c, found := s.Category(category)
	if !found {
		us.logger.Warnf("category %s missing during purchase", category)
		return PurchaseResult{Message: fmt.Sprintf("Unknown category %q", category)}
	}
	if !c.Unlocked && !def.Unlocks {
		return PurchaseResult{Message: fmt.Sprintf("%s is locked", category)}
	}

	level := c.Level(upgradeID)
	if def.Capped(level) {
		return PurchaseResult{Message: fmt.Sprintf("%s is already at max level", def.Name), NewLevel: level}
	}

	cost := def.CostFor(s)
	if have := amountOf(s, def.CostResource); have < cost {
		return PurchaseResult{
			Message:  fmt.Sprintf("Not enough %s: need %g, have %g", def.CostResource, cost, have),
			Cost:     cost,
			NewLevel: level,
		}
	}

	spend(us.bus, def.CostResource, cost, events.SourceUpgrade)
	c.Upgrades[upgradeID] = level + 1
	def.Apply(s, level+1)
	us.clampShip(s)

	us.logger.Event(string(events.EventTypeUpgradePurchased), string(category),
		fmt.Sprintf("%s -> level %d for %g %s", upgradeID, level+1, cost, def.CostResource))
	us.bus.Publish(events.UpgradePurchased{
		Category:    category,
		UpgradeType: upgradeID,
		Level:       level + 1,
		Cost:        cost,
	})

	return PurchaseResult{
		Success:  true,
		Message:  fmt.Sprintf("%s upgraded to level %d", def.Name, level+1),
		Cost:     cost,
		NewLevel: level + 1,
	}
}

// UpdateAllStats resets every derived value to its base and re-applies
// every upgrade at its current level.
func (us *UpgradeSystem) UpdateAllStats(s *state.GameState) {
	for _, id := range state.CategoryOrder {
		c, ok := s.Category(id)
		if !ok {
			continue
		}
		c.Stats = state.BaseStats(id)
		if c.Upgrades == nil {
			c.Upgrades = make(map[string]int)
		}
	}
	base := state.BaseShip()
	s.Ship.MaxHealth = base.MaxHealth
	s.Ship.MaxShield = base.MaxShield

	for _, u := range us.catalog.Upgrades() {
		c, ok := s.Category(u.Category)
		if !ok {
			continue
		}
		u.Apply(s, c.Level(u.ID))
	}

	us.clampShip(s)
	for _, id := range state.CategoryOrder {
		if c, ok := s.Category(id); ok {
			if c.Amount > c.Stats.Capacity {
				c.Amount = c.Stats.Capacity
			}
			if c.Stats.AutomationRate <= 0 {
				c.Automated = false
			}
		}
	}
}

// Cost reports the price of the next level, for display.
func (us *UpgradeSystem) Cost(s *state.GameState, category state.CategoryID, upgradeID string) (float64, bool) {
	def, ok := us.catalog.Upgrade(category, upgradeID)
	if !ok {
		return 0, false
	}
	return def.CostFor(s), true
}

func (us *UpgradeSystem) clampShip(s *state.GameState) {
	if s.Ship.Health > s.Ship.MaxHealth {
		s.Ship.Health = s.Ship.MaxHealth
	}
	if s.Ship.Shield > s.Ship.MaxShield {
		s.Ship.Shield = s.Ship.MaxShield
	}
}
