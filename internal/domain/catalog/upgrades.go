package catalog

import (
	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/rules"
	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
)

// Upgrade is a purchasable improvement to one category. Apply recomputes
// only the fields this upgrade owns from its level.
type Upgrade struct {
	ID           string
	Category     state.CategoryID
	Name         string
	Description  string
	CostResource state.ResourceType
	Cost         rules.CostFormula
	MaxLevel     int  // 0 means unlimited
	Unlocks      bool // purchasable while its category is still locked
	Apply        func(s *state.GameState, level int)
}

// CostFor prices the next level against the owning category.
func (u Upgrade) CostFor(s *state.GameState) float64 {
	c, ok := s.Category(u.Category)
	if !ok {
		return 0
	}
	return u.Cost(c.Level(u.ID), c.Stats.Capacity)
}

// Capped reports whether level is already at the maximum.
func (u Upgrade) Capped(level int) bool {
	return u.MaxLevel > 0 && level >= u.MaxLevel
}

func setStat(id state.CategoryID, set func(*state.Stats, float64), per float64, base float64) func(*state.GameState, int) {
	return func(s *state.GameState, level int) {
		if c, ok := s.Category(id); ok {
			set(&c.Stats, base+per*float64(level))
		}
	}
}

func capacity(st *state.Stats, v float64)  { st.Capacity = v }
func perSecond(st *state.Stats, v float64) { st.PerSecond = v }
func perClick(st *state.Stats, v float64)  { st.PerClick = v }

var upgradeRegistry = []Upgrade{
	// reactor
	{
		ID:           "reactorExpansions",
		Category:     state.Reactor,
		Name:         "Reactor Expansions",
		Description:  "Larger containment, more stored energy.",
		CostResource: state.Energy,
		Cost:         rules.ProportionalToCapacity(0.8),
		Apply:        setStat(state.Reactor, capacity, 100, 100),
	},
	{
		ID:           "energyConverters",
		Category:     state.Reactor,
		Name:         "Energy Converters",
		Description:  "Generates energy passively.",
		CostResource: state.Energy,
		Cost:         rules.LinearInLevel(20),
		Apply:        setStat(state.Reactor, perSecond, 1, 0),
	},
	{
		ID:           "manualOverride",
		Category:     state.Reactor,
		Name:         "Manual Override",
		Description:  "Each manual cycle yields more energy.",
		CostResource: state.Energy,
		Cost:         rules.QuadraticInLevel(15),
		MaxLevel:     10,
		Apply:        setStat(state.Reactor, perClick, 1, 1),
	},

	// processor
	{
		ID:           "mainframeExpansions",
		Category:     state.Processor,
		Name:         "Mainframe Expansions",
		Description:  "More memory banks for stored insight.",
		CostResource: state.Insight,
		Cost:         rules.ProportionalToCapacity(0.8),
		Apply:        setStat(state.Processor, capacity, 50, 50),
	},
	{
		ID:           "processingThreads",
		Category:     state.Processor,
		Name:         "Processing Threads",
		Description:  "Background analysis produces insight.",
		CostResource: state.Insight,
		Cost:         rules.LinearInLevel(10),
		Apply:        setStat(state.Processor, perSecond, 0.5, 0),
	},
	{
		ID:           "navigationComputer",
		Category:     state.Processor,
		Name:         "Navigation Computer",
		Description:  "Unlocks the jump drive.",
		CostResource: state.Insight,
		Cost:         rules.Flat(40),
		MaxLevel:     1,
		Apply: func(s *state.GameState, level int) {
			s.Navigation.JumpUnlocked = level > 0
		},
	},
	{
		ID:           "automationProtocols",
		Category:     state.Processor,
		Name:         "Automation Protocols",
		Description:  "Automated systems click for you in every category.",
		CostResource: state.Insight,
		Cost:         rules.QuadraticInLevel(25),
		MaxLevel:     5,
		Apply: func(s *state.GameState, level int) {
			for _, id := range state.CategoryOrder {
				if c, ok := s.Category(id); ok {
					c.Stats.AutomationRate = 0.5 * float64(level)
				}
			}
		},
	},

	// crew quarters
	{
		ID:           "lifeSupport",
		Category:     state.CrewQuarters,
		Name:         "Life Support",
		Description:  "Makes the crew quarters habitable.",
		CostResource: state.Energy,
		Cost:         rules.Flat(60),
		MaxLevel:     1,
		Unlocks:      true,
		Apply: func(s *state.GameState, level int) {
			if c, ok := s.Category(state.CrewQuarters); ok {
				c.Unlocked = level > 0
			}
		},
	},
	{
		ID:           "additionalQuarters",
		Category:     state.CrewQuarters,
		Name:         "Additional Quarters",
		Description:  "Room for more crew.",
		CostResource: state.Crew,
		Cost:         rules.ProportionalToCapacity(0.8),
		Apply:        setStat(state.CrewQuarters, capacity, 10, 10),
	},
	{
		ID:           "crewTraining",
		Category:     state.CrewQuarters,
		Name:         "Crew Training",
		Description:  "Trained crew recruit others.",
		CostResource: state.Crew,
		Cost:         rules.LinearInLevel(5),
		Apply:        setStat(state.CrewQuarters, perSecond, 0.1, 0),
	},

	// manufacturing
	{
		ID:           "cargoHoldExpansions",
		Category:     state.Manufacturing,
		Name:         "Cargo Hold Expansions",
		Description:  "Stores more scrap.",
		CostResource: state.Scrap,
		Cost:         rules.ProportionalToCapacity(0.8),
		Apply:        setStat(state.Manufacturing, capacity, 100, 100),
	},
	{
		ID:           "manufacturingBays",
		Category:     state.Manufacturing,
		Name:         "Manufacturing Bays",
		Description:  "Automated fabrication of scrap.",
		CostResource: state.Scrap,
		Cost:         rules.QuadraticInLevel(10),
		Apply:        setStat(state.Manufacturing, perSecond, 0.5, 0),
	},
	{
		ID:           "deflectorShields",
		Category:     state.Manufacturing,
		Name:         "Deflector Shields",
		Description:  "Raises the ship's maximum shield.",
		CostResource: state.Scrap,
		Cost:         rules.LinearInLevel(30),
		MaxLevel:     5,
		Apply: func(s *state.GameState, level int) {
			s.Ship.MaxShield = state.BaseShip().MaxShield + 20*float64(level)
		},
	},
	{
		ID:           "hullPlating",
		Category:     state.Manufacturing,
		Name:         "Hull Plating",
		Description:  "Raises the ship's maximum hull.",
		CostResource: state.Scrap,
		Cost:         rules.LinearInLevel(40),
		MaxLevel:     5,
		Apply: func(s *state.GameState, level int) {
			s.Ship.MaxHealth = state.BaseShip().MaxHealth + 25*float64(level)
		},
	},
}
