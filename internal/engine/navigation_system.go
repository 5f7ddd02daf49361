package engine

import (
	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/catalog"
	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
	"github.com/MRamiBalles/ReactorIdle/server/internal/events"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/logger"
)

// NavigationSystem moves the ship between regions.
type NavigationSystem struct {
	bus     *events.Bus
	logger  *logger.Logger
	catalog *catalog.Catalog
}

func NewNavigationSystem(bus *events.Bus, log *logger.Logger, cat *catalog.Catalog) *NavigationSystem {
	return &NavigationSystem{
		bus:     bus,
		logger:  log.With("navigation"),
		catalog: cat,
	}
}

// SelectRegion travels to a region's first sub-region. Regions stay locked
// until the region they require has been completed.
func (ns *NavigationSystem) SelectRegion(s *state.GameState, regionID string) ActionResult {
	region, ok := ns.catalog.Region(regionID)
	if !ok {
		return reject("Unknown region %q", regionID)
	}
	if s.Combat.Active() {
		return reject("Cannot change course during combat")
	}
	if s.Encounters.Active != nil {
		return reject("Resolve the current encounter first")
	}
	ns.ensure(s)
	if region.Requires != "" && !s.Navigation.CompletedRegions[region.Requires] {
		return reject("%s is locked until %s is cleared", region.Name, region.Requires)
	}

	s.Navigation.CurrentRegion = region.ID
	s.Navigation.CurrentSubRegion = region.FirstSubRegion()
	ns.logger.Event("SELECT_REGION", region.ID, "entered "+s.Navigation.CurrentSubRegion)
	return ActionResult{Success: true, Message: "Course set for " + region.Name, Data: region.ID}
}

// Unlocked lists the regions currently open to the player.
func (ns *NavigationSystem) Unlocked(s *state.GameState) []string {
	var out []string
	for _, r := range ns.catalog.Regions() {
		if r.Requires == "" || s.Navigation.CompletedRegions[r.Requires] {
			out = append(out, r.ID)
		}
	}
	return out
}

func (ns *NavigationSystem) ensure(s *state.GameState) {
	if s.Navigation.CompletedRegions == nil {
		ns.logger.Warn("navigation.completedRegions missing, initializing")
		s.Navigation.CompletedRegions = make(map[string]bool)
	}
	if s.Navigation.RegionProgress == nil {
		ns.logger.Warn("navigation.regionProgress missing, initializing")
		s.Navigation.RegionProgress = make(map[string]int)
	}
}
