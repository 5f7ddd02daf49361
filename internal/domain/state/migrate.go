package state

import "fmt"

// Migrate backfills structure missing from older or malformed saves and
// returns a description of every fix applied. It never discards data.
func Migrate(s *GameState) []string {
	if s == nil {
		return nil
	}
	var fixes []string
	fix := func(format string, args ...any) {
		fixes = append(fixes, fmt.Sprintf(format, args...))
	}

	if s.Categories == nil {
		s.Categories = make(map[CategoryID]*Category, len(CategoryOrder))
		fix("categories map was missing")
	}
	for _, id := range CategoryOrder {
		c, ok := s.Categories[id]
		if !ok || c == nil {
			s.Categories[id] = NewCategory(id)
			fix("category %s was missing", id)
			continue
		}
		if c.ID == "" {
			c.ID = id
		}
		if c.Resource == "" {
			c.Resource, _ = ResourceFor(id)
			fix("category %s had no resource type", id)
		}
		if c.Upgrades == nil {
			c.Upgrades = make(map[string]int)
			fix("category %s had no upgrades map", id)
		}
		if c.Amount < 0 {
			c.Amount = 0
			fix("category %s had a negative amount", id)
		}
		// Versions before 2 had no unlock flag; everything but crew was open.
		if s.Version < 2 && id != CrewQuarters {
			c.Unlocked = true
		}
	}

	if s.Ship.MaxHealth <= 0 {
		s.Ship = BaseShip()
		fix("ship stats were missing")
	}

	if s.Navigation.CurrentRegion == "" {
		s.Navigation.CurrentRegion = StartRegion
		s.Navigation.CurrentSubRegion = StartSubRegion
		fix("navigation had no current region")
	}
	if s.Navigation.RegionProgress == nil {
		s.Navigation.RegionProgress = make(map[string]int)
		fix("navigation.regionProgress was missing")
	}
	if s.Navigation.CompletedRegions == nil {
		s.Navigation.CompletedRegions = make(map[string]bool)
		fix("navigation.completedRegions was missing")
	}

	if s.Logs.Discovered == nil {
		s.Logs.Discovered = make(map[string]*LogEntry)
		fix("logs.discovered was missing")
	}
	if s.Logs.Unread == nil {
		s.Logs.Unread = []string{}
	}
	if s.Encounters.History == nil {
		s.Encounters.History = []EncounterRecord{}
	}

	if s.Combat != nil {
		if s.Combat.Cooldowns == nil {
			s.Combat.Cooldowns = make(map[string]int)
			fix("combat.cooldowns was missing")
		}
		if s.Combat.Outcome == "" {
			s.Combat.Outcome = OutcomeActive
			fix("combat.outcome was missing")
		}
	}

	if s.Version < CurrentVersion {
		fix("upgraded schema from version %d to %d", s.Version, CurrentVersion)
		s.Version = CurrentVersion
	}
	return fixes
}
