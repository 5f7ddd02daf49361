package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/catalog"
	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/rules"
	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
	"github.com/MRamiBalles/ReactorIdle/server/internal/events"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/logger"
)

const defaultFlavor = "Nothing out here but cold light and silence."

// EncounterSystem generates what the ship meets after a jump and resolves
// the active encounter.
type EncounterSystem struct {
	bus     *events.Bus
	logger  *logger.Logger
	catalog *catalog.Catalog
	rnd     rules.Rand
	now     func() time.Time
}

// NewEncounterSystem creates the encounter generator.
func NewEncounterSystem(bus *events.Bus, log *logger.Logger, cat *catalog.Catalog, rnd rules.Rand, now func() time.Time) *EncounterSystem {
	return &EncounterSystem{
		bus:     bus,
		logger:  log.With("encounters"),
		catalog: cat,
		rnd:     rnd,
		now:     now,
	}
}

// Classify maps one uniform roll onto an encounter class using the
// region's chances (or the defaults for an unknown region).
func Classify(ch catalog.EncounterChances, roll float64) state.EncounterType {
	total := ch.Combat + ch.Empty + ch.Story
	if total <= 0 {
		ch, total = catalog.DefaultChances, 1
	}
	target := roll * total
	switch {
	case target < ch.Combat:
		return state.EncounterCombat
	case target < ch.Combat+ch.Empty:
		return state.EncounterEmpty
	default:
		return state.EncounterStory
	}
}

// Generate produces the next encounter for the ship's current position.
// It never returns nil.
func (es *EncounterSystem) Generate(s *state.GameState) *state.Encounter {
	regionID := s.Navigation.CurrentRegion
	subID := s.Navigation.CurrentSubRegion

	region, known := es.catalog.Region(regionID)
	chances := region.Chances
	if !known {
		es.logger.Errorf("unknown region %q, using default encounter chances", regionID)
		chances = catalog.DefaultChances
	}

	switch Classify(chances, es.rnd.Float64()) {
	case state.EncounterCombat:
		if enc := es.combatEncounter(regionID, subID, false); enc != nil {
			return enc
		}
		// No enemy could be resolved; fall back to a generic encounter.
		return es.storyEncounter(region, regionID, subID)
	case state.EncounterEmpty:
		return es.emptyEncounter(region, regionID, subID)
	default:
		return es.storyEncounter(region, regionID, subID)
	}
}

// GenerateEnemyForRegion resolves an enemy using the sub-region, then
// region-wide, then legacy table fallback order.
func (es *EncounterSystem) GenerateEnemyForRegion(regionID, subRegionID string, isBoss bool) (catalog.Enemy, bool) {
	e, tier, ok := es.catalog.ResolveEnemy(regionID, subRegionID, isBoss, es.rnd)
	if !ok {
		es.logger.Errorf("no enemy for region=%s sub=%s boss=%t", regionID, subRegionID, isBoss)
		return catalog.Enemy{}, false
	}
	if tier != catalog.TierSubRegion {
		es.logger.Debug(fmt.Sprintf("enemy %s resolved via %s fallback", e.ID, tier))
	}
	return e, true
}

func (es *EncounterSystem) combatEncounter(regionID, subID string, isBoss bool) *state.Encounter {
	e, ok := es.GenerateEnemyForRegion(regionID, subID, isBoss)
	if !ok {
		return nil
	}
	return enemyEncounter(e, regionID, subID)
}

func enemyEncounter(e catalog.Enemy, regionID, subID string) *state.Encounter {
	return &state.Encounter{
		ID:          uuid.NewString(),
		Type:        state.EncounterCombat,
		Title:       e.Name,
		Description: e.Description,
		RegionID:    regionID,
		SubRegionID: subID,
		EnemyID:     e.ID,
		IsBoss:      e.IsBoss,
	}
}

func (es *EncounterSystem) emptyEncounter(region catalog.Region, regionID, subID string) *state.Encounter {
	flavor := defaultFlavor
	if len(region.Flavor) > 0 {
		flavor = region.Flavor[es.rnd.Intn(len(region.Flavor))]
	}

	var rewards []state.Reward
	if n := len(region.EmptyRewards); n > 0 {
		count := 1 + es.rnd.Intn(2)
		if count > n {
			count = n
		}
		start := es.rnd.Intn(n)
		for i := 0; i < count; i++ {
			rr := region.EmptyRewards[(start+i)%n]
			rewards = append(rewards, state.Reward{
				Resource: rr.Resource,
				Amount:   rules.RandRange(es.rnd, rr.Min, rr.Max),
			})
		}
	}

	return &state.Encounter{
		ID:          uuid.NewString(),
		Type:        state.EncounterEmpty,
		Title:       "Quiet Sector",
		Description: flavor,
		RegionID:    regionID,
		SubRegionID: subID,
		Rewards:     rewards,
	}
}

func (es *EncounterSystem) storyEncounter(region catalog.Region, regionID, subID string) *state.Encounter {
	storyID := catalog.GenericStoryID
	if len(region.Stories) > 0 {
		storyID = region.Stories[es.rnd.Intn(len(region.Stories))]
	}
	story, ok := es.catalog.Story(storyID)
	if !ok {
		es.logger.Errorf("story %q not found, using %s", storyID, catalog.GenericStoryID)
		story, _ = es.catalog.Story(catalog.GenericStoryID)
	}
	// Story lookups are already copies; nothing here aliases the catalog.
	return &state.Encounter{
		ID:          uuid.NewString(),
		Type:        state.EncounterStory,
		Title:       story.Title,
		Description: story.Description,
		RegionID:    regionID,
		SubRegionID: subID,
		Choices:     story.Choices,
	}
}

// InitiateJump moves the ship one step deeper into the current region and
// generates what it finds there.
func (es *EncounterSystem) InitiateJump(s *state.GameState) ActionResult {
	nav := &s.Navigation
	if !nav.JumpUnlocked {
		return reject("Jump drive is offline")
	}
	if s.Combat.Active() {
		return reject("Cannot jump during combat")
	}
	if s.Encounters.Active != nil {
		return reject("Resolve the current encounter first")
	}
	if nav.RegionProgress == nil {
		es.logger.Warn("navigation.regionProgress missing, initializing")
		nav.RegionProgress = make(map[string]int)
	}

	region, known := es.catalog.Region(nav.CurrentRegion)
	if !known {
		es.logger.Errorf("current region %q unknown, returning to %s", nav.CurrentRegion, state.StartRegion)
		nav.CurrentRegion = state.StartRegion
		region, _ = es.catalog.Region(state.StartRegion)
	}

	prevProgress, hadProgress := nav.RegionProgress[region.ID]
	prevJumps, prevSub := nav.TotalJumps, nav.CurrentSubRegion

	nav.RegionProgress[region.ID]++
	nav.TotalJumps++
	progress := nav.RegionProgress[region.ID]
	nav.CurrentSubRegion = region.SubRegionAt(progress)

	var enc *state.Encounter
	if region.BossAt > 0 && progress >= region.BossAt && !nav.CompletedRegions[region.ID] {
		enc = es.bossEncounter(region, nav.CurrentSubRegion)
	}
	if enc == nil {
		enc = es.Generate(s)
	}
	s.Encounters.Active = enc

	es.logger.Event("JUMP", region.ID, fmt.Sprintf("progress %d -> %s encounter %q", progress, enc.Type, enc.Title))

	if enc.Type == state.EncounterCombat {
		es.bus.Publish(events.CombatEncounterTriggered{
			EnemyID:     enc.EnemyID,
			RegionID:    enc.RegionID,
			SubRegionID: enc.SubRegionID,
			IsBoss:      enc.IsBoss,
		})
		if !s.Combat.Active() {
			es.logger.Error("combat did not start for encounter " + enc.ID)
			s.Encounters.Active = nil
			if hadProgress {
				nav.RegionProgress[region.ID] = prevProgress
			} else {
				delete(nav.RegionProgress, region.ID)
			}
			nav.TotalJumps, nav.CurrentSubRegion = prevJumps, prevSub
			return reject("Combat could not start")
		}
	}

	return ActionResult{
		Success: true,
		Message: fmt.Sprintf("Jumped to %s", nav.CurrentSubRegion),
		Data:    enc.Clone(),
	}
}

func (es *EncounterSystem) bossEncounter(region catalog.Region, subID string) *state.Encounter {
	if region.BossID != "" {
		if boss, ok := es.catalog.Enemy(region.BossID); ok {
			return enemyEncounter(boss, region.ID, subID)
		}
		es.logger.Errorf("boss %q of %s not found", region.BossID, region.ID)
	}
	return es.combatEncounter(region.ID, subID, true)
}

// CompleteEncounter resolves the active encounter. Story encounters need a
// choice; a choice with a combat trigger ends the encounter and starts a
// battle instead.
func (es *EncounterSystem) CompleteEncounter(s *state.GameState, choiceID string) ActionResult {
	enc := s.Encounters.Active
	if enc == nil {
		return reject("No active encounter")
	}

	switch enc.Type {
	case state.EncounterCombat:
		return reject("Resolve the battle first")

	case state.EncounterStory:
		if choiceID == "" {
			return reject("Choose an option")
		}
		choice, ok := enc.Choice(choiceID)
		if !ok {
			return reject("Unknown choice %q", choiceID)
		}
		for _, r := range choice.Rewards {
			grant(es.bus, r, events.SourceEncounter)
		}
		if choice.Combat != nil {
			trigger := events.CombatEncounterTriggered{
				EnemyID:     choice.Combat.EnemyID,
				RegionID:    enc.RegionID,
				SubRegionID: enc.SubRegionID,
				IsBoss:      choice.Combat.IsBoss,
			}
			if trigger.EnemyID == "" {
				e, found := es.GenerateEnemyForRegion(enc.RegionID, enc.SubRegionID, choice.Combat.IsBoss)
				if !found {
					es.finish(s, state.ResultCompleted, choiceID)
					return ActionResult{Success: true, Message: choice.Outcome}
				}
				trigger.EnemyID = e.ID
			}
			es.finish(s, state.ResultCombat, choiceID)
			es.bus.Publish(trigger)
			return ActionResult{Success: true, Message: choice.Outcome}
		}
		es.finish(s, state.ResultCompleted, choiceID)
		return ActionResult{Success: true, Message: choice.Outcome}

	default:
		for _, r := range enc.Rewards {
			grant(es.bus, r, events.SourceEncounter)
		}
		es.finish(s, state.ResultCompleted, "")
		return succeed(enc.Description)
	}
}

// MakeStoryChoice resolves the active story encounter with a choice.
func (es *EncounterSystem) MakeStoryChoice(s *state.GameState, choiceID string) ActionResult {
	enc := s.Encounters.Active
	if enc == nil || enc.Type != state.EncounterStory {
		return reject("No active story encounter")
	}
	if _, ok := enc.Choice(choiceID); !ok {
		return reject("Unknown choice %q", choiceID)
	}
	return es.CompleteEncounter(s, choiceID)
}

// OnCombatEnded folds the active combat encounter into history and marks a
// region completed when its boss falls.
func (es *EncounterSystem) OnCombatEnded(s *state.GameState, ev events.CombatEnded) {
	if enc := s.Encounters.Active; enc != nil && enc.Type == state.EncounterCombat {
		es.finish(s, string(ev.Outcome), "")
	}
	if ev.IsBoss && ev.Outcome == state.OutcomeVictory && ev.RegionID != "" {
		if s.Navigation.CompletedRegions == nil {
			s.Navigation.CompletedRegions = make(map[string]bool)
		}
		s.Navigation.CompletedRegions[ev.RegionID] = true
		es.logger.Event("REGION_COMPLETED", ev.RegionID, "boss defeated")
	}
}

// finish records the active encounter in history, clears it and announces
// the result.
func (es *EncounterSystem) finish(s *state.GameState, result, choiceID string) {
	enc := s.Encounters.Active
	if enc == nil {
		return
	}
	s.Encounters.Active = nil
	s.Encounters.Record(state.EncounterRecord{
		EncounterID: enc.ID,
		Type:        enc.Type,
		Title:       enc.Title,
		RegionID:    enc.RegionID,
		ChoiceID:    choiceID,
		Result:      result,
		CompletedAt: es.now().UTC(),
	})
	es.bus.Publish(events.EncounterCompleted{
		EncounterID:   enc.ID,
		EncounterType: enc.Type,
		Result:        result,
	})
}
