package engine

import (
	"testing"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/catalog"
	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
	"github.com/MRamiBalles/ReactorIdle/server/internal/events"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/logger"
)

func TestClassify(t *testing.T) {
	solFringe := catalog.EncounterChances{Combat: 0.35, Empty: 0.40, Story: 0.25}
	tests := []struct {
		name    string
		chances catalog.EncounterChances
		roll    float64
		want    state.EncounterType
	}{
		{"low roll is combat", solFringe, 0.1, state.EncounterCombat},
		{"combat boundary is empty", solFringe, 0.35, state.EncounterEmpty},
		{"middle is empty", solFringe, 0.5, state.EncounterEmpty},
		{"high roll is story", solFringe, 0.9, state.EncounterStory},
		{"unnormalized chances scale", catalog.EncounterChances{Combat: 2, Empty: 1, Story: 1}, 0.6, state.EncounterEmpty},
		{"zero chances use defaults", catalog.EncounterChances{}, 0.25, state.EncounterCombat},
		{"zero chances use defaults (story)", catalog.EncounterChances{}, 0.85, state.EncounterStory},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.chances, tc.roll); got != tc.want {
				t.Errorf("Classify(%v) = %s, want %s", tc.roll, got, tc.want)
			}
		})
	}
}

func TestJumpRequiresDrive(t *testing.T) {
	f := newSystemsFixture(t, quietRand)
	res := f.encounters.InitiateJump(f.state)
	if res.Success {
		t.Fatal("Expected jump to fail without the navigation computer")
	}
	if f.state.Navigation.TotalJumps != 0 {
		t.Errorf("Expected no jump recorded")
	}
}

func TestJumpGeneratesStory(t *testing.T) {
	// Setup: 0.9 lands in the story band of sol-fringe.
	f := newSystemsFixture(t, stubRand{f: 0.9, n: 0})
	f.state.Navigation.JumpUnlocked = true

	// Act
	res := f.encounters.InitiateJump(f.state)

	// Assert
	if !res.Success {
		t.Fatalf("Expected jump, got %q", res.Message)
	}
	enc := f.state.Encounters.Active
	if enc == nil || enc.Type != state.EncounterStory || enc.Title != "Distress Beacon" {
		t.Fatalf("Expected distress beacon story, got %+v", enc)
	}
	nav := f.state.Navigation
	if nav.RegionProgress["sol-fringe"] != 1 || nav.TotalJumps != 1 {
		t.Errorf("Expected progress 1 and one jump, got %v/%d", nav.RegionProgress, nav.TotalJumps)
	}
	if nav.CurrentSubRegion != "derelict-shipyard" {
		t.Errorf("Expected derelict-shipyard, got %s", nav.CurrentSubRegion)
	}

	// A second jump must wait for the encounter.
	if again := f.encounters.InitiateJump(f.state); again.Success {
		t.Errorf("Expected jump with an active encounter to fail")
	}
}

func TestStoryEncountersAreIndependentCopies(t *testing.T) {
	f := newSystemsFixture(t, stubRand{f: 0.9, n: 0})
	first := f.encounters.Generate(f.state)
	first.Choices[0].Text = "tampered"
	first.Choices[0].Rewards[0].Amount = 999

	second := f.encounters.Generate(f.state)
	if second.Choices[0].Text == "tampered" || second.Choices[0].Rewards[0].Amount == 999 {
		t.Errorf("Expected a fresh copy of the story, got %+v", second.Choices[0])
	}
	if first.ID == second.ID {
		t.Errorf("Expected distinct encounter ids")
	}
}

func TestEmptyEncounterPaysRewards(t *testing.T) {
	// Setup: 0.5 lands in the empty band; Intn(0) picks the first reward
	// range (scrap 5..15) at its minimum.
	f := newSystemsFixture(t, stubRand{f: 0.5, n: 0})
	f.state.Navigation.JumpUnlocked = true
	f.encounters.InitiateJump(f.state)

	enc := f.state.Encounters.Active
	if enc == nil || enc.Type != state.EncounterEmpty {
		t.Fatalf("Expected empty encounter, got %+v", enc)
	}
	if len(enc.Rewards) != 1 || enc.Rewards[0].Resource != state.Scrap || enc.Rewards[0].Amount != 5 {
		t.Fatalf("Expected 5 scrap reward, got %+v", enc.Rewards)
	}

	// Act
	res := f.encounters.CompleteEncounter(f.state, "")

	// Assert
	if !res.Success {
		t.Fatalf("Expected completion, got %q", res.Message)
	}
	if got := f.amount(state.Manufacturing); got != 5 {
		t.Errorf("Expected scrap 5, got %v", got)
	}
	if f.state.Encounters.Active != nil {
		t.Errorf("Expected active encounter cleared")
	}
	h := f.state.Encounters.History
	if len(h) != 1 || h[0].Result != state.ResultCompleted || h[0].EncounterID != enc.ID {
		t.Errorf("Expected one completed history entry, got %+v", h)
	}
}

func TestCombatJumpStartsBattle(t *testing.T) {
	f := newSystemsFixture(t, stubRand{f: 0.1, n: 0})
	f.state.Navigation.JumpUnlocked = true

	res := f.encounters.InitiateJump(f.state)

	if !res.Success {
		t.Fatalf("Expected jump, got %q", res.Message)
	}
	if !f.state.Combat.Active() || f.state.Combat.EnemyID != "scavenger-drone" {
		t.Fatalf("Expected battle with scavenger-drone, got %+v", f.state.Combat)
	}
	if enc := f.state.Encounters.Active; enc == nil || enc.Type != state.EncounterCombat {
		t.Fatalf("Expected combat encounter to stay active, got %+v", enc)
	}
	if r := f.encounters.CompleteEncounter(f.state, ""); r.Success {
		t.Errorf("Expected completing a combat encounter mid-battle to fail")
	}

	// Retreat folds the encounter into history.
	f.combat.Retreat(f.state)
	if f.state.Encounters.Active != nil {
		t.Fatalf("Expected encounter cleared after retreat")
	}
	h := f.state.Encounters.History
	if len(h) != 1 || h[0].Result != string(state.OutcomeRetreat) {
		t.Errorf("Expected retreat in history, got %+v", h)
	}
}

func TestFailedCombatJumpLeavesNavigation(t *testing.T) {
	// Setup: nothing answers the combat trigger, so the battle never starts.
	log := logger.NewNop()
	bus := events.NewBus(log, events.WithThrottle(0))
	es := NewEncounterSystem(bus, log, catalog.MustLoad(), stubRand{f: 0.1, n: 0}, newFakeClock().Now)
	s := state.New()
	s.Navigation.JumpUnlocked = true
	s.Navigation.RegionProgress["sol-fringe"] = 2
	s.Navigation.CurrentSubRegion = "scrap-fields"
	var completed int
	events.On(bus, func(events.EncounterCompleted) { completed++ })

	// Act
	res := es.InitiateJump(s)

	// Assert
	if res.Success {
		t.Fatalf("Expected the jump to be rejected, got %q", res.Message)
	}
	nav := s.Navigation
	if nav.RegionProgress["sol-fringe"] != 2 || nav.TotalJumps != 0 || nav.CurrentSubRegion != "scrap-fields" {
		t.Errorf("Expected navigation untouched, got progress %v jumps %d sub %s", nav.RegionProgress, nav.TotalJumps, nav.CurrentSubRegion)
	}
	if s.Encounters.Active != nil || len(s.Encounters.History) != 0 || completed != 0 {
		t.Errorf("Expected no encounter recorded, got active %+v history %+v", s.Encounters.Active, s.Encounters.History)
	}
}

func TestBossJumpAndRegionCompletion(t *testing.T) {
	// Setup
	f := newSystemsFixture(t, quietRand)
	f.state.Navigation.JumpUnlocked = true
	f.state.Navigation.RegionProgress["sol-fringe"] = 7
	f.setAmount(state.Manufacturing, 100)

	// Act
	f.encounters.InitiateJump(f.state)

	// Assert
	c := f.state.Combat
	if !c.Active() || c.EnemyID != "scrapyard-overlord" || !c.IsBoss {
		t.Fatalf("Expected boss battle, got %+v", c)
	}
	if f.state.Navigation.CurrentSubRegion != "relay-outpost" {
		t.Errorf("Expected relay-outpost at progress 8, got %s", f.state.Navigation.CurrentSubRegion)
	}

	c.Enemy.Health, c.Enemy.Shield = 1, 0
	f.combat.PerformAction(f.state, "plasma-cannon")

	if !f.state.Navigation.CompletedRegions["sol-fringe"] {
		t.Fatalf("Expected sol-fringe completed after boss victory")
	}
	h := f.state.Encounters.History
	if len(h) != 1 || h[0].Result != string(state.OutcomeVictory) {
		t.Errorf("Expected victory in history, got %+v", h)
	}

	// Further jumps no longer force the boss.
	f.combat.ClearResolved(f.state)
	story := newSystemsFixture(t, stubRand{f: 0.9, n: 0})
	story.state = f.state
	story.encounters.InitiateJump(story.state)
	if enc := story.state.Encounters.Active; enc == nil || enc.Type == state.EncounterCombat {
		t.Errorf("Expected a regular encounter after the region is cleared, got %+v", enc)
	}
}

func TestStoryChoiceTriggersCombat(t *testing.T) {
	// Setup
	f := newSystemsFixture(t, quietRand)
	story, _ := catalog.MustLoad().Story("distress-beacon")
	f.state.Encounters.Active = &state.Encounter{
		ID:       "enc-1",
		Type:     state.EncounterStory,
		Title:    story.Title,
		RegionID: "sol-fringe",
		Choices:  story.Choices,
	}

	// Act
	res := f.encounters.MakeStoryChoice(f.state, "board")

	// Assert
	if !res.Success {
		t.Fatalf("Expected choice to resolve, got %q", res.Message)
	}
	if f.state.Encounters.Active != nil {
		t.Errorf("Expected story encounter cleared before combat")
	}
	if !f.state.Combat.Active() || f.state.Combat.EnemyID != "pirate-skiff" {
		t.Errorf("Expected battle with pirate-skiff, got %+v", f.state.Combat)
	}
	h := f.state.Encounters.History
	if len(h) != 1 || h[0].Result != state.ResultCombat || h[0].ChoiceID != "board" {
		t.Errorf("Expected combat result in history, got %+v", h)
	}
}

func TestStoryChoiceGeneratesEnemy(t *testing.T) {
	f := newSystemsFixture(t, quietRand)
	f.state.Encounters.Active = &state.Encounter{
		ID:          "enc-2",
		Type:        state.EncounterStory,
		RegionID:    "sol-fringe",
		SubRegionID: "scrap-fields",
		Choices: []state.StoryChoice{
			{ID: "poke", Combat: &state.CombatTrigger{}},
		},
	}

	f.encounters.CompleteEncounter(f.state, "poke")

	if !f.state.Combat.Active() || f.state.Combat.EnemyID != "rogue-salvager" {
		t.Errorf("Expected a generated scrap-fields enemy, got %+v", f.state.Combat)
	}
}

func TestStoryChoiceRewardsAndValidation(t *testing.T) {
	f := newSystemsFixture(t, quietRand)
	story, _ := catalog.MustLoad().Story("abandoned-cache")
	f.state.Encounters.Active = &state.Encounter{ID: "enc-3", Type: state.EncounterStory, Choices: story.Choices}

	if r := f.encounters.CompleteEncounter(f.state, ""); r.Success {
		t.Errorf("Expected a story without a choice to fail")
	}
	if r := f.encounters.MakeStoryChoice(f.state, "dance"); r.Success {
		t.Errorf("Expected an unknown choice to fail")
	}
	if r := f.encounters.MakeStoryChoice(f.state, "crack"); !r.Success {
		t.Fatalf("Expected crack to resolve, got %q", r.Message)
	}
	if got := f.amount(state.Processor); got != 10 {
		t.Errorf("Expected 10 insight, got %v", got)
	}
	if r := f.encounters.MakeStoryChoice(f.state, "crack"); r.Success {
		t.Errorf("Expected no active story after resolution")
	}
}

func TestSelectRegion(t *testing.T) {
	f := newSystemsFixture(t, quietRand)

	if r := f.navigation.SelectRegion(f.state, "andromeda"); r.Success {
		t.Errorf("Expected unknown region to fail")
	}
	if r := f.navigation.SelectRegion(f.state, "asteroid-belt"); r.Success {
		t.Errorf("Expected locked region to fail")
	}

	f.state.Navigation.CompletedRegions["sol-fringe"] = true
	f.startCombat(t, "scavenger-drone", 40, 10)
	if r := f.navigation.SelectRegion(f.state, "asteroid-belt"); r.Success {
		t.Errorf("Expected region change during combat to fail")
	}
	f.combat.Retreat(f.state)

	if r := f.navigation.SelectRegion(f.state, "asteroid-belt"); !r.Success {
		t.Fatalf("Expected region change, got %q", r.Message)
	}
	if nav := f.state.Navigation; nav.CurrentRegion != "asteroid-belt" || nav.CurrentSubRegion != "ice-fields" {
		t.Errorf("Expected asteroid-belt/ice-fields, got %s/%s", nav.CurrentRegion, nav.CurrentSubRegion)
	}
	if got := f.navigation.Unlocked(f.state); len(got) != 2 {
		t.Errorf("Expected two unlocked regions, got %v", got)
	}
}
