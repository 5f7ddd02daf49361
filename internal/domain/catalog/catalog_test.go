package catalog

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
)

type fixedRand struct {
	f float64
	n int
}

func (r fixedRand) Float64() float64 { return r.f }
func (r fixedRand) Intn(n int) int {
	if r.n >= n {
		return n - 1
	}
	return r.n
}

func TestLoadEmbeddedCatalog(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(c.Regions()) != 3 {
		t.Errorf("expected 3 regions, got %d", len(c.Regions()))
	}
	r, ok := c.Region(state.StartRegion)
	if !ok {
		t.Fatalf("start region %s missing", state.StartRegion)
	}
	if r.FirstSubRegion() != state.StartSubRegion {
		t.Errorf("expected first sub-region %s, got %s", state.StartSubRegion, r.FirstSubRegion())
	}
	for _, id := range []string{"plasma-cannon", "railgun", "targeting-scan", "emp-burst", "shield-recharge", "emergency-repairs", "overload-strike"} {
		if _, ok := c.CombatAction(id); !ok {
			t.Errorf("missing combat action %s", id)
		}
	}
	plasma, _ := c.CombatAction("plasma-cannon")
	if plasma.Cost.Resource != state.Scrap || plasma.Cost.Amount != 15 || plasma.Damage != 20 {
		t.Errorf("unexpected plasma-cannon definition %+v", plasma)
	}
	if len(c.Upgrades()) != 14 {
		t.Errorf("expected 14 upgrades, got %d", len(c.Upgrades()))
	}

	found := false
	for _, l := range c.Logs() {
		if l.ID == "log_reactor_malfunction" {
			found = true
			if l.Condition.Type != LogUpgradePurchased || l.Condition.Upgrade != "reactorExpansions" {
				t.Errorf("unexpected malfunction condition %+v", l.Condition)
			}
		}
	}
	if !found {
		t.Error("log_reactor_malfunction missing")
	}
}

func TestStoryLookupReturnsCopy(t *testing.T) {
	c := MustLoad()

	s, ok := c.Story("distress-beacon")
	if !ok {
		t.Fatal("distress-beacon missing")
	}
	s.Choices[0].Rewards[0].Amount = 999
	for i := range s.Choices {
		if s.Choices[i].Combat != nil {
			s.Choices[i].Combat.EnemyID = "changed"
		}
	}

	again, _ := c.Story("distress-beacon")
	if again.Choices[0].Rewards[0].Amount == 999 {
		t.Error("story rewards aliased the catalog")
	}
	board, _ := (&state.Encounter{Choices: again.Choices}).Choice("board")
	if board.Combat == nil || board.Combat.EnemyID != "pirate-skiff" {
		t.Errorf("story combat trigger aliased the catalog: %+v", board.Combat)
	}
}

func TestSubRegionAt(t *testing.T) {
	r := Region{
		BossAt:     8,
		SubRegions: []SubRegion{{ID: "a"}, {ID: "b"}, {ID: "c"}},
	}
	tests := []struct {
		progress int
		want     string
	}{
		{0, "a"},
		{2, "a"},
		{3, "b"},
		{6, "c"},
		{20, "c"},
	}
	for _, tt := range tests {
		if got := r.SubRegionAt(tt.progress); got != tt.want {
			t.Errorf("SubRegionAt(%d) = %s, want %s", tt.progress, got, tt.want)
		}
	}
}

func TestResolveEnemyFallbackOrder(t *testing.T) {
	c := MustLoad()
	rnd := fixedRand{}

	e, tier, ok := c.ResolveEnemy("sol-fringe", "derelict-shipyard", false, rnd)
	if !ok || tier != TierSubRegion {
		t.Fatalf("expected sub-region match, got %v %v", tier, ok)
	}
	if e.SubRegionID != "" && e.SubRegionID != "derelict-shipyard" {
		t.Errorf("picked enemy from the wrong sub-region: %s", e.SubRegionID)
	}

	boss, tier, ok := c.ResolveEnemy("sol-fringe", "relay-outpost", true, rnd)
	if !ok || !boss.IsBoss || boss.ID != "scrapyard-overlord" {
		t.Fatalf("expected the region boss, got %+v (%v)", boss, tier)
	}
}

func TestResolveEnemyRegionWideAndLegacy(t *testing.T) {
	c := parseTestCatalog(t, nil)

	e, tier, ok := c.ResolveEnemy("r1", "s2", false, fixedRand{n: 1})
	if !ok || tier != TierRegion || e.ID != "lurker" {
		t.Fatalf("expected region-wide fallback to lurker, got %s %v %v", e.ID, tier, ok)
	}

	e, tier, ok = c.ResolveEnemy("r1", "s1", true, fixedRand{f: 0.9})
	if !ok || tier != TierLegacy || e.ID != "grunt" {
		t.Fatalf("expected legacy fallback to grunt, got %s %v %v", e.ID, tier, ok)
	}

	if _, _, ok := c.ResolveEnemy("nowhere", "", false, fixedRand{}); ok {
		t.Fatal("unknown region should not resolve")
	}
}

func TestParseRejectsUnknownReferences(t *testing.T) {
	_, err := Parse(testFS(map[string]string{
		"regions.yaml": `
regions:
  - id: r1
    chances: { combat: 1 }
    stories: [missing-story]
`,
	}))
	if err == nil || !strings.Contains(err.Error(), "missing-story") {
		t.Fatalf("expected unknown story error, got %v", err)
	}
}

func parseTestCatalog(t *testing.T, overrides map[string]string) *Catalog {
	t.Helper()
	c, err := Parse(testFS(overrides))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return c
}

func testFS(overrides map[string]string) fstest.MapFS {
	files := map[string]string{
		"regions.yaml": `
regions:
  - id: r1
    chances: { combat: 1, empty: 0, story: 0 }
    subRegions: [{ id: s1 }, { id: s2 }]
    legacyEnemies:
      - { enemyId: lurker, weight: 1 }
      - { enemyId: grunt, weight: 1 }
`,
		"enemies.yaml": `
enemies:
  - id: grunt
    region: r1
    subRegion: s1
    health: 10
    actions: [{ id: hit, damage: 1, condition: { type: ALWAYS } }]
  - id: lurker
    region: r1
    subRegion: s1
    health: 10
    actions: [{ id: hit, damage: 1, condition: { type: ALWAYS } }]
`,
		"stories.yaml": `
stories:
  - id: generic-signal
    choices: [{ id: ok, text: ok }]
`,
		"combat_actions.yaml": `
actions:
  - id: zap
    cost: { resource: energy, amount: 1 }
    damage: 1
`,
		"logs.yaml": "logs: []\n",
	}
	for k, v := range overrides {
		files[k] = v
	}
	fsys := fstest.MapFS{}
	for name, body := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return fsys
}
