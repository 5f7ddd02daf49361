package engine

import (
	"math"
	"testing"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/catalog"
	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
	"github.com/MRamiBalles/ReactorIdle/server/internal/events"
)

func TestProductionNeverExceedsCapacity(t *testing.T) {
	deltas := []float64{0, 0.016, 1, 60, 1e9, math.Inf(1)}
	for _, d := range deltas {
		f := newSystemsFixture(t, quietRand)
		for _, id := range state.CategoryOrder {
			f.state.Categories[id].Stats.PerSecond = 3
			f.state.Categories[id].Unlocked = true
		}
		f.resources.Update(f.state, d)
		f.resources.Update(f.state, d)
		for _, id := range state.CategoryOrder {
			c := f.state.Categories[id]
			if c.Amount < 0 || c.Amount > c.Stats.Capacity {
				t.Errorf("delta %v: %s amount %v outside [0,%v]", d, id, c.Amount, c.Stats.Capacity)
			}
		}
	}
}

func TestProductionSkipsLockedAndNegativeDelta(t *testing.T) {
	f := newSystemsFixture(t, quietRand)
	crew := f.state.Categories[state.CrewQuarters]
	crew.Stats.PerSecond = 1
	reactor := f.state.Categories[state.Reactor]
	reactor.Stats.PerSecond = 1
	reactor.Amount = 10

	f.resources.Update(f.state, 5)
	f.resources.Update(f.state, -5)

	if crew.Amount != 0 {
		t.Errorf("Expected locked crew quarters idle, got %v", crew.Amount)
	}
	if reactor.Amount != 15 {
		t.Errorf("Expected reactor 15, got %v", reactor.Amount)
	}
}

func TestAutomationAddsClicks(t *testing.T) {
	f := newSystemsFixture(t, quietRand)
	c := f.state.Categories[state.Reactor]
	if r := f.resources.SetAutomation(f.state, state.Reactor, true); r.Success {
		t.Fatal("Expected automation to need protocols")
	}
	c.Stats.AutomationRate = 2
	if r := f.resources.SetAutomation(f.state, state.Reactor, true); !r.Success {
		t.Fatalf("Expected automation on, got %q", r.Message)
	}

	f.resources.Update(f.state, 1.5)

	// PerClick 1 x 2 clicks/s x 1.5s
	if c.Amount != 3 {
		t.Errorf("Expected 3 energy from automation, got %v", c.Amount)
	}
}

func TestResourceChangeClampsBothWays(t *testing.T) {
	f := newSystemsFixture(t, quietRand)
	f.setAmount(state.Reactor, 50)

	f.bus.Publish(events.ResourceChange{Resource: state.Energy, Amount: 500, Source: "test"})
	if got := f.amount(state.Reactor); got != 100 {
		t.Errorf("Expected clamp to capacity 100, got %v", got)
	}
	f.bus.Publish(events.ResourceChange{Category: state.Reactor, Amount: -500, Source: "test"})
	if got := f.amount(state.Reactor); got != 0 {
		t.Errorf("Expected clamp to 0, got %v", got)
	}
}

func TestPurchaseUnaffordableMutatesNothing(t *testing.T) {
	// Setup
	f := newSystemsFixture(t, quietRand)
	f.setAmount(state.Reactor, 79)
	before := f.state.Clone()

	// Act: reactorExpansions costs 0.8 x 100 capacity.
	res := f.upgrades.Purchase(f.state, state.Reactor, "reactorExpansions")

	// Assert
	if res.Success || res.Cost != 80 {
		t.Fatalf("Expected failure quoting cost 80, got %+v", res)
	}
	after := f.state.Categories[state.Reactor]
	if after.Amount != 79 || after.Level("reactorExpansions") != 0 || after.Stats != before.Categories[state.Reactor].Stats {
		t.Errorf("Expected no mutation, got %+v", after)
	}
}

func TestPurchaseAppliesAndScalesCost(t *testing.T) {
	f := newSystemsFixture(t, quietRand)
	f.setAmount(state.Reactor, 80)
	var bought []events.UpgradePurchased
	events.On(f.bus, func(ev events.UpgradePurchased) { bought = append(bought, ev) })

	res := f.upgrades.Purchase(f.state, state.Reactor, "reactorExpansions")

	if !res.Success || res.NewLevel != 1 {
		t.Fatalf("Expected level 1, got %+v", res)
	}
	c := f.state.Categories[state.Reactor]
	if c.Amount != 0 || c.Stats.Capacity != 200 {
		t.Errorf("Expected 0 energy and capacity 200, got %v/%v", c.Amount, c.Stats.Capacity)
	}
	if cost, _ := f.upgrades.Cost(f.state, state.Reactor, "reactorExpansions"); cost != 160 {
		t.Errorf("Expected next cost 160, got %v", cost)
	}
	if len(bought) != 1 || bought[0].UpgradeType != "reactorExpansions" || bought[0].Level != 1 {
		t.Errorf("Expected one upgradePurchased event, got %+v", bought)
	}
}

func TestUpgradeLevelsNeverDecrease(t *testing.T) {
	f := newSystemsFixture(t, quietRand)
	attempts := []struct {
		energy float64
	}{{5}, {100}, {0}, {100}, {100}, {3}}
	last := 0
	for i, a := range attempts {
		f.setAmount(state.Reactor, a.energy)
		f.upgrades.Purchase(f.state, state.Reactor, "manualOverride")
		lvl := f.state.Categories[state.Reactor].Level("manualOverride")
		if lvl < last {
			t.Fatalf("attempt %d: level fell from %d to %d", i, last, lvl)
		}
		last = lvl
	}
	if last == 0 {
		t.Errorf("Expected at least one successful purchase")
	}
}

func TestPurchaseRules(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *systemsFixture)
		category state.CategoryID
		upgrade  string
		wantOK   bool
	}{
		{"unknown upgrade", func(*systemsFixture) {}, state.Reactor, "warpCore", false},
		{"locked category", func(f *systemsFixture) { f.setAmount(state.CrewQuarters, 10) }, state.CrewQuarters, "crewTraining", false},
		{"unlock paid in energy", func(f *systemsFixture) { f.setAmount(state.Reactor, 60) }, state.CrewQuarters, "lifeSupport", true},
		{"level cap", func(f *systemsFixture) {
			f.setAmount(state.Processor, 50)
			f.state.Categories[state.Processor].Upgrades["navigationComputer"] = 1
		}, state.Processor, "navigationComputer", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newSystemsFixture(t, quietRand)
			tc.setup(f)
			res := f.upgrades.Purchase(f.state, tc.category, tc.upgrade)
			if res.Success != tc.wantOK {
				t.Errorf("Expected success=%v, got %+v", tc.wantOK, res)
			}
		})
	}
}

func TestLifeSupportUnlocksCrew(t *testing.T) {
	f := newSystemsFixture(t, quietRand)
	f.setAmount(state.Reactor, 60)

	f.upgrades.Purchase(f.state, state.CrewQuarters, "lifeSupport")

	if !f.state.Categories[state.CrewQuarters].Unlocked {
		t.Errorf("Expected crew quarters unlocked")
	}
	if got := f.amount(state.Reactor); got != 0 {
		t.Errorf("Expected 60 energy spent, got %v left", got)
	}
}

func TestUpdateAllStatsRebuildsFromLevels(t *testing.T) {
	f := newSystemsFixture(t, quietRand)
	s := f.state
	s.Categories[state.Reactor].Upgrades["reactorExpansions"] = 2
	s.Categories[state.Reactor].Upgrades["energyConverters"] = 3
	s.Categories[state.Manufacturing].Upgrades["hullPlating"] = 2
	s.Categories[state.Processor].Upgrades["navigationComputer"] = 1
	s.Categories[state.Reactor].Stats.PerClick = 999 // stale

	f.upgrades.UpdateAllStats(s)

	r := s.Categories[state.Reactor].Stats
	if r.Capacity != 300 || r.PerSecond != 3 || r.PerClick != 1 {
		t.Errorf("Expected reactor 300/3/1, got %+v", r)
	}
	if s.Ship.MaxHealth != 150 {
		t.Errorf("Expected max hull 150, got %v", s.Ship.MaxHealth)
	}
	if !s.Navigation.JumpUnlocked {
		t.Errorf("Expected jump drive unlocked")
	}
}

func TestLogUnlocksOnUpgrade(t *testing.T) {
	// Setup
	f := newSystemsFixture(t, quietRand)
	f.setAmount(state.Reactor, 80)
	var unlocked []string
	events.On(f.bus, func(ev events.LogUnlocked) { unlocked = append(unlocked, ev.LogID) })

	if _, ok := f.state.Logs.Discovered["log_reactor_malfunction"]; ok {
		t.Fatal("Expected log undiscovered before the purchase")
	}

	// Act
	f.upgrades.Purchase(f.state, state.Reactor, "reactorExpansions")
	found := f.logs.Evaluate(f.state)

	// Assert
	entry, ok := f.state.Logs.Discovered["log_reactor_malfunction"]
	if !ok || entry.Read {
		t.Fatalf("Expected log discovered and unread, got %+v", entry)
	}
	if entry.DiscoveredAt.IsZero() {
		t.Errorf("Expected a discovery timestamp")
	}
	if !contains(f.state.Logs.Unread, "log_reactor_malfunction") || !contains(found, "log_reactor_malfunction") {
		t.Errorf("Expected log in unread list, got %v", f.state.Logs.Unread)
	}
	if !contains(unlocked, "log_reactor_malfunction") {
		t.Errorf("Expected logUnlocked event, got %v", unlocked)
	}

	// Evaluate is idempotent.
	if again := f.logs.Evaluate(f.state); len(again) != 0 {
		t.Errorf("Expected nothing new on re-evaluation, got %v", again)
	}
}

func TestMarkRead(t *testing.T) {
	f := newSystemsFixture(t, quietRand)
	f.setAmount(state.Reactor, 10)
	f.logs.Evaluate(f.state)
	if len(f.state.Logs.Unread) == 0 {
		t.Fatal("Expected log_first_spark at 10 energy")
	}

	if f.logs.MarkRead(f.state, "nope") {
		t.Errorf("Expected unknown id to be ignored")
	}
	if !f.logs.MarkRead(f.state, "log_first_spark") || !f.state.Logs.Discovered["log_first_spark"].Read {
		t.Errorf("Expected log_first_spark read")
	}
	if contains(f.state.Logs.Unread, "log_first_spark") {
		t.Errorf("Expected log_first_spark out of the unread list")
	}

	f.state.Categories[state.Reactor].Upgrades["reactorExpansions"] = 1
	f.logs.Evaluate(f.state)
	if n := f.logs.MarkAllRead(f.state); n == 0 || len(f.state.Logs.Unread) != 0 {
		t.Errorf("Expected every log read, marked %d, unread %v", n, f.state.Logs.Unread)
	}
}

func TestMultiConditionOperators(t *testing.T) {
	f := newSystemsFixture(t, quietRand)
	s := f.state
	s.Categories[state.Reactor].Amount = 10

	and := logCond("AND")
	or := logCond("OR")
	if conditionHolds(s, and) {
		t.Errorf("Expected AND to fail with one branch false")
	}
	if !conditionHolds(s, or) {
		t.Errorf("Expected OR to hold with one branch true")
	}
}

func logCond(op string) catalog.LogCondition {
	return catalog.LogCondition{
		Type:     catalog.LogMultiCondition,
		Operator: op,
		Conditions: []catalog.LogCondition{
			{Type: catalog.LogResourceThreshold, Category: state.Reactor, Threshold: 5},
			{Type: catalog.LogUpgradePurchased, Category: state.Reactor, Upgrade: "reactorExpansions"},
		},
	}
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
