package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/catalog"
	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
	"github.com/MRamiBalles/ReactorIdle/server/internal/events"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/logger"
)

// stubRand returns the same roll every time. Intn returns n clamped into
// range.
type stubRand struct {
	f float64
	n int
}

func (r stubRand) Float64() float64 { return r.f }

func (r stubRand) Intn(n int) int {
	if r.n >= n {
		return n - 1
	}
	return r.n
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// memStore keeps saves in memory.
type memStore struct {
	mu    sync.Mutex
	saved *state.GameState
	saves int
	err   error
}

func (m *memStore) Save(_ context.Context, s *state.GameState) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.saved = s.Clone()
	m.saves++
	return "save-" + string(rune('0'+m.saves)), nil
}

func (m *memStore) Load(context.Context) (*state.GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.saved == nil {
		return nil, nil
	}
	return m.saved.Clone(), nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func newTestEngine(t *testing.T, rnd stubRand, store SaveStore) *Engine {
	t.Helper()
	clock := newFakeClock()
	e, err := New(Options{
		Catalog:       catalog.MustLoad(),
		Store:         store,
		Rand:          rnd,
		Clock:         clock.Now,
		Logger:        logger.NewNop(),
		StateThrottle: -1,
		TickInterval:  time.Hour,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// systemsFixture builds the subsystems over a shared bus the way the
// engine wires them, without the coordinator.
type systemsFixture struct {
	bus        *events.Bus
	state      *state.GameState
	resources  *ResourceSystem
	upgrades   *UpgradeSystem
	logs       *LogSystem
	encounters *EncounterSystem
	navigation *NavigationSystem
	combat     *CombatSystem
}

func newSystemsFixture(t *testing.T, rnd stubRand) *systemsFixture {
	t.Helper()
	cat := catalog.MustLoad()
	log := logger.NewNop()
	clock := newFakeClock()
	bus := events.NewBus(log, events.WithThrottle(0))
	f := &systemsFixture{
		bus:        bus,
		state:      state.New(),
		resources:  NewResourceSystem(bus, log),
		upgrades:   NewUpgradeSystem(bus, log, cat),
		logs:       NewLogSystem(bus, log, cat, clock.Now),
		encounters: NewEncounterSystem(bus, log, cat, rnd, clock.Now),
		navigation: NewNavigationSystem(bus, log, cat),
		combat:     NewCombatSystem(bus, log, cat, rnd),
	}
	events.On(bus, func(ev events.ResourceChange) { f.resources.OnResourceChange(f.state, ev) })
	events.On(bus, func(ev events.CombatEncounterTriggered) { f.combat.OnCombatTriggered(f.state, ev) })
	events.On(bus, func(ev events.CombatEnded) { f.encounters.OnCombatEnded(f.state, ev) })
	return f
}

func (f *systemsFixture) setAmount(id state.CategoryID, amount float64) {
	f.state.Categories[id].Amount = amount
}

func (f *systemsFixture) amount(id state.CategoryID) float64 {
	return f.state.Categories[id].Amount
}

// startCombat triggers a battle and overrides the enemy's stats.
func (f *systemsFixture) startCombat(t *testing.T, enemyID string, health, shield float64) {
	t.Helper()
	f.bus.Publish(events.CombatEncounterTriggered{EnemyID: enemyID, RegionID: state.StartRegion})
	if !f.state.Combat.Active() {
		t.Fatalf("Expected combat with %s to start", enemyID)
	}
	f.state.Combat.Enemy = state.Combatant{
		Health: health, MaxHealth: health,
		Shield: shield, MaxShield: shield,
	}
}
