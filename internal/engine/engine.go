package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"lukechampine.com/blake3"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/catalog"
	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/rules"
	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
	"github.com/MRamiBalles/ReactorIdle/server/internal/events"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/logger"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/metrics"
)

// SaveStore persists whole-game snapshots. Load returns (nil, nil) when
// nothing has been saved yet.
type SaveStore interface {
	Save(ctx context.Context, s *state.GameState) (string, error)
	Load(ctx context.Context) (*state.GameState, error)
}

// Options configures an Engine. Only Catalog is required.
type Options struct {
	Catalog *catalog.Catalog
	Store   SaveStore
	Ledger  *events.Ledger
	Rand    rules.Rand
	Seed    int64
	Clock   func() time.Time
	Logger  *logger.Logger
	Metrics *metrics.Collector

	TickInterval     time.Duration
	AutosaveInterval time.Duration
	SaveTimeout      time.Duration
	// StateThrottle spaces stateUpdated deliveries. Zero uses the bus
	// default; negative disables throttling.
	StateThrottle time.Duration
}

// ErrNoStore is returned by Save when the engine has no SaveStore.
var ErrNoStore = errors.New("no save store configured")

type fingerprint [32]byte

// Engine owns the GameState and serializes every mutation of it. Ticks and
// dispatched actions each run as one critical section; stateUpdated is
// published after the lock is released.
type Engine struct {
	mu      sync.Mutex
	state   *state.GameState
	catalog *catalog.Catalog
	bus     *events.Bus
	store   SaveStore
	logger  *logger.Logger
	metrics *metrics.Collector
	now     func() time.Time

	resources  *ResourceSystem
	upgrades   *UpgradeSystem
	logs       *LogSystem
	encounters *EncounterSystem
	navigation *NavigationSystem
	combat     *CombatSystem

	tick        int64
	resolvedAt  int64
	resolved    bool
	published   fingerprint
	delivered   bool
	unsubscribe []func()

	tickInterval     time.Duration
	autosaveInterval time.Duration
	saveTimeout      time.Duration

	lifecycle sync.Mutex
	ticker    *Ticker
	cancel    context.CancelFunc
	done      chan struct{}
}

// New wires the subsystems onto a fresh bus. The engine starts with a new
// game; call Load or Start to restore a save.
func New(opts Options) (*Engine, error) {
	if opts.Catalog == nil {
		return nil, errors.New("engine: catalog is required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	rnd := opts.Rand
	if rnd == nil {
		seed := opts.Seed
		if seed == 0 {
			seed = now().UnixNano()
		}
		rnd = rand.New(rand.NewSource(seed))
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	busOpts := []events.Option{events.WithClock(now)}
	if opts.StateThrottle != 0 {
		busOpts = append(busOpts, events.WithThrottle(opts.StateThrottle))
	}
	if opts.Ledger != nil {
		opts.Ledger.SetClock(now)
		busOpts = append(busOpts, events.WithLedger(opts.Ledger))
	}
	bus := events.NewBus(log, busOpts...)

	e := &Engine{
		state:            state.New(),
		catalog:          opts.Catalog,
		bus:              bus,
		store:            opts.Store,
		logger:           log.With("engine"),
		metrics:          m,
		now:              now,
		resources:        NewResourceSystem(bus, log),
		upgrades:         NewUpgradeSystem(bus, log, opts.Catalog),
		logs:             NewLogSystem(bus, log, opts.Catalog, now),
		encounters:       NewEncounterSystem(bus, log, opts.Catalog, rnd, now),
		navigation:       NewNavigationSystem(bus, log, opts.Catalog),
		combat:           NewCombatSystem(bus, log, opts.Catalog, rnd),
		tickInterval:     opts.TickInterval,
		autosaveInterval: opts.AutosaveInterval,
		saveTimeout:      opts.SaveTimeout,
	}
	if e.tickInterval <= 0 {
		e.tickInterval = DefaultTickInterval
	}
	if e.saveTimeout <= 0 {
		e.saveTimeout = 5 * time.Second
	}
	e.upgrades.UpdateAllStats(e.state)
	e.wire()
	return e, nil
}

// wire connects the cross-system events. Handlers run synchronously inside
// whichever critical section published the event, so they touch e.state
// without locking.
func (e *Engine) wire() {
	e.unsubscribe = append(e.unsubscribe,
		events.On(e.bus, func(ev events.ResourceChange) {
			e.resources.OnResourceChange(e.state, ev)
		}),
		events.On(e.bus, func(ev events.CombatEncounterTriggered) {
			e.combat.OnCombatTriggered(e.state, ev)
		}),
		events.On(e.bus, func(ev events.CombatEnded) {
			e.encounters.OnCombatEnded(e.state, ev)
		}),
		events.On(e.bus, func(events.UpgradePurchased) {
			e.logs.Evaluate(e.state)
		}),
	)
}

// Subscribe registers a listener on the engine's bus.
func (e *Engine) Subscribe(t events.EventType, h events.Handler) func() {
	return e.bus.Subscribe(t, h)
}

// Catalog exposes the read-only content tables.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Metrics exposes the engine's collector.
func (e *Engine) Metrics() *metrics.Collector {
	return e.metrics
}

// GetState returns a deep copy of the live state.
func (e *Engine) GetState() *state.GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Tick advances the simulation by delta seconds.
func (e *Engine) Tick(delta float64) {
	start := e.now()

	e.mu.Lock()
	e.tick++
	if e.resolved && e.tick > e.resolvedAt {
		e.combat.ClearResolved(e.state)
		e.resolved = false
	}
	e.resources.Update(e.state, delta)
	e.logs.Evaluate(e.state)
	snap, fp := e.changedLocked()
	e.mu.Unlock()

	published := e.publish(snap, fp)
	e.metrics.RecordTick(e.now().Sub(start), published)
}

// Dispatch applies one player action. It never panics and never returns an
// error; failures are reported in the result.
func (e *Engine) Dispatch(a Action) ActionResult {
	if a == nil {
		return reject("Empty action")
	}
	res, snap, fp := e.dispatchLocked(deref(a))
	e.publish(snap, fp)
	e.metrics.RecordAction(res.Success)
	return res
}

func (e *Engine) dispatchLocked(a Action) (res ActionResult, snap *state.GameState, fp fingerprint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorf("panic handling %s: %v", a.Kind(), r)
			res = reject("Internal error handling %s", a.Kind())
		}
	}()
	res = e.apply(a)
	snap, fp = e.changedLocked()
	return res, snap, fp
}

func (e *Engine) apply(a Action) ActionResult {
	s := e.state
	switch act := a.(type) {
	case ClickResource:
		return e.resources.Click(s, act.Category)
	case PurchaseUpgrade:
		r := e.upgrades.Purchase(s, act.Category, act.UpgradeType)
		return ActionResult{Success: r.Success, Message: r.Message, Data: r}
	case MarkLogRead:
		if !e.logs.MarkRead(s, act.LogID) {
			return reject("Unknown log %q", act.LogID)
		}
		return succeed("Log marked read")
	case MarkAllLogsRead:
		n := e.logs.MarkAllRead(s)
		return succeed(fmt.Sprintf("%d logs marked read", n))
	case SelectRegion:
		return e.navigation.SelectRegion(s, act.Region)
	case InitiateJump:
		return e.encounters.InitiateJump(s)
	case CompleteEncounter:
		return e.encounters.CompleteEncounter(s, act.ChoiceID)
	case MakeStoryChoice:
		return e.encounters.MakeStoryChoice(s, act.ChoiceID)
	case CombatAction:
		return e.combat.PerformAction(s, act.ActionID)
	case RetreatFromBattle:
		return e.combat.RetreatFromBattle(s)
	case AdjustAutomation:
		return e.resources.SetAutomation(s, act.Category, act.Enabled)
	case UnknownAction:
		e.logger.Warnf("ignoring unknown action %q", act.Type)
		e.metrics.RecordUnknownAction()
		return reject("Unknown action %q", act.Type)
	default:
		e.logger.Warnf("ignoring unsupported action %T", a)
		e.metrics.RecordUnknownAction()
		return reject("Unknown action %q", a.Kind())
	}
}

// changedLocked returns a copy of the state when it differs from the last
// copy delivered to listeners.
func (e *Engine) changedLocked() (*state.GameState, fingerprint) {
	fp, err := stateFingerprint(e.state)
	if err != nil {
		e.logger.Errorf("fingerprint state: %v", err)
	} else if e.delivered && fp == e.published {
		return nil, fp
	}
	return e.state.Clone(), fp
}

// publish delivers a snapshot. Only a delivered snapshot counts as seen, so
// a throttled change is offered again on the next frame. A resolved battle
// is kept for one more tick once a listener has had the chance to see it.
func (e *Engine) publish(snap *state.GameState, fp fingerprint) bool {
	if snap == nil {
		return false
	}
	if !e.bus.Publish(events.StateUpdated{State: snap}) {
		return false
	}
	e.mu.Lock()
	e.published = fp
	e.delivered = true
	if !e.resolved && snap.Combat != nil && snap.Combat.Outcome.Terminal() &&
		e.state.Combat != nil && e.state.Combat.Outcome.Terminal() {
		e.resolved = true
		e.resolvedAt = e.tick
	}
	e.mu.Unlock()
	return true
}

func stateFingerprint(s *state.GameState) (fingerprint, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return fingerprint{}, err
	}
	return blake3.Sum256(raw), nil
}

// Load replaces the state with the newest save, or a fresh game when none
// exists. Older shapes are migrated and stats recomputed.
func (e *Engine) Load(ctx context.Context) error {
	var loaded *state.GameState
	if e.store != nil {
		ctx, cancel := context.WithTimeout(ctx, e.saveTimeout)
		defer cancel()
		s, err := e.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("load game: %w", err)
		}
		loaded = s
	}
	if loaded == nil {
		e.logger.Info("no save found, starting a new game")
		loaded = state.New()
	}
	for _, fix := range state.Migrate(loaded) {
		e.logger.Warn("save migrated: " + fix)
	}

	e.mu.Lock()
	e.upgrades.UpdateAllStats(loaded)
	e.state = loaded
	e.resolved = false
	e.delivered = false
	e.mu.Unlock()
	return nil
}

// Save persists a copy of the current state.
func (e *Engine) Save(ctx context.Context) (string, error) {
	if e.store == nil {
		return "", ErrNoStore
	}
	snap := e.GetState()

	ctx, cancel := context.WithTimeout(ctx, e.saveTimeout)
	defer cancel()
	start := e.now()
	id, err := e.store.Save(ctx, snap)
	e.metrics.RecordSave(e.now().Sub(start), err)
	if err != nil {
		return "", fmt.Errorf("save game: %w", err)
	}
	e.logger.Debug("saved game " + id)
	return id, nil
}

func (e *Engine) autosave() {
	if _, err := e.Save(context.Background()); err != nil {
		e.logger.Errorf("autosave failed: %v", err)
	}
}

// Start restores the last save and runs the frame loop. Calling Start on a
// running engine does nothing.
func (e *Engine) Start(ctx context.Context) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	if e.ticker != nil {
		return nil
	}
	if err := e.Load(ctx); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t := NewTicker(e.tickInterval, e.now, e.Tick, e.logger)
	if e.store != nil {
		t.Every("autosave", e.autosaveInterval, e.autosave)
	}
	done := make(chan struct{})
	e.ticker, e.cancel, e.done = t, cancel, done

	go func() {
		defer close(done)
		t.Start(loopCtx)
	}()
	e.logger.Info("engine started")
	return nil
}

// Stop halts the frame loop and writes a final save. Calling Stop on a
// stopped engine does nothing.
func (e *Engine) Stop(ctx context.Context) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	if e.ticker == nil {
		return nil
	}
	e.ticker.Stop()
	e.cancel()
	select {
	case <-e.done:
	case <-ctx.Done():
		return fmt.Errorf("stop engine: %w", ctx.Err())
	}
	e.ticker, e.cancel, e.done = nil, nil, nil

	var err error
	if e.store != nil {
		_, err = e.Save(ctx)
	}
	e.logger.Info("engine stopped")
	return err
}

// Running reports whether the frame loop is active.
func (e *Engine) Running() bool {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	return e.ticker != nil
}
