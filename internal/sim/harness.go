// Package sim runs scripted playthroughs against a headless engine and
// checks the state they end in.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/catalog"
	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
	"github.com/MRamiBalles/ReactorIdle/server/internal/engine"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/logger"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/metrics"
)

// FrameSeconds is the delta each simulated frame advances.
const FrameSeconds = 0.016

// Scenario is one scripted playthrough.
type Scenario struct {
	Name        string
	Description string
	Run         func(d *Driver) error
}

// Result captures the outcome of each scenario.
type Result struct {
	Scenario string
	Passed   bool
	Reason   string
	Actions  int
	Frames   int
	Duration time.Duration
}

// Driver feeds actions and frames into one engine.
type Driver struct {
	eng     *engine.Engine
	actions int
	frames  int
}

// Do dispatches an action and returns its result.
func (d *Driver) Do(a engine.Action) engine.ActionResult {
	d.actions++
	return d.eng.Dispatch(a)
}

// Must dispatches an action and fails when it is rejected.
func (d *Driver) Must(a engine.Action) error {
	if res := d.Do(a); !res.Success {
		return fmt.Errorf("%s rejected: %s", a.Kind(), res.Message)
	}
	return nil
}

// Repeat dispatches the same action n times, stopping at the first rejection.
func (d *Driver) Repeat(a engine.Action, n int) error {
	for i := 0; i < n; i++ {
		if err := d.Must(a); err != nil {
			return fmt.Errorf("attempt %d: %w", i+1, err)
		}
	}
	return nil
}

// Advance runs one frame of the given length.
func (d *Driver) Advance(seconds float64) {
	d.frames++
	d.eng.Tick(seconds)
}

// AdvanceFrames runs n regular frames.
func (d *Driver) AdvanceFrames(n int) {
	for i := 0; i < n; i++ {
		d.Advance(FrameSeconds)
	}
}

// State returns a copy of the current state.
func (d *Driver) State() *state.GameState {
	return d.eng.GetState()
}

// Runner executes scenarios, each on a fresh engine.
type Runner struct {
	catalog *catalog.Catalog
	seed    int64
	logger  *logger.Logger
	metrics *metrics.Collector
	results []Result
}

// NewRunner creates a runner. Engines share one metrics collector so a run
// can be analyzed as a whole.
func NewRunner(cat *catalog.Catalog, seed int64, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{
		catalog: cat,
		seed:    seed,
		logger:  log.With("sim"),
		metrics: metrics.New(),
	}
}

// Metrics returns the collector shared by every scenario engine.
func (r *Runner) Metrics() *metrics.Collector {
	return r.metrics
}

// Run executes the scenarios in order. It stops early when ctx is done.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) []Result {
	for _, sc := range scenarios {
		if ctx.Err() != nil {
			break
		}
		r.results = append(r.results, r.runOne(sc))
	}
	return r.results
}

func (r *Runner) runOne(sc Scenario) (res Result) {
	res.Scenario = sc.Name
	start := time.Now()

	eng, err := engine.New(engine.Options{
		Catalog:       r.catalog,
		Seed:          r.seed,
		Logger:        r.logger,
		Metrics:       r.metrics,
		StateThrottle: -1,
	})
	if err != nil {
		res.Reason = err.Error()
		return res
	}

	d := &Driver{eng: eng}
	defer func() {
		if p := recover(); p != nil {
			res.Passed = false
			res.Reason = fmt.Sprintf("panic: %v", p)
		}
		res.Actions, res.Frames = d.actions, d.frames
		res.Duration = time.Since(start)
		if res.Passed {
			r.logger.Event("SCENARIO_PASSED", sc.Name, res.Duration.String())
		} else {
			r.logger.Event("SCENARIO_FAILED", sc.Name, res.Reason)
		}
	}()

	if err := sc.Run(d); err != nil {
		res.Reason = err.Error()
		return res
	}
	res.Passed = true
	res.Reason = sc.Description
	return res
}

// GetResults returns all results collected so far.
func (r *Runner) GetResults() []Result {
	return r.results
}

// Summary counts passed and failed results.
func Summary(results []Result) (passed, failed int) {
	for _, res := range results {
		if res.Passed {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}
