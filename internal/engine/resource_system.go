package engine

import (
	"fmt"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/rules"
	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
	"github.com/MRamiBalles/ReactorIdle/server/internal/events"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/logger"
)

// ResourceSystem accrues resources over time and is the only writer of
// category amounts.
type ResourceSystem struct {
	bus    *events.Bus
	logger *logger.Logger
}

// NewResourceSystem creates the resource production engine.
func NewResourceSystem(bus *events.Bus, log *logger.Logger) *ResourceSystem {
	return &ResourceSystem{
		bus:    bus,
		logger: log.With("resources"),
	}
}

// Update advances production by delta seconds. Automated categories also
// earn PerClick for every automated click.
func (rs *ResourceSystem) Update(s *state.GameState, delta float64) {
	if delta <= 0 {
		return
	}
	for _, id := range state.CategoryOrder {
		c, ok := s.Category(id)
		if !ok || !c.Unlocked {
			continue
		}
		rate := c.Stats.PerSecond
		if c.Automated {
			rate += c.Stats.PerClick * c.Stats.AutomationRate
		}
		if rate <= 0 {
			// Still enforce the bound in case capacity shrank.
			c.Amount = rules.Clamp(c.Amount, c.Stats.Capacity)
			continue
		}
		c.Amount = rules.Clamp(c.Amount+rate*delta, c.Stats.Capacity)
	}
}

// Click adds one manual cycle of production to a category.
func (rs *ResourceSystem) Click(s *state.GameState, id state.CategoryID) ActionResult {
	c, ok := s.Category(id)
	if !ok {
		return reject("Unknown category %q", id)
	}
	if !c.Unlocked {
		return reject("%s is locked", id)
	}
	before := c.Amount
	c.Amount = rules.Clamp(c.Amount+c.Stats.PerClick, c.Stats.Capacity)
	if c.Amount == before {
		return ActionResult{Success: true, Message: fmt.Sprintf("%s storage is full", id)}
	}
	return succeed(fmt.Sprintf("+%g %s", c.Amount-before, c.Resource))
}

// OnResourceChange applies a resource delta, clamped to [0, capacity].
func (rs *ResourceSystem) OnResourceChange(s *state.GameState, ev events.ResourceChange) {
	id := ev.Category
	if id == "" {
		var found bool
		id, found = state.CategoryFor(ev.Resource)
		if !found {
			rs.logger.Errorf("resource change for unknown resource %q from %s", ev.Resource, ev.Source)
			return
		}
	}
	c, ok := s.Category(id)
	if !ok {
		rs.logger.Errorf("resource change for unknown category %q from %s", id, ev.Source)
		return
	}
	c.Amount = rules.Clamp(c.Amount+ev.Amount, c.Stats.Capacity)
}

// SetAutomation toggles automated clicking for a category. Automation
// needs the protocols upgrade first.
func (rs *ResourceSystem) SetAutomation(s *state.GameState, id state.CategoryID, enabled bool) ActionResult {
	c, ok := s.Category(id)
	if !ok {
		return reject("Unknown category %q", id)
	}
	if !c.Unlocked {
		return reject("%s is locked", id)
	}
	if enabled && c.Stats.AutomationRate <= 0 {
		return reject("Automation protocols are not installed")
	}
	c.Automated = enabled
	if enabled {
		return succeed(fmt.Sprintf("%s automation enabled", id))
	}
	return succeed(fmt.Sprintf("%s automation disabled", id))
}

// spend publishes a negative resource change. The caller has already
// checked affordability.
func spend(bus *events.Bus, r state.ResourceType, amount float64, source string) {
	if amount <= 0 {
		return
	}
	id, _ := state.CategoryFor(r)
	bus.Publish(events.ResourceChange{Category: id, Resource: r, Amount: -amount, Source: source})
}

// grant publishes a positive (or, for story costs, negative) change.
func grant(bus *events.Bus, r state.Reward, source string) {
	if r.Amount == 0 {
		return
	}
	id, _ := state.CategoryFor(r.Resource)
	bus.Publish(events.ResourceChange{Category: id, Resource: r.Resource, Amount: r.Amount, Source: source})
}

// amountOf returns how much of a resource is stored.
func amountOf(s *state.GameState, r state.ResourceType) float64 {
	id, ok := state.CategoryFor(r)
	if !ok {
		return 0
	}
	if c, ok := s.Category(id); ok {
		return c.Amount
	}
	return 0
}
