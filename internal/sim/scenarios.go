package sim

import (
	"fmt"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
	"github.com/MRamiBalles/ReactorIdle/server/internal/engine"
)

var (
	clickReactor   = engine.ClickResource{Category: state.Reactor}
	clickProcessor = engine.ClickResource{Category: state.Processor}
)

// DefaultScenarios is the standard playthrough suite.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{
			Name:        "first-spark",
			Description: "ten reactor clicks discover the first log",
			Run: func(d *Driver) error {
				if err := d.Repeat(clickReactor, 10); err != nil {
					return err
				}
				d.Advance(0)
				s := d.State()
				if _, ok := s.Logs.Discovered["log_first_spark"]; !ok {
					return fmt.Errorf("log_first_spark not discovered at %.0f energy", amount(s, state.Reactor))
				}
				return nil
			},
		},
		{
			Name:        "capacity-clamp",
			Description: "clicking past capacity stops at capacity",
			Run: func(d *Driver) error {
				if err := d.Repeat(clickReactor, 150); err != nil {
					return err
				}
				c := d.State().Categories[state.Reactor]
				if c.Amount != c.Stats.Capacity {
					return fmt.Errorf("energy %.0f, want capacity %.0f", c.Amount, c.Stats.Capacity)
				}
				return nil
			},
		},
		{
			Name:        "reactor-expansion",
			Description: "an expansion doubles capacity and unlocks the malfunction log",
			Run: func(d *Driver) error {
				if err := d.Repeat(clickReactor, 80); err != nil {
					return err
				}
				if err := d.Must(engine.PurchaseUpgrade{Category: state.Reactor, UpgradeType: "reactorExpansions"}); err != nil {
					return err
				}
				s := d.State()
				if got := s.Categories[state.Reactor].Stats.Capacity; got != 200 {
					return fmt.Errorf("capacity %.0f, want 200", got)
				}
				if _, ok := s.Logs.Discovered["log_reactor_malfunction"]; !ok {
					return fmt.Errorf("log_reactor_malfunction not discovered")
				}
				return nil
			},
		},
		{
			Name:        "idle-production",
			Description: "energy converters produce while no one clicks",
			Run: func(d *Driver) error {
				if err := d.Repeat(clickReactor, 20); err != nil {
					return err
				}
				if err := d.Must(engine.PurchaseUpgrade{Category: state.Reactor, UpgradeType: "energyConverters"}); err != nil {
					return err
				}
				d.Advance(10)
				if got := amount(d.State(), state.Reactor); got != 10 {
					return fmt.Errorf("energy %.2f after 10s at 1/s, want 10", got)
				}
				return nil
			},
		},
		{
			Name:        "automation",
			Description: "automation protocols click on their own once enabled",
			Run: func(d *Driver) error {
				if err := d.Repeat(clickProcessor, 25); err != nil {
					return err
				}
				if err := d.Must(engine.PurchaseUpgrade{Category: state.Processor, UpgradeType: "automationProtocols"}); err != nil {
					return err
				}
				if err := d.Must(engine.AdjustAutomation{Category: state.Reactor, Enabled: true}); err != nil {
					return err
				}
				d.Advance(2)
				if got := amount(d.State(), state.Reactor); got <= 0 {
					return fmt.Errorf("no energy from automation")
				}
				return nil
			},
		},
		{
			Name:        "first-jump",
			Description: "the navigation computer enables a jump whose encounter resolves",
			Run:         firstJump,
		},
	}
}

func firstJump(d *Driver) error {
	if err := d.Repeat(clickProcessor, 40); err != nil {
		return err
	}
	if err := d.Must(engine.PurchaseUpgrade{Category: state.Processor, UpgradeType: "navigationComputer"}); err != nil {
		return err
	}
	if err := d.Must(engine.InitiateJump{}); err != nil {
		return err
	}

	// Story choices can lead into combat; retreat ends any battle.
resolve:
	for i := 0; i < 5; i++ {
		s := d.State()
		var err error
		switch {
		case s.Combat.Active():
			err = d.Must(engine.RetreatFromBattle{})
		case s.Encounters.Active == nil:
			break resolve
		case s.Encounters.Active.Type == state.EncounterStory && len(s.Encounters.Active.Choices) > 0:
			err = d.Must(engine.MakeStoryChoice{ChoiceID: s.Encounters.Active.Choices[0].ID})
		default:
			err = d.Must(engine.CompleteEncounter{})
		}
		if err != nil {
			return err
		}
	}
	d.AdvanceFrames(2)

	s := d.State()
	if s.Navigation.TotalJumps != 1 {
		return fmt.Errorf("total jumps %d, want 1", s.Navigation.TotalJumps)
	}
	if s.Encounters.Active != nil || s.Combat != nil {
		return fmt.Errorf("encounter still open after resolution")
	}
	if len(s.Encounters.History) == 0 {
		return fmt.Errorf("no encounter recorded")
	}
	return nil
}

func amount(s *state.GameState, id state.CategoryID) float64 {
	if c, ok := s.Categories[id]; ok {
		return c.Amount
	}
	return 0
}

// Find returns the named scenarios, or all of them when names is empty.
func Find(names []string) ([]Scenario, error) {
	all := DefaultScenarios()
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]Scenario, len(all))
	for _, sc := range all {
		byName[sc.Name] = sc
	}
	out := make([]Scenario, 0, len(names))
	for _, n := range names {
		sc, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", n)
		}
		out = append(out, sc)
	}
	return out, nil
}
