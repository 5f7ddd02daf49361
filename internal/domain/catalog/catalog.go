// Package catalog holds the static content tables the simulation reads:
// regions, enemies, narrative logs, story encounters, combat actions and
// upgrades. Catalogs are read-only once loaded; every lookup returns a copy.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
)

//go:embed data/*.yaml
var embedded embed.FS

// GenericStoryID is the story used when a region defines none.
const GenericStoryID = "generic-signal"

// Catalog is the loaded, validated content.
type Catalog struct {
	regions     map[string]Region
	regionOrder []string
	enemies     map[string]Enemy
	enemyOrder  []string
	stories     map[string]Story
	actions     map[string]CombatAction
	actionOrder []string
	logs        []LogDefinition
	upgrades    map[string]Upgrade // keyed by category/id
}

// Load parses the embedded content.
func Load() (*Catalog, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("open embedded catalog: %w", err)
	}
	return Parse(sub)
}

// MustLoad is Load for callers that cannot run without content.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

type regionsFile struct {
	Regions []Region `yaml:"regions"`
}

type enemiesFile struct {
	Enemies []Enemy `yaml:"enemies"`
}

type storiesFile struct {
	Stories []Story `yaml:"stories"`
}

type actionsFile struct {
	Actions []CombatAction `yaml:"actions"`
}

type logsFile struct {
	Logs []LogDefinition `yaml:"logs"`
}

func decode(fsys fs.FS, name string, out any) error {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// Parse reads regions.yaml, enemies.yaml, stories.yaml, combat_actions.yaml
// and logs.yaml from fsys and validates cross references.
func Parse(fsys fs.FS) (*Catalog, error) {
	var (
		rf regionsFile
		ef enemiesFile
		sf storiesFile
		af actionsFile
		lf logsFile
	)
	for name, target := range map[string]any{
		"regions.yaml":        &rf,
		"enemies.yaml":        &ef,
		"stories.yaml":        &sf,
		"combat_actions.yaml": &af,
		"logs.yaml":           &lf,
	} {
		if err := decode(fsys, name, target); err != nil {
			return nil, err
		}
	}

	c := &Catalog{
		regions:  make(map[string]Region, len(rf.Regions)),
		enemies:  make(map[string]Enemy, len(ef.Enemies)),
		stories:  make(map[string]Story, len(sf.Stories)),
		actions:  make(map[string]CombatAction, len(af.Actions)),
		logs:     lf.Logs,
		upgrades: make(map[string]Upgrade, len(upgradeRegistry)),
	}

	var errs []error
	for _, r := range rf.Regions {
		if _, dup := c.regions[r.ID]; dup || r.ID == "" {
			errs = append(errs, fmt.Errorf("region %q: duplicate or empty id", r.ID))
			continue
		}
		c.regions[r.ID] = r
		c.regionOrder = append(c.regionOrder, r.ID)
	}
	for _, e := range ef.Enemies {
		if _, dup := c.enemies[e.ID]; dup || e.ID == "" {
			errs = append(errs, fmt.Errorf("enemy %q: duplicate or empty id", e.ID))
			continue
		}
		c.enemies[e.ID] = e
		c.enemyOrder = append(c.enemyOrder, e.ID)
	}
	for _, s := range sf.Stories {
		if _, dup := c.stories[s.ID]; dup || s.ID == "" {
			errs = append(errs, fmt.Errorf("story %q: duplicate or empty id", s.ID))
			continue
		}
		c.stories[s.ID] = s
	}
	for _, a := range af.Actions {
		if _, dup := c.actions[a.ID]; dup || a.ID == "" {
			errs = append(errs, fmt.Errorf("combat action %q: duplicate or empty id", a.ID))
			continue
		}
		c.actions[a.ID] = a
		c.actionOrder = append(c.actionOrder, a.ID)
	}
	for _, u := range upgradeRegistry {
		c.upgrades[upgradeKey(u.Category, u.ID)] = u
	}

	errs = append(errs, c.validate()...)
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return c, nil
}

func upgradeKey(category state.CategoryID, id string) string {
	return string(category) + "/" + id
}

func validResource(r state.ResourceType) bool {
	_, ok := state.CategoryFor(r)
	return ok
}

func validEffect(e *EffectSpec) bool {
	if e == nil {
		return true
	}
	switch e.Type {
	case state.EffectWeaken, state.EffectStun, state.EffectExpose:
		return e.Duration > 0
	}
	return false
}

func (c *Catalog) validate() []error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, ok := c.stories[GenericStoryID]; !ok {
		add("missing generic story %q", GenericStoryID)
	}

	for _, id := range c.regionOrder {
		r := c.regions[id]
		ch := r.Chances
		if ch.Combat < 0 || ch.Empty < 0 || ch.Story < 0 || ch.Combat+ch.Empty+ch.Story <= 0 {
			add("region %s: invalid encounter chances %+v", id, ch)
		}
		if r.Requires != "" {
			if _, ok := c.regions[r.Requires]; !ok {
				add("region %s: requires unknown region %q", id, r.Requires)
			}
		}
		if r.BossID != "" {
			if e, ok := c.enemies[r.BossID]; !ok || !e.IsBoss {
				add("region %s: boss %q is not a known boss", id, r.BossID)
			}
		}
		for _, s := range r.Stories {
			if _, ok := c.stories[s]; !ok {
				add("region %s: unknown story %q", id, s)
			}
		}
		for _, w := range r.LegacyEnemies {
			if _, ok := c.enemies[w.EnemyID]; !ok {
				add("region %s: legacy table references unknown enemy %q", id, w.EnemyID)
			}
		}
		for _, rr := range r.EmptyRewards {
			if !validResource(rr.Resource) || rr.Max < rr.Min {
				add("region %s: invalid empty reward %+v", id, rr)
			}
		}
	}

	for _, id := range c.enemyOrder {
		e := c.enemies[id]
		r, ok := c.regions[e.RegionID]
		if !ok {
			add("enemy %s: unknown region %q", id, e.RegionID)
		} else if e.SubRegionID != "" && !r.HasSubRegion(e.SubRegionID) {
			add("enemy %s: unknown sub-region %q in %s", id, e.SubRegionID, e.RegionID)
		}
		if e.Health <= 0 {
			add("enemy %s: health must be positive", id)
		}
		if len(e.Actions) == 0 {
			add("enemy %s: has no actions", id)
		}
		for _, a := range e.Actions {
			switch a.Condition.Type {
			case ConditionAlways, ConditionHealthThreshold, ConditionShieldThreshold, ConditionRandom:
			default:
				add("enemy %s action %s: unknown condition %q", id, a.ID, a.Condition.Type)
			}
			if !validEffect(a.Effect) {
				add("enemy %s action %s: invalid effect", id, a.ID)
			}
		}
		for _, l := range e.Loot {
			if !validResource(l.Resource) {
				add("enemy %s: loot has unknown resource %q", id, l.Resource)
			}
		}
	}

	for id, s := range c.stories {
		if len(s.Choices) == 0 {
			add("story %s: has no choices", id)
		}
		for _, ch := range s.Choices {
			if ch.Combat != nil && ch.Combat.EnemyID != "" {
				if _, ok := c.enemies[ch.Combat.EnemyID]; !ok {
					add("story %s choice %s: unknown enemy %q", id, ch.ID, ch.Combat.EnemyID)
				}
			}
			for _, rw := range ch.Rewards {
				if !validResource(rw.Resource) {
					add("story %s choice %s: unknown resource %q", id, ch.ID, rw.Resource)
				}
			}
		}
	}

	for _, id := range c.actionOrder {
		a := c.actions[id]
		if !validResource(a.Cost.Resource) || a.Cost.Amount < 0 {
			add("combat action %s: invalid cost %+v", id, a.Cost)
		}
		if !validEffect(a.Effect) {
			add("combat action %s: invalid effect", id)
		}
	}

	seen := make(map[string]bool, len(c.logs))
	for _, l := range c.logs {
		if seen[l.ID] || l.ID == "" {
			add("log %q: duplicate or empty id", l.ID)
		}
		seen[l.ID] = true
		if err := c.validateCondition(l.Condition); err != nil {
			add("log %s: %v", l.ID, err)
		}
	}
	return errs
}

func (c *Catalog) validateCondition(cond LogCondition) error {
	switch cond.Type {
	case LogResourceThreshold:
		if _, ok := state.ResourceFor(cond.Category); !ok {
			return fmt.Errorf("unknown category %q", cond.Category)
		}
	case LogUpgradePurchased:
		if _, ok := c.upgrades[upgradeKey(cond.Category, cond.Upgrade)]; !ok {
			return fmt.Errorf("unknown upgrade %s/%s", cond.Category, cond.Upgrade)
		}
	case LogMultiCondition:
		if cond.Operator != OperatorAnd && cond.Operator != OperatorOr {
			return fmt.Errorf("unknown operator %q", cond.Operator)
		}
		if len(cond.Conditions) == 0 {
			return errors.New("multi-condition without conditions")
		}
		for _, sub := range cond.Conditions {
			if err := c.validateCondition(sub); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown condition type %q", cond.Type)
	}
	return nil
}

// Region looks up a region.
func (c *Catalog) Region(id string) (Region, bool) {
	r, ok := c.regions[id]
	if !ok {
		return Region{}, false
	}
	return r.clone(), true
}

// Regions returns every region in declaration order.
func (c *Catalog) Regions() []Region {
	out := make([]Region, 0, len(c.regionOrder))
	for _, id := range c.regionOrder {
		out = append(out, c.regions[id].clone())
	}
	return out
}

// Enemy looks up an enemy definition.
func (c *Catalog) Enemy(id string) (Enemy, bool) {
	e, ok := c.enemies[id]
	if !ok {
		return Enemy{}, false
	}
	return e.clone(), true
}

// Story looks up a story template. The returned copy shares nothing with
// the catalog.
func (c *Catalog) Story(id string) (Story, bool) {
	s, ok := c.stories[id]
	if !ok {
		return Story{}, false
	}
	return s.clone(), true
}

// CombatAction looks up a player combat action.
func (c *Catalog) CombatAction(id string) (CombatAction, bool) {
	a, ok := c.actions[id]
	if !ok {
		return CombatAction{}, false
	}
	return a.clone(), true
}

// CombatActions returns every player action in declaration order.
func (c *Catalog) CombatActions() []CombatAction {
	out := make([]CombatAction, 0, len(c.actionOrder))
	for _, id := range c.actionOrder {
		out = append(out, c.actions[id].clone())
	}
	return out
}

// Logs returns every log definition.
func (c *Catalog) Logs() []LogDefinition {
	out := make([]LogDefinition, len(c.logs))
	for i, l := range c.logs {
		out[i] = l
		out[i].Condition = l.Condition.clone()
	}
	return out
}

// Upgrade looks up an upgrade by category and id.
func (c *Catalog) Upgrade(category state.CategoryID, id string) (Upgrade, bool) {
	u, ok := c.upgrades[upgradeKey(category, id)]
	return u, ok
}

// Upgrades returns every upgrade in application order.
func (c *Catalog) Upgrades() []Upgrade {
	return append([]Upgrade(nil), upgradeRegistry...)
}
