package catalog

import (
	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
)

// EncounterChances are the per-region probabilities of each encounter
// class. They are drawn against a single uniform roll.
type EncounterChances struct {
	Combat float64 `yaml:"combat" json:"combat"`
	Empty  float64 `yaml:"empty" json:"empty"`
	Story  float64 `yaml:"story" json:"story"`
}

// DefaultChances apply when a region is unknown.
var DefaultChances = EncounterChances{Combat: 0.3, Empty: 0.5, Story: 0.2}

// SubRegion is a named stretch of a region.
type SubRegion struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// WeightedEnemy is an entry of the legacy per-region enemy table.
type WeightedEnemy struct {
	EnemyID string  `yaml:"enemyId" json:"enemyId"`
	Weight  float64 `yaml:"weight" json:"weight"`
}

// RewardRange is a reward whose amount is drawn from [Min, Max].
type RewardRange struct {
	Resource state.ResourceType `yaml:"resource" json:"resource"`
	Min      float64            `yaml:"min" json:"min"`
	Max      float64            `yaml:"max" json:"max"`
}

// Region is a destination the ship can travel to.
type Region struct {
	ID            string           `yaml:"id" json:"id"`
	Name          string           `yaml:"name" json:"name"`
	Description   string           `yaml:"description" json:"description"`
	Requires      string           `yaml:"requires" json:"requires,omitempty"`
	Chances       EncounterChances `yaml:"chances" json:"chances"`
	BossAt        int              `yaml:"bossAt" json:"bossAt"`
	BossID        string           `yaml:"bossId" json:"bossId"`
	SubRegions    []SubRegion      `yaml:"subRegions" json:"subRegions"`
	Flavor        []string         `yaml:"flavor" json:"flavor"`
	EmptyRewards  []RewardRange    `yaml:"emptyRewards" json:"emptyRewards"`
	Stories       []string         `yaml:"stories" json:"stories"`
	LegacyEnemies []WeightedEnemy  `yaml:"legacyEnemies" json:"legacyEnemies"`
}

// FirstSubRegion returns the entry point of the region.
func (r Region) FirstSubRegion() string {
	if len(r.SubRegions) == 0 {
		return ""
	}
	return r.SubRegions[0].ID
}

// SubRegionAt maps jump progress onto a sub-region. Sub-regions split the
// road to the boss evenly; the last one holds until the boss.
func (r Region) SubRegionAt(progress int) string {
	n := len(r.SubRegions)
	if n == 0 {
		return ""
	}
	if r.BossAt <= 0 || progress <= 0 {
		return r.SubRegions[0].ID
	}
	stride := (r.BossAt + n - 1) / n
	idx := progress / stride
	if idx >= n {
		idx = n - 1
	}
	return r.SubRegions[idx].ID
}

// HasSubRegion reports whether id belongs to the region.
func (r Region) HasSubRegion(id string) bool {
	for _, s := range r.SubRegions {
		if s.ID == id {
			return true
		}
	}
	return false
}

func (r Region) clone() Region {
	out := r
	out.SubRegions = append([]SubRegion(nil), r.SubRegions...)
	out.Flavor = append([]string(nil), r.Flavor...)
	out.EmptyRewards = append([]RewardRange(nil), r.EmptyRewards...)
	out.Stories = append([]string(nil), r.Stories...)
	out.LegacyEnemies = append([]WeightedEnemy(nil), r.LegacyEnemies...)
	return out
}

// ConditionType decides when an enemy may use an action.
type ConditionType string

const (
	ConditionAlways          ConditionType = "ALWAYS"
	ConditionHealthThreshold ConditionType = "HEALTH_THRESHOLD"
	ConditionShieldThreshold ConditionType = "SHIELD_THRESHOLD"
	ConditionRandom          ConditionType = "RANDOM"
)

// ActionCondition gates an enemy action. Thresholds are percentages.
type ActionCondition struct {
	Type        ConditionType `yaml:"type" json:"type"`
	Threshold   float64       `yaml:"threshold" json:"threshold,omitempty"`
	Probability float64       `yaml:"probability" json:"probability,omitempty"`
}

// EffectSpec is a status effect applied to the target of an action.
type EffectSpec struct {
	Type      state.EffectType `yaml:"type" json:"type"`
	Magnitude float64          `yaml:"magnitude" json:"magnitude,omitempty"`
	Duration  int              `yaml:"duration" json:"duration"`
}

// EnemyAction is one move in an enemy's repertoire. Damage and Effect land
// on the player; ShieldRestore and Repair apply to the enemy itself.
type EnemyAction struct {
	ID            string          `yaml:"id" json:"id"`
	Name          string          `yaml:"name" json:"name"`
	Damage        float64         `yaml:"damage" json:"damage,omitempty"`
	ShieldRestore float64         `yaml:"shieldRestore" json:"shieldRestore,omitempty"`
	Repair        float64         `yaml:"repair" json:"repair,omitempty"`
	Effect        *EffectSpec     `yaml:"effect" json:"effect,omitempty"`
	Condition     ActionCondition `yaml:"condition" json:"condition"`
}

// LootEntry is paid out on victory when a roll is <= Probability.
type LootEntry struct {
	Resource    state.ResourceType `yaml:"resource" json:"resource"`
	Amount      float64            `yaml:"amount" json:"amount"`
	Probability float64            `yaml:"probability" json:"probability"`
}

// Enemy is a combat opponent definition.
type Enemy struct {
	ID          string        `yaml:"id" json:"id"`
	Name        string        `yaml:"name" json:"name"`
	Description string        `yaml:"description" json:"description"`
	RegionID    string        `yaml:"region" json:"region"`
	SubRegionID string        `yaml:"subRegion" json:"subRegion,omitempty"`
	IsBoss      bool          `yaml:"isBoss" json:"isBoss"`
	Health      float64       `yaml:"health" json:"health"`
	Shield      float64       `yaml:"shield" json:"shield"`
	Actions     []EnemyAction `yaml:"actions" json:"actions"`
	Loot        []LootEntry   `yaml:"loot" json:"loot"`
}

func (e Enemy) clone() Enemy {
	out := e
	out.Actions = make([]EnemyAction, len(e.Actions))
	for i, a := range e.Actions {
		out.Actions[i] = a
		if a.Effect != nil {
			eff := *a.Effect
			out.Actions[i].Effect = &eff
		}
	}
	out.Loot = append([]LootEntry(nil), e.Loot...)
	return out
}

// CombatAction is a move available to the player.
type CombatAction struct {
	ID            string       `yaml:"id" json:"id"`
	Name          string       `yaml:"name" json:"name"`
	Description   string       `yaml:"description" json:"description"`
	Cost          state.Reward `yaml:"cost" json:"cost"`
	Damage        float64      `yaml:"damage" json:"damage,omitempty"`
	ShieldRestore float64      `yaml:"shieldRestore" json:"shieldRestore,omitempty"`
	Repair        float64      `yaml:"repair" json:"repair,omitempty"`
	Cooldown      int          `yaml:"cooldown" json:"cooldown,omitempty"`
	Effect        *EffectSpec  `yaml:"effect" json:"effect,omitempty"`
}

func (a CombatAction) clone() CombatAction {
	out := a
	if a.Effect != nil {
		eff := *a.Effect
		out.Effect = &eff
	}
	return out
}

// LogConditionType is a node kind in a log unlock tree.
type LogConditionType string

const (
	LogResourceThreshold LogConditionType = "RESOURCE_THRESHOLD"
	LogUpgradePurchased  LogConditionType = "UPGRADE_PURCHASED"
	LogMultiCondition    LogConditionType = "MULTI_CONDITION"
)

// Combinators for MULTI_CONDITION.
const (
	OperatorAnd = "AND"
	OperatorOr  = "OR"
)

// LogCondition is a node of the unlock predicate tree.
type LogCondition struct {
	Type       LogConditionType `yaml:"type" json:"type"`
	Category   state.CategoryID `yaml:"category" json:"category,omitempty"`
	Threshold  float64          `yaml:"threshold" json:"threshold,omitempty"`
	Upgrade    string           `yaml:"upgrade" json:"upgrade,omitempty"`
	Operator   string           `yaml:"operator" json:"operator,omitempty"`
	Conditions []LogCondition   `yaml:"conditions" json:"conditions,omitempty"`
}

func (c LogCondition) clone() LogCondition {
	out := c
	if c.Conditions != nil {
		out.Conditions = make([]LogCondition, len(c.Conditions))
		for i, sub := range c.Conditions {
			out.Conditions[i] = sub.clone()
		}
	}
	return out
}

// LogDefinition is a narrative log that unlocks when Condition holds.
type LogDefinition struct {
	ID        string           `yaml:"id" json:"id"`
	Title     string           `yaml:"title" json:"title"`
	Content   string           `yaml:"content" json:"content"`
	Category  state.CategoryID `yaml:"category" json:"category"`
	Condition LogCondition     `yaml:"condition" json:"condition"`
}

// Story is a narrative encounter template.
type Story struct {
	ID          string              `yaml:"id" json:"id"`
	Title       string              `yaml:"title" json:"title"`
	Description string              `yaml:"description" json:"description"`
	Choices     []state.StoryChoice `yaml:"choices" json:"choices"`
}

func (s Story) clone() Story {
	out := s
	out.Choices = make([]state.StoryChoice, len(s.Choices))
	for i, c := range s.Choices {
		out.Choices[i] = c.Clone()
	}
	return out
}
