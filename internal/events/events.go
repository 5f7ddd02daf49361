// Package events is the typed publish/subscribe hub every subsystem talks
// through, plus the append-only ledger of everything that happened.
package events

import "github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"

// EventType identifies an event on the bus.
type EventType string

const (
	EventTypeStateUpdated             EventType = "stateUpdated"
	EventTypeResourceChange           EventType = "resourceChange"
	EventTypeCombatEncounterTriggered EventType = "combatEncounterTriggered"
	EventTypeCombatEnded              EventType = "combatEnded"
	EventTypeEncounterCompleted       EventType = "encounterCompleted"
	EventTypeUpgradePurchased         EventType = "upgradePurchased"
	EventTypeLogUnlocked              EventType = "logUnlocked"
)

// Event is implemented by every payload published on the bus.
type Event interface {
	Type() EventType
}

// Resource change sources.
const (
	SourceClick     = "click"
	SourceUpgrade   = "upgrade"
	SourceCombat    = "combat"
	SourceLoot      = "loot"
	SourceEncounter = "encounter"
	SourceRetreat   = "retreat"
)

// StateUpdated carries a snapshot of the state. Each listener receives its
// own copy.
type StateUpdated struct {
	State *state.GameState `json:"state"`
}

// ResourceChange adds (or removes, when negative) an amount of a resource.
// The resource engine is its only handler.
type ResourceChange struct {
	Category state.CategoryID   `json:"category"`
	Resource state.ResourceType `json:"resourceType"`
	Amount   float64            `json:"amount"`
	Source   string             `json:"source"`
}

// CombatEncounterTriggered asks the combat engine to start a battle.
type CombatEncounterTriggered struct {
	EnemyID     string `json:"enemyId"`
	RegionID    string `json:"regionId"`
	SubRegionID string `json:"subRegionId,omitempty"`
	IsBoss      bool   `json:"isBoss,omitempty"`
}

// CombatEnded is published once when a battle reaches a terminal outcome.
type CombatEnded struct {
	Outcome  state.Outcome `json:"outcome"`
	EnemyID  string        `json:"enemyId,omitempty"`
	RegionID string        `json:"regionId,omitempty"`
	IsBoss   bool          `json:"isBoss,omitempty"`
}

// EncounterCompleted is published when the active encounter resolves.
type EncounterCompleted struct {
	EncounterID   string              `json:"encounterId"`
	EncounterType state.EncounterType `json:"encounterType"`
	Result        string              `json:"result"`
}

// UpgradePurchased is published after a successful purchase.
type UpgradePurchased struct {
	Category    state.CategoryID `json:"category"`
	UpgradeType string           `json:"upgradeType"`
	Level       int              `json:"level"`
	Cost        float64          `json:"cost"`
}

// LogUnlocked is published for every newly discovered log.
type LogUnlocked struct {
	LogID    string           `json:"logId"`
	Category state.CategoryID `json:"category"`
}

func (StateUpdated) Type() EventType             { return EventTypeStateUpdated }
func (ResourceChange) Type() EventType           { return EventTypeResourceChange }
func (CombatEncounterTriggered) Type() EventType { return EventTypeCombatEncounterTriggered }
func (CombatEnded) Type() EventType              { return EventTypeCombatEnded }
func (EncounterCompleted) Type() EventType       { return EventTypeEncounterCompleted }
func (UpgradePurchased) Type() EventType         { return EventTypeUpgradePurchased }
func (LogUnlocked) Type() EventType              { return EventTypeLogUnlocked }
