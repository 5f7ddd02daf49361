package state

import "time"

// MaxEncounterHistory caps the completed-encounter history.
const MaxEncounterHistory = 100

// EncounterType classifies a generated encounter.
type EncounterType string

const (
	EncounterEmpty  EncounterType = "empty"
	EncounterStory  EncounterType = "story"
	EncounterCombat EncounterType = "combat"
)

// CombatTrigger on a story choice starts a battle instead of resolving.
// An empty EnemyID means "generate one for the current region".
type CombatTrigger struct {
	EnemyID string `json:"enemyId,omitempty" yaml:"enemyId"`
	IsBoss  bool   `json:"isBoss,omitempty" yaml:"isBoss"`
}

// StoryChoice is one branch of a narrative encounter.
type StoryChoice struct {
	ID      string         `json:"id" yaml:"id"`
	Text    string         `json:"text" yaml:"text"`
	Outcome string         `json:"outcome" yaml:"outcome"`
	Rewards []Reward       `json:"rewards,omitempty" yaml:"rewards"`
	Combat  *CombatTrigger `json:"combat,omitempty" yaml:"combat"`
}

// Encounter is the active event produced by a jump.
type Encounter struct {
	ID          string        `json:"id"`
	Type        EncounterType `json:"type"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	RegionID    string        `json:"regionId"`
	SubRegionID string        `json:"subRegionId,omitempty"`
	Rewards     []Reward      `json:"rewards,omitempty"`
	EnemyID     string        `json:"enemyId,omitempty"`
	IsBoss      bool          `json:"isBoss,omitempty"`
	Choices     []StoryChoice `json:"choices,omitempty"`
}

// Choice finds a story branch by id.
func (e *Encounter) Choice(id string) (StoryChoice, bool) {
	for _, c := range e.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return StoryChoice{}, false
}

// Encounter results recorded in history.
const (
	ResultCompleted = "completed"
	ResultCombat    = "combat"
)

// EncounterRecord is a completed encounter.
type EncounterRecord struct {
	EncounterID string        `json:"encounterId"`
	Type        EncounterType `json:"type"`
	Title       string        `json:"title"`
	RegionID    string        `json:"regionId"`
	ChoiceID    string        `json:"choiceId,omitempty"`
	Result      string        `json:"result"`
	CompletedAt time.Time     `json:"completedAt"`
}

// Encounters holds the single active encounter and the history.
type Encounters struct {
	Active  *Encounter        `json:"active,omitempty"`
	History []EncounterRecord `json:"history"`
}

// Record appends a history entry, trimming the oldest past the cap.
func (e *Encounters) Record(r EncounterRecord) {
	e.History = append(e.History, r)
	if over := len(e.History) - MaxEncounterHistory; over > 0 {
		e.History = append(e.History[:0:0], e.History[over:]...)
	}
}
