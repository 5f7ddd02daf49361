package state

// MaxBattleLog caps the battle log; older entries are dropped first.
const MaxBattleLog = 50

// Outcome is the combat state machine position.
type Outcome string

const (
	OutcomeActive  Outcome = "active"
	OutcomeVictory Outcome = "victory"
	OutcomeDefeat  Outcome = "defeat"
	OutcomeRetreat Outcome = "retreat"
)

// Terminal reports whether the battle is over.
func (o Outcome) Terminal() bool {
	return o == OutcomeVictory || o == OutcomeDefeat || o == OutcomeRetreat
}

// EffectType identifies a timed modifier on a combatant.
type EffectType string

const (
	EffectWeaken EffectType = "WEAKEN" // damage taken is multiplied by 1+Magnitude
	EffectStun   EffectType = "STUN"   // the afflicted side loses its action
	EffectExpose EffectType = "EXPOSE" // damage taken bypasses shields
)

// StatusEffect is a modifier that expires after RemainingTurns turns.
type StatusEffect struct {
	Type           EffectType `json:"type"`
	Magnitude      float64    `json:"magnitude"`
	RemainingTurns int        `json:"remainingTurns"`
	Source         string     `json:"source"`
}

// Combatant is either side of a battle.
type Combatant struct {
	Health    float64        `json:"health"`
	MaxHealth float64        `json:"maxHealth"`
	Shield    float64        `json:"shield"`
	MaxShield float64        `json:"maxShield"`
	Effects   []StatusEffect `json:"effects"`
}

// HasEffect reports whether an effect of the given type is active.
func (c *Combatant) HasEffect(t EffectType) bool {
	_, ok := c.Effect(t)
	return ok
}

// Effect returns the strongest active effect of the given type.
func (c *Combatant) Effect(t EffectType) (StatusEffect, bool) {
	var best StatusEffect
	found := false
	for _, e := range c.Effects {
		if e.Type != t || e.RemainingTurns <= 0 {
			continue
		}
		if !found || e.Magnitude > best.Magnitude {
			best = e
			found = true
		}
	}
	return best, found
}

// AddEffect stacks a new effect instance.
func (c *Combatant) AddEffect(e StatusEffect) {
	c.Effects = append(c.Effects, e)
}

// TickEffects decrements every effect once and drops the expired ones,
// returning what expired.
func (c *Combatant) TickEffects() []StatusEffect {
	var expired []StatusEffect
	kept := c.Effects[:0]
	for _, e := range c.Effects {
		e.RemainingTurns--
		if e.RemainingTurns <= 0 {
			expired = append(expired, e)
			continue
		}
		kept = append(kept, e)
	}
	c.Effects = kept
	return expired
}

// HealthPercent returns health as 0..100.
func (c *Combatant) HealthPercent() float64 {
	if c.MaxHealth <= 0 {
		return 0
	}
	return c.Health / c.MaxHealth * 100
}

// ShieldPercent returns shield as 0..100. A combatant without shields
// reads as 0%.
func (c *Combatant) ShieldPercent() float64 {
	if c.MaxShield <= 0 {
		return 0
	}
	return c.Shield / c.MaxShield * 100
}

// BattleLogEntry is one line of the battle log.
type BattleLogEntry struct {
	Turn    int    `json:"turn"`
	Source  string `json:"source"` // "player", "enemy", "system"
	Message string `json:"message"`
}

// Battle log sources.
const (
	LogSourcePlayer = "player"
	LogSourceEnemy  = "enemy"
	LogSourceSystem = "system"
)

// CombatState exists while a battle is active or was resolved this tick.
type CombatState struct {
	EnemyID     string           `json:"enemyId"`
	EnemyName   string           `json:"enemyName"`
	RegionID    string           `json:"regionId"`
	SubRegionID string           `json:"subRegionId,omitempty"`
	IsBoss      bool             `json:"isBoss"`
	Outcome     Outcome          `json:"outcome"`
	Turn        int              `json:"turn"`
	Player      Combatant        `json:"player"`
	Enemy       Combatant        `json:"enemy"`
	Cooldowns   map[string]int   `json:"cooldowns"`
	Log         []BattleLogEntry `json:"log"`
	Loot        []Reward         `json:"loot,omitempty"`
}

// Active reports whether turns can still be played.
func (c *CombatState) Active() bool {
	return c != nil && c.Outcome == OutcomeActive
}

// AppendLog adds an entry, dropping the oldest past MaxBattleLog.
func (c *CombatState) AppendLog(source, message string) {
	c.Log = append(c.Log, BattleLogEntry{Turn: c.Turn, Source: source, Message: message})
	if over := len(c.Log) - MaxBattleLog; over > 0 {
		c.Log = append(c.Log[:0:0], c.Log[over:]...)
	}
}
