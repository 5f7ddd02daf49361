package engine

import (
	"fmt"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/catalog"
	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/rules"
	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
	"github.com/MRamiBalles/ReactorIdle/server/internal/events"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/logger"
)

// CombatSystem runs the turn-based battle state machine:
// inactive -> active -> victory | defeat | retreat.
type CombatSystem struct {
	bus     *events.Bus
	logger  *logger.Logger
	catalog *catalog.Catalog
	rnd     rules.Rand
}

// NewCombatSystem creates the combat engine.
func NewCombatSystem(bus *events.Bus, log *logger.Logger, cat *catalog.Catalog, rnd rules.Rand) *CombatSystem {
	return &CombatSystem{
		bus:     bus,
		logger:  log.With("combat"),
		catalog: cat,
		rnd:     rnd,
	}
}

// TurnReport summarizes one resolved turn for the caller.
type TurnReport struct {
	Turn         int                `json:"turn"`
	Outcome      state.Outcome      `json:"outcome"`
	PlayerDamage rules.DamageReport `json:"playerDamage"`
	EnemyDamage  rules.DamageReport `json:"enemyDamage"`
	EnemyAction  string             `json:"enemyAction,omitempty"`
}

// OnCombatTriggered starts a battle. It is the only way into combat.
func (cs *CombatSystem) OnCombatTriggered(s *state.GameState, ev events.CombatEncounterTriggered) {
	if s.Combat.Active() {
		cs.logger.Warnf("combat with %s already active, ignoring trigger for %s", s.Combat.EnemyID, ev.EnemyID)
		return
	}
	enemy, ok := cs.catalog.Enemy(ev.EnemyID)
	if !ok {
		cs.logger.Errorf("enemy %q not found, combat not started", ev.EnemyID)
		return
	}

	regionID := ev.RegionID
	if regionID == "" {
		regionID = enemy.RegionID
	}
	s.Combat = &state.CombatState{
		EnemyID:     enemy.ID,
		EnemyName:   enemy.Name,
		RegionID:    regionID,
		SubRegionID: ev.SubRegionID,
		IsBoss:      enemy.IsBoss || ev.IsBoss,
		Outcome:     state.OutcomeActive,
		Turn:        1,
		Player: state.Combatant{
			Health:    s.Ship.Health,
			MaxHealth: s.Ship.MaxHealth,
			Shield:    s.Ship.Shield,
			MaxShield: s.Ship.MaxShield,
			Effects:   []state.StatusEffect{},
		},
		Enemy: state.Combatant{
			Health:    enemy.Health,
			MaxHealth: enemy.Health,
			Shield:    enemy.Shield,
			MaxShield: enemy.Shield,
			Effects:   []state.StatusEffect{},
		},
		Cooldowns: make(map[string]int),
		Log:       []state.BattleLogEntry{},
	}
	s.Combat.AppendLog(state.LogSourceSystem, fmt.Sprintf("%s engages!", enemy.Name))
	cs.logger.Event("COMBAT_START", enemy.ID, fmt.Sprintf("region=%s boss=%t", regionID, s.Combat.IsBoss))
}

// PerformAction resolves one full turn: the player's action, then the
// enemy's reply, then end-of-turn bookkeeping.
func (cs *CombatSystem) PerformAction(s *state.GameState, actionID string) ActionResult {
	c := s.Combat
	if c == nil {
		cs.logger.Error("combat action " + actionID + " with no combat state")
		return reject("No active combat")
	}
	if !c.Active() {
		return reject("Combat is over")
	}
	if c.Cooldowns == nil {
		cs.logger.Warn("combat.cooldowns missing, initializing")
		c.Cooldowns = make(map[string]int)
	}

	act, ok := cs.catalog.CombatAction(actionID)
	if !ok {
		return reject("Unknown combat action %q", actionID)
	}
	if left := c.Cooldowns[actionID]; left > 0 {
		return reject("%s is recharging (%d turns)", act.Name, left)
	}
	if have := amountOf(s, act.Cost.Resource); act.Cost.Amount > 0 && have < act.Cost.Amount {
		return reject("Not enough %s for %s: need %g, have %g", act.Cost.Resource, act.Name, act.Cost.Amount, have)
	}

	spend(cs.bus, act.Cost.Resource, act.Cost.Amount, events.SourceCombat)
	if act.Cooldown > 0 {
		c.Cooldowns[actionID] = act.Cooldown
	}

	report := TurnReport{Turn: c.Turn}
	if c.Player.HasEffect(state.EffectStun) {
		c.AppendLog(state.LogSourcePlayer, fmt.Sprintf("Systems stunned, %s fizzles", act.Name))
	} else {
		report.EnemyDamage = cs.playerAct(c, act)
	}

	if c.Enemy.Health <= 0 {
		cs.victory(s)
		report.Outcome = c.Outcome
		return ActionResult{Success: true, Message: fmt.Sprintf("%s destroyed", c.EnemyName), Data: report}
	}

	report.EnemyAction, report.PlayerDamage = cs.enemyTurn(c)
	cs.syncShip(s)

	if c.Player.Health <= 0 {
		cs.defeat(s)
		report.Outcome = c.Outcome
		return ActionResult{Success: true, Message: "Hull breached, retreating to base", Data: report}
	}

	cs.endTurn(c)
	report.Outcome = c.Outcome
	return ActionResult{Success: true, Message: act.Name, Data: report}
}

func (cs *CombatSystem) playerAct(c *state.CombatState, act catalog.CombatAction) rules.DamageReport {
	var rep rules.DamageReport
	if act.Damage > 0 {
		rep = rules.ApplyDamage(&c.Enemy, rules.AmplifiedDamage(act.Damage, &c.Enemy))
		c.AppendLog(state.LogSourcePlayer, fmt.Sprintf("%s hits for %g (%g shield, %g hull)",
			act.Name, rep.Total, rep.ShieldDamage, rep.HullDamage))
	}
	if act.Effect != nil {
		c.Enemy.AddEffect(state.StatusEffect{
			Type:           act.Effect.Type,
			Magnitude:      act.Effect.Magnitude,
			RemainingTurns: act.Effect.Duration,
			Source:         act.ID,
		})
		c.AppendLog(state.LogSourcePlayer, fmt.Sprintf("%s applies %s for %d turns", act.Name, act.Effect.Type, act.Effect.Duration))
	}
	if act.ShieldRestore > 0 {
		var got float64
		c.Player.Shield, got = rules.Restore(c.Player.Shield, act.ShieldRestore, c.Player.MaxShield)
		c.AppendLog(state.LogSourcePlayer, fmt.Sprintf("%s restores %g shield", act.Name, got))
	}
	if act.Repair > 0 {
		var got float64
		c.Player.Health, got = rules.Restore(c.Player.Health, act.Repair, c.Player.MaxHealth)
		c.AppendLog(state.LogSourcePlayer, fmt.Sprintf("%s repairs %g hull", act.Name, got))
	}
	return rep
}

// enemyTurn picks and applies the enemy's move. A stunned enemy does
// nothing.
func (cs *CombatSystem) enemyTurn(c *state.CombatState) (string, rules.DamageReport) {
	var rep rules.DamageReport
	enemy, ok := cs.catalog.Enemy(c.EnemyID)
	if !ok {
		cs.logger.Errorf("enemy %q vanished from the catalog mid-battle", c.EnemyID)
		return "", rep
	}
	if c.Enemy.HasEffect(state.EffectStun) {
		c.AppendLog(state.LogSourceEnemy, fmt.Sprintf("%s is stunned", enemy.Name))
		return "", rep
	}
	if len(enemy.Actions) == 0 {
		return "", rep
	}

	pool := cs.eligible(c, enemy.Actions)
	if len(pool) == 0 {
		pool = enemy.Actions
	}
	a := pool[cs.rnd.Intn(len(pool))]

	if a.Damage > 0 {
		rep = rules.ApplyDamage(&c.Player, rules.AmplifiedDamage(a.Damage, &c.Player))
		c.AppendLog(state.LogSourceEnemy, fmt.Sprintf("%s uses %s for %g (%g shield, %g hull)",
			enemy.Name, a.Name, rep.Total, rep.ShieldDamage, rep.HullDamage))
	} else {
		c.AppendLog(state.LogSourceEnemy, fmt.Sprintf("%s uses %s", enemy.Name, a.Name))
	}
	if a.Effect != nil {
		c.Player.AddEffect(state.StatusEffect{
			Type:           a.Effect.Type,
			Magnitude:      a.Effect.Magnitude,
			RemainingTurns: a.Effect.Duration,
			Source:         a.ID,
		})
	}
	if a.ShieldRestore > 0 {
		c.Enemy.Shield, _ = rules.Restore(c.Enemy.Shield, a.ShieldRestore, c.Enemy.MaxShield)
	}
	if a.Repair > 0 {
		c.Enemy.Health, _ = rules.Restore(c.Enemy.Health, a.Repair, c.Enemy.MaxHealth)
	}
	return a.ID, rep
}

func (cs *CombatSystem) eligible(c *state.CombatState, actions []catalog.EnemyAction) []catalog.EnemyAction {
	var out []catalog.EnemyAction
	for _, a := range actions {
		cond := a.Condition
		switch cond.Type {
		case catalog.ConditionHealthThreshold:
			if c.Enemy.HealthPercent() > cond.Threshold {
				continue
			}
		case catalog.ConditionShieldThreshold:
			if c.Enemy.ShieldPercent() > cond.Threshold {
				continue
			}
		case catalog.ConditionRandom:
			if cs.rnd.Float64() >= cond.Probability {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

// endTurn advances the counter and ages every cooldown and effect once,
// including the ones set during this turn.
func (cs *CombatSystem) endTurn(c *state.CombatState) {
	c.Turn++
	for id, left := range c.Cooldowns {
		if left <= 1 {
			delete(c.Cooldowns, id)
			continue
		}
		c.Cooldowns[id] = left - 1
	}
	for _, e := range c.Player.TickEffects() {
		c.AppendLog(state.LogSourceSystem, fmt.Sprintf("%s on your ship wears off", e.Type))
	}
	for _, e := range c.Enemy.TickEffects() {
		c.AppendLog(state.LogSourceSystem, fmt.Sprintf("%s on %s wears off", e.Type, c.EnemyName))
	}
}

func (cs *CombatSystem) victory(s *state.GameState) {
	c := s.Combat
	c.Outcome = state.OutcomeVictory
	c.AppendLog(state.LogSourceSystem, fmt.Sprintf("%s destroyed", c.EnemyName))

	if enemy, ok := cs.catalog.Enemy(c.EnemyID); ok {
		for _, l := range enemy.Loot {
			if cs.rnd.Float64() > l.Probability {
				continue
			}
			r := state.Reward{Resource: l.Resource, Amount: l.Amount}
			c.Loot = append(c.Loot, r)
			c.AppendLog(state.LogSourceSystem, fmt.Sprintf("Salvaged %g %s", l.Amount, l.Resource))
			grant(cs.bus, r, events.SourceLoot)
		}
	}
	cs.syncShip(s)
	cs.end(s)
}

func (cs *CombatSystem) defeat(s *state.GameState) {
	c := s.Combat
	c.Outcome = state.OutcomeDefeat
	c.AppendLog(state.LogSourceSystem, "Hull breached. Emergency jump home.")
	s.Ship.Health = s.Ship.MaxHealth * rules.DefeatHullFraction
	s.Ship.Shield = 0
	cs.end(s)
}

// Retreat disengages without penalty.
func (cs *CombatSystem) Retreat(s *state.GameState) ActionResult {
	c := s.Combat
	if c == nil {
		cs.logger.Error("retreat with no combat state")
		return reject("No active combat")
	}
	if !c.Active() {
		return reject("Combat is over")
	}
	c.Outcome = state.OutcomeRetreat
	c.AppendLog(state.LogSourceSystem, "Retreating from battle")
	cs.syncShip(s)
	cs.end(s)
	return succeed("Retreated from " + c.EnemyName)
}

// RetreatFromBattle disengages and forfeits a quarter of every pool.
func (cs *CombatSystem) RetreatFromBattle(s *state.GameState) ActionResult {
	if !s.Combat.Active() {
		return cs.Retreat(s)
	}
	lost := make(map[state.ResourceType]float64)
	for _, id := range state.CategoryOrder {
		c, ok := s.Category(id)
		if !ok {
			continue
		}
		penalty := rules.RetreatPenalty(c.Amount, rules.RetreatPenaltyFraction)
		if penalty <= 0 {
			continue
		}
		lost[c.Resource] = penalty
		cs.bus.Publish(events.ResourceChange{
			Category: id,
			Resource: c.Resource,
			Amount:   -penalty,
			Source:   events.SourceRetreat,
		})
	}
	res := cs.Retreat(s)
	res.Data = lost
	return res
}

// ClearResolved drops a finished battle. Returns whether anything changed.
func (cs *CombatSystem) ClearResolved(s *state.GameState) bool {
	if s.Combat == nil || !s.Combat.Outcome.Terminal() {
		return false
	}
	s.Combat = nil
	return true
}

func (cs *CombatSystem) syncShip(s *state.GameState) {
	p := s.Combat.Player
	s.Ship.Health = min(max(p.Health, 0), s.Ship.MaxHealth)
	s.Ship.Shield = min(max(p.Shield, 0), s.Ship.MaxShield)
}

func (cs *CombatSystem) end(s *state.GameState) {
	c := s.Combat
	cs.logger.Event(string(events.EventTypeCombatEnded), c.EnemyID, fmt.Sprintf("%s after %d turns", c.Outcome, c.Turn))
	cs.bus.Publish(events.CombatEnded{
		Outcome:  c.Outcome,
		EnemyID:  c.EnemyID,
		RegionID: c.RegionID,
		IsBoss:   c.IsBoss,
	})
}
