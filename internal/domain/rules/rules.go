// Package rules contains the pure calculation logic for game mechanics.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import (
	"math"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
)

// RetreatPenaltyFraction is the share of every pool lost when fleeing.
const RetreatPenaltyFraction = 0.25

// DefeatHullFraction is the hull the ship limps home with after a defeat.
const DefeatHullFraction = 0.25

// DamageReport splits a hit into what the shield absorbed and what reached
// the hull. ShieldDamage + HullDamage == Total always holds.
type DamageReport struct {
	Total        float64 `json:"total"`
	ShieldDamage float64 `json:"shieldDamage"`
	HullDamage   float64 `json:"hullDamage"`
}

// AmplifiedDamage applies the target's WEAKEN effect to a base value at
// the moment damage is computed.
func AmplifiedDamage(base float64, target *state.Combatant) float64 {
	if base <= 0 {
		return 0
	}
	if weaken, ok := target.Effect(state.EffectWeaken); ok {
		return base * (1 + weaken.Magnitude)
	}
	return base
}

// ApplyDamage drains the shield first and the remainder from health.
// EXPOSE on the target sends everything to health.
func ApplyDamage(target *state.Combatant, amount float64) DamageReport {
	if amount <= 0 {
		return DamageReport{}
	}
	report := DamageReport{Total: amount}
	if !target.HasEffect(state.EffectExpose) && target.Shield > 0 {
		report.ShieldDamage = math.Min(target.Shield, amount)
		target.Shield -= report.ShieldDamage
	}
	report.HullDamage = amount - report.ShieldDamage
	target.Health -= report.HullDamage
	if target.Shield < 0 {
		target.Shield = 0
	}
	return report
}

// Restore adds amount to current without exceeding max. Returns the new
// value and how much was actually restored.
func Restore(current, amount, max float64) (float64, float64) {
	if amount <= 0 || current >= max {
		return current, 0
	}
	next := math.Min(max, current+amount)
	return next, next - current
}

// Clamp bounds a resource amount to [0, capacity].
func Clamp(amount, capacity float64) float64 {
	if amount < 0 || math.IsNaN(amount) {
		return 0
	}
	if capacity < 0 {
		capacity = 0
	}
	if amount > capacity {
		return capacity
	}
	return amount
}

// RetreatPenalty returns how much of a pool is lost: floor(amount*fraction),
// never more than the pool holds.
func RetreatPenalty(amount, fraction float64) float64 {
	if amount <= 0 || fraction <= 0 {
		return 0
	}
	return math.Min(amount, math.Floor(amount*fraction))
}

// CostFormula prices the next level of an upgrade.
type CostFormula func(level int, capacity float64) float64

// ProportionalToCapacity prices at factor × the category's current capacity.
func ProportionalToCapacity(factor float64) CostFormula {
	return func(_ int, capacity float64) float64 {
		return math.Floor(capacity * factor)
	}
}

// LinearInLevel prices at base × (level+1).
func LinearInLevel(base float64) CostFormula {
	return func(level int, _ float64) float64 {
		return base * float64(level+1)
	}
}

// QuadraticInLevel prices at base × (level+1)².
func QuadraticInLevel(base float64) CostFormula {
	return func(level int, _ float64) float64 {
		n := float64(level + 1)
		return base * n * n
	}
}

// Flat always costs the same.
func Flat(cost float64) CostFormula {
	return func(int, float64) float64 {
		return cost
	}
}
