package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
	"github.com/MRamiBalles/ReactorIdle/server/internal/events"
)

// DefaultRecapLimit caps a recap when the caller gives no limit.
const DefaultRecapLimit = 100

// Impact classes for recap entries.
const (
	ImpactPositive = "POSITIVE"
	ImpactNegative = "NEGATIVE"
	ImpactNeutral  = "NEUTRAL"
)

// Reconstructor rebuilds views of the game from the event log:
// the "while you were away" recap and net resource flows.
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new reconstructor.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// RecapEvent is a simplified event for the history screen.
type RecapEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Summary   string    `json:"summary"` // Human-readable description
	Impact    string    `json:"impact"`
}

// ResourceFlow is the net change per resource rebuilt from resourceChange
// events, split by source.
type ResourceFlow struct {
	Net      map[state.ResourceType]float64 `json:"net"`
	BySource map[string]float64             `json:"by_source"`
	Events   int                            `json:"events"`
}

// GenerateRecap summarizes everything since t. A zero t means the newest
// limit events.
func (r *Reconstructor) GenerateRecap(ctx context.Context, since time.Time, limit int) ([]RecapEvent, error) {
	if limit <= 0 {
		limit = DefaultRecapLimit
	}

	var (
		stored []StoredEvent
		err    error
	)
	if since.IsZero() {
		stored, err = r.eventRepo.Recent(ctx, limit)
	} else {
		stored, err = r.eventRepo.Since(ctx, since)
		if len(stored) > limit {
			stored = stored[len(stored)-limit:]
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	recap := make([]RecapEvent, 0, len(stored))
	for _, e := range stored {
		summary, impact := summarizeEvent(e)
		recap = append(recap, RecapEvent{
			Timestamp: e.Timestamp,
			EventType: e.EventType,
			Summary:   summary,
			Impact:    impact,
		})
	}
	return recap, nil
}

// RebuildResourceFlow folds every resourceChange since t into net totals.
func (r *Reconstructor) RebuildResourceFlow(ctx context.Context, since time.Time) (*ResourceFlow, error) {
	stored, err := r.eventRepo.Since(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	flow := &ResourceFlow{
		Net:      make(map[state.ResourceType]float64),
		BySource: make(map[string]float64),
	}
	for _, e := range stored {
		if e.EventType != string(events.EventTypeResourceChange) {
			continue
		}
		var rc events.ResourceChange
		if err := json.Unmarshal(e.Payload, &rc); err != nil {
			continue
		}
		res := resourceOf(rc)
		flow.Net[res] += rc.Amount
		flow.BySource[rc.Source] += rc.Amount
		flow.Events++
	}
	return flow, nil
}

// summarizeEvent creates a human-readable summary and classifies its impact.
func summarizeEvent(e StoredEvent) (string, string) {
	switch events.EventType(e.EventType) {
	case events.EventTypeResourceChange:
		var rc events.ResourceChange
		if json.Unmarshal(e.Payload, &rc) != nil {
			break
		}
		res := resourceOf(rc)
		if rc.Amount < 0 {
			return fmt.Sprintf("Lost %.0f %s (%s).", -rc.Amount, res, rc.Source), ImpactNegative
		}
		return fmt.Sprintf("Gained %.0f %s (%s).", rc.Amount, res, rc.Source), ImpactPositive

	case events.EventTypeUpgradePurchased:
		var up events.UpgradePurchased
		if json.Unmarshal(e.Payload, &up) != nil {
			break
		}
		return fmt.Sprintf("Installed %s level %d in %s.", up.UpgradeType, up.Level, up.Category), ImpactPositive

	case events.EventTypeCombatEncounterTriggered:
		var ct events.CombatEncounterTriggered
		if json.Unmarshal(e.Payload, &ct) != nil {
			break
		}
		if ct.IsBoss {
			return fmt.Sprintf("The %s guardian %s intercepted the ship.", ct.RegionID, ct.EnemyID), ImpactNegative
		}
		return fmt.Sprintf("Hostile contact: %s.", ct.EnemyID), ImpactNeutral

	case events.EventTypeCombatEnded:
		var ce events.CombatEnded
		if json.Unmarshal(e.Payload, &ce) != nil {
			break
		}
		switch ce.Outcome {
		case state.OutcomeVictory:
			return fmt.Sprintf("Destroyed %s.", ce.EnemyID), ImpactPositive
		case state.OutcomeDefeat:
			return fmt.Sprintf("The ship was crippled by %s.", ce.EnemyID), ImpactNegative
		default:
			return fmt.Sprintf("Retreated from %s.", ce.EnemyID), ImpactNegative
		}

	case events.EventTypeEncounterCompleted:
		var ec events.EncounterCompleted
		if json.Unmarshal(e.Payload, &ec) != nil {
			break
		}
		return fmt.Sprintf("Resolved a %s encounter (%s).", ec.EncounterType, ec.Result), ImpactNeutral

	case events.EventTypeLogUnlocked:
		var lu events.LogUnlocked
		if json.Unmarshal(e.Payload, &lu) != nil {
			break
		}
		return fmt.Sprintf("Recovered log %s.", lu.LogID), ImpactPositive
	}
	return "Something happened aboard the ship.", ImpactNeutral
}

func resourceOf(rc events.ResourceChange) state.ResourceType {
	if rc.Resource != "" {
		return rc.Resource
	}
	res, _ := state.ResourceFor(rc.Category)
	return res
}
