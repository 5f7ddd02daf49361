package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/state"
)

// ActionType is the discriminator of an action envelope.
type ActionType string

const (
	ActionClickResource     ActionType = "CLICK_RESOURCE"
	ActionPurchaseUpgrade   ActionType = "PURCHASE_UPGRADE"
	ActionMarkLogRead       ActionType = "MARK_LOG_READ"
	ActionMarkAllLogsRead   ActionType = "MARK_ALL_LOGS_READ"
	ActionSelectRegion      ActionType = "SELECT_REGION"
	ActionInitiateJump      ActionType = "INITIATE_JUMP"
	ActionCompleteEncounter ActionType = "COMPLETE_ENCOUNTER"
	ActionMakeStoryChoice   ActionType = "MAKE_STORY_CHOICE"
	ActionCombatAction      ActionType = "COMBAT_ACTION"
	ActionRetreatFromBattle ActionType = "RETREAT_FROM_BATTLE"
	ActionAdjustAutomation  ActionType = "ADJUST_AUTOMATION"
)

// Action is a discrete player intent dispatched into the engine. Value and
// pointer forms of each variant are both accepted.
type Action interface {
	Kind() ActionType
}

type ClickResource struct {
	Category state.CategoryID `json:"category"`
}

type PurchaseUpgrade struct {
	Category    state.CategoryID `json:"category"`
	UpgradeType string           `json:"upgradeType"`
}

type MarkLogRead struct {
	LogID string `json:"logId"`
}

type MarkAllLogsRead struct{}

type SelectRegion struct {
	Region string `json:"region"`
}

type InitiateJump struct{}

type CompleteEncounter struct {
	ChoiceID string `json:"choiceId,omitempty"`
}

type MakeStoryChoice struct {
	ChoiceID string `json:"choiceId"`
}

type CombatAction struct {
	ActionID string `json:"actionId"`
}

type RetreatFromBattle struct{}

type AdjustAutomation struct {
	Category state.CategoryID `json:"category"`
	Enabled  bool             `json:"enabled"`
}

// UnknownAction carries an envelope type nothing handles. Dispatch logs
// and ignores it.
type UnknownAction struct {
	Type ActionType `json:"type"`
}

func (ClickResource) Kind() ActionType     { return ActionClickResource }
func (PurchaseUpgrade) Kind() ActionType   { return ActionPurchaseUpgrade }
func (MarkLogRead) Kind() ActionType       { return ActionMarkLogRead }
func (MarkAllLogsRead) Kind() ActionType   { return ActionMarkAllLogsRead }
func (SelectRegion) Kind() ActionType      { return ActionSelectRegion }
func (InitiateJump) Kind() ActionType      { return ActionInitiateJump }
func (CompleteEncounter) Kind() ActionType { return ActionCompleteEncounter }
func (MakeStoryChoice) Kind() ActionType   { return ActionMakeStoryChoice }
func (CombatAction) Kind() ActionType      { return ActionCombatAction }
func (RetreatFromBattle) Kind() ActionType { return ActionRetreatFromBattle }
func (AdjustAutomation) Kind() ActionType  { return ActionAdjustAutomation }
func (a UnknownAction) Kind() ActionType   { return a.Type }

// ActionResult is returned by every dispatched action. Validation failures
// are reported here, never as errors or panics.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func succeed(msg string) ActionResult {
	return ActionResult{Success: true, Message: msg}
}

func reject(format string, args ...any) ActionResult {
	return ActionResult{Message: fmt.Sprintf(format, args...)}
}

// Envelope is the wire form of an action.
type Envelope struct {
	Type    ActionType      `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ErrMalformedAction is returned when an envelope cannot be decoded.
var ErrMalformedAction = errors.New("malformed action")

// DecodeAction parses a {type, payload} envelope. Unknown types decode to
// UnknownAction without error.
func DecodeAction(data []byte) (Action, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAction, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedAction)
	}
	return env.Decode()
}

// Decode turns the envelope into its typed action.
func (env Envelope) Decode() (Action, error) {
	var a Action
	switch env.Type {
	case ActionClickResource:
		a = &ClickResource{}
	case ActionPurchaseUpgrade:
		a = &PurchaseUpgrade{}
	case ActionMarkLogRead:
		a = &MarkLogRead{}
	case ActionMarkAllLogsRead:
		return MarkAllLogsRead{}, nil
	case ActionSelectRegion:
		a = &SelectRegion{}
	case ActionInitiateJump:
		return InitiateJump{}, nil
	case ActionCompleteEncounter:
		a = &CompleteEncounter{}
	case ActionMakeStoryChoice:
		a = &MakeStoryChoice{}
	case ActionCombatAction:
		a = &CombatAction{}
	case ActionRetreatFromBattle:
		return RetreatFromBattle{}, nil
	case ActionAdjustAutomation:
		a = &AdjustAutomation{}
	default:
		return UnknownAction{Type: env.Type}, nil
	}

	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, a); err != nil {
			return nil, fmt.Errorf("%w: %s payload: %v", ErrMalformedAction, env.Type, err)
		}
	}
	return deref(a), nil
}

// deref turns a pointer variant into its value form so the dispatch switch
// only has to match values. A nil pointer becomes an empty UnknownAction.
func deref(a Action) Action {
	switch v := a.(type) {
	case *ClickResource:
		return value(v)
	case *PurchaseUpgrade:
		return value(v)
	case *MarkLogRead:
		return value(v)
	case *MarkAllLogsRead:
		return value(v)
	case *SelectRegion:
		return value(v)
	case *InitiateJump:
		return value(v)
	case *CompleteEncounter:
		return value(v)
	case *MakeStoryChoice:
		return value(v)
	case *CombatAction:
		return value(v)
	case *RetreatFromBattle:
		return value(v)
	case *AdjustAutomation:
		return value(v)
	case *UnknownAction:
		return value(v)
	}
	return a
}

func value[T Action](p *T) Action {
	if p == nil {
		return UnknownAction{}
	}
	return *p
}

// EncodeAction wraps an action in its wire envelope.
func EncodeAction(a Action) ([]byte, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", a.Kind(), err)
	}
	return json.Marshal(Envelope{Type: a.Kind(), Payload: payload})
}
