package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event kinds emitted by the daemon stream. The strings are part of the wire
// contract and must match the server vocabulary exactly.
const (
	KindStateTransition = "state_transition"
	KindTurnCreated     = "turn_created"
	KindTurnUpdated     = "turn_updated"
	KindCardRefresh     = "card_refresh"
	KindSessionEnded    = "session_ended"
	KindAgentEnded      = "agent_ended"

	// KindUnrecognized is assigned client-side to frames whose kind is not in
	// the vocabulary above. Such events still flow through dispatch so wildcard
	// subscribers can observe them.
	KindUnrecognized = "unrecognized"
)

var (
	ErrPayloadInvalid = errors.New("payload invalid")
	ErrAgentIDMissing = errors.New("agent id missing")
)

// StreamFrame is one raw server-push frame before payload validation.
type StreamFrame struct {
	Kind   string
	Cursor string
	Data   []byte
}

type StateTransitionPayload struct {
	AgentID string    `json:"agent_id"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	At      time.Time `json:"at"`
}

type TurnPayload struct {
	AgentID   string    `json:"agent_id"`
	TurnID    int64     `json:"turn_id"`
	Actor     string    `json:"actor"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type CardRefreshPayload struct {
	AgentID    string    `json:"agent_id"`
	Name       string    `json:"name"`
	State      string    `json:"state"`
	SessionID  string    `json:"session_id,omitempty"`
	LastTurnID int64     `json:"last_turn_id,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type SessionEndedPayload struct {
	AgentID   string `json:"agent_id"`
	SessionID string `json:"session_id"`
	Reason    string `json:"reason,omitempty"`
}

type AgentEndedPayload struct {
	AgentID string `json:"agent_id"`
	Reason  string `json:"reason,omitempty"`
}

// Event is the decoded, validated form of a StreamFrame. Kind selects which
// payload pointer is populated; exactly one is non-nil except for
// KindUnrecognized, which keeps the raw bytes only.
type Event struct {
	Kind   string
	Cursor string

	StateTransition *StateTransitionPayload
	TurnCreated     *TurnPayload
	TurnUpdated     *TurnPayload
	CardRefresh     *CardRefreshPayload
	SessionEnded    *SessionEndedPayload
	AgentEnded      *AgentEndedPayload
	Raw             json.RawMessage
}

// AgentID returns the agent/session identifier the event refers to, or ""
// for unrecognized events.
func (e Event) AgentID() string {
	switch e.Kind {
	case KindStateTransition:
		return e.StateTransition.AgentID
	case KindTurnCreated:
		return e.TurnCreated.AgentID
	case KindTurnUpdated:
		return e.TurnUpdated.AgentID
	case KindCardRefresh:
		return e.CardRefresh.AgentID
	case KindSessionEnded:
		return e.SessionEnded.AgentID
	case KindAgentEnded:
		return e.AgentEnded.AgentID
	default:
		return ""
	}
}

// Turn returns the turn payload for confirmable kinds.
func (e Event) Turn() (TurnPayload, bool) {
	switch e.Kind {
	case KindTurnCreated:
		return *e.TurnCreated, true
	case KindTurnUpdated:
		return *e.TurnUpdated, true
	default:
		return TurnPayload{}, false
	}
}

// DecodeFrame validates a raw frame into an Event. Unknown kinds degrade to
// KindUnrecognized without error; known kinds with undecodable or incomplete
// payloads return an error and the frame must be discarded by the caller.
func DecodeFrame(frame StreamFrame) (Event, error) {
	ev := Event{Kind: strings.TrimSpace(frame.Kind), Cursor: frame.Cursor}
	switch ev.Kind {
	case KindStateTransition:
		var p StateTransitionPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return Event{}, fmt.Errorf("%s: %w: %v", ev.Kind, ErrPayloadInvalid, err)
		}
		if p.AgentID == "" {
			return Event{}, fmt.Errorf("%s: %w", ev.Kind, ErrAgentIDMissing)
		}
		ev.StateTransition = &p
	case KindTurnCreated, KindTurnUpdated:
		var p TurnPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return Event{}, fmt.Errorf("%s: %w: %v", ev.Kind, ErrPayloadInvalid, err)
		}
		if p.AgentID == "" {
			return Event{}, fmt.Errorf("%s: %w", ev.Kind, ErrAgentIDMissing)
		}
		if p.TurnID <= 0 {
			return Event{}, fmt.Errorf("%s: %w: turn_id required", ev.Kind, ErrPayloadInvalid)
		}
		if ev.Kind == KindTurnCreated {
			ev.TurnCreated = &p
		} else {
			ev.TurnUpdated = &p
		}
	case KindCardRefresh:
		var p CardRefreshPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return Event{}, fmt.Errorf("%s: %w: %v", ev.Kind, ErrPayloadInvalid, err)
		}
		if p.AgentID == "" {
			return Event{}, fmt.Errorf("%s: %w", ev.Kind, ErrAgentIDMissing)
		}
		ev.CardRefresh = &p
	case KindSessionEnded:
		var p SessionEndedPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return Event{}, fmt.Errorf("%s: %w: %v", ev.Kind, ErrPayloadInvalid, err)
		}
		if p.AgentID == "" {
			return Event{}, fmt.Errorf("%s: %w", ev.Kind, ErrAgentIDMissing)
		}
		ev.SessionEnded = &p
	case KindAgentEnded:
		var p AgentEndedPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			return Event{}, fmt.Errorf("%s: %w: %v", ev.Kind, ErrPayloadInvalid, err)
		}
		if p.AgentID == "" {
			return Event{}, fmt.Errorf("%s: %w", ev.Kind, ErrAgentIDMissing)
		}
		ev.AgentEnded = &p
	default:
		ev.Kind = KindUnrecognized
		ev.Raw = append(json.RawMessage(nil), frame.Data...)
	}
	return ev, nil
}
