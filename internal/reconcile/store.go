// Package reconcile merges the user's own in-flight actions with the
// authoritative event stream.
//
// When the user sends a message the UI renders it speculatively, keyed by a
// client-generated nonce; the server id is not known yet. Shortly after, the
// stream reports the same action as a turn event. The store matches the two by
// salient content and collapses them into one rendered item, deduplicating
// replayed events with a per-agent watermark so resume overlap never doubles
// visible state.
package reconcile

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/g960059/agentdash/internal/api"
)

// Renderer is the projection surface the store drives. Implementations render
// into whatever view owns the store; the store itself keeps no visual state.
type Renderer interface {
	// RenderPending shows a speculative, visually distinguishable item.
	RenderPending(nonce, actor, text string)

	// ResolvePending replaces the speculative item with the authoritative turn.
	ResolvePending(nonce string, turn api.TurnPayload)

	// RenderTurn shows a turn that matched no pending action.
	RenderTurn(turn api.TurnPayload)

	// UpdateTurn revises an already-rendered turn in place.
	UpdateTurn(turn api.TurnPayload)

	// RemovePending removes a speculative item after a failed submission.
	RemovePending(nonce string)
}

type pendingAction struct {
	nonce       string
	agentID     string
	actor       string
	text        string
	submittedAt time.Time
}

// Store tracks pending actions and per-agent confirmed watermarks. All state
// is in-memory and dies with the owning view.
type Store struct {
	mu         sync.Mutex
	renderer   Renderer
	pending    []pendingAction
	watermarks map[string]int64
}

func NewStore(renderer Renderer) *Store {
	return &Store{
		renderer:   renderer,
		watermarks: make(map[string]int64),
	}
}

// NewNonce returns a fresh client-generated action token.
func NewNonce() string {
	return uuid.NewString()
}

// RecordPending registers a speculative action and renders it immediately.
func (s *Store) RecordPending(nonce, agentID, actor, text string) {
	s.mu.Lock()
	s.pending = append(s.pending, pendingAction{
		nonce:       nonce,
		agentID:     agentID,
		actor:       actor,
		text:        text,
		submittedAt: time.Now(),
	})
	s.mu.Unlock()
	s.renderer.RenderPending(nonce, actor, text)
}

// Rollback removes a pending action whose backing network call failed. The
// speculative render is removed; a later Confirm can no longer consume the
// entry.
func (s *Store) Rollback(nonce string) {
	s.mu.Lock()
	removed := false
	for i, p := range s.pending {
		if p.nonce == nonce {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()
	if removed {
		s.renderer.RemovePending(nonce)
	}
}

// Confirm applies a confirmable stream event. Turn events at or below the
// agent's watermark are discarded as duplicates; the same event may
// legitimately arrive twice, once live and once via resume replay. Above the
// watermark, a created turn either resolves the oldest matching pending action
// or renders as a new independent item.
func (s *Store) Confirm(ev api.Event) {
	turn, ok := ev.Turn()
	if !ok {
		return
	}

	s.mu.Lock()
	watermark := s.watermarks[turn.AgentID]

	if ev.Kind == api.KindTurnUpdated {
		// Updates revise an existing item; only turns already at or below the
		// watermark have been rendered.
		if turn.TurnID <= watermark {
			s.mu.Unlock()
			s.renderer.UpdateTurn(turn)
			return
		}
		// An update racing ahead of its create acts as the create.
	}

	if turn.TurnID <= watermark {
		s.mu.Unlock()
		return
	}
	s.watermarks[turn.AgentID] = turn.TurnID

	matchedNonce := ""
	for i, p := range s.pending {
		if p.agentID == turn.AgentID && p.actor == turn.Actor && p.text == turn.Text {
			matchedNonce = p.nonce
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if matchedNonce != "" {
		s.renderer.ResolvePending(matchedNonce, turn)
		return
	}
	s.renderer.RenderTurn(turn)
}

// Watermark returns the highest confirmed turn id rendered for an agent.
func (s *Store) Watermark(agentID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watermarks[agentID]
}

// PendingCount reports outstanding unconfirmed actions.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
