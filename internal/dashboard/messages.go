package dashboard

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/g960059/agentdash/internal/api"
	"github.com/g960059/agentdash/internal/stream"
)

// connStateMsg wraps a supervisor state change for delivery through the
// bubbletea message loop.
type connStateMsg struct {
	state stream.State
}

// pendingTurnMsg shows a speculative local echo before the daemon confirms.
type pendingTurnMsg struct {
	nonce string
	actor string
	text  string
}

// resolvedTurnMsg upgrades a pending echo to its confirmed turn.
type resolvedTurnMsg struct {
	nonce string
	turn  api.TurnPayload
}

// confirmedTurnMsg is a turn with no matching pending echo.
type confirmedTurnMsg struct {
	turn api.TurnPayload
}

// revisedTurnMsg replaces the text of an already rendered turn in place.
type revisedTurnMsg struct {
	turn api.TurnPayload
}

// rollbackMsg removes a pending echo whose submission failed.
type rollbackMsg struct {
	nonce string
}

// agentEventMsg carries card-affecting stream events (state transitions,
// card refreshes, session and agent endings).
type agentEventMsg struct {
	event api.Event
}

// sendResultMsg reports the outcome of an asynchronous send-message call.
// On success the stream delivers the confirmation; on error the pending
// echo is rolled back and the error shown in the status line.
type sendResultMsg struct {
	nonce string
	err   error
}

// actionResultMsg reports the outcome of a lifecycle action (create, end,
// kill). The resulting card change arrives via the stream.
type actionResultMsg struct {
	verb string
	err  error
}

// agentsLoadedMsg seeds the card list from the initial snapshot fetch.
type agentsLoadedMsg struct {
	agents []api.AgentItem
	err    error
}

// streamErrMsg surfaces a supervisor-reported error in the status line.
type streamErrMsg struct {
	err error
}

// Forwarder adapts renderer callbacks invoked on the stream goroutine into
// messages on the bubbletea loop. All ordering guarantees of the stream are
// preserved because Send enqueues in call order.
type Forwarder struct {
	send func(tea.Msg)
}

// NewForwarder wraps a message sink, typically (*tea.Program).Send.
func NewForwarder(send func(tea.Msg)) *Forwarder {
	return &Forwarder{send: send}
}

func (f *Forwarder) RenderPending(nonce, actor, text string) {
	f.send(pendingTurnMsg{nonce: nonce, actor: actor, text: text})
}

func (f *Forwarder) ResolvePending(nonce string, turn api.TurnPayload) {
	f.send(resolvedTurnMsg{nonce: nonce, turn: turn})
}

func (f *Forwarder) RenderTurn(turn api.TurnPayload) {
	f.send(confirmedTurnMsg{turn: turn})
}

func (f *Forwarder) UpdateTurn(turn api.TurnPayload) {
	f.send(revisedTurnMsg{turn: turn})
}

func (f *Forwarder) RemovePending(nonce string) {
	f.send(rollbackMsg{nonce: nonce})
}

// ForwardState returns a state-change callback for Supervisor.OnStateChange.
func (f *Forwarder) ForwardState(st stream.State) {
	f.send(connStateMsg{state: st})
}

// ForwardEvent returns an event callback for card-affecting subscriptions.
func (f *Forwarder) ForwardEvent(ev api.Event) {
	f.send(agentEventMsg{event: ev})
}

// ForwardError surfaces supervisor errors in the UI.
func (f *Forwarder) ForwardError(err error) {
	f.send(streamErrMsg{err: err})
}
