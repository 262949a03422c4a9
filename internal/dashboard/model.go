// Package dashboard is the terminal UI: a card per agent, a shared turn
// feed, and an input line for sending messages. It owns no protocol logic;
// events arrive pre-reconciled through the Forwarder and actions leave
// through the action client.
package dashboard

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/g960059/agentdash/internal/actionclient"
	"github.com/g960059/agentdash/internal/api"
	"github.com/g960059/agentdash/internal/reconcile"
	"github.com/g960059/agentdash/internal/stream"
)

// feedCap bounds the scrollback kept in memory.
const feedCap = 200

type feedEntry struct {
	nonce   string
	agentID string
	turnID  int64
	actor   string
	text    string
	pending bool
}

type agentCard struct {
	id         string
	name       string
	state      string
	lastTurnID int64
	ended      bool
}

type Model struct {
	sup    *stream.Supervisor
	store  *reconcile.Store
	client *actionclient.Client

	input     textinput.Model
	connState stream.State
	cards     []agentCard
	selected  int
	feed      []feedEntry
	statusErr string
	width     int
	height    int
}

func New(sup *stream.Supervisor, store *reconcile.Store, client *actionclient.Client) Model {
	input := textinput.New()
	input.Placeholder = "message the selected agent"
	input.CharLimit = 4096
	input.Focus()
	return Model{
		sup:       sup,
		store:     store,
		client:    client,
		input:     input,
		connState: stream.StateDisconnected,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadAgents())
}

func (m Model) loadAgents() tea.Cmd {
	return func() tea.Msg {
		env, err := m.client.ListAgents(context.Background())
		return agentsLoadedMsg{agents: env.Agents, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab:
			m.selected = m.cycleSelection(1)
			return m, nil
		case tea.KeyShiftTab:
			m.selected = m.cycleSelection(-1)
			return m, nil
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyCtrlN:
			return m, m.lifecycleCmd("create", func(ctx context.Context) error {
				_, err := m.client.CreateAgent(ctx, actionclient.CreateAgentRequest{
					RequestRef: reconcile.NewNonce(),
					Name:       "agent",
				})
				return err
			})
		case tea.KeyCtrlG:
			agentID := m.selectedAgentID()
			if agentID == "" {
				return m, nil
			}
			return m, m.lifecycleCmd("end session", func(ctx context.Context) error {
				_, err := m.client.EndSession(ctx, agentID)
				return err
			})
		case tea.KeyCtrlX:
			agentID := m.selectedAgentID()
			if agentID == "" {
				return m, nil
			}
			return m, m.lifecycleCmd("kill", func(ctx context.Context) error {
				_, err := m.client.KillAgent(ctx, agentID)
				return err
			})
		}

	case connStateMsg:
		m.connState = msg.state
		return m, nil

	case agentsLoadedMsg:
		if msg.err != nil {
			m.statusErr = "load agents: " + msg.err.Error()
			return m, nil
		}
		for _, item := range msg.agents {
			m.upsertCard(agentCard{
				id:         item.AgentID,
				name:       item.Name,
				state:      item.State,
				lastTurnID: item.LastTurnID,
			})
		}
		return m, nil

	case pendingTurnMsg:
		m.appendFeed(feedEntry{
			nonce:   msg.nonce,
			agentID: m.selectedAgentID(),
			actor:   msg.actor,
			text:    msg.text,
			pending: true,
		})
		return m, nil

	case resolvedTurnMsg:
		for i := range m.feed {
			if m.feed[i].pending && m.feed[i].nonce == msg.nonce {
				m.feed[i] = confirmedEntry(msg.turn)
				m.bumpTurn(msg.turn)
				return m, nil
			}
		}
		// Pending echo already gone; fall back to a plain confirmed line.
		m.appendFeed(confirmedEntry(msg.turn))
		m.bumpTurn(msg.turn)
		return m, nil

	case confirmedTurnMsg:
		m.appendFeed(confirmedEntry(msg.turn))
		m.bumpTurn(msg.turn)
		return m, nil

	case revisedTurnMsg:
		for i := range m.feed {
			if !m.feed[i].pending && m.feed[i].turnID == msg.turn.TurnID && m.feed[i].agentID == msg.turn.AgentID {
				m.feed[i].text = msg.turn.Text
				return m, nil
			}
		}
		return m, nil

	case rollbackMsg:
		for i := range m.feed {
			if m.feed[i].pending && m.feed[i].nonce == msg.nonce {
				m.feed = append(m.feed[:i], m.feed[i+1:]...)
				break
			}
		}
		return m, nil

	case agentEventMsg:
		m.applyAgentEvent(msg.event)
		return m, nil

	case actionResultMsg:
		if msg.err != nil {
			m.statusErr = msg.verb + " failed: " + msg.err.Error()
		}
		return m, nil

	case sendResultMsg:
		if msg.err != nil {
			m.store.Rollback(msg.nonce)
			m.statusErr = "send failed: " + msg.err.Error()
		}
		return m, nil

	case streamErrMsg:
		if msg.err != nil {
			m.statusErr = msg.err.Error()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// lifecycleCmd fires an agent lifecycle action in the background. Success is
// silent; the resulting card change arrives via the stream.
func (m Model) lifecycleCmd(verb string, do func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionResultMsg{verb: verb, err: do(context.Background())}
	}
}

// submit records a pending echo for the typed text and fires the send in the
// background. Confirmation arrives via the stream; failure rolls the echo
// back in sendResultMsg.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	agentID := m.selectedAgentID()
	if text == "" || agentID == "" {
		return m, nil
	}
	nonce := reconcile.NewNonce()
	m.store.RecordPending(nonce, agentID, "user", text)
	m.input.Reset()
	m.statusErr = ""
	client := m.client
	return m, func() tea.Msg {
		_, err := client.SendMessage(context.Background(), actionclient.SendMessageRequest{
			RequestRef: nonce,
			AgentID:    agentID,
			Actor:      "user",
			Text:       text,
		})
		return sendResultMsg{nonce: nonce, err: err}
	}
}

func (m *Model) applyAgentEvent(ev api.Event) {
	switch ev.Kind {
	case api.KindStateTransition:
		if ev.StateTransition == nil {
			return
		}
		m.upsertCard(agentCard{id: ev.StateTransition.AgentID, state: ev.StateTransition.To})
	case api.KindCardRefresh:
		if ev.CardRefresh == nil {
			return
		}
		m.upsertCard(agentCard{
			id:         ev.CardRefresh.AgentID,
			name:       ev.CardRefresh.Name,
			state:      ev.CardRefresh.State,
			lastTurnID: ev.CardRefresh.LastTurnID,
		})
	case api.KindSessionEnded, api.KindAgentEnded:
		id := ev.AgentID()
		for i := range m.cards {
			if m.cards[i].id == id {
				m.cards[i].ended = true
				m.cards[i].state = "ended"
				return
			}
		}
	}
}

// upsertCard merges non-zero fields into an existing card or appends a new
// one, preserving discovery order.
func (m *Model) upsertCard(card agentCard) {
	for i := range m.cards {
		if m.cards[i].id != card.id {
			continue
		}
		if card.name != "" {
			m.cards[i].name = card.name
		}
		if card.state != "" {
			m.cards[i].state = card.state
		}
		if card.lastTurnID > m.cards[i].lastTurnID {
			m.cards[i].lastTurnID = card.lastTurnID
		}
		return
	}
	m.cards = append(m.cards, card)
}

func (m *Model) bumpTurn(turn api.TurnPayload) {
	m.upsertCard(agentCard{id: turn.AgentID, lastTurnID: turn.TurnID})
}

func (m *Model) appendFeed(entry feedEntry) {
	m.feed = append(m.feed, entry)
	if len(m.feed) > feedCap {
		m.feed = m.feed[len(m.feed)-feedCap:]
	}
}

func (m Model) selectedAgentID() string {
	if m.selected < 0 || m.selected >= len(m.cards) {
		return ""
	}
	return m.cards[m.selected].id
}

func (m Model) cycleSelection(step int) int {
	if len(m.cards) == 0 {
		return 0
	}
	next := (m.selected + step + len(m.cards)) % len(m.cards)
	return next
}

func confirmedEntry(turn api.TurnPayload) feedEntry {
	return feedEntry{
		agentID: turn.AgentID,
		turnID:  turn.TurnID,
		actor:   turn.Actor,
		text:    turn.Text,
	}
}
