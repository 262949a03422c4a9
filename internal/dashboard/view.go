package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/g960059/agentdash/internal/presentation"
	"github.com/g960059/agentdash/internal/security"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	selectedCardStyle = cardStyle.
				BorderForeground(lipgloss.Color("39"))

	endedCardStyle = cardStyle.
			Faint(true)

	pendingStyle = lipgloss.NewStyle().Faint(true)

	actorStyle = lipgloss.NewStyle().Bold(true)

	errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	helpStyle = lipgloss.NewStyle().Faint(true)
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("agentdash"))
	b.WriteString("  ")
	b.WriteString(presentation.Render(m.connState))
	b.WriteString("\n\n")

	b.WriteString(m.viewCards())
	b.WriteString("\n")
	b.WriteString(m.viewFeed())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	if m.statusErr != "" {
		b.WriteString(errStyle.Render(m.statusErr))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("tab: switch agent · enter: send · ^n: new agent · ^g: end session · ^x: kill · esc: quit"))
	return b.String()
}

func (m Model) viewCards() string {
	if len(m.cards) == 0 {
		return helpStyle.Render("no agents yet")
	}
	rendered := make([]string, 0, len(m.cards))
	for i, card := range m.cards {
		style := cardStyle
		switch {
		case card.ended:
			style = endedCardStyle
		case i == m.selected:
			style = selectedCardStyle
		}
		name := card.name
		if name == "" {
			name = card.id
		}
		body := fmt.Sprintf("%s\n%s · turn %d", name, card.state, card.lastTurnID)
		rendered = append(rendered, style.Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) viewFeed() string {
	visible := m.visibleFeedLines()
	if visible <= 0 {
		visible = 10
	}
	start := 0
	if len(m.feed) > visible {
		start = len(m.feed) - visible
	}
	var b strings.Builder
	for _, entry := range m.feed[start:] {
		text := security.RedactTranscript(entry.text)
		line := actorStyle.Render(entry.actor) + " " + text
		if entry.pending {
			line = pendingStyle.Render("… " + entry.actor + " " + text)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// visibleFeedLines reserves rows for the header, cards, input, and help.
func (m Model) visibleFeedLines() int {
	const reserved = 9
	return m.height - reserved
}
