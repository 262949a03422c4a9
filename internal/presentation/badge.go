// Package presentation maps connection state to the indicator every view
// shows, so the mapping is written once.
package presentation

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/g960059/agentdash/internal/stream"
)

var (
	colorLive    = lipgloss.Color("42")
	colorWaiting = lipgloss.Color("214")
	colorOffline = lipgloss.Color("203")
)

// Badge is the visual descriptor for a connection state.
type Badge struct {
	Label string
	Color lipgloss.Color
}

// Describe is a pure mapping from state to badge.
func Describe(st stream.State) Badge {
	switch st {
	case stream.StateConnected:
		return Badge{Label: "Live", Color: colorLive}
	case stream.StateConnecting:
		return Badge{Label: "Connecting…", Color: colorWaiting}
	case stream.StateReconnecting:
		return Badge{Label: "Reconnecting…", Color: colorWaiting}
	default:
		return Badge{Label: "Offline", Color: colorOffline}
	}
}

// Render styles the badge for terminal output.
func Render(st stream.State) string {
	badge := Describe(st)
	return lipgloss.NewStyle().Bold(true).Foreground(badge.Color).Render("● " + badge.Label)
}
