package presentation_test

import (
	"strings"
	"testing"

	"github.com/g960059/agentdash/internal/presentation"
	"github.com/g960059/agentdash/internal/stream"
)

func TestDescribeMapping(t *testing.T) {
	cases := []struct {
		state stream.State
		label string
	}{
		{stream.StateConnected, "Live"},
		{stream.StateConnecting, "Connecting…"},
		{stream.StateReconnecting, "Reconnecting…"},
		{stream.StateDisconnected, "Offline"},
	}
	for _, tc := range cases {
		badge := presentation.Describe(tc.state)
		if badge.Label != tc.label {
			t.Fatalf("%s: expected label %q, got %q", tc.state, tc.label, badge.Label)
		}
		if badge.Color == "" {
			t.Fatalf("%s: badge must carry a color", tc.state)
		}
	}
}

func TestDescribeUnknownStateFallsBackToOffline(t *testing.T) {
	if got := presentation.Describe(stream.State("bogus")).Label; got != "Offline" {
		t.Fatalf("expected Offline fallback, got %q", got)
	}
}

func TestRenderContainsLabel(t *testing.T) {
	if out := presentation.Render(stream.StateConnected); !strings.Contains(out, "Live") {
		t.Fatalf("rendered badge must contain the label, got %q", out)
	}
}
