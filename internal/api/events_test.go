package api_test

import (
	"errors"
	"testing"

	"github.com/g960059/agentdash/internal/api"
)

func TestDecodeFrameTurnCreated(t *testing.T) {
	ev, err := api.DecodeFrame(api.StreamFrame{
		Kind:   "turn_created",
		Cursor: "s1:7",
		Data:   []byte(`{"agent_id":"a1","turn_id":7,"actor":"user","text":"hello"}`),
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != api.KindTurnCreated {
		t.Fatalf("expected turn_created, got %q", ev.Kind)
	}
	if ev.Cursor != "s1:7" {
		t.Fatalf("expected cursor preserved, got %q", ev.Cursor)
	}
	turn, ok := ev.Turn()
	if !ok {
		t.Fatal("expected confirmable turn payload")
	}
	if turn.TurnID != 7 || turn.Actor != "user" || turn.Text != "hello" {
		t.Fatalf("unexpected payload %+v", turn)
	}
	if ev.AgentID() != "a1" {
		t.Fatalf("expected agent a1, got %q", ev.AgentID())
	}
}

func TestDecodeFrameAllKnownKinds(t *testing.T) {
	cases := []struct {
		kind string
		data string
	}{
		{"state_transition", `{"agent_id":"a1","from":"idle","to":"running"}`},
		{"turn_created", `{"agent_id":"a1","turn_id":1,"actor":"agent","text":"hi"}`},
		{"turn_updated", `{"agent_id":"a1","turn_id":1,"actor":"agent","text":"hi!"}`},
		{"card_refresh", `{"agent_id":"a1","name":"worker","state":"running"}`},
		{"session_ended", `{"agent_id":"a1","session_id":"s9"}`},
		{"agent_ended", `{"agent_id":"a1","reason":"done"}`},
	}
	for _, tc := range cases {
		ev, err := api.DecodeFrame(api.StreamFrame{Kind: tc.kind, Data: []byte(tc.data)})
		if err != nil {
			t.Fatalf("%s: decode: %v", tc.kind, err)
		}
		if ev.Kind != tc.kind {
			t.Fatalf("%s: kind mangled to %q", tc.kind, ev.Kind)
		}
		if ev.AgentID() != "a1" {
			t.Fatalf("%s: expected agent a1, got %q", tc.kind, ev.AgentID())
		}
	}
}

func TestDecodeFrameUnknownKindDegradesToUnrecognized(t *testing.T) {
	ev, err := api.DecodeFrame(api.StreamFrame{Kind: "inference_started", Data: []byte(`{"x":1}`)})
	if err != nil {
		t.Fatalf("unknown kind must not error: %v", err)
	}
	if ev.Kind != api.KindUnrecognized {
		t.Fatalf("expected unrecognized, got %q", ev.Kind)
	}
	if string(ev.Raw) != `{"x":1}` {
		t.Fatalf("expected raw payload kept, got %q", ev.Raw)
	}
}

func TestDecodeFrameMalformedPayload(t *testing.T) {
	_, err := api.DecodeFrame(api.StreamFrame{Kind: "turn_created", Data: []byte(`{"agent_id":`)})
	if !errors.Is(err, api.ErrPayloadInvalid) {
		t.Fatalf("expected ErrPayloadInvalid, got %v", err)
	}
}

func TestDecodeFrameMissingAgentID(t *testing.T) {
	_, err := api.DecodeFrame(api.StreamFrame{Kind: "card_refresh", Data: []byte(`{"name":"x"}`)})
	if !errors.Is(err, api.ErrAgentIDMissing) {
		t.Fatalf("expected ErrAgentIDMissing, got %v", err)
	}
}

func TestDecodeFrameMissingTurnID(t *testing.T) {
	_, err := api.DecodeFrame(api.StreamFrame{
		Kind: "turn_updated",
		Data: []byte(`{"agent_id":"a1","actor":"user","text":"hello"}`),
	})
	if !errors.Is(err, api.ErrPayloadInvalid) {
		t.Fatalf("expected ErrPayloadInvalid for missing turn_id, got %v", err)
	}
}
