package actionclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/g960059/agentdash/internal/actionclient"
	"github.com/g960059/agentdash/internal/api"
)

func TestSendMessagePostsJSONAndDecodesResponse(t *testing.T) {
	var got actionclient.SendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/actions/send-message" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(api.ActionResponse{
			SchemaVersion: "1",
			ActionID:      "act-1",
			ResultCode:    "accepted",
		})
	}))
	defer srv.Close()

	client := actionclient.New(srv.URL)
	resp, err := client.SendMessage(context.Background(), actionclient.SendMessageRequest{
		RequestRef: "nonce-1",
		AgentID:    "a1",
		Actor:      "user",
		Text:       "hello",
	})
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if resp.ResultCode != "accepted" || resp.ActionID != "act-1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got.AgentID != "a1" || got.Actor != "user" || got.Text != "hello" {
		t.Fatalf("unexpected request body %+v", got)
	}
}

func TestErrorResponseMapsToRequestError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{
			Error: api.APIError{Code: api.ErrCodeAgentNotFound, Message: "no such agent"},
		})
	}))
	defer srv.Close()

	_, err := actionclient.New(srv.URL).EndSession(context.Background(), "missing")
	var reqErr *actionclient.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.StatusCode != http.StatusNotFound || reqErr.Code != api.ErrCodeAgentNotFound {
		t.Fatalf("unexpected error %+v", reqErr)
	}
	if reqErr.Retryable() {
		t.Fatal("404 must not be retryable")
	}
}

func TestNonJSONErrorBodyStillProducesRequestError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := actionclient.New(srv.URL).ListAgents(context.Background())
	var reqErr *actionclient.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("unexpected status %d", reqErr.StatusCode)
	}
	if !reqErr.Retryable() {
		t.Fatal("502 must be retryable")
	}
}

func TestListAgentsDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/agents" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(api.AgentsEnvelope{
			SchemaVersion: "1",
			Agents: []api.AgentItem{
				{AgentID: "a1", Name: "builder", State: "working"},
				{AgentID: "a2", Name: "reviewer", State: "idle"},
			},
		})
	}))
	defer srv.Close()

	env, err := actionclient.New(srv.URL).ListAgents(context.Background())
	if err != nil {
		t.Fatalf("list agents: %v", err)
	}
	if len(env.Agents) != 2 || env.Agents[0].AgentID != "a1" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestUnaryTimeoutBoundsSlowServer(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	client := actionclient.New(srv.URL).WithUnaryTimeout(50 * time.Millisecond)
	start := time.Now()
	_, err := client.ListAgents(context.Background())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout did not bound the request, took %v", elapsed)
	}
}

func TestEmptyAgentIDRejectedLocally(t *testing.T) {
	client := actionclient.New("http://127.0.0.1:0")
	if _, err := client.KillAgent(context.Background(), "  "); err == nil {
		t.Fatal("expected validation error for blank agent id")
	}
}
