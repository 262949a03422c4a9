// Package stream maintains the persistent server-push connection to the
// agent-supervision daemon.
//
// A Supervisor owns exactly one live stream. It decodes frames, forwards them
// to its dispatch registry in arrival order, and tracks the cursor of the last
// successfully processed frame so a reconnect can resume without gaps. All
// transport failures are retried with capped exponential backoff; only
// Disconnect ends the cycle.
package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/g960059/agentdash/internal/api"
	"github.com/g960059/agentdash/internal/dispatch"
)

// State is the connection state machine. Only the Supervisor writes it.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

const (
	defaultBackoffBase = 1 * time.Second
	defaultBackoffMax  = 30 * time.Second

	frameScannerInitialBuffer = 64 * 1024
	frameScannerMaxBuffer     = 10 * 1024 * 1024
)

type Config struct {
	// URL is the stream endpoint.
	URL string

	// AgentID restricts the stream to one agent when set.
	AgentID string

	// ResumeCursor seeds the resume position for the first connection, e.g.
	// from a checkpoint saved by a previous process. Empty means clean slate.
	ResumeCursor string

	// BackoffBase and BackoffMax bound the reconnect delay. Defaults: 1s, 30s.
	BackoffBase time.Duration
	BackoffMax  time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client

	// OnError receives dropped-frame and transport errors. Never fatal.
	OnError func(error)
}

type stateSubscription struct {
	id int64
	fn func(State)
}

// Supervisor owns one server-push stream and its reconnect lifecycle.
type Supervisor struct {
	cfg      Config
	registry *dispatch.Registry

	mu         sync.Mutex
	state      State
	stateSubs  []*stateSubscription
	nextSubID  int64
	cursor     string
	generation int64
	cancel     context.CancelFunc
	done       chan struct{}
}

func New(cfg Config) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		registry: dispatch.NewRegistry(cfg.OnError),
		state:    StateDisconnected,
		cursor:   cfg.ResumeCursor,
	}
}

// Connect starts the connection cycle. It returns immediately; the stream is
// established asynchronously and failures are retried forever. Calling Connect
// while a cycle is live is a no-op.
func (s *Supervisor) Connect(ctx context.Context) error {
	if strings.TrimSpace(s.cfg.URL) == "" {
		return fmt.Errorf("stream url is required")
	}
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	s.generation++
	gen := s.generation
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.run(runCtx, gen, done)
	return nil
}

// Disconnect tears the cycle down deterministically: it cancels any pending
// retry, closes the transport, waits for the run loop to exit, and forces the
// disconnected state. A later Connect starts a fresh cycle that cannot race a
// timer from this one.
func (s *Supervisor) Disconnect() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// State returns the current connection state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cursor returns the cursor of the last successfully processed frame, or the
// seeded resume cursor if none has been processed yet.
func (s *Supervisor) Cursor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// OnStateChange registers a callback for state transitions and returns its
// disposer. The callback runs synchronously on the supervisor goroutine.
func (s *Supervisor) OnStateChange(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &stateSubscription{id: s.nextSubID, fn: fn}
	s.nextSubID++
	s.stateSubs = append(s.stateSubs, sub)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, existing := range s.stateSubs {
			if existing.id == sub.id {
				s.stateSubs = append(s.stateSubs[:i], s.stateSubs[i+1:]...)
				return
			}
		}
	}
}

// On registers an event handler for one kind (or dispatch.Wildcard) and
// returns its disposer.
func (s *Supervisor) On(kind string, h dispatch.Handler) func() {
	return s.registry.On(kind, h)
}

// OnAny registers a catch-all event handler and returns its disposer.
func (s *Supervisor) OnAny(h dispatch.Handler) func() {
	return s.registry.OnAny(h)
}

func (s *Supervisor) run(ctx context.Context, gen int64, done chan struct{}) {
	defer close(done)
	attempt := 0
	for {
		s.setState(gen, StateConnecting)
		resp, err := s.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.setState(gen, StateDisconnected)
				return
			}
			s.report(fmt.Errorf("stream dial: %w", err))
		} else {
			s.setState(gen, StateConnected)
			attempt = 0
			if err := s.consume(ctx, resp.Body); err != nil && ctx.Err() == nil {
				s.report(fmt.Errorf("stream read: %w", err))
			}
			resp.Body.Close()
			if ctx.Err() != nil {
				s.setState(gen, StateDisconnected)
				return
			}
		}
		s.setState(gen, StateReconnecting)
		if !sleepWithContext(ctx, s.retryDelay(attempt)) {
			s.setState(gen, StateDisconnected)
			return
		}
		attempt++
	}
}

func (s *Supervisor) dial(ctx context.Context) (*http.Response, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse stream url: %w", err)
	}
	query := u.Query()
	if agent := strings.TrimSpace(s.cfg.AgentID); agent != "" {
		query.Set("agent", agent)
	}
	cursor := s.Cursor()
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if cursor != "" {
		req.Header.Set("Last-Event-ID", cursor)
	}
	resp, err := s.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream endpoint http %d", resp.StatusCode)
	}
	return resp, nil
}

// consume parses text/event-stream framing until the transport closes. A
// malformed frame is dropped and reported; it never ends the stream.
func (s *Supervisor) consume(ctx context.Context, body io.Reader) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, frameScannerInitialBuffer), frameScannerMaxBuffer)

	var kind, id string
	var data []byte
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := scanner.Text()
		switch {
		case line == "":
			if kind != "" || len(data) > 0 {
				s.handleFrame(api.StreamFrame{Kind: kind, Cursor: id, Data: data})
			}
			kind, id, data = "", "", nil
		case strings.HasPrefix(line, ":"):
			// heartbeat comment
		case strings.HasPrefix(line, "event:"):
			kind = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			chunk := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
			if len(data) > 0 {
				data = append(data, '\n')
			}
			data = append(data, chunk...)
		case strings.HasPrefix(line, "id:"):
			id = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
		}
	}
	return scanner.Err()
}

func (s *Supervisor) handleFrame(frame api.StreamFrame) {
	ev, err := api.DecodeFrame(frame)
	if err != nil {
		s.report(fmt.Errorf("drop frame: %w", err))
		return
	}
	s.registry.Dispatch(ev)
	if frame.Cursor != "" {
		s.mu.Lock()
		s.cursor = frame.Cursor
		s.mu.Unlock()
	}
}

// setState applies a transition and notifies state subscribers. Writes from a
// superseded connect cycle are ignored.
func (s *Supervisor) setState(gen int64, next State) {
	s.mu.Lock()
	if s.generation != gen || s.state == next {
		s.mu.Unlock()
		return
	}
	s.state = next
	subs := make([]*stateSubscription, len(s.stateSubs))
	copy(subs, s.stateSubs)
	s.mu.Unlock()
	for _, sub := range subs {
		sub.fn(next)
	}
}

func (s *Supervisor) retryDelay(attempt int) time.Duration {
	base := s.cfg.BackoffBase
	if base <= 0 {
		base = defaultBackoffBase
	}
	max := s.cfg.BackoffMax
	if max <= 0 {
		max = defaultBackoffMax
	}
	delay := backoffDelay(base, max, attempt)
	if delay >= max {
		return max
	}
	jitter := time.Duration(rand.Int63n(int64(base)/2 + 1))
	if delay+jitter > max {
		return max
	}
	return delay + jitter
}

// backoffDelay computes min(base * 2^attempt, max).
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if max < base {
		max = base
	}
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	return delay
}

func (s *Supervisor) httpClient() *http.Client {
	if s.cfg.HTTPClient != nil {
		return s.cfg.HTTPClient
	}
	return http.DefaultClient
}

func (s *Supervisor) report(err error) {
	if s.cfg.OnError != nil {
		s.cfg.OnError(err)
	}
}

func sleepWithContext(ctx context.Context, wait time.Duration) bool {
	if wait <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
