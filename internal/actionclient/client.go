// Package actionclient is the request/response surface of the daemon API:
// listing agents and submitting user actions. Stream consumption lives in the
// stream package; this client only backs speculative actions and the CRUD
// around them.
package actionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/g960059/agentdash/internal/api"
)

const defaultUnaryTimeout = 10 * time.Second

type Client struct {
	baseURL      string
	client       *http.Client
	unaryTimeout time.Duration
}

func New(baseURL string) *Client {
	return NewWithClient(baseURL, nil)
}

func NewWithClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       client,
		unaryTimeout: defaultUnaryTimeout,
	}
}

func (c *Client) WithUnaryTimeout(timeout time.Duration) *Client {
	if c == nil {
		return nil
	}
	clone := *c
	clone.unaryTimeout = timeout
	return &clone
}

type RequestError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *RequestError) Error() string {
	if e == nil {
		return ""
	}
	code := strings.TrimSpace(e.Code)
	message := strings.TrimSpace(e.Message)
	switch {
	case code != "" && message != "":
		return fmt.Sprintf("%s: %s", code, message)
	case code != "":
		if e.StatusCode > 0 {
			return fmt.Sprintf("http %d: %s", e.StatusCode, code)
		}
		return code
	case message != "":
		if e.StatusCode > 0 {
			return fmt.Sprintf("http %d: %s", e.StatusCode, message)
		}
		return message
	case e.StatusCode > 0:
		return fmt.Sprintf("http %d", e.StatusCode)
	default:
		return "http error"
	}
}

func (e *RequestError) Retryable() bool {
	if e == nil {
		return false
	}
	if e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout {
		return true
	}
	return e.StatusCode >= 500
}

type SendMessageRequest struct {
	RequestRef string `json:"request_ref"`
	AgentID    string `json:"agent_id"`
	Actor      string `json:"actor"`
	Text       string `json:"text"`
}

type CreateAgentRequest struct {
	RequestRef string `json:"request_ref"`
	Name       string `json:"name"`
	Prompt     string `json:"prompt,omitempty"`
}

// SendMessage submits a user message for an agent. The caller records the
// matching pending action before invoking this and rolls it back when the
// returned error is non-nil; confirmation arrives via the event stream, not
// via this response.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (api.ActionResponse, error) {
	return c.postAction(ctx, "/v1/actions/send-message", req)
}

func (c *Client) CreateAgent(ctx context.Context, req CreateAgentRequest) (api.ActionResponse, error) {
	return c.postAction(ctx, "/v1/actions/create-agent", req)
}

func (c *Client) EndSession(ctx context.Context, agentID string) (api.ActionResponse, error) {
	id := strings.TrimSpace(agentID)
	if id == "" {
		return api.ActionResponse{}, fmt.Errorf("agent id is required")
	}
	return c.postAction(ctx, "/v1/agents/"+url.PathEscape(id)+"/end-session", nil)
}

func (c *Client) KillAgent(ctx context.Context, agentID string) (api.ActionResponse, error) {
	id := strings.TrimSpace(agentID)
	if id == "" {
		return api.ActionResponse{}, fmt.Errorf("agent id is required")
	}
	return c.postAction(ctx, "/v1/agents/"+url.PathEscape(id)+"/kill", nil)
}

// ListAgents returns the snapshot used to seed the dashboard before the first
// stream event arrives.
func (c *Client) ListAgents(ctx context.Context) (api.AgentsEnvelope, error) {
	body, err := c.request(ctx, http.MethodGet, "/v1/agents", nil)
	if err != nil {
		return api.AgentsEnvelope{}, err
	}
	var env api.AgentsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return api.AgentsEnvelope{}, fmt.Errorf("decode agents envelope: %w", err)
	}
	return env, nil
}

func (c *Client) postAction(ctx context.Context, path string, req any) (api.ActionResponse, error) {
	body, err := c.request(ctx, http.MethodPost, path, req)
	if err != nil {
		return api.ActionResponse{}, err
	}
	var resp api.ActionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return api.ActionResponse{}, fmt.Errorf("decode action response: %w", err)
	}
	return resp, nil
}

func (c *Client) request(ctx context.Context, method, path string, body any) ([]byte, error) {
	reqCtx := ctx
	if c.unaryTimeout > 0 {
		if deadline, ok := ctx.Deadline(); !ok || time.Until(deadline) > c.unaryTimeout {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, c.unaryTimeout)
			defer cancel()
		}
	}
	var reqBody io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reqBody = buf
	}
	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		var er api.ErrorResponse
		if err := json.Unmarshal(payload, &er); err == nil && er.Error.Code != "" {
			return nil, &RequestError{
				StatusCode: resp.StatusCode,
				Code:       er.Error.Code,
				Message:    er.Error.Message,
			}
		}
		return nil, &RequestError{
			StatusCode: resp.StatusCode,
			Code:       fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message:    strings.TrimSpace(string(payload)),
		}
	}
	return payload, nil
}
