package api

import "time"

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	SchemaVersion string    `json:"schema_version"`
	GeneratedAt   time.Time `json:"generated_at"`
	Error         APIError  `json:"error"`
}

// Error codes defined by the daemon API contract.
const (
	ErrCodeCursorInvalid = "E_CURSOR_INVALID"
	ErrCodeAgentNotFound = "E_AGENT_NOT_FOUND"
	ErrCodeSessionEnded  = "E_SESSION_ENDED"
	ErrCodeRefInvalid    = "E_REF_INVALID"
)

type AgentItem struct {
	AgentID    string `json:"agent_id"`
	Name       string `json:"name"`
	State      string `json:"state"`
	SessionID  string `json:"session_id,omitempty"`
	LastTurnID int64  `json:"last_turn_id,omitempty"`
	UpdatedAt  string `json:"updated_at"`
}

type AgentsEnvelope struct {
	SchemaVersion string      `json:"schema_version"`
	GeneratedAt   time.Time   `json:"generated_at"`
	Agents        []AgentItem `json:"agents"`
}

type ActionResponse struct {
	SchemaVersion string    `json:"schema_version"`
	GeneratedAt   time.Time `json:"generated_at"`
	ActionID      string    `json:"action_id"`
	ResultCode    string    `json:"result_code"`
	ErrorCode     *string   `json:"error_code,omitempty"`
}
