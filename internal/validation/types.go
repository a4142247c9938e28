package validation

// SessionRequest is the payload for the session-scoped POST endpoints.
// Data carries the repo URL/path for ingest and the user message for chat;
// analyze and refactor only need the session.
type SessionRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Data      string `json:"data,omitempty"`
}
