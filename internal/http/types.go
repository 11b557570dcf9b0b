package http

import "github.com/fyrsmithlabs/taskbotd/internal/session"

// InteractionRequest is the request body for POST /v1/interaction.
type InteractionRequest struct {
	SessionID string   `json:"session_id"`
	Text      string   `json:"text"`
	Intents   []string `json:"intents,omitempty"`
	Headless  bool     `json:"headless,omitempty"`
	// Resume controls what a returning-user wakeup does: pick the task
	// back up, or start over when explicitly false. Absent means resume.
	Resume *bool `json:"resume_task,omitempty"`
	// ListPermissions reports whether the client lets the assistant read
	// and write the user's shopping lists.
	ListPermissions bool `json:"list_permissions,omitempty"`
	// WaitSave makes the call return only after the session is persisted.
	WaitSave bool `json:"wait_save,omitempty"`
}

// InteractionResponse is the response body for POST /v1/interaction and
// GET /v1/sessions/:id/response.
type InteractionResponse struct {
	SessionID   string                    `json:"session_id"`
	TurnID      string                    `json:"turn_id"`
	Interaction session.OutputInteraction `json:"interaction"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
