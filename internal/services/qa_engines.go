package services

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/taskbotd/internal/qa"
	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// HTTPEngine is a QA engine served by the extractive QA backend. The same
// backend hosts both the task QA and general QA engines; the engine id
// selects the route.
type HTTPEngine struct {
	httpBackend
	id   qa.EngineID
	path string
}

// NewTaskQAEngine answers questions from within the selected taskmap.
func NewTaskQAEngine(baseURL string, timeout time.Duration) *HTTPEngine {
	return &HTTPEngine{
		httpBackend: newHTTPBackend(baseURL, timeout),
		id:          qa.EngineTaskQA,
		path:        "/v1/qa/task",
	}
}

// NewGeneralQAEngine answers questions from the domain corpus.
func NewGeneralQAEngine(baseURL string, timeout time.Duration) *HTTPEngine {
	return &HTTPEngine{
		httpBackend: newHTTPBackend(baseURL, timeout),
		id:          qa.EngineGeneralQA,
		path:        "/v1/qa/general",
	}
}

func (e *HTTPEngine) ID() qa.EngineID { return e.id }

type qaWireRequest struct {
	Question   string            `json:"question"`
	Type       qa.QuestionType   `json:"type"`
	Phase      session.Phase     `json:"phase"`
	Domain     session.Domain    `json:"domain"`
	Taskmap    *session.Taskmap  `json:"taskmap,omitempty"`
	Candidates []session.Taskmap `json:"candidates,omitempty"`
}

type qaWireResponse struct {
	Text string `json:"text"`
}

func (e *HTTPEngine) Synthesize(ctx context.Context, req qa.Request) (qa.Response, error) {
	wire := qaWireRequest{
		Question:   req.Question,
		Type:       req.Type,
		Phase:      req.Phase,
		Domain:     req.Domain,
		Taskmap:    req.Taskmap,
		Candidates: req.Candidates,
	}
	var out qaWireResponse
	if err := e.postJSON(ctx, e.path, wire, &out); err != nil {
		return qa.Response{}, err
	}
	return qa.Response{Text: out.Text}, nil
}
