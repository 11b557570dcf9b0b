// Package qa implements the answer aggregator: a deadline-bounded fan-out
// over multiple question-answering engines with scored ranking of the
// surviving answers.
package qa

import (
	"context"

	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// EngineID identifies an answer engine. Identity is assigned at construction
// and used as the static weight lookup key.
type EngineID string

const (
	// EngineTaskQA answers from within the selected taskmap content.
	EngineTaskQA EngineID = "task_qa"
	// EngineGeneralQA answers from the general domain corpus.
	EngineGeneralQA EngineID = "general_qa"
	// EngineLLMQA generates answers with a language model. It is the slow
	// engine and gets an extended deadline under the conditions described
	// on Composed.
	EngineLLMQA EngineID = "llm_qa"
)

// QuestionType classifies what kind of question the user asked. It drives
// the static trust weights and the substitution enrichment.
type QuestionType string

const (
	QuestionIngredient    QuestionType = "ingredient question"
	QuestionStep          QuestionType = "step question"
	QuestionSubstitution  QuestionType = "ingredient substitution"
	QuestionCurrentOption QuestionType = "current viewing options question"
	QuestionGeneral       QuestionType = "general question"
	QuestionChitChat      QuestionType = "chit chat"
)

// Request carries one question and enough session context for an engine to
// ground its answer.
type Request struct {
	Question   string
	Type       QuestionType
	Phase      session.Phase
	Domain     session.Domain
	Taskmap    *session.Taskmap
	Candidates []session.Taskmap
}

// Response is the answer from one engine or from the aggregator. An empty
// Text means no usable answer was produced; the caller substitutes a
// scripted fallback.
type Response struct {
	Text string
}

// Engine is a single question-answering backend. Synthesize must honor the
// context deadline; errors and timeouts exclude the engine from ranking but
// never fail the aggregation.
type Engine interface {
	ID() EngineID
	Synthesize(ctx context.Context, req Request) (Response, error)
}
