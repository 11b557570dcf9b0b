package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/taskbotd/internal/qa"
	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// Generator wraps a langchaingo chat model behind the generation calls the
// policies and the enrichment job need. All calls honor the context deadline
// and are rate limited as a group.
type Generator struct {
	model   llms.Model
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewOpenAIModel builds the default chat model. An empty baseURL uses the
// provider default; the API key comes from the environment.
func NewOpenAIModel(model, baseURL string) (llms.Model, error) {
	opts := []openai.Option{openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating chat model: %w", err)
	}
	return llm, nil
}

// NewGenerator wraps model with rate limiting.
func NewGenerator(model llms.Model, ratePerSecond float64, burst int, logger *zap.Logger) *Generator {
	if burst <= 0 {
		burst = 1
	}
	return &Generator{
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		logger:  logger.Named("services.llm"),
	}
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	text, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt, llms.WithTemperature(0.3))
	if err != nil {
		return "", fmt.Errorf("generating: %w", err)
	}
	return cleanGenerated(text), nil
}

// cleanGenerated collapses whitespace and drops a trailing unfinished
// sentence so speech output never cuts off mid-thought.
func cleanGenerated(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}
	if strings.HasSuffix(text, ".") || strings.HasSuffix(text, "!") || strings.HasSuffix(text, "?") {
		return text
	}
	if idx := strings.LastIndexAny(text, ".!?"); idx > 0 {
		return strings.TrimSpace(text[:idx+1])
	}
	return text
}

// ChitChat produces a short in-character reply to an off-task utterance.
func (g *Generator) ChitChat(ctx context.Context, utterance string, domain session.Domain) (string, error) {
	prompt := fmt.Sprintf(
		"You are a friendly voice assistant helping the user with %s tasks. "+
			"Reply to the user in at most two short sentences and steer back to the task.\nUser: %s\nAssistant:",
		domainNoun(domain), utterance)
	return g.complete(ctx, prompt)
}

// Substitution suggests a replacement for an ingredient or tool the user is
// missing, grounded on the selected taskmap's requirements.
func (g *Generator) Substitution(ctx context.Context, question string, tm *session.Taskmap) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "The user is working on %q and asked: %s\n", tm.Title, question)
	if len(tm.Requirements) > 0 {
		fmt.Fprintf(&b, "It requires: %s.\n", strings.Join(tm.Requirements, "; "))
	}
	b.WriteString("Suggest one practical substitution in one sentence.")
	return g.complete(ctx, b.String())
}

// Description writes a one-sentence spoken description for a taskmap.
func (g *Generator) Description(ctx context.Context, tm *session.Taskmap) (string, error) {
	prompt := fmt.Sprintf(
		"Write one enticing spoken sentence describing %q (%s task, %d steps). Plain text, no lists.",
		tm.Title, domainNoun(taskmapDomain(tm)), len(tm.Steps))
	return g.complete(ctx, prompt)
}

// Summary writes a short spoken summary of the whole taskmap.
func (g *Generator) Summary(ctx context.Context, tm *session.Taskmap) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the task %q in two spoken sentences.\n", tm.Title)
	for i, step := range tm.Steps {
		fmt.Fprintf(&b, "Step %d: %s\n", i+1, step.Text)
	}
	return g.complete(ctx, b.String())
}

// ProactiveQuestion writes an engaging follow-up question for one step.
func (g *Generator) ProactiveQuestion(ctx context.Context, tm *session.Taskmap, step session.Step) (string, error) {
	prompt := fmt.Sprintf(
		"While guiding the user through %q, the current instruction is: %s\n"+
			"Write one short, helpful question the assistant could ask to keep the user engaged.",
		tm.Title, step.Text)
	return g.complete(ctx, prompt)
}

func domainNoun(domain session.Domain) string {
	switch domain {
	case session.DomainCooking:
		return "cooking"
	case session.DomainDIY:
		return "home improvement"
	default:
		return "cooking and home improvement"
	}
}

// taskmapDomain guesses the domain from the presence of a serving size;
// taskmaps do not carry their domain on the wire.
func taskmapDomain(tm *session.Taskmap) session.Domain {
	if tm.Serves != "" {
		return session.DomainCooking
	}
	return session.DomainUnknown
}

// LLMEngine is the language-model QA engine. It is the designated slow
// engine in the aggregator.
type LLMEngine struct {
	gen *Generator
}

// NewLLMEngine builds the LLM QA engine on top of a Generator.
func NewLLMEngine(gen *Generator) *LLMEngine {
	return &LLMEngine{gen: gen}
}

func (e *LLMEngine) ID() qa.EngineID { return qa.EngineLLMQA }

func (e *LLMEngine) Synthesize(ctx context.Context, req qa.Request) (qa.Response, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a voice assistant for %s tasks. Answer in at most two short spoken sentences.\n",
		domainNoun(req.Domain))

	if req.Taskmap != nil {
		fmt.Fprintf(&b, "The user selected %q", req.Taskmap.Title)
		if req.Taskmap.Author != "" {
			fmt.Fprintf(&b, " by %s", req.Taskmap.Author)
		}
		b.WriteString(".\n")
		if req.Type == qa.QuestionIngredient && len(req.Taskmap.Requirements) > 0 {
			fmt.Fprintf(&b, "It requires: %s.\n", strings.Join(req.Taskmap.Requirements, "; "))
		}
		if req.Type == qa.QuestionStep && len(req.Taskmap.Steps) > 0 {
			fmt.Fprintf(&b, "It has %d steps.\n", len(req.Taskmap.Steps))
		}
	}

	if len(req.Candidates) > 0 && req.Type == qa.QuestionCurrentOption {
		b.WriteString("The user is choosing between:\n")
		for i, cand := range req.Candidates {
			fmt.Fprintf(&b, "Option %d: %s\n", i+1, cand.Title)
		}
		b.WriteString("Recommend one option with a reason.\n")
	}

	fmt.Fprintf(&b, "User: %s\nAssistant:", req.Question)

	text, err := e.gen.complete(ctx, b.String())
	if err != nil {
		return qa.Response{}, err
	}
	return qa.Response{Text: text}, nil
}
