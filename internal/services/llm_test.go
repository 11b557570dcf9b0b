package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskbotd/internal/qa"
	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// fakeModel returns a fixed completion and records the last prompt.
type fakeModel struct {
	reply      string
	err        error
	lastPrompt string
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				f.lastPrompt = text.Text
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.reply}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	f.lastPrompt = prompt
	return f.reply, f.err
}

func newTestGenerator(model llms.Model) *Generator {
	return NewGenerator(model, 100, 10, zap.NewNop())
}

func TestCleanGenerated(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"  Stir  well.  ", "Stir well."},
		{"Stir well. Then add the garl", "Stir well."},
		{"Is it done?", "Is it done?"},
		{"no terminal punctuation", "no terminal punctuation"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, cleanGenerated(tc.in), tc.in)
	}
}

func TestChitChatPromptAndCleanup(t *testing.T) {
	model := &fakeModel{reply: "Pasta is a great choice!  Shall we keep goi"}
	gen := newTestGenerator(model)

	got, err := gen.ChitChat(context.Background(), "do you like pasta", session.DomainCooking)
	require.NoError(t, err)
	assert.Equal(t, "Pasta is a great choice!", got)
	assert.Contains(t, model.lastPrompt, "cooking")
	assert.Contains(t, model.lastPrompt, "do you like pasta")
}

func TestSubstitutionIncludesRequirements(t *testing.T) {
	model := &fakeModel{reply: "Use olive oil instead of butter."}
	gen := newTestGenerator(model)

	tm := &session.Taskmap{Title: "Garlic Bread", Requirements: []string{"butter", "garlic"}}
	got, err := gen.Substitution(context.Background(), "I have no butter", tm)
	require.NoError(t, err)
	assert.Equal(t, "Use olive oil instead of butter.", got)
	assert.Contains(t, model.lastPrompt, "butter; garlic")
}

func TestProactiveQuestion(t *testing.T) {
	model := &fakeModel{reply: "Do you prefer it extra crispy?"}
	gen := newTestGenerator(model)

	tm := &session.Taskmap{Title: "Garlic Bread"}
	got, err := gen.ProactiveQuestion(context.Background(), tm, session.Step{Text: "Bake until golden."})
	require.NoError(t, err)
	assert.Equal(t, "Do you prefer it extra crispy?", got)
	assert.Contains(t, model.lastPrompt, "Bake until golden.")
}

func TestLLMEngineGroundsOnTaskmap(t *testing.T) {
	model := &fakeModel{reply: "You need two cloves of garlic."}
	engine := NewLLMEngine(newTestGenerator(model))
	assert.Equal(t, qa.EngineLLMQA, engine.ID())

	out, err := engine.Synthesize(context.Background(), qa.Request{
		Question: "how much garlic",
		Type:     qa.QuestionIngredient,
		Phase:    session.PhaseExecuting,
		Domain:   session.DomainCooking,
		Taskmap: &session.Taskmap{
			Title:        "Garlic Bread",
			Author:       "seriouseats",
			Requirements: []string{"garlic", "bread"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "You need two cloves of garlic.", out.Text)
	assert.Contains(t, model.lastPrompt, `"Garlic Bread" by seriouseats`)
	assert.Contains(t, model.lastPrompt, "garlic; bread")
}

func TestLLMEngineRecommendsAmongCandidates(t *testing.T) {
	model := &fakeModel{reply: "The second one looks easiest."}
	engine := NewLLMEngine(newTestGenerator(model))

	out, err := engine.Synthesize(context.Background(), qa.Request{
		Question: "which should I pick",
		Type:     qa.QuestionCurrentOption,
		Phase:    session.PhasePlanning,
		Domain:   session.DomainCooking,
		Candidates: []session.Taskmap{
			{Title: "Focaccia"},
			{Title: "Ciabatta"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "The second one looks easiest.", out.Text)
	assert.Contains(t, model.lastPrompt, "Option 2: Ciabatta")
}

func TestGeneratorSurfacesModelError(t *testing.T) {
	model := &fakeModel{err: assert.AnError}
	gen := newTestGenerator(model)

	_, err := gen.ChitChat(context.Background(), "hi", session.DomainUnknown)
	require.Error(t, err)
}
