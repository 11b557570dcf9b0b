package policy

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskbotd/internal/qa"
	"github.com/fyrsmithlabs/taskbotd/internal/safety"
	"github.com/fyrsmithlabs/taskbotd/internal/services"
	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

type stubDomains struct {
	res services.DomainClassification
	err error
}

func (s stubDomains) ClassifyDomain(context.Context, string) (services.DomainClassification, error) {
	return s.res, s.err
}

type stubIntents struct {
	res services.IntentClassification
	err error
}

func (s stubIntents) ClassifyIntent(context.Context, []session.Turn) (services.IntentClassification, error) {
	return s.res, s.err
}

type stubQuestions struct {
	qt  qa.QuestionType
	err error
}

func (s stubQuestions) ClassifyQuestion(context.Context, string) (qa.QuestionType, error) {
	return s.qt, s.err
}

type stubDangerous struct {
	dangerous bool
	err       error
}

func (s stubDangerous) IsDangerous(context.Context, string) (bool, error) {
	return s.dangerous, s.err
}

type stubSearch struct {
	results    []session.Taskmap
	err        error
	lastQuery  string
	lastDomain session.Domain
}

func (s *stubSearch) Search(_ context.Context, query string, domain session.Domain, _ int) ([]session.Taskmap, error) {
	s.lastQuery = query
	s.lastDomain = domain
	return s.results, s.err
}

type stubJokes struct {
	joke string
	err  error
}

func (s stubJokes) RandomJoke(context.Context) (string, error) {
	return s.joke, s.err
}

type stubQA struct {
	resp    qa.Response
	err     error
	lastReq qa.Request
}

func (s *stubQA) Synthesize(_ context.Context, req qa.Request) (qa.Response, error) {
	s.lastReq = req
	return s.resp, s.err
}

type stubChat struct {
	reply string
	err   error
}

func (s stubChat) ChitChat(context.Context, string, session.Domain) (string, error) {
	return s.reply, s.err
}

type stubEnhance struct {
	enriched  *session.Taskmap
	ready     bool
	polls     int
	described [][]session.Taskmap
}

func (s *stubEnhance) Poll(context.Context, *session.Taskmap) (*session.Taskmap, bool) {
	s.polls++
	return s.enriched, s.ready
}

func (s *stubEnhance) DescribeCandidates(candidates []session.Taskmap) {
	s.described = append(s.described, candidates)
}

type stubHints struct {
	hint string
	err  error
}

func (s stubHints) ProactiveQuestion(context.Context, *session.Taskmap, session.Step) (string, error) {
	return s.hint, s.err
}

// testDeps builds a dependency set whose backends are inert: the intent
// classifier fails so turns must carry explicit intents, and the domain
// classifier shrugs.
func testDeps() Deps {
	return Deps{
		Safety: safety.NewChecker(),
		Domains: stubDomains{res: services.DomainClassification{
			Label:      services.DomainLabelUndefined,
			Confidence: services.ConfidenceLow,
		}},
		Intents:   stubIntents{err: errors.New("classifier offline")},
		Questions: stubQuestions{qt: qa.QuestionGeneral},
		Dangerous: stubDangerous{},
		Search:    &stubSearch{},
		Jokes:     stubJokes{},
		QA:        &stubQA{},
		Logger:    zap.NewNop(),
	}
}

func newTestPolicy(t *testing.T, deps Deps) *PhasedPolicy {
	t.Helper()
	p, err := New(deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

// testSession builds a headless, already-greeted session with one open turn.
func testSession(phase session.Phase, text string, intents ...string) *session.Session {
	s := session.New("sess-1")
	s.Greetings = true
	s.Headless = true
	s.Task.Phase = phase
	s.AddTurn("turn-1", text, intents)
	return s
}

func fixtureTaskmap() *session.Taskmap {
	return &session.Taskmap{
		ID:           "tm-1",
		Title:        "Garlic Butter Pasta",
		SourceURL:    "https://example.com/garlic-butter-pasta",
		ThumbnailURL: "https://example.com/pasta.jpg",
		Requirements: []string{"pasta", "butter", "garlic", "parsley"},
		Steps: []session.Step{
			{Text: "Boil the pasta in salted water until al dente."},
			{Text: "Melt the butter over medium heat and add the garlic."},
			{Text: "Toss the pasta in the garlic butter and top with parsley."},
		},
	}
}
