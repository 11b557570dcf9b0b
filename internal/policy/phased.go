package policy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskbotd/internal/qa"
	"github.com/fyrsmithlabs/taskbotd/internal/safety"
	"github.com/fyrsmithlabs/taskbotd/internal/services"
	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// maxReroutes bounds the phase re-routing chain per turn. Exceeding it means
// two policies are handing the turn back and forth.
const maxReroutes = 5

// Synthesizer is the answer aggregator the QA policy fans questions out to.
type Synthesizer interface {
	Synthesize(ctx context.Context, req qa.Request) (qa.Response, error)
}

// Conversationalist generates small-talk replies.
type Conversationalist interface {
	ChitChat(ctx context.Context, utterance string, domain session.Domain) (string, error)
}

// Enhancer advances the background taskmap enrichment lease.
// DescribeCandidates kicks off description generation for search results
// that arrived without one; it returns immediately.
type Enhancer interface {
	Poll(ctx context.Context, tm *session.Taskmap) (*session.Taskmap, bool)
	DescribeCandidates(candidates []session.Taskmap)
}

// Deps are the backends the policies call. All of them are injected at
// construction; no policy opens its own connections.
type Deps struct {
	Safety    *safety.Checker
	Domains   services.DomainClassifier
	Intents   services.PhaseIntentClassifier
	Questions services.QuestionClassifier
	Dangerous services.DangerousChecker
	Search    services.Searcher
	Jokes     services.JokeRetriever
	QA        Synthesizer
	Chat      Conversationalist
	Enhance   Enhancer
	Hints     StepHinter
	Logger    *zap.Logger
}

func (d Deps) validate() error {
	switch {
	case d.Safety == nil:
		return fmt.Errorf("policy: safety checker required")
	case d.Domains == nil:
		return fmt.Errorf("policy: domain classifier required")
	case d.Intents == nil:
		return fmt.Errorf("policy: phase intent classifier required")
	case d.Questions == nil:
		return fmt.Errorf("policy: question classifier required")
	case d.Dangerous == nil:
		return fmt.Errorf("policy: dangerous checker required")
	case d.Search == nil:
		return fmt.Errorf("policy: searcher required")
	case d.QA == nil:
		return fmt.Errorf("policy: qa synthesizer required")
	}
	return nil
}

// PhasedPolicy is the top-level turn router. One Step call handles one turn:
// safety and personality gates first, then dispatch to the phase policy the
// session is in, re-dispatching on phase changes until an outcome settles.
type PhasedPolicy struct {
	deps   Deps
	logger *zap.Logger

	phases   map[session.Phase]stepper
	farewell *farewellPolicy
	resuming *resumingPolicy
	intents  *intentsPolicy
}

// New wires the phase policies onto a shared dependency set.
func New(deps Deps) (*PhasedPolicy, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &PhasedPolicy{deps: deps, logger: logger.Named("policy")}
	qaPol := newQAPolicy(deps, logger)
	p.farewell = newFarewellPolicy(logger)
	p.resuming = newResumingPolicy(logger)
	p.intents = newIntentsPolicy(logger)
	p.phases = map[session.Phase]stepper{
		session.PhaseDomain:     newDomainPolicy(deps, logger),
		session.PhasePlanning:   newPlanningPolicy(deps, qaPol, logger),
		session.PhaseValidating: newValidationPolicy(deps, qaPol, logger),
		session.PhaseExecuting:  newExecutionPolicy(deps, qaPol, logger),
		session.PhaseClosing:    p.farewell,
	}
	return p, nil
}

// stop phrases that bypass routing straight to the farewell policy.
var stopSequences = []string{
	"end this", "end the", "finish", "terminate", "don't talk",
	"not talk", "why are you still speaking", "why are you still talking",
	"shut up", "zip it", "make it end", "go away", "piss off", "keep quiet", "shush",
}

// Step handles one turn end to end and returns the agent response. The only
// errors it returns are routing overruns; every backend failure degrades
// into fallback speech inside the policies.
func (p *PhasedPolicy) Step(ctx context.Context, s *session.Session) (*session.OutputInteraction, error) {
	if safe := p.gateUtterance(s); safe != nil {
		p.logger.Warn("unsafe user utterance, gate response returned",
			zap.String("session_id", s.ID))
		return safe, nil
	}

	if out := p.gatePersonality(s); out != nil {
		return out, nil
	}

	var (
		out *session.OutputInteraction
		err error
	)
	if p.stopIntent(s) {
		out, err = p.stepFarewell(ctx, s)
	} else {
		out, err = p.route(ctx, s)
	}
	if err != nil {
		return nil, err
	}

	p.postProcess(s, out)
	return out, nil
}

// gateUtterance runs the incoming utterance through the safety checks and
// returns a ready response when the turn must not be routed at all.
func (p *PhasedPolicy) gateUtterance(s *session.Session) *session.OutputInteraction {
	turn := s.CurrentTurn()
	if turn == nil || turn.UserRequest.Text == "" {
		return nil
	}

	assessment := p.deps.Safety.Check(turn.UserRequest.Text)
	if assessment.Safe() {
		return nil
	}

	if assessment.Suicide {
		turn.UserRequest.AppendIntents("SuicideIntent")
		out := &session.OutputInteraction{SpeechText: crisisLineResponse}
		closeSession(s, out)
		return out
	}

	if assessment.PrivacyViolation {
		turn.UserRequest.AppendIntents("PrivacyViolationIntent")
	}
	if assessment.SensitivityViolation {
		turn.UserRequest.AppendIntents("SensitivityViolationIntent")
	}
	if assessment.Offensive {
		turn.UserRequest.AppendIntents("OffensiveIntent")
	}
	out := &session.OutputInteraction{SpeechText: unsafeUserResponse}
	repeatScreen(s, out)
	return out
}

// gatePersonality answers "who are you" style questions without routing.
func (p *PhasedPolicy) gatePersonality(s *session.Session) *session.OutputInteraction {
	turn := s.CurrentTurn()
	if turn == nil {
		return nil
	}
	answer, ok := safety.Personality(turn.UserRequest.Text)
	if !ok {
		return nil
	}
	out := &session.OutputInteraction{SpeechText: answer}
	repeatScreen(s, out)
	return out
}

func (p *PhasedPolicy) stopIntent(s *session.Session) bool {
	turn := s.CurrentTurn()
	if turn == nil {
		return false
	}
	if turn.UserRequest.HasIntent("StopIntent") {
		return true
	}
	for _, seq := range stopSequences {
		if containsWord(turn.UserRequest.Text, seq) {
			p.logger.Info("stop phrase matched",
				zap.String("phrase", seq), zap.String("session_id", s.ID))
			return true
		}
	}
	return false
}

func (p *PhasedPolicy) stepFarewell(ctx context.Context, s *session.Session) (*session.OutputInteraction, error) {
	out, err := p.farewell.step(ctx, s)
	if err != nil {
		return nil, err
	}
	if out.Reroute {
		return p.route(ctx, s)
	}
	return out.Response, nil
}

// route dispatches to the owning policy, re-dispatching while policies
// signal phase changes. Exceeding the bound is a loud failure.
func (p *PhasedPolicy) route(ctx context.Context, s *session.Session) (*session.OutputInteraction, error) {
	for hops := 0; ; hops++ {
		if hops > maxReroutes {
			return nil, fmt.Errorf("session %s at phase %s: %w", s.ID, s.Task.Phase, ErrRoutingLoop)
		}

		out, err := p.dispatch(ctx, s)
		if err != nil {
			return nil, err
		}
		if out.Reroute {
			p.logger.Debug("rerouting",
				zap.Int("hop", hops+1),
				zap.String("phase", string(s.Task.Phase)),
				zap.String("state", string(s.State)))
			continue
		}
		return out.Response, nil
	}
}

func (p *PhasedPolicy) dispatch(ctx context.Context, s *session.Session) (Outcome, error) {
	if p.intents.triggers(s) {
		return p.intents.step(ctx, s)
	}
	if s.State != session.StateRunning {
		return p.resuming.step(ctx, s)
	}
	pol, ok := p.phases[s.Task.Phase]
	if !ok {
		return Outcome{}, fmt.Errorf("policy: invalid task phase %q", s.Task.Phase)
	}
	return pol.step(ctx, s)
}

// postProcess applies the turn-final touches: the one-time greeting, speech
// sanitization, the understood-utterance subheader, and the outgoing safety
// re-check.
func (p *PhasedPolicy) postProcess(s *session.Session, out *session.OutputInteraction) {
	if !s.Greetings && s.State != session.StateClosed {
		out.SpeechText = greetingLine + out.SpeechText
		s.Greetings = true
	}

	out.SpeechText = filterSpeech(out.SpeechText)

	if !s.Headless {
		if out.Screen == nil {
			out.Screen = &session.Screen{}
		}
		if turn := s.CurrentTurn(); turn != nil && turn.UserRequest.Text != "" {
			out.Screen.Subheader = fmt.Sprintf("I understood: %q", turn.UserRequest.Text)
		}
	}

	if !p.deps.Safety.Check(out.SpeechText).Safe() {
		p.logger.Warn("outgoing speech failed safety re-check",
			zap.String("session_id", s.ID))
		out.SpeechText = pick(unsafeBotResponses)
		repeatScreen(s, out)
	}
}
