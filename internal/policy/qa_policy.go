package policy

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskbotd/internal/qa"
	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// qaPolicy answers questions and small talk mid-task. It never transitions
// phases itself except to hand capability questions to the help handler.
type qaPolicy struct {
	deps   Deps
	logger *zap.Logger
}

func newQAPolicy(deps Deps, logger *zap.Logger) *qaPolicy {
	return &qaPolicy{deps: deps, logger: logger.Named("policy.qa")}
}

func (p *qaPolicy) step(ctx context.Context, s *session.Session) (Outcome, error) {
	turn := s.CurrentTurn()
	utterance := turn.UserRequest.Text

	if turn.UserRequest.HasUtterance("what can you do") {
		turn.UserRequest.ConsumeIntents("ChitChatIntent", "QuestionIntent")
		turn.UserRequest.AppendIntents("InformIntent")
		return reroute(), nil
	}

	if out := p.tryJoke(ctx, s, utterance); out != nil {
		return respond(out), nil
	}

	questionType := qa.QuestionChitChat
	if turn.UserRequest.HasIntent("QuestionIntent") {
		classified, err := p.deps.Questions.ClassifyQuestion(ctx, utterance)
		if err != nil {
			p.logger.Warn("question classification failed", zap.Error(err))
			classified = qa.QuestionGeneral
		}
		questionType = classified
	}

	resp, err := p.deps.QA.Synthesize(ctx, qa.Request{
		Question:   utterance,
		Type:       questionType,
		Phase:      s.Task.Phase,
		Domain:     s.Domain,
		Taskmap:    s.Task.Taskmap,
		Candidates: s.TaskSelection.Candidates,
	})
	if err != nil {
		p.logger.Warn("qa aggregation failed", zap.Error(err))
		resp = qa.Response{}
	}

	out := &session.OutputInteraction{SpeechText: resp.Text}
	if out.SpeechText == "" && questionType == qa.QuestionChitChat && p.deps.Chat != nil {
		// Last-ditch small talk straight from the generator.
		if reply, err := p.deps.Chat.ChitChat(ctx, utterance, s.Domain); err == nil {
			out.SpeechText = reply
		} else {
			p.logger.Debug("chitchat generation failed", zap.Error(err))
		}
	}
	if out.SpeechText == "" {
		if questionType == qa.QuestionChitChat {
			out.SpeechText = pick(chitChatFallbacks)
		} else {
			out.SpeechText = qaFallbackResponse
		}
	}
	return respond(out), nil
}

func (p *qaPolicy) tryJoke(ctx context.Context, s *session.Session, utterance string) *session.OutputInteraction {
	if p.deps.Jokes == nil {
		return nil
	}
	triggered := false
	for _, w := range jokeTriggerWords {
		if containsWord(utterance, w) {
			triggered = true
			break
		}
	}
	if !triggered {
		return nil
	}
	joke, err := p.deps.Jokes.RandomJoke(ctx)
	if err != nil || joke == "" {
		p.logger.Debug("joke retrieval failed", zap.Error(err))
		return nil
	}
	s.Task.State.JokeUttered = true
	out := &session.OutputInteraction{SpeechText: joke}
	repeatScreen(s, out)
	return out
}
