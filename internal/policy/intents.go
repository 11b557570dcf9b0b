package policy

import (
	"context"
	"math/rand"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// intentsPolicy handles a fixed set of high-priority intents regardless of
// phase. It owns the turn only when the turn's first intent is one it
// handles; everything else belongs to the phase policy.
type intentsPolicy struct {
	logger   *zap.Logger
	handlers map[string]func(*session.Session) (Outcome, error)
}

func newIntentsPolicy(logger *zap.Logger) *intentsPolicy {
	p := &intentsPolicy{logger: logger.Named("policy.intents")}
	p.handlers = map[string]func(*session.Session) (Outcome, error){
		"HelpIntent":         p.help,
		"ConfusedIntent":     p.help,
		"InformIntent":       p.help,
		"NavigateHomeIntent": p.cancel,
		"CreateTimerIntent":  p.createTimer,
		"PauseTimerIntent":   p.pauseTimer,
		"ResumeTimerIntent":  p.resumeTimer,
		"DeleteTimerIntent":  p.cancelTimer,
		"ShowTimerIntent":    p.showTimers,
	}
	return p
}

func (p *intentsPolicy) triggers(s *session.Session) bool {
	turn := s.CurrentTurn()
	if turn == nil || len(turn.UserRequest.Intents) == 0 {
		return false
	}
	_, ok := p.handlers[turn.UserRequest.Intents[0]]
	return ok
}

func (p *intentsPolicy) step(_ context.Context, s *session.Session) (Outcome, error) {
	intent := s.CurrentTurn().UserRequest.Intents[0]
	p.logger.Info("intent handler owns turn", zap.String("intent", intent))
	return p.handlers[intent](s)
}

func (p *intentsPolicy) cancel(s *session.Session) (Outcome, error) {
	out := &session.OutputInteraction{}
	closeSession(s, out)
	return respond(out), nil
}

// help explains what the user can do in the current phase.
func (p *intentsPolicy) help(s *session.Session) (Outcome, error) {
	out := &session.OutputInteraction{IdleTimeout: 10}
	var tutorials []string

	switch s.Task.Phase {
	case session.PhaseDomain:
		tutorials = append(tutorials,
			"I can help you cook or do some home improvement. You can tell me what you want to "+
				"do and ask me questions. When you have chosen a task, just use Next and "+
				"Previous to navigate the instructions, or ask me questions about it.")

	case session.PhasePlanning:
		if tm := s.Task.Taskmap; tm != nil && tm.ID != "" {
			tutorials = append(tutorials,
				"This is the summary of "+tm.Title+". If you want to continue, "+
					"just say 'start'. You can go back to the search results by saying 'cancel'.",
				"You are currently previewing "+tm.Title+". "+
					"If you want to continue this task, just say 'start', or go back to the search "+
					"results by saying 'cancel'.")
		} else {
			tutorials = append(tutorials,
				"You can start a new search by saying 'cancel' or 'restart'.")
			if s.Headless {
				tutorials = append(tutorials,
					"You can select one of the results by saying the name of the result.")
			} else {
				tutorials = append(tutorials,
					"You can select one of the results by saying its name, or clicking the image on the screen.")
			}
		}

	case session.PhaseValidating:
		if s.Headless {
			tutorials = append(tutorials,
				"You can navigate through the requirements by saying next or previous, or say "+
					"cancel to go back to the search results.")
		} else {
			title := ""
			if s.Task.Taskmap != nil {
				title = s.Task.Taskmap.Title
			}
			tutorials = append(tutorials,
				"You can see what you need for "+title+" on the screen. "+
					"Say 'start' if you want to see the steps, or 'cancel' to go back to the search results.")
		}

	case session.PhaseExecuting, session.PhaseClosing:
		tutorials = append(tutorials,
			"You can navigate through the steps by saying 'Next', 'Previous' or 'Repeat'.",
			"You can ask any question about the requirements and steps if you have any doubts. "+
				"I can also repeat the last instruction if you say Repeat.")
		if !s.Headless {
			tutorials = append(tutorials,
				"You can say 'more details' to see more information about the step, if available. "+
					"By saying 'show requirements' you can see the things you need again.")
			out.IdleTimeout = 1800
			out.PauseInteraction = true
		}
	}

	out.SpeechText = tutorials[rand.Intn(len(tutorials))]
	repeatScreen(s, out)
	return respond(out), nil
}
