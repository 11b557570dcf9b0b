package policy

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// StepHinter proposes a short follow-up remark for a step, used to pad very
// terse instructions with something engaging.
type StepHinter interface {
	ProactiveQuestion(ctx context.Context, tm *session.Taskmap, step session.Step) (string, error)
}

// executionPolicy navigates the selected task's steps one at a time.
type executionPolicy struct {
	deps   Deps
	qa     *qaPolicy
	logger *zap.Logger
}

func newExecutionPolicy(deps Deps, qa *qaPolicy, logger *zap.Logger) *executionPolicy {
	return &executionPolicy{deps: deps, qa: qa, logger: logger.Named("policy.execution")}
}

func (p *executionPolicy) step(ctx context.Context, s *session.Session) (Outcome, error) {
	turn := s.CurrentTurn()

	if s.Task.Taskmap == nil || len(s.Task.Taskmap.Steps) == 0 {
		return routeToPlanning(s), nil
	}

	pollEnhancement(ctx, p.deps.Enhance, s, p.logger)

	classification, ok := translateIntents(ctx, p.deps.Intents, s, executionTranslation, p.logger)
	if !ok {
		return respond(notUnderstood(s)), nil
	}

	switch {
	case turn.UserRequest.HasIntent("ConfusedIntent"):
		return reroute(), nil

	case turn.UserRequest.HasIntent("StopIntent"):
		s.Task.State.RequirementsDisplayed = false
		s.Task.Phase = session.PhaseClosing
		return reroute(), nil

	case turn.UserRequest.HasIntent("ChitChatIntent", "QuestionIntent"):
		outcome, err := p.qa.step(ctx, s)
		if err != nil || outcome.Reroute {
			return outcome, err
		}
		repeatScreen(s, outcome.Response)
		return outcome, nil

	case turn.UserRequest.HasIntent("ASRErrorIntent"):
		out := &session.OutputInteraction{
			SpeechText: fmt.Sprintf(pick(asrErrorResponses), turn.UserRequest.Text),
		}
		repeatScreen(s, out)
		return respond(out), nil

	case turn.UserRequest.HasIntent("CancelIntent"):
		turn.UserRequest.ConsumeIntents("CancelIntent")
		out := &session.OutputInteraction{SpeechText: pick(executionNoCancelResponses)}
		repeatScreen(s, out)
		return respond(out), nil

	case turn.UserRequest.HasIntent("PauseIntent"):
		out := &session.OutputInteraction{
			IdleTimeout:      1800,
			PauseInteraction: true,
		}
		if s.Headless {
			out.SpeechText = pick(pausedResponses)
		} else {
			out.SpeechText = "I have paused the conversation. If you want to speak to me again just wake me."
		}
		repeatScreen(s, out)
		return respond(out), nil

	case turn.UserRequest.HasIntent("ShowRequirementsIntent") ||
		turn.UserRequest.HasUtterance("show me the ingredients"):
		return respond(p.showRequirements(s)), nil

	case turn.UserRequest.HasIntent("DetailsIntent") ||
		turn.UserRequest.HasUtterance("more details", "details", "show me more"):
		return respond(p.showDetails(s)), nil
	}

	return p.navigate(ctx, s, classification.Step)
}

func (p *executionPolicy) showRequirements(s *session.Session) *session.OutputInteraction {
	tm := s.Task.Taskmap
	out := &session.OutputInteraction{}

	if len(tm.Requirements) == 0 {
		out.SpeechText = "This task has no requirements. You can say 'next' to keep going, " +
			"or say 'repeat' to hear the step again."
		repeatScreen(s, out)
		return out
	}

	if s.Headless {
		out.SpeechText = fmt.Sprintf("For %s, you need: %s. ", tm.Title, strings.Join(tm.Requirements, ". "))
	} else {
		out.Screen = requirementsScreen(tm, tm.Requirements)
		out.Screen.Buttons = append(out.Screen.Buttons, "Continue")
		out.Screen.OnClick = append(out.Screen.OnClick, "repeat")
		out.SpeechText = fmt.Sprintf("Here are the task requirements for %s. ", tm.Title)
	}
	out.SpeechText += "You can navigate back to the task by saying 'repeat'."
	return out
}

func (p *executionPolicy) showDetails(s *session.Session) *session.OutputInteraction {
	tm := s.Task.Taskmap
	idx := currentStepIndex(s)
	step := tm.Steps[idx]

	out := &session.OutputInteraction{
		IdleTimeout:      1800,
		PauseInteraction: true,
	}
	if step.Details == "" {
		out.SpeechText = "I don't have any more details for this step. You can say 'next' to keep going."
		repeatScreen(s, out)
		return out
	}
	out.SpeechText = step.Details
	if !s.Headless {
		out.Screen = stepScreen(tm, idx)
		out.Screen.Paragraphs = append(out.Screen.Paragraphs, step.Details)
	}
	return out
}

// currentStepIndex is the index of the most recently delivered step.
func currentStepIndex(s *session.Session) int {
	idx := s.Task.State.IndexToNext - 1
	if idx < 0 {
		idx = 0
	}
	if max := len(s.Task.Taskmap.Steps) - 1; idx > max {
		idx = max
	}
	return idx
}

// navigate moves the step cursor and delivers a step. IndexToNext counts
// the steps already delivered, so it is also the index of the next one.
func (p *executionPolicy) navigate(ctx context.Context, s *session.Session, gotoStep int) (Outcome, error) {
	turn := s.CurrentTurn()
	tm := s.Task.Taskmap
	state := &s.Task.State

	switch {
	case turn.UserRequest.HasIntent("PreviousIntent"):
		state.IndexToNext -= 2
		if state.IndexToNext < 0 {
			state.IndexToNext = 0
		}
	case turn.UserRequest.HasIntent("RepeatIntent"):
		if state.IndexToNext > 0 {
			state.IndexToNext--
		}
	case turn.UserRequest.HasIntent("GoToIntent"):
		if gotoStep < 1 || gotoStep > len(tm.Steps) {
			out := &session.OutputInteraction{
				SpeechText: fmt.Sprintf("This task only has %d steps. Which one would you like?", len(tm.Steps)),
			}
			repeatScreen(s, out)
			return respond(out), nil
		}
		state.IndexToNext = gotoStep - 1
	default:
		// NextIntent, YesIntent and anything else advance.
		if state.IndexToNext >= len(tm.Steps) {
			p.logger.Info("end of execution reached",
				zap.String("session_id", s.ID))
			s.Task.State.RequirementsDisplayed = false
			s.Task.Phase = session.PhaseClosing
			return reroute(), nil
		}
	}

	idx := state.IndexToNext
	step := tm.Steps[idx]
	state.IndexToNext = idx + 1

	out := &session.OutputInteraction{
		SpeechText: fmt.Sprintf("Step %d of %d. %s", idx+1, len(tm.Steps), step.Text),
	}
	if !s.Headless {
		out.Screen = stepScreen(tm, idx)
	}

	p.appendHint(ctx, s, step, out)
	p.tutorialPrefix(s, out)

	out.IdleTimeout = 10
	if !s.Headless {
		out.IdleTimeout = 1800
		out.PauseInteraction = true
	}
	out.Reprompt = pick([]string{
		"You can navigate through the steps by saying 'Next', 'Previous' or 'Repeat'.",
		"You can ask any question about the requirements and steps if you have any doubts. " +
			"I can also repeat the last instruction if you say 'Repeat'.",
	})
	return respond(out), nil
}

// appendHint pads terse steps with a generated follow-up remark.
func (p *executionPolicy) appendHint(ctx context.Context, s *session.Session, step session.Step, out *session.OutputInteraction) {
	if p.deps.Hints == nil || s.Task.State.IndexToNext <= 1 {
		return
	}
	if len(strings.Fields(step.Text)) >= 8 {
		return
	}
	hint, err := p.deps.Hints.ProactiveQuestion(ctx, s.Task.Taskmap, step)
	if err != nil {
		p.logger.Debug("proactive hint generation failed", zap.Error(err))
		return
	}
	if hint != "" {
		out.SpeechText += " " + hint
	}
}

// tutorialPrefix explains the navigation commands before the first step.
func (p *executionPolicy) tutorialPrefix(s *session.Session, out *session.OutputInteraction) {
	if s.Task.State.ExecutionTutorialDisplayed {
		return
	}
	s.Task.State.ExecutionTutorialDisplayed = true
	noun := taskNoun(s.Domain)
	if s.Headless {
		out.SpeechText = fmt.Sprintf("Let's get started with %s. So you're aware, I'll say the steps "+
			"one at a time, and, you can ask me to repeat, go back, or say the next step. "+
			"If you'd like, I can also give you more details about a step, or remind you of what "+
			"you'll need to complete the %s. So, for ", s.Task.Taskmap.Title, noun) + out.SpeechText
	} else {
		out.SpeechText = fmt.Sprintf("Got it. So you're aware, you can ask me to repeat, go back, or "+
			"say the next step. If you'd like, I can also give you more details about a step, or "+
			"remind you of the things you'll need for this %s. So, for ", noun) + out.SpeechText
	}
}

// stepScreen renders one step.
func stepScreen(tm *session.Taskmap, idx int) *session.Screen {
	step := tm.Steps[idx]
	screen := &session.Screen{
		Format:     session.FormatTextImage,
		Headline:   tm.Title,
		Subheader:  fmt.Sprintf("Step %d of %d", idx+1, len(tm.Steps)),
		Paragraphs: []string{step.Text},
	}
	switch {
	case step.ImageURL != "":
		screen.Images = []session.Image{{Path: step.ImageURL}}
	case tm.ThumbnailURL != "":
		screen.Images = []session.Image{{Path: tm.ThumbnailURL}}
	}
	hints := []string{
		"Hint: I can answer questions",
		"Hint: Try asking a question",
		"Hint: Ask for substitutions",
	}
	screen.HintText = hints[rand.Intn(len(hints))]
	return screen
}
