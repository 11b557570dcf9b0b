package policy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskbotd/internal/enhance"
	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// validationPolicy walks the user through a selected task's requirements
// and gets an explicit go-ahead before execution starts.
type validationPolicy struct {
	deps   Deps
	qa     *qaPolicy
	logger *zap.Logger
}

func newValidationPolicy(deps Deps, qa *qaPolicy, logger *zap.Logger) *validationPolicy {
	return &validationPolicy{deps: deps, qa: qa, logger: logger.Named("policy.validation")}
}

func routeToPlanning(s *session.Session) Outcome {
	s.CurrentTurn().UserRequest.ConsumeIntents("CancelIntent", "NoIntent", "PreviousIntent")
	s.Task.Phase = session.PhasePlanning
	s.Task.State.RequirementsDisplayed = false
	s.Task.State.ValidationCourtesy = false
	s.Task.State.ValidationPage = 0
	s.TaskSelection.ResultsPage = 0
	s.Task.Taskmap = nil
	return reroute()
}

func routeToExecution(s *session.Session) Outcome {
	s.Task.Phase = session.PhaseExecuting
	s.Task.State.RequirementsDisplayed = false
	s.Task.State.ValidationPage = 0
	s.ErrorCounter.NoMatchCounter = 0
	return reroute()
}

// pollEnhancement advances the background enrichment lease for the selected
// taskmap and adopts the enriched copy when one is ready.
func pollEnhancement(ctx context.Context, enhancer Enhancer, s *session.Session, logger *zap.Logger) {
	if enhancer == nil || !enhance.ShouldEnhance(s.Task.Taskmap, s.Task.State) {
		return
	}
	if enriched, ok := enhancer.Poll(ctx, s.Task.Taskmap); ok {
		s.Task.Taskmap = enriched
		s.Task.State.Enhanced = true
		logger.Info("adopted enriched taskmap",
			zap.String("taskmap_id", enriched.ID))
	}
}

func (p *validationPolicy) step(ctx context.Context, s *session.Session) (Outcome, error) {
	turn := s.CurrentTurn()
	out := &session.OutputInteraction{}

	if s.Task.Taskmap == nil {
		// Nothing selected: validating makes no sense, fall back to search.
		return routeToPlanning(s), nil
	}

	pollEnhancement(ctx, p.deps.Enhance, s, p.logger)

	if _, ok := translateIntents(ctx, p.deps.Intents, s, planningTranslation, p.logger); !ok {
		return respond(notUnderstood(s)), nil
	}

	switch {
	case turn.UserRequest.HasIntent("CancelIntent", "NoIntent", "RestartIntent"):
		return routeToPlanning(s), nil

	case turn.UserRequest.HasIntent("ConfusedIntent"):
		return reroute(), nil

	case turn.UserRequest.HasIntent("ASRErrorIntent"):
		out.SpeechText = fmt.Sprintf(pick(asrErrorResponses), turn.UserRequest.Text)
		repeatScreen(s, out)
		return respond(out), nil

	case turn.UserRequest.HasIntent("ChitChatIntent", "QuestionIntent"):
		outcome, err := p.qa.step(ctx, s)
		if err != nil || outcome.Reroute {
			return outcome, err
		}
		repeatScreen(s, outcome.Response)
		return outcome, nil

	case turn.UserRequest.HasIntent("StopIntent"):
		s.Task.Phase = session.PhaseClosing
		s.Task.State.RequirementsDisplayed = false
		s.Task.State.ValidationPage = 0
		s.Task.Taskmap = nil
		return reroute(), nil

	case turn.UserRequest.HasIntent("StartTaskIntent"):
		return routeToExecution(s), nil

	case turn.UserRequest.HasIntent("ShowRequirementsIntent") ||
		turn.UserRequest.HasUtterance("read ingredients", "read tools and materials", "read"):
		return respond(p.readRequirements(s)), nil
	}

	if s.Task.State.RequirementsDisplayed {
		return p.confirmStart(s)
	}
	return respond(p.displayRequirements(s, out)), nil
}

func (p *validationPolicy) readRequirements(s *session.Session) *session.OutputInteraction {
	out := &session.OutputInteraction{}
	repeatScreen(s, out)
	reqs := s.Task.Taskmap.Requirements
	if len(reqs) == 0 {
		out.SpeechText = "This task has no requirements. " + wantToStart
		return out
	}
	out.SpeechText = fmt.Sprintf("You need: %s", speakList(reqs))
	if !s.Headless {
		if len(reqs) > 5 {
			out.SpeechText += ". Wow, that was a lot of things!"
		}
		out.SpeechText += ". You can also see what you need on the screen, if that helps you."
	}
	return out
}

// confirmStart handles the turn after the requirements were shown. Only an
// explicit yes starts execution.
func (p *validationPolicy) confirmStart(s *session.Session) (Outcome, error) {
	turn := s.CurrentTurn()

	if turn.UserRequest.HasIntent("YesIntent") || turn.UserRequest.HasUtterance("continue", "start") {
		return routeToExecution(s), nil
	}
	if turn.UserRequest.HasIntent("PreviousIntent") {
		return routeToPlanning(s), nil
	}

	if s.ErrorCounter.NoMatchCounter < 2 {
		s.ErrorCounter.NoMatchCounter++
	}
	out := &session.OutputInteraction{}
	repeatScreen(s, out)
	if s.ErrorCounter.NoMatchCounter < 2 {
		out.SpeechText = fmt.Sprintf("Shall we get started with '%s'?", s.Task.Taskmap.Title)
	} else {
		out.SpeechText = fmt.Sprintf("I'm having trouble understanding you. You can say yes if you "+
			"would like to start %s, or say no if you don't.", s.Task.Taskmap.Title)
	}
	return respond(out), nil
}

func (p *validationPolicy) displayRequirements(s *session.Session, out *session.OutputInteraction) *session.OutputInteraction {
	tm := s.Task.Taskmap
	reqs := tm.Requirements

	if len(reqs) == 0 {
		s.Task.State.RequirementsDisplayed = true
		if !s.Headless {
			out.Screen = taskSummaryScreen(tm, s.Domain)
			out.Screen.Buttons = append(out.Screen.Buttons, "Start")
			out.Screen.OnClick = append(out.Screen.OnClick, "start "+taskNoun(s.Domain))
			out.Screen.HintText = "Start"
		}
		out.SpeechText = "Speaking of, this task has no requirements! But, " + safetyWarning + wantToStart
		return out
	}

	if !s.Headless {
		out.SpeechText = "Before we get started, please be careful when using any tools or equipment. "
		out.Screen = requirementsScreen(tm, reqs)
		noun := requirementsNoun(s.Domain)
		out.Screen.Buttons = append(out.Screen.Buttons, "Read", "Start")
		out.Screen.OnClick = append(out.Screen.OnClick, "show the "+noun, "Start")
		out.Screen.HintText = "Start"
		out.SpeechText += wantToStart
		s.Task.State.RequirementsDisplayed = true
		return out
	}

	return p.speakRequirementsPage(s, out, reqs)
}

// speakRequirementsPage reads requirements aloud three at a time on voice
// only clients, advancing a page cursor across turns.
func (p *validationPolicy) speakRequirementsPage(s *session.Session, out *session.OutputInteraction, reqs []string) *session.OutputInteraction {
	turn := s.CurrentTurn()
	state := &s.Task.State

	if state.ValidationPage != 0 {
		if turn.UserRequest.HasIntent("PreviousIntent") {
			state.ValidationPage -= 6
		} else if turn.UserRequest.HasIntent("RepeatIntent") {
			state.ValidationPage -= 3
		}
		if state.ValidationPage < 0 {
			state.ValidationPage = 0
		}
	}

	out.SpeechText = verbalProgress(s.Domain, state.ValidationPage, len(reqs))
	page := reqs[state.ValidationPage:]
	if len(page) > 3 {
		page = page[:3]
	}
	numbered := make([]string, len(page))
	for i, item := range page {
		numbered[i] = fmt.Sprintf("%d. %s", state.ValidationPage+i+1, item)
	}
	out.SpeechText += speakList(numbered) + ". "

	if state.ValidationPage == 0 && len(reqs) > 3 && !state.ValidationCourtesy {
		out.SpeechText += fmt.Sprintf("Just so you know, I'll tell you the %s three at a time. "+
			"You can ask me to say the next three, or repeat the ones I just told you. ",
			requirementsNoun(s.Domain))
		state.ValidationCourtesy = true
	}

	state.ValidationPage += 3
	if len(reqs) <= state.ValidationPage {
		out.SpeechText += safetyWarning + wantToStart
		state.RequirementsDisplayed = true
	} else {
		out.IdleTimeout = 1800
		out.PauseInteraction = true
	}
	return out
}

// verbalProgress announces which slice of the requirements comes next.
func verbalProgress(d session.Domain, page, total int) string {
	if total <= 3 {
		return ""
	}
	noun := requirementsNoun(d)
	totalPages := (total + 2) / 3
	current := page/3 + 1
	switch {
	case current == 1:
		return fmt.Sprintf("Alright, the 1st set of %s are: ", noun)
	case current == totalPages:
		return "Finally, you'll need: "
	default:
		return fmt.Sprintf("The %s set of %s are: ", ordinal(current), noun)
	}
}

// taskSummaryScreen shows a selected task's headline card.
func taskSummaryScreen(tm *session.Taskmap, d session.Domain) *session.Screen {
	screen := &session.Screen{
		Format:   session.FormatTextImage,
		Headline: tm.Title,
	}
	if tm.ThumbnailURL != "" {
		screen.Images = []session.Image{{Path: tm.ThumbnailURL, Title: tm.Title}}
	}
	if tm.Description != "" {
		screen.Paragraphs = append(screen.Paragraphs, tm.Description)
	}
	if tm.Author != "" {
		screen.Paragraphs = append(screen.Paragraphs, "By "+tm.Author)
	}
	return screen
}

// requirementsScreen lists everything the user needs before starting.
func requirementsScreen(tm *session.Taskmap, reqs []string) *session.Screen {
	screen := &session.Screen{
		Format:       session.FormatTextImage,
		Headline:     tm.Title,
		Requirements: append([]string(nil), reqs...),
	}
	if tm.ThumbnailURL != "" {
		screen.Images = []session.Image{{Path: tm.ThumbnailURL, Title: tm.Title}}
	}
	return screen
}
