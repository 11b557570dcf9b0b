package policy

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// resultsPerPage is how many search candidates are offered per turn.
const resultsPerPage = 3

// searchTop is how many candidates one search retrieves in total.
const searchTop = 9

// planningPolicy runs the search-and-select dialogue that ends with a
// taskmap attached to the session.
type planningPolicy struct {
	deps   Deps
	qa     *qaPolicy
	logger *zap.Logger
}

func newPlanningPolicy(deps Deps, qa *qaPolicy, logger *zap.Logger) *planningPolicy {
	return &planningPolicy{deps: deps, qa: qa, logger: logger.Named("policy.planning")}
}

// routeToDomain abandons the current search and hands the turn back to the
// domain policy for a fresh start.
func routeToDomain(s *session.Session) Outcome {
	s.CurrentTurn().UserRequest.ConsumeIntents("CancelIntent", "NoIntent")
	s.TaskSelection = session.TaskSelection{}
	s.Task.Taskmap = nil
	s.Domain = session.DomainUnknown
	s.Task.Phase = session.PhaseDomain
	s.ErrorCounter.NoMatchCounter = 0
	return reroute()
}

func (p *planningPolicy) step(ctx context.Context, s *session.Session) (Outcome, error) {
	turn := s.CurrentTurn()

	classification, ok := translateIntents(ctx, p.deps.Intents, s, planningTranslation, p.logger)
	if !ok {
		return respond(notUnderstood(s)), nil
	}

	switch {
	case turn.UserRequest.HasIntent("ConfusedIntent"):
		return reroute(), nil

	case turn.UserRequest.HasIntent("ASRErrorIntent"):
		out := &session.OutputInteraction{
			SpeechText: fmt.Sprintf(pick(asrErrorResponses), turn.UserRequest.Text),
		}
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
		s.Task.Taskmap = nil
		return reroute(), nil
	}

	if s.Task.Taskmap != nil {
		return p.confirmSelected(s)
	}

	switch {
	case turn.UserRequest.HasIntent("CancelIntent", "NoIntent"):
		return routeToDomain(s), nil

	case turn.UserRequest.HasIntent("SelectIntent") && len(s.TaskSelection.Candidates) > 0:
		return respond(p.selectCandidate(s, classification.Step)), nil

	case turn.UserRequest.HasIntent("MoreResultsIntent", "NextIntent") && len(s.TaskSelection.Candidates) > 0:
		return respond(p.pageForward(s)), nil

	case turn.UserRequest.HasIntent("PreviousIntent", "RepeatIntent") && len(s.TaskSelection.Candidates) > 0:
		return respond(p.pageBack(s)), nil

	case strings.TrimSpace(turn.UserRequest.Text) != "":
		return p.search(ctx, s)
	}

	out := &session.OutputInteraction{
		SpeechText: fmt.Sprintf("Tell me what you'd like to %s and I'll search for it.",
			searchVerb(s.Domain)),
	}
	repeatScreen(s, out)
	return respond(out), nil
}

// confirmSelected handles the turn after a candidate was picked: the user
// either wants the requirements read, wants to start, or backs out.
func (p *planningPolicy) confirmSelected(s *session.Session) (Outcome, error) {
	turn := s.CurrentTurn()

	switch {
	case turn.UserRequest.HasIntent("StartTaskIntent") ||
		(turn.UserRequest.HasIntent("YesIntent") && containsWord(turn.UserRequest.Text, "start")):
		s.ErrorCounter.NoMatchCounter = 0
		s.Task.Phase = session.PhaseExecuting
		return reroute(), nil

	case turn.UserRequest.HasIntent("YesIntent", "NextIntent", "ShowRequirementsIntent"):
		s.ErrorCounter.NoMatchCounter = 0
		s.Task.Phase = session.PhaseValidating
		return reroute(), nil

	case turn.UserRequest.HasIntent("NoIntent"):
		// Declined hearing the requirements; validation skips straight to
		// the start confirmation.
		s.ErrorCounter.NoMatchCounter = 0
		s.Task.State.RequirementsDisplayed = true
		s.Task.Phase = session.PhaseValidating
		return reroute(), nil

	case turn.UserRequest.HasIntent("PreviousIntent", "CancelIntent"):
		turn.UserRequest.ConsumeIntents("PreviousIntent", "CancelIntent")
		s.Task.Taskmap = nil
		s.ErrorCounter.NoMatchCounter = 0
		if len(s.TaskSelection.Candidates) > 0 {
			return respond(p.presentResults(s, "No problem, here are the results again. ")), nil
		}
		return routeToDomain(s), nil
	}

	if s.ErrorCounter.NoMatchCounter < 3 {
		s.ErrorCounter.NoMatchCounter++
	}
	out := &session.OutputInteraction{}
	repeatScreen(s, out)
	if s.ErrorCounter.NoMatchCounter < 3 {
		out.SpeechText = fmt.Sprintf("Do you want to hear the %s for %s?",
			requirementsNoun(s.Domain), s.Task.Taskmap.Title)
	} else {
		out.SpeechText = fmt.Sprintf("I'm having trouble understanding you. You can say yes to hear "+
			"the %s for %s, say start to jump right in, or say cancel to search for something else.",
			requirementsNoun(s.Domain), s.Task.Taskmap.Title)
	}
	return respond(out), nil
}

// selectCandidate resolves a spoken option number against the current
// results page and attaches the chosen taskmap to the session.
func (p *planningPolicy) selectCandidate(s *session.Session, option int) *session.OutputInteraction {
	sel := &s.TaskSelection
	if option < 1 || option > resultsPerPage || sel.ResultsPage+option > len(sel.Candidates) {
		out := &session.OutputInteraction{SpeechText: pick(outOfRangeSelectResponses)}
		repeatScreen(s, out)
		return out
	}

	chosen := sel.Candidates[sel.ResultsPage+option-1]
	s.Task.Taskmap = chosen.Clone()
	s.ErrorCounter.NoMatchCounter = 0
	p.logger.Info("taskmap selected",
		zap.String("taskmap_id", chosen.ID),
		zap.String("title", chosen.Title),
		zap.String("session_id", s.ID))

	out := &session.OutputInteraction{}
	summary := chosen.VoiceSummary
	if summary == "" {
		summary = chosen.Description
	}
	out.SpeechText = fmt.Sprintf("Great choice! %s. ", chosen.Title)
	if s.Headless && summary != "" {
		out.SpeechText += summary + " "
	}
	out.SpeechText += fmt.Sprintf("Do you want to hear the %s?", requirementsNoun(s.Domain))
	if !s.Headless {
		out.Screen = taskSummaryScreen(&chosen, s.Domain)
		out.Screen.Buttons = append(out.Screen.Buttons, "Yes", "No")
		out.Screen.OnClick = append(out.Screen.OnClick, "yes", "no")
		out.Screen.HintText = "Yes"
	}
	return out
}

func (p *planningPolicy) pageForward(s *session.Session) *session.OutputInteraction {
	sel := &s.TaskSelection
	if sel.ResultsPage+resultsPerPage >= len(sel.Candidates) {
		return p.presentResults(s, pick(allResultsPrompts)+" ")
	}
	sel.ResultsPage += resultsPerPage
	return p.presentResults(s, pick(moreResultsIntros)+" ")
}

func (p *planningPolicy) pageBack(s *session.Session) *session.OutputInteraction {
	sel := &s.TaskSelection
	if sel.ResultsPage == 0 {
		return p.presentResults(s, pick(firstResultSetPrompts)+" ")
	}
	sel.ResultsPage -= resultsPerPage
	if sel.ResultsPage < 0 {
		sel.ResultsPage = 0
	}
	return p.presentResults(s, pick(previousResultsIntros)+" ")
}

func (p *planningPolicy) search(ctx context.Context, s *session.Session) (Outcome, error) {
	turn := s.CurrentTurn()
	query := strings.TrimSpace(turn.UserRequest.Text)

	candidates, err := p.deps.Search.Search(ctx, query, s.Domain, searchTop)
	if err != nil {
		p.logger.Error("taskmap search failed",
			zap.String("query", query), zap.Error(err))
		out := &session.OutputInteraction{
			SpeechText: "Sorry, something went wrong while I was searching. Could you try that again?",
		}
		repeatScreen(s, out)
		return respond(out), nil
	}
	if len(candidates) == 0 {
		out := &session.OutputInteraction{
			SpeechText: fmt.Sprintf("I couldn't find anything for %q. Could you try different words?", query),
		}
		repeatScreen(s, out)
		return respond(out), nil
	}

	s.TaskSelection.Candidates = candidates
	s.TaskSelection.ResultsPage = 0
	s.TaskSelection.ElicitationUtterances = append(s.TaskSelection.ElicitationUtterances, query)
	s.ErrorCounter.NoMatchCounter = 0
	p.logger.Info("search returned candidates",
		zap.String("query", query),
		zap.Int("count", len(candidates)),
		zap.String("session_id", s.ID))

	// Candidates from community sources often arrive without a description.
	// Generate them in the background so the selection screen catches up.
	if p.deps.Enhance != nil {
		p.deps.Enhance.DescribeCandidates(candidates)
	}

	return respond(p.presentResults(s, pick(selectPossibilityPrompts)+" ")), nil
}

// presentResults speaks the current page of candidates and, on screen
// clients, renders them as a carousel.
func (p *planningPolicy) presentResults(s *session.Session, intro string) *session.OutputInteraction {
	sel := &s.TaskSelection
	page := sel.Candidates[sel.ResultsPage:]
	if len(page) > resultsPerPage {
		page = page[:resultsPerPage]
	}

	titles := make([]string, len(page))
	for i, tm := range page {
		titles[i] = fmt.Sprintf("%s: %s", ordinal(i+1), tm.Title)
	}
	out := &session.OutputInteraction{
		SpeechText: intro + speakList(titles) + ". Which one would you like?",
		Reprompt: "You can pick a result by saying its number, ask for more results, " +
			"or search for something else.",
	}

	if !s.Headless {
		screen := &session.Screen{
			Format:   session.FormatImageCarousel,
			Headline: fmt.Sprintf("Results %d to %d", sel.ResultsPage+1, sel.ResultsPage+len(page)),
			HintText: "Select the first one",
		}
		for _, tm := range page {
			screen.Images = append(screen.Images, session.Image{
				Path:        tm.ThumbnailURL,
				Title:       tm.Title,
				Description: tm.Description,
			})
			screen.Buttons = append(screen.Buttons, tm.Title)
			screen.OnClick = append(screen.OnClick, "select "+tm.Title)
		}
		out.Screen = screen
	}
	return out
}

func searchVerb(d session.Domain) string {
	if d == session.DomainCooking {
		return "cook"
	}
	return "do"
}
