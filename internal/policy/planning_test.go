package policy

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/taskbotd/internal/services"
	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

func searchCandidates(n int) []session.Taskmap {
	out := make([]session.Taskmap, n)
	for i := range out {
		out[i] = session.Taskmap{
			ID:           fmt.Sprintf("tm-%d", i+1),
			Title:        fmt.Sprintf("Pasta Dish %d", i+1),
			ThumbnailURL: fmt.Sprintf("https://example.com/%d.jpg", i+1),
		}
	}
	return out
}

func TestPlanning_SearchStoresCandidates(t *testing.T) {
	deps := testDeps()
	deps.Intents = stubIntents{res: services.IntentClassification{Label: "search"}}
	search := &stubSearch{results: searchCandidates(4)}
	deps.Search = search
	p := newTestPolicy(t, deps)

	s := testSession(session.PhasePlanning, "pasta recipes")
	s.Domain = session.DomainCooking

	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "pasta recipes", search.lastQuery)
	assert.Equal(t, session.DomainCooking, search.lastDomain)
	assert.Len(t, s.TaskSelection.Candidates, 4)
	assert.Equal(t, 0, s.TaskSelection.ResultsPage)
	assert.Contains(t, out.SpeechText, "1st: Pasta Dish 1")
	assert.Contains(t, out.SpeechText, "Which one would you like?")
}

func TestPlanning_SearchKicksOffCandidateDescriptions(t *testing.T) {
	deps := testDeps()
	deps.Intents = stubIntents{res: services.IntentClassification{Label: "search"}}
	deps.Search = &stubSearch{results: searchCandidates(4)}
	enhance := &stubEnhance{}
	deps.Enhance = enhance
	p := newTestPolicy(t, deps)

	s := testSession(session.PhasePlanning, "pasta recipes")
	_, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, enhance.described, 1)
	assert.Len(t, enhance.described[0], 4)
}

func TestPlanning_SearchFailureApologizes(t *testing.T) {
	deps := testDeps()
	deps.Intents = stubIntents{res: services.IntentClassification{Label: "search"}}
	deps.Search = &stubSearch{err: fmt.Errorf("backend down")}
	p := newTestPolicy(t, deps)

	s := testSession(session.PhasePlanning, "pasta recipes")
	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Contains(t, out.SpeechText, "something went wrong")
	assert.Empty(t, s.TaskSelection.Candidates)
}

func TestPlanning_NoResults(t *testing.T) {
	deps := testDeps()
	deps.Intents = stubIntents{res: services.IntentClassification{Label: "search"}}
	p := newTestPolicy(t, deps)

	s := testSession(session.PhasePlanning, "unobtainium sandwich")
	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Contains(t, out.SpeechText, "couldn't find anything")
}

func TestPlanning_SelectAttachesTaskmap(t *testing.T) {
	deps := testDeps()
	deps.Intents = stubIntents{res: services.IntentClassification{Label: "select", Step: 2}}
	p := newTestPolicy(t, deps)

	s := testSession(session.PhasePlanning, "the second one")
	s.Domain = session.DomainCooking
	s.TaskSelection.Candidates = searchCandidates(4)

	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	require.NotNil(t, s.Task.Taskmap)
	assert.Equal(t, "Pasta Dish 2", s.Task.Taskmap.Title)
	assert.Contains(t, out.SpeechText, "Do you want to hear the ingredients?")
}

func TestPlanning_SelectOutOfRange(t *testing.T) {
	deps := testDeps()
	deps.Intents = stubIntents{res: services.IntentClassification{Label: "select", Step: 7}}
	p := newTestPolicy(t, deps)

	s := testSession(session.PhasePlanning, "number seven")
	s.TaskSelection.Candidates = searchCandidates(4)

	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Contains(t, outOfRangeSelectResponses, out.SpeechText)
	assert.Nil(t, s.Task.Taskmap)
}

func TestPlanning_ResultPaging(t *testing.T) {
	p := newTestPolicy(t, testDeps())
	s := testSession(session.PhasePlanning, "more", "MoreResultsIntent")
	s.TaskSelection.Candidates = searchCandidates(7)

	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 3, s.TaskSelection.ResultsPage)
	assert.Contains(t, out.SpeechText, "Pasta Dish 4")

	s.AddTurn("turn-2", "more", []string{"MoreResultsIntent"})
	_, err = p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 6, s.TaskSelection.ResultsPage)

	// Past the last page the cursor stays put.
	s.AddTurn("turn-3", "more", []string{"MoreResultsIntent"})
	out, err = p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 6, s.TaskSelection.ResultsPage)
	assert.Contains(t, out.SpeechText, "Pasta Dish 7")

	s.AddTurn("turn-4", "previous", []string{"PreviousIntent"})
	_, err = p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 3, s.TaskSelection.ResultsPage)
}

func TestPlanning_PreviousOnFirstPageStays(t *testing.T) {
	p := newTestPolicy(t, testDeps())
	s := testSession(session.PhasePlanning, "previous", "PreviousIntent")
	s.TaskSelection.Candidates = searchCandidates(5)

	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 0, s.TaskSelection.ResultsPage)
	assert.Contains(t, out.SpeechText, "Pasta Dish 1")
}

func TestPlanning_CancelReturnsToDomain(t *testing.T) {
	p := newTestPolicy(t, testDeps())
	s := testSession(session.PhasePlanning, "cancel", "CancelIntent")
	s.Domain = session.DomainCooking
	s.TaskSelection.Candidates = searchCandidates(3)

	_, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, session.PhaseDomain, s.Task.Phase)
	assert.Equal(t, session.DomainUnknown, s.Domain)
	assert.Empty(t, s.TaskSelection.Candidates)
}

func TestPlanning_ConfirmSelected(t *testing.T) {
	t.Run("yes moves to validation", func(t *testing.T) {
		p := newTestPolicy(t, testDeps())
		s := testSession(session.PhasePlanning, "yes please", "YesIntent")
		s.Domain = session.DomainCooking
		s.Task.Taskmap = fixtureTaskmap()

		out, err := p.Step(context.Background(), s)
		require.NoError(t, err)
		assert.Equal(t, session.PhaseValidating, s.Task.Phase)
		assert.Contains(t, out.SpeechText, "1. pasta")
	})

	t.Run("no skips the read-out", func(t *testing.T) {
		p := newTestPolicy(t, testDeps())
		s := testSession(session.PhasePlanning, "no thanks", "NoIntent")
		s.Task.Taskmap = fixtureTaskmap()

		_, err := p.Step(context.Background(), s)
		require.NoError(t, err)
		assert.Equal(t, session.PhaseValidating, s.Task.Phase)
		assert.True(t, s.Task.State.RequirementsDisplayed)
	})

	t.Run("start jumps straight to execution", func(t *testing.T) {
		p := newTestPolicy(t, testDeps())
		s := testSession(session.PhasePlanning, "start", "StartTaskIntent")
		s.Task.Taskmap = fixtureTaskmap()

		out, err := p.Step(context.Background(), s)
		require.NoError(t, err)
		assert.Equal(t, session.PhaseExecuting, s.Task.Phase)
		assert.Contains(t, out.SpeechText, "Step 1 of 3")
	})

	t.Run("cancel returns to the results", func(t *testing.T) {
		p := newTestPolicy(t, testDeps())
		s := testSession(session.PhasePlanning, "go back", "CancelIntent")
		s.TaskSelection.Candidates = searchCandidates(4)
		s.Task.Taskmap = fixtureTaskmap()

		out, err := p.Step(context.Background(), s)
		require.NoError(t, err)
		assert.Nil(t, s.Task.Taskmap)
		assert.Contains(t, out.SpeechText, "Pasta Dish 1")
	})

	t.Run("unclear escalates", func(t *testing.T) {
		p := newTestPolicy(t, testDeps())
		s := testSession(session.PhasePlanning, "purple", "RepeatIntent")
		s.Task.Taskmap = fixtureTaskmap()
		s.Domain = session.DomainCooking

		out, err := p.Step(context.Background(), s)
		require.NoError(t, err)
		assert.Contains(t, out.SpeechText, "Do you want to hear the ingredients for Garlic Butter Pasta?")
		assert.Equal(t, 1, s.ErrorCounter.NoMatchCounter)
	})
}
