package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

func validatingSession(text string, intents ...string) *session.Session {
	s := testSession(session.PhaseValidating, text, intents...)
	s.Domain = session.DomainCooking
	s.Task.Taskmap = fixtureTaskmap()
	return s
}

func TestValidation_SpeaksRequirementsInPages(t *testing.T) {
	p := newTestPolicy(t, testDeps())
	s := validatingSession("yes", "YesIntent")

	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Contains(t, out.SpeechText, "1. pasta")
	assert.Contains(t, out.SpeechText, "3. garlic")
	assert.NotContains(t, out.SpeechText, "parsley")
	assert.Contains(t, out.SpeechText, "three at a time")
	assert.Equal(t, 3, s.Task.State.ValidationPage)
	assert.False(t, s.Task.State.RequirementsDisplayed)

	s.AddTurn("turn-2", "next", []string{"NextIntent"})
	out, err = p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Contains(t, out.SpeechText, "4. parsley")
	assert.Contains(t, out.SpeechText, wantToStart)
	assert.True(t, s.Task.State.RequirementsDisplayed)
}

func TestValidation_RepeatReReadsPage(t *testing.T) {
	p := newTestPolicy(t, testDeps())
	s := validatingSession("repeat", "RepeatIntent")
	s.Task.State.ValidationPage = 3
	s.Task.State.ValidationCourtesy = true

	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Contains(t, out.SpeechText, "1. pasta")
	assert.Equal(t, 3, s.Task.State.ValidationPage)
}

func TestValidation_ScreenClientsGetOneShot(t *testing.T) {
	p := newTestPolicy(t, testDeps())
	s := validatingSession("yes", "YesIntent")
	s.Headless = false

	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	require.NotNil(t, out.Screen)
	assert.Equal(t, fixtureTaskmap().Requirements, out.Screen.Requirements)
	assert.Contains(t, out.SpeechText, wantToStart)
	assert.True(t, s.Task.State.RequirementsDisplayed)
}

func TestValidation_ConfirmStart(t *testing.T) {
	t.Run("yes starts execution", func(t *testing.T) {
		p := newTestPolicy(t, testDeps())
		s := validatingSession("yes", "YesIntent")
		s.Task.State.RequirementsDisplayed = true

		out, err := p.Step(context.Background(), s)
		require.NoError(t, err)
		assert.Equal(t, session.PhaseExecuting, s.Task.Phase)
		assert.Contains(t, out.SpeechText, "Step 1 of 3")
	})

	t.Run("no returns to planning", func(t *testing.T) {
		p := newTestPolicy(t, testDeps())
		s := validatingSession("no", "NoIntent")
		s.Task.State.RequirementsDisplayed = true

		_, err := p.Step(context.Background(), s)
		require.NoError(t, err)
		assert.Equal(t, session.PhasePlanning, s.Task.Phase)
		assert.Nil(t, s.Task.Taskmap)
	})

	t.Run("unclear escalates", func(t *testing.T) {
		p := newTestPolicy(t, testDeps())
		s := validatingSession("purple", "RepeatIntent")
		s.Task.State.RequirementsDisplayed = true
		s.Task.State.ValidationPage = 6

		out, err := p.Step(context.Background(), s)
		require.NoError(t, err)
		assert.Contains(t, out.SpeechText, "Shall we get started with 'Garlic Butter Pasta'?")

		s.AddTurn("turn-2", "purple again", []string{"RepeatIntent"})
		out, err = p.Step(context.Background(), s)
		require.NoError(t, err)
		assert.Contains(t, out.SpeechText, "I'm having trouble understanding you")
	})
}

func TestValidation_StartTaskSkipsConfirmation(t *testing.T) {
	p := newTestPolicy(t, testDeps())
	s := validatingSession("start the recipe", "StartTaskIntent")

	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, session.PhaseExecuting, s.Task.Phase)
	assert.Contains(t, out.SpeechText, "Step 1 of 3")
}

func TestValidation_StopClosesWithoutTranscript(t *testing.T) {
	p := newTestPolicy(t, testDeps())
	s := validatingSession("I'm done", "StopIntent")

	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, out.CloseInteraction)
	assert.Empty(t, out.Transcript)
	assert.Equal(t, session.StateClosed, s.State)
}

func TestValidation_NoTaskmapFallsBackToPlanning(t *testing.T) {
	p := newTestPolicy(t, testDeps())
	s := testSession(session.PhaseValidating, "hm", "RepeatIntent")

	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, session.PhasePlanning, s.Task.Phase)
	assert.NotEmpty(t, out.SpeechText)
}

func TestValidation_AdoptsEnrichedTaskmap(t *testing.T) {
	enriched := fixtureTaskmap()
	enriched.SourceURL = "https://www.wikihow.com/Fix-a-Faucet"
	enriched.Description = "A rich generated description."

	deps := testDeps()
	enhance := &stubEnhance{enriched: enriched, ready: true}
	deps.Enhance = enhance
	p := newTestPolicy(t, deps)

	s := validatingSession("yes", "YesIntent")
	s.Task.Taskmap.SourceURL = "https://www.wikihow.com/Fix-a-Faucet"

	_, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 1, enhance.polls)
	assert.True(t, s.Task.State.Enhanced)
	assert.Equal(t, "A rich generated description.", s.Task.Taskmap.Description)
}

func TestValidation_AdoptsEnrichmentForCuratedSource(t *testing.T) {
	enriched := fixtureTaskmap()
	enriched.Description = "A filled-in description."

	deps := testDeps()
	enhance := &stubEnhance{enriched: enriched, ready: true}
	deps.Enhance = enhance
	p := newTestPolicy(t, deps)

	// No community source URL on the taskmap; gap-filling still applies.
	s := validatingSession("yes", "YesIntent")

	_, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 1, enhance.polls)
	assert.True(t, s.Task.State.Enhanced)
	assert.Equal(t, "A filled-in description.", s.Task.Taskmap.Description)
}

func TestValidation_ReadRequirementsOnDemand(t *testing.T) {
	p := newTestPolicy(t, testDeps())
	s := validatingSession("read ingredients", "ShowRequirementsIntent")

	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Contains(t, out.SpeechText, "You need: pasta, butter, garlic and, finally, parsley")
}
