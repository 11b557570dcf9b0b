package policy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

func TestParseTimerDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"5 minutes", 5 * time.Minute},
		{"set a timer for ten minutes", 10 * time.Minute},
		{"an hour and 30 minutes", 90 * time.Minute},
		{"2 hrs", 2 * time.Hour},
		{"ninety secs", 90 * time.Second},
		{"one minute twenty seconds", time.Minute + 20*time.Second},
		// No recognizable amount still yields a usable timer.
		{"set a timer please", defaultTimerDuration},
	}
	for _, tc := range cases {
		got, err := parseTimerDuration(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := parseTimerDuration("   ")
	assert.Error(t, err)
}

func TestFormatDelta(t *testing.T) {
	assert.Equal(t, "1 hour, 5 minutes, 30 seconds", formatDelta(time.Hour+5*time.Minute+30*time.Second))
	assert.Equal(t, "2 minutes", formatDelta(2*time.Minute))
	assert.Equal(t, "0 seconds", formatDelta(0))
	assert.Equal(t, "0 seconds", formatDelta(-time.Minute))
}

func TestTimers_CreateSetsTimer(t *testing.T) {
	p := newTestPolicy(t, testDeps())
	s := testSession(session.PhaseExecuting, "set a timer", "CreateTimerIntent")
	s.CurrentTurn().UserRequest.Params = []string{"10 minutes"}

	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "I have set the timer that you requested", out.SpeechText)
	require.NotNil(t, out.TimerAction)
	assert.Equal(t, session.TimerCreate, out.TimerAction.Op)
	assert.Equal(t, 10*time.Minute, out.TimerAction.Duration)

	require.Len(t, s.Task.State.UserTimers, 1)
	timer := s.Task.State.UserTimers[0]
	assert.Equal(t, session.TimerRunning, timer.State)
	assert.Equal(t, 10*time.Minute, timer.Duration)
	assert.True(t, timer.ExpireTime.After(time.Now().UTC()))
}

func TestTimers_CreateWithoutDurationApologizes(t *testing.T) {
	p := newTestPolicy(t, testDeps())
	s := testSession(session.PhaseExecuting, "", "CreateTimerIntent")

	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "Sorry, I currently can't set any timers.", out.SpeechText)
	assert.Nil(t, out.TimerAction)
	assert.Empty(t, s.Task.State.UserTimers)
}

func TestTimers_PauseAndResume(t *testing.T) {
	p := newTestPolicy(t, testDeps())
	s := testSession(session.PhaseExecuting, "pause the timer", "PauseTimerIntent")
	s.Task.State.UserTimers = []session.Timer{{
		ID:         "timer-1",
		Duration:   10 * time.Minute,
		ExpireTime: time.Now().UTC().Add(7 * time.Minute),
		State:      session.TimerRunning,
	}}

	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "The Timer has been paused", out.SpeechText)
	require.NotNil(t, out.TimerAction)
	assert.Equal(t, session.TimerPause, out.TimerAction.Op)
	assert.Equal(t, "timer-1", out.TimerAction.TimerID)
	assert.Equal(t, session.TimerPaused, s.Task.State.UserTimers[0].State)
	assert.Greater(t, s.Task.State.UserTimers[0].Remaining, 6*time.Minute)

	s.AddTurn("turn-2", "resume the timer", []string{"ResumeTimerIntent"})
	out, err = p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "The Timer has been resumed", out.SpeechText)
	require.NotNil(t, out.TimerAction)
	assert.Equal(t, session.TimerResume, out.TimerAction.Op)
	assert.Equal(t, session.TimerRunning, s.Task.State.UserTimers[0].State)
	assert.True(t, s.Task.State.UserTimers[0].ExpireTime.After(time.Now().UTC()))
}

func TestTimers_PauseWithNothingRunningApologizes(t *testing.T) {
	p := newTestPolicy(t, testDeps())
	s := testSession(session.PhaseExecuting, "pause the timer", "PauseTimerIntent")
	// An expired timer no longer counts.
	s.Task.State.UserTimers = []session.Timer{{
		ID:         "timer-1",
		Duration:   time.Minute,
		ExpireTime: time.Now().UTC().Add(-time.Minute),
		State:      session.TimerRunning,
	}}

	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "Sorry, there is no timer that can be paused.", out.SpeechText)
	assert.Nil(t, out.TimerAction)
}

func TestTimers_CancelRemovesLatest(t *testing.T) {
	p := newTestPolicy(t, testDeps())
	s := testSession(session.PhaseExecuting, "cancel my timer", "DeleteTimerIntent")
	now := time.Now().UTC()
	s.Task.State.UserTimers = []session.Timer{
		{ID: "timer-1", Duration: 5 * time.Minute, ExpireTime: now.Add(3 * time.Minute), State: session.TimerRunning},
		{ID: "timer-2", Duration: 20 * time.Minute, ExpireTime: now.Add(18 * time.Minute), State: session.TimerRunning},
	}

	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "The Timer has been canceled", out.SpeechText)
	require.NotNil(t, out.TimerAction)
	assert.Equal(t, session.TimerCancel, out.TimerAction.Op)
	assert.Equal(t, "timer-2", out.TimerAction.TimerID)
	require.Len(t, s.Task.State.UserTimers, 1)
	assert.Equal(t, "timer-1", s.Task.State.UserTimers[0].ID)
}

func TestTimers_ShowSpeaksEachActiveTimer(t *testing.T) {
	p := newTestPolicy(t, testDeps())
	s := testSession(session.PhaseExecuting, "show my timers", "ShowTimerIntent")
	now := time.Now().UTC()
	s.Task.State.UserTimers = []session.Timer{
		{ID: "timer-1", Duration: 10 * time.Minute, ExpireTime: now.Add(5 * time.Minute), State: session.TimerRunning},
		{ID: "timer-2", Duration: time.Hour, Remaining: 40 * time.Minute, State: session.TimerPaused},
		{ID: "timer-3", Duration: time.Minute, ExpireTime: now.Add(-time.Minute), State: session.TimerRunning},
	}

	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Contains(t, out.SpeechText, "I have found these timers: ")
	assert.Contains(t, out.SpeechText, "One timer of 10 minutes that will expire in")
	assert.Contains(t, out.SpeechText, "One timer of 1 hour that is currently paused.")
	assert.NotContains(t, out.SpeechText, "1 minute")
}

func TestTimers_ShowWithNoneSet(t *testing.T) {
	p := newTestPolicy(t, testDeps())
	s := testSession(session.PhaseExecuting, "show my timers", "ShowTimerIntent")

	out, err := p.Step(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "You have no Timers that are set.", out.SpeechText)
}
