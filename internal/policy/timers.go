package policy

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// defaultTimerDuration is used when the user clearly asked for a timer but
// no amount could be read out of the utterance.
const defaultTimerDuration = 5 * time.Minute

// Spoken fraction phrases are dropped rather than parsed; the number and
// unit that remain still carry the request.
var timerFractionPhrases = []string{
	"3 quarters", "three quarters", "a quarter", "quarter", "a half", "half",
}

var timerNumberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11,
	"twelve": 12, "fifteen": 15, "twenty": 20, "thirty": 30, "forty": 40,
	"fifty": 50, "sixty": 60, "ninety": 90,
}

var timerUnitPattern = regexp.MustCompile(`(\d+)\s*(hours?|hrs?|minutes?|mins?|seconds?|secs?)`)

// parseTimerDuration reads a spoken time span like "ten minutes" or
// "1 hour and 30 minutes". Empty input is an error; input with no
// recognizable amount falls back to defaultTimerDuration.
func parseTimerDuration(raw string) (time.Duration, error) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return 0, errors.New("no duration text")
	}
	for _, phrase := range timerFractionPhrases {
		text = strings.ReplaceAll(text, phrase, "")
	}

	words := strings.Fields(text)
	for i, w := range words {
		if n, ok := timerNumberWords[w]; ok {
			words[i] = strconv.Itoa(n)
		}
	}
	text = strings.Join(words, " ")

	var total time.Duration
	for _, m := range timerUnitPattern.FindAllStringSubmatch(text, -1) {
		n, _ := strconv.Atoi(m[1])
		switch m[2][0] {
		case 'h':
			total += time.Duration(n) * time.Hour
		case 'm':
			total += time.Duration(n) * time.Minute
		case 's':
			total += time.Duration(n) * time.Second
		}
	}
	if total == 0 {
		return defaultTimerDuration, nil
	}
	return total, nil
}

// formatDelta speaks a duration as "x hours, y minutes, z seconds",
// omitting zero units and pluralizing the rest.
func formatDelta(d time.Duration) string {
	secs := int(d.Round(time.Second).Seconds())
	if secs < 0 {
		secs = 0
	}
	parts := []struct {
		value int
		unit  string
	}{
		{secs / 3600, "hour"},
		{secs % 3600 / 60, "minute"},
		{secs % 60, "second"},
	}

	var spoken []string
	for _, p := range parts {
		if p.value == 0 {
			continue
		}
		unit := p.unit
		if p.value != 1 {
			unit += "s"
		}
		spoken = append(spoken, fmt.Sprintf("%d %s", p.value, unit))
	}
	if len(spoken) == 0 {
		return "0 seconds"
	}
	return strings.Join(spoken, ", ")
}

func formatTimer(t session.Timer, now time.Time) string {
	if t.State == session.TimerPaused {
		return fmt.Sprintf("One timer of %s that is currently paused. ", formatDelta(t.Duration))
	}
	return fmt.Sprintf("One timer of %s that will expire in %s. ",
		formatDelta(t.Duration), formatDelta(t.ExpireTime.Sub(now)))
}

// lastActiveTimer returns the index of the most recent still-active timer
// in one of the given states, or -1. Timer commands always act on the
// latest matching timer.
func lastActiveTimer(s *session.Session, now time.Time, states ...session.TimerState) int {
	timers := s.Task.State.UserTimers
	for i := len(timers) - 1; i >= 0; i-- {
		if !timers[i].Active(now) {
			continue
		}
		for _, st := range states {
			if timers[i].State == st {
				return i
			}
		}
	}
	return -1
}

func (p *intentsPolicy) createTimer(s *session.Session) (Outcome, error) {
	turn := s.CurrentTurn()
	raw := turn.UserRequest.Text
	if len(turn.UserRequest.Params) > 0 && strings.TrimSpace(turn.UserRequest.Params[0]) != "" {
		raw = turn.UserRequest.Params[0]
	}

	out := &session.OutputInteraction{}
	dur, err := parseTimerDuration(raw)
	if err != nil {
		p.logger.Info("timer request carried no duration", zap.String("text", raw))
		out.SpeechText = "Sorry, I currently can't set any timers."
		repeatScreen(s, out)
		return respond(out), nil
	}

	now := time.Now().UTC()
	timer := session.Timer{
		ID:         fmt.Sprintf("timer-%d", len(s.Task.State.UserTimers)+1),
		Label:      "User's",
		Duration:   dur,
		ExpireTime: now.Add(dur),
		State:      session.TimerRunning,
	}
	s.Task.State.UserTimers = append(s.Task.State.UserTimers, timer)
	p.logger.Info("timer created",
		zap.String("timer_id", timer.ID), zap.Duration("duration", dur))

	out.TimerAction = &session.TimerAction{
		Op:       session.TimerCreate,
		TimerID:  timer.ID,
		Label:    timer.Label,
		Duration: dur,
	}
	out.SpeechText = "I have set the timer that you requested"
	repeatScreen(s, out)
	return respond(out), nil
}

func (p *intentsPolicy) pauseTimer(s *session.Session) (Outcome, error) {
	out := &session.OutputInteraction{}
	now := time.Now().UTC()
	if idx := lastActiveTimer(s, now, session.TimerRunning); idx >= 0 {
		t := &s.Task.State.UserTimers[idx]
		t.Remaining = t.ExpireTime.Sub(now)
		t.State = session.TimerPaused
		out.TimerAction = &session.TimerAction{Op: session.TimerPause, TimerID: t.ID}
		out.SpeechText = "The Timer has been paused"
	} else {
		out.SpeechText = "Sorry, there is no timer that can be paused."
	}
	repeatScreen(s, out)
	return respond(out), nil
}

func (p *intentsPolicy) resumeTimer(s *session.Session) (Outcome, error) {
	out := &session.OutputInteraction{}
	now := time.Now().UTC()
	if idx := lastActiveTimer(s, now, session.TimerPaused); idx >= 0 {
		t := &s.Task.State.UserTimers[idx]
		t.ExpireTime = now.Add(t.Remaining)
		t.Remaining = 0
		t.State = session.TimerRunning
		out.TimerAction = &session.TimerAction{Op: session.TimerResume, TimerID: t.ID}
		out.SpeechText = "The Timer has been resumed"
	} else {
		out.SpeechText = "Sorry, there is no timer that can be resumed."
	}
	repeatScreen(s, out)
	return respond(out), nil
}

func (p *intentsPolicy) cancelTimer(s *session.Session) (Outcome, error) {
	out := &session.OutputInteraction{}
	now := time.Now().UTC()
	if idx := lastActiveTimer(s, now, session.TimerRunning, session.TimerPaused); idx >= 0 {
		timers := s.Task.State.UserTimers
		out.TimerAction = &session.TimerAction{Op: session.TimerCancel, TimerID: timers[idx].ID}
		s.Task.State.UserTimers = append(timers[:idx], timers[idx+1:]...)
		out.SpeechText = "The Timer has been canceled"
	} else {
		out.SpeechText = "Sorry, there is no timer that can be canceled."
	}
	repeatScreen(s, out)
	return respond(out), nil
}

func (p *intentsPolicy) showTimers(s *session.Session) (Outcome, error) {
	out := &session.OutputInteraction{}
	now := time.Now().UTC()

	var speech strings.Builder
	for _, t := range s.Task.State.UserTimers {
		if !t.Active(now) {
			continue
		}
		speech.WriteString(formatTimer(t, now))
	}
	if speech.Len() == 0 {
		out.SpeechText = "You have no Timers that are set."
	} else {
		out.SpeechText = "I have found these timers: " + speech.String()
	}
	repeatScreen(s, out)
	return respond(out), nil
}
