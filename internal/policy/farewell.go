package policy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// farewellPolicy ends the conversation. Reaching the end of a task without
// an explicit stop first asks the user to confirm completion; the definite
// close populates a transcript of what was done and closes the session.
type farewellPolicy struct {
	logger *zap.Logger
}

func newFarewellPolicy(logger *zap.Logger) *farewellPolicy {
	return &farewellPolicy{logger: logger.Named("policy.farewell")}
}

func stopRequested(s *session.Session) bool {
	turn := s.CurrentTurn()
	if turn == nil {
		return false
	}
	return turn.UserRequest.HasIntent("StopIntent") || turn.UserRequest.HasUtterance("stop")
}

func (p *farewellPolicy) step(_ context.Context, s *session.Session) (Outcome, error) {
	out := &session.OutputInteraction{}
	tm := s.Task.Taskmap

	if s.Task.Phase == session.PhaseClosing && tm != nil && tm.Title != "" && !stopRequested(s) {
		// End of execution without an abrupt stop: ask for the completion
		// confirmation and keep the task live for one more turn.
		if !s.Headless {
			out.Screen = &session.Screen{
				Format:     session.FormatTextImage,
				Headline:   "That's all folks!",
				Paragraphs: []string{fmt.Sprintf("You just did: %s", tm.Title)},
				Buttons:    []string{"Complete"},
				OnClick:    []string{"complete"},
				HintText:   "Complete",
			}
			if tm.ThumbnailURL != "" {
				out.Screen.Images = []session.Image{{Path: tm.ThumbnailURL}}
			}
		}
		if s.Domain == session.DomainCooking {
			out.SpeechText = cookingFarewell
		} else {
			out.SpeechText = fmt.Sprintf(diyFarewellFormat, tm.Title)
		}
		s.Task.Phase = session.PhaseExecuting
		return respond(out), nil
	}

	out.Transcript = transcript(s)
	if out.Transcript != "" {
		s.Task.State.TranscriptSent = true
	}
	closeSession(s, out)
	p.logger.Info("session closed", zap.String("session_id", s.ID))
	return respond(out), nil
}

// transcript summarizes how far the user got, for the client to keep after
// the conversation closes.
func transcript(s *session.Session) string {
	tm := s.Task.Taskmap
	if tm == nil || tm.Title == "" {
		return ""
	}
	done := s.Task.State.IndexToNext
	if done > len(tm.Steps) {
		done = len(tm.Steps)
	}
	return fmt.Sprintf("%s: completed %d of %d steps.", tm.Title, done, len(tm.Steps))
}
