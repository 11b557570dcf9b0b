package policy

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// resumingPolicy intercepts routing when a previously closed session comes
// back. It either drops the user straight back into their task or resets
// the session for a fresh start, and always re-routes.
type resumingPolicy struct {
	logger *zap.Logger
}

func newResumingPolicy(logger *zap.Logger) *resumingPolicy {
	return &resumingPolicy{logger: logger.Named("policy.resuming")}
}

func (p *resumingPolicy) step(_ context.Context, s *session.Session) (Outcome, error) {
	s.State = session.StateRunning

	if !s.ResumeTask {
		p.logger.Info("returning user declined to resume, resetting session",
			zap.String("session_id", s.ID))
		s.Reset()
		return reroute(), nil
	}

	// A selected taskmap means the previous conversation ended mid-task.
	if s.Task.Taskmap != nil && s.Task.Taskmap.Title != "" {
		s.Task.Phase = session.PhaseExecuting
		s.CurrentTurn().UserRequest.AppendIntents("RepeatIntent")
		p.logger.Info("resuming task",
			zap.String("session_id", s.ID),
			zap.String("task", s.Task.Taskmap.Title))
		return reroute(), nil
	}

	s.Reset()
	return reroute(), nil
}
