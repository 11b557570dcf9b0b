// Package policy implements the turn router: a phase-based state machine
// that turns one user utterance into one structured response, calling out to
// classifier, search, QA and generation backends along the way.
package policy

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// ErrRoutingLoop reports that phase re-routing exceeded its bound. It marks
// a state-machine bug, not a user condition, and fails the turn loudly.
var ErrRoutingLoop = errors.New("policy: routing loop, reroute bound exceeded")

// Outcome is the result of one policy step: either a finished response, or
// a request to re-evaluate routing because the step mutated the session's
// phase or state. Exactly one of the two is set.
type Outcome struct {
	Response *session.OutputInteraction
	Reroute  bool
}

func respond(out *session.OutputInteraction) Outcome {
	return Outcome{Response: out}
}

func reroute() Outcome {
	return Outcome{Reroute: true}
}

// stepper is one phase (or cross-cutting) policy. Steps never return a
// partial outcome: backend failures degrade to fallback responses inside
// the step, and only store-level or routing-level failures surface as
// errors.
type stepper interface {
	step(ctx context.Context, s *session.Session) (Outcome, error)
}
