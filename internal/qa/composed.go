package qa

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// RelevanceAssessment is the relevance scorer's verdict on one answer.
type RelevanceAssessment struct {
	Relevant bool    `json:"relevant"`
	Score    float64 `json:"score"`
}

// RelevanceScorer rates how well an answer addresses a question. It is
// consulted during answer scoring and its latency counts against the
// aggregation deadline.
type RelevanceScorer interface {
	AssessRelevance(ctx context.Context, question, answer string) (RelevanceAssessment, error)
}

// SubstitutionGenerator proposes an alternative for an ingredient or tool
// the user asked to replace.
type SubstitutionGenerator interface {
	Substitution(ctx context.Context, question string, tm *session.Taskmap) (string, error)
}

// slowBudgetFactor extends the slow engine's deadline relative to the base
// budget when the extension conditions hold.
const slowBudgetFactor = 1.5

// ComposedConfig configures the answer aggregator.
type ComposedConfig struct {
	// Engines to fan out to. At least one is required.
	Engines []Engine
	// Scorer is optional; without it answers are ranked on static weight
	// and token overlap alone.
	Scorer RelevanceScorer
	// Substitutions is optional; without it substitution answers are
	// returned without an enrichment suffix.
	Substitutions SubstitutionGenerator
	// Budget is the base wall-clock allowance for one aggregation.
	Budget time.Duration
	// SubstitutionThreshold is the elapsed-time ceiling under which the
	// substitution enrichment may still run.
	SubstitutionThreshold time.Duration
	Logger                *zap.Logger
}

// Composed fans one question out to every configured engine, scores the
// answers that arrive before the deadline and returns the best one. The
// deadline is computed once, as an absolute instant, when aggregation
// starts; every engine call, scoring call and enrichment call is measured
// against that same instant. The slow (language model) engine alone may run
// up to slowBudgetFactor times the budget, but only while no other engine
// has produced an answer or the question is chit chat.
type Composed struct {
	engines       []Engine
	scorer        RelevanceScorer
	substitutions SubstitutionGenerator
	budget        time.Duration
	substMax      time.Duration
	logger        *zap.Logger
}

// NewComposed builds the aggregator from its configuration.
func NewComposed(cfg ComposedConfig) (*Composed, error) {
	if len(cfg.Engines) == 0 {
		return nil, fmt.Errorf("composed qa: at least one engine required")
	}
	if cfg.Budget <= 0 {
		return nil, fmt.Errorf("composed qa: budget must be positive, got %s", cfg.Budget)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composed{
		engines:       cfg.Engines,
		scorer:        cfg.Scorer,
		substitutions: cfg.Substitutions,
		budget:        cfg.Budget,
		substMax:      cfg.SubstitutionThreshold,
		logger:        logger,
	}, nil
}

// candidate is one engine's answer moving through scoring.
type candidate struct {
	engine EngineID
	text   string
	score  float64
}

// Synthesize runs the fan-out and returns the highest-ranked answer. An
// empty Response means no engine produced a usable answer in time; the
// caller substitutes its scripted fallback. Synthesize never returns an
// error for engine failures, only for a cancelled parent context.
func (c *Composed) Synthesize(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	start := time.Now()
	deadline := start.Add(c.budget)
	slowDeadline := start.Add(time.Duration(float64(c.budget) * slowBudgetFactor))

	type arrival struct {
		engine EngineID
		text   string
		err    error
	}
	arrivals := make(chan arrival, len(c.engines))

	fastCtx, cancelFast := context.WithDeadline(ctx, deadline)
	defer cancelFast()
	slowCtx, cancelSlow := context.WithDeadline(ctx, slowDeadline)
	defer cancelSlow()

	slowLaunched := false
	for _, eng := range c.engines {
		engCtx := fastCtx
		if eng.ID() == EngineLLMQA {
			engCtx = slowCtx
			slowLaunched = true
		}
		go func(eng Engine, engCtx context.Context) {
			resp, err := eng.Synthesize(engCtx, req)
			arrivals <- arrival{engine: eng.ID(), text: resp.Text, err: err}
		}(eng, engCtx)
	}

	// Collect until the base deadline. The slow engine's result may be
	// awaited past it only while nothing else has answered, or for chit
	// chat where the language model is the engine we actually want.
	byEngine := map[EngineID]string{}
	pending := len(c.engines)
	slowPending := slowLaunched
	baseTimer := time.NewTimer(time.Until(deadline))
	defer baseTimer.Stop()
	slowTimer := time.NewTimer(time.Until(slowDeadline))
	defer slowTimer.Stop()

	// extendFor reports whether the slow engine's answer is still worth
	// waiting for past the base deadline.
	extendFor := func() bool {
		return slowPending && (req.Type == QuestionChitChat || len(byEngine) == 0)
	}

collect:
	for pending > 0 {
		select {
		case a := <-arrivals:
			pending--
			if a.engine == EngineLLMQA {
				slowPending = false
			}
			if a.err != nil {
				c.logger.Debug("qa engine failed",
					zap.String("engine", string(a.engine)),
					zap.Error(a.err))
			} else if a.text != "" {
				byEngine[a.engine] = a.text
			}
			if time.Now().After(deadline) && !extendFor() {
				break collect
			}
		case <-baseTimer.C:
			if !extendFor() {
				break collect
			}
		case <-slowTimer.C:
			break collect
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
	}
	cancelSlow()

	if len(byEngine) == 0 {
		return Response{}, nil
	}

	candidates := c.score(ctx, deadline, slowDeadline, req, byEngine)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	best := candidates[0]
	c.logger.Debug("qa answer selected",
		zap.String("engine", string(best.engine)),
		zap.Float64("score", best.score),
		zap.Duration("elapsed", time.Since(start)))

	text := best.text
	if suffix := c.enrichSubstitution(ctx, start, deadline, req); suffix != "" {
		text = text + " " + suffix
	}
	return Response{Text: text}, nil
}

// score ranks the collected answers concurrently. Each answer starts from
// the static weight for its engine and question type; if scoring completes
// in time it adds the token-overlap similarity between question and answer,
// plus the relevance scorer's bonus when the scorer deems the answer
// relevant. An answer whose scoring call overruns the deadline keeps the
// static weight alone.
func (c *Composed) score(ctx context.Context, deadline, slowDeadline time.Time, req Request, byEngine map[EngineID]string) []candidate {
	limit := deadline
	if time.Now().After(deadline) {
		// The slow path consumed the base budget; scoring gets whatever
		// remains of the extended window.
		limit = slowDeadline
	}
	scoreCtx, cancel := context.WithDeadline(ctx, limit)
	defer cancel()

	// Build in fixed engine order so ranking is deterministic regardless
	// of arrival order.
	candidates := make([]candidate, 0, len(byEngine))
	for _, eng := range c.engines {
		text, ok := byEngine[eng.ID()]
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{
			engine: eng.ID(),
			text:   text,
			score:  StaticWeight(eng.ID(), req.Type),
		})
	}

	type scored struct {
		idx   int
		bonus float64
	}
	results := make(chan scored, len(candidates))
	for i := range candidates {
		go func(i int, cand candidate) {
			// A scorer failure costs only the relevance bonus; the token
			// overlap still counts.
			bonus := Jaccard(req.Question, cand.text)
			if c.scorer != nil {
				assessment, err := c.scorer.AssessRelevance(scoreCtx, req.Question, cand.text)
				if err != nil {
					c.logger.Debug("relevance scoring failed", zap.Error(err))
				} else if assessment.Relevant {
					bonus += assessment.Score
				}
			}
			results <- scored{idx: i, bonus: bonus}
		}(i, candidates[i])
	}
	for remaining := len(candidates); remaining > 0; remaining-- {
		select {
		case r := <-results:
			candidates[r.idx].score += r.bonus
		case <-scoreCtx.Done():
			// Late bonuses are discarded; the static weights already in
			// place stand. Stragglers drain into the buffered channel.
			return candidates
		}
	}
	return candidates
}

// enrichSubstitution asks the language model for a replacement suggestion
// to append to a substitution answer. It only runs while validating a task,
// with a taskmap selected, and only if aggregation finished quickly enough
// that the extra call still fits the turn.
func (c *Composed) enrichSubstitution(ctx context.Context, start, deadline time.Time, req Request) string {
	if c.substitutions == nil || req.Type != QuestionSubstitution {
		return ""
	}
	if req.Phase != session.PhaseValidating || req.Taskmap == nil {
		return ""
	}
	if c.substMax <= 0 || time.Since(start) >= c.substMax {
		return ""
	}
	enrichCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	suggestion, err := c.substitutions.Substitution(enrichCtx, req.Question, req.Taskmap)
	if err != nil {
		c.logger.Debug("substitution enrichment failed", zap.Error(err))
		return ""
	}
	return suggestion
}
