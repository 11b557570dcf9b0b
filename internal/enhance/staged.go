// Package enhance runs background enrichment of community-sourced taskmaps.
// Enrichment happens off the turn path: a turn only advances a small lease
// state machine, and a detached job does the slow work.
package enhance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// Enricher produces an improved copy of a taskmap. It must not mutate its
// input.
type Enricher interface {
	Enrich(ctx context.Context, tm *session.Taskmap) (*session.Taskmap, error)
}

// ShouldEnhance reports whether a selected taskmap qualifies for background
// enrichment: any stored taskmap this session has not already adopted an
// enriched copy of. Community-sourced content gets its metadata rewritten;
// curated content already carries most fields, so its job only fills gaps.
func ShouldEnhance(tm *session.Taskmap, st session.TaskState) bool {
	return tm != nil && tm.ID != "" && !st.Enhanced
}

// Config configures the enrichment manager.
type Config struct {
	// Leases is the shared lease store the turn path and detached jobs
	// communicate through.
	Leases session.LeaseStore
	// Enricher does the actual enrichment work.
	Enricher Enricher
	// JobBudget bounds one detached job's runtime.
	JobBudget time.Duration
	Logger    *zap.Logger
}

// Manager advances the per-taskmap enrichment lease. The lease is the only
// channel between a turn and the detached job it may have launched; neither
// side holds any in-process reference to the other, so the job survives the
// originating request and even a restart of the turn path.
type Manager struct {
	leases   session.LeaseStore
	enricher Enricher
	budget   time.Duration
	logger   *zap.Logger
	jobs     sync.WaitGroup
}

// NewManager builds the enrichment manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Leases == nil {
		return nil, fmt.Errorf("enhance: lease store required")
	}
	if cfg.Enricher == nil {
		return nil, fmt.Errorf("enhance: enricher required")
	}
	if cfg.JobBudget <= 0 {
		return nil, fmt.Errorf("enhance: job budget must be positive, got %s", cfg.JobBudget)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		leases:   cfg.Leases,
		enricher: cfg.Enricher,
		budget:   cfg.JobBudget,
		logger:   logger,
	}, nil
}

// Poll advances the lease state machine for one taskmap and returns the
// enriched copy once a job has finished. The transitions are:
//
//	NONE    -> mark STARTED, launch a detached job, return nothing yet
//	STARTED -> a job is in flight somewhere, do nothing
//	ENDED   -> return the enriched taskmap for adoption
//
// Two concurrent turns can both observe NONE and both launch a job; the
// duplicated work is wasted but harmless since both jobs write equivalent
// ENDED leases. Adoption is idempotent: the lease stays ENDED and the
// caller's enhanced flag stops further polling.
func (m *Manager) Poll(ctx context.Context, tm *session.Taskmap) (*session.Taskmap, bool) {
	lease, err := m.leases.GetLease(ctx, tm.ID)
	if err != nil {
		m.logger.Warn("enrichment lease read failed",
			zap.String("taskmap_id", tm.ID), zap.Error(err))
		return nil, false
	}

	switch lease.State {
	case session.StageStarted:
		return nil, false
	case session.StageEnded:
		return lease.Taskmap, lease.Taskmap != nil
	}

	// The claim carries a snapshot of the content being enriched so an
	// observer of a STARTED lease sees what the job started from.
	snapshot := tm.Clone()
	if err := m.leases.PutLease(ctx, tm.ID, &session.StagedOutput{State: session.StageStarted, Taskmap: snapshot}); err != nil {
		m.logger.Warn("enrichment lease claim failed",
			zap.String("taskmap_id", tm.ID), zap.Error(err))
		return nil, false
	}

	m.jobs.Add(1)
	go m.run(snapshot)
	return nil, false
}

// run is the detached job body. It deliberately starts from a fresh context
// so the job outlives the request that launched it. Any failure, including
// overrunning the budget, releases the lease back to NONE so a later turn
// can retry.
func (m *Manager) run(tm *session.Taskmap) {
	defer m.jobs.Done()

	ctx, cancel := context.WithTimeout(context.Background(), m.budget)
	defer cancel()

	start := time.Now()
	enriched, err := m.enricher.Enrich(ctx, tm)
	if err != nil {
		m.logger.Warn("enrichment job failed",
			zap.String("taskmap_id", tm.ID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		m.release(tm.ID)
		return
	}

	out := &session.StagedOutput{State: session.StageEnded, Taskmap: enriched}
	if err := m.leases.PutLease(ctx, tm.ID, out); err != nil {
		m.logger.Warn("enrichment lease publish failed",
			zap.String("taskmap_id", tm.ID), zap.Error(err))
		m.release(tm.ID)
		return
	}
	m.logger.Info("taskmap enriched",
		zap.String("taskmap_id", tm.ID),
		zap.Duration("elapsed", time.Since(start)))
}

// DescribeCandidates enriches a fresh page of search results in the
// background so descriptions are ready by the time one candidate gets
// selected. Candidates that already carry a description, or whose lease is
// claimed, are skipped. The whole batch shares one job budget.
func (m *Manager) DescribeCandidates(candidates []session.Taskmap) {
	pending := make([]*session.Taskmap, 0, len(candidates))
	for i := range candidates {
		if candidates[i].ID == "" || candidates[i].Description != "" {
			continue
		}
		pending = append(pending, candidates[i].Clone())
	}
	if len(pending) == 0 {
		return
	}

	m.jobs.Add(1)
	go func() {
		defer m.jobs.Done()

		ctx, cancel := context.WithTimeout(context.Background(), m.budget)
		defer cancel()

		described := 0
		for _, tm := range pending {
			lease, err := m.leases.GetLease(ctx, tm.ID)
			if err != nil || lease.State != session.StageNone {
				continue
			}
			enriched, err := m.enricher.Enrich(ctx, tm)
			if err != nil {
				m.logger.Warn("candidate description failed",
					zap.String("taskmap_id", tm.ID), zap.Error(err))
				continue
			}
			out := &session.StagedOutput{State: session.StageEnded, Taskmap: enriched}
			if err := m.leases.PutLease(ctx, tm.ID, out); err != nil {
				m.logger.Warn("candidate description publish failed",
					zap.String("taskmap_id", tm.ID), zap.Error(err))
				continue
			}
			described++
		}
		m.logger.Info("candidate descriptions generated",
			zap.Int("described", described), zap.Int("candidates", len(pending)))
	}()
}

func (m *Manager) release(taskmapID string) {
	// The job context may already be expired, so releasing gets its own
	// short deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.leases.PutLease(ctx, taskmapID, &session.StagedOutput{State: session.StageNone}); err != nil {
		m.logger.Error("enrichment lease release failed",
			zap.String("taskmap_id", taskmapID), zap.Error(err))
	}
}

// Wait blocks until all in-flight jobs have finished. Used on shutdown.
func (m *Manager) Wait() {
	m.jobs.Wait()
}
