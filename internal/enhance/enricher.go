package enhance

import (
	"context"

	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// Wordsmith is the subset of the language model wrapper the enricher needs.
type Wordsmith interface {
	Description(ctx context.Context, tm *session.Taskmap) (string, error)
	Summary(ctx context.Context, tm *session.Taskmap) (string, error)
}

// TaskmapEnricher rewrites the thin metadata community taskmaps ship with:
// a spoken-length description and a one-breath voice summary.
type TaskmapEnricher struct {
	gen Wordsmith
}

// NewTaskmapEnricher builds an enricher over a language model wrapper.
func NewTaskmapEnricher(gen Wordsmith) *TaskmapEnricher {
	return &TaskmapEnricher{gen: gen}
}

// Enrich returns an enriched copy of the taskmap. Fields the source already
// filled in are kept. Any generation failure fails the whole job so a later
// lease cycle retries from scratch.
func (e *TaskmapEnricher) Enrich(ctx context.Context, tm *session.Taskmap) (*session.Taskmap, error) {
	out := tm.Clone()
	if out.Description == "" {
		desc, err := e.gen.Description(ctx, out)
		if err != nil {
			return nil, err
		}
		out.Description = desc
	}
	if out.VoiceSummary == "" {
		summary, err := e.gen.Summary(ctx, out)
		if err != nil {
			return nil, err
		}
		out.VoiceSummary = summary
	}
	return out, nil
}
