package session

// StageState is the lifecycle state of a background enrichment lease.
type StageState string

const (
	// StageNone means no enrichment has run, or the last attempt failed and
	// a future turn may retry.
	StageNone StageState = "NONE"
	// StageStarted means a detached enrichment job is in flight. Observing
	// this state must never launch a second job.
	StageStarted StageState = "STARTED"
	// StageEnded means enrichment finished and the lease carries the
	// enriched taskmap.
	StageEnded StageState = "ENDED"
)

// StagedOutput is the per-taskmap lease record that a detached enrichment
// job communicates through. It is the only shared state between the turn
// that launches the job and the job itself.
type StagedOutput struct {
	State   StageState `json:"state"`
	Taskmap *Taskmap   `json:"taskmap,omitempty"`
}
