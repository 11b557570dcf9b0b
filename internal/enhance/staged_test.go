package enhance

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

type fakeEnricher struct {
	calls int32
	delay time.Duration
	err   error
}

func (f *fakeEnricher) Enrich(ctx context.Context, tm *session.Taskmap) (*session.Taskmap, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	out := tm.Clone()
	out.Description = "enriched description"
	return out, nil
}

func newManager(t *testing.T, store session.LeaseStore, enricher Enricher) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Leases:    store,
		Enricher:  enricher,
		JobBudget: 200 * time.Millisecond,
	})
	require.NoError(t, err)
	return m
}

func wikihowTaskmap() *session.Taskmap {
	return &session.Taskmap{
		ID:        "tm-1",
		Title:     "Fix a Leaky Faucet",
		SourceURL: "https://www.wikihow.com/Fix-a-Leaky-Faucet",
	}
}

func TestShouldEnhance(t *testing.T) {
	tm := wikihowTaskmap()
	assert.True(t, ShouldEnhance(tm, session.TaskState{}))
	assert.False(t, ShouldEnhance(tm, session.TaskState{Enhanced: true}))
	assert.False(t, ShouldEnhance(nil, session.TaskState{}))

	// Curated content qualifies too; its job only fills missing fields.
	curated := &session.Taskmap{ID: "tm-2", SourceURL: "https://example.com/recipe"}
	assert.True(t, ShouldEnhance(curated, session.TaskState{}))
	assert.False(t, ShouldEnhance(curated, session.TaskState{Enhanced: true}))

	unstored := &session.Taskmap{Title: "no id"}
	assert.False(t, ShouldEnhance(unstored, session.TaskState{}))
}

func TestPollClaimsLeaseAndPublishes(t *testing.T) {
	store := session.NewMemoryStore()
	enricher := &fakeEnricher{}
	m := newManager(t, store, enricher)
	tm := wikihowTaskmap()

	adopted, ok := m.Poll(context.Background(), tm)
	assert.False(t, ok)
	assert.Nil(t, adopted)
	m.Wait()

	lease, err := store.GetLease(context.Background(), tm.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StageEnded, lease.State)
	require.NotNil(t, lease.Taskmap)
	assert.Equal(t, "enriched description", lease.Taskmap.Description)

	adopted, ok = m.Poll(context.Background(), tm)
	require.True(t, ok)
	assert.Equal(t, "enriched description", adopted.Description)
	// Adoption leaves the lease in place; polling again adopts again.
	adopted, ok = m.Poll(context.Background(), tm)
	require.True(t, ok)
	assert.NotNil(t, adopted)
	assert.EqualValues(t, 1, atomic.LoadInt32(&enricher.calls))
}

func TestPollStartedLeaseCarriesSnapshot(t *testing.T) {
	store := session.NewMemoryStore()
	m := newManager(t, store, &fakeEnricher{delay: 100 * time.Millisecond})
	tm := wikihowTaskmap()

	m.Poll(context.Background(), tm)

	// The job is still sleeping, so the claim must be observable with the
	// content the job started from.
	lease, err := store.GetLease(context.Background(), tm.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StageStarted, lease.State)
	require.NotNil(t, lease.Taskmap)
	assert.Equal(t, tm.Title, lease.Taskmap.Title)
	m.Wait()
}

func TestPollStartedIsNoOp(t *testing.T) {
	store := session.NewMemoryStore()
	enricher := &fakeEnricher{}
	m := newManager(t, store, enricher)
	tm := wikihowTaskmap()

	require.NoError(t, store.PutLease(context.Background(), tm.ID,
		&session.StagedOutput{State: session.StageStarted}))

	adopted, ok := m.Poll(context.Background(), tm)
	assert.False(t, ok)
	assert.Nil(t, adopted)
	m.Wait()
	assert.EqualValues(t, 0, atomic.LoadInt32(&enricher.calls))
}

func TestPollFailedJobReleasesLease(t *testing.T) {
	store := session.NewMemoryStore()
	m := newManager(t, store, &fakeEnricher{err: errors.New("model unavailable")})
	tm := wikihowTaskmap()

	m.Poll(context.Background(), tm)
	m.Wait()

	lease, err := store.GetLease(context.Background(), tm.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StageNone, lease.State)
	assert.Nil(t, lease.Taskmap)
}

func TestPollOverBudgetJobReleasesLease(t *testing.T) {
	store := session.NewMemoryStore()
	m := newManager(t, store, &fakeEnricher{delay: time.Second})
	tm := wikihowTaskmap()

	m.Poll(context.Background(), tm)
	m.Wait()

	lease, err := store.GetLease(context.Background(), tm.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StageNone, lease.State)
}

func TestPollDoesNotMutateInput(t *testing.T) {
	store := session.NewMemoryStore()
	m := newManager(t, store, &fakeEnricher{})
	tm := wikihowTaskmap()

	m.Poll(context.Background(), tm)
	m.Wait()
	assert.Empty(t, tm.Description)
}

func TestDescribeCandidatesPublishesLeases(t *testing.T) {
	store := session.NewMemoryStore()
	enricher := &fakeEnricher{}
	m := newManager(t, store, enricher)

	require.NoError(t, store.PutLease(context.Background(), "tm-claimed",
		&session.StagedOutput{State: session.StageStarted}))

	m.DescribeCandidates([]session.Taskmap{
		{ID: "tm-bare", Title: "Bare Candidate"},
		{ID: "tm-described", Title: "Described", Description: "already written"},
		{ID: "tm-claimed", Title: "Claimed"},
	})
	m.Wait()

	lease, err := store.GetLease(context.Background(), "tm-bare")
	require.NoError(t, err)
	assert.Equal(t, session.StageEnded, lease.State)
	require.NotNil(t, lease.Taskmap)
	assert.Equal(t, "enriched description", lease.Taskmap.Description)

	// An existing description means there is nothing to generate.
	lease, err = store.GetLease(context.Background(), "tm-described")
	require.NoError(t, err)
	assert.Equal(t, session.StageNone, lease.State)

	// A claimed lease belongs to a full enrichment job already in flight.
	lease, err = store.GetLease(context.Background(), "tm-claimed")
	require.NoError(t, err)
	assert.Equal(t, session.StageStarted, lease.State)

	assert.EqualValues(t, 1, atomic.LoadInt32(&enricher.calls))
}

func TestDescribeCandidatesNoWorkLaunchesNoJob(t *testing.T) {
	store := session.NewMemoryStore()
	enricher := &fakeEnricher{}
	m := newManager(t, store, enricher)

	m.DescribeCandidates([]session.Taskmap{
		{ID: "tm-described", Description: "already written"},
		{Title: "never stored"},
	})
	m.Wait()
	assert.EqualValues(t, 0, atomic.LoadInt32(&enricher.calls))
}

type fakeWordsmith struct{}

func (fakeWordsmith) Description(_ context.Context, tm *session.Taskmap) (string, error) {
	return "A friendly walkthrough for " + tm.Title + ".", nil
}

func (fakeWordsmith) Summary(_ context.Context, _ *session.Taskmap) (string, error) {
	return "Quick and doable.", nil
}

func TestTaskmapEnricherFillsMissingFields(t *testing.T) {
	e := NewTaskmapEnricher(fakeWordsmith{})
	out, err := e.Enrich(context.Background(), wikihowTaskmap())
	require.NoError(t, err)
	assert.Equal(t, "A friendly walkthrough for Fix a Leaky Faucet.", out.Description)
	assert.Equal(t, "Quick and doable.", out.VoiceSummary)
}

func TestTaskmapEnricherKeepsExistingFields(t *testing.T) {
	tm := wikihowTaskmap()
	tm.Description = "already written"
	tm.VoiceSummary = "already summarized"

	e := NewTaskmapEnricher(fakeWordsmith{})
	out, err := e.Enrich(context.Background(), tm)
	require.NoError(t, err)
	assert.Equal(t, "already written", out.Description)
	assert.Equal(t, "already summarized", out.VoiceSummary)
}
