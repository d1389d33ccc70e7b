package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monodash/internal/model"
	"monodash/internal/source"
)

// stubSource is a controllable source for orchestrator tests.
type stubSource struct {
	name    string
	section model.Section

	mu    sync.Mutex
	items []model.Item
	err   error
	delay time.Duration
	gate  chan struct{}
}

func (s *stubSource) Kind() model.Kind                  { return model.KindGitLabMR }
func (s *stubSource) Section() model.Section            { return s.section }
func (s *stubSource) Name() string                      { return s.name }
func (s *stubSource) IsAvailable() bool                 { return true }
func (s *stubSource) CheckAuth(ctx context.Context) bool { return true }

func (s *stubSource) Fetch(ctx context.Context) ([]model.Item, error) {
	s.mu.Lock()
	items, err, delay, gate := s.items, s.err, s.delay, s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return items, err
}

func (s *stubSource) set(items []model.Item, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items, s.err = items, err
}

func item(key string, open bool) model.Item {
	status := model.StatusOpen
	if !open {
		status = model.StatusMerged
	}
	return model.Item{
		Kind:   model.KindGitLabMR,
		Key:    key,
		Title:  "item " + key,
		Status: status,
		URL:    "https://gitlab.example.com/mr/" + key,
	}
}

func newOrchestrator(t *testing.T, sources ...source.Source) *Orchestrator {
	t.Helper()
	registry := source.NewRegistry()
	for _, src := range sources {
		registry.Register(src)
	}
	o := NewOrchestrator(registry)
	t.Cleanup(o.Close)
	return o
}

// drain consumes result messages until the section settles out of
// PhaseLoading, or the deadline passes.
func drain(t *testing.T, o *Orchestrator, section model.Section) SectionState {
	t.Helper()
	require.Eventually(t, func() bool {
		return o.State(section).Phase != PhaseLoading
	}, 5*time.Second, 10*time.Millisecond)
	return o.State(section)
}

func TestRefreshSettlesData(t *testing.T) {
	gitlab := &stubSource{name: "glab", section: model.SectionReviews}
	gitlab.set([]model.Item{item("!2", true), item("!1", false)}, nil)
	github := &stubSource{name: "gh", section: model.SectionReviews}
	github.set([]model.Item{item("#3", true)}, nil)

	o := newOrchestrator(t, gitlab, github)
	o.Refresh(model.SectionReviews)

	st := drain(t, o, model.SectionReviews)
	assert.Equal(t, PhaseData, st.Phase)
	require.Len(t, st.Items, 3)

	// Open items first, then by key.
	assert.Equal(t, "!2", st.Items[0].Key)
	assert.Equal(t, "#3", st.Items[1].Key)
	assert.Equal(t, "!1", st.Items[2].Key)
	assert.Empty(t, st.Errors)
	assert.False(t, st.FromCache)
}

func TestRefreshEntersLoadingImmediately(t *testing.T) {
	gate := make(chan struct{})
	slow := &stubSource{name: "glab", section: model.SectionReviews, gate: gate}
	slow.set([]model.Item{item("!1", true)}, nil)

	o := newOrchestrator(t, slow)
	o.Refresh(model.SectionReviews)

	assert.Equal(t, PhaseLoading, o.State(model.SectionReviews).Phase)

	close(gate)
	st := drain(t, o, model.SectionReviews)
	assert.Equal(t, PhaseData, st.Phase)
}

func TestPartialFailureIsStillData(t *testing.T) {
	ok := &stubSource{name: "glab", section: model.SectionReviews}
	ok.set([]model.Item{item("!1", true)}, nil)
	broken := &stubSource{name: "gh", section: model.SectionReviews}
	broken.set(nil, &source.TransientError{Name: "gh", Err: errors.New("network down")})

	o := newOrchestrator(t, ok, broken)
	o.Refresh(model.SectionReviews)

	st := drain(t, o, model.SectionReviews)
	assert.Equal(t, PhaseData, st.Phase)
	require.Len(t, st.Items, 1)
	require.Len(t, st.Errors, 1)
	assert.True(t, st.Failed("gh"))
	assert.False(t, st.Failed("glab"))
}

func TestAllFailedIsError(t *testing.T) {
	a := &stubSource{name: "glab", section: model.SectionReviews}
	a.set(nil, errors.New("boom"))
	b := &stubSource{name: "gh", section: model.SectionReviews}
	b.set(nil, errors.New("also boom"))

	o := newOrchestrator(t, a, b)
	o.Refresh(model.SectionReviews)

	st := drain(t, o, model.SectionReviews)
	assert.Equal(t, PhaseError, st.Phase)
	assert.Len(t, st.Errors, 2)
}

func TestAllFailedKeepsPreviousItems(t *testing.T) {
	src := &stubSource{name: "glab", section: model.SectionReviews}
	src.set([]model.Item{item("!1", true)}, nil)

	o := newOrchestrator(t, src)
	o.Refresh(model.SectionReviews)
	st := drain(t, o, model.SectionReviews)
	require.Equal(t, PhaseData, st.Phase)

	src.set(nil, errors.New("offline"))
	o.Refresh(model.SectionReviews)
	st = drain(t, o, model.SectionReviews)

	assert.Equal(t, PhaseError, st.Phase)
	require.Len(t, st.Items, 1)
	assert.Equal(t, "!1", st.Items[0].Key)
}

func TestNoItemsIsEmpty(t *testing.T) {
	src := &stubSource{name: "glab", section: model.SectionReviews}
	src.set(nil, nil)

	o := newOrchestrator(t, src)
	o.Refresh(model.SectionReviews)

	st := drain(t, o, model.SectionReviews)
	assert.Equal(t, PhaseEmpty, st.Phase)
	assert.Empty(t, st.Items)
	assert.Empty(t, st.Errors)
}

func TestNoUsableSourcesIsEmpty(t *testing.T) {
	o := newOrchestrator(t)
	o.Refresh(model.SectionWork)

	st := drain(t, o, model.SectionWork)
	assert.Equal(t, PhaseEmpty, st.Phase)
}

func TestStaleGenerationIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	src := &stubSource{name: "glab", section: model.SectionReviews, gate: gate}
	src.set([]model.Item{item("!1", true)}, nil)

	o := newOrchestrator(t, src)

	// First refresh blocks on the gate.
	o.Refresh(model.SectionReviews)

	// Second refresh supersedes it with different data.
	src.set([]model.Item{item("!2", true)}, nil)
	o.Refresh(model.SectionReviews)

	// Release both in-flight fetches; only the newer generation may
	// settle, whichever order they finish in.
	close(gate)

	st := drain(t, o, model.SectionReviews)
	require.Len(t, st.Items, 1)
	assert.Equal(t, "!2", st.Items[0].Key)

	// Give the stale generation time to (incorrectly) settle, then
	// confirm the state is unchanged.
	time.Sleep(50 * time.Millisecond)
	st = o.State(model.SectionReviews)
	require.Len(t, st.Items, 1)
	assert.Equal(t, "!2", st.Items[0].Key)
}

func TestSectionsAreIndependent(t *testing.T) {
	reviews := &stubSource{name: "glab", section: model.SectionReviews}
	reviews.set([]model.Item{item("!1", true)}, nil)
	work := &stubSource{name: "todoist", section: model.SectionWork}
	work.set(nil, errors.New("todoist down"))

	o := newOrchestrator(t, reviews, work)
	o.RefreshAll()

	reviewsState := drain(t, o, model.SectionReviews)
	workState := drain(t, o, model.SectionWork)

	assert.Equal(t, PhaseData, reviewsState.Phase)
	assert.Equal(t, PhaseError, workState.Phase)
}

func TestSeedFromCache(t *testing.T) {
	o := newOrchestrator(t)
	fetchedAt := time.Now().Add(-time.Minute)
	o.Seed(model.SectionWork, []model.Item{item("TD-2", true), item("TD-1", false)}, fetchedAt)

	st := o.State(model.SectionWork)
	assert.Equal(t, PhaseData, st.Phase)
	assert.True(t, st.FromCache)
	assert.Equal(t, fetchedAt, st.UpdatedAt)
	require.Len(t, st.Items, 2)
	assert.Equal(t, "TD-2", st.Items[0].Key)
}

func TestWaitForResultDeliversSettledState(t *testing.T) {
	src := &stubSource{name: "glab", section: model.SectionReviews}
	src.set([]model.Item{item("!1", true)}, nil)

	o := newOrchestrator(t, src)
	o.Refresh(model.SectionReviews)

	msg := o.WaitForResult()()
	result, ok := msg.(SectionResultMsg)
	require.True(t, ok)
	assert.Equal(t, model.SectionReviews, result.State.Section)
	assert.Equal(t, PhaseData, result.State.Phase)
}

func TestStateReturnsCopies(t *testing.T) {
	src := &stubSource{name: "glab", section: model.SectionReviews}
	src.set([]model.Item{item("!1", true)}, nil)

	o := newOrchestrator(t, src)
	o.Refresh(model.SectionReviews)
	drain(t, o, model.SectionReviews)

	st := o.State(model.SectionReviews)
	st.Items[0].Key = "mutated"

	assert.Equal(t, "!1", o.State(model.SectionReviews).Items[0].Key)
}
