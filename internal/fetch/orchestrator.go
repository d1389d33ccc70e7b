// Package fetch coordinates concurrent refreshes across every usable
// source and owns the authoritative per-section state the UI renders.
package fetch

import (
	"context"
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"monodash/internal/model"
	"monodash/internal/source"
)

// SectionResultMsg is a tea.Msg delivered when a section refresh settles.
type SectionResultMsg struct {
	State SectionState
}

// sourceResult is one source's contribution to a refresh.
type sourceResult struct {
	name  string
	items []model.Item
	err   error
}

// Orchestrator fans a section refresh out across that section's usable
// sources, joins the results, and settles exactly one state per refresh.
// Every refresh carries a generation number; when refreshes overlap, only
// the most recently started one is allowed to settle, so stale results can
// never overwrite newer ones.
type Orchestrator struct {
	registry *source.Registry

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	gens   map[model.Section]uint64
	states map[model.Section]SectionState

	resultCh chan SectionResultMsg
}

// NewOrchestrator creates an orchestrator over the given registry.
func NewOrchestrator(registry *source.Registry) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		registry: registry,
		ctx:      ctx,
		cancel:   cancel,
		gens:     make(map[model.Section]uint64),
		states:   make(map[model.Section]SectionState),
		resultCh: make(chan SectionResultMsg, 16),
	}
}

// Close cancels every in-flight refresh.
func (o *Orchestrator) Close() {
	o.cancel()
}

// Seed installs cached items as the section's initial state, so the UI has
// something to show before the first live refresh settles.
func (o *Orchestrator) Seed(section model.Section, items []model.Item, fetchedAt time.Time) {
	sorted := append([]model.Item(nil), items...)
	model.SortItems(sorted)

	phase := PhaseData
	if len(sorted) == 0 {
		phase = PhaseEmpty
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.states[section] = SectionState{
		Section:   section,
		Phase:     phase,
		Items:     sorted,
		FromCache: true,
		UpdatedAt: fetchedAt,
	}
}

// Refresh starts a new refresh generation for the section. The section
// enters PhaseLoading immediately; the result arrives later as a
// SectionResultMsg via WaitForResult.
func (o *Orchestrator) Refresh(section model.Section) {
	o.mu.Lock()
	o.gens[section]++
	gen := o.gens[section]

	st := o.states[section]
	st.Section = section
	st.Phase = PhaseLoading
	o.states[section] = st
	o.mu.Unlock()

	go o.run(section, gen)
}

// RefreshAll starts a refresh for every section.
func (o *Orchestrator) RefreshAll() {
	for _, section := range model.Sections {
		o.Refresh(section)
	}
}

// State returns a copy of the section's current state.
func (o *Orchestrator) State(section model.Section) SectionState {
	o.mu.Lock()
	defer o.mu.Unlock()

	st, ok := o.states[section]
	if !ok {
		return SectionState{Section: section, Phase: PhaseLoading}
	}
	return copyState(st)
}

// WaitForResult returns a tea.Cmd that blocks until the next refresh
// settles. The app re-issues it after every SectionResultMsg.
func (o *Orchestrator) WaitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-o.resultCh:
			return msg
		case <-o.ctx.Done():
			return nil
		}
	}
}

// run executes one refresh generation: fan out, join, settle once.
func (o *Orchestrator) run(section model.Section, gen uint64) {
	sources := o.registry.Available(o.ctx, section)

	results := make([]sourceResult, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src source.Source) {
			defer wg.Done()
			items, err := src.Fetch(o.ctx)
			results[i] = sourceResult{name: src.Name(), items: items, err: err}
		}(i, src)
	}
	wg.Wait()

	o.settle(section, gen, results)
}

// settle merges one generation's results into the section state. A
// generation that is no longer current is discarded whole.
func (o *Orchestrator) settle(section model.Section, gen uint64, results []sourceResult) {
	var merged []model.Item
	var errs []SourceError
	for _, res := range results {
		if res.err != nil {
			log.Printf("fetch: %s %s failed: %v", section, res.name, res.err)
			errs = append(errs, SourceError{
				Source:  res.name,
				Message: res.err.Error(),
			})
			continue
		}
		merged = append(merged, res.items...)
	}
	model.SortItems(merged)

	allFailed := len(results) > 0 && len(errs) == len(results)

	o.mu.Lock()
	if gen != o.gens[section] {
		o.mu.Unlock()
		log.Printf("fetch: dropping stale %s result (generation %d)", section, gen)
		return
	}

	st := o.states[section]
	st.Section = section
	st.Errors = errs
	switch {
	case allFailed:
		// Keep whatever data was on screen; the error renders
		// alongside it.
		st.Phase = PhaseError
	case len(merged) > 0:
		st.Phase = PhaseData
		st.Items = merged
		st.FromCache = false
		st.UpdatedAt = time.Now()
	default:
		st.Phase = PhaseEmpty
		st.Items = nil
		st.FromCache = false
		st.UpdatedAt = time.Now()
	}
	o.states[section] = st
	snapshot := copyState(st)
	o.mu.Unlock()

	select {
	case o.resultCh <- SectionResultMsg{State: snapshot}:
	case <-o.ctx.Done():
	}
}
