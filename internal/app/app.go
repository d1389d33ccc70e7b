// Package app holds the root Bubble Tea model: it wires the detection
// registry, the fetch orchestrator, the cache store, and the section views
// together and routes all keyboard input.
package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/browser"

	"monodash/internal/fetch"
	"monodash/internal/keys"
	"monodash/internal/model"
	"monodash/internal/source"
	"monodash/internal/store"
	"monodash/internal/ui"
	"monodash/internal/ui/section"
)

// cacheSeededMsg carries cached items loaded during startup.
type cacheSeededMsg struct {
	section   model.Section
	items     []model.Item
	fetchedAt time.Time
	fresh     bool
}

// detectionsMsg carries the initial probe results for the header summary.
type detectionsMsg struct {
	results map[string]source.DetectionResult
}

// openedMsg reports the outcome of an open-in-browser request.
type openedMsg struct {
	err error
}

// activeSectionMsg restores the last focused section from the prefs store.
type activeSectionMsg struct {
	section model.Section
}

// Model is the root Bubble Tea model.
type Model struct {
	layout       ui.Layout
	keys         *keys.KeyMap
	store        store.Store
	registry     *source.Registry
	orchestrator *fetch.Orchestrator

	sections map[model.Section]*section.Model
	active   model.Section

	detections map[string]source.DetectionResult
	cacheTTL   time.Duration
	statusNote string
	showHelp   bool
	ready      bool
}

// New creates the root application model.
func New(
	s store.Store,
	registry *source.Registry,
	orchestrator *fetch.Orchestrator,
	cacheTTL time.Duration,
) *Model {
	sections := make(map[model.Section]*section.Model, len(model.Sections))
	for _, sec := range model.Sections {
		v := section.New(sec, 80, 24)
		sections[sec] = &v
	}

	m := &Model{
		layout:       ui.NewLayout(80, 24),
		keys:         keys.DefaultKeyMap(),
		store:        s,
		registry:     registry,
		orchestrator: orchestrator,
		sections:     sections,
		active:       model.SectionReviews,
		cacheTTL:     cacheTTL,
	}
	m.sections[m.active].Focus()
	return m
}

// Init seeds each section from the cache, probes the sources, and starts
// the first refresh. Fresh cache hits render immediately; stale or missing
// sections go straight to loading.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.loadActiveSectionPref(),
		m.probeSources(),
		m.orchestrator.WaitForResult(),
	}
	for _, sec := range model.Sections {
		cmds = append(cmds, m.seedFromCache(sec))
		cmds = append(cmds, m.sections[sec].Init())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and routes keyboard input.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		left, right := m.layout.SectionWidths()
		height := m.layout.SectionHeight()
		m.sections[model.SectionReviews].SetSize(left, height)
		m.sections[model.SectionWork].SetSize(right, height)
		return m, nil

	case cacheSeededMsg:
		// Only seed if the section has not already settled a live
		// result; a slow cache read must not clobber fresh data.
		if m.sections[msg.section].State().Phase == fetch.PhaseLoading && len(msg.items) > 0 {
			m.orchestrator.Seed(msg.section, msg.items, msg.fetchedAt)
			m.sections[msg.section].SetState(m.orchestrator.State(msg.section))
		}
		if msg.fresh {
			return m, nil
		}
		m.orchestrator.Refresh(msg.section)
		m.sections[msg.section].SetState(m.orchestrator.State(msg.section))
		return m, nil

	case detectionsMsg:
		m.detections = msg.results
		return m, nil

	case activeSectionMsg:
		m.sections[m.active].Blur()
		m.active = msg.section
		m.sections[m.active].Focus()
		return m, nil

	case fetch.SectionResultMsg:
		st := msg.State
		m.sections[st.Section].SetState(st)
		cmds := []tea.Cmd{m.orchestrator.WaitForResult()}
		if st.Phase == fetch.PhaseData || st.Phase == fetch.PhaseEmpty {
			cmds = append(cmds, m.persistSection(st))
		}
		if st.Phase == fetch.PhaseError || len(st.Errors) > 0 {
			cmds = append(cmds, m.recordErrors(st))
		}
		return m, tea.Batch(cmds...)

	case openedMsg:
		if msg.err != nil {
			m.statusNote = fmt.Sprintf("open failed: %v", msg.err)
		} else {
			m.statusNote = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmds []tea.Cmd
		for _, sec := range model.Sections {
			v, cmd := m.sections[sec].Update(msg)
			*m.sections[sec] = v
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.orchestrator.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.NextSection):
		m.sections[m.active].Blur()
		m.active = nextSection(m.active)
		m.sections[m.active].Focus()
		return m, m.persistActiveSection()

	case key.Matches(msg, m.keys.Down):
		m.sections[m.active].MoveDown()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.sections[m.active].MoveUp()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		// A manual refresh also rechecks which sources are usable,
		// so a tool installed or logged in mid-session is picked up.
		m.registry.Invalidate()
		m.orchestrator.Refresh(m.active)
		m.sections[m.active].SetState(m.orchestrator.State(m.active))
		return m, tea.Batch(
			m.probeSources(),
			m.sections[m.active].Init(),
		)

	case key.Matches(msg, m.keys.Open):
		if it, ok := m.sections[m.active].SelectedItem(); ok {
			return m, openInBrowser(it.URL)
		}
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	}

	return m, nil
}

// View renders the full frame.
func (m *Model) View() string {
	if !m.ready {
		return "Starting...\n"
	}

	header := m.layout.RenderHeader("monodash", m.detectionSummary())
	left := m.sections[model.SectionReviews].View()
	right := m.sections[model.SectionWork].View()
	statusBar := m.layout.RenderStatusBar(m.statusLine())

	return m.layout.RenderFrame(header, left, right, statusBar)
}

// detectionSummary lists each probed source with a usable/unusable mark.
func (m *Model) detectionSummary() string {
	if len(m.detections) == 0 {
		return "detecting sources..."
	}

	var parts []string
	for _, sec := range model.Sections {
		for _, src := range m.registry.Sources(sec) {
			d, ok := m.detections[src.Name()]
			mark := "✗"
			if ok && d.Usable() {
				mark = "✓"
			}
			parts = append(parts, mark+src.Name())
		}
	}
	return strings.Join(parts, " ")
}

func (m *Model) statusLine() string {
	if m.statusNote != "" {
		return m.statusNote
	}
	if m.showHelp {
		var hints []string
		for _, group := range m.keys.FullHelp() {
			for _, b := range group {
				hints = append(hints, b.Help().Key+" "+b.Help().Desc)
			}
		}
		return strings.Join(hints, " · ")
	}

	var hints []string
	for _, b := range m.keys.ShortHelp() {
		hints = append(hints, b.Help().Key+" "+b.Help().Desc)
	}
	return strings.Join(hints, " · ")
}

// seedFromCache loads a section's cached items off the UI goroutine.
func (m *Model) seedFromCache(sec model.Section) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		items, fetchedAt, err := m.store.GetSection(ctx, sec)
		if err != nil {
			log.Printf("app: cache read for %s failed: %v", sec, err)
			return cacheSeededMsg{section: sec}
		}
		return cacheSeededMsg{
			section:   sec,
			items:     items,
			fetchedAt: fetchedAt,
			fresh:     store.Fresh(fetchedAt, m.cacheTTL),
		}
	}
}

// probeSources runs the availability and auth probes once, off the UI
// goroutine; results are cached by the registry.
func (m *Model) probeSources() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return detectionsMsg{results: m.registry.DetectAll(ctx)}
	}
}

// persistSection writes a settled live result back to the cache.
func (m *Model) persistSection(st fetch.SectionState) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := m.store.ReplaceSection(ctx, st.Section, st.Items, st.UpdatedAt); err != nil {
			log.Printf("app: caching %s failed: %v", st.Section, err)
		}
		return nil
	}
}

// recordErrors appends the refresh's source failures to the error log.
func (m *Model) recordErrors(st fetch.SectionState) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		for _, e := range st.Errors {
			if err := m.store.RecordFetchError(ctx, st.Section, e.Source, e.Message); err != nil {
				log.Printf("app: recording fetch error failed: %v", err)
			}
		}
		return nil
	}
}

// loadActiveSectionPref restores the last focused section.
func (m *Model) loadActiveSectionPref() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		val, err := m.store.GetPref(ctx, store.PrefActiveSection)
		if err != nil || val == "" {
			return nil
		}
		sec := model.Section(val)
		for _, known := range model.Sections {
			if sec == known {
				return activeSectionMsg{section: sec}
			}
		}
		return nil
	}
}

func (m *Model) persistActiveSection() tea.Cmd {
	active := m.active
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := m.store.SetPref(ctx, store.PrefActiveSection, string(active)); err != nil {
			log.Printf("app: saving active section failed: %v", err)
		}
		return nil
	}
}

// openInBrowser opens the item's URL with the platform opener.
func openInBrowser(url string) tea.Cmd {
	return func() tea.Msg {
		return openedMsg{err: browser.OpenURL(url)}
	}
}

func nextSection(cur model.Section) model.Section {
	for i, sec := range model.Sections {
		if sec == cur {
			return model.Sections[(i+1)%len(model.Sections)]
		}
	}
	return model.Sections[0]
}
