// Package section renders one dashboard section: its title, its item rows,
// and the loading, empty, and error presentations.
package section

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"monodash/internal/fetch"
	"monodash/internal/model"
	"monodash/internal/theme"
)

// Model is the view component for a single dashboard section.
type Model struct {
	section model.Section
	state   fetch.SectionState
	spinner spinner.Model
	cursor  int
	focused bool
	width   int
	height  int
}

// New creates a section view.
func New(section model.Section, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{
		section: section,
		state:   fetch.SectionState{Section: section, Phase: fetch.PhaseLoading},
		spinner: sp,
		width:   width,
		height:  height,
	}
}

// Init starts the loading spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Section returns which dashboard section this view renders.
func (m Model) Section() model.Section {
	return m.section
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Focus gives this section keyboard focus.
func (m *Model) Focus() {
	m.focused = true
}

// Blur removes keyboard focus.
func (m *Model) Blur() {
	m.focused = false
}

// Focused reports whether the section has keyboard focus.
func (m Model) Focused() bool {
	return m.focused
}

// SetState installs a new section state and clamps the cursor to it.
func (m *Model) SetState(st fetch.SectionState) {
	m.state = st
	m.clampCursor()
}

// State returns the currently rendered state.
func (m Model) State() fetch.SectionState {
	return m.state
}

// SelectedItem returns the item under the cursor, if any.
func (m Model) SelectedItem() (model.Item, bool) {
	if len(m.state.Items) == 0 || m.cursor >= len(m.state.Items) {
		return model.Item{}, false
	}
	return m.state.Items[m.cursor], true
}

// MoveDown advances the cursor.
func (m *Model) MoveDown() {
	m.cursor++
	m.clampCursor()
}

// MoveUp retreats the cursor.
func (m *Model) MoveUp() {
	m.cursor--
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.state.Items) {
		m.cursor = len(m.state.Items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Update handles spinner ticks; all other input is routed by the root model
// through the cursor methods.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(spinner.TickMsg); ok && m.state.Phase == fetch.PhaseLoading {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the bordered section.
func (m Model) View() string {
	style := theme.SectionStyle
	if m.focused {
		style = theme.FocusedSectionStyle
	}

	frameW, frameH := style.GetHorizontalFrameSize(), style.GetVerticalFrameSize()
	innerWidth := m.width - frameW
	innerHeight := m.height - frameH
	if innerWidth < 1 || innerHeight < 1 {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.titleLine(innerWidth))
	b.WriteString("\n")

	bodyHeight := innerHeight - 1
	switch m.state.Phase {
	case fetch.PhaseLoading:
		b.WriteString(m.spinner.View() + " Fetching...")
	case fetch.PhaseError:
		b.WriteString(m.errorBody(innerWidth, bodyHeight))
	case fetch.PhaseEmpty:
		b.WriteString(theme.EmptyStyle.Render("Nothing here. Go outside."))
	case fetch.PhaseData:
		b.WriteString(m.itemRows(innerWidth, bodyHeight))
	}

	return style.
		Width(innerWidth).
		Height(innerHeight).
		Render(b.String())
}

// titleLine renders the section heading with count and offline badge.
func (m Model) titleLine(width int) string {
	title := m.section.Title()
	if n := len(m.state.Items); n > 0 {
		title = fmt.Sprintf("%s (%d)", title, n)
	}
	line := theme.TitleStyle.Render(title)

	if m.state.FromCache {
		line += " " + theme.OfflineStyle.Render("cached")
	} else if len(m.state.Errors) > 0 && m.state.Phase == fetch.PhaseData {
		line += " " + theme.ErrorStyle.Render("partial")
	}
	return truncate(line, width)
}

// errorBody lists what failed, keeping any stale items visible below.
func (m Model) errorBody(width, height int) string {
	var lines []string
	for _, e := range m.state.Errors {
		lines = append(lines, theme.ErrorStyle.Render(
			truncate(fmt.Sprintf("%s: %s", e.Source, e.Message), width),
		))
	}
	if len(m.state.Items) > 0 {
		remaining := height - len(lines)
		if remaining > 0 {
			lines = append(lines, m.itemRows(width, remaining))
		}
	}
	return strings.Join(lines, "\n")
}

// itemRows renders the visible window of item rows around the cursor.
func (m Model) itemRows(width, height int) string {
	items := m.state.Items
	if height < 1 {
		height = 1
	}

	start := 0
	if m.cursor >= height {
		start = m.cursor - height + 1
	}
	end := start + height
	if end > len(items) {
		end = len(items)
	}

	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, m.renderRow(items[i], i == m.cursor, width))
	}
	return strings.Join(rows, "\n")
}

// renderRow formats one item: icon, key, status, title, then context.
func (m Model) renderRow(it model.Item, selected bool, width int) string {
	cursor := "  "
	if selected && m.focused {
		cursor = "> "
	}

	status := theme.StatusStyle(it.Status).Render(string(it.Status))
	parts := []string{cursor + it.Icon(), it.Key, status}
	if it.Priority != "" && it.Kind != model.KindGitLabMR && it.Kind != model.KindGitHubPR {
		parts = append(parts, theme.PriorityStyle(it.Priority).Render(it.Priority))
	}
	parts = append(parts, it.Title)
	if it.Context != "" {
		parts = append(parts, theme.HelpStyle.Render("("+it.Context+")"))
	}

	row := strings.Join(parts, " ")
	if selected && m.focused {
		row = lipgloss.NewStyle().Bold(true).Render(row)
	}
	return truncate(row, width)
}

// truncate cuts a rendered line to the given display width.
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	// Trim rune by rune; styled lines rarely overflow by much.
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}
