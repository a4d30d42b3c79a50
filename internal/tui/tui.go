// Package tui provides a Bubble Tea viewer for a project's session record.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/hookpilot/internal/report"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	skippedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	createdStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)

	kindSessionStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	kindCheckpointStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	kindRunStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	kindErrorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))
)

// ── Tab definitions ─────────────────

type tabID int

const (
	tabSummary tabID = iota
	tabFiles
	tabErrors
	tabAutomation
	tabTimeline
	tabCount
)

var tabNames = [tabCount]string{
	"Summary", "Files", "Errors", "Automation", "Timeline",
}

// ── Timeline event ───────────────────

type eventKind string

const (
	kindSession    eventKind = "SESSION"
	kindCheckpoint eventKind = "CKPT"
	kindBuild      eventKind = "BUILD"
	kindTest       eventKind = "TEST"
	kindError      eventKind = "ERROR"
)

type timelineEvent struct {
	ts   time.Time
	kind eventKind
	text string
}

// ── Model ────────────────────

// Model is the root Bubble Tea model.
type Model struct {
	report    *report.Report
	activeTab tabID
	viewports [tabCount]viewport.Model
	width     int
	height    int
	ready     bool
	sortAsc   bool
	timeline  []timelineEvent
	// Files tab: cursor position and expanded set
	fileCursor    int
	expandedFiles map[int]bool
}

// New creates a viewer for r.
func New(r *report.Report) Model {
	return Model{
		report:        r,
		expandedFiles: make(map[int]bool),
		timeline:      buildTimeline(r),
	}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case "1", "2", "3", "4", "5":
			m.activeTab = tabID(msg.String()[0] - '1')
		case "s":
			if m.activeTab == tabTimeline {
				m.sortAsc = !m.sortAsc
				m.rebuild(tabTimeline)
				m.viewports[tabTimeline].GotoTop()
			}
		case "up", "k":
			if m.activeTab == tabFiles && m.fileCursor > 0 {
				m.fileCursor--
				m.rebuild(tabFiles)
				return m, nil
			}
		case "down", "j":
			if m.activeTab == tabFiles && m.fileCursor < len(m.report.Files.ModifiedThisSession)-1 {
				m.fileCursor++
				m.rebuild(tabFiles)
				return m, nil
			}
		case "enter", " ":
			if m.activeTab == tabFiles && len(m.report.Files.ModifiedThisSession) > 0 {
				if m.expandedFiles[m.fileCursor] {
					delete(m.expandedFiles, m.fileCursor)
				} else {
					m.expandedFiles[m.fileCursor] = true
				}
				m.rebuild(tabFiles)
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  hookpilot  " + m.report.Root)

	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %d %s ", i+1, tabNames[i])
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	content := m.viewports[m.activeTab].View()

	hint := "  ←/→ tab  ↑/↓ scroll  1-5 jump  q quit"
	switch m.activeTab {
	case tabTimeline:
		dir := "newest first"
		if m.sortAsc {
			dir = "oldest first"
		}
		hint += "  s sort (" + dir + ")"
	case tabFiles:
		hint += "  ↑/↓ select  enter details"
	}
	pct := fmt.Sprintf("%3.0f%%", m.viewports[m.activeTab].ScrollPercent()*100)
	pad := m.width - lipgloss.Width(hint) - len(pct) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(hint + strings.Repeat(" ", pad) + pct)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

// ── Viewport management ─────────────

func (m *Model) initViewports() {
	// title, tab row and status bar take one row each
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		vp := viewport.New(m.width, vpHeight)
		vp.SetContent(m.renderTab(i))
		m.viewports[i] = vp
	}
}

func (m *Model) rebuild(t tabID) {
	m.viewports[t].SetContent(m.renderTab(t))
}

// ── Tab renderers ─────────────

func (m *Model) renderTab(t tabID) string {
	switch t {
	case tabSummary:
		return m.renderSummary()
	case tabFiles:
		return m.renderFiles()
	case tabErrors:
		return m.renderErrors()
	case tabAutomation:
		return m.renderAutomation()
	case tabTimeline:
		return m.renderTimeline()
	}
	return ""
}

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func row(sb *strings.Builder, label, value string) {
	sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-20s", label)) + "  " + value + "\n")
}

func (m *Model) renderSummary() string {
	r := m.report
	var sb strings.Builder
	sb.WriteString(heading("Session"))
	row(&sb, "Mode:", string(r.Mode))
	row(&sb, "Session:", orDim(r.Session.ID))
	row(&sb, "Started:", when(&r.Session.StartedAt))
	row(&sb, "Branch:", orDim(r.Git.Branch))
	if r.Stack != nil {
		row(&sb, "Stack:", r.Stack.String())
	}

	sb.WriteString(heading("Thresholds"))
	row(&sb, "Since checkpoint:", fmt.Sprintf("%d / %d", r.Thresholds.SinceCheckpoint, r.Thresholds.CheckpointFiles))
	row(&sb, "Since build:", fmt.Sprintf("%d / %d", r.Thresholds.SinceBuild, r.Thresholds.BuildFiles))
	row(&sb, "Commits since merge:", fmt.Sprintf("%d", r.Git.CommitsSinceMerge))

	sb.WriteString(heading("Counts"))
	row(&sb, "Files this session:", fmt.Sprintf("%d", len(r.Files.ModifiedThisSession)))
	row(&sb, "Created:", fmt.Sprintf("%d", len(r.Files.CreatedThisSession)))
	row(&sb, "Error signatures:", fmt.Sprintf("%d", len(r.Errors)))
	return sb.String()
}

func (m *Model) renderFiles() string {
	files := m.report.Files
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Files changed this session (%d)", len(files.ModifiedThisSession))))
	if len(files.ModifiedThisSession) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	created := toSet(files.CreatedThisSession)
	pending := toSet(files.ModifiedSinceCheckpoint)
	unbuilt := toSet(files.ModifiedSinceBuild)

	for i, p := range files.ModifiedThisSession {
		icon := dimStyle.Render("○ ")
		if pending[p] {
			icon = kindCheckpointStyle.Render("◈ ")
		}
		toggle := dimStyle.Render("  ▶ ")
		if m.expandedFiles[i] {
			toggle = dimStyle.Render("  ▼ ")
		}
		line := toggle + icon + p
		if created[p] {
			line += "  " + createdStyle.Render("new")
		}
		if i == m.fileCursor {
			line = selectedRowStyle.Width(m.width - 2).Render(line)
		}
		sb.WriteString(line + "\n")

		if m.expandedFiles[i] {
			sb.WriteString(dimStyle.Render(fmt.Sprintf("        pending checkpoint: %s   pending build: %s",
				yesNo(pending[p]), yesNo(unbuilt[p]))) + "\n")
		}
	}
	return sb.String()
}

func (m *Model) renderErrors() string {
	var sb strings.Builder
	errs := m.report.Errors
	sb.WriteString(heading(fmt.Sprintf("Failure signatures (%d)", len(errs))))
	if len(errs) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	for _, e := range errs {
		line := fmt.Sprintf("  %4dx  %s  %s", e.Count, timeStyle.Render(e.LastSeen.Format("15:04:05")), e.Signature)
		if e.Critical {
			line += "  " + criticalStyle.Render("CRITICAL")
		}
		if e.Skipped {
			line += "  " + skippedStyle.Render("SKIPPED")
		}
		sb.WriteString(line + "\n\n")
	}
	return sb.String()
}

func (m *Model) renderAutomation() string {
	a := m.report.Automation
	var sb strings.Builder
	sb.WriteString(heading("Runs"))
	row(&sb, "Last checkpoint:", when(m.report.Git.LastCheckpointAt))
	row(&sb, "Last build:", when(a.LastBuildRunAt))
	row(&sb, "Last tests:", when(a.LastTestRunAt))
	row(&sb, "Consecutive failures:", fmt.Sprintf("%d", a.ConsecutiveFailures))

	sb.WriteString(heading("Failures by family"))
	if len(a.FailuresByFamily) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
	} else {
		fams := make([]string, 0, len(a.FailuresByFamily))
		for f := range a.FailuresByFamily {
			fams = append(fams, f)
		}
		sort.Strings(fams)
		for _, f := range fams {
			row(&sb, f+":", fmt.Sprintf("%d", a.FailuresByFamily[f]))
		}
	}
	if len(a.SkippedFamilies) > 0 {
		sb.WriteString(heading("Given up this session"))
		for _, f := range a.SkippedFamilies {
			sb.WriteString("  " + skippedStyle.Render(f) + "\n")
		}
	}
	return sb.String()
}

func (m *Model) renderTimeline() string {
	var sb strings.Builder

	dir := "newest first"
	if m.sortAsc {
		dir = "oldest first"
	}
	sb.WriteString(heading(fmt.Sprintf("Timeline (%s)", dir)))

	events := make([]timelineEvent, len(m.timeline))
	copy(events, m.timeline)
	if m.sortAsc {
		sort.SliceStable(events, func(i, j int) bool { return events[i].ts.Before(events[j].ts) })
	} else {
		sort.SliceStable(events, func(i, j int) bool { return events[i].ts.After(events[j].ts) })
	}

	if len(events) == 0 {
		sb.WriteString(dimStyle.Render("  (nothing recorded yet)") + "\n")
		return sb.String()
	}

	for _, ev := range events {
		ts := timeStyle.Render(ev.ts.Format("01-02 15:04:05"))
		style := kindRunStyle
		switch ev.kind {
		case kindSession:
			style = kindSessionStyle
		case kindCheckpoint:
			style = kindCheckpointStyle
		case kindError:
			style = kindErrorStyle
		}
		badge := style.Render(fmt.Sprintf("  %-8s", string(ev.kind)))
		sb.WriteString(ts + badge + "  " + ev.text + "\n\n")
	}
	return sb.String()
}

// ── Helpers ─────────────

func buildTimeline(r *report.Report) []timelineEvent {
	var events []timelineEvent
	add := func(t *time.Time, k eventKind, text string) {
		if t == nil || t.IsZero() {
			return
		}
		events = append(events, timelineEvent{ts: *t, kind: k, text: text})
	}
	add(&r.Session.StartedAt, kindSession, "session "+r.Session.ID+" started")
	add(r.Git.LastCheckpointAt, kindCheckpoint, "last checkpoint")
	add(r.Automation.LastBuildRunAt, kindBuild, "last successful build")
	add(r.Automation.LastTestRunAt, kindTest, "last successful test run")
	for _, e := range r.Errors {
		e := e
		add(&e.LastSeen, kindError, fmt.Sprintf("%s (%dx)", e.Signature, e.Count))
	}
	return events
}

func when(t *time.Time) string {
	if t == nil || t.IsZero() {
		return dimStyle.Render("never")
	}
	return t.Format("2006-01-02 15:04:05 MST")
}

func orDim(s string) string {
	if s == "" {
		return dimStyle.Render("(none)")
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

// Run starts the viewer for r.
func Run(r *report.Report) error {
	p := tea.NewProgram(New(r), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
