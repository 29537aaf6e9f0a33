// Package auditui provides the Bubble Tea live audit interface.
package auditui

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/paranoid/internal/audit"
	"github.com/verte-zerg/paranoid/internal/compliance"
	"github.com/verte-zerg/paranoid/internal/model"
	"github.com/verte-zerg/paranoid/internal/platform"
	"github.com/verte-zerg/paranoid/internal/stats"
)

const (
	tabSummary = iota
	tabReport
	tabFrequencies
	tabCompliance
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
)

// Runner executes one audit, reporting stage changes to observe.
type Runner func(observe func(model.Stage)) (audit.Detail, error)

// AuditorRunner adapts an auditor factory to a Runner.
func AuditorRunner(src platform.Provider, req model.AuditRequest, opts ...audit.Option) Runner {
	return func(observe func(model.Stage)) (audit.Detail, error) {
		all := append(append([]audit.Option{}, opts...), audit.WithObserver(observe))
		return audit.New(src, all...).RunDetailed(req)
	}
}

type stageMsg struct {
	stage model.Stage
}

type doneMsg struct {
	detail audit.Detail
	err    error
}

// Model implements the Bubble Tea audit UI.
type Model struct {
	runner Runner
	custom []compliance.Framework

	events  chan tea.Msg
	running bool
	stage   model.Stage
	detail  audit.Detail
	err     error
	reveal  bool

	spinner   spinner.Model
	tabs      []string
	activeTab int
	viewports []viewport.Model
	table     table.Model

	width  int
	height int
}

// NewModel constructs an audit UI model. custom frameworks are listed next
// to the built-ins on the compliance tab.
func NewModel(runner Runner, custom []compliance.Framework) *Model {
	m := &Model{
		runner:  runner,
		custom:  custom,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		tabs:    []string{"Summary", "Report", "Frequencies", "Compliance"},
	}
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.table = table.New(table.WithColumns(complianceColumns()), table.WithHeight(8))
	m.table.SetStyles(tableStyles())
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start())
}

// Detail returns the last finished audit and its error. The caller owns the
// password afterwards.
func (m *Model) Detail() (audit.Detail, error) {
	return m.detail, m.err
}

func (m *Model) start() tea.Cmd {
	if m.running || m.runner == nil {
		return nil
	}
	m.discard()
	m.running = true
	m.stage = model.StageIdle
	m.err = nil
	events := make(chan tea.Msg, int(model.StageDone)+2)
	m.events = events
	runner := m.runner
	go func() {
		d, err := runner(func(s model.Stage) {
			events <- stageMsg{stage: s}
		})
		events <- doneMsg{detail: d, err: err}
		close(events)
	}()
	return waitForEvent(events)
}

func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

// discard wipes the password of the previous run.
func (m *Model) discard() {
	if m.detail.Result != nil {
		platform.Wipe(m.detail.Result.Password)
	}
	m.detail = audit.Detail{}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case stageMsg:
		m.stage = msg.stage
		return m, waitForEvent(m.events)
	case doneMsg:
		m.running = false
		m.detail = msg.detail
		m.err = msg.err
		if msg.detail.Result != nil {
			m.stage = msg.detail.Result.Stage
		}
		m.renderTabContents()
		return m, nil
	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "left", "h", "shift+tab":
		m.moveTab(-1)
		return m, nil
	case "right", "l", "tab":
		m.moveTab(1)
		return m, nil
	case "s":
		m.reveal = !m.reveal
		m.renderTabContents()
		return m, nil
	case "r":
		if m.running {
			return m, nil
		}
		return m, tea.Batch(m.spinner.Tick, m.start())
	}
	if m.activeTab == tabCompliance {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderTabs(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = max(lipgloss.Height(activeNavStyle.Render("X")), 1)
	footerHeight = 1
	if m.err != nil {
		footerHeight++
	}
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.table.SetWidth(m.width)
	m.table.SetHeight(max(bodyHeight-1, 1))
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	m.activeTab = (m.activeTab + delta + count) % count
	if m.activeTab == tabCompliance {
		m.table.Focus()
	} else {
		m.table.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderFooter() string {
	help := headerStyle.Render("Nav: left/right  Scroll: up/down  Reveal: s  Rerun: r  Quit: q")
	if m.err != nil {
		return help + "\n" + errorStyle.Render(fmt.Sprintf("audit failed (status %d): %v", audit.Status(m.err), m.err))
	}
	return help
}

func (m *Model) renderBody() string {
	if m.running || m.detail.Result == nil || m.err != nil {
		return m.renderProgress()
	}
	if m.activeTab == tabCompliance {
		return m.table.View()
	}
	return m.viewports[m.activeTab].View()
}

func (m *Model) renderProgress() string {
	lines := []string{"Auditing generator", ""}
	for s := model.StageGenerate; s < model.StageDone; s++ {
		switch {
		case m.stage > s:
			lines = append(lines, passStyle.Render("[x] ")+s.String())
		case m.stage == s && m.running:
			lines = append(lines, m.spinner.View()+" "+s.String())
		default:
			lines = append(lines, pendingStyle.Render("[ ] "+s.String()))
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderTabContents() {
	res := m.detail.Result
	if res == nil || m.err != nil {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabSummary].SetContent(m.renderSummary(width))

	var buf bytes.Buffer
	if err := stats.RenderAudit(&buf, res, stats.ReportOptions{ShowPassword: m.reveal}); err != nil {
		m.viewports[tabReport].SetContent(fmt.Sprintf("Failed to render report: %v", err))
	} else {
		m.viewports[tabReport].SetContent(strings.TrimRight(buf.String(), "\n"))
	}

	buf.Reset()
	cs := symbolsOf(m.detail.Chi)
	err := stats.PlotFrequencies(&buf, m.detail.Chi, cs, stats.BarWidthFor(width), 0)
	if err == nil {
		err = stats.RenderDeviations(&buf, stats.TopDeviations(m.detail.Chi, 5))
	}
	if err != nil {
		m.viewports[tabFrequencies].SetContent(fmt.Sprintf("Failed to render frequencies: %v", err))
	} else {
		m.viewports[tabFrequencies].SetContent(strings.TrimRight(buf.String(), "\n"))
	}

	frameworks := append(compliance.Builtins(), m.custom...)
	m.table.SetRows(complianceRows(compliance.CheckAll(frameworks, compliance.SubjectOf(res))))
}

func (m *Model) renderSummary(width int) string {
	res := m.detail.Result
	password := strings.Repeat("*", len(res.Password))
	if m.reveal {
		password = string(res.Password)
	}
	cards := []string{
		metricCard("Entropy", fmt.Sprintf("%.1f bits", res.TotalEntropy)),
		metricCard("Chi2 p", fmt.Sprintf("%.4f", res.ChiPValue)),
		metricCard("Serial r", fmt.Sprintf("%.4f", res.SerialCorrelation)),
		metricCard("Duplicates", fmt.Sprintf("%d", res.Duplicates)),
		metricCard("Patterns", fmt.Sprintf("%d", res.PatternIssues)),
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	if lipgloss.Width(row) > width {
		row = lipgloss.JoinVertical(lipgloss.Left, cards...)
	}
	overall := failStyle.Render("FAIL")
	if res.AllPass {
		overall = passStyle.Render("PASS")
	}
	lines := []string{
		"Password: " + password,
		"SHA-256:  " + truncateLine(res.SHA256Hex, max(width-10, 8)),
		"",
		row,
		"",
		"Overall: " + overall,
	}
	return strings.Join(lines, "\n")
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func complianceColumns() []table.Column {
	return []table.Column{
		{Title: "Framework", Width: 18},
		{Title: "Result", Width: 6},
		{Title: "Missing", Width: 48},
	}
}

func complianceRows(verdicts []compliance.Verdict) []table.Row {
	rows := make([]table.Row, 0, len(verdicts))
	for _, v := range verdicts {
		result := "FAIL"
		if v.Compliant {
			result = "PASS"
		}
		rows = append(rows, table.Row{v.Framework.Name, result, strings.Join(v.Failures, "; ")})
	}
	return rows
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

// symbolsOf returns the charset symbols in a frequency table, sorted.
func symbolsOf(res stats.ChiSquaredResult) string {
	var seen [256]bool
	for sym := range res.Frequencies {
		seen[sym] = true
	}
	var b strings.Builder
	for i, ok := range seen {
		if ok {
			b.WriteByte(byte(i))
		}
	}
	return b.String()
}
