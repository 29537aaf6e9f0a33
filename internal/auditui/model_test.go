package auditui

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/paranoid/internal/audit"
	"github.com/verte-zerg/paranoid/internal/model"
	"github.com/verte-zerg/paranoid/internal/platform"
	"github.com/verte-zerg/paranoid/internal/stats"
)

func finishedDetail() audit.Detail {
	return audit.Detail{
		Result: &model.AuditResult{
			Password:       []byte("Zq9"),
			SHA256Hex:      "00ff",
			PasswordLength: 3,
			CharsetSize:    3,
			ChiPValue:      0.5,
			ChiPass:        true,
			SerialPass:     true,
			CollisionPass:  true,
			AllPass:        true,
			Stage:          model.StageDone,
		},
		Chi: stats.ChiSquaredResult{Frequencies: map[byte]int{'9': 1, 'Z': 1, 'q': 1}},
	}
}

func sized(m *Model) *Model {
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestViewEmptyWithoutSize(t *testing.T) {
	m := NewModel(nil, nil)
	if got := m.View(); got != "" {
		t.Fatalf("expected empty view before sizing, got %q", got)
	}
}

func TestProgressListsStages(t *testing.T) {
	m := sized(NewModel(nil, nil))
	m.running = true
	m.Update(stageMsg{stage: model.StageSerial})
	view := m.View()
	for _, stage := range []model.Stage{model.StageGenerate, model.StageChiSquared, model.StageSerial, model.StageCompliance} {
		if !strings.Contains(view, stage.String()) {
			t.Fatalf("expected stage %q in progress view", stage)
		}
	}
	if m.stage != model.StageSerial {
		t.Fatalf("expected stage %v, got %v", model.StageSerial, m.stage)
	}
}

func TestDoneMasksPasswordUntilRevealed(t *testing.T) {
	m := sized(NewModel(nil, nil))
	m.running = true
	m.Update(doneMsg{detail: finishedDetail()})
	if m.running {
		t.Fatalf("expected model to stop running")
	}
	view := m.View()
	if strings.Contains(view, "Zq9") {
		t.Fatalf("password shown before reveal")
	}
	if !strings.Contains(view, "***") || !strings.Contains(view, "PASS") {
		t.Fatalf("expected masked password and verdict, got %q", view)
	}
	m.Update(runes("s"))
	if !strings.Contains(m.View(), "Zq9") {
		t.Fatalf("expected password after reveal")
	}
}

func TestTabsCycle(t *testing.T) {
	m := sized(NewModel(nil, nil))
	m.Update(doneMsg{detail: finishedDetail()})

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabReport {
		t.Fatalf("expected report tab, got %d", m.activeTab)
	}
	if !strings.Contains(m.View(), "Statistical tests") {
		t.Fatalf("expected report content")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if !strings.Contains(m.View(), "Symbol frequencies") {
		t.Fatalf("expected frequency plot")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabCompliance || !m.table.Focused() {
		t.Fatalf("expected focused compliance table")
	}
	if !strings.Contains(m.View(), "NIST") {
		t.Fatalf("expected framework rows")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if m.activeTab != tabFrequencies || m.table.Focused() {
		t.Fatalf("expected frequencies tab with blurred table")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabSummary {
		t.Fatalf("expected wrap to summary, got %d", m.activeTab)
	}
}

func TestErrorShownInFooter(t *testing.T) {
	m := sized(NewModel(nil, nil))
	partial := &model.AuditResult{Stage: model.StageChiSquared}
	err := fmt.Errorf("%w: boom", audit.ErrCSPRNGFailure)
	m.Update(doneMsg{detail: audit.Detail{Result: partial}, err: err})
	view := m.View()
	if !strings.Contains(view, "status -1") {
		t.Fatalf("expected status in footer, got %q", view)
	}
	if _, gotErr := m.Detail(); !errors.Is(gotErr, audit.ErrCSPRNGFailure) {
		t.Fatalf("expected CSPRNG failure from Result, got %v", gotErr)
	}
}

func TestQuit(t *testing.T) {
	m := NewModel(nil, nil)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestStartDeliversEvents(t *testing.T) {
	runner := func(observe func(model.Stage)) (audit.Detail, error) {
		observe(model.StageGenerate)
		observe(model.StageDone)
		return finishedDetail(), nil
	}
	m := sized(NewModel(runner, nil))
	cmd := m.start()
	var stages []model.Stage
	for cmd != nil {
		msg := cmd()
		if s, ok := msg.(stageMsg); ok {
			stages = append(stages, s.stage)
		}
		_, cmd = m.Update(msg)
	}
	if len(stages) != 2 {
		t.Fatalf("expected 2 stage events, got %v", stages)
	}
	d, err := m.Detail()
	if err != nil || d.Result == nil || !d.Result.AllPass {
		t.Fatalf("expected finished result, got %+v %v", d.Result, err)
	}
}

func TestRerunWipesPreviousPassword(t *testing.T) {
	m := NewModel(func(func(model.Stage)) (audit.Detail, error) {
		return audit.Detail{}, nil
	}, nil)
	d := finishedDetail()
	m.Update(doneMsg{detail: d})
	m.Update(runes("r"))
	if string(d.Result.Password) != "\x00\x00\x00" {
		t.Fatalf("expected previous password to be wiped, got %q", d.Result.Password)
	}
	if !m.running {
		t.Fatalf("expected rerun to start")
	}
}

func TestAuditorRunnerReportsStages(t *testing.T) {
	req := model.AuditRequest{Charset: "abcdefghijklmnopqrstuvwxyz", Length: 16, BatchSize: 50}
	runner := AuditorRunner(platform.NewSequence([]byte{0, 1, 2, 3}), req)
	var stages []model.Stage
	d, err := runner(func(s model.Stage) { stages = append(stages, s) })
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if d.Result.Stage != model.StageDone {
		t.Fatalf("expected done, got %v", d.Result.Stage)
	}
	if len(stages) != int(model.StageDone) {
		t.Fatalf("expected %d stage events, got %d", model.StageDone, len(stages))
	}
}

func TestTruncateLine(t *testing.T) {
	if got := truncateLine("abcdefgh", 6); got != "abc..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncateLine("abc", 6); got != "abc" {
		t.Fatalf("unexpected truncation %q", got)
	}
}
