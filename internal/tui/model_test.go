package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"resumeqa/internal/domain"
	"resumeqa/internal/service"
	"resumeqa/internal/session"
)

type fakePipeline struct {
	answers int
	asked   string
}

func (f *fakePipeline) BuildIndex(_ context.Context, name string, data []byte) (*service.Index, error) {
	if !strings.HasSuffix(name, ".txt") {
		return nil, errors.New("unsupported file format")
	}
	return &service.Index{
		ID:       "1",
		Document: domain.Document{Name: name, Content: string(data)},
		Chunks:   []domain.Chunk{{Text: string(data)}},
		Summary:  "Go developer.",
	}, nil
}

func (f *fakePipeline) Answer(_ context.Context, idx *service.Index, q string) (*domain.Answer, error) {
	f.answers++
	f.asked = q
	return &domain.Answer{
		Question: q,
		Text:     "Go and Rust.",
		Sources:  []domain.SearchResult{{Chunk: idx.Chunks[0], Score: 0.9}},
	}, nil
}

func (f *fakePipeline) Clear(context.Context) error { return nil }

func key(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// run executes cmd and returns the first message that is not a spinner tick.
func run(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			if m := run(c); m != nil {
				return m
			}
		}
		return nil
	}
	if _, ok := msg.(spinner.TickMsg); ok {
		return nil
	}
	return msg
}

func writeResume(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newModel(t *testing.T) (Model, *fakePipeline) {
	t.Helper()
	p := &fakePipeline{}
	m := New(session.NewController(p), "")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, p
}

func upload(t *testing.T, m Model, path string) Model {
	t.Helper()
	m.fileInput.SetValue(path)
	m, cmd := update(t, m, key(tea.KeyEnter))
	if !m.busy {
		t.Fatal("model not busy after upload started")
	}
	m, _ = update(t, m, run(cmd))
	return m
}

func TestUpload(t *testing.T) {
	m, _ := newModel(t)
	m = upload(t, m, writeResume(t, "resume.txt", "Skills: Go, Rust"))
	if m.busy || m.isError {
		t.Fatalf("busy = %v status = %q", m.busy, m.status)
	}
	if !strings.Contains(m.status, session.UploadSuccessMessage) {
		t.Errorf("status = %q", m.status)
	}
	if m.focus != focusPreset {
		t.Errorf("focus = %v, want preset", m.focus)
	}
	if v := m.View(); !strings.Contains(v, "Loaded: resume.txt") || !strings.Contains(v, "Go developer.") {
		t.Errorf("view = %s", v)
	}
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{name: "unsupported", path: func(t *testing.T) string { return writeResume(t, "resume.docx", "x") }},
		{name: "missing file", path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.txt") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newModel(t)
			m = upload(t, m, tt.path(t))
			if !m.isError || !strings.HasPrefix(m.status, "Error processing resume: ") {
				t.Errorf("status = %q", m.status)
			}
			if m.docName != "" {
				t.Errorf("docName = %q", m.docName)
			}
		})
	}
}

func TestBusyIgnoresInput(t *testing.T) {
	m, _ := newModel(t)
	m.fileInput.SetValue(writeResume(t, "resume.txt", "Go"))
	m, _ = update(t, m, key(tea.KeyEnter))
	m, cmd := update(t, m, key(tea.KeyEnter))
	if cmd != nil {
		t.Error("second enter while busy produced a command")
	}
	m, _ = update(t, m, runes("abc"))
	if strings.Contains(m.fileInput.Value(), "abc") {
		t.Error("typing accepted while busy")
	}
	if _, cmd := update(t, m, key(tea.KeyCtrlC)); cmd == nil {
		t.Error("ctrl+c ignored while busy")
	}
}

func TestAskWithoutQuestion(t *testing.T) {
	m, p := newModel(t)
	m = upload(t, m, writeResume(t, "resume.txt", "Skills: Go"))
	m, cmd := update(t, m, key(tea.KeyEnter))
	if cmd != nil || m.busy {
		t.Fatal("ask dispatched without a question")
	}
	if m.status != session.ErrNoQuestion.Error() {
		t.Errorf("status = %q", m.status)
	}
	if p.answers != 0 {
		t.Errorf("pipeline answered %d times", p.answers)
	}
}

func TestAskPresetAndFeedback(t *testing.T) {
	m, p := newModel(t)
	m = upload(t, m, writeResume(t, "resume.txt", "Skills: Go, Rust"))

	for range 5 {
		m, _ = update(t, m, key(tea.KeyDown))
	}
	if got := m.selectedQuestion(); got != session.PredefinedQuestions[4] {
		t.Fatalf("selected = %q", got)
	}
	m, cmd := update(t, m, key(tea.KeyEnter))
	m, _ = update(t, m, run(cmd))
	if p.asked != session.PredefinedQuestions[4] {
		t.Fatalf("asked %q", p.asked)
	}
	if m.answer == nil || !strings.Contains(m.View(), "Go and Rust.") {
		t.Fatalf("answer not shown: %s", m.View())
	}

	// preset -> custom -> confidence
	m, _ = update(t, m, key(tea.KeyTab))
	m, _ = update(t, m, key(tea.KeyTab))
	if m.focus != focusConfidence {
		t.Fatalf("focus = %v, want confidence", m.focus)
	}
	m, _ = update(t, m, key(tea.KeyRight))
	m, _ = update(t, m, key(tea.KeyRight))
	if m.confidence != 60 {
		t.Errorf("confidence = %d, want 60", m.confidence)
	}

	m, _ = update(t, m, key(tea.KeyTab))
	m, _ = update(t, m, key(tea.KeyRight))
	if m.helpful {
		t.Fatal("helpful still yes")
	}
	if !strings.Contains(m.View(), session.NotHelpfulMessage) {
		t.Error("not-helpful message missing")
	}

	m, _ = update(t, m, key(tea.KeyTab))
	if m.focus != focusSuggestion {
		t.Fatalf("focus = %v, want suggestion", m.focus)
	}
	m, _ = update(t, m, runes("cite dates"))
	m, _ = update(t, m, key(tea.KeyCtrlS))
	want := []string{
		"Your confidence rating: 60/100 (your own assessment, not computed by the model)",
		session.NotHelpfulMessage,
		session.SuggestionMessage,
	}
	if strings.Join(m.ack, "|") != strings.Join(want, "|") {
		t.Errorf("ack = %q", m.ack)
	}
}

func TestCustomQuestionWins(t *testing.T) {
	m, p := newModel(t)
	m = upload(t, m, writeResume(t, "resume.txt", "Skills: Go"))
	m, _ = update(t, m, key(tea.KeyDown))
	m, _ = update(t, m, key(tea.KeyTab))
	m, _ = update(t, m, runes("Does she know Go?"))
	m, cmd := update(t, m, key(tea.KeyEnter))
	update(t, m, run(cmd))
	if p.asked != "Does she know Go?" {
		t.Errorf("asked %q", p.asked)
	}
}

func TestFocusCycleWithoutAnswer(t *testing.T) {
	m, _ := newModel(t)
	seen := []focus{m.focus}
	for range 3 {
		m, _ = update(t, m, key(tea.KeyTab))
		seen = append(seen, m.focus)
	}
	want := []focus{focusFile, focusPreset, focusCustom, focusFile}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("focus order = %v, want %v", seen, want)
		}
	}
	m, _ = update(t, m, key(tea.KeyShiftTab))
	if m.focus != focusCustom {
		t.Errorf("shift+tab focus = %v", m.focus)
	}
}

func TestHighlightBestSentence(t *testing.T) {
	text := "Jane Doe\nSkills: Python, Java.\nHobbies: chess."
	got := highlightBestSentence(text, "Which languages? Python or Java")
	if !strings.Contains(got, "Skills: Python, Java.") || !strings.Contains(got, "Hobbies: chess.") {
		t.Errorf("highlightBestSentence() = %q", got)
	}
	if got := highlightBestSentence("  ", "x"); got != "  " {
		t.Errorf("blank = %q", got)
	}
	if got := highlightBestSentence("One. Two.", ""); got != "One. Two." {
		t.Errorf("no query = %q", got)
	}
}

func TestRenderSlider(t *testing.T) {
	if got := renderSlider(50); got != "[■■■■■■■■■■──────────] 50" {
		t.Errorf("renderSlider(50) = %q", got)
	}
	if got := renderRadio(false); got != "( ) Yes  (•) No" {
		t.Errorf("renderRadio(false) = %q", got)
	}
}
