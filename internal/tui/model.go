package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"resumeqa/internal/domain"
	"resumeqa/internal/service"
	"resumeqa/internal/session"
)

// SessionPort is the TUI-facing subset of the session controller.
type SessionPort interface {
	Upload(ctx context.Context, name string, data []byte) (*service.Index, error)
	Ask(ctx context.Context, selected, custom string) (*domain.Answer, error)
	SubmitFeedback(fb session.Feedback) (session.Acknowledgement, error)
}

type focus int

const (
	focusFile focus = iota
	focusPreset
	focusCustom
	focusConfidence
	focusHelpful
	focusSuggestion
)

const confidenceStep = 5

type uploadDoneMsg struct {
	name string
	idx  *service.Index
	err  error
}

type answerMsg struct {
	answer *domain.Answer
	err    error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	session SessionPort

	fileInput   textinput.Model
	customInput textinput.Model
	suggestion  textarea.Model
	viewport    viewport.Model
	spinner     spinner.Model

	focus      focus
	preset     int // 0 is the blank option
	confidence int
	helpful    bool

	busy     bool
	busyText string
	status   string
	isError  bool

	docName string
	summary string
	answer  *domain.Answer
	ack     []string

	width int
	ready bool
}

// New creates a new TUI model instance. A non-empty path is uploaded on start.
func New(s SessionPort, path string) Model {
	fi := textinput.New()
	fi.Prompt = "> "
	fi.Placeholder = "path/to/resume.pdf"
	fi.CharLimit = 0
	fi.SetValue(path)
	fi.Focus()

	ci := textinput.New()
	ci.Prompt = "> "
	ci.Placeholder = "Type your own question and press Enter"
	ci.CharLimit = 0

	ta := textarea.New()
	ta.Placeholder = "Please suggest how we could improve:"
	ta.ShowLineNumbers = false
	ta.SetHeight(3)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		session:     s,
		fileInput:   fi,
		customInput: ci,
		suggestion:  ta,
		viewport:    viewport.New(0, 0),
		spinner:     sp,
		confidence:  session.DefaultConfidence,
		helpful:     true,
		status:      "Upload a resume (PDF or TXT) and press Enter.",
	}
	if strings.TrimSpace(path) != "" {
		m.busy = true
		m.busyText = "Processing resume..."
	}
	return m
}

// Init starts the cursor blink, and the upload when New was given a path.
func (m Model) Init() tea.Cmd {
	if m.busy {
		return tea.Batch(textinput.Blink, m.spinner.Tick, m.uploadCmd(m.fileInput.Value()))
	}
	return textinput.Blink
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		w := max(20, msg.Width-answerBoxStyle.GetHorizontalFrameSize())
		m.viewport.Width = w
		m.viewport.Height = max(5, msg.Height-22)
		m.fileInput.Width = w - 4
		m.customInput.Width = w - 4
		m.suggestion.SetWidth(w)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case uploadDoneMsg:
		m.busy = false
		m.answer = nil
		m.ack = nil
		if msg.err != nil {
			m.docName, m.summary = "", ""
			m.setError(session.UploadError(msg.err))
		} else {
			m.docName = msg.name
			m.summary = msg.idx.Summary
			m.setStatus(fmt.Sprintf("%s %s: %d chunks indexed.", session.UploadSuccessMessage, msg.name, len(msg.idx.Chunks)))
			m = m.setFocus(focusPreset)
		}
		m.viewport.SetContent(m.renderAnswer())
		return m, nil

	case answerMsg:
		m.busy = false
		m.ack = nil
		if msg.err != nil {
			m.answer = nil
			m.setError(session.AnswerError(msg.err))
		} else {
			m.answer = msg.answer
			m.confidence = session.DefaultConfidence
			m.helpful = true
			m.suggestion.Reset()
			m.setStatus("Answered: " + msg.answer.Question)
		}
		m.viewport.SetContent(m.renderAnswer())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		// one request at a time
		if m.busy {
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		return m.setFocus(m.nextFocus(1)), nil
	case "shift+tab":
		return m.setFocus(m.nextFocus(-1)), nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case "ctrl+s":
		if m.focus == focusSuggestion {
			return m.submitFeedback(), nil
		}
	}

	switch m.focus {
	case focusFile:
		if msg.Type == tea.KeyEnter {
			if strings.TrimSpace(m.fileInput.Value()) == "" {
				m.setError("Enter the path of a PDF or TXT resume.")
				return m, nil
			}
			return m.startUpload()
		}
	case focusPreset:
		switch msg.String() {
		case "up", "k":
			m.preset = (m.preset + len(session.PredefinedQuestions)) % (len(session.PredefinedQuestions) + 1)
			return m, nil
		case "down", "j":
			m.preset = (m.preset + 1) % (len(session.PredefinedQuestions) + 1)
			return m, nil
		case "enter":
			return m.startAsk()
		}
		return m, nil
	case focusCustom:
		if msg.Type == tea.KeyEnter {
			return m.startAsk()
		}
	case focusConfidence:
		switch msg.String() {
		case "left", "h", "-":
			m.confidence = max(0, m.confidence-confidenceStep)
		case "right", "l", "+":
			m.confidence = min(100, m.confidence+confidenceStep)
		case "enter":
			return m.submitFeedback(), nil
		}
		return m, nil
	case focusHelpful:
		switch msg.String() {
		case "left", "right", "h", "l", " ":
			m.helpful = !m.helpful
			m.ack = nil
		case "y":
			m.helpful = true
		case "n":
			m.helpful = false
		case "enter":
			return m.submitFeedback(), nil
		}
		return m, nil
	}
	return m.updateFocused(msg)
}

func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusFile:
		m.fileInput, cmd = m.fileInput.Update(msg)
	case focusCustom:
		m.customInput, cmd = m.customInput.Update(msg)
	case focusSuggestion:
		m.suggestion, cmd = m.suggestion.Update(msg)
	}
	return m, cmd
}

func (m Model) startUpload() (Model, tea.Cmd) {
	m.busy = true
	m.busyText = "Processing resume..."
	return m, tea.Batch(m.spinner.Tick, m.uploadCmd(m.fileInput.Value()))
}

func (m Model) uploadCmd(path string) tea.Cmd {
	path = strings.TrimSpace(path)
	s := m.session
	return func() tea.Msg {
		name := filepath.Base(path)
		data, err := os.ReadFile(path)
		if err != nil {
			return uploadDoneMsg{name: name, err: err}
		}
		idx, err := s.Upload(context.Background(), name, data)
		return uploadDoneMsg{name: name, idx: idx, err: err}
	}
}

func (m Model) startAsk() (tea.Model, tea.Cmd) {
	selected := m.selectedQuestion()
	custom := m.customInput.Value()
	if _, ok := session.ResolveQuestion(selected, custom); !ok {
		m.setError(session.ErrNoQuestion.Error())
		return m, nil
	}
	if m.docName == "" {
		m.setError(session.ErrNoResume.Error())
		return m, nil
	}
	m.busy = true
	m.busyText = "Analyzing..."
	s := m.session
	work := func() tea.Msg {
		ans, err := s.Ask(context.Background(), selected, custom)
		return answerMsg{answer: ans, err: err}
	}
	return m, tea.Batch(m.spinner.Tick, work)
}

func (m Model) submitFeedback() Model {
	ack, err := m.session.SubmitFeedback(session.Feedback{
		Confidence: m.confidence,
		Helpful:    m.helpful,
		Suggestion: m.suggestion.Value(),
	})
	if err != nil {
		m.setError(err.Error())
		return m
	}
	m.ack = ack.Lines
	m.setStatus("Feedback received.")
	return m
}

func (m Model) selectedQuestion() string {
	if m.preset == 0 {
		return ""
	}
	return session.PredefinedQuestions[m.preset-1]
}

// focusOrder lists the widgets that can take focus right now.
func (m Model) focusOrder() []focus {
	order := []focus{focusFile, focusPreset, focusCustom}
	if m.answer != nil {
		order = append(order, focusConfidence, focusHelpful)
		if !m.helpful {
			order = append(order, focusSuggestion)
		}
	}
	return order
}

func (m Model) nextFocus(step int) focus {
	order := m.focusOrder()
	cur := 0
	for i, f := range order {
		if f == m.focus {
			cur = i
			break
		}
	}
	return order[(cur+step+len(order))%len(order)]
}

func (m Model) setFocus(f focus) Model {
	m.focus = f
	m.fileInput.Blur()
	m.customInput.Blur()
	m.suggestion.Blur()
	switch f {
	case focusFile:
		m.fileInput.Focus()
	case focusCustom:
		m.customInput.Focus()
	case focusSuggestion:
		m.suggestion.Focus()
	}
	return m
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.isError = false
}

func (m *Model) setError(s string) {
	m.status = s
	m.isError = true
}
