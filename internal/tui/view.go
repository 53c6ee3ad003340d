package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"resumeqa/internal/session"
)

const sliderWidth = 20

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Resume Analysis Assistant for HR"))
	b.WriteString("\n\n")

	b.WriteString(m.label(focusFile, "Upload a resume (PDF or TXT)"))
	b.WriteString("\n")
	b.WriteString(m.box(focusFile, m.fileInput.View()))
	b.WriteString("\n")
	if m.docName != "" {
		b.WriteString(mutedStyle.Render("Loaded: " + m.docName))
		b.WriteString("\n")
		if m.summary != "" {
			b.WriteString(mutedStyle.Width(m.viewport.Width).Render("Snapshot: " + m.summary))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.label(focusPreset, "Select a question or type your own:"))
	b.WriteString("\n")
	b.WriteString(m.renderPresets())
	b.WriteString(m.label(focusCustom, "Or ask your own question:"))
	b.WriteString("\n")
	b.WriteString(m.box(focusCustom, m.customInput.View()))
	b.WriteString("\n")

	if m.answer != nil {
		b.WriteString(answerBoxStyle.Render(m.viewport.View()))
		b.WriteString("\n")
		b.WriteString(m.renderFeedback())
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("tab/shift+tab focus • enter submit • pgup/pgdown scroll • ctrl+c quit"))
	return b.String()
}

func (m Model) label(f focus, text string) string {
	if m.focus == f {
		return focusedLabel.Render(text)
	}
	return labelStyle.Render(text)
}

func (m Model) box(f focus, content string) string {
	if m.focus == f {
		return focusBoxStyle.Render(content)
	}
	return inputBoxStyle.Render(content)
}

// renderPresets shows the whole list while focused, only the choice otherwise.
func (m Model) renderPresets() string {
	options := append([]string{"(none)"}, session.PredefinedQuestions...)
	if m.focus != focusPreset {
		return "  " + options[m.preset] + "\n"
	}
	var b strings.Builder
	for i, opt := range options {
		if i == m.preset {
			b.WriteString(focusedLabel.Render("▸ " + opt))
		} else {
			b.WriteString("  " + opt)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderFeedback() string {
	var b strings.Builder
	b.WriteString(m.label(focusConfidence, "How confident are you in this answer?"))
	b.WriteString(mutedStyle.Render(" (your own rating, not computed by the model)"))
	b.WriteString("\n  ")
	b.WriteString(renderSlider(m.confidence))
	b.WriteString("\n")

	b.WriteString(m.label(focusHelpful, "Was this answer helpful?"))
	b.WriteString("  ")
	b.WriteString(renderRadio(m.helpful))
	b.WriteString("\n")

	if !m.helpful {
		b.WriteString(session.NotHelpfulMessage)
		b.WriteString("\n")
		b.WriteString(m.label(focusSuggestion, "Please suggest how we could improve:"))
		b.WriteString(mutedStyle.Render(" (ctrl+s to send)"))
		b.WriteString("\n")
		b.WriteString(m.suggestion.View())
		b.WriteString("\n")
	}
	for _, line := range m.ack {
		b.WriteString(successStyle.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

func renderSlider(v int) string {
	filled := v * sliderWidth / 100
	return "[" + strings.Repeat("■", filled) + strings.Repeat("─", sliderWidth-filled) + fmt.Sprintf("] %d", v)
}

func renderRadio(helpful bool) string {
	yes, no := "( ) Yes", "( ) No"
	if helpful {
		yes = "(•) Yes"
	} else {
		no = "(•) No"
	}
	return yes + "  " + no
}

func (m Model) renderStatus() string {
	if m.busy {
		return m.spinner.View() + " " + m.busyText
	}
	if m.isError {
		return errorStyle.Render(m.status)
	}
	return successStyle.Render(m.status)
}

func (m Model) renderAnswer() string {
	if m.answer == nil {
		return ""
	}
	wrap := lipgloss.NewStyle().Width(max(20, m.viewport.Width))
	var b strings.Builder
	b.WriteString(labelStyle.Render("Answer:"))
	b.WriteString("\n")
	b.WriteString(wrap.Render(m.answer.Text))
	if len(m.answer.Sources) > 0 {
		b.WriteString("\n\n")
		b.WriteString(labelStyle.Render("Sources"))
		for i, r := range m.answer.Sources {
			b.WriteString("\n")
			b.WriteString(mutedStyle.Render(fmt.Sprintf("[%d] chunk %d  score=%.3f", i+1, r.Chunk.Index+1, r.Score)))
			b.WriteString("\n")
			b.WriteString(wrap.Render(highlightBestSentence(r.Chunk.Text, m.answer.Question)))
		}
	}
	return b.String()
}
