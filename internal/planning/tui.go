package planning

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// BubbleteaQA implements QAUI on top of github.com/charmbracelet/bubbletea,
// the interactive terminal program model used for the Q&A refinement
// loop: arrows/h-j-k-l move between questions and options, Enter
// selects and advances, Tab toggles a free-text "Custom" entry,
// Ctrl-D submits once every question is answered, ESC asks y/N to
// abort.
type BubbleteaQA struct{}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	answeredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const customOptionLabel = "Custom..."

type qaModel struct {
	questions []Question
	answers   map[int]string
	custom    map[int]bool

	qIdx    int
	optIdx  int
	editing bool
	input   string

	confirmAbort bool
	interrupt    *atomic.Bool

	result QAResult
	done   bool
}

func newQAModel(questions []Question, interrupt *atomic.Bool) qaModel {
	return qaModel{
		questions: questions,
		answers:   make(map[int]string, len(questions)),
		custom:    make(map[int]bool, len(questions)),
		interrupt: interrupt,
	}
}

func (m qaModel) Init() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return pollInterruptMsg{} })
}

type pollInterruptMsg struct{}

func (m qaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case pollInterruptMsg:
		if m.interrupt != nil && m.interrupt.Load() {
			m.result, m.done = QAInterrupted, true
			return m, tea.Quit
		}
		return m, tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return pollInterruptMsg{} })
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m qaModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmAbort {
		switch msg.String() {
		case "y", "Y":
			m.result, m.done = QAAborted, true
			return m, tea.Quit
		default:
			m.confirmAbort = false
			return m, nil
		}
	}

	if m.editing {
		switch msg.Type {
		case tea.KeyEnter:
			m.answers[m.currentQuestion().ID] = m.input
			m.editing = false
			m.advance()
			return m, nil
		case tea.KeyEsc:
			m.editing = false
			return m, nil
		case tea.KeyBackspace:
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
			return m, nil
		default:
			m.input += msg.String()
			return m, nil
		}
	}

	switch msg.String() {
	case "ctrl+c":
		m.result, m.done = QAAborted, true
		return m, tea.Quit
	case "esc":
		m.confirmAbort = true
		return m, nil
	case "ctrl+d":
		if m.allAnswered() {
			m.result, m.done = QACompleted, true
			return m, tea.Quit
		}
		return m, nil
	case "up", "k":
		if m.qIdx > 0 {
			m.qIdx--
			m.optIdx = 0
		}
	case "down", "j":
		if m.qIdx < len(m.questions)-1 {
			m.qIdx++
			m.optIdx = 0
		}
	case "left", "h":
		if m.optIdx > 0 {
			m.optIdx--
		}
	case "right", "l":
		if m.optIdx < len(m.currentQuestion().Options) {
			m.optIdx++
		}
	case "tab":
		m.editing = true
		m.input = m.answers[m.currentQuestion().ID]
		m.custom[m.currentQuestion().ID] = true
	case "enter":
		q := m.currentQuestion()
		if m.optIdx < len(q.Options) {
			m.answers[q.ID] = q.Options[m.optIdx]
			m.custom[q.ID] = false
		}
		m.advance()
	}
	return m, nil
}

func (m *qaModel) currentQuestion() Question { return m.questions[m.qIdx] }

func (m *qaModel) advance() {
	for i := 1; i <= len(m.questions); i++ {
		next := (m.qIdx + i) % len(m.questions)
		if _, answered := m.answers[m.questions[next].ID]; !answered {
			m.qIdx = next
			m.optIdx = 0
			return
		}
	}
}

func (m qaModel) allAnswered() bool {
	for _, q := range m.questions {
		if _, ok := m.answers[q.ID]; !ok {
			return false
		}
	}
	return true
}

func (m qaModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	if m.confirmAbort {
		b.WriteString("Abort planning Q&A? [y/N] ")
		return b.String()
	}
	for i, q := range m.questions {
		marker := "  "
		if i == m.qIdx {
			marker = cursorStyle.Render("> ")
		}
		b.WriteString(marker)
		b.WriteString(titleStyle.Render(fmt.Sprintf("%d. %s", q.ID, q.Text)))
		if ans, ok := m.answers[q.ID]; ok {
			b.WriteString(answeredStyle.Render(fmt.Sprintf("  [%s]", ans)))
		}
		b.WriteString("\n")
		if i == m.qIdx {
			for oi, opt := range q.Options {
				optMarker := "    "
				if oi == m.optIdx {
					optMarker = cursorStyle.Render("  * ")
				}
				b.WriteString(optMarker + opt + "\n")
			}
			customMarker := "    "
			if m.optIdx == len(q.Options) {
				customMarker = cursorStyle.Render("  * ")
			}
			if m.editing {
				b.WriteString(customMarker + customOptionLabel + " " + m.input + "_\n")
			} else {
				b.WriteString(customMarker + customOptionLabel + "\n")
			}
		}
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("arrows/hjkl move, enter selects, tab free text, ctrl+d submit, esc abort"))
	return b.String()
}

// Run drives the bubbletea program, blocking until the user submits,
// aborts, or the interrupt flag is raised.
func (BubbleteaQA) Run(questions []Question, interrupt *atomic.Bool) (QAResult, []Answer, error) {
	if len(questions) == 0 {
		return QACompleted, nil, nil
	}
	m := newQAModel(questions, interrupt)
	p := tea.NewProgram(m)
	final, err := p.Run()
	if err != nil {
		return QAAborted, nil, err
	}
	fm := final.(qaModel)

	answers := make([]Answer, 0, len(fm.answers))
	for _, q := range fm.questions {
		if a, ok := fm.answers[q.ID]; ok {
			answers = append(answers, Answer{QuestionID: q.ID, Text: a})
		}
	}
	return fm.result, answers, nil
}
