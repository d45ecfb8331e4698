// Package tui is a terminal dashboard for a running guide. It shows the
// turn-taking state and a log of what was said and heard.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/ema-guide/core/events"
	"github.com/koscakluka/ema-guide/core/script"
	"github.com/muesli/reflow/wordwrap"
)

const (
	maxLogLines   = 500
	headerHeight  = 3
	footerHeight  = 1
	minLogWidth   = 20
	defaultWidth  = 80
	defaultHeight = 24
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).
			Border(lipgloss.NormalBorder(), false, false, true, false)
	stateStyles = map[string]lipgloss.Style{
		"dormant":         lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		"active-idle":     lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		"speaking":        lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		"awaiting-answer": lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		"quiet":           lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
	}
	guideStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	answerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Controls are the guide operations reachable from the keyboard.
type Controls interface {
	StartScript(scenarioKey string) error
	Script() (script.Snapshot, bool)
}

// EventMsg carries a guide event into the program.
type EventMsg struct{ Event events.Event }

type Model struct {
	controls Controls
	scenario string

	state    string
	language string
	armed    bool
	answers  int
	progress string

	lines    []string
	viewport viewport.Model
	spinner  spinner.Model
	width    int
	ready    bool
}

func NewModel(controls Controls, scenario, language string) Model {
	return Model{
		controls: controls,
		scenario: scenario,
		state:    "dormant",
		language: language,
		spinner:  spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		viewport: viewport.New(defaultWidth, defaultHeight-headerHeight-footerHeight),
		width:    defaultWidth,
	}
}

// Observer forwards guide events to program. It never blocks the guide on
// a slow terminal.
func Observer(program *tea.Program) func(events.Event) {
	return func(event events.Event) {
		go program.Send(EventMsg{Event: event})
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "s":
			if m.controls != nil {
				if err := m.controls.StartScript(m.scenario); err != nil {
					m.appendLine(errorStyle.Render("! " + err.Error()))
				}
			}
		}
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, minLogWidth)
		m.viewport.Width = m.width
		m.viewport.Height = max(msg.Height-headerHeight-footerHeight, 1)
		m.ready = true
		m.refresh()
	case EventMsg:
		m.apply(msg.Event)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) apply(event events.Event) {
	switch event := event.(type) {
	case events.StateChanged:
		m.state = event.To
	case events.LanguageChanged:
		m.language = event.Language
		m.appendLine(footerStyle.Render("language: " + event.Language))
	case events.RecognitionArmed:
		m.armed = true
	case events.RecognitionDisarmed:
		m.armed = false
	case events.SpeechStarted:
		m.appendLine(guideStyle.Render("guide: ") + event.Text)
		m.refreshProgress()
	case events.TranscriptReceived:
		m.appendLine(userStyle.Render("you: ") + event.Transcript)
	case events.AnswerRecorded:
		m.answers++
		m.appendLine(answerStyle.Render(fmt.Sprintf("answer %s: %s (%.1f)", event.QuestionKey, event.Classification, event.Confidence)))
	case events.ScriptCompleted:
		m.appendLine(answerStyle.Render(fmt.Sprintf("%s completed with %d answers", event.ScenarioKey, event.Answers)))
	case events.RecognitionFailed:
		m.appendLine(errorStyle.Render("recognition " + event.ErrorKind))
	}
}

func (m *Model) refreshProgress() {
	if m.controls == nil {
		return
	}
	snapshot, ok := m.controls.Script()
	if !ok || len(snapshot.Questions) == 0 {
		return
	}
	current := min(snapshot.Cursor+1, len(snapshot.Questions))
	m.progress = fmt.Sprintf("question %d/%d", current, len(snapshot.Questions))
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}
	m.refresh()
}

func (m *Model) refresh() {
	wrapped := make([]string, len(m.lines))
	for i, line := range m.lines {
		wrapped[i] = wordwrap.String(line, m.width)
	}
	m.viewport.SetContent(strings.Join(wrapped, "\n"))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	style, ok := stateStyles[m.state]
	if !ok {
		style = lipgloss.NewStyle()
	}
	indicator := " "
	if m.state == "speaking" {
		indicator = m.spinner.View()
	}
	listening := "mic off"
	if m.armed {
		listening = "listening"
	}

	status := fmt.Sprintf("%s %s  %s  lang %s  %s  answers %d",
		indicator, style.Render(m.state), m.scenario, m.language, listening, m.answers)
	if m.progress != "" {
		status += "  " + m.progress
	}
	header := headerStyle.Width(m.width).Render(status)
	footer := footerStyle.Render("s start script  q quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), footer)
}
