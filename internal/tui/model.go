package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eleven-am/live-translate/internal/client"
	"github.com/eleven-am/live-translate/internal/language"
)

type SnapshotMsg client.Snapshot

// DoneMsg tells the program the session has ended.
type DoneMsg struct{ Err error }

type cycleErrMsg struct{ err error }

const (
	sourcePlaceholder     = "Waiting for speech..."
	translatedPlaceholder = "Translation will appear here..."
	defaultWidth          = 80
)

var (
	panelStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	titleStyle     = lipgloss.NewStyle().Bold(true)
	recordingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	idleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	keyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	quitKeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Model shows the latest snapshot and forwards key presses to the shared state.
type Model struct {
	state   *client.State
	onCycle func() error

	snap     client.Snapshot
	width    int
	done     bool
	err      error
	cycleErr error
}

func NewModel(state *client.State, onCycle func() error) Model {
	return Model{state: state, onCycle: onCycle, snap: state.Snapshot()}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "r", "R":
			m.state.ToggleRecording()
			m.snap = m.state.Snapshot()
		case "q", "Q", "ctrl+c", "esc":
			m.state.RequestExit()
			m.snap = m.state.Snapshot()
		case "l", "L":
			if m.onCycle != nil {
				cycle := m.onCycle
				return m, func() tea.Msg {
					return cycleErrMsg{err: cycle()}
				}
			}
		}

	case cycleErrMsg:
		m.cycleErr = msg.err

	case SnapshotMsg:
		m.snap = client.Snapshot(msg)

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		m.snap = m.state.Snapshot()
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = defaultWidth
	}
	inner := width - 2

	var status strings.Builder
	status.WriteString(m.snap.Status)
	if m.snap.Recording {
		status.WriteString(" " + recordingStyle.Render("(Recording...)"))
	} else {
		status.WriteString(" " + idleStyle.Render("(Not Recording)"))
	}
	if m.snap.SourceLang != "" {
		status.WriteString("\n" + dimStyle.Render(fmt.Sprintf("%s -> %s", language.Name(m.snap.SourceLang), language.Name(m.snap.TargetLang))))
	}
	if m.cycleErr != nil {
		status.WriteString("\n" + errorStyle.Render("Language change failed: "+m.cycleErr.Error()))
	}

	half := inner/2 - 2
	source := textPanel("Source Text", m.snap.SourceText, sourcePlaceholder, half)
	translated := textPanel("Translated Text", m.snap.TranslatedText, translatedPlaceholder, half)

	controls := titleStyle.Render("Controls:") + " Press " + keyStyle.Render("R") +
		" to start/stop recording, " + keyStyle.Render("L") + " to change target language, " +
		quitKeyStyle.Render("Q") + " to quit"

	return lipgloss.JoinVertical(lipgloss.Left,
		panelStyle.Width(inner).Render(status.String()),
		lipgloss.JoinHorizontal(lipgloss.Top, source, translated),
		panelStyle.Width(inner).Render(controls),
	) + "\n"
}

func textPanel(title, text, placeholder string, width int) string {
	body := text
	if body == "" {
		body = dimStyle.Render(placeholder)
	}
	return panelStyle.Width(width).Render(titleStyle.Render(title) + "\n" + body)
}

// Err is the session error recorded by DoneMsg.
func (m Model) Err() error {
	return m.err
}

func (m Model) Done() bool {
	return m.done
}
