package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mastercactapus/gscan/coord"
	"github.com/mastercactapus/gscan/machine/grbl"
)

const monitorHistory = 12

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive machine console",
	Long: `Show the live machine state and position, and send commands typed at the
prompt. Responses and unrecognized controller output appear in the log pane.

Keys: enter sends the line, esc or ctrl+c quits.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type startupMsg struct{ version string }
type statusMsg struct{ stat grbl.Status }
type positionMsg struct{ pos coord.Point }
type responseMsg struct {
	cmd grbl.Command
	err error
}
type diagMsg struct{ line string }
type disconnectedMsg struct{}
type enqueuedMsg struct {
	cmd grbl.Command
	err error
}

// teaSink feeds session events to the program. Events are dropped rather
// than stalling the session when the UI falls behind.
type teaSink struct {
	ch chan tea.Msg
}

func (s teaSink) send(msg tea.Msg) {
	select {
	case s.ch <- msg:
	default:
	}
}

func (s teaSink) Startup(version string)                    { s.send(startupMsg{version}) }
func (s teaSink) ResponseOk(cmd grbl.Command)               { s.send(responseMsg{cmd: cmd}) }
func (s teaSink) ResponseError(cmd grbl.Command, err error) { s.send(responseMsg{cmd: cmd, err: err}) }
func (s teaSink) PositionUpdate(pos coord.Point)            { s.send(positionMsg{pos}) }
func (s teaSink) StateUpdate(stat grbl.Status)              { s.send(statusMsg{stat}) }
func (s teaSink) Disconnected()                             { s.send(disconnectedMsg{}) }

func (s teaSink) listen() tea.Cmd {
	return func() tea.Msg { return <-s.ch }
}

//////////////////////////////////////////////////////////////
// Model
//////////////////////////////////////////////////////////////

type monitorModel struct {
	m      machine
	events teaSink

	input   textinput.Model
	status  grbl.Status
	pos     coord.Point
	version string
	history []string
	closed  bool
}

func newMonitorModel(m machine, events teaSink) monitorModel {
	ti := textinput.New()
	ti.Placeholder = "G0 X0 Y0"
	ti.Prompt = "> "
	ti.CharLimit = grbl.DefaultBufferSize
	ti.Width = 40
	ti.Focus()

	return monitorModel{m: m, events: events, input: ti}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.events.listen())
}

func (m *monitorModel) logf(format string, args ...interface{}) {
	m.history = append(m.history, fmt.Sprintf(format, args...))
	if len(m.history) > monitorHistory {
		m.history = m.history[len(m.history)-monitorHistory:]
	}
}

func (m monitorModel) enqueue(cmd grbl.Command) tea.Cmd {
	return func() tea.Msg {
		return enqueuedMsg{cmd: cmd, err: m.m.Enqueue(context.Background(), cmd)}
	}
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if text == "" || m.closed {
				return m, nil
			}
			// realtime bytes get no ok and would never leave the queue
			if text == "?" || text == "!" || text == "~" {
				m.logf("%s: realtime commands are not supported", text)
				return m, nil
			}
			return m, m.enqueue(grbl.NewLine(text))
		}
	case enqueuedMsg:
		if msg.err != nil {
			m.logf("%s: %v", cmdText(msg.cmd), msg.err)
		}
		return m, nil
	case startupMsg:
		m.version = msg.version
		m.logf("controller started: Grbl %s", msg.version)
		return m, m.events.listen()
	case statusMsg:
		m.status = msg.stat
		return m, m.events.listen()
	case positionMsg:
		m.pos = msg.pos
		return m, m.events.listen()
	case responseMsg:
		if msg.err != nil {
			m.logf("%s: %v", cmdText(msg.cmd), msg.err)
		} else {
			m.logf("%s: ok", cmdText(msg.cmd))
		}
		return m, m.events.listen()
	case diagMsg:
		m.logf("? %s", msg.line)
		return m, m.events.listen()
	case disconnectedMsg:
		m.closed = true
		m.logf("disconnected")
		return m, m.events.listen()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(10)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	alarmStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

func stateStyle(s grbl.State) lipgloss.Style {
	switch s {
	case grbl.StateAlarm, grbl.StateDoor:
		return alarmStyle
	case grbl.StateUnknown:
		return labelStyle.UnsetWidth()
	}
	return valueStyle
}

func (m monitorModel) View() string {
	var b strings.Builder

	title := "gscan monitor"
	if m.version != "" {
		title += " - Grbl " + m.version
	}
	b.WriteString(titleStyle.Render(title) + "\n")

	state := m.status.State.String()
	if m.status.SubState != "" {
		state += ":" + m.status.SubState
	}
	if m.closed {
		state = "Disconnected"
	}
	row := func(label, value string, style lipgloss.Style) {
		b.WriteString(labelStyle.Render(label) + style.Render(value) + "\n")
	}
	row("State", state, stateStyle(m.status.State))
	if m.status.HasPosition {
		row("MPos", m.pos.String(), valueStyle)
		row("WPos", m.pos.Sub(m.status.WCO).String(), valueStyle)
	} else {
		row("MPos", "-", labelStyle.UnsetWidth())
	}

	b.WriteString(boxStyle.Render(strings.Join(m.history, "\n")) + "\n")
	b.WriteString(m.input.View() + "\n")

	return b.String()
}

func runMonitor(cmd *cobra.Command, args []string) error {
	// the TUI owns the terminal; controller output is shown in the log pane
	log = slog.New(slog.NewTextHandler(io.Discard, nil))

	events := teaSink{ch: make(chan tea.Msg, 256)}
	sess, err := openSession(cmd.Context(), events, func(line string) {
		events.send(diagMsg{line})
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	p := tea.NewProgram(newMonitorModel(sess, events), tea.WithContext(cmd.Context()))
	_, err = p.Run()
	return err
}
