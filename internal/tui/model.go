// Package tui is the terminal viewer: it subscribes to a running officewatch
// server over WebSocket and renders the office projection live.
package tui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	wsapi "github.com/gosuda/officewatch/internal/api/ws"
	"github.com/gosuda/officewatch/internal/diff"
	"github.com/gosuda/officewatch/internal/projection"
)

const (
	maxReconnectAttempts = 8
	baseReconnectDelay   = 500 * time.Millisecond
	maxEventLines        = 12
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("221"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	bubbleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("176")).Italic(true)
	sectionMargin = lipgloss.NewStyle().MarginTop(1)
)

type connectedMsg struct{ c *client }
type connectFailedMsg struct{ err error }
type frameMsg struct{ frame serverFrame }
type disconnectedMsg struct{}
type retryMsg struct{}

// Model is the viewer's bubbletea model.
type Model struct {
	url string

	client    *client
	connected bool
	attempts  int
	err       error

	state       *wsapi.Projection
	events      []diff.Event
	lastEventTs int64

	spin spinner.Model
	prog progress.Model

	width int
}

// NewModel creates the viewer pointed at a server WebSocket URL
// (e.g. ws://127.0.0.1:4777/ws).
func NewModel(url string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		url:  url,
		spin: sp,
		prog: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

// Run starts the viewer program and blocks until it exits.
func Run(url string) error {
	if _, err := tea.NewProgram(NewModel(url), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("tui.Run: %w", err)
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, connectCmd(m.url))
}

func connectCmd(url string) tea.Cmd {
	return func() tea.Msg {
		c, err := dial(url)
		if err != nil {
			return connectFailedMsg{err: err}
		}
		return connectedMsg{c: c}
	}
}

func waitForFrame(c *client) tea.Cmd {
	return func() tea.Msg {
		frame, ok := <-c.frames
		if !ok {
			return disconnectedMsg{}
		}
		return frameMsg{frame: frame}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.client != nil {
				m.client.close()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case connectedMsg:
		m.client = msg.c
		m.connected = true
		m.attempts = 0
		m.err = nil
		// Replay is timestamp-inclusive, so events sharing the last seen
		// millisecond are re-sent; appendEvent drops the duplicates.
		if m.lastEventTs > 0 {
			_ = m.client.replay(m.lastEventTs)
		}
		return m, waitForFrame(m.client)

	case connectFailedMsg:
		m.err = msg.err
		return m, m.scheduleRetry()

	case frameMsg:
		m.applyFrame(msg.frame)
		return m, waitForFrame(m.client)

	case disconnectedMsg:
		m.connected = false
		m.client = nil
		return m, m.scheduleRetry()

	case retryMsg:
		return m, connectCmd(m.url)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// scheduleRetry backs off exponentially, capped by attempt count.
func (m *Model) scheduleRetry() tea.Cmd {
	if m.attempts >= maxReconnectAttempts {
		return nil
	}
	delay := baseReconnectDelay << m.attempts
	m.attempts++
	return tea.Tick(delay, func(time.Time) tea.Msg { return retryMsg{} })
}

func (m *Model) applyFrame(frame serverFrame) {
	switch frame.Type {
	case wsapi.FrameState:
		var state wsapi.Projection
		if err := json.Unmarshal(frame.Data, &state); err == nil {
			m.state = &state
		}
	case wsapi.FrameEvent:
		var event diff.Event
		if err := json.Unmarshal(frame.Data, &event); err == nil {
			m.appendEvent(event)
		}
	case wsapi.FrameReplay:
		var events []diff.Event
		if err := json.Unmarshal(frame.Data, &events); err == nil {
			for _, e := range events {
				m.appendEvent(e)
			}
		}
	}
}

func (m *Model) appendEvent(e diff.Event) {
	for _, have := range m.events {
		if have.Type == e.Type && have.AgentID == e.AgentID && have.Timestamp == e.Timestamp {
			return
		}
	}
	if e.Timestamp > m.lastEventTs {
		m.lastEventTs = e.Timestamp
	}
	m.events = append(m.events, e)
	if len(m.events) > maxEventLines {
		m.events = m.events[len(m.events)-maxEventLines:]
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("officewatch"))
	b.WriteString("  ")
	if m.connected {
		b.WriteString(okStyle.Render("● connected"))
	} else if m.err != nil && m.attempts >= maxReconnectAttempts {
		b.WriteString(warnStyle.Render("● disconnected (gave up)"))
	} else {
		b.WriteString(m.spin.View() + dimStyle.Render(" connecting"))
	}
	b.WriteString("\n")

	if m.state == nil {
		b.WriteString(dimStyle.Render("waiting for first projection"))
		return b.String()
	}

	if m.state.Notification != "" {
		b.WriteString(warnStyle.Render(m.state.Notification) + "\n")
	}

	b.WriteString(sectionMargin.Render(headerStyle.Render("AGENTS")) + "\n")
	if m.state.Orchestrator != nil {
		b.WriteString(m.agentLine(m.state.Orchestrator, true))
	}
	entries := append([]wsapi.AgentEntry(nil), m.state.Agents...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	for _, entry := range entries {
		b.WriteString(m.agentLine(entry.Agent, false))
	}

	if len(m.state.Inbox) > 0 {
		b.WriteString(sectionMargin.Render(headerStyle.Render("INBOX")) + "\n")
		for _, item := range m.state.Inbox {
			b.WriteString(fmt.Sprintf("  %s %s\n",
				okStyle.Render(item.Role), dimStyle.Render(item.Preview)))
		}
	}

	if len(m.events) > 0 {
		b.WriteString(sectionMargin.Render(headerStyle.Render("EVENTS")) + "\n")
		for i := len(m.events) - 1; i >= 0; i-- {
			e := m.events[i]
			b.WriteString(dimStyle.Render(fmt.Sprintf("  %s  %-16s %s\n",
				time.UnixMilli(e.Timestamp).Format("15:04:05"), e.Type, e.Message)))
		}
	}

	return b.String()
}

func (m Model) agentLine(agent *projection.AgentView, isOrchestrator bool) string {
	name := agent.Role
	if name == "" {
		name = agent.ID
	}
	if isOrchestrator {
		name += " ★"
	}

	bar := m.prog.ViewAs(float64(agent.Progress) / 100)
	line := fmt.Sprintf("  %-20s %-11s %s %3d%%", name, agent.State, bar, agent.Progress)
	if agent.ActiveSkill != "" {
		line += dimStyle.Render("  [" + agent.ActiveSkill + "]")
	}
	if agent.SpeechBubble != "" {
		line += "  " + bubbleStyle.Render("“"+agent.SpeechBubble+"”")
	}
	return line + "\n"
}
