package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/buildwatch/buildwatch/internals/progress"
)

const (
	headerHeight = 3
	footerHeight = 3
)

// stateMsg carries a fresh snapshot from the subscription.
type stateMsg progress.State

type WatchOptions struct {
	Title string
	// ExitOnComplete quits as soon as the stream reaches a terminal phase.
	ExitOnComplete bool
}

type watchModel struct {
	sub      *progress.Subscription
	opts     WatchOptions
	state    progress.State
	viewport viewport.Model
	spinner  spinner.Model
	follow   bool
	width    int
	quitting bool
}

// RunWatch shows live progress for sub until the user leaves or, with
// ExitOnComplete, until the run ends. The subscription is closed on return
// and its final snapshot is returned.
func RunWatch(in io.Reader, out io.Writer, sub *progress.Subscription, opts WatchOptions) (progress.State, error) {
	defer sub.Close()
	program := tea.NewProgram(newWatchModel(sub, opts), tea.WithInput(in), tea.WithOutput(out), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return sub.Snapshot(), err
	}
	return sub.Snapshot(), nil
}

func newWatchModel(sub *progress.Subscription, opts WatchOptions) watchModel {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(colorBlue)

	m := watchModel{
		sub:      sub,
		opts:     opts,
		viewport: viewport.New(80, 20),
		spinner:  spin,
		follow:   true,
	}
	if sub != nil {
		m.state = sub.Snapshot()
	}
	return m
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForChange(m.sub))
}

// waitForChange blocks until the subscription publishes a change or ends.
func waitForChange(sub *progress.Subscription) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-sub.Changes():
		case <-sub.Done():
		}
		return stateMsg(sub.Snapshot())
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "G", "end":
			m.follow = true
			m.viewport.GotoBottom()
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-headerHeight-footerHeight, 3)
		m.refresh()
		return m, nil
	case stateMsg:
		m.state = progress.State(msg)
		m.refresh()
		if m.state.Phase.Terminal() {
			if m.opts.ExitOnComplete {
				return m, tea.Quit
			}
			return m, nil
		}
		return m, waitForChange(m.sub)
	case spinner.TickMsg:
		if m.state.Phase.Terminal() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	m.follow = m.viewport.AtBottom()
	return m, cmd
}

func (m *watchModel) refresh() {
	lines := make([]string, 0, len(m.state.Logs))
	for _, entry := range m.state.Logs {
		lines = append(lines, FormatLog(entry))
	}
	if len(lines) == 0 {
		lines = append(lines, StyleHint.Render("Waiting for agent output..."))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m watchModel) View() string {
	if m.quitting {
		return ""
	}
	return strings.Join([]string{m.header(), m.viewport.View(), m.footer()}, "\n")
}

func (m watchModel) header() string {
	title := m.opts.Title
	if title == "" {
		title = fmt.Sprintf("Project #%d", m.state.ProjectID)
	}
	return StyleTitle.Render(title) + "  " + StatusBadge(m.state.Status) + "\n" +
		m.connection() + "\n"
}

func (m watchModel) connection() string {
	switch m.state.Phase {
	case progress.PhaseIdle, progress.PhaseConnecting:
		return m.spinner.View() + StyleHint.Render(" connecting...")
	case progress.PhaseOpen:
		return m.spinner.View() + StyleLabel.Render(fmt.Sprintf(" live  %d log entries", len(m.state.Logs)))
	case progress.PhaseErrorClosed:
		return StyleError.Render("stream lost: " + m.state.Cause)
	case progress.PhaseComplete:
		return StyleLabel.Render(fmt.Sprintf("finished  %d log entries", len(m.state.Logs)))
	default:
		return StyleLabel.Render("stream closed")
	}
}

func (m watchModel) footer() string {
	var result string
	switch {
	case m.state.Complete && m.state.Failed():
		result = StyleError.Render("Run failed: " + firstNonEmpty(m.state.Error, "agent reported failure"))
	case m.state.Complete:
		result = StyleSuccess.Render("Done: " + firstNonEmpty(m.state.ResultSummary, "run completed"))
	case m.state.Phase == progress.PhaseErrorClosed:
		result = StyleHint.Render("The connection dropped. Run the watch command again to reconnect.")
	}
	hint := "q: quit  ↑/↓: scroll  G: follow"
	return "\n" + result + "\n" + StyleHint.Render(hint)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
