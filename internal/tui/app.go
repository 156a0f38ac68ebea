// Package tui renders the single-universe decode dashboard: decoder
// lock state, frame/relock rates, sACN publish status, and a scrollable
// 512-channel grid. It keeps the teacher's bubbletea/bubbles/lipgloss
// stack and card-grid layout, generalised from a multi-universe tab
// view down to the one universe this bridge ever carries.
package tui

import (
	"fmt"
	"time"

	"github.com/edelmann/spidmx-monitor/internal/dmxframe"
	"github.com/edelmann/spidmx-monitor/internal/sacn"
	"github.com/edelmann/spidmx-monitor/internal/spidmx"
	"github.com/edelmann/spidmx-monitor/internal/stats"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Colors
var (
	cyanColor = lipgloss.Color("#00FFFF")
	grayColor = lipgloss.Color("#666666")

	whiteColor  = lipgloss.Color("#FFFFFF")
	yellowColor = lipgloss.Color("#FFFF00")
	redColor    = lipgloss.Color("#FF6666")
	greenColor  = lipgloss.Color("#66FF66")
)

// Styles
var (
	activeCardStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(cyanColor).
			Width(4)

	inactiveCardStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder()).
				BorderForeground(grayColor).
				Width(4)

	statsStyle = lipgloss.NewStyle().
			Foreground(whiteColor)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(whiteColor).
			Background(lipgloss.Color("#1a1a2e")).
			Padding(0, 2)

	stateActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(greenColor).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(greenColor).
				Padding(0, 1)

	stateWaitingStyle = lipgloss.NewStyle().
				Foreground(grayColor).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(grayColor).
				Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(grayColor)
)

// KeyMap defines keybindings
type KeyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

var keys = KeyMap{
	Up:   key.NewBinding(key.WithKeys("up", "k")),
	Down: key.NewBinding(key.WithKeys("down", "j")),
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

// StateFunc reports the decoder's current state. internal/spidmx.Parser
// is not safe for concurrent reads, so the capture goroutine publishes
// its state through this callback rather than the TUI reaching into the
// parser directly.
type StateFunc func() spidmx.State

// Model is the single-universe decode dashboard.
type Model struct {
	frame     *dmxframe.Frame
	tracker   *stats.Tracker
	publisher *sacn.Publisher
	stateFn   StateFunc
	universe  uint16

	scrollOffset  int
	width         int
	height        int
	columnsPerRow int
}

// NewModel creates the dashboard model. publisher may be nil when sACN
// publication is disabled.
func NewModel(frame *dmxframe.Frame, tracker *stats.Tracker, publisher *sacn.Publisher, stateFn StateFunc, universe uint16) Model {
	return Model{
		frame:         frame,
		tracker:       tracker,
		publisher:     publisher,
		stateFn:       stateFn,
		universe:      universe,
		columnsPerRow: 16,
	}
}

// TickMsg is a message for periodic updates
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Down):
			m.scrollOffset += m.columnsPerRow
		case key.Matches(msg, keys.Up):
			if m.scrollOffset >= m.columnsPerRow {
				m.scrollOffset -= m.columnsPerRow
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Calculate columns: each card is ~6 chars wide (4 + border)
		m.columnsPerRow = max(1, (m.width-2)/6)

	case TickMsg:
		return m, tickCmd()
	}

	return m, nil
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var s string

	s += titleStyle.Render(fmt.Sprintf("spidmx-monitor — universe %d", m.universe)) + "\n\n"

	state := spidmx.StateWaitForBreak
	if m.stateFn != nil {
		state = m.stateFn()
	}
	if state == spidmx.StateWaitForBreak {
		s += stateWaitingStyle.Render(state.String()) + "\n\n"
	} else {
		s += stateActiveStyle.Render(state.String()) + "\n\n"
	}

	s += m.renderStats() + "\n\n"
	s += m.renderChannelGrid() + "\n"

	s += "\n" + helpStyle.Render("↑↓: scroll | q: quit")

	return s
}

func (m Model) renderStats() string {
	rate := m.tracker.FrameRate()
	relockRate := m.tracker.RelockRate()
	truncated := m.tracker.TruncatedFramePercentage()
	active := m.frame.ActiveChannelCount()

	truncStr := fmt.Sprintf("%.1f%%", truncated)
	if truncated > 10 {
		truncStr = lipgloss.NewStyle().Foreground(redColor).Render(truncStr)
	} else if truncated > 0 {
		truncStr = lipgloss.NewStyle().Foreground(yellowColor).Render(truncStr)
	}

	publishStr := "disabled"
	if m.publisher != nil {
		last := m.publisher.LastPublish()
		if last.IsZero() {
			publishStr = "waiting"
		} else {
			publishStr = fmt.Sprintf("%.1fs ago", time.Since(last).Seconds())
		}
	}

	line := fmt.Sprintf(
		"Frames: %.1f/s | Relocks: %.1f/min | Truncated: %s | Active: %d/512 | sACN: %s",
		rate,
		relockRate,
		truncStr,
		active,
		publishStr,
	)

	return statsStyle.Render(line)
}

func (m Model) renderChannelGrid() string {
	channels := m.frame.Snapshot()

	var rows []string
	channelsPerRow := m.columnsPerRow
	if channelsPerRow < 1 {
		channelsPerRow = 16
	}

	// Reserve space for: title(2) + state(4: bordered banner + blank) +
	// stats(2) + help(2) = 10 lines
	availableHeight := m.height - 10
	if availableHeight < 4 {
		availableHeight = 4
	}
	// Each card row is 4 lines tall (border + 2 content + border)
	rowsPerScreen := availableHeight / 4
	if rowsPerScreen < 1 {
		rowsPerScreen = 1
	}

	startChannel := m.scrollOffset
	if startChannel >= 512 {
		startChannel = 512 - channelsPerRow
	}
	if startChannel < 0 {
		startChannel = 0
	}

	endChannel := min(512, startChannel+(rowsPerScreen*channelsPerRow))

	for i := startChannel; i < endChannel; i += channelsPerRow {
		var cards []string
		for j := 0; j < channelsPerRow && (i+j) < 512; j++ {
			ch := channels[i+j]
			channelNum := i + j + 1 // 1-based channel number

			var cardStyle lipgloss.Style
			var valueStr string

			if ch.Active {
				cardStyle = activeCardStyle
				valueStr = fmt.Sprintf("%3d", ch.Value)
			} else {
				cardStyle = inactiveCardStyle
				valueStr = " . "
			}

			cardContent := fmt.Sprintf("%3d\n%s", channelNum, valueStr)
			cards = append(cards, cardStyle.Render(cardContent))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
