package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Adirelle/docker-graph/pkg/stream"
	"github.com/Adirelle/docker-graph/pkg/topology"
)

// Dashboard styles
var (
	dashLabelStyle  = lipgloss.NewStyle().Foreground(colorGray).Width(12)
	dashOpenStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	dashClosedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	dashDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// Dashboard messages
// =============================================================================

// statusMsg reports a connector transition.
type statusMsg stream.Status

// flushMsg summarizes one pipeline flush.
type flushMsg struct {
	counts map[topology.Kind]int
	links  int
	at     time.Time
	err    error
}

// newFlushMsg counts the nodes of snap. It runs on the pipeline goroutine,
// so only plain values leave it.
func newFlushMsg(snap topology.Snapshot, err error) flushMsg {
	return flushMsg{counts: snap.CountByKind(), links: len(snap.Links), at: time.Now(), err: err}
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// =============================================================================
// DashboardModel - live watch status
// =============================================================================

// DashboardModel is the bubbletea model of `watch --tui`.
type DashboardModel struct {
	URL     string
	Output  string
	Status  stream.Status
	Since   time.Time
	Counts  map[topology.Kind]int
	Links   int
	Flushes int
	Last    time.Time
	Err     error
	now     time.Time
	spinner spinner.Model
}

// NewDashboardModel creates a dashboard for url.
func NewDashboardModel(url, output string) DashboardModel {
	now := time.Now()
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorBlue)
	return DashboardModel{URL: url, Output: output, Status: stream.StatusClosed, Since: now, now: now, spinner: s}
}

func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(tick(), m.spinner.Tick)
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case statusMsg:
		m.Status = stream.Status(msg)
		m.Since = time.Now()
	case flushMsg:
		m.Counts = msg.counts
		m.Links = msg.links
		m.Last = msg.at
		m.Err = msg.err
		m.Flushes++
	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m DashboardModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("docker-graph watch"))
	b.WriteString("\n")
	b.WriteString(dashDimStyle.Render("q quit"))
	b.WriteString("\n\n")

	status := m.spinner.View() + " " + dashClosedStyle.Render(m.Status.String())
	if m.Status == stream.StatusOpen {
		status = dashOpenStyle.Render(m.Status.String())
	}
	b.WriteString(dashLabelStyle.Render("Stream") + " " + StyleLink.Render(m.URL) + "\n")
	b.WriteString(dashLabelStyle.Render("Status") + " " + status + " " +
		dashDimStyle.Render("for "+formatSince(m.now, m.Since)) + "\n")
	b.WriteString(dashLabelStyle.Render("Output") + " " + StyleValue.Render(m.Output) + "\n")

	last := "never"
	if !m.Last.IsZero() {
		last = formatSince(m.now, m.Last) + " ago"
	}
	b.WriteString(dashLabelStyle.Render("Last flush") + " " + StyleValue.Render(last) +
		dashDimStyle.Render(fmt.Sprintf(" (%d total)", m.Flushes)) + "\n")
	if m.Err != nil {
		b.WriteString(dashLabelStyle.Render("Error") + " " + StyleWarning.Render(m.Err.Error()) + "\n")
	}
	b.WriteString("\n")

	rows := make([][]string, 0, len(topology.Kinds())+1)
	for _, k := range topology.Kinds() {
		rows = append(rows, []string{k.String(), strconv.Itoa(m.Counts[k])})
	}
	rows = append(rows, []string{"links", strconv.Itoa(m.Links)})

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Kind", "Count").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 {
				return StyleNumber
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}

// formatSince formats the time elapsed since t.
func formatSince(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
