// Package ui renders the live terminal dashboard. It is a read-only
// view over the position store and alert feed: all trading decisions
// stay in the monitor loop, the dashboard only draws snapshots.
package ui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/monitor"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/position"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/ui/component"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/ui/style"
)

// DefaultRefreshInterval is how often the dashboard re-reads the store.
const DefaultRefreshInterval = 2 * time.Second

// alertFeedSize limits how many recent alerts the feed pane shows.
const alertFeedSize = 5

// PositionSource is the read side of the position store.
type PositionSource interface {
	Snapshot() []position.Position
}

// AlertSource is the read side of the alert manager.
type AlertSource interface {
	Recent(limit int) []monitor.Alert
}

// Config wires the dashboard to the running sniper.
type Config struct {
	Positions PositionSource
	Alerts    AlertSource // optional, hides the feed pane when nil
	Refresh   time.Duration

	// OnExport writes an on-demand snapshot and returns the file path.
	// Optional; when nil the export key is disabled.
	OnExport func() (string, error)
}

// refreshMsg triggers a store re-read
type refreshMsg struct {
	at time.Time
}

// exportDoneMsg carries the outcome of an on-demand export
type exportDoneMsg struct {
	path string
	err  error
}

// Model is the bubbletea model for the sniper dashboard.
type Model struct {
	cfg    Config
	keyMap KeyMap
	table  *component.Table

	width  int
	height int

	positions   []position.Position
	alerts      []monitor.Alert
	startedAt   time.Time
	lastRefresh time.Time

	notice    string
	noticeErr bool

	titleStyle  lipgloss.Style
	statusStyle lipgloss.Style
	mutedStyle  lipgloss.Style
	headerStyle lipgloss.Style
	helpStyle   lipgloss.Style

	profitStyle  lipgloss.Style
	lossStyle    lipgloss.Style
	partialStyle lipgloss.Style
	closedStyle  lipgloss.Style

	alertStyles map[string]lipgloss.Style
}

// NewDashboard creates the dashboard model.
func NewDashboard(cfg Config) (*Model, error) {
	if cfg.Positions == nil {
		return nil, errors.New("dashboard: position source is required")
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = DefaultRefreshInterval
	}

	palette := style.DefaultPalette()

	m := &Model{
		cfg:       cfg,
		keyMap:    DefaultKeyMap(),
		startedAt: time.Now(),

		titleStyle: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true).
			Margin(1, 0).
			Align(lipgloss.Center),

		statusStyle: lipgloss.NewStyle().
			Foreground(palette.Text).
			Padding(0, 2),

		mutedStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted).
			Padding(0, 2),

		headerStyle: lipgloss.NewStyle().
			Foreground(palette.Secondary).
			Bold(true).
			Padding(0, 2),

		helpStyle: lipgloss.NewStyle().
			Foreground(palette.TextMuted).
			Padding(0, 2),

		profitStyle:  lipgloss.NewStyle().Foreground(palette.Success).Bold(true).Padding(0, 1),
		lossStyle:    lipgloss.NewStyle().Foreground(palette.Error).Bold(true).Padding(0, 1),
		partialStyle: lipgloss.NewStyle().Foreground(palette.Warning).Padding(0, 1),
		closedStyle:  lipgloss.NewStyle().Foreground(palette.TextMuted).Padding(0, 1),

		alertStyles: map[string]lipgloss.Style{
			"info":     lipgloss.NewStyle().Foreground(palette.Info).Padding(0, 2),
			"warning":  lipgloss.NewStyle().Foreground(palette.Warning).Padding(0, 2),
			"critical": lipgloss.NewStyle().Foreground(palette.Error).Bold(true).Padding(0, 2),
		},
	}

	if cfg.OnExport == nil {
		m.keyMap.Export.SetEnabled(false)
	}

	m.table = component.NewTable().
		AddColumn("Mint", 14, lipgloss.Left).
		AddColumn("Symbol", 10, lipgloss.Left).
		AddColumn("Buy", 12, lipgloss.Right).
		AddColumn("Current", 12, lipgloss.Right).
		AddColumn("PnL %", 9, lipgloss.Right).
		AddColumn("Sold %", 7, lipgloss.Right).
		AddColumn("Status", 11, lipgloss.Center)

	return m, nil
}

// Init schedules the first refresh immediately so the view has data
// before the first tick fires.
func (m *Model) Init() tea.Cmd {
	return func() tea.Msg {
		return refreshMsg{at: time.Now()}
	}
}

// Update handles dashboard updates
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keyMap.Refresh):
			return m, func() tea.Msg {
				return refreshMsg{at: time.Now()}
			}

		case key.Matches(msg, m.keyMap.Export):
			return m, m.exportCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width - 4)

	case refreshMsg:
		m.refresh(msg.at)
		return m, m.scheduleRefresh()

	case exportDoneMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("Export failed: %v", msg.err)
			m.noticeErr = true
		} else {
			m.notice = fmt.Sprintf("Exported to %s", msg.path)
			m.noticeErr = false
		}
	}

	return m, nil
}

// exportCmd runs the export callback off the update loop.
func (m *Model) exportCmd() tea.Cmd {
	if m.cfg.OnExport == nil {
		return nil
	}
	return func() tea.Msg {
		path, err := m.cfg.OnExport()
		return exportDoneMsg{path: path, err: err}
	}
}

// refresh pulls a fresh snapshot and rebuilds the table.
func (m *Model) refresh(at time.Time) {
	snapshot := m.cfg.Positions.Snapshot()

	// Newest snipe on top
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].CreatedAt.After(snapshot[j].CreatedAt)
	})

	m.positions = snapshot
	m.lastRefresh = at

	if m.cfg.Alerts != nil {
		m.alerts = m.cfg.Alerts.Recent(alertFeedSize)
	}

	rows := make([][]string, 0, len(snapshot))
	for _, pos := range snapshot {
		rows = append(rows, []string{
			shortMint(pos.MintAddress),
			pos.Symbol,
			fmt.Sprintf("%.8f", pos.BuyPrice),
			fmt.Sprintf("%.8f", pos.CurrentPrice),
			fmt.Sprintf("%+.1f%%", pos.PnLPercent()),
			fmt.Sprintf("%.0f%%", pos.SoldPercentage),
			pos.Status,
		})
	}
	m.table.SetRows(rows)

	for i, pos := range snapshot {
		pnl := pos.PnLPercent()
		switch {
		case !pos.Open():
			m.table.SetRowStyle(i, m.closedStyle)
		case pos.SoldPercentage > 0:
			m.table.SetRowStyle(i, m.partialStyle)
		case pnl >= 5:
			m.table.SetRowStyle(i, m.profitStyle)
		case pnl <= -5:
			m.table.SetRowStyle(i, m.lossStyle)
		}
	}
}

// scheduleRefresh re-arms the refresh timer
func (m *Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.cfg.Refresh, func(t time.Time) tea.Msg {
		return refreshMsg{at: t}
	})
}

// View renders the dashboard
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content strings.Builder

	content.WriteString(m.titleStyle.Width(m.width).Render("🎯 Pump.fun Sniper"))
	content.WriteString("\n\n")

	content.WriteString(m.renderStatusBar())
	content.WriteString("\n")

	if m.notice != "" {
		noticeStyle := m.mutedStyle
		if m.noticeErr {
			noticeStyle = m.lossStyle.Padding(0, 2)
		}
		content.WriteString(noticeStyle.Render(m.notice))
		content.WriteString("\n")
	}
	content.WriteString("\n")

	if len(m.positions) > 0 {
		content.WriteString(m.table.View())
	} else {
		content.WriteString(m.mutedStyle.Render("No positions yet. Waiting for new tokens on pump.fun..."))
	}
	content.WriteString("\n")

	if m.cfg.Alerts != nil {
		content.WriteString("\n")
		content.WriteString(m.renderAlerts())
	}

	content.WriteString("\n")
	content.WriteString(m.renderHelp())

	return content.String()
}

// renderStatusBar renders the aggregate counters line
func (m *Model) renderStatusBar() string {
	open := 0
	spent := 0.0
	for _, pos := range m.positions {
		if pos.Open() {
			open++
		}
		spent += pos.SolSpent
	}

	parts := []string{
		fmt.Sprintf("Tokens: %d", len(m.positions)),
		fmt.Sprintf("Open: %d", open),
		fmt.Sprintf("Spent: %.3f SOL", spent),
	}
	if !m.lastRefresh.IsZero() {
		parts = append(parts, fmt.Sprintf("Updated: %s", m.lastRefresh.Format("15:04:05")))
	}
	parts = append(parts, fmt.Sprintf("Up: %s", time.Since(m.startedAt).Round(time.Second)))

	return m.statusStyle.Render(strings.Join(parts, " • "))
}

// renderAlerts renders the recent alert feed
func (m *Model) renderAlerts() string {
	var content strings.Builder

	content.WriteString(m.headerStyle.Render("Recent Alerts"))
	content.WriteString("\n")

	if len(m.alerts) == 0 {
		content.WriteString(m.mutedStyle.Render("none"))
		return content.String()
	}

	for i := len(m.alerts) - 1; i >= 0; i-- {
		alert := m.alerts[i]
		alertStyle, ok := m.alertStyles[alert.Severity]
		if !ok {
			alertStyle = m.statusStyle
		}
		line := fmt.Sprintf("%s  %s", alert.Timestamp.Format("15:04:05"), alert.Message)
		content.WriteString(alertStyle.Render(line))
		if i > 0 {
			content.WriteString("\n")
		}
	}

	return content.String()
}

// renderHelp renders the key binding hints
func (m *Model) renderHelp() string {
	var parts []string
	for _, binding := range m.keyMap.ShortHelp() {
		if !binding.Enabled() {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s", binding.Help().Key, binding.Help().Desc))
	}
	return m.helpStyle.Render(strings.Join(parts, " • "))
}

// shortMint compresses a mint address for display
func shortMint(mint string) string {
	if len(mint) <= 12 {
		return mint
	}
	return mint[:5] + ".." + mint[len(mint)-5:]
}

// Run drives the dashboard until the user quits or ctx is cancelled.
// Cancellation through ctx is a normal shutdown, not an error.
func Run(ctx context.Context, cfg Config) error {
	model, err := NewDashboard(cfg)
	if err != nil {
		return err
	}

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
