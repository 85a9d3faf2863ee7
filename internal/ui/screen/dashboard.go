// Package screen holds the pumpwatch dashboard screen.
package screen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/pumpbot/internal/registry"
	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
	"github.com/rovshanmuradov/pumpbot/internal/ui"
	"github.com/rovshanmuradov/pumpbot/internal/ui/component"
	"github.com/rovshanmuradov/pumpbot/internal/ui/style"
)

// RecentLimit is how many launches a refresh loads.
const RecentLimit = 50

// Source is where the dashboard reads launches and stats from.
type Source interface {
	Launches(ctx context.Context, limit int) ([]models.RecentLaunch, error)
	Tokens(ctx context.Context, q registry.Query) (*registry.Page, error)
}

// Dashboard shows recent launches with registry stats and live inserts.
type Dashboard struct {
	source  Source
	timeout time.Duration

	keys    ui.KeyMap
	help    help.Model
	spinner spinner.Model
	table   *component.LaunchTable

	stats      models.Stats
	loading    bool
	live       bool
	liveErr    error
	err        error
	lastUpdate time.Time
	width      int
	height     int
}

func NewDashboard(source Source, timeout time.Duration) *Dashboard {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(style.DefaultPalette().Primary)

	return &Dashboard{
		source:  source,
		timeout: timeout,
		keys:    ui.DefaultKeyMap(),
		help:    help.New(),
		spinner: sp,
		table:   component.NewLaunchTable(component.DefaultCapacity),
		loading: true,
	}
}

func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.spinner.Tick, d.refresh())
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, d.keys.Quit):
			return d, tea.Quit
		case key.Matches(msg, d.keys.Refresh):
			d.loading = true
			return d, d.refresh()
		case key.Matches(msg, d.keys.Help):
			d.help.ShowAll = !d.help.ShowAll
			return d, nil
		}
		return d, d.table.Update(msg)

	case tea.WindowSizeMsg:
		d.width, d.height = msg.Width, msg.Height
		d.help.Width = msg.Width
		d.table.SetSize(msg.Width, msg.Height-8)
		return d, nil

	case ui.LaunchesLoadedMsg:
		d.table.SetLaunches(msg.Launches)
		d.loading = false
		d.err = nil
		d.lastUpdate = time.Now()
		return d, nil

	case ui.StatsLoadedMsg:
		d.stats = msg.Stats
		return d, nil

	case ui.NewLaunchMsg:
		if d.table.Insert(msg.Launch) {
			d.stats.TotalLaunches++
		}
		d.lastUpdate = time.Now()
		return d, nil

	case ui.LiveStatusMsg:
		d.live = msg.Connected
		d.liveErr = msg.Err
		return d, nil

	case ui.ErrorMsg:
		d.loading = false
		d.err = fmt.Errorf("%s: %w", msg.Title, msg.Err)
		return d, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd
	}
	return d, nil
}

func (d *Dashboard) View() string {
	var b strings.Builder

	title := style.TitleStyle.Render("PumpBot launches")
	if d.loading {
		title += " " + d.spinner.View()
	}
	b.WriteString(title + "\n")
	b.WriteString(d.statsLine() + "\n\n")
	b.WriteString(style.PanelStyle.Render(d.table.View()) + "\n")
	b.WriteString(d.statusLine() + "\n")
	b.WriteString(d.help.View(d.keys))
	return b.String()
}

// Stats returns the aggregates currently shown.
func (d *Dashboard) Stats() models.Stats {
	return d.stats
}

// Rows returns the number of launches listed.
func (d *Dashboard) Rows() int {
	return d.table.Len()
}

func (d *Dashboard) statsLine() string {
	v := style.StatValueStyle.Render
	return style.StatsStyle.Render(fmt.Sprintf("Launches %s   Volume 24h %s   Agents %s",
		v(fmt.Sprintf("%d", d.stats.TotalLaunches)),
		v(component.FormatMarketCap(d.stats.TotalVolume)),
		v(fmt.Sprintf("%d", d.stats.ActiveAgents))))
}

func (d *Dashboard) statusLine() string {
	var parts []string
	switch {
	case d.live:
		parts = append(parts, style.StatusOKStyle.Render("● live"))
	case d.liveErr != nil:
		parts = append(parts, style.StatusErrorStyle.Render("○ offline: "+d.liveErr.Error()))
	default:
		parts = append(parts, style.MutedStyle.Render("○ connecting"))
	}
	if !d.lastUpdate.IsZero() {
		parts = append(parts, style.MutedStyle.Render("updated "+d.lastUpdate.Format("15:04:05")))
	}
	if d.err != nil {
		parts = append(parts, style.StatusErrorStyle.Render(d.err.Error()))
	}
	return strings.Join(parts, "  ")
}

func (d *Dashboard) refresh() tea.Cmd {
	return tea.Batch(d.fetchLaunches, d.fetchStats)
}

func (d *Dashboard) fetchLaunches() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	launches, err := d.source.Launches(ctx, RecentLimit)
	if err != nil {
		return ui.ErrorMsg{Err: err, Title: "failed to load launches"}
	}
	return ui.LaunchesLoadedMsg{Launches: launches}
}

func (d *Dashboard) fetchStats() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	page, err := d.source.Tokens(ctx, registry.Query{Limit: "1"})
	if err != nil {
		return ui.ErrorMsg{Err: err, Title: "failed to load stats"}
	}
	if page.Stats == nil {
		return ui.StatsLoadedMsg{}
	}
	return ui.StatsLoadedMsg{Stats: *page.Stats}
}
