package component

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
	"github.com/rovshanmuradov/pumpbot/internal/ui/style"
)

// DefaultCapacity bounds how many launches the table keeps.
const DefaultCapacity = 100

// LaunchTable lists launches newest first.
type LaunchTable struct {
	model    table.Model
	launches []models.RecentLaunch
	capacity int
	now      func() time.Time
}

func NewLaunchTable(capacity int) *LaunchTable {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	palette := style.DefaultPalette()

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(palette.TextMuted).
		BorderBottom(true).
		Foreground(palette.Secondary).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(palette.Background).
		Background(palette.Primary).
		Bold(false)

	m := table.New(
		table.WithColumns([]table.Column{
			{Title: "Age", Width: 6},
			{Title: "Symbol", Width: 10},
			{Title: "Name", Width: 24},
			{Title: "Agent", Width: 16},
			{Title: "Market cap", Width: 12},
			{Title: "Bonding", Width: 8},
			{Title: "Address", Width: 44},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
		table.WithWidth(136),
	)
	m.SetStyles(styles)

	return &LaunchTable{model: m, capacity: capacity, now: time.Now}
}

// SetLaunches replaces the content.
func (t *LaunchTable) SetLaunches(launches []models.RecentLaunch) {
	t.launches = append(t.launches[:0:0], launches...)
	sort.SliceStable(t.launches, func(i, j int) bool {
		return t.launches[i].CreatedAt.After(t.launches[j].CreatedAt)
	})
	if len(t.launches) > t.capacity {
		t.launches = t.launches[:t.capacity]
	}
	t.refresh()
}

// Insert puts l at the top, replacing an older row for the same address.
// It reports whether the address was new to the table.
func (t *LaunchTable) Insert(l models.RecentLaunch) bool {
	fresh := true
	out := make([]models.RecentLaunch, 0, len(t.launches)+1)
	out = append(out, l)
	for _, existing := range t.launches {
		if existing.Address == l.Address {
			fresh = false
			continue
		}
		out = append(out, existing)
	}
	if len(out) > t.capacity {
		out = out[:t.capacity]
	}
	t.launches = out
	t.refresh()
	return fresh
}

// Len returns the number of rows.
func (t *LaunchTable) Len() int {
	return len(t.launches)
}

// Selected returns the launch under the cursor.
func (t *LaunchTable) Selected() (models.RecentLaunch, bool) {
	i := t.model.Cursor()
	if i < 0 || i >= len(t.launches) {
		return models.RecentLaunch{}, false
	}
	return t.launches[i], true
}

// SetSize fits the table into the given area.
func (t *LaunchTable) SetSize(width, height int) {
	t.model.SetWidth(width)
	if height > 3 {
		t.model.SetHeight(height)
	}
}

func (t *LaunchTable) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	t.model, cmd = t.model.Update(msg)
	return cmd
}

func (t *LaunchTable) View() string {
	return t.model.View()
}

func (t *LaunchTable) refresh() {
	now := t.now()
	rows := make([]table.Row, len(t.launches))
	for i, l := range t.launches {
		agent := l.AgentName
		if agent == "" {
			agent = "-"
		}
		rows[i] = table.Row{
			FormatAge(now.Sub(l.CreatedAt)),
			l.Symbol,
			l.Name,
			agent,
			FormatMarketCap(l.MarketCap),
			fmt.Sprintf("%.1f%%", l.BondingProgress),
			l.Address,
		}
	}
	t.model.SetRows(rows)
}

// FormatAge renders a duration in its largest whole unit.
func FormatAge(d time.Duration) string {
	switch {
	case d < 0:
		return "now"
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

// FormatMarketCap abbreviates large values.
func FormatMarketCap(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
