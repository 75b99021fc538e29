package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/richmansdream/crmdesk/internal/dashboard"
	"github.com/richmansdream/crmdesk/internal/ux"
)

// DashboardLoader loads the dashboard sections
type DashboardLoader func(ctx context.Context) (*dashboard.Data, error)

type dashboardMsg struct {
	data *dashboard.Data
	err  error
}

const barWidth = 32

type dashboardView struct {
	ctx     context.Context
	load    DashboardLoader
	styles  Styles
	now     func() time.Time
	spinner spinner.Model

	loading bool
	data    *dashboard.Data
	err     error
}

func newDashboardView(ctx context.Context, load DashboardLoader, styles Styles, now func() time.Time) *dashboardView {
	return &dashboardView{
		ctx:     ctx,
		load:    load,
		styles:  styles,
		now:     now,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Key)),
	}
}

func (v *dashboardView) Init() tea.Cmd {
	if v.load == nil {
		return nil
	}
	v.loading = true
	ctx, load := v.ctx, v.load
	return tea.Batch(v.spinner.Tick, func() tea.Msg {
		data, err := load(ctx)
		return dashboardMsg{data: data, err: err}
	})
}

func (v *dashboardView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case dashboardMsg:
		v.loading = false
		v.err = msg.err
		if msg.data != nil {
			v.data = msg.data
		}
		return nil
	case spinner.TickMsg:
		if !v.loading {
			return nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return cmd
	case tea.KeyMsg:
		if msg.String() == "r" && !v.loading {
			return v.Init()
		}
	}
	return nil
}

func (v *dashboardView) View() string {
	s := v.styles
	if v.data == nil {
		if v.err != nil {
			return s.Error.Render("Failed to load dashboard: " + v.err.Error())
		}
		return v.spinner.View() + " Loading dashboard..."
	}

	var b strings.Builder
	b.WriteString(v.cards())
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, v.salesChart(), "   ", v.recentLeads()))
	if v.data.UsingFallback() {
		b.WriteString("\n")
		b.WriteString(s.Warning.Render("Some sections show sample data; the server did not provide them."))
	}
	if v.loading {
		b.WriteString("\n" + v.spinner.View() + " Refreshing...")
	}
	return b.String()
}

func (v *dashboardView) card(label, value string) string {
	s := v.styles
	return s.Card.Render(s.CardLabel.Render(label) + "\n" + s.CardValue.Render(value))
}

func (v *dashboardView) cards() string {
	st := v.data.Stats
	growth := fmt.Sprintf("%+.1f%% this month", st.MonthlyGrowth)
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top,
			v.card("Total Leads", ux.Count(st.TotalLeads)),
			v.card("Hot Leads", ux.Count(st.HotLeads)),
			v.card("Scheduled Viewings", ux.Count(st.ScheduledViewings)),
		),
		lipgloss.JoinHorizontal(lipgloss.Top,
			v.card("Active Sales", ux.Count(st.ActiveSales)),
			v.card("Closed This Month", ux.Count(st.ClosedDealsThisMonth)),
			v.card("Revenue", ux.Optional(st.TotalRevenue)+"\n"+v.styles.Muted.Render(growth)),
		),
	)
}

// salesChart renders monthly sales as horizontal bars
func (v *dashboardView) salesChart() string {
	s := v.styles
	points := v.data.Charts.SalesChart
	var b strings.Builder
	b.WriteString(s.Key.Render("Sales"))
	if len(points) == 0 {
		b.WriteString("\n" + s.Muted.Render("No sales data"))
		return b.String()
	}

	top := dashboard.MaxSales(points)
	for _, p := range points {
		n := min(max(p.Sales*barWidth/top, 0), barWidth)
		bar := s.Bar.Render(strings.Repeat("█", n)) + s.Muted.Render(strings.Repeat("░", barWidth-n))
		fmt.Fprintf(&b, "\n%-4s %s %s", p.Month, bar, ux.Count(p.Sales))
	}
	return b.String()
}

func (v *dashboardView) recentLeads() string {
	s := v.styles
	var b strings.Builder
	b.WriteString(s.Key.Render("Recent Leads"))
	if len(v.data.RecentLeads) == 0 {
		b.WriteString("\n" + s.Muted.Render("No leads yet"))
		return b.String()
	}
	now := v.now()
	for _, l := range v.data.RecentLeads {
		status := statusStyle(string(l.Status)).Render(fmt.Sprintf("%-5s", l.Status))
		fmt.Fprintf(&b, "\n%s  %-20s %s", status, ux.Truncate(l.Name, 20), s.Muted.Render(ux.Ago(l.CreatedAt, now)))
	}
	return b.String()
}
