package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/richmansdream/crmdesk/internal/dashboard"
	"github.com/richmansdream/crmdesk/internal/ux"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show headline numbers, sales and the newest leads",
	Long: `Show the dashboard: headline stats, monthly sales, lead status
distribution and the five newest leads. The sections load concurrently.

Examples:
  crmdesk dashboard
  crmdesk dashboard -o json --query 'stats.hotLeads'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cc, err := NewCommandContext(cmd)
		if err != nil {
			return err
		}
		defer cc.Close()

		client, creds, err := cc.Reader(cmd.Context())
		if err != nil {
			return err
		}
		data, err := cc.LoadDashboard(cmd.Context(), client, creds)
		if err != nil {
			return err
		}
		return cc.Print(&dashboardReport{data: data, now: time.Now()})
	},
}

const reportBarWidth = 30

var (
	reportHeading = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	reportWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	reportBar     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

type dashboardReport struct {
	data *dashboard.Data
	now  time.Time
}

func (r *dashboardReport) Data() any {
	return r.data
}

func (r *dashboardReport) RenderText(w io.Writer, noColor bool) error {
	style := func(s lipgloss.Style, text string) string {
		if noColor {
			return text
		}
		return s.Render(text)
	}

	var b strings.Builder
	st := r.data.Stats
	b.WriteString(style(reportHeading, "Overview") + "\n")
	fmt.Fprintf(&b, "  Total leads      %s\n", ux.Count(st.TotalLeads))
	fmt.Fprintf(&b, "  Hot leads        %s\n", ux.Count(st.HotLeads))
	fmt.Fprintf(&b, "  Viewings         %s\n", ux.Count(st.ScheduledViewings))
	fmt.Fprintf(&b, "  Active sales     %s\n", ux.Count(st.ActiveSales))
	fmt.Fprintf(&b, "  Closed (month)   %s\n", ux.Count(st.ClosedDealsThisMonth))
	fmt.Fprintf(&b, "  Revenue          %s (%+.1f%%)\n", st.TotalRevenue, st.MonthlyGrowth)

	if points := r.data.Charts.SalesChart; len(points) > 0 {
		b.WriteString("\n" + style(reportHeading, "Monthly sales") + "\n")
		top := dashboard.MaxSales(points)
		for _, p := range points {
			n := min(max(p.Sales*reportBarWidth/top, 0), reportBarWidth)
			bar := style(reportBar, strings.Repeat("█", n))
			fmt.Fprintf(&b, "  %-4s %s %s\n", p.Month, bar, ux.Count(p.Sales))
		}
	}

	if dist := r.data.Charts.StatusDistribution; len(dist) > 0 {
		b.WriteString("\n" + style(reportHeading, "Lead status") + "\n")
		for _, s := range dist {
			fmt.Fprintf(&b, "  %-6s %s\n", s.Name, ux.Count(s.Value))
		}
	}

	b.WriteString("\n" + style(reportHeading, "Recent leads") + "\n")
	if len(r.data.RecentLeads) == 0 {
		b.WriteString("  No leads yet.\n")
	}
	for _, l := range r.data.RecentLeads {
		fmt.Fprintf(&b, "  %-20s %-5s %s\n", ux.Truncate(l.Name, 20), l.Status, ux.Ago(l.CreatedAt, r.now))
	}

	if r.data.UsingFallback() {
		parts := make([]string, len(r.data.Fallback))
		for i, p := range r.data.Fallback {
			parts[i] = string(p)
		}
		b.WriteString("\n" + style(reportWarning, "Showing sample data for: "+strings.Join(parts, ", ")) + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
