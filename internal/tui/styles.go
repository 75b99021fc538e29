package tui

import "github.com/charmbracelet/lipgloss"

// Styles contains lipgloss styles for the console
type Styles struct {
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Error       lipgloss.Style
	Success     lipgloss.Style
	Warning     lipgloss.Style
	Muted       lipgloss.Style
	Border      lipgloss.Style
	Highlighted lipgloss.Style
	Help        lipgloss.Style
	Key         lipgloss.Style
	KeyDesc     lipgloss.Style
	Tab         lipgloss.Style
	ActiveTab   lipgloss.Style
	Card        lipgloss.Style
	CardLabel   lipgloss.Style
	CardValue   lipgloss.Style
	Bar         lipgloss.Style
	Toast       lipgloss.Style
}

// DefaultStyles returns the default lipgloss styles
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")). // Purple
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")), // Red
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")), // Green
		Warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226")), // Yellow
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1),
		Highlighted: lipgloss.NewStyle().
			Background(lipgloss.Color("63")).
			Foreground(lipgloss.Color("230")).
			Bold(true).
			Padding(0, 1),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1),
		Key: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")),
		KeyDesc: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Tab: lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Padding(0, 2),
		ActiveTab: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("63")).
			Padding(0, 2),
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 2).
			Width(22),
		CardLabel: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		CardValue: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")), // Cyan
		Bar: lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")),
		Toast: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
	}
}

// statusStyle colours a lead or email status
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "hot", "failed":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	case "warm", "draft":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	case "cold", "sent":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	case "delivered", "read":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	default:
		return lipgloss.NewStyle()
	}
}

// keyHelp renders "key desc" pairs on one line
func (s Styles) keyHelp(pairs ...string) string {
	out := ""
	for i := 0; i+1 < len(pairs); i += 2 {
		if out != "" {
			out += s.Muted.Render(" • ")
		}
		out += s.Key.Render(pairs[i]) + " " + s.KeyDesc.Render(pairs[i+1])
	}
	return s.Help.Render(out)
}
