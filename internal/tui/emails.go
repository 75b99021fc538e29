package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/richmansdream/crmdesk/internal/model"
	"github.com/richmansdream/crmdesk/internal/query"
	"github.com/richmansdream/crmdesk/internal/ux"
)

// TemplateLoader reads the active email templates
type TemplateLoader func(ctx context.Context) ([]model.EmailTemplate, error)

type templatesMsg struct {
	templates []model.EmailTemplate
	err       error
}

var emailColumns = []column[model.Email]{
	{title: "Subject", width: 30, value: func(e model.Email, _ time.Time) string { return ux.Truncate(e.Subject, 30) }},
	{title: "Contact", width: 28, value: func(e model.Email, _ time.Time) string { return e.Counterparty() }},
	{title: "Lead", width: 16, value: func(e model.Email, _ time.Time) string { return ux.Optional(e.LeadName) }},
	{title: "Status", width: 10, value: func(e model.Email, _ time.Time) string { return string(e.Status) }},
	{title: "Dir", width: 8, value: func(e model.Email, _ time.Time) string { return string(e.Direction) }},
	{title: "When", width: 14, value: func(e model.Email, now time.Time) string { return ux.Ago(e.CreatedAt, now) }},
}

func emailDetail(e model.Email, now time.Time) []field {
	return []field{
		{"Subject", e.Subject},
		{"From", e.FromEmail},
		{"To", e.ToEmail},
		{"Lead", ux.Optional(e.LeadName)},
		{"Agent", ux.Optional(e.AgentName)},
		{"Status", statusStyle(string(e.Status)).Render(string(e.Status))},
		{"Sent", ux.AgoPtr(e.SentAt, now)},
		{"Body", ux.Truncate(e.Content, 120)},
	}
}

func emailStatuses() []string {
	out := make([]string, len(model.EmailStatuses))
	for i, s := range model.EmailStatuses {
		out[i] = string(s)
	}
	return out
}

// emailsView is the email list with inbox/sent/all tabs and a templates
// panel
type emailsView struct {
	*listView[model.Email]

	tab           int
	loadTemplates TemplateLoader
	templates     []model.EmailTemplate
	templatesErr  error
	showTemplates bool
}

func newEmailsView(ctx context.Context, ctrl *query.Controller[model.Email], templates TemplateLoader, styles Styles, now func() time.Time) *emailsView {
	list := newListView(ctx, ctrl, emailColumns, emailStatuses(), styles, now)
	list.detail = emailDetail
	return &emailsView{listView: list, loadTemplates: templates}
}

// Tab returns the selected tab name
func (v *emailsView) Tab() string {
	return query.EmailTabs[v.tab]
}

// Init applies the initial tab's direction and loads the first page and
// the templates
func (v *emailsView) Init() tea.Cmd {
	direction := query.DirectionForTab(v.Tab())
	load := v.run(func(ctx context.Context) query.Snapshot[model.Email] {
		if !v.ctrl.SetFilter(ctx, "direction", direction) {
			return v.ctrl.FetchPage(ctx)
		}
		return v.ctrl.Snapshot()
	})
	return tea.Batch(load, v.fetchTemplates())
}

func (v *emailsView) fetchTemplates() tea.Cmd {
	if v.loadTemplates == nil {
		return nil
	}
	ctx, loader := v.ctx, v.loadTemplates
	return func() tea.Msg {
		templates, err := loader(ctx)
		return templatesMsg{templates: templates, err: err}
	}
}

// selectTab switches tab; the direction filter change triggers a read
func (v *emailsView) selectTab(i int) tea.Cmd {
	if i == v.tab {
		return nil
	}
	v.tab = i
	direction := query.DirectionForTab(v.Tab())
	return v.run(func(ctx context.Context) query.Snapshot[model.Email] {
		v.ctrl.SetFilter(ctx, "direction", direction)
		return v.ctrl.Snapshot()
	})
}

func (v *emailsView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case templatesMsg:
		v.templates, v.templatesErr = msg.templates, msg.err
		if v.templates == nil && v.templatesErr == nil {
			v.templates = []model.EmailTemplate{}
		}
		return nil
	case tea.KeyMsg:
		if v.capturing() {
			break
		}
		switch msg.String() {
		case "t":
			return v.selectTab((v.tab + 1) % len(query.EmailTabs))
		case "i":
			return v.selectTab(0)
		case "s":
			return v.selectTab(1)
		case "a":
			return v.selectTab(2)
		case "p":
			v.showTemplates = !v.showTemplates
			if v.showTemplates && v.templates == nil {
				return v.fetchTemplates()
			}
			return nil
		}
	}
	return v.listView.Update(msg)
}

func (v *emailsView) View() string {
	s := v.styles
	tabs := make([]string, len(query.EmailTabs))
	for i, name := range query.EmailTabs {
		if i == v.tab {
			tabs[i] = s.ActiveTab.Render(name)
		} else {
			tabs[i] = s.Tab.Render(name)
		}
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n\n" + v.listView.View()
	if !v.showTemplates {
		return body
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, body, "  ", v.templatesPanel())
}

func (v *emailsView) templatesPanel() string {
	s := v.styles
	var b strings.Builder
	b.WriteString(s.Key.Render("Templates"))
	switch {
	case v.templatesErr != nil:
		b.WriteString("\n" + s.Error.Render("Failed to load templates"))
	case v.templates == nil:
		b.WriteString("\n" + s.Muted.Render("Loading..."))
	case len(v.templates) == 0:
		b.WriteString("\n" + s.Muted.Render("No email templates found"))
	}
	for _, t := range v.templates {
		b.WriteString("\n\n" + t.Name)
		b.WriteString("\n" + s.Muted.Render(ux.Truncate(t.Subject, 32)))
		b.WriteString("\n" + s.Muted.Render("["+t.TemplateType+"]"))
	}
	return s.Border.Width(36).Render(b.String())
}

func (v *emailsView) helpLine() string {
	return v.styles.keyHelp(
		"/", "search",
		"f", "status",
		"t", "inbox/sent/all",
		"p", "templates",
		"[ ]", "page",
		"enter", "details",
	)
}
