package tui

import (
	"context"
	"time"

	"github.com/richmansdream/crmdesk/internal/model"
	"github.com/richmansdream/crmdesk/internal/query"
	"github.com/richmansdream/crmdesk/internal/ux"
)

var leadColumns = []column[model.Lead]{
	{title: "Name", width: 20, value: func(l model.Lead, _ time.Time) string { return l.Name }},
	{title: "Email", width: 28, value: func(l model.Lead, _ time.Time) string { return l.Email }},
	{title: "Phone", width: 16, value: func(l model.Lead, _ time.Time) string { return ux.Optional(l.Phone) }},
	{title: "Status", width: 6, value: func(l model.Lead, _ time.Time) string { return string(l.Status) }},
	{title: "Agent", width: 16, value: func(l model.Lead, _ time.Time) string { return ux.Optional(l.AssignedAgent) }},
	{title: "Budget", width: 12, value: func(l model.Lead, _ time.Time) string { return ux.Optional(l.Budget) }},
	{title: "Added", width: 14, value: func(l model.Lead, now time.Time) string { return ux.Ago(l.CreatedAt, now) }},
}

func leadDetail(l model.Lead, now time.Time) []field {
	return []field{
		{"Name", l.Name},
		{"Email", l.Email},
		{"Phone", ux.Optional(l.Phone)},
		{"Status", statusStyle(string(l.Status)).Render(string(l.Status))},
		{"Source", ux.Optional(l.Source)},
		{"Budget", ux.Optional(l.Budget)},
		{"Property", ux.Optional(l.PropertyType)},
		{"Agent", ux.Optional(l.AssignedAgent)},
		{"Last contact", ux.AgoPtr(l.LastContact, now)},
		{"Notes", ux.Truncate(ux.Optional(l.Notes), 80)},
	}
}

func leadStatuses() []string {
	out := make([]string, len(model.LeadStatuses))
	for i, s := range model.LeadStatuses {
		out[i] = string(s)
	}
	return out
}

func newLeadsView(ctx context.Context, ctrl *query.Controller[model.Lead], styles Styles, now func() time.Time) *listView[model.Lead] {
	v := newListView(ctx, ctrl, leadColumns, leadStatuses(), styles, now)
	v.detail = leadDetail
	return v
}
