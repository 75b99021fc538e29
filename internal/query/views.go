package query

import (
	"github.com/richmansdream/crmdesk/internal/mockdata"
	"github.com/richmansdream/crmdesk/internal/model"
)

// Leads configures the lead list view
var Leads = Config{
	Name:     "leads",
	Endpoint: "/leads",
	ItemsKey: "leads",
	Filters:  []string{"status"},
	PageSize: DefaultPageSize,
}

// Emails configures the email list view. direction is driven by the
// inbox/sent/all tab.
var Emails = Config{
	Name:     "emails",
	Endpoint: "/emails",
	ItemsKey: "emails",
	Filters:  []string{"status", "direction"},
	PageSize: DefaultPageSize,
}

// MatchLead applies lead search and filters the way the API does
func MatchLead(l model.Lead, p Params) bool {
	return mockdata.LeadMatches(l, p.Search, activeOrEmpty(p.Get("status")))
}

// MatchEmail applies email search and filters the way the API does
func MatchEmail(e model.Email, p Params) bool {
	return mockdata.EmailMatches(e, p.Search, activeOrEmpty(p.Get("status")), activeOrEmpty(p.Get("direction")))
}

func activeOrEmpty(v string) string {
	if Active(v) {
		return v
	}
	return ""
}

// WithPageSize returns a copy of cfg using size rows per page
func WithPageSize(cfg Config, size int) Config {
	cfg.PageSize = size
	cfg.Filters = append([]string(nil), cfg.Filters...)
	return cfg
}

// Email tabs
const (
	TabInbox = "inbox"
	TabSent  = "sent"
	TabAll   = "all"
)

// EmailTabs lists the email tabs in display order
var EmailTabs = []string{TabInbox, TabSent, TabAll}

// DirectionForTab maps an email tab to the direction filter it selects
func DirectionForTab(tab string) string {
	switch tab {
	case TabInbox:
		return string(model.Inbound)
	case TabSent:
		return string(model.Outbound)
	default:
		return AllFilter
	}
}
