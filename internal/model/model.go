// Package model holds the CRM records exchanged with the API.
//
// The list controller treats these as opaque items keyed by ID; the
// fields exist for rendering and for the stub backend's filtering.
package model

import "time"

// Role is a CRM user role
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAgent  Role = "agent"
	RoleViewer Role = "viewer"
)

// User is the identity returned by login and /auth/me
type User struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Email  string `json:"email" yaml:"email"`
	Role   Role   `json:"role" yaml:"role"`
	Avatar string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
}

// Initials returns up to two initials for avatar fallbacks
func (u User) Initials() string {
	return initials(u.Name)
}

// LeadStatus is the temperature of a lead in the sales funnel
type LeadStatus string

const (
	LeadHot  LeadStatus = "hot"
	LeadWarm LeadStatus = "warm"
	LeadCold LeadStatus = "cold"
)

// LeadStatuses lists the valid lead statuses in display order
var LeadStatuses = []LeadStatus{LeadHot, LeadWarm, LeadCold}

// Lead is a prospective client record
type Lead struct {
	ID              string     `json:"id" yaml:"id"`
	Name            string     `json:"name" yaml:"name"`
	Email           string     `json:"email" yaml:"email"`
	Phone           string     `json:"phone" yaml:"phone"`
	Status          LeadStatus `json:"status" yaml:"status"`
	Source          string     `json:"source,omitempty" yaml:"source,omitempty"`
	Budget          string     `json:"budget,omitempty" yaml:"budget,omitempty"`
	PropertyType    string     `json:"property_type,omitempty" yaml:"property_type,omitempty"`
	AssignedAgent   string     `json:"assigned_agent,omitempty" yaml:"assigned_agent,omitempty"`
	AssignedAgentID string     `json:"assigned_agent_id,omitempty" yaml:"assigned_agent_id,omitempty"`
	Notes           string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" yaml:"updated_at"`
	LastContact     *time.Time `json:"last_contact,omitempty" yaml:"last_contact,omitempty"`
}

// Key returns the lead ID
func (l Lead) Key() string { return l.ID }

// Initials returns up to two initials of the lead name
func (l Lead) Initials() string { return initials(l.Name) }

// EmailStatus is the delivery state of an email
type EmailStatus string

const (
	EmailDraft     EmailStatus = "draft"
	EmailSent      EmailStatus = "sent"
	EmailDelivered EmailStatus = "delivered"
	EmailFailed    EmailStatus = "failed"
	EmailRead      EmailStatus = "read"
)

// EmailStatuses lists the valid email statuses in display order
var EmailStatuses = []EmailStatus{EmailDraft, EmailSent, EmailDelivered, EmailFailed, EmailRead}

// Direction is inbound or outbound
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Email is a message exchanged with a lead
type Email struct {
	ID         string      `json:"id" yaml:"id"`
	LeadID     string      `json:"lead_id,omitempty" yaml:"lead_id,omitempty"`
	LeadName   string      `json:"lead_name,omitempty" yaml:"lead_name,omitempty"`
	ToEmail    string      `json:"to_email" yaml:"to_email"`
	FromEmail  string      `json:"from_email" yaml:"from_email"`
	Subject    string      `json:"subject" yaml:"subject"`
	Content    string      `json:"content" yaml:"content"`
	EmailType  string      `json:"email_type,omitempty" yaml:"email_type,omitempty"`
	TemplateID string      `json:"template_id,omitempty" yaml:"template_id,omitempty"`
	Status     EmailStatus `json:"status" yaml:"status"`
	Direction  Direction   `json:"direction" yaml:"direction"`
	AgentID    string      `json:"agent_id,omitempty" yaml:"agent_id,omitempty"`
	AgentName  string      `json:"agent_name,omitempty" yaml:"agent_name,omitempty"`
	CreatedAt  time.Time   `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" yaml:"updated_at"`
	SentAt     *time.Time  `json:"sent_at,omitempty" yaml:"sent_at,omitempty"`
}

// Key returns the email ID
func (e Email) Key() string { return e.ID }

// Counterparty is the address on the other side of the conversation
func (e Email) Counterparty() string {
	if e.Direction == Inbound {
		return e.FromEmail
	}
	return e.ToEmail
}

// EmailTemplate is a reusable message body with {placeholders}
type EmailTemplate struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Subject      string    `json:"subject" yaml:"subject"`
	Content      string    `json:"content" yaml:"content"`
	TemplateType string    `json:"template_type" yaml:"template_type"`
	Variables    []string  `json:"variables,omitempty" yaml:"variables,omitempty"`
	IsActive     bool      `json:"is_active" yaml:"is_active"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// DashboardStats are the headline numbers on the dashboard
type DashboardStats struct {
	TotalLeads           int     `json:"totalLeads" yaml:"totalLeads"`
	HotLeads             int     `json:"hotLeads" yaml:"hotLeads"`
	ScheduledViewings    int     `json:"scheduledViewings" yaml:"scheduledViewings"`
	ActiveSales          int     `json:"activeSales" yaml:"activeSales"`
	ClosedDealsThisMonth int     `json:"closedDealsThisMonth" yaml:"closedDealsThisMonth"`
	TotalRevenue         string  `json:"totalRevenue" yaml:"totalRevenue"`
	MonthlyGrowth        float64 `json:"monthlyGrowth" yaml:"monthlyGrowth"`
}

// SalesPoint is monthly closed revenue
type SalesPoint struct {
	Month string `json:"month" yaml:"month"`
	Sales int    `json:"sales" yaml:"sales"`
}

// LeadsPoint is new leads per week
type LeadsPoint struct {
	Week  string `json:"week" yaml:"week"`
	Leads int    `json:"leads" yaml:"leads"`
}

// Slice is one segment of a distribution chart
type Slice struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
}

// DashboardCharts holds the series rendered on the dashboard
type DashboardCharts struct {
	SalesChart         []SalesPoint `json:"salesChart" yaml:"salesChart"`
	LeadsChart         []LeadsPoint `json:"leadsChart" yaml:"leadsChart"`
	StatusDistribution []Slice      `json:"statusDistribution" yaml:"statusDistribution"`
}

func initials(name string) string {
	out := make([]rune, 0, 2)
	start := true
	for _, r := range name {
		if r == ' ' {
			start = true
			continue
		}
		if start {
			out = append(out, r)
			start = false
			if len(out) == 2 {
				break
			}
		}
	}
	if len(out) == 0 {
		return "N/A"
	}
	return string(out)
}
