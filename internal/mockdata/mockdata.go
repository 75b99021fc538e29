// Package mockdata bundles the sample CRM records used when no backend is
// reachable and by the stub API server.
package mockdata

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/richmansdream/crmdesk/internal/model"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

// SeedUser is a bundled user together with its plain-text demo password
type SeedUser struct {
	model.User `yaml:",inline"`
	Password   string `yaml:"password"`
}

// Dataset is the full bundled sample data
type Dataset struct {
	Users     []SeedUser            `yaml:"users"`
	Leads     []model.Lead          `yaml:"leads"`
	Emails    []model.Email         `yaml:"emails"`
	Templates []model.EmailTemplate `yaml:"templates"`
	Stats     model.DashboardStats  `yaml:"stats"`
	Charts    model.DashboardCharts `yaml:"charts"`
}

var load = sync.OnceValues(func() (*Dataset, error) {
	return Parse(fixturesYAML)
})

// Parse decodes a dataset document
func Parse(data []byte) (*Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse mock data: %w", err)
	}
	return &ds, nil
}

// Load returns a copy of the bundled dataset
func Load() *Dataset {
	ds, err := load()
	if err != nil {
		// The fixtures are compiled in; failing to parse them is a build defect
		panic(err)
	}
	return ds.clone()
}

func (d *Dataset) clone() *Dataset {
	c := *d
	c.Users = slices.Clone(d.Users)
	c.Leads = slices.Clone(d.Leads)
	c.Emails = slices.Clone(d.Emails)
	c.Templates = slices.Clone(d.Templates)
	c.Charts.SalesChart = slices.Clone(d.Charts.SalesChart)
	c.Charts.LeadsChart = slices.Clone(d.Charts.LeadsChart)
	c.Charts.StatusDistribution = slices.Clone(d.Charts.StatusDistribution)
	return &c
}

// Leads returns the bundled leads, newest first
func Leads() []model.Lead { return Load().Leads }

// Emails returns the bundled emails, newest first
func Emails() []model.Email {
	emails := Load().Emails
	slices.SortStableFunc(emails, func(a, b model.Email) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return emails
}

// Templates returns the bundled email templates
func Templates() []model.EmailTemplate { return Load().Templates }

// Stats returns the bundled dashboard numbers
func Stats() model.DashboardStats { return Load().Stats }

// Charts returns the bundled chart series
func Charts() model.DashboardCharts { return Load().Charts }

// Users returns the bundled users with their demo passwords
func Users() []SeedUser { return Load().Users }

// LeadMatches reports whether l passes a case-insensitive search over name,
// email and phone, and an exact status filter. Empty values match everything.
func LeadMatches(l model.Lead, search, status string) bool {
	if status != "" && string(l.Status) != status {
		return false
	}
	return containsFold(search, l.Name, l.Email, l.Phone)
}

// EmailMatches reports whether e passes a search over subject, lead name and
// addresses, and exact status and direction filters.
func EmailMatches(e model.Email, search, status, direction string) bool {
	if status != "" && string(e.Status) != status {
		return false
	}
	if direction != "" && string(e.Direction) != direction {
		return false
	}
	return containsFold(search, e.Subject, e.LeadName, e.ToEmail, e.FromEmail)
}

func containsFold(needle string, fields ...string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// Paginate returns the 1-based page of items, the total count and the page count
func Paginate[T any](items []T, page, limit int) ([]T, int, int) {
	total := len(items)
	if limit < 1 {
		limit = 10
	}
	if page < 1 {
		page = 1
	}
	pages := (total + limit - 1) / limit

	start := (page - 1) * limit
	if start >= total {
		return []T{}, total, pages
	}
	end := min(start+limit, total)
	return slices.Clone(items[start:end]), total, pages
}
