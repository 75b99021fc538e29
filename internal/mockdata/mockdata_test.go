package mockdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richmansdream/crmdesk/internal/model"
)

func TestLoad(t *testing.T) {
	ds := Load()
	require.NotNil(t, ds)

	assert.Len(t, ds.Users, 3)
	assert.Greater(t, len(ds.Leads), 10, "enough leads for more than one page")
	assert.Greater(t, len(ds.Emails), 10)
	assert.Len(t, ds.Templates, 4)
	assert.Equal(t, 156, ds.Stats.TotalLeads)
	assert.Len(t, ds.Charts.SalesChart, 6)

	for _, l := range ds.Leads {
		assert.NotEmpty(t, l.ID)
		assert.Contains(t, model.LeadStatuses, l.Status)
		assert.False(t, l.CreatedAt.IsZero())
	}
	for _, e := range ds.Emails {
		assert.Contains(t, []model.Direction{model.Inbound, model.Outbound}, e.Direction)
	}
}

func TestLoadReturnsCopies(t *testing.T) {
	a := Load()
	a.Leads[0].Name = "changed"
	assert.NotEqual(t, "changed", Load().Leads[0].Name)
}

func TestSeedUsersCarryPasswords(t *testing.T) {
	for _, u := range Users() {
		assert.Equal(t, "password123", u.Password)
		assert.NotEmpty(t, u.Email)
	}
	assert.Equal(t, model.RoleAdmin, Users()[0].Role)
}

func TestLeadMatches(t *testing.T) {
	l := model.Lead{Name: "John Williams", Email: "john@email.com", Phone: "+1 (555) 123", Status: model.LeadHot}

	assert.True(t, LeadMatches(l, "", ""))
	assert.True(t, LeadMatches(l, "WILL", ""))
	assert.True(t, LeadMatches(l, "555", "hot"))
	assert.False(t, LeadMatches(l, "", "cold"))
	assert.False(t, LeadMatches(l, "emma", ""))
}

func TestEmailMatches(t *testing.T) {
	e := model.Email{Subject: "Viewing", LeadName: "Mia", Status: model.EmailRead, Direction: model.Inbound}

	assert.True(t, EmailMatches(e, "view", "read", "inbound"))
	assert.False(t, EmailMatches(e, "", "", "outbound"))
	assert.False(t, EmailMatches(e, "", "sent", ""))
}

func TestEmailsNewestFirst(t *testing.T) {
	emails := Emails()
	for i := 1; i < len(emails); i++ {
		assert.False(t, emails[i].CreatedAt.After(emails[i-1].CreatedAt))
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}

	page, total, pages := Paginate(items, 2, 10)
	assert.Equal(t, []int{11, 12, 13}, page)
	assert.Equal(t, 13, total)
	assert.Equal(t, 2, pages)

	page, _, _ = Paginate(items, 5, 10)
	assert.Empty(t, page)

	_, _, pages = Paginate([]int{}, 1, 10)
	assert.Equal(t, 0, pages)
}
