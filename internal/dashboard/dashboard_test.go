package dashboard

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richmansdream/crmdesk/internal/mockdata"
	"github.com/richmansdream/crmdesk/internal/model"
)

type fakeSource struct {
	stats    *model.DashboardStats
	charts   *model.DashboardCharts
	leads    []model.Lead
	statsErr error
	chartErr error
	leadsErr error
	limit    int
}

func (f *fakeSource) Stats(context.Context) (*model.DashboardStats, error) {
	return f.stats, f.statsErr
}

func (f *fakeSource) Charts(context.Context) (*model.DashboardCharts, error) {
	return f.charts, f.chartErr
}

func (f *fakeSource) RecentLeads(_ context.Context, limit int) ([]model.Lead, error) {
	f.limit = limit
	return f.leads, f.leadsErr
}

func TestLoad_AllSections(t *testing.T) {
	src := &fakeSource{
		stats:  &model.DashboardStats{TotalLeads: 7, HotLeads: 2},
		charts: &model.DashboardCharts{SalesChart: []model.SalesPoint{{Month: "Jan", Sales: 3}}},
		leads:  []model.Lead{{ID: "a"}, {ID: "b"}},
	}

	data, err := Load(context.Background(), src, Options{})
	require.NoError(t, err)

	assert.Equal(t, 7, data.Stats.TotalLeads)
	assert.Len(t, data.Charts.SalesChart, 1)
	assert.Len(t, data.RecentLeads, 2)
	assert.Equal(t, RecentLimit, src.limit)
	assert.False(t, data.UsingFallback())
}

func TestLoad_FallbackReplacesFailedSections(t *testing.T) {
	src := &fakeSource{
		stats:    &model.DashboardStats{TotalLeads: 7},
		chartErr: stderrors.New("boom"),
		leadsErr: stderrors.New("boom"),
	}

	data, err := Load(context.Background(), src, Options{Fallback: true})
	require.NoError(t, err)

	assert.Equal(t, 7, data.Stats.TotalLeads, "healthy sections keep server data")
	assert.Equal(t, mockdata.Charts(), data.Charts)
	assert.Len(t, data.RecentLeads, RecentLimit)
	assert.Equal(t, []Part{PartCharts, PartRecent}, data.Fallback)

	for i := 1; i < len(data.RecentLeads); i++ {
		assert.False(t, data.RecentLeads[i].CreatedAt.After(data.RecentLeads[i-1].CreatedAt),
			"recent leads are newest first")
	}
}

func TestLoad_WithoutFallbackReturnsError(t *testing.T) {
	boom := stderrors.New("boom")
	src := &fakeSource{
		stats:    &model.DashboardStats{},
		charts:   &model.DashboardCharts{},
		leadsErr: boom,
	}

	data, err := Load(context.Background(), src, Options{})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, data)
}

func TestMaxSales(t *testing.T) {
	assert.Equal(t, 1, MaxSales(nil))
	assert.Equal(t, 9, MaxSales([]model.SalesPoint{{Sales: 4}, {Sales: 9}, {Sales: 2}}))
}
