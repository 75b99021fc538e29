// Package dashboard loads the headline numbers, chart series, and recent
// leads shown on the dashboard.
package dashboard

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/richmansdream/crmdesk/internal/api"
	"github.com/richmansdream/crmdesk/internal/log"
	"github.com/richmansdream/crmdesk/internal/mockdata"
	"github.com/richmansdream/crmdesk/internal/model"
	"github.com/richmansdream/crmdesk/internal/query"
)

// RecentLimit is the number of recent leads loaded
const RecentLimit = 5

// Part names one of the concurrently loaded sections
type Part string

const (
	PartStats  Part = "stats"
	PartCharts Part = "charts"
	PartRecent Part = "recent"
)

// Source reads the dashboard sections
type Source interface {
	Stats(ctx context.Context) (*model.DashboardStats, error)
	Charts(ctx context.Context) (*model.DashboardCharts, error)
	RecentLeads(ctx context.Context, limit int) ([]model.Lead, error)
}

// Data is a loaded dashboard
type Data struct {
	Stats       model.DashboardStats  `json:"stats" yaml:"stats"`
	Charts      model.DashboardCharts `json:"charts" yaml:"charts"`
	RecentLeads []model.Lead          `json:"recentLeads" yaml:"recentLeads"`
	// Fallback lists the sections served from bundled data
	Fallback []Part `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// UsingFallback reports whether any section came from bundled data
func (d *Data) UsingFallback() bool {
	return len(d.Fallback) > 0
}

// Options configures Load
type Options struct {
	// Fallback serves bundled data for sections that fail to load
	Fallback bool
	Logger   *log.Logger
}

// Load reads the three sections concurrently. With Fallback, a failed
// section is replaced with bundled data and Load succeeds; without it the
// first failure cancels the others and is returned.
func Load(ctx context.Context, src Source, opts Options) (*Data, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}

	data := &Data{}
	var mu sync.Mutex
	fellBack := func(part Part, err error) error {
		if !opts.Fallback {
			return err
		}
		logger.WithError(err).WarnContext(ctx, "dashboard section unavailable, serving bundled data",
			"section", string(part))
		mu.Lock()
		data.Fallback = append(data.Fallback, part)
		mu.Unlock()
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stats, err := src.Stats(gctx)
		if err != nil {
			data.Stats = mockdata.Stats()
			return fellBack(PartStats, err)
		}
		data.Stats = *stats
		return nil
	})

	g.Go(func() error {
		charts, err := src.Charts(gctx)
		if err != nil {
			data.Charts = mockdata.Charts()
			return fellBack(PartCharts, err)
		}
		data.Charts = *charts
		return nil
	})

	g.Go(func() error {
		leads, err := src.RecentLeads(gctx, RecentLimit)
		if err != nil {
			data.RecentLeads = recentMock(RecentLimit)
			return fellBack(PartRecent, err)
		}
		data.RecentLeads = leads
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(data.Fallback, func(i, j int) bool { return data.Fallback[i] < data.Fallback[j] })
	return data, nil
}

func recentMock(limit int) []model.Lead {
	leads := mockdata.Leads()
	sort.SliceStable(leads, func(i, j int) bool {
		return leads[i].CreatedAt.After(leads[j].CreatedAt)
	})
	if len(leads) > limit {
		leads = leads[:limit]
	}
	return leads
}

// APISource reads the dashboard from the CRM API
type APISource struct {
	client      *api.Client
	leads       query.Source[model.Lead]
	credentials query.CredentialProvider
}

// NewAPISource creates a source. Recent leads are the first page of leads.
func NewAPISource(client *api.Client, leads query.Source[model.Lead], credentials query.CredentialProvider) *APISource {
	return &APISource{client: client, leads: leads, credentials: credentials}
}

// Stats implements Source
func (s *APISource) Stats(ctx context.Context) (*model.DashboardStats, error) {
	return s.client.DashboardStats(ctx, s.credentials.Credential())
}

// Charts implements Source
func (s *APISource) Charts(ctx context.Context) (*model.DashboardCharts, error) {
	return s.client.DashboardCharts(ctx, s.credentials.Credential())
}

// RecentLeads implements Source
func (s *APISource) RecentLeads(ctx context.Context, limit int) ([]model.Lead, error) {
	page, err := s.leads.List(ctx, query.Params{Page: 1, Limit: limit})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// MaxSales returns the largest monthly sales value, at least 1
func MaxSales(points []model.SalesPoint) int {
	m := 1
	for _, p := range points {
		m = max(m, p.Sales)
	}
	return m
}
