package query

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richmansdream/crmdesk/internal/api"
	"github.com/richmansdream/crmdesk/internal/mockdata"
	"github.com/richmansdream/crmdesk/internal/model"
)

// newTestServer starts an HTTP server bound to IPv4-only loopback so tests work
// inside restricted sandboxes that forbid IPv6 listeners.
func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()

	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("unable to start test server: %v", err)
	}

	server := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	server.Start()
	t.Cleanup(server.Close)
	return server
}

type staticCredential string

func (s staticCredential) Credential() string { return string(s) }

func TestParamsEncode(t *testing.T) {
	p := Params{
		Page:    2,
		Limit:   10,
		Search:  "  ",
		Filters: []Filter{{Name: "status", Value: "hot"}, {Name: "direction", Value: AllFilter}},
	}
	assert.Equal(t, "page=2&limit=10&status=hot", p.Encode())

	p.Search = "john w"
	assert.Equal(t, "page=2&limit=10&search=john+w&status=hot", p.Encode())
	assert.Equal(t, "hot", p.Values().Get("status"))
}

func TestParseParams(t *testing.T) {
	q := url.Values{"page": {"3"}, "limit": {"x"}, "status": {"all"}, "direction": {"inbound"}}
	p := ParseParams(q, []string{"status", "direction"}, 10)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, "", p.Get("status"))
	assert.Equal(t, "inbound", p.Get("direction"))
}

func TestHTTPSource_SingleRequest(t *testing.T) {
	var hits atomic.Int32
	var raw, auth string
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		raw = r.URL.RawQuery
		auth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"leads": []map[string]string{{"id": "l1"}},
			"total": 11,
			"pages": 2,
		})
	}))

	src := NewHTTPSource[model.Lead](api.NewClient(srv.URL), Leads, staticCredential("tok"))
	page, err := src.List(context.Background(), Params{Page: 2, Limit: 10, Filters: []Filter{{"status", "hot"}}})
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, "page=2&limit=10&status=hot", raw)
	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, 11, page.Total)
	assert.Equal(t, 2, page.PageCount(10))
}

func TestMockSource_FiltersAndPaginates(t *testing.T) {
	src := NewMockSource(mockdata.Leads(), MatchLead)

	all, err := src.List(context.Background(), Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all.Items, 10)
	assert.Equal(t, len(mockdata.Leads()), all.Total)

	hot, err := src.List(context.Background(), Params{Page: 1, Limit: 10, Filters: []Filter{{"status", "hot"}}})
	require.NoError(t, err)
	for _, l := range hot.Items {
		assert.Equal(t, model.LeadHot, l.Status)
	}

	search, err := src.List(context.Background(), Params{Page: 1, Limit: 10, Search: "williams"})
	require.NoError(t, err)
	require.Len(t, search.Items, 1)
	assert.Equal(t, "John Williams", search.Items[0].Name)
}

func TestMockSource_EmailDirection(t *testing.T) {
	src := NewMockSource(mockdata.Emails(), MatchEmail)
	p := Params{Page: 1, Limit: 50, Filters: []Filter{{"status", AllFilter}, {"direction", DirectionForTab(TabInbox)}}}

	page, err := src.List(context.Background(), p)
	require.NoError(t, err)
	require.NotEmpty(t, page.Items)
	for _, e := range page.Items {
		assert.Equal(t, model.Inbound, e.Direction)
	}
}

func TestFallbackSource(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusNotFound)
	var hits atomic.Int32
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
	}))

	primary := NewHTTPSource[model.Lead](api.NewClient(srv.URL), Leads, staticCredential("t"))
	src := NewFallbackSource[model.Lead](primary, NewMockSource(mockdata.Leads(), MatchLead), nil)

	page, err := src.List(context.Background(), Params{Page: 1, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.True(t, src.UsingFallback())

	// Sticks with the bundled data afterwards
	_, err = src.List(context.Background(), Params{Page: 2, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFallbackSource_ServerErrorsPropagate(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	primary := NewHTTPSource[model.Lead](api.NewClient(srv.URL), Leads, staticCredential("t"))
	src := NewFallbackSource[model.Lead](primary, NewMockSource(mockdata.Leads(), MatchLead), nil)

	_, err := src.List(context.Background(), Params{Page: 1, Limit: 5})
	assert.Error(t, err)
	assert.False(t, src.UsingFallback())
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 0, Page[int]{}.PageCount(10))
	assert.Equal(t, 1, Page[int]{Total: 10}.PageCount(10))
	assert.Equal(t, 2, Page[int]{Total: 11}.PageCount(10))
	assert.Equal(t, 7, Page[int]{Total: 11, Pages: 7}.PageCount(10))
}
