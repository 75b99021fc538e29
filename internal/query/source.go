package query

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync/atomic"

	"github.com/richmansdream/crmdesk/internal/api"
	"github.com/richmansdream/crmdesk/internal/errors"
	"github.com/richmansdream/crmdesk/internal/log"
	"github.com/richmansdream/crmdesk/internal/mockdata"
)

// Page is one page of results returned by a Source
type Page[T any] struct {
	Items []T
	Total int
	// Pages is the server-reported page count; 0 means derive it
	Pages int
}

// PageCount returns Pages, or ceil(Total/limit) when the source left it unset
func (p Page[T]) PageCount(limit int) int {
	if p.Pages > 0 {
		return p.Pages
	}
	if limit < 1 || p.Total == 0 {
		return 0
	}
	return (p.Total + limit - 1) / limit
}

// Source reads one page of items
type Source[T any] interface {
	List(ctx context.Context, p Params) (Page[T], error)
}

// CredentialProvider supplies the bearer token for each request.
// *session.Manager implements it.
type CredentialProvider interface {
	Credential() string
}

// HTTPSource reads pages from a list endpoint of the CRM API
type HTTPSource[T any] struct {
	client      *api.Client
	endpoint    string
	itemsKey    string
	credentials CredentialProvider
}

// NewHTTPSource creates a source for cfg.Endpoint
func NewHTTPSource[T any](client *api.Client, cfg Config, credentials CredentialProvider) *HTTPSource[T] {
	return &HTTPSource[T]{
		client:      client,
		endpoint:    cfg.Endpoint,
		itemsKey:    cfg.ItemsKey,
		credentials: credentials,
	}
}

// List issues exactly one GET with the encoded params
func (s *HTTPSource[T]) List(ctx context.Context, p Params) (Page[T], error) {
	req := api.Request{Method: http.MethodGet, Path: s.endpoint, RawQuery: p.Encode()}
	res, err := api.ListPage[T](ctx, s.client, req, s.itemsKey, s.credentials.Credential())
	if err != nil {
		return Page[T]{}, err
	}
	return Page[T]{Items: res.Items, Total: res.Total, Pages: res.Pages}, nil
}

// Matcher decides whether an item passes the search and filters of p
type Matcher[T any] func(item T, p Params) bool

// MockSource serves pages from an in-memory slice
type MockSource[T any] struct {
	items []T
	match Matcher[T]
}

// NewMockSource creates a source over items. A nil match accepts everything.
func NewMockSource[T any](items []T, match Matcher[T]) *MockSource[T] {
	if match == nil {
		match = func(T, Params) bool { return true }
	}
	return &MockSource[T]{items: items, match: match}
}

// List filters and paginates the bundled items
func (s *MockSource[T]) List(ctx context.Context, p Params) (Page[T], error) {
	if err := ctx.Err(); err != nil {
		return Page[T]{}, err
	}
	var matched []T
	for _, item := range s.items {
		if s.match(item, p) {
			matched = append(matched, item)
		}
	}
	items, total, pages := mockdata.Paginate(matched, p.Page, p.Limit)
	return Page[T]{Items: items, Total: total, Pages: pages}, nil
}

// FallbackSource reads from a primary source and switches to a secondary one
// for good once the primary reports the endpoint as absent.
type FallbackSource[T any] struct {
	primary   Source[T]
	secondary Source[T]
	logger    *log.Logger
	fellBack  atomic.Bool
}

// NewFallbackSource creates a source preferring primary
func NewFallbackSource[T any](primary, secondary Source[T], logger *log.Logger) *FallbackSource[T] {
	if logger == nil {
		logger = log.Discard()
	}
	return &FallbackSource[T]{primary: primary, secondary: secondary, logger: logger}
}

// UsingFallback reports whether the secondary source is in use
func (s *FallbackSource[T]) UsingFallback() bool {
	return s.fellBack.Load()
}

// List reads from the active source
func (s *FallbackSource[T]) List(ctx context.Context, p Params) (Page[T], error) {
	if s.fellBack.Load() {
		return s.secondary.List(ctx, p)
	}

	page, err := s.primary.List(ctx, p)
	if err != nil && endpointMissing(err) {
		s.logger.WithError(err).Warn("list endpoint unavailable, serving bundled data")
		s.fellBack.Store(true)
		return s.secondary.List(ctx, p)
	}
	return page, err
}

// endpointMissing reports a 404 or 501 from the server
func endpointMissing(err error) bool {
	var crmErr *errors.CRMError
	if !stderrors.As(err, &crmErr) {
		return false
	}
	return crmErr.Status == http.StatusNotFound || crmErr.Status == http.StatusNotImplemented
}
