// Package query implements the paginated list controller shared by the lead
// and email views, and the data sources it reads from.
package query

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/richmansdream/crmdesk/internal/log"
)

// DefaultPageSize is the page size used when a Config leaves it unset
const DefaultPageSize = 10

// Config parameterizes a controller for one list view
type Config struct {
	// Name is the plural noun used in messages ("leads")
	Name     string
	// Endpoint is the list path relative to the API base URL
	Endpoint string
	// ItemsKey is the response field holding the items
	ItemsKey string
	// Filters are the filter fields sent with every read, in order
	Filters  []string
	PageSize int
}

// Notification is a user-visible message about a failed read
type Notification struct {
	Title   string
	Message string
	Err     error
}

// Notifier surfaces failed reads to the user
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notification)

// Notify calls f(n)
func (f NotifierFunc) Notify(n Notification) { f(n) }

type discardNotifier struct{}

func (discardNotifier) Notify(Notification) {}

// Snapshot is an immutable view of the controller state
type Snapshot[T any] struct {
	Items      []T
	Page       int
	Limit      int
	Total      int
	PageCount  int
	SearchTerm string
	Filters    []Filter
	Loading    bool
	// Err is the failure of the most recent applied read, nil on success
	Err        error
}

// HasPrev reports whether a previous page exists
func (s Snapshot[T]) HasPrev() bool { return s.Page > 1 }

// HasNext reports whether a next page exists
func (s Snapshot[T]) HasNext() bool { return s.Page < s.PageCount }

// Filter returns the value of the named filter
func (s Snapshot[T]) Filter(name string) string {
	return Params{Filters: s.Filters}.Get(name)
}

// Range returns the 1-based indexes of the first and last item on the page
func (s Snapshot[T]) Range() (from, to int) {
	if s.Total == 0 || len(s.Items) == 0 {
		return 0, 0
	}
	from = (s.Page-1)*s.Limit + 1
	to = from + len(s.Items) - 1
	return from, to
}

// Summary renders "Showing X to Y of Z results"
func (s Snapshot[T]) Summary() string {
	from, to := s.Range()
	return fmt.Sprintf("Showing %d to %d of %d results", from, to, s.Total)
}

// Option configures a controller
type Option func(*options)

type options struct {
	notifier Notifier
	logger   *log.Logger
	onChange []func()
	initial  map[string]string
}

// WithNotifier sets where failed reads are reported
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithLogger sets the controller logger
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFilter sets the starting value of a filter. Unknown names are ignored.
func WithFilter(name, value string) Option {
	return func(o *options) {
		if value == "" {
			return
		}
		if o.initial == nil {
			o.initial = make(map[string]string)
		}
		o.initial[name] = value
	}
}

// WithOnChange registers a callback run after every state change
func WithOnChange(fn func()) Option {
	return func(o *options) {
		o.onChange = append(o.onChange, fn)
	}
}

// Controller owns the query state of one list view.
//
// Reads may overlap. Each read takes a sequence number and only the most
// recently issued one is applied; older responses are dropped.
type Controller[T any] struct {
	cfg    Config
	source Source[T]
	opts   options

	mu       sync.Mutex
	page     int
	search   string
	filters  []Filter
	items    []T
	total    int
	pages    int
	err      error
	seq      uint64
	inflight int
}

// NewController creates a controller on page 1 with every filter at "all"
// unless WithFilter sets it
func NewController[T any](cfg Config, source Source[T], opts ...Option) *Controller[T] {
	if cfg.PageSize < 1 {
		cfg.PageSize = DefaultPageSize
	}
	o := options{notifier: discardNotifier{}, logger: log.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	filters := make([]Filter, len(cfg.Filters))
	for i, name := range cfg.Filters {
		value := AllFilter
		if v, ok := o.initial[name]; ok {
			value = v
		}
		filters[i] = Filter{Name: name, Value: value}
	}

	return &Controller[T]{
		cfg:     cfg,
		source:  source,
		opts:    o,
		page:    1,
		filters: filters,
		items:   []T{},
	}
}

// Config returns the controller configuration
func (c *Controller[T]) Config() Config {
	return c.cfg
}

// Snapshot returns a copy of the current state
func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		Items:      slices.Clone(c.items),
		Page:       c.page,
		Limit:      c.cfg.PageSize,
		Total:      c.total,
		PageCount:  c.pages,
		SearchTerm: c.search,
		Filters:    slices.Clone(c.filters),
		Loading:    c.inflight > 0,
		Err:        c.err,
	}
}

func (c *Controller[T]) paramsLocked() Params {
	return Params{
		Page:    c.page,
		Limit:   c.cfg.PageSize,
		Search:  c.search,
		Filters: slices.Clone(c.filters),
	}
}

// Params returns the parameters the next read would send
func (c *Controller[T]) Params() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paramsLocked()
}

func (c *Controller[T]) changed() {
	for _, fn := range c.opts.onChange {
		fn()
	}
}

// FetchPage reads the current page. Failures never escape: the previous
// items and page are kept, the notifier is told once, and the error is
// visible in Snapshot().Err.
//
// A read superseded by a later one is dropped whether it failed or not, so
// a stale failure neither notifies nor sets Err.
func (c *Controller[T]) FetchPage(ctx context.Context) Snapshot[T] {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	params := c.paramsLocked()
	c.inflight++
	c.mu.Unlock()
	c.changed()

	c.opts.logger.DebugContext(ctx, "fetching page",
		"list", c.cfg.Name, "query", params.Encode(), "seq", seq)

	page, err := c.source.List(ctx, params)

	c.mu.Lock()
	c.inflight--
	if seq != c.seq {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.opts.logger.DebugContext(ctx, "discarding stale page", "list", c.cfg.Name, "seq", seq)
		c.changed()
		return snap
	}

	if err != nil {
		c.err = err
	} else {
		c.err = nil
		c.items = page.Items
		if c.items == nil {
			c.items = []T{}
		}
		c.total = page.Total
		c.pages = page.PageCount(c.cfg.PageSize)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if err != nil {
		c.opts.logger.WithError(err).WarnContext(ctx, "failed to fetch page",
			"list", c.cfg.Name, "query", params.Encode())
		c.opts.notifier.Notify(Notification{
			Title:   "Error",
			Message: fmt.Sprintf("Failed to load %s. Please try again.", c.cfg.Name),
			Err:     err,
		})
	}
	c.changed()
	return snap
}

// Search moves to page 1 and reads it, applying the current search term
func (c *Controller[T]) Search(ctx context.Context) Snapshot[T] {
	c.mu.Lock()
	c.page = 1
	c.mu.Unlock()
	return c.FetchPage(ctx)
}

// GoToPage moves to page n and reads it. n is not range-checked; callers
// disable navigation past the first and last page.
func (c *Controller[T]) GoToPage(ctx context.Context, n int) Snapshot[T] {
	c.mu.Lock()
	c.page = n
	c.mu.Unlock()
	return c.FetchPage(ctx)
}

// SetSearchTerm stores the search term without reading; it takes effect on
// the next Search.
func (c *Controller[T]) SetSearchTerm(term string) {
	c.mu.Lock()
	c.search = term
	c.mu.Unlock()
	c.changed()
}

// SetFilter stores a filter value and reads the current page when the value
// changed. It reports whether a read was issued. Unknown filter names are
// ignored.
func (c *Controller[T]) SetFilter(ctx context.Context, name, value string) bool {
	if value == "" {
		value = AllFilter
	}

	c.mu.Lock()
	idx := slices.IndexFunc(c.filters, func(f Filter) bool { return f.Name == name })
	if idx < 0 || c.filters[idx].Value == value {
		c.mu.Unlock()
		return false
	}
	c.filters[idx].Value = value
	c.mu.Unlock()

	c.FetchPage(ctx)
	return true
}
