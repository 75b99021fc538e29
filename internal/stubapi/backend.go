// Package stubapi is an in-process implementation of the CRM REST API backed
// by the bundled sample data. It serves the same routes and payload shapes as
// the production backend so the CLI and console can be exercised offline.
package stubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/richmansdream/crmdesk/internal/contract"
	"github.com/richmansdream/crmdesk/internal/log"
	"github.com/richmansdream/crmdesk/internal/mockdata"
	"github.com/richmansdream/crmdesk/internal/model"
	"github.com/richmansdream/crmdesk/internal/query"
)

// BasePath is the prefix all API routes are mounted under
const BasePath = "/api"

// DefaultSecret signs tokens when no secret is configured
const DefaultSecret = "crmdesk-stub-secret"

const maxPageSize = 100

// Options configures a Backend
type Options struct {
	// Secret is the HS256 signing key
	Secret string
	// TokenTTL is the lifetime of issued tokens
	TokenTTL time.Duration
	// Latency is added before every response
	Latency time.Duration
	// Validate checks every request against the API contract
	Validate bool
	// BcryptCost for the seeded passwords; bcrypt.DefaultCost when zero
	BcryptCost int
	// Dataset overrides the bundled sample data
	Dataset *mockdata.Dataset
	Logger  *log.Logger
}

// Backend serves the CRM API
type Backend struct {
	router    *mux.Router
	tokens    *TokenIssuer
	validator *contract.Validator
	logger    *log.Logger
	latency   time.Duration

	accounts  []account
	leads     []model.Lead
	emails    []model.Email
	templates []model.EmailTemplate
	stats     model.DashboardStats
	charts    model.DashboardCharts

	// revoked holds the IDs of tokens invalidated by logout
	revoked sync.Map
}

// New builds a backend from opts
func New(ctx context.Context, opts Options) (*Backend, error) {
	if opts.Secret == "" {
		opts.Secret = DefaultSecret
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	ds := opts.Dataset
	if ds == nil {
		ds = mockdata.Load()
	}

	b := &Backend{
		tokens:    NewTokenIssuer(opts.Secret, opts.TokenTTL),
		logger:    opts.Logger,
		latency:   opts.Latency,
		leads:     slices.Clone(ds.Leads),
		emails:    slices.Clone(ds.Emails),
		templates: slices.Clone(ds.Templates),
		stats:     ds.Stats,
		charts:    ds.Charts,
	}
	slices.SortStableFunc(b.emails, func(x, y model.Email) int {
		return y.CreatedAt.Compare(x.CreatedAt)
	})

	for _, su := range ds.Users {
		acct, err := newAccount(su.User, su.Password, opts.BcryptCost)
		if err != nil {
			return nil, err
		}
		b.accounts = append(b.accounts, acct)
	}

	if opts.Validate {
		v, err := contract.NewValidator(ctx)
		if err != nil {
			return nil, err
		}
		b.validator = v
	}

	b.router = b.routes()
	return b, nil
}

// ServeHTTP implements http.Handler
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

// Tokens exposes the token issuer, mainly for tests
func (b *Backend) Tokens() *TokenIssuer {
	return b.tokens
}

func (b *Backend) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	r.Use(b.logRequests, b.delay, b.validate)

	api := r.PathPrefix(BasePath).Subrouter()

	api.HandleFunc("/auth/login", b.login).Methods(http.MethodPost)
	api.Handle("/auth/me", b.authed(b.whoAmI)).Methods(http.MethodGet)
	api.Handle("/auth/logout", b.authed(b.logout)).Methods(http.MethodPost)

	api.Handle("/leads", b.authed(b.listLeads)).Methods(http.MethodGet)
	api.Handle("/leads/{id}", b.authed(b.getLead)).Methods(http.MethodGet)

	// templates must be registered before the {id} route
	api.Handle("/emails/templates", b.authed(b.listTemplates)).Methods(http.MethodGet)
	api.Handle("/emails", b.authed(b.listEmails)).Methods(http.MethodGet)
	api.Handle("/emails/{id}", b.authed(b.getEmail)).Methods(http.MethodGet)

	api.Handle("/dashboard/stats", b.authed(b.dashboardStats)).Methods(http.MethodGet)
	api.Handle("/dashboard/charts", b.authed(b.dashboardCharts)).Methods(http.MethodGet)

	return r
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acct, ok := b.findAccount(req.Email)
	if !ok || !acct.checkPassword(req.Password) {
		b.logger.Info("login rejected", "email", req.Email)
		writeDetail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := b.tokens.Issue(acct.user)
	if err != nil {
		b.logger.WithError(err).Error("failed to issue token")
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"user":    acct.user,
	})
}

func (b *Backend) whoAmI(w http.ResponseWriter, r *http.Request, c *Claims) {
	acct, ok := b.findAccount(c.Subject)
	if !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, acct.user)
}

func (b *Backend) logout(w http.ResponseWriter, _ *http.Request, c *Claims) {
	if c.ID != "" {
		b.revoked.Store(c.ID, struct{}{})
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (b *Backend) findAccount(email string) (account, bool) {
	email = strings.TrimSpace(email)
	for _, a := range b.accounts {
		if strings.EqualFold(a.user.Email, email) {
			return a, true
		}
	}
	return account{}, false
}

func (b *Backend) listLeads(w http.ResponseWriter, r *http.Request, c *Claims) {
	p := listParams(r, "status")
	status := p.Get("status")

	matched := make([]model.Lead, 0, len(b.leads))
	for _, l := range b.leads {
		if c.canSee(l.AssignedAgentID) && mockdata.LeadMatches(l, p.Search, status) {
			matched = append(matched, l)
		}
	}

	items, total, pages := mockdata.Paginate(matched, p.Page, p.Limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"leads": items,
		"total": total,
		"pages": pages,
		"page":  p.Page,
		"limit": p.Limit,
	})
}

func (b *Backend) getLead(w http.ResponseWriter, r *http.Request, c *Claims) {
	id := mux.Vars(r)["id"]
	for _, l := range b.leads {
		if l.ID != id {
			continue
		}
		if !c.canSee(l.AssignedAgentID) {
			writeDetail(w, http.StatusForbidden, "Not enough permissions")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"lead": l})
		return
	}
	writeDetail(w, http.StatusNotFound, "Lead not found")
}

func (b *Backend) listEmails(w http.ResponseWriter, r *http.Request, c *Claims) {
	p := listParams(r, "status", "direction", "lead_id")
	status, direction, leadID := p.Get("status"), p.Get("direction"), p.Get("lead_id")

	matched := make([]model.Email, 0, len(b.emails))
	for _, e := range b.emails {
		if !c.canSee(e.AgentID) {
			continue
		}
		if leadID != "" && e.LeadID != leadID {
			continue
		}
		if mockdata.EmailMatches(e, p.Search, status, direction) {
			matched = append(matched, e)
		}
	}

	items, total, pages := mockdata.Paginate(matched, p.Page, p.Limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"emails": items,
		"total":  total,
		"pages":  pages,
		"page":   p.Page,
		"limit":  p.Limit,
	})
}

func (b *Backend) getEmail(w http.ResponseWriter, r *http.Request, c *Claims) {
	id := mux.Vars(r)["id"]
	for _, e := range b.emails {
		if e.ID != id {
			continue
		}
		if !c.canSee(e.AgentID) {
			writeDetail(w, http.StatusForbidden, "Not enough permissions")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"email": e})
		return
	}
	writeDetail(w, http.StatusNotFound, "Email not found")
}

func (b *Backend) listTemplates(w http.ResponseWriter, _ *http.Request, _ *Claims) {
	active := make([]model.EmailTemplate, 0, len(b.templates))
	for _, t := range b.templates {
		if t.IsActive {
			active = append(active, t)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": active})
}

// dashboardStats recounts the lead figures for the caller's scope; the
// remaining numbers come from the dataset as-is.
func (b *Backend) dashboardStats(w http.ResponseWriter, _ *http.Request, c *Claims) {
	stats := b.stats
	stats.TotalLeads, stats.HotLeads = 0, 0
	for _, l := range b.leads {
		if !c.canSee(l.AssignedAgentID) {
			continue
		}
		stats.TotalLeads++
		if l.Status == model.LeadHot {
			stats.HotLeads++
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (b *Backend) dashboardCharts(w http.ResponseWriter, _ *http.Request, _ *Claims) {
	writeJSON(w, http.StatusOK, b.charts)
}

func listParams(r *http.Request, filters ...string) query.Params {
	p := query.ParseParams(r.URL.Query(), filters, query.DefaultPageSize)
	p.Limit = min(p.Limit, maxPageSize)
	return p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode response: %v", err), http.StatusInternalServerError)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
