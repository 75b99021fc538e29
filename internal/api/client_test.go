package api

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

	"github.com/richmansdream/crmdesk/internal/errors"
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

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestDo_AttachesExplicitCredential(t *testing.T) {
	var gotAuth, gotRequestID string
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get(RequestIDHeader)
		writeJSON(w, http.StatusOK, map[string]string{"ok": "yes"})
	}))

	c := NewClient(srv.URL)
	var out map[string]string
	err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/ping"}, "tok-123", &out)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, "yes", out["ok"])
}

func TestDo_NoCredentialNoHeader(t *testing.T) {
	var gotAuth string
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))

	c := NewClient(srv.URL)
	require.NoError(t, c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/x"}, "", nil))
	assert.Empty(t, gotAuth)
}

func TestDo_UnauthorizedRunsHandlers(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token expired"})
	}))

	c := NewClient(srv.URL)
	var calls atomic.Int32
	var seen string
	c.OnUnauthorized(func(_ context.Context, credential string) {
		calls.Add(1)
		seen = credential
	})

	err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/leads"}, "stale", nil)
	require.Error(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "stale", seen)
	assert.Equal(t, errors.ErrCodeUnauthorized, errors.CodeOf(err))
	assert.Equal(t, "Token expired", ServerMessage(err))
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestDo_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		body   any
		code   errors.ErrorCode
		msg    string
	}{
		{http.StatusNotFound, map[string]string{"detail": "Lead not found"}, errors.ErrCodeNotFound, "Lead not found"},
		{http.StatusForbidden, map[string]string{"detail": "Not enough permissions"}, errors.ErrCodeForbidden, "Not enough permissions"},
		{http.StatusBadRequest, map[string]string{"error": "bad filter"}, errors.ErrCodeClient, "bad filter"},
		{http.StatusInternalServerError, map[string]string{"message": "boom"}, errors.ErrCodeServer, "boom"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}))

			err := NewClient(srv.URL).Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"}, "t", nil)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.CodeOf(err))
			assert.Equal(t, tt.msg, ServerMessage(err))

			var crmErr *errors.CRMError
			require.ErrorAs(t, err, &crmErr)
			assert.Equal(t, tt.status, crmErr.Status)
		})
	}
}

func TestDo_DetailPrecedesError(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "first", "error": "second", "message": "third"})
	}))

	err := NewClient(srv.URL).Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"}, "", nil)
	assert.Equal(t, "first", ServerMessage(err))
}

func TestDo_StructuredDetailFallsThrough(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"loc":["query","limit"],"msg":"too big"}],"error":"validation"}`))
	}))

	err := NewClient(srv.URL).Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"}, "", nil)
	assert.Equal(t, "validation", ServerMessage(err))
}

func TestDo_TransportError(t *testing.T) {
	srv := newTestServer(t, http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	err := NewClient(base).Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"}, "", nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTransport, errors.CodeOf(err))
	assert.Empty(t, ServerMessage(err))
}

func TestDo_DecodeError(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))

	var out map[string]any
	err := NewClient(srv.URL).Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"}, "", &out)
	assert.Equal(t, errors.ErrCodeDecode, errors.CodeOf(err))
}

func TestLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/login", r.URL.Path)
			var req LoginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "ana@example.com", req.Email)
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"token":   "jwt",
				"user":    map[string]string{"id": "u1", "name": "Ana", "email": "ana@example.com", "role": "admin"},
			})
		}))

		resp, err := NewClient(srv.URL).Login(context.Background(), "ana@example.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, "jwt", resp.Token)
		require.NotNil(t, resp.User)
		assert.Equal(t, model.RoleAdmin, resp.User.Role)
	})

	t.Run("application failure", func(t *testing.T) {
		srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "Account locked"})
		}))

		resp, err := NewClient(srv.URL).Login(context.Background(), "a@b.c", "x")
		require.Error(t, err)
		assert.Nil(t, resp)
		assert.Equal(t, errors.ErrCodeAppFailure, errors.CodeOf(err))
		assert.Equal(t, "Account locked", ServerMessage(err))
	})
}

func TestListPage(t *testing.T) {
	var gotQuery url.Values
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		writeJSON(w, http.StatusOK, map[string]any{
			"leads": []map[string]string{{"id": "l1", "name": "Ana"}, {"id": "l2", "name": "Bo"}},
			"total": 12,
			"pages": 2,
		})
	}))

	req := Request{Path: "/leads", Query: url.Values{"page": {"2"}, "limit": {"10"}}}
	res, err := ListPage[model.Lead](context.Background(), NewClient(srv.URL), req, "leads", "t")
	require.NoError(t, err)

	assert.Equal(t, "2", gotQuery.Get("page"))
	assert.Len(t, res.Items, 2)
	assert.Equal(t, 12, res.Total)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "l1", res.Items[0].Key())
}

func TestListPage_RawQueryKeepsOrder(t *testing.T) {
	var raw string
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw = r.URL.RawQuery
		writeJSON(w, http.StatusOK, map[string]any{"leads": []any{}, "total": 0})
	}))

	req := Request{Path: "/leads", RawQuery: "page=2&limit=10&status=hot"}
	_, err := ListPage[model.Lead](context.Background(), NewClient(srv.URL), req, "leads", "t")
	require.NoError(t, err)
	assert.Equal(t, "page=2&limit=10&status=hot", raw)
}

func TestListPage_MissingItemsKey(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"total": 0})
	}))

	res, err := ListPage[model.Email](context.Background(), NewClient(srv.URL), Request{Path: "/emails"}, "emails", "t")
	require.NoError(t, err)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
}

func TestListPage_RejectsMalformedCounts(t *testing.T) {
	bodies := map[string]string{
		"string total": `{"leads":[{"id":"1"}],"total":"13","pages":2}`,
		"float total":  `{"leads":[{"id":"1"}],"total":13.5,"pages":2}`,
		"object pages": `{"leads":[{"id":"1"}],"total":13,"pages":{}}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(body))
			}))

			_, err := ListPage[model.Lead](context.Background(), NewClient(srv.URL), Request{Path: "/leads"}, "leads", "t")
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeDecode, errors.CodeOf(err))
		})
	}
}

func TestTypedGetters(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/leads/l1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"lead": map[string]string{"id": "l1", "status": "hot"}})
	})
	mux.HandleFunc("/emails/templates", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"templates": []map[string]string{{"id": "t1", "name": "Welcome"}}})
	})
	mux.HandleFunc("/dashboard/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"totalLeads": 42, "monthlyGrowth": 12.5})
	})
	srv := newTestServer(t, mux)
	c := NewClient(srv.URL)
	ctx := context.Background()

	lead, err := c.GetLead(ctx, "l1", "t")
	require.NoError(t, err)
	assert.Equal(t, model.LeadHot, lead.Status)

	tpls, err := c.EmailTemplates(ctx, "t")
	require.NoError(t, err)
	require.Len(t, tpls, 1)
	assert.Equal(t, "Welcome", tpls[0].Name)

	stats, err := c.DashboardStats(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, 42, stats.TotalLeads)
	assert.InDelta(t, 12.5, stats.MonthlyGrowth, 0.001)

	_, err = c.GetEmail(ctx, "missing", "t")
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}
