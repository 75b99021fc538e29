package stubapi

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/richmansdream/crmdesk/internal/api"
	"github.com/richmansdream/crmdesk/internal/contract"
	"github.com/richmansdream/crmdesk/internal/model"
	"github.com/richmansdream/crmdesk/internal/session"
)

type claimsKey struct{}

// ClaimsFrom returns the verified claims of an authenticated request
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// canSee reports whether the caller may read a record owned by ownerID.
// Agents are restricted to their own records.
func (c *Claims) canSee(ownerID string) bool {
	if c.Role != model.RoleAgent {
		return true
	}
	return ownerID == c.UserID
}

type authedHandler func(http.ResponseWriter, *http.Request, *Claims)

// authed requires a valid, unrevoked bearer token
func (b *Backend) authed(next authedHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		claims, err := b.tokens.Verify(raw)
		if err == nil {
			if _, revoked := b.revoked.Load(claims.ID); revoked {
				err = errRevoked
			}
		}
		if err != nil {
			b.logger.WithError(err).Debug("bearer token rejected", "token", session.Fingerprint(raw))
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Invalid authentication credentials")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next(w, r.WithContext(ctx), claims)
	})
}

var errRevoked = stderrors.New("token revoked")

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// validate rejects requests that break the API contract
func (b *Backend) validate(next http.Handler) http.Handler {
	if b.validator == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := b.validator.ValidateRequest(r); err != nil {
			b.logger.Debug("request failed contract validation",
				"method", r.Method, "path", r.URL.Path, "reason", contract.Message(err))
			writeDetail(w, http.StatusBadRequest, contract.Message(err))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) delay(next http.Handler) http.Handler {
	if b.latency <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t := time.NewTimer(b.latency)
		defer t.Stop()
		select {
		case <-t.C:
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (b *Backend) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		b.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"request_id", r.Header.Get(api.RequestIDHeader),
			"duration", time.Since(started),
		)
	})
}
