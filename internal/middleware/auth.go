package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/juhojo/blabbermouth/internal/metrics"
	"github.com/juhojo/blabbermouth/internal/services"
	"github.com/juhojo/blabbermouth/pkg/utils"
)

type TokenValidator interface {
	Validate(token string) (*services.Claims, error)
}

type UserChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

type claimsKey struct{}

// ClaimsFromContext returns the claims stored by Guard.RequireOwner.
func ClaimsFromContext(ctx context.Context) (*services.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*services.Claims)
	return c, ok
}

// Guard binds the bearer token's user to the {uid} path parameter.
type Guard struct {
	tokens  TokenValidator
	users   UserChecker
	log     *slog.Logger
	metrics metrics.Recorder
}

func NewGuard(tokens TokenValidator, users UserChecker, log *slog.Logger, rec metrics.Recorder) *Guard {
	return &Guard{tokens: tokens, users: users, log: log, metrics: rec}
}

// RequireOwner answers 401 when the token is missing, invalid or expired or
// when the path user does not exist, and 403 when the token belongs to a
// different user. Otherwise the claims are added to the request context.
func (g *Guard) RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, err := utils.ParseID("uid", chi.URLParam(r, "uid"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Not an ID")
			return
		}

		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			g.deny(w, http.StatusUnauthorized)
			return
		}

		claims, err := g.tokens.Validate(token)
		if err != nil {
			if !errors.Is(err, services.ErrTokenExpired) && !errors.Is(err, services.ErrInvalidToken) {
				g.log.Error("token validation failed", "error", err)
			}
			g.deny(w, http.StatusUnauthorized)
			return
		}

		exists, err := g.users.Exists(r.Context(), uid)
		if err != nil {
			g.log.Error("guard user lookup failed", "user_id", uid, "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if !exists {
			g.deny(w, http.StatusUnauthorized)
			return
		}

		if claims.User.ID != uid {
			g.deny(w, http.StatusForbidden)
			return
		}

		g.metrics.RecordGuardDecision(metrics.GuardAllowed)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

func (g *Guard) deny(w http.ResponseWriter, status int) {
	if status == http.StatusForbidden {
		g.metrics.RecordGuardDecision(metrics.GuardForbidden)
		writeError(w, status, "Forbidden")
		return
	}
	g.metrics.RecordGuardDecision(metrics.GuardUnauthorized)
	writeError(w, status, "Unauthorized")
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
