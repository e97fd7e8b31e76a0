package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/foodboard/api/internal/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

var (
	errMissingToken  = errors.New("missing token")
	errInvalidFormat = errors.New("invalid authorization format")
)

// TokenSource pulls a raw token out of a request. It returns errMissingToken
// when the request carries none, so the next source can be tried.
type TokenSource func(r *http.Request) (string, error)

// BearerHeader reads "Authorization: Bearer <token>".
func BearerHeader(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", errInvalidFormat
	}
	return parts[1], nil
}

// QueryParam reads the token from a URL query parameter. Browsers cannot set
// headers on websocket or EventSource requests.
func QueryParam(name string) TokenSource {
	return func(r *http.Request) (string, error) {
		if tok := r.URL.Query().Get(name); tok != "" {
			return tok, nil
		}
		return "", errMissingToken
	}
}

// Authenticate validates the first token found by sources and stores its
// claims on the request context. With no sources it reads the bearer header.
func Authenticate(jwtSecret string, sources ...TokenSource) func(http.Handler) http.Handler {
	if len(sources) == 0 {
		sources = []TokenSource{BearerHeader}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := findToken(r, sources)
			if err != nil {
				deny(w, http.StatusUnauthorized, err.Error())
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, token)
			if err != nil {
				deny(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func findToken(r *http.Request, sources []TokenSource) (string, error) {
	for _, src := range sources {
		tok, err := src(r)
		if errors.Is(err, errMissingToken) {
			continue
		}
		return tok, err
	}
	return "", errMissingToken
}

// RequireRole admits requests whose claims carry one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				deny(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			deny(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}

// WithClaims stores validated claims on the context.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		slog.Debug("write auth error", "error", err)
	}
}
