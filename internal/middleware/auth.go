package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/baron-png/quality-core/internal/domain/user"
	"github.com/baron-png/quality-core/internal/port/cache"
)

type claimsCtxKey struct{}
type tokenCtxKey struct{}

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/health": true,
}

// tokenClaims is the JWT payload issued by the identity service.
type tokenClaims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	Role     string `json:"role"`
	TenantID string `json:"tid"`
}

// Auth returns middleware that validates the bearer token issued by the
// identity service and stores both the parsed claims and the raw token in
// the request context. The raw token is kept because collaborator calls
// forward the caller's credentials unchanged.
//
// Parsed claims are cached until the token's own expiry (bounded by
// claimsTTL) so hot callers do not pay signature verification per request.
func Auth(secret []byte, claimsCache cache.Cache, claimsTTL time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			raw := bearerToken(r)
			if raw == "" {
				http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
				return
			}

			claims, err := parseToken(r.Context(), raw, secret, claimsCache, claimsTTL)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsCtxKey{}, claims)
			ctx = context.WithValue(ctx, tokenCtxKey{}, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

func parseToken(ctx context.Context, raw string, secret []byte, claimsCache cache.Cache, ttl time.Duration) (*user.Claims, error) {
	if claimsCache != nil {
		if data, ok, _ := claimsCache.Get(ctx, raw); ok {
			var c user.Claims
			if err := json.Unmarshal(data, &c); err == nil {
				return &c, nil
			}
		}
	}

	var tc tokenClaims
	_, err := jwt.ParseWithClaims(raw, &tc, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	c := &user.Claims{
		UserID:   tc.Subject,
		Email:    tc.Email,
		Role:     tc.Role,
		TenantID: tc.TenantID,
	}

	if claimsCache != nil {
		if tc.ExpiresAt != nil {
			if remaining := time.Until(tc.ExpiresAt.Time); remaining < ttl {
				ttl = remaining
			}
		}
		if ttl > 0 {
			if data, err := json.Marshal(c); err == nil {
				if err := claimsCache.Set(ctx, raw, data, ttl); err != nil {
					slog.Debug("claims cache set failed", "error", err)
				}
			}
		}
	}

	return c, nil
}

// ClaimsFromContext returns the caller's parsed token claims, or nil.
func ClaimsFromContext(ctx context.Context) *user.Claims {
	c, _ := ctx.Value(claimsCtxKey{}).(*user.Claims)
	return c
}

// TokenFromContext returns the raw bearer token forwarded by the caller, or "".
func TokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(tokenCtxKey{}).(string)
	return t
}

// WithClaims stores claims (and optionally a raw token) in ctx. Used by the
// admin CLI and tests, which have no inbound HTTP request.
func WithClaims(ctx context.Context, c *user.Claims, rawToken string) context.Context {
	ctx = context.WithValue(ctx, claimsCtxKey{}, c)
	if rawToken != "" {
		ctx = context.WithValue(ctx, tokenCtxKey{}, rawToken)
	}
	return ctx
}
