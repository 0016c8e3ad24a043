// Package auth provides JWT validation middleware and token minting for
// services embedding the rbac library. Role claims ride in a "roles" array
// claim with entries of the form "role" or "role:context".
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"rolegate/internal/rbac"
)

type contextKey string

const contextKeyClaims contextKey = "claims"

// Claims is the token payload understood by the rbac library.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Anonymous is the claims value used when no (valid) token is presented.
func Anonymous() *Claims {
	return &Claims{}
}

// IsAnonymous reports whether the claims identify no subject.
func (c *Claims) IsAnonymous() bool {
	return c == nil || c.Subject == ""
}

// FromContext extracts the validated claims from a request context.
func FromContext(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(contextKeyClaims).(*Claims); ok {
		return claims
	}
	return Anonymous()
}

// WithClaims stores claims on a context. Exposed for tests and non-HTTP
// callers (CLI tools validating a token directly).
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, contextKeyClaims, claims)
}

// Verifier validates tokens with a shared HMAC secret.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewVerifier builds a Verifier. Issuer and audience are optional; when set,
// tokens must carry matching registered claims.
func NewVerifier(secret []byte, issuer, audience string) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("auth: signing secret is required")
	}
	return &Verifier{secret: secret, issuer: issuer, audience: audience}, nil
}

// Verify parses and validates a compact token string.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("auth: token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("auth: token is invalid")
	}
	return &claims, nil
}

// Middleware returns an HTTP middleware that validates a Bearer token and
// stores the claims in the request context. Requests without an
// Authorization header proceed as anonymous; malformed or invalid tokens are
// rejected with 401.
func (v *Verifier) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), Anonymous())))
				return
			}
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, `{"error": "invalid authorization header"}`, http.StatusUnauthorized)
				return
			}
			claims, err := v.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// Minter issues tokens whose roles claim is built from assignment providers.
type Minter struct {
	secret    []byte
	issuer    string
	audience  string
	ttl       time.Duration
	providers []rbac.AssignmentProvider
	now       func() time.Time
}

// MinterOption customizes a Minter.
type MinterOption func(*Minter)

// WithClock overrides the timestamp source (tests).
func WithClock(now func() time.Time) MinterOption {
	return func(m *Minter) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMinter builds a Minter signing with the shared HMAC secret.
func NewMinter(secret []byte, issuer, audience string, ttl time.Duration, providers []rbac.AssignmentProvider, opts ...MinterOption) (*Minter, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("auth: signing secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("auth: token ttl must be positive")
	}
	m := &Minter{
		secret:    secret,
		issuer:    issuer,
		audience:  audience,
		ttl:       ttl,
		providers: providers,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Mint issues a signed token for the user, with the roles claim assembled
// from every registered assignment provider.
func (m *Minter) Mint(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("auth: user id is required")
	}
	roles, err := rbac.RoleClaims(ctx, userID, m.providers...)
	if err != nil {
		return "", fmt.Errorf("auth: build role claims: %w", err)
	}
	now := m.now()
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}
