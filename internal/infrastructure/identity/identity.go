// Package identity verifies the tokens handed out by the external identity
// provider. The display name carried in the token becomes the connection's
// identity for the lifetime of the socket.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hilthontt/codeclash/internal/domain"
)

var ErrMissingToken = errors.New("missing token")

type ctxKey int

const identityKey ctxKey = 1

func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// FromContext returns the verified identity, or "" for anonymous requests.
func FromContext(ctx context.Context) string {
	v, _ := ctx.Value(identityKey).(string)
	return v
}

type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Enabled reports whether tokens are required at all.
func (v *Verifier) Enabled() bool {
	return v != nil && len(v.secret) > 0
}

// Verify checks an HMAC token and returns its normalized name claim.
func (v *Verifier) Verify(tok string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tok, &claims, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	name := claims.Name
	if name == "" {
		name = claims.Subject
	}
	identity, err := domain.NormalizeIdentity(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return identity, nil
}

// Sign issues a token for identity. It is used by tests and local tooling;
// production tokens come from the identity provider.
func (v *Verifier) Sign(identity string, ttl time.Duration) (string, error) {
	if identity == "" {
		return "", errors.New("empty identity")
	}
	now := time.Now()
	claims := Claims{
		Name: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// TokenFromRequest reads a bearer token from the Authorization header, falling
// back to the token query parameter since browsers cannot set headers on a
// websocket upgrade.
func TokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
			return "", ErrMissingToken
		}
		return strings.TrimSpace(tok), nil
	}
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok, nil
	}
	return "", ErrMissingToken
}
