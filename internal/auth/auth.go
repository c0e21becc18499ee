// Package auth verifies bearer tokens issued by the identity provider.
// Tokens are HS256 JWTs; the user id is read from "uid" and falls back to "sub".
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken is returned when no bearer token was presented.
	ErrMissingToken = errors.New("auth: missing bearer token")
	// ErrInvalidToken is returned for tokens that fail verification.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Identity is the verified caller.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// DisplayName returns the name shown next to authored content.
func (i Identity) DisplayName() string {
	if strings.TrimSpace(i.Name) != "" {
		return i.Name
	}
	return i.Email
}

// Verifier checks token signatures against a shared secret.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier builds a Verifier. An empty issuer accepts any issuer.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// ParseHeader verifies an Authorization header value of the form "Bearer <token>".
func (v *Verifier) ParseHeader(header string) (Identity, error) {
	const prefix = "Bearer "
	if header == "" {
		return Identity{}, ErrMissingToken
	}
	if !strings.HasPrefix(header, prefix) {
		return Identity{}, ErrInvalidToken
	}
	return v.Parse(strings.TrimSpace(strings.TrimPrefix(header, prefix)))
}

// Parse verifies a raw token.
func (v *Verifier) Parse(raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	id := Identity{
		UserID: stringClaim(claims, "uid"),
		Email:  stringClaim(claims, "email"),
		Name:   stringClaim(claims, "name"),
	}
	if id.UserID == "" {
		id.UserID = stringClaim(claims, "sub")
	}
	if id.UserID == "" {
		return Identity{}, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return id, nil
}

// Issue signs a token for id valid for ttl. Used by tooling and tests.
func (v *Verifier) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   id.UserID,
		"uid":   id.UserID,
		"email": id.Email,
		"name":  id.Name,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	if v.issuer != "" {
		claims["iss"] = v.issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

type ctxKey struct{}

// WithIdentity stores id on ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored on ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.UserID != ""
}
