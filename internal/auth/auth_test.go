package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier("secret", "gymblog")
	token, err := v.Issue(Identity{UserID: "u1", Email: "u1@example.com", Name: "Una"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	id, err := v.ParseHeader("Bearer " + token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.UserID != "u1" || id.Email != "u1@example.com" || id.DisplayName() != "Una" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier("secret", "")
	other := NewVerifier("other", "")
	foreign, _ := other.Issue(Identity{UserID: "u1"}, time.Hour)
	expired, _ := v.Issue(Identity{UserID: "u1"}, -time.Minute)
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "x@example.com"}).SignedString([]byte("secret"))
	hs512, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "u1"}).SignedString([]byte("secret"))

	tests := []struct {
		name   string
		header string
		want   error
	}{
		{"empty", "", ErrMissingToken},
		{"bearer only", "Bearer ", ErrMissingToken},
		{"basic scheme", "Basic abc", ErrInvalidToken},
		{"garbage", "Bearer not-a-jwt", ErrInvalidToken},
		{"wrong secret", "Bearer " + foreign, ErrInvalidToken},
		{"expired", "Bearer " + expired, ErrInvalidToken},
		{"no subject", "Bearer " + noSubject, ErrInvalidToken},
		{"wrong alg", "Bearer " + hs512, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.ParseHeader(tt.header); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestVerifier_SubFallback(t *testing.T) {
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "from-sub", "email": "s@example.com"}).SignedString([]byte("secret"))
	id, err := NewVerifier("secret", "").Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.UserID != "from-sub" || id.DisplayName() != "s@example.com" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("empty context reported an identity")
	}
	ctx := WithIdentity(context.Background(), Identity{UserID: "u1"})
	id, ok := FromContext(ctx)
	if !ok || id.UserID != "u1" {
		t.Fatalf("FromContext = %+v, %v", id, ok)
	}
}
