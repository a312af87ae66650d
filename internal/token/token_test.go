package token

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestIssueAndVerify(t *testing.T) {
	iss, err := NewIssuer(Options{
		Issuer:    "feedhub-test",
		AccessTTL: time.Hour,
	}, testLogger())
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}

	signed, err := iss.Issue("user-123", "owner@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	kf, err := iss.Keyfunc()
	if err != nil {
		t.Fatalf("Keyfunc: %v", err)
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(signed, claims, kf.Keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer("feedhub-test"),
	)
	if err != nil {
		t.Fatalf("ParseWithClaims: %v", err)
	}
	if !parsed.Valid {
		t.Fatal("токен должен быть валидным")
	}
	if claims.Subject != "user-123" {
		t.Errorf("Subject = %q, ожидалось user-123", claims.Subject)
	}
	if claims.Email != "owner@example.com" {
		t.Errorf("Email = %q, ожидалось owner@example.com", claims.Email)
	}
}

func TestIssueExpiry(t *testing.T) {
	iss, err := NewIssuer(Options{
		Issuer:    "feedhub-test",
		AccessTTL: -time.Minute, // уже просрочен
	}, testLogger())
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}

	signed, err := iss.Issue("user-123", "owner@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	kf, err := iss.Keyfunc()
	if err != nil {
		t.Fatalf("Keyfunc: %v", err)
	}

	_, err = jwt.ParseWithClaims(signed, &Claims{}, kf.Keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
	)
	if err == nil {
		t.Fatal("просроченный токен должен отклоняться")
	}
}

func TestJWKSContainsKey(t *testing.T) {
	iss, err := NewIssuer(Options{
		Issuer:    "feedhub-test",
		AccessTTL: time.Hour,
	}, testLogger())
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}

	raw, err := iss.JWKS(context.Background())
	if err != nil {
		t.Fatalf("JWKS: %v", err)
	}

	var jwks struct {
		Keys []struct {
			Kty string `json:"kty"`
			Kid string `json:"kid"`
			Use string `json:"use"`
		} `json:"keys"`
	}
	if err := json.Unmarshal(raw, &jwks); err != nil {
		t.Fatalf("unmarshal JWKS: %v", err)
	}
	if len(jwks.Keys) != 1 {
		t.Fatalf("ожидался один ключ, получено %d", len(jwks.Keys))
	}
	if jwks.Keys[0].Kty != "RSA" {
		t.Errorf("kty = %q, ожидалось RSA", jwks.Keys[0].Kty)
	}
	if jwks.Keys[0].Kid == "" {
		t.Error("kid не должен быть пустым")
	}
	if jwks.Keys[0].Use != "sig" {
		t.Errorf("use = %q, ожидалось sig", jwks.Keys[0].Use)
	}
}
