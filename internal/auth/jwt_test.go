package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret string, claims tokenClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestValidator_ValidToken(t *testing.T) {
	secret := "s3cr3t"
	claims := tokenClaims{
		Permissions:     []string{"publish", "subscribe"},
		AllowedSubjects: []string{"t.>"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok := signToken(t, secret, claims)

	v := NewValidator(secret)
	got, err := v.Validate(tok)
	if err != nil {
		t.Fatalf("expected valid token, got error: %v", err)
	}
	if got.Subject != "u1" {
		t.Errorf("subject = %q, want u1", got.Subject)
	}
	if !HasPermission(got, PermPublish) {
		t.Error("expected publish permission")
	}
}

func TestValidator_ExpiredToken(t *testing.T) {
	secret := "s3cr3t"
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	tok := signToken(t, secret, claims)

	v := NewValidator(secret)
	_, err := v.Validate(tok)
	if err == nil {
		t.Fatal("expected error for expired token")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "expir") {
		t.Errorf("expected reason to mention expiry, got %q", err.Error())
	}
}

func TestValidator_InvalidSignature(t *testing.T) {
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok := signToken(t, "right-secret", claims)

	v := NewValidator("wrong-secret")
	_, err := v.Validate(tok)
	if err == nil {
		t.Fatal("expected error for bad signature")
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "expir") {
		t.Errorf("expected a signature error, not an expiry error: %q", msg)
	}
}

func TestValidator_MalformedToken(t *testing.T) {
	v := NewValidator("secret")
	_, err := v.Validate("not-a-jwt")
	if err == nil {
		t.Fatal("expected error for malformed token")
	}
}
