package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// InvalidTokenError reports why a token failed validation; Reason always
// distinguishes at minimum "expired" from "invalid signature" per the wire
// contract clients rely on.
type InvalidTokenError struct {
	Reason string
}

func (e *InvalidTokenError) Error() string { return "invalid token: " + e.Reason }

// Validator verifies bearer tokens signed with a shared HS256 secret, the
// same scheme used by runn_api.JWTMiddleware.
type Validator struct {
	secret []byte
}

// NewValidator builds a Validator over secret. An empty secret is accepted
// by the constructor but will reject every token, since HS256 with an empty
// key never matches a token signed with a real one.
func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

// Validate verifies tok's signature and expiry and returns its Claims.
// Every failure mode collapses into an *InvalidTokenError.
func (v *Validator) Validate(tok string) (Claims, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, &InvalidTokenError{Reason: "token expired"}
		}
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Claims{}, &InvalidTokenError{Reason: "invalid signature"}
		}
		return Claims{}, &InvalidTokenError{Reason: "malformed token: " + err.Error()}
	}
	if !parsed.Valid {
		return Claims{}, &InvalidTokenError{Reason: "invalid token"}
	}

	if claims.ExpiresAt == nil {
		return Claims{}, &InvalidTokenError{Reason: "malformed token: missing exp"}
	}
	if claims.ExpiresAt.Time.Before(time.Now()) {
		return Claims{}, &InvalidTokenError{Reason: "token expired"}
	}

	return claims.toClaims(), nil
}
