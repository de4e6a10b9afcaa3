// Package auth validates bearer tokens and authorizes subject-scoped
// operations against the resulting claims.
package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Permission is one of the verbs a token may grant.
type Permission string

const (
	PermPublish   Permission = "publish"
	PermSubscribe Permission = "subscribe"
	PermRequest   Permission = "request"
)

// Claims is the validated identity carried by a Session for its lifetime.
type Claims struct {
	Subject         string
	IssuedAt        int64
	ExpiresAt       int64
	Permissions     []string
	AllowedSubjects []string
	DeniedSubjects  []string
}

// tokenClaims is the JSON shape signed into the JWT, embedding the registered
// claims the way the fleet's own jwtClaims does in runn_api/auth.go.
type tokenClaims struct {
	Permissions     []string `json:"permissions"`
	AllowedSubjects []string `json:"allowed_subjects"`
	DeniedSubjects  []string `json:"deny_subjects"`
	jwt.RegisteredClaims
}

func (c tokenClaims) toClaims() Claims {
	var iat, exp int64
	if c.IssuedAt != nil {
		iat = c.IssuedAt.Unix()
	}
	if c.ExpiresAt != nil {
		exp = c.ExpiresAt.Unix()
	}
	return Claims{
		Subject:         c.Subject,
		IssuedAt:        iat,
		ExpiresAt:       exp,
		Permissions:     c.Permissions,
		AllowedSubjects: c.AllowedSubjects,
		DeniedSubjects:  c.DeniedSubjects,
	}
}

// HasPermission is a case-insensitive membership test of verb against the
// claims' granted permission set.
func HasPermission(claims Claims, verb Permission) bool {
	needle := strings.ToLower(string(verb))
	for _, p := range claims.Permissions {
		if strings.ToLower(p) == needle {
			return true
		}
	}
	return false
}
