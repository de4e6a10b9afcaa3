package auth

import "strings"

// IsSubjectAllowed implements deny-wins, open-by-default subject
// authorization: a matching deny pattern always wins; with an empty allow
// list every subject not denied is allowed; otherwise the subject must match
// at least one allow pattern.
func IsSubjectAllowed(claims Claims, subject string) bool {
	for _, pattern := range claims.DeniedSubjects {
		if SubjectMatches(pattern, subject) {
			return false
		}
	}
	if len(claims.AllowedSubjects) == 0 {
		return true
	}
	for _, pattern := range claims.AllowedSubjects {
		if SubjectMatches(pattern, subject) {
			return true
		}
	}
	return false
}

// CanPerform is HasPermission && IsSubjectAllowed for the given verb/subject.
func CanPerform(claims Claims, verb Permission, subject string) bool {
	return HasPermission(claims, verb) && IsSubjectAllowed(claims, subject)
}

// SubjectMatches reports whether subject matches the bus-style dotted
// pattern: '*' matches exactly one token, a trailing '>' matches one or more
// remaining tokens, any other token matches itself literally. Subject-level
// matching is case-sensitive.
func SubjectMatches(pattern, subject string) bool {
	if pattern == "" {
		return subject == ""
	}

	patTokens := strings.Split(pattern, ".")
	subTokens := strings.Split(subject, ".")

	for i, p := range patTokens {
		if p == ">" {
			return i < len(subTokens)
		}
		if i >= len(subTokens) {
			return false
		}
		if p == "*" {
			continue
		}
		if p != subTokens[i] {
			return false
		}
	}
	return len(patTokens) == len(subTokens)
}
