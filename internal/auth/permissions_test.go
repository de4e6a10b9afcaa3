package auth

import "testing"

func TestSubjectMatches(t *testing.T) {
	cases := []struct {
		pattern, subject string
		want             bool
	}{
		{"foo.bar.baz", "foo.bar.baz", true},
		{"foo.bar.baz", "foo.bar.qux", false},
		{"foo.*.baz", "foo.bar.baz", true},
		{"foo.*.baz", "foo.bar.baz.extra", false},
		{"foo.>", "foo.bar.baz.qux", true},
		{"foo.>", "bar.baz", false},
		{">", "anything.at.all", true},
		{"*.bar.>", "foo.bar.baz.x", true},
		{"", "", true},
		{"*", "foo", true},
		{"*", "foo.bar", false},
	}

	for _, c := range cases {
		got := SubjectMatches(c.pattern, c.subject)
		if got != c.want {
			t.Errorf("SubjectMatches(%q, %q) = %v, want %v", c.pattern, c.subject, got, c.want)
		}
	}
}

func TestIsSubjectAllowed_DenyWins(t *testing.T) {
	claims := Claims{
		AllowedSubjects: []string{"t.>"},
		DeniedSubjects:  []string{"t.secret.>"},
	}
	if !IsSubjectAllowed(claims, "t.public") {
		t.Fatal("expected t.public to be allowed")
	}
	if IsSubjectAllowed(claims, "t.secret.data") {
		t.Fatal("expected t.secret.data to be denied")
	}
}

func TestIsSubjectAllowed_OpenByDefault(t *testing.T) {
	claims := Claims{}
	if !IsSubjectAllowed(claims, "anything.at.all") {
		t.Fatal("expected open-by-default allow with empty allow list")
	}
}

func TestIsSubjectAllowed_RestrictedAllowList(t *testing.T) {
	claims := Claims{AllowedSubjects: []string{"t.ok"}}
	if !IsSubjectAllowed(claims, "t.ok") {
		t.Fatal("expected t.ok allowed")
	}
	if IsSubjectAllowed(claims, "t.denied") {
		t.Fatal("expected t.denied to be rejected")
	}
}

func TestHasPermission_CaseInsensitive(t *testing.T) {
	claims := Claims{Permissions: []string{"Publish", "SUBSCRIBE"}}
	if !HasPermission(claims, PermPublish) {
		t.Fatal("expected publish permission")
	}
	if !HasPermission(claims, PermSubscribe) {
		t.Fatal("expected subscribe permission")
	}
	if HasPermission(claims, PermRequest) {
		t.Fatal("did not expect request permission")
	}
}

func TestCanPerform(t *testing.T) {
	claims := Claims{
		Permissions:     []string{"publish"},
		AllowedSubjects: []string{"t.>"},
	}
	if !CanPerform(claims, PermPublish, "t.x") {
		t.Fatal("expected publish on t.x to be permitted")
	}
	if CanPerform(claims, PermSubscribe, "t.x") {
		t.Fatal("did not expect subscribe to be permitted")
	}
	if CanPerform(claims, PermPublish, "other.x") {
		t.Fatal("did not expect publish outside allow-list")
	}
}
