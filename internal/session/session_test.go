package session

import (
	"sync"
	"testing"

	"github.com/rskv-p/meshgate/internal/auth"
)

func TestSession_SubscriptionLifecycle(t *testing.T) {
	s := New(auth.Claims{Subject: "u1"})
	if s.ID == "" {
		t.Fatal("expected non-empty session id")
	}

	s.AddSubscription(42, "t.v1.m")
	if subj, ok := s.GetSubscriptionSubject(42); !ok || subj != "t.v1.m" {
		t.Fatalf("expected subject lookup to succeed, got %q %v", subj, ok)
	}

	id, ok := s.MatchSubscription("t.v1.m")
	if !ok || id != 42 {
		t.Fatalf("expected exact match to subscription 42, got %v %v", id, ok)
	}

	subj, ok := s.RemoveSubscription(42)
	if !ok || subj != "t.v1.m" {
		t.Fatalf("expected removal to return t.v1.m, got %q %v", subj, ok)
	}

	if _, ok := s.MatchSubscription("t.v1.m"); ok {
		t.Fatal("expected no match after unsubscribe")
	}

	// Removing again is idempotent.
	if _, ok := s.RemoveSubscription(42); ok {
		t.Fatal("expected second removal to report no entry")
	}
}

func TestSession_OverwriteSubscription(t *testing.T) {
	s := New(auth.Claims{})
	s.AddSubscription(1, "a.b")
	s.AddSubscription(1, "c.d")
	subj, ok := s.GetSubscriptionSubject(1)
	if !ok || subj != "c.d" {
		t.Fatalf("expected overwrite to win, got %q", subj)
	}
}

func TestSession_WildcardMatch(t *testing.T) {
	s := New(auth.Claims{})
	s.AddSubscription(1, "t.v1.*")
	id, ok := s.MatchSubscription("t.v1.events")
	if !ok || id != 1 {
		t.Fatalf("expected wildcard match, got %v %v", id, ok)
	}
	if _, ok := s.MatchSubscription("t.v2.events"); ok {
		t.Fatal("expected no match outside wildcard scope")
	}
}

func TestSession_NextServerID_ConcurrentDistinct(t *testing.T) {
	s := New(auth.Claims{})
	const workers = 8
	const perWorker = 500

	seen := make(chan uint64, workers*perWorker)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := s.NextServerID()
				if id == 0 {
					t.Error("NextServerID must never return zero")
				}
				seen <- id
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[uint64]struct{}, workers*perWorker)
	for id := range seen {
		unique[id] = struct{}{}
	}
	if len(unique) != workers*perWorker {
		t.Fatalf("expected %d distinct ids, got %d", workers*perWorker, len(unique))
	}
}
